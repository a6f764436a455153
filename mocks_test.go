package account_test

import (
	"context"
	"database/sql"
	"io"
	"mime/multipart"
	"time"

	"github.com/goliatone/go-account"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"
)

// MockAuthenticator implements account.Authenticator
type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) Login(ctx context.Context, username, password string) (string, error) {
	args := m.Called(ctx, username, password)
	return args.String(0), args.Error(1)
}

func (m *MockAuthenticator) SessionFromToken(token string) (*account.SessionClaims, error) {
	args := m.Called(token)
	if claims, ok := args.Get(0).(*account.SessionClaims); ok {
		return claims, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAuthenticator) IdentityFromSession(ctx context.Context, claims *account.SessionClaims) (account.Identity, error) {
	args := m.Called(ctx, claims)
	if identity, ok := args.Get(0).(account.Identity); ok {
		return identity, args.Error(1)
	}
	return nil, args.Error(1)
}

// MockConfig implements account.Config
type MockConfig struct {
	mock.Mock
}

func (m *MockConfig) GetSigningKey() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockConfig) GetTokenExpiration() int {
	args := m.Called()
	return args.Int(0)
}

func (m *MockConfig) GetCookieName() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockConfig) GetIssuer() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockConfig) GetAudience() []string {
	args := m.Called()
	return args.Get(0).([]string)
}

func (m *MockConfig) GetWebBaseURL() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockConfig) IsProduction() bool {
	args := m.Called()
	return args.Bool(0)
}

// MockIdentityProvider implements account.IdentityProvider
type MockIdentityProvider struct {
	mock.Mock
}

func (m *MockIdentityProvider) VerifyIdentity(ctx context.Context, username, password string) (account.Identity, error) {
	args := m.Called(ctx, username, password)
	if identity, ok := args.Get(0).(account.Identity); ok {
		return identity, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockIdentityProvider) FindIdentityByIdentifier(ctx context.Context, identifier string) (account.Identity, error) {
	args := m.Called(ctx, identifier)
	if identity, ok := args.Get(0).(account.Identity); ok {
		return identity, args.Error(1)
	}
	return nil, args.Error(1)
}

// MockUserTracker implements account.UserTracker
type MockUserTracker struct {
	mock.Mock
}

func (m *MockUserTracker) GetByUsername(ctx context.Context, username string) (*account.User, error) {
	args := m.Called(ctx, username)
	if user, ok := args.Get(0).(*account.User); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserTracker) GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (*account.User, error) {
	args := m.Called(ctx, identifier)
	if user, ok := args.Get(0).(*account.User); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserTracker) TrackAttemptedLogin(ctx context.Context, user *account.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserTracker) TrackSuccessfulLogin(ctx context.Context, user *account.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// MockActivitySink implements account.ActivitySink
type MockActivitySink struct {
	mock.Mock
}

func (m *MockActivitySink) Record(ctx context.Context, event account.ActivityEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockMailer implements account.Mailer
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) SendVerificationEmail(ctx context.Context, email, link string) error {
	args := m.Called(ctx, email, link)
	return args.Error(0)
}

// stubUsers overrides only the repository methods a test needs, the embedded
// interface panics loudly if something unexpected gets called.
type stubUsers struct {
	account.Users

	createTx         func(ctx context.Context, tx bun.IDB, record *account.User, criteria ...repository.InsertCriteria) (*account.User, error)
	getByToken       func(ctx context.Context, tx bun.IDB, token string) (*account.User, error)
	markVerified     func(ctx context.Context, tx bun.IDB, id string) (*account.User, error)
	claimUsername    func(ctx context.Context, tx bun.IDB, id, username string) (*account.User, error)
	updateTx         func(ctx context.Context, tx bun.IDB, record *account.User, criteria ...repository.UpdateCriteria) (*account.User, error)
	updateStatus     func(ctx context.Context, id string, status account.UserStatus) (*account.User, error)
	getByIdentifier  func(ctx context.Context, identifier string) (*account.User, error)
	updateStatusErrs error
}

func (s *stubUsers) CreateTx(ctx context.Context, tx bun.IDB, record *account.User, criteria ...repository.InsertCriteria) (*account.User, error) {
	return s.createTx(ctx, tx, record, criteria...)
}

func (s *stubUsers) GetByVerificationTokenTx(ctx context.Context, tx bun.IDB, token string, now time.Time) (*account.User, error) {
	return s.getByToken(ctx, tx, token)
}

func (s *stubUsers) MarkEmailVerifiedTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*account.User, error) {
	return s.markVerified(ctx, tx, id.String())
}

func (s *stubUsers) ClaimUsernameTx(ctx context.Context, tx bun.IDB, id uuid.UUID, username string) (*account.User, error) {
	return s.claimUsername(ctx, tx, id.String(), username)
}

func (s *stubUsers) UpdateTx(ctx context.Context, tx bun.IDB, record *account.User, criteria ...repository.UpdateCriteria) (*account.User, error) {
	return s.updateTx(ctx, tx, record, criteria...)
}

func (s *stubUsers) UpdateStatus(ctx context.Context, id uuid.UUID, status account.UserStatus) (*account.User, error) {
	if s.updateStatusErrs != nil {
		return nil, s.updateStatusErrs
	}
	return s.updateStatus(ctx, id.String(), status)
}

func (s *stubUsers) GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (*account.User, error) {
	return s.getByIdentifier(ctx, identifier)
}

// stubRepositoryManager runs transaction bodies against a zero bun.Tx so
// command handlers can be exercised without a database.
type stubRepositoryManager struct {
	users account.Users
}

func (s *stubRepositoryManager) Validate() error {
	return nil
}

func (s *stubRepositoryManager) MustValidate() {}

func (s *stubRepositoryManager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	return f(ctx, bun.Tx{})
}

func (s *stubRepositoryManager) Users() account.Users {
	return s.users
}

// capturingSink collects every activity event it sees.
type capturingSink struct {
	events []account.ActivityEvent
}

func (c *capturingSink) Record(ctx context.Context, evt account.ActivityEvent) error {
	c.events = append(c.events, evt)
	return nil
}

// MockSession mocks the router.Context
type MockContext struct {
	mock.Mock
	NextCalled bool
}

var _ router.Context = (*MockContext)(nil)

func (m *MockContext) Next() error {
	m.NextCalled = true
	return nil
}

func (m *MockContext) Context() context.Context {
	args := m.Called()
	c, ok := args.Get(0).(context.Context)
	if !ok {
		panic("arg needs to be context.Context")
	}
	return c
}

func (m *MockContext) SetContext(ctx context.Context) {
	m.Called(ctx)
}

func (m *MockContext) Path() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) Method() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) Body() []byte {
	args := m.Called()
	return args.Get(0).([]byte)
}

func (m *MockContext) Status(code int) router.Context {
	m.Called(code)
	return m
}

func (m *MockContext) SendString(s string) error {
	args := m.Called(s)
	return args.Error(0)
}

func (m *MockContext) Send(b []byte) error {
	args := m.Called(b)
	return args.Error(0)
}

func (m *MockContext) JSON(code int, val any) error {
	args := m.Called(code, val)
	return args.Error(0)
}

func (m *MockContext) NoContent(code int) error {
	args := m.Called(code)
	return args.Error(0)
}

func (m *MockContext) Render(name string, bind any, layout ...string) error {
	if len(layout) > 0 {
		args := m.Called(name, bind, layout[0])
		return args.Error(0)
	}
	args := m.Called(name, bind)
	return args.Error(0)
}

func (m *MockContext) Redirect(path string, status ...int) error {
	if len(status) > 0 {
		args := m.Called(path, status)
		return args.Error(0)
	}
	args := m.Called(path)
	return args.Error(0)
}

func (m *MockContext) RedirectToRoute(name string, data router.ViewContext, status ...int) error {
	if len(status) > 0 {
		args := m.Called(name, data, status[0])
		return args.Error(0)
	}
	args := m.Called(name, data)
	return args.Error(0)
}

func (m *MockContext) RedirectBack(fallback string, status ...int) error {
	if len(status) > 0 {
		args := m.Called(fallback, status)
		return args.Error(0)
	}
	args := m.Called(fallback)
	return args.Error(0)
}

func (m *MockContext) SetHeader(key, val string) router.Context {
	m.Called(key, val)
	return m
}

func (m *MockContext) Header(key string) string {
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) Get(key string, defaultValue any) any {
	args := m.Called(key, defaultValue)
	return args.Get(0)
}

func (m *MockContext) GetBool(key string, defaultValue bool) bool {
	args := m.Called(key, defaultValue)
	return args.Bool(0)
}

func (m *MockContext) GetInt(key string, def int) int {
	args := m.Called(key, def)
	return args.Int(0)
}

func (m *MockContext) Set(key string, val any) {
	m.Called(key, val)
}

func (m *MockContext) Bind(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) BindJSON(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) BindXML(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) BindQuery(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) CookieParser(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) Cookie(cookie *router.Cookie) {
	m.Called(cookie)
}

func (m *MockContext) Cookies(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		args := m.Called(key, defaultValue[0])
		return args.String(0)
	}
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) Param(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		args := m.Called(key, defaultValue[0])
		return args.String(0)
	}
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) ParamsInt(key string, defaultValue int) int {
	args := m.Called(key, defaultValue)
	return args.Int(0)
}

func (m *MockContext) Query(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		args := m.Called(key, defaultValue[0])
		return args.String(0)
	}
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) QueryValues(name string) []string {
	args := m.Called(name)
	if vals, ok := args.Get(0).([]string); ok {
		return vals
	}
	return nil
}

func (m *MockContext) QueryInt(key string, defaultValue int) int {
	args := m.Called(key, defaultValue)
	return args.Int(0)
}

func (m *MockContext) Queries() map[string]string {
	args := m.Called()
	return args.Get(0).(map[string]string)
}

func (m *MockContext) GetString(key string, defaultValue string) string {
	args := m.Called(key, defaultValue)
	return args.String(0)
}

func (m *MockContext) Locals(key any, value ...any) any {
	if len(value) > 0 {
		m.Called(key, value[0])
		return nil
	}
	args := m.Called(key)
	return args.Get(0)
}

func (m *MockContext) OriginalURL() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) OnNext(callback func() error) {
	m.Called(callback)
}

func (m *MockContext) Referer() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) LocalsMerge(key any, value map[string]any) map[string]any {
	args := m.Called(key, value)
	if merged, ok := args.Get(0).(map[string]any); ok {
		return merged
	}
	return nil
}

func (m *MockContext) FormFile(key string) (*multipart.FileHeader, error) {
	args := m.Called(key)
	if fh, ok := args.Get(0).(*multipart.FileHeader); ok {
		return fh, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockContext) FormValue(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		args := m.Called(key, defaultValue[0])
		return args.String(0)
	}
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) IP() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) SendStatus(code int) error {
	args := m.Called(code)
	return args.Error(0)
}

func (m *MockContext) SendStream(r io.Reader) error {
	args := m.Called(r)
	return args.Error(0)
}

func (m *MockContext) RouteName() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) RouteParams() map[string]string {
	args := m.Called()
	if params, ok := args.Get(0).(map[string]string); ok {
		return params
	}
	return nil
}
