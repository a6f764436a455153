package account

import (
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-featuregate/gate"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// AccountControllerRoutes holds the paths the controller mounts.
type AccountControllerRoutes struct {
	Register string
	Verify   string
	Finalize string
	Login    string
	Logout   string
	Status   string
	Details  string
}

// AccountController exposes the account lifecycle over JSON endpoints.
type AccountController struct {
	Debug        bool
	Logger       Logger
	Repo         RepositoryManager
	Routes       *AccountControllerRoutes
	Auther       Authenticator
	Tokens       TokenService
	Cookies      *SessionCookies
	Mailer       Mailer
	FeatureGate  gate.FeatureGate
	Sink         ActivitySink
	WebBaseURL   string
	ErrorHandler router.ErrorHandler
}

type AccountControllerOption func(*AccountController) *AccountController

func WithControllerLogger(logger Logger) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithControllerRepo(repo RepositoryManager) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Repo = repo
		return c
	}
}

func WithControllerAuther(auther Authenticator) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Auther = auther
		return c
	}
}

func WithControllerTokens(tokens TokenService) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Tokens = tokens
		return c
	}
}

func WithControllerCookies(cookies *SessionCookies) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Cookies = cookies
		return c
	}
}

func WithControllerMailer(mailer Mailer) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Mailer = mailer
		return c
	}
}

func WithControllerFeatureGate(featureGate gate.FeatureGate) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.FeatureGate = featureGate
		return c
	}
}

func WithControllerActivitySink(sink ActivitySink) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Sink = sink
		return c
	}
}

func WithControllerWebBaseURL(url string) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.WebBaseURL = url
		return c
	}
}

func WithControllerDebug(debug bool) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Debug = debug
		return c
	}
}

func NewAccountController(opts ...AccountControllerOption) *AccountController {
	c := &AccountController{
		Logger: defLogger{},
		Routes: &AccountControllerRoutes{
			Register: "/auth/register",
			Verify:   "/auth/verify",
			Finalize: "/auth/finalize",
			Login:    "/auth/login",
			Logout:   "/auth/logout",
			Status:   "/auth/status",
			Details:  "/auth/me",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in account controller...")
	}

	if c.Auther == nil {
		panic("Missing Authenticator in account controller...")
	}

	if c.Tokens == nil {
		panic("Missing TokenService in account controller...")
	}

	if c.Cookies == nil {
		panic("Missing SessionCookies in account controller...")
	}

	c.Mailer = normalizeMailer(c.Mailer)
	c.Sink = normalizeActivitySink(c.Sink)

	if c.ErrorHandler == nil {
		c.ErrorHandler = c.handleError
	}

	return c
}

// RegisterAccountRoutes mounts the account lifecycle endpoints.
func RegisterAccountRoutes[T any](app router.Router[T], opts ...AccountControllerOption) *AccountController {
	controller := NewAccountController(opts...)

	app.Post(controller.Routes.Register, controller.Register).SetName("account.register")
	app.Post(controller.Routes.Verify, controller.VerifyEmail).SetName("account.verify")
	app.Post(controller.Routes.Finalize, controller.Finalize).SetName("account.finalize")
	app.Post(controller.Routes.Login, controller.Login).SetName("account.login")
	app.Post(controller.Routes.Logout, controller.Logout).SetName("account.logout")
	app.Get(controller.Routes.Status, controller.Status).SetName("account.status")
	app.Get(controller.Routes.Details, controller.Details).SetName("account.details")

	return controller
}

// RegisterPayload is the registration request body
type RegisterPayload struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r RegisterPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
	)
}

func (a *AccountController) Register(ctx router.Context) error {
	payload := new(RegisterPayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("register parse payload", "error", err)
		return a.ErrorHandler(ctx, errors.Wrap(err, errors.CategoryBadInput, "Error parsing body").
			WithCode(errors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("register validate payload", "error", err)
		return ctx.JSON(router.StatusBadRequest, map[string]any{
			"error":      "Validation failed",
			"validation": FormatValidationErrorToMap(err),
		})
	}

	if a.Debug {
		a.Logger.Debug("register payload: %s", print.MaybePrettyJSON(payload))
	}

	var res *RegisterAccountResponse

	req := RegisterAccountMessage{
		Email:    payload.Email,
		Password: payload.Password,
		OnResponse: func(r *RegisterAccountResponse) {
			res = r
		},
	}

	register := NewRegisterAccountHandler(a.Repo, a.Mailer, a.WebBaseURL).
		WithLogger(a.Logger).
		WithFeatureGate(a.FeatureGate)

	if err := register.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("register execute error", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusCreated, res)
}

// VerifyEmailPayload is the verification request body
type VerifyEmailPayload struct {
	Token string `form:"token" json:"token"`
}

// Validate will run validation rules
func (r VerifyEmailPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Token, validation.Required),
	)
}

func (a *AccountController) VerifyEmail(ctx router.Context) error {
	payload := new(VerifyEmailPayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("verify email parse payload", "error", err)
		return a.ErrorHandler(ctx, errors.Wrap(err, errors.CategoryBadInput, "Error parsing body").
			WithCode(errors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]any{
			"error":      "Validation failed",
			"validation": FormatValidationErrorToMap(err),
		})
	}

	var res *VerifyEmailResponse

	req := VerifyEmailMessage{
		Token: payload.Token,
		OnResponse: func(r *VerifyEmailResponse) {
			res = r
		},
	}

	verify := NewVerifyEmailHandler(a.Repo, a.Tokens).WithLogger(a.Logger)

	if err := verify.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("verify email execute error", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	a.Cookies.Write(ctx, res.SessionToken)

	return ctx.JSON(router.StatusOK, map[string]any{
		"message": "Email successfully verified",
	})
}

// usernamePattern accepts letters, digits, dots, underscores, and hyphens.
var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

// FinalizePayload is the finalization request body
type FinalizePayload struct {
	Username string `form:"username" json:"username"`
	Avatar   string `form:"avatar" json:"avatar"`
}

// Validate will run validation rules
func (r FinalizePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required, validation.Length(3, 30),
			validation.Match(usernamePattern).Error("must contain only letters, digits, dots, underscores, or hyphens")),
	)
}

func (a *AccountController) Finalize(ctx router.Context) error {
	payload := new(FinalizePayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("finalize parse payload", "error", err)
		return a.ErrorHandler(ctx, errors.Wrap(err, errors.CategoryBadInput, "Error parsing body").
			WithCode(errors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]any{
			"error":      "Validation failed",
			"validation": FormatValidationErrorToMap(err),
		})
	}

	claims, err := a.Cookies.Read(ctx, a.Tokens)
	if err != nil {
		if errors.Is(err, ErrUnableToFindSession) {
			return a.ErrorHandler(ctx, ErrUnauthenticated)
		}
		return a.ErrorHandler(ctx, err)
	}

	var res *FinalizeAccountResponse

	req := FinalizeAccountMessage{
		Claims:   claims,
		Username: payload.Username,
		Avatar:   payload.Avatar,
		OnResponse: func(r *FinalizeAccountResponse) {
			res = r
		},
	}

	finalize := NewFinalizeAccountHandler(a.Repo, a.Tokens).WithLogger(a.Logger)

	if err := finalize.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("finalize execute error", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	a.Cookies.Write(ctx, res.SessionToken)

	return ctx.JSON(router.StatusOK, map[string]any{
		"message": "Account successfully finalized",
	})
}

// LoginPayload is the login request body
type LoginPayload struct {
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r LoginPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

func (a *AccountController) Login(ctx router.Context) error {
	payload := new(LoginPayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("login parse payload", "error", err)
		return a.ErrorHandler(ctx, errors.Wrap(err, errors.CategoryBadInput, "Error parsing body").
			WithCode(errors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]any{
			"error":      "Validation failed",
			"validation": FormatValidationErrorToMap(err),
		})
	}

	token, err := a.Auther.Login(ctx.Context(), payload.Username, payload.Password)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	a.Cookies.Write(ctx, token)

	return ctx.JSON(router.StatusOK, map[string]any{
		"message": "Login successful",
	})
}

func (a *AccountController) Logout(ctx router.Context) error {
	if claims, err := a.Cookies.Read(ctx, a.Tokens); err == nil {
		event := ActivityEvent{
			EventType:  ActivityEventLogout,
			Actor:      ActorRef{ID: claims.UserID(), Type: "user"},
			UserID:     claims.UserID(),
			OccurredAt: time.Now(),
		}
		if err := a.Sink.Record(ctx.Context(), event); err != nil {
			a.Logger.Warn("activity sink record error: %v", err)
		}
	}

	a.Cookies.Clear(ctx)
	return ctx.JSON(router.StatusOK, map[string]any{
		"message": "Logged out",
	})
}

// Status reports the onboarding stage of the caller. Requests without a
// usable session cookie report UNVERIFIED rather than an error.
func (a *AccountController) Status(ctx router.Context) error {
	stage := a.Cookies.Probe(ctx, a.Tokens)
	return ctx.JSON(router.StatusOK, map[string]any{
		"status": stage,
	})
}

// Details returns the public profile of a fully authenticated caller, or a
// null payload for anyone else. Like Status it never errors on bad sessions.
func (a *AccountController) Details(ctx router.Context) error {
	claims, err := a.Cookies.Read(ctx, a.Tokens)
	if err != nil || !claims.FullyAuthenticated {
		return ctx.JSON(router.StatusOK, map[string]any{
			"userDetails": nil,
		})
	}

	user, err := a.Repo.Users().GetByIdentifier(ctx.Context(), claims.UserID())
	if err != nil {
		a.Logger.Error("details lookup error", "error", err)
		return ctx.JSON(router.StatusOK, map[string]any{
			"userDetails": nil,
		})
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"userDetails": user.PublicDetails(),
	})
}

func (a *AccountController) handleError(ctx router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	code := richErr.Code
	if code == 0 {
		code = fiber.StatusInternalServerError
	}

	body := map[string]any{
		"error": richErr.Message,
	}
	if richErr.TextCode != "" {
		body["code"] = richErr.TextCode
	}

	return ctx.JSON(code, body)
}

// FormatValidationErrorToMap flattens ozzo validation errors into a
// field => message map for JSON responses.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}

	if verr, ok := err.(validation.Errors); ok {
		for field, ferr := range verr {
			if ferr != nil {
				out[field] = ferr.Error()
			}
		}
		return out
	}

	if err != nil {
		out["error"] = err.Error()
	}

	return out
}
