package account

import (
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

// SessionCookies writes, clears, and reads the session cookie. Cookies are
// HttpOnly, scoped to the whole site, and SameSite strict. The Secure flag is
// only set in production so local development over plain HTTP still works.
type SessionCookies struct {
	cfg      Config
	duration time.Duration
	Logger   Logger
}

func NewSessionCookies(cfg Config) *SessionCookies {
	duration := 24 * time.Hour
	if cfg.GetTokenExpiration() > 0 {
		duration = time.Duration(cfg.GetTokenExpiration()) * time.Hour
	}

	return &SessionCookies{
		cfg:      cfg,
		duration: duration,
		Logger:   defLogger{},
	}
}

// Name returns the configured cookie name.
func (s *SessionCookies) Name() string {
	if name := s.cfg.GetCookieName(); name != "" {
		return name
	}
	return DefaultCookieName
}

// GetCookieDuration returns how long written cookies live.
func (s *SessionCookies) GetCookieDuration() time.Duration {
	return s.duration
}

// Write sets the session cookie with the given token.
func (s *SessionCookies) Write(c router.Context, token string) {
	c.Cookie(&router.Cookie{
		Name:     s.Name(),
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(s.duration),
		HTTPOnly: true,
		Secure:   s.cfg.IsProduction(),
		SameSite: "Strict",
	})
}

// Clear expires the session cookie immediately.
func (s *SessionCookies) Clear(c router.Context) {
	c.Cookie(&router.Cookie{
		Name:     s.Name(),
		Value:    "",
		Path:     "/",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   s.cfg.IsProduction(),
		SameSite: "Strict",
	})
}

// Read validates the session cookie on the request.
func (s *SessionCookies) Read(c router.Context, validator TokenValidator) (*SessionClaims, error) {
	return SessionFromCookie(c, s.Name(), validator)
}

// Probe reads the session cookie without failing: missing or invalid cookies
// report StageUnverified.
func (s *SessionCookies) Probe(c router.Context, validator TokenValidator) Stage {
	return StageFromCookie(c, s.Name(), validator)
}

// RequireFullyAuthenticated guards routes behind a fully authenticated
// session. Validated claims are stored in the request locals under the cookie
// name and in the request context.
func (s *SessionCookies) RequireFullyAuthenticated(validator TokenValidator, errorHandler func(router.Context, error) error) router.MiddlewareFunc {
	if errorHandler == nil {
		errorHandler = s.defaultAuthErrHandler
	}

	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			claims, err := s.Read(c, validator)
			if err != nil {
				return errorHandler(c, err)
			}

			if !claims.FullyAuthenticated {
				return errorHandler(c, ErrUnauthenticated)
			}

			c.Locals(s.Name(), claims)
			c.SetContext(WithClaimsContext(c.Context(), claims))

			return hf(c)
		}
	}
}

func (s *SessionCookies) defaultAuthErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryAuth, "An unexpected authentication error").
			WithCode(errors.CodeUnauthorized)
	}

	s.Logger.Info(
		"Authentication error",
		"error", richErr.Message,
		"text_code", richErr.TextCode,
		"path", c.OriginalURL(),
	)

	return c.JSON(router.StatusUnauthorized, map[string]any{
		"error": richErr.Message,
	})
}
