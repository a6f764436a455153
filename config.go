package account

import (
	"github.com/caarlos0/env/v11"
	"github.com/goliatone/go-errors"
)

// EnvConfig loads account service options from the environment.
type EnvConfig struct {
	SigningKey      string   `env:"AUTH_SIGNING_KEY,required"`
	TokenExpiration int      `env:"AUTH_TOKEN_EXPIRATION" envDefault:"24"`
	CookieName      string   `env:"AUTH_COOKIE_NAME" envDefault:"token"`
	Issuer          string   `env:"AUTH_ISSUER"`
	Audience        []string `env:"AUTH_AUDIENCE"`
	Environment     string   `env:"APP_ENV" envDefault:"development"`
	WebBaseURL      string   `env:"WEB_BASE_URL" envDefault:"http://localhost:3000"`
	JWKSEndpoints   []string `env:"AUTH_JWKS_ENDPOINTS"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"465"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	SMTPFrom     string `env:"SMTP_FROM" envDefault:"noreply@localhost"`
}

// LoadConfig parses the environment into an EnvConfig.
func LoadConfig() (*EnvConfig, error) {
	cfg := &EnvConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.Wrap(err, errors.CategoryBadInput, "failed to parse environment configuration")
	}
	return cfg, nil
}

func (c *EnvConfig) GetSigningKey() string {
	return c.SigningKey
}

func (c *EnvConfig) GetTokenExpiration() int {
	return c.TokenExpiration
}

func (c *EnvConfig) GetCookieName() string {
	if c.CookieName == "" {
		return DefaultCookieName
	}
	return c.CookieName
}

func (c *EnvConfig) GetIssuer() string {
	return c.Issuer
}

func (c *EnvConfig) GetAudience() []string {
	return c.Audience
}

func (c *EnvConfig) GetWebBaseURL() string {
	return c.WebBaseURL
}

func (c *EnvConfig) IsProduction() bool {
	return c.Environment == "production"
}

// NewTokenValidator composes the local validator with JWKS-backed validation
// when AUTH_JWKS_ENDPOINTS is set. Without endpoints the local validator is
// returned as is.
func (c *EnvConfig) NewTokenValidator(local TokenValidator, logger Logger) (TokenValidator, error) {
	if len(c.JWKSEndpoints) == 0 {
		return local, nil
	}

	remote, err := NewJWKSValidator(c.JWKSEndpoints, logger)
	if err != nil {
		return nil, err
	}

	return NewMultiTokenValidator(local, remote), nil
}

// NewMailer builds an SMTPMailer from the SMTP settings, or a no-op mailer
// when no host is configured (local development).
func (c *EnvConfig) NewMailer(logger Logger) Mailer {
	if c.SMTPHost == "" {
		return noopMailer{}
	}
	return NewSMTPMailer(c.SMTPHost, c.SMTPPort, c.SMTPUser, c.SMTPPassword, c.SMTPFrom, logger)
}

var _ Config = (*EnvConfig)(nil)
