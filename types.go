package account

import (
	"context"
	"fmt"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Authenticator holds methods to deal with password authentication
type Authenticator interface {
	Login(ctx context.Context, username, password string) (string, error)
	SessionFromToken(token string) (*SessionClaims, error)
	IdentityFromSession(ctx context.Context, claims *SessionClaims) (Identity, error)
}

// Identity holds the attributes of an account identity
type Identity interface {
	ID() string
	Username() string
	Email() string
	Status() UserStatus
}

// Config holds account service options
type Config interface {
	GetSigningKey() string
	GetTokenExpiration() int
	GetCookieName() string
	GetIssuer() string
	GetAudience() []string
	GetWebBaseURL() string
	IsProduction() bool
}

// IdentityProvider ensure we have a store to retrieve account identities
type IdentityProvider interface {
	VerifyIdentity(ctx context.Context, username, password string) (Identity, error)
	FindIdentityByIdentifier(ctx context.Context, identifier string) (Identity, error)
}

// Mailer delivers account notification emails.
type Mailer interface {
	SendVerificationEmail(ctx context.Context, email, link string) error
}

// PasswordAuthenticator authenticates passwords
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] ACCOUNT "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] ACCOUNT "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] ACCOUNT "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] ACCOUNT "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
