package account

import (
	"strings"

	"github.com/goliatone/go-errors"
)

const (
	textCodeDuplicateEmail      = "DUPLICATE_EMAIL"
	textCodeUsernameTaken       = "USERNAME_TAKEN"
	textCodeInvalidCredentials  = "INVALID_CREDENTIALS"
	textCodeInvalidVerification = "INVALID_VERIFICATION_TOKEN"
	textCodeUnauthenticated     = "UNAUTHENTICATED"
	textCodeEmailNotVerified    = "EMAIL_NOT_VERIFIED"
	textCodeTokenExpired        = "AUTH_TOKEN_EXPIRED"
	textCodeTokenMalformed      = "AUTH_TOKEN_MALFORMED"
	textCodeTooManyAttempts     = "TOO_MANY_LOGIN_ATTEMPTS"
	textCodeSignupDisabled      = "SIGNUP_DISABLED"
)

// ErrDuplicateEmail is returned when registration hits the unique email constraint.
var ErrDuplicateEmail = errors.New("Email already registered", errors.CategoryConflict).
	WithTextCode(textCodeDuplicateEmail).
	WithCode(errors.CodeConflict)

// ErrUsernameTaken is returned when finalization hits the unique username constraint.
var ErrUsernameTaken = errors.New("Username already taken", errors.CategoryConflict).
	WithTextCode(textCodeUsernameTaken).
	WithCode(errors.CodeConflict)

// ErrInvalidCredentials is the uniform login failure. The same error covers an
// unknown username and a bad password so responses do not leak which one it was.
var ErrInvalidCredentials = errors.New("Invalid username or password", errors.CategoryAuth).
	WithTextCode(textCodeInvalidCredentials).
	WithCode(errors.CodeUnauthorized)

// ErrInvalidOrExpiredToken covers verification tokens that do not match any
// user or whose expiry timestamp has passed.
var ErrInvalidOrExpiredToken = errors.New("Invalid or expired token", errors.CategoryValidation).
	WithTextCode(textCodeInvalidVerification).
	WithCode(errors.CodeBadRequest)

// ErrUnauthenticated is returned when an operation requires a session cookie
// and none was provided or it could not be validated.
var ErrUnauthenticated = errors.New("No token provided", errors.CategoryAuth).
	WithTextCode(textCodeUnauthenticated).
	WithCode(errors.CodeUnauthorized)

// ErrEmailNotVerified is returned when finalization is attempted from a
// session whose email verification claim is absent or false.
var ErrEmailNotVerified = errors.New("Email not verified", errors.CategoryAuthz).
	WithTextCode(textCodeEmailNotVerified).
	WithCode(errors.CodeForbidden)

// ErrTokenExpired indicates the session JWT is past its expiration.
var ErrTokenExpired = errors.New("Session token expired", errors.CategoryAuth).
	WithTextCode(textCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed indicates the session JWT could not be parsed or its
// signature did not check out.
var ErrTokenMalformed = errors.New("Invalid session token", errors.CategoryAuth).
	WithTextCode(textCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrTooManyLoginAttempts is returned when the login cooldown window is active.
var ErrTooManyLoginAttempts = errors.New("Too many login attempts", errors.CategoryAuth).
	WithTextCode(textCodeTooManyAttempts).
	WithCode(errors.CodeUnauthorized)

// ErrSignupDisabled is returned when the signup feature gate is off.
var ErrSignupDisabled = errors.New("Signups are currently disabled", errors.CategoryAuthz).
	WithTextCode(textCodeSignupDisabled).
	WithCode(errors.CodeForbidden)

// ErrIdentityNotFound is returned for identities we cannot resolve.
var ErrIdentityNotFound = errors.New("identity not found", errors.CategoryNotFound).
	WithCode(errors.CodeNotFound)

// ErrUnableToFindSession is returned when a request carries no session cookie.
var ErrUnableToFindSession = errors.New("unable to find session", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized)

// ErrUnableToDecodeSession is returned when the session JWT carries claims we
// cannot decode.
var ErrUnableToDecodeSession = errors.New("unable to decode session", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
