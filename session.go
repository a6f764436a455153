package account

import (
	"fmt"
	"time"

	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

// DefaultCookieName is the session cookie used when Config does not override it.
const DefaultCookieName = "token"

// SessionObject is the decoded session handed to application code.
type SessionObject struct {
	UserID             string     `json:"user_id,omitempty"`
	Audience           []string   `json:"audience,omitempty"`
	Issuer             string     `json:"issuer,omitempty"`
	IssuedAt           *time.Time `json:"issued_at,omitempty"`
	ExpirationDate     *time.Time `json:"expiration_date,omitempty"`
	EmailVerified      bool       `json:"email_verified,omitempty"`
	FullyAuthenticated bool       `json:"fully_authenticated,omitempty"`
}

func (s *SessionObject) GetUserID() string {
	return s.UserID
}

func (s *SessionObject) GetUserUUID() (uuid.UUID, error) {
	return uuid.Parse(s.UserID)
}

func (s *SessionObject) GetAudience() []string {
	return s.Audience
}

func (s *SessionObject) GetIssuer() string {
	return s.Issuer
}

func (s *SessionObject) GetIssuedAt() *time.Time {
	return s.IssuedAt
}

// Stage derives the onboarding stage the session grants.
func (s *SessionObject) Stage() Stage {
	switch {
	case s == nil:
		return StageUnverified
	case s.FullyAuthenticated:
		return StageFullyAuthenticated
	case s.EmailVerified:
		return StageVerified
	default:
		return StageUnverified
	}
}

func (s SessionObject) String() string {
	issuedAt := "<nil>"
	if s.IssuedAt != nil {
		issuedAt = s.IssuedAt.Format(time.RFC1123)
	}
	return fmt.Sprintf(
		"user=%s aud=%v iss=%s iat=%s verified=%t full=%t",
		s.UserID,
		s.Audience,
		s.Issuer,
		issuedAt,
		s.EmailVerified,
		s.FullyAuthenticated,
	)
}

// sessionFromClaims converts validated JWT claims into a SessionObject.
func sessionFromClaims(claims *SessionClaims) (*SessionObject, error) {
	if claims == nil {
		return nil, ErrUnableToDecodeSession
	}

	var audience []string
	for _, aud := range claims.RegisteredClaims.Audience {
		audience = append(audience, aud)
	}

	issuedAt := claims.IssuedAtTime()
	expiresAt := claims.Expires()

	return &SessionObject{
		UserID:             claims.UserID(),
		Audience:           audience,
		Issuer:             claims.RegisteredClaims.Issuer,
		IssuedAt:           &issuedAt,
		ExpirationDate:     &expiresAt,
		EmailVerified:      claims.IsEmailVerified(),
		FullyAuthenticated: claims.FullyAuthenticated,
	}, nil
}

// SessionFromCookie reads the session cookie from the request and validates
// it. Returns ErrUnableToFindSession when no cookie is present.
func SessionFromCookie(c router.Context, cookieName string, validator TokenValidator) (*SessionClaims, error) {
	if cookieName == "" {
		cookieName = DefaultCookieName
	}

	raw := c.Cookies(cookieName)
	if raw == "" {
		return nil, ErrUnableToFindSession
	}

	return validator.Validate(raw)
}

// StageFromCookie probes the session cookie and reports the onboarding stage.
// Missing, expired, or malformed cookies degrade to StageUnverified rather
// than erroring so anonymous requests get a usable answer.
func StageFromCookie(c router.Context, cookieName string, validator TokenValidator) Stage {
	claims, err := SessionFromCookie(c, cookieName, validator)
	if err != nil {
		return StageUnverified
	}
	return claims.Stage()
}
