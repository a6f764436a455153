package account

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserStatus tracks where an account is in its signup lifecycle.
type UserStatus string

const (
	// UserStatusPending means the account was registered but the email has
	// not been verified yet.
	UserStatusPending UserStatus = "pending"
	// UserStatusVerified means the email was verified but the account still
	// needs a username before it is usable.
	UserStatusVerified UserStatus = "verified"
	// UserStatusActive means the account completed onboarding.
	UserStatusActive UserStatus = "active"
)

// DefaultAvatar is assigned to every new account until the user picks one.
const DefaultAvatar = "/images/default-avatar.png"

// User is the account model
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`

	ID                         uuid.UUID      `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email                      string         `bun:"email,notnull,unique" json:"email,omitempty"`
	Username                   sql.NullString `bun:"username,unique,nullzero" json:"username,omitempty"`
	PasswordHash               string         `bun:"password_hash,notnull" json:"-"`
	Status                     UserStatus     `bun:"status,notnull" json:"status,omitempty"`
	Avatar                     string         `bun:"avatar" json:"avatar,omitempty"`
	VerificationToken          sql.NullString `bun:"verification_token,nullzero" json:"-"`
	VerificationTokenExpiresAt *time.Time     `bun:"verification_token_expires_at,nullzero" json:"-"`
	LoginAttempts              int            `bun:"login_attempts" json:"login_attempts,omitempty"`
	LoginAttemptAt             *time.Time     `bun:"login_attempt_at" json:"login_attempt_at,omitempty"`
	LoggedInAt                 *time.Time     `bun:"loggedin_at" json:"loggedin_at,omitempty"`
	Metadata                   map[string]any `bun:"metadata" json:"metadata,omitempty"`
	CreatedAt                  *time.Time     `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt                  *time.Time     `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt                  *time.Time     `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// EnsureStatus normalizes a missing status to pending.
func (u *User) EnsureStatus() {
	if u == nil {
		return
	}
	if u.Status == "" {
		u.Status = UserStatusPending
	}
}

// HasUsername reports whether the account has claimed a username.
func (u *User) HasUsername() bool {
	return u != nil && u.Username.Valid && u.Username.String != ""
}

// UsernameString returns the claimed username or an empty string.
func (u *User) UsernameString() string {
	if u == nil || !u.Username.Valid {
		return ""
	}
	return u.Username.String
}

// HasPendingVerification reports whether the account still holds a live
// verification token.
func (u *User) HasPendingVerification(now time.Time) bool {
	if u == nil || !u.VerificationToken.Valid {
		return false
	}
	if u.VerificationTokenExpiresAt == nil {
		return false
	}
	return u.VerificationTokenExpiresAt.After(now)
}

// AddMetadata will append information to a metadata attribute
func (u *User) AddMetadata(key string, val any) *User {
	if u.Metadata == nil {
		u.Metadata = make(map[string]any)
	}
	u.Metadata[key] = val
	return u
}

// Details is the public projection returned to authenticated clients.
type Details struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Avatar   string `json:"avatar"`
}

// PublicDetails builds the projection exposed by the details endpoint.
func (u *User) PublicDetails() Details {
	return Details{
		Username: u.UsernameString(),
		Email:    u.Email,
		Avatar:   u.Avatar,
	}
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// ParseStatus validates a raw status string.
func ParseStatus(raw string) (UserStatus, bool) {
	switch UserStatus(raw) {
	case UserStatusPending, UserStatusVerified, UserStatusActive:
		return UserStatus(raw), true
	default:
		return "", false
	}
}
