package account

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var MarkEmailVerifiedSQL = `UPDATE "users" AS "usr"
SET
	"status" = 'verified',
	"verification_token" = NULL,
	"verification_token_expires_at" = NULL
WHERE
	"usr"."deleted_at" IS NULL
AND (
	"usr"."id" = ?
) RETURNING *;`

var ClaimUsernameSQL = `UPDATE "users" AS "usr"
SET
	"username" = ?,
	"status" = 'active'
WHERE
	"usr"."deleted_at" IS NULL
AND (
	"usr"."id" = ?
) RETURNING *;`

type Users interface {
	repository.Repository[*User]

	TrackAttemptedLogin(ctx context.Context, user *User) error
	TrackAttemptedLoginTx(ctx context.Context, tx bun.IDB, user *User) error
	TrackSuccessfulLogin(ctx context.Context, user *User) error
	TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, user *User) error

	Register(ctx context.Context, user *User) (*User, error)
	RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)
	Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error)

	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByUsernameTx(ctx context.Context, tx bun.IDB, username string) (*User, error)
	GetByVerificationToken(ctx context.Context, token string, now time.Time) (*User, error)
	GetByVerificationTokenTx(ctx context.Context, tx bun.IDB, token string, now time.Time) (*User, error)

	MarkEmailVerified(ctx context.Context, id uuid.UUID) (*User, error)
	MarkEmailVerifiedTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*User, error)
	ClaimUsername(ctx context.Context, id uuid.UUID, username string) (*User, error)
	ClaimUsernameTx(ctx context.Context, tx bun.IDB, id uuid.UUID, username string) (*User, error)

	UpdateStatus(ctx context.Context, id uuid.UUID, status UserStatus) (*User, error)
	UpdateStatusTx(ctx context.Context, tx bun.IDB, id uuid.UUID, status UserStatus) (*User, error)
	Verify(ctx context.Context, actor ActorRef, user *User, opts ...TransitionOption) (*User, error)
	Activate(ctx context.Context, actor ActorRef, user *User, opts ...TransitionOption) (*User, error)
}

type users struct {
	repository.Repository[*User]
	db                  *bun.DB
	stateMachine        UserStateMachine
	stateMachineOptions []StateMachineOption
}

var (
	_ Users                        = (*users)(nil)
	_ repository.Repository[*User] = (*users)(nil)
)

type UsersOption func(*users)

func NewUsersRepository(db *bun.DB, opts ...UsersOption) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
	})

	repoUsers := &users{
		Repository: repo,
		db:         db,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(repoUsers)
		}
	}

	return repoUsers
}

func WithUsersStateMachineOptions(options ...StateMachineOption) UsersOption {
	return func(u *users) {
		if len(options) == 0 {
			return
		}
		u.stateMachineOptions = append(u.stateMachineOptions, options...)
		u.stateMachine = nil
	}
}

func WithUsersStateMachine(sm UserStateMachine) UsersOption {
	return func(u *users) {
		u.stateMachine = sm
	}
}

func (a *users) Register(ctx context.Context, user *User) (*User, error) {
	return a.RegisterTx(ctx, a.db, user)
}

func (a *users) RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	return a.CreateTx(ctx, tx, user)
}

func (a *users) GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (*User, error) {
	return a.GetByIdentifierTx(ctx, a.db, identifier, criteria...)
}

func (a *users) GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string, criteria ...repository.SelectCriteria) (*User, error) {
	options := resolveUserIdentifier(identifier)
	if len(options) == 0 {
		options = []identifierOption{
			{
				column: "id",
				value:  strings.TrimSpace(identifier),
			},
		}
	}

	for _, opt := range options {
		record := &User{}
		q := tx.NewSelect().Model(record)

		for _, c := range criteria {
			q.Apply(c)
		}

		err := q.
			Where(fmt.Sprintf("?TableAlias.%s = ?", opt.column), opt.value).
			Limit(1).
			Scan(ctx)

		if err != nil {
			if repository.IsRecordNotFound(err) {
				continue
			}
			return nil, err
		}

		return record, nil
	}

	return nil, repository.NewRecordNotFound().
		WithMetadata(map[string]any{
			"identifier": identifier,
		})
}

func (a *users) Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

func (a *users) CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	prepareUserDefaults(record)
	created, err := a.Repository.CreateTx(ctx, tx, record, criteria...)
	if err != nil {
		if isUniqueViolation(err, "email") {
			return nil, ErrDuplicateEmail.WithMetadata(map[string]any{
				"email": record.Email,
			})
		}
		return nil, err
	}
	return created, nil
}

func (a *users) GetByUsername(ctx context.Context, username string) (*User, error) {
	return a.GetByUsernameTx(ctx, a.db, username)
}

func (a *users) GetByUsernameTx(ctx context.Context, tx bun.IDB, username string) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.username = ?", username).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"username": username,
				})
		}
		return nil, err
	}

	return record, nil
}

// GetByVerificationToken resolves the user holding the given verification
// token, skipping tokens whose expiry is at or before now.
func (a *users) GetByVerificationToken(ctx context.Context, token string, now time.Time) (*User, error) {
	return a.GetByVerificationTokenTx(ctx, a.db, token, now)
}

func (a *users) GetByVerificationTokenTx(ctx context.Context, tx bun.IDB, token string, now time.Time) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.verification_token = ?", token).
		Where("?TableAlias.verification_token_expires_at > ?", now).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"verification_token": token,
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *users) MarkEmailVerified(ctx context.Context, id uuid.UUID) (*User, error) {
	return a.MarkEmailVerifiedTx(ctx, a.db, id)
}

// MarkEmailVerifiedTx moves the user to verified and clears the one-time
// verification token so it cannot be replayed.
func (a *users) MarkEmailVerifiedTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*User, error) {
	res, err := a.Repository.RawTx(ctx, tx, MarkEmailVerifiedSQL, id.String())
	if err != nil {
		return nil, err
	}

	if len(res) == 0 {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}

	return res[0], nil
}

func (a *users) ClaimUsername(ctx context.Context, id uuid.UUID, username string) (*User, error) {
	return a.ClaimUsernameTx(ctx, a.db, id, username)
}

// ClaimUsernameTx sets the unique username and activates the account in one
// statement. The unique constraint arbitrates concurrent claims.
func (a *users) ClaimUsernameTx(ctx context.Context, tx bun.IDB, id uuid.UUID, username string) (*User, error) {
	res, err := a.Repository.RawTx(ctx, tx, ClaimUsernameSQL, username, id.String())
	if err != nil {
		if isUniqueViolation(err, "username") {
			return nil, ErrUsernameTaken.WithMetadata(map[string]any{
				"username": username,
			})
		}
		return nil, err
	}

	if len(res) == 0 {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}

	return res[0], nil
}

func (a *users) TrackSuccessfulLogin(ctx context.Context, user *User) error {
	return a.TrackSuccessfulLoginTx(ctx, a.db, user)
}

func (a *users) TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, user *User) error {
	// NOTE: Updating using the ORM fails due to a bug, it wont reset
	// login_attempt_at, login_attempts fields.
	loggedInAt := time.Now()
	_, err := tx.NewRaw(`
		UPDATE "users" AS "usr"
		SET
			"loggedin_at" = ?,
			"login_attempt_at" = NULL,
			"login_attempts" = 0
		WHERE
			("usr".id = ?)
			AND "usr"."deleted_at" IS NULL;
	`, loggedInAt, user.ID).Exec(ctx)

	return err
}

func (a *users) TrackAttemptedLogin(ctx context.Context, user *User) error {
	return a.TrackAttemptedLoginTx(ctx, a.db, user)
}

func (a *users) TrackAttemptedLoginTx(ctx context.Context, tx bun.IDB, user *User) error {
	criteria := []repository.UpdateCriteria{
		repository.UpdateByID(user.ID.String()),
	}

	record := &User{}
	record.ID = user.ID
	record.LoginAttempts = user.LoginAttempts + 1
	now := time.Now()
	record.LoginAttemptAt = &now

	_, err := a.Repository.UpdateTx(ctx, tx, record, criteria...)

	return err
}

func (a *users) UpdateStatus(ctx context.Context, id uuid.UUID, status UserStatus) (*User, error) {
	return a.UpdateStatusTx(ctx, a.db, id, status)
}

func (a *users) UpdateStatusTx(ctx context.Context, tx bun.IDB, id uuid.UUID, status UserStatus) (*User, error) {
	record := &User{
		ID:     id,
		Status: status,
	}

	return a.Repository.UpdateTx(ctx, tx, record, repository.UpdateByID(id.String()))
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}

	record.EnsureStatus()

	if record.Avatar == "" {
		record.Avatar = DefaultAvatar
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}

type identifierOption struct {
	column string
	value  string
}

func resolveUserIdentifier(identifier string) []identifierOption {
	trimmed := strings.TrimSpace(identifier)
	if trimmed == "" {
		return nil
	}

	options := make([]identifierOption, 0, 3)

	if isUUID(trimmed) {
		options = append(options, identifierOption{
			column: "id",
			value:  trimmed,
		})
	}

	if isEmail(trimmed) {
		options = append(options, identifierOption{
			column: "email",
			value:  trimmed,
		})
	}

	options = append(options, identifierOption{
		column: "username",
		value:  trimmed,
	})

	return options
}

func isEmail(email string) bool {
	_, err := mail.ParseAddress(email)
	return err == nil
}

func isUUID(identifier string) bool {
	_, err := uuid.Parse(identifier)
	return err == nil
}

// isUniqueViolation matches unique constraint errors for a given column
// across the drivers we support (sqlite and postgres word their messages
// differently).
func isUniqueViolation(err error, column string) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	if !strings.Contains(msg, "unique") && !strings.Contains(msg, "duplicate key") {
		return false
	}
	return strings.Contains(msg, column)
}

func (a *users) Verify(ctx context.Context, actor ActorRef, user *User, opts ...TransitionOption) (*User, error) {
	return a.lifecycleMachine().Transition(ctx, actor, user, UserStatusVerified, opts...)
}

func (a *users) Activate(ctx context.Context, actor ActorRef, user *User, opts ...TransitionOption) (*User, error) {
	return a.lifecycleMachine().Transition(ctx, actor, user, UserStatusActive, opts...)
}

func (a *users) lifecycleMachine() UserStateMachine {
	if a.stateMachine == nil {
		a.stateMachine = NewUserStateMachine(a, a.stateMachineOptions...)
	}
	return a.stateMachine
}
