package account

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type FinalizeAccountMessage struct {
	Claims     *SessionClaims
	Username   string `json:"username"`
	Avatar     string `json:"avatar"`
	OnResponse func(*FinalizeAccountResponse)
}

func (e FinalizeAccountMessage) Type() string { return "account.finalize" }

// FinalizeAccountResponse carries the fully authenticated session token.
type FinalizeAccountResponse struct {
	UserID       string     `json:"user_id"`
	Username     string     `json:"username"`
	Status       UserStatus `json:"status"`
	SessionToken string     `json:"-"`
}

// FinalizeAccountHandler claims the username for a verified account,
// activates it, and mints a fully authenticated session.
type FinalizeAccountHandler struct {
	repo   RepositoryManager
	tokens TokenService
	logger Logger
	sink   ActivitySink
	now    func() time.Time
}

func NewFinalizeAccountHandler(repo RepositoryManager, tokens TokenService) *FinalizeAccountHandler {
	return &FinalizeAccountHandler{
		repo:   repo,
		tokens: tokens,
		logger: defLogger{},
		sink:   noopActivitySink{},
		now:    time.Now,
	}
}

func (h *FinalizeAccountHandler) WithLogger(logger Logger) *FinalizeAccountHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *FinalizeAccountHandler) WithActivitySink(sink ActivitySink) *FinalizeAccountHandler {
	h.sink = normalizeActivitySink(sink)
	return h
}

func (h *FinalizeAccountHandler) WithClock(clock func() time.Time) *FinalizeAccountHandler {
	if clock != nil {
		h.now = clock
	}
	return h
}

func (h *FinalizeAccountHandler) Execute(ctx context.Context, event FinalizeAccountMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during account finalization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *FinalizeAccountHandler) execute(ctx context.Context, event FinalizeAccountMessage) error {
	if event.Claims == nil {
		return ErrUnauthenticated
	}

	if !event.Claims.IsEmailVerified() {
		return ErrEmailNotVerified
	}

	userID, err := parseUserID(event.Claims.UserID())
	if err != nil {
		return err
	}

	var user *User

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record, err := h.repo.Users().ClaimUsernameTx(ctx, tx, userID, event.Username)
		if err != nil {
			if goerrors.Is(err, ErrUsernameTaken) {
				return err
			}
			if repository.IsRecordNotFound(err) {
				return ErrIdentityNotFound.WithMetadata(map[string]any{
					"user_id": userID.String(),
				})
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to claim username")
		}

		user = record

		if event.Avatar != "" {
			user.Avatar = event.Avatar
			if user, err = h.repo.Users().UpdateTx(ctx, tx, user, repository.UpdateByID(userID.String())); err != nil {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update avatar")
			}
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}

		return goerrors.Wrap(err, goerrors.CategoryInternal, "account finalization transaction failed")
	}

	sessionToken, err := h.tokens.IssueAuthenticated(user.ID.String())
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to issue session token")
	}

	h.recordActivity(ctx, user)

	if event.OnResponse != nil {
		event.OnResponse(&FinalizeAccountResponse{
			UserID:       user.ID.String(),
			Username:     user.UsernameString(),
			Status:       user.Status,
			SessionToken: sessionToken,
		})
	}

	return nil
}

func (h *FinalizeAccountHandler) recordActivity(ctx context.Context, user *User) {
	event := ActivityEvent{
		EventType:  ActivityEventFinalized,
		Actor:      ActorRef{ID: user.ID.String(), Type: "user"},
		UserID:     user.ID.String(),
		FromStatus: UserStatusVerified,
		ToStatus:   user.Status,
		Metadata: map[string]any{
			"username": user.UsernameString(),
		},
		OccurredAt: h.now(),
	}

	if err := normalizeActivitySink(h.sink).Record(ctx, event); err != nil {
		h.logger.Warn("activity sink record error: %v", err)
	}
}

func parseUserID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, ErrUnableToDecodeSession
	}
	return id, nil
}
