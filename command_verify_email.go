package account

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type VerifyEmailMessage struct {
	Token      string `json:"token"`
	OnResponse func(*VerifyEmailResponse)
}

func (e VerifyEmailMessage) Type() string { return "account.verify_email" }

// VerifyEmailResponse carries the session token minted for the verified user.
type VerifyEmailResponse struct {
	UserID       string     `json:"user_id"`
	Status       UserStatus `json:"status"`
	SessionToken string     `json:"-"`
}

// VerifyEmailHandler consumes a verification token: it moves the account from
// pending to verified, burns the token, and mints a verified-stage session.
type VerifyEmailHandler struct {
	repo   RepositoryManager
	tokens TokenService
	logger Logger
	sink   ActivitySink
	now    func() time.Time
}

func NewVerifyEmailHandler(repo RepositoryManager, tokens TokenService) *VerifyEmailHandler {
	return &VerifyEmailHandler{
		repo:   repo,
		tokens: tokens,
		logger: defLogger{},
		sink:   noopActivitySink{},
		now:    time.Now,
	}
}

func (h *VerifyEmailHandler) WithLogger(logger Logger) *VerifyEmailHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *VerifyEmailHandler) WithActivitySink(sink ActivitySink) *VerifyEmailHandler {
	h.sink = normalizeActivitySink(sink)
	return h
}

func (h *VerifyEmailHandler) WithClock(clock func() time.Time) *VerifyEmailHandler {
	if clock != nil {
		h.now = clock
	}
	return h
}

func (h *VerifyEmailHandler) Execute(ctx context.Context, event VerifyEmailMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during email verification",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *VerifyEmailHandler) execute(ctx context.Context, event VerifyEmailMessage) error {
	if event.Token == "" {
		return ErrInvalidOrExpiredToken
	}

	var user *User

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record, err := h.repo.Users().GetByVerificationTokenTx(ctx, tx, event.Token, h.now())
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrInvalidOrExpiredToken
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to resolve verification token")
		}

		if user, err = h.repo.Users().MarkEmailVerifiedTx(ctx, tx, record.ID); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to mark email as verified")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}

		return goerrors.Wrap(err, goerrors.CategoryInternal, "email verification transaction failed")
	}

	sessionToken, err := h.tokens.IssueVerified(user.ID.String())
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to issue session token")
	}

	h.recordActivity(ctx, user)

	if event.OnResponse != nil {
		event.OnResponse(&VerifyEmailResponse{
			UserID:       user.ID.String(),
			Status:       user.Status,
			SessionToken: sessionToken,
		})
	}

	return nil
}

func (h *VerifyEmailHandler) recordActivity(ctx context.Context, user *User) {
	event := ActivityEvent{
		EventType:  ActivityEventEmailVerified,
		Actor:      ActorRef{ID: user.ID.String(), Type: "user"},
		UserID:     user.ID.String(),
		FromStatus: UserStatusPending,
		ToStatus:   user.Status,
		OccurredAt: h.now(),
	}

	if err := normalizeActivitySink(h.sink).Record(ctx, event); err != nil {
		h.logger.Warn("activity sink record error: %v", err)
	}
}
