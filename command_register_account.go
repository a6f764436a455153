package account

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-featuregate/gate"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// VerificationTokenTTL is how long an email verification token stays valid.
var VerificationTokenTTL = 24 * time.Hour

type RegisterAccountMessage struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	UseHashid  bool
	OnResponse func(*RegisterAccountResponse)
}

func (e RegisterAccountMessage) Type() string { return "account.register" }

// RegisterAccountResponse carries the public fields of the new account.
type RegisterAccountResponse struct {
	ID     string     `json:"id"`
	Email  string     `json:"email"`
	Status UserStatus `json:"status"`
}

// RegisterAccountHandler creates a pending account, stores a one-time
// verification token, and emails the verification link.
type RegisterAccountHandler struct {
	repo        RepositoryManager
	mailer      Mailer
	featureGate gate.FeatureGate
	webBaseURL  string
	logger      Logger
	sink        ActivitySink
	now         func() time.Time
}

func NewRegisterAccountHandler(repo RepositoryManager, mailer Mailer, webBaseURL string) *RegisterAccountHandler {
	return &RegisterAccountHandler{
		repo:       repo,
		mailer:     normalizeMailer(mailer),
		webBaseURL: webBaseURL,
		logger:     defLogger{},
		sink:       noopActivitySink{},
		now:        time.Now,
	}
}

func (h *RegisterAccountHandler) WithLogger(logger Logger) *RegisterAccountHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *RegisterAccountHandler) WithFeatureGate(featureGate gate.FeatureGate) *RegisterAccountHandler {
	h.featureGate = featureGate
	return h
}

func (h *RegisterAccountHandler) WithActivitySink(sink ActivitySink) *RegisterAccountHandler {
	h.sink = normalizeActivitySink(sink)
	return h
}

func (h *RegisterAccountHandler) WithClock(clock func() time.Time) *RegisterAccountHandler {
	if clock != nil {
		h.now = clock
	}
	return h
}

func (h *RegisterAccountHandler) Execute(ctx context.Context, event RegisterAccountMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during account registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterAccountHandler) execute(ctx context.Context, event RegisterAccountMessage) error {
	if h.featureGate != nil {
		if err := requireSignupGate(ctx, h.featureGate); err != nil {
			return err
		}
	}

	user := &User{}
	token := uuid.NewString()

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		hash, err := HashPassword(event.Password)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		expiresAt := h.now().Add(VerificationTokenTTL)

		user.Email = event.Email
		user.PasswordHash = hash
		user.Status = UserStatusPending
		user.VerificationToken = nullString(token)
		user.VerificationTokenExpiresAt = &expiresAt
		if event.UseHashid {
			if id, err := hashid.NewUUID(event.Email); err == nil {
				user.ID = id
			}
		}

		if user, err = h.repo.Users().CreateTx(ctx, tx, user); err != nil {
			if goerrors.Is(err, ErrDuplicateEmail) {
				return err
			}
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create user")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}

		return goerrors.Wrap(err, goerrors.CategoryInternal, "account registration transaction failed")
	}

	h.recordActivity(ctx, user)

	// The account row is already committed. Mail delivery runs off the
	// request path and failures only get logged, a user can always ask for
	// another verification email.
	link := VerificationLink(h.webBaseURL, token)
	go func() {
		sendCtx, sendCancel := context.WithTimeout(context.Background(), time.Second*30)
		defer sendCancel()

		if err := h.mailer.SendVerificationEmail(sendCtx, user.Email, link); err != nil {
			h.logger.Error("failed to send verification email", "error", err, "email", user.Email)
		}
	}()

	if event.OnResponse != nil {
		event.OnResponse(&RegisterAccountResponse{
			ID:     user.ID.String(),
			Email:  user.Email,
			Status: user.Status,
		})
	}

	return nil
}

func (h *RegisterAccountHandler) recordActivity(ctx context.Context, user *User) {
	event := ActivityEvent{
		EventType: ActivityEventRegistered,
		Actor:     ActorRef{ID: user.ID.String(), Type: "user"},
		UserID:    user.ID.String(),
		ToStatus:  user.Status,
		Metadata: map[string]any{
			"email": user.Email,
		},
		OccurredAt: h.now(),
	}

	if err := normalizeActivitySink(h.sink).Record(ctx, event); err != nil {
		h.logger.Warn("activity sink record error: %v", err)
	}
}
