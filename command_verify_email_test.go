package account_test

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-account"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func newTestTokenService() *account.TokenServiceImpl {
	return account.NewTokenService([]byte("test-signing-key"), 24, "test-issuer", nil, nil)
}

func TestVerifyEmailHandler(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	token := uuid.NewString()

	users := &stubUsers{
		getByToken: func(ctx context.Context, tx bun.IDB, got string) (*account.User, error) {
			if got != token {
				return nil, repository.NewRecordNotFound()
			}
			return &account.User{ID: userID, Status: account.UserStatusPending}, nil
		},
		markVerified: func(ctx context.Context, tx bun.IDB, id string) (*account.User, error) {
			require.Equal(t, userID.String(), id)
			return &account.User{ID: userID, Status: account.UserStatusVerified}, nil
		},
	}

	tokens := newTestTokenService()
	sink := &capturingSink{}

	handler := account.NewVerifyEmailHandler(&stubRepositoryManager{users: users}, tokens).
		WithActivitySink(sink)

	var res *account.VerifyEmailResponse
	err := handler.Execute(ctx, account.VerifyEmailMessage{
		Token: token,
		OnResponse: func(r *account.VerifyEmailResponse) {
			res = r
		},
	})
	require.NoError(t, err)

	require.NotNil(t, res)
	assert.Equal(t, userID.String(), res.UserID)
	assert.Equal(t, account.UserStatusVerified, res.Status)

	// the minted session asserts a verified email but is not fully authenticated
	claims, err := tokens.Validate(res.SessionToken)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID())
	assert.Equal(t, account.StageVerified, claims.Stage())
	assert.False(t, claims.FullyAuthenticated)

	require.Len(t, sink.events, 1)
	assert.Equal(t, account.ActivityEventEmailVerified, sink.events[0].EventType)
	assert.Equal(t, userID.String(), sink.events[0].UserID)
}

func TestVerifyEmailHandlerUnknownToken(t *testing.T) {
	users := &stubUsers{
		getByToken: func(ctx context.Context, tx bun.IDB, got string) (*account.User, error) {
			return nil, repository.NewRecordNotFound()
		},
	}

	handler := account.NewVerifyEmailHandler(&stubRepositoryManager{users: users}, newTestTokenService())

	err := handler.Execute(context.Background(), account.VerifyEmailMessage{
		Token: uuid.NewString(),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, account.ErrInvalidOrExpiredToken)
}

func TestVerifyEmailHandlerEmptyToken(t *testing.T) {
	handler := account.NewVerifyEmailHandler(&stubRepositoryManager{}, newTestTokenService())

	err := handler.Execute(context.Background(), account.VerifyEmailMessage{})
	require.ErrorIs(t, err, account.ErrInvalidOrExpiredToken)
}

func TestVerifyEmailHandlerExpiredToken(t *testing.T) {
	// the repository filters expired tokens out of the lookup, so the handler
	// sees the same not found it gets for an unknown token
	now := time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC)

	users := &stubUsers{
		getByToken: func(ctx context.Context, tx bun.IDB, got string) (*account.User, error) {
			return nil, repository.NewRecordNotFound()
		},
	}

	handler := account.NewVerifyEmailHandler(&stubRepositoryManager{users: users}, newTestTokenService()).
		WithClock(func() time.Time { return now })

	err := handler.Execute(context.Background(), account.VerifyEmailMessage{
		Token: uuid.NewString(),
	})
	assert.ErrorIs(t, err, account.ErrInvalidOrExpiredToken)
}
