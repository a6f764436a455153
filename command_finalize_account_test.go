package account_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/goliatone/go-account"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func verifiedClaims(userID string) *account.SessionClaims {
	verified := true
	return &account.SessionClaims{
		UID:           userID,
		EmailVerified: &verified,
	}
}

func TestFinalizeAccountHandler(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	users := &stubUsers{
		claimUsername: func(ctx context.Context, tx bun.IDB, id, username string) (*account.User, error) {
			require.Equal(t, userID.String(), id)
			require.Equal(t, "newuser", username)
			return &account.User{
				ID:       userID,
				Username: sql.NullString{String: username, Valid: true},
				Status:   account.UserStatusActive,
				Avatar:   account.DefaultAvatar,
			}, nil
		},
	}

	tokens := newTestTokenService()
	sink := &capturingSink{}

	handler := account.NewFinalizeAccountHandler(&stubRepositoryManager{users: users}, tokens).
		WithActivitySink(sink)

	var res *account.FinalizeAccountResponse
	err := handler.Execute(ctx, account.FinalizeAccountMessage{
		Claims:   verifiedClaims(userID.String()),
		Username: "newuser",
		OnResponse: func(r *account.FinalizeAccountResponse) {
			res = r
		},
	})
	require.NoError(t, err)

	require.NotNil(t, res)
	assert.Equal(t, userID.String(), res.UserID)
	assert.Equal(t, "newuser", res.Username)
	assert.Equal(t, account.UserStatusActive, res.Status)

	claims, err := tokens.Validate(res.SessionToken)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID())
	assert.True(t, claims.FullyAuthenticated)
	assert.Equal(t, account.StageFullyAuthenticated, claims.Stage())

	require.Len(t, sink.events, 1)
	assert.Equal(t, account.ActivityEventFinalized, sink.events[0].EventType)
	assert.Equal(t, account.UserStatusActive, sink.events[0].ToStatus)
}

func TestFinalizeAccountHandlerUpdatesAvatar(t *testing.T) {
	userID := uuid.New()

	var updated *account.User
	users := &stubUsers{
		claimUsername: func(ctx context.Context, tx bun.IDB, id, username string) (*account.User, error) {
			return &account.User{
				ID:       userID,
				Username: sql.NullString{String: username, Valid: true},
				Status:   account.UserStatusActive,
				Avatar:   account.DefaultAvatar,
			}, nil
		},
		updateTx: func(ctx context.Context, tx bun.IDB, record *account.User, criteria ...repository.UpdateCriteria) (*account.User, error) {
			updated = record
			return record, nil
		},
	}

	handler := account.NewFinalizeAccountHandler(&stubRepositoryManager{users: users}, newTestTokenService())

	err := handler.Execute(context.Background(), account.FinalizeAccountMessage{
		Claims:   verifiedClaims(userID.String()),
		Username: "newuser",
		Avatar:   "/images/custom.png",
	})
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, "/images/custom.png", updated.Avatar)
}

func TestFinalizeAccountHandlerGuards(t *testing.T) {
	handler := account.NewFinalizeAccountHandler(&stubRepositoryManager{}, newTestTokenService())

	t.Run("no claims", func(t *testing.T) {
		err := handler.Execute(context.Background(), account.FinalizeAccountMessage{
			Username: "newuser",
		})
		assert.ErrorIs(t, err, account.ErrUnauthenticated)
	})

	t.Run("email not verified", func(t *testing.T) {
		err := handler.Execute(context.Background(), account.FinalizeAccountMessage{
			Claims:   &account.SessionClaims{UID: uuid.NewString()},
			Username: "newuser",
		})
		assert.ErrorIs(t, err, account.ErrEmailNotVerified)
	})

	t.Run("undecodable user id", func(t *testing.T) {
		err := handler.Execute(context.Background(), account.FinalizeAccountMessage{
			Claims:   verifiedClaims("not-a-uuid"),
			Username: "newuser",
		})
		assert.ErrorIs(t, err, account.ErrUnableToDecodeSession)
	})
}

func TestFinalizeAccountHandlerUsernameTaken(t *testing.T) {
	users := &stubUsers{
		claimUsername: func(ctx context.Context, tx bun.IDB, id, username string) (*account.User, error) {
			return nil, account.ErrUsernameTaken
		},
	}

	handler := account.NewFinalizeAccountHandler(&stubRepositoryManager{users: users}, newTestTokenService())

	err := handler.Execute(context.Background(), account.FinalizeAccountMessage{
		Claims:   verifiedClaims(uuid.NewString()),
		Username: "taken",
	})
	assert.ErrorIs(t, err, account.ErrUsernameTaken)
}

func TestFinalizeAccountHandlerUnknownUser(t *testing.T) {
	users := &stubUsers{
		claimUsername: func(ctx context.Context, tx bun.IDB, id, username string) (*account.User, error) {
			return nil, repository.NewRecordNotFound()
		},
	}

	handler := account.NewFinalizeAccountHandler(&stubRepositoryManager{users: users}, newTestTokenService())

	err := handler.Execute(context.Background(), account.FinalizeAccountMessage{
		Claims:   verifiedClaims(uuid.NewString()),
		Username: "orphan",
	})
	assert.ErrorIs(t, err, account.ErrIdentityNotFound)
}
