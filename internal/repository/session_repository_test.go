package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"adeptify/internal/model"
)

func TestSessionRepository_ExpiryBoundaryIsExclusive(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createUser(t, db, "a@adeptify.local", model.RoleAdminCurs, "c1", "k1")
	repo := fixedSessions(db, base)

	require.NoError(t, repo.Create(ctx, model.NewSession(user.ID, "acc-now", "ref-now", base, "", "")))
	require.NoError(t, repo.Create(ctx, model.NewSession(user.ID, "acc-later", "ref-later", base.Add(time.Second), "", "")))

	tests := []struct {
		name    string
		find    func() (*model.Session, error)
		wantErr error
	}{
		{"access expiring now", func() (*model.Session, error) { return repo.FindActive(ctx, "acc-now", user.ID) }, gorm.ErrRecordNotFound},
		{"refresh expiring now", func() (*model.Session, error) { return repo.FindByRefreshToken(ctx, "ref-now", user.ID) }, gorm.ErrRecordNotFound},
		{"access one second left", func() (*model.Session, error) { return repo.FindActive(ctx, "acc-later", user.ID) }, nil},
		{"refresh one second left", func() (*model.Session, error) { return repo.FindByRefreshToken(ctx, "ref-later", user.ID) }, nil},
		{"other user", func() (*model.Session, error) { return repo.FindActive(ctx, "acc-later", uuid.New()) }, gorm.ErrRecordNotFound},
		{"refresh as access", func() (*model.Session, error) { return repo.FindActive(ctx, "ref-later", user.ID) }, gorm.ErrRecordNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session, err := tt.find()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, user.ID, session.UserID)
		})
	}
}

func TestSessionRepository_StoresDigestsOnly(t *testing.T) {
	db := newTestDB(t)
	user := createUser(t, db, "a@adeptify.local", model.RoleAdminCurs, "c1", "k1")
	repo := fixedSessions(db, base)

	require.NoError(t, repo.Create(context.Background(), model.NewSession(user.ID, "raw-access", "raw-refresh", base.Add(time.Hour), "10.0.0.1", "curl")))

	var stored model.Session
	require.NoError(t, db.First(&stored).Error)
	assert.Equal(t, model.HashToken("raw-access"), stored.AccessTokenHash)
	assert.Equal(t, model.HashToken("raw-refresh"), stored.RefreshTokenHash)
	assert.NotContains(t, stored.AccessTokenHash, "raw")
}

func TestSessionRepository_Rotate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createUser(t, db, "a@adeptify.local", model.RoleAdminCurs, "c1", "k1")
	repo := fixedSessions(db, base)

	session := model.NewSession(user.ID, "acc-1", "ref-1", base.Add(time.Hour), "", "")
	require.NoError(t, repo.Create(ctx, session))

	require.NoError(t, repo.Rotate(ctx, session.ID, "acc-2", ""))

	_, err := repo.FindActive(ctx, "acc-1", user.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	_, err = repo.FindActive(ctx, "acc-2", user.ID)
	assert.NoError(t, err)
	_, err = repo.FindByRefreshToken(ctx, "ref-1", user.ID)
	assert.NoError(t, err, "refresh token survives an access-only rotation")

	require.NoError(t, repo.Rotate(ctx, session.ID, "acc-3", "ref-2"))
	_, err = repo.FindByRefreshToken(ctx, "ref-1", user.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	_, err = repo.FindByRefreshToken(ctx, "ref-2", user.ID)
	assert.NoError(t, err)

	assert.ErrorIs(t, repo.Rotate(ctx, uuid.New(), "x", ""), gorm.ErrRecordNotFound)
}

func TestSessionRepository_Deletes(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := createUser(t, db, "alice@adeptify.local", model.RoleAdminCurs, "c1", "k1")
	bob := createUser(t, db, "bob@adeptify.local", model.RoleAdminCurs, "c1", "k1")
	repo := fixedSessions(db, base)

	require.NoError(t, repo.Create(ctx, model.NewSession(alice.ID, "a1", "ar1", base.Add(time.Hour), "", "")))
	require.NoError(t, repo.Create(ctx, model.NewSession(alice.ID, "a2", "ar2", base.Add(-time.Minute), "", "")))
	require.NoError(t, repo.Create(ctx, model.NewSession(bob.ID, "b1", "br1", base, "", "")))
	require.NoError(t, repo.Create(ctx, model.NewSession(bob.ID, "b2", "br2", base.Add(time.Hour), "", "")))

	n, err := repo.DeleteByRefreshToken(ctx, "ar1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = repo.DeleteByRefreshToken(ctx, "ar1")
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = repo.DeleteExpired(ctx, base)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n, "expiry at the cutoff counts as expired")

	n, err = repo.DeleteAllForUser(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	var remaining int64
	require.NoError(t, db.Model(&model.Session{}).Count(&remaining).Error)
	assert.Zero(t, remaining)
}
