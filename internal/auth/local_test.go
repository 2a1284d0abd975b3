package auth

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/stoatbridge/stoatbridge/internal/db/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&models.User{}))

	return db
}

func TestAuthenticate(t *testing.T) {
	db := setupTestDB(t)
	provider := NewLocalProvider(db)

	_, err := provider.CreateUser("alice", "alice@example.com", "s3cret")
	require.NoError(t, err)

	user, err := provider.Authenticate("alice", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	_, err = provider.Authenticate("alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidPassword)

	_, err = provider.Authenticate("bob", "s3cret")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestAuthenticateDisabledAccount(t *testing.T) {
	db := setupTestDB(t)
	provider := NewLocalProvider(db)

	user, err := provider.CreateUser("alice", "alice@example.com", "s3cret")
	require.NoError(t, err)

	require.NoError(t, provider.DeactivateUser(user.ID))

	_, err = provider.Authenticate("alice", "s3cret")
	assert.ErrorIs(t, err, ErrUserAccountDisabled)

	require.NoError(t, provider.ActivateUser(user.ID))

	_, err = provider.Authenticate("alice", "s3cret")
	assert.NoError(t, err)
}

func TestCreateUserDuplicate(t *testing.T) {
	db := setupTestDB(t)
	provider := NewLocalProvider(db)

	_, err := provider.CreateUser("alice", "alice@example.com", "s3cret")
	require.NoError(t, err)

	_, err = provider.CreateUser("alice", "other@example.com", "s3cret")
	assert.ErrorIs(t, err, ErrUserNameOrEmailExists)

	_, err = provider.CreateUser("other", "alice@example.com", "s3cret")
	assert.ErrorIs(t, err, ErrUserNameOrEmailExists)
}

func TestChangePassword(t *testing.T) {
	db := setupTestDB(t)
	provider := NewLocalProvider(db)

	user, err := provider.CreateUser("alice", "alice@example.com", "s3cret")
	require.NoError(t, err)

	err = provider.ChangePassword(user.ID, "wrong", "newpass")
	assert.ErrorIs(t, err, ErrInvalidOldPassword)

	require.NoError(t, provider.ChangePassword(user.ID, "s3cret", "newpass"))

	_, err = provider.Authenticate("alice", "newpass")
	assert.NoError(t, err)
}

func TestResetPassword(t *testing.T) {
	db := setupTestDB(t)
	provider := NewLocalProvider(db)

	user, err := provider.CreateUser("alice", "alice@example.com", "s3cret")
	require.NoError(t, err)

	require.NoError(t, provider.ResetPassword(user.ID, "fresh"))

	_, err = provider.Authenticate("alice", "s3cret")
	assert.ErrorIs(t, err, ErrInvalidPassword)

	_, err = provider.Authenticate("alice", "fresh")
	assert.NoError(t, err)
}

func TestListUsers(t *testing.T) {
	db := setupTestDB(t)
	provider := NewLocalProvider(db)

	alice, err := provider.CreateUser("alice", "alice@example.com", "s3cret")
	require.NoError(t, err)

	_, err = provider.CreateUser("bob", "bob@example.com", "s3cret")
	require.NoError(t, err)

	require.NoError(t, provider.DeactivateUser(alice.ID))

	users, total, err := provider.ListUsers(nil, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, users, 2)

	active := true
	users, total, err = provider.ListUsers(&active, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, users, 1)
	assert.Equal(t, "bob", users[0].Username)
}
