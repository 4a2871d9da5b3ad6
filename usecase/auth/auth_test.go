package auth

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskgate/backend/domain"
	"github.com/taskgate/backend/internal/infrastructure/docstore"
	"github.com/taskgate/backend/pkg/token"
	boltRepo "github.com/taskgate/backend/repository/bolt"
)

func newUseCase(t *testing.T) (*UseCase, *token.Issuer) {
	t.Helper()
	store, err := docstore.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	issuer := token.NewIssuer("test-secret", "taskgate-test", time.Hour)
	return New(boltRepo.NewUserRepository(store), issuer, nil), issuer
}

func TestRegisterDefaults(t *testing.T) {
	uc, _ := newUseCase(t)
	ctx := context.Background()

	user, err := uc.Register(ctx, "alice", "hunter2")
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, domain.RoleUser, user.Role)
	assert.True(t, user.IsActive)
	assert.Equal(t, domain.DefaultPermissions(), user.Permissions)
	assert.Empty(t, user.Tasks)
	assert.NotEqual(t, "hunter2", user.PasswordHash, "password must be hashed")
}

func TestRegisterRejectsDuplicateUsername(t *testing.T) {
	uc, _ := newUseCase(t)
	ctx := context.Background()

	_, err := uc.Register(ctx, "alice", "hunter2")
	require.NoError(t, err)

	_, err = uc.Register(ctx, "alice", "different")
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeConflict))
}

func TestRegisterRequiresCredentials(t *testing.T) {
	uc, _ := newUseCase(t)
	ctx := context.Background()

	_, err := uc.Register(ctx, "", "hunter2")
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvalid))

	_, err = uc.Register(ctx, "alice", "")
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvalid))
}

func TestLoginIssuesVerifiableToken(t *testing.T) {
	uc, issuer := newUseCase(t)
	ctx := context.Background()

	registered, err := uc.Register(ctx, "alice", "hunter2")
	require.NoError(t, err)

	signed, user, err := uc.Login(ctx, "alice", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)

	identity, err := issuer.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, registered.ID, identity.ID)
	assert.Equal(t, "alice", identity.Username)
	assert.Equal(t, domain.RoleUser, identity.Role)
	assert.Equal(t, domain.DefaultPermissions(), identity.Permissions)
}

func TestLoginWrongPassword(t *testing.T) {
	uc, _ := newUseCase(t)
	ctx := context.Background()

	_, err := uc.Register(ctx, "alice", "hunter2")
	require.NoError(t, err)

	_, _, err = uc.Login(ctx, "alice", "wrong")
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeUnauthorized))
}

func TestLoginUnknownUserLooksLikeBadCredentials(t *testing.T) {
	uc, _ := newUseCase(t)

	_, _, err := uc.Login(context.Background(), "nobody", "hunter2")
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeUnauthorized),
		"unknown username must not be distinguishable from a wrong password")
}

func TestLoginDisabledAccount(t *testing.T) {
	uc, _ := newUseCase(t)
	ctx := context.Background()

	user, err := uc.Register(ctx, "alice", "hunter2")
	require.NoError(t, err)

	user.IsActive = false
	require.NoError(t, uc.users.Update(ctx, user))

	_, _, err = uc.Login(ctx, "alice", "hunter2")
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeForbidden))
}

func TestTokenSnapshotSurvivesPermissionEdits(t *testing.T) {
	uc, issuer := newUseCase(t)
	ctx := context.Background()

	user, err := uc.Register(ctx, "alice", "hunter2")
	require.NoError(t, err)

	signed, _, err := uc.Login(ctx, "alice", "hunter2")
	require.NoError(t, err)

	// Grant more capabilities after the token was minted.
	user.Permissions = append(user.Permissions, domain.CapAddTask)
	require.NoError(t, uc.users.Update(ctx, user))

	identity, err := issuer.Verify(signed)
	require.NoError(t, err)
	assert.False(t, identity.Can(domain.CapAddTask),
		"the old token carries the permission set from login time")
}
