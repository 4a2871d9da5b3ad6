package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskgate/backend/domain"
)

func TestIssueAndVerify(t *testing.T) {
	issuer := NewIssuer("test-secret", "taskgate-test", time.Hour)

	user := &domain.User{
		ID:          "u1",
		Username:    "alice",
		Role:        domain.RoleSuperuser,
		Permissions: []domain.Capability{domain.CapAddTask, domain.CapCompleteTask},
	}

	signed, err := issuer.Issue(user)
	require.NoError(t, err)
	require.NotEmpty(t, signed)

	ident, err := issuer.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, "u1", ident.ID)
	assert.Equal(t, "alice", ident.Username)
	assert.Equal(t, domain.RoleSuperuser, ident.Role)
	assert.Equal(t, user.Permissions, ident.Permissions)
}

func TestVerifyRejectsMissingToken(t *testing.T) {
	issuer := NewIssuer("test-secret", "taskgate-test", time.Hour)

	_, err := issuer.Verify("")
	require.Error(t, err)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeUnauthorized))
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	signed, err := NewIssuer("secret-a", "taskgate-test", time.Hour).Issue(&domain.User{ID: "u1", Username: "alice"})
	require.NoError(t, err)

	_, err = NewIssuer("secret-b", "taskgate-test", time.Hour).Verify(signed)
	require.Error(t, err)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeUnauthorized))
}

func TestVerifyRejectsGarbage(t *testing.T) {
	issuer := NewIssuer("test-secret", "taskgate-test", time.Hour)

	_, err := issuer.Verify("not.a.token")
	require.Error(t, err)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeUnauthorized))
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	issuer := NewIssuer("test-secret", "taskgate-test", time.Millisecond)

	signed, err := issuer.Issue(&domain.User{ID: "u1", Username: "alice"})
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	_, err = issuer.Verify(signed)
	require.Error(t, err)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeUnauthorized))
}
