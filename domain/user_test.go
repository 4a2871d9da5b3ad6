package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeCapabilities(t *testing.T) {
	t.Run("empty set coerced to default", func(t *testing.T) {
		assert.Equal(t, []Capability{CapCompleteTask}, NormalizeCapabilities(nil))
		assert.Equal(t, []Capability{CapCompleteTask}, NormalizeCapabilities([]Capability{}))
	})

	t.Run("unknown capabilities dropped", func(t *testing.T) {
		got := NormalizeCapabilities([]Capability{"root", CapEditTask, "sudo"})
		assert.Equal(t, []Capability{CapEditTask}, got)
	})

	t.Run("only unknown capabilities coerced to default", func(t *testing.T) {
		got := NormalizeCapabilities([]Capability{"root"})
		assert.Equal(t, []Capability{CapCompleteTask}, got)
	})

	t.Run("duplicates removed, order kept", func(t *testing.T) {
		got := NormalizeCapabilities([]Capability{CapAddTask, CapEditTask, CapAddTask})
		assert.Equal(t, []Capability{CapAddTask, CapEditTask}, got)
	})
}

func TestIdentityCan(t *testing.T) {
	ident := &Identity{
		ID:          "u1",
		Role:        RoleAdmin,
		Permissions: []Capability{CapCompleteTask},
	}

	assert.True(t, ident.Can(CapCompleteTask))

	// The admin role grants nothing by itself; membership is all that counts.
	assert.False(t, ident.Can(CapDeleteUser))
	assert.False(t, ident.Can(CapEditPermission))

	var nilIdent *Identity
	assert.False(t, nilIdent.Can(CapCompleteTask))
}

func TestRoleElevated(t *testing.T) {
	assert.True(t, RoleAdmin.Elevated())
	assert.True(t, RoleSuperuser.Elevated())
	assert.False(t, RoleUser.Elevated())
}

func TestUserHasTask(t *testing.T) {
	u := &User{Tasks: []string{"t1", "t2"}}
	assert.True(t, u.HasTask("t1"))
	assert.False(t, u.HasTask("t3"))
}
