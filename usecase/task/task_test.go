package task

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskgate/backend/domain"
	"github.com/taskgate/backend/internal/infrastructure/docstore"
	"github.com/taskgate/backend/internal/infrastructure/journal"
	"github.com/taskgate/backend/repository"
	boltRepo "github.com/taskgate/backend/repository/bolt"
	"github.com/taskgate/backend/usecase/xref"
)

type env struct {
	users repository.UserRepository
	tasks repository.TaskRepository
	uc    *UseCase
}

func newEnv(t *testing.T) *env {
	t.Helper()
	store, err := docstore.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	users := boltRepo.NewUserRepository(store)
	tasks := boltRepo.NewTaskRepository(store)
	sync := xref.New(users, tasks, journal.New(store), 2, nil)
	return &env{
		users: users,
		tasks: tasks,
		uc:    New(tasks, users, sync, nil),
	}
}

func (e *env) seedUser(t *testing.T, id, username string) {
	t.Helper()
	require.NoError(t, e.users.Create(context.Background(), &domain.User{
		ID:          id,
		Username:    username,
		Role:        domain.RoleUser,
		IsActive:    true,
		Permissions: domain.DefaultPermissions(),
		Tasks:       []string{},
	}))
}

func ident(id string, role domain.Role, caps ...domain.Capability) *domain.Identity {
	return &domain.Identity{ID: id, Username: id, Role: role, Permissions: caps}
}

func TestCreateAttachesBothSides(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seedUser(t, "alice", "alice")

	task, err := e.uc.Create(ctx, ident("a1", domain.RoleAdmin, domain.CapAddTask), "Draft release notes", "the hard part", []string{"alice"})
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Equal(t, domain.StatusPending, task.Status)
	assert.Equal(t, []string{"alice"}, task.AssignedTo)

	alice, err := e.users.GetByID(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{task.ID}, alice.Tasks)
}

func TestCreateRequiresAddTaskCapability(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seedUser(t, "alice", "alice")

	_, err := e.uc.Create(ctx, ident("a1", domain.RoleAdmin), "Draft release notes", "", []string{"alice"})
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeForbidden))
}

func TestCreateIsAllOrNothing(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seedUser(t, "alice", "alice")

	_, err := e.uc.Create(ctx, ident("a1", domain.RoleAdmin, domain.CapAddTask), "Draft release notes", "", []string{"alice", "ghost"})
	require.Error(t, err)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeNotFound))

	// No task persisted, no reference attached.
	tasks, err := e.tasks.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, tasks)

	alice, err := e.users.GetByID(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, alice.Tasks)
}

func TestStatusOnlyPatchRidesCompleteTask(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seedUser(t, "alice", "alice")

	task, err := e.uc.Create(ctx, ident("a1", domain.RoleAdmin, domain.CapAddTask), "Draft release notes", "", []string{"alice"})
	require.NoError(t, err)

	actor := ident("alice", domain.RoleUser, domain.CapCompleteTask)

	// A full edit is beyond complete_task.
	title := "Rewrite release notes"
	_, err = e.uc.Update(ctx, actor, task.ID, Patch{Title: &title})
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeForbidden))

	// A pure status change is exactly what complete_task grants.
	done := domain.StatusCompleted
	updated, err := e.uc.Update(ctx, actor, task.ID, Patch{Status: &done})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, updated.Status)
	assert.Equal(t, "Draft release notes", updated.Title)
}

func TestStatusPlusFieldPatchNeedsEditTask(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seedUser(t, "alice", "alice")

	task, err := e.uc.Create(ctx, ident("a1", domain.RoleAdmin, domain.CapAddTask), "Draft release notes", "", []string{"alice"})
	require.NoError(t, err)

	done := domain.StatusCompleted
	title := "Rewrite release notes"
	patch := Patch{Status: &done, Title: &title}

	_, err = e.uc.Update(ctx, ident("alice", domain.RoleUser, domain.CapCompleteTask), task.ID, patch)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeForbidden))

	updated, err := e.uc.Update(ctx, ident("a1", domain.RoleAdmin, domain.CapEditTask), task.ID, patch)
	require.NoError(t, err)
	assert.Equal(t, "Rewrite release notes", updated.Title)
	assert.Equal(t, domain.StatusCompleted, updated.Status)
}

func TestUpdateResyncsAssignmentDiff(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seedUser(t, "alice", "alice")
	e.seedUser(t, "bob", "bob")
	e.seedUser(t, "carol", "carol")

	task, err := e.uc.Create(ctx, ident("a1", domain.RoleAdmin, domain.CapAddTask), "Draft release notes", "", []string{"alice", "bob"})
	require.NoError(t, err)

	next := []string{"bob", "carol"}
	_, err = e.uc.Update(ctx, ident("a1", domain.RoleAdmin, domain.CapEditTask), task.ID, Patch{AssignedTo: &next})
	require.NoError(t, err)

	alice, _ := e.users.GetByID(ctx, "alice")
	bob, _ := e.users.GetByID(ctx, "bob")
	carol, _ := e.users.GetByID(ctx, "carol")
	assert.False(t, alice.HasTask(task.ID))
	assert.True(t, bob.HasTask(task.ID))
	assert.True(t, carol.HasTask(task.ID))
}

func TestUpdateRejectsUnresolvedAssignees(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seedUser(t, "alice", "alice")

	task, err := e.uc.Create(ctx, ident("a1", domain.RoleAdmin, domain.CapAddTask), "Draft release notes", "", []string{"alice"})
	require.NoError(t, err)

	next := []string{"ghost"}
	_, err = e.uc.Update(ctx, ident("a1", domain.RoleAdmin, domain.CapEditTask), task.ID, Patch{AssignedTo: &next})
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeNotFound))

	// Assignment unchanged.
	got, err := e.tasks.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, got.AssignedTo)
}

func TestDeleteDetachesFromAssignees(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seedUser(t, "alice", "alice")
	e.seedUser(t, "bob", "bob")

	task, err := e.uc.Create(ctx, ident("a1", domain.RoleAdmin, domain.CapAddTask), "Draft release notes", "", []string{"alice", "bob"})
	require.NoError(t, err)

	err = e.uc.Delete(ctx, ident("a1", domain.RoleAdmin), task.ID)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeForbidden), "delete needs delete_task")

	require.NoError(t, e.uc.Delete(ctx, ident("a1", domain.RoleAdmin, domain.CapDeleteTask), task.ID))

	_, err = e.tasks.GetByID(ctx, task.ID)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeNotFound))

	alice, _ := e.users.GetByID(ctx, "alice")
	bob, _ := e.users.GetByID(ctx, "bob")
	assert.Empty(t, alice.Tasks)
	assert.Empty(t, bob.Tasks)
}

func TestGetEnforcesOwnership(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seedUser(t, "alice", "alice")
	e.seedUser(t, "bob", "bob")

	task, err := e.uc.Create(ctx, ident("a1", domain.RoleAdmin, domain.CapAddTask), "Draft release notes", "", []string{"alice"})
	require.NoError(t, err)

	_, err = e.uc.Get(ctx, ident("bob", domain.RoleUser, domain.CapCompleteTask), task.ID)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeForbidden))

	got, err := e.uc.Get(ctx, ident("alice", domain.RoleUser, domain.CapCompleteTask), task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.ID, got.ID)

	got, err = e.uc.Get(ctx, ident("s1", domain.RoleSuperuser), task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.ID, got.ID)
}

func TestListScopesByRole(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seedUser(t, "alice", "alice")
	e.seedUser(t, "bob", "bob")

	admin := ident("a1", domain.RoleAdmin, domain.CapAddTask)
	_, err := e.uc.Create(ctx, admin, "for alice", "", []string{"alice"})
	require.NoError(t, err)
	_, err = e.uc.Create(ctx, admin, "for bob", "", []string{"bob"})
	require.NoError(t, err)

	all, err := e.uc.List(ctx, ident("a1", domain.RoleAdmin))
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mine, err := e.uc.List(ctx, ident("alice", domain.RoleUser))
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "for alice", mine[0].Title)
	assert.Equal(t, []string{"alice"}, mine[0].Assignees)
}

func TestListResolvesAssigneeUsernames(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seedUser(t, "id-1", "alice")
	e.seedUser(t, "id-2", "bob")

	admin := ident("a1", domain.RoleAdmin, domain.CapAddTask)
	_, err := e.uc.Create(ctx, admin, "shared", "", []string{"id-1", "id-2"})
	require.NoError(t, err)

	all, err := e.uc.List(ctx, ident("a1", domain.RoleAdmin))
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.ElementsMatch(t, []string{"alice", "bob"}, all[0].Assignees)
}

func TestListUnassignedRequiresElevatedRole(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	require.NoError(t, e.tasks.Create(ctx, &domain.Task{
		ID:         "t1",
		Title:      "orphaned",
		Status:     domain.StatusPending,
		AssignedTo: []string{},
	}))

	_, err := e.uc.ListUnassigned(ctx, ident("u1", domain.RoleUser))
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeForbidden))

	orphans, err := e.uc.ListUnassigned(ctx, ident("a1", domain.RoleAdmin))
	require.NoError(t, err)
	require.Len(t, orphans, 1)
	assert.Equal(t, "orphaned", orphans[0].Title)
}
