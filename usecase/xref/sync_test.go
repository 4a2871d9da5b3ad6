package xref

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskgate/backend/domain"
	"github.com/taskgate/backend/internal/infrastructure/docstore"
	"github.com/taskgate/backend/internal/infrastructure/journal"
	"github.com/taskgate/backend/internal/services"
	"github.com/taskgate/backend/repository"
	boltRepo "github.com/taskgate/backend/repository/bolt"
)

type env struct {
	users   repository.UserRepository
	tasks   repository.TaskRepository
	journal *journal.Journal
	sync    *Synchronizer
}

func newEnv(t *testing.T) *env {
	t.Helper()
	store, err := docstore.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	users := boltRepo.NewUserRepository(store)
	tasks := boltRepo.NewTaskRepository(store)
	jrnl := journal.New(store)
	return &env{
		users:   users,
		tasks:   tasks,
		journal: jrnl,
		sync:    New(users, tasks, jrnl, 2, nil),
	}
}

func (e *env) addUser(t *testing.T, id, username string) {
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

func (e *env) addTask(t *testing.T, id string, assignees ...string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, e.tasks.Create(ctx, &domain.Task{
		ID:         id,
		Title:      "task " + id,
		Status:     domain.StatusPending,
		AssignedTo: assignees,
	}))
	for _, userID := range assignees {
		require.NoError(t, e.sync.Attach(ctx, userID, id))
	}
}

// requireConsistent asserts the bidirectional invariant over the whole
// store: a user lists a task exactly when the task lists the user.
func (e *env) requireConsistent(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	users, err := e.users.List(ctx)
	require.NoError(t, err)
	tasks, err := e.tasks.List(ctx)
	require.NoError(t, err)

	byID := make(map[string]domain.Task, len(tasks))
	for _, task := range tasks {
		byID[task.ID] = task
	}
	for _, user := range users {
		for _, taskID := range user.Tasks {
			task, ok := byID[taskID]
			require.True(t, ok, "user %s references missing task %s", user.ID, taskID)
			assert.True(t, task.HasAssignee(user.ID), "task %s does not reference user %s back", taskID, user.ID)
		}
	}
	for _, task := range tasks {
		for _, userID := range task.AssignedTo {
			for _, user := range users {
				if user.ID == userID {
					assert.True(t, user.HasTask(task.ID), "user %s does not reference task %s back", userID, task.ID)
				}
			}
		}
	}
}

func TestAttachIsIdempotent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.addUser(t, "u1", "alice")
	e.addTask(t, "t1", "u1")

	require.NoError(t, e.sync.Attach(ctx, "u1", "t1"))

	user, err := e.users.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"t1"}, user.Tasks)
	e.requireConsistent(t)
}

func TestResyncAppliesSymmetricDifference(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.addUser(t, "alice", "alice")
	e.addUser(t, "bob", "bob")
	e.addUser(t, "carol", "carol")
	e.addTask(t, "t1", "alice", "bob")

	// First side: the task record now says [bob, carol].
	task, err := e.tasks.GetByID(ctx, "t1")
	require.NoError(t, err)
	task.AssignedTo = []string{"bob", "carol"}
	require.NoError(t, e.tasks.Update(ctx, task))

	require.NoError(t, e.sync.Resync(ctx, "t1", []string{"alice", "bob"}, []string{"bob", "carol"}))

	alice, _ := e.users.GetByID(ctx, "alice")
	bob, _ := e.users.GetByID(ctx, "bob")
	carol, _ := e.users.GetByID(ctx, "carol")
	assert.False(t, alice.HasTask("t1"))
	assert.True(t, bob.HasTask("t1"))
	assert.True(t, carol.HasTask("t1"))
	e.requireConsistent(t)
}

func TestResyncIsIdempotent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.addUser(t, "alice", "alice")
	e.addUser(t, "bob", "bob")
	e.addTask(t, "t1", "alice")

	task, err := e.tasks.GetByID(ctx, "t1")
	require.NoError(t, err)
	task.AssignedTo = []string{"bob"}
	require.NoError(t, e.tasks.Update(ctx, task))

	require.NoError(t, e.sync.Resync(ctx, "t1", []string{"alice"}, []string{"bob"}))

	first, err := e.users.List(ctx)
	require.NoError(t, err)

	require.NoError(t, e.sync.Resync(ctx, "t1", []string{"alice"}, []string{"bob"}))

	second, err := e.users.List(ctx)
	require.NoError(t, err)

	for i := range first {
		assert.Equal(t, first[i].Tasks, second[i].Tasks)
	}
	e.requireConsistent(t)
}

func TestDetachUserClearsAssignmentsButKeepsTasks(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.addUser(t, "alice", "alice")
	e.addTask(t, "t1", "alice")
	e.addTask(t, "t2", "alice")

	alice, err := e.users.GetByID(ctx, "alice")
	require.NoError(t, err)

	require.NoError(t, e.sync.DetachUser(ctx, alice))
	require.NoError(t, e.users.Delete(ctx, "alice"))

	for _, id := range []string{"t1", "t2"} {
		task, err := e.tasks.GetByID(ctx, id)
		require.NoError(t, err, "task %s must survive its assignee", id)
		assert.Empty(t, task.AssignedTo)
	}
	e.requireConsistent(t)
}

func TestDetachTaskClearsUserReferences(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.addUser(t, "alice", "alice")
	e.addUser(t, "bob", "bob")
	e.addTask(t, "t1", "alice", "bob")

	task, err := e.tasks.GetByID(ctx, "t1")
	require.NoError(t, err)
	require.NoError(t, e.tasks.Delete(ctx, "t1"))

	require.NoError(t, e.sync.DetachTask(ctx, task))

	alice, _ := e.users.GetByID(ctx, "alice")
	bob, _ := e.users.GetByID(ctx, "bob")
	assert.Empty(t, alice.Tasks)
	assert.Empty(t, bob.Tasks)
}

// flakyUsers fails AddTaskRef a configurable number of times before
// delegating, to exercise the retry-then-journal path.
type flakyUsers struct {
	repository.UserRepository
	failures int
}

func (f *flakyUsers) AddTaskRef(ctx context.Context, userID, taskID string) error {
	if f.failures > 0 {
		f.failures--
		return errors.New("store offline")
	}
	return f.UserRepository.AddTaskRef(ctx, userID, taskID)
}

func TestAttachJournalsAfterRetryExhaustionAndSweepRepairs(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.addUser(t, "alice", "alice")
	require.NoError(t, e.tasks.Create(ctx, &domain.Task{
		ID:         "t1",
		Title:      "task t1",
		Status:     domain.StatusPending,
		AssignedTo: []string{"alice"},
	}))

	flaky := &flakyUsers{UserRepository: e.users, failures: 10}
	sync := New(flaky, e.tasks, e.journal, 2, nil)

	err := sync.Attach(ctx, "alice", "t1")
	require.Error(t, err)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodePartialUpdate))

	size, err := e.journal.Size()
	require.NoError(t, err)
	assert.Equal(t, 1, size)

	// The sweep finishes the repair once the store cooperates again.
	reconciler := services.NewReconciler(e.journal, e.users, e.tasks, nil, services.ReconcilerConfig{})
	require.NoError(t, reconciler.Drain(ctx))

	alice, err := e.users.GetByID(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, alice.HasTask("t1"))

	size, err = e.journal.Size()
	require.NoError(t, err)
	assert.Zero(t, size)
	e.requireConsistent(t)
}
