// Package xref keeps the denormalized user/task references consistent:
// for every task T and user U, U is in T.assigned_to exactly when T is in
// U.tasks. The store only guarantees per-document atomicity, so every
// cross-record change is a two-sided write; this package owns the second
// side and its repair protocol.
package xref

import (
	"context"

	"go.uber.org/zap"

	"github.com/taskgate/backend/domain"
	"github.com/taskgate/backend/internal/infrastructure/journal"
	"github.com/taskgate/backend/repository"
)

// Synchronizer applies second-side reference writes. Every operation is
// idempotent: removing an absent reference and adding a present one are
// no-ops, so a retry or a sweep replay never corrupts state.
type Synchronizer struct {
	users   repository.UserRepository
	tasks   repository.TaskRepository
	journal *journal.Journal
	logger  *zap.Logger
	retries int
}

func New(users repository.UserRepository, tasks repository.TaskRepository, jrnl *journal.Journal, retries int, logger *zap.Logger) *Synchronizer {
	if retries <= 0 {
		retries = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synchronizer{
		users:   users,
		tasks:   tasks,
		journal: jrnl,
		logger:  logger,
		retries: retries,
	}
}

// Attach records taskID in the user's task list. The reciprocal
// assigned_to entry is the caller's first-side write and must already be
// persisted.
func (s *Synchronizer) Attach(ctx context.Context, userID, taskID string) error {
	return s.apply(ctx, journal.OpAttach, userID, taskID)
}

// DetachUser removes the deleted user from every task it was assigned to.
// Tasks whose assignee list empties are kept: an unassigned task is valid
// state, surfaced to admins for re-assignment.
func (s *Synchronizer) DetachUser(ctx context.Context, user *domain.User) error {
	if user == nil {
		return domain.ErrInvalidPayload
	}
	var failed error
	for _, taskID := range user.Tasks {
		if err := s.apply(ctx, journal.OpDetachAssignee, user.ID, taskID); err != nil {
			failed = err
		}
	}
	return failed
}

// DetachTask removes the deleted task from every assignee's task list.
func (s *Synchronizer) DetachTask(ctx context.Context, task *domain.Task) error {
	if task == nil {
		return domain.ErrInvalidPayload
	}
	var failed error
	for _, userID := range task.AssignedTo {
		if err := s.apply(ctx, journal.OpDetachTaskRef, userID, task.ID); err != nil {
			failed = err
		}
	}
	return failed
}

// Resync reconciles user task lists after a task's assignment set changed
// from old to next. Only the symmetric difference is touched; unaffected
// users are not written. Running it twice with the same arguments is a
// no-op on the second pass.
func (s *Synchronizer) Resync(ctx context.Context, taskID string, old, next []string) error {
	oldSet := toSet(old)
	nextSet := toSet(next)

	var failed error
	for _, userID := range old {
		if _, keep := nextSet[userID]; keep {
			continue
		}
		if err := s.apply(ctx, journal.OpDetachTaskRef, userID, taskID); err != nil {
			failed = err
		}
	}
	for _, userID := range next {
		if _, had := oldSet[userID]; had {
			continue
		}
		if err := s.apply(ctx, journal.OpAttach, userID, taskID); err != nil {
			failed = err
		}
	}
	return failed
}

// apply runs one second-side write, retrying synchronously before giving
// up. On exhaustion the write is journaled for the reconciliation sweep
// and the caller gets a partial-update error instead of a silent success.
// A missing counterpart record means there is nothing left to repair.
func (s *Synchronizer) apply(ctx context.Context, op, userID, taskID string) error {
	var lastErr error
	for attempt := 1; attempt <= s.retries; attempt++ {
		lastErr = s.execute(ctx, op, userID, taskID)
		if lastErr == nil || domain.IsDomainError(lastErr, domain.ErrCodeNotFound) {
			return nil
		}
		s.logger.Warn("reference repair attempt failed",
			zap.String("op", op),
			zap.String("user_id", userID),
			zap.String("task_id", taskID),
			zap.Int("attempt", attempt),
			zap.Error(lastErr))
	}

	if s.journal != nil {
		entry := journal.Entry{Op: op, UserID: userID, TaskID: taskID}
		if err := s.journal.Enqueue(entry); err != nil {
			s.logger.Error("failed to journal reference repair", zap.Error(err))
		}
	}
	return domain.NewPartialUpdate("cross-reference repair pending", lastErr)
}

func (s *Synchronizer) execute(ctx context.Context, op, userID, taskID string) error {
	switch op {
	case journal.OpAttach:
		return s.users.AddTaskRef(ctx, userID, taskID)
	case journal.OpDetachTaskRef:
		return s.users.RemoveTaskRef(ctx, userID, taskID)
	case journal.OpDetachAssignee:
		return s.tasks.RemoveAssignee(ctx, taskID, userID)
	default:
		return domain.ErrInvalidPayload
	}
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
