package repository

import (
	"context"

	"github.com/taskgate/backend/domain"
)

type TaskRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Task, error)
	List(ctx context.Context) ([]domain.Task, error)
	ListByAssignee(ctx context.Context, userID string) ([]domain.Task, error)
	ListUnassigned(ctx context.Context) ([]domain.Task, error)
	Create(ctx context.Context, task *domain.Task) error
	Update(ctx context.Context, task *domain.Task) error
	Delete(ctx context.Context, id string) error

	// RemoveAssignee is an idempotent single-document mutation of
	// task.assigned_to. A task left with no assignees is kept.
	RemoveAssignee(ctx context.Context, taskID, userID string) error
}
