package repository

import (
	"context"

	"github.com/taskgate/backend/domain"
)

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	Delete(ctx context.Context, id string) error

	// AddTaskRef and RemoveTaskRef are idempotent single-document
	// mutations of user.tasks, used by the synchronizer for second-side
	// writes. Removing an absent id and adding a present id are no-ops.
	AddTaskRef(ctx context.Context, userID, taskID string) error
	RemoveTaskRef(ctx context.Context, userID, taskID string) error
}
