package bolt

import (
	"context"
	"encoding/json"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/taskgate/backend/domain"
	"github.com/taskgate/backend/internal/infrastructure/docstore"
	"github.com/taskgate/backend/repository"
)

type taskRepository struct {
	store *docstore.Store
}

// NewTaskRepository instantiates a Bolt-backed task repository.
func NewTaskRepository(store *docstore.Store) repository.TaskRepository {
	return &taskRepository{store: store}
}

func (r *taskRepository) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	var task domain.Task
	var found bool
	err := r.store.View(func(tx *bolt.Tx) error {
		var err error
		found, err = getJSON(tx.Bucket([]byte(docstore.BucketTasks)), id, &task)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, domain.ErrTaskNotFound
	}
	return &task, nil
}

func (r *taskRepository) List(ctx context.Context) ([]domain.Task, error) {
	return r.list(func(*domain.Task) bool { return true })
}

func (r *taskRepository) ListByAssignee(ctx context.Context, userID string) ([]domain.Task, error) {
	return r.list(func(t *domain.Task) bool { return t.HasAssignee(userID) })
}

func (r *taskRepository) ListUnassigned(ctx context.Context) ([]domain.Task, error) {
	return r.list(func(t *domain.Task) bool { return len(t.AssignedTo) == 0 })
}

func (r *taskRepository) Create(ctx context.Context, task *domain.Task) error {
	if task == nil || task.ID == "" {
		return domain.ErrInvalidPayload
	}
	now := time.Now()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = now

	return r.store.Update(func(tx *bolt.Tx) error {
		return putJSON(tx.Bucket([]byte(docstore.BucketTasks)), task.ID, task)
	})
}

func (r *taskRepository) Update(ctx context.Context, task *domain.Task) error {
	if task == nil || task.ID == "" {
		return domain.ErrInvalidPayload
	}
	task.UpdatedAt = time.Now()

	return r.store.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(docstore.BucketTasks))
		if bucket.Get([]byte(task.ID)) == nil {
			return domain.ErrTaskNotFound
		}
		return putJSON(bucket, task.ID, task)
	})
}

func (r *taskRepository) Delete(ctx context.Context, id string) error {
	return r.store.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(docstore.BucketTasks))
		if bucket.Get([]byte(id)) == nil {
			return domain.ErrTaskNotFound
		}
		return bucket.Delete([]byte(id))
	})
}

func (r *taskRepository) RemoveAssignee(ctx context.Context, taskID, userID string) error {
	return r.store.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(docstore.BucketTasks))
		var task domain.Task
		found, err := getJSON(bucket, taskID, &task)
		if err != nil {
			return err
		}
		if !found {
			return domain.ErrTaskNotFound
		}
		if !task.HasAssignee(userID) {
			return nil
		}
		task.AssignedTo = without(task.AssignedTo, userID)
		task.UpdatedAt = time.Now()
		return putJSON(bucket, taskID, &task)
	})
}

func (r *taskRepository) list(keep func(*domain.Task) bool) ([]domain.Task, error) {
	var tasks []domain.Task
	err := r.store.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(docstore.BucketTasks)).ForEach(func(k, v []byte) error {
			var task domain.Task
			if err := json.Unmarshal(v, &task); err != nil {
				return err
			}
			if keep(&task) {
				tasks = append(tasks, task)
			}
			return nil
		})
	})
	return tasks, err
}
