package task

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taskgate/backend/domain"
	"github.com/taskgate/backend/repository"
	"github.com/taskgate/backend/usecase/xref"
)

type UseCase struct {
	tasks  repository.TaskRepository
	users  repository.UserRepository
	sync   *xref.Synchronizer
	logger *zap.Logger
}

func New(tasks repository.TaskRepository, users repository.UserRepository, sync *xref.Synchronizer, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		tasks:  tasks,
		users:  users,
		sync:   sync,
		logger: logger,
	}
}

// Patch carries the mutable task fields. A patch touching only Status
// rides the complete_task path; anything else needs edit_task.
type Patch struct {
	Title       *string
	Description *string
	Status      *domain.Status
	AssignedTo  *[]string
}

func (p Patch) statusOnly() bool {
	return p.Status != nil && p.Title == nil && p.Description == nil && p.AssignedTo == nil
}

// View is a task with assignee identities resolved for display.
type View struct {
	domain.Task
	Assignees []string `json:"assignees"`
}

// Create persists a task and attaches it to every assignee. Requires
// add_task. Every assignee must resolve to an existing user or nothing is
// written at all.
func (uc *UseCase) Create(ctx context.Context, actor *domain.Identity, title, description string, assignedTo []string) (*domain.Task, error) {
	if !actor.Can(domain.CapAddTask) {
		return nil, domain.NewForbidden("not permitted to add task")
	}
	if title == "" {
		return nil, domain.NewError(domain.ErrCodeInvalid, "title is required")
	}
	assignedTo = dedupe(assignedTo)
	if len(assignedTo) == 0 {
		return nil, domain.NewError(domain.ErrCodeInvalid, "at least one assignee is required")
	}

	for _, userID := range assignedTo {
		if _, err := uc.users.GetByID(ctx, userID); err != nil {
			if domain.IsDomainError(err, domain.ErrCodeNotFound) {
				return nil, domain.NewError(domain.ErrCodeNotFound, "one or more users not found")
			}
			return nil, err
		}
	}

	task := &domain.Task{
		ID:          uuid.NewString(),
		Title:       title,
		Description: description,
		Status:      domain.StatusPending,
		AssignedTo:  assignedTo,
	}
	if err := uc.tasks.Create(ctx, task); err != nil {
		return nil, err
	}

	var syncErr error
	for _, userID := range assignedTo {
		if err := uc.sync.Attach(ctx, userID, task.ID); err != nil {
			syncErr = err
		}
	}

	uc.logger.Info("task created",
		zap.String("task_id", task.ID),
		zap.Int("assignees", len(assignedTo)))
	return task, syncErr
}

// Update applies a patch. A status-only patch is allowed to anyone holding
// complete_task; a full edit requires edit_task and re-runs the
// synchronizer over the assignment diff.
func (uc *UseCase) Update(ctx context.Context, actor *domain.Identity, id string, patch Patch) (*domain.Task, error) {
	if patch.statusOnly() {
		if !actor.Can(domain.CapCompleteTask) {
			return nil, domain.NewForbidden("not permitted to change task status")
		}
		return uc.setStatus(ctx, id, *patch.Status)
	}

	if !actor.Can(domain.CapEditTask) {
		return nil, domain.NewForbidden("not permitted to edit task")
	}

	task, err := uc.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Title != nil {
		if *patch.Title == "" {
			return nil, domain.NewError(domain.ErrCodeInvalid, "title is required")
		}
		task.Title = *patch.Title
	}
	if patch.Description != nil {
		task.Description = *patch.Description
	}
	if patch.Status != nil {
		if !patch.Status.Valid() {
			return nil, domain.NewError(domain.ErrCodeInvalid, "unknown status")
		}
		task.Status = *patch.Status
	}

	oldAssignees := task.AssignedTo
	if patch.AssignedTo != nil {
		next := dedupe(*patch.AssignedTo)
		for _, userID := range next {
			if _, err := uc.users.GetByID(ctx, userID); err != nil {
				if domain.IsDomainError(err, domain.ErrCodeNotFound) {
					return nil, domain.NewError(domain.ErrCodeNotFound, "one or more users not found")
				}
				return nil, err
			}
		}
		task.AssignedTo = next
	}

	if err := uc.tasks.Update(ctx, task); err != nil {
		return nil, err
	}

	var syncErr error
	if patch.AssignedTo != nil {
		syncErr = uc.sync.Resync(ctx, task.ID, oldAssignees, task.AssignedTo)
	}
	return task, syncErr
}

// Delete removes the task and detaches it from every assignee. Requires
// delete_task.
func (uc *UseCase) Delete(ctx context.Context, actor *domain.Identity, id string) error {
	if !actor.Can(domain.CapDeleteTask) {
		return domain.NewForbidden("not permitted to delete task")
	}

	task, err := uc.tasks.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := uc.tasks.Delete(ctx, id); err != nil {
		return err
	}

	syncErr := uc.sync.DetachTask(ctx, task)

	uc.logger.Info("task deleted", zap.String("task_id", id))
	return syncErr
}

// Get fetches one task. Elevated roles may fetch any task; a plain user
// only one they are assigned to.
func (uc *UseCase) Get(ctx context.Context, actor *domain.Identity, id string) (*domain.Task, error) {
	if actor == nil {
		return nil, domain.ErrUnauthorized
	}

	task, err := uc.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !actor.Role.Elevated() && !task.HasAssignee(actor.ID) {
		return nil, domain.NewForbidden("not permitted to view this task")
	}
	return task, nil
}

// List returns all tasks with resolved assignee usernames for elevated
// roles, and only the actor's own tasks otherwise.
func (uc *UseCase) List(ctx context.Context, actor *domain.Identity) ([]View, error) {
	if actor == nil {
		return nil, domain.ErrUnauthorized
	}

	var (
		tasks []domain.Task
		err   error
	)
	if actor.Role.Elevated() {
		tasks, err = uc.tasks.List(ctx)
	} else {
		tasks, err = uc.tasks.ListByAssignee(ctx, actor.ID)
	}
	if err != nil {
		return nil, err
	}
	return uc.resolve(ctx, tasks)
}

// ListUnassigned surfaces tasks whose assignee list emptied after user
// deletions, so admins can re-assign them.
func (uc *UseCase) ListUnassigned(ctx context.Context, actor *domain.Identity) ([]View, error) {
	if actor == nil || !actor.Role.Elevated() {
		return nil, domain.NewForbidden("not permitted to list unassigned tasks")
	}
	tasks, err := uc.tasks.ListUnassigned(ctx)
	if err != nil {
		return nil, err
	}
	return uc.resolve(ctx, tasks)
}

func (uc *UseCase) setStatus(ctx context.Context, id string, status domain.Status) (*domain.Task, error) {
	if !status.Valid() {
		return nil, domain.NewError(domain.ErrCodeInvalid, "unknown status")
	}
	task, err := uc.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	task.Status = status
	if err := uc.tasks.Update(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// resolve is a read-time join of assignee ids to usernames. Ids pointing
// at since-deleted users are skipped, not errors.
func (uc *UseCase) resolve(ctx context.Context, tasks []domain.Task) ([]View, error) {
	users, err := uc.users.List(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Username
	}

	views := make([]View, 0, len(tasks))
	for _, t := range tasks {
		view := View{Task: t, Assignees: []string{}}
		for _, userID := range t.AssignedTo {
			if name, ok := names[userID]; ok {
				view.Assignees = append(view.Assignees, name)
			}
		}
		views = append(views, view)
	}
	return views, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
