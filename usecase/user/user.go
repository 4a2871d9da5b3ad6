package user

import (
	"context"

	"go.uber.org/zap"

	"github.com/taskgate/backend/domain"
	"github.com/taskgate/backend/repository"
	"github.com/taskgate/backend/usecase/xref"
)

type UseCase struct {
	users  repository.UserRepository
	sync   *xref.Synchronizer
	logger *zap.Logger
}

func New(users repository.UserRepository, sync *xref.Synchronizer, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		users:  users,
		sync:   sync,
		logger: logger,
	}
}

// Patch carries the mutable user fields. The username is not among them.
type Patch struct {
	Role        *domain.Role
	IsActive    *bool
	Permissions *[]domain.Capability
}

func (uc *UseCase) List(ctx context.Context, actor *domain.Identity) ([]domain.User, error) {
	if actor == nil || !actor.Role.Elevated() {
		return nil, domain.NewForbidden("not permitted to list users")
	}
	return uc.users.List(ctx)
}

func (uc *UseCase) Get(ctx context.Context, actor *domain.Identity, id string) (*domain.User, error) {
	if actor == nil {
		return nil, domain.ErrUnauthorized
	}
	if !actor.Role.Elevated() && actor.ID != id {
		return nil, domain.NewForbidden("not permitted to view this user")
	}
	return uc.users.GetByID(ctx, id)
}

// Update applies a patch to the target user. Requires edit_user. Admin
// targets are only editable by admin actors, and only an admin actor may
// grant the admin role.
func (uc *UseCase) Update(ctx context.Context, actor *domain.Identity, id string, patch Patch) (*domain.User, error) {
	if !actor.Can(domain.CapEditUser) {
		return nil, domain.NewForbidden("not permitted to edit user")
	}

	target, err := uc.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if target.Role == domain.RoleAdmin && actor.Role != domain.RoleAdmin {
		return nil, domain.NewForbidden("admin accounts can only be edited by admins")
	}

	if patch.Role != nil {
		if !patch.Role.Valid() {
			return nil, domain.NewError(domain.ErrCodeInvalid, "unknown role")
		}
		if *patch.Role == domain.RoleAdmin && actor.Role != domain.RoleAdmin {
			return nil, domain.NewForbidden("only admins may grant the admin role")
		}
		target.Role = *patch.Role
	}
	if patch.IsActive != nil {
		target.IsActive = *patch.IsActive
	}
	if patch.Permissions != nil {
		target.Permissions = domain.NormalizeCapabilities(*patch.Permissions)
	}

	if err := uc.users.Update(ctx, target); err != nil {
		return nil, err
	}
	return target, nil
}

// Delete removes the target user and repairs every task that referenced
// it. Requires delete_user. Admin accounts are never deletable, and a
// superuser cannot delete another superuser.
func (uc *UseCase) Delete(ctx context.Context, actor *domain.Identity, id string) error {
	if !actor.Can(domain.CapDeleteUser) {
		return domain.NewForbidden("not permitted to delete user")
	}

	target, err := uc.users.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if target.Role == domain.RoleAdmin {
		return domain.NewForbidden("admin accounts cannot be deleted")
	}
	if actor.Role == domain.RoleSuperuser && target.Role == domain.RoleSuperuser {
		return domain.NewForbidden("superusers cannot delete other superusers")
	}

	// Detach before deleting the record so a crash in between leaves a
	// resolvable user rather than assignments pointing nowhere.
	syncErr := uc.sync.DetachUser(ctx, target)

	if err := uc.users.Delete(ctx, id); err != nil {
		return err
	}

	uc.logger.Info("user deleted",
		zap.String("user_id", id),
		zap.Int("detached_tasks", len(target.Tasks)))
	return syncErr
}

// SetPermissions replaces the target's permission set. Requires
// edit_permission, and the target must hold an elevated role: plain
// users' set is fixed at the default. An empty set is coerced back to
// the default, never persisted.
func (uc *UseCase) SetPermissions(ctx context.Context, actor *domain.Identity, id string, caps []domain.Capability) (*domain.User, error) {
	if !actor.Can(domain.CapEditPermission) {
		return nil, domain.NewForbidden("not permitted to edit permissions")
	}

	target, err := uc.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if target.Role == domain.RoleUser {
		return nil, domain.NewForbidden("plain user permissions are fixed")
	}
	if target.Role == domain.RoleAdmin && actor.Role != domain.RoleAdmin {
		return nil, domain.NewForbidden("admin permissions can only be edited by admins")
	}

	target.Permissions = domain.NormalizeCapabilities(caps)

	if err := uc.users.Update(ctx, target); err != nil {
		return nil, err
	}
	return target, nil
}
