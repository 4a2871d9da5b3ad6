package auth

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/taskgate/backend/domain"
	"github.com/taskgate/backend/pkg/token"
	"github.com/taskgate/backend/repository"
)

type UseCase struct {
	users  repository.UserRepository
	issuer *token.Issuer
	logger *zap.Logger
}

func New(users repository.UserRepository, issuer *token.Issuer, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		users:  users,
		issuer: issuer,
		logger: logger,
	}
}

// Register creates an account with the fixed defaults: role user, active,
// permissions {complete_task}, no tasks. Registration is public; elevated
// roles and extra capabilities are granted later by privileged actors.
func (uc *UseCase) Register(ctx context.Context, username, password string) (*domain.User, error) {
	if username == "" || password == "" {
		return nil, domain.NewError(domain.ErrCodeInvalid, "username and password are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeInternal, "failed to hash password", err)
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: string(hash),
		Role:         domain.RoleUser,
		IsActive:     true,
		Permissions:  domain.DefaultPermissions(),
		Tasks:        []string{},
	}

	if err := uc.users.Create(ctx, user); err != nil {
		return nil, err
	}

	uc.logger.Info("user registered", zap.String("user_id", user.ID))
	return user, nil
}

// Login verifies credentials and issues a token snapshotting the user's
// role and permission set. The snapshot is authoritative for the token's
// lifetime; permission edits take effect on the next login.
func (uc *UseCase) Login(ctx context.Context, username, password string) (string, *domain.User, error) {
	if username == "" || password == "" {
		return "", nil, domain.NewError(domain.ErrCodeInvalid, "username and password are required")
	}

	user, err := uc.users.GetByUsername(ctx, username)
	if err != nil {
		if domain.IsDomainError(err, domain.ErrCodeNotFound) {
			return "", nil, domain.NewError(domain.ErrCodeUnauthorized, "invalid credentials")
		}
		return "", nil, err
	}

	if !user.IsActive {
		return "", nil, domain.NewForbidden("account is disabled")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, domain.NewError(domain.ErrCodeUnauthorized, "invalid credentials")
	}

	signed, err := uc.issuer.Issue(user)
	if err != nil {
		return "", nil, domain.WrapError(domain.ErrCodeInternal, "failed to issue token", err)
	}

	uc.logger.Info("user logged in", zap.String("user_id", user.ID))
	return signed, user, nil
}
