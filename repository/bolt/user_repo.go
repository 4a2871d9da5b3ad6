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

// storedUser is the persisted shape. The password hash is excluded from the
// domain struct's JSON on purpose, so storage re-adds it here.
type storedUser struct {
	domain.User
	PasswordHash string `json:"password_hash"`
}

func encodeUser(u *domain.User) storedUser {
	return storedUser{User: *u, PasswordHash: u.PasswordHash}
}

func (s storedUser) decode() domain.User {
	u := s.User
	u.PasswordHash = s.PasswordHash
	return u
}

type userRepository struct {
	store *docstore.Store
}

// NewUserRepository instantiates a Bolt-backed user repository.
func NewUserRepository(store *docstore.Store) repository.UserRepository {
	return &userRepository{store: store}
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var stored storedUser
	var found bool
	err := r.store.View(func(tx *bolt.Tx) error {
		var err error
		found, err = getJSON(tx.Bucket([]byte(docstore.BucketUsers)), id, &stored)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, domain.ErrUserNotFound
	}
	user := stored.decode()
	return &user, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	var stored storedUser
	var found bool
	err := r.store.View(func(tx *bolt.Tx) error {
		id := tx.Bucket([]byte(docstore.BucketUsernames)).Get([]byte(username))
		if id == nil {
			return nil
		}
		var err error
		found, err = getJSON(tx.Bucket([]byte(docstore.BucketUsers)), string(id), &stored)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, domain.ErrUserNotFound
	}
	user := stored.decode()
	return &user, nil
}

func (r *userRepository) List(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	err := r.store.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(docstore.BucketUsers)).ForEach(func(k, v []byte) error {
			var stored storedUser
			if err := json.Unmarshal(v, &stored); err != nil {
				return err
			}
			users = append(users, stored.decode())
			return nil
		})
	})
	return users, err
}

// Create persists the user and claims its username in the index bucket in
// the same transaction, which is what makes usernames unique. The match is
// case-sensitive and exact.
func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	if user == nil || user.ID == "" || user.Username == "" {
		return domain.ErrInvalidPayload
	}
	user.NormalizePermissions()
	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	return r.store.Update(func(tx *bolt.Tx) error {
		names := tx.Bucket([]byte(docstore.BucketUsernames))
		if names.Get([]byte(user.Username)) != nil {
			return domain.ErrUsernameTaken
		}
		if err := names.Put([]byte(user.Username), []byte(user.ID)); err != nil {
			return err
		}
		return putJSON(tx.Bucket([]byte(docstore.BucketUsers)), user.ID, encodeUser(user))
	})
}

// Update rewrites the user document. The username is immutable; a patch
// that changes it is rejected rather than desyncing the index bucket.
func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	if user == nil || user.ID == "" {
		return domain.ErrInvalidPayload
	}
	user.NormalizePermissions()
	user.UpdatedAt = time.Now()

	return r.store.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(docstore.BucketUsers))
		var existing storedUser
		found, err := getJSON(bucket, user.ID, &existing)
		if err != nil {
			return err
		}
		if !found {
			return domain.ErrUserNotFound
		}
		if user.Username != existing.Username {
			return domain.NewError(domain.ErrCodeInvalid, "username is immutable")
		}
		if user.PasswordHash == "" {
			user.PasswordHash = existing.PasswordHash
		}
		return putJSON(bucket, user.ID, encodeUser(user))
	})
}

func (r *userRepository) Delete(ctx context.Context, id string) error {
	return r.store.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(docstore.BucketUsers))
		var stored storedUser
		found, err := getJSON(bucket, id, &stored)
		if err != nil {
			return err
		}
		if !found {
			return domain.ErrUserNotFound
		}
		if err := tx.Bucket([]byte(docstore.BucketUsernames)).Delete([]byte(stored.Username)); err != nil {
			return err
		}
		return bucket.Delete([]byte(id))
	})
}

func (r *userRepository) AddTaskRef(ctx context.Context, userID, taskID string) error {
	return r.mutateTaskRefs(userID, func(user *domain.User) bool {
		if user.HasTask(taskID) {
			return false
		}
		user.Tasks = append(user.Tasks, taskID)
		return true
	})
}

func (r *userRepository) RemoveTaskRef(ctx context.Context, userID, taskID string) error {
	return r.mutateTaskRefs(userID, func(user *domain.User) bool {
		if !user.HasTask(taskID) {
			return false
		}
		user.Tasks = without(user.Tasks, taskID)
		return true
	})
}

func (r *userRepository) mutateTaskRefs(userID string, mutate func(*domain.User) bool) error {
	return r.store.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(docstore.BucketUsers))
		var stored storedUser
		found, err := getJSON(bucket, userID, &stored)
		if err != nil {
			return err
		}
		if !found {
			return domain.ErrUserNotFound
		}
		user := stored.decode()
		if !mutate(&user) {
			return nil
		}
		user.UpdatedAt = time.Now()
		return putJSON(bucket, userID, encodeUser(&user))
	})
}
