package main

import (
	"context"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/taskgate/backend/domain"
	boltRepo "github.com/taskgate/backend/repository/bolt"
)

// seedAdminCmd bootstraps the first admin. Registration only ever creates
// plain users, so without this there is no actor able to grant anything.
var seedAdminCmd = &cobra.Command{
	Use:   "seed-admin <username> <password>",
	Short: "Create an admin account holding every capability",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		hash, err := bcrypt.GenerateFromPassword([]byte(args[1]), bcrypt.DefaultCost)
		if err != nil {
			return err
		}

		admin := &domain.User{
			ID:           uuid.NewString(),
			Username:     args[0],
			PasswordHash: string(hash),
			Role:         domain.RoleAdmin,
			IsActive:     true,
			Permissions:  domain.AllCapabilities,
			Tasks:        []string{},
		}

		users := boltRepo.NewUserRepository(store)
		if err := users.Create(context.Background(), admin); err != nil {
			return err
		}

		cmd.Printf("admin %q created with id %s\n", admin.Username, admin.ID)
		return nil
	},
}
