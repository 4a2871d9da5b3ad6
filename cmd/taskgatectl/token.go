package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/taskgate/backend/pkg/token"
	boltRepo "github.com/taskgate/backend/repository/bolt"
)

var tokenCmd = &cobra.Command{
	Use:   "token <user-id>",
	Short: "Mint a token snapshotting the user's current permissions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, cfg, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		users := boltRepo.NewUserRepository(store)
		user, err := users.GetByID(context.Background(), args[0])
		if err != nil {
			return err
		}

		issuer := token.NewIssuer(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.TTL)
		signed, err := issuer.Issue(user)
		if err != nil {
			return err
		}

		cmd.Println(signed)
		return nil
	},
}
