package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/taskgate/backend/internal/infrastructure/journal"
	"github.com/taskgate/backend/internal/services"
	boltRepo "github.com/taskgate/backend/repository/bolt"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run one reconciliation pass over the repair journal",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, cfg, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		repairJournal := journal.New(store)
		before, err := repairJournal.Size()
		if err != nil {
			return err
		}

		reconciler := services.NewReconciler(
			repairJournal,
			boltRepo.NewUserRepository(store),
			boltRepo.NewTaskRepository(store),
			zap.NewNop(),
			services.ReconcilerConfig{
				BatchSize:  cfg.Reconciler.BatchSize,
				MaxRetries: cfg.Reconciler.MaxRetries,
			},
		)
		if err := reconciler.Drain(context.Background()); err != nil {
			return err
		}

		after, err := repairJournal.Size()
		if err != nil {
			return err
		}
		cmd.Printf("journal: %d entries before, %d after\n", before, after)
		return nil
	},
}
