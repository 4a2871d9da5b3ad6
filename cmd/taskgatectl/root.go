package main

import (
	"github.com/spf13/cobra"

	"github.com/taskgate/backend/internal/config"
	"github.com/taskgate/backend/internal/infrastructure/docstore"
)

var dbPath string

var rootCmd = &cobra.Command{
	Use:   "taskgatectl",
	Short: "Operator tooling for the taskgate service",
	Long: `taskgatectl works on the taskgate document store directly.
The store file is exclusively locked while the server runs; stop the
server first or point --db at a copy.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "path to the document store (defaults to BOLTDB_PATH)")
	rootCmd.AddCommand(seedAdminCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(sweepCmd)
}

func openStore() (*docstore.Store, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	path := dbPath
	if path == "" {
		path = cfg.Store.Path
	}
	store, err := docstore.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return store, cfg, nil
}
