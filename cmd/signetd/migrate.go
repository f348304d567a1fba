package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/signet-ai/signet/internal/storage/sqlite"
)

var migrateAgentsDir string

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := resolveAgentsDir(migrateAgentsDir)
		if err != nil {
			return err
		}
		dbPath := filepath.Join(dir, "memory", "memories.db")
		db, err := sqlite.Open(dbPath)
		if err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
		defer db.Close()
		fmt.Println("migrations applied:", dbPath)
		return nil
	},
}

func init() {
	migrateCmd.Flags().StringVar(&migrateAgentsDir, "agents-dir", "", "path to the workspace's .agents directory")
}
