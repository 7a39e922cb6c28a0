package cmd

import (
	"fmt"

	"github.com/etorres/rbackup/internal/hierarchy"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a backup repository",
	Long: `Create the repository directory and an empty snapshot list.

Running init on an existing repository is harmless; the snapshot list
is left untouched.

Example:
  rbackup init --repo /var/backup`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	repo, err := hierarchy.OpenRepository(repositoryPath())
	if err != nil {
		return fmt.Errorf("failed to initialize repository: %w", err)
	}

	fmt.Printf("✓ Repository initialized: %s\n", repo.Path())
	fmt.Printf("  Snapshots: %d\n", repo.Len())
	return nil
}
