package cmd

import (
	"fmt"

	"github.com/etorres/rbackup/internal/hierarchy"
	"github.com/etorres/rbackup/internal/system"
	"github.com/spf13/cobra"
)

var (
	cleanupRemoveSnapshots bool
	cleanupRemoveRepoDir   bool
	cleanupForce           bool
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove repository metadata and, optionally, snapshot data",
	Long: `Delete the repository's metadata file. With --remove-snapshots the
snapshot data directory is deleted too; with --remove-repo-dir the
entire repository directory is removed.

Nothing is deleted unless --force is given.

Examples:
  rbackup cleanup                              # Show what would be removed
  rbackup cleanup --remove-snapshots --force   # Delete metadata and snapshots`,
	RunE: runCleanup,
}

func init() {
	rootCmd.AddCommand(cleanupCmd)

	cleanupCmd.Flags().BoolVar(&cleanupRemoveSnapshots, "remove-snapshots", false, "Also delete the snapshot data directory")
	cleanupCmd.Flags().BoolVar(&cleanupRemoveRepoDir, "remove-repo-dir", false, "Also delete the entire repository directory")
	cleanupCmd.Flags().BoolVar(&cleanupForce, "force", false, "Actually delete (default is a dry run)")
}

func runCleanup(cmd *cobra.Command, args []string) error {
	if !system.SafeRemovalSupported() {
		return fmt.Errorf("recursive delete is not symlink-safe on this platform, refusing cleanup")
	}

	repo, err := hierarchy.OpenRepository(repositoryPath())
	if err != nil {
		return fmt.Errorf("failed to open repository: %w", err)
	}

	fmt.Printf("Would remove: %s\n", repo.MetadataPath())
	if cleanupRemoveSnapshots {
		fmt.Printf("Would remove: %s (%d snapshots)\n", repo.SnapshotDir(), repo.Len())
	}
	if cleanupRemoveRepoDir {
		fmt.Printf("Would remove: %s\n", repo.Path())
	}

	if !cleanupForce {
		fmt.Println("\nThis is a dry run. Use --force to actually delete.")
		return nil
	}

	if err := repo.Cleanup(cleanupRemoveSnapshots, cleanupRemoveRepoDir); err != nil {
		return err
	}

	fmt.Println("\n✓ Cleanup complete")
	return nil
}
