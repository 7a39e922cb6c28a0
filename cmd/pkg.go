package cmd

import (
	"fmt"
	"os"

	"github.com/etorres/rbackup/internal/config"
	"github.com/etorres/rbackup/internal/hierarchy"
	"github.com/etorres/rbackup/internal/pkgmgr"
	"github.com/spf13/cobra"
)

var (
	pkgSnapshotName string
	pkgCompress     string
)

var pkgCmd = &cobra.Command{
	Use:   "pkg",
	Short: "Back up package manager state into a snapshot",
	Long: `Write each configured package manager's installed-package list and a
tarball of its database directory into the snapshot's pkg/ directory.

Managers are read from the packages.yaml manifest; without a manifest,
pacman is assumed. The target defaults to the most recent snapshot.

Examples:
  rbackup pkg
  rbackup pkg --snapshot 2024-01-01 --compress ""`,
	RunE: runPkg,
}

func init() {
	rootCmd.AddCommand(pkgCmd)

	pkgCmd.Flags().StringVar(&pkgSnapshotName, "snapshot", "", "Target snapshot name (default: most recent)")
	pkgCmd.Flags().StringVar(&pkgCompress, "compress", "", "Database archive compression: \"\" or \"gz\" (default: from config)")
}

func runPkg(cmd *cobra.Command, args []string) error {
	repo, err := hierarchy.OpenRepository(repositoryPath())
	if err != nil {
		return fmt.Errorf("failed to open repository: %w", err)
	}

	var snap *hierarchy.Snapshot
	if pkgSnapshotName != "" {
		for _, s := range repo.Snapshots() {
			if s.Name() == pkgSnapshotName {
				snap = s
				break
			}
		}
		if snap == nil {
			return fmt.Errorf("snapshot does not exist: %s", pkgSnapshotName)
		}
	} else {
		snap = repo.Current()
		if snap == nil {
			return fmt.Errorf("repository is empty, run a backup first")
		}
	}

	compress := pkgCompress
	if !cmd.Flags().Changed("compress") {
		compress = config.PackagesCompress()
	}

	managers := []pkgmgr.Manager{pkgmgr.Pacman()}
	manifest := config.PackagesManifest()
	if _, err := os.Stat(manifest); err == nil {
		managers, err = pkgmgr.LoadManifest(manifest)
		if err != nil {
			return err
		}
	}

	fmt.Printf("Backing up package manager state into %s\n", snap.PkgDir())
	for _, m := range managers {
		if err := backupManager(m, snap, compress); err != nil {
			return fmt.Errorf("%s: %w", m.Name, err)
		}
		fmt.Printf("  ✓ %s\n", m.Name)
	}

	return nil
}

func backupManager(m pkgmgr.Manager, snap *hierarchy.Snapshot, compress string) error {
	if err := m.Lock(); err != nil {
		return err
	}
	defer func() {
		if err := m.Unlock(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}()

	return m.BackupTo(snap, compress)
}
