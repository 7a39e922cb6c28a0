package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/etorres/rbackup/internal/config"
	"github.com/etorres/rbackup/internal/hierarchy"
	"github.com/etorres/rbackup/internal/rsync"
	"github.com/etorres/rbackup/internal/system"
	"github.com/spf13/cobra"
)

// exitInvalidName is the process exit status for a rejected snapshot
// name. rsync failures propagate rsync's own exit code instead.
const exitInvalidName = 2

var (
	backupName      string
	backupExtraOpts []string
	backupUmask     string
	backupDryRun    bool
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Create a new snapshot of the filesystem",
	Long: `Run one backup: create a new snapshot in the repository and invoke
rsync with one --link-dest per existing snapshot, so unchanged files
are hard-linked instead of copied.

The rsync option list comes from the config file (main.rsync_options,
a JSON-encoded array) or falls back to a built-in archive-mode set.

Examples:
  rbackup backup
  rbackup backup --name 2024-01-01
  rbackup backup --extra-rsync-opt=--verbose --umask 0027`,
	RunE: runBackup,
}

func init() {
	rootCmd.AddCommand(backupCmd)

	backupCmd.Flags().StringVar(&backupName, "name", "", "Snapshot name (default: current UTC timestamp)")
	backupCmd.Flags().StringArrayVar(&backupExtraOpts, "extra-rsync-opt", nil, "Extra option to pass to rsync (repeatable)")
	backupCmd.Flags().StringVar(&backupUmask, "umask", "", "Octal umask override for the backup run")
	backupCmd.Flags().BoolVar(&backupDryRun, "dry-run", false, "Print the rsync command instead of running it")
}

func runBackup(cmd *cobra.Command, args []string) error {
	bin, err := rsync.Find()
	if err != nil {
		return err
	}

	repo, err := hierarchy.OpenRepository(repositoryPath())
	if err != nil {
		return fmt.Errorf("failed to open repository: %w", err)
	}

	opts := config.RsyncOptions()
	opts = append(opts, backupExtraOpts...)

	// Collect the link-dest flags before the new snapshot exists.
	linkDests := rsync.LinkDests(repo)

	if backupDryRun {
		name := backupName
		if name == "" {
			name = hierarchy.GenerateSnapshotName(time.Now())
		}
		if !hierarchy.IsValidSnapshotName(name) {
			return &exitError{
				code: exitInvalidName,
				err:  fmt.Errorf("%w: %q", hierarchy.ErrInvalidName, name),
			}
		}
		dest := filepath.Join(repo.SnapshotDir(), name)
		rsyncArgs := buildRsyncArgs(opts, "<include-file>", "<exclude-file>", linkDests, dest)
		fmt.Printf("Would execute: %s %s\n", bin, strings.Join(rsyncArgs, " "))
		return nil
	}

	mask := config.Umask()
	if backupUmask != "" {
		mask, err = config.ParseUmask(backupUmask)
		if err != nil {
			return err
		}
	}
	restore := system.WithUmask(mask)
	defer restore()

	confDir := config.ConfDir()
	includeFile, cleanupInclude, err := config.MergeIncludeFiles(confDir)
	if err != nil {
		return fmt.Errorf("failed to merge include files: %w", err)
	}
	defer cleanupInclude()

	excludeFile, cleanupExclude, err := config.MergeExcludeFiles(confDir)
	if err != nil {
		return fmt.Errorf("failed to merge exclude files: %w", err)
	}
	defer cleanupExclude()

	snap, err := repo.CreateSnapshot(backupName)
	if err != nil {
		if errors.Is(err, hierarchy.ErrInvalidName) {
			return &exitError{code: exitInvalidName, err: err}
		}
		return err
	}

	fmt.Printf("Creating snapshot: %s\n", snap.Name())

	rsyncArgs := buildRsyncArgs(opts, includeFile, excludeFile, linkDests, snap.Path())
	if err := rsync.Run(bin, rsyncArgs...); err != nil {
		var xerr *rsync.ExitError
		if errors.As(err, &xerr) {
			fmt.Fprintln(os.Stderr, "Backup process failed")
			fmt.Fprintf(os.Stderr, "Failing command: %s\n", strings.Join(xerr.Cmd, " "))
			fmt.Fprint(os.Stderr, xerr.Stderr)
			return &exitError{code: xerr.Code, err: err}
		}
		return err
	}

	fmt.Printf("\n✓ Snapshot created: %s\n", snap.Path())
	return nil
}

func buildRsyncArgs(opts []string, includeFile, excludeFile string, linkDests []string, dest string) []string {
	args := append([]string(nil), opts...)
	args = append(args, "--files-from="+includeFile, "--exclude-from="+excludeFile)
	args = append(args, linkDests...)
	args = append(args, "/", dest)
	return args
}
