// Package rsync wraps invocation of the external rsync binary. The
// transfer algorithm, retries and failure handling all belong to
// rsync; this layer only builds argument lists and surfaces results.
package rsync

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"

	"github.com/etorres/rbackup/internal/hierarchy"
)

// DefaultOptions is the built-in rsync option set used when the config
// file does not supply one: archive mode preserving ACLs, xattrs and
// hardlinks, recursing, pruning empty directories and tolerating
// missing source arguments.
var DefaultOptions = []string{
	"--archive",
	"--acls",
	"--xattrs",
	"--hard-links",
	"--recursive",
	"--prune-empty-dirs",
	"--ignore-missing-args",
}

// ExitError reports a non-zero rsync exit. The failing command line
// and captured stderr are carried so the caller can surface them.
type ExitError struct {
	Cmd    []string
	Stderr string
	Code   int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("rsync exited with status %d", e.Code)
}

// Find locates the rsync binary on PATH.
func Find() (string, error) {
	path, err := exec.LookPath("rsync")
	if err != nil {
		return "", fmt.Errorf("rsync not found, please install rsync: %w", err)
	}
	return path, nil
}

// LinkDests returns one --link-dest flag per existing snapshot, in
// snapshot order, so rsync can hard-link unchanged files from every
// prior snapshot rather than only the most recent one.
func LinkDests(repo *hierarchy.Repository) []string {
	var flags []string
	for _, s := range repo.Snapshots() {
		flags = append(flags, "--link-dest="+s.Path())
	}
	return flags
}

// Run executes rsync synchronously with the given arguments, capturing
// its output. A non-zero exit is returned as *ExitError.
func Run(bin string, args ...string) error {
	slog.Debug("rsync command", "bin", bin, "args", args)
	slog.Info("beginning rsync process")

	cmd := exec.Command(bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var xerr *exec.ExitError
		if errors.As(err, &xerr) {
			return &ExitError{
				Cmd:    append([]string{bin}, args...),
				Stderr: stderr.String(),
				Code:   xerr.ExitCode(),
			}
		}
		return fmt.Errorf("failed to run rsync: %w", err)
	}

	slog.Debug("rsync output", "stdout", stdout.String())
	slog.Info("rsync process complete")
	return nil
}
