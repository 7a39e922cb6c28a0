package cmd

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/etorres/rbackup/internal/hierarchy"
	"github.com/etorres/rbackup/internal/testutil"
	"github.com/spf13/viper"
)

// setupBackupEnv points the config at a temp repository and conf dir
// and installs an rsync stub on PATH.
func setupBackupEnv(t *testing.T, rsyncExit int) (repo *testutil.TempRepo, argsFile string) {
	t.Helper()

	repo = testutil.NewTempRepo(t)
	t.Cleanup(repo.Cleanup)

	confDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(confDir, "etc-include.conf"), []byte("/etc\n"), 0644); err != nil {
		t.Fatalf("failed to write include conf: %v", err)
	}
	if err := os.WriteFile(filepath.Join(confDir, "tmp-exclude.conf"), []byte("/tmp\n"), 0644); err != nil {
		t.Fatalf("failed to write exclude conf: %v", err)
	}

	stubDir := t.TempDir()
	argsFile = testutil.StubRsync(t, stubDir, rsyncExit)
	t.Setenv("PATH", stubDir+string(os.PathListSeparator)+os.Getenv("PATH"))

	viper.Reset()
	viper.Set("main.repository", repo.Path)
	viper.Set("main.conf_dir", confDir)
	viper.Set("main.rsync_options", `["--archive"]`)
	viper.Set("main.umask", "0077")

	// Reset flags
	repoFlag = ""
	backupName = ""
	backupExtraOpts = nil
	backupUmask = ""
	backupDryRun = false

	return repo, argsFile
}

func TestBackupInvokesRsync(t *testing.T) {
	repo, argsFile := setupBackupEnv(t, 0)

	backupName = "2024-01-01"
	if err := runBackup(nil, nil); err != nil {
		t.Fatalf("backup command failed: %v", err)
	}

	args := testutil.ReadArgs(t, argsFile)
	snapPath := filepath.Join(repo.Path, "data", "2024-01-01")
	if len(args) != 5 {
		t.Fatalf("unexpected rsync args: %v", args)
	}
	if args[0] != "--archive" {
		t.Errorf("expected --archive first, got %v", args)
	}
	if !strings.HasPrefix(args[1], "--files-from=") {
		t.Errorf("expected --files-from, got %s", args[1])
	}
	if !strings.HasPrefix(args[2], "--exclude-from=") {
		t.Errorf("expected --exclude-from, got %s", args[2])
	}
	if args[3] != "/" || args[4] != snapPath {
		t.Errorf("expected source / and dest %s, got %v", snapPath, args[2:])
	}

	if names := repo.SnapshotNames(); len(names) != 1 || names[0] != "2024-01-01" {
		t.Errorf("unexpected persisted names: %v", names)
	}

	// Scoped temp files are removed once the run finishes.
	includeFile := strings.TrimPrefix(args[1], "--files-from=")
	if _, err := os.Stat(includeFile); !os.IsNotExist(err) {
		t.Errorf("include temp file not cleaned up: %s", includeFile)
	}
}

func TestBackupLinkDestOrder(t *testing.T) {
	repo, argsFile := setupBackupEnv(t, 0)

	seeded, err := hierarchy.OpenRepository(repo.Path)
	if err != nil {
		t.Fatalf("failed to open repository: %v", err)
	}
	for _, name := range []string{"A", "B", "C"} {
		if _, err := seeded.CreateSnapshot(name); err != nil {
			t.Fatalf("failed to seed snapshot %s: %v", name, err)
		}
	}

	backupName = "D"
	if err := runBackup(nil, nil); err != nil {
		t.Fatalf("backup command failed: %v", err)
	}

	args := testutil.ReadArgs(t, argsFile)
	var linkDests []string
	for _, a := range args {
		if strings.HasPrefix(a, "--link-dest=") {
			linkDests = append(linkDests, strings.TrimPrefix(a, "--link-dest="))
		}
	}

	dataDir := filepath.Join(repo.Path, "data")
	want := []string{
		filepath.Join(dataDir, "A"),
		filepath.Join(dataDir, "B"),
		filepath.Join(dataDir, "C"),
	}
	if len(linkDests) != len(want) {
		t.Fatalf("expected %d link-dest flags, got %v", len(want), linkDests)
	}
	for i := range want {
		if linkDests[i] != want[i] {
			t.Errorf("link-dest %d: expected %s, got %s", i, want[i], linkDests[i])
		}
	}

	// The new snapshot itself is never a link-dest.
	for _, ld := range linkDests {
		if ld == filepath.Join(dataDir, "D") {
			t.Error("new snapshot appeared as link-dest")
		}
	}
}

func TestBackupExtraRsyncOpts(t *testing.T) {
	_, argsFile := setupBackupEnv(t, 0)

	backupName = "extra"
	backupExtraOpts = []string{"--verbose", "--one-file-system"}
	if err := runBackup(nil, nil); err != nil {
		t.Fatalf("backup command failed: %v", err)
	}

	args := testutil.ReadArgs(t, argsFile)
	if args[0] != "--archive" || args[1] != "--verbose" || args[2] != "--one-file-system" {
		t.Errorf("extra options not appended in order: %v", args)
	}
}

func TestBackupInvalidName(t *testing.T) {
	repo, _ := setupBackupEnv(t, 0)

	backupName = "bad/name"
	err := runBackup(nil, nil)
	if err == nil {
		t.Fatal("expected error for invalid snapshot name")
	}

	var xerr *exitError
	if !errors.As(err, &xerr) {
		t.Fatalf("expected exitError, got %T: %v", err, err)
	}
	if xerr.code != exitInvalidName {
		t.Errorf("expected exit code %d, got %d", exitInvalidName, xerr.code)
	}
	if !errors.Is(err, hierarchy.ErrInvalidName) {
		t.Errorf("expected ErrInvalidName, got %v", err)
	}

	if names := repo.SnapshotNames(); len(names) != 0 {
		t.Errorf("invalid name mutated repository: %v", names)
	}
}

func TestBackupRsyncFailurePropagatesExitCode(t *testing.T) {
	repo, _ := setupBackupEnv(t, 23)

	backupName = "doomed"
	err := runBackup(nil, nil)
	if err == nil {
		t.Fatal("expected error for failing rsync")
	}

	var xerr *exitError
	if !errors.As(err, &xerr) {
		t.Fatalf("expected exitError, got %T: %v", err, err)
	}
	if xerr.code != 23 {
		t.Errorf("expected rsync exit code 23, got %d", xerr.code)
	}

	// The snapshot entry stays; the operator decides whether to re-run.
	if names := repo.SnapshotNames(); len(names) != 1 {
		t.Errorf("unexpected persisted names: %v", names)
	}
}

func TestBackupDryRun(t *testing.T) {
	repo, argsFile := setupBackupEnv(t, 0)

	backupName = "preview"
	backupDryRun = true
	if err := runBackup(nil, nil); err != nil {
		t.Fatalf("dry-run failed: %v", err)
	}

	if _, err := os.Stat(argsFile); !os.IsNotExist(err) {
		t.Error("dry run invoked rsync")
	}
	if names := repo.SnapshotNames(); len(names) != 0 {
		t.Errorf("dry run mutated repository: %v", names)
	}
}
