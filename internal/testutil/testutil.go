package testutil

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

// TempRepo is a temporary backup repository root for testing
type TempRepo struct {
	Path string
	T    *testing.T
}

// NewTempRepo creates a new temporary repository root
func NewTempRepo(t *testing.T) *TempRepo {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "rbackup-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}

	return &TempRepo{
		Path: tmpDir,
		T:    t,
	}
}

// Cleanup removes the temporary repository
func (r *TempRepo) Cleanup() {
	r.T.Helper()
	if err := os.RemoveAll(r.Path); err != nil {
		r.T.Errorf("failed to cleanup temp repo: %v", err)
	}
}

// CreateFile creates a file under the repository root
func (r *TempRepo) CreateFile(name, content string) {
	r.T.Helper()
	path := filepath.Join(r.Path, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		r.T.Fatalf("failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		r.T.Fatalf("failed to create file: %v", err)
	}
}

// SnapshotNames reads the persisted snapshot name list from the
// repository metadata file
func (r *TempRepo) SnapshotNames() []string {
	r.T.Helper()

	data, err := os.ReadFile(filepath.Join(r.Path, ".metadata"))
	if err != nil {
		r.T.Fatalf("failed to read repository metadata: %v", err)
	}

	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		r.T.Fatalf("failed to parse repository metadata: %v", err)
	}
	return names
}

// SnapshotDirs lists the directories under the repository data dir
func (r *TempRepo) SnapshotDirs() []string {
	r.T.Helper()

	entries, err := os.ReadDir(filepath.Join(r.Path, "data"))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		r.T.Fatalf("failed to read data dir: %v", err)
	}

	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, e.Name())
		}
	}
	sort.Strings(dirs)
	return dirs
}

// StubRsync writes an executable rsync stub into dir that records its
// arguments, one per line, and exits with exitCode. Prepend dir to
// PATH so commands pick it up instead of the real rsync. When exitCode
// is non-zero the stub also writes an error line to stderr.
func StubRsync(t *testing.T, dir string, exitCode int) (argsFile string) {
	t.Helper()

	argsFile = filepath.Join(dir, "rsync-args")
	script := fmt.Sprintf("#!/bin/sh\nprintf '%%s\\n' \"$@\" > %s\n", argsFile)
	if exitCode != 0 {
		script += "echo 'rsync stub failure' >&2\n"
	}
	script += fmt.Sprintf("exit %d\n", exitCode)

	if err := os.WriteFile(filepath.Join(dir, "rsync"), []byte(script), 0755); err != nil {
		t.Fatalf("failed to write rsync stub: %v", err)
	}
	return argsFile
}

// ReadArgs reads the argument lines recorded by a StubRsync run
func ReadArgs(t *testing.T, argsFile string) []string {
	t.Helper()

	data, err := os.ReadFile(argsFile)
	if err != nil {
		t.Fatalf("failed to read recorded args: %v", err)
	}

	var args []string
	start := 0
	for i := 0; i < len(data); i++ {
		if data[i] == '\n' {
			args = append(args, string(data[start:i]))
			start = i + 1
		}
	}
	if start < len(data) {
		args = append(args, string(data[start:]))
	}
	return args
}
