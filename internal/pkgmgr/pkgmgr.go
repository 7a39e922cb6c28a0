// Package pkgmgr backs up package manager state alongside a snapshot:
// a list of explicitly installed packages and a tarball of the package
// database directory.
package pkgmgr

import (
	"archive/tar"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/etorres/rbackup/internal/hierarchy"
)

// ErrNotSupported is returned when a manager lacks the configuration
// needed for an operation.
var ErrNotSupported = errors.New("operation not supported by this package manager")

// Manager describes one package manager. Managers are usually loaded
// from the YAML manifest; Pacman is built in as a default.
type Manager struct {
	Name       string   `yaml:"name"`
	CacheDir   string   `yaml:"cache_dir"`
	DBPath     string   `yaml:"db_path"`
	Lockfile   string   `yaml:"lockfile"`
	PkglistCmd []string `yaml:"pkglist_cmd"`
}

// Pacman returns the built-in pacman manager definition.
func Pacman() Manager {
	return Manager{
		Name:       "pacman",
		CacheDir:   "/var/cache/pacman",
		DBPath:     "/var/lib/pacman",
		Lockfile:   "/var/lib/pacman/db.lck",
		PkglistCmd: []string{"pacman", "-Qqe"},
	}
}

// Lock creates the package manager's lockfile so no transaction can
// run during the backup and leave the database copy inconsistent. An
// existing lockfile is an error: it means a transaction is in progress
// or a previous one failed. Managers without a configured lockfile are
// not locked.
func (m Manager) Lock() error {
	if m.Lockfile == "" {
		return nil
	}
	f, err := os.OpenFile(m.Lockfile, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("failed to lock %s: %w", m.Name, err)
	}
	return f.Close()
}

// Unlock removes the package manager's lockfile.
func (m Manager) Unlock() error {
	if m.Lockfile == "" {
		return nil
	}
	if err := os.Remove(m.Lockfile); err != nil {
		return fmt.Errorf("failed to unlock %s: %w", m.Name, err)
	}
	return nil
}

// GenPkglist runs the package listing command and writes its output to
// a temporary file, returning the path.
func (m Manager) GenPkglist() (string, error) {
	if len(m.PkglistCmd) == 0 {
		return "", fmt.Errorf("%w: no package list command", ErrNotSupported)
	}

	slog.Info("creating package list", "manager", m.Name)
	out, err := exec.Command(m.PkglistCmd[0], m.PkglistCmd[1:]...).Output()
	if err != nil {
		return "", fmt.Errorf("package list command failed: %w", err)
	}

	tmp, err := os.CreateTemp("", "rbackup-pkglist-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(out); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write package list: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to close package list: %w", err)
	}

	slog.Info("package list generation complete", "manager", m.Name)
	return tmp.Name(), nil
}

// GenDBArchive tars the package database directory into a temporary
// file and returns its path. compress selects the mode: "" for a plain
// tar, "gz" for gzip.
func (m Manager) GenDBArchive(compress string) (string, error) {
	if m.DBPath == "" {
		return "", fmt.Errorf("%w: no database path", ErrNotSupported)
	}
	if compress != "" && compress != "gz" {
		return "", fmt.Errorf("%q is not a valid compress mode", compress)
	}

	slog.Info("creating database archive", "manager", m.Name)

	suffix := ".tar"
	if compress == "gz" {
		suffix = ".tar.gz"
	}
	tmp, err := os.CreateTemp("", "rbackup-db-*"+suffix)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}

	if err := writeArchive(tmp, m.DBPath, compress == "gz"); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to close archive: %w", err)
	}

	slog.Info("database archive generation complete", "manager", m.Name)
	return tmp.Name(), nil
}

// BackupTo writes the package list and database archive into the
// snapshot's pkg directory, under a subdirectory named after the
// manager.
func (m Manager) BackupTo(snap *hierarchy.Snapshot, compress string) error {
	dest := filepath.Join(snap.PkgDir(), m.Name)
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}

	pkglist, err := m.GenPkglist()
	switch {
	case errors.Is(err, ErrNotSupported):
		slog.Warn("skipping package list", "manager", m.Name, "reason", err)
	case err != nil:
		return err
	default:
		defer os.Remove(pkglist)
		if err := moveFile(pkglist, filepath.Join(dest, "pkglist.txt")); err != nil {
			return err
		}
	}

	archive, err := m.GenDBArchive(compress)
	switch {
	case errors.Is(err, ErrNotSupported):
		slog.Warn("skipping database archive", "manager", m.Name, "reason", err)
	case err != nil:
		return err
	default:
		defer os.Remove(archive)
		name := "db.tar"
		if compress == "gz" {
			name = "db.tar.gz"
		}
		if err := moveFile(archive, filepath.Join(dest, name)); err != nil {
			return err
		}
	}
	return nil
}

func writeArchive(w io.Writer, root string, gz bool) error {
	if gz {
		gw := gzip.NewWriter(w)
		if err := writeTar(gw, root); err != nil {
			gw.Close()
			return err
		}
		return gw.Close()
	}
	return writeTar(w, root)
}

func writeTar(w io.Writer, root string) error {
	tw := tar.NewWriter(w)
	err := filepath.Walk(root, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(filepath.Dir(root), path)
		if err != nil {
			return err
		}
		hdr.Name = rel
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(tw, f)
		return err
	})
	if err != nil {
		tw.Close()
		return fmt.Errorf("failed to archive %s: %w", root, err)
	}
	return tw.Close()
}

// moveFile copies src over dst. Temp files may live on a different
// filesystem than the snapshot, so a plain rename is not enough.
func moveFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy to %s: %w", dst, err)
	}
	return out.Close()
}
