package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/etorres/rbackup/internal/rsync"
	"github.com/etorres/rbackup/internal/system"
	"github.com/spf13/viper"
)

// RepoPath returns the configured backup repository path.
func RepoPath() string {
	return viper.GetString("main.repository")
}

// ConfDir returns the directory searched for *-include.conf and
// *-exclude.conf files.
func ConfDir() string {
	return viper.GetString("main.conf_dir")
}

// RsyncOptions returns the rsync option list from the config file. The
// value is stored as a JSON-encoded array of strings; an absent or
// malformed value falls back to rsync.DefaultOptions.
func RsyncOptions() []string {
	raw := viper.GetString("main.rsync_options")
	if raw == "" {
		return append([]string(nil), rsync.DefaultOptions...)
	}
	var opts []string
	if err := json.Unmarshal([]byte(raw), &opts); err != nil {
		slog.Warn("malformed rsync_options in config, using defaults", "error", err)
		return append([]string(nil), rsync.DefaultOptions...)
	}
	return opts
}

// Umask returns the configured umask for backup runs.
func Umask() int {
	raw := viper.GetString("main.umask")
	if raw == "" {
		return system.DefaultUmask
	}
	mask, err := ParseUmask(raw)
	if err != nil {
		slog.Warn("malformed umask in config, using default", "error", err)
		return system.DefaultUmask
	}
	return mask
}

// PackagesManifest returns the path of the package-manager manifest.
func PackagesManifest() string {
	return viper.GetString("packages.manifest")
}

// PackagesCompress returns the compression mode for package database
// archives.
func PackagesCompress() string {
	return viper.GetString("packages.compress")
}

// ParseUmask parses an octal umask string such as "0077".
func ParseUmask(value string) (int, error) {
	mask, err := strconv.ParseInt(value, 8, 32)
	if err != nil || mask < 0 || mask > 0o777 {
		return 0, fmt.Errorf("invalid umask %q", value)
	}
	return int(mask), nil
}
