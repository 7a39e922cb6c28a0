package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/etorres/rbackup/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile  string
	repoFlag string
	verbose  bool
)

var rootCmd = &cobra.Command{
	Use:   "rbackup",
	Short: "Snapshot-based system backups on top of rsync",
	Long: `rbackup keeps a repository of backup snapshots created with rsync.

Each backup run becomes its own snapshot directory. Unchanged files are
hard-linked from every previous snapshot via rsync's --link-dest, so
every snapshot is a complete file tree at close to incremental cost.

Include and exclude path lists come from *-include.conf and
*-exclude.conf files in the configuration directory.`,
}

// exitError carries a specific process exit status to Execute, e.g.
// the invalid-snapshot-name code or a failed rsync's own exit code.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

func (e *exitError) Unwrap() error { return e.err }

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		var xerr *exitError
		if errors.As(err, &xerr) {
			os.Exit(xerr.code)
		}
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is /etc/rbackup/backup.toml)")
	rootCmd.PersistentFlags().StringVar(&repoFlag, "repo", "", "repository path (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath("/etc/rbackup")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "rbackup"))
		}
		viper.SetConfigType("toml")
		viper.SetConfigName("backup")
	}

	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("main.repository", "/var/backup")
	viper.SetDefault("main.conf_dir", "/etc/rbackup")
	viper.SetDefault("main.rsync_options", "")
	viper.SetDefault("main.umask", "0077")
	viper.SetDefault("packages.manifest", "/etc/rbackup/packages.yaml")
	viper.SetDefault("packages.compress", "gz")

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if err := viper.ReadInConfig(); err == nil {
		slog.Debug("using config file", "path", viper.ConfigFileUsed())
	}
}

// repositoryPath resolves the repository location: the --repo flag
// wins over the config file.
func repositoryPath() string {
	if repoFlag != "" {
		return repoFlag
	}
	return config.RepoPath()
}
