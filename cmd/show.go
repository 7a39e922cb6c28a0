package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/alpkeskin/gotoon"
	"github.com/etorres/rbackup/internal/hierarchy"
	"github.com/spf13/cobra"
)

var (
	showJSON bool
	showToon bool
)

var showCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show details for one snapshot",
	Long: `Display a single snapshot's recorded metadata and layout.

Example:
  rbackup show 2024-01-01`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)

	showCmd.Flags().BoolVar(&showJSON, "json", false, "Output as JSON")
	showCmd.Flags().BoolVar(&showToon, "toon", false, "Output as Toon")
}

type snapshotDetails struct {
	Name      string `json:"name"`
	Path      string `json:"path"`
	PkgDir    string `json:"pkg_dir"`
	CreatedAt string `json:"created_at,omitempty"`
}

func runShow(cmd *cobra.Command, args []string) error {
	name := args[0]

	repo, err := hierarchy.OpenRepository(repositoryPath())
	if err != nil {
		return fmt.Errorf("failed to open repository: %w", err)
	}
	if !repo.Contains(name) {
		return fmt.Errorf("snapshot does not exist: %s", name)
	}

	var snap *hierarchy.Snapshot
	for _, s := range repo.Snapshots() {
		if s.Name() == name {
			snap = s
			break
		}
	}

	details := snapshotDetails{
		Name:   snap.Name(),
		Path:   snap.Path(),
		PkgDir: snap.PkgDir(),
	}
	if created, err := snap.CreatedAt(); err == nil {
		details.CreatedAt = created.Format(time.RFC3339)
	}

	if showJSON {
		out, err := json.MarshalIndent(details, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
		fmt.Println(string(out))
		return nil
	}

	if showToon {
		out, err := gotoon.Encode(details)
		if err != nil {
			return fmt.Errorf("failed to encode Toon: %w", err)
		}
		fmt.Println(out)
		return nil
	}

	fmt.Printf("Snapshot: %s\n\n", details.Name)
	fmt.Printf("Path:        %s\n", details.Path)
	fmt.Printf("Package dir: %s\n", details.PkgDir)
	if details.CreatedAt != "" {
		fmt.Printf("Created:     %s\n", details.CreatedAt)
	}

	return nil
}
