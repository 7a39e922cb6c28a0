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
	listJSON bool
	listToon bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all snapshots in the repository",
	Long: `List the repository's snapshots in creation order, with their
creation time where recorded.

Examples:
  rbackup list
  rbackup list --json
  rbackup list --toon`,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output as JSON")
	listCmd.Flags().BoolVar(&listToon, "toon", false, "Output as Toon")
}

type snapshotListing struct {
	Name      string `json:"name"`
	Path      string `json:"path"`
	CreatedAt string `json:"created_at,omitempty"`
}

func runList(cmd *cobra.Command, args []string) error {
	repo, err := hierarchy.OpenRepository(repositoryPath())
	if err != nil {
		return fmt.Errorf("failed to open repository: %w", err)
	}

	listings := make([]snapshotListing, 0, repo.Len())
	for _, s := range repo.Snapshots() {
		entry := snapshotListing{Name: s.Name(), Path: s.Path()}
		if created, err := s.CreatedAt(); err == nil {
			entry.CreatedAt = created.Format(time.RFC3339)
		}
		listings = append(listings, entry)
	}

	if listJSON {
		out, err := json.MarshalIndent(listings, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
		fmt.Println(string(out))
		return nil
	}

	if listToon {
		out, err := gotoon.Encode(listings)
		if err != nil {
			return fmt.Errorf("failed to encode Toon: %w", err)
		}
		fmt.Println(out)
		return nil
	}

	if len(listings) == 0 {
		fmt.Println("No snapshots found")
		return nil
	}

	fmt.Printf("Found %d snapshot(s):\n\n", len(listings))
	for _, l := range listings {
		fmt.Printf("  %s\n", l.Name)
		if l.CreatedAt != "" {
			fmt.Printf("    Created: %s\n", l.CreatedAt)
		}
		fmt.Printf("    Path:    %s\n", l.Path)
		fmt.Println()
	}

	return nil
}
