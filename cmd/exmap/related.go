package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/exmap/exmap-mcp/internal/repomap"
)

var relatedDepth int

var relatedCmd = &cobra.Command{
	Use:   "related <repo-path> <entity-id>",
	Short: "List entities related to a given entity",
	Long: `Walk the call/import/contains graph outward from an entity and list
everything within the given depth, edges treated as undirected. Entity ids
come from 'exmap find'.

Example:
  exmap related . a3f9c201d4e8b7f2 --depth 3`,
	Args: cobra.ExactArgs(2),
	RunE: runRelated,
}

func init() {
	relatedCmd.Flags().IntVar(&relatedDepth, "depth", repomap.DefaultRelatedDepth,
		"Maximum traversal depth in hops")
	rootCmd.AddCommand(relatedCmd)
}

// relatedRow is one neighborhood entry in CLI output.
type relatedRow struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	File     string `json:"file"`
	Distance int    `json:"distance"`
}

func runRelated(cmd *cobra.Command, args []string) error {
	env, err := newEnvironment()
	if err != nil {
		return err
	}
	defer env.cleanup()

	related, err := env.svc.GetRelated(context.Background(), args[0], args[1], relatedDepth)
	if err != nil {
		return err
	}

	rows := make([]relatedRow, 0, len(related))
	for _, r := range related {
		rows = append(rows, relatedRow{
			ID:       r.Entity.ID,
			Name:     r.Entity.Name,
			Type:     string(r.Entity.Type),
			File:     r.Entity.FilePath,
			Distance: r.Distance,
		})
	}

	out, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
