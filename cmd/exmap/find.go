package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var findCmd = &cobra.Command{
	Use:   "find <repo-path> <pattern>",
	Short: "Search entities by name or signature",
	Long: `Search the repository map for entities whose name or signature matches a
case-insensitive pattern. The pattern is a regular expression; one that does
not compile is treated as a literal substring.

Examples:
  exmap find . charge_invoice
  exmap find ~/src/shop 'handle_(call|cast)'`,
	Args: cobra.ExactArgs(2),
	RunE: runFind,
}

func init() {
	rootCmd.AddCommand(findCmd)
}

// findRow is one search hit in CLI output.
type findRow struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	File      string `json:"file"`
	Lines     string `json:"lines"`
	Signature string `json:"signature,omitempty"`
}

func runFind(cmd *cobra.Command, args []string) error {
	env, err := newEnvironment()
	if err != nil {
		return err
	}
	defer env.cleanup()

	matches, err := env.svc.FindEntities(context.Background(), args[0], args[1])
	if err != nil {
		return err
	}

	rows := make([]findRow, 0, len(matches))
	for _, e := range matches {
		rows = append(rows, findRow{
			ID:        e.ID,
			Name:      e.Name,
			Type:      string(e.Type),
			File:      e.FilePath,
			Lines:     fmt.Sprintf("%d-%d", e.LineStart, e.LineEnd),
			Signature: e.Signature,
		})
	}

	out, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
