package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	mapTask    string
	mapTokens  int
	mapRefresh bool
)

var mapCmd = &cobra.Command{
	Use:   "map <repo-path>",
	Short: "Generate a repository map and print it",
	Long: `Scan an Elixir repository and print its rendered map: summary, key
entities ordered by structural importance, and the file tree. With --task the
selection is steered toward entities relevant to that task.

Examples:
  exmap map .
  exmap map ~/src/shop --task "fix invoice retry loop" --tokens 2000
  exmap map ~/src/shop --refresh`,
	Args: cobra.ExactArgs(1),
	RunE: runMap,
}

func init() {
	mapCmd.Flags().StringVar(&mapTask, "task", "", "Task description used to focus the map")
	mapCmd.Flags().IntVar(&mapTokens, "tokens", 0, "Approximate token budget (default from config)")
	mapCmd.Flags().BoolVar(&mapRefresh, "refresh", false, "Rescan even when a cached map exists")
	rootCmd.AddCommand(mapCmd)
}

func runMap(cmd *cobra.Command, args []string) error {
	env, err := newEnvironment()
	if err != nil {
		return err
	}
	defer env.cleanup()

	ctx := context.Background()
	repoPath := args[0]

	if mapRefresh {
		if _, err := env.svc.Refresh(ctx, repoPath); err != nil {
			return err
		}
	}

	text, err := env.svc.GetContext(ctx, repoPath, mapTask, mapTokens)
	if err != nil {
		return err
	}

	fmt.Println(text)
	return nil
}
