package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/gridnote/studio/internal/app"
)

func newRunsCommand(buildApp func() (*app.App, error)) *cobra.Command {
	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect and prune a project's run history",
	}

	runsCmd.AddCommand(newRunsListCommand(buildApp))
	runsCmd.AddCommand(newRunsPruneCommand(buildApp))

	return runsCmd
}

func newRunsListCommand(buildApp func() (*app.App, error)) *cobra.Command {
	var limit int

	listCmd := &cobra.Command{
		Use:   "list <dir>",
		Short: "List recent runs, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}

			records, err := a.ListRuns(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			for _, rec := range records {
				line := fmt.Sprintf("%s  %s  %-9s  cacheHits=%d  artifactBytes=%d",
					rec.StartedAt.Local().Format(time.RFC3339), rec.RunID, rec.Status, rec.CacheHits, rec.ArtifactBytes)
				if rec.Error != "" {
					line += "  error=" + rec.Error
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}

	listCmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to list")

	return listCmd
}

func newRunsPruneCommand(buildApp func() (*app.App, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "prune <dir>",
		Short: "Apply the project's retention settings now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}

			deleted, err := a.PruneRuns(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d runs\n", deleted)
			return nil
		},
	}
}
