package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gridnote/studio/internal/app"
)

func newRunCommand(buildApp func() (*app.App, error)) *cobra.Command {
	var concurrency string
	var workers int

	runCmd := &cobra.Command{
		Use:   "run <dir>",
		Short: "Execute a project's graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			summary, err := a.RunProject(ctx, args[0], app.RunOptions{
				Concurrency: concurrency,
				Workers:     workers,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run %s %s in %s\n", summary.RunID, summary.Status, summary.Duration.Round(0))
			fmt.Fprintf(out, "Cache hits: %d, artifacts: %d\n", summary.CacheHits, len(summary.Artifacts))
			for _, ref := range summary.Artifacts {
				fmt.Fprintf(out, "  %s (%s, %d bytes)\n", ref.Path, ref.MimeType, ref.SizeBytes)
			}
			if summary.RunsPruned > 0 {
				fmt.Fprintf(out, "Pruned %d old runs\n", summary.RunsPruned)
			}
			return nil
		},
	}

	runCmd.Flags().StringVar(&concurrency, "concurrency", "", "Override the project's run concurrency (sequential or adaptive)")
	runCmd.Flags().IntVar(&workers, "workers", 0, "Worker bound for adaptive scheduling")

	return runCmd
}
