package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/gridnote/studio/internal/app"
)

func newRootCommand() *cobra.Command {
	var configFlag string

	rootCmd := &cobra.Command{
		Use:           "studio",
		Short:         "Studio workflow engine CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "studio.hcl", "Engine configuration file path")

	buildApp := func() (*app.App, error) {
		return app.New(configFlag, os.Stderr)
	}

	rootCmd.AddCommand(newProjectCommand(buildApp))
	rootCmd.AddCommand(newRunCommand(buildApp))
	rootCmd.AddCommand(newRunsCommand(buildApp))

	return rootCmd
}
