package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gridnote/studio/internal/app"
)

func newProjectCommand(buildApp func() (*app.App, error)) *cobra.Command {
	projectCmd := &cobra.Command{
		Use:   "project",
		Short: "Create and inspect Studio projects",
	}

	projectCmd.AddCommand(newProjectCreateCommand(buildApp))
	projectCmd.AddCommand(newProjectInspectCommand(buildApp))

	return projectCmd
}

func newProjectCreateCommand(buildApp func() (*app.App, error)) *cobra.Command {
	var apiMode string

	createCmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}

			proj, dir, err := a.CreateProject(cmd.Context(), args[0], apiMode)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Created project %q (%s) at %s\n", proj.Name, proj.ProjectID, dir)
			return nil
		},
	}

	createCmd.Flags().StringVar(&apiMode, "api-mode", "openai", "AI API mode recorded in the project document")

	return createCmd
}

func newProjectInspectCommand(buildApp func() (*app.App, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <dir>",
		Short: "Load, migrate if needed, and compile a project without running it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}

			proj, plan, err := a.InspectProject(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Project:  %s (%s)\n", proj.Name, proj.ProjectID)
			fmt.Fprintf(out, "Schema:   %s\n", proj.Schema)
			fmt.Fprintf(out, "Nodes:    %d\n", len(proj.Graph.Nodes))
			fmt.Fprintf(out, "Edges:    %d\n", len(proj.Graph.Edges))
			fmt.Fprintln(out, "Execution order:")
			for i, nodeID := range plan.ExecutionOrder {
				node := plan.Nodes[nodeID]
				fmt.Fprintf(out, "  %2d. %s (%s@%s)\n", i+1, nodeID, node.Kind, node.Version)
			}
			return nil
		},
	}
}
