package main

import (
	"fmt"

	"github.com/aretw0/grapher/pkg/iteration"
	"github.com/spf13/cobra"
)

func newLauncherCmd(app *application) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "launcher",
		Short: "Generate launcher scripts",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "build [launcher] [body] [guard...]",
		Short: "Write a launcher that runs the guards, then the body",
		Long:  `The launcher dialect follows its extension: .py for Python, .mel for Mel.`,
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := iteration.BuildLauncher(args[0], args[1], args[2:]); err != nil {
				return err
			}
			app.logger.Debug("launcher written", "path", args[0], "guards", len(args)-2)
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", args[0])
			return nil
		},
	})
	return cmd
}
