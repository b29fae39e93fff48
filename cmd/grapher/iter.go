package main

import (
	"fmt"
	"path/filepath"

	"github.com/aretw0/grapher/pkg/iteration"
	"github.com/spf13/cobra"
)

func newIterCmd(app *application) *cobra.Command {
	var markerDir string
	cmd := &cobra.Command{
		Use:   "iter",
		Short: "Work with iteration markers",
	}
	cmd.PersistentFlags().StringVar(&markerDir, "markers", "", "Marker directory (defaults to marker_dir from config)")

	dir := func() string {
		if markerDir != "" {
			return markerDir
		}
		return app.cfg.MarkerDir
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "check [loop] [iterator] [value]",
			Short: "Claim an iteration: prints to-run the first time and already-done after",
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				guard := app.guard()
				outcome, err := guard.CheckIteration(cmd.Context(), dir(), args[0], args[1], args[2])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), outcome)
				return nil
			},
		},
		&cobra.Command{
			Use:   "marker [loop] [iterator] [value]",
			Short: "Show the marker of an iteration",
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				path := iteration.MarkerPath(dir(), args[0], args[1], args[2])
				m, err := iteration.ReadMarker(path)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Field", "Value"},
					[][]string{
						{"Path", filepath.ToSlash(path)},
						{"Loop", m.LoopNode},
						{"Iterator", m.Iterator},
						{"Value", m.IterValue},
						{"User", m.User},
						{"Station", m.Station},
						{"Date", m.Date},
						{"Time", m.Time},
					},
					nil,
				))
				return nil
			},
		},
	)
	return cmd
}

func (a *application) guard() *iteration.Guard {
	g := iteration.NewGuard(a.cfg.Identity())
	g.Logger = a.logger
	g.Hooks = a.hooks
	return g
}
