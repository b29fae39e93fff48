package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/grapher/internal/presentation/tui"
	"github.com/aretw0/grapher/pkg/domain"
	"github.com/aretw0/grapher/pkg/ports"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
)

func newLockCmd(app *application) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lock",
		Short: "Inspect and manage document locks",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "status [document]",
			Short: "Show who holds the lock of a document",
			Args:  exactDocArg,
			RunE: func(cmd *cobra.Command, args []string) error {
				state, holder, err := app.locker.Inspect(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				printLockState(cmd.OutOrStdout(), state, holder)
				return nil
			},
		},
		&cobra.Command{
			Use:   "acquire [document]",
			Short: "Take the lock of a document and print its token",
			Long:  `Takes the lock if it is free. The printed token is needed by "lock release" from another process.`,
			Args:  exactDocArg,
			RunE: func(cmd *cobra.Command, args []string) error {
				state, holder, err := app.locker.Acquire(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				printLockState(cmd.OutOrStdout(), state, holder)
				if state != domain.LockedByMe {
					return fmt.Errorf("%w: %s is locked by %s@%s", domain.ErrReadOnlyViolation, args[0], holder.User, holder.Station)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Token: %s\n", holder.Token)
				return nil
			},
		},
		newLockReleaseCmd(app),
		&cobra.Command{
			Use:   "break [document]",
			Short: "Delete the lock of a document, whoever holds it, and take it",
			Args:  exactDocArg,
			RunE: func(cmd *cobra.Command, args []string) error {
				state, holder, err := app.locker.BreakLock(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				printLockState(cmd.OutOrStdout(), state, holder)
				fmt.Fprintf(cmd.OutOrStdout(), "Token: %s\n", holder.Token)
				return nil
			},
		},
	)
	return cmd
}

func newLockReleaseCmd(app *application) *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "release [document]",
		Short: "Release a lock taken by an earlier acquire",
		Args:  exactDocArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			adopter, ok := app.locker.(ports.LockAdopter)
			if !ok {
				return errors.New("lock backend cannot release locks taken by another process")
			}
			ctx := cmd.Context()
			owned, err := adopter.Adopt(ctx, args[0], token)
			if err != nil {
				return err
			}
			if !owned {
				return fmt.Errorf("lock of %s does not carry token %q", args[0], token)
			}
			if err := app.locker.Release(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Released %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "Token printed by lock acquire")
	_ = cmd.MarkFlagRequired("token")
	return cmd
}

func printLockState(w io.Writer, state domain.LockState, holder domain.LockInfo) {
	profile := termenv.Ascii
	if isTerminal(w) {
		profile = termenv.ColorProfile()
	}
	fmt.Fprintln(w, tui.FormatLockState(profile, state, holder))
}
