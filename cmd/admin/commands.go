package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"menusemanal/internal/app"
	"menusemanal/internal/auth"
	"menusemanal/internal/summary"
)

var (
	forceSend bool
	clearWeek bool
)

// sendSummaryCmd e-mails the current week's summary
var sendSummaryCmd = &cobra.Command{
	Use:   "send-summary",
	Short: "E-mail the current week's order summary",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App, out io.Writer) error {
			s, err := a.Notifier.Send(ctx, forceSend)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "sent summary for %s (%d pedidos)\n", s.WeekKey, s.Total())
			return nil
		})
	},
}

// resetWeekCmd deletes every order of the current week
var resetWeekCmd = &cobra.Command{
	Use:   "reset-week",
	Short: "Delete all orders of the current week",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App, out io.Writer) error {
			n, err := a.Orders.ResetWeek(ctx)
			if err != nil {
				return err
			}
			if err := a.Snapshots.Delete(ctx, a.Weeks.Current()); err != nil && !errors.Is(err, summary.ErrNoSnapshot) {
				return err
			}
			fmt.Fprintf(out, "deleted %d order rows for %s\n", n, a.Weeks.Current())
			return nil
		})
	},
}

// clearCommentsCmd empties every comment list of the current week
var clearCommentsCmd = &cobra.Command{
	Use:   "clear-comments",
	Short: "Remove all comments of the current week",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App, out io.Writer) error {
			n, err := a.Orders.ClearComments(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "cleared comments on %d rows\n", n)
			return nil
		})
	},
}

// importMenuCmd stores a menu from an xlsx or csv file
var importMenuCmd = &cobra.Command{
	Use:   "import-menu FILE",
	Short: "Store a weekly menu from an .xlsx or .csv file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App, out io.Writer) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			m, err := a.Menus.Upload(ctx, filepath.Base(args[0]), f)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "stored menu %s for %s (%d days)\n", m.ID, m.WeekKey, len(m.Data))
			return nil
		})
	},
}

// hashPasswordCmd prints a value for ADMIN_PASSWORD_HASH
var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password [PASSWORD]",
	Short: "Print a bcrypt hash for ADMIN_PASSWORD_HASH",
	Long: `Hashes the given password, or the first line of stdin when no
argument is passed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password := ""
		if len(args) == 1 {
			password = args[0]
		} else {
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && err != io.EOF {
				return err
			}
			password = strings.TrimRight(line, "\r\n")
		}

		hash, err := auth.HashPassword(password)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

// setWeekCmd pins or releases the current week key
var setWeekCmd = &cobra.Command{
	Use:   "set-week [YYYY-MM-DD]",
	Short: "Pin the current week to a Monday, or --clear the pin",
	Long: `Stores a week override in the local cache (CACHE_PATH). Only
processes sharing that cache see it; restart them to pick it up.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if clearWeek == (len(args) == 1) {
			return errors.New("pass either a week key or --clear")
		}

		return withApp(cmd, func(ctx context.Context, a *app.App, out io.Writer) error {
			if clearWeek {
				if err := a.Weeks.ClearOverride(ctx); err != nil {
					return err
				}
			} else if err := a.Weeks.SetOverride(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(out, "current week: %s\n", a.Weeks.Current())
			return nil
		})
	},
}
