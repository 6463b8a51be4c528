package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"menusemanal/internal/app"
	"menusemanal/internal/config"
	"menusemanal/internal/logger"
)

var (
	verbose bool
	timeout time.Duration
)

// openApp is replaced in tests.
var openApp = func(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log := zap.NewNop()
	if verbose {
		if log, err = logger.New(cfg.Env); err != nil {
			return nil, err
		}
	}
	return app.New(ctx, cfg, log)
}

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "menusemanal-admin",
	Short: "Administrative tasks for the weekly menu service",
	Long: `Runs the same operations as the /admin HTTP routes directly against
the configured store. Reads the same environment as the api.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable logging")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", time.Minute, "Operation timeout")

	sendSummaryCmd.Flags().BoolVar(&forceSend, "force", false, "Send outside the configured window")
	setWeekCmd.Flags().BoolVar(&clearWeek, "clear", false, "Remove the override")

	rootCmd.AddCommand(sendSummaryCmd)
	rootCmd.AddCommand(resetWeekCmd)
	rootCmd.AddCommand(clearCommentsCmd)
	rootCmd.AddCommand(importMenuCmd)
	rootCmd.AddCommand(hashPasswordCmd)
	rootCmd.AddCommand(setWeekCmd)
}

// withApp opens the app for one command and closes it afterwards.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App, out io.Writer) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a, cmd.OutOrStdout())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
