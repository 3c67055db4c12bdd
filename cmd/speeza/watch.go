package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	speezalifecycle "github.com/aretw0/speeza/pkg/adapters/lifecycle"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print changes to notes, groups and languages as they happen",
	Long: `Watch streams changes made to the vault, including edits made by hand or
by another speeza process. Press Ctrl+C to stop.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		app := openApp(ctx, cmd)
		defer app.Close()

		changes, err := app.Library.Watch(ctx)
		if err != nil {
			fatal("Failed to watch vault", err)
		}

		src := speezalifecycle.NewSource(changes)
		if err := src.Start(ctx); err != nil {
			fatal("Failed to start change stream", err)
		}

		fmt.Fprintf(os.Stderr, "Watching %s (Ctrl+C to stop)\n", app.Path)
		for e := range src.Events() {
			fmt.Printf("%s %s\n", time.Now().Format("15:04:05"), e)
		}
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
