package main

import (
	"context"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/aretw0/speeza"
)

type statusReport struct {
	App                speeza.AppState `json:"app"`
	Notes              int             `json:"notes"`
	UncategorizedNotes int             `json:"uncategorized_notes"`
	Groups             int             `json:"groups"`
	EnabledLanguages   []string        `json:"enabled_languages"`
	IntroCompleted     bool            `json:"intro_completed"`
	LastLanguage       string          `json:"last_selected_language"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the state of the vault, engine and settings as JSON",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		app := openApp(ctx, cmd)
		defer app.Close()

		report := statusReport{App: app.State().(speeza.AppState)}

		eg, egCtx := errgroup.WithContext(ctx)
		eg.Go(func() error {
			all, err := app.Library.Notes(egCtx)
			if err != nil {
				return err
			}
			report.Notes = len(all)
			for _, n := range all {
				if !n.GroupID.Valid {
					report.UncategorizedNotes++
				}
			}
			return nil
		})
		eg.Go(func() error {
			groups, err := app.Library.Groups(egCtx)
			report.Groups = len(groups)
			return err
		})
		eg.Go(func() error {
			enabled, err := app.EnabledLanguages(egCtx)
			report.EnabledLanguages = enabled
			return err
		})
		eg.Go(func() error {
			done, err := app.Settings.IntroCompleted(egCtx)
			if err != nil {
				return err
			}
			report.IntroCompleted = done
			report.LastLanguage, err = app.Settings.LastSelectedLanguage(egCtx)
			return err
		})
		if err := eg.Wait(); err != nil {
			fatal("Failed to collect status", err)
		}

		printJSON(report)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
