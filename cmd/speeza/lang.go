package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var langCmd = &cobra.Command{
	Use:   "lang",
	Short: "Enable or disable languages offered when editing notes",
}

var langListCmd = &cobra.Command{
	Use:   "list",
	Short: "List languages and whether they are enabled",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		app := openApp(ctx, cmd)
		defer app.Close()

		rows, err := app.LanguageOverview(ctx)
		if err != nil {
			fatal("Failed to read language preferences", err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
		for _, row := range rows {
			state := "enabled"
			if !row.Enabled {
				state = "disabled"
			}
			voices := len(app.Voices.VoicesFor(row.Language))
			fmt.Fprintf(w, "%s\t%s\t%d voices\n", row.Language, state, voices)
		}
		w.Flush()
	},
}

var langEnableCmd = &cobra.Command{
	Use:   "enable <code>",
	Short: "Enable a language",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		setLanguage(cmd, args[0], true)
	},
}

var langDisableCmd = &cobra.Command{
	Use:   "disable <code>",
	Short: "Disable a language",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		setLanguage(cmd, args[0], false)
	},
}

func setLanguage(cmd *cobra.Command, code string, enabled bool) {
	ctx := context.Background()
	app := openApp(ctx, cmd)
	defer app.Close()

	pref, err := app.Prefs.SetEnabled(ctx, code, enabled)
	if err != nil {
		fatal("Failed to save language preference", err)
	}
	state := "enabled"
	if !pref.IsEnabled {
		state = "disabled"
	}
	fmt.Printf("Language %s %s.\n", pref.LanguageCode, state)
}

func init() {
	langCmd.AddCommand(langListCmd, langEnableCmd, langDisableCmd)
	rootCmd.AddCommand(langCmd)
}
