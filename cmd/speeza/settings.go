package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change application settings",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		app := openApp(ctx, cmd)
		defer app.Close()

		done, err := app.Settings.IntroCompleted(ctx)
		if err != nil {
			fatal("Failed to read settings", err)
		}
		lang, err := app.Settings.LastSelectedLanguage(ctx)
		if err != nil {
			fatal("Failed to read settings", err)
		}
		fmt.Printf("intro_completed:        %t\n", done)
		fmt.Printf("last_selected_language: %s\n", lang)
	},
}

var settingsIntroCmd = &cobra.Command{
	Use:       "intro <done|reset>",
	Short:     "Mark the introduction as completed, or show it again",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"done", "reset"},
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		app := openApp(ctx, cmd)
		defer app.Close()

		if err := app.Settings.SetIntroCompleted(ctx, args[0] == "done"); err != nil {
			fatal("Failed to save settings", err)
		}
		fmt.Println("Settings saved.")
	},
}

var settingsLanguageCmd = &cobra.Command{
	Use:   "language <code>",
	Short: "Set the language new notes start with",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		app := openApp(ctx, cmd)
		defer app.Close()

		if err := app.Settings.SetLastSelectedLanguage(ctx, args[0]); err != nil {
			fatal("Failed to save settings", err)
		}
		fmt.Println("Settings saved.")
	},
}

func init() {
	settingsCmd.AddCommand(settingsIntroCmd, settingsLanguageCmd)
	rootCmd.AddCommand(settingsCmd)
}
