package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var voicesLang string

var voicesCmd = &cobra.Command{
	Use:   "voices",
	Short: "List the voices of the speech engine",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		app := openApp(ctx, cmd)
		defer app.Close()

		if app.Voices.Degraded() {
			fmt.Fprintln(os.Stderr, "The engine reported no voices; only the default voice is available.")
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
		for _, v := range app.Voices.Voices() {
			if voicesLang != "" && v.Language != voicesLang {
				continue
			}
			fmt.Fprintf(w, "%s\t%s\n", v.Language, v.Name)
		}
		w.Flush()
	},
}

func init() {
	voicesCmd.Flags().StringVar(&voicesLang, "lang", "", "Only voices of this language")
	rootCmd.AddCommand(voicesCmd)
}
