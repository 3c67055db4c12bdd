package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/speeza"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of speeza",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("speeza version %s\n", speeza.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
