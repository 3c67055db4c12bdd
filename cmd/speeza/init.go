package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/speeza"
)

var initForce bool

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Initialize a speeza vault",
	Long: `Initialize a vault in dir (default: the working directory). It writes a
speeza.yaml with the default configuration and creates the system directory.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}
		abs, err := filepath.Abs(dir)
		if err != nil {
			fatal("Failed to resolve path", err)
		}
		if err := os.MkdirAll(abs, 0755); err != nil {
			fatal("Failed to create vault directory", err)
		}

		cfgPath := filepath.Join(abs, speeza.ConfigFileName)
		if _, err := os.Stat(cfgPath); err == nil && !initForce {
			fatal("Vault already initialized", fmt.Errorf("%s exists (use --force to overwrite)", cfgPath))
		} else if err != nil && !errors.Is(err, os.ErrNotExist) {
			fatal("Failed to check configuration", err)
		}

		cfg := speeza.DefaultConfig()
		data, err := yaml.Marshal(cfg)
		if err != nil {
			fatal("Failed to encode configuration", err)
		}
		if err := os.WriteFile(cfgPath, data, 0644); err != nil {
			fatal("Failed to write configuration", err)
		}

		vaultPath = abs
		app := openApp(context.Background(), cmd)
		defer app.Close()

		fmt.Println("Initialized empty speeza vault in", app.Path)
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing speeza.yaml")
	rootCmd.AddCommand(initCmd)
}
