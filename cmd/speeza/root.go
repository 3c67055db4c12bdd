package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/speeza"
)

var (
	verbose    bool
	vaultPath  string
	configFile string
	adapter    string
	engineName string
	readOnly   bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "speeza",
	Short: "Write notes and have them read aloud",
	Long: `Speeza keeps text notes together with the language, voice and rate used
to speak them. Notes can be filed into groups and played back through a
speech engine. The vault is a directory of Markdown files.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}

		opts := &slog.HandlerOptions{
			Level: level,
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, opts))
		slog.SetDefault(logger)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&vaultPath, "vault", "", "Vault directory (default: the enclosing vault or the working directory)")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Configuration file (default: <vault>/speeza.yaml)")
	rootCmd.PersistentFlags().StringVar(&adapter, "adapter", "", "Storage adapter (fs, memory)")
	rootCmd.PersistentFlags().StringVar(&engineName, "engine", "", "Speech engine (console, espeak, noop)")
	rootCmd.PersistentFlags().BoolVar(&readOnly, "read-only", false, "Open the vault without writing to it")
}

// vaultRoot returns --vault, else the vault enclosing the working directory,
// else the working directory itself.
func vaultRoot() string {
	if vaultPath != "" {
		return vaultPath
	}
	wd, err := os.Getwd()
	if err != nil {
		fatal("Failed to get CWD", err)
	}
	if root, err := speeza.FindVaultRoot(wd); err == nil {
		return root
	}
	return wd
}

// openApp opens the vault selected by the persistent flags.
func openApp(ctx context.Context, cmd *cobra.Command) *speeza.App {
	opts := []speeza.Option{speeza.WithLogger(slog.Default())}
	if configFile != "" {
		opts = append(opts, speeza.WithConfigFile(configFile))
	}
	if adapter != "" {
		opts = append(opts, speeza.WithAdapter(adapter))
	}
	if engineName != "" {
		opts = append(opts, speeza.WithEngineName(engineName))
	}
	if cmd.Flags().Changed("read-only") {
		opts = append(opts, speeza.WithReadOnly(readOnly))
	}

	app, err := speeza.Open(ctx, vaultRoot(), opts...)
	if err != nil {
		fatal("Failed to open vault", err)
	}
	return app
}
