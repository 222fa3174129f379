// Command ingest pulls a content API into a content mesh and publishes its
// nodes as NDJSON, once (run) or on a schedule (serve).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	envFile    string
	logFormat  string
	configFile string
}

var global globalFlags

var rootCmd = &cobra.Command{
	Use:           "ingest",
	Short:         "Build a content mesh from a headless CMS",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&global.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	rootCmd.PersistentFlags().StringVar(&global.logFormat, "log-format", "json", "log output format: json or text")
	rootCmd.PersistentFlags().StringVar(&global.configFile, "config", "", "YAML overrides file (overrides INGEST_CONFIG_FILE)")

	rootCmd.AddCommand(newRunCmd(), newServeCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
