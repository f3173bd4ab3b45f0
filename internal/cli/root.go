package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/vvka-141/pgscrape/pkg/pgscrape"
)

var rootCmd = &cobra.Command{
	Use:   "pgscrape",
	Short: "Scrape scrapethissite.com sandbox pages into PostgreSQL",
	Long: `pgscrape runs a fixed set of scrape jobs. Each job fetches one page of
www.scrapethissite.com, extracts its records and appends them to a table in
PostgreSQL, creating the database and the table on first run.

Jobs run one after another: movies, hockey, topics. A failing job is logged
(to the console and error.log) and the next job still runs.

Exit Codes:
  0  - Success (job failures only change this with --strict)
  1  - General error
  2  - CLI usage error (invalid arguments or flags)
  3  - Panic or unexpected system error
  10 - Invalid configuration or unknown job
  11 - Database connection failed
  12 - User denied reset approval
  13 - A job failed and --strict was set`,
	SilenceUsage:      true,
	PersistentPreRunE: loadEnvFile,
}

var globalFlags struct {
	envFile   string
	configDir string
}

// Execute runs the root command
func Execute() error {
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		printVersionInfo()
		return nil
	}
	return rootCmd.Execute()
}

func init() {
	// -h belongs to --host, as in psql.
	rootCmd.PersistentFlags().Bool("help", false, "Help for pgscrape")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output for all commands")
	rootCmd.PersistentFlags().StringVar(&globalFlags.envFile, "env-file", "",
		"Load environment variables from this file (default: ./.env when present)")
	rootCmd.PersistentFlags().StringVar(&globalFlags.configDir, "config-dir", ".",
		"Directory containing pgscrape.yaml")
}

// loadEnvFile loads --env-file, or ./.env when it exists. Variables already
// set in the environment win.
func loadEnvFile(cmd *cobra.Command, _ []string) error {
	if globalFlags.envFile == "" {
		_ = godotenv.Load()
		return nil
	}
	if err := godotenv.Load(globalFlags.envFile); err != nil {
		return fmt.Errorf("failed to load env file %s: %w: %w", globalFlags.envFile, pgscrape.ErrInvalidConfig, err)
	}
	if getVerboseFlag(cmd) {
		fmt.Fprintf(os.Stderr, "[VERBOSE] Loaded environment from %s\n", globalFlags.envFile)
	}
	return nil
}

// getVerboseFlag safely retrieves the verbose flag value
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to get verbose flag: %v\n", err)
		return false
	}
	return verbose
}
