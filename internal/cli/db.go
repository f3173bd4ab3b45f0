package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vvka-141/pgscrape/internal/logging"
	"github.com/vvka-141/pgscrape/internal/tui"
	"github.com/vvka-141/pgscrape/internal/ui"
	"github.com/vvka-141/pgscrape/pkg/pgscrape"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the target database",
}

var dbEnsureCmd = &cobra.Command{
	Use:   "ensure",
	Short: "Create the target database and every job table without scraping",
	Args:  cobra.NoArgs,
	RunE:  runDBEnsure,
}

var dbResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Drop the target database",
	Long: `Drop the target database and every scraped row in it.

You are asked to type the database name to confirm. With --force a short
countdown replaces the prompt. Without a terminal, --force is required.`,
	Args: cobra.NoArgs,
	RunE: runDBReset,
}

var dbResetForce bool

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(dbEnsureCmd, dbResetCmd)
	addConnectionFlags(dbEnsureCmd, &connFlags)
	addConnectionFlags(dbResetCmd, &connFlags)

	dbResetCmd.Flags().BoolVar(&dbResetForce, "force", false,
		"Skip the interactive prompt; a countdown still allows Ctrl+C")
}

func runDBEnsure(cmd *cobra.Command, _ []string) error {
	verbose := getVerboseFlag(cmd)
	cfg, err := commandRunConfig(verbose)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cfg.Timeout)
	defer cancel()
	return newRunner(cfg, logging.NewConsoleLogger(verbose)).Ensure(ctx, cfg)
}

func runDBReset(cmd *cobra.Command, _ []string) error {
	verbose := getVerboseFlag(cmd)

	var approver pgscrape.Approver
	switch {
	case dbResetForce:
		approver = ui.NewForcedApprover(verbose)
	case tui.IsInteractive():
		approver = ui.NewInteractiveApprover(verbose)
	default:
		return fmt.Errorf("db reset needs a terminal to confirm, or --force: %w", pgscrape.ErrApprovalDenied)
	}

	cfg, err := commandRunConfig(verbose)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cfg.Timeout)
	defer cancel()
	return newRunner(cfg, logging.NewConsoleLogger(verbose)).Reset(ctx, cfg, approver)
}

func commandRunConfig(verbose bool) (pgscrape.RunConfig, error) {
	projectCfg, err := loadProjectConfig()
	if err != nil {
		return pgscrape.RunConfig{}, err
	}
	return buildRunConfig(connFlags, projectCfg, verbose)
}

// loadSources returns the default sources with pgscrape.yaml applied.
func loadSources() (pgscrape.SourceConfig, error) {
	sources := pgscrape.DefaultSourceConfig()
	projectCfg, err := loadProjectConfig()
	if err != nil {
		return sources, err
	}
	if projectCfg != nil {
		if err := projectCfg.ApplySources(&sources); err != nil {
			return sources, err
		}
	}
	return sources, nil
}
