package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vvka-141/pgscrape/internal/logging"
	"github.com/vvka-141/pgscrape/internal/tui"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show row counts of the job tables",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	addConnectionFlags(statusCmd, &connFlags)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	verbose := getVerboseFlag(cmd)

	cfg, err := commandRunConfig(verbose)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cfg.Timeout)
	defer cancel()

	report, err := newRunner(cfg, logging.NewConsoleLogger(verbose)).Status(ctx, cfg)
	if err != nil {
		return err
	}

	rows := make([]tui.TableStatusRow, 0, len(report.Tables))
	for _, t := range report.Tables {
		rows = append(rows, tui.TableStatusRow{Job: t.Job, Table: t.Table, Exists: t.Exists, Rows: t.Rows})
	}
	fmt.Fprint(cmd.OutOrStdout(), tui.RenderStatus(report.Database, report.DatabaseExists, rows))
	return nil
}
