package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vvka-141/pgscrape/internal/logging"
	"github.com/vvka-141/pgscrape/internal/tui"
	"github.com/vvka-141/pgscrape/pkg/pgscrape"
)

var runCmd = &cobra.Command{
	Use:   "run [job...]",
	Short: "Run scrape jobs (default: all)",
	Long: `Run scrape jobs against the target database.

Jobs always run in the order movies, hockey, topics, whatever order they are
given in. The target database and each job's table are created when missing.
Every run appends rows; nothing is updated or de-duplicated.

Jobs:
  movies  Oscar winning films 2010-2015 from the AJAX endpoint  -> movies
  hockey  paginated hockey team statistics                      -> hockey_teams
  topics  headings and paragraphs of the advanced topics page   -> advance_topics`,
	Example: `  # Run every job against a local server
  pgscrape run -U postgres

  # Run only the hockey job and fail the process if it fails
  pgscrape run hockey --strict --connection postgresql://postgres@localhost/scrapethissite`,
	Args:              validateJobArgs,
	ValidArgsFunction: completeJobNames,
	RunE:              runRun,
}

type runFlagValues struct {
	strict   bool
	timeout  time.Duration
	errorLog string
}

var runFlags runFlagValues

func init() {
	rootCmd.AddCommand(runCmd)
	addConnectionFlags(runCmd, &connFlags)

	runCmd.Flags().BoolVar(&runFlags.strict, "strict", false,
		"Exit with code 13 when any job fails (default: log and continue)")
	runCmd.Flags().DurationVar(&runFlags.timeout, "timeout", pgscrape.DefaultRunTimeout,
		"Upper bound for the whole run (or 'timeout' in pgscrape.yaml)")
	runCmd.Flags().StringVar(&runFlags.errorLog, "error-log", pgscrape.DefaultErrorLogPath,
		"Append job errors to this file; empty disables it (or 'error_log' in pgscrape.yaml)")
}

func validateJobArgs(_ *cobra.Command, args []string) error {
	for _, name := range args {
		if !pgscrape.IsKnownJob(name) {
			return fmt.Errorf("%q (known jobs: %v): %w", name, pgscrape.JobOrder, pgscrape.ErrUnknownJob)
		}
	}
	return nil
}

func runRun(cmd *cobra.Command, args []string) error {
	verbose := getVerboseFlag(cmd)

	projectCfg, err := loadProjectConfig()
	if err != nil {
		return err
	}
	cfg, err := buildRunConfig(connFlags, projectCfg, verbose)
	if err != nil {
		return err
	}
	cfg.Jobs = args
	cfg.Strict = runFlags.strict
	if cfg.Timeout, err = resolveEffectiveTimeout(cmd, projectCfg, runFlags.timeout); err != nil {
		return err
	}

	errorLogPath := runFlags.errorLog
	if projectCfg != nil && projectCfg.ErrorLog != nil && !cmd.Flags().Changed("error-log") {
		errorLogPath = *projectCfg.ErrorLog
	}

	progress := tui.NewProgressReporter(os.Stderr, cfg.SelectedJobs())
	var consoleOut io.Writer = os.Stderr
	if w, ok := progress.(io.Writer); ok {
		consoleOut = w
	}

	loggers := []pgscrape.Logger{logging.NewConsoleLoggerTo(consoleOut, verbose)}
	if errorLogPath != "" {
		fileLogger := logging.NewFileLogger(errorLogPath)
		defer fileLogger.Close()
		loggers = append(loggers, fileLogger)
	}
	logger := logging.NewMultiLogger(loggers...)

	runner := newRunner(cfg, logger)
	runner.SetObserver(progress)

	ctx, cancel := signalContext(cfg.Timeout)
	defer cancel()

	results, runErr := runner.Run(ctx, cfg)
	progress.Stop()

	if len(results) > 0 {
		fmt.Fprint(cmd.OutOrStdout(), tui.RenderSummary(results))
	}
	if runErr != nil {
		return fmt.Errorf("run failed: %w", runErr)
	}
	return nil
}

// signalContext returns a context cancelled by the timeout, Ctrl+C or SIGTERM.
func signalContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancelTimeout := context.WithTimeout(context.Background(), timeout)
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	return ctx, func() {
		stop()
		cancelTimeout()
	}
}
