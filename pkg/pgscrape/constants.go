package pgscrape

import "time"

// Exit codes for semantic error classification.
// These follow Unix/GNU conventions:
//   - 0: Success
//   - 1: General error
//   - 2: CLI usage error (misuse of command line)
//   - 3+: Application-specific errors
const (
	ExitSuccess         = 0  // All selected jobs completed (or failures were only logged)
	ExitGeneralError    = 1  // Unknown or unclassified error
	ExitUsageError      = 2  // CLI usage error (missing args, invalid flags)
	ExitPanic           = 3  // Internal panic (unexpected crash)
	ExitConfigError     = 10 // Invalid configuration or unknown job name
	ExitConnectionError = 11 // Failed to connect to database
	ExitApprovalDenied  = 12 // User denied database reset
	ExitJobFailed       = 13 // A job failed and --strict was set
)

const (
	// DefaultManagementDB is the database used for CREATE DATABASE / DROP DATABASE.
	DefaultManagementDB = "postgres"

	// DefaultDatabaseName is used when no database name is configured anywhere.
	DefaultDatabaseName = "scrapethissite"

	// DefaultAppName is reported to PostgreSQL as application_name.
	DefaultAppName = "pgscrape"

	// DefaultRunTimeout bounds a whole `run` invocation.
	DefaultRunTimeout = 10 * time.Minute

	// DefaultHTTPTimeout bounds a single page request.
	DefaultHTTPTimeout = 30 * time.Second

	// DefaultUserAgent is sent with every request. The AJAX endpoint rejects
	// requests without a browser-like agent.
	DefaultUserAgent = "Mozilla/5.0"

	// DefaultErrorLogPath is where job errors are appended, relative to the working directory.
	DefaultErrorLogPath = "error.log"

	// DefaultForceApprovalCountdown is the countdown before a forced reset proceeds.
	DefaultForceApprovalCountdown = 5 * time.Second

	// DefaultRetryInitialDelay is the initial delay before the first connection retry.
	DefaultRetryInitialDelay = 100 * time.Millisecond

	// DefaultRetryMaxDelay caps the delay between connection retries.
	DefaultRetryMaxDelay = 10 * time.Second

	// DefaultRetryMaxAttempts is zero: one connection attempt, failures are logged.
	DefaultRetryMaxAttempts = 0
)

// Site defaults for scrapethissite.com.
const (
	DefaultTopicsURL = "https://www.scrapethissite.com/pages/advanced/"
	DefaultHockeyURL = "https://www.scrapethissite.com/pages/forms/"
	DefaultMoviesURL = "https://www.scrapethissite.com/pages/ajax-javascript/"

	DefaultHockeyPerPage = 25

	DefaultMoviesStartYear = 2010
	DefaultMoviesEndYear   = 2015
	DefaultMoviesDelay     = 1 * time.Second
)

// Job names, in launcher order.
const (
	JobMovies = "movies"
	JobHockey = "hockey"
	JobTopics = "topics"
)

// JobOrder is the fixed order in which the launcher runs jobs.
var JobOrder = []string{JobMovies, JobHockey, JobTopics}
