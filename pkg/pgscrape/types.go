package pgscrape

import (
	"errors"
	"fmt"
	"time"
)

// RunConfig contains all parameters needed for a scrape run.
type RunConfig struct {
	// DatabaseName is the target database; it is created if missing.
	DatabaseName string

	// MaintenanceDatabase is the database to connect to for CREATE DATABASE.
	// Typically "postgres".
	MaintenanceDatabase string

	// ConnectionString is the PostgreSQL connection string (URI or ADO.NET format)
	// for the TARGET database.
	ConnectionString string

	// Jobs lists the job names to run. Empty means every job, in JobOrder.
	Jobs []string

	// Strict turns any job failure into a non-zero exit.
	Strict bool

	// Timeout bounds the whole run.
	Timeout time.Duration

	// Verbose enables detailed logging
	Verbose bool

	// Sources holds the per-site scraping settings.
	Sources SourceConfig

	// AuthMethod indicates the authentication mechanism to use
	AuthMethod AuthMethod

	// Cloud authentication parameters, copied onto the parsed ConnectionConfig.
	AzureTenantID     string
	AzureClientID     string
	AzureClientSecret string
	AWSRegion         string
	GoogleInstance    string

	// ConnectRetries is the number of extra connection attempts on transient errors.
	ConnectRetries int
}

// Validate checks if the RunConfig has all required fields and valid values.
// It returns a multi-error if multiple validation failures occur.
func (c *RunConfig) Validate() error {
	var errs []error

	if c.DatabaseName == "" {
		errs = append(errs, fmt.Errorf("DatabaseName is required: %w", ErrInvalidConfig))
	}

	if c.ConnectionString == "" {
		errs = append(errs, fmt.Errorf("ConnectionString is required: %w", ErrInvalidConfig))
	}

	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout cannot be negative: %w", ErrInvalidConfig))
	}

	if c.ConnectRetries < 0 {
		errs = append(errs, fmt.Errorf("connect retries cannot be negative: %w", ErrInvalidConfig))
	}

	for _, name := range c.Jobs {
		if !IsKnownJob(name) {
			errs = append(errs, fmt.Errorf("job %q: %w", name, ErrUnknownJob))
		}
	}

	if err := c.Sources.Validate(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// SelectedJobs returns the jobs to run in launcher order, dropping duplicates.
func (c *RunConfig) SelectedJobs() []string {
	if len(c.Jobs) == 0 {
		return append([]string(nil), JobOrder...)
	}
	want := make(map[string]bool, len(c.Jobs))
	for _, name := range c.Jobs {
		want[name] = true
	}
	var selected []string
	for _, name := range JobOrder {
		if want[name] {
			selected = append(selected, name)
		}
	}
	return selected
}

// IsKnownJob reports whether name is one of the registered jobs.
func IsKnownJob(name string) bool {
	for _, j := range JobOrder {
		if j == name {
			return true
		}
	}
	return false
}

// SourceConfig holds the site endpoints and request settings used by jobs.
type SourceConfig struct {
	TopicsURL string
	HockeyURL string
	MoviesURL string

	HockeyPerPage  int
	HockeyMaxPages int // 0 = follow pages until an empty one

	MoviesStartYear int
	MoviesEndYear   int
	MoviesDelay     time.Duration // pause after each successful year

	UserAgent       string
	HTTPTimeout     time.Duration
	RequestInterval time.Duration // minimum spacing between any two requests of one job
}

// DefaultSourceConfig returns the scrapethissite.com settings.
func DefaultSourceConfig() SourceConfig {
	return SourceConfig{
		TopicsURL:       DefaultTopicsURL,
		HockeyURL:       DefaultHockeyURL,
		MoviesURL:       DefaultMoviesURL,
		HockeyPerPage:   DefaultHockeyPerPage,
		MoviesStartYear: DefaultMoviesStartYear,
		MoviesEndYear:   DefaultMoviesEndYear,
		MoviesDelay:     DefaultMoviesDelay,
		UserAgent:       DefaultUserAgent,
		HTTPTimeout:     DefaultHTTPTimeout,
	}
}

// Validate checks URLs, paging and the year range.
func (s SourceConfig) Validate() error {
	var errs []error

	if s.TopicsURL == "" || s.HockeyURL == "" || s.MoviesURL == "" {
		errs = append(errs, fmt.Errorf("all source URLs are required: %w", ErrInvalidConfig))
	}
	if s.HockeyPerPage <= 0 {
		errs = append(errs, fmt.Errorf("hockey per_page must be positive, got %d: %w", s.HockeyPerPage, ErrInvalidConfig))
	}
	if s.HockeyMaxPages < 0 {
		errs = append(errs, fmt.Errorf("hockey max_pages cannot be negative: %w", ErrInvalidConfig))
	}
	if s.MoviesStartYear > s.MoviesEndYear {
		errs = append(errs, fmt.Errorf("movies year range %d..%d is empty: %w",
			s.MoviesStartYear, s.MoviesEndYear, ErrInvalidConfig))
	}
	if s.MoviesDelay < 0 {
		errs = append(errs, fmt.Errorf("movies delay cannot be negative: %w", ErrInvalidConfig))
	}
	if s.RequestInterval < 0 {
		errs = append(errs, fmt.Errorf("request interval cannot be negative: %w", ErrInvalidConfig))
	}
	if s.HTTPTimeout < 0 {
		errs = append(errs, fmt.Errorf("http timeout cannot be negative: %w", ErrInvalidConfig))
	}

	return errors.Join(errs...)
}

// JobResult reports the outcome of one job within a run.
type JobResult struct {
	Name     string
	Table    string
	Rows     int
	Pages    int
	Duration time.Duration
	Err      error
}

// Failed reports whether the job ended with an error.
func (r JobResult) Failed() bool {
	return r.Err != nil
}

// ConnectionConfig represents parsed connection parameters.
type ConnectionConfig struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
	SSLMode  string

	// AuthMethod indicates the authentication mechanism to use
	AuthMethod AuthMethod

	// Additional connection parameters
	AppName          string
	ConnectTimeout   time.Duration
	AdditionalParams map[string]string

	// Azure Entra ID: with tenant, client and secret a Service Principal is used,
	// otherwise the DefaultAzureCredential chain.
	AzureTenantID     string
	AzureClientID     string
	AzureClientSecret string

	// AWSRegion is required for RDS IAM tokens.
	AWSRegion string

	// GoogleInstance is the Cloud SQL instance connection name (project:region:instance).
	GoogleInstance string
}

// AuthMethod represents the type of authentication to use.
type AuthMethod int

const (
	AuthMethodStandard     AuthMethod = iota // Username/Password
	AuthMethodAWSIAM                         // AWS IAM Database Authentication
	AuthMethodGoogleIAM                      // Google Cloud SQL IAM
	AuthMethodAzureEntraID                   // Azure Active Directory (Entra ID)
)

// String returns a human-readable string representation of the AuthMethod.
func (a AuthMethod) String() string {
	switch a {
	case AuthMethodStandard:
		return "Standard"
	case AuthMethodAWSIAM:
		return "AWS IAM"
	case AuthMethodGoogleIAM:
		return "Google IAM"
	case AuthMethodAzureEntraID:
		return "Azure Entra ID"
	default:
		return fmt.Sprintf("Unknown(%d)", a)
	}
}

// IsValid returns true if the AuthMethod is a valid, defined value.
func (a AuthMethod) IsValid() bool {
	return a >= AuthMethodStandard && a <= AuthMethodAzureEntraID
}
