package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vvka-141/pgscrape/pkg/pgscrape"
)

// ErrConfigNotFound is returned when the config file does not exist.
// Callers can check for this with errors.Is(err, config.ErrConfigNotFound).
var ErrConfigNotFound = errors.New("config file not found")

type ConnectionConfig struct {
	Host               string `yaml:"host"`
	Port               int    `yaml:"port"`
	Username           string `yaml:"username"`
	Database           string `yaml:"database"`
	ManagementDatabase string `yaml:"management_database,omitempty"`
	SSLMode            string `yaml:"sslmode"`
	AuthMethod         string `yaml:"auth_method,omitempty"`
	AzureTenantID      string `yaml:"azure_tenant_id,omitempty"`
	AzureClientID      string `yaml:"azure_client_id,omitempty"`
	AWSRegion          string `yaml:"aws_region,omitempty"`
	GoogleInstance     string `yaml:"google_instance,omitempty"`
}

type TopicsConfig struct {
	URL string `yaml:"url,omitempty"`
}

type HockeyConfig struct {
	URL      string `yaml:"url,omitempty"`
	PerPage  int    `yaml:"per_page,omitempty"`
	MaxPages int    `yaml:"max_pages,omitempty"`
}

type MoviesConfig struct {
	URL       string `yaml:"url,omitempty"`
	StartYear int    `yaml:"start_year,omitempty"`
	EndYear   int    `yaml:"end_year,omitempty"`
	Delay     string `yaml:"delay,omitempty"`
}

type JobsConfig struct {
	UserAgent       string       `yaml:"user_agent,omitempty"`
	HTTPTimeout     string       `yaml:"http_timeout,omitempty"`
	RequestInterval string       `yaml:"request_interval,omitempty"`
	Topics          TopicsConfig `yaml:"topics"`
	Hockey          HockeyConfig `yaml:"hockey"`
	Movies          MoviesConfig `yaml:"movies"`
}

type ProjectConfig struct {
	Connection ConnectionConfig `yaml:"connection"`
	Jobs       JobsConfig       `yaml:"jobs"`
	Timeout    string           `yaml:"timeout"`
	ErrorLog   *string          `yaml:"error_log,omitempty"`
}

const ConfigFileName = "pgscrape.yaml"

// Load reads pgscrape.yaml from dir.
func Load(dir string) (*ProjectConfig, error) {
	configPath := filepath.Join(dir, ConfigFileName)
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", configPath, err)
	}
	return &cfg, nil
}

// ApplySources overlays the non-zero jobs settings onto src.
func (c *ProjectConfig) ApplySources(src *pgscrape.SourceConfig) error {
	j := c.Jobs
	if j.UserAgent != "" {
		src.UserAgent = j.UserAgent
	}
	if j.HTTPTimeout != "" {
		d, err := parseDuration("jobs.http_timeout", j.HTTPTimeout)
		if err != nil {
			return err
		}
		src.HTTPTimeout = d
	}
	if j.RequestInterval != "" {
		d, err := parseDuration("jobs.request_interval", j.RequestInterval)
		if err != nil {
			return err
		}
		src.RequestInterval = d
	}

	if j.Topics.URL != "" {
		src.TopicsURL = j.Topics.URL
	}

	if j.Hockey.URL != "" {
		src.HockeyURL = j.Hockey.URL
	}
	if j.Hockey.PerPage != 0 {
		src.HockeyPerPage = j.Hockey.PerPage
	}
	if j.Hockey.MaxPages != 0 {
		src.HockeyMaxPages = j.Hockey.MaxPages
	}

	if j.Movies.URL != "" {
		src.MoviesURL = j.Movies.URL
	}
	if j.Movies.StartYear != 0 {
		src.MoviesStartYear = j.Movies.StartYear
	}
	if j.Movies.EndYear != 0 {
		src.MoviesEndYear = j.Movies.EndYear
	}
	if j.Movies.Delay != "" {
		d, err := parseDuration("jobs.movies.delay", j.Movies.Delay)
		if err != nil {
			return err
		}
		src.MoviesDelay = d
	}
	return nil
}

// RunTimeout returns the configured timeout, or zero when unset.
func (c *ProjectConfig) RunTimeout() (time.Duration, error) {
	if c.Timeout == "" {
		return 0, nil
	}
	return parseDuration("timeout", c.Timeout)
}

func parseDuration(key, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, pgscrape.ErrInvalidConfig)
	}
	return d, nil
}
