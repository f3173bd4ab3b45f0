package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/pgscrape/pkg/pgscrape"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(content), 0644))
	return dir
}

func TestLoad_AllFields(t *testing.T) {
	dir := writeConfig(t, `connection:
  host: myhost
  port: 5433
  username: myuser
  database: scrapes
  sslmode: require
  auth_method: aws
  aws_region: eu-west-1

jobs:
  user_agent: pgscrape-test
  http_timeout: 5s
  topics:
    url: http://example.test/advanced/
  hockey:
    per_page: 100
    max_pages: 3
  movies:
    start_year: 2012
    end_year: 2013
    delay: 250ms

timeout: 2m
error_log: ""
`)

	cfg, err := Load(dir)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "myhost", cfg.Connection.Host)
	assert.Equal(t, 5433, cfg.Connection.Port)
	assert.Equal(t, "myuser", cfg.Connection.Username)
	assert.Equal(t, "scrapes", cfg.Connection.Database)
	assert.Equal(t, "require", cfg.Connection.SSLMode)
	assert.Equal(t, "aws", cfg.Connection.AuthMethod)
	assert.Equal(t, "eu-west-1", cfg.Connection.AWSRegion)
	assert.Equal(t, 100, cfg.Jobs.Hockey.PerPage)
	assert.Equal(t, "2m", cfg.Timeout)
	require.NotNil(t, cfg.ErrorLog)
	assert.Equal(t, "", *cfg.ErrorLog)
}

func TestLoad_FileNotFound(t *testing.T) {
	cfg, err := Load(t.TempDir())
	assert.True(t, errors.Is(err, ErrConfigNotFound), "expected ErrConfigNotFound, got: %v", err)
	assert.Nil(t, cfg)
}

func TestLoad_InvalidYAML(t *testing.T) {
	cfg, err := Load(writeConfig(t, "{{invalid"))
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestApplySources_OverlaysOnlySetFields(t *testing.T) {
	cfg, err := Load(writeConfig(t, `jobs:
  http_timeout: 5s
  request_interval: 200ms
  hockey:
    max_pages: 3
  movies:
    start_year: 2012
    delay: 250ms
`))
	require.NoError(t, err)

	src := pgscrape.DefaultSourceConfig()
	require.NoError(t, cfg.ApplySources(&src))

	assert.Equal(t, 5*time.Second, src.HTTPTimeout)
	assert.Equal(t, 3, src.HockeyMaxPages)
	assert.Equal(t, pgscrape.DefaultHockeyPerPage, src.HockeyPerPage)
	assert.Equal(t, 2012, src.MoviesStartYear)
	assert.Equal(t, pgscrape.DefaultMoviesEndYear, src.MoviesEndYear)
	assert.Equal(t, 250*time.Millisecond, src.MoviesDelay)
	assert.Equal(t, 200*time.Millisecond, src.RequestInterval)
	assert.Equal(t, pgscrape.DefaultTopicsURL, src.TopicsURL)
	assert.Equal(t, pgscrape.DefaultUserAgent, src.UserAgent)
}

func TestApplySources_InvalidDuration(t *testing.T) {
	cfg := &ProjectConfig{Jobs: JobsConfig{Movies: MoviesConfig{Delay: "soon"}}}
	src := pgscrape.DefaultSourceConfig()

	err := cfg.ApplySources(&src)
	assert.ErrorIs(t, err, pgscrape.ErrInvalidConfig)
}

func TestRunTimeout(t *testing.T) {
	d, err := (&ProjectConfig{}).RunTimeout()
	require.NoError(t, err)
	assert.Zero(t, d)

	d, err = (&ProjectConfig{Timeout: "90s"}).RunTimeout()
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d)

	_, err = (&ProjectConfig{Timeout: "forever"}).RunTimeout()
	assert.ErrorIs(t, err, pgscrape.ErrInvalidConfig)
}
