package db

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/vvka-141/pgscrape/internal/config"
	"github.com/vvka-141/pgscrape/pkg/pgscrape"
)

// GranularConnFlags holds the libpq-style CLI flags (-h, -p, -U, -d, --sslmode).
// There is no password flag; use DB_PASSWORD, PGPASSWORD, ~/.pgpass or the connection string.
type GranularConnFlags struct {
	Host     string
	Port     int
	Username string
	Database string
	SSLMode  string
}

// IsEmpty ignores Database, which may be combined with --connection.
func (g *GranularConnFlags) IsEmpty() bool {
	return g == nil || (g.Host == "" && g.Port == 0 && g.Username == "" && g.SSLMode == "")
}

// CloudFlags selects a managed-database auth method.
type CloudFlags struct {
	AWS            bool
	AWSRegion      string
	Google         bool
	GoogleInstance string
	Azure          bool
	AzureTenantID  string
	AzureClientID  string
}

// EnvVars captures the environment consulted during resolution. The DB_*
// names come first because that is what scrape deployments set in .env.
type EnvVars struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	PGHost     string
	PGPort     string
	PGUser     string
	PGPassword string
	PGDatabase string
	PGSSLMode  string

	DatabaseURL string

	AWSRegion         string
	AzureTenantID     string
	AzureClientID     string
	AzureClientSecret string

	OSUser string
}

// LoadFromEnvironment reads EnvVars from the process environment.
func LoadFromEnvironment() *EnvVars {
	osUser := os.Getenv("USER")
	if osUser == "" {
		osUser = os.Getenv("USERNAME")
	}
	return &EnvVars{
		DBHost:            os.Getenv("DB_HOST"),
		DBPort:            os.Getenv("DB_PORT"),
		DBUser:            os.Getenv("DB_USER"),
		DBPassword:        os.Getenv("DB_PASSWORD"),
		DBName:            os.Getenv("DB_NAME"),
		PGHost:            os.Getenv("PGHOST"),
		PGPort:            os.Getenv("PGPORT"),
		PGUser:            os.Getenv("PGUSER"),
		PGPassword:        os.Getenv("PGPASSWORD"),
		PGDatabase:        os.Getenv("PGDATABASE"),
		PGSSLMode:         os.Getenv("PGSSLMODE"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		AWSRegion:         os.Getenv("AWS_REGION"),
		AzureTenantID:     os.Getenv("AZURE_TENANT_ID"),
		AzureClientID:     os.Getenv("AZURE_CLIENT_ID"),
		AzureClientSecret: os.Getenv("AZURE_CLIENT_SECRET"),
		OSUser:            osUser,
	}
}

// ResolveInput bundles every source of connection settings.
type ResolveInput struct {
	ConnectionString string
	Flags            *GranularConnFlags
	Cloud            *CloudFlags
	Env              *EnvVars
	Project          *config.ProjectConfig
}

// Resolved is the outcome of ResolveConnection.
type Resolved struct {
	// Target points at the scrape database.
	Target *pgscrape.ConnectionConfig
	// MaintenanceDB is used for CREATE DATABASE and DROP DATABASE.
	MaintenanceDB string
}

// layer is one source of connection values; empty fields defer to the next layer.
type layer struct {
	source   string
	host     string
	port     string
	user     string
	password string
	database string
	sslmode  string
}

// ResolveConnection resolves the target connection. A --connection string is
// used as-is (only -d may override its database). Otherwise each field takes
// the first value found in: flags, DB_*, PG*, DATABASE_URL, pgscrape.yaml,
// then defaults (localhost:5432, sslmode=prefer, database scrapethissite).
func ResolveConnection(in ResolveInput) (*Resolved, error) {
	flags := in.Flags
	if flags == nil {
		flags = &GranularConnFlags{}
	}
	env := in.Env
	if env == nil {
		env = &EnvVars{}
	}
	var pc config.ConnectionConfig
	if in.Project != nil {
		pc = in.Project.Connection
	}

	if in.ConnectionString != "" && !flags.IsEmpty() {
		return nil, fmt.Errorf("cannot combine --connection with -h, -p, -U or --sslmode: %w", pgscrape.ErrInvalidConfig)
	}

	var cfg *pgscrape.ConnectionConfig
	var err error
	if in.ConnectionString != "" {
		cfg, err = ParseConnectionString(in.ConnectionString)
		if err != nil {
			return nil, fmt.Errorf("invalid --connection: %w", err)
		}
		if flags.Database != "" {
			cfg.Database = flags.Database
		}
	} else {
		cfg, err = resolveLayers(flags, env, pc)
		if err != nil {
			return nil, err
		}
	}

	if cfg.Database == "" {
		cfg.Database = pgscrape.DefaultDatabaseName
	}
	if cfg.SSLMode == "" {
		cfg.SSLMode = firstNonEmpty(env.PGSSLMode, "prefer")
	}
	if cfg.AppName == "" {
		cfg.AppName = pgscrape.DefaultAppName
	}

	if err := applyAuth(cfg, in.Cloud, env, pc); err != nil {
		return nil, err
	}

	maintenance := firstNonEmpty(pc.ManagementDatabase, pgscrape.DefaultManagementDB)
	if maintenance == cfg.Database {
		return nil, fmt.Errorf("target database %q cannot also be the maintenance database: %w", cfg.Database, pgscrape.ErrInvalidConfig)
	}

	return &Resolved{Target: cfg, MaintenanceDB: maintenance}, nil
}

func resolveLayers(flags *GranularConnFlags, env *EnvVars, pc config.ConnectionConfig) (*pgscrape.ConnectionConfig, error) {
	layers := []layer{
		{source: "flags", host: flags.Host, port: portString(flags.Port), user: flags.Username, database: flags.Database, sslmode: flags.SSLMode},
		{source: "DB_*", host: env.DBHost, port: env.DBPort, user: env.DBUser, password: env.DBPassword, database: env.DBName},
		{source: "PG*", host: env.PGHost, port: env.PGPort, user: env.PGUser, password: env.PGPassword, database: env.PGDatabase, sslmode: env.PGSSLMode},
	}

	if env.DatabaseURL != "" {
		u, err := ParseConnectionString(env.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid $DATABASE_URL: %w", err)
		}
		layers = append(layers, layer{
			source: "DATABASE_URL", host: u.Host, port: portString(u.Port),
			user: u.Username, password: u.Password, database: u.Database, sslmode: u.SSLMode,
		})
	}

	layers = append(layers,
		layer{source: config.ConfigFileName, host: pc.Host, port: portString(pc.Port), user: pc.Username, database: pc.Database, sslmode: pc.SSLMode},
		layer{source: "defaults", host: "localhost", port: "5432", user: env.OSUser},
	)

	pick := func(get func(layer) string) (string, string) {
		for _, l := range layers {
			if v := get(l); v != "" {
				return v, l.source
			}
		}
		return "", ""
	}

	cfg := &pgscrape.ConnectionConfig{
		AuthMethod:       pgscrape.AuthMethodStandard,
		AdditionalParams: make(map[string]string),
	}
	cfg.Host, _ = pick(func(l layer) string { return l.host })
	cfg.Username, _ = pick(func(l layer) string { return l.user })
	cfg.Password, _ = pick(func(l layer) string { return l.password })
	cfg.Database, _ = pick(func(l layer) string { return l.database })
	cfg.SSLMode, _ = pick(func(l layer) string { return l.sslmode })

	port, source := pick(func(l layer) string { return l.port })
	n, err := strconv.Atoi(port)
	if err != nil || n <= 0 || n > 65535 {
		return nil, fmt.Errorf("invalid port %q from %s: %w", port, source, pgscrape.ErrInvalidConfig)
	}
	cfg.Port = n

	return cfg, nil
}

// applyAuth sets cloud auth from flags, falling back to pgscrape.yaml auth_method.
func applyAuth(cfg *pgscrape.ConnectionConfig, cloud *CloudFlags, env *EnvVars, pc config.ConnectionConfig) error {
	if cloud == nil {
		cloud = &CloudFlags{}
	}

	selected := 0
	for _, on := range []bool{cloud.AWS, cloud.Google, cloud.Azure} {
		if on {
			selected++
		}
	}
	if selected > 1 {
		return fmt.Errorf("only one of --aws, --google, --azure may be set: %w", pgscrape.ErrInvalidConfig)
	}

	method := strings.ToLower(pc.AuthMethod)
	switch {
	case cloud.AWS:
		method = "aws"
	case cloud.Google:
		method = "google"
	case cloud.Azure:
		method = "azure"
	}

	switch method {
	case "", "standard":
		cfg.AuthMethod = pgscrape.AuthMethodStandard
	case "aws":
		cfg.AuthMethod = pgscrape.AuthMethodAWSIAM
		cfg.AWSRegion = firstNonEmpty(cloud.AWSRegion, env.AWSRegion, pc.AWSRegion)
	case "google":
		cfg.AuthMethod = pgscrape.AuthMethodGoogleIAM
		cfg.GoogleInstance = firstNonEmpty(cloud.GoogleInstance, pc.GoogleInstance)
	case "azure":
		cfg.AuthMethod = pgscrape.AuthMethodAzureEntraID
		cfg.AzureTenantID = firstNonEmpty(cloud.AzureTenantID, env.AzureTenantID, pc.AzureTenantID)
		cfg.AzureClientID = firstNonEmpty(cloud.AzureClientID, env.AzureClientID, pc.AzureClientID)
		cfg.AzureClientSecret = env.AzureClientSecret
	default:
		return fmt.Errorf("auth_method %q in %s: %w", pc.AuthMethod, config.ConfigFileName, pgscrape.ErrUnsupportedAuthMethod)
	}
	return nil
}

func portString(p int) string {
	if p == 0 {
		return ""
	}
	return strconv.Itoa(p)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
