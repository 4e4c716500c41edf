// Package config loads connection settings for the CLI from a project
// file (pgdock.yaml), dotenv files, and PG* environment variables.
// The library itself never reads files; this is CLI-side glue.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/vvka-141/pgdock/pkg/pgdock"
)

// ErrConfigNotFound is returned when the config file does not exist.
// Callers can check for this with errors.Is(err, config.ErrConfigNotFound).
var ErrConfigNotFound = errors.New("config file not found")

// ConfigFileName is the project configuration file looked up in the
// working directory.
const ConfigFileName = "pgdock.yaml"

// FileConfig is the YAML shape of a project configuration.
type FileConfig struct {
	URL                  string `yaml:"url,omitempty"`
	Host                 string `yaml:"host,omitempty"`
	Port                 int    `yaml:"port,omitempty"`
	User                 string `yaml:"user,omitempty"`
	Password             string `yaml:"password,omitempty"`
	Database             string `yaml:"database,omitempty"`
	PoolSize             int    `yaml:"pool_size,omitempty"`
	SSLMode              string `yaml:"sslmode,omitempty"`
	AcceptInvalidCerts   bool   `yaml:"accept_invalid_certs,omitempty"`
	ConnectTimeoutSecs   int    `yaml:"connect_timeout_secs,omitempty"`
	StatementTimeoutSecs int    `yaml:"statement_timeout_secs,omitempty"`

	AuthMethod     string `yaml:"auth_method,omitempty"`
	AWSRegion      string `yaml:"aws_region,omitempty"`
	GoogleInstance string `yaml:"google_instance,omitempty"`
	AzureTenantID  string `yaml:"azure_tenant_id,omitempty"`
	AzureClientID  string `yaml:"azure_client_id,omitempty"`
}

// Load reads ConfigFileName from dir and resolves it to a pgdock.Config.
func Load(dir string) (*pgdock.Config, error) {
	path := filepath.Join(dir, ConfigFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parsing %s: %v: %w", path, err, pgdock.ErrConfig)
	}
	return fc.Resolve()
}

// Resolve converts the file shape into a validated pgdock.Config.
// A url key provides the base; explicit keys override it.
func (fc *FileConfig) Resolve() (*pgdock.Config, error) {
	cfg := pgdock.DefaultConfig()

	if fc.URL != "" {
		parsed, err := pgdock.ParseURL(fc.URL)
		if err != nil {
			return nil, err
		}
		cfg = parsed
	}

	if fc.Host != "" {
		cfg.Host = fc.Host
	}
	if fc.Port != 0 {
		if fc.Port < 0 || fc.Port > 65535 {
			return nil, fmt.Errorf("port %d out of range: %w", fc.Port, pgdock.ErrConfig)
		}
		cfg.Port = uint16(fc.Port)
	}
	if fc.User != "" {
		cfg.User = fc.User
	}
	if fc.Password != "" {
		cfg.Password = fc.Password
	}
	if fc.Database != "" {
		cfg.Database = fc.Database
	}
	if fc.PoolSize != 0 {
		cfg.PoolSize = fc.PoolSize
	}
	if fc.SSLMode != "" {
		mode, err := pgdock.ParseSSLMode(fc.SSLMode)
		if err != nil {
			return nil, err
		}
		cfg.SSLMode = mode
	}
	cfg.AcceptInvalidCerts = cfg.AcceptInvalidCerts || fc.AcceptInvalidCerts
	if fc.ConnectTimeoutSecs != 0 {
		cfg.ConnectTimeout = time.Duration(fc.ConnectTimeoutSecs) * time.Second
	}
	if fc.StatementTimeoutSecs != 0 {
		cfg.StatementTimeout = time.Duration(fc.StatementTimeoutSecs) * time.Second
	}

	if fc.AuthMethod != "" {
		method, err := parseAuthMethod(fc.AuthMethod)
		if err != nil {
			return nil, err
		}
		cfg.AuthMethod = method
	}
	cfg.AWSRegion = fc.AWSRegion
	cfg.GoogleInstance = fc.GoogleInstance
	cfg.AzureTenantID = fc.AzureTenantID
	cfg.AzureClientID = fc.AzureClientID

	return cfg, nil
}

func parseAuthMethod(s string) (pgdock.AuthMethod, error) {
	switch s {
	case "standard", "":
		return pgdock.AuthMethodStandard, nil
	case "aws-iam":
		return pgdock.AuthMethodAWSIAM, nil
	case "azure-entra-id":
		return pgdock.AuthMethodAzureEntraID, nil
	case "google-iam":
		return pgdock.AuthMethodGoogleIAM, nil
	default:
		return pgdock.AuthMethodStandard, fmt.Errorf("unknown auth_method %q: %w", s, pgdock.ErrConfig)
	}
}

// LoadDotenv loads a .env file into the process environment if present.
// Missing files are not an error.
func LoadDotenv(path string) error {
	if path == "" {
		err := godotenv.Load()
		if err != nil && os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

// ApplyEnv overlays the standard PG* environment variables onto cfg:
// PGHOST, PGPORT, PGUSER, PGPASSWORD, PGDATABASE, PGSSLMODE.
func ApplyEnv(cfg *pgdock.Config) error {
	if v := os.Getenv("PGHOST"); v != "" {
		cfg.Host = v
	}
	if v := os.Getenv("PGPORT"); v != "" {
		port, err := strconv.ParseUint(v, 10, 16)
		if err != nil {
			return fmt.Errorf("invalid PGPORT %q: %w", v, pgdock.ErrConfig)
		}
		cfg.Port = uint16(port)
	}
	if v := os.Getenv("PGUSER"); v != "" {
		cfg.User = v
	}
	if v := os.Getenv("PGPASSWORD"); v != "" {
		cfg.Password = v
	}
	if v := os.Getenv("PGDATABASE"); v != "" {
		cfg.Database = v
	}
	if v := os.Getenv("PGSSLMODE"); v != "" {
		mode, err := pgdock.ParseSSLMode(v)
		if err != nil {
			return err
		}
		cfg.SSLMode = mode
	}
	return nil
}
