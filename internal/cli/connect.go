package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vvka-141/pgdock/internal/config"
	"github.com/vvka-141/pgdock/internal/logging"
	"github.com/vvka-141/pgdock/pkg/pgdock"
	"github.com/vvka-141/pgdock/pkg/pgdock/cloudauth"
)

// resolveConfig builds a connection config from, in increasing priority:
// pgdock.yaml, environment variables (optionally via --env-file), and
// command-line flags.
func resolveConfig(cmd *cobra.Command) (*pgdock.Config, error) {
	cfg, err := config.Load(".")
	if err != nil {
		if !errors.Is(err, config.ErrConfigNotFound) {
			return nil, err
		}
		cfg = pgdock.DefaultConfig()
	}

	envFile, _ := cmd.Flags().GetString("env-file")
	if err := config.LoadDotenv(envFile); err != nil {
		return nil, fmt.Errorf("loading env file: %v: %w", err, pgdock.ErrConfig)
	}
	if err := config.ApplyEnv(cfg); err != nil {
		return nil, err
	}

	if url, _ := cmd.Flags().GetString("url"); url != "" {
		parsed, err := pgdock.ParseURL(url)
		if err != nil {
			return nil, err
		}
		// URL replaces the target but never pool sizing or the
		// statement budget.
		parsed.PoolSize = cfg.PoolSize
		parsed.StatementTimeout = cfg.StatementTimeout
		cfg = parsed
	}

	if v, _ := cmd.Flags().GetString("host"); v != "" {
		cfg.Host = v
	}
	if v, _ := cmd.Flags().GetInt("port"); v != 0 {
		if v < 0 || v > 65535 {
			return nil, fmt.Errorf("port %d out of range: %w", v, pgdock.ErrConfig)
		}
		cfg.Port = uint16(v)
	}
	if v, _ := cmd.Flags().GetString("user"); v != "" {
		cfg.User = v
	}
	if v, _ := cmd.Flags().GetString("dbname"); v != "" {
		cfg.Database = v
	}
	if v, _ := cmd.Flags().GetString("sslmode"); v != "" {
		mode, err := pgdock.ParseSSLMode(v)
		if err != nil {
			return nil, err
		}
		cfg.SSLMode = mode
	}
	if v, _ := cmd.Flags().GetBool("accept-invalid-certs"); v {
		cfg.AcceptInvalidCerts = true
	}
	if v, _ := cmd.Flags().GetInt("pool-size"); v != 0 {
		cfg.PoolSize = v
	}
	if v, _ := cmd.Flags().GetInt("connect-timeout"); v != 0 {
		cfg.ConnectTimeout = time.Duration(v) * time.Second
	}
	if v, _ := cmd.Flags().GetInt("statement-timeout"); v != 0 {
		cfg.StatementTimeout = time.Duration(v) * time.Second
	}

	if cfg.Password == "" && cfg.AuthMethod == pgdock.AuthMethodStandard {
		cfg.Password = promptPassword(cfg.User)
	}

	return cfg, nil
}

// promptPassword reads a password from the terminal. Returns "" when not
// interactive; the server may still accept trust or peer auth.
func promptPassword(user string) string {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return ""
	}
	fmt.Fprintf(os.Stderr, "Password for user %s: ", user)
	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return ""
	}
	return string(pw)
}

// openPool connects a pool using the resolved config, honoring cloud IAM
// auth methods.
func openPool(cmd *cobra.Command) (*pgdock.Pool, error) {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return nil, err
	}

	logger := logging.NewConsoleLogger(getVerboseFlag(cmd))

	connector, err := cloudauth.ForConfig(cfg)
	if err != nil {
		return nil, err
	}
	return pgdock.NewPoolWithConnector(context.Background(), cfg, connector, logger)
}
