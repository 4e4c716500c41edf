// Package cloudauth provides Connector implementations for cloud IAM
// authentication: AWS RDS IAM, Azure Entra ID, and Google Cloud SQL.
// Short-lived tokens are acquired at connect time and used as the session
// password; rotation across reconnects is the caller's concern.
package cloudauth

import (
	"context"
	"fmt"
	"time"

	"github.com/vvka-141/pgdock/pkg/pgdock"
)

// TokenProvider acquires a short-lived authentication token used as the
// database password.
type TokenProvider interface {
	// GetToken returns the token and its expiry time.
	GetToken(ctx context.Context) (string, time.Time, error)
}

// ForConfig returns the Connector matching the config's AuthMethod.
// AuthMethodStandard yields the plain username/password connector.
func ForConfig(cfg *pgdock.Config) (pgdock.Connector, error) {
	switch cfg.AuthMethod {
	case pgdock.AuthMethodStandard:
		return pgdock.NewStandardConnector(cfg), nil
	case pgdock.AuthMethodAWSIAM:
		return newAWSConnector(cfg)
	case pgdock.AuthMethodAzureEntraID:
		return newAzureConnector(cfg)
	case pgdock.AuthMethodGoogleIAM:
		return newGoogleConnector(cfg)
	default:
		return nil, fmt.Errorf("unsupported auth method %v: %w", cfg.AuthMethod, pgdock.ErrConfig)
	}
}

func newAWSConnector(cfg *pgdock.Config) (pgdock.Connector, error) {
	endpoint := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	provider, err := NewAWSIAMTokenProvider(endpoint, cfg.AWSRegion, cfg.User)
	if err != nil {
		return nil, err
	}
	return NewTokenConnector(cfg, provider, "AWS IAM"), nil
}

func newAzureConnector(cfg *pgdock.Config) (pgdock.Connector, error) {
	var provider TokenProvider
	var err error

	if cfg.AzureTenantID != "" && cfg.AzureClientID != "" && cfg.AzureClientSecret != "" {
		provider, err = NewAzureServicePrincipalProvider(cfg.AzureTenantID, cfg.AzureClientID, cfg.AzureClientSecret)
	} else {
		provider, err = NewAzureDefaultCredentialProvider()
	}
	if err != nil {
		return nil, err
	}
	return NewTokenConnector(cfg, provider, "Azure"), nil
}

func newGoogleConnector(cfg *pgdock.Config) (pgdock.Connector, error) {
	if cfg.GoogleInstance == "" {
		return nil, fmt.Errorf("Google Cloud SQL IAM auth requires an instance connection name (project:region:instance): %w", pgdock.ErrConfig)
	}
	if cfg.User == "" {
		return nil, fmt.Errorf("Google Cloud SQL IAM auth requires a username: %w", pgdock.ErrConfig)
	}
	return NewGoogleCloudSQLConnector(cfg, cfg.GoogleInstance), nil
}
