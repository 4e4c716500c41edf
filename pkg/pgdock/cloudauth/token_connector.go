package cloudauth

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vvka-141/pgdock/pkg/pgdock"
)

// expiryWarningWindow is how close to expiry a freshly acquired token has
// to be before we warn that reconnects will start failing.
const expiryWarningWindow = 5 * time.Minute

// TokenConnector establishes pools for providers that authenticate via
// short-lived tokens. The token is acquired from a TokenProvider per
// connect and used as the PostgreSQL password.
type TokenConnector struct {
	cfg          *pgdock.Config
	provider     TokenProvider
	providerName string
	logger       pgdock.Logger
}

// NewTokenConnector creates a connector backed by the given TokenProvider.
// providerName appears in error and warning messages (e.g. "AWS IAM").
func NewTokenConnector(cfg *pgdock.Config, provider TokenProvider, providerName string) *TokenConnector {
	return &TokenConnector{cfg: cfg, provider: provider, providerName: providerName}
}

// WithLogger sets the logger used for expiry warnings.
func (c *TokenConnector) WithLogger(logger pgdock.Logger) *TokenConnector {
	c.logger = logger
	return c
}

// Connect acquires a token and establishes the pool with it as the
// password.
func (c *TokenConnector) Connect(ctx context.Context) (*pgxpool.Pool, error) {
	token, expiresOn, err := c.provider.GetToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring %s token: %v: %w", c.providerName, err, pgdock.ErrConnection)
	}

	if c.logger != nil && time.Until(expiresOn) < expiryWarningWindow {
		c.logger.Info("%s token expires in %v", c.providerName, time.Until(expiresOn).Round(time.Second))
	}

	// Config copies are cheap and the token must not leak back into the
	// caller's immutable Config.
	cfgWithToken := *c.cfg
	cfgWithToken.Password = token

	return pgdock.NewStandardConnector(&cfgWithToken).Connect(ctx)
}

var _ pgdock.Connector = (*TokenConnector)(nil)
