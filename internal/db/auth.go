package db

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"cloud.google.com/go/cloudsqlconn"
	"github.com/jackc/pgx/v5"
	"github.com/vvka-141/pgdal/pkg/pgdal"
)

// tokenExpiryWarning is how close to expiry a fresh token has to be before
// the connector warns about it.
const tokenExpiryWarning = 5 * time.Minute

// authenticator prepares every new physical connection before it dials.
// It runs once per pooled connection and once per ConnectSingle.
type authenticator interface {
	prepare(ctx context.Context, cc *pgx.ConnConfig) error
	Close() error
}

func newAuthenticator(config *pgdal.ConnectionConfig, provider TokenProvider, logger pgdal.Logger) (authenticator, error) {
	switch config.AuthMethod {
	case pgdal.AuthPassword:
		return passwordAuth{}, nil
	case pgdal.AuthAWSIAM, pgdal.AuthAzureEntraID:
		if provider == nil {
			var err error
			if provider, err = newTokenProvider(config); err != nil {
				return nil, err
			}
		}
		logger.Verbose("Authenticating with %s", provider)
		return &tokenAuth{provider: provider, method: config.AuthMethod, logger: logger}, nil
	case pgdal.AuthGoogleIAM:
		logger.Verbose("Authenticating through the Cloud SQL connector for %s", config.GoogleInstance)
		return &cloudSQLAuth{instance: config.GoogleInstance}, nil
	default:
		return nil, fmt.Errorf("unknown auth method %s: %w", config.AuthMethod, pgdal.ErrInvalidConfig)
	}
}

// passwordAuth leaves the parsed config alone; pgx already reads
// $PGPASSWORD, ~/.pgpass and client certificates.
type passwordAuth struct{}

func (passwordAuth) prepare(context.Context, *pgx.ConnConfig) error { return nil }
func (passwordAuth) Close() error                                    { return nil }

// tokenAuth uses a short-lived cloud token as the password.
type tokenAuth struct {
	provider TokenProvider
	method   pgdal.AuthMethod
	logger   pgdal.Logger
}

func (a *tokenAuth) prepare(ctx context.Context, cc *pgx.ConnConfig) error {
	token, expiresOn, err := a.provider.GetToken(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire %s token: %w: %w", a.method, pgdal.ErrConnectionFailed, err)
	}
	if remaining := time.Until(expiresOn); remaining < tokenExpiryWarning {
		a.logger.Info("Warning: %s token expires in %v", a.method, remaining.Round(time.Second))
	}
	cc.Password = token
	return nil
}

func (a *tokenAuth) Close() error { return nil }

// cloudSQLAuth routes connections through a Cloud SQL dialer with IAM login.
// The dialer handles TLS, so the driver's own TLS and DNS are bypassed.
type cloudSQLAuth struct {
	instance string

	mu     sync.Mutex
	dialer *cloudsqlconn.Dialer
}

func (a *cloudSQLAuth) prepare(ctx context.Context, cc *pgx.ConnConfig) error {
	dialer, err := a.getDialer(ctx)
	if err != nil {
		return err
	}
	cc.Password = ""
	cc.TLSConfig = nil
	cc.Fallbacks = nil
	cc.LookupFunc = func(_ context.Context, host string) ([]string, error) {
		return []string{host}, nil
	}
	cc.DialFunc = func(ctx context.Context, _, _ string) (net.Conn, error) {
		return dialer.Dial(ctx, a.instance)
	}
	return nil
}

func (a *cloudSQLAuth) getDialer(ctx context.Context) (*cloudsqlconn.Dialer, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.dialer != nil {
		return a.dialer, nil
	}
	dialer, err := cloudsqlconn.NewDialer(ctx, cloudsqlconn.WithIAMAuthN())
	if err != nil {
		return nil, fmt.Errorf("failed to create Cloud SQL dialer: %w: %w", pgdal.ErrConnectionFailed, err)
	}
	a.dialer = dialer
	return dialer, nil
}

// Close releases the dialer. Call it after every pool and connection that
// used it is closed.
func (a *cloudSQLAuth) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.dialer == nil {
		return nil
	}
	err := a.dialer.Close()
	a.dialer = nil
	return err
}
