package db

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/rds/auth"
	"github.com/vvka-141/pgdal/pkg/pgdal"
)

// TokenProvider acquires a short-lived credential that is sent as the
// PostgreSQL password.
type TokenProvider interface {
	GetToken(ctx context.Context) (token string, expiresOn time.Time, err error)

	// String describes the provider for logs. It must not include secrets.
	String() string
}

// AzurePostgreSQLScope is the Entra ID scope for Azure Database for PostgreSQL.
const AzurePostgreSQLScope = "https://ossrdbms-aad.database.windows.net/.default"

// rdsTokenLifetime is fixed by AWS.
const rdsTokenLifetime = 15 * time.Minute

func newTokenProvider(config *pgdal.ConnectionConfig) (TokenProvider, error) {
	switch config.AuthMethod {
	case pgdal.AuthAWSIAM:
		endpoint := net.JoinHostPort(config.Host, strconv.Itoa(config.Port))
		return NewAWSIAMTokenProvider(endpoint, config.AWSRegion, config.Username)
	case pgdal.AuthAzureEntraID:
		if config.AzureTenantID != "" && config.AzureClientID != "" && config.AzureClientSecret != "" {
			return NewAzureServicePrincipalProvider(config.AzureTenantID, config.AzureClientID, config.AzureClientSecret)
		}
		return NewAzureDefaultCredentialProvider()
	default:
		return nil, fmt.Errorf("auth method %s does not use tokens: %w", config.AuthMethod, pgdal.ErrInvalidConfig)
	}
}

// AWSIAMTokenProvider builds RDS IAM authentication tokens with the default
// AWS credential chain.
type AWSIAMTokenProvider struct {
	endpoint string
	region   string
	username string
}

// NewAWSIAMTokenProvider returns a provider for endpoint (host:port).
func NewAWSIAMTokenProvider(endpoint, region, username string) (*AWSIAMTokenProvider, error) {
	switch {
	case endpoint == "":
		return nil, fmt.Errorf("aws-iam auth requires an endpoint (host:port): %w", pgdal.ErrInvalidConfig)
	case region == "":
		return nil, fmt.Errorf("aws-iam auth requires a region (--aws-region or $AWS_REGION): %w", pgdal.ErrInvalidConfig)
	case username == "":
		return nil, fmt.Errorf("aws-iam auth requires a database username: %w", pgdal.ErrInvalidConfig)
	}
	return &AWSIAMTokenProvider{endpoint: endpoint, region: region, username: username}, nil
}

func (p *AWSIAMTokenProvider) GetToken(ctx context.Context) (string, time.Time, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(p.region))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to load AWS config: %w", err)
	}

	issued := time.Now()
	token, err := auth.BuildAuthToken(ctx, p.endpoint, p.region, p.username, cfg.Credentials)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to build RDS auth token: %w", err)
	}
	return token, issued.Add(rdsTokenLifetime), nil
}

func (p *AWSIAMTokenProvider) String() string {
	return fmt.Sprintf("AWSIAM(endpoint=%s, region=%s, user=%s)", p.endpoint, p.region, p.username)
}

// AzureCredentialProvider requests Entra ID tokens for PostgreSQL from an
// azcore credential.
type AzureCredentialProvider struct {
	credential azcore.TokenCredential
	label      string
}

// NewAzureServicePrincipalProvider authenticates as an app registration.
func NewAzureServicePrincipalProvider(tenantID, clientID, clientSecret string) (*AzureCredentialProvider, error) {
	if tenantID == "" || clientID == "" || clientSecret == "" {
		return nil, fmt.Errorf("azure service principal requires tenant id, client id and $AZURE_CLIENT_SECRET: %w", pgdal.ErrInvalidConfig)
	}
	cred, err := azidentity.NewClientSecretCredential(tenantID, clientID, clientSecret, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure credential: %w: %w", pgdal.ErrInvalidConfig, err)
	}
	return &AzureCredentialProvider{
		credential: cred,
		label:      fmt.Sprintf("AzureServicePrincipal(tenant=%s, client=%s)", tenantID, clientID),
	}, nil
}

// NewAzureDefaultCredentialProvider uses DefaultAzureCredential: environment,
// workload identity, managed identity, then developer CLIs.
func NewAzureDefaultCredentialProvider() (*AzureCredentialProvider, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure default credential: %w: %w", pgdal.ErrInvalidConfig, err)
	}
	return &AzureCredentialProvider{credential: cred, label: "AzureDefaultCredential"}, nil
}

func (p *AzureCredentialProvider) GetToken(ctx context.Context) (string, time.Time, error) {
	token, err := p.credential.GetToken(ctx, policy.TokenRequestOptions{
		Scopes: []string{AzurePostgreSQLScope},
	})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("azure token acquisition failed: %w", err)
	}
	return token.Token, token.ExpiresOn, nil
}

func (p *AzureCredentialProvider) String() string {
	return p.label
}
