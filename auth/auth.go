// Package auth acquires the bearer token used to call the AITL API.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/s0up4200/aitl/aitl"
)

const (
	// DefaultAuthorityHost is the Azure AD login endpoint
	DefaultAuthorityHost = "https://login.microsoftonline.com"
	// DefaultResource is the audience of Azure Resource Manager tokens
	DefaultResource = "https://management.azure.com/"

	defaultTimeout = 30 * time.Second
	op             = "auth"
)

// Missing settings, reported before any network call
var (
	ErrMissingTenantID     = errors.New("tenant id is required")
	ErrMissingClientID     = errors.New("client id is required")
	ErrMissingClientSecret = errors.New("client secret is required")
)

// Config holds the settings needed to obtain a token
type Config struct {
	// AccessToken is used verbatim when set, skipping the token exchange
	AccessToken   string
	TenantID      string
	ClientID      string
	ClientSecret  string
	AuthorityHost string
	Resource      string
}

// Provider obtains tokens for the configured service principal
type Provider struct {
	config     Config
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewProvider creates a token provider. A nil httpClient selects a client with a 30s timeout.
func NewProvider(cfg Config, httpClient *http.Client, logger zerolog.Logger) *Provider {
	if cfg.AuthorityHost == "" {
		cfg.AuthorityHost = DefaultAuthorityHost
	}
	if cfg.Resource == "" {
		cfg.Resource = DefaultResource
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Provider{
		config:     cfg,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Credentials returns credentials for the AITL client, exchanging the client
// secret for a token unless a static access token is configured.
func (p *Provider) Credentials(ctx context.Context) (aitl.Credentials, error) {
	token, err := p.Token(ctx)
	if err != nil {
		return aitl.Credentials{}, err
	}
	return aitl.NewCredentials(token)
}

// Token returns a bearer token
func (p *Provider) Token(ctx context.Context) (string, error) {
	if token := strings.TrimSpace(p.config.AccessToken); token != "" {
		p.logger.Debug().Msg("Using configured access token")
		return token, nil
	}

	if err := p.validate(); err != nil {
		return "", aitl.NewValidationError(op, err)
	}

	cc := clientcredentials.Config{
		ClientID:     p.config.ClientID,
		ClientSecret: p.config.ClientSecret,
		TokenURL:     p.tokenURL(),
		EndpointParams: url.Values{
			"resource": {p.config.Resource},
		},
		AuthStyle: oauth2.AuthStyleInParams,
	}

	p.logger.Debug().
		Str("tenant_id", p.config.TenantID).
		Str("client_id", p.config.ClientID).
		Str("token_url", cc.TokenURL).
		Msg("Requesting access token")

	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	tok, err := cc.Token(ctx)
	if err != nil {
		return "", classify(err)
	}

	p.logger.Debug().
		Time("expiry", tok.Expiry).
		Msg("Access token acquired")

	return tok.AccessToken, nil
}

func (p *Provider) validate() error {
	switch {
	case p.config.TenantID == "":
		return ErrMissingTenantID
	case p.config.ClientID == "":
		return ErrMissingClientID
	case p.config.ClientSecret == "":
		return ErrMissingClientSecret
	}
	return nil
}

func (p *Provider) tokenURL() string {
	return fmt.Sprintf("%s/%s/oauth2/token", strings.TrimRight(p.config.AuthorityHost, "/"), url.PathEscape(p.config.TenantID))
}

// classify maps token endpoint failures onto the client error kinds
func classify(err error) error {
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		e := &aitl.Error{
			Kind:    aitl.KindAPI,
			Op:      op,
			Code:    rerr.ErrorCode,
			Message: rerr.ErrorDescription,
			Body:    string(rerr.Body),
			Err:     err,
		}
		if rerr.Response != nil {
			e.StatusCode = rerr.Response.StatusCode
			e.Retryable = e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
		}
		if e.Message == "" {
			e.Message = "token request rejected"
		}
		return e
	}

	return &aitl.Error{
		Kind:    aitl.KindTransport,
		Op:      op,
		Message: fmt.Sprintf("token request failed: %v", err),
		Err:     err,
	}
}
