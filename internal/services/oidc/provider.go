// Package oidc verifies login tokens issued by an external identity
// provider. A verified token upgrades a guest session to the account
// identified by the token's email claim.
package oidc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Config holds the provider settings, sourced from the environment.
type Config struct {
	Issuer       string
	ClientID     string
	ClientSecret string
	RedirectURI  string
	JWKSURL      string
}

// Enabled reports whether enough configuration is present to offer
// OIDC login.
func (c Config) Enabled() bool {
	return c.Issuer != "" && c.ClientID != ""
}

// Provider exposes the endpoints a frontend needs to start a login.
type Provider struct {
	cfg Config
}

// NewProvider creates a provider from configuration.
func NewProvider(cfg Config) *Provider {
	return &Provider{cfg: cfg}
}

// Config returns the provider settings.
func (p *Provider) Config() Config {
	return p.cfg
}

// LoginConfig contains OIDC login configuration for the frontend.
type LoginConfig struct {
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	ClientID              string `json:"client_id"`
	RedirectURI           string `json:"redirect_uri"`
	Scope                 string `json:"scope"`
}

// GetLoginConfig resolves the authorization and token endpoints from
// the issuer's discovery document, falling back to issuer-relative
// paths when discovery is unavailable.
func (p *Provider) GetLoginConfig(ctx context.Context) (*LoginConfig, error) {
	if !p.cfg.Enabled() {
		return nil, fmt.Errorf("OIDC is not configured")
	}

	var authEndpoint, tokenEndpoint string

	discoveryURL := strings.TrimSuffix(p.cfg.Issuer, "/") + "/.well-known/openid-configuration"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, discoveryURL, nil)
	if err == nil {
		client := &http.Client{Timeout: 5 * time.Second}
		resp, err := client.Do(req)
		if err == nil && resp.StatusCode == http.StatusOK {
			var discovery struct {
				AuthorizationEndpoint string `json:"authorization_endpoint"`
				TokenEndpoint         string `json:"token_endpoint"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&discovery); err == nil {
				authEndpoint = discovery.AuthorizationEndpoint
				tokenEndpoint = discovery.TokenEndpoint
			}
		}
		if resp != nil {
			if closeErr := resp.Body.Close(); closeErr != nil {
				_ = closeErr
			}
		}
	}

	base := strings.TrimSuffix(p.cfg.Issuer, "/")
	if authEndpoint == "" {
		authEndpoint = base + "/oauth2/authorize"
	}
	if tokenEndpoint == "" {
		tokenEndpoint = base + "/oauth2/token"
	}

	return &LoginConfig{
		AuthorizationEndpoint: authEndpoint,
		TokenEndpoint:         tokenEndpoint,
		ClientID:              p.cfg.ClientID,
		RedirectURI:           p.cfg.RedirectURI,
		Scope:                 "openid email profile",
	}, nil
}
