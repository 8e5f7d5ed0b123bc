package oidc

import (
	"context"
	"strings"

	"golang.org/x/oauth2"
)

// Client wraps OAuth2 client functionality.
type Client struct {
	config *oauth2.Config
}

// NewClient creates a new OAuth2 client from OIDC config.
func NewClient(cfg Config) *Client {
	base := strings.TrimSuffix(cfg.Issuer, "/")
	config := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Scopes:       []string{"openid", "email", "profile"},
		Endpoint: oauth2.Endpoint{
			AuthURL:  base + "/oauth2/authorize",
			TokenURL: base + "/oauth2/token",
		},
	}

	return &Client{config: config}
}

// ExchangeCode exchanges an authorization code for tokens.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	return c.config.Exchange(ctx, code)
}

// AuthCodeURL returns the authorization URL.
func (c *Client) AuthCodeURL(state string) string {
	return c.config.AuthCodeURL(state)
}
