// Package auth connects a browser session to the staff member's own storage
// account: the OAuth2 authorization-code exchange, the signed session cookie
// that carries the resulting bearer credential, and the gin middleware that
// resolves it per request.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	e "github.com/gartstein/fieldfiles/internal/uploader/errors"
	"github.com/gartstein/fieldfiles/internal/uploader/storage"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// OAuthConfig is the app credential pair registered with the storage provider.
type OAuthConfig struct {
	AppKey    string
	AppSecret string
	// RedirectURL may be empty, in which case the provider shows the code to
	// the user who pastes it back into the client.
	RedirectURL string
	Endpoint    oauth2.Endpoint
	// HTTPClient is used for the token exchange when set.
	HTTPClient *http.Client
}

// Authorization is the outcome of a successful code exchange.
type Authorization struct {
	AccessToken  string
	AccountName  string
	AccountEmail string
}

// Manager runs the authorization-code flow. It keeps no per-flow state: every
// callback exchanges its code from scratch.
type Manager struct {
	oauth      *oauth2.Config
	accounts   storage.AccountFetcher
	httpClient *http.Client
	logger     *zap.Logger
}

// NewManager constructs a Manager. accounts is used to verify the token and
// read the account's display name after the exchange.
func NewManager(cfg OAuthConfig, accounts storage.AccountFetcher, logger *zap.Logger) *Manager {
	return &Manager{
		oauth: &oauth2.Config{
			ClientID:     cfg.AppKey,
			ClientSecret: cfg.AppSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     cfg.Endpoint,
		},
		accounts:   accounts,
		httpClient: cfg.HTTPClient,
		logger:     logger.Named("oauth"),
	}
}

// BeginAuthorization returns the provider URL the user must visit.
func (m *Manager) BeginAuthorization() string {
	return m.oauth.AuthCodeURL("", oauth2.SetAuthURLParam("token_access_type", "online"))
}

// CompleteAuthorization exchanges code for a bearer token and looks up the
// account it belongs to. A code the provider rejects yields ErrInvalidGrant.
func (m *Manager) CompleteAuthorization(ctx context.Context, code string) (*Authorization, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: authorization code is required", e.ErrInvalidInput)
	}

	if m.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)
	}

	token, err := m.oauth.Exchange(ctx, code)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil &&
			retrieveErr.Response.StatusCode >= 400 && retrieveErr.Response.StatusCode < 500 {
			m.logger.Info("Authorization code rejected",
				zap.Int("status", retrieveErr.Response.StatusCode),
				zap.String("error_code", retrieveErr.ErrorCode),
			)
			return nil, fmt.Errorf("%w: %s", e.ErrInvalidGrant, retrieveErr.ErrorCode)
		}
		return nil, fmt.Errorf("token exchange failed: %w", err)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("%w: empty access token", e.ErrInvalidGrant)
	}

	account, err := m.accounts.CurrentAccount(ctx, token.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("account lookup failed: %w", err)
	}

	m.logger.Info("Storage account connected", zap.String("account_email", account.Email))
	return &Authorization{
		AccessToken:  token.AccessToken,
		AccountName:  account.Name,
		AccountEmail: account.Email,
	}, nil
}
