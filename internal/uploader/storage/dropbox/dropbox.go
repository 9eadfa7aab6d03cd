// Package dropbox implements storage.Provider and storage.AccountFetcher on
// top of the Dropbox SDK.
package dropbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox"
	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox/files"
	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox/users"
	"github.com/gartstein/fieldfiles/internal/uploader/storage"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const (
	AuthURL  = "https://www.dropbox.com/oauth2/authorize"
	TokenURL = "https://api.dropboxapi.com/oauth2/token"
)

// Endpoint is the Dropbox OAuth2 endpoint.
var Endpoint = oauth2.Endpoint{
	AuthURL:   AuthURL,
	TokenURL:  TokenURL,
	AuthStyle: oauth2.AuthStyleInParams,
}

// Provider creates Dropbox clients per bearer token.
type Provider struct {
	timeout time.Duration
	logger  *zap.Logger

	// urlGenerator overrides the SDK's API host resolution when set.
	urlGenerator func(hostType, namespace, route string) string
}

// NewProvider returns a Provider whose HTTP calls are bounded by timeout.
func NewProvider(timeout time.Duration, logger *zap.Logger) *Provider {
	return &Provider{
		timeout: timeout,
		logger:  logger.Named("dropbox"),
	}
}

func (p *Provider) config(token string) dropbox.Config {
	httpClient := oauth2.NewClient(context.Background(), oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	}))
	httpClient.Timeout = p.timeout

	return dropbox.Config{
		Token:        token,
		LogLevel:     dropbox.LogOff,
		Client:       httpClient,
		URLGenerator: p.urlGenerator,
	}
}

// ForToken returns a client that writes as the owner of token.
func (p *Provider) ForToken(token string) storage.Client {
	return &Client{
		files:  files.New(p.config(token)),
		logger: p.logger,
	}
}

// CurrentAccount resolves the display name and email behind token.
func (p *Provider) CurrentAccount(ctx context.Context, token string) (*storage.Account, error) {
	type result struct {
		account *users.FullAccount
		err     error
	}
	done := make(chan result, 1)
	go func() {
		account, err := users.New(p.config(token)).GetCurrentAccount()
		done <- result{account, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-done:
		if res.err != nil {
			return nil, fmt.Errorf("get current account: %w", res.err)
		}
		account := &storage.Account{Email: res.account.Email}
		if res.account.Name != nil {
			account.Name = res.account.Name.DisplayName
		}
		return account, nil
	}
}

// Client uploads to Dropbox with a fixed token.
type Client struct {
	files  files.Client
	logger *zap.Logger
}

// NewClient returns a client bound to a long-lived token, used by the
// fixed-folder upload mode.
func NewClient(token string, timeout time.Duration, logger *zap.Logger) *Client {
	p := NewProvider(timeout, logger)
	return &Client{
		files:  files.New(p.config(token)),
		logger: p.logger,
	}
}

// Upload writes obj, overwriting any file already at obj.Path.
func (c *Client) Upload(ctx context.Context, obj storage.Object) error {
	arg := files.NewUploadArg(obj.Path)
	arg.Mode = &files.WriteMode{Tagged: dropbox.Tagged{Tag: files.WriteModeOverwrite}}

	// The SDK request carries no context, so the call may outlive ctx. The
	// caller owns obj.Content and may close it once Upload returns; the
	// guard makes sure no read is in flight or started after that point.
	content := &guardedReader{r: obj.Content}

	done := make(chan error, 1)
	go func() {
		_, err := c.files.Upload(arg, content)
		done <- err
	}()

	select {
	case <-ctx.Done():
		content.abandon()
		c.logger.Warn("Upload abandoned", zap.String("path", obj.Path), zap.Error(ctx.Err()))
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return fmt.Errorf("dropbox upload %s: %w", obj.Path, err)
		}
		return nil
	}
}

var errAbandoned = errors.New("upload abandoned")

type guardedReader struct {
	mu        sync.Mutex
	r         io.Reader
	abandoned bool
}

func (g *guardedReader) Read(p []byte) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.abandoned {
		return 0, errAbandoned
	}
	return g.r.Read(p)
}

// abandon waits for an in-flight Read and fails every later one.
func (g *guardedReader) abandon() {
	g.mu.Lock()
	g.abandoned = true
	g.mu.Unlock()
}

var (
	_ storage.Provider       = (*Provider)(nil)
	_ storage.AccountFetcher = (*Provider)(nil)
	_ storage.Client         = (*Client)(nil)
)
