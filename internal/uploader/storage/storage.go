// Package storage defines the remote object storage the upload services write
// to. Backends live in sub-packages.
package storage

import (
	"context"
	"io"
)

// Object is one path-addressed write. Writing to an existing Path replaces
// its content.
type Object struct {
	Path        string
	Content     io.Reader
	Size        int64
	ContentType string
}

// Client writes objects with a single credential.
type Client interface {
	Upload(ctx context.Context, obj Object) error
}

// Provider builds a Client bound to a per-session bearer credential.
type Provider interface {
	ForToken(token string) Client
}

// Account identifies the owner of a bearer credential.
type Account struct {
	Name  string
	Email string
}

// AccountFetcher looks up the account behind a bearer credential.
type AccountFetcher interface {
	CurrentAccount(ctx context.Context, token string) (*Account, error)
}
