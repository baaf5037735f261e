package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nhle/messagelist/internal/model"
)

// AuthError indicates that authentication has failed or expired for a source.
// It is returned by source clients when the server rejects the credentials.
type AuthError struct {
	SourceType SourceType
	Message    string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error (%s): %s", e.SourceType, e.Message)
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// SourceType identifies the kind of message source.
type SourceType string

const (
	SourceTypeIMAP    SourceType = "imap"
	SourceTypeMaildir SourceType = "maildir"
)

// FetchOptions bounds a fetch.
type FetchOptions struct {
	// Since skips messages older than this when non-zero.
	Since time.Time

	// Limit keeps only the newest Limit messages when positive.
	Limit int
}

// FetchResult holds the messages returned from a source query, oldest
// first.
type FetchResult struct {
	Messages []model.MessageRecord
	Total    int
	HasMore  bool
}

// Source defines the contract that every message source must implement.
type Source interface {
	// Type returns the source type identifier.
	Type() SourceType

	// ValidateConnection verifies credentials and connectivity.
	// Returns a human-readable status message on success.
	ValidateConnection(ctx context.Context) (string, error)

	// FetchMessages retrieves message headers as storage records.
	FetchMessages(ctx context.Context, opts FetchOptions) (*FetchResult, error)
}
