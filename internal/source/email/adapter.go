package email

import (
	"context"
	"fmt"

	"github.com/emersion/go-imap/v2"

	"github.com/nhle/messagelist/internal/model"
	"github.com/nhle/messagelist/internal/source"
)

// Adapter implements source.Source for an IMAP mailbox.
type Adapter struct {
	imapClient *IMAPClient
	mailbox    string
	folder     string
	username   string
}

// NewAdapter creates a new IMAP source adapter for cfg.
func NewAdapter(cfg model.SourceConfig, password string) *Adapter {
	mailbox := cfg.Mailbox
	if mailbox == "" {
		mailbox = "INBOX"
	}
	folder := cfg.Folder
	if folder == "" {
		folder = mailbox
	}
	return &Adapter{
		imapClient: NewIMAPClient(
			cfg.Host, cfg.Port, cfg.Username, password, cfg.TLS,
		),
		mailbox:  mailbox,
		folder:   folder,
		username: cfg.Username,
	}
}

// Type returns the source type identifier for IMAP.
func (a *Adapter) Type() source.SourceType {
	return source.SourceTypeIMAP
}

// ValidateConnection verifies IMAP credentials by connecting,
// authenticating, and selecting the mailbox. Returns a status line on
// success.
func (a *Adapter) ValidateConnection(
	ctx context.Context,
) (string, error) {
	client, err := a.imapClient.Connect(ctx)
	if err != nil {
		return "", fmt.Errorf("validating IMAP connection: %w", err)
	}
	defer func() { _ = client.Logout().Wait() }()

	data, err := client.Select(a.mailbox, &imap.SelectOptions{ReadOnly: true}).Wait()
	if err != nil {
		return "", fmt.Errorf("selecting %s: %w", a.mailbox, err)
	}

	return fmt.Sprintf("%s: %d messages in %s", a.username, data.NumMessages, a.mailbox), nil
}

// FetchMessages retrieves message headers from the mailbox and maps them to
// records of the adapter's local folder.
func (a *Adapter) FetchMessages(
	ctx context.Context,
	opts source.FetchOptions,
) (*source.FetchResult, error) {
	envelopes, total, err := a.imapClient.FetchHeaders(ctx, a.mailbox, opts.Since, opts.Limit)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", a.mailbox, err)
	}

	msgs := make([]model.MessageRecord, 0, len(envelopes))
	for _, env := range envelopes {
		msgs = append(msgs, env.Record(a.folder))
	}

	return &source.FetchResult{
		Messages: msgs,
		Total:    total,
		HasMore:  total > len(msgs),
	}, nil
}
