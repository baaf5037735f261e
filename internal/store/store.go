package store

import (
	"context"

	"github.com/nhle/messagelist/internal/model"
)

// MessageFilter controls filtering and pagination for message queries.
// Results are always ordered by date, oldest first, then by insertion order.
type MessageFilter struct {
	Folder *string
	Query  *string // search subject, sender and receiver
	Unread bool
	Limit  int
	Offset int
}

// FolderInfo summarizes one folder.
type FolderInfo struct {
	Name     string `db:"name"`
	Messages int    `db:"messages"`
	Unread   int    `db:"unread"`
}

// Store defines the persistence interface for flat message folders.
type Store interface {
	// UpsertMessages inserts or updates a batch of messages. Records without
	// an ID get one assigned in place: the ID of the stored message with the
	// same folder and Message-Id if there is one, a new UUID otherwise.
	UpsertMessages(ctx context.Context, msgs []model.MessageRecord) error
	GetMessages(ctx context.Context, filter MessageFilter) ([]model.MessageRecord, error)
	GetMessageByID(ctx context.Context, id string) (*model.MessageRecord, error)
	DeleteMessages(ctx context.Context, ids []string) error
	UpdateStatus(ctx context.Context, id string, status model.Status) error
	GetFolders(ctx context.Context) ([]FolderInfo, error)
}
