package testutil

import (
	"testing"
	"time"

	"github.com/nhle/messagelist/internal/model"
	"github.com/nhle/messagelist/internal/store"
)

// NewTestStore creates an in-memory SQLiteStore with all migrations applied.
// It automatically closes the store when the test completes.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}

// Message returns a message record in folder with the given Message-Id,
// dated at date. The subject defaults to the Message-Id.
func Message(folder, messageID string, date time.Time) model.MessageRecord {
	return model.MessageRecord{
		Folder:    folder,
		MessageID: messageID,
		Subject:   messageID,
		Sender:    "alice@example.com",
		Receiver:  "bob@example.com",
		Date:      date,
		Size:      512,
	}
}

// Reply returns a message answering parent.
func Reply(parent model.MessageRecord, messageID string, date time.Time) model.MessageRecord {
	m := Message(parent.Folder, messageID, date)
	m.Subject = "Re: " + parent.Subject
	m.InReplyTo = parent.MessageID
	m.References = append(append([]string(nil), parent.References...), parent.MessageID)
	return m
}
