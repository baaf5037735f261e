package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/messagelist/internal/model"
)

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// An in-memory database lives and dies with its connection.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	// Check if schema_version table exists.
	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

const messageColumns = `id, folder, message_id, in_reply_to, refs,
	subject, sender, receiver, date, size, status`

// UpsertMessages inserts or updates a batch of messages in one transaction.
func (s *SQLiteStore) UpsertMessages(ctx context.Context, msgs []model.MessageRecord) error {
	if len(msgs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	const query = `
		INSERT INTO messages (
			id, folder, message_id, in_reply_to, refs,
			subject, sender, receiver,
			date, size, status
		) VALUES (
			?, ?, ?, ?, ?,
			?, ?, ?,
			?, ?, ?
		)
		ON CONFLICT(id) DO UPDATE SET
			folder = excluded.folder,
			message_id = excluded.message_id,
			in_reply_to = excluded.in_reply_to,
			refs = excluded.refs,
			subject = excluded.subject,
			sender = excluded.sender,
			receiver = excluded.receiver,
			date = excluded.date,
			size = excluded.size,
			status = excluded.status`

	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		return fmt.Errorf("preparing upsert statement: %w", err)
	}
	defer stmt.Close()

	for i := range msgs {
		m := &msgs[i]
		if m.ID == "" {
			id, err := existingID(ctx, tx, m.Folder, m.MessageID)
			if err != nil {
				return err
			}
			m.ID = id
		}

		refs, err := encodeRefs(m.References)
		if err != nil {
			return fmt.Errorf("marshaling references for message %s: %w", m.ID, err)
		}

		_, err = stmt.ExecContext(ctx,
			m.ID, m.Folder, m.MessageID, m.InReplyTo, refs,
			m.Subject, m.Sender, m.Receiver,
			m.Date.UTC(), m.Size, int64(m.Status),
		)
		if err != nil {
			return fmt.Errorf("upserting message %s: %w", m.ID, err)
		}
	}

	return tx.Commit()
}

// existingID returns the ID of the message stored under folder and
// messageID, or a fresh UUID when there is none.
func existingID(ctx context.Context, tx *sqlx.Tx, folder, messageID string) (string, error) {
	if messageID == "" {
		return uuid.New().String(), nil
	}
	var id string
	err := tx.GetContext(ctx, &id,
		"SELECT id FROM messages WHERE folder = ? AND message_id = ?",
		folder, messageID,
	)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return uuid.New().String(), nil
	case err != nil:
		return "", fmt.Errorf("looking up message %s: %w", messageID, err)
	}
	return id, nil
}

// GetMessages retrieves messages matching the provided filter options.
func (s *SQLiteStore) GetMessages(
	ctx context.Context,
	opts MessageFilter,
) ([]model.MessageRecord, error) {
	var conditions []string
	var args []interface{}

	if opts.Folder != nil {
		conditions = append(conditions, "folder = ?")
		args = append(args, *opts.Folder)
	}
	if opts.Unread {
		conditions = append(conditions, "(status & ?) = 0")
		args = append(args, int64(model.StatusRead))
	}
	if opts.Query != nil && *opts.Query != "" {
		conditions = append(conditions, "(subject LIKE ? OR sender LIKE ? OR receiver LIKE ?)")
		q := "%" + *opts.Query + "%"
		args = append(args, q, q, q)
	}

	query := "SELECT " + messageColumns + " FROM messages"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY date ASC, rowid ASC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", opts.Limit)
		if opts.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", opts.Offset)
		}
	}

	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var msgs []model.MessageRecord
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}

	return msgs, rows.Err()
}

// GetMessageByID retrieves a single message by its ID.
func (s *SQLiteStore) GetMessageByID(
	ctx context.Context,
	id string,
) (*model.MessageRecord, error) {
	row := s.db.QueryRowxContext(ctx,
		"SELECT "+messageColumns+" FROM messages WHERE id = ?", id,
	)

	m, err := scanMessage(row)
	if err != nil {
		return nil, fmt.Errorf("getting message %s: %w", id, err)
	}

	return &m, nil
}

// DeleteMessages removes the messages with the given IDs. Unknown IDs are
// ignored.
func (s *SQLiteStore) DeleteMessages(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	query, args, err := sqlx.In("DELETE FROM messages WHERE id IN (?)", ids)
	if err != nil {
		return fmt.Errorf("building delete query: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, s.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("deleting %d messages: %w", len(ids), err)
	}
	return nil
}

// UpdateStatus replaces the status flags of a single message.
func (s *SQLiteStore) UpdateStatus(
	ctx context.Context,
	id string,
	status model.Status,
) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE messages SET status = ? WHERE id = ?", int64(status), id,
	)
	if err != nil {
		return fmt.Errorf("updating status of message %s: %w", id, err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("message %s not found", id)
	}
	return nil
}

// GetFolders lists every folder holding at least one message, by name.
func (s *SQLiteStore) GetFolders(ctx context.Context) ([]FolderInfo, error) {
	var folders []FolderInfo
	err := s.db.SelectContext(ctx, &folders, `
		SELECT
			folder AS name,
			COUNT(*) AS messages,
			COALESCE(SUM(CASE WHEN (status & ?) = 0 THEN 1 ELSE 0 END), 0) AS unread
		FROM messages
		GROUP BY folder
		ORDER BY folder`,
		int64(model.StatusRead),
	)
	if err != nil {
		return nil, fmt.Errorf("querying folders: %w", err)
	}
	return folders, nil
}

// scanner is satisfied by both *sqlx.Rows and *sqlx.Row.
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanMessage scans a message row selected with messageColumns.
func scanMessage(row scanner) (model.MessageRecord, error) {
	var (
		m      model.MessageRecord
		refs   string
		date   time.Time
		status int64
	)

	err := row.Scan(
		&m.ID, &m.Folder, &m.MessageID, &m.InReplyTo, &refs,
		&m.Subject, &m.Sender, &m.Receiver, &date, &m.Size, &status,
	)
	if err != nil {
		return model.MessageRecord{}, fmt.Errorf("scanning message row: %w", err)
	}

	m.Date = date.UTC()
	m.Status = model.Status(status)

	if refs != "" {
		if err := json.Unmarshal([]byte(refs), &m.References); err != nil {
			return model.MessageRecord{}, fmt.Errorf("unmarshaling references: %w", err)
		}
		if len(m.References) == 0 {
			m.References = nil
		}
	}

	return m, nil
}

func encodeRefs(refs []string) (string, error) {
	if len(refs) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(refs)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
