package repositories

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"context"
	"database/sql"
	"embed"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed migrations.sql
var migrationsFS embed.FS

var _ IJournal = (*SQLiteJournal)(nil)

// SQLiteJournal stores the journal in the messages and deliveries tables.
type SQLiteJournal struct {
	db            *sql.DB
	log           *slog.Logger
	limitMessages *int
}

func OpenSQLiteJournal(ctx context.Context, path string, log *slog.Logger, limitMessages *int) (*SQLiteJournal, error) {
	if strings.TrimSpace(path) == "" {
		return nil, stderrors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	_, _ = db.ExecContext(ctx, "PRAGMA journal_mode = WAL")
	_, _ = db.ExecContext(ctx, "PRAGMA synchronous = NORMAL")
	_, _ = db.ExecContext(ctx, "PRAGMA foreign_keys = ON")

	j := &SQLiteJournal{db: db, log: log, limitMessages: limitMessages}
	if err = j.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return j, nil
}

// OpenSQLiteJournalReadOnly opens an existing journal without touching it:
// no directory or file is created, no pragma is set and no migration runs.
func OpenSQLiteJournalReadOnly(ctx context.Context, path string, log *slog.Logger, limitMessages *int) (*SQLiteJournal, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("sqlite journal %q: %w", path, err)
	}
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, err
	}
	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteJournal{db: db, log: log, limitMessages: limitMessages}, nil
}

func (j *SQLiteJournal) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = j.db.ExecContext(ctx, string(b))
	return err
}

func (j *SQLiteJournal) RecordMessage(ctx context.Context, m DiskMessage) error {
	res, err := j.db.ExecContext(ctx,
		`INSERT INTO messages(id, sender, target_kind, target_id, body_or_media_ref, timestamp)
		 VALUES(?,?,?,?,?,?)
		 ON CONFLICT(id) DO NOTHING`,
		m.ID.String(), m.Sender, m.TargetKind, m.TargetID, m.BodyOrMediaRef, m.At.UnixNano(),
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", errors.ErrAlreadyRecorded, m.ID)
	}
	return nil
}

func (j *SQLiteJournal) RecordDeliveries(ctx context.Context, messageID uuid.UUID, deliveries []DiskDelivery) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM messages WHERE id = ?`, messageID.String()).Scan(&exists)
	if stderrors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: message %s", errors.ErrUnknownEntity, messageID)
	}
	if err != nil {
		return err
	}

	for _, d := range deliveries {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO deliveries(message_id, recipient, status, reason) VALUES(?,?,?,?)
			 ON CONFLICT(message_id, recipient) DO NOTHING`,
			messageID.String(), d.Recipient, d.Status, d.Reason,
		)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("%w: delivery %s to %s", errors.ErrAlreadyRecorded, messageID, d.Recipient)
		}
	}
	return tx.Commit()
}

// GetMessages returns the messages of a target, newest first, one page at a time.
// The cursor has the same "{timestamp_padded}:{uuid}" shape as the Badger journal.
func (j *SQLiteJournal) GetMessages(ctx context.Context, target domain.Target, cursor *string) ([]DiskMessage, *string, error) {
	limit := -1
	if j.limitMessages != nil {
		limit = *j.limitMessages
	}
	args := []any{string(target.Kind), target.ID}
	query := `SELECT id, sender, target_kind, target_id, body_or_media_ref, timestamp
		FROM messages WHERE target_kind = ? AND target_id = ?`
	if cursor != nil {
		ts, id, err := parseCursor(*cursor)
		if err != nil {
			return nil, nil, err
		}
		query += ` AND (timestamp < ? OR (timestamp = ? AND id < ?))`
		args = append(args, ts, ts, id)
	}
	query += ` ORDER BY timestamp DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var messages []DiskMessage
	for rows.Next() {
		var (
			m  DiskMessage
			id string
			ts int64
		)
		if err = rows.Scan(&id, &m.Sender, &m.TargetKind, &m.TargetID, &m.BodyOrMediaRef, &ts); err != nil {
			return nil, nil, err
		}
		if m.ID, err = uuid.Parse(id); err != nil {
			return nil, nil, err
		}
		m.At = time.Unix(0, ts).UTC()
		messages = append(messages, m)
	}
	if err = rows.Err(); err != nil {
		return nil, nil, err
	}
	if len(messages) == 0 {
		return nil, nil, nil
	}
	last := cursorOf(messages[len(messages)-1])
	return messages, &last, nil
}

func (j *SQLiteJournal) GetDeliveries(ctx context.Context, messageID uuid.UUID) ([]DiskDelivery, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT recipient, status, reason FROM deliveries WHERE message_id = ? ORDER BY recipient`,
		messageID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deliveries []DiskDelivery
	for rows.Next() {
		d := DiskDelivery{MessageID: messageID}
		if err = rows.Scan(&d.Recipient, &d.Status, &d.Reason); err != nil {
			return nil, err
		}
		deliveries = append(deliveries, d)
	}
	return deliveries, rows.Err()
}

func (j *SQLiteJournal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}
