package repositories

import (
	"context"
	"fmt"
	"log/slog"
)

const (
	BackendNone   = "none"
	BackendBadger = "badger"
	BackendSQLite = "sqlite"
)

// JournalOptions selects and locates the journal backend.
type JournalOptions struct {
	Backend        string
	BadgerFilepath string
	SQLiteFilepath string
	LimitMessages  *int
	ReadOnly       bool
}

// OpenJournal returns nil, nil for the none backend.
func OpenJournal(ctx context.Context, log *slog.Logger, opts JournalOptions) (IJournal, error) {
	switch opts.Backend {
	case "", BackendNone:
		return nil, nil
	case BackendBadger:
		open := OpenBadger
		if opts.ReadOnly {
			open = OpenBadgerReadOnly
		}
		db, err := open(opts.BadgerFilepath)
		if err != nil {
			return nil, fmt.Errorf("badger opening failed: %w", err)
		}
		return NewBadgerJournal(db, log, opts.LimitMessages), nil
	case BackendSQLite:
		open := OpenSQLiteJournal
		if opts.ReadOnly {
			open = OpenSQLiteJournalReadOnly
		}
		j, err := open(ctx, opts.SQLiteFilepath, log, opts.LimitMessages)
		if err != nil {
			return nil, fmt.Errorf("sqlite opening failed: %w", err)
		}
		return j, nil
	default:
		return nil, fmt.Errorf("unknown journal backend %q", opts.Backend)
	}
}
