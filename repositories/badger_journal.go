package repositories

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

var _ IJournal = (*BadgerJournal)(nil)

type BadgerJournal struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int
}

func NewBadgerJournal(db *badger.DB, log *slog.Logger, limitMessages *int) *BadgerJournal {
	return &BadgerJournal{db: db, log: log, limitMessages: limitMessages}
}

// RecordMessage persists a message in BadgerDB.
// The key is formatted as "msg:{kind}:{target}:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding (lexicographical order).
//  2. Prevent data loss by using UUID as a collision disconnector if two messages
//     arrive at the same nanosecond.
//
// An "idx:{uuid}" key points back to the message and guards against a second insert.
func (j *BadgerJournal) RecordMessage(_ context.Context, message DiskMessage) error {
	key := messageKey(message)
	bytes, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return j.db.Update(func(txn *badger.Txn) error {
		idx := []byte("idx:" + message.ID.String())
		if _, err := txn.Get(idx); err == nil {
			return fmt.Errorf("%w: %s", errors.ErrAlreadyRecorded, message.ID)
		} else if !stderrors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := txn.Set(idx, key); err != nil {
			return err
		}
		return txn.Set(key, bytes)
	})
}

// RecordDeliveries stores one "dlv:{uuid}:{recipient}" key per outcome.
func (j *BadgerJournal) RecordDeliveries(_ context.Context, messageID uuid.UUID, deliveries []DiskDelivery) error {
	return j.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte("idx:" + messageID.String())); err != nil {
			if stderrors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("%w: message %s", errors.ErrUnknownEntity, messageID)
			}
			return err
		}
		for _, d := range deliveries {
			key := []byte(fmt.Sprintf("dlv:%s:%s", messageID, url.QueryEscape(d.Recipient)))
			if _, err := txn.Get(key); err == nil {
				return fmt.Errorf("%w: delivery %s to %s", errors.ErrAlreadyRecorded, messageID, d.Recipient)
			}
			d.MessageID = messageID
			bytes, err := json.Marshal(d)
			if err != nil {
				return err
			}
			if err = txn.Set(key, bytes); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetMessages retrieves messages of a target using a reverse prefix scan, newest first.
// Thanks to the padded timestamp in the key, messages are naturally sorted by time.
// It stops collecting messages once the configured limitMessages is reached and
// returns the cursor to pass back to get the next page.
func (j *BadgerJournal) GetMessages(_ context.Context, target domain.Target, cursor *string) ([]DiskMessage, *string, error) {
	if cursor != nil {
		if _, _, err := parseCursor(*cursor); err != nil {
			return nil, nil, err
		}
	}
	var messages []DiskMessage
	var lastKey *string
	err := j.db.View(func(txn *badger.Txn) error {
		prefixStr := targetPrefix(target)
		prefix := []byte(prefixStr)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		var seekKey []byte
		switch cursor {
		case nil:
			// Highest possible position, then walk back in time
			seekKey = append(prefix, []byte("9999999999999999999")...)
		default:
			seekKey = append(prefix, []byte(*cursor)...)
		}
		it.Seek(seekKey)

		if cursor != nil && it.ValidForPrefix(prefix) && string(it.Item().Key()) == string(seekKey) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if j.limitMessages != nil && len(messages) == *j.limitMessages {
				j.log.Debug(fmt.Sprintf("Maximum of %d message reached", *j.limitMessages))
				break
			}
			item := it.Item()
			key := string(item.Key()[len(prefixStr):])
			err := item.Value(func(value []byte) error {
				var m DiskMessage
				if err := json.Unmarshal(value, &m); err != nil {
					return err
				}
				messages = append(messages, m)
				return nil
			})
			if err != nil {
				return err
			}
			lastKey = &key
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return messages, lastKey, nil
}

func (j *BadgerJournal) GetDeliveries(_ context.Context, messageID uuid.UUID) ([]DiskDelivery, error) {
	var deliveries []DiskDelivery
	err := j.db.View(func(txn *badger.Txn) error {
		prefix := []byte(fmt.Sprintf("dlv:%s:", messageID))
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(value []byte) error {
				var d DiskDelivery
				if err := json.Unmarshal(value, &d); err != nil {
					return err
				}
				deliveries = append(deliveries, d)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return deliveries, err
}

func (j *BadgerJournal) Close() error {
	return j.db.Close()
}

func targetPrefix(target domain.Target) string {
	return fmt.Sprintf("msg:%s:%s:", target.Kind, url.QueryEscape(target.ID))
}

func messageKey(m DiskMessage) []byte {
	target := domain.Target{Kind: domain.TargetKind(m.TargetKind), ID: m.TargetID}
	return []byte(targetPrefix(target) + cursorOf(m))
}

// OpenBadger opens the journal database at path.
func OpenBadger(path string) (*badger.DB, error) {
	return badger.Open(badger.DefaultOptions(path).
		WithLoggingLevel(badger.WARNING))
}

// OpenBadgerReadOnly opens the journal next to a running relay, which holds the lock.
func OpenBadgerReadOnly(path string) (*badger.DB, error) {
	return badger.Open(badger.DefaultOptions(path).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING))
}
