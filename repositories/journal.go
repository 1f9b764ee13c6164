//go:generate go run go.uber.org/mock/mockgen -source=journal.go -destination=../mocks/mock_journal.go -package=mocks
package repositories

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// IJournal is an append-only record of sends and their per-recipient outcomes.
// Nothing is ever updated after insert.
type IJournal interface {
	RecordMessage(ctx context.Context, message DiskMessage) error
	RecordDeliveries(ctx context.Context, messageID uuid.UUID, deliveries []DiskDelivery) error
	GetMessages(ctx context.Context, target domain.Target, cursor *string) ([]DiskMessage, *string, error)
	GetDeliveries(ctx context.Context, messageID uuid.UUID) ([]DiskDelivery, error)
	Close() error
}

// DiskMessage is one row of the messages table.
type DiskMessage struct {
	ID             uuid.UUID `json:"id"`
	Sender         string    `json:"sender"`
	TargetKind     string    `json:"target_kind"`
	TargetID       string    `json:"target_id"`
	BodyOrMediaRef string    `json:"body_or_media_ref"`
	At             time.Time `json:"timestamp"`
}

// DiskDelivery is one row of the deliveries table.
type DiskDelivery struct {
	MessageID uuid.UUID `json:"message_id"`
	Recipient string    `json:"recipient"`
	Status    string    `json:"status"`
	Reason    string    `json:"reason"`
}

func FromEntry(entry domain.Entry) DiskMessage {
	ref := entry.Body
	if entry.Media != nil {
		ref = MediaRef(*entry.Media)
	}
	return DiskMessage{
		ID:             entry.ID,
		Sender:         string(entry.Sender),
		TargetKind:     string(entry.Target.Kind),
		TargetID:       entry.Target.ID,
		BodyOrMediaRef: ref,
		At:             entry.At.UTC(),
	}
}

func FromDeliveries(messageID uuid.UUID, deliveries []domain.Delivery) []DiskDelivery {
	return lo.Map(deliveries, func(d domain.Delivery, _ int) DiskDelivery {
		return DiskDelivery{
			MessageID: messageID,
			Recipient: string(d.Recipient),
			Status:    string(d.Status),
			Reason:    string(d.Reason),
		}
	})
}

// MediaRef is how a media payload is referenced in the body_or_media_ref column.
func MediaRef(m domain.Media) string {
	return fmt.Sprintf("media:%s:%s", m.Kind, m.Handle)
}

// cursorOf is the position of a message inside its target timeline.
func cursorOf(m DiskMessage) string {
	return fmt.Sprintf("%019d:%s", m.At.UnixNano(), m.ID)
}

// parseCursor splits a cursor produced by cursorOf.
func parseCursor(cursor string) (int64, string, error) {
	ts, id, ok := strings.Cut(cursor, ":")
	if !ok || id == "" {
		return 0, "", fmt.Errorf("%w: %q", errors.ErrInvalidCursor, cursor)
	}
	n, err := strconv.ParseInt(ts, 10, 64)
	if err != nil || n < 0 {
		return 0, "", fmt.Errorf("%w: %q", errors.ErrInvalidCursor, cursor)
	}
	return n, id, nil
}
