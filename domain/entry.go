package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Entry is a pending notification sitting in a recipient's mailbox.
// Exactly one of Body or Media is set.
type Entry struct {
	ID     uuid.UUID
	Sender UserID
	Target Target
	Body   string
	Media  *Media
	At     time.Time
}

func EntryFromMessage(m Message) Entry {
	return Entry{
		ID:     m.ID,
		Sender: m.Sender,
		Target: m.Target,
		Body:   m.Body,
		At:     m.SentAt,
	}
}

func EntryFromMedia(m Media, target Target, at time.Time) Entry {
	return Entry{
		ID:     uuid.New(),
		Sender: m.Sender,
		Target: target,
		Media:  &m,
		At:     at,
	}
}

func (e Entry) IsMedia() bool {
	return e.Media != nil
}

// String renders the notification line pushed to a live connection.
func (e Entry) String() string {
	content := e.Body
	if e.Media != nil {
		content = e.Media.String()
	}
	if e.Target.Kind == TargetGroup {
		return fmt.Sprintf("%s sent to group %s : [%s]", e.Sender, e.Target.ID, content)
	}
	return fmt.Sprintf("%s sent to %s : [%s]", e.Sender, e.Target.ID, content)
}
