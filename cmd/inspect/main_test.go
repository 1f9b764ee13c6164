package main

import (
	"bytes"
	"chat-relay/domain"
	"chat-relay/repositories"
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	journal, err := repositories.OpenJournal(ctx, slog.Default(), repositories.JournalOptions{
		Backend:        repositories.BackendSQLite,
		SQLiteFilepath: filepath.Join(t.TempDir(), "journal.db"),
	})
	req.NoError(err)
	defer journal.Close()

	// Given one group message delivered to Bob and failed for Clara
	id := uuid.New()
	req.NoError(journal.RecordMessage(ctx, repositories.DiskMessage{
		ID: id, Sender: "Alice", TargetKind: "group", TargetID: "Family",
		BodyOrMediaRef: "Hi", At: time.Now().UTC(),
	}))
	req.NoError(journal.RecordDeliveries(ctx, id, []repositories.DiskDelivery{
		{MessageID: id, Recipient: "Bob", Status: "delivered"},
		{MessageID: id, Recipient: "Clara", Status: "failed", Reason: "MailboxFull"},
	}))

	var out bytes.Buffer
	next, err := render(ctx, &out, journal, domain.GroupTarget("Family"), nil)

	req.NoError(err)
	req.NotNil(next)
	req.Contains(out.String(), "DELIVERED")
	req.Contains(out.String(), "MailboxFull")
	req.Contains(out.String(), id.String()[:8])
}
