package internal

import (
	"chat-relay/repositories"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	req := require.New(t)
	t.Chdir(t.TempDir())
	t.Setenv("MAILBOX_CAPACITY", "256")
	t.Setenv("JOURNAL_BACKEND", "none")

	config, err := LoadConfig()

	req.NoError(err)
	req.Equal(256, config.MailboxCapacity)
	req.Equal(2*time.Second, config.EnqueueTimeout)
	req.Equal(200*time.Millisecond, config.RestartInterval)
	req.Equal(repositories.BackendNone, config.JournalBackend)
	req.True(config.Colours)
}

func TestLoadConfig_FromEnvironment(t *testing.T) {
	req := require.New(t)
	t.Chdir(t.TempDir())
	t.Setenv("MAILBOX_CAPACITY", "8")
	t.Setenv("ENQUEUE_TIMEOUT", "50ms")
	t.Setenv("ALLOW_SELF_SEND", "true")
	t.Setenv("GATEWAY_RATE_PER_SEC", "12.5")
	t.Setenv("JOURNAL_BACKEND", "sqlite")
	t.Setenv("SQLITE_FILEPATH", "/tmp/journal.db")
	t.Setenv("LIMIT_MESSAGES", "20")

	config, err := LoadConfig()

	req.NoError(err)
	req.Equal(8, config.MailboxCapacity)
	req.Equal(50*time.Millisecond, config.EnqueueTimeout)
	req.True(config.AllowSelfSend)
	req.Equal(12.5, config.GatewayRatePerSec)
	req.Equal(repositories.BackendSQLite, config.JournalBackend)
	req.Equal("/tmp/journal.db", config.SQLiteFilepath)
	req.NotNil(config.LimitMessages)
	req.Equal(20, *config.LimitMessages)
}

func TestLoadConfig_RejectsUnknownJournal(t *testing.T) {
	req := require.New(t)
	t.Chdir(t.TempDir())
	t.Setenv("JOURNAL_BACKEND", "postgres")

	_, err := LoadConfig()

	req.Error(err)
}
