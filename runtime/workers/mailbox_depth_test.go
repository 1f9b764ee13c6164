package workers

import (
	"chat-relay/mailbox"
	"chat-relay/observability"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMailboxDepthWorker_PublishesDepths(t *testing.T) {
	req := require.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	directory := mailbox.NewDirectory(0, time.Second)
	bob := directory.Open("Bob")
	directory.Open("Alice")

	// Given Bob has two pending entries
	req.NoError(bob.Enqueue(ctx, entryFor("1")))
	req.NoError(bob.Enqueue(ctx, entryFor("2")))

	// When the worker runs under a supervisor
	sup := NewSupervisor(slog.Default(), time.Millisecond)
	done := make(chan struct{})
	go func() {
		sup.Add(NewMailboxDepthWorker(slog.Default(), directory, metrics, 5*time.Millisecond)).Run(ctx)
		close(done)
	}()

	// Then the gauges follow the mailboxes
	req.Eventually(func() bool {
		return testutil.ToFloat64(metrics.MailboxDepth.WithLabelValues("Bob")) == 2
	}, time.Second, 5*time.Millisecond)
	req.Equal(0.0, testutil.ToFloat64(metrics.MailboxDepth.WithLabelValues("Alice")))

	for range bob.Drain() {
	}
	req.Eventually(func() bool {
		return testutil.ToFloat64(metrics.MailboxDepth.WithLabelValues("Bob")) == 0
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}

func TestMailboxDepthWorker_ForgetsRemovedMailboxes(t *testing.T) {
	req := require.New(t)
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	directory := mailbox.NewDirectory(0, time.Second)
	directory.Open("Alice")
	directory.Open("Bob")
	w := NewMailboxDepthWorker(slog.Default(), directory, metrics, time.Hour)

	w.sample()
	req.Equal(2, testutil.CollectAndCount(metrics.MailboxDepth))

	// When Bob's mailbox goes away
	directory.Remove("Bob")
	w.sample()

	// Then only Alice keeps a series
	req.Equal(1, testutil.CollectAndCount(metrics.MailboxDepth))
}
