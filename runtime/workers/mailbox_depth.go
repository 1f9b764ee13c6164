package workers

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/observability"
	"context"
	"log/slog"
	"time"
)

type DepthSource interface {
	Depths() map[domain.UserID]int
}

// MailboxDepthWorker periodically publishes the number of pending entries of
// every mailbox. Reading a mailbox length never blocks an enqueue for long.
type MailboxDepthWorker struct {
	log            *slog.Logger
	source         DepthSource
	metrics        *observability.Metrics
	metricInterval time.Duration
	seen           map[domain.UserID]struct{}
}

var _ contract.Worker = (*MailboxDepthWorker)(nil)

func NewMailboxDepthWorker(log *slog.Logger, source DepthSource, metrics *observability.Metrics, metricInterval time.Duration) *MailboxDepthWorker {
	return &MailboxDepthWorker{
		log:            log,
		source:         source,
		metrics:        metrics,
		metricInterval: metricInterval,
		seen:           make(map[domain.UserID]struct{}),
	}
}

func (w *MailboxDepthWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping mailbox sampling")
			return nil
		case <-ticker.C:
			w.sample()
		}
	}
}

// sample is only called from Run, seen needs no lock.
func (w *MailboxDepthWorker) sample() {
	depths := w.source.Depths()
	for user := range w.seen {
		if _, ok := depths[user]; !ok {
			w.metrics.ForgetMailbox(user)
			delete(w.seen, user)
		}
	}
	pending := 0
	for user, depth := range depths {
		w.metrics.ObserveMailboxDepth(user, depth)
		w.seen[user] = struct{}{}
		pending += depth
	}
	if pending > 0 {
		w.log.Debug("Mailboxes sampled", "pending", pending)
	}
}
