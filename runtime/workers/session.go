package workers

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/observability"
	"context"
	"log/slog"

	"golang.org/x/time/rate"
)

// SessionWorker pushes the mailbox of one connected user to its transport.
// Entries leave the mailbox one at a time, only once the limiter allows a push,
// so a stopped session leaves the undelivered tail queued.
type SessionWorker struct {
	log       *slog.Logger
	user      domain.UserID
	mailbox   contract.IMailbox
	transport contract.Transport
	limiter   *rate.Limiter
	metrics   *observability.Metrics
}

var _ contract.Worker = (*SessionWorker)(nil)

func NewSessionWorker(
	log *slog.Logger,
	user domain.UserID,
	mailbox contract.IMailbox,
	transport contract.Transport,
	limiter *rate.Limiter,
	metrics *observability.Metrics,
) *SessionWorker {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 0)
	}
	return &SessionWorker{
		log:       log.With("user", user),
		user:      user,
		mailbox:   mailbox,
		transport: transport,
		limiter:   limiter,
		metrics:   metrics,
	}
}

// NewLimiter paces pushes at perSecond with the given burst. A non positive
// rate disables pacing.
func NewLimiter(perSecond float64, burst int) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Limit(perSecond), max(burst, 1))
}

func (w *SessionWorker) Run(ctx context.Context) error {
	w.log.Debug("Session started", "pending", w.mailbox.Len())
	for {
		for w.mailbox.Len() > 0 {
			if err := w.limiter.Wait(ctx); err != nil {
				return err
			}
			w.pushNext(ctx)
		}
		select {
		case <-ctx.Done():
			w.log.Debug("Session ended", "pending", w.mailbox.Len())
			return nil
		case <-w.mailbox.Notify():
		}
	}
}

// pushNext takes the oldest entry out of the mailbox and hands it to the transport.
// A failed push is dropped: redelivery is up to the transport.
func (w *SessionWorker) pushNext(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	for entry := range w.mailbox.Drain() {
		err := w.transport.Push(ctx, w.user, entry)
		w.metrics.ObservePush(err)
		if err != nil {
			w.log.Warn("Push failed, entry dropped", "entry", entry.ID, "error", err)
		}
		return
	}
}
