package workers

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
)

var _ contract.IFanout = (*Fanout)(nil)

// Fanout delivers one entry to many mailboxes concurrently.
//
// Every recipient gets exactly one enqueue attempt per call, and the outcome
// of each attempt is reported in its own Delivery. A failing recipient never
// aborts the others and never turns into a call-level error. Retrying is left
// to the caller.
type Fanout struct {
	log         *slog.Logger
	mailboxes   contract.IMailboxDirectory
	parallelism int
}

// NewFanout builds the engine. A parallelism of 0 runs one goroutine per recipient.
func NewFanout(log *slog.Logger, mailboxes contract.IMailboxDirectory, parallelism int) *Fanout {
	return &Fanout{log: log, mailboxes: mailboxes, parallelism: parallelism}
}

// Deliver returns once every recipient has an outcome (fan-in barrier).
// The result is index-aligned with recipients. Cancelling ctx fails the
// attempts that did not complete yet, completed ones are kept.
func (f *Fanout) Deliver(ctx context.Context, entry domain.Entry, recipients []domain.UserID) []domain.Delivery {
	deliveries := make([]domain.Delivery, len(recipients))
	var slots chan struct{}
	if f.parallelism > 0 {
		slots = make(chan struct{}, f.parallelism)
	}

	var wg sync.WaitGroup
	for i, recipient := range recipients {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if slots != nil {
				select {
				case slots <- struct{}{}:
					defer func() { <-slots }()
				case <-ctx.Done():
					deliveries[i] = fail(domain.NewDelivery(recipient), domain.ReasonCanceled, ctx.Err())
					return
				}
			}
			deliveries[i] = f.attempt(ctx, entry, recipient)
		}()
	}
	wg.Wait()

	f.log.Debug("Fanout completed",
		"entry", entry.ID, "target", entry.Target.String(), "recipients", len(recipients))
	return deliveries
}

func (f *Fanout) attempt(ctx context.Context, entry domain.Entry, recipient domain.UserID) (res domain.Delivery) {
	pending := domain.NewDelivery(recipient)
	defer func() {
		if r := recover(); r != nil {
			f.log.Error("Mailbox panicked during enqueue", "recipient", recipient, "panic", r)
			res = fail(pending, domain.ReasonDeliveryFailed,
				&errors.DeliveryError{Reason: fmt.Sprintf("panic: %v", r), Err: errors.ErrWorkerPanic})
		}
	}()

	if err := ctx.Err(); err != nil {
		return fail(pending, domain.ReasonCanceled, err)
	}
	mailbox, ok := f.mailboxes.Get(recipient)
	if !ok {
		return fail(pending, domain.ReasonMailboxUnavailable,
			&errors.DeliveryError{Reason: fmt.Sprintf("no mailbox for %s", recipient)})
	}

	err := mailbox.Enqueue(ctx, entry)
	switch {
	case err == nil:
		delivered, _ := pending.Deliver()
		return delivered
	case stderrors.Is(err, errors.ErrMailboxFull):
		f.log.Warn("Mailbox full, delivery dropped", "recipient", recipient, "entry", entry.ID)
		return fail(pending, domain.ReasonMailboxFull, err)
	case stderrors.Is(err, context.Canceled), stderrors.Is(err, context.DeadlineExceeded):
		return fail(pending, domain.ReasonCanceled, err)
	case stderrors.Is(err, errors.ErrDeliveryFailed):
		return fail(pending, domain.ReasonDeliveryFailed, err)
	default:
		return fail(pending, domain.ReasonDeliveryFailed, &errors.DeliveryError{Reason: "enqueue", Err: err})
	}
}

// fail resolves a pending delivery, which cannot be refused.
func fail(d domain.Delivery, reason domain.FailureReason, cause error) domain.Delivery {
	failed, _ := d.Fail(reason, cause)
	return failed
}
