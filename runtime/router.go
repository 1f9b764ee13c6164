// Package runtime routes sends between users and groups.
// It resolves targets against the registry and hands deliveries to the fanout,
// without owning transport or storage.
package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/observability"
	"chat-relay/repositories"
	"chat-relay/validation"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/lo"
)

// Router is the mediator between senders and mailboxes.
// A send call blocks until every recipient has an outcome.
type Router struct {
	log           *slog.Logger
	registry      contract.IRegistry
	fanout        contract.IFanout
	journal       repositories.IJournal
	metrics       *observability.Metrics
	allowSelfSend bool
	now           func() time.Time
}

type RouterOption func(*Router)

// WithJournal records every routed entry and its outcomes.
func WithJournal(journal repositories.IJournal) RouterOption {
	return func(r *Router) { r.journal = journal }
}

func WithMetrics(metrics *observability.Metrics) RouterOption {
	return func(r *Router) { r.metrics = metrics }
}

// WithSelfSend lets a user send a direct message to itself.
func WithSelfSend(allow bool) RouterOption {
	return func(r *Router) { r.allowSelfSend = allow }
}

func WithClock(now func() time.Time) RouterOption {
	return func(r *Router) { r.now = now }
}

func NewRouter(log *slog.Logger, registry contract.IRegistry, fanout contract.IFanout, opts ...RouterOption) *Router {
	r := &Router{
		log:      log,
		registry: registry,
		fanout:   fanout,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Router) SendMessageToUser(ctx context.Context, sender, recipient domain.UserID, body string) (domain.Receipt, error) {
	if err := validation.ValidateBody(body); err != nil {
		r.metrics.ObserveSend(domain.TargetUser, err)
		return domain.Receipt{}, err
	}
	msg := domain.NewMessage(sender, domain.UserTarget(recipient), body, r.now())
	return r.sendToUser(ctx, domain.EntryFromMessage(msg), recipient)
}

func (r *Router) SendMessageToGroup(ctx context.Context, sender domain.UserID, group domain.GroupID, body string) (domain.Receipt, error) {
	if err := validation.ValidateBody(body); err != nil {
		r.metrics.ObserveSend(domain.TargetGroup, err)
		return domain.Receipt{}, err
	}
	msg := domain.NewMessage(sender, domain.GroupTarget(group), body, r.now())
	return r.sendToGroup(ctx, domain.EntryFromMessage(msg), group)
}

// SendMediaToUser routes a media from sender. The handle is never inspected.
func (r *Router) SendMediaToUser(ctx context.Context, sender, recipient domain.UserID, media domain.Media) (domain.Receipt, error) {
	media, err := r.ownMedia(sender, media)
	if err != nil {
		r.metrics.ObserveSend(domain.TargetUser, err)
		return domain.Receipt{}, err
	}
	return r.sendToUser(ctx, domain.EntryFromMedia(media, domain.UserTarget(recipient), r.now()), recipient)
}

func (r *Router) SendMediaToGroup(ctx context.Context, sender domain.UserID, group domain.GroupID, media domain.Media) (domain.Receipt, error) {
	media, err := r.ownMedia(sender, media)
	if err != nil {
		r.metrics.ObserveSend(domain.TargetGroup, err)
		return domain.Receipt{}, err
	}
	return r.sendToGroup(ctx, domain.EntryFromMedia(media, domain.GroupTarget(group), r.now()), group)
}

// ownMedia binds the media to its sender. A media built by someone else is refused.
func (r *Router) ownMedia(sender domain.UserID, media domain.Media) (domain.Media, error) {
	if media.Sender == "" {
		media.Sender = sender
	}
	if media.Sender != sender {
		return media, fmt.Errorf("%w: media sent by %s was built by %s", errors.ErrInvalidMessage, sender, media.Sender)
	}
	return media, validation.ValidateMedia(media)
}

func (r *Router) sendToUser(ctx context.Context, entry domain.Entry, recipient domain.UserID) (domain.Receipt, error) {
	err := r.resolveUser(entry.Sender, recipient)
	r.metrics.ObserveSend(domain.TargetUser, err)
	if err != nil {
		r.log.Debug("Direct send rejected", "sender", entry.Sender, "recipient", recipient, "error", err)
		return domain.Receipt{}, err
	}
	return r.dispatch(ctx, entry, []domain.UserID{recipient})
}

func (r *Router) resolveUser(sender, recipient domain.UserID) error {
	if _, err := r.registry.User(sender); err != nil {
		return err
	}
	if _, err := r.registry.User(recipient); err != nil {
		return err
	}
	if sender == recipient && !r.allowSelfSend {
		return fmt.Errorf("%w: %s", errors.ErrSelfSendRejected, sender)
	}
	return nil
}

// sendToGroup expands the group from a single registry snapshot, so a
// concurrent membership change applies either fully or not at all.
// The sender never receives its own post.
func (r *Router) sendToGroup(ctx context.Context, entry domain.Entry, groupID domain.GroupID) (domain.Receipt, error) {
	recipients, err := r.resolveGroup(entry.Sender, groupID)
	r.metrics.ObserveSend(domain.TargetGroup, err)
	if err != nil {
		r.log.Debug("Group send rejected", "sender", entry.Sender, "group", groupID, "error", err)
		return domain.Receipt{}, err
	}
	return r.dispatch(ctx, entry, recipients)
}

func (r *Router) resolveGroup(sender domain.UserID, groupID domain.GroupID) ([]domain.UserID, error) {
	if _, err := r.registry.User(sender); err != nil {
		return nil, err
	}
	group, err := r.registry.Group(groupID)
	if err != nil {
		return nil, err
	}
	if !lo.Contains(group.Members, sender) {
		return nil, fmt.Errorf("%w: %s cannot post to %s", errors.ErrNotAMember, sender, groupID)
	}
	return lo.Without(group.Members, sender), nil
}

func (r *Router) dispatch(ctx context.Context, entry domain.Entry, recipients []domain.UserID) (domain.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return domain.Receipt{}, err
	}
	start := time.Now()
	deliveries := r.fanout.Deliver(ctx, entry, recipients)
	r.metrics.ObserveFanout(deliveries, time.Since(start))

	receipt := domain.Receipt{Entry: entry, Deliveries: deliveries}
	if failed := receipt.Failed(); len(failed) > 0 {
		r.log.Warn("Send completed with failures",
			"entry", entry.ID, "target", entry.Target.String(),
			"recipients", len(deliveries), "failed", len(failed))
	} else {
		r.log.Debug("Send completed",
			"entry", entry.ID, "target", entry.Target.String(), "recipients", len(deliveries))
	}
	r.record(receipt)
	return receipt, nil
}

// record appends the send to the journal. History is best effort and never
// fails a send that already reached the mailboxes.
func (r *Router) record(receipt domain.Receipt) {
	if r.journal == nil {
		return
	}
	ctx := context.Background()
	if err := r.journal.RecordMessage(ctx, repositories.FromEntry(receipt.Entry)); err != nil {
		r.log.Error("Journal message write failed", "entry", receipt.Entry.ID, "error", err)
		return
	}
	rows := repositories.FromDeliveries(receipt.Entry.ID, receipt.Deliveries)
	if err := r.journal.RecordDeliveries(ctx, receipt.Entry.ID, rows); err != nil {
		r.log.Error("Journal deliveries write failed", "entry", receipt.Entry.ID, "error", err)
	}
}
