package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/observability"
	"chat-relay/runtime/workers"
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// GatewayConfig paces the pushes of every session.
type GatewayConfig struct {
	RatePerSecond float64
	Burst         int
}

// Gateway keeps at most one live session per connected user and stops
// them on Disconnect or Stop.
type Gateway struct {
	log        *slog.Logger
	mailboxes  contract.IMailboxDirectory
	supervisor contract.ISupervisor
	metrics    *observability.Metrics
	config     GatewayConfig

	mu       sync.Mutex
	sessions map[domain.UserID]context.CancelFunc
	stopped  bool
}

func NewGateway(
	log *slog.Logger,
	mailboxes contract.IMailboxDirectory,
	supervisor contract.ISupervisor,
	metrics *observability.Metrics,
	config GatewayConfig,
) *Gateway {
	return &Gateway{
		log:        log,
		mailboxes:  mailboxes,
		supervisor: supervisor,
		metrics:    metrics,
		config:     config,
		sessions:   make(map[domain.UserID]context.CancelFunc),
	}
}

// Connect attaches transport to the mailbox of user. A previous session of
// the same user is replaced. The session ends when ctx is done.
func (g *Gateway) Connect(ctx context.Context, user domain.UserID, transport contract.Transport) error {
	mailbox, ok := g.mailboxes.Get(user)
	if !ok {
		return fmt.Errorf("%w: no mailbox for %s", errors.ErrUnknownEntity, user)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.stopped {
		return fmt.Errorf("%w: gateway stopped", errors.ErrMailboxClosed)
	}
	if cancel, ok := g.sessions[user]; ok {
		cancel()
	}
	sessionCtx, cancel := context.WithCancel(ctx)
	g.sessions[user] = cancel

	limiter := workers.NewLimiter(g.config.RatePerSecond, g.config.Burst)
	g.supervisor.Start(sessionCtx, workers.NewSessionWorker(g.log, user, mailbox, transport, limiter, g.metrics))
	g.log.Info("User connected", "user", user)
	return nil
}

// Disconnect stops the session of user. Its mailbox keeps accumulating.
func (g *Gateway) Disconnect(user domain.UserID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if cancel, ok := g.sessions[user]; ok {
		cancel()
		delete(g.sessions, user)
		g.log.Info("User disconnected", "user", user)
	}
}

func (g *Gateway) Connected(user domain.UserID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.sessions[user]
	return ok
}

func (g *Gateway) Sessions() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.sessions)
}

// Stop ends every session and waits for their workers to return.
func (g *Gateway) Stop() {
	g.mu.Lock()
	g.stopped = true
	for user, cancel := range g.sessions {
		cancel()
		delete(g.sessions, user)
	}
	g.mu.Unlock()
	g.supervisor.Wait()
}
