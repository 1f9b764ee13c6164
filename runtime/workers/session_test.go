package workers

import (
	"chat-relay/domain"
	"chat-relay/mailbox"
	"chat-relay/mocks"
	"chat-relay/observability"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/time/rate"
)

func entryFor(body string) domain.Entry {
	msg := domain.NewMessage("Alice", domain.UserTarget("Bob"), body, time.Now())
	return domain.EntryFromMessage(msg)
}

func runSession(ctx context.Context, w *SessionWorker) <-chan error {
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	return done
}

func TestSessionWorker_PushesInOrder(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	transport := mocks.NewMockTransport(ctrl)
	mb := mailbox.New("Bob", 0, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var pushed []string
	transport.EXPECT().
		Push(gomock.Any(), domain.UserID("Bob"), gomock.Any()).
		DoAndReturn(func(ctx context.Context, user domain.UserID, entry domain.Entry) error {
			mu.Lock()
			defer mu.Unlock()
			pushed = append(pushed, entry.Body)
			return nil
		}).
		Times(4)

	// Given two entries already waiting before the connection
	req.NoError(mb.Enqueue(ctx, entryFor("1")))
	req.NoError(mb.Enqueue(ctx, entryFor("2")))

	w := NewSessionWorker(logs.GetLoggerFromLevel(slog.LevelDebug), "Bob", mb, transport, nil, nil)
	done := runSession(ctx, w)

	// When two more arrive while connected
	req.NoError(mb.Enqueue(ctx, entryFor("3")))
	req.NoError(mb.Enqueue(ctx, entryFor("4")))

	req.Eventually(func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(pushed) == 4
	}, time.Second, 5*time.Millisecond)
	cancel()
	req.NoError(<-done)

	// Then they were pushed oldest first and the mailbox is empty
	req.Equal([]string{"1", "2", "3", "4"}, pushed)
	req.Equal(0, mb.Len())
}

func TestSessionWorker_PushFailureIsNotRetried(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	transport := mocks.NewMockTransport(ctrl)
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	mb := mailbox.New("Bob", 0, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	delivered := make(chan struct{})
	gomock.InOrder(
		transport.EXPECT().Push(gomock.Any(), gomock.Any(), gomock.Any()).Return(fmt.Errorf("connection reset")).Times(1),
		transport.EXPECT().Push(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(context.Context, domain.UserID, domain.Entry) error {
				close(delivered)
				return nil
			}).Times(1),
	)
	req.NoError(mb.Enqueue(ctx, entryFor("lost")))
	req.NoError(mb.Enqueue(ctx, entryFor("kept")))

	done := runSession(ctx, NewSessionWorker(slog.Default(), "Bob", mb, transport, nil, metrics))

	select {
	case <-delivered:
	case <-time.After(time.Second):
		req.Fail("second entry was never pushed")
	}
	cancel()
	req.NoError(<-done)
	req.Equal(1.0, testutil.ToFloat64(metrics.Pushes.WithLabelValues("failed")))
	req.Equal(1.0, testutil.ToFloat64(metrics.Pushes.WithLabelValues("ok")))
}

func TestSessionWorker_StopLeavesTailQueued(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	transport := mocks.NewMockTransport(ctrl)
	mb := mailbox.New("Bob", 0, time.Second)
	ctx, cancel := context.WithCancel(context.Background())

	// Given a limiter allowing a single push per hour
	limiter := rate.NewLimiter(rate.Every(time.Hour), 1)
	pushed := make(chan struct{})
	transport.EXPECT().
		Push(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, domain.UserID, domain.Entry) error {
			close(pushed)
			return nil
		}).
		Times(1)
	for i := range 3 {
		req.NoError(mb.Enqueue(ctx, entryFor(fmt.Sprintf("%d", i))))
	}

	done := runSession(ctx, NewSessionWorker(slog.Default(), "Bob", mb, transport, limiter, nil))
	<-pushed

	// When the session stops while waiting for the limiter
	cancel()
	req.ErrorIs(<-done, context.Canceled)

	// Then the entries not pushed are still queued in order
	var left []string
	for e := range mb.Drain() {
		left = append(left, e.Body)
	}
	req.Equal([]string{"1", "2"}, left)
}

func TestSessionWorker_CancelledSessionPopsNothing(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	transport := mocks.NewMockTransport(ctrl)
	transport.EXPECT().Push(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
	mb := mailbox.New("Bob", 0, time.Second)
	req.NoError(mb.Enqueue(context.Background(), entryFor("kept")))
	w := NewSessionWorker(slog.Default(), "Bob", mb, transport, nil, nil)

	// Given the session was cancelled right after the limiter let it through
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w.pushNext(ctx)

	// Then the head entry is still queued
	req.Equal(1, mb.Len())
}

func TestNewLimiter(t *testing.T) {
	req := require.New(t)

	req.Equal(rate.Inf, NewLimiter(0, 5).Limit())
	paced := NewLimiter(20, 0)
	req.Equal(rate.Limit(20), paced.Limit())
	req.Equal(1, paced.Burst())
}
