package workers

import (
	"chat-relay/mocks"
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestSupervisor_RestartOnPanic(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	workerMock := mocks.NewMockWorker(ctrl)

	var calls atomic.Int32
	workerMock.EXPECT().
		Run(gomock.Any()).
		DoAndReturn(func(ctx context.Context) error {
			calls.Add(1)
			panic("boom")
		}).
		AnyTimes()

	sup := NewSupervisor(log, 10*time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	sup.Add(workerMock).Run(ctx)

	req.GreaterOrEqual(calls.Load(), int32(2))
}

func TestSupervisor_RestartOnError(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	workerMock := mocks.NewMockWorker(ctrl)

	// Given a worker failing twice then finishing
	gomock.InOrder(
		workerMock.EXPECT().Run(gomock.Any()).Return(fmt.Errorf("transient")).Times(2),
		workerMock.EXPECT().Run(gomock.Any()).Return(nil).Times(1),
	)

	sup := NewSupervisor(slog.Default(), time.Millisecond)
	done := make(chan struct{})
	go func() {
		sup.Add(workerMock).Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		req.Fail("Supervisor should have stopped after worker success")
	}
}

func TestSupervisor_StopOnSuccess(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	workerMock := mocks.NewMockWorker(ctrl)

	// Given a worker running only once
	workerMock.EXPECT().
		Run(gomock.Any()).
		Return(nil).
		Times(1)

	sup := NewSupervisor(slog.Default(), 0)
	done := make(chan struct{})
	go func() {
		sup.Add(workerMock).Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
		// Then the supervisor returned without restarting it
	case <-time.After(500 * time.Millisecond):
		req.Fail("Supervisor should have stopped after worker success")
	}
}

func TestSupervisor_StopCancelsWorkers(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	workerMock := mocks.NewMockWorker(ctrl)

	started := make(chan struct{})
	workerMock.EXPECT().
		Run(gomock.Any()).
		DoAndReturn(func(ctx context.Context) error {
			close(started)
			<-ctx.Done()
			return ctx.Err()
		}).
		Times(1)

	sup := NewSupervisor(slog.Default(), time.Millisecond)
	done := make(chan struct{})
	go func() {
		sup.Add(workerMock).Run(context.Background())
		close(done)
	}()

	<-started
	sup.Stop()

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		req.Fail("Supervisor should have stopped its workers")
	}
}

func TestSupervisor_StartWithOwnContext(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	first, second := mocks.NewMockWorker(ctrl), mocks.NewMockWorker(ctrl)
	blockUntilDone := func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}
	first.EXPECT().Run(gomock.Any()).DoAndReturn(blockUntilDone).Times(1)
	second.EXPECT().Run(gomock.Any()).DoAndReturn(blockUntilDone).Times(1)

	sup := NewSupervisor(slog.Default(), time.Millisecond)
	firstCtx, cancelFirst := context.WithCancel(context.Background())
	secondCtx, cancelSecond := context.WithCancel(context.Background())
	sup.Start(firstCtx, first)
	sup.Start(secondCtx, second)

	// When only the first one is cancelled, Wait keeps blocking
	cancelFirst()
	waited := make(chan struct{})
	go func() {
		sup.Wait()
		close(waited)
	}()
	select {
	case <-waited:
		req.Fail("Wait returned while a worker is still running")
	case <-time.After(50 * time.Millisecond):
	}

	cancelSecond()
	select {
	case <-waited:
	case <-time.After(500 * time.Millisecond):
		req.Fail("Wait should return once every worker stopped")
	}
}

func TestSupervisor_WaitIgnoresSeparateSupervisor(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	session, sampler := mocks.NewMockWorker(ctrl), mocks.NewMockWorker(ctrl)
	blockUntilDone := func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}
	session.EXPECT().Run(gomock.Any()).DoAndReturn(blockUntilDone).Times(1)
	sampler.EXPECT().Run(gomock.Any()).DoAndReturn(blockUntilDone).Times(1)

	// Given a sampler running under its own supervisor
	monitorCtx, stopMonitor := context.WithCancel(context.Background())
	monitor := NewSupervisor(slog.Default(), time.Millisecond).Add(sampler)
	monitorDone := make(chan struct{})
	go func() {
		monitor.Run(monitorCtx)
		close(monitorDone)
	}()

	sessions := NewSupervisor(slog.Default(), time.Millisecond)
	sessionCtx, stopSession := context.WithCancel(context.Background())
	sessions.Start(sessionCtx, session)

	// When the sessions are stopped
	stopSession()
	waited := make(chan struct{})
	go func() {
		sessions.Wait()
		close(waited)
	}()

	// Then Wait returns while the sampler keeps running
	select {
	case <-waited:
	case <-time.After(500 * time.Millisecond):
		req.Fail("Wait should not block on another supervisor's workers")
	}
	select {
	case <-monitorDone:
		req.Fail("the sampler should still be running")
	default:
	}

	stopMonitor()
	select {
	case <-monitorDone:
	case <-time.After(500 * time.Millisecond):
		req.Fail("the sampler should stop with its context")
	}
}
