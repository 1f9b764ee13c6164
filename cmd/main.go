package main

import (
	"chat-relay/internal"
	"chat-relay/mailbox"
	"chat-relay/observability"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
	"chat-relay/services"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run wires the relay, replays the family demo and, when a metrics address
// is configured, keeps serving until interrupted.
func run() error {
	// 1. Configuration & Logger
	config, err := internal.LoadConfig()
	if err != nil {
		return err
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Journal
	journal, err := repositories.OpenJournal(ctx, log, config.Journal())
	if err != nil {
		return err
	}
	if journal != nil {
		defer func() {
			log.Info("Closing journal...", "backend", config.JournalBackend)
			_ = journal.Close()
		}()
	}

	// 3. Routing engine
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)
	registry := runtime.NewRegistry(log)
	mailboxes := mailbox.NewDirectory(config.MailboxCapacity, config.EnqueueTimeout)
	fanout := workers.NewFanout(log, mailboxes, config.FanoutParallelism)

	opts := []runtime.RouterOption{
		runtime.WithMetrics(metrics),
		runtime.WithSelfSend(config.AllowSelfSend),
	}
	if journal != nil {
		opts = append(opts, runtime.WithJournal(journal))
	}
	router := runtime.NewRouter(log, registry, fanout, opts...)

	// 4. Session gateway
	sup := workers.NewSupervisor(log, config.RestartInterval)
	gateway := runtime.NewGateway(log, mailboxes, sup, metrics, runtime.GatewayConfig{
		RatePerSecond: config.GatewayRatePerSec,
		Burst:         config.GatewayBurst,
	})
	defer gateway.Stop()

	// The sampler has its own supervisor, gateway.Stop waits on sup only.
	monitor := workers.NewSupervisor(log, config.RestartInterval).
		Add(workers.NewMailboxDepthWorker(log, mailboxes, metrics, config.MetricInterval))
	monitorCtx, stopMonitor := context.WithCancel(ctx)
	monitorDone := make(chan struct{})
	go func() {
		defer close(monitorDone)
		monitor.Run(monitorCtx)
	}()
	defer func() {
		stopMonitor()
		<-monitorDone
	}()

	service := services.NewChatService(log, registry, mailboxes, router, gateway, journal)

	// 5. Debug server
	var debug *internal.DebugServer
	if config.MetricsAddr != "" {
		debug = internal.NewDebugServer(log, config.MetricsAddr, reg, journal, func() map[string]any {
			return map[string]any{"sessions": gateway.Sessions()}
		})
		debug.Start()
	}

	// 6. Demo
	console := NewConsoleTransport(os.Stdout, config.Colours)
	receipts, err := replayDemo(ctx, service, console)
	if err != nil {
		return fmt.Errorf("demo failed: %w", err)
	}
	console.WaitFor(ctx, delivered(receipts), 2*time.Second)
	printReport(os.Stdout, receipts)

	if debug == nil {
		return nil
	}

	// 7. Wait for Stop
	<-ctx.Done()
	log.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := debug.Shutdown(shutdownCtx); err != nil {
		log.Warn("Debug server shutdown failed", "error", err)
	}
	log.Info("Program stopped cleanly")
	return nil
}
