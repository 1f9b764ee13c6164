package internal

import (
	"chat-relay/domain"
	chaterrors "chat-relay/errors"
	"chat-relay/repositories"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type StatsProvider func() map[string]any

type HistoryPage struct {
	Messages []repositories.DiskMessage `json:"messages"`
	Next     *string                    `json:"next,omitempty"`
}

// DebugServer exposes the Prometheus metrics and a read-only view of the journal.
//
//	GET /metrics
//	GET /stats
//	GET /history?target=group:Family&cursor=...
type DebugServer struct {
	log    *slog.Logger
	server *http.Server
}

// NewDebugServer builds the handler tree. journal and stats may be nil.
func NewDebugServer(log *slog.Logger, addr string, gatherer prometheus.Gatherer, journal repositories.IJournal, stats StatsProvider) *DebugServer {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		data := map[string]any{"time": time.Now().UTC().Format(time.RFC3339)}
		if stats != nil {
			for k, v := range stats() {
				data[k] = v
			}
		}
		writeJSON(w, http.StatusOK, data)
	})
	mux.HandleFunc("/history", func(w http.ResponseWriter, r *http.Request) {
		if journal == nil {
			http.Error(w, "journal disabled", http.StatusNotFound)
			return
		}
		target, ok := domain.ParseTarget(r.URL.Query().Get("target"))
		if !ok {
			http.Error(w, "target must be user:<id> or group:<id>", http.StatusBadRequest)
			return
		}
		var cursor *string
		if c := r.URL.Query().Get("cursor"); c != "" {
			cursor = &c
		}
		messages, next, err := journal.GetMessages(r.Context(), target, cursor)
		if errors.Is(err, chaterrors.ErrInvalidCursor) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err != nil {
			log.Error("History read failed", "target", target.String(), "error", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, HistoryPage{Messages: messages, Next: next})
	})

	return &DebugServer{
		log: log,
		server: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

func (d *DebugServer) Handler() http.Handler {
	return d.server.Handler
}

// Start serves in the background until Shutdown.
func (d *DebugServer) Start() {
	go func() {
		d.log.Info("Debug server listening", "address", d.server.Addr)
		if err := d.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			d.log.Error("Debug server stopped", "error", err)
		}
	}()
}

func (d *DebugServer) Shutdown(ctx context.Context) error {
	return d.server.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
