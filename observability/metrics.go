package observability

import (
	"chat-relay/domain"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "chat_relay"

// Metrics groups the Prometheus collectors of the routing engine.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Sends          *prometheus.CounterVec
	Deliveries     *prometheus.CounterVec
	Pushes         *prometheus.CounterVec
	FanoutDuration prometheus.Histogram
	FanoutSize     prometheus.Histogram
	MailboxDepth   *prometheus.GaugeVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Sends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sends_total",
			Help:      "Send requests handled by the router, by target kind and outcome.",
		}, []string{"target_kind", "outcome"}),
		Deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Per recipient delivery outcomes.",
		}, []string{"status", "reason"}),
		Pushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_pushes_total",
			Help:      "Entries pushed by the session gateway to live transports.",
		}, []string{"result"}),
		FanoutDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fanout_duration_seconds",
			Help:      "Time between dispatch and the fan-in barrier.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
		FanoutSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fanout_recipients",
			Help:      "Number of recipients per fanout.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
		MailboxDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mailbox_depth",
			Help:      "Pending entries per mailbox, sampled periodically.",
		}, []string{"user"}),
	}
	reg.MustRegister(m.Sends, m.Deliveries, m.Pushes, m.FanoutDuration, m.FanoutSize, m.MailboxDepth)
	return m
}

func (m *Metrics) ObserveSend(kind domain.TargetKind, err error) {
	if m == nil {
		return
	}
	outcome := "accepted"
	if err != nil {
		outcome = "rejected"
	}
	m.Sends.WithLabelValues(string(kind), outcome).Inc()
}

func (m *Metrics) ObserveFanout(deliveries []domain.Delivery, took time.Duration) {
	if m == nil {
		return
	}
	m.FanoutDuration.Observe(took.Seconds())
	m.FanoutSize.Observe(float64(len(deliveries)))
	for _, d := range deliveries {
		m.Deliveries.WithLabelValues(string(d.Status), string(d.Reason)).Inc()
	}
}

func (m *Metrics) ObservePush(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "failed"
	}
	m.Pushes.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveMailboxDepth(user domain.UserID, depth int) {
	if m == nil {
		return
	}
	m.MailboxDepth.WithLabelValues(string(user)).Set(float64(depth))
}

// ForgetMailbox drops the depth series of a mailbox that no longer exists.
func (m *Metrics) ForgetMailbox(user domain.UserID) {
	if m == nil {
		return
	}
	m.MailboxDepth.DeleteLabelValues(string(user))
}
