package sandwich

import (
	"github.com/prometheus/client_golang/prometheus"
)

// GatewayMetrics tracks gateway session metrics. They are registered by RegisterMetrics.
var GatewayMetrics = struct {
	EventsTotal       *prometheus.CounterVec
	GatewayLatency    *prometheus.GaugeVec
	SessionStatus     *prometheus.GaugeVec
	ApplicationStatus *prometheus.GaugeVec
	HeartbeatsSent    *prometheus.CounterVec
	LivenessFailures  *prometheus.CounterVec
	UnknownOpcodes    *prometheus.CounterVec
	SequenceGaps      *prometheus.CounterVec
	DecodeErrors      *prometheus.CounterVec
	PublishedEvents   *prometheus.CounterVec
	PublishFailures   *prometheus.CounterVec
	SessionRestarts   *prometheus.CounterVec
}{
	EventsTotal: prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sandwich_events_total",
			Help: "Total number of dispatch events received, split by identifier and event type",
		},
		[]string{"application_identifier", "event_type"},
	),
	GatewayLatency: prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sandwich_gateway_latency_seconds",
			Help: "Gateway latency in seconds, measured by heartbeat",
		},
		[]string{"application_identifier"},
	),
	SessionStatus: prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sandwich_session_status",
			Help: "Status of the gateway session",
		},
		[]string{"application_identifier"},
	),
	ApplicationStatus: prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sandwich_application_status",
			Help: "Status of the application",
		},
		[]string{"application_identifier"},
	),
	HeartbeatsSent: prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sandwich_heartbeats_sent_total",
			Help: "Total number of heartbeats sent",
		},
		[]string{"application_identifier"},
	),
	LivenessFailures: prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sandwich_liveness_failures_total",
			Help: "Total number of heartbeat windows that passed without acknowledgement",
		},
		[]string{"application_identifier"},
	),
	UnknownOpcodes: prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sandwich_unknown_opcodes_total",
			Help: "Total number of frames received with an unknown opcode",
		},
		[]string{"application_identifier", "op"},
	),
	SequenceGaps: prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sandwich_sequence_gaps_total",
			Help: "Total number of dispatches received out of sequence",
		},
		[]string{"application_identifier"},
	),
	DecodeErrors: prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sandwich_decode_errors_total",
			Help: "Total number of frames that could not be decoded",
		},
		[]string{"application_identifier"},
	),
	PublishedEvents: prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sandwich_published_events_total",
			Help: "Total number of events published to the producer",
		},
		[]string{"application_identifier", "producer"},
	),
	PublishFailures: prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sandwich_publish_failures_total",
			Help: "Total number of events that failed to publish",
		},
		[]string{"application_identifier", "producer"},
	),
	SessionRestarts: prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sandwich_session_restarts_total",
			Help: "Total number of times a new session was opened after the previous one ended",
		},
		[]string{"application_identifier"},
	),
}

// RegisterMetrics registers every gateway metric on the registerer.
func RegisterMetrics(registerer prometheus.Registerer) {
	registerer.MustRegister(
		GatewayMetrics.EventsTotal,
		GatewayMetrics.GatewayLatency,
		GatewayMetrics.SessionStatus,
		GatewayMetrics.ApplicationStatus,
		GatewayMetrics.HeartbeatsSent,
		GatewayMetrics.LivenessFailures,
		GatewayMetrics.UnknownOpcodes,
		GatewayMetrics.SequenceGaps,
		GatewayMetrics.DecodeErrors,
		GatewayMetrics.PublishedEvents,
		GatewayMetrics.PublishFailures,
		GatewayMetrics.SessionRestarts,
	)
}

func RecordEvent(identifier, eventType string) {
	GatewayMetrics.EventsTotal.WithLabelValues(identifier, eventType).Inc()
}

func UpdateGatewayLatency(identifier string, latency float64) {
	GatewayMetrics.GatewayLatency.WithLabelValues(identifier).Set(latency)
}

func UpdateSessionStatus(identifier string, status SessionStatus) {
	GatewayMetrics.SessionStatus.WithLabelValues(identifier).Set(float64(status))
}

func UpdateApplicationStatus(identifier string, status ApplicationStatus) {
	GatewayMetrics.ApplicationStatus.WithLabelValues(identifier).Set(float64(status))
}

func RecordHeartbeat(identifier string) {
	GatewayMetrics.HeartbeatsSent.WithLabelValues(identifier).Inc()
}

func RecordLivenessFailure(identifier string) {
	GatewayMetrics.LivenessFailures.WithLabelValues(identifier).Inc()
}

func RecordUnknownOpcode(identifier, op string) {
	GatewayMetrics.UnknownOpcodes.WithLabelValues(identifier, op).Inc()
}

func RecordSequenceGap(identifier string) {
	GatewayMetrics.SequenceGaps.WithLabelValues(identifier).Inc()
}

func RecordDecodeError(identifier string) {
	GatewayMetrics.DecodeErrors.WithLabelValues(identifier).Inc()
}

func RecordPublish(identifier, producer string, err error) {
	if err != nil {
		GatewayMetrics.PublishFailures.WithLabelValues(identifier, producer).Inc()

		return
	}

	GatewayMetrics.PublishedEvents.WithLabelValues(identifier, producer).Inc()
}

func RecordSessionRestart(identifier string) {
	GatewayMetrics.SessionRestarts.WithLabelValues(identifier).Inc()
}
