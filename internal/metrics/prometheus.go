// Package metrics defines the Prometheus collectors exported by a USRP link.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for one protocol engine
type Metrics struct {
	// Receive side
	PacketsReceived   *prometheus.CounterVec
	InvalidPackets    prometheus.Counter
	SequenceAnomalies prometheus.Counter
	SilenceFrames     prometheus.Counter
	FramesForwarded   prometheus.Counter
	AudioWriteErrors  prometheus.Counter
	RemoteKeyed       prometheus.Gauge
	RemoteOverSeconds prometheus.Histogram

	// Transmit side
	FramesSent        prometheus.Counter
	ControlFramesSent *prometheus.CounterVec
	BufferOverruns    prometheus.Counter
	SendErrors        prometheus.Counter
	LocalKeyed        prometheus.Gauge
}

// NewMetrics creates the engine metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		PacketsReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "usrp_packets_received_total",
			Help: "Total number of valid USRP packets received, by packet type",
		}, []string{"type"}),
		InvalidPackets: factory.NewCounter(prometheus.CounterOpts{
			Name: "usrp_invalid_packets_total",
			Help: "Total number of datagrams discarded for bad magic or short length",
		}),
		SequenceAnomalies: factory.NewCounter(prometheus.CounterOpts{
			Name: "usrp_sequence_anomalies_total",
			Help: "Total number of keyed voice packets that arrived out of order or duplicated",
		}),
		SilenceFrames: factory.NewCounter(prometheus.CounterOpts{
			Name: "usrp_silence_frames_total",
			Help: "Total number of keepalive silence frames written to the audio port",
		}),
		FramesForwarded: factory.NewCounter(prometheus.CounterOpts{
			Name: "usrp_voice_frames_forwarded_total",
			Help: "Total number of received voice frames written to the audio port",
		}),
		AudioWriteErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "usrp_audio_write_errors_total",
			Help: "Total number of frames the audio port refused",
		}),
		RemoteKeyed: factory.NewGauge(prometheus.GaugeOpts{
			Name: "usrp_remote_keyed",
			Help: "Whether the remote peer is currently transmitting",
		}),
		RemoteOverSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "usrp_remote_transmission_duration_seconds",
			Help:    "Duration of transmissions received from the remote peer",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 180},
		}),
		FramesSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "usrp_voice_frames_sent_total",
			Help: "Total number of voice frames sent to the remote peer",
		}),
		ControlFramesSent: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "usrp_control_frames_sent_total",
			Help: "Total number of key-up and key-down frames sent, by transition",
		}, []string{"transition"}),
		BufferOverruns: factory.NewCounter(prometheus.CounterOpts{
			Name: "usrp_tx_buffer_overruns_total",
			Help: "Total number of writes rejected because the transmit ring was full",
		}),
		SendErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "usrp_send_errors_total",
			Help: "Total number of datagrams that failed to send",
		}),
		LocalKeyed: factory.NewGauge(prometheus.GaugeOpts{
			Name: "usrp_local_keyed",
			Help: "Whether this node is currently transmitting",
		}),
	}
}
