package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsRegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.PacketsReceived.WithLabelValues("VOICE").Add(3)
	m.InvalidPackets.Inc()
	m.ControlFramesSent.WithLabelValues("key_up").Inc()
	m.RemoteKeyed.Set(1)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.PacketsReceived.WithLabelValues("VOICE")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.InvalidPackets))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RemoteKeyed))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["usrp_packets_received_total"])
	assert.True(t, names["usrp_control_frames_sent_total"])
	assert.True(t, names["usrp_remote_keyed"])
}

func TestNewMetricsSeparateRegistries(t *testing.T) {
	// Two engines in one process each get their own registry
	assert.NotPanics(t, func() {
		NewMetrics(prometheus.NewRegistry())
		NewMetrics(prometheus.NewRegistry())
	})
}
