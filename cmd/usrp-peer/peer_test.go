package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbehnke/usrp-link/internal/logging"
	"github.com/dbehnke/usrp-link/pkg/usrp"
)

func newTestPeer(t *testing.T) *Peer {
	t.Helper()
	gen, err := newGenerator(PatternSine440Hz)
	require.NoError(t, err)
	return &Peer{
		callsign:  "W1AW",
		dmrID:     3120001,
		talkGroup: 91,
		onTime:    60 * time.Millisecond,
		offTime:   40 * time.Millisecond,
		gen:       gen,
		logger:    logging.Discard(),
		started:   time.Unix(1700000000, 0),
	}
}

func packetTypes(t *testing.T, pkts [][]byte) []usrp.PacketType {
	t.Helper()
	var out []usrp.PacketType
	for _, data := range pkts {
		h, err := usrp.DecodeHeader(data)
		require.NoError(t, err)
		out = append(out, h.PacketType())
	}
	return out
}

func TestPeerPTTCycle(t *testing.T) {
	p := newTestPeer(t)

	var all [][]byte
	for i := 0; i < 5; i++ {
		all = append(all, p.tick(p.started.Add(time.Duration(i)*20*time.Millisecond))...)
	}

	// key-up announcement, three voice frames, end of transmission
	assert.Equal(t, []usrp.PacketType{
		usrp.USRP_TYPE_TEXT,
		usrp.USRP_TYPE_VOICE, usrp.USRP_TYPE_VOICE, usrp.USRP_TYPE_VOICE,
		usrp.USRP_TYPE_VOICE,
	}, packetTypes(t, all))

	text := &usrp.TextMessage{}
	require.NoError(t, text.Unmarshal(all[0]))
	assert.Equal(t, "W1AW", text.Info.Callsign)
	assert.Equal(t, uint32(3120001), text.Info.DMRID)
	assert.True(t, text.Header.IsPTT())

	eot, err := usrp.DecodeHeader(all[4])
	require.NoError(t, err)
	assert.False(t, eot.IsPTT())
	assert.Len(t, all[4], usrp.HeaderSize)

	for i, data := range all {
		h, _ := usrp.DecodeHeader(data)
		assert.Equal(t, uint32(i+1), h.Seq, "sequence increases across packet types")
	}
}

func TestGeneratorPatterns(t *testing.T) {
	for _, pattern := range []TestPattern{PatternSine440Hz, PatternSine1kHz, PatternWhiteNoise, PatternDTMF, PatternSweep} {
		t.Run(string(pattern), func(t *testing.T) {
			gen, err := newGenerator(pattern)
			require.NoError(t, err)

			frame := make([]int16, usrp.VoiceFrameSize)
			gen.fill(frame)

			peak := 0
			for _, s := range frame {
				peak = max(peak, abs(int(s)))
			}
			assert.Greater(t, peak, 500)
			assert.LessOrEqual(t, peak, 8000)
		})
	}

	gen, err := newGenerator(PatternSilence)
	require.NoError(t, err)
	frame := []int16{1, 2, 3}
	gen.fill(frame)
	assert.Equal(t, []int16{0, 0, 0}, frame)

	_, err = newGenerator("square_wave")
	assert.Error(t, err)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
