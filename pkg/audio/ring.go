// Package audio holds the local audio side of a USRP link: the voice ring buffer
// that re-frames caller writes into 20ms network frames, 16-bit PCM helpers and the
// Port abstraction over the local audio device or named pipe.
package audio

import "github.com/dbehnke/usrp-link/pkg/usrp"

// DefaultRingFrames is how many voice frames the transmit ring holds (200ms at 8kHz).
const DefaultRingFrames = 10

// VoiceRing is a fixed-capacity circular buffer of PCM samples. All sizes are in
// samples. It is not safe for concurrent use.
type VoiceRing struct {
	buf []int16
	w   int // write offset
	r   int // read offset
	n   int // samples stored
}

// NewVoiceRing creates a ring holding capacity samples.
func NewVoiceRing(capacity int) *VoiceRing {
	return &VoiceRing{buf: make([]int16, capacity)}
}

// NewDefaultVoiceRing creates a ring of DefaultRingFrames voice frames.
func NewDefaultVoiceRing() *VoiceRing {
	return NewVoiceRing(DefaultRingFrames * usrp.VoiceFrameSize)
}

// Write appends samples only if all of them fit and returns the number accepted,
// which is either len(samples) or 0.
func (b *VoiceRing) Write(samples []int16) int {
	if len(samples) == 0 || len(samples) > b.Free() {
		return 0
	}

	first := copy(b.buf[b.w:], samples)
	copy(b.buf, samples[first:])

	b.w = (b.w + len(samples)) % len(b.buf)
	b.n += len(samples)
	return len(samples)
}

// Read fills frame with the oldest len(frame) samples. It returns false and leaves
// the ring untouched when fewer samples are buffered.
func (b *VoiceRing) Read(frame []int16) bool {
	if len(frame) == 0 || b.n < len(frame) {
		return false
	}

	first := copy(frame, b.buf[b.r:min(b.r+len(frame), len(b.buf))])
	copy(frame[first:], b.buf)

	b.r = (b.r + len(frame)) % len(b.buf)
	b.n -= len(frame)
	return true
}

// Len returns the number of buffered samples.
func (b *VoiceRing) Len() int { return b.n }

// Cap returns the ring capacity in samples.
func (b *VoiceRing) Cap() int { return len(b.buf) }

// Free returns how many samples can still be written.
func (b *VoiceRing) Free() int { return len(b.buf) - b.n }

// Reset drops all buffered samples.
func (b *VoiceRing) Reset() {
	b.w, b.r, b.n = 0, 0, 0
}
