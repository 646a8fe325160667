package audio

import (
	"encoding/binary"

	"github.com/dbehnke/usrp-link/pkg/usrp"
)

// SamplesToBytes converts int16 samples to little-endian PCM bytes
func SamplesToBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, sample := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(sample))
	}
	return out
}

// BytesToSamples converts little-endian PCM bytes to int16 samples. A trailing odd
// byte is ignored.
func BytesToSamples(data []byte) []int16 {
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return samples
}

// SilenceFrame returns one zeroed 20ms voice frame in PCM bytes.
func SilenceFrame() []byte {
	return make([]byte, usrp.VoiceFrameLen)
}
