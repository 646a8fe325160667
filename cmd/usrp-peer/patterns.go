package main

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// TestPattern names the audio a peer transmits.
type TestPattern string

const (
	PatternSilence    TestPattern = "silence"
	PatternSine440Hz  TestPattern = "sine_440hz"
	PatternSine1kHz   TestPattern = "sine_1khz"
	PatternWhiteNoise TestPattern = "white_noise"
	PatternDTMF       TestPattern = "dtmf_sequence"
	PatternSweep      TestPattern = "frequency_sweep"
)

const sampleRate = 8000

var dtmfDigits = "1234567890*#"

// DTMF frequencies (row, column)
var dtmfFreqs = map[byte][2]float64{
	'1': {697, 1209}, '2': {697, 1336}, '3': {697, 1477},
	'4': {770, 1209}, '5': {770, 1336}, '6': {770, 1477},
	'7': {852, 1209}, '8': {852, 1336}, '9': {852, 1477},
	'*': {941, 1209}, '0': {941, 1336}, '#': {941, 1477},
}

// generator fills frames with a pattern, keeping phase across frames.
type generator struct {
	pattern TestPattern
	phase   [2]float64
	samples int // samples generated so far
	rng     *rand.Rand
}

func newGenerator(pattern TestPattern) (*generator, error) {
	switch pattern {
	case PatternSilence, PatternSine440Hz, PatternSine1kHz, PatternWhiteNoise, PatternDTMF, PatternSweep:
	default:
		return nil, fmt.Errorf("unknown pattern %q", pattern)
	}
	return &generator{pattern: pattern, rng: rand.New(rand.NewPCG(1, 2))}, nil
}

func (g *generator) fill(frame []int16) {
	switch g.pattern {
	case PatternSilence:
		clear(frame)
	case PatternSine440Hz:
		g.tone(frame, 8000, 440)
	case PatternSine1kHz:
		g.tone(frame, 8000, 1000)
	case PatternWhiteNoise:
		for i := range frame {
			frame[i] = int16(g.rng.IntN(4001) - 2000)
		}
	case PatternSweep:
		// 300Hz to 3kHz every 10 seconds
		progress := float64(g.samples%(10*sampleRate)) / float64(10*sampleRate)
		g.tone(frame, 8000, 300+2700*progress)
	case PatternDTMF:
		// each digit lasts two seconds
		digit := dtmfDigits[(g.samples/(2*sampleRate))%len(dtmfDigits)]
		f := dtmfFreqs[digit]
		g.tone(frame, 4000, f[0], f[1])
	}
	g.samples += len(frame)
}

// tone writes the sum of sines at the given frequencies, split evenly over amplitude.
func (g *generator) tone(frame []int16, amplitude float64, freqs ...float64) {
	share := amplitude / float64(len(freqs))
	for i := range frame {
		var v float64
		for k, f := range freqs {
			v += share * math.Sin(g.phase[k])
			g.phase[k] = math.Mod(g.phase[k]+2*math.Pi*f/sampleRate, 2*math.Pi)
		}
		frame[i] = int16(v)
	}
}
