package engine

import "go.uber.org/atomic"

// Stats is a point-in-time copy of an engine's counters.
type Stats struct {
	PacketsReceived   uint64
	InvalidPackets    uint64
	SequenceAnomalies uint64
	SilenceFrames     uint64
	FramesForwarded   uint64
	AudioWriteErrors  uint64
	FramesSent        uint64
	ControlFramesSent uint64
	BufferOverruns    uint64
	SendErrors        uint64
}

type counters struct {
	packetsReceived   atomic.Uint64
	invalidPackets    atomic.Uint64
	sequenceAnomalies atomic.Uint64
	silenceFrames     atomic.Uint64
	framesForwarded   atomic.Uint64
	audioWriteErrors  atomic.Uint64
	framesSent        atomic.Uint64
	controlFramesSent atomic.Uint64
	bufferOverruns    atomic.Uint64
	sendErrors        atomic.Uint64
}

func (c *counters) snapshot() Stats {
	return Stats{
		PacketsReceived:   c.packetsReceived.Load(),
		InvalidPackets:    c.invalidPackets.Load(),
		SequenceAnomalies: c.sequenceAnomalies.Load(),
		SilenceFrames:     c.silenceFrames.Load(),
		FramesForwarded:   c.framesForwarded.Load(),
		AudioWriteErrors:  c.audioWriteErrors.Load(),
		FramesSent:        c.framesSent.Load(),
		ControlFramesSent: c.controlFramesSent.Load(),
		BufferOverruns:    c.bufferOverruns.Load(),
		SendErrors:        c.sendErrors.Load(),
	}
}
