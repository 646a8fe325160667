package engine

import (
	"sync"

	"github.com/dbehnke/usrp-link/pkg/usrp"
)

// HistorySize is the number of recent inbound headers kept for inspection.
const HistorySize = 8

// receiveState is written by the receive loop and read by callers. Every field
// is guarded by mu so a header is never observed mid-update.
type receiveState struct {
	mu         sync.Mutex
	expected   uint32
	last       usrp.Header
	history    [HistorySize]usrp.Header
	historyIdx int
	recorded   int
}

// recordResult describes what record changed for one header.
type recordResult struct {
	wasPTT   bool   // remote keying before this header
	anomaly  bool   // keyed voice packet not ahead of the expected sequence
	expected uint32 // expected sequence before the update
}

// record appends h to the history, makes it the last header and applies the
// sequence update for its type in one critical section.
func (s *receiveState) record(h usrp.Header, hasSetInfo bool) recordResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := recordResult{wasPTT: s.last.IsPTT(), expected: s.expected}

	s.history[s.historyIdx] = h
	s.historyIdx = (s.historyIdx + 1) % HistorySize
	if s.recorded < HistorySize {
		s.recorded++
	}
	s.last = h

	switch h.PacketType() {
	case usrp.USRP_TYPE_VOICE:
		if h.IsPTT() {
			// Signed difference so a wrap from 0xFFFFFFFF to 0 still counts as ahead
			res.anomaly = int32(h.Seq-s.expected) <= 0
			s.expected = h.Seq
		} else {
			s.expected = 0
		}
	case usrp.USRP_TYPE_TEXT:
		if hasSetInfo {
			s.expected = h.Seq
		}
	}

	return res
}

func (s *receiveState) ptt() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last.IsPTT()
}

func (s *receiveState) lastHeader() usrp.Header {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *receiveState) expectedSeq() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expected
}

// snapshot returns the recorded headers, oldest first.
func (s *receiveState) snapshot() []usrp.Header {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]usrp.Header, 0, s.recorded)
	start := (s.historyIdx - s.recorded + HistorySize) % HistorySize
	for i := 0; i < s.recorded; i++ {
		out = append(out, s.history[(start+i)%HistorySize])
	}
	return out
}
