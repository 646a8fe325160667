package engine

import (
	"fmt"
	"log/slog"

	"github.com/dbehnke/usrp-link/pkg/audio"
	"github.com/dbehnke/usrp-link/pkg/usrp"
)

// transmitter is the keying state and outbound framing. It belongs to the caller
// goroutine and is not locked.
type transmitter struct {
	keyed bool
	seq   uint32
	ring  *audio.VoiceRing
	frame [usrp.VoiceFrameSize]int16
}

func (t *transmitter) nextSeq() uint32 {
	seq := t.seq
	t.seq++
	return seq
}

// KeyTx changes the local keying state. Keying up sends a TEXT frame with PTT set
// carrying this node's SET_INFO; keying down sends a header-only VOICE frame with
// PTT clear. Calling it with the current state does nothing.
func (e *Engine) KeyTx(key bool) error {
	if e.closed.Load() {
		return ErrClosed
	}
	if key == e.tx.keyed {
		return nil
	}
	e.tx.keyed = key

	var (
		data       []byte
		transition string
	)
	if key {
		id := e.cfg.Identity
		msg := usrp.TextMessage{
			Header: usrp.NewHeader(usrp.USRP_TYPE_TEXT, e.tx.nextSeq()),
			Info:   usrp.NewSetInfo(id.Callsign, id.DMRID, id.RepeaterID, id.TalkGroup),
		}
		msg.Header.SetPTT(true)
		data, _ = msg.Marshal()
		transition = "key_up"
		e.metrics.LocalKeyed.Set(1)
	} else {
		// A partial frame would otherwise lead the next transmission
		e.tx.ring.Reset()
		data = usrp.EndOfTransmission(e.tx.nextSeq())
		transition = "key_down"
		e.metrics.LocalKeyed.Set(0)
	}

	e.logger.Debug("Local keying changed", slog.Bool("keyed", key), slog.Uint64("seq", uint64(e.tx.seq-1)))

	if err := e.send(data); err != nil {
		return fmt.Errorf("send %s frame: %w", transition, err)
	}
	e.counters.controlFramesSent.Inc()
	e.metrics.ControlFramesSent.WithLabelValues(transition).Inc()
	return nil
}

// Write queues samples for transmission and sends every complete 20ms frame.
// While unkeyed the samples are dropped and reported as accepted. While keyed it
// returns the accepted byte count, which is 0 when the transmit ring cannot hold
// all of samples; the caller may retry later or drop them.
func (e *Engine) Write(samples []int16) (int, error) {
	if e.closed.Load() {
		return 0, ErrClosed
	}
	if !e.tx.keyed {
		return len(samples) * 2, nil
	}

	if e.tx.ring.Write(samples) == 0 {
		if len(samples) > 0 {
			e.counters.bufferOverruns.Inc()
			e.metrics.BufferOverruns.Inc()
			e.logger.Debug("Transmit buffer full",
				slog.Int("samples", len(samples)),
				slog.Int("free", e.tx.ring.Free()),
			)
		}
		return 0, nil
	}

	for e.tx.ring.Read(e.tx.frame[:]) {
		msg := usrp.VoiceMessage{
			Header:    usrp.NewHeader(usrp.USRP_TYPE_VOICE, e.tx.nextSeq()),
			AudioData: e.tx.frame,
		}
		msg.Header.SetPTT(e.tx.keyed)
		data, _ := msg.Marshal()

		if err := e.send(data); err != nil {
			return len(samples) * 2, fmt.Errorf("send voice frame: %w", err)
		}
		e.counters.framesSent.Inc()
		e.metrics.FramesSent.Inc()
	}

	return len(samples) * 2, nil
}

func (e *Engine) send(data []byte) error {
	if err := e.conn.Send(data); err != nil {
		e.counters.sendErrors.Inc()
		e.metrics.SendErrors.Inc()
		return err
	}
	return nil
}
