package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dbehnke/usrp-link/pkg/audio"
	"github.com/dbehnke/usrp-link/pkg/usrp"
)

// transmission is one remote key-up to key-down span.
type transmission struct {
	id       uuid.UUID
	started  time.Time
	callsign string
	frames   int
}

func (e *Engine) receiveLoop(ctx context.Context) {
	defer close(e.done)

	buf := make([]byte, usrp.MaxPacketSize)
	silence := audio.SilenceFrame()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := e.receiveOnce(buf, silence); err != nil {
			if !errors.Is(err, ErrConnClosed) {
				e.err = err
				e.logger.Error("Receive loop stopped", slog.String("error", err.Error()))
			}
			return
		}
	}
}

// receiveOnce runs one cycle: wait for a datagram, or emit silence on timeout.
// It only returns an error the loop cannot continue after.
func (e *Engine) receiveOnce(buf, silence []byte) error {
	timeout := e.cfg.IdleInterval
	if e.state.ptt() {
		timeout = e.cfg.ActiveInterval
	}

	n, err := e.conn.Receive(buf, timeout)
	if errors.Is(err, ErrReceiveTimeout) {
		if e.writeAudio(silence) {
			e.counters.silenceFrames.Inc()
			e.metrics.SilenceFrames.Inc()
		}
		return nil
	}
	if err != nil {
		return err
	}

	e.handleDatagram(buf[:n])
	return nil
}

func (e *Engine) handleDatagram(data []byte) {
	h, err := usrp.DecodeHeader(data)
	if err != nil {
		e.counters.invalidPackets.Inc()
		e.metrics.InvalidPackets.Inc()
		e.warnThrottled("Discarding invalid packet",
			slog.Int("size", len(data)),
			slog.String("error", err.Error()),
		)
		return
	}

	typ := h.PacketType()
	label := typ.String()
	if typ > usrp.USRP_TYPE_VOICE_ULAW {
		label = "UNKNOWN"
	}
	e.counters.packetsReceived.Inc()
	e.metrics.PacketsReceived.WithLabelValues(label).Inc()

	var (
		info       usrp.SetInfo
		hasSetInfo bool
	)
	if typ == usrp.USRP_TYPE_TEXT {
		info, err = usrp.DecodeSetInfo(data[usrp.HeaderSize:])
		hasSetInfo = err == nil && info.Tag == usrp.TLV_TAG_SET_INFO
	}

	res := e.state.record(h, hasSetInfo)
	if res.anomaly {
		e.counters.sequenceAnomalies.Inc()
		e.metrics.SequenceAnomalies.Inc()
		e.warnThrottled("USRP packet out of sequence",
			slog.Uint64("seq", uint64(h.Seq)),
			slog.Uint64("expecting_after", uint64(res.expected)),
		)
	}
	e.trackKeying(res.wasPTT, h, info, hasSetInfo)

	switch typ {
	case usrp.USRP_TYPE_VOICE:
		e.forwardVoice(data[usrp.HeaderSize:])
	case usrp.USRP_TYPE_TEXT:
		if hasSetInfo {
			e.logger.Info("Station identity",
				slog.String("callsign", info.Callsign),
				slog.Uint64("dmr_id", uint64(info.DMRID)),
				slog.Uint64("repeater_id", uint64(info.RepeaterID)),
				slog.Uint64("talkgroup", uint64(info.TalkGroup)),
				slog.Int("timeslot", int(info.Timeslot)),
				slog.Int("color_code", int(info.ColorCode)),
			)
		} else {
			e.logger.Debug("TEXT packet without SET_INFO", slog.Uint64("seq", uint64(h.Seq)))
		}
	case usrp.USRP_TYPE_DTMF, usrp.USRP_TYPE_PING, usrp.USRP_TYPE_TLV,
		usrp.USRP_TYPE_VOICE_ADPCM, usrp.USRP_TYPE_VOICE_ULAW:
		e.infoThrottled("Packet type not implemented", slog.String("type", typ.String()))
	default:
		e.logger.Debug("Unknown packet type", slog.Uint64("type", uint64(h.Type)))
	}
}

// forwardVoice writes one full frame, zero-padding a short payload.
func (e *Engine) forwardVoice(payload []byte) {
	frame := payload
	if len(frame) != usrp.VoiceFrameLen {
		frame = audio.SilenceFrame()
		copy(frame, payload)
	}
	if e.rxOver != nil {
		e.rxOver.frames++
	}
	if e.writeAudio(frame) {
		e.counters.framesForwarded.Inc()
		e.metrics.FramesForwarded.Inc()
	}
}

// trackKeying logs remote key-up and key-down edges.
func (e *Engine) trackKeying(wasPTT bool, h usrp.Header, info usrp.SetInfo, hasSetInfo bool) {
	keyed := h.IsPTT()

	if keyed && !wasPTT {
		e.rxOver = &transmission{id: uuid.New(), started: time.Now()}
		e.metrics.RemoteKeyed.Set(1)
		e.logger.Info("Remote key-up",
			slog.String("transmission", e.rxOver.id.String()),
			slog.Uint64("seq", uint64(h.Seq)),
		)
	}
	if e.rxOver != nil && hasSetInfo {
		e.rxOver.callsign = info.Callsign
	}
	if !keyed && wasPTT && e.rxOver != nil {
		duration := time.Since(e.rxOver.started)
		e.metrics.RemoteKeyed.Set(0)
		e.metrics.RemoteOverSeconds.Observe(duration.Seconds())
		e.logger.Info("Remote key-down",
			slog.String("transmission", e.rxOver.id.String()),
			slog.String("callsign", e.rxOver.callsign),
			slog.Duration("duration", duration),
			slog.Int("frames", e.rxOver.frames),
		)
		e.rxOver = nil
	}
}

// writeAudio hands one frame to the audio port. Failures are counted, never fatal.
func (e *Engine) writeAudio(frame []byte) bool {
	if _, err := e.port.Write(frame); err != nil {
		e.counters.audioWriteErrors.Inc()
		e.metrics.AudioWriteErrors.Inc()
		e.warnThrottled("Audio port write failed", slog.String("error", err.Error()))
		return false
	}
	return true
}

func (e *Engine) warnThrottled(msg string, attrs ...any) {
	if e.logLimit.Allow() {
		e.logger.Warn(msg, attrs...)
	}
}

func (e *Engine) infoThrottled(msg string, attrs ...any) {
	if e.logLimit.Allow() {
		e.logger.Info(msg, attrs...)
	}
}
