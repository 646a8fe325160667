package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.uber.org/atomic"

	"github.com/dbehnke/usrp-link/internal/transport"
	"github.com/dbehnke/usrp-link/pkg/usrp"
)

// Peer imitates the far end of a USRP link: it transmits a test pattern on a
// fixed PTT cycle and logs what it receives.
type Peer struct {
	callsign  string
	dmrID     uint32
	talkGroup uint32
	onTime    time.Duration
	offTime   time.Duration

	conn   *transport.UDPConnection
	gen    *generator
	logger *slog.Logger

	seq     uint32
	keyed   bool
	started time.Time

	packetsSent     atomic.Uint64
	packetsReceived atomic.Uint64
	failures        atomic.Uint64
}

// keyedAt reports whether the PTT cycle is in its on phase at elapsed.
func (p *Peer) keyedAt(elapsed time.Duration) bool {
	return elapsed%(p.onTime+p.offTime) < p.onTime
}

// tick produces the datagrams for one 20ms frame period.
func (p *Peer) tick(now time.Time) [][]byte {
	keyed := p.keyedAt(now.Sub(p.started))
	var out [][]byte

	switch {
	case keyed && !p.keyed:
		msg := usrp.TextMessage{
			Header: usrp.NewHeader(usrp.USRP_TYPE_TEXT, p.nextSeq()),
			Info:   usrp.NewSetInfo(p.callsign, p.dmrID, 0, p.talkGroup),
		}
		msg.Header.SetPTT(true)
		data, _ := msg.Marshal()
		out = append(out, data)
	case !keyed && p.keyed:
		out = append(out, usrp.EndOfTransmission(p.nextSeq()))
	}
	p.keyed = keyed

	if keyed {
		voice := usrp.VoiceMessage{Header: usrp.NewHeader(usrp.USRP_TYPE_VOICE, p.nextSeq())}
		voice.Header.SetPTT(true)
		voice.Header.TalkGroup = p.talkGroup
		p.gen.fill(voice.AudioData[:])
		data, _ := voice.Marshal()
		out = append(out, data)
	}
	return out
}

func (p *Peer) nextSeq() uint32 {
	p.seq++
	return p.seq
}

// transmit sends pattern frames until ctx is done.
func (p *Peer) transmit(ctx context.Context) {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if p.keyed {
				p.send(usrp.EndOfTransmission(p.nextSeq()))
			}
			return
		case now := <-ticker.C:
			for _, data := range p.tick(now) {
				p.send(data)
			}
		}
	}
}

func (p *Peer) send(data []byte) {
	if err := p.conn.Send(data); err != nil {
		p.failures.Inc()
		p.logger.Warn("Failed to send packet", slog.String("error", err.Error()))
		return
	}
	p.packetsSent.Inc()
}

// receive logs inbound packets until the connection closes.
func (p *Peer) receive() {
	buf := make([]byte, usrp.MaxPacketSize)
	for {
		n, err := p.conn.Receive(buf, time.Second)
		switch {
		case errors.Is(err, transport.ErrTimeout):
			continue
		case errors.Is(err, transport.ErrClosed):
			return
		case err != nil:
			p.failures.Inc()
			p.logger.Warn("UDP read error", slog.String("error", err.Error()))
			continue
		}
		p.packetsReceived.Inc()
		p.describe(buf[:n])
	}
}

func (p *Peer) describe(data []byte) {
	h, err := usrp.DecodeHeader(data)
	if err != nil {
		p.failures.Inc()
		p.logger.Warn("Invalid packet", slog.String("error", err.Error()))
		return
	}

	attrs := []any{
		slog.String("type", h.PacketType().String()),
		slog.Uint64("seq", uint64(h.Seq)),
		slog.Bool("ptt", h.IsPTT()),
		slog.Int("size", len(data)),
	}
	if h.PacketType() == usrp.USRP_TYPE_TEXT {
		if info, err := usrp.DecodeSetInfo(data[usrp.HeaderSize:]); err == nil {
			attrs = append(attrs, slog.String("callsign", info.Callsign), slog.Uint64("dmr_id", uint64(info.DMRID)))
		}
	}
	// Voice arrives every 20ms
	if h.PacketType() == usrp.USRP_TYPE_VOICE && h.IsPTT() {
		p.logger.Debug("Received packet", attrs...)
		return
	}
	p.logger.Info("Received packet", attrs...)
}

func (p *Peer) reportStats(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.logger.Info("Peer statistics",
				slog.Duration("uptime", time.Since(p.started).Round(time.Second)),
				slog.Uint64("packets_sent", p.packetsSent.Load()),
				slog.Uint64("packets_received", p.packetsReceived.Load()),
				slog.Uint64("errors", p.failures.Load()),
			)
		}
	}
}

// Run transmits and receives until ctx is done, then closes the socket.
func (p *Peer) Run(ctx context.Context) error {
	p.started = time.Now()
	p.logger.Info("USRP peer started",
		slog.String("callsign", p.callsign),
		slog.String("local", p.conn.LocalAddr().String()),
		slog.String("remote", p.conn.RemoteAddr().String()),
		slog.String("pattern", string(p.gen.pattern)),
	)

	done := make(chan struct{})
	go func() {
		defer close(done)
		p.receive()
	}()
	go p.reportStats(ctx, 30*time.Second)

	p.transmit(ctx)
	err := p.conn.Close()
	<-done
	return err
}

func newPeer(opts peerOptions, logger *slog.Logger) (*Peer, error) {
	gen, err := newGenerator(TestPattern(opts.pattern))
	if err != nil {
		return nil, err
	}
	conn, err := transport.NewUDPConnection(&transport.ConnectionConfig{
		InPort:     opts.listenPort,
		RemoteHost: opts.remoteAddr,
		RemotePort: opts.remotePort,
	})
	if err != nil {
		return nil, fmt.Errorf("open socket: %w", err)
	}
	return &Peer{
		callsign:  opts.callsign,
		dmrID:     opts.dmrID,
		talkGroup: opts.talkGroup,
		onTime:    opts.onTime,
		offTime:   opts.offTime,
		conn:      conn,
		gen:       gen,
		logger:    logger,
	}, nil
}
