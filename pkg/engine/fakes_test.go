package engine

import (
	"bytes"
	"errors"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dbehnke/usrp-link/internal/logging"
	"github.com/dbehnke/usrp-link/internal/metrics"
	"github.com/dbehnke/usrp-link/internal/transport"
	"github.com/dbehnke/usrp-link/pkg/usrp"
)

// fakeConn replays scripted datagrams. A nil entry, or an empty script, is a
// receive timeout.
type fakeConn struct {
	mu       sync.Mutex
	inbound  [][]byte
	timeouts []time.Duration
	sent     [][]byte
	sendErr  error
	recvErr  error
	closed   bool
}

func (c *fakeConn) queue(pkts ...[]byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inbound = append(c.inbound, pkts...)
}

func (c *fakeConn) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.sent = append(c.sent, append([]byte(nil), data...))
	return nil
}

func (c *fakeConn) Receive(buf []byte, timeout time.Duration) (int, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return 0, transport.ErrClosed
	}
	if c.recvErr != nil {
		c.mu.Unlock()
		return 0, c.recvErr
	}
	c.timeouts = append(c.timeouts, timeout)
	if len(c.inbound) == 0 {
		c.mu.Unlock()
		time.Sleep(time.Millisecond)
		return 0, transport.ErrTimeout
	}
	pkt := c.inbound[0]
	c.inbound = c.inbound[1:]
	c.mu.Unlock()

	if pkt == nil {
		return 0, transport.ErrTimeout
	}
	return copy(buf, pkt), nil
}

func (c *fakeConn) LocalAddr() net.Addr {
	return &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 34001}
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) sentPackets() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.sent...)
}

func (c *fakeConn) requestedTimeouts() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.timeouts...)
}

// fakePort records frames written by the engine and serves input to Read.
type fakePort struct {
	mu       sync.Mutex
	written  [][]byte
	input    bytes.Buffer
	writeErr error
	closed   int
}

func (p *fakePort) Write(data []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.writeErr != nil {
		return 0, p.writeErr
	}
	p.written = append(p.written, append([]byte(nil), data...))
	return len(data), nil
}

func (p *fakePort) TryRead(buf []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n, err := p.input.Read(buf)
	if errors.Is(err, io.EOF) {
		return 0, nil
	}
	return n, err
}

func (p *fakePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed++
	return nil
}

func (p *fakePort) feed(data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.input.Write(data)
}

func (p *fakePort) frames() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([][]byte(nil), p.written...)
}

type testEngine struct {
	*Engine
	conn *fakeConn
	port *fakePort
	logs *bytes.Buffer
	buf  []byte
}

func newTestEngine(t *testing.T) *testEngine {
	t.Helper()

	conn := &fakeConn{}
	port := &fakePort{}
	logs := &bytes.Buffer{}
	cfg := Config{
		Node:     "1999",
		Identity: Identity{Callsign: "N0CALL", DMRID: 3120001, RepeaterID: 312000, TalkGroup: 91},
	}
	e := newEngine(cfg, conn, port, options{
		logger:  logging.NewWithWriter(logging.Config{Level: "debug"}, logs),
		metrics: metrics.NewMetrics(prometheus.NewRegistry()),
	})
	return &testEngine{Engine: e, conn: conn, port: port, logs: logs, buf: make([]byte, usrp.MaxPacketSize)}
}

// cycle runs one receive cycle synchronously.
func (te *testEngine) cycle(t *testing.T) {
	t.Helper()
	if err := te.receiveOnce(te.buf, make([]byte, usrp.VoiceFrameLen)); err != nil {
		t.Fatalf("receiveOnce() error = %v", err)
	}
}

func voicePacket(seq uint32, ptt bool, fill int16) []byte {
	msg := usrp.VoiceMessage{Header: usrp.NewHeader(usrp.USRP_TYPE_VOICE, seq)}
	msg.Header.SetPTT(ptt)
	for i := range msg.AudioData {
		msg.AudioData[i] = fill
	}
	data, _ := msg.Marshal()
	return data
}

func setInfoPacket(seq uint32, callsign string) []byte {
	msg := usrp.TextMessage{
		Header: usrp.NewHeader(usrp.USRP_TYPE_TEXT, seq),
		Info:   usrp.NewSetInfo(callsign, 1234567, 0, 9),
	}
	msg.Header.SetPTT(true)
	data, _ := msg.Marshal()
	return data
}

func headerPacket(typ usrp.PacketType, seq uint32) []byte {
	h := usrp.NewHeader(typ, seq)
	data, _ := h.MarshalBinary()
	return data
}
