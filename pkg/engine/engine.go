// Package engine implements a USRP protocol engine: it bridges one remote USRP
// peer (one inbound UDP port, one outbound destination) to a local audio Port.
//
// A background receive loop decodes inbound datagrams, tracks remote keying and
// sequencing, and feeds the audio port one 20ms frame per cycle, writing silence
// when the network is quiet. The caller drives the transmit side with KeyTx and
// Write, and captures local audio with Read.
//
// KeyTx, Write and Read are not synchronized with each other; a caller must not
// invoke them concurrently. PollCOS, LastHeader, History and Stats are safe to
// call from any goroutine.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/atomic"
	"golang.org/x/time/rate"

	"github.com/dbehnke/usrp-link/internal/logging"
	"github.com/dbehnke/usrp-link/internal/metrics"
	"github.com/dbehnke/usrp-link/internal/transport"
	"github.com/dbehnke/usrp-link/pkg/audio"
	"github.com/dbehnke/usrp-link/pkg/usrp"
)

// Default receive wait intervals.
const (
	DefaultIdleInterval   = 20 * time.Millisecond
	DefaultActiveInterval = 500 * time.Millisecond
)

// Identity is announced in the SET_INFO block at every key-up.
type Identity struct {
	Callsign   string
	DMRID      uint32
	RepeaterID uint32
	TalkGroup  uint32
}

// Config holds everything New needs to start an engine.
type Config struct {
	Node        string // node identifier, used in the default pipe name
	AudioDevice string // HOST:OUTPORT:INPORT, optionally prefixed with USRP/
	BindAddress string // local address for the inbound socket, empty for all
	PipeDir     string // directory of the default named pipes
	AudioPort   string // device or FIFO path used instead of the named pipes
	Identity    Identity

	IdleInterval   time.Duration // receive wait while the peer is unkeyed
	ActiveInterval time.Duration // receive wait while the peer is keyed
}

// Conn is the datagram transport an engine runs over.
type Conn interface {
	Send(data []byte) error
	// Receive returns ErrReceiveTimeout when nothing arrived within timeout
	// and ErrConnClosed once Close was called.
	Receive(buf []byte, timeout time.Duration) (int, error)
	LocalAddr() net.Addr
	Close() error
}

// Option customizes an engine.
type Option func(*options)

type options struct {
	logger   *slog.Logger
	registry prometheus.Registerer
	metrics  *metrics.Metrics
	port     audio.Port
}

// WithLogger sets the engine logger. Engines log nothing by default.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithRegisterer registers the engine metrics with reg. Without it the engine
// keeps its metrics in a private registry.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registry = reg }
}

// WithAudioPort uses port instead of opening Config.AudioPort or the default
// named pipes. The engine takes ownership and closes it on Shutdown.
func WithAudioPort(port audio.Port) Option {
	return func(o *options) { o.port = port }
}

// Engine is a running USRP link.
type Engine struct {
	cfg     Config
	conn    Conn
	port    audio.Port
	logger  *slog.Logger
	metrics *metrics.Metrics

	state    receiveState
	counters counters
	tx       transmitter

	// receive loop only
	rxOver   *transmission
	logLimit *rate.Limiter

	// caller side of Read
	readBuf  []byte
	carry    byte
	hasCarry bool

	closed       atomic.Bool
	cancel       context.CancelFunc
	done         chan struct{}
	err          error // set by the receive loop before done is closed
	shutdownOnce sync.Once
	shutdownErr  error
}

// New parses the audio device, resolves the peer, binds the inbound socket,
// opens the audio port and starts the receive loop. Failures are *InitError.
//
// The audio port is the one given by WithAudioPort, else the device at
// cfg.AudioPort, else a pair of named pipes under cfg.PipeDir.
func New(cfg Config, opts ...Option) (*Engine, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	dev, err := ParseDevice(cfg.AudioDevice)
	if err != nil {
		return nil, initError("parse audio device", ErrConfig, err)
	}

	conn, err := transport.NewUDPConnection(&transport.ConnectionConfig{
		BindAddress: cfg.BindAddress,
		InPort:      dev.InPort,
		RemoteHost:  dev.Host,
		RemotePort:  dev.OutPort,
		ReadBuffer:  64 * 1024,
	})
	switch {
	case errors.Is(err, transport.ErrResolve):
		return nil, initError("resolve "+dev.Host, ErrHostResolution, err)
	case err != nil:
		return nil, initError("bind inbound socket", ErrSocket, err)
	}

	port := o.port
	var paths []string
	if port == nil {
		var fp *audio.FilePort
		if cfg.AudioPort != "" {
			fp, err = audio.OpenDevice(cfg.AudioPort)
		} else {
			dir := cfg.PipeDir
			if dir == "" {
				dir = os.TempDir()
			}
			fp, err = audio.OpenPipes(audio.PipeBase(dir, cfg.Node, dev.InPort, dev.OutPort))
		}
		if err != nil {
			conn.Close()
			return nil, initError("open audio port", ErrAudioDevice, err)
		}
		port = fp
		paths = fp.Paths()
	}

	e := newEngine(cfg, conn, port, o)
	e.logger.Info("USRP link started",
		slog.String("node", cfg.Node),
		slog.String("remote", dev.Host),
		slog.Int("out_port", dev.OutPort),
		slog.String("local", conn.LocalAddr().String()),
		slog.Any("audio_paths", paths),
	)
	e.start()
	return e, nil
}

// newEngine wires an engine without starting the receive loop.
func newEngine(cfg Config, conn Conn, port audio.Port, o options) *Engine {
	if cfg.IdleInterval <= 0 {
		cfg.IdleInterval = DefaultIdleInterval
	}
	if cfg.ActiveInterval <= 0 {
		cfg.ActiveInterval = DefaultActiveInterval
	}
	if o.logger == nil {
		o.logger = logging.Discard()
	}
	if o.metrics == nil {
		if o.registry == nil {
			o.registry = prometheus.NewRegistry()
		}
		o.metrics = metrics.NewMetrics(o.registry)
	}

	return &Engine{
		cfg:      cfg,
		conn:     conn,
		port:     port,
		logger:   o.logger,
		metrics:  o.metrics,
		tx:       transmitter{ring: audio.NewDefaultVoiceRing()},
		logLimit: rate.NewLimiter(rate.Every(time.Second), 10),
		done:     make(chan struct{}),
	}
}

func (e *Engine) start() {
	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	go e.receiveLoop(ctx)
}

// Done is closed when the receive loop has exited, either after Shutdown or
// because the connection failed.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

// Err returns the error that stopped the receive loop, or nil while it runs or
// after a clean stop. It is only meaningful once Done is closed.
func (e *Engine) Err() error {
	select {
	case <-e.done:
		return e.err
	default:
		return nil
	}
}

// PollCOS reports whether the remote peer is currently transmitting.
func (e *Engine) PollCOS() bool {
	return e.state.ptt()
}

// LastHeader returns the most recent valid inbound header.
func (e *Engine) LastHeader() usrp.Header {
	return e.state.lastHeader()
}

// History returns up to HistorySize recent inbound headers, oldest first.
func (e *Engine) History() []usrp.Header {
	return e.state.snapshot()
}

// Stats returns the engine counters.
func (e *Engine) Stats() Stats {
	return e.counters.snapshot()
}

// LocalAddr returns the bound inbound address.
func (e *Engine) LocalAddr() net.Addr {
	return e.conn.LocalAddr()
}

// Read copies whatever local audio is ready into out and returns the number of
// samples. It never blocks; 0 means nothing was ready. A trailing odd byte is
// kept for the next call.
func (e *Engine) Read(out []int16) (int, error) {
	if e.closed.Load() {
		return 0, ErrClosed
	}
	if len(out) == 0 {
		return 0, nil
	}

	size := len(out) * 2
	if cap(e.readBuf) < size {
		e.readBuf = make([]byte, size)
	}
	buf := e.readBuf[:size]

	n := 0
	if e.hasCarry {
		buf[0] = e.carry
		n = 1
	}
	m, err := e.port.TryRead(buf[n:])
	n += m

	samples := audio.BytesToSamples(buf[:n])
	copy(out, samples)

	e.hasCarry = n%2 == 1
	if e.hasCarry {
		e.carry = buf[n-1]
	}
	return len(samples), err
}

// Shutdown stops the receive loop, waits for it to exit, then closes the socket
// and the audio port. Later calls return the first result.
func (e *Engine) Shutdown() error {
	e.shutdownOnce.Do(func() {
		e.closed.Store(true)
		if e.cancel != nil {
			e.cancel()
			<-e.done
		}
		if e.tx.keyed {
			e.metrics.LocalKeyed.Set(0)
		}
		e.shutdownErr = errors.Join(e.conn.Close(), e.port.Close())
		e.logger.Info("USRP link stopped", slog.Any("stats", e.counters.snapshot()))
	})
	return e.shutdownErr
}
