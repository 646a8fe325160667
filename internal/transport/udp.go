// Package transport owns the UDP socket of a USRP link: one bound inbound port
// and one resolved outbound peer.
package transport

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"
)

var (
	// ErrTimeout is returned by Receive when no datagram arrived in time.
	ErrTimeout = errors.New("receive timeout")
	// ErrResolve wraps remote host resolution failures.
	ErrResolve = errors.New("failed to resolve remote address")
	// ErrBind wraps socket creation and bind failures.
	ErrBind = errors.New("failed to bind UDP socket")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("connection is closed")
)

// ConnectionConfig holds configuration for UDP connections
type ConnectionConfig struct {
	BindAddress string // local IP to bind, empty for all interfaces
	InPort      int    // inbound port, 0 picks an ephemeral port
	RemoteHost  string
	RemotePort  int
	ReadBuffer  int
}

// DefaultConfig returns a default connection configuration
func DefaultConfig() *ConnectionConfig {
	return &ConnectionConfig{
		RemoteHost: "127.0.0.1",
		ReadBuffer: 64 * 1024,
	}
}

// UDPConnection sends to a fixed peer and receives on its own bound port.
type UDPConnection struct {
	conn       *net.UDPConn
	remoteAddr *net.UDPAddr

	closed     bool
	closeMutex sync.Mutex
}

// NewUDPConnection resolves the remote peer and binds the inbound socket.
// Failures wrap ErrResolve or ErrBind.
func NewUDPConnection(config *ConnectionConfig) (*UDPConnection, error) {
	if config == nil {
		config = DefaultConfig()
	}

	remote := net.JoinHostPort(config.RemoteHost, strconv.Itoa(config.RemotePort))
	remoteAddr, err := net.ResolveUDPAddr("udp4", remote)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrResolve, remote, err)
	}

	local := net.JoinHostPort(config.BindAddress, strconv.Itoa(config.InPort))
	localAddr, err := net.ResolveUDPAddr("udp4", local)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrBind, local, err)
	}

	conn, err := net.ListenUDP("udp4", localAddr)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrBind, local, err)
	}

	if config.ReadBuffer > 0 {
		// Best effort, the kernel may clamp it
		_ = conn.SetReadBuffer(config.ReadBuffer)
	}

	return &UDPConnection{conn: conn, remoteAddr: remoteAddr}, nil
}

// Send writes one datagram to the remote peer.
func (uc *UDPConnection) Send(data []byte) error {
	if uc.isClosed() {
		return ErrClosed
	}
	if _, err := uc.conn.WriteToUDP(data, uc.remoteAddr); err != nil {
		return fmt.Errorf("failed to send UDP packet: %w", err)
	}
	return nil
}

// Receive waits at most timeout for one datagram. It returns ErrTimeout when
// the wait elapses with nothing read.
func (uc *UDPConnection) Receive(buf []byte, timeout time.Duration) (int, error) {
	if uc.isClosed() {
		return 0, ErrClosed
	}
	if err := uc.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return 0, fmt.Errorf("failed to set read deadline: %w", err)
	}

	n, _, err := uc.conn.ReadFromUDP(buf)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return 0, ErrTimeout
		}
		if errors.Is(err, net.ErrClosed) {
			return 0, ErrClosed
		}
		return 0, fmt.Errorf("failed to read UDP packet: %w", err)
	}
	return n, nil
}

func (uc *UDPConnection) isClosed() bool {
	uc.closeMutex.Lock()
	defer uc.closeMutex.Unlock()
	return uc.closed
}

// Close closes the UDP connection. Calling it again is a no-op.
func (uc *UDPConnection) Close() error {
	uc.closeMutex.Lock()
	defer uc.closeMutex.Unlock()

	if uc.closed {
		return nil
	}
	uc.closed = true
	return uc.conn.Close()
}

// LocalAddr returns the bound inbound address
func (uc *UDPConnection) LocalAddr() net.Addr {
	return uc.conn.LocalAddr()
}

// RemoteAddr returns the remote network address
func (uc *UDPConnection) RemoteAddr() net.Addr {
	return uc.remoteAddr
}
