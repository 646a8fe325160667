package engine

import (
	"errors"
	"fmt"

	"github.com/dbehnke/usrp-link/internal/transport"
)

// Kinds of InitError. Match them with errors.Is.
var (
	ErrConfig         = errors.New("invalid configuration")
	ErrHostResolution = errors.New("host resolution failed")
	ErrSocket         = errors.New("socket error")
	ErrAudioDevice    = errors.New("audio device error")
)

// ErrClosed is returned by operations on an engine after Shutdown.
var ErrClosed = errors.New("engine is shut down")

// Errors a Conn reports from Receive. ErrReceiveTimeout means nothing arrived in
// time; ErrConnClosed means the connection was closed and the loop should stop.
var (
	ErrReceiveTimeout = transport.ErrTimeout
	ErrConnClosed     = transport.ErrClosed
)

// InitError reports why New could not start an engine.
type InitError struct {
	Op   string // step that failed
	Kind error  // one of ErrConfig, ErrHostResolution, ErrSocket, ErrAudioDevice
	Err  error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *InitError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

func initError(op string, kind, err error) error {
	return &InitError{Op: op, Kind: kind, Err: err}
}
