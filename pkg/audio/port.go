package audio

import (
	"errors"
	"io"
)

// ErrWouldBlock is returned by a Port write when the consumer is not draining it.
var ErrWouldBlock = errors.New("audio port would block")

// Port is the local audio transport a link feeds received frames into and
// captures outbound audio from.
type Port interface {
	// Write delivers PCM bytes to the local consumer without blocking.
	io.Writer
	// TryRead reads whatever PCM bytes are ready. It never blocks and returns
	// 0, nil when nothing is available.
	TryRead(p []byte) (int, error)
	io.Closer
}
