//go:build unix

package audio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sys/unix"
)

// FilePort is a Port backed by file descriptors opened non-blocking: either a
// single character device used in both directions or a pair of named pipes.
type FilePort struct {
	rfd, wfd  int
	paths     []string
	closeOnce sync.Once
	closeErr  error
}

// PipeBase returns the base path of the named pipes for a node and port pair.
func PipeBase(dir, node string, inPort, outPort int) string {
	return filepath.Join(dir, fmt.Sprintf("usrp_pipe_%s_%d_%d", node, inPort, outPort))
}

// OpenPipes creates (if needed) and opens base+".rx", which receives audio from
// the link, and base+".tx", from which the link captures audio to transmit. Both
// are opened read-write so neither side sees EOF or ENXIO while the peer process
// is absent.
func OpenPipes(base string) (*FilePort, error) {
	rxPath, txPath := base+".rx", base+".tx"

	for _, path := range []string{rxPath, txPath} {
		if err := makeFifo(path); err != nil {
			return nil, err
		}
	}

	wfd, err := openNonblock(rxPath)
	if err != nil {
		return nil, err
	}
	rfd, err := openNonblock(txPath)
	if err != nil {
		unix.Close(wfd)
		return nil, err
	}

	return &FilePort{rfd: rfd, wfd: wfd, paths: []string{rxPath, txPath}}, nil
}

// OpenDevice opens a character device (or any pollable file) used for both
// directions.
func OpenDevice(path string) (*FilePort, error) {
	fd, err := openNonblock(path)
	if err != nil {
		return nil, err
	}
	return &FilePort{rfd: fd, wfd: fd, paths: []string{path}}, nil
}

func makeFifo(path string) error {
	if err := unix.Mkfifo(path, 0666); err != nil && !errors.Is(err, unix.EEXIST) {
		return fmt.Errorf("failed to create pipe %s: %w", path, err)
	}
	// mkfifo honours the umask
	if err := os.Chmod(path, 0666); err != nil {
		return fmt.Errorf("failed to chmod pipe %s: %w", path, err)
	}
	return nil
}

func openNonblock(path string) (int, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return -1, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return fd, nil
}

// Paths returns the filesystem paths backing the port.
func (p *FilePort) Paths() []string {
	return p.paths
}

// Write writes PCM bytes, returning ErrWouldBlock when the consumer is full.
func (p *FilePort) Write(data []byte) (int, error) {
	written := 0
	for written < len(data) {
		n, err := unix.Write(p.wfd, data[written:])
		if n > 0 {
			written += n
		}
		switch {
		case err == nil:
		case errors.Is(err, unix.EINTR):
		case errors.Is(err, unix.EAGAIN):
			return written, ErrWouldBlock
		default:
			return written, err
		}
	}
	return written, nil
}

// TryRead polls with a zero timeout and reads only when data is ready.
func (p *FilePort) TryRead(buf []byte) (int, error) {
	fds := []unix.PollFd{{Fd: int32(p.rfd), Events: unix.POLLIN}}
	ready, err := unix.Poll(fds, 0)
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return 0, nil
		}
		return 0, fmt.Errorf("poll audio port: %w", err)
	}
	if ready <= 0 || fds[0].Revents&unix.POLLIN == 0 {
		return 0, nil
	}

	n, err := unix.Read(p.rfd, buf)
	if err != nil {
		if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
			return 0, nil
		}
		return 0, fmt.Errorf("read audio port: %w", err)
	}
	return n, nil
}

// Close releases the descriptors. The pipes stay on disk for the consumer.
func (p *FilePort) Close() error {
	p.closeOnce.Do(func() {
		p.closeErr = unix.Close(p.rfd)
		if p.wfd != p.rfd {
			p.closeErr = errors.Join(p.closeErr, unix.Close(p.wfd))
		}
	})
	return p.closeErr
}
