//go:build !unix

package audio

import (
	"errors"
	"fmt"
	"path/filepath"
)

var errUnsupported = errors.New("named pipes and devices require a unix system")

// FilePort is unavailable on this platform; use a custom Port instead.
type FilePort struct{}

// PipeBase returns the base path of the named pipes for a node and port pair.
func PipeBase(dir, node string, inPort, outPort int) string {
	return filepath.Join(dir, fmt.Sprintf("usrp_pipe_%s_%d_%d", node, inPort, outPort))
}

func OpenPipes(base string) (*FilePort, error)  { return nil, errUnsupported }
func OpenDevice(path string) (*FilePort, error) { return nil, errUnsupported }

func (p *FilePort) Paths() []string                 { return nil }
func (p *FilePort) Write(data []byte) (int, error)  { return 0, errUnsupported }
func (p *FilePort) TryRead(buf []byte) (int, error) { return 0, errUnsupported }
func (p *FilePort) Close() error                    { return nil }
