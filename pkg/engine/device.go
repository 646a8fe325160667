package engine

import (
	"fmt"
	"strconv"
	"strings"
)

// Device is a parsed audio-device specifier naming the remote peer and the
// UDP port pair of a link.
type Device struct {
	Host    string
	OutPort int // remote port datagrams are sent to
	InPort  int // local port datagrams are received on
}

func (d Device) String() string {
	return fmt.Sprintf("%s:%d:%d", d.Host, d.OutPort, d.InPort)
}

// ParseDevice parses "HOST:OUTPORT:INPORT", optionally prefixed with "USRP/".
func ParseDevice(spec string) (Device, error) {
	s := strings.TrimPrefix(spec, "USRP/")

	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return Device{}, fmt.Errorf("audio device %q must have the form HOST:OUTPORT:INPORT", spec)
	}
	if parts[0] == "" {
		return Device{}, fmt.Errorf("audio device %q has an empty host", spec)
	}

	out, err := parsePort(parts[1])
	if err != nil {
		return Device{}, fmt.Errorf("audio device %q output port: %w", spec, err)
	}
	in, err := parsePort(parts[2])
	if err != nil {
		return Device{}, fmt.Errorf("audio device %q input port: %w", spec, err)
	}

	return Device{Host: parts[0], OutPort: out, InPort: in}, nil
}

func parsePort(s string) (int, error) {
	port, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("port must be a number, got %q", s)
	}
	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	return port, nil
}
