// Package usrp provides the wire codec for USRP (Universal Software Radio Protocol)
// packets used by amateur radio linking software to move PCM voice, keying and
// station metadata over UDP.
//
// The header layout follows AllStarLink's chan_usrp.c. Only the sequence number and
// the PTT flag are converted to network byte order; see MarshalBinary for details.
package usrp

import (
	"errors"
	"fmt"
)

// Protocol constants
const (
	USRPMagic      = "USRP" // 4-byte magic string
	HeaderSize     = 32     // Fixed 32-byte header
	VoiceFrameSize = 160    // 160 samples per voice frame (20ms at 8kHz)
	VoiceFrameLen  = VoiceFrameSize * 2
	MaxPacketSize  = 1024 // Largest datagram the link reads or writes
)

// ErrInvalidPacket is returned for datagrams that are too short or carry a bad magic.
var ErrInvalidPacket = errors.New("invalid USRP packet")

// PacketType defines the type of USRP packet
type PacketType uint32

const (
	USRP_TYPE_VOICE       PacketType = 0 // Voice audio data
	USRP_TYPE_DTMF        PacketType = 1 // DTMF signaling
	USRP_TYPE_TEXT        PacketType = 2 // Text/metadata
	USRP_TYPE_PING        PacketType = 3 // Ping/keepalive
	USRP_TYPE_TLV         PacketType = 4 // TLV (Type-Length-Value) data
	USRP_TYPE_VOICE_ADPCM PacketType = 5 // ADPCM voice
	USRP_TYPE_VOICE_ULAW  PacketType = 6 // μ-law voice
)

func (t PacketType) String() string {
	switch t {
	case USRP_TYPE_VOICE:
		return "VOICE"
	case USRP_TYPE_DTMF:
		return "DTMF"
	case USRP_TYPE_TEXT:
		return "TEXT"
	case USRP_TYPE_PING:
		return "PING"
	case USRP_TYPE_TLV:
		return "TLV"
	case USRP_TYPE_VOICE_ADPCM:
		return "VOICE_ADPCM"
	case USRP_TYPE_VOICE_ULAW:
		return "VOICE_ULAW"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint32(t))
	}
}

// TLVTag identifies the metadata carried in a TEXT packet
type TLVTag uint32

const (
	TLV_TAG_BEGIN_TX   TLVTag = 0
	TLV_TAG_AMBE       TLVTag = 1
	TLV_TAG_END_TX     TLVTag = 2
	TLV_TAG_TG_TUNE    TLVTag = 3
	TLV_TAG_PLAY_AMBE  TLVTag = 4
	TLV_TAG_REMOTE_CMD TLVTag = 5
	TLV_TAG_AMBE_49    TLVTag = 6
	TLV_TAG_AMBE_72    TLVTag = 7
	TLV_TAG_SET_INFO   TLVTag = 8 // Station identity
	TLV_TAG_IMBE       TLVTag = 9
	TLV_TAG_DSAMBE     TLVTag = 10
	TLV_TAG_FILE_XFER  TLVTag = 11
)

// Header represents the USRP packet header (32 bytes)
type Header struct {
	Eye       [4]byte // "USRP" magic string
	Seq       uint32  // Sequence counter
	Memory    uint32  // Memory ID or zero (default)
	Keyup     uint32  // PTT state (1 = ON, 0 = OFF)
	TalkGroup uint32  // Trunk TG ID
	Type      uint32  // Packet type
	MpxID     uint32  // Future use
	Reserved  uint32  // Future use
}

// validateHeader checks header integrity
func validateHeader(h *Header) error {
	if string(h.Eye[:]) != USRPMagic {
		return fmt.Errorf("%w: bad magic %q", ErrInvalidPacket, h.Eye[:])
	}
	return nil
}

// NewHeader creates a new USRP header with default values
func NewHeader(packetType PacketType, seq uint32) Header {
	h := Header{
		Seq:  seq,
		Type: uint32(packetType),
	}
	copy(h.Eye[:], USRPMagic)
	return h
}

// SetPTT sets the PTT (Push-To-Talk) state
func (h *Header) SetPTT(on bool) {
	if on {
		h.Keyup = 1
	} else {
		h.Keyup = 0
	}
}

// IsPTT returns true if PTT is active
func (h *Header) IsPTT() bool {
	return h.Keyup != 0
}

// PacketType returns the header's type field as a PacketType
func (h *Header) PacketType() PacketType {
	return PacketType(h.Type)
}
