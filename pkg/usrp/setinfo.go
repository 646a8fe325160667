package usrp

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// SET_INFO block layout following the header of a TEXT packet.
const (
	CallsignSize = 16
	SetInfoSize  = 4 + 4 + CallsignSize + 4 + 4 + 4 + 1 + 1

	// setInfoFixedLen is the part of TLVLength that does not depend on the callsign.
	setInfoFixedLen = 13

	offTag        = 0
	offLength     = 4
	offCallsign   = 8
	offDMRID      = offCallsign + CallsignSize
	offRepeaterID = offDMRID + 4
	offTalkGroup  = offRepeaterID + 4
	offTimeslot   = offTalkGroup + 4
	offColorCode  = offTimeslot + 1
)

// SetInfo is the station identity announced at the start of a transmission.
type SetInfo struct {
	Tag        TLVTag
	Length     uint32
	Callsign   string
	DMRID      uint32 // 24-bit
	RepeaterID uint32
	TalkGroup  uint32 // 24-bit
	Timeslot   uint8
	ColorCode  uint8
}

// NewSetInfo builds a SET_INFO record for the given identity.
func NewSetInfo(callsign string, dmrID, repeaterID, talkGroup uint32) SetInfo {
	if len(callsign) > CallsignSize-1 {
		callsign = callsign[:CallsignSize-1]
	}
	return SetInfo{
		Tag:        TLV_TAG_SET_INFO,
		Length:     uint32(setInfoFixedLen + len(callsign)),
		Callsign:   callsign,
		DMRID:      dmrID,
		RepeaterID: repeaterID,
		TalkGroup:  talkGroup,
	}
}

// EncodeSetInfo serializes the SET_INFO block. Tag and Length are host order like
// the header's unconverted fields. The 24-bit DMR ID and talkgroup are shifted into
// the top three bytes and sent big-endian; the repeater ID is plain big-endian.
func EncodeSetInfo(info SetInfo) []byte {
	out := make([]byte, SetInfoSize)

	hostOrder.PutUint32(out[offTag:], uint32(info.Tag))
	hostOrder.PutUint32(out[offLength:], info.Length)
	copy(out[offCallsign:offCallsign+CallsignSize-1], info.Callsign)
	binary.BigEndian.PutUint32(out[offDMRID:], (info.DMRID&0xFFFFFF)<<8)
	binary.BigEndian.PutUint32(out[offRepeaterID:], info.RepeaterID)
	binary.BigEndian.PutUint32(out[offTalkGroup:], (info.TalkGroup&0xFFFFFF)<<8)
	out[offTimeslot] = info.Timeslot
	out[offColorCode] = info.ColorCode

	return out
}

// DecodeSetInfo parses a SET_INFO block. Linkbox-style peers send only
// HeaderSize+Length bytes, so a truncated block is zero-extended.
func DecodeSetInfo(data []byte) (SetInfo, error) {
	if len(data) < offCallsign {
		return SetInfo{}, fmt.Errorf("%w: TLV block %d bytes (need at least %d)", ErrInvalidPacket, len(data), offCallsign)
	}

	block := make([]byte, SetInfoSize)
	copy(block, data)

	callsign := block[offCallsign : offCallsign+CallsignSize]
	if i := bytes.IndexByte(callsign, 0); i >= 0 {
		callsign = callsign[:i]
	}

	return SetInfo{
		Tag:        TLVTag(hostOrder.Uint32(block[offTag:])),
		Length:     hostOrder.Uint32(block[offLength:]),
		Callsign:   string(callsign),
		DMRID:      binary.BigEndian.Uint32(block[offDMRID:]) >> 8,
		RepeaterID: binary.BigEndian.Uint32(block[offRepeaterID:]),
		TalkGroup:  binary.BigEndian.Uint32(block[offTalkGroup:]) >> 8,
		Timeslot:   block[offTimeslot],
		ColorCode:  block[offColorCode],
	}, nil
}
