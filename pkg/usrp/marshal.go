package usrp

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// hostOrder is the byte order the reference peers (x86 hosts running chan_usrp and
// linkbox) use for the header fields they never pass through htonl. Changing it
// breaks interoperability with those peers for TEXT/PING/TLV packet types.
var hostOrder = binary.LittleEndian

// writeHeader serializes the 32-byte header. Seq and Keyup go out in network byte
// order; Memory, TalkGroup, Type, MpxID and Reserved are written unconverted.
func writeHeader(buf *bytes.Buffer, h *Header) {
	buf.Write(h.Eye[:])
	binary.Write(buf, binary.BigEndian, h.Seq)
	binary.Write(buf, hostOrder, h.Memory)
	binary.Write(buf, binary.BigEndian, h.Keyup)
	binary.Write(buf, hostOrder, h.TalkGroup)
	binary.Write(buf, hostOrder, h.Type)
	binary.Write(buf, hostOrder, h.MpxID)
	binary.Write(buf, hostOrder, h.Reserved)
}

// MarshalBinary encodes the header in wire format.
func (h *Header) MarshalBinary() ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, HeaderSize))
	writeHeader(buf, h)
	return buf.Bytes(), nil
}

// UnmarshalBinary decodes a wire header, reversing the selective byte-order
// conversion applied by MarshalBinary.
func (h *Header) UnmarshalBinary(data []byte) error {
	if len(data) < HeaderSize {
		return fmt.Errorf("%w: %d bytes (need at least %d)", ErrInvalidPacket, len(data), HeaderSize)
	}

	copy(h.Eye[:], data[0:4])
	h.Seq = binary.BigEndian.Uint32(data[4:8])
	h.Memory = hostOrder.Uint32(data[8:12])
	h.Keyup = binary.BigEndian.Uint32(data[12:16])
	h.TalkGroup = hostOrder.Uint32(data[16:20])
	h.Type = hostOrder.Uint32(data[20:24])
	h.MpxID = hostOrder.Uint32(data[24:28])
	h.Reserved = hostOrder.Uint32(data[28:32])

	return validateHeader(h)
}

// DecodeHeader decodes and validates the header at the start of a datagram.
func DecodeHeader(data []byte) (Header, error) {
	var h Header
	err := h.UnmarshalBinary(data)
	return h, err
}

// VoiceMessage represents voice audio data (USRP_TYPE_VOICE)
type VoiceMessage struct {
	Header    Header
	AudioData [VoiceFrameSize]int16 // 160 signed 16-bit samples, little-endian
}

// Marshal serializes VoiceMessage to binary format
func (v *VoiceMessage) Marshal() ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, HeaderSize+VoiceFrameLen))
	writeHeader(buf, &v.Header)

	for _, sample := range v.AudioData {
		binary.Write(buf, binary.LittleEndian, sample)
	}

	return buf.Bytes(), nil
}

// Unmarshal deserializes binary data into VoiceMessage. A payload shorter than a
// full frame (the end-of-transmission frame carries none) leaves the remaining
// samples at zero.
func (v *VoiceMessage) Unmarshal(data []byte) error {
	if err := v.Header.UnmarshalBinary(data); err != nil {
		return err
	}

	v.AudioData = [VoiceFrameSize]int16{}
	payload := data[HeaderSize:]
	for i := 0; i < VoiceFrameSize && 2*i+1 < len(payload); i++ {
		v.AudioData[i] = int16(binary.LittleEndian.Uint16(payload[2*i:]))
	}

	return nil
}

// Validate checks VoiceMessage for consistency
func (v *VoiceMessage) Validate() error {
	if v.Header.PacketType() != USRP_TYPE_VOICE {
		return fmt.Errorf("invalid packet type for voice message: %d", v.Header.Type)
	}
	return nil
}

// EndOfTransmission builds the header-only VOICE frame with PTT off that tells
// the peer a transmission is over.
func EndOfTransmission(seq uint32) []byte {
	h := NewHeader(USRP_TYPE_VOICE, seq)
	data, _ := h.MarshalBinary()
	return data
}

// TextMessage represents a TEXT packet carrying SET_INFO metadata
type TextMessage struct {
	Header Header
	Info   SetInfo
}

// Marshal serializes TextMessage to binary format
func (t *TextMessage) Marshal() ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, HeaderSize+SetInfoSize))
	writeHeader(buf, &t.Header)
	buf.Write(EncodeSetInfo(t.Info))
	return buf.Bytes(), nil
}

// Unmarshal deserializes binary data into TextMessage
func (t *TextMessage) Unmarshal(data []byte) error {
	if err := t.Header.UnmarshalBinary(data); err != nil {
		return err
	}

	info, err := DecodeSetInfo(data[HeaderSize:])
	if err != nil {
		return err
	}
	t.Info = info

	return nil
}

// Validate checks TextMessage for consistency
func (t *TextMessage) Validate() error {
	if t.Header.PacketType() != USRP_TYPE_TEXT {
		return fmt.Errorf("invalid packet type for text message: %d", t.Header.Type)
	}
	if t.Info.Tag != TLV_TAG_SET_INFO {
		return fmt.Errorf("unsupported TLV tag for text message: %d", t.Info.Tag)
	}
	return nil
}
