package usrp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

func TestVoiceMessage_MarshalUnmarshal(t *testing.T) {
	original := &VoiceMessage{
		Header: NewHeader(USRP_TYPE_VOICE, 1234),
	}
	original.Header.SetPTT(true)
	original.Header.TalkGroup = 5678

	// Fill audio data with test pattern
	for i := range original.AudioData {
		original.AudioData[i] = int16(i*200 - 16000)
	}

	data, err := original.Marshal()
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}

	// Should be header (32 bytes) + audio (320 bytes) = 352 bytes
	expectedSize := HeaderSize + VoiceFrameSize*2
	if len(data) != expectedSize {
		t.Errorf("Unexpected data size: got %d, want %d", len(data), expectedSize)
	}

	decoded := &VoiceMessage{}
	if err := decoded.Unmarshal(data); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}

	if decoded.Header != original.Header {
		t.Errorf("Header mismatch: got %+v, want %+v", decoded.Header, original.Header)
	}

	for i, sample := range decoded.AudioData {
		if sample != original.AudioData[i] {
			t.Errorf("AudioData[%d] mismatch: got %d, want %d", i, sample, original.AudioData[i])
		}
	}
}

func TestHeaderWireLayout(t *testing.T) {
	h := NewHeader(USRP_TYPE_TEXT, 0x01020304)
	h.SetPTT(true)
	h.TalkGroup = 0x0A0B0C0D
	h.MpxID = 7
	h.Reserved = 9

	data, err := h.MarshalBinary()
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}
	if len(data) != HeaderSize {
		t.Fatalf("Unexpected header size: got %d, want %d", len(data), HeaderSize)
	}

	if string(data[0:4]) != USRPMagic {
		t.Errorf("Magic mismatch: got %q", data[0:4])
	}
	// Sequence and PTT are the only network-order fields
	if got := binary.BigEndian.Uint32(data[4:8]); got != 0x01020304 {
		t.Errorf("Seq not big-endian: got 0x%08x", got)
	}
	if got := binary.BigEndian.Uint32(data[12:16]); got != 1 {
		t.Errorf("Keyup not big-endian: got %d", got)
	}
	// The rest stay in host order
	if got := binary.LittleEndian.Uint32(data[16:20]); got != 0x0A0B0C0D {
		t.Errorf("TalkGroup not host order: got 0x%08x", got)
	}
	if got := binary.LittleEndian.Uint32(data[20:24]); got != uint32(USRP_TYPE_TEXT) {
		t.Errorf("Type not host order: got %d", got)
	}
	if got := binary.LittleEndian.Uint32(data[24:28]); got != 7 {
		t.Errorf("MpxID not host order: got %d", got)
	}
	if got := binary.LittleEndian.Uint32(data[28:32]); got != 9 {
		t.Errorf("Reserved not host order: got %d", got)
	}
}

func TestHeaderRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		seq  uint32
		ptt  bool
		tg   uint32
		typ  PacketType
	}{
		{"zero", 0, false, 0, USRP_TYPE_VOICE},
		{"keyed voice", 42, true, 91, USRP_TYPE_VOICE},
		{"max sequence", 0xFFFFFFFF, true, 0xFFFFFFFF, USRP_TYPE_TEXT},
		{"ping", 17, false, 3100, USRP_TYPE_PING},
		{"ulaw", 1 << 31, true, 1, USRP_TYPE_VOICE_ULAW},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHeader(tt.typ, tt.seq)
			h.SetPTT(tt.ptt)
			h.TalkGroup = tt.tg

			data, _ := h.MarshalBinary()
			decoded, err := DecodeHeader(data)
			if err != nil {
				t.Fatalf("DecodeHeader() error = %v", err)
			}
			if decoded != h {
				t.Errorf("DecodeHeader() = %+v, want %+v", decoded, h)
			}
		})
	}
}

func TestDecodeHeaderInvalid(t *testing.T) {
	valid := NewHeader(USRP_TYPE_VOICE, 1)
	good, _ := valid.MarshalBinary()

	badMagic := append([]byte(nil), good...)
	copy(badMagic, "USRQ")

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"too short", []byte{0x00, 0x01, 0x02}},
		{"one byte short", good[:HeaderSize-1]},
		{"all zero", make([]byte, HeaderSize)},
		{"bad magic", badMagic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeHeader(tt.data)
			if !errors.Is(err, ErrInvalidPacket) {
				t.Errorf("DecodeHeader() error = %v, want ErrInvalidPacket", err)
			}
		})
	}
}

func TestVoiceMessageShortPayload(t *testing.T) {
	data := EndOfTransmission(99)
	if len(data) != HeaderSize {
		t.Fatalf("End-of-transmission frame size: got %d, want %d", len(data), HeaderSize)
	}

	msg := &VoiceMessage{}
	msg.AudioData[3] = 123
	if err := msg.Unmarshal(data); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}
	if msg.Header.IsPTT() {
		t.Error("PTT should be false on end-of-transmission frame")
	}
	if msg.Header.Seq != 99 {
		t.Errorf("Sequence mismatch: got %d, want 99", msg.Header.Seq)
	}
	if msg.AudioData != [VoiceFrameSize]int16{} {
		t.Error("AudioData should be zeroed when payload is missing")
	}
}

func TestMessageValidation(t *testing.T) {
	tests := []struct {
		name    string
		msg     interface{ Validate() error }
		wantErr bool
	}{
		{
			name:    "valid voice message",
			msg:     &VoiceMessage{Header: NewHeader(USRP_TYPE_VOICE, 1)},
			wantErr: false,
		},
		{
			name:    "voice message with wrong type",
			msg:     &VoiceMessage{Header: Header{Type: uint32(USRP_TYPE_DTMF)}},
			wantErr: true,
		},
		{
			name:    "valid text message",
			msg:     &TextMessage{Header: NewHeader(USRP_TYPE_TEXT, 1), Info: NewSetInfo("W1AW", 1, 0, 0)},
			wantErr: false,
		},
		{
			name:    "text message without SET_INFO",
			msg:     &TextMessage{Header: NewHeader(USRP_TYPE_TEXT, 1)},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestHeaderOperations(t *testing.T) {
	h := NewHeader(USRP_TYPE_VOICE, 42)

	if !bytes.Equal(h.Eye[:], []byte(USRPMagic)) {
		t.Errorf("Magic mismatch: got %s, want %s", string(h.Eye[:]), USRPMagic)
	}
	if h.PacketType() != USRP_TYPE_VOICE {
		t.Errorf("Type mismatch: got %d, want %d", h.Type, USRP_TYPE_VOICE)
	}
	if h.IsPTT() {
		t.Error("PTT should initially be false")
	}

	h.SetPTT(true)
	if !h.IsPTT() {
		t.Error("PTT should be true after setting")
	}

	h.SetPTT(false)
	if h.IsPTT() {
		t.Error("PTT should be false after clearing")
	}
}

func TestPacketTypeString(t *testing.T) {
	if got := USRP_TYPE_VOICE_ULAW.String(); got != "VOICE_ULAW" {
		t.Errorf("String() = %s, want VOICE_ULAW", got)
	}
	if got := PacketType(42).String(); got != "UNKNOWN(42)" {
		t.Errorf("String() = %s, want UNKNOWN(42)", got)
	}
}

func BenchmarkVoiceMessage_Marshal(b *testing.B) {
	msg := &VoiceMessage{
		Header: NewHeader(USRP_TYPE_VOICE, 1),
	}
	for i := range msg.AudioData {
		msg.AudioData[i] = int16(i % 32767)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := msg.Marshal(); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkDecodeHeader(b *testing.B) {
	h := NewHeader(USRP_TYPE_VOICE, 1)
	data, _ := h.MarshalBinary()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := DecodeHeader(data); err != nil {
			b.Fatal(err)
		}
	}
}
