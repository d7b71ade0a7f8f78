// Package split implements the split-keyboard wire protocol: one physical
// half scans its half of the matrix and forwards each press/release to the
// other half (which runs the keymap engine) over a UART-style byte stream,
// COBS-framed so the receiver can resync after noise or a dropped byte
// (spec.md §6).
//
// Grounded on original_source/src/split.rs's Message/receive_byte shape: a
// fixed-size frame buffer, a sliding window that tries to decode a frame
// after every received byte. Unlike the original (which layers COBS over
// postcard's generic serde encoding), Go has no equivalent of postcard in
// the example corpus, so Message encodes its two fields directly — this is
// the one place a teacher dependency (postcard's role) has no ecosystem
// analogue to wire in, documented in DESIGN.md.
package split

import (
	"errors"

	"github.com/merith-tk/smart-keymap/internal/keyref"
)

// FrameSize is the encoded frame length, including the trailing delimiter:
// one kind byte, two keymap-index bytes, one COBS length byte, one
// delimiter byte.
const FrameSize = 5

// ErrIncompleteFrame is returned when a decode is attempted before the
// trailing delimiter has arrived.
var ErrIncompleteFrame = errors.New("split: incomplete frame")

// Message is a single press/release event as sent between keyboard halves.
type Message struct {
	InputEvent keyref.InputEvent
}

// NewMessage wraps ev for transmission.
func NewMessage(ev keyref.InputEvent) Message { return Message{InputEvent: ev} }

// Serialize encodes m as a COBS frame.
func (m Message) Serialize() []byte {
	idx := uint16(m.InputEvent.KeymapIndex)
	plain := []byte{byte(m.InputEvent.Kind), byte(idx >> 8), byte(idx)}
	return COBSEncode(plain)
}

// Deserialize decodes a COBS frame (trailing delimiter optional) back into
// a Message.
func Deserialize(frame []byte) (Message, error) {
	plain := COBSDecode(frame)
	if len(plain) != 3 {
		return Message{}, errors.New("split: decoded frame has wrong length")
	}
	idx := keyref.KeymapIndex(uint16(plain[1])<<8 | uint16(plain[2]))
	var ev keyref.InputEvent
	switch keyref.InputEventKind(plain[0]) {
	case keyref.InputPress:
		ev = keyref.Press(idx)
	case keyref.InputRelease:
		ev = keyref.ReleaseEv(idx)
	default:
		return Message{}, errors.New("split: unknown input event kind")
	}
	return Message{InputEvent: ev}, nil
}

// Receiver accumulates incoming bytes in a fixed ring buffer and attempts
// to decode a Message after every byte, mirroring receive_byte's
// rotate-and-try approach: a receiver with no framing state beyond the
// last FrameSize bytes seen, so it resyncs automatically after any
// dropped or corrupted byte.
type Receiver struct {
	buf [FrameSize]byte
}

// ReceiveByte appends byte to the sliding window and attempts to decode a
// Message from it. Returns ok=false (no error) for every byte that does
// not yet complete a valid frame — this is the expected case for all but
// the final byte of a well-formed message, not a transport fault.
func (r *Receiver) ReceiveByte(b byte) (msg Message, ok bool) {
	copy(r.buf[:], r.buf[1:])
	r.buf[FrameSize-1] = b
	m, err := Deserialize(r.buf[:])
	if err != nil {
		return Message{}, false
	}
	return m, true
}
