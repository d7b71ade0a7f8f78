package split

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/merith-tk/smart-keymap/internal/keyref"
)

func TestMessageSerializeDeserializeRoundTrip(t *testing.T) {
	cases := []keyref.InputEvent{
		keyref.Press(0),
		keyref.ReleaseEv(0),
		keyref.Press(44),
		keyref.ReleaseEv(300), // exercises both index bytes (300 > 0xFF)
		keyref.Press(65535),
	}

	for _, ev := range cases {
		frame := NewMessage(ev).Serialize()
		assert.Len(t, frame, FrameSize)

		decoded, err := Deserialize(frame)
		require.NoError(t, err)
		assert.Equal(t, ev, decoded.InputEvent)
	}
}

func TestDeserializeRejectsWrongLengthPayload(t *testing.T) {
	_, err := Deserialize(COBSEncode([]byte{1, 2}))
	assert.Error(t, err)
}

func TestDeserializeRejectsUnknownKind(t *testing.T) {
	_, err := Deserialize(COBSEncode([]byte{2, 0, 0}))
	assert.Error(t, err)
}

func TestReceiverDecodesOnlyOnFinalByteOfFrame(t *testing.T) {
	ev := keyref.Press(300)
	frame := NewMessage(ev).Serialize()
	require.Len(t, frame, FrameSize)

	var r Receiver
	for _, b := range frame[:len(frame)-1] {
		_, ok := r.ReceiveByte(b)
		assert.False(t, ok, "a frame must not decode before its final byte arrives")
	}

	msg, ok := r.ReceiveByte(frame[len(frame)-1])
	require.True(t, ok, "the final byte of a well-formed frame must complete a decode")
	assert.Equal(t, ev, msg.InputEvent)
}

func TestReceiverResyncsAfterGarbageBytes(t *testing.T) {
	var r Receiver
	for _, b := range []byte{9, 9, 9, 9, 9, 9, 9} {
		r.ReceiveByte(b)
	}

	ev := keyref.ReleaseEv(44)
	frame := NewMessage(ev).Serialize()
	var msg Message
	var ok bool
	for _, b := range frame {
		msg, ok = r.ReceiveByte(b)
	}

	require.True(t, ok, "a well-formed frame following garbage bytes must still decode once it fully slides into the window")
	assert.Equal(t, ev, msg.InputEvent)
}

func TestReceiverHandlesBackToBackFrames(t *testing.T) {
	var r Receiver
	first := keyref.Press(5)
	second := keyref.ReleaseEv(6)

	var lastMsg Message
	var lastOK bool
	for _, b := range NewMessage(first).Serialize() {
		lastMsg, lastOK = r.ReceiveByte(b)
	}
	require.True(t, lastOK)
	assert.Equal(t, first, lastMsg.InputEvent)

	for _, b := range NewMessage(second).Serialize() {
		lastMsg, lastOK = r.ReceiveByte(b)
	}
	require.True(t, lastOK)
	assert.Equal(t, second, lastMsg.InputEvent)
}
