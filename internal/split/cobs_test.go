package split

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCOBSRoundTrip(t *testing.T) {
	cases := [][]byte{
		{},
		{0},
		{1, 2, 3},
		{5, 0, 7},
		{0, 1, 44},
		{0, 0, 0},
		bytes(300, 1), // a run long enough to force an extra length byte
	}

	for _, data := range cases {
		encoded := COBSEncode(data)
		decoded := COBSDecode(encoded)
		assert.Equal(t, data, decoded)

		for _, b := range encoded[:len(encoded)-1] {
			assert.NotZero(t, b, "an encoded frame must contain no zero byte before the trailing delimiter")
		}
		assert.Zero(t, encoded[len(encoded)-1], "an encoded frame must end with the zero delimiter")
	}
}

func TestCOBSDecodeAcceptsFrameWithoutTrailingDelimiter(t *testing.T) {
	encoded := COBSEncode([]byte{1, 2, 3})
	withoutDelim := encoded[:len(encoded)-1]
	assert.Equal(t, []byte{1, 2, 3}, COBSDecode(withoutDelim))
}

func bytes(n int, fill byte) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = fill
	}
	return out
}
