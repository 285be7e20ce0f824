package codec_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exmachina-dev/nxp-flasher/codec"
)

func TestRoundTripAllLengths(t *testing.T) {
	for n := 0; n <= codec.LineSize; n++ {
		data := make([]byte, n)
		for i := range data {
			data[i] = byte(i*37 + 11)
		}
		line := codec.EncodeLine(data)
		decoded, err := codec.DecodeLine(line)
		require.NoError(t, err, "n=%d", n)
		assert.Equal(t, data, decoded, "n=%d", n)
	}
}

func TestDecodeLineMalformed(t *testing.T) {
	_, err := codec.DecodeLine("")
	assert.Error(t, err)

	_, err = codec.DecodeLine("M") // declares 45 bytes, carries none
	assert.Error(t, err)
}

func TestDecodeLineTolerantTrailingPadding(t *testing.T) {
	line := codec.EncodeLine([]byte("hi"))
	decoded, err := codec.DecodeLine(line + "   ")
	require.NoError(t, err)
	assert.Equal(t, []byte("hi"), decoded)
}

func TestExpectedLines(t *testing.T) {
	assert.Equal(t, 0, codec.ExpectedLines(0))
	assert.Equal(t, 1, codec.ExpectedLines(1))
	assert.Equal(t, 1, codec.ExpectedLines(45))
	assert.Equal(t, 2, codec.ExpectedLines(46))
}

func TestChunks(t *testing.T) {
	chunks := codec.Chunks(45)
	require.Len(t, chunks, 3)
	assert.Equal(t, [2]int{0, 20}, chunks[0])
	assert.Equal(t, [2]int{20, 20}, chunks[1])
	assert.Equal(t, [2]int{40, 5}, chunks[2])
}

func TestSum(t *testing.T) {
	assert.EqualValues(t, 0, codec.Sum(nil))
	assert.EqualValues(t, 6, codec.Sum([]byte{1, 2, 3}))
}
