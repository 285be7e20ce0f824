package ihex_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exmachina-dev/nxp-flasher/ihex"
)

// record builds one Intel HEX record line with its checksum, so tests
// can express the addresses and payloads being tested rather than the
// byte counting.
func record(byteCount byte, addr uint16, recType byte, payload []byte) string {
	raw := []byte{byteCount, byte(addr >> 8), byte(addr), recType}
	raw = append(raw, payload...)
	var sum byte
	for _, b := range raw {
		sum += b
	}
	raw = append(raw, byte(-sum))
	out := strings.Builder{}
	out.WriteByte(':')
	for _, b := range raw {
		out.WriteString(hexByte(b))
	}
	return out.String()
}

func hexByte(b byte) string {
	const digits = "0123456789ABCDEF"
	return string([]byte{digits[b>>4], digits[b&0xf]})
}

func TestParseSingleRecord(t *testing.T) {
	lines := record(4, 0x0000, 0x00, []byte{0xde, 0xad, 0xbe, 0xef}) + "\n" +
		record(0, 0, 0x01, nil) + "\n"

	base, data, err := ihex.Parse(strings.NewReader(lines))
	require.NoError(t, err)
	assert.EqualValues(t, 0, base)
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, data)
}

func TestParseFillsGapsWithFF(t *testing.T) {
	lines := record(2, 0x0000, 0x00, []byte{0x01, 0x02}) + "\n" +
		record(2, 0x0008, 0x00, []byte{0x03, 0x04}) + "\n" +
		record(0, 0, 0x01, nil) + "\n"

	base, data, err := ihex.Parse(strings.NewReader(lines))
	require.NoError(t, err)
	assert.EqualValues(t, 0, base)
	require.Len(t, data, 10)
	assert.Equal(t, []byte{0x01, 0x02}, data[0:2])
	for _, b := range data[2:8] {
		assert.EqualValues(t, 0xFF, b)
	}
	assert.Equal(t, []byte{0x03, 0x04}, data[8:10])
}

func TestParseExtendedLinearAddress(t *testing.T) {
	ela := record(2, 0x0000, 0x04, []byte{0x00, 0x01}) // upper 16 bits = 0x0001
	data1 := record(2, 0x0000, 0x00, []byte{0xaa, 0xbb})
	eof := record(0, 0, 0x01, nil)
	lines := ela + "\n" + data1 + "\n" + eof + "\n"

	base, data, err := ihex.Parse(strings.NewReader(lines))
	require.NoError(t, err)
	assert.EqualValues(t, 0x00010000, base)
	assert.Equal(t, []byte{0xaa, 0xbb}, data)
}

func TestParseBadChecksum(t *testing.T) {
	_, _, err := ihex.Parse(strings.NewReader(":01000000FFFF\n"))
	require.Error(t, err)
	var fe *ihex.FormatError
	assert.ErrorAs(t, err, &fe)
}

func TestParseEmptyStreamYieldsNoData(t *testing.T) {
	base, data, err := ihex.Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Zero(t, base)
	assert.Nil(t, data)
}
