package chip_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exmachina-dev/nxp-flasher/chip"
)

func TestLookupCaseInsensitive(t *testing.T) {
	spec, err := chip.Lookup("LPC1768")
	require.NoError(t, err)
	assert.Equal(t, "lpc1768", spec.Name)
	assert.Equal(t, chip.Thumb, spec.CPUMode)
	assert.True(t, spec.Banked() == false)
}

func TestLookupNotFound(t *testing.T) {
	_, err := chip.Lookup("lpc9999")
	require.Error(t, err)
	var nf *chip.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestByDeviceIDSingleWord(t *testing.T) {
	// scenario 2 from spec.md §8: lpc1768's id 0x26013F37 (637615927 decimal)
	spec, err := chip.ByDeviceID(0x26013F37, 0)
	require.NoError(t, err)
	assert.Equal(t, "lpc1768", spec.Name)
}

func TestByDeviceIDDualWordRequiresBoth(t *testing.T) {
	// lpc1833 and lpc1837 share word0; word1 disambiguates them.
	spec, err := chip.ByDeviceID(0xf001da30, 0x44)
	require.NoError(t, err)
	assert.Equal(t, "lpc1833", spec.Name)

	spec, err = chip.ByDeviceID(0xf001da30, 0)
	require.NoError(t, err)
	assert.Equal(t, "lpc1837", spec.Name)

	_, err = chip.ByDeviceID(0xf001da30, 0x99)
	assert.Error(t, err)
}

func TestRAMBufferDefaults(t *testing.T) {
	spec, err := chip.Lookup("lpc2368")
	require.NoError(t, err)
	base, size := spec.RAMBuffer()
	assert.EqualValues(t, chip.DefaultRAMBufferBase, base)
	assert.EqualValues(t, chip.DefaultRAMBufferSize, size)
	assert.Equal(t, chip.DefaultChecksumVectorIndex, spec.ChecksumVector())
}

func TestEraseAllLastSector(t *testing.T) {
	spec, err := chip.Lookup("lpc1833")
	require.NoError(t, err)
	// SectorCount:11 overrides len(sectorLPC18xx) == 15
	assert.Equal(t, 10, spec.EraseAllLastSector())

	spec, err = chip.Lookup("lpc1768")
	require.NoError(t, err)
	assert.Equal(t, len(spec.SectorSizesKiB)-1, spec.EraseAllLastSector())
}

func TestNamesNonEmpty(t *testing.T) {
	names := chip.Names()
	assert.NotEmpty(t, names)
	found := false
	for _, n := range names {
		if n == "lpc1768" {
			found = true
		}
	}
	assert.True(t, found)
}
