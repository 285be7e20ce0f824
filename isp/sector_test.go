package isp_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exmachina-dev/nxp-flasher/chip"
	"github.com/exmachina-dev/nxp-flasher/isp"
)

func TestSectorOfLPC17xxScenario5(t *testing.T) {
	spec, err := chip.Lookup("lpc1768")
	require.NoError(t, err)
	assert.Equal(t, 4, isp.SectorOf(0x4000, spec))
}

func TestSectorOfMonotoneAndBounds(t *testing.T) {
	for _, name := range chip.Names() {
		spec, err := chip.Lookup(name)
		require.NoError(t, err)

		base := uint32(0)
		if spec.Banked() {
			base = spec.FlashBankAddrs[0]
		}
		assert.Equal(t, 0, isp.SectorOf(base, spec), "chip %s", name)

		var total uint32
		for _, kib := range spec.SectorSizesKiB {
			total += uint32(kib) * 1024
		}
		assert.Equal(t, len(spec.SectorSizesKiB)-1, isp.SectorOf(base+total-1, spec), "chip %s", name)

		prev := -1
		var addr uint32
		for addr = base; addr < base+total; addr += 1024 {
			idx := isp.SectorOf(addr, spec)
			assert.GreaterOrEqual(t, idx, prev, "chip %s addr %x", name, addr)
			prev = idx
		}
	}
}

func TestSectorOfOutOfRange(t *testing.T) {
	spec, err := chip.Lookup("lpc1114")
	require.NoError(t, err)
	var total uint32
	for _, kib := range spec.SectorSizesKiB {
		total += uint32(kib) * 1024
	}
	assert.Equal(t, -1, isp.SectorOf(total, spec))
}
