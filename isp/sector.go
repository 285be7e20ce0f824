package isp

import "github.com/exmachina-dev/nxp-flasher/chip"

// SectorOf is the Sector Resolver (spec.md §4.4): starting at the
// first flash-bank base (or 0 for a flat chip), it accumulates sector
// sizes to find which sector's [base, base+size) range contains addr.
// Returns -1 for an address outside every sector's range; callers
// MUST treat -1 as fatal.
func SectorOf(addr uint32, spec chip.Spec) int {
	base := uint32(0)
	if spec.Banked() {
		base = spec.FlashBankAddrs[0]
	}
	cur := base
	for i, kib := range spec.SectorSizesKiB {
		size := uint32(kib) * 1024
		if addr >= cur && addr < cur+size {
			return i
		}
		cur += size
	}
	return -1
}
