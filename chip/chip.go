// Package chip is the static chip-parameter registry: an immutable
// catalog of NXP LPC flash geometries, program-buffer locations and
// device-ID fingerprints, keyed by CPU name and by device ID.
//
// Grounded on cpu_parms in original_source/nxpprog.py:85-328. No I/O,
// no mutable state: every lookup is a pure table scan.
package chip

import "fmt"

// CPUMode is the execution mode the boot ROM starts the image in.
type CPUMode int

const (
	// ARM is the default start mode (nxpprog.py:819 "arm").
	ARM CPUMode = iota
	// Thumb is used by the Cortex-M based lpc17xx/lpc18xx parts
	// (nxpprog.py's "cpu_type": "thumb" entries).
	Thumb
)

func (m CPUMode) String() string {
	if m == Thumb {
		return "thumb"
	}
	return "arm"
}

// Letter is the single-character mode code the `G` (go/start) command
// expects: 'A' for ARM, 'T' for Thumb.
func (m CPUMode) Letter() byte {
	if m == Thumb {
		return 'T'
	}
	return 'A'
}

// DeviceID identifies a chip by one or two 32-bit words read back from
// the `J` command. Dual is set for parts whose original cpu_parms
// entry declared devid as a (word0, word1) tuple (lpc18xx), even when
// word1 happens to be 0 — the second word is still significant and
// must be read back, unlike a genuinely single-word part.
type DeviceID struct {
	Word0 uint32
	Word1 uint32
	Dual  bool
}

// Matches reports whether a device ID read from the wire identifies
// this chip. Dual-word IDs match only when both words are equal;
// single-word IDs match on Word0 alone, regardless of what the caller
// passes for word1 (the chip never sends a second word for them).
func (d DeviceID) Matches(word0, word1 uint32) bool {
	if d.Dual {
		return d.Word0 == word0 && d.Word1 == word1
	}
	return d.Word0 == word0
}

// Known reports whether this chip has any registered device ID at
// all (some cpu_parms entries, e.g. lpc2212/lpc2214, carry none and
// can only be selected explicitly by name).
func (d DeviceID) Known() bool {
	return d.Word0 != 0 || d.Dual
}

const (
	// DefaultRAMBufferBase is the staging address used when a chip
	// entry doesn't override it (nxpprog.py:81).
	DefaultRAMBufferBase = 0x40001000
	// DefaultRAMBufferSize is the staging buffer size in bytes when a
	// chip entry doesn't override it (nxpprog.py:82).
	DefaultRAMBufferSize = 4096
	// DefaultChecksumVectorIndex is the interrupt-vector slot the boot
	// checksum is written to for pre-Cortex parts (nxpprog.py:686).
	DefaultChecksumVectorIndex = 5
	// CortexChecksumVectorIndex is used by the Cortex-M lpc17xx/lpc18xx
	// family (nxpprog.py's "csum_vec": 7 entries).
	CortexChecksumVectorIndex = 7
)

// Spec is the immutable per-CPU record (spec.md §3 ChipSpec).
type Spec struct {
	Name string

	// SectorSizesKiB is the ordered flash sector geometry in KiB.
	SectorSizesKiB []int
	// SectorCount overrides len(SectorSizesKiB) as the last sector
	// index for "erase all", when the part only populates a prefix of
	// the table (nxpprog.py's "flash_sector_count" entries).
	SectorCount int

	// DeviceID is the device-ID fingerprint used by auto-detect. Zero
	// value means this chip can't be auto-detected (must be named
	// explicitly), matching parts in cpu_parms with no "devid" key.
	DeviceID DeviceID

	// FlashBankAddrs holds 1 or 2 bank base addresses for dual-bank
	// parts (lpc18xx). Nil means a flat layout starting at 0.
	FlashBankAddrs []uint32

	// RAMBufferBase/RAMBufferSize describe the on-chip staging buffer
	// flash programming copies from.
	RAMBufferBase uint32
	RAMBufferSize uint32

	// ChecksumVectorIndex is the 0-based vector-table word the boot
	// checksum is written to: 5 (default) or 7 (Cortex-M).
	ChecksumVectorIndex int

	// CPUMode is the execution mode `start` uses.
	CPUMode CPUMode
}

// Banked reports whether this chip has a dual-bank flash layout.
func (s Spec) Banked() bool {
	return len(s.FlashBankAddrs) > 0
}

// EraseAllLastSector is the last sector index "erase all" should pass
// to erase the whole part (nxpprog.py:753-757).
func (s Spec) EraseAllLastSector() int {
	if s.SectorCount > 0 {
		return s.SectorCount - 1
	}
	return len(s.SectorSizesKiB) - 1
}

// ramBufferBase/ramBufferSize apply the documented defaults when a
// Spec in the table leaves the field at its zero value.
func (s Spec) ramBufferBase() uint32 {
	if s.RAMBufferBase != 0 {
		return s.RAMBufferBase
	}
	return DefaultRAMBufferBase
}

func (s Spec) ramBufferSize() uint32 {
	if s.RAMBufferSize != 0 {
		return s.RAMBufferSize
	}
	return DefaultRAMBufferSize
}

// RAMBuffer returns the (possibly defaulted) program-buffer base and
// size for this chip.
func (s Spec) RAMBuffer() (base, size uint32) {
	return s.ramBufferBase(), s.ramBufferSize()
}

// ChecksumVector returns the (possibly defaulted) checksum vector
// index for this chip.
func (s Spec) ChecksumVector() int {
	if s.ChecksumVectorIndex != 0 {
		return s.ChecksumVectorIndex
	}
	return DefaultChecksumVectorIndex
}

// NotFoundError is returned by Lookup/ByDeviceID when no chip matches.
type NotFoundError struct {
	Query string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("chip: no parameters defined for %s", e.Query)
}
