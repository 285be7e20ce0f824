package chip

import "strings"

// Flash sector geometries shared across several cpu families, named
// after the table they came from in original_source/nxpprog.py.
var (
	sectorLPC23xx = []int{
		4, 4, 4, 4, 4, 4, 4, 4,
		32, 32, 32, 32, 32, 32, 32,
		32, 32, 32, 32, 32, 32, 32,
		4, 4, 4, 4, 4, 4,
	}
	sectorLPC21xx64 = []int{8, 8, 8, 8, 8, 8, 8, 8}
	sectorLPC21xx128 = []int{
		8, 8, 8, 8, 8, 8, 8, 8,
		8, 8, 8, 8, 8, 8, 8,
	}
	sectorLPC21xx256 = []int{
		8, 8, 8, 8, 8, 8, 8, 8,
		64, 64,
		8, 8, 8, 8, 8, 8, 8,
	}
	sectorLPC17xx = []int{
		4, 4, 4, 4, 4, 4, 4, 4,
		4, 4, 4, 4, 4, 4, 4, 4,
		32, 32, 32, 32, 32, 32, 32,
		32, 32, 32, 32, 32, 32, 32,
	}
	sectorLPC11xx = []int{4, 4, 4, 4, 4, 4, 4, 4}
	sectorLPC18xx = []int{
		8, 8, 8, 8, 8, 8, 8, 8,
		64, 64, 64, 64, 64, 64, 64,
	}
)

// registry is the static table, keyed by canonical (lowercase) name.
// Values are a direct transcription of cpu_parms in
// original_source/nxpprog.py:85-328.
var registry = map[string]Spec{
	"lpc2364": {SectorSizesKiB: sectorLPC23xx, SectorCount: 11, DeviceID: DeviceID{Word0: 369162498}},
	"lpc2365": {SectorSizesKiB: sectorLPC23xx, SectorCount: 15, DeviceID: DeviceID{Word0: 369158179}},
	"lpc2366": {SectorSizesKiB: sectorLPC23xx, SectorCount: 15, DeviceID: DeviceID{Word0: 369162531}},
	"lpc2367": {SectorSizesKiB: sectorLPC23xx, DeviceID: DeviceID{Word0: 369158181}},
	"lpc2368": {SectorSizesKiB: sectorLPC23xx, DeviceID: DeviceID{Word0: 369162533}},
	"lpc2377": {SectorSizesKiB: sectorLPC23xx, DeviceID: DeviceID{Word0: 385935397}},
	"lpc2378": {SectorSizesKiB: sectorLPC23xx, DeviceID: DeviceID{Word0: 385940773}},
	"lpc2387": {SectorSizesKiB: sectorLPC23xx, DeviceID: DeviceID{Word0: 402716981}},
	"lpc2388": {SectorSizesKiB: sectorLPC23xx, DeviceID: DeviceID{Word0: 402718517}},

	"lpc2141": {SectorSizesKiB: sectorLPC23xx, SectorCount: 8, DeviceID: DeviceID{Word0: 196353}},
	"lpc2142": {SectorSizesKiB: sectorLPC23xx, SectorCount: 9, DeviceID: DeviceID{Word0: 196369}},
	"lpc2144": {SectorSizesKiB: sectorLPC23xx, SectorCount: 11, DeviceID: DeviceID{Word0: 196370}},
	"lpc2146": {SectorSizesKiB: sectorLPC23xx, SectorCount: 15, DeviceID: DeviceID{Word0: 196387}},
	"lpc2148": {SectorSizesKiB: sectorLPC23xx, SectorCount: 27, DeviceID: DeviceID{Word0: 196389}},

	"lpc2109": {SectorSizesKiB: sectorLPC21xx64, DeviceID: DeviceID{Word0: 33685249}},
	"lpc2119": {SectorSizesKiB: sectorLPC21xx128, DeviceID: DeviceID{Word0: 33685266}},
	"lpc2129": {SectorSizesKiB: sectorLPC21xx256, DeviceID: DeviceID{Word0: 33685267}},
	"lpc2114": {SectorSizesKiB: sectorLPC21xx128, DeviceID: DeviceID{Word0: 16908050}},
	"lpc2124": {SectorSizesKiB: sectorLPC21xx256, DeviceID: DeviceID{Word0: 16908051}},
	"lpc2194": {SectorSizesKiB: sectorLPC21xx256, DeviceID: DeviceID{Word0: 50462483}},
	"lpc2292": {SectorSizesKiB: sectorLPC21xx256, DeviceID: DeviceID{Word0: 67239699}},
	"lpc2294": {SectorSizesKiB: sectorLPC21xx256, DeviceID: DeviceID{Word0: 84016915}},

	// lpc22xx: no devid in the original table, autodetect unavailable.
	"lpc2212": {SectorSizesKiB: sectorLPC21xx128},
	"lpc2214": {SectorSizesKiB: sectorLPC21xx256},

	"lpc2458": {SectorSizesKiB: sectorLPC23xx, DeviceID: DeviceID{Word0: 352386869}},
	"lpc2468": {SectorSizesKiB: sectorLPC23xx, DeviceID: DeviceID{Word0: 369164085}},
	"lpc2478": {SectorSizesKiB: sectorLPC23xx, DeviceID: DeviceID{Word0: 386006837}},

	"lpc1768": {SectorSizesKiB: sectorLPC17xx, RAMBufferBase: 0x10001000, ChecksumVectorIndex: CortexChecksumVectorIndex, DeviceID: DeviceID{Word0: 0x26013f37}, CPUMode: Thumb},
	"lpc1766": {SectorSizesKiB: sectorLPC17xx, RAMBufferBase: 0x10001000, ChecksumVectorIndex: CortexChecksumVectorIndex, DeviceID: DeviceID{Word0: 0x26013f33}, CPUMode: Thumb},
	"lpc1765": {SectorSizesKiB: sectorLPC17xx, RAMBufferBase: 0x10001000, ChecksumVectorIndex: CortexChecksumVectorIndex, DeviceID: DeviceID{Word0: 0x26013733}, CPUMode: Thumb},
	"lpc1764": {SectorSizesKiB: sectorLPC17xx, RAMBufferBase: 0x10001000, ChecksumVectorIndex: CortexChecksumVectorIndex, DeviceID: DeviceID{Word0: 0x26011922}, CPUMode: Thumb},
	"lpc1758": {SectorSizesKiB: sectorLPC17xx, RAMBufferBase: 0x10001000, ChecksumVectorIndex: CortexChecksumVectorIndex, DeviceID: DeviceID{Word0: 0x26013f34}, CPUMode: Thumb},
	"lpc1756": {SectorSizesKiB: sectorLPC17xx, RAMBufferBase: 0x10001000, ChecksumVectorIndex: CortexChecksumVectorIndex, DeviceID: DeviceID{Word0: 0x26011723}, CPUMode: Thumb},
	"lpc1754": {SectorSizesKiB: sectorLPC17xx, RAMBufferBase: 0x10001000, ChecksumVectorIndex: CortexChecksumVectorIndex, DeviceID: DeviceID{Word0: 0x26011722}, CPUMode: Thumb},
	"lpc1752": {SectorSizesKiB: sectorLPC17xx, RAMBufferBase: 0x10001000, ChecksumVectorIndex: CortexChecksumVectorIndex, DeviceID: DeviceID{Word0: 0x26001121}, CPUMode: Thumb},
	"lpc1751": {SectorSizesKiB: sectorLPC17xx, RAMBufferBase: 0x10001000, ChecksumVectorIndex: CortexChecksumVectorIndex, DeviceID: DeviceID{Word0: 0x26001110}, CPUMode: Thumb},

	"lpc1114": {SectorSizesKiB: sectorLPC11xx, RAMBufferBase: 0x10000400, RAMBufferSize: 1024, DeviceID: DeviceID{Word0: 0x0444102B}},

	"lpc1817": {SectorSizesKiB: sectorLPC18xx, FlashBankAddrs: []uint32{0x1a000000, 0x1b000000}, RAMBufferBase: 0x10081000, ChecksumVectorIndex: CortexChecksumVectorIndex, DeviceID: DeviceID{Word0: 0xF001DB3F, Dual: true}, CPUMode: Thumb},
	"lpc1832": {SectorSizesKiB: sectorLPC18xx, FlashBankAddrs: []uint32{0x1a000000}, RAMBufferBase: 0x10081000, ChecksumVectorIndex: CortexChecksumVectorIndex, CPUMode: Thumb},
	"lpc1833": {SectorSizesKiB: sectorLPC18xx, SectorCount: 11, FlashBankAddrs: []uint32{0x1a000000, 0x1b000000}, RAMBufferBase: 0x10081000, ChecksumVectorIndex: CortexChecksumVectorIndex, DeviceID: DeviceID{Word0: 0xf001da30, Word1: 0x44, Dual: true}, CPUMode: Thumb},
	"lpc1837": {SectorSizesKiB: sectorLPC18xx, FlashBankAddrs: []uint32{0x1a000000, 0x1b000000}, RAMBufferBase: 0x10081000, ChecksumVectorIndex: CortexChecksumVectorIndex, DeviceID: DeviceID{Word0: 0xf001da30, Dual: true}, CPUMode: Thumb},
	"lpc1853": {SectorSizesKiB: sectorLPC18xx, SectorCount: 11, FlashBankAddrs: []uint32{0x1a000000, 0x1b000000}, RAMBufferBase: 0x10081000, ChecksumVectorIndex: CortexChecksumVectorIndex, DeviceID: DeviceID{Word0: 0xf001d830, Dual: true}, CPUMode: Thumb},
	"lpc1857": {SectorSizesKiB: sectorLPC18xx, FlashBankAddrs: []uint32{0x1a000000, 0x1b000000}, RAMBufferBase: 0x10081000, ChecksumVectorIndex: CortexChecksumVectorIndex, DeviceID: DeviceID{Word0: 0xf001d830, Word1: 0x44, Dual: true}, CPUMode: Thumb},
}

func init() {
	for name, spec := range registry {
		spec.Name = name
		registry[name] = spec
	}
}

// Lookup resolves a chip by name. Input is case-insensitive; the
// returned Spec.Name is always the canonical lowercase form.
func Lookup(name string) (Spec, error) {
	key := strings.ToLower(name)
	spec, ok := registry[key]
	if !ok {
		return Spec{}, &NotFoundError{Query: name}
	}
	return spec, nil
}

// ByDeviceID resolves a chip by the device ID word(s) returned by the
// `J` command. word1 should be 0 when only a single word was read.
func ByDeviceID(word0, word1 uint32) (Spec, error) {
	for _, spec := range registry {
		if !spec.DeviceID.Known() {
			continue
		}
		if spec.DeviceID.Matches(word0, word1) {
			return spec, nil
		}
	}
	return Spec{}, &NotFoundError{Query: "device id"}
}

// Names returns every registered chip name, canonical lowercase,
// unordered. Used by the `--list` CLI path (nxpprog.py:875-879).
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}
