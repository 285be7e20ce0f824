// Package image prepares a firmware image for flashing: it inserts
// the boot-ROM vector-table checksum (when the image targets the base
// of a flash bank) and pads the image to the chip's RAM-buffer
// multiple.
//
// Grounded on original_source/nxpprog.py's insert_csum (nxpprog.py:682-712)
// and the padding step in prog_image (nxpprog.py:778-787).
package image

import (
	"encoding/binary"
	"fmt"

	"github.com/exmachina-dev/nxp-flasher/chip"
)

// VectorTableBytes is the size of the region interpreted as 8 32-bit
// interrupt vectors for checksum purposes.
const VectorTableBytes = 32

// InvalidImageError reports an image too short to hold a vector table
// when checksum insertion is required.
type InvalidImageError struct {
	Len int
}

func (e *InvalidImageError) Error() string {
	return fmt.Sprintf("image: %d bytes is too short to hold an interrupt vector table (need %d)", e.Len, VectorTableBytes)
}

// needsChecksum reports whether an image loaded at baseAddr for this
// chip must have the boot checksum inserted (nxpprog.py:773-776): a
// flat chip loaded at 0, or any chip loaded at one of its bank bases.
func needsChecksum(baseAddr uint32, spec chip.Spec) bool {
	if !spec.Banked() {
		return baseAddr == 0
	}
	for _, bank := range spec.FlashBankAddrs {
		if bank == baseAddr {
			return true
		}
	}
	return false
}

// InsertChecksum rewrites the vector-table word at spec.ChecksumVector()
// so the sum of all 8 first vectors is zero mod 2^32, the boot ROM's
// validity check. It mutates a copy and returns it; img is left
// unmodified.
//
// Applying InsertChecksum twice is a fixed point: the second call
// recomputes the same sum-of-others (the rewritten word is excluded
// from the sum either way) and writes the identical value back.
func InsertChecksum(img []byte, spec chip.Spec) ([]byte, error) {
	if len(img) < VectorTableBytes {
		return nil, &InvalidImageError{Len: len(img)}
	}
	k := spec.ChecksumVector()

	vecs := make([]uint32, 8)
	for i := range vecs {
		vecs[i] = binary.LittleEndian.Uint32(img[i*4 : i*4+4])
	}

	var sum uint64
	for i, v := range vecs {
		if i == k {
			continue
		}
		sum += uint64(v)
	}
	csum := uint32((uint64(1)<<32 - sum%(uint64(1)<<32)) % (uint64(1) << 32))

	out := make([]byte, len(img))
	copy(out, img)
	vecs[k] = csum
	for i, v := range vecs {
		binary.LittleEndian.PutUint32(out[i*4:i*4+4], v)
	}
	return out, nil
}

// Pad extends data with 0xFF bytes until its length is a multiple of
// blockSize (nxpprog.py:780-784).
func Pad(data []byte, blockSize uint32) []byte {
	if blockSize == 0 {
		return data
	}
	rem := uint32(len(data)) % blockSize
	if rem == 0 {
		return data
	}
	padding := blockSize - rem
	out := make([]byte, len(data), len(data)+int(padding))
	copy(out, data)
	for i := uint32(0); i < padding; i++ {
		out = append(out, 0xFF)
	}
	return out
}

// Prepare runs the full image-preparation pipeline (spec.md §4.5):
// conditionally insert the boot checksum, then pad to the chip's
// RAM-buffer size.
func Prepare(img []byte, baseAddr uint32, spec chip.Spec) ([]byte, error) {
	out := img
	if needsChecksum(baseAddr, spec) {
		var err error
		out, err = InsertChecksum(out, spec)
		if err != nil {
			return nil, err
		}
	}
	_, blockSize := spec.RAMBuffer()
	return Pad(out, blockSize), nil
}
