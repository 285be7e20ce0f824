// Package isp implements the ISP Session: the stateful command/response
// protocol that drives NXP's serial In-System Programming bootloader,
// and the Sector Resolver the session uses for erase/program
// addressing. The Image Preparer's bank-base check does not use the
// resolver; it compares against the chip's bank addresses directly.
//
// Grounded on original_source/nxpprog.py's NXPChip class (sync, cmd,
// read_block, write_ram_block, erase, prog, start) and on the
// teacher's wrapped-error idiom (error.go's Error/Unwrap).
package isp

import "fmt"

// wireError is the common shape every ISP error wraps: a message plus
// an optional underlying cause, mirroring the teacher's Error type.
type wireError struct {
	msg string
	err error
}

func (e wireError) Error() string {
	if e.err != nil {
		return e.msg + ": " + e.err.Error()
	}
	return e.msg
}

func (e wireError) Unwrap() error { return e.err }

// SyncTimeout is returned when connect() never sees "Synchronized"
// within the current timeout.
type SyncTimeout struct{ wireError }

func newSyncTimeout(cause error) *SyncTimeout {
	return &SyncTimeout{wireError{msg: "isp: sync timeout waiting for \"Synchronized\"", err: cause}}
}

// SyncMismatch is returned when an echoed line or status during the
// handshake doesn't match what was expected.
type SyncMismatch struct{ wireError }

func newSyncMismatch(expected, got string) *SyncMismatch {
	return &SyncMismatch{wireError{msg: fmt.Sprintf("isp: sync mismatch: expected %q, got %q", expected, got)}}
}

// OscMismatch is returned when the oscillator-frequency exchange
// fails to echo/OK.
type OscMismatch struct{ wireError }

func newOscMismatch(got string) *OscMismatch {
	return &OscMismatch{wireError{msg: fmt.Sprintf("isp: oscillator frequency not acknowledged, got %q", got)}}
}

// AutoDetectFailed is returned when a device ID read back from the
// chip matches no registry entry.
type AutoDetectFailed struct{ wireError }

func newAutoDetectFailed(cause error) *AutoDetectFailed {
	return &AutoDetectFailed{wireError{msg: "isp: auto-detect failed", err: cause}}
}

// IspError wraps a nonzero status code the chip returned for a given
// command.
type IspError struct {
	wireError
	Code int
	Cmd  string
}

func newIspError(code int, cmd string) *IspError {
	return &IspError{wireError: wireError{msg: fmt.Sprintf("isp: command %q failed with status %d", cmd, code)}, Code: code, Cmd: cmd}
}

// ProtocolError is returned when a line doesn't parse the way the
// protocol step expects (e.g. a write-block status that's neither OK
// nor RESEND).
type ProtocolError struct{ wireError }

func newProtocolError(msg string) *ProtocolError {
	return &ProtocolError{wireError{msg: "isp: protocol error: " + msg}}
}

// ChecksumMismatch is returned when a read or write block's checksum
// doesn't match what the session computed.
type ChecksumMismatch struct{ wireError }

func newChecksumMismatch(want, got uint64) *ChecksumMismatch {
	return &ChecksumMismatch{wireError{msg: fmt.Sprintf("isp: checksum mismatch: want %d, got %d", want, got)}}
}

// UnknownChip is returned when an explicit --cpu name isn't in the
// registry.
type UnknownChip struct{ wireError }

func newUnknownChip(cause error) *UnknownChip {
	return &UnknownChip{wireError{msg: "isp: unknown chip", err: cause}}
}

// OutOfRangeAddress is returned by the session operations that consult
// the Sector Resolver (EraseFlash, Program) when it reports -1 for an
// address outside the chip's flash range.
type OutOfRangeAddress struct {
	wireError
	Addr uint32
}

func newOutOfRangeAddress(addr uint32) *OutOfRangeAddress {
	return &OutOfRangeAddress{wireError: wireError{msg: fmt.Sprintf("isp: address 0x%08x is out of the chip's flash range", addr)}, Addr: addr}
}

// TransportError wraps an underlying Line Transport I/O failure.
type TransportError struct{ wireError }

func newTransportError(cause error) *TransportError {
	return &TransportError{wireError{msg: "isp: transport error", err: cause}}
}
