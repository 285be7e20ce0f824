// Package transport implements the Line Transport collaborator: a
// byte-stream abstraction with a line-oriented read/write contract,
// backed either by a direct serial port or a Bus Pirate bridge.
//
// Grounded on the teacher package github.com/daedaluz/goserial, with
// the ioctl/poll plumbing trimmed to what a raw line protocol needs
// and generalized behind the LineTransport interface spec.md §4.2
// names.
package transport

import (
	"time"
)

// LineTransport is the capability set spec.md §4.2 requires: byte and
// line I/O, ISP entry/exit hooks, a queryable input depth, and a
// mutable timeout. Both SerialPort and BusPirate implement it.
type LineTransport interface {
	// Init performs implementation-specific setup before the first
	// command is sent (opening the device, driving a binary preamble).
	Init() error
	// EnterISP drives whatever reset sequence puts the target into
	// ISP mode. A no-op implementation is valid (plain serial without
	// --control).
	EnterISP() error
	// PostISP runs after a successful connect() (e.g. releasing reset
	// lines some bridges hold through the handshake).
	PostISP() error
	// PostProg runs after program() completes, before start().
	PostProg() error

	Read(n int, timeout time.Duration) ([]byte, error)
	Write(data []byte) error
	WriteLine(data []byte) error
	ReadLine(timeout time.Duration) (string, error)
	DataAvailable() (int, error)

	SetTimeout(timeout time.Duration)
	Close() error
}

// DefaultOscKHz and DefaultBaud are nxpprog.py's defaults
// (nxpprog.py:855-856), carried forward as the flow/CLI defaults.
const (
	DefaultOscKHz = 16000
	DefaultBaud   = 115200
)
