package transport

import (
	ioctl "github.com/daedaluz/goioctl"
)

// ioctl request numbers, trimmed from the teacher's ioctl_linux.go to
// the subset a raw line-oriented serial session needs: termios
// get/set, modem-control lines for EnterISP's RTS/DTR toggling, and
// the /dev/ptmx trio the PTY test harness uses.
var (
	tcgets = uintptr(0x5401)
	tcsets = uintptr(0x5402)

	tcflsh = uintptr(0x540B)

	tiocmget = uintptr(0x5415)
	tiocmbis = uintptr(0x5416)
	tiocmbic = uintptr(0x5417)
	tiocmset = uintptr(0x5418)

	tiocgptn    = ioctl.IOR('T', 0x30, 4)
	tiocsptlck  = ioctl.IOW('T', 0x31, 4)
	tiocgptpeer = ioctl.IO('T', 0x41)

	// fionread is not a tty ioctl (it's in the generic socket/fd
	// family) but shares the request-number shape; used by
	// DataAvailable to poll the kernel input queue depth without a
	// blocking read (nxpprog.py has no equivalent — it always blocks
	// with a timeout). The Bus Pirate preamble's drain does not use
	// it; it reads with a fixed timeout instead.
	fionread = uintptr(0x541B)
)

type Queue uint32

const (
	TCIFLUSH Queue = iota
	TCOFLUSH
	TCIOFLUSH
)

type Action int

const (
	TCSANOW Action = iota
	TCSADRAIN
	TCSAFLUSH
)

type ModemLine int32

const (
	TIOCM_DTR ModemLine = 0x002
	TIOCM_RTS ModemLine = 0x004
)
