package transport

import (
	"fmt"
	"sync/atomic"
	"syscall"
	"time"
	"unsafe"

	"github.com/daedaluz/fdev/poll"
	ioctl "github.com/daedaluz/goioctl"
)

// Port is a raw serial (or /dev/ptmx-derived pseudo-serial) file
// descriptor with termios and modem-line control, adapted from the
// teacher's port_linux.go Port type down to the ioctls this protocol
// actually needs.
type Port struct {
	closed atomic.Bool
	f      int
}

func openFD(name string) (*Port, error) {
	fd, err := syscall.Open(name, syscall.O_RDWR|syscall.O_NOCTTY, 0)
	if err != nil {
		return nil, wrapErr("open "+name, err)
	}
	return &Port{f: fd}, nil
}

func (p *Port) Write(data []byte) (int, error) {
	if p.closed.Load() {
		return 0, ErrClosed
	}
	n, err := syscall.Write(p.f, data)
	return n, wrapErr("write", err)
}

// ReadTimeout blocks until at least one byte is available or timeout
// elapses, then performs a single non-blocking read, exactly the
// select/read split of the teacher's readTimeout (port_linux.go:760-765),
// used here in place of nxpprog.py's spin-and-sleep dev_readline loop
// (nxpprog.py:470-492).
func (p *Port) ReadTimeout(data []byte, timeout time.Duration) (int, error) {
	if p.closed.Load() {
		return 0, ErrClosed
	}
	if err := poll.WaitInput(p.f, timeout); err != nil {
		return 0, wrapErr("wait for input", err)
	}
	n, err := syscall.Read(p.f, data)
	return n, wrapErr("read", err)
}

// DataAvailable reports how many bytes are queued to read without
// blocking (FIONREAD).
func (p *Port) DataAvailable() (int, error) {
	if p.closed.Load() {
		return 0, ErrClosed
	}
	var n int32
	err := ioctl.Ioctl(uintptr(p.f), fionread, uintptr(unsafe.Pointer(&n)))
	return int(n), wrapErr("FIONREAD", err)
}

func (p *Port) Close() error {
	if !p.closed.Swap(true) {
		fd := p.f
		p.f = -1
		return wrapErr("close", syscall.Close(fd))
	}
	return ErrClosed
}

func (p *Port) Fd() int {
	if p.closed.Load() {
		return -1
	}
	return p.f
}

func (p *Port) GetAttr() (*Termios, error) {
	attrs := &Termios{}
	err := ioctl.Ioctl(uintptr(p.f), tcgets, uintptr(unsafe.Pointer(attrs)))
	return attrs, wrapErr("TCGETS", err)
}

func (p *Port) SetAttr(when Action, attrs *Termios) error {
	return wrapErr("TCSETS", ioctl.Ioctl(uintptr(p.f), tcsets+uintptr(when), uintptr(unsafe.Pointer(attrs))))
}

func (p *Port) Flush(q Queue) error {
	return wrapErr("TCFLSH", ioctl.Ioctl(uintptr(p.f), tcflsh, uintptr(q)))
}

func (p *Port) GetModemLines() (ModemLine, error) {
	var line ModemLine
	err := ioctl.Ioctl(uintptr(p.f), tiocmget, uintptr(unsafe.Pointer(&line)))
	return line, wrapErr("TIOCMGET", err)
}

func (p *Port) SetModemLines(line ModemLine) error {
	return wrapErr("TIOCMSET", ioctl.Ioctl(uintptr(p.f), tiocmset, uintptr(unsafe.Pointer(&line))))
}

func (p *Port) EnableModemLines(line ModemLine) error {
	return wrapErr("TIOCMBIS", ioctl.Ioctl(uintptr(p.f), tiocmbis, uintptr(unsafe.Pointer(&line))))
}

func (p *Port) DisableModemLines(line ModemLine) error {
	return wrapErr("TIOCMBIC", ioctl.Ioctl(uintptr(p.f), tiocmbic, uintptr(unsafe.Pointer(&line))))
}

// SetLockPT un/locks the pty slave associated with a ptmx master
// (TIOCSPTLCK), required before the slave device node can be opened.
func (p *Port) SetLockPT(lock bool) error {
	var v int32
	if lock {
		v = 1
	}
	return wrapErr("TIOCSPTLCK", ioctl.Ioctl(uintptr(p.f), tiocsptlck, uintptr(unsafe.Pointer(&v))))
}

// GetPTPeer opens the pty slave paired with this ptmx master
// (TIOCGPTPEER), returning it as a Port of its own.
func (p *Port) GetPTPeer(flags int) (*Port, error) {
	r1, _, errno := syscall.Syscall(syscall.SYS_IOCTL, uintptr(p.f), tiocgptpeer, uintptr(flags))
	if errno != 0 {
		return nil, wrapErr("TIOCGPTPEER", errno)
	}
	return &Port{f: int(r1)}, nil
}

// SerialOptions configures a newly opened Port (spec.md §6 surface).
type SerialOptions struct {
	BaudRate int
	XonXoff  bool
}

// OpenSerial opens a tty device node and configures it for raw,
// 8N1, local (no carrier-detect hangup) operation at the requested
// baud, matching nxpprog.py's pyserial.Serial(...) construction
// (nxpprog.py:384-396).
func OpenSerial(name string, opts SerialOptions) (*Port, error) {
	p, err := openFD(name)
	if err != nil {
		return nil, err
	}
	attrs, err := p.GetAttr()
	if err != nil {
		p.Close()
		return nil, err
	}
	attrs.MakeRaw()
	attrs.Cflag |= CREAD | CLOCAL
	attrs.SetXonXoff(opts.XonXoff)
	if !attrs.SetSpeed(opts.BaudRate) {
		p.Close()
		return nil, fmt.Errorf("transport: unsupported baud rate %d", opts.BaudRate)
	}
	if err := p.SetAttr(TCSANOW, attrs); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}
