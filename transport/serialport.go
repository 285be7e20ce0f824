package transport

import (
	"time"
)

// SerialPort is the direct LineTransport implementation: a raw tty
// device node plus the RTS/DTR reset sequencing nxpprog.py's isp_mode
// drives (nxpprog.py:399-441).
type SerialPort struct {
	port    *Port
	lb      lineBuffer
	timeout time.Duration

	device   string
	opts     SerialOptions
	control  bool
	resetPin string // "dtr" (default) or "rts"
}

// SerialConfig is the subset of spec.md §6's configuration surface a
// SerialPort needs.
type SerialConfig struct {
	Device   string
	Baud     int
	XonXoff  bool
	Control  bool
	ResetPin string // defaults to "dtr" when empty, matching nxpprog.py:400
}

func NewSerialPort(cfg SerialConfig) *SerialPort {
	resetPin := cfg.ResetPin
	if resetPin == "" {
		resetPin = "dtr"
	}
	return &SerialPort{
		device:   cfg.Device,
		opts:     SerialOptions{BaudRate: cfg.Baud, XonXoff: cfg.XonXoff},
		control:  cfg.Control,
		resetPin: resetPin,
		timeout:  500 * time.Millisecond,
	}
}

// WrapPort adapts an already-open Port (typically one half of an
// OpenPTY pair in tests) into a SerialPort, skipping Init's device
// open. EnterISP is a no-op on a wrapped port since PTYs have no
// modem-control lines worth driving.
func WrapPort(p *Port) *SerialPort {
	return &SerialPort{port: p, timeout: 500 * time.Millisecond}
}

// Init opens the configured device node, unless this SerialPort was
// built with WrapPort around an already-open Port (the test harness's
// PTY pairs), in which case it's a no-op.
func (s *SerialPort) Init() error {
	if s.port != nil {
		return nil
	}
	p, err := OpenSerial(s.device, s.opts)
	if err != nil {
		return err
	}
	s.port = p
	return nil
}

// EnterISP reproduces isp_mode's reset/int0 pulse train when Control
// is set; it is a no-op otherwise (spec.md §4.2: "on plain serial it
// is a no-op with a user prompt" — the prompt itself is a cmd/
// concern, not transport's).
func (s *SerialPort) EnterISP() error {
	if !s.control {
		return nil
	}
	if err := s.reset(false); err != nil {
		return err
	}
	time.Sleep(100 * time.Millisecond)
	if err := s.reset(true); err != nil {
		return err
	}
	if err := s.int0(true); err != nil {
		return err
	}
	time.Sleep(100 * time.Millisecond)
	if err := s.reset(false); err != nil {
		return err
	}
	time.Sleep(100 * time.Millisecond)
	return s.int0(false)
}

// reset drives the reset line; which physical signal that is depends
// on resetPin (nxpprog.py:429-433).
func (s *SerialPort) reset(level bool) error {
	if s.resetPin == "rts" {
		return s.setLine(TIOCM_RTS, level)
	}
	return s.setLine(TIOCM_DTR, level)
}

// int0 drives whichever signal isn't the reset line (nxpprog.py:435-441).
func (s *SerialPort) int0(level bool) error {
	if s.resetPin == "rts" {
		return s.setLine(TIOCM_DTR, level)
	}
	return s.setLine(TIOCM_RTS, level)
}

func (s *SerialPort) setLine(line ModemLine, on bool) error {
	if on {
		return s.port.EnableModemLines(line)
	}
	return s.port.DisableModemLines(line)
}

func (s *SerialPort) PostISP() error  { return nil }
func (s *SerialPort) PostProg() error { return nil }

func (s *SerialPort) Read(n int, timeout time.Duration) ([]byte, error) {
	out := make([]byte, 0, n)
	for len(out) < n {
		buf := make([]byte, n-len(out))
		read, err := s.port.ReadTimeout(buf, timeout)
		if err != nil {
			return out, err
		}
		if read == 0 {
			break
		}
		out = append(out, buf[:read]...)
	}
	return out, nil
}

func (s *SerialPort) Write(data []byte) error {
	_, err := s.port.Write(data)
	return err
}

func (s *SerialPort) WriteLine(data []byte) error {
	return s.Write(append(append([]byte{}, data...), '\r', '\n'))
}

func (s *SerialPort) ReadLine(timeout time.Duration) (string, error) {
	return s.lb.readLine(s.port, timeout)
}

func (s *SerialPort) DataAvailable() (int, error) {
	return s.port.DataAvailable()
}

func (s *SerialPort) SetTimeout(timeout time.Duration) {
	s.timeout = timeout
}

func (s *SerialPort) Close() error {
	if s.port == nil {
		return nil
	}
	return s.port.Close()
}
