package transport

import (
	"strings"
	"time"
)

// lineBuffer accumulates raw reads from an underlying byte source and
// splits them into LF-terminated logical lines with embedded CR
// discarded, the read_line contract of spec.md §4.2. It is shared by
// SerialPort and BusPirate so both read the wire the same way.
type lineBuffer struct {
	pending []byte
}

// rawReader is the minimal read primitive lineBuffer needs from its
// host transport.
type rawReader interface {
	ReadTimeout(buf []byte, timeout time.Duration) (int, error)
}

// readLine blocks until it has assembled one LF-terminated line (CR
// bytes stripped) or timeout elapses with nothing found, in which case
// it returns "" per spec.md §4.2 ("returns empty on timeout").
func (lb *lineBuffer) readLine(r rawReader, timeout time.Duration) (string, error) {
	deadline := time.Now().Add(timeout)
	for {
		if idx := indexLF(lb.pending); idx >= 0 {
			line := lb.pending[:idx]
			lb.pending = lb.pending[idx+1:]
			return strings.ReplaceAll(string(line), "\r", ""), nil
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return "", nil
		}
		buf := make([]byte, 256)
		n, err := r.ReadTimeout(buf, remaining)
		if err != nil {
			if n == 0 {
				return "", nil
			}
			return "", err
		}
		if n == 0 {
			return "", nil
		}
		lb.pending = append(lb.pending, buf[:n]...)
	}
}

func indexLF(b []byte) int {
	for i, c := range b {
		if c == '\n' {
			return i
		}
	}
	return -1
}
