package transport

import (
	"fmt"
	"time"
)

// Bus Pirate binary-mode command bytes, transcribed from
// original_source/programmers/buspirate.py's class constants.
const (
	bpUARTStartEcho = 0b00000010
	bpUARTBridge    = 0b00001111
	bpUARTBulk      = 0b00010000
	bpUARTSpeed     = 0b01100000
	bpUARTPinset    = 0b01000000
	bpUARTConfig    = 0b10000000

	bpBaud115200 = 0b1001

	bpPower  = 0b01000000
	bpPullup = 0b00100000
	bpAux    = 0b00010000
	bpCS     = 0b00000001
)

// BusPirate drives a Bus Pirate's binary UART-bridge mode as a
// LineTransport, grounded on programmers/buspirate.py's init_device,
// enter_isp_mode, post_isp_mode and post_prog.
type BusPirate struct {
	device string
	baud   int

	port      *Port
	lb        lineBuffer
	timeout   time.Duration
	pinstate  byte
	bridgeOn  bool
}

func NewBusPirate(device string, baud int) *BusPirate {
	return &BusPirate{device: device, baud: baud, timeout: 500 * time.Millisecond}
}

// Init opens the Bus Pirate's own serial device (always 115200 at the
// binary-mode layer) and walks it through binmode → binary UART mode,
// matching init_device's byte-for-byte handshake. The target-side UART
// speed sent over UART_SPEED_CMD is always the bpBaud115200 code; the
// baud passed to NewBusPirate is not applied.
func (b *BusPirate) Init() error {
	p, err := OpenSerial(b.device, SerialOptions{BaudRate: 115200})
	if err != nil {
		return err
	}
	b.port = p

	b.drain(100 * time.Millisecond)
	if err := b.raw([]byte{0x0f}); err != nil {
		return err
	}
	if err := b.raw([]byte("\n\n")); err != nil {
		return err
	}
	time.Sleep(100 * time.Millisecond)
	b.drain(100 * time.Millisecond)

	if err := b.raw(make([]byte, 20)); err != nil {
		return err
	}
	resp, err := b.readRaw(5, time.Second)
	if err != nil {
		return err
	}
	if !containsASCII(resp, "BBIO") {
		return fmt.Errorf("transport: bus pirate not responding to binmode reset")
	}

	if err := b.raw([]byte{0x03}); err != nil {
		return err
	}
	resp, err = b.readRaw(4, time.Second)
	if err != nil {
		return err
	}
	if !containsASCII(resp, "ART") {
		return fmt.Errorf("transport: bus pirate not responding to UART mode request")
	}

	if err := b.raw([]byte{bpUARTSpeed | bpBaud115200}); err != nil {
		return err
	}
	if _, err := b.readRaw(1, time.Second); err != nil {
		return err
	}
	if err := b.raw([]byte{bpUARTConfig | 0b10000}); err != nil {
		return err
	}
	if _, err := b.readRaw(1, time.Second); err != nil {
		return err
	}

	if err := b.setPin(bpPullup, true); err != nil {
		return err
	}
	if err := b.setPin(bpPower, true); err != nil {
		return err
	}
	return b.setPin(bpAux&bpCS, true)
}

// EnterISP resets the target by toggling AUX (reset) and CS (boot)
// pins, matching enter_isp_mode.
func (b *BusPirate) EnterISP() error {
	if err := b.setPin(bpAux&bpCS, false); err != nil {
		return err
	}
	time.Sleep(100 * time.Millisecond)
	if err := b.setPin(bpAux, true); err != nil {
		return err
	}
	time.Sleep(100 * time.Millisecond)
	return b.setPin(bpCS, true)
}

// PostISP switches from binary UART mode into transparent bridge mode
// so plain bytes pass through directly (post_isp_mode): once bridged,
// the Bus Pirate can only be
// reset by a power cycle, matching the Python driver's warning.
func (b *BusPirate) PostISP() error {
	if err := b.raw([]byte{bpUARTStartEcho}); err != nil {
		return err
	}
	if _, err := b.readRaw(1, time.Second); err != nil {
		return err
	}
	if err := b.raw([]byte{bpUARTBridge}); err != nil {
		return err
	}
	if _, err := b.readRaw(1, time.Second); err != nil {
		return err
	}
	b.bridgeOn = true
	return nil
}

// PostProg pulses the AUX (reset) pin once more when bridge mode
// never engaged; once bridged there is no software reset available.
func (b *BusPirate) PostProg() error {
	if b.bridgeOn {
		return nil
	}
	if err := b.setPin(bpAux, false); err != nil {
		return err
	}
	time.Sleep(100 * time.Millisecond)
	return b.setPin(bpAux, true)
}

func (b *BusPirate) setPin(pin byte, on bool) error {
	if on {
		b.pinstate |= pin
	} else {
		b.pinstate &^= pin
	}
	if err := b.raw([]byte{b.pinstate | bpUARTPinset}); err != nil {
		return err
	}
	resp, err := b.readRaw(1, time.Second)
	if err != nil {
		return err
	}
	if len(resp) == 0 || resp[0] != 1 {
		return fmt.Errorf("transport: bus pirate pin set rejected")
	}
	return nil
}

// Write sends data through a bulk-write frame once bridge mode is
// off; once bridged the Bus Pirate passes bytes straight through
// (bulk_write/write's branch in the Python driver).
func (b *BusPirate) Write(data []byte) error {
	if b.bridgeOn {
		return b.raw(data)
	}
	for len(data) > 0 {
		n := len(data)
		if n > 16 {
			n = 16
		}
		chunk := data[:n]
		data = data[n:]
		if err := b.raw(append([]byte{bpUARTBulk | byte(n-1)}, chunk...)); err != nil {
			return err
		}
		if _, err := b.readRaw(n+1, time.Second); err != nil {
			return err
		}
		time.Sleep(100 * time.Millisecond)
	}
	return nil
}

func (b *BusPirate) WriteLine(data []byte) error {
	return b.Write(append(append([]byte{}, data...), '\r', '\n'))
}

func (b *BusPirate) Read(n int, timeout time.Duration) ([]byte, error) {
	return b.readRaw(n, timeout)
}

func (b *BusPirate) ReadLine(timeout time.Duration) (string, error) {
	return b.lb.readLine(b.port, timeout)
}

func (b *BusPirate) DataAvailable() (int, error) {
	return b.port.DataAvailable()
}

func (b *BusPirate) SetTimeout(timeout time.Duration) {
	b.timeout = timeout
}

func (b *BusPirate) Close() error {
	if b.port == nil {
		return nil
	}
	return b.port.Close()
}

func (b *BusPirate) raw(data []byte) error {
	_, err := b.port.Write(data)
	return err
}

func (b *BusPirate) readRaw(n int, timeout time.Duration) ([]byte, error) {
	out := make([]byte, 0, n)
	deadline := time.Now().Add(timeout)
	for len(out) < n {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		buf := make([]byte, n-len(out))
		read, err := b.port.ReadTimeout(buf, remaining)
		if err != nil {
			break
		}
		if read == 0 {
			break
		}
		out = append(out, buf[:read]...)
	}
	return out, nil
}

func (b *BusPirate) drain(timeout time.Duration) {
	buf := make([]byte, 64)
	b.port.ReadTimeout(buf, timeout)
}

func containsASCII(data []byte, sub string) bool {
	return len(sub) > 0 && len(data) >= len(sub) && indexOfASCII(data, sub) >= 0
}

func indexOfASCII(data []byte, sub string) int {
	for i := 0; i+len(sub) <= len(data); i++ {
		if string(data[i:i+len(sub)]) == sub {
			return i
		}
	}
	return -1
}
