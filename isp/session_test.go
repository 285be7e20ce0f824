package isp_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exmachina-dev/nxp-flasher/isp"
	"github.com/exmachina-dev/nxp-flasher/transport"
)

// fakeChip drives the master side of a PTY pair as a scripted stand-in
// for the boot ROM, reading raw bytes/lines and writing back canned
// responses. Tests push expectations onto it from a background
// goroutine so the Session under test can block on real I/O exactly
// as it would against a physical chip.
type fakeChip struct {
	t      *testing.T
	master *transport.Port
	lb     struct{ pending []byte }
}

func newFakeChip(t *testing.T, master *transport.Port) *fakeChip {
	return &fakeChip{t: t, master: master}
}

func (c *fakeChip) readRaw(n int) []byte {
	c.t.Helper()
	out := make([]byte, 0, n)
	deadline := time.Now().Add(2 * time.Second)
	for len(out) < n {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			c.t.Fatalf("fakeChip: timed out reading %d bytes, got %q", n, out)
		}
		buf := make([]byte, n-len(out))
		read, err := c.master.ReadTimeout(buf, remaining)
		require.NoError(c.t, err)
		out = append(out, buf[:read]...)
	}
	return out
}

// readLine reads one LF-terminated line (CR stripped), matching the
// same contract SerialPort.ReadLine implements, so the script can
// assert on exactly what the Session wrote.
func (c *fakeChip) readLine() string {
	c.t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		for i, b := range c.lb.pending {
			if b == '\n' {
				line := string(c.lb.pending[:i])
				c.lb.pending = c.lb.pending[i+1:]
				return stripCR(line)
			}
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			c.t.Fatalf("fakeChip: timed out reading a line, have %q", c.lb.pending)
		}
		buf := make([]byte, 64)
		n, err := c.master.ReadTimeout(buf, remaining)
		require.NoError(c.t, err)
		c.lb.pending = append(c.lb.pending, buf[:n]...)
	}
}

func stripCR(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '\r' {
			out = append(out, s[i])
		}
	}
	return string(out)
}

func (c *fakeChip) writeLine(s string) {
	c.t.Helper()
	_, err := c.master.Write([]byte(s + "\r\n"))
	require.NoError(c.t, err)
}

// TestConnectSyncScenario1 reproduces spec.md §8 scenario 1: sync at
// 16000 kHz through echo-disable, using an explicit cpu to avoid also
// exercising autodetect.
func TestConnectSyncScenario1(t *testing.T) {
	master, slave, err := transport.OpenPTY()
	require.NoError(t, err)
	t.Cleanup(func() { master.Close(); slave.Close() })

	sp := transport.WrapPort(slave)
	sess := isp.NewSession(sp)

	chip := newFakeChip(t, master)
	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.Equal(t, "?", string(chip.readRaw(1)))
		chip.writeLine("Synchronized")

		assert.Equal(t, "Synchronized", chip.readLine())
		chip.writeLine("Synchronized")
		chip.writeLine("OK")

		assert.Equal(t, "16000", chip.readLine())
		chip.writeLine("16000")
		chip.writeLine("OK")

		assert.Equal(t, "A 0", chip.readLine())
		chip.writeLine("A 0")
		chip.writeLine("0")

		assert.Equal(t, "U 23130", chip.readLine())
		chip.writeLine("0")
	}()

	err = sess.Connect(16000, "lpc1768")
	require.NoError(t, err)
	<-done

	assert.Equal(t, "lpc1768", sess.Chip().Name)
}

// TestConnectAutoDetectScenario2 reproduces spec.md §8 scenario 2: a
// single-word device id (lpc1768's 0x26013F37 == 637615927) resolved
// via J, with the second line timing out.
func TestConnectAutoDetectScenario2(t *testing.T) {
	master, slave, err := transport.OpenPTY()
	require.NoError(t, err)
	t.Cleanup(func() { master.Close(); slave.Close() })

	sp := transport.WrapPort(slave)
	sess := isp.NewSession(sp)

	chip := newFakeChip(t, master)
	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.Equal(t, "?", string(chip.readRaw(1)))
		chip.writeLine("Synchronized")
		assert.Equal(t, "Synchronized", chip.readLine())
		chip.writeLine("Synchronized")
		chip.writeLine("OK")
		assert.Equal(t, "16000", chip.readLine())
		chip.writeLine("16000")
		chip.writeLine("OK")
		assert.Equal(t, "A 0", chip.readLine())
		chip.writeLine("A 0")
		chip.writeLine("0")

		assert.Equal(t, "J", chip.readLine())
		chip.writeLine("637615927")
		// no second devid line: single-word id, session's short
		// devIDTimeout should elapse and treat it as absent.

		assert.Equal(t, "U 23130", chip.readLine())
		chip.writeLine("0")
	}()

	err = sess.Connect(16000, "")
	require.NoError(t, err)
	<-done

	assert.Equal(t, "lpc1768", sess.Chip().Name)
}

// TestWriteRAMResendScenario6 reproduces spec.md §8 scenario 6: two
// RESEND replies before OK, and asserts the payload was retransmitted
// on each attempt. NewSession starts with echo_on=true (the state
// Connect's handshake is in before "A 0"), so the fake chip also
// echoes the W command line, matching isp_command's contract; the
// payload and checksum lines are not echoed back.
func TestWriteRAMResendScenario6(t *testing.T) {
	master, slave, err := transport.OpenPTY()
	require.NoError(t, err)
	t.Cleanup(func() { master.Close(); slave.Close() })

	sp := transport.WrapPort(slave)
	sess := isp.NewSession(sp)
	chip := newFakeChip(t, master)

	payload := []byte("hello, isp")
	attempts := 0
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 3; i++ {
			assert.Equal(t, "W 1073745920 10", chip.readLine())
			chip.writeLine("W 1073745920 10") // echo
			chip.writeLine("0")                // W accepted

			chip.readLine() // one uuencoded payload line
			chip.readLine() // checksum line
			attempts++
			if i < 2 {
				chip.writeLine("RESEND")
			} else {
				chip.writeLine("OK")
			}
		}
	}()

	err = sess.WriteRAM(0x40001000, payload)
	require.NoError(t, err)
	<-done
	assert.Equal(t, 3, attempts)
}
