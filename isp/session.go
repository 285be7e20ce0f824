package isp

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/exmachina-dev/nxp-flasher/chip"
	"github.com/exmachina-dev/nxp-flasher/codec"
	"github.com/exmachina-dev/nxp-flasher/image"
	"github.com/exmachina-dev/nxp-flasher/transport"
)

// WriteResult is the outcome of a single write_ram_block exchange
// (spec.md §4.6).
type WriteResult int

const (
	WriteOk WriteResult = iota
	WriteResend
	WriteTimeout
)

// MaxResend is the bounded retry count write_ram applies on RESEND
// before escalating to a fatal ProtocolError (spec.md §7, "suggested 3").
const MaxResend = 3

// Session is the ISP Session: a single-threaded state machine owning
// one Line Transport and, once connected, one resolved chip.Spec.
// Grounded on original_source/nxpprog.py's NXPChip class.
type Session struct {
	t       transport.LineTransport
	chip    chip.Spec
	echoOn  bool

	shortTimeout time.Duration // sync/status lines
	bulkTimeout  time.Duration // uuencoded data lines
	eraseTimeout time.Duration // P/E commands
	copyTimeout  time.Duration // C command
	devIDTimeout time.Duration // second J line and every N line, "short timeout" per spec.md §4.6
}

// NewSession wraps a Line Transport in a fresh, unconnected Session.
func NewSession(t transport.LineTransport) *Session {
	return &Session{
		t:            t,
		echoOn:       true,
		shortTimeout: 300 * time.Millisecond,
		bulkTimeout:  500 * time.Millisecond,
		eraseTimeout: 5 * time.Second,
		copyTimeout:  time.Second,
		devIDTimeout: 200 * time.Millisecond,
	}
}

// Chip returns the chip resolved by Connect (autodetected or
// explicit).
func (s *Session) Chip() chip.Spec { return s.chip }

// sendCommand writes cmd as a CRLF line and, if echo is still on,
// discards the echoed line. It does not read a status line — callers
// decide how the response is shaped.
func (s *Session) sendCommand(cmd string) error {
	if err := s.t.WriteLine([]byte(cmd)); err != nil {
		return newTransportError(err)
	}
	if s.echoOn {
		if _, err := s.t.ReadLine(s.shortTimeout); err != nil {
			return newTransportError(err)
		}
	}
	return nil
}

// rawStatus sends cmd and returns the integer status line without
// treating a nonzero code as fatal (select_bank needs this).
func (s *Session) rawStatus(cmd string) (int, error) {
	return s.rawStatusTimeout(cmd, s.shortTimeout)
}

// rawStatusTimeout is rawStatus with an explicit status-read timeout,
// for commands spec.md §5 requires a longer wait on (P/E erase
// commands, C flash-copy).
func (s *Session) rawStatusTimeout(cmd string, timeout time.Duration) (int, error) {
	if err := s.sendCommand(cmd); err != nil {
		return 0, err
	}
	line, err := s.t.ReadLine(timeout)
	if err != nil {
		return 0, newTransportError(err)
	}
	if line == "" {
		return 0, newProtocolError(cmd + ": timeout waiting for status")
	}
	code, err := strconv.Atoi(line)
	if err != nil {
		return 0, newProtocolError(cmd + ": non-numeric status " + line)
	}
	return code, nil
}

// command is the isp_command primitive (spec.md §4.6): write, consume
// echo, read status, fail IspError on nonzero.
func (s *Session) command(cmd string) error {
	return s.commandTimeout(cmd, s.shortTimeout)
}

// commandTimeout is command with an explicit status-read timeout.
func (s *Session) commandTimeout(cmd string, timeout time.Duration) error {
	code, err := s.rawStatusTimeout(cmd, timeout)
	if err != nil {
		return err
	}
	if code != 0 {
		return newIspError(code, cmd)
	}
	return nil
}

// Connect performs the full sync/unlock handshake (spec.md §4.6
// connect). explicitCPU, when non-empty, skips auto-detection.
func (s *Session) Connect(oscKHz int, explicitCPU string) error {
	s.echoOn = true

	if err := s.t.Init(); err != nil {
		return newTransportError(err)
	}
	if err := s.t.EnterISP(); err != nil {
		return newTransportError(err)
	}

	if err := s.t.Write([]byte("?")); err != nil {
		return newTransportError(err)
	}
	line, err := s.t.ReadLine(s.eraseTimeout)
	if err != nil {
		return newTransportError(err)
	}
	if line != "Synchronized" {
		return newSyncTimeout(nil)
	}

	if err := s.t.WriteLine([]byte("Synchronized")); err != nil {
		return newTransportError(err)
	}
	echo, err := s.t.ReadLine(s.shortTimeout)
	if err != nil {
		return newTransportError(err)
	}
	if echo != "Synchronized" {
		return newSyncMismatch("Synchronized", echo)
	}
	ok, err := s.t.ReadLine(s.shortTimeout)
	if err != nil {
		return newTransportError(err)
	}
	if ok != "OK" {
		return newSyncMismatch("OK", ok)
	}

	oscStr := strconv.Itoa(oscKHz)
	if err := s.t.WriteLine([]byte(oscStr)); err != nil {
		return newTransportError(err)
	}
	echoOsc, err := s.t.ReadLine(s.shortTimeout)
	if err != nil {
		return newTransportError(err)
	}
	okOsc, err := s.t.ReadLine(s.shortTimeout)
	if err != nil {
		return newTransportError(err)
	}
	if echoOsc != oscStr || okOsc != "OK" {
		return newOscMismatch(okOsc)
	}

	if err := s.t.WriteLine([]byte("A 0")); err != nil {
		return newTransportError(err)
	}
	if _, err := s.t.ReadLine(s.shortTimeout); err != nil {
		return newTransportError(err)
	}
	echoOffStatus, err := s.t.ReadLine(s.shortTimeout)
	if err != nil {
		return newTransportError(err)
	}
	if code, convErr := strconv.Atoi(echoOffStatus); convErr != nil || code != 0 {
		slog.Warn("echo disable returned nonzero status, continuing", "status", echoOffStatus)
	}
	s.echoOn = false

	var spec chip.Spec
	if explicitCPU != "" {
		spec, err = chip.Lookup(explicitCPU)
		if err != nil {
			return newUnknownChip(err)
		}
	} else {
		word0, word1, dual, err := s.getDevID()
		if err != nil {
			return err
		}
		if !dual {
			word1 = 0
		}
		spec, err = chip.ByDeviceID(word0, word1)
		if err != nil {
			return newAutoDetectFailed(err)
		}
	}
	s.chip = spec

	if err := s.command("U 23130"); err != nil {
		return err
	}

	if err := s.t.PostISP(); err != nil {
		return newTransportError(err)
	}
	return nil
}

func (s *Session) getDevID() (word0, word1 uint32, dual bool, err error) {
	if err := s.sendCommand("J"); err != nil {
		return 0, 0, false, err
	}
	line1, err := s.t.ReadLine(s.shortTimeout)
	if err != nil {
		return 0, 0, false, newTransportError(err)
	}
	v1, convErr := strconv.ParseUint(line1, 10, 32)
	if convErr != nil {
		return 0, 0, false, newProtocolError("J: non-numeric device id " + line1)
	}
	line2, err := s.t.ReadLine(s.devIDTimeout)
	if err != nil {
		return 0, 0, false, newTransportError(err)
	}
	if line2 == "" {
		return uint32(v1), 0, false, nil
	}
	v2, convErr := strconv.ParseUint(line2, 10, 32)
	if convErr != nil {
		return 0, 0, false, newProtocolError("J: non-numeric device id " + line2)
	}
	return uint32(v1), uint32(v2), true, nil
}

// GetDevID re-issues J outside of connect(), e.g. for diagnostics.
func (s *Session) GetDevID() (word0, word1 uint32, dual bool, err error) {
	return s.getDevID()
}

// GetSerialNumber issues N and reads the chip's 4-word serial number.
func (s *Session) GetSerialNumber() ([4]uint32, error) {
	var serial [4]uint32
	if err := s.sendCommand("N"); err != nil {
		return serial, err
	}
	for i := 0; i < 4; i++ {
		line, err := s.t.ReadLine(s.devIDTimeout)
		if err != nil {
			return serial, newTransportError(err)
		}
		v, convErr := strconv.ParseUint(line, 10, 32)
		if convErr != nil {
			return serial, newProtocolError("N: non-numeric serial word " + line)
		}
		serial[i] = uint32(v)
	}
	return serial, nil
}

// SelectBank issues S <n> and reports whether the chip accepted it.
func (s *Session) SelectBank(n int) (bool, error) {
	code, err := s.rawStatus(fmt.Sprintf("S %d", n))
	if err != nil {
		return false, err
	}
	return code == 0, nil
}

// Start issues G <addr> <A|T> using the connected chip's CPU mode.
func (s *Session) Start(addr uint32) error {
	return s.command(fmt.Sprintf("G %d %c", addr, s.chip.CPUMode.Letter()))
}

// ReadBlock issues R <addr> <len> and streams the decoded payload to
// w, verifying the per-chunk checksum as it goes (spec.md §4.6
// read_block). len must be a multiple of 4.
func (s *Session) ReadBlock(addr, length uint32, w io.Writer) error {
	if length%4 != 0 {
		return newProtocolError("read_block: length must be a multiple of 4")
	}
	if err := s.command(fmt.Sprintf("R %d %d", addr, length)); err != nil {
		return err
	}

	expectedLines := codec.ExpectedLines(int(length))
	for _, chunk := range codec.Chunks(expectedLines) {
		_, count := chunk[0], chunk[1]
		buf := make([]byte, 0, count*codec.LineSize)
		for i := 0; i < count; i++ {
			line, err := s.t.ReadLine(s.bulkTimeout)
			if err != nil {
				return newTransportError(err)
			}
			decoded, err := codec.DecodeLine(line)
			if err != nil {
				return newProtocolError(err.Error())
			}
			buf = append(buf, decoded...)
		}
		sumLine, err := s.t.ReadLine(s.bulkTimeout)
		if err != nil {
			return newTransportError(err)
		}
		want, convErr := strconv.ParseUint(sumLine, 10, 64)
		if convErr != nil {
			return newProtocolError("read_block: non-numeric checksum " + sumLine)
		}
		got := codec.Sum(buf)
		if want != got {
			return newChecksumMismatch(want, got)
		}
		if err := s.t.WriteLine([]byte("OK")); err != nil {
			return newTransportError(err)
		}
		if _, err := w.Write(buf); err != nil {
			return newTransportError(err)
		}
	}
	return nil
}

// writeRAMBlock issues W <addr> <len>, emits the uuencoded payload
// and checksum line, then reads the resulting status
// (spec.md §4.6 write_ram_block).
func (s *Session) writeRAMBlock(addr uint32, data []byte) (WriteResult, error) {
	if err := s.command(fmt.Sprintf("W %d %d", addr, len(data))); err != nil {
		return WriteTimeout, err
	}
	for _, line := range codec.EncodeBlock(data) {
		if err := s.t.WriteLine([]byte(line)); err != nil {
			return WriteTimeout, newTransportError(err)
		}
	}
	if err := s.t.WriteLine([]byte(strconv.FormatUint(codec.Sum(data), 10))); err != nil {
		return WriteTimeout, newTransportError(err)
	}

	status, err := s.t.ReadLine(s.bulkTimeout)
	if err != nil {
		return WriteTimeout, newTransportError(err)
	}
	switch status {
	case "OK":
		return WriteOk, nil
	case "RESEND":
		return WriteResend, nil
	case "":
		return WriteTimeout, nil
	default:
		return WriteTimeout, newProtocolError("write_ram_block: unexpected status " + status)
	}
}

// WriteRAM splits data into chunks of at most codec.BlockSize bytes
// and writes each with write_ram_block, retrying RESEND up to
// MaxResend times per block (spec.md §4.6 write_ram, §7).
func (s *Session) WriteRAM(addr uint32, data []byte) error {
	for i := 0; i < len(data); i += codec.BlockSize {
		end := i + codec.BlockSize
		if end > len(data) {
			end = len(data)
		}
		block := data[i:end]
		blockAddr := addr + uint32(i)

		attempts := 0
		for {
			result, err := s.writeRAMBlock(blockAddr, block)
			if err != nil {
				return err
			}
			if result == WriteOk {
				break
			}
			if result == WriteTimeout {
				return newProtocolError("write_ram: timed out waiting for status")
			}
			attempts++
			if attempts > MaxResend {
				return newProtocolError(fmt.Sprintf("write_ram: exceeded %d resend retries", MaxResend))
			}
		}
	}
	return nil
}

// prepareFlashSectors issues P <first> <last>, waiting up to
// eraseTimeout for the status line (spec.md §5: erase-class commands
// get a raised timeout, not the 300ms status default).
func (s *Session) prepareFlashSectors(first, last int) error {
	suffix := ""
	if s.chip.Banked() {
		suffix = " 0"
	}
	return s.commandTimeout(fmt.Sprintf("P %d %d%s", first, last, suffix), s.eraseTimeout)
}

// eraseSectors issues the P/E pair for a sector range (spec.md §4.6
// erase_sectors), both under eraseTimeout.
func (s *Session) eraseSectors(first, last int) error {
	if err := s.prepareFlashSectors(first, last); err != nil {
		return err
	}
	suffix := ""
	if s.chip.Banked() {
		suffix = " 0"
	}
	return s.commandTimeout(fmt.Sprintf("E %d %d%s", first, last, suffix), s.eraseTimeout)
}

// EraseFlash resolves addr0/addr1 via the Sector Resolver and erases
// the covering sectors. Matches original_source/nxpprog.py's
// find_flash_sector call sites, which pass the exclusive end address
// through unchanged rather than addr1-1; preserved here (see DESIGN.md).
func (s *Session) EraseFlash(addr0, addr1 uint32) error {
	first := SectorOf(addr0, s.chip)
	last := SectorOf(addr1, s.chip)
	if first < 0 {
		return newOutOfRangeAddress(addr0)
	}
	if last < 0 {
		return newOutOfRangeAddress(addr1)
	}
	return s.eraseSectors(first, last)
}

// EraseAll erases every sector of the connected chip.
func (s *Session) EraseAll() error {
	return s.eraseSectors(0, s.chip.EraseAllLastSector())
}

// Program prepares image for the connected chip, erases the target
// region (or the whole chip), and writes it through the RAM staging
// buffer in chip.RAMBufferSize-sized chunks, each followed by a
// prepare+copy-to-flash pair (spec.md §4.6 program). The W→P→C
// ordering per chunk is strict: Prepare arms a one-shot erase/write
// token the chip clears after a single C.
func (s *Session) Program(img []byte, baseAddr uint32, eraseAllFirst bool) error {
	prepared, err := image.Prepare(img, baseAddr, s.chip)
	if err != nil {
		return err
	}

	if eraseAllFirst {
		if err := s.EraseAll(); err != nil {
			return err
		}
	} else {
		if err := s.EraseFlash(baseAddr, baseAddr+uint32(len(prepared))); err != nil {
			return err
		}
	}

	ramBase, ramSize := s.chip.RAMBuffer()
	for i := 0; i < len(prepared); i += int(ramSize) {
		end := i + int(ramSize)
		if end > len(prepared) {
			end = len(prepared)
		}
		chunk := prepared[i:end]
		flashStart := baseAddr + uint32(i)
		flashEnd := flashStart + uint32(len(chunk))

		if err := s.WriteRAM(ramBase, chunk); err != nil {
			return err
		}

		startSector := SectorOf(flashStart, s.chip)
		endSector := SectorOf(flashEnd, s.chip)
		if startSector < 0 {
			return newOutOfRangeAddress(flashStart)
		}
		if endSector < 0 {
			return newOutOfRangeAddress(flashEnd)
		}
		if err := s.prepareFlashSectors(startSector, endSector); err != nil {
			return err
		}
		if err := s.commandTimeout(fmt.Sprintf("C %d %d %d", flashStart, ramBase, len(chunk)), s.copyTimeout); err != nil {
			return err
		}
	}
	return nil
}
