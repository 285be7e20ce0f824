// Package flow sequences the ISP Session and its collaborators into
// the top-level actions spec.md §4.7 names: program, erase-only, read,
// start-only, select-bank, read-serial. It is the only package that
// owns both a transport.LineTransport and the isp.Session wrapping it,
// since PostProg (spec.md §4.2) must run after Session.Program but
// before Session.Start, and the Session itself has no transport
// accessor for that.
//
// Grounded on original_source/nxpprog.py's main() (nxpprog.py:840-967),
// generalized from its single getopt-driven script into one function
// per mode.
package flow

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/exmachina-dev/nxp-flasher/isp"
	"github.com/exmachina-dev/nxp-flasher/transport"
)

// Flow owns one Session over one Transport for the duration of a
// single top-level action, matching the "one Session owns one
// Transport" rule of spec.md §5.
type Flow struct {
	Session   *isp.Session
	Transport transport.LineTransport
}

// New wraps t in a fresh Session and Flow.
func New(t transport.LineTransport) *Flow {
	return &Flow{Session: isp.NewSession(t), Transport: t}
}

// ConnectOptions is the subset of spec.md §6's configuration surface
// every flow action needs to synchronize with the chip.
type ConnectOptions struct {
	OscKHz int
	CPU    string // explicit cpu name; empty triggers auto-detect
}

func (f *Flow) connect(opts ConnectOptions) error {
	slog.Info("connecting to target", "osc_khz", opts.OscKHz, "cpu", opts.CPU)
	if err := f.Session.Connect(opts.OscKHz, opts.CPU); err != nil {
		slog.Error("sync failed", "step", "connect", "err", err)
		return err
	}
	slog.Info("synchronized", "chip", f.Session.Chip().Name)
	return nil
}

func (f *Flow) Close() error {
	return f.Transport.Close()
}

// Program is the "flash" action (spec.md §4.7 Program): connect,
// program the image, run the transport's post-program hook, then
// start execution at the image's base address, matching
// original_source/nxpprog.py's unconditional prog.start(flash_addr_base)
// call following prog_image (nxpprog.py:966-967).
func (f *Flow) Program(opts ConnectOptions, image []byte, baseAddr uint32, eraseAll bool) error {
	if err := f.connect(opts); err != nil {
		return err
	}
	slog.Info("programming", "bytes", len(image), "base", fmt.Sprintf("0x%08x", baseAddr), "erase_all", eraseAll)
	if err := f.Session.Program(image, baseAddr, eraseAll); err != nil {
		slog.Error("program failed", "step", "program", "err", err)
		return err
	}
	if err := f.Transport.PostProg(); err != nil {
		slog.Error("post-program hook failed", "step", "post_prog", "err", err)
		return err
	}
	slog.Info("starting execution", "addr", fmt.Sprintf("0x%08x", baseAddr))
	if err := f.Session.Start(baseAddr); err != nil {
		slog.Error("start failed", "step", "start", "err", err)
		return err
	}
	return nil
}

// EraseOnly is the erase-only action: connect then erase the whole chip.
func (f *Flow) EraseOnly(opts ConnectOptions) error {
	if err := f.connect(opts); err != nil {
		return err
	}
	slog.Info("erasing all flash sectors")
	if err := f.Session.EraseAll(); err != nil {
		slog.Error("erase failed", "step", "erase_all", "err", err)
		return err
	}
	return nil
}

// Read is the read action: connect then stream length bytes from addr
// into w, matching nxpprog.py's direct-to-file read_block streaming
// (nxpprog.py:610-643).
func (f *Flow) Read(opts ConnectOptions, addr, length uint32, w io.Writer) error {
	if err := f.connect(opts); err != nil {
		return err
	}
	slog.Info("reading flash", "addr", fmt.Sprintf("0x%08x", addr), "length", length)
	if err := f.Session.ReadBlock(addr, length, w); err != nil {
		slog.Error("read failed", "step", "read_block", "err", err)
		return err
	}
	return nil
}

// StartOnly is the start-only action: connect then start execution at
// addr without touching flash.
func (f *Flow) StartOnly(opts ConnectOptions, addr uint32) error {
	if err := f.connect(opts); err != nil {
		return err
	}
	slog.Info("starting execution", "addr", fmt.Sprintf("0x%08x", addr))
	if err := f.Session.Start(addr); err != nil {
		slog.Error("start failed", "step", "start", "err", err)
		return err
	}
	return nil
}

// SelectBank is the select-bank action: connect then issue S <n>.
func (f *Flow) SelectBank(opts ConnectOptions, bank int) error {
	if err := f.connect(opts); err != nil {
		return err
	}
	slog.Info("selecting flash bank", "bank", bank)
	ok, err := f.Session.SelectBank(bank)
	if err != nil {
		slog.Error("select-bank failed", "step", "select_bank", "err", err)
		return err
	}
	if !ok {
		return fmt.Errorf("flow: chip rejected bank %d", bank)
	}
	return nil
}

// ReadSerial is the read-serial action: connect then report the
// chip's 4-word serial number.
func (f *Flow) ReadSerial(opts ConnectOptions) ([4]uint32, error) {
	if err := f.connect(opts); err != nil {
		return [4]uint32{}, err
	}
	serial, err := f.Session.GetSerialNumber()
	if err != nil {
		slog.Error("read-serial failed", "step", "get_serial_number", "err", err)
		return [4]uint32{}, err
	}
	slog.Info("read serial number", "serial", serial)
	return serial, nil
}
