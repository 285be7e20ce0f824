// Command nxpflash is the CLI entry point for the NXP ISP flasher:
// flag parsing, optional TOML profile loading, logging setup, and
// dispatch into the flow package's top-level actions.
//
// Grounded on original_source/nxpprog.py's __main__ block
// (nxpprog.py:852-967) for the flag/mode surface, and on
// lookbusy1344-arm_emulator's main.go for the flag.Bool/flag.String
// idiom this retrieval pack actually uses for a CLI's flag layer.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"

	"github.com/exmachina-dev/nxp-flasher/chip"
	"github.com/exmachina-dev/nxp-flasher/flow"
	"github.com/exmachina-dev/nxp-flasher/ihex"
	"github.com/exmachina-dev/nxp-flasher/isp"
	"github.com/exmachina-dev/nxp-flasher/transport"
)

// Exit codes distinguish the failing phase (spec.md §6 "Exit codes":
// nonzero on any fatal error, granularity implementation-defined).
const (
	exitOK = iota
	exitUsage
	exitConfig
	exitConnect
	exitOperation
)

type cliConfig struct {
	device     string
	cpu        string
	baud       int
	oscKHz     int
	control    bool
	xonxoff    bool
	filetype   string
	programmer string

	addr       uint32
	length     uint32
	eraseAll   bool
	eraseOnly  bool
	startOnly  bool
	startAddr  uint32
	bank       int
	hasBank    bool
	readFile   string
	readSerial bool
	list       bool

	configPath string
}

func main() {
	os.Exit(run())
}

func run() int {
	cfg, imagePath, setFlags, err := parseFlags()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitUsage
	}

	logLevel := new(slog.LevelVar)
	logLevel.Set(slog.LevelInfo)
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	if cfg.list {
		names := chip.Names()
		sort.Strings(names)
		for _, n := range names {
			fmt.Println(n)
		}
		return exitOK
	}

	if cfg.configPath != "" {
		profile, err := LoadProfile(cfg.configPath)
		if err != nil {
			slog.Error("failed to load config profile", "path", cfg.configPath, "err", err)
			return exitConfig
		}
		profile.applyDefaults(cfg, setFlags)
	}

	if cfg.device == "" {
		fmt.Fprintln(os.Stderr, "nxpflash: missing serial device argument")
		return exitUsage
	}

	t, err := newTransport(cfg)
	if err != nil {
		slog.Error("failed to open transport", "err", err)
		return exitConfig
	}
	f := flow.New(t)
	defer f.Close()

	opts := flow.ConnectOptions{OscKHz: cfg.oscKHz, CPU: cfg.cpu}

	switch {
	case cfg.eraseOnly:
		if err := f.EraseOnly(opts); err != nil {
			slog.Error("erase-only failed", "err", err)
			return exitCodeFor(err)
		}
	case cfg.startOnly:
		if err := f.StartOnly(opts, cfg.startAddr); err != nil {
			slog.Error("start-only failed", "err", err)
			return exitCodeFor(err)
		}
	case cfg.hasBank:
		if err := f.SelectBank(opts, cfg.bank); err != nil {
			slog.Error("select-bank failed", "err", err)
			return exitCodeFor(err)
		}
	case cfg.readFile != "":
		if cfg.length == 0 {
			fmt.Fprintln(os.Stderr, "nxpflash: --len must be nonzero for --read")
			return exitUsage
		}
		out, err := os.Create(cfg.readFile)
		if err != nil {
			slog.Error("failed to create read output file", "path", cfg.readFile, "err", err)
			return exitConfig
		}
		defer out.Close()
		if err := f.Read(opts, cfg.addr, cfg.length, out); err != nil {
			slog.Error("read failed", "err", err)
			return exitCodeFor(err)
		}
	case cfg.readSerial:
		serial, err := f.ReadSerial(opts)
		if err != nil {
			slog.Error("read-serial failed", "err", err)
			return exitCodeFor(err)
		}
		fmt.Printf("%d %d %d %d\n", serial[0], serial[1], serial[2], serial[3])
	default:
		if imagePath == "" {
			fmt.Fprintln(os.Stderr, "nxpflash: missing firmware image argument")
			return exitUsage
		}
		image, baseAddr, err := loadImage(imagePath, cfg)
		if err != nil {
			slog.Error("failed to load firmware image", "path", imagePath, "err", err)
			return exitConfig
		}
		if err := f.Program(opts, image, baseAddr, cfg.eraseAll); err != nil {
			slog.Error("program failed", "err", err)
			return exitCodeFor(err)
		}
	}

	return exitOK
}

// exitCodeFor distinguishes a failure during the connect/handshake
// phase (spec.md §4.6) from one during the subsequent operation, so
// callers can tell "wrong cable/cpu" apart from "flash write failed"
// by exit code alone.
func exitCodeFor(err error) int {
	var syncTimeout *isp.SyncTimeout
	var syncMismatch *isp.SyncMismatch
	var oscMismatch *isp.OscMismatch
	var autoDetectFailed *isp.AutoDetectFailed
	var unknownChip *isp.UnknownChip
	switch {
	case errors.As(err, &syncTimeout),
		errors.As(err, &syncMismatch),
		errors.As(err, &oscMismatch),
		errors.As(err, &autoDetectFailed),
		errors.As(err, &unknownChip):
		return exitConnect
	default:
		return exitOperation
	}
}

func parseFlags() (cfg *cliConfig, imagePath string, setFlags map[string]bool, err error) {
	cfg = &cliConfig{
		baud:     transport.DefaultBaud,
		oscKHz:   transport.DefaultOscKHz,
		filetype: "bin",
	}
	setFlags = map[string]bool{}

	var addrStr, startStr string
	flag.StringVar(&cfg.cpu, "cpu", "", "explicit CPU name, skips auto-detection")
	flag.IntVar(&cfg.baud, "baud", cfg.baud, "serial baud rate")
	flag.IntVar(&cfg.oscKHz, "oscfreq", cfg.oscKHz, "oscillator frequency in kHz")
	flag.StringVar(&addrStr, "addr", "0", "flash/read base address, hex (0x...) or decimal")
	flag.StringVar(&cfg.filetype, "filetype", cfg.filetype, "firmware image type: bin or ihex")
	flag.BoolVar(&cfg.control, "control", false, "use RTS/DTR to drive target reset into ISP mode")
	flag.BoolVar(&cfg.xonxoff, "xonxoff", false, "enable software (xon/xoff) flow control")
	flag.BoolVar(&cfg.eraseAll, "eraseall", false, "erase the whole chip before programming")
	flag.BoolVar(&cfg.eraseOnly, "eraseonly", false, "erase the whole chip and exit")
	flag.BoolVar(&cfg.list, "list", false, "list supported cpu names and exit")
	flag.StringVar(&startStr, "start", "", "start execution at this address (hex or decimal) and exit")
	flag.IntVar(&cfg.bank, "bank", -1, "select this flash bank and exit")
	flag.StringVar(&cfg.readFile, "read", "", "read flash to this file and exit")
	var lengthStr string
	flag.StringVar(&lengthStr, "len", "0", "byte count for --read, hex or decimal")
	flag.BoolVar(&cfg.readSerial, "serial", false, "report the chip's serial number and exit")
	flag.StringVar(&cfg.programmer, "programmer", "serial", "transport: serial or buspirate")
	flag.StringVar(&cfg.configPath, "config", "", "optional TOML profile file")
	flag.Parse()

	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })

	if cfg.list {
		return cfg, "", setFlags, nil
	}

	cfg.addr, err = parseUint32(addrStr)
	if err != nil {
		return nil, "", nil, fmt.Errorf("nxpflash: invalid --addr %q: %w", addrStr, err)
	}
	cfg.length, err = parseUint32(lengthStr)
	if err != nil {
		return nil, "", nil, fmt.Errorf("nxpflash: invalid --len %q: %w", lengthStr, err)
	}
	if startStr != "" {
		cfg.startOnly = true
		cfg.startAddr, err = parseUint32(startStr)
		if err != nil {
			return nil, "", nil, fmt.Errorf("nxpflash: invalid --start %q: %w", startStr, err)
		}
	}
	cfg.hasBank = setFlags["bank"]

	if cfg.filetype != "bin" && cfg.filetype != "ihex" {
		return nil, "", nil, fmt.Errorf("nxpflash: invalid --filetype %q", cfg.filetype)
	}

	args := flag.Args()
	if len(args) > 0 {
		cfg.device = args[0]
	}
	if len(args) > 1 {
		imagePath = args[1]
	}
	return cfg, imagePath, setFlags, nil
}

// parseUint32 accepts decimal or 0x-prefixed hex, matching
// nxpprog.py's int(a, 0) calls (spec.md §9 "Number parsing").
func parseUint32(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}

func newTransport(cfg *cliConfig) (transport.LineTransport, error) {
	switch cfg.programmer {
	case "buspirate":
		return transport.NewBusPirate(cfg.device, cfg.baud), nil
	case "", "serial":
		return transport.NewSerialPort(transport.SerialConfig{
			Device:  cfg.device,
			Baud:    cfg.baud,
			XonXoff: cfg.xonxoff,
			Control: cfg.control,
		}), nil
	default:
		return nil, fmt.Errorf("nxpflash: unknown programmer %q", cfg.programmer)
	}
}

func loadImage(path string, cfg *cliConfig) (image []byte, baseAddr uint32, err error) {
	if cfg.filetype == "ihex" {
		f, err := os.Open(path)
		if err != nil {
			return nil, 0, err
		}
		defer f.Close()
		base, data, err := ihex.Parse(f)
		if err != nil {
			return nil, 0, err
		}
		return data, base, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, err
	}
	return data, cfg.addr, nil
}
