package transport

// OpenPTY opens a fresh pseudoterminal pair, unlocked and ready to
// use, mirroring the teacher's pty_linux.go OpenPTY. Tests use this
// as a two-ended stand-in for a real serial cable: the test drives
// the master side as the would-be bootloader while the code under
// test talks to the slave side as if it were /dev/ttyUSB0.
func OpenPTY() (master, slave *Port, err error) {
	master, err = openFD("/dev/ptmx")
	if err != nil {
		return nil, nil, err
	}
	if err := master.SetLockPT(false); err != nil {
		master.Close()
		return nil, nil, err
	}
	slave, err = master.GetPTPeer(0)
	if err != nil {
		master.Close()
		return nil, nil, err
	}
	attrs, err := slave.GetAttr()
	if err != nil {
		master.Close()
		slave.Close()
		return nil, nil, err
	}
	attrs.MakeRaw()
	attrs.Cflag |= CREAD | CLOCAL
	attrs.SetSpeed(9600)
	if err := slave.SetAttr(TCSANOW, attrs); err != nil {
		master.Close()
		slave.Close()
		return nil, nil, err
	}
	return master, slave, nil
}
