package i2c

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// I2C_SLAVE is the slave-address ioctl from <linux/i2c-dev.h>;
// golang.org/x/sys/unix does not export it.
const unixI2CSlave = 0x0703

// Device is a single-address handle on a Linux i2c-dev bus.
type Device struct {
	f *os.File
}

func Open(bus string, addr uint8) (*Device, error) {
	f, err := os.OpenFile(bus, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", bus, err)
	}
	if err := unix.IoctlSetInt(int(f.Fd()), unixI2CSlave, int(addr)); err != nil {
		f.Close()
		return nil, fmt.Errorf("select address 0x%02x on %s: %w", addr, bus, err)
	}
	return &Device{f: f}, nil
}

// WriteWordBE writes a 16-bit register value, high byte first, the
// register layout the INA219 uses.
func (d *Device) WriteWordBE(reg uint8, val uint16) error {
	buf := []byte{reg, byte(val >> 8), byte(val)}
	if _, err := d.f.Write(buf); err != nil {
		return fmt.Errorf("write register 0x%02x: %w", reg, err)
	}
	return nil
}

func (d *Device) ReadWordBE(reg uint8) (uint16, error) {
	if _, err := d.f.Write([]byte{reg}); err != nil {
		return 0, fmt.Errorf("select register 0x%02x: %w", reg, err)
	}
	buf := make([]byte, 2)
	if _, err := io.ReadFull(d.f, buf); err != nil {
		return 0, fmt.Errorf("read register 0x%02x: %w", reg, err)
	}
	return uint16(buf[0])<<8 | uint16(buf[1]), nil
}

func (d *Device) Close() error {
	return d.f.Close()
}
