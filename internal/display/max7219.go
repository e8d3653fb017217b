package display

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"

	"github.com/example/matrixclock/internal/frame"
)

// MAX7219 register map. Registers 1..8 are the per-column data digits;
// the rest configure the chip.
const (
	regNoop        byte = 0x00
	regDecodeMode  byte = 0x09
	regIntensity   byte = 0x0A
	regScanLimit   byte = 0x0B
	regShutdown    byte = 0x0C
	regDisplayTest byte = 0x0F
)

// MAX7219 drives a daisy chain of 8x8 matrix modules over SPI.
type MAX7219 struct {
	conn    spi.Conn
	modules int
}

// NewMAX7219 connects the chain on the given port and runs the wake-up
// sequence: display test off, all eight columns scanned, raw (non-decoded)
// data, chain taken out of shutdown.
func NewMAX7219(p spi.Port, modules int, brightness uint8) (*MAX7219, error) {
	if modules <= 0 {
		return nil, errors.New("max7219: invalid cascade length")
	}
	c, err := p.Connect(10*physic.MegaHertz, spi.Mode0, 8)
	if err != nil {
		return nil, fmt.Errorf("max7219: connect: %w", err)
	}
	d := &MAX7219{conn: c, modules: modules}

	init := [][2]byte{
		{regDisplayTest, 0x00},
		{regScanLimit, 0x07},
		{regDecodeMode, 0x00},
		{regIntensity, brightness & 0x0F},
		{regShutdown, 0x01},
	}
	for _, cmd := range init {
		if err := d.broadcast(cmd[0], cmd[1]); err != nil {
			return nil, err
		}
	}
	if err := d.blank(); err != nil {
		return nil, err
	}
	return d, nil
}

// broadcast writes the same register/value pair to every chip in the
// chain in one shift.
func (d *MAX7219) broadcast(register, value byte) error {
	w := make([]byte, d.modules*2)
	for i := 0; i < d.modules; i++ {
		w[i*2] = register
		w[i*2+1] = value
	}
	if err := d.conn.Tx(w, nil); err != nil {
		return fmt.Errorf("max7219: tx reg 0x%02X: %w", register, err)
	}
	return nil
}

func (d *MAX7219) blank() error {
	for reg := byte(1); reg <= 8; reg++ {
		if err := d.broadcast(reg, 0x00); err != nil {
			return err
		}
	}
	return nil
}

// Frame pushes a column buffer to the chain. cols must be at least
// modules*8+GuardColumns long; the guard margin is never transmitted.
// One transfer shifts one data register through the whole cascade, last
// module first, so eight transfers refresh the full chain.
func (d *MAX7219) Frame(cols []byte) error {
	if len(cols) < d.modules*frame.ModuleWidth+frame.GuardColumns {
		return errors.New("max7219: short column buffer")
	}
	w := make([]byte, d.modules*2)
	for reg := byte(1); reg <= 8; reg++ {
		for m := d.modules - 1; m >= 0; m-- {
			// Physical column of this module/register, counted from
			// the left edge of the chain; the buffer stores columns
			// right-to-left.
			phys := m*frame.ModuleWidth + int(reg-1)
			col := cols[len(cols)-1-phys]
			w[(d.modules-1-m)*2] = reg
			w[(d.modules-1-m)*2+1] = col
		}
		if err := d.conn.Tx(w, nil); err != nil {
			return fmt.Errorf("max7219: tx frame: %w", err)
		}
	}
	return nil
}

// SetBrightness writes the intensity register on every chip. Values above
// 15 are masked into range.
func (d *MAX7219) SetBrightness(level uint8) error {
	return d.broadcast(regIntensity, level&0x0F)
}

// Close blanks the chain and puts it into shutdown.
func (d *MAX7219) Close() error {
	if err := d.blank(); err != nil {
		return err
	}
	return d.broadcast(regShutdown, 0x00)
}
