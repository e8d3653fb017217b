package display

import (
	"image"
	"image/color"

	conndisplay "periph.io/x/conn/v3/display"
	"periph.io/x/extra/devices/screen"

	"github.com/example/matrixclock/internal/frame"
)

// Sim renders frames to the terminal instead of hardware. It stands in
// for the chain whenever no SPI port is available.
type Sim struct {
	drawer     conndisplay.Drawer
	modules    int
	brightness uint8
	frames     uint64
}

// NewSim returns a console-backed driver for the given cascade length.
func NewSim(modules int) *Sim {
	return &Sim{
		drawer:     screen.New(modules * frame.ModuleWidth),
		modules:    modules,
		brightness: 8,
	}
}

// Frames reports how many frames have been pushed, for tests and /health.
func (s *Sim) Frames() uint64 { return s.frames }

// Frame draws the visible columns as an 8-row image. Stored columns are
// bit-reversed with bit 7 at the top row, the same electrical order the
// real chain expects.
func (s *Sim) Frame(cols []byte) error {
	visible := s.modules * frame.ModuleWidth
	img := image.NewNRGBA(image.Rect(0, 0, visible, frame.ModuleWidth))
	// Intensity register range 0..15 mapped onto 8-bit luminance.
	lum := uint8(int(s.brightness)*14 + 45)
	for x := 0; x < visible && x < len(cols); x++ {
		col := cols[len(cols)-1-x]
		for y := 0; y < frame.ModuleWidth; y++ {
			if col>>(7-y)&1 == 1 {
				img.SetNRGBA(x, y, color.NRGBA{R: lum, G: lum, A: 255})
			}
		}
	}
	s.frames++
	return s.drawer.Draw(s.drawer.Bounds(), img, image.Point{})
}

func (s *Sim) SetBrightness(level uint8) error {
	s.brightness = level & 0x0F
	return nil
}

func (s *Sim) Close() error {
	return s.drawer.Halt()
}
