package display

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/spi/spitest"

	"github.com/example/matrixclock/internal/frame"
)

// initStream is the expected wake-up sequence for a single-module chain.
func initStream(brightness byte) []byte {
	out := []byte{
		0x0F, 0x00, // display test off
		0x0B, 0x07, // scan all eight columns
		0x09, 0x00, // raw data, no Code B decode
		0x0A, brightness,
		0x0C, 0x01, // leave shutdown
	}
	for reg := byte(1); reg <= 8; reg++ {
		out = append(out, reg, 0x00)
	}
	return out
}

func TestNewMAX7219Validation(t *testing.T) {
	var buf bytes.Buffer
	_, err := NewMAX7219(spitest.NewRecordRaw(&buf), 0, 6)
	assert.Error(t, err)
	_, err = NewMAX7219(spitest.NewRecordRaw(&buf), -2, 6)
	assert.Error(t, err)
}

func TestNewMAX7219InitSequence(t *testing.T) {
	var buf bytes.Buffer
	_, err := NewMAX7219(spitest.NewRecordRaw(&buf), 1, 6)
	require.NoError(t, err)
	assert.Equal(t, initStream(0x06), buf.Bytes())
}

func TestInitBroadcastsToWholeChain(t *testing.T) {
	var buf bytes.Buffer
	_, err := NewMAX7219(spitest.NewRecordRaw(&buf), 4, 3)
	require.NoError(t, err)
	// 5 config writes + 8 blanking writes, 2 bytes per module each.
	assert.Len(t, buf.Bytes(), 13*4*2)
	// First transfer: display test off repeated for all four chips.
	assert.Equal(t, []byte{0x0F, 0x00, 0x0F, 0x00, 0x0F, 0x00, 0x0F, 0x00}, buf.Bytes()[:8])
}

func TestFrameWiresColumnsRightToLeft(t *testing.T) {
	var buf bytes.Buffer
	d, err := NewMAX7219(spitest.NewRecordRaw(&buf), 1, 6)
	require.NoError(t, err)
	buf.Reset()

	cols := make([]byte, frame.ModuleWidth+frame.GuardColumns)
	for i := range cols {
		cols[i] = byte(i)
	}
	require.NoError(t, d.Frame(cols))

	// Register r carries the column that sits r-1 steps in from the left
	// edge, i.e. buffer index len-r. The guard margin never hits the wire.
	var want []byte
	for reg := byte(1); reg <= 8; reg++ {
		want = append(want, reg, cols[len(cols)-int(reg)])
	}
	assert.Equal(t, want, buf.Bytes())
	// Guard columns hold values 0..7 here; data bytes must all come from
	// the visible range.
	for i := 1; i < len(buf.Bytes()); i += 2 {
		assert.GreaterOrEqual(t, int(buf.Bytes()[i]), frame.GuardColumns)
	}
}

func TestFrameRejectsShortBuffer(t *testing.T) {
	var buf bytes.Buffer
	d, err := NewMAX7219(spitest.NewRecordRaw(&buf), 2, 6)
	require.NoError(t, err)
	assert.Error(t, d.Frame(make([]byte, 8)))
}

func TestSetBrightnessMasksLevel(t *testing.T) {
	var buf bytes.Buffer
	d, err := NewMAX7219(spitest.NewRecordRaw(&buf), 1, 6)
	require.NoError(t, err)
	buf.Reset()

	require.NoError(t, d.SetBrightness(0xF7))
	assert.Equal(t, []byte{0x0A, 0x07}, buf.Bytes())
}

func TestCloseBlanksAndShutsDown(t *testing.T) {
	var buf bytes.Buffer
	d, err := NewMAX7219(spitest.NewRecordRaw(&buf), 1, 6)
	require.NoError(t, err)
	buf.Reset()

	require.NoError(t, d.Close())
	want := []byte{}
	for reg := byte(1); reg <= 8; reg++ {
		want = append(want, reg, 0x00)
	}
	want = append(want, 0x0C, 0x00)
	assert.Equal(t, want, buf.Bytes())
}
