// Package display pushes rendered column buffers to an output device.
package display

// Driver abstracts the physical matrix chain (or its simulator).
type Driver interface {
	// Frame pushes a full column buffer as produced by frame.Buffer.
	Frame(cols []byte) error
	// SetBrightness sets the LED intensity, 0..15.
	SetBrightness(level uint8) error
	// Close releases the device, blanking it where supported.
	Close() error
}
