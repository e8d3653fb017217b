// Package settings persists the user-adjustable display configuration.
//
// The blob is a fixed 20-byte block, EEPROM-style: five little-endian
// uint32 slots holding an initialization sentinel, brightness, the seconds
// flag, the 12/24-hour flag and the UTC offset in seconds.
package settings

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
)

const (
	slotSize = 4
	blobSize = 5 * slotSize

	// sentinel marks a blob written by this program. Any other value in
	// slot 0 means first boot (or corruption) and defaults apply.
	sentinel uint32 = 0x4D435331 // "MCS1"
)

// Settings is the in-memory form of the persisted block.
type Settings struct {
	Brightness  uint8 // 0..15, MAX7219 intensity register range
	ShowSeconds bool
	TwelveHour  bool
	UTCOffset   int32 // seconds east of UTC
}

// Default returns the compiled-in first-boot settings.
func Default() Settings {
	return Settings{
		Brightness:  6,
		ShowSeconds: false,
		TwelveHour:  true,
		UTCOffset:   -7 * 60 * 60,
	}
}

// Store reads and writes the settings blob at a fixed path.
type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load returns the persisted settings. A missing, short or unsentineled
// blob yields the defaults, which are written back so the next boot finds
// an initialized store.
func (st *Store) Load() (Settings, error) {
	raw, err := os.ReadFile(st.path)
	if err != nil || len(raw) < blobSize || binary.LittleEndian.Uint32(raw[0:4]) != sentinel {
		if err == nil {
			log.Warn().Str("path", st.path).Msg("settings blob uninitialized; writing defaults")
		}
		def := Default()
		if werr := st.Save(def); werr != nil {
			return def, werr
		}
		return def, nil
	}
	return unpack(raw), nil
}

// Save writes the full 20-byte blob.
func (st *Store) Save(s Settings) error {
	if err := os.WriteFile(st.path, pack(s), 0o644); err != nil {
		return fmt.Errorf("settings: write %s: %w", st.path, err)
	}
	return nil
}

func pack(s Settings) []byte {
	raw := make([]byte, blobSize)
	binary.LittleEndian.PutUint32(raw[0:4], sentinel)
	binary.LittleEndian.PutUint32(raw[4:8], uint32(s.Brightness&0x0F))
	binary.LittleEndian.PutUint32(raw[8:12], flag(s.ShowSeconds))
	binary.LittleEndian.PutUint32(raw[12:16], flag(s.TwelveHour))
	binary.LittleEndian.PutUint32(raw[16:20], uint32(s.UTCOffset))
	return raw
}

func unpack(raw []byte) Settings {
	return Settings{
		Brightness:  uint8(binary.LittleEndian.Uint32(raw[4:8]) & 0x0F),
		ShowSeconds: binary.LittleEndian.Uint32(raw[8:12]) != 0,
		TwelveHour:  binary.LittleEndian.Uint32(raw[12:16]) != 0,
		UTCOffset:   int32(binary.LittleEndian.Uint32(raw[16:20])),
	}
}

func flag(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
