// Package clock runs the single-threaded control loop: poll the time
// source, re-render once per seconds change, push frames to the driver.
package clock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/example/matrixclock/internal/clockface"
	"github.com/example/matrixclock/internal/display"
	"github.com/example/matrixclock/internal/frame"
	"github.com/example/matrixclock/internal/settings"
)

// TimeSource is the network time collaborator. timesync.Client satisfies
// it; tests inject a stub.
type TimeSource interface {
	Sync(ctx context.Context) error
	Due() bool
	Valid() bool
	Clock(offset time.Duration) (h, m, s int)
}

// Sink receives a copy of every pushed frame (the ws preview feed).
type Sink func(cols []byte, text string)

// Options tune the loop.
type Options struct {
	Modules int
	// DST applies the one-hour daylight-saving shift.
	DST bool
	// Tick is the poll interval. Zero means 100ms.
	Tick time.Duration
}

// Clock owns the column buffer, the render cursor and the current
// settings. The buffer is touched only by the Run goroutine; the mutex
// guards the settings snapshot, which the control endpoint mutates.
type Clock struct {
	drv   display.Driver
	src   TimeSource
	store *settings.Store
	buf   *frame.Buffer
	opts  Options
	sink  Sink

	mu     sync.Mutex
	set    settings.Settings
	dst    bool
	synced bool
	frames uint64

	// render latch: only redraw when the displayed second changes
	lastSec int
	force   bool
	errUp   bool
}

// New builds a clock. store may be nil (nothing is persisted then).
func New(drv display.Driver, src TimeSource, store *settings.Store, set settings.Settings, opts Options) (*Clock, error) {
	if drv == nil || src == nil {
		return nil, errors.New("clock: driver and time source are required")
	}
	if opts.Tick <= 0 {
		opts.Tick = 100 * time.Millisecond
	}
	buf, err := frame.NewBuffer(opts.Modules)
	if err != nil {
		return nil, err
	}
	return &Clock{
		drv:     drv,
		src:     src,
		store:   store,
		buf:     buf,
		opts:    opts,
		set:     set,
		dst:     opts.DST,
		lastSec: -1,
	}, nil
}

// SetSink registers the frame feed. Call before Run.
func (c *Clock) SetSink(s Sink) { c.sink = s }

// Run drives the loop until ctx is canceled. The first sync attempt
// happens on the first tick; until it succeeds the display shows the
// error pattern.
func (c *Clock) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.opts.Tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.step(ctx)
		}
	}
}

func (c *Clock) step(ctx context.Context) {
	if c.src.Due() {
		if err := c.src.Sync(ctx); err != nil {
			log.Warn().Err(err).Msg("time sync failed, will try again later")
		}
	}
	c.render()
}

// render draws at most one frame per call. Writes to the buffer are
// idempotent per pass, so a failed driver push leaves no corrupt state.
func (c *Clock) render() {
	c.mu.Lock()
	set := c.set
	dst := c.dst
	force := c.force
	c.force = false
	c.mu.Unlock()

	if !c.src.Valid() {
		c.setSynced(false)
		if c.errUp {
			return
		}
		c.buf.ErrorPattern()
		if err := c.drv.Frame(c.buf.Columns()); err != nil {
			log.Warn().Err(err).Msg("display write failed")
			return
		}
		c.errUp = true
		c.lastSec = -1
		c.publish("")
		return
	}
	c.setSynced(true)

	h, m, s := c.src.Clock(time.Duration(set.UTCOffset) * time.Second)
	if s == c.lastSec && !force && !c.errUp {
		return
	}
	c.lastSec = s
	c.errUp = false

	text := clockface.Format(h, m, s, clockface.Options{
		TwelveHour:  set.TwelveHour,
		ShowSeconds: set.ShowSeconds,
		DST:         dst,
	})
	c.buf.Clear()
	off := (c.buf.Visible() - frame.StringWidth(text)) / 2
	if off < 0 {
		off = 0
	}
	c.buf.DrawString(text, off)
	if err := c.drv.Frame(c.buf.Columns()); err != nil {
		log.Warn().Err(err).Msg("display write failed")
		return
	}
	c.publish(text)
}

func (c *Clock) publish(text string) {
	c.mu.Lock()
	c.frames++
	c.mu.Unlock()
	if c.sink == nil {
		return
	}
	cols := make([]byte, len(c.buf.Columns()))
	copy(cols, c.buf.Columns())
	c.sink(cols, text)
}

func (c *Clock) setSynced(v bool) {
	c.mu.Lock()
	c.synced = v
	c.mu.Unlock()
}

// Status is the /health snapshot.
type Status struct {
	Synced   bool              `json:"synced"`
	Frames   uint64            `json:"frames"`
	DST      bool              `json:"dst"`
	Settings settings.Settings `json:"settings"`
}

func (c *Clock) Snapshot() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{Synced: c.synced, Frames: c.frames, DST: c.dst, Settings: c.set}
}

// SetBrightness applies and persists a new intensity (masked to 0..15).
func (c *Clock) SetBrightness(level uint8) error {
	if err := c.drv.SetBrightness(level); err != nil {
		return err
	}
	return c.apply(func(s *settings.Settings) { s.Brightness = level & 0x0F })
}

func (c *Clock) SetTwelveHour(v bool) error {
	return c.apply(func(s *settings.Settings) { s.TwelveHour = v })
}

func (c *Clock) SetShowSeconds(v bool) error {
	return c.apply(func(s *settings.Settings) { s.ShowSeconds = v })
}

// SetUTCOffset takes seconds east of UTC.
func (c *Clock) SetUTCOffset(seconds int32) error {
	return c.apply(func(s *settings.Settings) { s.UTCOffset = seconds })
}

// SetDST toggles the daylight-saving shift. Not persisted; it is a
// runtime flag, not a stored setting.
func (c *Clock) SetDST(v bool) {
	c.mu.Lock()
	c.dst = v
	c.force = true
	c.mu.Unlock()
}

func (c *Clock) apply(mut func(*settings.Settings)) error {
	c.mu.Lock()
	mut(&c.set)
	set := c.set
	c.force = true
	c.mu.Unlock()
	if c.store == nil {
		return nil
	}
	return c.store.Save(set)
}
