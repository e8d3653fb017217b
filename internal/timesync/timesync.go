// Package timesync keeps wall-clock time from an NTP server.
//
// One successful query anchors NTP time to the local monotonic clock; the
// clock then free-runs on the local crystal until the next sync. Failures
// are non-fatal: the previous anchor (if any) stays valid and the caller
// retries on its next scheduled interval.
package timesync

import (
	"context"
	"fmt"
	"time"

	"github.com/beevik/ntp"
	"github.com/rs/zerolog/log"
)

// QueryFunc performs one bounded NTP exchange and returns the current
// wall-clock time in UTC.
type QueryFunc func(server string, timeout time.Duration) (time.Time, error)

func defaultQuery(server string, timeout time.Duration) (time.Time, error) {
	resp, err := ntp.QueryWithOptions(server, ntp.QueryOptions{Timeout: timeout})
	if err != nil {
		return time.Time{}, err
	}
	if err := resp.Validate(); err != nil {
		return time.Time{}, err
	}
	return time.Now().Add(resp.ClockOffset).UTC(), nil
}

// Client polls an NTP server and serves extrapolated time between polls.
// It is not safe for concurrent use; the control loop owns it.
type Client struct {
	server   string
	timeout  time.Duration
	interval time.Duration

	query QueryFunc
	now   func() time.Time

	base        time.Time // NTP time at last successful sync
	anchor      time.Time // local time at last successful sync
	valid       bool
	lastAttempt time.Time
}

// New returns a client for the given server. timeout bounds a single
// exchange; interval is the spacing between sync attempts.
func New(server string, timeout, interval time.Duration) *Client {
	return &Client{
		server:   server,
		timeout:  timeout,
		interval: interval,
		query:    defaultQuery,
		now:      time.Now,
	}
}

// Sync performs one query attempt. The context caps the wait in addition
// to the client's own exchange timeout.
func (c *Client) Sync(ctx context.Context) error {
	c.lastAttempt = c.now()

	type result struct {
		t   time.Time
		err error
	}
	ch := make(chan result, 1)
	go func() {
		t, err := c.query(c.server, c.timeout)
		ch <- result{t, err}
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		if res.err != nil {
			return fmt.Errorf("timesync: query %s: %w", c.server, res.err)
		}
		c.base = res.t
		c.anchor = c.now()
		c.valid = true
		log.Info().Str("server", c.server).Time("time", res.t).Msg("NTP time updated")
		return nil
	}
}

// Due reports whether the resync interval has elapsed since the last
// attempt. A client that has never attempted is always due.
func (c *Client) Due() bool {
	if c.lastAttempt.IsZero() {
		return true
	}
	return c.now().Sub(c.lastAttempt) >= c.interval
}

// Valid reports whether at least one sample has been received since boot.
func (c *Client) Valid() bool { return c.valid }

// Now returns the extrapolated UTC time. ok is false before the first
// successful sync.
func (c *Client) Now() (time.Time, bool) {
	if !c.valid {
		return time.Time{}, false
	}
	return c.base.Add(c.now().Sub(c.anchor)), true
}

// Clock returns the hour, minute and second after applying the given UTC
// offset.
func (c *Client) Clock(offset time.Duration) (h, m, s int) {
	t, ok := c.Now()
	if !ok {
		return 0, 0, 0
	}
	return t.Add(offset).Clock()
}
