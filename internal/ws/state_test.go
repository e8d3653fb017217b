package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/matrixclock/internal/clock"
	"github.com/example/matrixclock/internal/settings"
)

type nopDriver struct {
	brightness []uint8
}

func (d *nopDriver) Frame(cols []byte) error { return nil }
func (d *nopDriver) SetBrightness(level uint8) error {
	d.brightness = append(d.brightness, level)
	return nil
}
func (d *nopDriver) Close() error { return nil }

type stubSource struct{}

func (stubSource) Sync(ctx context.Context) error           { return nil }
func (stubSource) Due() bool                                { return false }
func (stubSource) Valid() bool                              { return true }
func (stubSource) Clock(offset time.Duration) (h, m, s int) { return 12, 0, 0 }

func newTestState(t *testing.T) (*State, *nopDriver) {
	t.Helper()
	drv := &nopDriver{}
	clk, err := clock.New(drv, stubSource{}, nil, settings.Default(), clock.Options{Modules: 4})
	require.NoError(t, err)
	return NewState(clk), drv
}

func TestHandleHealth(t *testing.T) {
	s, _ := newTestState(t)
	rec := httptest.NewRecorder()
	s.HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	var body struct {
		Synced   bool              `json:"synced"`
		Frames   uint64            `json:"frames"`
		UptimeS  float64           `json:"uptime_s"`
		DST      bool              `json:"dst"`
		Settings settings.Settings `json:"settings"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.False(t, body.Synced) // no render has happened yet
	assert.Equal(t, uint64(0), body.Frames)
	assert.GreaterOrEqual(t, body.UptimeS, 0.0)
	assert.Equal(t, settings.Default(), body.Settings)
}

func TestControlRoundTrip(t *testing.T) {
	s, drv := newTestState(t)
	srv := httptest.NewServer(http.HandlerFunc(s.HandleControlWS))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	msg := map[string]any{
		"brightness":   11,
		"show_seconds": true,
		"utc_offset_s": 3600,
		"dst":          true,
	}
	require.NoError(t, conn.WriteJSON(msg))

	var status clock.Status
	require.NoError(t, conn.ReadJSON(&status))
	assert.Equal(t, uint8(11), status.Settings.Brightness)
	assert.True(t, status.Settings.ShowSeconds)
	assert.Equal(t, int32(3600), status.Settings.UTCOffset)
	assert.True(t, status.DST)
	assert.Equal(t, []uint8{11}, drv.brightness)
}

func TestControlIgnoresMalformedMessages(t *testing.T) {
	s, _ := newTestState(t)
	srv := httptest.NewServer(http.HandlerFunc(s.HandleControlWS))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	require.NoError(t, conn.WriteJSON(map[string]any{"twelve_hour": false}))

	var status clock.Status
	require.NoError(t, conn.ReadJSON(&status))
	assert.False(t, status.Settings.TwelveHour)
}

func TestPublishFansOutToFrameClients(t *testing.T) {
	s, _ := newTestState(t)
	srv := httptest.NewServer(http.HandlerFunc(s.HandleFramesWS))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	// The handler registers the client before returning, but give the
	// server a beat to finish the upgrade.
	time.Sleep(20 * time.Millisecond)
	s.Publish([]byte{0xAA, 0x55}, "12:34")

	conn.SetReadDeadline(time.Now().Add(time.Second))
	var msg struct {
		T       int64  `json:"t"`
		Text    string `json:"text"`
		Columns []byte `json:"columns"`
	}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "12:34", msg.Text)
	assert.Equal(t, []byte{0xAA, 0x55}, msg.Columns)
	assert.NotZero(t, msg.T)
}
