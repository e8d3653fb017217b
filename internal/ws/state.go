// Package ws exposes the clock over HTTP: a health snapshot, a websocket
// frame preview, and a websocket control channel for adjusting settings
// at runtime.
package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/example/matrixclock/internal/clock"
)

type State struct {
	mu        sync.RWMutex
	clk       *clock.Clock
	clients   map[*websocket.Conn]bool
	startTime time.Time
}

func NewState(clk *clock.Clock) *State {
	return &State{
		clk:       clk,
		clients:   map[*websocket.Conn]bool{},
		startTime: time.Now(),
	}
}

// Publish is wired as the clock's frame sink.
func (s *State) Publish(cols []byte, text string) {
	type frameMsg struct {
		T       int64  `json:"t"`
		Text    string `json:"text"`
		Columns []byte `json:"columns"`
	}
	b, _ := json.Marshal(frameMsg{T: time.Now().UnixNano(), Text: text, Columns: cols})
	s.mu.RLock()
	defer s.mu.RUnlock()
	for c := range s.clients {
		c.SetWriteDeadline(time.Now().Add(200 * time.Millisecond))
		if err := c.WriteMessage(websocket.TextMessage, b); err != nil {
			log.Debug().Err(err).Msg("write frame")
		}
	}
}

func (s *State) HandleFramesWS(w http.ResponseWriter, r *http.Request) {
	up := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.clients[conn] = true
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.clients, conn)
			s.mu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *State) HandleControlWS(w http.ResponseWriter, r *http.Request) {
	up := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg map[string]any
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		s.applyControl(msg)
		s.sendStatus(conn)
	}
}

func (s *State) HandleHealth(w http.ResponseWriter, r *http.Request) {
	st := s.clk.Snapshot()
	resp := map[string]any{
		"synced":   st.Synced,
		"frames":   st.Frames,
		"uptime_s": time.Since(s.startTime).Seconds(),
		"dst":      st.DST,
		"settings": st.Settings,
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *State) applyControl(msg map[string]any) {
	if v, ok := msg["brightness"].(float64); ok {
		if err := s.clk.SetBrightness(uint8(v)); err != nil {
			log.Warn().Err(err).Msg("set brightness")
		}
	}
	if v, ok := msg["twelve_hour"].(bool); ok {
		if err := s.clk.SetTwelveHour(v); err != nil {
			log.Warn().Err(err).Msg("set twelve_hour")
		}
	}
	if v, ok := msg["show_seconds"].(bool); ok {
		if err := s.clk.SetShowSeconds(v); err != nil {
			log.Warn().Err(err).Msg("set show_seconds")
		}
	}
	if v, ok := msg["utc_offset_s"].(float64); ok {
		if err := s.clk.SetUTCOffset(int32(v)); err != nil {
			log.Warn().Err(err).Msg("set utc_offset_s")
		}
	}
	if v, ok := msg["dst"].(bool); ok {
		s.clk.SetDST(v)
	}
}

func (s *State) sendStatus(conn *websocket.Conn) {
	b, _ := json.Marshal(s.clk.Snapshot())
	conn.SetWriteDeadline(time.Now().Add(200 * time.Millisecond))
	_ = conn.WriteMessage(websocket.TextMessage, b)
}
