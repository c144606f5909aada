package net

import (
	"context"
	"fmt"
	"sync"
	"time"

	"drawoverlay/internal/state"

	"github.com/gorilla/websocket"
)

// Mirror is a surface's connection to a hub. Locally drawn segments go out
// through Send; remote ones arrive through the callbacks given to Run.
type Mirror struct {
	conn *websocket.Conn
	seq  *state.Sequencer
	mu   sync.Mutex
}

func DialMirror(ctx context.Context, url string, seq *state.Sequencer) (*Mirror, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial mirror %s: %w", url, err)
	}
	return &Mirror{conn: conn, seq: seq}, nil
}

func (m *Mirror) Send(seg state.Segment) error {
	msg := Message{Type: MsgSegment, Site: m.seq.Site(), Seq: m.seq.Next(), Segment: &seg}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return m.conn.WriteJSON(msg)
}

// Run reads until the connection closes. Echoes of this site's own
// segments are skipped.
func (m *Mirror) Run(onSegment func(state.Segment), onSaved func(path string)) error {
	for {
		var msg Message
		if err := m.conn.ReadJSON(&msg); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}

		switch msg.Type {
		case MsgSegment:
			if msg.Segment == nil || msg.Site == m.seq.Site() {
				continue
			}
			m.seq.Observe(msg.Seq)
			if onSegment != nil {
				onSegment(*msg.Segment)
			}
		case MsgSaved:
			if onSaved != nil {
				onSaved(msg.Path)
			}
		}
	}
}

func (m *Mirror) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return m.conn.Close()
}
