package net

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"drawoverlay/internal/state"

	"github.com/gorilla/websocket"
)

// Message types exchanged over the mirror socket.
const (
	MsgSegment = "segment"
	MsgSaved   = "saved"
)

type Message struct {
	Type    string         `json:"type"`
	Site    string         `json:"site,omitempty"`
	Seq     uint64         `json:"seq,omitempty"`
	Segment *state.Segment `json:"segment,omitempty"`
	Path    string         `json:"path,omitempty"`
}

const (
	writeWait  = 10 * time.Second
	sendBuffer = 256
)

type peer struct {
	conn *websocket.Conn
	send chan Message
	addr string
}

// Hub relays segments between every connected surface and announces saved
// drawings. The drawing peer never receives its own segments back, and
// segments that fail validation are not relayed.
type Hub struct {
	upgrader websocket.Upgrader
	peers    map[*peer]struct{}
	mu       sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		peers: make(map[*peer]struct{}),
	}
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "component", "hub", "remote", r.RemoteAddr, "err", err)
		return
	}

	p := &peer{conn: conn, send: make(chan Message, sendBuffer), addr: r.RemoteAddr}
	h.add(p)
	go p.writeLoop()
	h.readLoop(p)
}

func (h *Hub) add(p *peer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.peers[p] = struct{}{}
	slog.Info("peer connected", "component", "hub", "remote", p.addr, "peers", len(h.peers))
}

func (h *Hub) remove(p *peer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.peers[p]; !ok {
		return
	}
	delete(h.peers, p)
	close(p.send)
	slog.Info("peer disconnected", "component", "hub", "remote", p.addr, "peers", len(h.peers))
}

// Count returns the number of connected peers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.peers)
}

// Broadcast queues msg for every peer except exclude. Peers whose queue is
// full miss the message.
func (h *Hub) Broadcast(msg Message, exclude *peer) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for p := range h.peers {
		if p == exclude {
			continue
		}
		select {
		case p.send <- msg:
		default:
			slog.Warn("peer queue full, message dropped", "component", "hub", "remote", p.addr, "type", msg.Type)
		}
	}
}

// Saved announces a stored drawing to all peers.
func (h *Hub) Saved(path string) {
	h.Broadcast(Message{Type: MsgSaved, Path: path}, nil)
}

// Close disconnects every peer.
func (h *Hub) Close() {
	h.mu.Lock()
	peers := make([]*peer, 0, len(h.peers))
	for p := range h.peers {
		peers = append(peers, p)
	}
	h.mu.Unlock()

	for _, p := range peers {
		p.conn.Close()
	}
}

func (h *Hub) readLoop(p *peer) {
	defer func() {
		h.remove(p)
		p.conn.Close()
	}()

	for {
		var msg Message
		if err := p.conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Debug("peer read ended", "component", "hub", "remote", p.addr, "err", err)
			}
			return
		}
		if msg.Type != MsgSegment || msg.Segment == nil {
			continue
		}
		if err := msg.Segment.Validate(); err != nil {
			slog.Debug("invalid segment dropped", "component", "hub", "remote", p.addr, "err", err)
			continue
		}
		h.Broadcast(msg, p)
	}
}

func (p *peer) writeLoop() {
	defer p.conn.Close()
	for msg := range p.send {
		p.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := p.conn.WriteJSON(msg); err != nil {
			slog.Debug("peer write failed", "component", "hub", "remote", p.addr, "err", err)
			return
		}
	}
	p.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
}
