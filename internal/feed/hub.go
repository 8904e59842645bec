// Package feed fans crawl progress out to observers. Dashboards connect
// over websocket, line-oriented tools over plain TCP; both see the same
// JSON event stream the searching client does.
package feed

import (
	"encoding/json"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"bookhub/internal/crawler"
)

const writeWait = 2 * time.Second

type Hub struct {
	mu  sync.Mutex
	tcp map[net.Conn]struct{}
	ws  map[*websocket.Conn]struct{}
}

type Stats struct {
	TCPObservers int `json:"tcp_observers"`
	WSObservers  int `json:"ws_observers"`
}

func NewHub() *Hub {
	return &Hub{
		tcp: make(map[net.Conn]struct{}),
		ws:  make(map[*websocket.Conn]struct{}),
	}
}

func (h *Hub) Add(conn net.Conn) {
	h.mu.Lock()
	h.tcp[conn] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) Remove(conn net.Conn) {
	h.mu.Lock()
	delete(h.tcp, conn)
	h.mu.Unlock()
	_ = conn.Close()
}

func (h *Hub) AddWS(ws *websocket.Conn) {
	h.mu.Lock()
	h.ws[ws] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) RemoveWS(ws *websocket.Conn) {
	h.mu.Lock()
	delete(h.ws, ws)
	h.mu.Unlock()
	_ = ws.Close()
}

// Broadcast sends one crawl event as a JSON line to every observer.
// Slow or dead observers are dropped rather than waited on; the crawl
// must never stall on a spectator.
func (h *Hub) Broadcast(ev crawler.Event) {
	line, err := json.Marshal(ev)
	if err != nil {
		return
	}
	line = append(line, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.tcp {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if _, err := conn.Write(line); err != nil {
			_ = conn.Close()
			delete(h.tcp, conn)
		}
	}
	for ws := range h.ws {
		_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
		if err := ws.WriteMessage(websocket.TextMessage, line); err != nil {
			_ = ws.Close()
			delete(h.ws, ws)
		}
	}
}

func (h *Hub) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Stats{
		TCPObservers: len(h.tcp),
		WSObservers:  len(h.ws),
	}
}

type greeting struct {
	Type      string `json:"type"`
	Transport string `json:"transport"`
	Observers int    `json:"observers"`
}

// Welcome tells a new TCP observer what it connected to.
func (h *Hub) Welcome(conn net.Conn) {
	s := h.Stats()
	b, err := json.Marshal(greeting{
		Type:      "welcome",
		Transport: "tcp",
		Observers: s.TCPObservers + s.WSObservers,
	})
	if err != nil {
		return
	}
	_, _ = conn.Write(append(b, '\n'))
}
