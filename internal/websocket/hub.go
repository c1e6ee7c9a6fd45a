package websocket

import (
	"sync"

	"github.com/lensvault/lensvault_server/internal/archive"
	"github.com/rs/zerolog/log"
)

// Hub tracks connected viewer sockets by session and fans archive progress
// out to them. It implements the download router's progress publisher.
type Hub struct {
	clients    map[*Client]bool
	bySession  map[string][]*Client // sessionId -> clients
	register   chan *Client
	unregister chan *Client
	progress   chan *progressBroadcast
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		bySession:  make(map[string][]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		progress:   make(chan *progressBroadcast, 256),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case broadcast := <-h.progress:
			h.broadcastProgress(broadcast)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = true
	h.bySession[client.sess.ID] = append(h.bySession[client.sess.ID], client)

	log.Info().
		Str("sessionId", client.sess.ID).
		Int("totalClients", len(h.clients)).
		Msg("[WS] Viewer connected")
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}

	delete(h.clients, client)
	close(client.send)

	sessionClients := h.bySession[client.sess.ID]
	for i, c := range sessionClients {
		if c == client {
			h.bySession[client.sess.ID] = append(sessionClients[:i], sessionClients[i+1:]...)
			break
		}
	}
	if len(h.bySession[client.sess.ID]) == 0 {
		delete(h.bySession, client.sess.ID)
	}

	log.Info().
		Str("sessionId", client.sess.ID).
		Int("totalClients", len(h.clients)).
		Msg("[WS] Viewer disconnected")
}

func (h *Hub) broadcastProgress(broadcast *progressBroadcast) {
	h.mu.RLock()
	clients := make([]*Client, len(h.bySession[broadcast.SessionID]))
	copy(clients, h.bySession[broadcast.SessionID])
	h.mu.RUnlock()

	if len(clients) == 0 {
		return
	}

	msg := &ProgressMessage{
		Type:           MessageTypeProgress,
		ProgressUpdate: broadcast.Update,
	}

	for _, client := range clients {
		select {
		case client.send <- msg:
		default:
			// Client buffer full, skip this message
			log.Warn().
				Str("sessionId", broadcast.SessionID).
				Msg("[WS] Client send buffer full, dropping progress update")
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// PublishProgress satisfies download.ProgressPublisher. Updates for sessions
// without a connected socket are dropped; progress is advisory.
func (h *Hub) PublishProgress(sessionID string, update archive.ProgressUpdate) {
	select {
	case h.progress <- &progressBroadcast{SessionID: sessionID, Update: update}:
	default:
		log.Warn().Str("sessionId", sessionID).Msg("[WS] Progress channel full, dropping update")
	}
}

func (h *Hub) GetStats() (totalClients, totalSessions int) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients), len(h.bySession)
}
