// SPDX-License-Identifier: EPL-2.0

package server

import (
	"context"
	"log/slog"
	"time"
)

// Message is what the hub sends to every connected client.
type Message struct {
	Type      string    `json:"type"` // "swap", "tracks", "reset"
	Ref       string    `json:"ref,omitempty"`
	Format    string    `json:"format,omitempty"`
	Swapped   bool      `json:"swapped"`
	Position  float64   `json:"position"` // seconds
	Playing   bool      `json:"playing"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Hub fans messages out to websocket clients. All client bookkeeping
// happens on the Run goroutine.
type Hub struct {
	logger *slog.Logger

	clients    map[*Client]struct{}
	broadcast  chan Message
	register   chan *Client
	unregister chan *Client
	count      chan int
	done       chan struct{}
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		logger:     logger,
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan Message, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		count:      make(chan int),
		done:       make(chan struct{}),
	}
}

// Run serves the hub until ctx is done, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			return

		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.logger.Debug("websocket client connected", "remote", c.remote, "clients", len(h.clients))

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				h.logger.Debug("websocket client disconnected", "remote", c.remote, "clients", len(h.clients))
			}

		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// slow reader
					delete(h.clients, c)
					close(c.send)
				}
			}

		case h.count <- len(h.clients):
		}
	}
}

// Broadcast queues msg for all clients. It never blocks; when the queue is
// full the message is dropped.
func (h *Hub) Broadcast(msg Message) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}

	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("websocket broadcast queue full, dropping message", "type", msg.Type)
	}
}

// Clients reports the number of connected clients.
func (h *Hub) Clients(ctx context.Context) (int, error) {
	select {
	case n := <-h.count:
		return n, nil
	case <-h.done:
		return 0, ErrHubStopped
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (h *Hub) Register(ctx context.Context, c *Client) error {
	select {
	case h.register <- c:
		return nil
	case <-h.done:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) Unregister(ctx context.Context, c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	case <-ctx.Done():
	}
}
