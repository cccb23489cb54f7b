package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// Hub fans events out to websocket subscribers grouped by topic. Proctor
// dashboards subscribe to the exam session they are watching.
type Hub struct {
	clients    map[*Client]bool
	topics     map[string]map[*Client]bool
	broadcast  chan Event
	register   chan *Client
	unregister chan *Client
	stopCh     chan struct{}
	stopOnce   sync.Once
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		topics:     make(map[string]map[*Client]bool),
		broadcast:  make(chan Event, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		stopCh:     make(chan struct{}),
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-h.stopCh:
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case event := <-h.broadcast:
			h.broadcastToTopic(event)
		}
	}
}

// Stop encerra o loop do hub.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.stopCh) })
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = true

	if h.topics[client.topic] == nil {
		h.topics[client.topic] = make(map[*Client]bool)
	}
	h.topics[client.topic][client] = true
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		delete(h.topics[client.topic], client)

		if len(h.topics[client.topic]) == 0 {
			delete(h.topics, client.topic)
		}

		close(client.send)
	}
}

func (h *Hub) broadcastToTopic(event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := h.topics[event.Topic]
	if clients == nil {
		return
	}

	message, err := json.Marshal(event)
	if err != nil {
		return
	}

	for client := range clients {
		select {
		case client.send <- message:
		default:
			// Slow consumers get dropped rather than stall the room.
			close(client.send)
			delete(h.clients, client)
			delete(h.topics[event.Topic], client)
		}
	}
}

// Broadcast enqueues an event for every subscriber of the topic. The
// event is dropped when the hub's queue is full.
func (h *Hub) Broadcast(topic string, eventType EventType, data interface{}) {
	event := Event{
		Topic:     topic,
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now(),
	}

	select {
	case h.broadcast <- event:
	default:
	}
}

// TopicClients returns how many clients watch the given topic.
func (h *Hub) TopicClients(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.topics[topic])
}

// ClientCount returns the total number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}
