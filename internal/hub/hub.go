// Package hub fans booking events out to clients watching a slot.
package hub

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"slotbooking/backend/internal/service"
)

// Event is the envelope written to subscribers.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Client is the outbound queue of a single subscriber.
type Client chan []byte

// Hub tracks subscribers per slot, each with the scope of events it may see.
type Hub struct {
	slots map[uint]map[Client]service.EventScope
	mu    sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{slots: make(map[uint]map[Client]service.EventScope)}
}

// Subscribe adds client to the watchers of slotID.
func (h *Hub) Subscribe(slotID uint, client Client, scope service.EventScope) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.slots[slotID]; !ok {
		h.slots[slotID] = make(map[Client]service.EventScope)
	}
	h.slots[slotID][client] = scope
}

// Unsubscribe removes client and closes its channel.
func (h *Hub) Unsubscribe(slotID uint, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.slots[slotID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	close(client)
	if len(clients) == 0 {
		delete(h.slots, slotID)
	}
}

// Subscribers returns the number of clients watching slotID.
func (h *Hub) Subscribers(slotID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.slots[slotID])
}

// Broadcast sends event to the watchers of slotID whose scope covers ownerID.
// Slow clients miss events rather than block the sender.
func (h *Hub) Broadcast(slotID, ownerID uint, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients, ok := h.slots[slotID]
	if !ok {
		return
	}
	msg, err := json.Marshal(event)
	if err != nil {
		log.Printf("[hub] marshal %s: %v", event.Type, err)
		return
	}
	for client, scope := range clients {
		if !scope.Covers(ownerID) {
			continue
		}
		select {
		case client <- msg:
		default:
		}
	}
}

// Publish implements service.Notifier.
func (h *Hub) Publish(_ context.Context, e service.BookingEvent) error {
	h.Broadcast(e.SlotID, e.UserID, Event{Type: e.Type, Payload: e})
	return nil
}
