// Package bus provides in-process event broadcast between the automation
// core and observers (the dashboard log stream).
package bus

import "sync"

// Event names.
const (
	EventLog = "log"
)

// Event is one broadcast payload.
type Event struct {
	Name    string      `json:"name"`
	Payload interface{} `json:"payload,omitempty"`
}

// Handler handles a broadcast event. Handlers must not block.
type Handler func(Event)

// Publisher abstracts event broadcast + subscription.
type Publisher interface {
	Subscribe(id string, handler Handler)
	Unsubscribe(id string)
	Broadcast(event Event)
}

// Broadcaster is a minimal fan-out hub. Safe for concurrent use.
type Broadcaster struct {
	mu   sync.RWMutex
	subs map[string]Handler
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[string]Handler)}
}

func (b *Broadcaster) Subscribe(id string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[id] = handler
}

func (b *Broadcaster) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, id)
}

func (b *Broadcaster) Broadcast(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, h := range b.subs {
		h(event)
	}
}
