package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ruteri/erc3643-wallet-session/interfaces"
)

// Hub keeps the most recent notifications and broadcasts new ones to
// subscribers. Slow subscribers miss notifications rather than block Notify.
type Hub struct {
	capacity int
	now      func() time.Time

	mu          sync.Mutex
	history     []Notification
	subscribers map[uint64]chan Notification
	nextID      uint64
}

func NewHub(capacity int) *Hub {
	if capacity <= 0 {
		capacity = 1
	}
	return &Hub{
		capacity:    capacity,
		now:         time.Now,
		subscribers: make(map[uint64]chan Notification),
	}
}

func (h *Hub) Notify(kind interfaces.NotificationKind, message string) {
	n := Notification{
		ID:          uuid.NewString(),
		Kind:        kind,
		Title:       Title(kind),
		Message:     message,
		Destructive: kind.Destructive(),
		Time:        h.now().UTC(),
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.history = append(h.history, n)
	if len(h.history) > h.capacity {
		h.history = append([]Notification(nil), h.history[len(h.history)-h.capacity:]...)
	}

	for _, ch := range h.subscribers {
		select {
		case ch <- n:
		default:
		}
	}
}

// Recent returns retained notifications, oldest first.
func (h *Hub) Recent() []Notification {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Notification(nil), h.history...)
}

// Subscribe returns a channel receiving notifications emitted from now on.
// cancel closes the channel.
func (h *Hub) Subscribe(buffer int) (<-chan Notification, func()) {
	ch := make(chan Notification, buffer)

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subscribers[id] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subscribers, id)
			h.mu.Unlock()
			close(ch)
		})
	}
}
