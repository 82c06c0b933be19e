// Package notifications keeps per-user notifications for the development
// backend and fans new ones out to open streams.
package notifications

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/dmitrijs2005/tripmate/internal/common"
)

// subscriberBuffer is how many undelivered notifications a stream may lag
// behind before further ones are dropped for it.
const subscriberBuffer = 16

type Hub struct {
	mu      sync.Mutex
	nextID  int64
	byUser  map[int64][]*Notification
	nextSub int
	subs    map[int64]map[int]chan Notification
	now     func() time.Time
}

func NewHub() *Hub {
	return &Hub{
		byUser: make(map[int64][]*Notification),
		subs:   make(map[int64]map[int]chan Notification),
		now:    time.Now,
	}
}

// Publish stores a new unread notification for userID and offers it to
// each of the user's streams. It returns the stored record and how many
// streams it reached.
func (h *Hub) Publish(userID int64, typ, title, content string, related json.RawMessage) (Notification, int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	n := &Notification{
		ID:          h.nextID,
		Type:        typ,
		Title:       title,
		Content:     content,
		CreatedAt:   h.now().UTC(),
		RelatedData: related,
	}
	h.byUser[userID] = append(h.byUser[userID], n)

	delivered := 0
	for _, ch := range h.subs[userID] {
		select {
		case ch <- *n:
			delivered++
		default:
		}
	}
	return *n, delivered
}

// Unread lists the user's unread notifications, newest first.
func (h *Hub) Unread(userID int64) []Notification {
	h.mu.Lock()
	defer h.mu.Unlock()

	list := h.byUser[userID]
	out := make([]Notification, 0, len(list))
	for i := len(list) - 1; i >= 0; i-- {
		if !list[i].IsRead {
			out = append(out, *list[i])
		}
	}
	return out
}

func (h *Hub) UnreadCount(userID int64) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	count := 0
	for _, n := range h.byUser[userID] {
		if !n.IsRead {
			count++
		}
	}
	return count
}

// MarkRead flags one of the user's notifications. Marking a read one
// again is not an error.
func (h *Hub) MarkRead(userID, id int64) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, n := range h.byUser[userID] {
		if n.ID == id {
			n.IsRead = true
			return nil
		}
	}
	return common.ErrNotFound
}

func (h *Hub) MarkAllRead(userID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, n := range h.byUser[userID] {
		n.IsRead = true
	}
}

// Subscribe registers a stream for userID. The returned cancel func
// unregisters it and closes the channel.
func (h *Hub) Subscribe(userID int64) (<-chan Notification, func()) {
	ch := make(chan Notification, subscriberBuffer)

	h.mu.Lock()
	id := h.nextSub
	h.nextSub++
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[int]chan Notification)
	}
	h.subs[userID][id] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[userID], id)
			if len(h.subs[userID]) == 0 {
				delete(h.subs, userID)
			}
			close(ch)
			h.mu.Unlock()
		})
	}
}
