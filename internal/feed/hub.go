// Package feed fans change notifications out to in-process subscribers.
// Postgres NOTIFY triggers feed it in production; services publish to it
// directly when running on the memory store.
package feed

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	TableOrders    = "menu_orders"
	TableSummaries = "order_summaries"
	TableMenus     = "weekly_menus"
	// TableNotice carries transient user-facing messages, never rows.
	TableNotice = "notice"
)

const (
	OpInsert = "INSERT"
	OpUpdate = "UPDATE"
	OpDelete = "DELETE"
	OpNotice = "NOTICE"
)

type Event struct {
	Table    string          `json:"table"`
	Op       string          `json:"op"`
	WeekKey  string          `json:"week_start,omitempty"`
	UserName string          `json:"user_name,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
	At       time.Time       `json:"at"`
}

// Notice builds a transient message event.
func Notice(weekKey, code, message string) Event {
	payload, _ := json.Marshal(map[string]string{"code": code, "message": message})
	return Event{
		Table:   TableNotice,
		Op:      OpNotice,
		WeekKey: weekKey,
		Payload: payload,
		At:      time.Now(),
	}
}

type Hub struct {
	mu   sync.RWMutex
	subs map[string]chan Event
	log  *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		subs: make(map[string]chan Event),
		log:  log.Named("feed"),
	}
}

// Subscribe returns a buffered channel of events and a cancel func that
// closes it. Slow subscribers lose events rather than block publishers.
func (h *Hub) Subscribe(buffer int) (<-chan Event, func()) {
	id := uuid.New().String()
	ch := make(chan Event, buffer)

	h.mu.Lock()
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
}

func (h *Hub) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, ch := range h.subs {
		select {
		case ch <- ev:
		default:
			h.log.Warn("dropping event for slow subscriber",
				zap.String("subscriber", id),
				zap.String("table", ev.Table),
			)
		}
	}
}

func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
