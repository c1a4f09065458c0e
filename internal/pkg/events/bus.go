package events

import (
	"sync"
	"time"
)

// Kind identifies what happened. Subscribers register interest per kind.
type Kind string

const (
	KindStatusChanged  Kind = "attendance.status_changed"
	KindPunchSucceeded Kind = "attendance.punch_succeeded"
	KindPunchFailed    Kind = "attendance.punch_failed"
	KindSessionExpired Kind = "auth.session_expired"
	KindLoggedOut      Kind = "auth.logged_out"
)

// Event is delivered to subscribers. Payload holds one of the typed payloads below.
type Event struct {
	Kind    Kind      `json:"kind"`
	At      time.Time `json:"at"`
	Payload any       `json:"payload"`
}

type StatusChanged struct {
	Status   string `json:"status"`
	RecordID string `json:"record_id,omitempty"`
	Source   string `json:"source"` // "punch", "refresh" or "storage"
}

type PunchSucceeded struct {
	Direction string  `json:"direction"`
	AreaName  *string `json:"area_name"`
	Message   string  `json:"message,omitempty"`
}

type PunchFailed struct {
	Direction string `json:"direction"`
	Step      string `json:"step"`
	Reason    string `json:"reason"`
}

type SessionExpired struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type LoggedOut struct {
	Reason string `json:"reason"`
}

type subscription struct {
	kinds map[Kind]struct{}
}

func (s subscription) wants(kind Kind) bool {
	if len(s.kinds) == 0 {
		return true
	}
	_, ok := s.kinds[kind]
	return ok
}

// Bus fans events out to subscribers.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[chan Event]subscription
	bufferSize  int
}

// NewBus creates a new Bus instance
func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[chan Event]subscription),
		bufferSize:  16,
	}
}

// Subscribe registers a subscriber for the given kinds (all kinds when none
// are given) and returns the event channel and cleanup function.
func (b *Bus) Subscribe(kinds ...Kind) (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, b.bufferSize)
	sub := subscription{kinds: make(map[Kind]struct{}, len(kinds))}
	for _, k := range kinds {
		sub.kinds[k] = struct{}{}
	}
	b.subscribers[ch] = sub

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subscribers, ch)
			close(ch)
		})
	}

	return ch, cleanup
}

// Publish delivers the event to every interested subscriber. A subscriber
// whose buffer is full misses the event; Publish never blocks.
func (b *Bus) Publish(kind Kind, payload any) {
	ev := Event{Kind: kind, At: time.Now().UTC(), Payload: payload}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch, sub := range b.subscribers {
		if !sub.wants(kind) {
			continue
		}
		select {
		case ch <- ev:
		default:
		}
	}
}

// SubscriberCount returns the number of active subscribers
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
