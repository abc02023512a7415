package display

import (
	"sync"
	"time"
)

// debugCapacity bounds the retained debug messages.
const debugCapacity = 100

// DebugMessage is one timestamped diagnostic line.
type DebugMessage struct {
	At   time.Time
	Text string
}

// DebugRing retains the most recent diagnostic messages for the UI's debug
// pane.
type DebugRing struct {
	now func() time.Time

	mu       sync.Mutex
	messages []DebugMessage
}

// NewDebugRing creates a debug ring. now defaults to time.Now when nil.
func NewDebugRing(now func() time.Time) *DebugRing {
	if now == nil {
		now = time.Now
	}
	return &DebugRing{now: now}
}

// Add appends a message, evicting the oldest past capacity.
func (r *DebugRing) Add(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.messages = append(r.messages, DebugMessage{At: r.now(), Text: text})
	if len(r.messages) > debugCapacity {
		r.messages = r.messages[len(r.messages)-debugCapacity:]
	}
}

// Messages returns the retained messages, oldest first.
func (r *DebugRing) Messages() []DebugMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]DebugMessage(nil), r.messages...)
}
