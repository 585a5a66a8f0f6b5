// Package events is the in-process publish/subscribe bus batch operations
// (Multi-Process Pipeline, CSV Conformer, Combine, Save Selected) report
// progress, warnings, and per-file errors through, without the core
// depending on any UI toolkit. Hub keeps its subscribers, plain Go channels
// of typed Event values, in a mutex-guarded set; there are no
// register/unregister/broadcast channels.
package events

import "sync"

// Kind discriminates the Event payload in use.
type Kind string

const (
	KindProgress  Kind = "progress"
	KindWarning   Kind = "warning"
	KindFileError Kind = "file_error"
)

// Event is published on a Hub. Exactly one of Progress, Warning, or
// FileError is populated, matching Kind.
type Event struct {
	Kind Kind `json:"kind"`

	Progress  *Progress  `json:"progress,omitempty"`
	Warning   *Warning   `json:"warning,omitempty"`
	FileError *FileError `json:"fileError,omitempty"`
}

// Progress reports current/total position through a batch, labeled with
// the stage in flight ("extract", "mix", "combine", "normalize", "rename").
type Progress struct {
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Label   string `json:"label"`
}

// Warning is a non-fatal per-file advisory, such as a fmt /iXML sample
// rate disagreement surfaced as Inconsistent.
type Warning struct {
	File    string `json:"file"`
	Message string `json:"message"`
}

// FileError is a per-file failure that does not abort the batch: the
// record is skipped and the tally continues (spec's "batch continues"
// error contract).
type FileError struct {
	File    string `json:"file"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Hub fans published events out to subscribers. The zero value is not
// usable; construct with NewHub.
type Hub struct {
	mu          sync.Mutex
	subscribers map[chan Event]struct{}
}

// NewHub constructs an empty Hub.
func NewHub() *Hub {
	return &Hub{subscribers: make(map[chan Event]struct{})}
}

// Subscribe registers a new subscriber and returns its channel along with
// an unsubscribe function. The channel is buffered so a slow subscriber
// does not block Publish; events are dropped for a subscriber whose buffer
// is full rather than stalling the batch.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 64)

	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()

	unsubscribe := func() {
		h.mu.Lock()
		defer h.mu.Unlock()

		if _, ok := h.subscribers[ch]; ok {
			delete(h.subscribers, ch)
			close(ch)
		}
	}

	return ch, unsubscribe
}

// Publish broadcasts ev to every current subscriber.
func (h *Hub) Publish(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subscribers {
		select {
		case ch <- ev:
		default:
		}
	}
}

// PublishProgress is a convenience wrapper for the common progress case.
func (h *Hub) PublishProgress(current, total int, label string) {
	h.Publish(Event{Kind: KindProgress, Progress: &Progress{Current: current, Total: total, Label: label}})
}

// PublishWarning is a convenience wrapper for the common warning case.
func (h *Hub) PublishWarning(file, message string) {
	h.Publish(Event{Kind: KindWarning, Warning: &Warning{File: file, Message: message}})
}

// PublishFileError is a convenience wrapper for the common per-file error
// case.
func (h *Hub) PublishFileError(file, kind, message string) {
	h.Publish(Event{Kind: KindFileError, FileError: &FileError{File: file, Kind: kind, Message: message}})
}

// SubscriberCount reports how many subscribers are currently registered,
// chiefly for tests.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.subscribers)
}
