package logging

import (
	"sync"
	"time"

	"go.uber.org/zap/zapcore"
)

// DefaultRingCapacity matches the on-page debug console.
const DefaultRingCapacity = 100

// Entry is one captured line
type Entry struct {
	Time    time.Time     `json:"time"`
	Level   zapcore.Level `json:"level"`
	Message string        `json:"message"`
}

// RingLog keeps the most recent entries in memory. Oldest entries are
// evicted first once capacity is reached.
type RingLog struct {
	mu       sync.RWMutex
	entries  []Entry
	next     int
	full     bool
	now      func() time.Time
	subs     map[uint64]func(Entry)
	nextSub  uint64
}

// NewRingLog creates a ring with the given capacity.
func NewRingLog(capacity int) *RingLog {
	if capacity <= 0 {
		capacity = DefaultRingCapacity
	}
	return &RingLog{
		entries: make([]Entry, capacity),
		now:     time.Now,
	}
}

// Subscribe registers fn to run after each append and returns a function
// that removes it. Subscribers run on the logging goroutine and must not
// block.
func (r *RingLog) Subscribe(fn func(Entry)) (unsubscribe func()) {
	r.mu.Lock()
	if r.subs == nil {
		r.subs = make(map[uint64]func(Entry))
	}
	token := r.nextSub
	r.nextSub++
	r.subs[token] = fn
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.subs, token)
			r.mu.Unlock()
		})
	}
}

// Subscribers returns the number of registered subscribers.
func (r *RingLog) Subscribers() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

// Log implements Sink.
func (r *RingLog) Log(level zapcore.Level, message string) {
	entry := Entry{Time: r.now(), Level: level, Message: message}

	r.mu.Lock()
	r.entries[r.next] = entry
	r.next = (r.next + 1) % len(r.entries)
	if r.next == 0 {
		r.full = true
	}
	hooks := make([]func(Entry), 0, len(r.subs))
	for _, fn := range r.subs {
		hooks = append(hooks, fn)
	}
	r.mu.Unlock()

	for _, fn := range hooks {
		fn(entry)
	}
}

// Entries returns a snapshot, oldest first.
func (r *RingLog) Entries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.full {
		out := make([]Entry, r.next)
		copy(out, r.entries[:r.next])
		return out
	}

	out := make([]Entry, 0, len(r.entries))
	out = append(out, r.entries[r.next:]...)
	out = append(out, r.entries[:r.next]...)
	return out
}

// Len returns the number of retained entries.
func (r *RingLog) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.full {
		return len(r.entries)
	}
	return r.next
}

// Clear drops all entries.
func (r *RingLog) Clear() {
	r.mu.Lock()
	for i := range r.entries {
		r.entries[i] = Entry{}
	}
	r.next = 0
	r.full = false
	r.mu.Unlock()
}
