// Package logbuf keeps a bounded in-memory tail of the daemon's log
// stream so the API and ctl tool can show recent activity without a
// log file.
package logbuf

import (
	"log/slog"
	"sync"
	"time"
)

// Entry is one captured log record.
type Entry struct {
	Time    time.Time      `json:"time"`
	Level   string         `json:"level"`
	Message string         `json:"message"`
	Attrs   map[string]any `json:"attrs,omitempty"`
}

// Buffer retains the most recent entries up to a fixed capacity.
// Safe for concurrent use.
type Buffer struct {
	mu      sync.Mutex
	ring    []Entry
	next    int
	wrapped bool
}

// New returns a buffer holding at most capacity entries.
func New(capacity int) *Buffer {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer{ring: make([]Entry, capacity)}
}

func (b *Buffer) add(e Entry) {
	b.mu.Lock()
	b.ring[b.next] = e
	b.next++
	if b.next == len(b.ring) {
		b.next = 0
		b.wrapped = true
	}
	b.mu.Unlock()
}

// Len reports how many entries are currently retained.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.wrapped {
		return len(b.ring)
	}
	return b.next
}

// Tail returns up to limit of the newest entries at or above minLevel,
// ordered oldest first. limit <= 0 means no cap.
func (b *Buffer) Tail(minLevel slog.Level, limit int) []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()

	oldest, n := 0, b.next
	if b.wrapped {
		oldest, n = b.next, len(b.ring)
	}

	var out []Entry
	for i := 0; i < n; i++ {
		e := b.ring[(oldest+i)%len(b.ring)]
		if levelOf(e.Level) < minLevel {
			continue
		}
		out = append(out, e)
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

func levelOf(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return l
}
