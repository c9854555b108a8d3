// Package replay implements the per-game append-only ReplayLog.
package replay

import (
	"sync"

	"gamearena/internal/clock"
	"gamearena/internal/domain"
)

// Mirror optionally receives every appended entry, e.g. to write it to a
// durable store. Durability is out of core scope; the default Log
// has no mirror attached.
type Mirror interface {
	Write(entry domain.ReplayEntry)
}

// noopMirror satisfies Mirror without persisting anything.
type noopMirror struct{}

func (noopMirror) Write(domain.ReplayEntry) {}

// Log is the append-only, in-memory, per-game ordered record of every
// authoritative event. Only the owning game task calls Append;
// readers (subscribers, replay consumers) only read.
type Log struct {
	clock clock.Clock

	mu      sync.RWMutex
	entries []domain.ReplayEntry
	mirror  Mirror

	subMu       sync.Mutex
	subscribers []chan domain.ReplayEntry
}

// New builds an empty Log using c as its timestamp source.
func New(c clock.Clock) *Log {
	return &Log{clock: c, mirror: noopMirror{}}
}

// SetMirror attaches (or detaches, with nil) a durable mirror, letting the
// ReplayLog stay optionally persisted without requiring a storage
// dependency when no caller wants one.
func (l *Log) SetMirror(m Mirror) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if m == nil {
		m = noopMirror{}
	}
	l.mirror = m
}

// Append adds entry as the next record, stamping Index and At, and
// publishes it to every live subscriber. It is the single place that
// establishes ReplayLog's total order for one game.
func (l *Log) Append(entry domain.ReplayEntry) domain.ReplayEntry {
	l.mu.Lock()
	entry.Index = len(l.entries)
	entry.At = l.clock.Now()
	l.entries = append(l.entries, entry)
	mirror := l.mirror
	l.mu.Unlock()

	mirror.Write(entry)
	l.publish(entry)
	return entry
}

// Len returns the number of entries appended so far.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// At returns the entry at index, or false if out of range.
func (l *Log) At(index int) (domain.ReplayEntry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if index < 0 || index >= len(l.entries) {
		return domain.ReplayEntry{}, false
	}
	return l.entries[index], true
}

// Since returns a copy of every entry from fromIndex (inclusive) onward,
// the consistent-index-snapshot external readers take.
func (l *Log) Since(fromIndex int) []domain.ReplayEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if fromIndex < 0 {
		fromIndex = 0
	}
	if fromIndex >= len(l.entries) {
		return nil
	}
	out := make([]domain.ReplayEntry, len(l.entries)-fromIndex)
	copy(out, l.entries[fromIndex:])
	return out
}

// Subscribe returns a channel delivered, in order, every entry appended
// from fromIndex onward (replaying any already-appended backlog first).
// The returned cancel func must be called to stop delivery and release the
// channel.
func (l *Log) Subscribe(fromIndex int) (ch <-chan domain.ReplayEntry, cancel func()) {
	backlog := l.Since(fromIndex)
	out := make(chan domain.ReplayEntry, len(backlog)+16)
	for _, e := range backlog {
		out <- e
	}

	l.subMu.Lock()
	l.subscribers = append(l.subscribers, out)
	l.subMu.Unlock()

	cancelFn := func() {
		l.subMu.Lock()
		defer l.subMu.Unlock()
		for i, c := range l.subscribers {
			if c == out {
				l.subscribers = append(l.subscribers[:i], l.subscribers[i+1:]...)
				close(out)
				return
			}
		}
	}
	return out, cancelFn
}

func (l *Log) publish(entry domain.ReplayEntry) {
	l.subMu.Lock()
	defer l.subMu.Unlock()
	for _, ch := range l.subscribers {
		select {
		case ch <- entry:
		default:
			// A lazy Subscribe()-based reader that falls behind only loses
			// log-level push notifications; Since/At remain authoritative.
		}
	}
}
