package store

import (
	"fmt"
	"sync"
	"time"
)

// Entry is one line of the device log shown to users.
type Entry struct {
	Time time.Time `json:"time"`
	Text string    `json:"text"`
}

func (e Entry) String() string {
	return e.Time.Format("15:04:05") + " " + e.Text
}

// Log is an append-only list of entries. It is safe for concurrent use.
type Log struct {
	mu      sync.RWMutex
	entries []Entry
	now     func() time.Time
	notify  func()
}

func newLog(now func() time.Time, notify func()) *Log {
	return &Log{now: now, notify: notify}
}

// Append adds an entry stamped with the current time.
func (l *Log) Append(text string) Entry {
	l.mu.Lock()
	e := Entry{Time: l.now(), Text: text}
	l.entries = append(l.entries, e)
	l.mu.Unlock()

	if l.notify != nil {
		l.notify()
	}
	return e
}

// Appendf is Append with a format string.
func (l *Log) Appendf(format string, args ...any) Entry {
	return l.Append(fmt.Sprintf(format, args...))
}

// Entries returns a copy of all entries.
func (l *Log) Entries() []Entry {
	return l.Since(0)
}

// Since returns a copy of the entries from index n on. Consumers that already
// saw n entries use it to fetch only new ones.
func (l *Log) Since(n int) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if n < 0 {
		n = 0
	}
	if n >= len(l.entries) {
		return []Entry{}
	}
	out := make([]Entry, len(l.entries)-n)
	copy(out, l.entries[n:])
	return out
}

// Len returns the number of entries.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
