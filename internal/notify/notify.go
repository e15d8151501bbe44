package notify

import (
	"log"
	"sync"
	"time"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Durations match how long the toast stays on screen.
const (
	successTTL = 3 * time.Second
	errorTTL   = 4 * time.Second
	feedLimit  = 50
)

// Notifier receives user-facing, transient messages.
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

type Notification struct {
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Feed buffers notifications until a client drains them. Expired entries are
// dropped on read and the buffer keeps only the newest feedLimit entries.
type Feed struct {
	mu    sync.Mutex
	items []Notification
	now   func() time.Time
}

func NewFeed() *Feed {
	return &Feed{now: time.Now}
}

func (f *Feed) Success(msg string) { f.push(LevelSuccess, msg, successTTL) }
func (f *Feed) Error(msg string)   { f.push(LevelError, msg, errorTTL) }

func (f *Feed) push(level Level, msg string, ttl time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := f.now()
	f.items = append(f.items, Notification{Level: level, Message: msg, CreatedAt: now, ExpiresAt: now.Add(ttl)})
	if len(f.items) > feedLimit {
		f.items = append([]Notification(nil), f.items[len(f.items)-feedLimit:]...)
	}
}

// Drain returns pending, unexpired notifications oldest first and clears the feed.
func (f *Feed) Drain() []Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := f.now()
	out := make([]Notification, 0, len(f.items))
	for _, n := range f.items {
		if now.Before(n.ExpiresAt) {
			out = append(out, n)
		}
	}
	f.items = nil
	return out
}

// Log writes notifications to the process log; the CLI has no screen to toast on.
type Log struct {
	Prefix string
}

func (l Log) Success(msg string) { log.Printf("%snotify level=success message=%q", l.Prefix, msg) }
func (l Log) Error(msg string)   { log.Printf("%snotify level=error message=%q", l.Prefix, msg) }

// Multi fans out to several notifiers.
type Multi []Notifier

func (m Multi) Success(msg string) {
	for _, n := range m {
		n.Success(msg)
	}
}

func (m Multi) Error(msg string) {
	for _, n := range m {
		n.Error(msg)
	}
}

// Discard drops everything.
type Discard struct{}

func (Discard) Success(string) {}
func (Discard) Error(string)   {}
