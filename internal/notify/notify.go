// Package notify carries user-facing outcome messages from the auth flows to whatever
// presents them (a terminal, a log, a test recorder).
package notify

import (
	"sync"

	"github.com/rs/zerolog"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notification is a single user-facing outcome.
type Notification struct {
	Level   Level
	Op      string // flow operation, e.g. "login", "set-account-locked"
	Message string
	Err     error
}

type Notifier interface {
	Notify(n Notification)
}

// Success is a shorthand for a success notification.
func Success(n Notifier, op, msg string) {
	if n == nil {
		return
	}
	n.Notify(Notification{Level: LevelSuccess, Op: op, Message: msg})
}

// Failure is a shorthand for an error notification.
func Failure(n Notifier, op, msg string, err error) {
	if n == nil {
		return
	}
	n.Notify(Notification{Level: LevelError, Op: op, Message: msg, Err: err})
}

// LogNotifier writes notifications through a zerolog logger.
type LogNotifier struct {
	logger zerolog.Logger
}

var _ Notifier = (*LogNotifier)(nil)

func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Notify(n Notification) {
	switch n.Level {
	case LevelError:
		l.logger.Error().Err(n.Err).Str("op", n.Op).Msg(n.Message)
	default:
		l.logger.Info().Str("op", n.Op).Msg(n.Message)
	}
}

// Recorder keeps every notification in memory.
type Recorder struct {
	mu    sync.Mutex
	items []Notification
}

var _ Notifier = (*Recorder)(nil)

func (r *Recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
}

func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.items))
	copy(out, r.items)
	return out
}

// Last returns the most recent notification, or false if none was recorded.
func (r *Recorder) Last() (Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.items) == 0 {
		return Notification{}, false
	}
	return r.items[len(r.items)-1], true
}

// Errors returns only the error notifications.
func (r *Recorder) Errors() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, 0)
	for _, n := range r.items {
		if n.Level == LevelError {
			out = append(out, n)
		}
	}
	return out
}
