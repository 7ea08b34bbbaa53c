// Package notice carries user-visible, non-blocking messages from the
// player core to whatever surface is showing them.
package notice

import (
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	apperrors "github.com/killallgit/podcast-player/pkg/errors"
)

// Level is the severity of a notice
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice is one message for the user
type Notice struct {
	Level   Level
	Title   string
	Message string
	Code    apperrors.ErrorCode // set for error notices built from an AppError
	At      time.Time
}

func (n Notice) String() string {
	if n.Message == "" {
		return fmt.Sprintf("[%s] %s", n.Level, n.Title)
	}
	return fmt.Sprintf("[%s] %s: %s", n.Level, n.Title, n.Message)
}

// Notifier receives notices
type Notifier interface {
	Notify(Notice)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

// Discard drops every notice
var Discard Notifier = NotifierFunc(func(Notice) {})

// Info builds an informational notice
func Info(title, message string) Notice {
	return Notice{Level: LevelInfo, Title: title, Message: message, At: time.Now()}
}

// Success builds a success notice
func Success(title, message string) Notice {
	return Notice{Level: LevelSuccess, Title: title, Message: message, At: time.Now()}
}

// Warning builds a warning notice
func Warning(title, message string) Notice {
	return Notice{Level: LevelWarning, Title: title, Message: message, At: time.Now()}
}

// Error builds an error notice carrying err's message and code
func Error(title string, err error) Notice {
	n := Notice{Level: LevelError, Title: title, At: time.Now()}
	if err != nil {
		n.Message = err.Error()
		n.Code = apperrors.GetCode(err)
	}
	return n
}

// Writer prints notices, one per line
type Writer struct {
	mu  sync.Mutex
	out io.Writer
}

// NewWriter creates a notifier printing to out
func NewWriter(out io.Writer) *Writer {
	return &Writer{out: out}
}

func (w *Writer) Notify(n Notice) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintln(w.out, n.String())
}

// Log writes notices to the standard logger
type Log struct{}

func (Log) Notify(n Notice) {
	prefix := "[INFO]"
	switch n.Level {
	case LevelWarning:
		prefix = "[WARN]"
	case LevelError:
		prefix = "[ERROR]"
	}
	log.Printf("%s Notice: %s", prefix, n.String())
}

// Recorder keeps every notice it receives
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *Recorder) Notify(n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

// Notices returns a copy of everything recorded so far
func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notice, len(r.notices))
	copy(out, r.notices)
	return out
}

// Last returns the most recent notice
func (r *Recorder) Last() (Notice, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notices) == 0 {
		return Notice{}, false
	}
	return r.notices[len(r.notices)-1], true
}

// Count returns how many notices were recorded at level
func (r *Recorder) Count(level Level) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int
	for _, n := range r.notices {
		if n.Level == level {
			count++
		}
	}
	return count
}

// Multi fans a notice out to several notifiers
func Multi(notifiers ...Notifier) Notifier {
	return NotifierFunc(func(n Notice) {
		for _, target := range notifiers {
			target.Notify(n)
		}
	})
}
