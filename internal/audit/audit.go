// Package audit keeps a journal of what loom did to each loom.
// Events are stored as JSON Lines (JSONL) files, one per loom branch, and
// outlive the loom itself so a finished teardown can still be inspected.
package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/firefly-engineering/loom/internal/config"
)

// EventType classifies a journal entry.
type EventType string

const (
	EventTeardown EventType = "teardown"
	EventLink     EventType = "link"
	EventDBCreate EventType = "db-create"
	EventDBDelete EventType = "db-delete"
)

// Event represents a single journal entry.
type Event struct {
	Timestamp  time.Time `json:"timestamp"`
	Type       EventType `json:"type"`
	Loom       string    `json:"loom"`
	Invocation string    `json:"invocation,omitempty"`
	State      string    `json:"state,omitempty"`
	Details    string    `json:"details,omitempty"`
	Errors     []string  `json:"errors,omitempty"`
}

// Logger writes and reads journal events.
// Events are stored in {dir}/{branch key}.jsonl.
type Logger struct {
	dir        string
	invocation string
}

// NewLogger creates a journal rooted at dir. invocation is stamped on every
// event that does not carry its own.
func NewLogger(dir, invocation string) *Logger {
	return &Logger{dir: dir, invocation: invocation}
}

func (l *Logger) eventPath(loom string) string {
	return filepath.Join(l.dir, config.MetadataKey(loom)+".jsonl")
}

// Log appends an event to the loom's journal.
func (l *Logger) Log(event Event) error {
	if event.Loom == "" {
		return fmt.Errorf("audit event has no loom")
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Invocation == "" {
		event.Invocation = l.invocation
	}

	path := l.eventPath(event.Loom)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create audit directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open audit journal: %w", err)
	}
	defer f.Close()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}

	return nil
}

// LogEvent is a convenience method that creates and logs an event.
func (l *Logger) LogEvent(eventType EventType, loom, details string) error {
	return l.Log(Event{
		Type:    eventType,
		Loom:    loom,
		Details: details,
	})
}

// Events reads all events for a loom in chronological order. Branches that
// share a journal key are told apart by each event's Loom.
func (l *Logger) Events(loom string) ([]Event, error) {
	f, err := os.Open(l.eventPath(loom))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open audit journal: %w", err)
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var event Event
		if err := json.Unmarshal(line, &event); err != nil {
			continue // Skip malformed lines
		}
		if event.Loom != loom {
			continue
		}
		events = append(events, event)
	}

	if err := scanner.Err(); err != nil {
		return events, fmt.Errorf("error reading audit journal: %w", err)
	}

	return events, nil
}
