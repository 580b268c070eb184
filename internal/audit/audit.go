// Package audit provides append-only structured logging for secret operations.
//
// Every operation against the secret store (probe, read, read-all, write,
// delete, delete-all) is recorded as newline-delimited JSON, by default at
// ~/.securestore/audit.log. Secret values are never recorded.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// Action describes what happened.
type Action string

const (
	ActionSecretProbe     Action = "secret_probe"
	ActionSecretRead      Action = "secret_read"
	ActionSecretReadAll   Action = "secret_read_all"
	ActionSecretWrite     Action = "secret_write"
	ActionSecretDelete    Action = "secret_delete"
	ActionSecretDeleteAll Action = "secret_delete_all"
)

// Entry is a single audit log record.
type Entry struct {
	Timestamp time.Time `json:"ts"`
	ID        string    `json:"id,omitempty"`
	Action    Action    `json:"action"`
	Key       string    `json:"key,omitempty"`
	Namespace string    `json:"namespace,omitempty"`
	Group     string    `json:"group,omitempty"`
	Status    int32     `json:"status"`
	Count     int       `json:"count,omitempty"` // entries returned by read-all
	Actor     string    `json:"actor,omitempty"` // "cli", "test"
	Error     string    `json:"error,omitempty"`
}

// Logger writes audit entries to an append-only file.
type Logger struct {
	mu   sync.Mutex
	file *os.File
	path string
}

// NewLogger creates or opens an audit log file for appending.
func NewLogger(path string) (*Logger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("opening audit log: %w", err)
	}
	return &Logger{file: f, path: path}, nil
}

// Log writes an audit entry.
func (l *Logger) Log(entry Entry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshaling audit entry: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("writing audit entry: %w", err)
	}
	return nil
}

// Close closes the audit log file.
func (l *Logger) Close() error {
	return l.file.Close()
}
