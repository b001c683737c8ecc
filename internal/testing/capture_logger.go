package testing

import (
	"fmt"
	"strings"
	"sync"
)

// LogEntry is one message recorded by CaptureLogger.
type LogEntry struct {
	Level   string // verbose, info or error
	Message string
}

// CaptureLogger is a pgdal.Logger that records every message, including
// verbose ones. Server NOTICEs forwarded by the connector land here too.
// Thread-safe for concurrent use.
type CaptureLogger struct {
	mu      sync.Mutex
	entries []LogEntry
}

// NewCaptureLogger creates an empty CaptureLogger.
func NewCaptureLogger() *CaptureLogger {
	return &CaptureLogger{}
}

func (c *CaptureLogger) Verbose(format string, args ...interface{}) {
	c.add("verbose", format, args)
}

func (c *CaptureLogger) Info(format string, args ...interface{}) {
	c.add("info", format, args)
}

func (c *CaptureLogger) Error(format string, args ...interface{}) {
	c.add("error", format, args)
}

func (c *CaptureLogger) add(level, format string, args []interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, LogEntry{Level: level, Message: fmt.Sprintf(format, args...)})
}

// Entries returns a copy of the recorded messages in order.
func (c *CaptureLogger) Entries() []LogEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]LogEntry(nil), c.entries...)
}

// Contains reports whether any message includes substr.
func (c *CaptureLogger) Contains(substr string) bool {
	for _, e := range c.Entries() {
		if strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}
