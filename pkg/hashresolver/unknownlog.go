package hashresolver

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// UnknownHashLog is a dedicated append-only log of hash lookup misses, kept
// alongside the DB-side unknown-hash upsert so an operator can grep one
// file for every hash that needs adding to the dictionary, without a DB
// round trip. Mirrors the processor package's Session journal.
type UnknownHashLog struct {
	mu   sync.Mutex
	file *os.File
}

// NewUnknownHashLog opens (creating if necessary) the unknown-hashes log at
// path in append mode.
func NewUnknownHashLog(path string) (*UnknownHashLog, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening unknown hash log %s: %w", path, err)
	}
	return &UnknownHashLog{file: f}, nil
}

// Record appends one line for a hash lookup miss: timestamp | lookup_type |
// hash | inspection_id | TIP: tip. tip and inspectionID fall back to
// "UNKNOWN" when not supplied by the caller.
func (l *UnknownHashLog) Record(lookupType, hash, tip, inspectionID string) error {
	if tip == "" {
		tip = "UNKNOWN"
	}
	if inspectionID == "" {
		inspectionID = "UNKNOWN"
	}

	line := fmt.Sprintf("%s | %s | %s | %s | TIP: %s\n",
		time.Now().Format("2006-01-02 15:04:05"), lookupType, hash, inspectionID, tip)

	l.mu.Lock()
	defer l.mu.Unlock()
	_, err := l.file.WriteString(line)
	return err
}

// Close closes the underlying log file.
func (l *UnknownHashLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}
