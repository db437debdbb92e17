package processor

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// Session is one processor run's append-only TSV journal:
// timestamp<TAB>tip<TAB>inspection_id<TAB>n_attachments<TAB>filenames, with
// "NONE" standing in for an empty filename list. Writes are serialized
// since a Session is shared across concurrently-dispatched kinds.
type Session struct {
	mu   sync.Mutex
	file *os.File
}

// NewSession opens (creating if necessary) the journal file at path in
// append mode and writes its header line once.
func NewSession(path string) (*Session, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening session journal %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if info.Size() == 0 {
		if _, err := f.WriteString("TIMESTAMP\tTIP\tINSPECTION_ID\tATTACHMENTS_COUNT\tATTACHMENT_FILENAMES\n"); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	return &Session{file: f}, nil
}

// Record appends one line for a processed TIP.
func (s *Session) Record(tip, inspectionID string, completedAttachments int, filenames []string) error {
	joined := "NONE"
	if len(filenames) > 0 {
		joined = strings.Join(filenames, ";")
	}

	line := fmt.Sprintf("%s\t%s\t%s\t%d\t%s\n",
		time.Now().Format("2006-01-02 15:04:05"), tip, inspectionID, completedAttachments, joined)

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.file.WriteString(line)
	return err
}

// Close closes the underlying journal file.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}
