package source

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Staging lays out one source's corner of the etl/ tree: a drop directory
// files land in before processing (Incoming for the SFTP puller, Pending
// for the local-directory poller) and the Processed/Error/Quarantine
// directories they move to afterward.
type Staging struct {
	Pending    string
	Incoming   string
	Processed  string
	Error      string
	Quarantine string
}

// NewStaging returns the Staging layout rooted at etlRoot/name, e.g.
// etl/sftp or etl/local.
func NewStaging(etlRoot, name string) Staging {
	base := filepath.Join(etlRoot, name)
	return Staging{
		Pending:    filepath.Join(base, "pending"),
		Incoming:   filepath.Join(base, "incoming"),
		Processed:  filepath.Join(base, "processed"),
		Error:      filepath.Join(base, "error"),
		Quarantine: filepath.Join(base, "quarantine"),
	}
}

// EnsureDirs creates every staging directory, if missing.
func (s Staging) EnsureDirs() error {
	for _, dir := range []string{s.Pending, s.Incoming, s.Processed, s.Error, s.Quarantine} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating staging directory %s: %w", dir, err)
		}
	}
	return nil
}

// ArchiveName builds the timestamped archive filename for a successfully
// processed CSV: "<abbrev>_<YYYY-MM-DD>_<HHMMSS>_<original-stem>.csv".
func ArchiveName(abbreviation, originalFilename string, now time.Time) string {
	stem := strings.TrimSuffix(originalFilename, filepath.Ext(originalFilename))
	return fmt.Sprintf("%s_%s_%s_%s.csv", abbreviation, now.Format("2006-01-02"), now.Format("150405"), stem)
}

// QuarantineName builds the filename an unrecognised or malformed CSV is
// moved to.
func QuarantineName(originalFilename string, now time.Time) string {
	return fmt.Sprintf("QUARANTINE_%s_%s", now.Format("2006-01-02_150405"), originalFilename)
}

// moveFile relocates a file by rename, falling back to copy+remove when
// rename fails across filesystems (e.g. the incoming dir and archive dir
// are different mounts).
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("reading %s for cross-device move: %w", src, err)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return fmt.Errorf("writing %s for cross-device move: %w", dst, err)
	}
	return os.Remove(src)
}
