package source

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/ingestkit/tipline/internal/logger"
	"github.com/ingestkit/tipline/internal/telemetry"
	"github.com/ingestkit/tipline/pkg/metrics"
)

// LocalDirPoller scans a local directory for CSV exports, the non-SFTP
// counterpart to Puller.
type LocalDirPoller struct {
	store   Store
	staging Staging
	cfg     Config
	metrics metrics.SourceMetrics
}

// NewLocalDirPoller creates a LocalDirPoller rooted at staging.
func NewLocalDirPoller(st Store, staging Staging, cfg Config) *LocalDirPoller {
	return &LocalDirPoller{store: st, staging: staging, cfg: cfg}
}

// SetMetrics attaches optional instrumentation. Safe to call with nil.
func (p *LocalDirPoller) SetMetrics(m metrics.SourceMetrics) {
	p.metrics = m
}

// PollOnce processes every *.csv file currently sitting in the pending
// directory, oldest first, archiving each on success or moving it to the
// error directory on failure.
func (p *LocalDirPoller) PollOnce(ctx context.Context) ([]*Stats, error) {
	ctx, span := telemetry.StartSourcePollSpan(ctx, "local_dir")
	defer span.End()

	if err := p.staging.EnsureDirs(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(p.staging.Pending)
	if err != nil {
		metrics.RecordPollError(p.metrics, "localdir")
		return nil, err
	}

	type file struct {
		name    string
		modTime time.Time
	}
	var files []file
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".csv" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, file{name: e.Name(), modTime: info.ModTime()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].modTime.Before(files[j].modTime) })

	var results []*Stats
	for _, f := range files {
		if ctx.Err() != nil {
			break
		}
		stats, err := p.processOne(ctx, f.name)
		if err != nil {
			logger.WarnCtx(ctx, "local csv import failed", logger.Filename(f.name), logger.Err(err))
			continue
		}
		results = append(results, stats)
	}
	return results, nil
}

func (p *LocalDirPoller) processOne(ctx context.Context, filename string) (*Stats, error) {
	localPath := filepath.Join(p.staging.Pending, filename)

	f, err := os.Open(localPath)
	if err != nil {
		return nil, err
	}
	stats, parseErr := IngestFile(ctx, p.store, f, filename, p.cfg)
	_ = f.Close()

	if parseErr != nil {
		if err := moveFile(localPath, filepath.Join(p.staging.Error, filename)); err != nil {
			logger.ErrorCtx(ctx, "failed to move failed csv to error dir", logger.Filename(filename), logger.Err(err))
		}
		logger.WarnCtx(ctx, "csv import failed, moved to error dir", logger.Filename(filename), logger.Err(parseErr))
		return nil, parseErr
	}

	archiveName := ArchiveName(stats.Abbreviation, filename, time.Now())
	if err := moveFile(localPath, filepath.Join(p.staging.Processed, archiveName)); err != nil {
		return stats, err
	}

	metrics.RecordIngest(p.metrics, "localdir", stats.Abbreviation, stats.Inserted, stats.Duplicates)
	logger.InfoCtx(ctx, "local csv imported",
		logger.Filename(filename), logger.Kind(stats.Abbreviation),
		logger.RowCount(stats.TotalRows), logger.Processed(stats.Inserted))
	return stats, nil
}
