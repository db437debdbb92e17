package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/ingestkit/tipline/internal/logger"
	"github.com/ingestkit/tipline/internal/telemetry"
	"github.com/ingestkit/tipline/pkg/metrics"
)

// SFTPConfig controls the remote connection and credentials.
type SFTPConfig struct {
	Host       string
	Port       int
	Username   string
	Password   string
	PrivateKey []byte
	RemoteDir  string
	Timeout    time.Duration
}

// ApplyDefaults fills unset fields with sensible defaults.
func (c *SFTPConfig) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = 22
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.RemoteDir == "" {
		c.RemoteDir = "."
	}
}

// authMethods builds the ssh.AuthMethod list, preferring key auth and
// falling back to password when a key isn't configured.
func (c SFTPConfig) authMethods() ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod
	if len(c.PrivateKey) > 0 {
		signer, err := ssh.ParsePrivateKey(c.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("parsing private key: %w", err)
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}
	if c.Password != "" {
		methods = append(methods, ssh.Password(c.Password))
	}
	if len(methods) == 0 {
		return nil, fmt.Errorf("sftp config has neither a private key nor a password")
	}
	return methods, nil
}

// Puller pulls CSV exports from an SFTP drop, the SFTP counterpart to
// LocalDirPoller.
type Puller struct {
	cfg     SFTPConfig
	store   Store
	staging Staging
	ingest  Config
	metrics metrics.SourceMetrics
}

// NewPuller creates a Puller against cfg, persisting rows through st.
func NewPuller(cfg SFTPConfig, st Store, staging Staging, ingest Config) *Puller {
	cfg.ApplyDefaults()
	return &Puller{cfg: cfg, store: st, staging: staging, ingest: ingest}
}

// SetMetrics attaches optional instrumentation. Safe to call with nil.
func (p *Puller) SetMetrics(m metrics.SourceMetrics) {
	p.metrics = m
}

func (p *Puller) dial() (*ssh.Client, *sftp.Client, error) {
	methods, err := p.cfg.authMethods()
	if err != nil {
		return nil, nil, err
	}

	sshCfg := &ssh.ClientConfig{
		User:            p.cfg.Username,
		Auth:            methods,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         p.cfg.Timeout,
	}

	addr := fmt.Sprintf("%s:%d", p.cfg.Host, p.cfg.Port)
	sshClient, err := ssh.Dial("tcp", addr, sshCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("dialing %s: %w", addr, err)
	}

	sftpClient, err := sftp.NewClient(sshClient)
	if err != nil {
		_ = sshClient.Close()
		return nil, nil, fmt.Errorf("opening sftp session: %w", err)
	}

	return sshClient, sftpClient, nil
}

// remoteFile is one candidate CSV on the remote server.
type remoteFile struct {
	name    string
	modTime time.Time
}

// listCSVFiles lists RemoteDir's *.csv entries sorted oldest-first for
// FIFO processing.
func listCSVFiles(client *sftp.Client, remoteDir string) ([]remoteFile, error) {
	entries, err := client.ReadDir(remoteDir)
	if err != nil {
		return nil, fmt.Errorf("listing remote directory %s: %w", remoteDir, err)
	}

	var files []remoteFile
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".csv" {
			continue
		}
		files = append(files, remoteFile{name: e.Name(), modTime: e.ModTime()})
	}
	sortRemoteFiles(files)
	return files, nil
}

// sortRemoteFiles orders files oldest-first in place.
func sortRemoteFiles(files []remoteFile) {
	sort.Slice(files, func(i, j int) bool { return files[i].modTime.Before(files[j].modTime) })
}

// PollOnce connects, lists, downloads, ingests, and archives/quarantines
// every CSV currently sitting in the remote directory, deleting each
// remote file only after it has been fully processed. The connection is
// always closed before returning.
func (p *Puller) PollOnce(ctx context.Context) ([]*Stats, error) {
	ctx, span := telemetry.StartSourcePollSpan(ctx, "sftp")
	defer span.End()

	if err := p.staging.EnsureDirs(); err != nil {
		return nil, err
	}

	sshClient, sftpClient, err := p.dial()
	if err != nil {
		metrics.RecordPollError(p.metrics, "sftp")
		return nil, err
	}
	defer func() {
		_ = sftpClient.Close()
		_ = sshClient.Close()
	}()

	files, err := listCSVFiles(sftpClient, p.cfg.RemoteDir)
	if err != nil {
		metrics.RecordPollError(p.metrics, "sftp")
		return nil, err
	}
	logger.InfoCtx(ctx, "sftp poll found csv files", logger.RowCount(len(files)), logger.RemoteHost(p.cfg.Host))

	var results []*Stats
	var toDelete []string
	for _, f := range files {
		if ctx.Err() != nil {
			break
		}
		stats, remoteName, deleted := p.processOne(ctx, sftpClient, f.name)
		if stats != nil {
			results = append(results, stats)
		}
		if deleted {
			toDelete = append(toDelete, remoteName)
		}
	}

	for _, name := range toDelete {
		if err := sftpClient.Remove(filepath.Join(p.cfg.RemoteDir, name)); err != nil {
			logger.WarnCtx(ctx, "failed to delete remote csv after processing", logger.Filename(name), logger.Err(err))
		}
	}

	return results, nil
}

// processOne downloads one remote file, ingests it, and files it away
// locally. It returns deleted=true only after a successful ingest and
// archive; a quarantined file, or a failed download or ingest, leaves the
// remote copy in place.
func (p *Puller) processOne(ctx context.Context, client *sftp.Client, remoteName string) (stats *Stats, name string, deleted bool) {
	localPath := filepath.Join(p.staging.Incoming, remoteName)

	if err := downloadRemote(client, filepath.Join(p.cfg.RemoteDir, remoteName), localPath); err != nil {
		logger.ErrorCtx(ctx, "failed to download remote csv", logger.Filename(remoteName), logger.Err(err))
		return nil, remoteName, false
	}

	f, err := os.Open(localPath)
	if err != nil {
		logger.ErrorCtx(ctx, "failed to open downloaded csv", logger.Filename(remoteName), logger.Err(err))
		return nil, remoteName, false
	}
	result, parseErr := IngestFile(ctx, p.store, f, remoteName, p.ingest)
	_ = f.Close()

	if parseErr != nil {
		if _, ok := parseErr.(*ErrKindNotDetected); ok {
			dst := filepath.Join(p.staging.Quarantine, QuarantineName(remoteName, time.Now()))
			if err := moveFile(localPath, dst); err != nil {
				logger.ErrorCtx(ctx, "failed to quarantine csv", logger.Filename(remoteName), logger.Err(err))
			}
			logger.WarnCtx(ctx, "csv quarantined: kind not detected", logger.Filename(remoteName), logger.Err(parseErr))
			metrics.RecordQuarantine(p.metrics, "sftp")
			return nil, remoteName, false
		}
		_ = os.Remove(localPath)
		logger.ErrorCtx(ctx, "csv ingest failed, leaving remote file for retry", logger.Filename(remoteName), logger.Err(parseErr))
		return nil, remoteName, false
	}

	archiveName := ArchiveName(result.Abbreviation, remoteName, time.Now())
	if err := moveFile(localPath, filepath.Join(p.staging.Processed, archiveName)); err != nil {
		logger.ErrorCtx(ctx, "failed to archive csv", logger.Filename(remoteName), logger.Err(err))
		return result, remoteName, false
	}

	metrics.RecordIngest(p.metrics, "sftp", result.Abbreviation, result.Inserted, result.Duplicates)
	logger.InfoCtx(ctx, "sftp csv imported",
		logger.Filename(remoteName), logger.Kind(result.Abbreviation),
		logger.RowCount(result.TotalRows), logger.Processed(result.Inserted))
	return result, remoteName, true
}

func downloadRemote(client *sftp.Client, remotePath, localPath string) error {
	src, err := client.Open(remotePath)
	if err != nil {
		return fmt.Errorf("opening remote file %s: %w", remotePath, err)
	}
	defer src.Close()

	dst, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("creating local file %s: %w", localPath, err)
	}
	defer dst.Close()

	if _, err := src.WriteTo(dst); err != nil {
		return fmt.Errorf("writing %s: %w", localPath, err)
	}
	return nil
}
