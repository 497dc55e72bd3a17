package sink

import (
	"context"
	"errors"
	iofs "io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mholt/archives"
	"github.com/spf13/afero"

	outfs "github.com/elee1766/claudexport/src/fs"
)

// ErrEmptyArchive is returned when Finalize is called before anything was written.
var ErrEmptyArchive = errors.New("nothing to archive")

// ZipSink stages files in memory and writes them into a single zip archive on Finalize.
// Entries keep the order of their first write.
type ZipSink struct {
	staging afero.Fs
	out     afero.Fs
	dir     string
	logger  *slog.Logger

	mu    sync.Mutex
	order []string
	seen  map[string]bool
}

// NewZipSink creates a sink that writes its archive into dir on out.
func NewZipSink(out afero.Fs, dir string, logger *slog.Logger) *ZipSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &ZipSink{
		staging: afero.NewMemMapFs(),
		out:     out,
		dir:     dir,
		logger:  logger.With("component", "zip_sink"),
		seen:    make(map[string]bool),
	}
}

// Write stages content under p. Writing the same path twice replaces the content.
func (s *ZipSink) Write(ctx context.Context, p string, content string) error {
	if err := ctx.Err(); err != nil {
		return &SinkError{Op: "write", Path: p, Err: err}
	}
	cleaned, err := outfs.Clean(p)
	if err != nil {
		return &SinkError{Op: "write", Path: p, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := afero.WriteFile(s.staging, "/"+cleaned, []byte(content), 0o644); err != nil {
		return &SinkError{Op: "stage", Path: p, Err: err}
	}
	if !s.seen[cleaned] {
		s.seen[cleaned] = true
		s.order = append(s.order, cleaned)
	}
	return nil
}

// Len returns the number of staged entries.
func (s *ZipSink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// Finalize writes the archive name (".zip" is appended when missing) and returns its path.
func (s *ZipSink) Finalize(ctx context.Context, name string) error {
	_, err := s.FinalizePath(ctx, name)
	return err
}

// FinalizePath is Finalize that also reports where the archive was written.
func (s *ZipSink) FinalizePath(ctx context.Context, name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.order) == 0 {
		return "", &SinkError{Op: "finalize", Path: name, Err: ErrEmptyArchive}
	}
	if !strings.HasSuffix(strings.ToLower(name), ".zip") {
		name += ".zip"
	}
	target := filepath.Join(s.dir, filepath.Base(name))

	files := make([]archives.FileInfo, 0, len(s.order))
	for _, p := range s.order {
		staged := "/" + p
		info, err := s.staging.Stat(staged)
		if err != nil {
			return "", &SinkError{Op: "finalize", Path: p, Err: err}
		}
		files = append(files, archives.FileInfo{
			FileInfo:      info,
			NameInArchive: p,
			Open: func() (iofs.File, error) {
				return s.staging.Open(staged)
			},
		})
	}

	if s.dir != "" {
		if err := s.out.MkdirAll(s.dir, 0o755); err != nil {
			return "", &SinkError{Op: "mkdir", Path: s.dir, Err: err}
		}
	}
	f, err := s.out.Create(target)
	if err != nil {
		return "", &SinkError{Op: "create", Path: target, Err: err}
	}

	if err := (archives.Zip{}).Archive(ctx, f, files); err != nil {
		f.Close()
		return "", &SinkError{Op: "archive", Path: target, Err: err}
	}
	if err := f.Close(); err != nil {
		return "", &SinkError{Op: "close", Path: target, Err: err}
	}

	s.logger.Info("archive written", "path", target, "entries", len(files))
	return target, nil
}
