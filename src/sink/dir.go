package sink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sync"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/spf13/afero"

	outfs "github.com/elee1766/claudexport/src/fs"
)

// ErrInsufficientSpace is returned by Preflight when the output volume is nearly full.
var ErrInsufficientSpace = errors.New("insufficient free disk space")

// DirSink writes each file under a root directory.
type DirSink struct {
	fs     *outfs.RootedFs
	logger *slog.Logger

	mu      sync.Mutex
	written int
}

// NewDirSink creates a sink rooted at root on base.
func NewDirSink(base afero.Fs, root string, logger *slog.Logger) *DirSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &DirSink{
		fs:     outfs.NewRootedFs(base, root),
		logger: logger.With("component", "dir_sink", "root", root),
	}
}

// Preflight checks that the volume holding the root has at least minFree bytes available.
// It only makes sense for sinks backed by the OS filesystem.
func (s *DirSink) Preflight(ctx context.Context, minFree uint64) error {
	if err := s.fs.Fs.MkdirAll(s.fs.Root(), 0o755); err != nil {
		return &SinkError{Op: "mkdir", Path: s.fs.Root(), Err: err}
	}
	usage, err := disk.UsageWithContext(ctx, s.fs.Root())
	if err != nil {
		return &SinkError{Op: "stat volume", Path: s.fs.Root(), Err: err}
	}
	s.logger.Debug("output volume", "free", usage.Free, "total", usage.Total)
	if usage.Free < minFree {
		return &SinkError{
			Op:   "preflight",
			Path: s.fs.Root(),
			Err:  fmt.Errorf("%w: %d bytes free, %d required", ErrInsufficientSpace, usage.Free, minFree),
		}
	}
	return nil
}

// Write creates parent directories as needed and writes content to p.
func (s *DirSink) Write(ctx context.Context, p string, content string) error {
	if err := ctx.Err(); err != nil {
		return &SinkError{Op: "write", Path: p, Err: err}
	}
	cleaned, err := outfs.Clean(p)
	if err != nil {
		return &SinkError{Op: "write", Path: p, Err: err}
	}
	if dir := path.Dir(cleaned); dir != "." {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return &SinkError{Op: "mkdir", Path: dir, Err: err}
		}
	}
	if err := afero.WriteFile(s.fs, cleaned, []byte(content), 0o644); err != nil {
		return &SinkError{Op: "write", Path: p, Err: err}
	}

	s.mu.Lock()
	s.written++
	s.mu.Unlock()
	return nil
}

// Finalize logs the number of files written. name is unused.
func (s *DirSink) Finalize(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger.Info("export written", "files", s.written)
	return nil
}

// Written returns the number of files written so far.
func (s *DirSink) Written() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.written
}
