// Package sink writes exported files to their destination: a directory tree or a zip archive.
package sink

import (
	"context"
	"fmt"
)

// Sink receives exported files. Paths are slash-separated and relative; they are preserved
// exactly as given.
type Sink interface {
	Write(ctx context.Context, path string, content string) error
	// Finalize flushes the sink. name is the archive name for sinks that produce one.
	Finalize(ctx context.Context, name string) error
}

// SinkError is a failure to write or finalize output.
type SinkError struct {
	Op   string
	Path string
	Err  error
}

// Error implements the error interface.
func (e *SinkError) Error() string {
	return fmt.Sprintf("sink %s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *SinkError) Unwrap() error {
	return e.Err
}
