package main

import (
	"context"
	"errors"

	"github.com/elee1766/claudexport/src/app"
	"github.com/elee1766/claudexport/src/claudeapi"
	"github.com/elee1766/claudexport/src/config"
	"github.com/elee1766/claudexport/src/credentials"
	"github.com/elee1766/claudexport/src/exporter"
	"github.com/elee1766/claudexport/src/sink"
)

// Exit codes following standard conventions
const (
	ExitSuccess     = 0 // Success
	ExitError       = 1 // General error
	ExitUsage       = 2 // Usage error
	ExitConfig      = 3 // Configuration error
	ExitAuth        = 4 // Authentication error
	ExitPermission  = 5 // Output could not be written
	ExitNetwork     = 6 // Network error
	ExitTimeout     = 7 // Timeout error
	ExitInterrupted = 8 // Interrupted by user
	ExitPartial     = 9 // Some conversations failed
)

// errInterrupted is returned when the user stopped an export.
var errInterrupted = errors.New("export interrupted")

// errPartial is returned when an export finished with failed conversations.
var errPartial = errors.New("some conversations could not be exported")

// exitCode determines the appropriate exit code for an error
func exitCode(err error) int {
	var (
		apiErr       *claudeapi.APIError
		transportErr *claudeapi.TransportError
		validErr     config.ValidationError
		sinkErr      *sink.SinkError
	)

	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, errInterrupted), errors.Is(err, context.Canceled):
		return ExitInterrupted
	case errors.Is(err, errPartial):
		return ExitPartial
	case errors.Is(err, context.DeadlineExceeded):
		return ExitTimeout
	case errors.Is(err, claudeapi.ErrNoSessionKey), errors.Is(err, credentials.ErrNotStored):
		return ExitAuth
	case errors.As(err, &apiErr):
		if apiErr.IsAuthError() {
			return ExitAuth
		}
		return ExitNetwork
	case errors.As(err, &transportErr):
		return ExitNetwork
	case errors.As(err, &validErr):
		return ExitConfig
	case errors.As(err, &sinkErr):
		return ExitPermission
	case errors.Is(err, app.ErrUnsupportedScope),
		errors.Is(err, app.ErrProjectNotFound),
		errors.Is(err, exporter.ErrEmptySelection):
		return ExitUsage
	default:
		return ExitError
	}
}
