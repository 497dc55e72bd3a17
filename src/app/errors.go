package app

import "errors"

var (
	// ErrUnsupportedScope is returned for locations that imply no export scope.
	ErrUnsupportedScope = errors.New("location does not name an exportable scope")

	// ErrProjectNotFound is returned when a requested project does not exist.
	ErrProjectNotFound = errors.New("project not found")

	// ErrHistoryDisabled is returned by history queries when storage is turned off.
	ErrHistoryDisabled = errors.New("export history is disabled")
)
