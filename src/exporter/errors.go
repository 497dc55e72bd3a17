package exporter

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptySelection is returned when there is nothing to export. No job is created.
	ErrEmptySelection = errors.New("no conversations selected")

	// ErrNoConversation is recorded when the provider returns no detail and no error.
	ErrNoConversation = errors.New("provider returned no conversation")

	// ErrMissingDependency is returned by New when a required collaborator is nil.
	ErrMissingDependency = errors.New("missing exporter dependency")
)

// ItemError is the failure of a single conversation. It is recorded and the run continues.
type ItemError struct {
	ItemID  string
	Name    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e ItemError) Error() string {
	return fmt.Sprintf("%s (%s): %s", e.Name, e.ItemID, e.Message)
}

// Unwrap returns the underlying error.
func (e ItemError) Unwrap() error {
	return e.Err
}
