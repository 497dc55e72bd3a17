package selection

import "errors"

var (
	// ErrUnknownGroup is returned for a group id the state was not built with.
	ErrUnknownGroup = errors.New("unknown group")

	// ErrUnknownLeaf is returned when toggling a leaf that is not in its group's loaded list.
	ErrUnknownLeaf = errors.New("unknown leaf")
)
