// Package scope maps a location in the Claude web app to the export scope it implies.
package scope

import (
	"net/url"
	"strings"
)

// Kind enumerates the export scopes.
type Kind int

const (
	Unrecognized Kind = iota
	AllGroups
	SingleGroup
	AllUngroupedItems
	SingleItem
)

func (k Kind) String() string {
	switch k {
	case AllGroups:
		return "projects"
	case SingleGroup:
		return "project"
	case AllUngroupedItems:
		return "recents"
	case SingleItem:
		return "chat"
	default:
		return "unknown"
	}
}

// Scope is the result of resolving a location.
type Scope struct {
	Kind  Kind
	ID    string
	Title string
}

// Resolve maps a path such as "/project/<id>" (or a full URL) to a Scope.
func Resolve(location string) Scope {
	path := location
	if u, err := url.Parse(location); err == nil && u.Path != "" {
		path = u.Path
	}
	path = strings.TrimRight(path, "/")

	parts := strings.Split(strings.TrimPrefix(path, "/"), "/")
	switch {
	case len(parts) == 1 && parts[0] == "projects":
		return Scope{Kind: AllGroups, Title: "All Projects"}
	case len(parts) == 2 && parts[0] == "project" && parts[1] != "":
		return Scope{Kind: SingleGroup, ID: parts[1], Title: "Current Project"}
	case len(parts) == 1 && parts[0] == "recents":
		return Scope{Kind: AllUngroupedItems, Title: "Recent Conversations"}
	case len(parts) == 2 && parts[0] == "chat" && parts[1] != "":
		return Scope{Kind: SingleItem, ID: parts[1], Title: "Current Conversation"}
	}
	return Scope{Kind: Unrecognized, Title: "Unknown Context"}
}
