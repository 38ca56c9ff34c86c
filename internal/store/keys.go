package store

import "strings"

// Key names inside a namespace.
const (
	KeyUserBooks = "userBooks"
	KeyRatings   = "ratings"
	KeyStatuses  = "statuses"
	KeyFilters   = "filters"
	KeySort      = "sort"
)

// DefaultNamespace prefixes every key unless configured otherwise.
const DefaultNamespace = "bookly"

// Keys resolves the namespaced storage keys.
type Keys struct {
	Namespace string
}

// NewKeys returns the key set for ns, falling back to DefaultNamespace.
func NewKeys(ns string) Keys {
	if ns == "" {
		ns = DefaultNamespace
	}
	return Keys{Namespace: ns}
}

// Full returns "<namespace>:<name>".
func (k Keys) Full(name string) string {
	return k.Namespace + ":" + name
}

// Prefix is the shared prefix of every key in the namespace.
func (k Keys) Prefix() string {
	return k.Namespace + ":"
}

// Name strips the namespace from a full key. It reports false for keys outside the namespace.
func (k Keys) Name(full string) (string, bool) {
	name, ok := strings.CutPrefix(full, k.Prefix())
	if !ok || name == "" {
		return "", false
	}
	return name, true
}

// UserBooks is the key of the user collection.
func (k Keys) UserBooks() string { return k.Full(KeyUserBooks) }

// Ratings is the key of the rating overlay.
func (k Keys) Ratings() string { return k.Full(KeyRatings) }

// Statuses is the key of the status overlay.
func (k Keys) Statuses() string { return k.Full(KeyStatuses) }

// Filters is the key of the filter preference.
func (k Keys) Filters() string { return k.Full(KeyFilters) }

// Sort is the key of the sort preference.
func (k Keys) Sort() string { return k.Full(KeySort) }
