// Package secrets manages the local credentials file: the PageVitals API key
// plus the website IDs discovered from the PageVitals API.
package secrets

import "errors"

// Reserved names in the credentials file.
const (
	// APIKeyName holds the PageVitals API key. It is written once and never
	// merged.
	APIKeyName = "PAGEVITALS_API_KEY"

	// WebsitePrefix prefixes every discovered website ID.
	WebsitePrefix = "PAGEVITALS_WEBSITE_"
)

var (
	// ErrNotFound is returned when a name is not present in the snapshot.
	ErrNotFound = errors.New("key not found")

	// ErrNoAPIKey is returned when no API key is configured.
	ErrNoAPIKey = errors.New("no API key configured")

	// ErrKeyExists is returned by SetAPIKey when the file already holds a key.
	ErrKeyExists = errors.New("API key already present")

	// ErrOwnership is returned when the staged credentials file is not owned
	// by the current user or is not a regular file.
	ErrOwnership = errors.New("credentials file ownership mismatch")

	// ErrInsecureMode is returned when the staged file ends up readable by
	// group or other after chmod.
	ErrInsecureMode = errors.New("credentials file permissions too open")
)

// Resource is a website reported by the PageVitals API.
type Resource struct {
	DisplayName string
	ID          string
}

// Entry is a NAME=value pair stored in the credentials file.
type Entry struct {
	Name  string
	Value string
}

// SkipReason explains why a discovered resource was not stored.
type SkipReason string

const (
	// SkipExisting means the derived name is already stored with the same ID.
	SkipExisting SkipReason = "already stored"
	// SkipCollision means the derived name is taken by a different ID.
	SkipCollision SkipReason = "name collision"
	// SkipInvalid means no usable name or ID could be derived.
	SkipInvalid SkipReason = "invalid name or id"
)

// Skip records a resource that MergeAndPersist left out.
type Skip struct {
	Resource Resource
	Name     string
	Reason   SkipReason
}

// MergeResult reports the outcome of MergeAndPersist.
type MergeResult struct {
	Updated bool
	Added   []Entry
	Skipped []Skip
}
