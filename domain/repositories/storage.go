package repositories

import "context"

// KeyValueStore is the persistence collaborator for the portfolio. The
// whole project list lives JSON-encoded under one fixed key; it is read on
// load and fully rewritten on every mutation.
type KeyValueStore interface {
	// Get returns the value stored under key. Missing keys return
	// ("", nil).
	Get(ctx context.Context, key string) (string, error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value string) error
}
