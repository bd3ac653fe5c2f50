// Path: internal/domain/ports.go
package domain

import "context"

// KeyValueStore is the small persisted string store used for client preferences
// (favorites list, dark mode). Implementations live in internal/storage.
type KeyValueStore interface {
	// Get returns the value for key; found is false when the key was never set.
	Get(ctx context.Context, key string) (value string, found bool, err error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error
}
