// Package cache stores legalization results so that re-running the same
// benchmark with the same options can skip the annealing budget.
//
// Three backends implement [Cache]: [FileCache] for the CLI, [RedisCache]
// for the server, and [NullCache] to disable caching. A [Keyer] derives keys
// from the design content hash and the options that influence the result.
package cache

import (
	"context"
	"time"
)

// TTLPlacement is how long a legalization result stays cached.
const TTLPlacement = 30 * 24 * time.Hour

// Cache is a byte-oriented key/value store with per-entry expiry.
type Cache interface {
	// Get returns the value for key. A missing or expired entry is a miss,
	// not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A non-positive ttl means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases the backend's resources.
	Close() error
}

// PlacementKeyOpts are the options that change a legalization result.
type PlacementKeyOpts struct {
	Epsilon       float64       `json:"epsilon"`
	MaxDuration   time.Duration `json:"max_duration"`
	Seed          uint64        `json:"seed"`
	MaxIterations int           `json:"max_iterations"`
	Schedule      [4]float64    `json:"schedule"` // initial, cooling, floor, proposals per step
}

// Keyer derives cache keys.
type Keyer interface {
	// PlacementKey returns the key for the legalized positions of the design
	// whose content hash is designHash.
	PlacementKey(designHash string, opts PlacementKeyOpts) string
}

// DefaultKeyer hashes the key components into fixed-length keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// PlacementKey implements Keyer.
func (DefaultKeyer) PlacementKey(designHash string, opts PlacementKeyOpts) string {
	return hashKey("placement", designHash, opts)
}
