package cache

// ScopedKeyer wraps a Keyer with a prefix so that several callers can share
// one backend without seeing each other's entries. The server scopes its keys
// so that API results and CLI results never collide in a shared Redis.
//
//	apiKeyer := NewScopedKeyer(NewDefaultKeyer(), "api:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// PlacementKey generates a prefixed placement key.
func (k *ScopedKeyer) PlacementKey(designHash string, opts PlacementKeyOpts) string {
	return k.prefix + k.inner.PlacementKey(designHash, opts)
}
