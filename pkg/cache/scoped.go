package cache

// ScopedKeyer wraps a Keyer with a prefix so several deployments or users
// can share one Redis instance.
//
//	keyer := cache.NewScopedKeyer(cache.NewDefaultKeyer(), "team:acme:")
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

// LayoutKey generates a prefixed layout key.
func (k *ScopedKeyer) LayoutKey(graphHash string, opts LayoutKeyOpts) string {
	return k.prefix + k.inner.LayoutKey(graphHash, opts)
}

// WidgetsKey generates a prefixed widget listing key.
func (k *ScopedKeyer) WidgetsKey(boardID string, types []string) string {
	return k.prefix + k.inner.WidgetsKey(boardID, types)
}

// BoardKey generates a prefixed board state key.
func (k *ScopedKeyer) BoardKey(boardID string) string {
	return k.prefix + k.inner.BoardKey(boardID)
}
