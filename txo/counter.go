package txo

// Counter is a monotonically increasing metric. The publisher feeds one per
// delivery outcome; adapters under metrics/ bridge it to concrete backends.
type Counter interface {
	Inc(delta int64)
}

// NopCounter drops every increment. It is the default until counters are
// configured.
type NopCounter struct{}

var _ Counter = (*NopCounter)(nil)

func (*NopCounter) Inc(delta int64) {} //nolint:all
