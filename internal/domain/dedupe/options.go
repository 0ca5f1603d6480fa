package dedupe

// Option applies a configuration option to the InMemoryDeduper.
type Option func(*inMemoryDeduper)

// WithCapacity pre-sizes the seen set for an expected number of keys.
func WithCapacity(n int) Option {
	return func(d *inMemoryDeduper) {
		if n > 0 {
			d.seen = make(map[string]struct{}, n)
		}
	}
}
