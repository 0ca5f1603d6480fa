package model

// Tally counts keys and remembers the order they were first added in. The
// zero value is ready to use.
type Tally[K comparable] struct {
	keys   []K
	counts map[K]int
}

// Add adds n to k.
func (t *Tally[K]) Add(k K, n int) {
	if t.counts == nil {
		t.counts = make(map[K]int)
	}
	if _, ok := t.counts[k]; !ok {
		t.keys = append(t.keys, k)
	}
	t.counts[k] += n
}

// Get returns the count of k, zero when absent.
func (t *Tally[K]) Get(k K) int {
	return t.counts[k]
}

// Keys returns keys in first-added order. The slice must not be modified.
func (t *Tally[K]) Keys() []K {
	return t.keys
}

// Len returns the number of distinct keys.
func (t *Tally[K]) Len() int {
	return len(t.keys)
}

// Total returns the sum of all counts.
func (t *Tally[K]) Total() int {
	var n int
	for _, c := range t.counts {
		n += c
	}
	return n
}
