package value

// Dict is an insertion-ordered string-to-Value mapping. Iteration and
// on-wire order follow insertion order, matching spec.md's requirement
// that dict encode/decode preserve key order.
type Dict struct {
	keys []string
	vals map[string]Value
}

// NewDict returns an empty, insertion-ordered Dict.
func NewDict() *Dict {
	return &Dict{vals: make(map[string]Value)}
}

// Set inserts or updates key. Updating an existing key does not move its
// position in iteration order.
func (d *Dict) Set(key string, v Value) {
	if _, exists := d.vals[key]; !exists {
		d.keys = append(d.keys, key)
	}
	d.vals[key] = v
}

// Delete removes key if present.
func (d *Dict) Delete(key string) {
	if _, exists := d.vals[key]; !exists {
		return
	}
	delete(d.vals, key)
	for i, k := range d.keys {
		if k == key {
			d.keys = append(d.keys[:i], d.keys[i+1:]...)
			break
		}
	}
}

// Get returns the value for key and whether it was present.
func (d *Dict) Get(key string) (Value, bool) {
	v, ok := d.vals[key]
	return v, ok
}

// Len returns the number of entries.
func (d *Dict) Len() int { return len(d.keys) }

// Keys returns the keys in insertion order. The returned slice must not
// be mutated by the caller.
func (d *Dict) Keys() []string { return d.keys }

// Each calls fn for every entry in insertion order.
func (d *Dict) Each(fn func(key string, v Value)) {
	for _, k := range d.keys {
		fn(k, d.vals[k])
	}
}

// Equal reports whether d and o hold the same keys with equal values. Key
// order is not part of equality (two dicts built in different orders but
// holding the same entries are equal), matching general dict semantics;
// only *encoding* is order-sensitive.
func (d *Dict) Equal(o *Dict) bool {
	if d == nil || o == nil {
		return d == o
	}
	if d.Len() != o.Len() {
		return false
	}
	for _, k := range d.keys {
		ov, ok := o.Get(k)
		if !ok {
			return false
		}
		if !d.vals[k].Equal(ov) {
			return false
		}
	}
	return true
}
