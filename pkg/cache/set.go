package cache

// StringSet is a sharded, concurrency-safe set of strings, built on
// shardMap. It backs the node agent's "images already pulled" set
// (spec.md §4.5) and anything else that only needs membership, not a
// cross-index atomic update — unlike Manager, a single key's
// membership here never needs to move atomically with another key's,
// so per-shard locking alone is sufficient.
type StringSet struct {
	m *shardMap
}

// NewStringSet returns an empty StringSet.
func NewStringSet() *StringSet {
	return &StringSet{m: newShardMap()}
}

// Has reports whether key is a member.
func (s *StringSet) Has(key string) bool {
	_, ok := s.m.get(key)
	return ok
}

// Add inserts key, returning true if it was newly added.
func (s *StringSet) Add(key string) (added bool) {
	added = false
	s.m.mutate(key, func(current interface{}) interface{} {
		if current == nil {
			added = true
		}
		return true
	})
	return added
}

// Remove deletes key.
func (s *StringSet) Remove(key string) {
	s.m.delete(key)
}

// Keys returns a snapshot of the set's members.
func (s *StringSet) Keys() []string {
	return s.m.keys()
}
