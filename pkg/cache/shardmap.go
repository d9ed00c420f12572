package cache

import (
	"hash/fnv"
	"sync"
)

const shardCount = 32

// shardMap is a string-keyed map split across a fixed number of
// independently locked shards, grounded on the per-entry locking the
// teacher's pkg/client/cache package uses and on the original's
// DashMap-based CacheManager (server/src/store/cache.rs). It gives
// StringSet concurrency-safe access without a single global lock;
// Manager does not use it.
type shardMap struct {
	shards [shardCount]*shard
}

type shard struct {
	mu   sync.RWMutex
	data map[string]interface{}
}

func newShardMap() *shardMap {
	sm := &shardMap{}
	for i := range sm.shards {
		sm.shards[i] = &shard{data: map[string]interface{}{}}
	}
	return sm
}

func (sm *shardMap) shardFor(key string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return sm.shards[h.Sum32()%shardCount]
}

func (sm *shardMap) get(key string) (interface{}, bool) {
	s := sm.shardFor(key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok
}

func (sm *shardMap) set(key string, value interface{}) {
	s := sm.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
}

func (sm *shardMap) delete(key string) {
	s := sm.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
}

// mutate runs fn under the shard's write lock holding key, passing the
// current value (nil if absent) and letting fn return the replacement.
// Used for read-modify-write updates like index bucket membership.
func (sm *shardMap) mutate(key string, fn func(current interface{}) interface{}) {
	s := sm.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = fn(s.data[key])
}

func (sm *shardMap) keys() []string {
	var out []string
	for _, s := range sm.shards {
		s.mu.RLock()
		for k := range s.data {
			out = append(out, k)
		}
		s.mu.RUnlock()
	}
	return out
}
