package store

import (
	"context"
	"encoding/json"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/cr8s-go/cr8s/pkg/types"
)

// MemStore is an in-memory Store, used by tests and by the server when
// no etcd address is configured. It round-trips every value through JSON so it exercises
// the same encode/decode path the etcd-backed store does.
type MemStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{data: map[string][]byte{}}
}

func (s *MemStore) Get(_ context.Context, key string, out interface{}) error {
	s.mu.RLock()
	raw, ok := s.data[key]
	s.mu.RUnlock()
	if !ok {
		return types.NewError(types.ErrNotFound, "no object at key %q", key)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return types.NewError(types.ErrUnexpected, "decode %q: %v", key, err)
	}
	return nil
}

func (s *MemStore) Put(_ context.Context, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return types.NewError(types.ErrUnexpected, "encode %q: %v", key, err)
	}
	s.mu.Lock()
	s.data[key] = raw
	s.mu.Unlock()
	return nil
}

func (s *MemStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.data, key)
	s.mu.Unlock()
	return nil
}

// List decodes every value under prefix into *out, which must be a
// pointer to a slice. Keys are visited in sorted order so list results
// (and therefore watch backlogs) are reproducible.
func (s *MemStore) List(_ context.Context, prefix string, out interface{}) error {
	outVal := reflect.ValueOf(out)
	if outVal.Kind() != reflect.Ptr || outVal.Elem().Kind() != reflect.Slice {
		return types.NewError(types.ErrUnexpected, "List: out must be a pointer to a slice")
	}
	sliceVal := outVal.Elem()
	elemType := sliceVal.Type().Elem()

	s.mu.RLock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	raws := make([][]byte, 0, len(keys))
	for _, k := range keys {
		raws = append(raws, s.data[k])
	}
	s.mu.RUnlock()

	result := reflect.MakeSlice(sliceVal.Type(), 0, len(raws))
	for _, raw := range raws {
		elemPtr := reflect.New(elemType)
		if err := json.Unmarshal(raw, elemPtr.Interface()); err != nil {
			return types.NewError(types.ErrUnexpected, "decode list entry under %q: %v", prefix, err)
		}
		result = reflect.Append(result, elemPtr.Elem())
	}
	sliceVal.Set(result)
	return nil
}
