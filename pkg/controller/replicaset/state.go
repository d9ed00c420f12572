package replicaset

import (
	"sync"

	"github.com/google/uuid"

	"github.com/cr8s-go/cr8s/pkg/types"
)

// shadowState is the controller's disposable view of ReplicaSet
// objects, rebuilt from the watch backlog on every (re)connect — the
// same shadow-cache discipline as the scheduler's state.
type shadowState struct {
	mu   sync.Mutex
	sets map[uuid.UUID]types.ReplicaSet
}

func newShadowState() *shadowState {
	return &shadowState{sets: map[uuid.UUID]types.ReplicaSet{}}
}

func (s *shadowState) put(rs types.ReplicaSet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sets[rs.Metadata.ID] = rs
}

func (s *shadowState) remove(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sets, id)
}

func (s *shadowState) get(id uuid.UUID) (types.ReplicaSet, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rs, ok := s.sets[id]
	return rs, ok
}

// find returns the id of the tracked ReplicaSet a pod's owner
// reference points at, if any.
func (s *shadowState) find(owner *types.OwnerReference) (uuid.UUID, bool) {
	if owner == nil || owner.Kind != types.KindReplicaSet {
		return uuid.UUID{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sets[owner.ID]
	return owner.ID, ok
}
