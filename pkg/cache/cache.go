// Package cache implements the API server's hot indexes: the
// existence/uniqueness sets and lookup tables spec.md §4.1 requires
// the REST endpoints and controllers to consult synchronously, without
// going back to the store for a full object body. The cache is
// authoritative only for these indexes; the store remains the source
// of truth for object bodies.
package cache

import (
	"sync"

	"github.com/google/uuid"
)

const unassigned = ""

// PodInfo is the cache's summary of a pod: just enough to answer
// "does this name exist" and "which node is it on" without a store
// round trip.
type PodInfo struct {
	ID         uuid.UUID
	NodeName   string
}

// Manager holds every hot index the API server needs. All of its
// methods are safe for concurrent use; none of them touch the store.
type Manager struct {
	mu sync.RWMutex

	nodeNames map[string]struct{}
	nodeAddrs map[string]struct{}

	podNameToInfo map[string]PodInfo
	podIDsByNode  map[string]map[uuid.UUID]struct{}

	replicaSetNames map[string]struct{}
	replicaSetIDs   map[string]uuid.UUID

	// labelIndex[key][value] is the set of pod ids carrying that
	// label key/value pair.
	labelIndex map[string]map[string]map[uuid.UUID]struct{}
}

// New returns an empty Manager.
func New() *Manager {
	return &Manager{
		nodeNames:       map[string]struct{}{},
		nodeAddrs:       map[string]struct{}{},
		podNameToInfo:   map[string]PodInfo{},
		podIDsByNode:    map[string]map[uuid.UUID]struct{}{unassigned: {}},
		replicaSetNames: map[string]struct{}{},
		replicaSetIDs:   map[string]uuid.UUID{},
		labelIndex:      map[string]map[string]map[uuid.UUID]struct{}{},
	}
}

// --- nodes ---

func (m *Manager) NodeNameExists(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.nodeNames[name]
	return ok
}

func (m *Manager) NodeAddrExists(addr string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.nodeAddrs[addr]
	return ok
}

func (m *Manager) AddNode(name, addr string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nodeNames[name] = struct{}{}
	m.nodeAddrs[addr] = struct{}{}
	if _, ok := m.podIDsByNode[name]; !ok {
		m.podIDsByNode[name] = map[uuid.UUID]struct{}{}
	}
}

// --- pods ---

func (m *Manager) PodNameExists(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.podNameToInfo[name]
	return ok
}

func (m *Manager) PodInfo(name string) (PodInfo, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	info, ok := m.podNameToInfo[name]
	return info, ok
}

// PodIDs returns a snapshot of the pod ids assigned to nodeName ("" for
// unassigned pods).
func (m *Manager) PodIDs(nodeName string) []uuid.UUID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	bucket := m.podIDsByNode[nodeName]
	ids := make([]uuid.UUID, 0, len(bucket))
	for id := range bucket {
		ids = append(ids, id)
	}
	return ids
}

// AddPod records a newly created pod, unassigned until bound.
func (m *Manager) AddPod(name string, id uuid.UUID, labels map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.podNameToInfo[name] = PodInfo{ID: id, NodeName: unassigned}
	m.podIDsByNode[unassigned][id] = struct{}{}
	m.indexLabelsLocked(id, labels)
}

// AssignPod moves a pod from its current bucket to nodeName. It
// satisfies invariant I8: the pod id is removed from exactly one
// bucket and added to exactly one other.
func (m *Manager) AssignPod(name string, id uuid.UUID, nodeName string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	info, ok := m.podNameToInfo[name]
	from := unassigned
	if ok {
		from = info.NodeName
	}
	delete(m.podIDsByNode[from], id)
	if _, ok := m.podIDsByNode[nodeName]; !ok {
		m.podIDsByNode[nodeName] = map[uuid.UUID]struct{}{}
	}
	m.podIDsByNode[nodeName][id] = struct{}{}
	m.podNameToInfo[name] = PodInfo{ID: id, NodeName: nodeName}
}

// RemovePod deletes a pod from every index.
func (m *Manager) RemovePod(name string, id uuid.UUID, labels map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	info, ok := m.podNameToInfo[name]
	bucket := unassigned
	if ok {
		bucket = info.NodeName
	}
	delete(m.podIDsByNode[bucket], id)
	delete(m.podNameToInfo, name)
	m.unindexLabelsLocked(id, labels)
}

func (m *Manager) indexLabelsLocked(id uuid.UUID, labels map[string]string) {
	for k, v := range labels {
		byValue, ok := m.labelIndex[k]
		if !ok {
			byValue = map[string]map[uuid.UUID]struct{}{}
			m.labelIndex[k] = byValue
		}
		ids, ok := byValue[v]
		if !ok {
			ids = map[uuid.UUID]struct{}{}
			byValue[v] = ids
		}
		ids[id] = struct{}{}
	}
}

func (m *Manager) unindexLabelsLocked(id uuid.UUID, labels map[string]string) {
	for k, v := range labels {
		if ids, ok := m.labelIndex[k][v]; ok {
			delete(ids, id)
		}
	}
}

// PodIDsMatchingLabel returns the pod ids carrying key=value.
func (m *Manager) PodIDsMatchingLabel(key, value string) []uuid.UUID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := m.labelIndex[key][value]
	out := make([]uuid.UUID, 0, len(ids))
	for id := range ids {
		out = append(out, id)
	}
	return out
}

// --- replica sets ---

func (m *Manager) ReplicaSetNameExists(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.replicaSetNames[name]
	return ok
}

func (m *Manager) AddReplicaSet(name string, id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replicaSetNames[name] = struct{}{}
	m.replicaSetIDs[name] = id
}

func (m *Manager) RemoveReplicaSet(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.replicaSetNames, name)
	delete(m.replicaSetIDs, name)
}

// ReplicaSetID returns the id backing a replica set name, used to
// build the store key for status updates.
func (m *Manager) ReplicaSetID(name string) (uuid.UUID, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.replicaSetIDs[name]
	return id, ok
}
