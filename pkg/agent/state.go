package agent

import (
	"sync"

	"github.com/google/uuid"

	"github.com/cr8s-go/cr8s/pkg/engine"
	"github.com/cr8s-go/cr8s/pkg/types"
)

// podMap is a concurrent id→Pod map with per-entry mutation, per
// spec.md §5's requirement for the agent's pods and pod_runtimes
// state. A single RWMutex is enough here: entries are independent and
// nothing needs a cross-entry atomic update the way the cache's
// per-node buckets do.
type podMap struct {
	mu   sync.RWMutex
	pods map[uuid.UUID]types.Pod
}

func newPodMap() *podMap {
	return &podMap{pods: map[uuid.UUID]types.Pod{}}
}

func (m *podMap) put(p types.Pod) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pods[p.Metadata.ID] = p
}

func (m *podMap) get(id uuid.UUID) (types.Pod, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.pods[id]
	return p, ok
}

func (m *podMap) delete(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pods, id)
}

func (m *podMap) all() []types.Pod {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]types.Pod, 0, len(m.pods))
	for _, p := range m.pods {
		out = append(out, p)
	}
	return out
}

// runtimeMap is a concurrent id→PodRuntime map. add rejects duplicate
// ids per spec.md §5; status updates take the map's write lock and
// rewrite one container's entry inside the stored PodRuntime.
type runtimeMap struct {
	mu       sync.RWMutex
	runtimes map[uuid.UUID]*engine.PodRuntime
}

func newRuntimeMap() *runtimeMap {
	return &runtimeMap{runtimes: map[uuid.UUID]*engine.PodRuntime{}}
}

// add inserts runtime, returning false if one already exists for this
// id (the caller should treat this as "already reconciled").
func (m *runtimeMap) add(runtime *engine.PodRuntime) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.runtimes[runtime.ID]; exists {
		return false
	}
	m.runtimes[runtime.ID] = runtime
	return true
}

func (m *runtimeMap) get(id uuid.UUID) (*engine.PodRuntime, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.runtimes[id]
	return r, ok
}

func (m *runtimeMap) remove(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.runtimes, id)
}

func (m *runtimeMap) all() []*engine.PodRuntime {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*engine.PodRuntime, 0, len(m.runtimes))
	for _, r := range m.runtimes {
		out = append(out, r)
	}
	return out
}

// updateContainerStatus takes runtime's entry lock (via the map lock,
// since PodRuntime has no lock of its own) and rewrites one
// container's status in place.
func (m *runtimeMap) updateContainerStatus(id uuid.UUID, containerName, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runtimes[id]
	if !ok {
		return
	}
	c, ok := r.Containers[containerName]
	if !ok {
		return
	}
	c.Status = status
	r.Containers[containerName] = c
}
