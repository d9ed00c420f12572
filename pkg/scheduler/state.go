package scheduler

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/cr8s-go/cr8s/pkg/types"
)

// shadowState is the scheduler's disposable cache of API-server
// objects — rebuilt from the initial watch backlog every time the
// scheduler (re)connects, never treated as authoritative for
// anything beyond filter/score (spec.md's "Shadow state in
// controllers" design note). Both the watch event handlers and the
// reconciliation goroutines touch it, hence the single mutex: a bind
// decision reads node+pod capacity together and must not race a
// concurrent node-resource update.
type shadowState struct {
	mu sync.Mutex

	nodes      map[string]types.Node
	nodeRes    map[string]Resources
	pods       map[uuid.UUID]types.Pod
	podRes     map[uuid.UUID]Resources
	podsByNode map[string]map[uuid.UUID]struct{}
}

func newShadowState() *shadowState {
	return &shadowState{
		nodes:      map[string]types.Node{},
		nodeRes:    map[string]Resources{},
		pods:       map[uuid.UUID]types.Pod{},
		podRes:     map[uuid.UUID]Resources{},
		podsByNode: map[string]map[uuid.UUID]struct{}{},
	}
}

// addNode records a newly observed node with a freshly drawn resource
// vector. Returns the ids of every currently unbound pod, which the
// caller enqueues for (re)consideration.
func (s *shadowState) addNode(n types.Node) []uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.nodeRes[n.Metadata.Name]; !ok {
		s.nodeRes[n.Metadata.Name] = RandomNodeResources()
	}
	s.nodes[n.Metadata.Name] = n

	var unbound []uuid.UUID
	for id, p := range s.pods {
		if p.Unbound() {
			unbound = append(unbound, id)
		}
	}
	return unbound
}

// addOrUpdatePod records a pod's current spec. For a still-unbound pod
// it returns true, telling the caller to enqueue it.
func (s *shadowState) addOrUpdatePod(p types.Pod) (needsScheduling bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := p.Metadata.ID
	if _, ok := s.podRes[id]; !ok {
		s.podRes[id] = RandomPodResources()
	}
	s.pods[id] = p

	if !p.Unbound() {
		s.placeLocked(id, p.Spec.NodeName)
		return false
	}
	return true
}

// placeLocked records that pod id is bound to nodeName and debits the
// node's free resources. Callers must hold s.mu.
func (s *shadowState) placeLocked(id uuid.UUID, nodeName string) {
	bucket, ok := s.podsByNode[nodeName]
	if !ok {
		bucket = map[uuid.UUID]struct{}{}
		s.podsByNode[nodeName] = bucket
	}
	if _, already := bucket[id]; already {
		return
	}
	bucket[id] = struct{}{}
	if res, ok := s.nodeRes[nodeName]; ok {
		s.nodeRes[nodeName] = res.Sub(s.podRes[id])
	}
}

// removePod frees a deleted pod's resources back to its node, per
// spec.md §4.3's delete-handling rule.
func (s *shadowState) removePod(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pods[id]
	if !ok {
		return
	}
	if !p.Unbound() {
		if bucket, ok := s.podsByNode[p.Spec.NodeName]; ok {
			delete(bucket, id)
		}
		if res, ok := s.nodeRes[p.Spec.NodeName]; ok {
			s.nodeRes[p.Spec.NodeName] = Resources{
				MilliCPU: res.MilliCPU + s.podRes[id].MilliCPU,
				MemBytes: res.MemBytes + s.podRes[id].MemBytes,
			}
		}
	}
	delete(s.pods, id)
	delete(s.podRes, id)
}

// pod returns a copy of the shadow pod, or false if it has been
// dropped (e.g. concurrently deleted).
func (s *shadowState) pod(id uuid.UUID) (types.Pod, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pods[id]
	return p, ok
}

// candidateNodes returns every node whose free capacity fits demand,
// sorted by name — spec.md §4.3 requires the sort so that score ties
// break deterministically.
func (s *shadowState) candidateNodes(demand Resources) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var names []string
	for name, res := range s.nodeRes {
		if res.Fits(demand) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func (s *shadowState) nodeResources(name string) Resources {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nodeRes[name]
}

func (s *shadowState) podResources(id uuid.UUID) Resources {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.podRes[id]
}

func (s *shadowState) podCount(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.podsByNode[name])
}

// bind records a successful bind: the pod moves into the winning
// node's bucket and the node's free resources are debited.
func (s *shadowState) bind(id uuid.UUID, nodeName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.pods[id]
	p.Spec.NodeName = nodeName
	s.pods[id] = p
	s.placeLocked(id, nodeName)
}
