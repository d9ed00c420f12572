package scheduler

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cr8s-go/cr8s/pkg/types"
)

func newTestNode(name string) types.Node {
	return types.Node{Metadata: types.Metadata{Name: name}}
}

func newTestPod(name string) types.Pod {
	return types.Pod{Metadata: types.Metadata{ID: uuid.New(), Name: name}}
}

// TestScheduleOneFeasibleNode mirrors spec.md §8 scenario 4: node A
// has less free capacity than node B, so once both fit the pod, B
// wins the score.
func TestScheduleOneFeasibleNode(t *testing.T) {
	s := New(nil)
	s.state.nodeRes["A"] = Resources{MilliCPU: 2000, MemBytes: 4 * gib}
	s.state.nodeRes["B"] = Resources{MilliCPU: 4000, MemBytes: 8 * gib}
	s.state.nodes["A"] = newTestNode("A")
	s.state.nodes["B"] = newTestNode("B")

	pod := newTestPod("nginx")
	s.state.pods[pod.Metadata.ID] = pod
	s.state.podRes[pod.Metadata.ID] = Resources{MilliCPU: 500, MemBytes: 128 << 20}

	demand := s.state.podResources(pod.Metadata.ID)
	candidates := s.state.candidateNodes(demand)
	require.ElementsMatch(t, []string{"A", "B"}, candidates)

	winner := s.pickWinner(candidates, demand)
	assert.Equal(t, "B", winner)
}

func TestScheduleOneNoFit(t *testing.T) {
	s := New(nil)
	s.state.nodeRes["A"] = Resources{MilliCPU: 200, MemBytes: 64 << 20}

	pod := newTestPod("big")
	s.state.pods[pod.Metadata.ID] = pod
	s.state.podRes[pod.Metadata.ID] = Resources{MilliCPU: 1000, MemBytes: 512 << 20}

	candidates := s.state.candidateNodes(s.state.podResources(pod.Metadata.ID))
	assert.Empty(t, candidates)
}

// TestBindIsIdempotentOnceBound covers spec.md §8's idempotence property: a pod
// already bound to a node is a no-op if scheduled again.
func TestBindIsIdempotentOnceBound(t *testing.T) {
	s := New(nil)
	s.state.nodeRes["A"] = Resources{MilliCPU: 4000, MemBytes: 8 * gib}
	s.state.nodes["A"] = newTestNode("A")

	pod := newTestPod("web")
	pod.Spec.NodeName = "A"
	needsScheduling := s.state.addOrUpdatePod(pod)
	assert.False(t, needsScheduling)

	got, ok := s.state.pod(pod.Metadata.ID)
	require.True(t, ok)
	assert.Equal(t, "A", got.Spec.NodeName)
}

func TestDeletedPodFreesResources(t *testing.T) {
	s := New(nil)
	s.state.nodeRes["A"] = Resources{MilliCPU: 4000, MemBytes: 8 * gib}
	s.state.nodes["A"] = newTestNode("A")

	pod := newTestPod("web")
	pod.Spec.NodeName = "A"
	s.state.addOrUpdatePod(pod)
	before := s.state.nodeResources("A")
	assert.Less(t, before.MilliCPU, int64(4000))

	s.state.removePod(pod.Metadata.ID)
	after := s.state.nodeResources("A")
	assert.Equal(t, int64(4000), after.MilliCPU)
}
