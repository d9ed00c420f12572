package agent

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cr8s-go/cr8s/pkg/config"
	"github.com/cr8s-go/cr8s/pkg/engine"
	"github.com/cr8s-go/cr8s/pkg/types"
)

func testPod(id uuid.UUID) types.Pod {
	return types.Pod{
		Metadata: types.Metadata{ID: id, Name: "p"},
		Spec: types.PodSpec{
			Containers: []types.ContainerSpec{{Name: "a", Image: "nginx"}, {Name: "b", Image: "redis"}},
		},
	}
}

// TestReconcileIsIdempotent mirrors spec.md §8 scenario 6: a second
// Modified for the same pod must not start its containers again.
func TestReconcileIsIdempotent(t *testing.T) {
	fake := engine.NewFakeEngine()
	a := New(config.AgentConfig{NodeName: "n1"}, nil, fake)

	id := uuid.New()
	pod := testPod(id)
	a.pods.put(pod)

	require.NoError(t, a.Reconcile(context.Background(), id))
	require.NoError(t, a.Reconcile(context.Background(), id))

	assert.Equal(t, 1, fake.StartPodCalls)
	runtime, ok := a.runtimes.get(id)
	require.True(t, ok)
	assert.Len(t, runtime.Containers, 2)
}

func TestReconcileMissingPodIsNoop(t *testing.T) {
	fake := engine.NewFakeEngine()
	a := New(config.AgentConfig{NodeName: "n1"}, nil, fake)

	require.NoError(t, a.Reconcile(context.Background(), uuid.New()))
	assert.Equal(t, 0, fake.StartPodCalls)
}

func TestDeleteStopsEveryContainerAndClearsRuntime(t *testing.T) {
	fake := engine.NewFakeEngine()
	a := New(config.AgentConfig{NodeName: "n1"}, nil, fake)

	id := uuid.New()
	a.pods.put(testPod(id))
	require.NoError(t, a.Reconcile(context.Background(), id))

	require.NoError(t, a.Delete(context.Background(), id))
	assert.Equal(t, 1, fake.StopPodCalls)
	_, ok := a.runtimes.get(id)
	assert.False(t, ok)
}

func TestDeleteMissingRuntimeIsNoop(t *testing.T) {
	fake := engine.NewFakeEngine()
	a := New(config.AgentConfig{NodeName: "n1"}, nil, fake)

	require.NoError(t, a.Delete(context.Background(), uuid.New()))
	assert.Equal(t, 0, fake.StopPodCalls)
}

func TestOneExitedContainerMeansNotAllRunning(t *testing.T) {
	fake := engine.NewFakeEngine()
	a := New(config.AgentConfig{NodeName: "n1", SyncLoopInterval: 0}, nil, fake)

	id := uuid.New()
	a.pods.put(testPod(id))
	require.NoError(t, a.Reconcile(context.Background(), id))

	runtime, _ := a.runtimes.get(id)
	for _, c := range runtime.Containers {
		fake.SetStatus(c.ID, "EXITED")
		break
	}

	// syncOnce needs a live client to PATCH status; exercise only the
	// phase aggregation it's built from by reading container statuses
	// back out of the fake engine directly.
	allRunning := true
	for _, c := range runtime.Containers {
		status, err := fake.GetContainerStatus(context.Background(), c.ID)
		require.NoError(t, err)
		if status != "RUNNING" {
			allRunning = false
		}
	}
	assert.False(t, allRunning)
}
