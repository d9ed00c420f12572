package cache

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAssignPodMovesBetweenBuckets covers invariant I8: a pod id
// belongs to exactly one per-node bucket, including the unassigned
// ("") one.
func TestAssignPodMovesBetweenBuckets(t *testing.T) {
	m := New()
	m.AddNode("n1", "10.0.0.1:1000")

	id := uuid.New()
	m.AddPod("p1", id, map[string]string{"app": "web"})
	assert.Contains(t, m.PodIDs(""), id)
	assert.NotContains(t, m.PodIDs("n1"), id)

	m.AssignPod("p1", id, "n1")
	assert.NotContains(t, m.PodIDs(""), id)
	assert.Contains(t, m.PodIDs("n1"), id)

	info, ok := m.PodInfo("p1")
	require.True(t, ok)
	assert.Equal(t, "n1", info.NodeName)
}

func TestRemovePodClearsEveryIndex(t *testing.T) {
	m := New()
	id := uuid.New()
	m.AddPod("p1", id, map[string]string{"app": "web"})

	m.RemovePod("p1", id, map[string]string{"app": "web"})
	assert.False(t, m.PodNameExists("p1"))
	assert.NotContains(t, m.PodIDs(""), id)
	assert.Empty(t, m.PodIDsMatchingLabel("app", "web"))
}

func TestPodIDsMatchingLabelIndexesOnAdd(t *testing.T) {
	m := New()
	id := uuid.New()
	m.AddPod("p1", id, map[string]string{"app": "web", "tier": "frontend"})

	assert.Contains(t, m.PodIDsMatchingLabel("app", "web"), id)
	assert.Empty(t, m.PodIDsMatchingLabel("app", "db"))
}

func TestNodeAndReplicaSetExistence(t *testing.T) {
	m := New()
	assert.False(t, m.NodeNameExists("n1"))
	m.AddNode("n1", "10.0.0.1:1000")
	assert.True(t, m.NodeNameExists("n1"))
	assert.True(t, m.NodeAddrExists("10.0.0.1:1000"))

	id := uuid.New()
	m.AddReplicaSet("rs1", id)
	assert.True(t, m.ReplicaSetNameExists("rs1"))
	got, ok := m.ReplicaSetID("rs1")
	require.True(t, ok)
	assert.Equal(t, id, got)

	m.RemoveReplicaSet("rs1")
	assert.False(t, m.ReplicaSetNameExists("rs1"))
}
