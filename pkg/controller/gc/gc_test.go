package gc

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/cr8s-go/cr8s/pkg/types"
)

func TestShouldCollectOnlyOrphansInTerminalPhase(t *testing.T) {
	orphanFailed := types.Pod{Status: types.PodStatus{Phase: types.PodFailed}}
	assert.True(t, shouldCollect(orphanFailed))

	orphanSucceeded := types.Pod{Status: types.PodStatus{Phase: types.PodSucceeded}}
	assert.True(t, shouldCollect(orphanSucceeded))

	orphanRunning := types.Pod{Status: types.PodStatus{Phase: types.PodRunning}}
	assert.False(t, shouldCollect(orphanRunning))

	owned := types.Pod{
		Metadata: types.Metadata{Owner: &types.OwnerReference{ID: uuid.New(), Kind: types.KindReplicaSet}},
		Status:   types.PodStatus{Phase: types.PodFailed},
	}
	assert.False(t, shouldCollect(owned))
}
