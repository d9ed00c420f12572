package replicaset

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/cr8s-go/cr8s/pkg/types"
)

func TestShadowStateFindResolvesOwnedPods(t *testing.T) {
	s := newShadowState()
	rs := types.ReplicaSet{Metadata: types.Metadata{ID: uuid.New(), Name: "web"}}
	s.put(rs)

	id, ok := s.find(&types.OwnerReference{ID: rs.Metadata.ID, Kind: types.KindReplicaSet})
	assert.True(t, ok)
	assert.Equal(t, rs.Metadata.ID, id)

	_, ok = s.find(&types.OwnerReference{ID: uuid.New(), Kind: types.KindReplicaSet})
	assert.False(t, ok)

	_, ok = s.find(nil)
	assert.False(t, ok)
}

func TestCountOwnedOnlyCountsMatchingOwner(t *testing.T) {
	rsID := uuid.New()
	other := uuid.New()
	pods := []types.Pod{
		{Metadata: types.Metadata{Owner: &types.OwnerReference{ID: rsID, Kind: types.KindReplicaSet}}},
		{Metadata: types.Metadata{Owner: &types.OwnerReference{ID: rsID, Kind: types.KindReplicaSet}}},
		{Metadata: types.Metadata{Owner: &types.OwnerReference{ID: other, Kind: types.KindReplicaSet}}},
		{Metadata: types.Metadata{}},
	}
	assert.Equal(t, 2, countOwned(pods, rsID))
}

func TestSelectorQueryFormatsKeyValuePairs(t *testing.T) {
	q := selectorQuery(types.LabelSelector{MatchLabels: map[string]string{"app": "web"}})
	assert.Equal(t, "app=web", q)

	assert.Equal(t, "", selectorQuery(types.LabelSelector{}))
}

func TestRandomSuffixLength(t *testing.T) {
	s := randomSuffix(4)
	assert.Len(t, s, 4)
}
