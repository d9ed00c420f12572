package store

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cr8s-go/cr8s/pkg/types"
)

// TestPutGetRoundTrip covers spec.md §8's store round-trip property.
func TestPutGetRoundTrip(t *testing.T) {
	s := NewMemStore()
	node := types.Node{Metadata: types.Metadata{Name: "n1"}, Addr: "10.0.0.1:1000"}

	require.NoError(t, s.Put(context.Background(), NodeKey("n1"), node))

	var got types.Node
	require.NoError(t, s.Get(context.Background(), NodeKey("n1"), &got))
	assert.Equal(t, node, got)
}

func TestGetMissingKeyIsNotFound(t *testing.T) {
	s := NewMemStore()
	var out types.Node
	err := s.Get(context.Background(), NodeKey("missing"), &out)
	require.Error(t, err)
	assert.Equal(t, types.ErrNotFound, types.KindOf(err))
}

func TestListReturnsOnlyPrefixedKeysSorted(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	idA, idB := uuid.New(), uuid.New()
	require.NoError(t, s.Put(ctx, PodKey(idA), types.Pod{Metadata: types.Metadata{ID: idA, Name: "b"}}))
	require.NoError(t, s.Put(ctx, PodKey(idB), types.Pod{Metadata: types.Metadata{ID: idB, Name: "a"}}))
	require.NoError(t, s.Put(ctx, NodeKey("n1"), types.Node{Metadata: types.Metadata{Name: "n1"}}))

	var pods []types.Pod
	require.NoError(t, s.List(ctx, PodPrefix(), &pods))
	assert.Len(t, pods, 2)
}

func TestDeleteMissingKeyIsNotAnError(t *testing.T) {
	s := NewMemStore()
	assert.NoError(t, s.Delete(context.Background(), NodeKey("nope")))
}
