package index

import (
	"testing"

	"github.com/nowdb/nowdb/model"
	"github.com/stretchr/testify/require"
)

func TestIndexerBatchesAndFlushesInOrder(t *testing.T) {
	ixr := NewIndexer([]int{model.OffEdgeOrigin, model.OffEdgeDestin})
	recs := []model.Edge{
		{Origin: 7, Destin: 9, Edge: 1},
		{Origin: 3, Destin: 1, Edge: 2},
		{Origin: 7, Destin: 9, Edge: 3},
	}
	for i, e := range recs {
		ixr.Feed(e.Encode(), 100, i)
	}
	require.Equal(t, 2, ixr.Len(), "expected 2 distinct keys batched")

	dst := New("by_origin_destin")
	ixr.Flush(dst)

	k79 := append(key(7), key(9)...)
	bm, ok := dst.Lookup(k79, 100)
	require.True(t, ok)
	require.True(t, bm.Has(0))
	require.True(t, bm.Has(2))
	require.True(t, keysEqual(k79, k79), "sanity: keysEqual should be reflexive")
}
