package index

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func key(n uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, n)
	return b
}

// TestBitmapSemantics reproduces spec §8 scenario 5: inserting three
// records sharing key (7,9) on the same page at slots 0, 5, 17 must
// leave that (key, page) entry's bitmap with exactly those bits set.
func TestBitmapSemantics(t *testing.T) {
	ix := New("by_origin_destin")
	k := append(key(7), key(9)...)
	ix.Insert(k, 42, 0)
	ix.Insert(k, 42, 5)
	ix.Insert(k, 42, 17)

	bm, ok := ix.Lookup(k, 42)
	require.True(t, ok, "expected entry for page 42")
	for _, slot := range []int{0, 5, 17} {
		require.True(t, bm.Has(slot), "expected bit %d set", slot)
	}
	for slot := 0; slot < 128; slot++ {
		switch slot {
		case 0, 5, 17:
			continue
		default:
			require.False(t, bm.Has(slot), "unexpected bit %d set", slot)
		}
	}
}

func TestRangeAscending(t *testing.T) {
	ix := New("by_origin")
	for _, n := range []uint64{5, 1, 3, 2, 4} {
		ix.Insert(key(n), n, 0)
	}
	var seen []uint64
	ix.Range(nil, nil, 1, func(k []byte, hit Hit) bool {
		seen = append(seen, binary.LittleEndian.Uint64(k))
		return true
	})
	require.Equal(t, []uint64{1, 2, 3, 4, 5}, seen)
}

func TestRangeBounded(t *testing.T) {
	ix := New("by_origin")
	for _, n := range []uint64{1, 2, 3, 4, 5} {
		ix.Insert(key(n), n, 0)
	}
	var seen []uint64
	ix.Range(key(2), key(4), 1, func(k []byte, hit Hit) bool {
		seen = append(seen, binary.LittleEndian.Uint64(k))
		return true
	})
	require.Equal(t, []uint64{2, 3, 4}, seen)
}

func TestRangeDescendingBounded(t *testing.T) {
	ix := New("by_origin")
	for _, n := range []uint64{1, 2, 3, 4, 5} {
		ix.Insert(key(n), n, 0)
	}
	var seen []uint64
	ix.Range(key(2), key(4), -1, func(k []byte, hit Hit) bool {
		seen = append(seen, binary.LittleEndian.Uint64(k))
		return true
	})
	require.Equal(t, []uint64{4, 3, 2}, seen)
}

func TestRangeEqualBoundsMatchesSingleKey(t *testing.T) {
	ix := New("by_origin")
	for _, n := range []uint64{1, 2, 3} {
		ix.Insert(key(n), n, 0)
	}
	var seen []uint64
	ix.Range(key(2), key(2), 1, func(k []byte, hit Hit) bool {
		seen = append(seen, binary.LittleEndian.Uint64(k))
		return true
	})
	require.Equal(t, []uint64{2}, seen)
}

func TestDropClearsIndex(t *testing.T) {
	ix := New("by_origin")
	ix.Insert(key(1), 1, 0)
	require.Equal(t, 1, ix.Len())
	ix.Drop()
	require.Equal(t, 0, ix.Len())
}
