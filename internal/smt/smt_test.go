package smt

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/godwokenrises/godwoken-sub002/internal/common"
)

func h(b byte) common.Hash {
	var out common.Hash
	out[31] = b
	return out
}

func TestEmptyTreeRootIsZeroHash(t *testing.T) {
	tr := New()
	require.Equal(t, zeroHashes[Depth], tr.Root())
}

func TestUpdateGetRoundTrip(t *testing.T) {
	tr := New()
	tr.Update(h(1), h(100))
	tr.Update(h(2), h(200))

	require.Equal(t, h(100), tr.Get(h(1)))
	require.Equal(t, h(200), tr.Get(h(2)))
	require.Equal(t, common.ZeroHash, tr.Get(h(3)))
}

func TestDeleteRestoresEmptyRoot(t *testing.T) {
	tr := New()
	tr.Update(h(1), h(100))
	tr.Update(h(1), common.ZeroHash)
	require.Equal(t, zeroHashes[Depth], tr.Root())
}

func TestOrderIndependentRoot(t *testing.T) {
	a := New()
	a.Update(h(1), h(10))
	a.Update(h(2), h(20))
	a.Update(h(3), h(30))

	b := New()
	b.Update(h(3), h(30))
	b.Update(h(1), h(10))
	b.Update(h(2), h(20))

	require.Equal(t, a.Root(), b.Root())
}

func TestMerkleProofVerifiesInclusion(t *testing.T) {
	tr := New()
	tr.Update(h(1), h(10))
	tr.Update(h(2), h(20))
	tr.Update(h(3), h(30))

	root := tr.Root()
	proof := tr.MerkleProof([]common.Hash{h(1), h(3)})

	ok, err := Verify(root, proof, []KeyValue{
		{Key: h(1), Value: h(10)},
		{Key: h(3), Value: h(30)},
	})
	require.NoError(t, err)
	require.True(t, ok)
}

func TestMerkleProofRejectsWrongValue(t *testing.T) {
	tr := New()
	tr.Update(h(1), h(10))
	tr.Update(h(2), h(20))

	root := tr.Root()
	proof := tr.MerkleProof([]common.Hash{h(1)})

	ok, err := Verify(root, proof, []KeyValue{{Key: h(1), Value: h(99)}})
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMerkleProofOfAbsence(t *testing.T) {
	tr := New()
	tr.Update(h(1), h(10))

	root := tr.Root()
	proof := tr.MerkleProof([]common.Hash{h(2)})

	ok, err := Verify(root, proof, []KeyValue{{Key: h(2), Value: common.ZeroHash}})
	require.NoError(t, err)
	require.True(t, ok)
}

func TestUpdateAllMatchesSequentialUpdates(t *testing.T) {
	batched := New()
	batched.UpdateAll(map[common.Hash]common.Hash{
		h(1): h(10),
		h(2): h(20),
		h(3): h(30),
	})

	sequential := New()
	sequential.Update(h(1), h(10))
	sequential.Update(h(2), h(20))
	sequential.Update(h(3), h(30))

	require.Equal(t, sequential.Root(), batched.Root())
}
