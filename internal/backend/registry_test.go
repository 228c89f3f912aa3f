package backend

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/godwokenrises/godwoken-sub002/internal/common"
)

func TestRegistryResolvesMostRecentForkAtOrBelowBlock(t *testing.T) {
	reg := NewRegistry()
	codeHash := common.BytesToHash([]byte("polyjuice-v1"))

	v1 := NewPolyjuiceBackend()
	require.NoError(t, reg.Register(ForkEntry{
		CodeHash: codeHash, ForkBlockNumber: 0, Type: TypePolyjuice,
		Checksum: v1.Checksum(), Backend: v1,
	}))

	v2 := NewPolyjuiceBackend()
	require.NoError(t, reg.Register(ForkEntry{
		CodeHash: codeHash, ForkBlockNumber: 100, Type: TypePolyjuice,
		Checksum: v2.Checksum(), Backend: v2,
	}))

	be, typ, err := reg.GetBackend(50, codeHash)
	require.NoError(t, err)
	require.Equal(t, TypePolyjuice, typ)
	require.Same(t, v1, be)

	be, _, err = reg.GetBackend(100, codeHash)
	require.NoError(t, err)
	require.Same(t, v2, be)

	be, _, err = reg.GetBackend(99, codeHash)
	require.NoError(t, err)
	require.Same(t, v1, be)
}

func TestRegistryRejectsBlockBeforeEarliestFork(t *testing.T) {
	reg := NewRegistry()
	codeHash := common.BytesToHash([]byte("meta"))
	m := NewMetaBackend()
	require.NoError(t, reg.Register(ForkEntry{
		CodeHash: codeHash, ForkBlockNumber: 10, Type: TypeMeta,
		Checksum: m.Checksum(), Backend: m,
	}))

	_, _, err := reg.GetBackend(5, codeHash)
	require.ErrorIs(t, err, ErrNoActiveFork)
}

func TestRegistryRejectsUnknownCodeHash(t *testing.T) {
	reg := NewRegistry()
	_, _, err := reg.GetBackend(0, common.ZeroHash)
	require.ErrorIs(t, err, ErrNoBackendRegistered)
}

func TestRegisterRejectsChecksumMismatch(t *testing.T) {
	reg := NewRegistry()
	m := NewMetaBackend()
	err := reg.Register(ForkEntry{
		CodeHash: common.BytesToHash([]byte("meta")), ForkBlockNumber: 0,
		Type: TypeMeta, Checksum: common.ZeroHash, Backend: m,
	})
	require.ErrorIs(t, err, ErrChecksumMismatch)
}
