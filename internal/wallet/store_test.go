package wallet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreCreateThenGet(t *testing.T) {
	store := openTestStore(t)

	addr, err := store.Create()
	require.NoError(t, err)
	require.NotEmpty(t, addr)

	w, err := store.Get(addr)
	require.NoError(t, err)
	require.NotNil(t, w)
	assert.Equal(t, addr, w.Address())
}

func TestStoreGetUnknownAddressReturnsNil(t *testing.T) {
	store := openTestStore(t)

	w, err := store.Get("does-not-exist")
	require.NoError(t, err)
	assert.Nil(t, w)
}

func TestStoreAddressesListsEveryCreatedWallet(t *testing.T) {
	store := openTestStore(t)

	a, err := store.Create()
	require.NoError(t, err)
	b, err := store.Create()
	require.NoError(t, err)

	addrs, err := store.Addresses()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a, b}, addrs)
}
