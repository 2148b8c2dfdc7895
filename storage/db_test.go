package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLevelDBPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	db1, err := NewLevelDB(dir)
	require.NoError(t, err)

	batch := NewBatch()
	batch.Put([]byte("order:1"), []byte("a"))
	batch.Put([]byte("order:2"), []byte("b"))
	require.Equal(t, 2, batch.Len())
	require.NoError(t, db1.Write(batch))
	require.NoError(t, db1.Close())

	db2, err := NewLevelDB(dir)
	require.NoError(t, err)
	defer db2.Close()

	got, err := db2.Get([]byte("order:2"))
	require.NoError(t, err)
	require.Equal(t, []byte("b"), got)
}

func TestMemDBGetMissingKey(t *testing.T) {
	db := NewMemDB()
	defer db.Close()

	_, err := db.Get([]byte("missing"))
	require.ErrorIs(t, err, ErrNotFound)

	ok, err := db.Has([]byte("missing"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemDBIteratePrefix(t *testing.T) {
	db := NewMemDB()
	defer db.Close()

	require.NoError(t, db.Put([]byte("a:1"), []byte("1")))
	require.NoError(t, db.Put([]byte("a:2"), []byte("2")))
	require.NoError(t, db.Put([]byte("b:1"), []byte("3")))

	var keys []string
	require.NoError(t, db.Iterate([]byte("a:"), func(key, _ []byte) bool {
		keys = append(keys, string(key))
		return true
	}))
	require.Equal(t, []string{"a:1", "a:2"}, keys)

	require.NoError(t, db.Delete([]byte("a:1")))
	keys = keys[:0]
	require.NoError(t, db.Iterate([]byte("a:"), func(key, _ []byte) bool {
		keys = append(keys, string(key))
		return true
	}))
	require.Equal(t, []string{"a:2"}, keys)
}
