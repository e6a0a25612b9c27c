package badgerdb_test

import (
	"testing"

	"github.com/soundprediction/pathrag/pkg/storage/badgerdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackendOperations(t *testing.T) {
	b, err := badgerdb.Open("", true, nil)
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, b.SetMany(map[string][]byte{
		"a:1": []byte("one"),
		"a:2": []byte("two"),
		"b:1": []byte("other"),
	}))

	t.Run("get", func(t *testing.T) {
		v, ok, err := b.Get([]byte("a:1"))
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "one", string(v))

		_, ok, err = b.Get([]byte("missing"))
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("scan prefix", func(t *testing.T) {
		var keys []string
		require.NoError(t, b.Scan([]byte("a:"), false, func(key, _ []byte) error {
			keys = append(keys, string(key))
			return nil
		}))
		assert.Equal(t, []string{"a:1", "a:2"}, keys)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, b.DeleteMany([]string{"a:1", "nope"}))
		_, ok, err := b.Get([]byte("a:1"))
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("drop prefix", func(t *testing.T) {
		require.NoError(t, b.DropPrefix([]byte("a:")))
		count := 0
		require.NoError(t, b.Scan(nil, false, func(_, _ []byte) error {
			count++
			return nil
		}))
		assert.Equal(t, 1, count)
	})

	assert.NoError(t, b.Sync())
}

func TestOpenOnDisk(t *testing.T) {
	dir := t.TempDir()
	b, err := badgerdb.Open(dir, false, nil)
	require.NoError(t, err)
	require.NoError(t, b.SetMany(map[string][]byte{"k": []byte("v")}))
	require.NoError(t, b.Sync())
	require.NoError(t, b.Close())
	assert.True(t, b.IsClosed())

	b, err = badgerdb.Open(dir, false, nil)
	require.NoError(t, err)
	defer b.Close()
	v, ok, err := b.Get([]byte("k"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", string(v))
}
