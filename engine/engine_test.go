package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mrsladoje-successor/lsmkv/config"
	"github.com/mrsladoje-successor/lsmkv/entry"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		DataDir:        t.TempDir(),
		PageSize:       2,
		BufferPages:    2, // B = 4
		SizeRatio:      3, // T = 3
		BloomTargetFPR: 0.01,
		Encoding:       config.EncodingOff,
		MaxLevels:      10,
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	e, err := Open(testConfig(t), nil)
	require.NoError(t, err)

	require.NoError(t, e.Put(1, 10))
	v, ok := e.Get(1)
	require.True(t, ok)
	require.Equal(t, int64(10), v)
}

func TestPutOverwriteWithinBuffer(t *testing.T) {
	e, err := Open(testConfig(t), nil)
	require.NoError(t, err)

	require.NoError(t, e.Put(10, 1))
	require.NoError(t, e.Put(10, 2))
	require.NoError(t, e.Put(10, 3))

	v, ok := e.Get(10)
	require.True(t, ok)
	require.Equal(t, int64(3), v)
}

func TestPutDeleteGet(t *testing.T) {
	e, err := Open(testConfig(t), nil)
	require.NoError(t, err)

	require.NoError(t, e.Put(5, 50))
	require.NoError(t, e.Delete(5))
	_, ok := e.Get(5)
	require.False(t, ok)

	require.NoError(t, e.Delete(6))
	require.NoError(t, e.Put(6, 60))
	v, ok := e.Get(6)
	require.True(t, ok)
	require.Equal(t, int64(60), v)
}

// TestPropagationFillsLevelOne exercises the literal B=4, T=3 scenario: the
// fifth put spills the first four into level 1, sorted and fenced, leaving
// the buffer holding only the newest entry.
func TestPropagationFillsLevelOne(t *testing.T) {
	e, err := Open(testConfig(t), nil)
	require.NoError(t, err)

	require.NoError(t, e.Put(1, 10))
	require.NoError(t, e.Put(2, 20))
	require.NoError(t, e.Put(3, 30))
	require.NoError(t, e.Put(4, 40))
	require.NoError(t, e.Put(5, 50))

	require.Len(t, e.levels, 2)
	require.Equal(t, 1, e.levels[0].Count())
	require.Equal(t, 4, e.levels[1].Count())

	wantKeys := []int32{1, 2, 3, 4}
	wantVals := []int64{10, 20, 30, 40}
	for i := range wantKeys {
		require.Equal(t, wantKeys[i], e.levels[1].Key(i))
		require.Equal(t, wantVals[i], e.levels[1].Value(i))
	}
}

func TestGetAcrossLevelsAfterPropagation(t *testing.T) {
	e, err := Open(testConfig(t), nil)
	require.NoError(t, err)

	for _, kv := range [][2]int32{{1, 10}, {2, 20}, {3, 30}, {4, 40}, {5, 50}} {
		require.NoError(t, e.Put(kv[0], int64(kv[1])))
	}
	require.NoError(t, e.Put(2, 200))

	v, ok := e.Get(2)
	require.True(t, ok)
	require.Equal(t, int64(200), v)

	v, ok = e.Get(4)
	require.True(t, ok)
	require.Equal(t, int64(40), v)

	_, ok = e.Get(99)
	require.False(t, ok)
}

func TestDeleteAndRangeAfterPropagation(t *testing.T) {
	e, err := Open(testConfig(t), nil)
	require.NoError(t, err)

	for _, kv := range [][2]int32{{1, 10}, {2, 20}, {3, 30}, {4, 40}, {5, 50}} {
		require.NoError(t, e.Put(kv[0], int64(kv[1])))
	}
	require.NoError(t, e.Put(2, 200))
	require.NoError(t, e.Delete(3))

	_, ok := e.Get(3)
	require.False(t, ok)

	got := e.Range(1, 6)
	require.Equal(t, []int32{1, 2, 4, 5}, keysOf(got))
	require.Equal(t, []int64{10, 200, 40, 50}, valuesOf(got))
}

func TestRangeBoundaries(t *testing.T) {
	e, err := Open(testConfig(t), nil)
	require.NoError(t, err)

	for _, kv := range [][2]int32{{1, 10}, {2, 20}, {3, 30}} {
		require.NoError(t, e.Put(kv[0], int64(kv[1])))
	}

	require.Empty(t, e.Range(2, 2))

	all := e.Range(-1000, 1000)
	require.Equal(t, []int32{1, 2, 3}, keysOf(all))
}

func TestShutdownPersistAndReload(t *testing.T) {
	cfg := testConfig(t)
	e, err := Open(cfg, nil)
	require.NoError(t, err)

	for _, kv := range [][2]int32{{1, 10}, {2, 20}, {3, 30}, {4, 40}, {5, 50}} {
		require.NoError(t, e.Put(kv[0], int64(kv[1])))
	}
	require.NoError(t, e.Shutdown())

	reloaded, err := Open(cfg, nil)
	require.NoError(t, err)
	defer reloaded.Shutdown()

	v, ok := reloaded.Get(1)
	require.True(t, ok)
	require.Equal(t, int64(10), v)

	got := reloaded.Range(0, 100)
	require.Equal(t, []int32{1, 2, 3, 4, 5}, keysOf(got))
}

func TestWipeRemovesDataDir(t *testing.T) {
	cfg := testConfig(t)
	e, err := Open(cfg, nil)
	require.NoError(t, err)
	require.NoError(t, e.Put(1, 1))
	require.NoError(t, e.Wipe())

	fresh, err := Open(cfg, nil)
	require.NoError(t, err)
	defer fresh.Shutdown()
	require.Equal(t, 1, fresh.NumLevels())
	require.Equal(t, 0, fresh.levels[0].Count())
}

func keysOf(kvs []entry.KV) []int32 {
	out := make([]int32, len(kvs))
	for i, kv := range kvs {
		out[i] = kv.Key
	}
	return out
}

func valuesOf(kvs []entry.KV) []int64 {
	out := make([]int64, len(kvs))
	for i, kv := range kvs {
		out[i] = kv.Value
	}
	return out
}
