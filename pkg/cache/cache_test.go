package cache

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	require.NoError(t, c.Set(ctx, "key", []byte("value"), time.Hour))
	data, hit, err := c.Get(ctx, "key")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Nil(t, data)
	assert.NoError(t, c.Delete(ctx, "key"))
}

func TestFileCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	require.NoError(t, err)

	_, hit, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))
	data, hit, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "v", string(data))

	require.NoError(t, c.Delete(ctx, "k"))
	_, hit, _ = c.Get(ctx, "k")
	assert.False(t, hit)
	assert.NoError(t, c.Delete(ctx, "k"), "deleting a missing key is not an error")
}

func TestFileCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Nanosecond))
	time.Sleep(5 * time.Millisecond)
	_, hit, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestFileCacheClear(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	require.NoError(t, err)

	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, c.Set(ctx, k, []byte(k), 0))
	}
	n, err := c.Clear()
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	_, hit, _ := c.Get(ctx, "a")
	assert.False(t, hit)
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(2)

	require.NoError(t, c.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), 0))
	require.NoError(t, c.Set(ctx, "c", []byte("3"), 0))
	assert.Equal(t, 2, c.Len())

	_, hit, _ := c.Get(ctx, "a")
	assert.False(t, hit, "oldest entry should be evicted")

	data, hit, _ := c.Get(ctx, "c")
	assert.True(t, hit)
	assert.Equal(t, "3", string(data))

	require.NoError(t, c.Set(ctx, "short", []byte("x"), time.Nanosecond))
	time.Sleep(time.Millisecond)
	_, hit, _ = c.Get(ctx, "short")
	assert.False(t, hit)
}

func TestRedisCache(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	c, err := NewRedisCache(ctx, "redis://"+mr.Addr(), "reqscan:")
	require.NoError(t, err)
	defer c.Close()

	_, hit, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	assert.True(t, mr.Exists("reqscan:k"))

	data, hit, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "v", string(data))

	mr.FastForward(2 * time.Minute)
	_, hit, _ = c.Get(ctx, "k")
	assert.False(t, hit)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))
	require.NoError(t, c.Delete(ctx, "k"))
	assert.False(t, mr.Exists("reqscan:k"))
}

func TestRedisCacheBadURL(t *testing.T) {
	_, err := NewRedisCache(context.Background(), "not-a-url", "")
	assert.Error(t, err)
}

func TestLayered(t *testing.T) {
	ctx := context.Background()
	front := NewMemoryCache(10)
	back := NewMemoryCache(10)
	l := NewLayered(front, back, time.Minute)

	require.NoError(t, back.Set(ctx, "k", []byte("v"), 0))
	data, hit, err := l.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "v", string(data))

	_, hit, _ = front.Get(ctx, "k")
	assert.True(t, hit, "back hit should be copied to front")

	require.NoError(t, l.Set(ctx, "n", []byte("w"), 0))
	_, hit, _ = back.Get(ctx, "n")
	assert.True(t, hit)

	require.NoError(t, l.Delete(ctx, "n"))
	_, hit, _ = l.Get(ctx, "n")
	assert.False(t, hit)
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(10)

	type payload struct{ Names []string }
	require.NoError(t, SetJSON(ctx, c, "p", payload{Names: []string{"os", "yaml"}}, 0))

	var got payload
	hit, err := GetJSON(ctx, c, "p", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []string{"os", "yaml"}, got.Names)

	require.NoError(t, c.Set(ctx, "bad", []byte("{"), 0))
	hit, err = GetJSON(ctx, c, "bad", &got)
	assert.NoError(t, err)
	assert.False(t, hit, "corrupt entries read as misses")
}

func TestHashAndFingerprint(t *testing.T) {
	assert.Equal(t, Hash([]byte("hello")), Hash([]byte("hello")))
	assert.NotEqual(t, Hash([]byte("hello")), Hash([]byte("world")))
	assert.Len(t, Hash([]byte("hello")), 64)

	fp := Fingerprint([]byte("import os\n"))
	assert.Len(t, fp, 16)
	assert.Equal(t, fp, Fingerprint([]byte("import os\n")))
	assert.NotEqual(t, fp, Fingerprint([]byte("import sys\n")))
}

func TestKeyers(t *testing.T) {
	k := NewDefaultKeyer()
	assert.Equal(t, "http:pypi:requests", k.HTTPKey("pypi", "requests"))
	assert.Equal(t, "imports:v1:abc", k.ImportsKey("abc"))
	assert.Equal(t, k.ProbeKey("pypi", "Requests", "3.12"), k.ProbeKey("pypi", "requests", "3.12"))
	assert.NotEqual(t, k.ProbeKey("pypi", "requests", "3.12"), k.ProbeKey("pypi", "requests", "3.11"))
	assert.NotEqual(t, k.ProbeKey("pypi", "requests", "3.12"), k.ProbeKey("pip", "requests", "3.12"))

	scoped := NewScopedKeyer(nil, "proj:")
	assert.Equal(t, "proj:http:pypi:requests", scoped.HTTPKey("pypi", "requests"))
	assert.True(t, strings.HasPrefix(scoped.ProbeKey("pip", "x", "3.8"), "proj:probe:"))
	assert.Equal(t, "proj:imports:v1:abc", scoped.ImportsKey("abc"))
}
