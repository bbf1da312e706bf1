package pypi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/reqscan/pkg/cache"
	"github.com/matzehuels/reqscan/pkg/integrations"
)

const flaskJSON = `{
  "info": {"name": "Flask", "version": "3.0.0", "requires_python": ">=3.8"},
  "releases": {
    "2.0.0": [{"filename": "Flask-2.0.0-py3-none-any.whl", "packagetype": "bdist_wheel", "requires_python": ">=3.6", "yanked": false}],
    "3.0.0": [{"filename": "flask-3.0.0-py3-none-any.whl", "packagetype": "bdist_wheel", "requires_python": ">=3.8", "yanked": false}],
    "0.1": []
  }
}`

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/flask/json" {
			w.Write([]byte(flaskJSON))
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestClient_FetchProject(t *testing.T) {
	server := newServer(t)
	c := NewClient(cache.NewNullCache(), time.Hour).WithBaseURL(server.URL)

	p, err := c.FetchProject(context.Background(), "Flask", true)
	require.NoError(t, err)

	assert.Equal(t, "Flask", p.Name)
	assert.Equal(t, "3.0.0", p.LatestVersion)
	assert.Equal(t, ">=3.8", p.RequiresPython)
	require.Len(t, p.Releases, 3)
	assert.Equal(t, ">=3.6", p.Releases["2.0.0"][0].RequiresPython)
	assert.Empty(t, p.Releases["0.1"])
}

func TestClient_FetchProject_NotFound(t *testing.T) {
	server := newServer(t)
	c := NewClient(nil, time.Hour).WithBaseURL(server.URL)

	_, err := c.FetchProject(context.Background(), "missing-pkg", true)
	require.Error(t, err)
	assert.True(t, errors.Is(err, integrations.ErrNotFound))
}

func TestClient_FetchProject_Cached(t *testing.T) {
	server := newServer(t)
	mem := cache.NewMemoryCache(10)
	c := NewClient(mem, time.Hour).WithBaseURL(server.URL)

	_, err := c.FetchProject(context.Background(), "flask", false)
	require.NoError(t, err)
	server.Close()

	p, err := c.FetchProject(context.Background(), "FLASK", false)
	require.NoError(t, err, "normalized name should hit the cache")
	assert.Equal(t, "3.0.0", p.LatestVersion)
}
