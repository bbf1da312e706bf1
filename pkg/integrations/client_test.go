package integrations

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/reqscan/pkg/cache"
	"github.com/matzehuels/reqscan/pkg/httputil"
)

type response struct {
	Message string `json:"message"`
}

func TestClientGet(t *testing.T) {
	var ua string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua = r.Header.Get("User-Agent")
		json.NewEncoder(w).Encode(response{Message: "hello"})
	}))
	defer server.Close()

	client := NewClient(nil, "test", time.Hour, map[string]string{"User-Agent": "reqscan-test"})

	var resp response
	require.NoError(t, client.Get(context.Background(), server.URL, &resp))
	assert.Equal(t, "hello", resp.Message)
	assert.Equal(t, "reqscan-test", ua)
}

func TestCheckStatus(t *testing.T) {
	tests := []struct {
		code      int
		wantErr   error
		retryable bool
	}{
		{http.StatusOK, nil, false},
		{http.StatusNotFound, ErrNotFound, false},
		{http.StatusInternalServerError, ErrNetwork, true},
		{http.StatusTooManyRequests, ErrNetwork, true},
		{http.StatusForbidden, ErrNetwork, false},
	}

	for _, tt := range tests {
		err := checkStatus(tt.code)
		if tt.wantErr == nil {
			assert.NoError(t, err)
			continue
		}
		assert.True(t, errors.Is(err, tt.wantErr), "code %d: %v", tt.code, err)
		assert.Equal(t, tt.retryable, httputil.IsRetryable(err), "code %d", tt.code)
	}
}

func TestClientCached(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		json.NewEncoder(w).Encode(response{Message: "fresh"})
	}))
	defer server.Close()

	ctx := context.Background()
	client := NewClient(cache.NewMemoryCache(10), "test", time.Hour, nil)

	fetch := func(v *response) func() error {
		return func() error { return client.Get(ctx, server.URL, v) }
	}

	var first, second response
	require.NoError(t, client.Cached(ctx, "k", false, &first, fetch(&first)))
	require.NoError(t, client.Cached(ctx, "k", false, &second, fetch(&second)))
	assert.Equal(t, "fresh", second.Message)
	assert.EqualValues(t, 1, hits.Load(), "second call should be served from cache")

	var third response
	require.NoError(t, client.Cached(ctx, "k", true, &third, fetch(&third)))
	assert.EqualValues(t, 2, hits.Load(), "refresh bypasses cache")
}

func TestNormalizePkgName(t *testing.T) {
	tests := []struct {
		input, want string
	}{
		{"Django", "django"},
		{"Flask_App", "flask-app"},
		{"some_package-name", "some-package-name"},
		{"zope.interface", "zope-interface"},
		{"Foo__Bar..baz", "foo-bar-baz"},
		{"  PyYAML ", "pyyaml"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePkgName(tt.input))
		})
	}
}
