package pypi

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/matzehuels/reqscan/pkg/buildinfo"
	"github.com/matzehuels/reqscan/pkg/cache"
	"github.com/matzehuels/reqscan/pkg/integrations"
)

// DefaultBaseURL is the PyPI JSON API root.
const DefaultBaseURL = "https://pypi.org/pypi"

// File describes one distribution file of a release.
type File struct {
	Filename       string `json:"filename"`
	PackageType    string `json:"packagetype"`
	RequiresPython string `json:"requires_python"`
	Yanked         bool   `json:"yanked"`
}

// Project holds the release history of a PyPI project.
//
// Releases maps version strings to their files. A release with no files
// was registered but never uploaded.
type Project struct {
	Name           string            `json:"name"`
	LatestVersion  string            `json:"latest_version"`
	RequiresPython string            `json:"requires_python"`
	Releases       map[string][]File `json:"releases"`
}

// Client provides access to the PyPI package registry API.
// All methods are safe for concurrent use by multiple goroutines.
type Client struct {
	*integrations.Client
	baseURL string
}

// NewClient creates a PyPI client with the given cache backend and TTL.
func NewClient(backend cache.Cache, cacheTTL time.Duration) *Client {
	return &Client{
		Client: integrations.NewClient(backend, "pypi", cacheTTL, map[string]string{
			"User-Agent": buildinfo.UserAgent(),
		}),
		baseURL: DefaultBaseURL,
	}
}

// WithBaseURL points the client at a mirror or test server.
func (c *Client) WithBaseURL(url string) *Client {
	c.baseURL = url
	return c
}

// FetchProject retrieves the release history for a project.
//
// If refresh is true, the cache is bypassed. Returns an error wrapping
// [integrations.ErrNotFound] if the project does not exist and
// [integrations.ErrNetwork] for transport failures.
func (c *Client) FetchProject(ctx context.Context, name string, refresh bool) (*Project, error) {
	name = integrations.NormalizePkgName(name)
	if name == "" {
		return nil, fmt.Errorf("%w: empty project name", integrations.ErrNotFound)
	}

	var p Project
	err := c.Cached(ctx, name, refresh, &p, func() error {
		return c.fetch(ctx, name, &p)
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) fetch(ctx context.Context, name string, p *Project) error {
	var data apiResponse
	if err := c.Get(ctx, fmt.Sprintf("%s/%s/json", c.baseURL, name), &data); err != nil {
		if errors.Is(err, integrations.ErrNotFound) {
			return fmt.Errorf("%w: pypi project %s", err, name)
		}
		return err
	}

	*p = Project{
		Name:           data.Info.Name,
		LatestVersion:  data.Info.Version,
		RequiresPython: data.Info.RequiresPython,
		Releases:       data.Releases,
	}
	return nil
}

type apiResponse struct {
	Info     apiInfo           `json:"info"`
	Releases map[string][]File `json:"releases"`
}

type apiInfo struct {
	Name           string `json:"name"`
	Version        string `json:"version"`
	RequiresPython string `json:"requires_python"`
}
