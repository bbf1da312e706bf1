// Package pypi provides a client for the PyPI JSON API.
//
// [Client.FetchProject] returns the published releases of a project together
// with the requires_python specifier of every distribution file, which is
// what the compatibility prober needs to decide whether any release supports
// a target Python version.
//
//	c := pypi.NewClient(cache.NewNullCache(), 24*time.Hour)
//	p, err := c.FetchProject(ctx, "requests", false)
//
// Names are PEP 503-normalized before lookup. A missing project returns an
// error wrapping [integrations.ErrNotFound].
package pypi
