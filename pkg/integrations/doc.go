// Package integrations provides the shared HTTP plumbing for package index
// clients.
//
// [Client] performs JSON GET requests with default headers, maps HTTP status
// codes onto [ErrNotFound] and [ErrNetwork], retries transient failures via
// [httputil.RetryWithBackoff], and stores decoded responses in a
// [cache.Cache]. Index-specific clients embed it; see [pypi].
//
// [NormalizePkgName] implements PEP 503 name normalization, used everywhere
// package identifiers are compared.
package integrations
