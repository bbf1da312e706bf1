package cache

import "strings"

// Keyer generates cache keys for each kind of cached value.
type Keyer interface {
	// HTTPKey keys a registry response, e.g. HTTPKey("pypi", "requests").
	HTTPKey(namespace, key string) string
	// ImportsKey keys the import set extracted from a file's contents.
	ImportsKey(fingerprint string) string
	// ProbeKey keys a compatibility probe result.
	ProbeKey(prober, pkg, python string) string
}

// DefaultKeyer produces unscoped keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// extractorVersion is bumped whenever the extractor's output for identical
// input can change, invalidating cached import sets.
const extractorVersion = "v1"

func (DefaultKeyer) HTTPKey(namespace, key string) string {
	return "http:" + namespace + ":" + key
}

func (DefaultKeyer) ImportsKey(fingerprint string) string {
	return "imports:" + extractorVersion + ":" + fingerprint
}

func (DefaultKeyer) ProbeKey(prober, pkg, python string) string {
	return hashKey("probe", prober, strings.ToLower(pkg), python)
}

// ScopedKeyer prefixes every key, isolating projects that share a backend
// such as a Redis instance used by several CI pipelines.
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix. A nil inner keyer uses
// [DefaultKeyer].
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

func (k *ScopedKeyer) HTTPKey(namespace, key string) string {
	return k.prefix + k.inner.HTTPKey(namespace, key)
}

func (k *ScopedKeyer) ImportsKey(fingerprint string) string {
	return k.prefix + k.inner.ImportsKey(fingerprint)
}

func (k *ScopedKeyer) ProbeKey(prober, pkg, python string) string {
	return k.prefix + k.inner.ProbeKey(prober, pkg, python)
}
