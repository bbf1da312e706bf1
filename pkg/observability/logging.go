package observability

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// Logging reports every hook event as a debug line on Logger. It implements
// PipelineHooks, CacheHooks and HTTPHooks.
type Logging struct {
	Logger *log.Logger
}

// InstallLogging registers a [Logging] for all hook categories.
func InstallLogging(logger *log.Logger) {
	l := Logging{Logger: logger}
	SetPipelineHooks(l)
	SetCacheHooks(l)
	SetHTTPHooks(l)
}

func (l Logging) OnExtractStart(_ context.Context, root string) {
	l.Logger.Debug("extract started", "root", root)
}

func (l Logging) OnExtractComplete(_ context.Context, root string, files, failed int, d time.Duration, err error) {
	if err != nil {
		l.Logger.Debug("extract failed", "root", root, "error", err)
		return
	}
	l.Logger.Debug("extract complete", "root", root, "files", files, "failed", failed, "took", d.Round(time.Millisecond))
}

func (l Logging) OnProbeComplete(_ context.Context, prober, pkg, status string, d time.Duration, err error) {
	if err != nil {
		l.Logger.Debug("probe failed", "prober", prober, "package", pkg, "error", err)
		return
	}
	l.Logger.Debug("probe", "prober", prober, "package", pkg, "status", status, "took", d.Round(time.Millisecond))
}

func (l Logging) OnCacheHit(_ context.Context, keyType string) {
	l.Logger.Debug("cache hit", "kind", keyType)
}

func (l Logging) OnCacheMiss(_ context.Context, keyType string) {
	l.Logger.Debug("cache miss", "kind", keyType)
}

func (l Logging) OnCacheSet(_ context.Context, keyType string, size int) {
	l.Logger.Debug("cache set", "kind", keyType, "bytes", size)
}

func (l Logging) OnRequest(_ context.Context, method, host, path string) {
	l.Logger.Debug("request", "method", method, "url", host+path)
}

func (l Logging) OnResponse(_ context.Context, method, host, path string, status int, d time.Duration) {
	l.Logger.Debug("response", "method", method, "url", host+path, "status", status, "took", d.Round(time.Millisecond))
}

func (l Logging) OnError(_ context.Context, method, host, path string, err error) {
	l.Logger.Debug("request failed", "method", method, "url", host+path, "error", err)
}
