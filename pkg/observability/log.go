package observability

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// LogHooks implements every hook interface by writing debug-level log lines.
// The CLI registers it when --verbose is set.
type LogHooks struct {
	logger *log.Logger
}

// NewLogHooks returns hooks writing to logger.
func NewLogHooks(logger *log.Logger) *LogHooks {
	return &LogHooks{logger: logger}
}

// OnLibraryLoad implements LayoutHooks.
func (h *LogHooks) OnLibraryLoad(_ context.Context, provider string, d time.Duration, err error) {
	if err != nil {
		h.logger.Error("layout library load failed", "provider", provider, "err", err)
		return
	}
	h.logger.Debug("layout library loaded", "provider", provider, "duration", d)
}

// OnLayoutStart implements LayoutHooks.
func (h *LogHooks) OnLayoutStart(_ context.Context, algorithm string, nodes int) {
	h.logger.Debug("layout started", "algorithm", algorithm, "nodes", nodes)
}

// OnLayoutComplete implements LayoutHooks.
func (h *LogHooks) OnLayoutComplete(_ context.Context, algorithm string, d time.Duration, err error) {
	h.logger.Debug("layout finished", "algorithm", algorithm, "duration", d, "err", err)
}

// OnSyncStart implements SyncHooks.
func (h *LogHooks) OnSyncStart(_ context.Context, creates, updates, deletes int) {
	h.logger.Debug("sync started", "creates", creates, "updates", updates, "deletes", deletes)
}

// OnSyncComplete implements SyncHooks.
func (h *LogHooks) OnSyncComplete(_ context.Context, applied, failed int, d time.Duration, err error) {
	h.logger.Debug("sync finished", "applied", applied, "failed", failed, "duration", d, "err", err)
}

// OnRowError implements SyncHooks.
func (h *LogHooks) OnRowError(_ context.Context, key string, err error) {
	h.logger.Warn("row failed", "key", key, "err", err)
}

// OnCacheHit implements CacheHooks.
func (h *LogHooks) OnCacheHit(_ context.Context, keyType string) {
	h.logger.Debug("cache hit", "type", keyType)
}

// OnCacheMiss implements CacheHooks.
func (h *LogHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.logger.Debug("cache miss", "type", keyType)
}

// OnCacheSet implements CacheHooks.
func (h *LogHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.logger.Debug("cache set", "type", keyType, "bytes", size)
}

// OnRequest implements HTTPHooks.
func (h *LogHooks) OnRequest(_ context.Context, method, host, path string) {
	h.logger.Debug("request", "method", method, "host", host, "path", path)
}

// OnResponse implements HTTPHooks.
func (h *LogHooks) OnResponse(_ context.Context, method, host, path string, status int, d time.Duration) {
	h.logger.Debug("response", "method", method, "path", path, "status", status, "duration", d)
}

// OnError implements HTTPHooks.
func (h *LogHooks) OnError(_ context.Context, method, host, path string, err error) {
	h.logger.Warn("request failed", "method", method, "host", host, "path", path, "err", err)
}

var (
	_ LayoutHooks = (*LogHooks)(nil)
	_ SyncHooks   = (*LogHooks)(nil)
	_ CacheHooks  = (*LogHooks)(nil)
	_ HTTPHooks   = (*LogHooks)(nil)
)
