package wasm

import (
	"context"
	"log/slog"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/tetratelabs/wazero"
)

// DefaultModuleCacheSize is the default number of compiled modules indexed by digest.
const DefaultModuleCacheSize = 16

// moduleCache indexes compiled modules by the SHA-256 of their bytes, so
// loading the same file twice compiles it once.
//
// Eviction only drops the index entry: a Module may still be using the
// compiled code, which is released when the runtime closes.
type moduleCache struct {
	mu    sync.Mutex // serializes compilation per cache
	cache *lru.Cache[string, wazero.CompiledModule]
}

func newModuleCache(size int, logger *slog.Logger) (*moduleCache, error) {
	c, err := lru.NewWithEvict(size, func(digest string, _ wazero.CompiledModule) {
		if logger != nil {
			logger.Debug("compiled module evicted from cache", "digest", digest)
		}
	})
	if err != nil {
		return nil, err
	}
	return &moduleCache{cache: c}, nil
}

// getOrCompile returns the cached module for digest or calls compile.
// compile's result is only cached when it succeeds.
func (c *moduleCache) getOrCompile(ctx context.Context, digest string, compile func(context.Context) (wazero.CompiledModule, error)) (wazero.CompiledModule, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if compiled, ok := c.cache.Get(digest); ok {
		return compiled, true, nil
	}

	compiled, err := compile(ctx)
	if err != nil {
		return nil, false, err
	}
	c.cache.Add(digest, compiled)
	return compiled, false, nil
}

// Len returns the number of indexed modules.
func (c *moduleCache) Len() int {
	return c.cache.Len()
}

func (c *moduleCache) purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Purge()
}
