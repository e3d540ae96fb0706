package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/ppiankov/latool/internal/model"
)

// Cache stores fetched response bodies
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// CacheKey generates a cache key from a request identity (URL plus Accept header)
func CacheKey(request string) string {
	hash := sha256.Sum256([]byte(request))
	return "latool:v1:" + hex.EncodeToString(hash[:])
}

// New builds the response cache described by cfg: memory only when no
// directory is configured, memory in front of disk otherwise.
func New(cfg model.CacheConfig) Cache {
	if cfg.Dir == "" {
		return NewMemoryCache(cfg.MemoryTTL, 10*time.Minute)
	}
	return NewLayeredCache(cfg.MemoryTTL, cfg.Dir, cfg.DiskTTL)
}
