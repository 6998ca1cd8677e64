// Package embcache caches embedding vectors in Redis, keyed by the embedding
// namespace and text hash.
package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const keyPrefix = "biorag:emb:"

// ErrKeyNotFound is returned by a store on a cache miss.
var ErrKeyNotFound = errors.New("key not found")

type embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Namespace identifies the vector space an embedding belongs to. Vectors
// cached under one namespace are never served for another.
type Namespace struct {
	Provider   string
	BaseURL    string
	Model      string
	Dimensions int
}

func (n Namespace) hash() string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%s|%d", n.Provider, n.BaseURL, n.Model, n.Dimensions)))
	return hex.EncodeToString(h[:8])
}

// CachedEmbedder decorates an embedding client with a read-through cache.
// Cache failures are logged and never fail the call.
type CachedEmbedder struct {
	inner      embedder
	store      store
	ns         Namespace
	nsHash     string
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator. cacheTotal has a single "result" label
// ("hit"/"miss") and may be nil.
func New(inner embedder, s store, ns Namespace, ttl time.Duration, cacheTotal *prometheus.CounterVec, logger *zap.Logger) *CachedEmbedder {
	return &CachedEmbedder{
		inner:      inner,
		store:      s,
		ns:         ns,
		nsHash:     ns.hash(),
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// GenerateEmbedding returns a cached vector or calls the inner client.
func (c *CachedEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	key := c.cacheKey(text)

	if vec, ok := c.getFromCache(ctx, key); ok {
		c.incCache("hit")
		return vec, nil
	}
	c.incCache("miss")

	vec, err := c.inner.GenerateEmbedding(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed text: %w", err)
	}

	c.putToCache(ctx, key, vec)
	return vec, nil
}

func (c *CachedEmbedder) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func (c *CachedEmbedder) cacheKey(text string) string {
	h := sha256.Sum256([]byte(text))
	return keyPrefix + c.ns.Model + ":" + c.nsHash + ":" + hex.EncodeToString(h[:])
}

func (c *CachedEmbedder) getFromCache(ctx context.Context, key string) ([]float32, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrKeyNotFound) {
			c.logger.Warn("failed to get cached embedding", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	if len(data) == 0 {
		return nil, false
	}

	vec, err := bytesToVector(data)
	if err != nil {
		c.logger.Warn("failed to parse cached embedding", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return vec, true
}

func (c *CachedEmbedder) putToCache(ctx context.Context, key string, vec []float32) {
	if err := c.store.SetWithTTL(ctx, key, vectorToBytes(vec), c.ttl); err != nil {
		c.logger.Warn("failed to cache embedding", zap.String("key", key), zap.Error(err))
	}
}

func vectorToBytes(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func bytesToVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding cache data: len=%d (not multiple of 4)", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}
