package embedding

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"govreporter/pkg/logger"
)

// CachedModel is a lookaside Redis cache in front of a Model. Re-ingesting a
// date range re-embeds mostly identical chunk text; cache hits skip the API
// call. Cache failures are logged and ignored, they never fail an embed.
type CachedModel struct {
	inner Model
	rdb   *redis.Client
	name  string
	ttl   time.Duration
	log   *logger.Logger
}

// NewCachedModel wraps inner with a cache at addr. modelName scopes the keys
// so switching embedding models never serves stale vectors.
func NewCachedModel(inner Model, addr, modelName string, ttl time.Duration, log *logger.Logger) *CachedModel {
	return &CachedModel{
		inner: inner,
		rdb:   redis.NewClient(&redis.Options{Addr: addr}),
		name:  modelName,
		ttl:   ttl,
		log:   log,
	}
}

// Dimensions returns the inner model's vector size.
func (c *CachedModel) Dimensions() int { return c.inner.Dimensions() }

// Close releases the Redis connection.
func (c *CachedModel) Close() error { return c.rdb.Close() }

// Embed serves cached vectors where possible and embeds only the misses.
func (c *CachedModel) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string

	for i, text := range texts {
		if v := c.get(ctx, text); v != nil {
			vectors[i] = v
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}
	if len(missTexts) == 0 {
		return vectors, nil
	}

	fresh, err := c.inner.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	for j, i := range missIdx {
		vectors[i] = fresh[j]
		c.put(ctx, texts[i], fresh[j])
	}
	return vectors, nil
}

func (c *CachedModel) key(text string) string {
	sum := md5.Sum([]byte(text))
	return fmt.Sprintf("emb:%s:%s", c.name, hex.EncodeToString(sum[:]))
}

func (c *CachedModel) get(ctx context.Context, text string) []float32 {
	raw, err := c.rdb.Get(ctx, c.key(text)).Result()
	if err != nil {
		if err != redis.Nil {
			c.log.WithError(err).Debug("embedding cache read failed")
		}
		return nil
	}
	var v []float32
	if err := json.Unmarshal([]byte(raw), &v); err != nil || len(v) != c.inner.Dimensions() {
		return nil
	}
	return v
}

func (c *CachedModel) put(ctx context.Context, text string, v []float32) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, c.key(text), raw, c.ttl).Err(); err != nil {
		c.log.WithError(err).Debug("embedding cache write failed")
	}
}
