package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kmsconnect/kms-connect/internal/core/region"
)

const (
	keyPrefix  = "kms:region:"
	defaultTTL = 24 * time.Hour
)

// Store はキャッシュに必要な Redis 操作です。
type Store interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// RegionCache は行政区参照の read-through キャッシュです。
// Redis の障害時はログを出力してデータベースの結果をそのまま返します。
type RegionCache struct {
	next   region.Repository
	store  Store
	ttl    time.Duration
	logger *slog.Logger
}

// NewRegionCache は RegionCache を生成します。
func NewRegionCache(next region.Repository, store Store, ttl time.Duration, logger *slog.Logger) *RegionCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RegionCache{next: next, store: store, ttl: ttl, logger: logger}
}

type cachedRegion struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	Level      string `json:"level"`
	ParentCode string `json:"parent_code,omitempty"`
}

func toCached(r *region.Region) cachedRegion {
	return cachedRegion{Code: r.Code, Name: r.Name, Level: string(r.Level), ParentCode: r.ParentCode}
}

func (c cachedRegion) region() *region.Region {
	return &region.Region{Code: c.Code, Name: c.Name, Level: region.Level(c.Level), ParentCode: c.ParentCode}
}

// FindByCode はキャッシュを参照し、なければデータベースから取得してキャッシュします。
func (c *RegionCache) FindByCode(ctx context.Context, level region.Level, code string) (*region.Region, error) {
	key := fmt.Sprintf("%scode:%s:%s", keyPrefix, level, code)

	var hit cachedRegion
	if c.load(ctx, key, &hit) {
		return hit.region(), nil
	}

	r, err := c.next.FindByCode(ctx, level, code)
	if err != nil {
		return nil, err
	}
	c.save(ctx, key, toCached(r))
	return r, nil
}

// ListChildren は子階層の一覧をキャッシュ経由で返します。
func (c *RegionCache) ListChildren(ctx context.Context, level region.Level, parentCode string) ([]*region.Region, error) {
	key := fmt.Sprintf("%schildren:%s:%s", keyPrefix, level, parentCode)

	var hit []cachedRegion
	if c.load(ctx, key, &hit) {
		out := make([]*region.Region, 0, len(hit))
		for _, r := range hit {
			out = append(out, r.region())
		}
		return out, nil
	}

	regions, err := c.next.ListChildren(ctx, level, parentCode)
	if err != nil {
		return nil, err
	}
	payload := make([]cachedRegion, 0, len(regions))
	for _, r := range regions {
		payload = append(payload, toCached(r))
	}
	c.save(ctx, key, payload)
	return regions, nil
}

func (c *RegionCache) load(ctx context.Context, key string, dest any) bool {
	raw, err := c.store.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.WarnContext(ctx, "region cache read failed", "key", key, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		c.logger.WarnContext(ctx, "region cache entry corrupted", "key", key, "error", err)
		return false
	}
	return true
}

func (c *RegionCache) save(ctx context.Context, key string, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.store.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "region cache write failed", "key", key, "error", err)
	}
}
