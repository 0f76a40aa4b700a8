package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/user/mst-crawler/internal/entity"
	"github.com/user/mst-crawler/internal/repository"
	"github.com/user/mst-crawler/pkg/utils"
)

const taxInfoPrefix = "taxinfo:"

// TaxInfoCacheImpl keeps recent tax-info lookups in Redis as JSON values with an expiry.
type TaxInfoCacheImpl struct {
	client *redis.Client
}

var _ repository.TaxInfoCache = (*TaxInfoCacheImpl)(nil)

func NewTaxInfoCache(client *redis.Client) *TaxInfoCacheImpl {
	return &TaxInfoCacheImpl{client: client}
}

// Connect builds a client and checks it answers PING.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", addr, err)
	}
	return client, nil
}

// cacheKey hashes the normalized keyword so arbitrary Vietnamese input stays a safe key.
func cacheKey(keyword string) string {
	return taxInfoPrefix + utils.HashKey(strings.ToLower(strings.Join(strings.Fields(keyword), " ")))
}

func (c *TaxInfoCacheImpl) Get(ctx context.Context, keyword string) (*entity.TaxInfo, bool, error) {
	b, err := c.client.Get(ctx, cacheKey(keyword)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var info entity.TaxInfo
	if err := json.Unmarshal(b, &info); err != nil {
		return nil, false, fmt.Errorf("decode cached tax info: %w", err)
	}
	return &info, true, nil
}

func (c *TaxInfoCacheImpl) Set(ctx context.Context, keyword string, info *entity.TaxInfo, ttl time.Duration) error {
	if info == nil || ttl <= 0 {
		return nil
	}
	b, err := json.Marshal(info)
	if err != nil {
		return err
	}
	return c.client.SetEx(ctx, cacheKey(keyword), b, ttl).Err()
}

func (c *TaxInfoCacheImpl) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
