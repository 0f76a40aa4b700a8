package repository

import (
	"context"
	"time"

	"github.com/user/mst-crawler/internal/entity"
)

// TaxInfoCache remembers recent tax-info lookups by keyword.
type TaxInfoCache interface {
	// Get reports found=false on a cache miss.
	Get(ctx context.Context, keyword string) (info *entity.TaxInfo, found bool, err error)
	Set(ctx context.Context, keyword string, info *entity.TaxInfo, ttl time.Duration) error
	Ping(ctx context.Context) error
}

// NopTaxInfoCache is used when no cache backend is configured.
type NopTaxInfoCache struct{}

func (NopTaxInfoCache) Get(context.Context, string) (*entity.TaxInfo, bool, error) {
	return nil, false, nil
}

func (NopTaxInfoCache) Set(context.Context, string, *entity.TaxInfo, time.Duration) error {
	return nil
}

func (NopTaxInfoCache) Ping(context.Context) error { return nil }
