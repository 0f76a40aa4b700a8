package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/user/mst-crawler/internal/entity"
)

// CompanyRepository is the persistence sink for merged company records.
type CompanyRepository interface {
	// Upsert looks the record up by (keyword, tax ID) and updates it if present, otherwise inserts it.
	// On return rec.ID, rec.CreatedAt and rec.UpdatedAt reflect the stored row.
	Upsert(ctx context.Context, rec *entity.CompanyRecord) error
	// FindByKey returns ErrNotFound when no row matches.
	FindByKey(ctx context.Context, keyword, taxID string) (*entity.CompanyRecord, error)
	// ListRecent returns up to limit records, most recently updated first.
	ListRecent(ctx context.Context, limit int) ([]*entity.CompanyRecord, error)
	Ping(ctx context.Context) error
}

// ValidateRecord rejects records no sink may store.
func ValidateRecord(rec *entity.CompanyRecord) error {
	switch {
	case rec == nil:
		return fmt.Errorf("%w: nil record", ErrPersistence)
	case strings.TrimSpace(rec.Keyword) == "":
		return fmt.Errorf("%w: keyword is required", ErrPersistence)
	}
	return nil
}
