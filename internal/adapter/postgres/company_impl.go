package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/mst-crawler/internal/entity"
	"github.com/user/mst-crawler/internal/repository"
)

// CompanyRepoImpl stores merged company records in PostgreSQL (or Supabase).
type CompanyRepoImpl struct {
	db *pgxpool.Pool
}

// NewCompanyRepo creates a new instance of CompanyRepoImpl.
func NewCompanyRepo(db *pgxpool.Pool) *CompanyRepoImpl {
	return &CompanyRepoImpl{db: db}
}

var _ repository.CompanyRepository = (*CompanyRepoImpl)(nil)

const selectColumns = `id, keyword, tax_id, company_name, address, legal_representative, start_date,
	status, company_type, email, phone, raw_data, created_at, updated_at`

// upsertQuery relies on the unique (keyword, tax_id) index so concurrent first
// inserts of the same key converge on one row. created_at is never overwritten.
const upsertQuery = `INSERT INTO companies (keyword, tax_id, company_name, address, legal_representative, start_date,
	                       status, company_type, email, phone, raw_data, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)
	ON CONFLICT (keyword, tax_id) DO UPDATE SET
		company_name = EXCLUDED.company_name,
		address = EXCLUDED.address,
		legal_representative = EXCLUDED.legal_representative,
		start_date = EXCLUDED.start_date,
		status = EXCLUDED.status,
		company_type = EXCLUDED.company_type,
		email = EXCLUDED.email,
		phone = EXCLUDED.phone,
		raw_data = EXCLUDED.raw_data,
		updated_at = EXCLUDED.updated_at
	RETURNING id, created_at, updated_at`

// Upsert inserts the record or overwrites the row stored for (keyword, tax_id).
func (r *CompanyRepoImpl) Upsert(ctx context.Context, rec *entity.CompanyRecord) error {
	if err := repository.ValidateRecord(rec); err != nil {
		return err
	}
	raw, err := json.Marshal(rec.RawData)
	if err != nil {
		return fmt.Errorf("%w: encode raw data: %v", repository.ErrPersistence, err)
	}

	err = r.db.QueryRow(ctx, upsertQuery,
		rec.Keyword, rec.TaxID, nullable(rec.CompanyName), nullable(rec.Address), nullable(rec.LegalRepresentative),
		nullable(rec.StartDate), nullable(rec.Status), nullable(rec.CompanyType), nullable(rec.Email), nullable(rec.Phone),
		raw, time.Now().UTC(),
	).Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
	return classify(err)
}

// FindByKey retrieves the record stored for (keyword, taxID).
func (r *CompanyRepoImpl) FindByKey(ctx context.Context, keyword, taxID string) (*entity.CompanyRecord, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+selectColumns+` FROM companies WHERE keyword = $1 AND tax_id = $2`,
		keyword, taxID)
	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	return rec, err
}

// ListRecent returns the most recently updated records first.
func (r *CompanyRepoImpl) ListRecent(ctx context.Context, limit int) ([]*entity.CompanyRecord, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+selectColumns+` FROM companies ORDER BY updated_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*entity.CompanyRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *CompanyRepoImpl) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func scanRecord(row pgx.Row) (*entity.CompanyRecord, error) {
	var (
		rec                                                   entity.CompanyRecord
		name, address, rep, start, status, kind, email, phone *string
		raw                                                   []byte
	)
	err := row.Scan(&rec.ID, &rec.Keyword, &rec.TaxID, &name, &address, &rep, &start,
		&status, &kind, &email, &phone, &raw, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	rec.CompanyName, rec.Address, rec.LegalRepresentative = deref(name), deref(address), deref(rep)
	rec.StartDate, rec.Status, rec.CompanyType = deref(start), deref(status), deref(kind)
	rec.Email, rec.Phone = deref(email), deref(phone)

	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &rec.RawData); err != nil {
			return nil, fmt.Errorf("decode raw_data for company %d: %w", rec.ID, err)
		}
	}
	rec.PhoneSource, rec.EmailSource = rec.RawData.PhoneSource, rec.RawData.EmailSource
	return &rec, nil
}

// classify marks integrity violations as rejections. Everything else is an outage.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && len(pgErr.Code) == 5 && pgErr.Code[:2] == "23" {
		return fmt.Errorf("%w: %s", repository.ErrPersistence, pgErr.Message)
	}
	return err
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
