// Package sqlstore is the database/sql persistence sink for SQLite, SQL Server and MySQL.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/user/mst-crawler/internal/entity"
	"github.com/user/mst-crawler/internal/repository"
)

// Open opens and pings a database for driver.
func Open(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	if _, err := DialectFor(driver); err != nil {
		return nil, err
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == SQLite.Name {
		// A single writer avoids SQLITE_BUSY between pooled connections.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return db, nil
}

// CompanyStore implements repository.CompanyRepository over database/sql.
type CompanyStore struct {
	db      *sql.DB
	dialect Dialect
}

func NewCompanyStore(db *sql.DB, dialect Dialect) *CompanyStore {
	return &CompanyStore{db: db, dialect: dialect}
}

var _ repository.CompanyRepository = (*CompanyStore)(nil)

const (
	selectColumns = `id, keyword, tax_id, company_name, address, legal_representative, start_date,
	status, company_type, email, phone, raw_data, created_at, updated_at`
	insertColumns = `keyword, tax_id, company_name, address, legal_representative, start_date,
	status, company_type, email, phone, raw_data, created_at, updated_at`
	insertValues = `(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
)

func (s *CompanyStore) Upsert(ctx context.Context, rec *entity.CompanyRecord) error {
	if err := repository.ValidateRecord(rec); err != nil {
		return err
	}
	raw, err := json.Marshal(rec.RawData)
	if err != nil {
		return fmt.Errorf("%w: encode raw data: %v", repository.ErrPersistence, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	d := s.dialect
	now := time.Now().UTC().Truncate(time.Microsecond)

	var (
		id        int64
		createdAt time.Time
	)
	err = tx.QueryRowContext(ctx,
		d.rebind(`SELECT id, created_at FROM companies`+d.tableHint+` WHERE keyword = ? AND tax_id = ?`+d.lockSuffix),
		rec.Keyword, rec.TaxID,
	).Scan(&id, &createdAt)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		id, err = s.insert(ctx, tx, rec, raw, now)
		createdAt = now
	case err == nil:
		_, err = tx.ExecContext(ctx,
			d.rebind(`UPDATE companies SET company_name = ?, address = ?, legal_representative = ?, start_date = ?,
			status = ?, company_type = ?, email = ?, phone = ?, raw_data = ?, updated_at = ? WHERE id = ?`),
			nullable(rec.CompanyName), nullable(rec.Address), nullable(rec.LegalRepresentative), nullable(rec.StartDate),
			nullable(rec.Status), nullable(rec.CompanyType), nullable(rec.Email), nullable(rec.Phone),
			string(raw), now, id,
		)
	}
	if err != nil {
		return s.classify(err)
	}
	if err := tx.Commit(); err != nil {
		return s.classify(err)
	}
	rec.ID, rec.CreatedAt, rec.UpdatedAt = id, createdAt, now
	return nil
}

func (s *CompanyStore) insert(ctx context.Context, tx *sql.Tx, rec *entity.CompanyRecord, raw []byte, now time.Time) (int64, error) {
	args := []any{
		rec.Keyword, rec.TaxID, nullable(rec.CompanyName), nullable(rec.Address), nullable(rec.LegalRepresentative),
		nullable(rec.StartDate), nullable(rec.Status), nullable(rec.CompanyType), nullable(rec.Email), nullable(rec.Phone),
		string(raw), now, now,
	}
	d := s.dialect

	var id int64
	switch d.insert {
	case returningClause:
		q := `INSERT INTO companies (` + insertColumns + `) VALUES ` + insertValues + ` RETURNING id`
		err := tx.QueryRowContext(ctx, d.rebind(q), args...).Scan(&id)
		return id, err
	case outputClause:
		q := `INSERT INTO companies (` + insertColumns + `) OUTPUT INSERTED.id VALUES ` + insertValues
		err := tx.QueryRowContext(ctx, d.rebind(q), args...).Scan(&id)
		return id, err
	default:
		q := `INSERT INTO companies (` + insertColumns + `) VALUES ` + insertValues
		res, err := tx.ExecContext(ctx, d.rebind(q), args...)
		if err != nil {
			return 0, err
		}
		return res.LastInsertId()
	}
}

func (s *CompanyStore) FindByKey(ctx context.Context, keyword, taxID string) (*entity.CompanyRecord, error) {
	row := s.db.QueryRowContext(ctx,
		s.dialect.rebind(`SELECT `+selectColumns+` FROM companies WHERE keyword = ? AND tax_id = ?`),
		keyword, taxID)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	return rec, err
}

func (s *CompanyStore) ListRecent(ctx context.Context, limit int) ([]*entity.CompanyRecord, error) {
	q := s.dialect.limit(`SELECT ` + selectColumns + ` FROM companies ORDER BY updated_at DESC, id DESC`)
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(q), limit)
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

func (s *CompanyStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*entity.CompanyRecord, error) {
	var (
		rec                                                   entity.CompanyRecord
		name, address, rep, start, status, kind, email, phone sql.NullString
		raw                                                   sql.NullString
	)
	err := row.Scan(&rec.ID, &rec.Keyword, &rec.TaxID, &name, &address, &rep, &start,
		&status, &kind, &email, &phone, &raw, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	rec.CompanyName, rec.Address, rec.LegalRepresentative = name.String, address.String, rep.String
	rec.StartDate, rec.Status, rec.CompanyType = start.String, status.String, kind.String
	rec.Email, rec.Phone = email.String, phone.String

	if raw.Valid && raw.String != "" {
		if err := json.Unmarshal([]byte(raw.String), &rec.RawData); err != nil {
			return nil, fmt.Errorf("decode raw_data for company %d: %w", rec.ID, err)
		}
	}
	rec.PhoneSource, rec.EmailSource = rec.RawData.PhoneSource, rec.RawData.EmailSource
	return &rec, nil
}

func (s *CompanyStore) classify(err error) error {
	if s.dialect.constraint != nil && s.dialect.constraint(err) {
		return fmt.Errorf("%w: %v", repository.ErrPersistence, err)
	}
	return err
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
