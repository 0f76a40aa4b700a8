package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/user/mst-crawler/internal/entity"
	"github.com/user/mst-crawler/internal/extractor"
	"github.com/user/mst-crawler/internal/repository"
	"github.com/user/mst-crawler/pkg/metrics"
)

const (
	reasonNoTaxInfo      = "no tax info found"
	reasonNoTaxID        = "no tax id"
	reasonNoAnnouncement = "no announcement found"
	reasonNoText         = "announcement has no readable text"
	reasonNoContact      = "no contact info in announcement"
)

// Pipeline runs lookups against the tax site and the registry portal.
type Pipeline interface {
	TaxInfo(ctx context.Context, keyword string) (*entity.TaxInfo, error)
	ContactInfo(ctx context.Context, taxID string) (*entity.ContactResult, error)
	CombinedLookup(ctx context.Context, keyword string) (*entity.LookupResult, error)
	GetCompany(ctx context.Context, keyword, taxID string) (*entity.CompanyRecord, error)
	ListCompanies(ctx context.Context, limit int) ([]*entity.CompanyRecord, error)
	Health(ctx context.Context) error
}

// Dependencies are the collaborators a Pipeline sequences.
type Dependencies struct {
	TaxInfo   repository.TaxInfoRepository
	Registry  repository.RegistryRepository
	Solver    repository.CaptchaSolver
	Text      repository.TextSource
	Extractor repository.ContactExtractor
	Companies repository.CompanyRepository
	Cache     repository.TaxInfoCache // optional
	Mask      *extractor.PhoneMask    // optional
}

type Options struct {
	// MinBalance is the captcha account balance required before a registry crawl starts.
	MinBalance float64
	CacheTTL   time.Duration
}

type pipelineUseCase struct {
	deps   Dependencies
	opts   Options
	logger *zap.Logger
}

func NewPipeline(deps Dependencies, opts Options, logger *zap.Logger) Pipeline {
	if deps.Cache == nil {
		deps.Cache = repository.NopTaxInfoCache{}
	}
	if deps.Mask == nil {
		deps.Mask = extractor.NewPhoneMask(nil)
	}
	return &pipelineUseCase{
		deps:   deps,
		opts:   opts,
		logger: logger.With(zap.String("component", "pipeline")),
	}
}

func (uc *pipelineUseCase) TaxInfo(ctx context.Context, keyword string) (*entity.TaxInfo, error) {
	keyword = strings.TrimSpace(keyword)

	cached, found, err := uc.deps.Cache.Get(ctx, keyword)
	if err != nil {
		uc.logger.Warn("Tax info cache read failed", zap.String("keyword", keyword), zap.Error(err))
	} else if found {
		metrics.StagesTotal.WithLabelValues("tax_info", "cache_hit").Inc()
		return cached, nil
	}

	info, err := uc.deps.TaxInfo.Lookup(ctx, keyword)
	if err != nil {
		metrics.StagesTotal.WithLabelValues("tax_info", "error").Inc()
		return nil, fmt.Errorf("tax info lookup for %q: %w", keyword, err)
	}
	if info == nil {
		info = &entity.TaxInfo{}
	}
	if info.TaxID == "" {
		metrics.StagesTotal.WithLabelValues("tax_info", "not_found").Inc()
		return info, nil
	}
	metrics.StagesTotal.WithLabelValues("tax_info", "found").Inc()

	if err := uc.deps.Cache.Set(ctx, keyword, info, uc.opts.CacheTTL); err != nil {
		uc.logger.Warn("Tax info cache write failed", zap.String("keyword", keyword), zap.Error(err))
	}
	return info, nil
}

func (uc *pipelineUseCase) ContactInfo(ctx context.Context, taxID string) (*entity.ContactResult, error) {
	taxID = strings.TrimSpace(taxID)
	if err := uc.checkBalance(ctx); err != nil {
		return nil, err
	}

	ann, err := uc.deps.Registry.FetchAnnouncement(ctx, taxID)
	if err != nil {
		metrics.StagesTotal.WithLabelValues("registry", "error").Inc()
		return nil, fmt.Errorf("fetch announcement for %s: %w", taxID, err)
	}
	if ann.Outcome != entity.AnnouncementFound {
		metrics.StagesTotal.WithLabelValues("registry", "no_results").Inc()
		return notFoundContact(taxID, reasonNoAnnouncement), nil
	}
	metrics.StagesTotal.WithLabelValues("registry", "found").Inc()
	defer func() {
		if err := os.Remove(ann.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			uc.logger.Warn("Failed to remove announcement file", zap.String("path", ann.Path), zap.Error(err))
		}
	}()

	text, err := uc.deps.Text.ExtractText(ctx, ann.Path)
	if errors.Is(err, repository.ErrExtraction) {
		metrics.StagesTotal.WithLabelValues("extraction", "empty").Inc()
		uc.logger.Warn("Announcement yielded no text", zap.String("tax_id", taxID), zap.Error(err))
		return notFoundContact(taxID, reasonNoText), nil
	}
	if err != nil {
		metrics.StagesTotal.WithLabelValues("extraction", "error").Inc()
		return nil, fmt.Errorf("extract text for %s: %w", taxID, err)
	}

	contact := uc.deps.Extractor.Extract(text)
	if contact.IsEmpty() {
		metrics.StagesTotal.WithLabelValues("extraction", "no_contact").Inc()
		return notFoundContact(taxID, reasonNoContact), nil
	}
	metrics.StagesTotal.WithLabelValues("extraction", "found").Inc()

	uc.logger.Info("Contact info extracted",
		zap.String("tax_id", taxID),
		zap.String("registration_type", string(ann.RegistrationType)),
		zap.Bool("phone", contact.Phone != ""),
		zap.Bool("email", contact.Email != ""),
	)
	return &entity.ContactResult{Status: entity.LookupFound, TaxID: taxID, Contact: &contact}, nil
}

func (uc *pipelineUseCase) checkBalance(ctx context.Context) error {
	balance, err := uc.deps.Solver.Balance(ctx)
	if err != nil {
		return err
	}
	if balance < uc.opts.MinBalance {
		return fmt.Errorf("%w: %.4f below %.4f", repository.ErrInsufficientBalance, balance, uc.opts.MinBalance)
	}
	return nil
}

func notFoundContact(taxID, reason string) *entity.ContactResult {
	return &entity.ContactResult{Status: entity.LookupNotFound, Reason: reason, TaxID: taxID}
}

// CombinedLookup resolves keyword to a tax ID, then fetches contact details for it.
// Only the tax-info step is fatal; contact and persistence failures are reported, not returned.
func (uc *pipelineUseCase) CombinedLookup(ctx context.Context, keyword string) (*entity.LookupResult, error) {
	keyword = strings.TrimSpace(keyword)

	tax, err := uc.TaxInfo(ctx, keyword)
	if err != nil {
		return nil, err
	}
	if tax.IsEmpty() {
		return &entity.LookupResult{Status: entity.LookupNotFound, Reason: reasonNoTaxInfo}, nil
	}
	if tax.TaxID == "" {
		return &entity.LookupResult{Status: entity.LookupNotFound, Reason: reasonNoTaxID, TaxInfo: tax}, nil
	}

	var contact *entity.ContactInfo
	res, err := uc.ContactInfo(ctx, tax.TaxID)
	switch {
	case err != nil:
		uc.logger.Warn("Contact info unavailable", zap.String("keyword", keyword), zap.String("tax_id", tax.TaxID), zap.Error(err))
	case res.Status == entity.LookupFound:
		contact = res.Contact
	default:
		uc.logger.Info("No contact info", zap.String("tax_id", tax.TaxID), zap.String("reason", res.Reason))
	}

	rec := MergeRecord(keyword, tax, contact, uc.deps.Mask)
	status := uc.persist(ctx, rec)

	return &entity.LookupResult{
		Status:         entity.LookupFound,
		TaxInfo:        tax,
		Record:         rec,
		DatabaseStatus: status,
	}, nil
}

func (uc *pipelineUseCase) persist(ctx context.Context, rec *entity.CompanyRecord) entity.DatabaseStatus {
	err := uc.deps.Companies.Upsert(ctx, rec)
	status := entity.DatabaseSaved
	switch {
	case errors.Is(err, repository.ErrPersistence):
		status = entity.DatabaseFailed
	case err != nil:
		status = entity.DatabaseError
	}
	metrics.StagesTotal.WithLabelValues("persistence", string(status)).Inc()
	if err != nil {
		uc.logger.Error("Failed to persist company record",
			zap.String("keyword", rec.Keyword), zap.String("tax_id", rec.TaxID),
			zap.String("database_status", string(status)), zap.Error(err))
	}
	return status
}

func (uc *pipelineUseCase) GetCompany(ctx context.Context, keyword, taxID string) (*entity.CompanyRecord, error) {
	return uc.deps.Companies.FindByKey(ctx, strings.TrimSpace(keyword), strings.TrimSpace(taxID))
}

func (uc *pipelineUseCase) ListCompanies(ctx context.Context, limit int) ([]*entity.CompanyRecord, error) {
	return uc.deps.Companies.ListRecent(ctx, limit)
}

// Health pings the persistence sink and the cache.
func (uc *pipelineUseCase) Health(ctx context.Context) error {
	var errs []error
	if err := uc.deps.Companies.Ping(ctx); err != nil {
		errs = append(errs, fmt.Errorf("database: %w", err))
	}
	if err := uc.deps.Cache.Ping(ctx); err != nil {
		errs = append(errs, fmt.Errorf("cache: %w", err))
	}
	return errors.Join(errs...)
}
