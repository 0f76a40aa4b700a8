// Package registry downloads business registration announcements from the
// captcha-protected national e-gazette portal.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/user/mst-crawler/internal/entity"
	"github.com/user/mst-crawler/internal/repository"
	"github.com/user/mst-crawler/pkg/metrics"
	"github.com/user/mst-crawler/pkg/utils"
)

// Config tunes the crawl. Zero durations and counts fall back to defaults.
type Config struct {
	TargetURL         string
	SiteKey           string
	RegistrationOrder []entity.RegistrationType

	MaxAttempts       int
	NavigationRetries int
	Backoff           utils.Backoff
	NavigationBackoff time.Duration

	FormTimeout   time.Duration
	ResultTimeout time.Duration
	PollInterval  time.Duration
	SettleDelay   time.Duration

	DownloadDir string
	SnapshotDir string
}

func (c *Config) setDefaults() {
	if len(c.RegistrationOrder) == 0 {
		c.RegistrationOrder = entity.DefaultRegistrationOrder
	}
	if c.MaxAttempts < 1 {
		c.MaxAttempts = 3
	}
	if c.NavigationRetries < 1 {
		c.NavigationRetries = 3
	}
	if c.Backoff.Base <= 0 {
		c.Backoff = utils.Backoff{Base: 2, Max: 30 * time.Second}
	}
	if c.NavigationBackoff <= 0 {
		c.NavigationBackoff = time.Second
	}
	if c.FormTimeout <= 0 {
		c.FormTimeout = 30 * time.Second
	}
	if c.ResultTimeout <= 0 {
		c.ResultTimeout = 30 * time.Second
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 500 * time.Millisecond
	}
	if c.SettleDelay <= 0 {
		c.SettleDelay = 2 * time.Second
	}
	if c.DownloadDir == "" {
		c.DownloadDir = os.TempDir()
	}
}

// Crawler drives the search form once per registration type until a PDF is found.
type Crawler struct {
	browser repository.Browser
	solver  repository.CaptchaSolver
	cfg     Config
	logger  *zap.Logger
}

// New creates a registry crawler.
func New(browser repository.Browser, solver repository.CaptchaSolver, cfg Config, logger *zap.Logger) *Crawler {
	cfg.setDefaults()
	return &Crawler{
		browser: browser,
		solver:  solver,
		cfg:     cfg,
		logger:  logger.With(zap.String("component", "registry")),
	}
}

var _ repository.RegistryRepository = (*Crawler)(nil)

// FetchAnnouncement retries whole sessions with exponential backoff. A search
// that finds nothing for every registration type is a result, not an error.
func (c *Crawler) FetchAnnouncement(ctx context.Context, taxID string) (*entity.Announcement, error) {
	start := time.Now()
	defer func() { metrics.CrawlDuration.WithLabelValues("registry").Observe(time.Since(start).Seconds()) }()

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		ann, err := c.attempt(ctx, taxID, attempt)
		if err == nil {
			return ann, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
		c.logger.Warn("Registry attempt failed",
			zap.String("tax_id", taxID), zap.Int("attempt", attempt), zap.Int("max_attempts", c.cfg.MaxAttempts), zap.Error(err))

		if attempt < c.cfg.MaxAttempts {
			if err := utils.Sleep(ctx, c.cfg.Backoff.Delay(attempt)); err != nil {
				return nil, err
			}
		}
	}
	return nil, fmt.Errorf("registry crawl for %s failed after %d attempts: %w", taxID, c.cfg.MaxAttempts, lastErr)
}

func (c *Crawler) attempt(ctx context.Context, taxID string, attempt int) (*entity.Announcement, error) {
	page, err := c.browser.NewPage(ctx, repository.PageOptions{DownloadDir: c.cfg.DownloadDir})
	if err != nil {
		return nil, fmt.Errorf("open browser: %w", err)
	}
	defer page.Close()

	var lastDownloadErr error
	for i, regType := range c.cfg.RegistrationOrder {
		log := c.logger.With(zap.String("tax_id", taxID), zap.String("registration_type", string(regType)), zap.Int("attempt", attempt))

		ann, err := c.search(ctx, page, taxID, regType)
		switch {
		case errors.Is(err, repository.ErrDownload):
			log.Warn("Announcement download unusable, trying next registration type", zap.Error(err))
			lastDownloadErr = err
			if i == len(c.cfg.RegistrationOrder)-1 {
				return nil, err
			}
			continue
		case err != nil:
			return nil, err
		case ann != nil:
			log.Info("Announcement downloaded", zap.String("path", ann.Path))
			return ann, nil
		}
		log.Info("No announcement for registration type")
	}
	if lastDownloadErr != nil {
		c.logger.Debug("Earlier download failure superseded by empty later search", zap.String("tax_id", taxID), zap.Error(lastDownloadErr))
	}
	return &entity.Announcement{TaxID: taxID, Outcome: entity.AnnouncementNoResults}, nil
}

// search runs one form submission. It returns nil, nil when the registration
// type has no downloadable announcement.
func (c *Crawler) search(ctx context.Context, page repository.Page, taxID string, regType entity.RegistrationType) (*entity.Announcement, error) {
	if err := c.navigate(ctx, page, taxID); err != nil {
		return nil, err
	}

	typeSel, err := c.findSelector(ctx, page, typeFilterSelectors)
	if err != nil {
		return nil, fmt.Errorf("%w: registration type filter: %v", repository.ErrFormNotFound, err)
	}
	if err := page.SelectOption(ctx, typeSel, string(regType)); err != nil {
		return nil, fmt.Errorf("%w: select registration type %s: %v", repository.ErrFormNotFound, regType, err)
	}
	if err := utils.Sleep(ctx, c.cfg.SettleDelay); err != nil {
		return nil, err
	}

	codeSel, err := c.findSelector(ctx, page, entityCodeSelectors)
	if err != nil {
		return nil, fmt.Errorf("%w: entity code field: %v", repository.ErrFormNotFound, err)
	}
	if err := page.Fill(ctx, codeSel, taxID); err != nil {
		return nil, fmt.Errorf("%w: fill entity code: %v", repository.ErrFormNotFound, err)
	}

	token, err := c.solver.Solve(ctx, c.cfg.SiteKey, c.cfg.TargetURL)
	if err != nil {
		return nil, err
	}
	if err := c.injectToken(ctx, page, token); err != nil {
		return nil, err
	}
	if err := utils.Sleep(ctx, c.cfg.SettleDelay); err != nil {
		return nil, err
	}

	submitSel, err := c.findSelector(ctx, page, submitSelectors)
	if err != nil {
		return nil, fmt.Errorf("%w: search button: %v", repository.ErrFormNotFound, err)
	}
	if err := page.Click(ctx, submitSel); err != nil {
		return nil, fmt.Errorf("submit search: %w", err)
	}
	if err := utils.Sleep(ctx, c.cfg.SettleDelay); err != nil {
		return nil, err
	}

	found, err := c.waitForResults(ctx, page)
	if err != nil {
		c.snapshot(ctx, page, taxID, regType)
		return nil, err
	}
	if !found {
		return nil, nil
	}

	hasPDF, err := page.Exists(ctx, pdfButtonSelector)
	if err != nil {
		return nil, fmt.Errorf("look up pdf control: %w", err)
	}
	if !hasPDF {
		return nil, nil
	}
	return c.download(ctx, page, taxID, regType)
}

func (c *Crawler) navigate(ctx context.Context, page repository.Page, taxID string) error {
	var err error
	for n := 1; n <= c.cfg.NavigationRetries; n++ {
		if err = page.Navigate(ctx, c.cfg.TargetURL); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Debug("Navigation failed", zap.String("tax_id", taxID), zap.Int("try", n), zap.Error(err))
		if n < c.cfg.NavigationRetries {
			if err := utils.Sleep(ctx, time.Duration(n)*c.cfg.NavigationBackoff); err != nil {
				return err
			}
		}
	}
	return fmt.Errorf("%w: %s: %v", repository.ErrNavigation, c.cfg.TargetURL, err)
}

// findSelector waits for the primary selector, then probes the fallbacks.
func (c *Crawler) findSelector(ctx context.Context, page repository.Page, selectors []string) (string, error) {
	waitErr := page.WaitReady(ctx, selectors[0], c.cfg.FormTimeout)
	if waitErr == nil {
		return selectors[0], nil
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	for _, sel := range selectors[1:] {
		if ok, err := page.Exists(ctx, sel); err == nil && ok {
			return sel, nil
		}
	}
	return "", fmt.Errorf("none of %q present: %v", selectors, waitErr)
}

func (c *Crawler) injectToken(ctx context.Context, page repository.Page, token string) error {
	arg, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("encode captcha token: %w", err)
	}
	var ok bool
	if err := page.Evaluate(ctx, fmt.Sprintf(injectTokenScript, arg), &ok); err != nil {
		return fmt.Errorf("inject captcha token: %w", err)
	}
	if !ok {
		return errors.New("inject captcha token: response field did not take the value")
	}
	return nil
}

// waitForResults polls for either the results table or the no-data notice.
func (c *Crawler) waitForResults(ctx context.Context, page repository.Page) (bool, error) {
	deadline := time.Now().Add(c.cfg.ResultTimeout)
	for {
		// Probe errors are expected while the postback is still loading.
		if ok, err := page.ContainsText(ctx, noDataText); err == nil && ok {
			return false, nil
		}
		if ok, err := page.Exists(ctx, resultsTableSelector); err == nil && ok {
			return true, nil
		}
		if time.Now().After(deadline) {
			return false, fmt.Errorf("%w after %s", repository.ErrResultsTimeout, c.cfg.ResultTimeout)
		}
		if err := utils.Sleep(ctx, c.cfg.PollInterval); err != nil {
			return false, err
		}
	}
}

func (c *Crawler) download(ctx context.Context, page repository.Page, taxID string, regType entity.RegistrationType) (*entity.Announcement, error) {
	if err := os.MkdirAll(c.cfg.DownloadDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create download dir: %v", repository.ErrDownload, err)
	}
	dest := filepath.Join(c.cfg.DownloadDir, fmt.Sprintf("%s_%s.pdf", taxID, uuid.NewString()[:8]))

	if err := page.Download(ctx, pdfButtonSelector, dest); err != nil {
		os.Remove(dest)
		return nil, fmt.Errorf("%w: %v", repository.ErrDownload, err)
	}
	info, err := os.Stat(dest)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", repository.ErrDownload, err)
	}
	if info.Size() == 0 {
		os.Remove(dest)
		return nil, fmt.Errorf("%w: empty file for %s", repository.ErrDownload, regType)
	}
	return &entity.Announcement{
		TaxID:            taxID,
		Outcome:          entity.AnnouncementFound,
		RegistrationType: regType,
		Path:             dest,
	}, nil
}

func (c *Crawler) snapshot(ctx context.Context, page repository.Page, taxID string, regType entity.RegistrationType) {
	if c.cfg.SnapshotDir == "" {
		return
	}
	if err := os.MkdirAll(c.cfg.SnapshotDir, 0o755); err != nil {
		c.logger.Warn("Cannot create snapshot dir", zap.Error(err))
		return
	}
	path := filepath.Join(c.cfg.SnapshotDir, fmt.Sprintf("registry_%s_%s_%d.png", taxID, regType, time.Now().Unix()))
	if err := page.Screenshot(ctx, path); err != nil {
		c.logger.Warn("Diagnostic snapshot failed", zap.String("tax_id", taxID), zap.Error(err))
		return
	}
	c.logger.Info("Diagnostic snapshot saved", zap.String("tax_id", taxID), zap.String("path", path))
}
