// Package masothue looks companies up on the public masothue.com tax directory.
package masothue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/user/mst-crawler/internal/entity"
	"github.com/user/mst-crawler/internal/repository"
	"github.com/user/mst-crawler/pkg/metrics"
	"github.com/user/mst-crawler/pkg/utils"
)

const (
	searchInputSelector  = `input[name="q"]`
	searchSubmitSelector = ".btn-search-submit"
	resultTableSelector  = "table.table-taxinfo"
	resultBodySelector   = "table.table-taxinfo tbody"
	// A name search with several matches lands on a listing instead of a detail page.
	listingLinkSelector = ".tax-listing h3 a"
)

var notFoundMarkers = []string{"Không tìm thấy kết quả", "không tồn tại"}

type Config struct {
	BaseURL      string
	MaxAttempts  int
	Backoff      utils.Backoff
	WaitTimeout  time.Duration
	PollInterval time.Duration
}

func (c *Config) setDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://masothue.com"
	}
	if c.MaxAttempts < 1 {
		c.MaxAttempts = 3
	}
	if c.Backoff.Base <= 0 {
		c.Backoff = utils.Backoff{Base: 2, Max: 30 * time.Second}
	}
	if c.WaitTimeout <= 0 {
		c.WaitTimeout = 60 * time.Second
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 500 * time.Millisecond
	}
}

// Crawler searches the directory in a browser and parses the result table.
type Crawler struct {
	browser repository.Browser
	parser  *Parser
	cfg     Config
	logger  *zap.Logger
}

func New(browser repository.Browser, parser *Parser, cfg Config, logger *zap.Logger) *Crawler {
	cfg.setDefaults()
	return &Crawler{
		browser: browser,
		parser:  parser,
		cfg:     cfg,
		logger:  logger.With(zap.String("component", "masothue")),
	}
}

var _ repository.TaxInfoRepository = (*Crawler)(nil)

var errNoMatch = errors.New("no matching company")

// Lookup returns an empty TaxInfo when the directory has no match for keyword.
func (c *Crawler) Lookup(ctx context.Context, keyword string) (*entity.TaxInfo, error) {
	start := time.Now()
	defer func() { metrics.CrawlDuration.WithLabelValues("masothue").Observe(time.Since(start).Seconds()) }()

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		info, err := c.lookup(ctx, keyword)
		switch {
		case err == nil:
			c.logger.Info("Tax info scraped", zap.String("keyword", keyword), zap.String("tax_id", info.TaxID))
			return info, nil
		case errors.Is(err, errNoMatch):
			c.logger.Info("No company matches keyword", zap.String("keyword", keyword))
			return &entity.TaxInfo{}, nil
		case ctx.Err() != nil:
			return nil, ctx.Err()
		}
		lastErr = err
		c.logger.Warn("Tax info attempt failed",
			zap.String("keyword", keyword), zap.Int("attempt", attempt), zap.Int("max_attempts", c.cfg.MaxAttempts), zap.Error(err))
		if attempt < c.cfg.MaxAttempts {
			if err := utils.Sleep(ctx, c.cfg.Backoff.Delay(attempt)); err != nil {
				return nil, err
			}
		}
	}
	return nil, fmt.Errorf("tax info lookup for %q failed after %d attempts: %w", keyword, c.cfg.MaxAttempts, lastErr)
}

func (c *Crawler) lookup(ctx context.Context, keyword string) (*entity.TaxInfo, error) {
	page, err := c.browser.NewPage(ctx, repository.PageOptions{BlockResources: true})
	if err != nil {
		return nil, fmt.Errorf("open browser: %w", err)
	}
	defer page.Close()

	if err := page.Navigate(ctx, c.cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", repository.ErrNavigation, c.cfg.BaseURL, err)
	}
	if err := page.WaitReady(ctx, searchInputSelector, c.cfg.WaitTimeout); err != nil {
		return nil, fmt.Errorf("%w: search box: %v", repository.ErrFormNotFound, err)
	}
	if err := page.Fill(ctx, searchInputSelector, keyword); err != nil {
		return nil, fmt.Errorf("%w: fill search box: %v", repository.ErrFormNotFound, err)
	}
	if err := page.Click(ctx, searchSubmitSelector); err != nil {
		return nil, fmt.Errorf("submit search: %w", err)
	}

	if err := c.waitForDetail(ctx, page); err != nil {
		return nil, err
	}
	html, err := page.OuterHTML(ctx, resultTableSelector)
	if err != nil {
		return nil, fmt.Errorf("read result table: %w", err)
	}
	return c.parser.Parse(html)
}

// waitForDetail polls until the detail table shows, following the first
// listing link once if the search landed on a result list.
func (c *Crawler) waitForDetail(ctx context.Context, page repository.Page) error {
	deadline := time.Now().Add(c.cfg.WaitTimeout)
	followed := false
	for {
		if ok, err := page.Exists(ctx, resultBodySelector); err == nil && ok {
			return nil
		}
		for _, marker := range notFoundMarkers {
			if ok, err := page.ContainsText(ctx, marker); err == nil && ok {
				return errNoMatch
			}
		}
		if !followed {
			if ok, err := page.Exists(ctx, listingLinkSelector); err == nil && ok {
				if err := page.Click(ctx, listingLinkSelector); err != nil {
					return fmt.Errorf("open first listing result: %w", err)
				}
				followed = true
			}
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: tax info table after %s", repository.ErrResultsTimeout, c.cfg.WaitTimeout)
		}
		if err := utils.Sleep(ctx, c.cfg.PollInterval); err != nil {
			return err
		}
	}
}
