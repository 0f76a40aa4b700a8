// Package chromedp_crawler implements the browser capability both crawlers
// drive, on top of a headless Chrome controlled through chromedp.
package chromedp_crawler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/user/mst-crawler/internal/repository"
	"github.com/user/mst-crawler/pkg/metrics"
	"github.com/user/mst-crawler/pkg/utils"
)

// Options configure the launcher.
type Options struct {
	Headless        bool
	MaxSessions     int
	PageLoadTimeout time.Duration
	Identities      *IdentityManager
	Limiter         *utils.HostLimiter
}

// Launcher starts one isolated Chrome per session and bounds how many run at once.
type Launcher struct {
	opts   Options
	sem    *semaphore.Weighted
	logger *zap.Logger
}

// NewLauncher creates a browser launcher.
func NewLauncher(opts Options, logger *zap.Logger) *Launcher {
	if opts.MaxSessions < 1 {
		opts.MaxSessions = 1
	}
	if opts.PageLoadTimeout <= 0 {
		opts.PageLoadTimeout = 60 * time.Second
	}
	if opts.Identities == nil {
		opts.Identities = NewIdentityManager(nil, nil)
	}
	return &Launcher{
		opts:   opts,
		sem:    semaphore.NewWeighted(int64(opts.MaxSessions)),
		logger: logger.With(zap.String("component", "browser")),
	}
}

var _ repository.Browser = (*Launcher)(nil)

func (l *Launcher) allocatorOptions(id Identity) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-plugins", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(1920, 1080),
		chromedp.UserAgent(id.UserAgent),
	)
	if !l.opts.Headless {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	if id.Proxy != "" {
		opts = append(opts, chromedp.ProxyServer(id.Proxy))
	}
	return opts
}

// NewPage waits for a free session slot, launches Chrome and returns its first tab.
func (l *Launcher) NewPage(ctx context.Context, opts repository.PageOptions) (repository.Page, error) {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	id := l.opts.Identities.Next()

	// The browser outlives any single call, so it hangs off Background and is
	// torn down by Close.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), l.allocatorOptions(id)...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(l.logger.Sugar().Debugf))

	p := &page{
		ctx:         tabCtx,
		timeout:     l.opts.PageLoadTimeout,
		limiter:     l.opts.Limiter,
		downloadDir: opts.DownloadDir,
		downloads:   make(chan downloadResult, 4),
		logger:      l.logger.With(zap.String("proxy", id.Proxy)),
	}
	p.release = func() {
		tabCancel()
		allocCancel()
		l.sem.Release(1)
		metrics.BrowserSessionsActive.Dec()
	}
	metrics.BrowserSessionsActive.Inc()

	chromedp.ListenTarget(tabCtx, p.listen(opts.BlockResources))

	var setup []chromedp.Action
	if opts.BlockResources {
		setup = append(setup, fetch.Enable())
	}
	if opts.DownloadDir != "" {
		setup = append(setup, browser.SetDownloadBehavior(browser.SetDownloadBehaviorBehaviorAllowAndName).
			WithDownloadPath(opts.DownloadDir).
			WithEventsEnabled(true))
	}

	// The first Run starts the browser and must use the tab context itself.
	stop := context.AfterFunc(ctx, tabCancel)
	err := chromedp.Run(tabCtx, setup...)
	stop()
	if err != nil {
		p.Close()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	l.logger.Debug("Browser session started", zap.String("user_agent", id.UserAgent), zap.Bool("block_resources", opts.BlockResources))
	return p, nil
}

type downloadResult struct {
	guid string
	ok   bool
}

// closeOnce guards release so Close is idempotent.
type closeOnce struct {
	once    sync.Once
	release func()
}

func (c *closeOnce) Close() error {
	c.once.Do(func() {
		if c.release != nil {
			c.release()
		}
	})
	return nil
}
