package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/user/mst-crawler/internal/adapter/chromedp_crawler"
	"github.com/user/mst-crawler/internal/adapter/masothue"
	"github.com/user/mst-crawler/internal/adapter/migrations"
	"github.com/user/mst-crawler/internal/adapter/pdftext"
	"github.com/user/mst-crawler/internal/adapter/postgres"
	redis_adapter "github.com/user/mst-crawler/internal/adapter/redis"
	"github.com/user/mst-crawler/internal/adapter/registry"
	"github.com/user/mst-crawler/internal/adapter/sqlstore"
	"github.com/user/mst-crawler/internal/adapter/twocaptcha"
	"github.com/user/mst-crawler/internal/delivery/http/handler"
	"github.com/user/mst-crawler/internal/delivery/http/router"
	"github.com/user/mst-crawler/internal/entity"
	"github.com/user/mst-crawler/internal/extractor"
	"github.com/user/mst-crawler/internal/repository"
	"github.com/user/mst-crawler/internal/usecase"
	"github.com/user/mst-crawler/pkg/config"
	"github.com/user/mst-crawler/pkg/logger"
	"github.com/user/mst-crawler/pkg/metrics"
	"github.com/user/mst-crawler/pkg/utils"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// --- Logger ---
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer log.Sync()

	rules, err := config.LoadRules(cfg.RulesFile)
	if err != nil {
		return err
	}
	order := rules.RegistrationOrder
	if len(order) == 0 {
		order = config.SplitList(cfg.RegistrationOrder)
	}
	registrationOrder, err := entity.ParseRegistrationOrder(order)
	if err != nil {
		return err
	}

	// --- Metrics ---
	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Persistence ---
	companies, closeDB, err := openCompanyRepository(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeDB()

	var cache repository.TaxInfoCache = repository.NopTaxInfoCache{}
	if cfg.RedisAddr != "" {
		rdb, err := redis_adapter.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return err
		}
		defer rdb.Close()
		cache = redis_adapter.NewTaxInfoCache(rdb)
		log.Info("Redis tax info cache enabled", zap.String("addr", cfg.RedisAddr))
	}

	// --- Crawlers ---
	solver := twocaptcha.New(cfg.CaptchaAPIKey, cfg.CaptchaBaseURL, log,
		twocaptcha.WithPolling(time.Duration(cfg.CaptchaPollInterval)*time.Second, cfg.CaptchaMaxPolls))

	launcher := chromedp_crawler.NewLauncher(chromedp_crawler.Options{
		Headless:        cfg.Headless,
		MaxSessions:     cfg.MaxBrowserSessions,
		PageLoadTimeout: cfg.PageLoadTimeoutDuration(),
		Identities:      chromedp_crawler.NewIdentityManager(config.SplitList(cfg.ProxyURLs), config.SplitList(cfg.UserAgents)),
		Limiter:         utils.NewHostLimiter(cfg.NavigationRate, cfg.NavigationBurst),
	}, log)

	backoff := utils.Backoff{Base: cfg.BackoffBase, Max: cfg.BackoffMaxDuration()}
	mask := extractor.NewPhoneMask(rules.HiddenMarkers)

	taxSite := masothue.New(launcher, masothue.NewParser(mask), masothue.Config{
		BaseURL:     cfg.TaxInfoURL,
		MaxAttempts: cfg.CrawlMaxAttempts,
		Backoff:     backoff,
		WaitTimeout: cfg.PageLoadTimeoutDuration(),
	}, log)

	registryCrawler := registry.New(launcher, solver, registry.Config{
		TargetURL:         cfg.RegistryURL,
		SiteKey:           cfg.RegistrySiteKey,
		RegistrationOrder: registrationOrder,
		MaxAttempts:       cfg.CrawlMaxAttempts,
		NavigationRetries: cfg.NavigationRetries,
		Backoff:           backoff,
		FormTimeout:       cfg.PageLoadTimeoutDuration(),
		ResultTimeout:     cfg.ResultTimeoutDuration(),
		DownloadDir:       cfg.DownloadDir,
		SnapshotDir:       cfg.SnapshotDir,
	}, log)

	text := pdftext.New(pdftext.LayoutParams{
		LineMargin:      cfg.PDFLineMargin,
		WordMargin:      cfg.PDFWordMargin,
		ParagraphMargin: cfg.PDFParagraphMargin,
	}, log)

	// --- Use Cases ---
	pipeline := usecase.NewPipeline(usecase.Dependencies{
		TaxInfo:   taxSite,
		Registry:  registryCrawler,
		Solver:    solver,
		Text:      text,
		Extractor: extractor.New(rules.PhonePrefixes),
		Companies: companies,
		Cache:     cache,
		Mask:      mask,
	}, usecase.Options{
		MinBalance: cfg.CaptchaMinBalance,
		CacheTTL:   time.Duration(cfg.TaxInfoCacheTTL) * time.Hour,
	}, log)

	// --- HTTP Server ---
	requestTimeout := time.Duration(cfg.RequestTimeout) * time.Second
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router.New(handler.NewHandler(pipeline, log), log, requestTimeout),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: requestTimeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting server", zap.String("port", cfg.ServerPort), zap.String("db_driver", cfg.DBDriver))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen on port %s: %w", cfg.ServerPort, err)
	case <-ctx.Done():
	}

	log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// openCompanyRepository connects the configured sink and applies migrations when enabled.
func openCompanyRepository(ctx context.Context, cfg *config.Config, log *zap.Logger) (repository.CompanyRepository, func(), error) {
	if cfg.DBDriver == "postgres" {
		pool, err := postgres.Connect(ctx, cfg.DSN())
		if err != nil {
			return nil, nil, err
		}
		if cfg.DBAutoMigrate {
			if err := migrations.Up(ctx, postgres.SQLDB(pool), cfg.DBDriver, log); err != nil {
				pool.Close()
				return nil, nil, err
			}
		}
		log.Info("PostgreSQL connection pool established")
		return postgres.NewCompanyRepo(pool), pool.Close, nil
	}

	dialect, err := sqlstore.DialectFor(cfg.DBDriver)
	if err != nil {
		return nil, nil, err
	}
	db, err := sqlstore.Open(ctx, cfg.DBDriver, cfg.DSN())
	if err != nil {
		return nil, nil, err
	}
	if cfg.DBAutoMigrate {
		if err := migrations.Up(ctx, db, cfg.DBDriver, log); err != nil {
			db.Close()
			return nil, nil, err
		}
	}
	log.Info("Database connection established", zap.String("driver", cfg.DBDriver))
	return sqlstore.NewCompanyStore(db, dialect), func() { db.Close() }, nil
}
