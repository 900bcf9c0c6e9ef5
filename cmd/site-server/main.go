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

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"compound-site/internal/common/aws"
	"compound-site/internal/common/config"
	"compound-site/internal/common/database"
	commonhttp "compound-site/internal/common/http"
	"compound-site/internal/common/logger"
	"compound-site/internal/common/observability"
	"compound-site/internal/content/blog"
	"compound-site/internal/content/search"
	"compound-site/internal/funnel/advisory"
	"compound-site/internal/funnel/application"
	"compound-site/internal/funnel/contact"
	"compound-site/internal/funnel/newsletter"
	"compound-site/internal/web"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(ctx context.Context, operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog = logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting site server...",
		zap.String("environment", cfg.App.Environment),
		zap.String("version", cfg.App.Version),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checks := map[string]web.Check{}

	// --- Draft store ---
	appCfg := application.LoadConfig(cfg.Application)
	var store application.Store
	if cfg.Database.Redis.Enabled() {
		var rdb *database.RedisClient
		err = retryWithBackoff(ctx, func() error {
			var err error
			rdb, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return rdb.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer rdb.Close()
		store = application.NewRedisStore(rdb.GetClient(), appCfg.DraftTTL)
		checks["redis"] = rdb.Ping
		zapLog.Info("Redis connected successfully")
	} else {
		store = application.NewMemoryStore(appCfg.DraftTTL)
		zapLog.Warn("no redis address configured, application drafts are kept in memory")
	}

	// --- Submission audit ---
	var audit application.AuditRecorder = application.NopAudit{}
	if cfg.Database.Postgres.Enabled() {
		var pg *database.PostgresClient
		err = retryWithBackoff(ctx, func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}
		defer pg.Close()
		if err := pg.Migrate(ctx, application.AuditSchema...); err != nil {
			zapLog.Fatal("audit schema migration failed", zap.Error(err))
		}
		audit = application.NewPostgresAudit(pg.GetDB())
		checks["postgres"] = pg.Ping
		zapLog.Info("PostgreSQL connected successfully")
	}

	submitter := application.NewHTTPSubmitter(appCfg.SubmitEndpoint,
		commonhttp.NewClient("form-endpoint", appCfg.Timeout), log)
	applications := application.NewHandler(appCfg, store, submitter, audit, log)

	// --- Blog ---
	posts := blog.NewStore(os.DirFS(cfg.Blog.ContentDir), log)
	if err := posts.Load(); err != nil {
		zapLog.Warn("blog content could not be loaded", zap.String("dir", cfg.Blog.ContentDir), zap.Error(err))
	}

	var searchIndex *search.Index
	if cfg.Database.Elasticsearch.Enabled() {
		var es *database.ElasticsearchClient
		searchIndex, es = initSearch(ctx, cfg, posts, log, zapLog)
		if searchIndex != nil {
			checks["elasticsearch"] = es.Ping
		}
	}

	// --- Eligibility advisory ---
	advCfg := advisory.LoadConfig(cfg.Advisory)
	var generator advisory.Generator
	if !advCfg.DemoMode {
		gemini, err := advisory.NewGeminiGenerator(ctx, advCfg)
		if err != nil {
			zapLog.Warn("gemini client unavailable", zap.Error(err))
		} else {
			generator = gemini
		}
	}
	advisor, err := advisory.NewHandler(advCfg, generator, log)
	if err != nil {
		zapLog.Warn("eligibility checker disabled", zap.Error(err))
		advisor = nil
	}

	// --- Newsletter & contact ---
	nlCfg := newsletter.LoadConfig(cfg.Newsletter)
	signups := newsletter.NewHandler(nlCfg, commonhttp.NewClient("newsletter", nlCfg.Timeout), log)

	contactCfg := contact.LoadConfig(cfg.Contact)
	var (
		sesClient contact.SESService
		snsClient contact.SNSService
	)
	if contactCfg.Enabled {
		awsCfg, err := aws.LoadConfig(ctx, cfg.Contact.Region)
		if err != nil {
			zapLog.Fatal("load AWS config failed", zap.Error(err))
		}
		sesClient = aws.NewSESClient(awsCfg)
		snsClient = aws.NewSNSClient(awsCfg)
		zapLog.Info("contact relay enabled", zap.String("region", cfg.Contact.Region))
	}
	messages := contact.NewHandler(contactCfg, sesClient, snsClient, log)

	// --- HTTP server ---
	site, err := web.NewServer(web.LoadConfig(cfg.Server, cfg.Application), web.Services{
		Applications: applications,
		Advisory:     advisor,
		Newsletter:   signups,
		Contact:      messages,
		Blog:         posts,
		Search:       searchIndex,
		Telemetry:    obs,
		Metrics:      promhttp.Handler(),
		Checks:       checks,
	}, log)
	if err != nil {
		zapLog.Fatal("failed to build web server", zap.Error(err))
	}

	httpServer := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           site.Handler(),
		ReadTimeout:       config.GetDuration(cfg.Server.ReadTimeout),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      config.GetDuration(cfg.Server.WriteTimeout),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.Server.Address))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return reloadOnHangup(gctx, posts, searchIndex, zapLog)
	})

	g.Go(func() error {
		<-gctx.Done()
		zapLog.Info("Shutdown signal received, draining requests...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		zapLog.Error("site server stopped with error", zap.Error(err))
		return
	}
	zapLog.Info("Site server stopped gracefully")
}

// initSearch connects to Elasticsearch and indexes the loaded posts. Search is
// optional: any failure leaves it disabled.
func initSearch(ctx context.Context, cfg *config.Config, posts *blog.Store, log logger.Logger, zapLog *zap.Logger) (*search.Index, *database.ElasticsearchClient) {
	var esClient *database.ElasticsearchClient
	err := retryWithBackoff(ctx, func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return esClient.Ping(ctx)
	}, 5, 2*time.Second, zapLog, "Elasticsearch connection")
	if err != nil {
		zapLog.Warn("elasticsearch unavailable, blog search disabled", zap.Error(err))
		return nil, nil
	}

	searchCfg := search.LoadConfig(cfg.Blog)
	if err := esClient.EnsureIndex(ctx, searchCfg.Index, search.IndexMapping); err != nil {
		zapLog.Warn("search index setup failed, blog search disabled", zap.Error(err))
		return nil, nil
	}

	idx := search.NewIndex(searchCfg, esClient.Client, log)
	if err := idx.IndexPosts(ctx, posts.GetAllPosts()); err != nil {
		zapLog.Warn("indexing blog posts failed", zap.Error(err))
	}
	zapLog.Info("Elasticsearch connected successfully")
	return idx, esClient
}

// reloadOnHangup re-reads the blog directory on SIGHUP.
func reloadOnHangup(ctx context.Context, posts *blog.Store, idx *search.Index, zapLog *zap.Logger) error {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-hup:
			if err := posts.Reload(); err != nil {
				zapLog.Error("blog reload failed", zap.Error(err))
				continue
			}
			if idx != nil {
				if err := idx.IndexPosts(ctx, posts.GetAllPosts()); err != nil {
					zapLog.Error("blog reindex failed", zap.Error(err))
				}
			}
		}
	}
}
