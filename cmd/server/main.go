package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"quickbid/internal/audit"
	"quickbid/internal/auth"
	"quickbid/internal/cache"
	"quickbid/internal/commission"
	"quickbid/internal/config"
	cronrunner "quickbid/internal/cron"
	"quickbid/internal/db"
	"quickbid/internal/escrow"
	"quickbid/internal/handler"
	"quickbid/internal/keylock"
	"quickbid/internal/logger"
	"quickbid/internal/ratelimit"
	"quickbid/internal/realtime"
	gormrepository "quickbid/internal/repository/gorm"
	"quickbid/internal/risk"
	"quickbid/internal/service"

	_ "quickbid/docs"
)

func main() {
	cfgPath := os.Getenv("QB_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("QB_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log, "quickbid")
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB, logger)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisClient := initRedis(ctx, cfg.Redis, logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	store := gormrepository.New(dbConn.Gorm)
	locks := keylock.New(keylock.DefaultStripes)
	cacheStore := newCacheStore(cfg.Cache, redisClient, logger)

	settingsSvc := &service.SystemSettingsService{Repo: store}
	if err := settingsSvc.EnsureDefaultSwitches(ctx); err != nil {
		logger.Warn("init default system switches failed", zap.Error(err))
	}

	hub := realtime.NewHub(logger.Named("realtime"))
	var relay *realtime.RedisRelay
	if redisClient != nil && strings.TrimSpace(cfg.Realtime.RedisChannel) != "" {
		relay = &realtime.RedisRelay{Client: redisClient, Channel: cfg.Realtime.RedisChannel, Logger: logger}
		hub.Relay = relay
	}

	riskGate := &risk.Gate{Repo: store, Cache: cacheStore, TTL: cfg.Risk.CacheTTL, Logger: logger}
	commissionDefaults := commission.Settings{
		BuyerCommissionPercent:  decimal.NewFromFloat(cfg.Commission.DefaultBuyerPercent),
		SellerCommissionPercent: decimal.NewFromFloat(cfg.Commission.DefaultSellerPercent),
		PlatformFlatFeeCents:    cfg.Commission.DefaultPlatformFlatCt,
	}
	commissionEngine := &commission.Engine{
		Repo:     store,
		Cache:    cacheStore,
		TTL:      cfg.Commission.CacheTTL,
		Defaults: &commissionDefaults,
		Logger:   logger,
	}

	statsSvc := &service.LiveStatsService{Repo: store}
	validator := &service.AuctionValidator{Repo: store}
	bidSvc := &service.BidService{
		Repo:            store,
		Validator:       validator,
		Risk:            riskGate,
		Stats:           statsSvc,
		Publisher:       hub,
		Locks:           locks,
		Flags:           settingsSvc,
		Logger:          logger,
		SoftCloseWindow: cfg.Bidding.SoftCloseWindow,
		Extension:       cfg.Bidding.Extension,
	}
	ledger := &service.SettlementLedger{Repo: store, Currency: cfg.Settlement.Currency, Logger: logger}
	coordinator := &service.SettlementCoordinator{
		Repo:       store,
		Commission: commissionEngine,
		Escrow:     &escrow.Client{BaseURL: cfg.Escrow.BaseURL, Token: cfg.Escrow.Token, Timeout: cfg.Escrow.Timeout},
		Ledger:     ledger,
		Locks:      locks,
		Logger:     logger,
	}
	payoutSvc := &service.PayoutService{Repo: store, Ledger: ledger, Logger: logger}
	finalizer := &service.AuctionFinalizer{
		Repo:      store,
		Stats:     statsSvc,
		Publisher: hub,
		Locks:     locks,
		Flags:     settingsSvc,
		Logger:    logger,
	}
	janitor := &service.IdempotencyJanitor{Repo: store, TTL: cfg.Idempotency.TTL, Flags: settingsSvc, Logger: logger}

	authn := &auth.Authenticator{
		JWT:   auth.JWT{Secret: []byte(cfg.Auth.JWTSecret), Issuer: cfg.Auth.Issuer},
		Abort: handler.Abort,
	}
	if cfg.Auth.Disabled {
		if !strings.EqualFold(cfg.App.Env, "dev") {
			logger.Fatal("auth.disabled is only allowed in dev")
		}
		logger.Warn("auth disabled: trusting X-User-Id / X-User-Role headers")
		authn.Insecure = true
	} else if cfg.Auth.JWTSecret == "" {
		logger.Fatal("auth.jwt_secret is required")
	}

	var limiter ratelimit.Limiter
	if redisClient != nil {
		limiter = &ratelimit.RedisLimiter{
			Client: redisClient,
			Prefix: cfg.Cache.KeyPrefix,
			Limit:  cfg.RateLimit.PlaceBidLimit,
			Window: cfg.RateLimit.PlaceBidWindow,
		}
	} else {
		limiter = ratelimit.NewMemoryLimiter(cfg.RateLimit.PlaceBidLimit, cfg.RateLimit.PlaceBidWindow, cfg.Cache.MemoryLRU)
	}

	auditClient := initAuditClient(cfg.Audit, logger)

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware(cfg.Server.CORSOrigins))
	engine.Use(requestLogger(logger))
	engine.Use(audit.Middleware(auditClient, auditActor, logger))

	(&handler.HealthHandler{DB: dbConn.Gorm, Redis: redisClient}).Register(engine)
	(&handler.BidsHandler{
		Bids:    bidSvc,
		Stats:   statsSvc,
		Chain:   &service.BidLedgerService{Repo: store},
		Auth:    authn,
		Limiter: limiter,
		Logger:  logger,
	}).Register(engine)
	(&handler.SettlementHandler{Coordinator: coordinator, Payouts: payoutSvc, Auth: authn}).Register(engine)
	(&handler.RiskHandler{Gate: riskGate, Auth: authn}).Register(engine)
	(&handler.CommissionHandler{Engine: commissionEngine, Auth: authn}).Register(engine)
	(&handler.SystemSettingsHandler{Settings: settingsSvc, Auth: authn}).Register(engine)
	(&handler.RealtimeHandler{
		Hub:     hub,
		Auth:    authn,
		Options: realtime.ServeOptions{ReadLimit: cfg.Realtime.ReadLimit, OriginPatterns: originPatterns(cfg.Server.CORSOrigins)},
		Logger:  logger,
	}).Register(engine)

	if cfg.Server.EnableSwagger {
		engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	baseCtx := ctx
	if auditClient != nil {
		baseCtx = audit.WithClient(ctx, auditClient)
	}

	cronRunner := cronrunner.New(logger, baseCtx)
	if cfg.Cron.Enabled {
		if _, err := cronRunner.Add("auction_finalizer", cfg.Cron.AuctionClose, time.Minute, finalizer.RunOnceIfEnabled); err != nil {
			logger.Warn("cron register auction finalizer failed", zap.Error(err))
		}
		if _, err := cronRunner.Add("idempotency_janitor", cfg.Cron.IdempotencyCleanup, 5*time.Minute, janitor.RunOnceIfEnabled); err != nil {
			logger.Warn("cron register idempotency janitor failed", zap.Error(err))
		}
	}
	cronRunner.Start()
	defer cronRunner.Stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if relay != nil {
		g.Go(func() error {
			err := relay.Run(gctx, hub.Deliver)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("realtime relay stopped", zap.Error(err))
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown requested")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", zap.Error(err))
	}
}

func initRedis(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) *redis.Client {
	if strings.TrimSpace(cfg.Addr) == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unreachable (memory cache and local fan-out only)", zap.Error(err))
		_ = client.Close()
		return nil
	}
	logger.Info("redis connected", zap.String("addr", cfg.Addr))
	return client
}

func newCacheStore(cfg config.CacheConfig, client *redis.Client, logger *zap.Logger) cache.Store {
	var base cache.Store
	if strings.EqualFold(cfg.Backend, "redis") && client != nil {
		base = cache.NewRedisStore(client)
	} else {
		if strings.EqualFold(cfg.Backend, "redis") {
			logger.Warn("cache backend redis requested without redis; using memory")
		}
		base = cache.NewMemoryStore(cfg.MemoryLRU)
	}
	return cache.Prefixed{Prefix: cfg.KeyPrefix, Store: base}
}

func initAuditClient(cfg config.AuditConfig, logger *zap.Logger) *audit.Client {
	base := strings.TrimSpace(cfg.BaseURL)
	apiKey := strings.TrimSpace(cfg.APIKey)
	if base == "" || apiKey == "" {
		return nil
	}
	logger.Info("audit log enabled", zap.String("base_url", base))
	return &audit.Client{BaseURL: base, APIKey: apiKey, Agent: cfg.Agent}
}

func auditActor(c *gin.Context) (string, string) {
	cl, ok := auth.ClaimsFrom(c)
	if !ok {
		return "", ""
	}
	return cl.UserID(), cl.Role
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", status),
			zap.Duration("took", time.Since(start)),
		}
		if errs := c.Errors.ByType(gin.ErrorTypeAny); len(errs) > 0 {
			fields = append(fields, zap.String("errors", errs.String()))
		}
		if status >= http.StatusInternalServerError {
			logger.Warn("http request failed", fields...)
			return
		}
		logger.Debug("http request", fields...)
	}
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	allowAll := len(origins) == 0
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = struct{}{}
	}
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if allowAll {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		} else if _, ok := allowed[origin]; ok {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Add("Vary", "Origin")
		}
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization,Idempotency-Key")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Retry-After,Idempotent-Replayed")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// originPatterns turns CORS origins into websocket host patterns.
func originPatterns(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		o = strings.TrimSpace(o)
		o = strings.TrimPrefix(o, "https://")
		o = strings.TrimPrefix(o, "http://")
		if o != "" {
			out = append(out, o)
		}
	}
	return out
}
