package internal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/IBM/pgxpoolprometheus"
	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"

	"github.com/habitpet/caloriecam/internal/analyzer"
	"github.com/habitpet/caloriecam/internal/capture"
	"github.com/habitpet/caloriecam/internal/config"
	"github.com/habitpet/caloriecam/internal/db"
	"github.com/habitpet/caloriecam/internal/estimation"
	"github.com/habitpet/caloriecam/internal/meallog"
	meallogmcp "github.com/habitpet/caloriecam/internal/meallog/mcp"
	"github.com/habitpet/caloriecam/internal/middleware"
	"github.com/habitpet/caloriecam/internal/misc"
	"github.com/habitpet/caloriecam/internal/nutrition"
	"github.com/habitpet/caloriecam/internal/telemetry/metrics"
	"github.com/habitpet/caloriecam/internal/telemetry/tracing"
)

type Server struct {
	httpServer        *http.Server
	metricsHttpServer *http.Server

	config      *config.Config
	dbPool      *pgxpool.Pool
	redisClient *redis.Client

	captureHandler *capture.Handler
	mealsHandler   *meallog.Handler
	miscHandler    *misc.Handler
	mcpServer      *mcp.Server
	rateLimiter    middleware.RequestRateLimiter
	// nil disables the token check
	authMiddleware *middleware.AuthMiddlewareHandler

	// metrics
	metricsManager *metrics.Manager
	promRegistry   *prometheus.Registry
	otelShutdown   func()
}

type NewServerParams struct {
	Config                  *config.Config
	VersionInfo             string
	AnalyzerAPIKey          string
	GeminiAPIKey            string
	AppSecretHash           string
	RedisPassword           string
	PostgresPassword        string
	HoneycombTracingEnabled bool
}

func NewServer(
	ctx context.Context,
	params NewServerParams,
) (*Server, error) {
	cfg := params.Config

	dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
		DBHost:         cfg.PostgresHost,
		DBPort:         cfg.PostgresPort,
		DBName:         cfg.PostgresDBName,
		DBPassword:     params.PostgresPassword,
		TracingEnabled: params.HoneycombTracingEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("new db pool: %w", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		log.Warnf("failed to ping db: %s", err)
	} else if err := db.EnsureSchema(ctx, dbPool); err != nil {
		log.Errorf("ensure db schema: %s", err)
	}

	pgxpoolCollector := pgxpoolprometheus.NewCollector(
		dbPool,
		map[string]string{"db_name": cfg.PostgresDBName},
	)
	promRegistry := metrics.SetupPrometheus(pgxpoolCollector)
	metricsManager := metrics.NewManager("caloriecam", "main", promRegistry)
	metricsManager.GaugeLifeSignal.Set(0)

	rdb := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(cfg.RedisHost, cfg.RedisPort),
		Password: params.RedisPassword,
		DB:       0, // use default DB
	})

	rdbStatus := rdb.Ping(ctx)
	if err := rdbStatus.Err(); err != nil {
		log.Errorf("--> failed to ping redis: %s", err)
	} else {
		log.Debugf("redis ping: %s", rdbStatus.Val())
	}

	// use honeycomb distro to setup OpenTelemetry SDK
	otelShutdown, err := tracing.HoneycombSetup(params.HoneycombTracingEnabled, "caloriecam-backend", rdb)
	if err != nil {
		return nil, err
	}

	estimationConfig, err := estimation.ConfigFor(cfg.CalorieProfile)
	if err != nil {
		return nil, fmt.Errorf("calorie profile: %w", err)
	}

	foodAnalyzer, err := newAnalyzer(ctx, cfg, params.AnalyzerAPIKey, params.GeminiAPIKey)
	if err != nil {
		return nil, fmt.Errorf("setup analyzer: %w", err)
	}

	priors, err := newPriorsSource(ctx, cfg, dbPool, rdb)
	if err != nil {
		return nil, fmt.Errorf("setup priors: %w", err)
	}

	coordinatorParams := capture.CoordinatorParams{
		Priors:     priors,
		Sessions:   capture.NewRedisSessionStore(rdb),
		Config:     estimationConfig,
		SessionTTL: time.Duration(cfg.VoISessionTTLMinutes) * time.Minute,
		Metrics:    metricsManager,
	}
	// a typed nil would pass the nil check in the coordinator
	if foodAnalyzer != nil {
		coordinatorParams.Analyzer = foodAnalyzer
	}
	coordinator := capture.NewCoordinator(coordinatorParams)

	mealsService := meallog.NewService(meallog.NewRepo(dbPool), metricsManager, cfg.DailyCalorieGoal)

	s := &Server{
		config:      cfg,
		dbPool:      dbPool,
		redisClient: rdb,

		captureHandler: capture.NewHandler(coordinator, int64(cfg.EstimateMaxBodyMB)<<20),
		mealsHandler:   meallog.NewHandler(mealsService),
		miscHandler: misc.NewHandler(params.VersionInfo, map[string]misc.Pinger{
			"postgres": dbPool,
			"redis": misc.PingerFunc(func(ctx context.Context) error {
				return rdb.Ping(ctx).Err()
			}),
		}),
		mcpServer:   meallogmcp.NewServer(dbPool, mealsService),
		rateLimiter: redis_rate.NewLimiter(rdb),

		// telemetry
		metricsManager: metricsManager,
		promRegistry:   promRegistry,
		otelShutdown:   otelShutdown,
	}

	if params.AppSecretHash != "" {
		s.authMiddleware = middleware.NewAuthMiddlewareHandler(
			middleware.NewAppTokenChecker(params.AppSecretHash),
		)
	} else {
		log.Warnln("app secret hash not set, token check disabled")
	}

	return s, nil
}

// newAnalyzer returns nil when no analyzer backend is configured.
func newAnalyzer(ctx context.Context, cfg *config.Config, apiKey, geminiAPIKey string) (*analyzer.CachedAnalyzer, error) {
	var next analyzer.Analyzer
	switch cfg.AnalyzerBackend {
	case config.AnalyzerBackendHTTP:
		next = analyzer.NewHTTPClient(analyzer.HTTPClientParams{
			BaseURL:           cfg.AnalyzerBaseURL,
			APIKey:            apiKey,
			Timeout:           time.Duration(cfg.AnalyzerTimeoutSeconds) * time.Second,
			RequestsPerSecond: cfg.AnalyzerRequestsPerSecond,
		})
	case config.AnalyzerBackendGemini:
		gemini, err := analyzer.NewGeminiClient(ctx, geminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, err
		}
		next = gemini
	default:
		log.Infoln("no analyzer backend, running geometry only")
		return nil, nil
	}

	log.Infof("analyzer backend: %s", cfg.AnalyzerBackend)
	return analyzer.NewCachedAnalyzer(next, cfg.AnalyzerCacheSizeMB*1024*1024, analyzer.DefaultCacheTTL), nil
}

// newPriorsSource chains the postgres table over the seed file, with a
// redis read-through cache in front.
func newPriorsSource(ctx context.Context, cfg *config.Config, dbPool *pgxpool.Pool, rdb *redis.Client) (*nutrition.RedisCache, error) {
	entries, err := nutrition.LoadSeedEntries(cfg.NutritionSeedPath)
	if err != nil {
		return nil, err
	}

	var seed *nutrition.SeedDB
	if cfg.NutritionSeedPath == "" {
		seed, err = nutrition.NewDefaultSeedDB()
	} else {
		seed, err = nutrition.NewSeedDBFromFile(cfg.NutritionSeedPath)
	}
	if err != nil {
		return nil, err
	}

	repo := nutrition.NewRepo(dbPool)
	if imported, err := repo.ImportSeed(ctx, entries); err != nil {
		log.Warnf("import priors seed: %s", err)
	} else {
		log.Debugf("imported %d priors seed rows", imported)
	}

	return nutrition.NewRedisCache(
		rdb,
		nutrition.NewChain(repo, seed),
		time.Duration(cfg.PriorsCacheTTLHours)*time.Hour,
	), nil
}

func (s *Server) routerSetup() *mux.Router {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware("caloriecam-router"))

	s.miscHandler.SetupRoutes(r)

	estimateHandler := middleware.RateLimit(
		s.rateLimiter,
		"capture-estimate",
		s.config.EstimateRateLimitAllowedPerMin,
		s.metricsManager,
	)(http.HandlerFunc(s.captureHandler.HandleEstimate))
	r.Handle("/capture/estimate", estimateHandler).Methods("POST", "OPTIONS").Name("capture-estimate")
	r.HandleFunc("/capture/paths", s.captureHandler.HandlePaths).Methods("GET", "OPTIONS").Name("capture-paths")
	r.HandleFunc("/capture/{id}/voi", s.captureHandler.HandleVoIAnswer).Methods("POST", "OPTIONS").Name("capture-voi")
	r.HandleFunc("/capture/{id}", s.captureHandler.HandleGetPending).Methods("GET", "OPTIONS").Name("capture-pending")
	r.HandleFunc("/capture/{id}", s.captureHandler.HandleCancel).Methods("DELETE", "OPTIONS").Name("capture-cancel")

	r.HandleFunc("/meals", s.mealsHandler.HandleLogManual).Methods("POST", "OPTIONS").Name("new-meal")
	r.HandleFunc("/meals/camera", s.mealsHandler.HandleLogCamera).Methods("POST", "OPTIONS").Name("new-camera-meal")
	r.HandleFunc("/meals/day/{date}", s.mealsHandler.HandleMealsForDay).Methods("GET", "OPTIONS").Name("meals-for-day")
	r.HandleFunc("/meals/summary/{date}", s.mealsHandler.HandleDailySummary).Methods("GET", "OPTIONS").Name("daily-summary")
	r.HandleFunc("/meals/{id}", s.mealsHandler.HandleGet).Methods("GET", "OPTIONS").Name("get-meal")
	r.HandleFunc("/meals/{id}", s.mealsHandler.HandleDelete).Methods("DELETE", "OPTIONS").Name("delete-meal")

	if s.mcpServer != nil {
		mcpHandler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
			return s.mcpServer
		}, nil)
		r.PathPrefix("/mcp").Handler(mcpHandler).Name("mcp")
	}

	// all the rest - unhandled paths
	r.HandleFunc("/{unknown}", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}).Methods("GET", "POST", "PUT", "DELETE", "OPTIONS").Name("unknown")

	r.Use(middleware.PanicRecovery(s.metricsManager))
	r.Use(middleware.LogRequest())
	r.Use(middleware.RequestMetrics(s.metricsManager))
	r.Use(middleware.Cors())
	if s.authMiddleware != nil {
		r.Use(s.authMiddleware.AuthCheck())
	}
	r.Use(middleware.DrainAndCloseRequest())

	return r
}

func (s *Server) Serve(host string, port int) {
	router := s.routerSetup()

	ipAndPort := net.JoinHostPort(host, strconv.Itoa(port))
	s.httpServer = &http.Server{
		Handler:      router,
		Addr:         ipAndPort,
		WriteTimeout: time.Minute,
		ReadTimeout:  time.Minute,
		ConnState:    s.connStateMetrics,
	}

	metricsRouter := mux.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.InstrumentMetricHandler(
		s.promRegistry,
		promhttp.HandlerFor(s.promRegistry, promhttp.HandlerOpts{}),
	))
	metricsAddr := net.JoinHostPort(s.config.PrometheusMetricsHost, s.config.PrometheusMetricsPort)
	s.metricsHttpServer = &http.Server{
		Addr:              metricsAddr,
		Handler:           metricsRouter,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof(" > server listening on: [%s]", ipAndPort)
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("main service, listen and serve: %s", err)
		}
	}()

	go func() {
		log.Debugf(" > metrics listening on: [%s]", metricsAddr)
		err := s.metricsHttpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("metrics service, listen and serve: %s", err)
		}
	}()

	s.metricsManager.GaugeLifeSignal.Set(1)
}

func (s *Server) GracefulShutdown() {
	log.Debug("graceful shutdown initiated ...")

	s.metricsManager.GaugeLifeSignal.Set(0)

	s.otelShutdown()
	log.Trace("otel shut down ...")

	maxWaitDuration := time.Second * 15
	ctx, timeoutCancel := context.WithTimeout(context.Background(), maxWaitDuration)
	defer timeoutCancel()

	// stop taking requests before the stores go away
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			log.Error(" >>> failed to gracefully shutdown http server")
		}
		log.Warnln("server shut down")
	}

	if s.metricsHttpServer != nil {
		if err := s.metricsHttpServer.Shutdown(ctx); err != nil {
			log.Error(" >>> failed to gracefully shutdown metrics http server")
		}
		log.Warnln("metrics server shut down")
	}

	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			log.Errorf("failed to close redis client conn: %s", err)
		}
	}

	if s.dbPool != nil {
		log.Debugln("closing db pool ...")
		s.dbPool.Close() // blocking operation
		log.Debugln("db pool closed")
	}

	if ok := sentry.Flush(5 * time.Second); ok {
		log.Debugf("sentry flush ok: %t", ok)
	}
}

func (s *Server) connStateMetrics(_ net.Conn, state http.ConnState) {
	switch state {
	case http.StateNew:
		s.metricsManager.GaugeRequests.Add(1)
	case http.StateClosed:
		s.metricsManager.GaugeRequests.Add(-1)
	default:
		// do nothing
	}
}
