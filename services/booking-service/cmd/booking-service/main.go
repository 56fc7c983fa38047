package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/md-rashed-zaman/slotbook/libs/auth"
	"github.com/md-rashed-zaman/slotbook/libs/config"
	"github.com/md-rashed-zaman/slotbook/libs/db"
	"github.com/md-rashed-zaman/slotbook/libs/grpcx"
	"github.com/md-rashed-zaman/slotbook/libs/httpx"
	"github.com/md-rashed-zaman/slotbook/libs/kafkax"
	otelx "github.com/md-rashed-zaman/slotbook/libs/otel"
	"github.com/md-rashed-zaman/slotbook/libs/runtime"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/consumer"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/display"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/handlers"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/inbox"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/scheduling"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/sessions"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/storage"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/migrations"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func main() {
	if err := config.Load(config.String("CONFIG_FILE", "")); err != nil {
		panic(err)
	}
	service := config.String("SERVICE_NAME", "booking-service")
	port, err := config.Port("PORT", "8083")
	if err != nil {
		panic(err)
	}
	grpcPort, err := config.Port("GRPC_PORT", "9083")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	maxConns, err := config.Int("DB_MAX_CONNS", 10)
	if err != nil {
		panic(err)
	}
	pool, err := db.Open(ctx, dbURL, db.Options{MaxConns: int32(maxConns)})
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	if config.Bool("RUN_MIGRATIONS", true) {
		if err := migrations.Up(ctx, pool); err != nil {
			logger.Error("migrations failed", "err", err)
			panic(err)
		}
	}

	sessionTTL, err := config.Duration("SESSION_TTL", time.Hour)
	if err != nil {
		panic(err)
	}
	var (
		rdb          *redis.Client
		sessionStore sessions.Store
	)
	if addr := strings.TrimSpace(config.String("REDIS_ADDR", "")); addr != "" {
		redisDB, err := config.Int("REDIS_DB", 0)
		if err != nil {
			panic(err)
		}
		rdb = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.String("REDIS_PASSWORD", ""),
			DB:       redisDB,
		})
		defer rdb.Close()
		sessionStore = sessions.NewRedisStore(rdb, sessionTTL)
	} else {
		logger.Warn("REDIS_ADDR not set; booking sessions are kept in memory")
		sessionStore = sessions.NewMemoryStore(sessionTTL, time.Now)
	}

	brokers := config.String("KAFKA_BROKERS", "")
	repo := storage.NewRepository(pool)
	outboxRepo := outbox.NewRepository()
	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   brokers,
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	if topic := strings.TrimSpace(config.String("KAFKA_CONSUME_TOPIC", consumer.TopicConferenceLinkCreated)); topic != "" && brokers != "" {
		linkConsumer := consumer.New(logger, inbox.NewRepository(pool), consumer.Config{
			Brokers: brokers,
			GroupID: config.String("KAFKA_GROUP_ID", "booking-service"),
			Topic:   topic,
		}, consumer.ConferenceLinks(repo, logger))
		go linkConsumer.Run(ctx)
	}

	cacheSize, err := config.Int("LOCATION_CACHE_SIZE", 64)
	if err != nil {
		panic(err)
	}
	projector := display.NewProjector(cacheSize)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	deps := handlers.Deps{
		Meetings:   repo,
		Events:     repo,
		Outbox:     outboxRepo,
		Scheduling: scheduling.NewProvider(repo, projector, logger),
		Projector:  projector,
		Validate:   handlers.NewValidator(),
		Metrics:    handlers.NewMetrics(reg),
		Logger:     logger,
	}
	bookingHandler := handlers.NewBookingHandler(deps)
	sessionHandler := handlers.NewSessionHandler(sessionStore, bookingHandler)
	hostHandler := handlers.NewHostHandler(repo, deps)

	checks := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
		{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
	}
	if rdb != nil {
		checks = append(checks, runtime.ReadyCheck{Name: "redis", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}
	mux := runtime.NewBaseMuxWithReady(checks...)
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	mux.HandleFunc("/api/v1/public/events", bookingHandler.Events)
	mux.HandleFunc("/api/v1/public/slots", bookingHandler.Slots)
	mux.HandleFunc("/api/v1/public/days", bookingHandler.Days)
	mux.HandleFunc("/api/v1/public/book", bookingHandler.Create)
	mux.HandleFunc("/api/v1/public/meetings/invite", bookingHandler.Invite)

	mux.HandleFunc("/api/v1/public/sessions", sessionHandler.Sessions)
	mux.HandleFunc("/api/v1/public/sessions/date", sessionHandler.Date)
	mux.HandleFunc("/api/v1/public/sessions/slot", sessionHandler.Slot)
	mux.HandleFunc("/api/v1/public/sessions/next", sessionHandler.Next)
	mux.HandleFunc("/api/v1/public/sessions/back", sessionHandler.Back)
	mux.HandleFunc("/api/v1/public/sessions/reset", sessionHandler.Reset)
	mux.HandleFunc("/api/v1/public/sessions/preferences", sessionHandler.Preferences)
	mux.HandleFunc("/api/v1/public/sessions/submit", sessionHandler.Submit)

	jwtSecret, err := config.RequiredString("JWT_SECRET")
	if err != nil {
		panic(err)
	}
	requireHost := auth.RequireSession(jwtSecret, nil)
	mux.Handle("/api/v1/availability", requireHost(http.HandlerFunc(hostHandler.Availability)))
	mux.Handle("/api/v1/events", requireHost(http.HandlerFunc(hostHandler.Events)))
	mux.Handle("/api/v1/meetings", requireHost(http.HandlerFunc(hostHandler.List)))
	mux.Handle("/api/v1/meetings/cancel", requireHost(http.HandlerFunc(hostHandler.Cancel)))

	cors, err := httpx.CORSPolicyFromConfig()
	if err != nil {
		panic(err)
	}
	requestTimeout, err := config.Duration("HTTP_REQUEST_TIMEOUT", 10*time.Second)
	if err != nil {
		panic(err)
	}
	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithRecover(logger),
		httpx.WithAccessLog(logger),
		httpx.NewMetrics(reg, "slotbook").Middleware(),
		httpx.WithCORS(cors),
		httpx.WithBodyLimit(1<<20),
		httpx.WithTimeout(requestTimeout),
		rateLimit(rdb, logger),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "booking")

	grpcSrv, grpcHealth := grpcx.NewServer(logger)
	go serveGRPC(ctx, logger, grpcSrv, grpcHealth, grpcPort)

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	if err := runtime.Serve(ctx, logger, srv, 10*time.Second); err != nil {
		logger.Error("http server error", "err", err)
	}
}

// rateLimit shares the budget across replicas when Redis is configured.
func rateLimit(rdb *redis.Client, logger *slog.Logger) httpx.Middleware {
	limit, err := config.Int("RATE_LIMIT_PER_MINUTE", 120)
	if err != nil {
		panic(err)
	}
	if rdb != nil {
		return httpx.NewRedisRateLimiter(rdb, limit, time.Minute, "slotbook:rl").Middleware(logger, config.Bool("RATE_LIMIT_FAIL_OPEN", true))
	}
	return httpx.NewRateLimiter(limit, time.Minute).Middleware()
}

func serveGRPC(ctx context.Context, logger *slog.Logger, srv *grpc.Server, hs *health.Server, port string) {
	lis, err := net.Listen("tcp", ":"+port)
	if err != nil {
		logger.Error("grpc listen failed", "err", err, "port", port)
		return
	}
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	go func() {
		<-ctx.Done()
		hs.Shutdown()
		srv.GracefulStop()
	}()
	logger.Info("grpc health server starting", "addr", lis.Addr().String())
	if err := srv.Serve(lis); err != nil {
		logger.Error("grpc server error", "err", err)
	}
}
