package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vocab-battle/internal/app"
	"vocab-battle/internal/config"
	"vocab-battle/internal/domain"
	"vocab-battle/internal/infra/memory"
	pgstore "vocab-battle/internal/infra/postgres"
	redisstore "vocab-battle/internal/infra/redis"
	"vocab-battle/internal/logger"
	"vocab-battle/internal/metrics"
	transport "vocab-battle/internal/transport/http"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the battle server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := logger.New("vocab-battle", cfg.Log.Level)
	defaults, err := cfg.ValidatedMatchDefaults()
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 2*time.Hour)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var loader memory.RosterLoader = memory.NewStaticRosterLoader(sampleClasses())
	if pool != nil {
		loader = pgstore.NewRosterLoader(pool)
	}

	rosterTTL := config.TTLDuration(cfg.Roster.TTL, 10*time.Minute)
	var rosters app.RosterRepository
	if redisClient != nil {
		rosters = redisstore.NewRosterRepository(redisClient, loader, rosterTTL)
	} else {
		rosters = memory.NewRosterRepository(loader, rosterTTL)
	}

	var store app.SessionRepository
	if redisClient != nil {
		store = redisstore.NewSessionStore(redisClient, redisTTL)
	} else {
		store = memory.NewSessionStore()
	}

	var sinks []app.AnswerSink
	if cfg.Postgres.URL != "" {
		db := openBun(cfg.Postgres.URL)
		defer db.Close()
		sinks = append(sinks, pgstore.NewAnswerStore(db))
	}
	if redisClient != nil {
		sinks = append(sinks, redisstore.NewAnswerLog(redisClient, redisTTL))
	}
	if len(sinks) == 0 {
		sinks = append(sinks, memory.NewAnswerSink())
	}

	retry := app.DefaultRetryPolicy()
	if cfg.Persistence.MaxRetries > 0 {
		retry.MaxRetries = cfg.Persistence.MaxRetries
	}
	retry.InitialInterval = config.TTLDuration(cfg.Persistence.InitialInterval, retry.InitialInterval)
	retry.MaxInterval = config.TTLDuration(cfg.Persistence.MaxInterval, retry.MaxInterval)

	opts := []app.ServiceOption{
		app.WithAnswerSinks(sinks...),
		app.WithRetryPolicy(retry),
		app.WithLogger(log),
		app.WithMetrics(metrics.New(prometheus.DefaultRegisterer)),
		app.WithDefaults(defaults),
	}
	if redisClient != nil {
		opts = append(opts, app.WithAnnouncer(redisstore.NewAnnouncer(redisClient)))
	}
	service := app.NewBattleService(store, rosters, opts...)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ws", transport.NewWSHandler(service, log).ServeWS)
	transport.NewRESTHandler(service, log).Register(mux)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.WithField("port", finalPort).Info("starting battle service")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("failed to start server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server...")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = server.Shutdown(shutdownCtx)
	// websocket handlers outlive server.Shutdown; stop them from queueing writes
	// and let pending ones finish before the stores close
	service.Shutdown()
	return err
}

// sampleClasses seeds a demo roster when no database is configured.
func sampleClasses() map[string][]domain.Student {
	return map[string][]domain.Student{
		"demo": {
			{ID: "demo-1", Name: "Ada", Avatar: "owl", Class: "demo"},
			{ID: "demo-2", Name: "Ben", Avatar: "fox", Class: "demo"},
			{ID: "demo-3", Name: "Cleo", Avatar: "cat", Class: "demo"},
		},
	}
}
