package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"nutriplay-engine/internal/app"
	"nutriplay-engine/internal/config"
	"nutriplay-engine/internal/gateway"
	"nutriplay-engine/internal/infra/memory"
	pgloader "nutriplay-engine/internal/infra/postgres"
	infraredis "nutriplay-engine/internal/infra/redis"
	transport "nutriplay-engine/internal/transport/http"
)

// newRedisClient returns nil when no Redis address is configured.
func newRedisClient(cfg config.Config) *redis.Client {
	if cfg.Redis.Addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the game engine server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath, cmd.Flags())
			if err != nil {
				return err
			}
			if err := cfg.RequireBackend(); err != nil {
				return err
			}
			return runServer(cmd.Context(), cfg)
		},
	}
}

func runServer(ctx context.Context, cfg config.Config) error {
	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := cfg.Server.Port
	if finalPort == "" {
		finalPort = "8080"
	}

	redisClient := newRedisClient(cfg)
	if redisClient != nil {
		defer redisClient.Close()
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)
	stateTTL := config.TTLDuration(cfg.Redis.StateTTL, 7*24*time.Hour)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		var err error
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var loader memory.GameLoader
	if pool != nil {
		loader = pgloader.NewGameLoader(pool)
	} else {
		games, err := loadCatalog(cfg.Catalog.File)
		if err != nil {
			return err
		}
		loader = memory.NewStaticGameLoader(games)
	}

	catalogTTL := config.TTLDuration(cfg.Catalog.TTL, 10*time.Minute)
	var gameRepo app.GameRepository
	if redisClient != nil {
		gameRepo = infraredis.NewGameRepository(redisClient, loader, catalogTTL)
	} else {
		gameRepo = memory.NewGameRepository(loader, catalogTTL)
	}

	var store app.SessionRepository
	var stateCache app.StateCache
	if redisClient != nil {
		store = infraredis.NewSessionStore(redisClient, redisTTL)
		stateCache = infraredis.NewStateCache(redisClient, stateTTL)
	} else {
		store = memory.NewSessionStore()
	}

	client := gateway.NewClient(cfg.Backend.URL, gateway.WithTimeout(config.TTLDuration(cfg.Backend.Timeout, 10*time.Second)))
	service := app.NewGameServiceWithConfig(store, gameRepo, client, app.NewStateStore(stateCache), app.SessionConfig{
		SubmitTimeout: config.TTLDuration(cfg.Session.SubmitTimeout, 10*time.Second),
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws/play", transport.NewWSHandler(service).ServeWS)
	transport.NewAPIHandler(service).Register(mux)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting game engine on :%s (backend %s)", finalPort, cfg.Backend.URL)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
