package cli

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"quiz-forge-service/internal/app"
	"quiz-forge-service/internal/auth"
	"quiz-forge-service/internal/config"
	"quiz-forge-service/internal/generator"
	"quiz-forge-service/internal/infra/memory"
	pgstore "quiz-forge-service/internal/infra/postgres"
	redisstore "quiz-forge-service/internal/infra/redis"
	"quiz-forge-service/internal/logger"
	transport "quiz-forge-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// stores is the persistence selected by config: Postgres when a URL is set,
// then Redis, then process memory.
type stores struct {
	quizzes app.QuizRepository
	users   app.UserRepository
	results app.ResultsCache
	feeds   app.FeedRepository
	listen  func(context.Context) error
	close   func()
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Postgres.URL != "" {
		if err := runMigrations(ctx, cfg, log); err != nil {
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

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.close()

	gen, err := generator.New(ctx, cfg.Generator, log)
	if err != nil {
		return err
	}

	quizzes := app.NewQuizService(st.quizzes, st.users, gen,
		app.WithGenerationTimeout(generator.Timeout(cfg.Generator)),
		app.WithResultsCache(st.results),
		app.WithFeeds(st.feeds),
		app.WithLogger(log.With("component", "quiz")),
	)
	accounts := app.NewAccountService(st.users, auth.NewTokenIssuer(jwtSecret(cfg, log), config.TTLDuration(cfg.Auth.TokenTTL, 24*time.Hour)))

	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           transport.NewRouter(transport.RouterConfig{Quizzes: quizzes, Accounts: accounts, Log: log}),
		ReadHeaderTimeout: 15 * time.Second,
	}

	if st.listen != nil {
		if err := st.listen(ctx); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting quiz service", "port", finalPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func openStores(ctx context.Context, cfg config.Config, log *logger.Logger) (*stores, error) {
	st := &stores{close: func() {}}
	resultsTTL := config.TTLDuration(cfg.Results.TTL, 5*time.Minute)

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			_ = redisClient.Close()
			return nil, err
		}
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		var err error
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			if redisClient != nil {
				_ = redisClient.Close()
			}
			return nil, err
		}
	}

	st.close = func() {
		if pool != nil {
			pool.Close()
		}
		if redisClient != nil {
			_ = redisClient.Close()
		}
	}

	switch {
	case pool != nil:
		st.quizzes = pgstore.NewQuizStore(pool)
		st.users = pgstore.NewUserStore(pool)
		log.Info("using postgres store")
	case redisClient != nil:
		st.quizzes = redisstore.NewQuizStore(redisClient, 0)
		st.users = redisstore.NewUserStore(redisClient)
		log.Info("using redis store")
	default:
		st.quizzes = memory.NewQuizStore()
		st.users = memory.NewUserStore()
		log.Warn("no database configured, quizzes are kept in memory")
	}

	loader := app.NewQuizResults(st.quizzes)
	if redisClient != nil {
		st.results = redisstore.NewResultsCache(redisClient, loader, resultsTTL)
		feeds := redisstore.NewFeedStore(redisClient, config.TTLDuration(cfg.Redis.TTL, 10*time.Minute), log.With("component", "feeds"))
		st.feeds = feeds
		st.listen = feeds.Listen
	} else {
		st.results = memory.NewResultsCache(loader, resultsTTL)
		st.feeds = memory.NewFeedStore()
	}
	return st, nil
}

// jwtSecret falls back to a random per-process secret, which invalidates
// tokens on restart.
func jwtSecret(cfg config.Config, log *logger.Logger) string {
	if s := strings.TrimSpace(cfg.Auth.JWTSecret); s != "" {
		return s
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	log.Warn("JWT_SECRET not set, using a random secret")
	return hex.EncodeToString(buf)
}
