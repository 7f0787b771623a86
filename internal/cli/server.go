package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"quiz-hosting-service/internal/app"
	"quiz-hosting-service/internal/config"
	"quiz-hosting-service/internal/infra/memory"
	"quiz-hosting-service/internal/infra/postgres"
	redisguard "quiz-hosting-service/internal/infra/redis"
	"quiz-hosting-service/internal/translate"
	transport "quiz-hosting-service/internal/transport/http"
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

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := newLogger(cfg.Log.Level)

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
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

	var (
		quizzes  app.QuizRepository
		attempts app.AttemptRepository
	)
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		quizzes = postgres.NewQuizStore(pool)
		attempts = postgres.NewAttemptStore(pool)
	} else {
		log.Warn("postgres url not configured, using in-memory storage")
		memQuizzes := memory.NewQuizRepository()
		quizzes = memQuizzes
		attempts = memory.NewAttemptRepository(memQuizzes)
	}

	guardTTL := config.TTLDuration(cfg.Redis.TTL, 24*time.Hour)
	var guard app.SubmissionGuard
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		guard = redisguard.NewSubmissionGuard(redisClient, guardTTL)
	} else {
		guard = memory.NewSubmissionGuard(guardTTL)
	}

	translator := newTranslator(ctx, cfg, log)
	service := app.NewQuizService(quizzes, attempts, translator, guard, app.WithLogger(log))
	handler := transport.NewHandler(service, log)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      handler.Routes(cfg.Server.AllowedOrigins),
		ReadTimeout:  config.TTLDuration(cfg.Server.ReadTimeout, 15*time.Second),
		WriteTimeout: config.TTLDuration(cfg.Server.WriteTimeout, 30*time.Second),
	}

	go func() {
		log.WithField("port", finalPort).Info("starting quiz service")
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
	return server.Shutdown(shutdownCtx)
}

// newTranslator falls back to a pass-through translator when AWS is not configured.
func newTranslator(ctx context.Context, cfg config.Config, log logrus.FieldLogger) *translate.Translator {
	opts := []translate.Option{
		translate.WithTimeout(config.TTLDuration(cfg.Translation.Timeout, 5*time.Second)),
		translate.WithLogger(log),
	}
	if cfg.Translation.Concurrency > 0 {
		opts = append(opts, translate.WithConcurrency(cfg.Translation.Concurrency))
	}
	if cfg.Translation.Region == "" {
		log.Warn("translation region not configured, quiz text is served untranslated")
		return translate.NewTranslator(nil, opts...)
	}

	provider, err := translate.NewAWSProvider(ctx, translate.AWSConfig{
		Region:    cfg.Translation.Region,
		AccessKey: cfg.Translation.AccessKey,
		SecretKey: cfg.Translation.SecretKey,
	})
	if err != nil {
		log.WithError(err).Warn("translation provider unavailable, quiz text is served untranslated")
		return translate.NewTranslator(nil, opts...)
	}
	return translate.NewTranslator(provider, opts...)
}
