package integration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
	"quiz-hosting-service/internal/app"
	"quiz-hosting-service/internal/domain"
	"quiz-hosting-service/internal/infra/postgres"
	pgmigrations "quiz-hosting-service/internal/infra/postgres/migrations"
	infraredis "quiz-hosting-service/internal/infra/redis"
)

func TestSubmitAndStatsEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	migrateSchema(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	attempts := postgres.NewAttemptStore(pool)
	service := app.NewQuizService(
		postgres.NewQuizStore(pool),
		attempts,
		nil,
		infraredis.NewSubmissionGuard(redisClient, 5*time.Minute),
	)

	quizID, err := service.CreateQuiz(ctx, sampleQuiz())
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	quiz, err := service.GetQuiz(ctx, quizID, "en")
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if len(quiz.Questions) != 2 || quiz.Questions[0].Text != "What is 2 + 2?" || len(quiz.Questions[0].Options) != 3 {
		t.Fatalf("unexpected quiz layout: %+v", quiz)
	}

	right := answers(quiz, "4", "9")
	half := answers(quiz, "3", "9")

	result, err := service.SubmitAttemptOnce(ctx, "e2e-1", quizID, right)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result != (domain.AttemptResult{Score: 2, Total: 2, Percentage: 100}) {
		t.Fatalf("unexpected result %+v", result)
	}
	if replay, err := service.SubmitAttemptOnce(ctx, "e2e-1", quizID, right); err != nil || replay != result {
		t.Fatalf("expected replay %+v, got %+v err=%v", result, replay, err)
	}
	if _, err := service.SubmitAttemptOnce(ctx, "e2e-1", quizID, half); !errors.Is(err, domain.ErrIdempotencyKeyReused) {
		t.Fatalf("expected key reuse error, got %v", err)
	}
	if _, err := service.SubmitAttempt(ctx, quizID, half); err != nil {
		t.Fatalf("submit half: %v", err)
	}

	stats, err := service.GetQuizStats(ctx, quizID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalAttempts != 2 || stats.AverageScore != 75 || stats.PassRate != 50 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if stats.MostCommonWrongAnswers[0] != "3" || stats.QuestionSuccessRates[1] != 100 {
		t.Fatalf("unexpected per-question stats %+v", stats)
	}
}

func TestAttemptTransactionRollsBack(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	migrateSchema(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	quizzes := postgres.NewQuizStore(pool)
	attempts := postgres.NewAttemptStore(pool)
	quizA, _ := quizzes.CreateQuiz(ctx, sampleQuiz())
	quizB, _ := quizzes.CreateQuiz(ctx, sampleQuiz())
	foreign, _ := quizzes.GetQuiz(ctx, quizB)

	err = attempts.RunInTx(ctx, func(ctx context.Context, tx app.AttemptTx) error {
		if _, err := tx.CreateAttempt(ctx, quizA); err != nil {
			return err
		}
		_, err := tx.CorrectOption(ctx, quizA, foreign.Questions[0].ID)
		return err
	})
	if !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected cross-quiz lookup to fail, got %v", err)
	}

	list, err := attempts.ListAttempts(ctx, quizA)
	if err != nil {
		t.Fatalf("list attempts: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected rollback to discard the placeholder attempt, got %+v", list)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func migrateSchema(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func sampleQuiz() domain.NewQuiz {
	return domain.NewQuiz{
		Title: "Arithmetic",
		Questions: []domain.NewQuestion{
			{
				Text: "What is 2 + 2?",
				Options: []domain.NewOption{
					{Text: "3"},
					{Text: "4", IsCorrect: true},
					{Text: "5"},
				},
			},
			{
				Text: "What is 3 * 3?",
				Options: []domain.NewOption{
					{Text: "9", IsCorrect: true},
					{Text: "6"},
				},
			},
		},
	}
}

func answers(quiz domain.Quiz, texts ...string) []domain.AnswerSubmission {
	out := make([]domain.AnswerSubmission, 0, len(texts))
	for i, text := range texts {
		for _, opt := range quiz.Questions[i].Options {
			if opt.Text == text {
				out = append(out, domain.AnswerSubmission{QuestionID: quiz.Questions[i].ID, SelectedOptionID: opt.ID})
			}
		}
	}
	return out
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(opts), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
