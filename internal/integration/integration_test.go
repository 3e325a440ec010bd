package integration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"vocab-battle/internal/app"
	"vocab-battle/internal/domain"
	pgstore "vocab-battle/internal/infra/postgres"
	pgmigrations "vocab-battle/internal/infra/postgres/migrations"
	infraredis "vocab-battle/internal/infra/redis"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

func TestBattleEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	db := openDB(pgURL)
	defer db.Close()
	seedStudents(t, ctx, db)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	rosters := infraredis.NewRosterRepository(redisClient, pgstore.NewRosterLoader(pool), 5*time.Minute)
	sessions := infraredis.NewSessionStore(redisClient, 5*time.Minute)
	store := pgstore.NewAnswerStore(db)
	answerLog := infraredis.NewAnswerLog(redisClient, 5*time.Minute)
	service := app.NewBattleService(sessions, rosters,
		app.WithAnswerSinks(store, answerLog),
		app.WithAnnouncer(infraredis.NewAnnouncer(redisClient)),
	)

	state, err := service.Start(ctx, app.StartRequest{
		ClassID: "3A",
		Config: domain.MatchConfig{
			QuestionsPerStudent: 1,
			MaxTime:             10 * time.Second,
			BasePoints:          100,
			MaxBonus:            100,
		},
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if state.TotalQuestions != 2 {
		t.Fatalf("expected 2 questions for the 3A roster, got %d", state.TotalQuestions)
	}

	words := []string{"apple", "river"}
	for i := 0; ; i++ {
		_, ok, _, err := service.NextTurn(ctx, state.MatchID)
		if err != nil {
			t.Fatalf("next turn: %v", err)
		}
		if !ok {
			break
		}
		rec, _, err := service.SubmitAnswer(ctx, state.MatchID, words[i], i == 0)
		if err != nil {
			t.Fatalf("submit: %v", err)
		}
		if i == 0 && rec.PointsEarned < 100 {
			t.Fatalf("expected at least base points for a correct answer, got %d", rec.PointsEarned)
		}
	}
	service.Wait()

	stored, err := store.ListAnswers(ctx, []string{"s1", "s2"}, domain.Window{})
	if err != nil {
		t.Fatalf("list answers: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("expected 2 stored answers, got %d", len(stored))
	}
	logged, err := answerLog.Answers(ctx, state.MatchID)
	if err != nil {
		t.Fatalf("answer log: %v", err)
	}
	if len(logged) != 2 {
		t.Fatalf("expected 2 logged answers, got %d", len(logged))
	}

	classes, err := service.Classes(ctx)
	if err != nil {
		t.Fatalf("classes: %v", err)
	}
	if len(classes) != 2 || classes[0] != "3A" || classes[1] != "4B" {
		t.Fatalf("unexpected classes: %v", classes)
	}
	if err := service.RefreshRoster(ctx, "3A"); err != nil {
		t.Fatalf("refresh roster: %v", err)
	}

	history := app.NewHistoryService(rosters, store)
	res, err := history.Report(ctx, "3A", domain.Window{})
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if len(res.Rankings) != 2 || res.Rankings[0].TotalScore < 100 {
		t.Fatalf("unexpected rankings: %+v", res.Rankings)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "battle", "POSTGRES_PASSWORD": "battlepass", "POSTGRES_DB": "battledb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
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
	dsn := fmt.Sprintf("postgres://battle:battlepass@%s:%s/battledb?sslmode=disable", host, port.Port())
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

func openDB(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

func seedStudents(t *testing.T, ctx context.Context, db *bun.DB) {
	t.Helper()
	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	students := []domain.Student{
		{ID: "s1", Name: "Ana", Avatar: "owl", Class: "3A"},
		{ID: "s2", Name: "Bo", Avatar: "fox", Class: "3A"},
		{ID: "s3", Name: "Cy", Avatar: "cat", Class: "4B"},
	}
	for _, s := range students {
		if _, err := db.ExecContext(ctx, `INSERT INTO students (id, name, avatar, class) VALUES (?, ?, ?, ?) ON CONFLICT (id) DO NOTHING`, s.ID, s.Name, s.Avatar, s.Class); err != nil {
			t.Fatalf("insert student: %v", err)
		}
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
