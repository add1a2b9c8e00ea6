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

	"github.com/Krusherk/ritquiz/internal/app"
	"github.com/Krusherk/ritquiz/internal/config"
	"github.com/Krusherk/ritquiz/internal/domain"
	"github.com/Krusherk/ritquiz/internal/identity"
	"github.com/Krusherk/ritquiz/internal/infra/memory"
	pginfra "github.com/Krusherk/ritquiz/internal/infra/postgres"
	redisinfra "github.com/Krusherk/ritquiz/internal/infra/redis"
	transport "github.com/Krusherk/ritquiz/internal/transport/http"
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

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

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
	}

	var userRepo app.UserRepository
	var quizRepo app.QuizRepository
	var resultRepo app.ResultRepository

	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		userRepo = pginfra.NewUserRepository(pool)
		quizRepo = pginfra.NewQuizRepository(pool)
		resultRepo = pginfra.NewResultRepository(pool)
	} else {
		memQuizzes := memory.NewQuizRepository()
		seedDemoQuiz(memQuizzes)
		userRepo = memory.NewUserRepository()
		quizRepo = memQuizzes
		resultRepo = memory.NewResultRepository()
	}

	// Read path for the session engine; cached behind Redis when available.
	// Catalog writes then go through the invalidating decorator so cached
	// reads never serve stale questions.
	var quizReader app.QuizReader = quizRepo
	if redisClient != nil {
		quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
		cache := redisinfra.NewQuizCache(redisClient, quizRepo, quizTTL)
		quizReader = cache
		quizRepo = redisinfra.NewQuizRepository(quizRepo, cache)
		resultRepo = redisinfra.NewResultRepository(redisClient, resultRepo)
	}

	var attempts app.AttemptStore
	if redisClient != nil {
		attemptTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)
		attempts = redisinfra.NewAttemptStore(redisClient, attemptTTL)
	} else {
		attempts = memory.NewAttemptStore()
	}

	admins := identity.NewAllowList(cfg.Auth.AdminEmails, cfg.Auth.AdminHandles)
	pollInterval := config.TTLDuration(cfg.Leaderboard.PollInterval, 3*time.Second)

	profiles := app.NewProfileService(userRepo, admins, log)
	catalog := app.NewCatalogService(quizRepo)
	engine := app.NewSessionEngine(quizReader, resultRepo, attempts, log)
	leaderboard := app.NewLeaderboardService(quizReader, quizRepo, resultRepo, pollInterval, log)

	handler := transport.NewHandler(profiles, catalog, engine, leaderboard, cfg.Auth.JWTSecret, log)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      handler.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Infof("starting ritquiz on :%s", finalPort)
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

// seedDemoQuiz gives the in-memory tier something to play against; swap in
// Postgres for real content.
func seedDemoQuiz(repo *memory.QuizRepository) {
	repo.Seed(domain.Quiz{
		ID:              "demo-1",
		Title:           "Warm-up",
		Description:     "A two-question warm-up quiz",
		CreatorID:       "system",
		CreatorUsername: "system",
		CreatorType:     domain.CreatorAdmin,
		IsGeneral:       true,
		Status:          domain.StatusLive,
		TimerSeconds:    30,
		CreatedAt:       time.Now(),
	}, []domain.Question{
		{ID: "q1", QuizID: "demo-1", Text: "What is 2 + 2?", Options: []string{"3", "4", "5"}, CorrectIndex: 1, Order: 1},
		{ID: "q2", QuizID: "demo-1", Text: "Which planet is closest to the sun?", Options: []string{"Venus", "Mercury"}, CorrectIndex: 1, Order: 2},
	})
}
