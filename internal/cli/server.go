package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"assessment-session/internal/app"
	"assessment-session/internal/config"
	"assessment-session/internal/domain"
	"assessment-session/internal/infra/memory"
	"assessment-session/internal/infra/postgres"
	"assessment-session/internal/infra/rabbitmq"
	infraredis "assessment-session/internal/infra/redis"
	"assessment-session/internal/session"
	transport "assessment-session/internal/transport/http"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the assessment backend",
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
	redisTTL := config.Duration(cfg.Redis.TTL, 24*time.Hour)

	var loader memory.AssessmentLoader = memory.NewStaticAssessmentLoader(sampleAssessments())
	var attempts app.AttemptRepository = memory.NewAttemptStore()
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		loader = postgres.NewAssessmentLoader(pool)

		db, err := openBun(cfg)
		if err != nil {
			return err
		}
		defer db.Close()
		attempts = postgres.NewAttemptStore(db)
	} else if redisClient != nil {
		attempts = infraredis.NewAttemptStore(redisClient, redisTTL)
	}

	assessmentTTL := config.Duration(cfg.Assessment.TTL, 10*time.Minute)
	var repo app.AssessmentRepository
	if redisClient != nil {
		repo = infraredis.NewAssessmentRepository(redisClient, loader, assessmentTTL)
	} else {
		repo = memory.NewAssessmentRepository(loader, assessmentTTL)
	}

	service := app.NewAssessmentService(repo, attempts)
	if cfg.RabbitMQ.URL != "" {
		publisher, err := rabbitmq.NewPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Queue)
		if err != nil {
			return err
		}
		defer publisher.Close()
		service.WithPublisher(publisher)
	}

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := transport.NewRouter(
		transport.NewAssessmentHandler(service),
		transport.NewWSHandler(service, sessionOptions(cfg)...),
	)

	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting assessment service on :%s", finalPort)
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

func sessionOptions(cfg config.Config) []session.Option {
	opts := []session.Option{
		session.WithTickInterval(config.Duration(cfg.Session.TickInterval, time.Second)),
	}
	if cfg.Session.SecondsPerAssessment > 0 {
		opts = append(opts, session.WithSecondsPerAssessment(cfg.Session.SecondsPerAssessment))
	}
	return opts
}

// sampleAssessments backs the server when no Postgres is configured.
func sampleAssessments() map[domain.ID]domain.Assessment {
	return map[domain.ID]domain.Assessment{
		"1": {
			ID:    "1",
			Title: "Go basics",
			Questions: []domain.Question{
				{
					ID:   "1",
					Text: "Which keyword starts a goroutine?",
					Type: domain.SingleSelect,
					Options: []domain.Option{
						{ID: "1", Text: "go", Correct: true},
						{ID: "2", Text: "async"},
						{ID: "3", Text: "spawn"},
					},
				},
				{
					ID:   "2",
					Text: "Which types are reference-like?",
					Type: domain.MultiSelect,
					Options: []domain.Option{
						{ID: "1", Text: "map", Correct: true},
						{ID: "2", Text: "slice", Correct: true},
						{ID: "3", Text: "array"},
					},
				},
				{
					ID:   "3",
					Text: "A nil map can be read from.",
					Type: domain.Boolean,
					Options: []domain.Option{
						{ID: "1", Text: "True", Correct: true},
						{ID: "2", Text: "False"},
					},
				},
			},
		},
		"2": {
			ID:               "2",
			Title:            "Concurrency",
			TimeLimitSeconds: 120,
			Questions: []domain.Question{
				{
					ID:   "1",
					Text: "What does a send on a nil channel do?",
					Type: domain.SingleSelect,
					Options: []domain.Option{
						{ID: "1", Text: "Panics"},
						{ID: "2", Text: "Blocks forever", Correct: true},
						{ID: "3", Text: "Is a no-op"},
					},
				},
				{
					ID:   "2",
					Text: "sync.Mutex is reentrant.",
					Type: domain.Boolean,
					Options: []domain.Option{
						{ID: "1", Text: "True"},
						{ID: "2", Text: "False", Correct: true},
					},
				},
			},
		},
	}
}
