package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/campusloop/assess-api/internal/config"
	"github.com/campusloop/assess-api/internal/database"
	"github.com/campusloop/assess-api/internal/handler"
	"github.com/campusloop/assess-api/internal/middleware"
	"github.com/campusloop/assess-api/internal/repository"
	"github.com/campusloop/assess-api/internal/router"
	"github.com/campusloop/assess-api/internal/service"
	"github.com/campusloop/assess-api/pkg/filestore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	store, err := buildFileStore(cfg, logger)
	if err != nil {
		log.Fatalf("failed to initialize file storage: %v", err)
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = nats.Connect(cfg.NATSURL)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Drain()
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	assignmentRepo := repository.NewAssignmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	contentRepo := repository.NewContentRepository(db)
	attemptRepo := repository.NewQuizAttemptRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)

	activityService := service.NewActivityService(activityRepo, validate, logger)
	assignmentService := service.NewAssignmentService(assignmentRepo, validate, activityService, logger)
	submissionService := service.NewSubmissionService(submissionRepo, assignmentRepo, validate, store, activityService, logger)
	gradingPublisher := service.NewNATSGradingPublisher(natsConn, cfg.GradingSubject, logger)
	reviewService := service.NewReviewService(submissionRepo, validate, activityService, gradingPublisher, logger)
	quizService := service.NewQuizService(contentRepo, validate, activityService, logger)
	attemptService := service.NewQuizAttemptService(attemptRepo, quizService, validate, activityService, logger)
	deadlineService := service.NewDeadlineService(assignmentRepo, redisClient, cfg.DeadlineCacheTTL, logger)

	deps := router.Dependencies{
		AssignmentHandler: handler.NewAssignmentHandler(assignmentService, logger),
		SubmissionHandler: handler.NewSubmissionHandler(submissionService, logger),
		ReviewHandler:     handler.NewReviewHandler(reviewService, logger),
		QuizHandler:       handler.NewQuizHandler(quizService, attemptService, logger),
		ActivityHandler:   handler.NewActivityHandler(activityService, logger),
		DeadlineHandler:   handler.NewDeadlineHandler(deadlineService, logger),
		JWTMiddleware:     middleware.JWTProtected(cfg.JWTSecret),
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    cfg.MaxUploadMB * 1024 * 1024,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, deps)

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func buildFileStore(cfg config.Config, logger zerolog.Logger) (service.FileStore, error) {
	if cfg.UseCloudinary() {
		return filestore.NewCloudinary(filestore.CloudinaryConfig{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.CloudinaryFolder,
		}, logger)
	}

	return filestore.NewLocal(cfg.StorageRoot, logger)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
