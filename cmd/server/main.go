package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/gHajnal/OppaTalent/internal/cache"
	"github.com/gHajnal/OppaTalent/internal/config"
	"github.com/gHajnal/OppaTalent/internal/lti"
	"github.com/gHajnal/OppaTalent/internal/repository"
	"github.com/gHajnal/OppaTalent/internal/service"
	"github.com/gHajnal/OppaTalent/internal/transport/rest"
)

func main() {
	cfg := config.Load()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	aiConfig := config.DefaultAIConfig()
	log.WithFields(logrus.Fields{
		"generation": aiConfig.Models.Generation,
		"validation": aiConfig.Models.Validation,
		"analysis":   aiConfig.Models.Analysis,
		"enabled":    aiConfig.IsEnabled(),
	}).Info("ai configuration loaded")
	if !aiConfig.IsEnabled() {
		log.Warn("OPENAI_API_KEY not set, quiz generation disabled and answers validated locally")
	}

	ctx := context.Background()

	// MongoDB connection
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.WithError(err).Fatal("failed to connect to MongoDB")
	}
	defer mongoClient.Disconnect(ctx)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mongoClient.Ping(pingCtx, nil); err != nil {
		log.WithError(err).Fatal("failed to ping MongoDB")
	}
	log.Info("connected to MongoDB")

	db := mongoClient.Database(cfg.MongoDB)

	// Redis connection
	redisAddr := strings.TrimPrefix(cfg.RedisAddr, "redis://")
	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer rdb.Close()

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.WithError(err).Fatal("failed to ping Redis")
	}
	log.Info("connected to Redis")

	// Repositories and caches
	reportRepo := repository.NewReportRepo(db)
	quizCache := cache.NewQuizCache(rdb)

	// LMS grade passback (optional)
	ltiClient := lti.NewClient(cfg.LTIConsumerKey, cfg.LTIConsumerSecret, log)
	if ltiClient == nil {
		log.Info("LTI credentials not set, grade passback disabled")
	}

	// Services
	evaluator := service.NewEvaluatorService(aiConfig, log)
	generator := service.NewGeneratorService(aiConfig, quizCache, log)
	analytics := service.NewAnalyticsService(reportRepo, log)
	adaptive := service.NewAdaptiveService(reportRepo, log)
	documents := service.NewDocumentService(generator, cfg.ExtractorURL, log)

	var sender service.GradeSender
	if ltiClient != nil {
		sender = ltiClient
	}
	sessions := service.NewSessionService(evaluator, analytics, sender, log)

	container := &rest.Container{
		SessionService:   sessions,
		GeneratorService: generator,
		DocumentService:  documents,
		AnalyticsService: analytics,
		AdaptiveService:  adaptive,
		Evaluator:        evaluator,
		LTIClient:        ltiClient,
	}
	router := rest.NewRouter(container)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("listen and serve")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Fatal("server forced to shutdown")
	}

	log.Info("server exited")
}
