package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/zera-labs/zera-server/adapters/analysis"
	"github.com/zera-labs/zera-server/adapters/gemini"
	"github.com/zera-labs/zera-server/adapters/memory"
	adaptermongo "github.com/zera-labs/zera-server/adapters/mongo"
	"github.com/zera-labs/zera-server/adapters/stt"
	"github.com/zera-labs/zera-server/domain/repositories"
	"github.com/zera-labs/zera-server/internal/api"
	"github.com/zera-labs/zera-server/internal/websocket"
	"github.com/zera-labs/zera-server/usecase"
)

func main() {
	godotenv.Load()

	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Create Echo instance
	e := echo.New()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	ctx := context.Background()

	// Gemini client backs the resume extractor and both studios
	genaiClient, err := gemini.NewClient(ctx)
	if err != nil {
		logger.Fatal("failed to initialize Gemini client", zap.Error(err))
	}
	extractor := gemini.NewResumeExtractor(genaiClient, logger)
	studio := gemini.NewStudio(genaiClient, logger)

	// Project storage: MongoDB when configured, in-memory otherwise
	var store repositories.KeyValueStore
	if os.Getenv("MONGODB_URI") != "" {
		mongoClient, err := adaptermongo.NewClient(logger)
		if err != nil {
			logger.Fatal("failed to connect to MongoDB", zap.Error(err))
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			mongoClient.Close(shutdownCtx)
		}()
		store = adaptermongo.NewKeyValueStore(mongoClient, "portfolio", logger)
	} else {
		logger.Warn("MONGODB_URI not set, using in-memory project storage")
		store = memory.NewKeyValueStore()
	}
	portfolio := usecase.NewPortfolioService(store, logger)

	// Interview session collaborators
	dialer := gemini.NewLiveDialer(os.Getenv("GEMINI_API_KEY"), logger)
	summarizer := analysis.NewSimulatedSummarizer(logger)

	opts := usecase.DefaultInterviewOptions()
	var speechToText repositories.SpeechToText
	if os.Getenv("LOCAL_TRANSCRIPTION") == "true" {
		speechToText = &stt.GoogleSpeechToText{}
		opts.LocalTranscription = true
	}

	hub := websocket.NewHub(dialer, summarizer, speechToText, opts, logger)
	go hub.Run()

	// Initialize API routes
	api.InitRoutes(e, &api.Handlers{
		Extractor: extractor,
		Content:   studio,
		Design:    studio,
		Portfolio: portfolio,
		Hub:       hub,
		Logger:    logger,
	})

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Graceful shutdown
	go func() {
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("Server started", zap.String("port", port))

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
