package main

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/shuaib-ai/shuaib/internal/api"
	"github.com/shuaib-ai/shuaib/internal/capture"
	"github.com/shuaib-ai/shuaib/internal/chat"
	"github.com/shuaib-ai/shuaib/internal/config"
	"github.com/shuaib-ai/shuaib/internal/kv"
	"github.com/shuaib-ai/shuaib/internal/llm"
	"github.com/shuaib-ai/shuaib/internal/store"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	slot, err := kv.Open(cfg.DBPath)
	if err != nil {
		logger.Fatal("failed to open local store",
			zap.Error(err),
			zap.String("dbPath", cfg.DBPath))
	}
	defer slot.Close()

	sessionStore := store.New(slot, logger)
	sessionStore.Load()

	client, err := llm.New(cfg.APIBaseURL, cfg.APIKey, cfg.Model, llm.Options{
		Temperature: cfg.Temperature,
		TopP:        cfg.TopP,
		TopK:        cfg.TopK,
		TokenBudget: cfg.HistoryTokenBudget,
	}, logger)
	if err != nil {
		logger.Fatal("failed to initialize model client", zap.Error(err))
	}

	chatService := chat.NewService(sessionStore, client, logger)
	handler := api.NewHandler(chatService, sessionStore, capture.NewCameraFlow(), capture.NewRecorder(), logger)

	// Set up routes
	http.HandleFunc("/api/chat", handler.HandleChat)
	http.HandleFunc("/api/sessions", handler.GetSessions)
	http.HandleFunc("/api/sessions/select", handler.SelectSession)
	http.HandleFunc("/api/sessions/new", handler.NewSession)
	http.HandleFunc("/api/sessions/delete", handler.DeleteSession)
	http.HandleFunc("/api/messages", handler.GetMessages)
	http.HandleFunc("/api/attachments", handler.HandleAttachment)
	http.HandleFunc("/api/capture/camera/start", handler.CameraStart)
	http.HandleFunc("/api/capture/camera/frame", handler.CameraFrame)
	http.HandleFunc("/api/capture/camera/capture", handler.CameraCapture)
	http.HandleFunc("/api/capture/camera/cancel", handler.CameraCancel)
	http.HandleFunc("/api/capture/audio/start", handler.AudioStart)
	http.HandleFunc("/api/capture/audio/chunk", handler.AudioChunk)
	http.HandleFunc("/api/capture/audio/stop", handler.AudioStop)
	http.HandleFunc("/api/capture/audio/cancel", handler.AudioCancel)

	// Serve static files
	fs := http.FileServer(http.Dir("web"))
	http.Handle("/", fs)

	logger.Info("Starting server", zap.String("addr", cfg.ListenAddr))
	if err := http.ListenAndServe(cfg.ListenAddr, nil); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}
}
