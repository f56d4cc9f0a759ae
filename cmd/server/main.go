package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"notes-share-server/internal/config"
	"notes-share-server/internal/gist"
	"notes-share-server/internal/handler"
	"notes-share-server/internal/middleware"
	"notes-share-server/internal/repository"
	"notes-share-server/internal/service"
	"notes-share-server/internal/websocket"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := newLogger(cfg.Server.Env, cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	store, err := repository.NewFileStore(cfg.Store.DataDir)
	if err != nil {
		logger.Fatal("failed to open local store", zap.Error(err))
	}

	client := gist.NewClient(cfg.Gist.APIBaseURL, cfg.Gist.Timeout)

	noteService := service.NewNoteService(store, logger)
	syncService := service.NewSyncService(client, store, cfg.Store.CacheTTL, logger)
	syncService.Configure(cfg.Gist.NotesDocumentID, cfg.Gist.Token)
	shareService := service.NewShareService(client, store, cfg.Gist.TokensDocumentID, cfg.Gist.Token, cfg.Store.CacheTTL, logger)

	scheduler := service.NewPushScheduler(cfg.Sync.DebounceWindow, func(ctx context.Context) {
		if !syncService.Writable() {
			return
		}
		if _, err := syncService.Save(ctx, noteService.Notes()); err != nil {
			logger.Warn("debounced push failed", zap.Error(err))
		}
	}, logger)
	noteService.SetSyncTrigger(scheduler)

	hub := websocket.NewHub(cfg.WebSocket.WriteWait, cfg.WebSocket.PongWait, cfg.WebSocket.PingPeriod, logger)
	go hub.Run()
	noteService.SetNotifier(handler.NewHubNotifier(hub))

	noteHandler := handler.NewNoteHandler(noteService)
	folderHandler := handler.NewFolderHandler(noteService)
	syncHandler := handler.NewSyncHandler(syncService, noteService, scheduler)
	shareHandler := handler.NewShareHandler(shareService)
	sharedNoteHandler := handler.NewSharedNoteHandler(shareService, syncService, logger)
	wsHandler := handler.NewWebSocketHandler(hub, cfg.WebSocket.ReadBufferSize, cfg.WebSocket.WriteBufferSize, logger)

	r := mux.NewRouter()

	r.Use(middleware.LoggerMiddleware(logger))
	r.Use(middleware.CORSMiddleware(
		cfg.CORS.AllowedOrigins,
		cfg.CORS.AllowedMethods,
		cfg.CORS.AllowedHeaders,
	))

	// Public share surface. Unversioned so share links stay stable.
	r.HandleFunc("/share", shareHandler.Validate).Methods("GET", "OPTIONS")
	r.HandleFunc("/share", shareHandler.Create).Methods("POST", "OPTIONS")
	r.HandleFunc("/share", shareHandler.Revoke).Methods("DELETE", "OPTIONS")
	r.HandleFunc("/shared/{token}", sharedNoteHandler.Get).Methods("GET", "OPTIONS")

	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/notes", noteHandler.Create).Methods("POST", "OPTIONS")
	api.HandleFunc("/notes", noteHandler.List).Methods("GET", "OPTIONS")
	api.HandleFunc("/notes/{id}", noteHandler.Get).Methods("GET", "OPTIONS")
	api.HandleFunc("/notes/{id}", noteHandler.Update).Methods("PUT", "OPTIONS")
	api.HandleFunc("/notes/{id}", noteHandler.Delete).Methods("DELETE", "OPTIONS")
	api.HandleFunc("/notes/{id}/favorite", noteHandler.ToggleFavorite).Methods("POST", "OPTIONS")
	api.HandleFunc("/notes/{id}/tags", noteHandler.AddTag).Methods("POST", "OPTIONS")
	api.HandleFunc("/notes/{id}/tags/{tag}", noteHandler.RemoveTag).Methods("DELETE", "OPTIONS")
	api.HandleFunc("/notes/{id}/move", noteHandler.Move).Methods("POST", "OPTIONS")

	api.HandleFunc("/folders", folderHandler.List).Methods("GET", "OPTIONS")
	api.HandleFunc("/folders", folderHandler.Create).Methods("POST", "OPTIONS")
	api.HandleFunc("/folders/{id}", folderHandler.Delete).Methods("DELETE", "OPTIONS")

	api.HandleFunc("/sync/status", syncHandler.Status).Methods("GET", "OPTIONS")
	api.HandleFunc("/sync/config", syncHandler.Configure).Methods("POST", "OPTIONS")
	api.HandleFunc("/sync/pull", syncHandler.Pull).Methods("POST", "OPTIONS")
	api.HandleFunc("/sync/push", syncHandler.Push).Methods("POST", "OPTIONS")
	api.HandleFunc("/sync/create", syncHandler.CreateDocument).Methods("POST", "OPTIONS")

	api.HandleFunc("/share/tokens", shareHandler.List).Methods("GET", "OPTIONS")

	r.HandleFunc("/ws", wsHandler.HandleConnection)
	r.HandleFunc("/health", healthHandler).Methods("GET")

	addr := cfg.Server.Host + ":" + cfg.Server.Port

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting notes-share-server",
			zap.String("addr", addr),
			zap.String("env", cfg.Server.Env),
			zap.Bool("sync_configured", syncService.Status().Configured),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Push any buffered edits before the process exits.
	if syncService.Writable() {
		scheduler.Flush(ctx)
	} else {
		scheduler.Cancel()
	}

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped gracefully")
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","service":"notes-share-server"}`))
}

func newLogger(env, level string) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	if env == "development" {
		zapCfg = zap.NewDevelopmentConfig()
	}
	if lvl, err := zapcore.ParseLevel(level); err == nil {
		zapCfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	return zapCfg.Build()
}
