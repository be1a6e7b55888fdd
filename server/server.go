package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"echofm/config"
	"echofm/core/catalog"
	"echofm/core/itunes"
	"echofm/core/library"
	"echofm/db"
	"echofm/logger"
	"echofm/model"
	"echofm/repository"

	"github.com/gorilla/mux"
)

// newRouter wires the API routes and middleware chain. CORS wraps the router
// itself so preflights are answered before method matching.
func newRouter(handler *APIHandler, cfg *config.Config) http.Handler {
	router := mux.NewRouter()
	router.Use(rateLimitMiddleware(cfg))

	// Catalog search and resolution
	router.HandleFunc("/api/search/albums", handler.SearchAlbumsHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/search/tracks", handler.SearchTracksHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/search/artists", handler.SearchArtistsHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/media/albums/{id}", handler.GetAlbumHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/media/tracks/{id}", handler.GetTrackHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/media/artists/{id}", handler.GetArtistHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/media/{id}", handler.ResolveHandler).Methods(http.MethodGet)

	// Discovery feed
	router.HandleFunc("/api/feed", handler.FeedHandler).Methods(http.MethodGet)

	// Auth
	router.HandleFunc("/api/auth/register", handler.RegisterHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/login", handler.LoginHandler).Methods(http.MethodPost)

	// User library
	router.HandleFunc("/api/library", handler.AuthMiddleware(handler.ListLibraryHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/library/{mediaId}", handler.AuthMiddleware(handler.UpsertLibraryHandler)).Methods(http.MethodPut)
	router.HandleFunc("/api/library/{mediaId}", handler.AuthMiddleware(handler.RemoveLibraryHandler)).Methods(http.MethodDelete)

	return corsMiddleware(router)
}

// Start initializes dependencies and runs the HTTP server until SIGINT or
// SIGTERM.
func Start() {
	cfg := config.Load()

	if err := db.Connect(cfg); err != nil {
		logger.Fatal("Failed to connect to database", logger.ErrorField(err))
	}
	defer db.Close()

	if err := db.AutoMigrate(&model.Media{}, &model.User{}, &model.LibraryEntry{}); err != nil {
		logger.Fatal("Failed to migrate database", logger.ErrorField(err))
	}

	// Redis only backs the rate limiter; the server runs without it.
	if err := db.ConnectRedis(cfg); err != nil {
		logger.Warn("Redis unavailable, rate limiting disabled", logger.ErrorField(err))
	} else {
		defer db.CloseRedis()
	}

	ctx, stopWatch := context.WithCancel(context.Background())
	defer stopWatch()

	corpus := catalog.NewCorpus(cfg.FeedKeywords)
	if cfg.FeedKeywordsFile != "" {
		if err := corpus.Watch(ctx, cfg.FeedKeywordsFile); err != nil {
			logger.Warn("Failed to watch keyword file",
				logger.String("path", cfg.FeedKeywordsFile), logger.ErrorField(err))
		}
	}

	provider := itunes.NewClient(cfg.ITunesBaseURL)
	mediaRepo := repository.NewMediaRepository(db.DB)
	userRepo := repository.NewUserRepository(db.DB)
	libraryRepo := repository.NewLibraryRepository(db.DB)

	catalogService := catalog.NewService(provider, mediaRepo, corpus)
	catalogService.SetVirtualTotal(cfg.FeedVirtualTotal)
	libraryService := library.NewService(libraryRepo, mediaRepo, catalogService)

	handler := NewAPIHandler(catalogService, libraryService, userRepo, cfg)
	router := newRouter(handler, cfg)

	srv := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Server starting", logger.String("addr", cfg.ServerAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", logger.ErrorField(err))
		}
	}()

	<-stop
	logger.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", logger.ErrorField(err))
	}

	logger.Info("Server stopped")
}
