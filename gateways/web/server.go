package web

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	config "github.com/briefly/backend/config/web"
	"github.com/briefly/backend/gateways/web/clients/llm"
	"github.com/briefly/backend/gateways/web/clients/sentiment"
	"github.com/briefly/backend/gateways/web/clients/whisper"
	"github.com/briefly/backend/gateways/web/clients/zoom"
	"github.com/briefly/backend/gateways/web/handler"
	"github.com/briefly/backend/pkg/gen"
	"github.com/briefly/backend/services/session/storage"
	"github.com/briefly/backend/services/session/usecase"
)

type Server struct {
	cfg     *config.Config
	log     *slog.Logger
	handler *handler.Handler
}

func New(cfg *config.Config, log *slog.Logger) (*Server, error) {
	log.Info("creating web server")
	log.Debug("server config",
		slog.Int("port", cfg.Port),
		slog.Bool("zoom_client_id_set", cfg.Zoom.ClientID != ""),
		slog.Bool("openai_api_key_set", cfg.OpenAI.APIKey != ""),
		slog.String("upload_dir", cfg.UploadDir),
		slog.String("output_dir", cfg.OutputDir))

	zoomClient := zoom.New(&cfg.Zoom)
	whisperClient := whisper.New(&cfg.OpenAI)
	llmClient := llm.New(&cfg.OpenAI)
	sentimentClient := sentiment.New(&cfg.HF)

	stg := storage.New(gen.UUID())
	usc := usecase.New(stg, zoomClient, whisperClient, llmClient, sentimentClient, cfg.UploadDir, cfg.OutputDir)

	h := handler.New(usc, cfg.JWTSecret, log)

	return &Server{
		cfg:     cfg,
		log:     log,
		handler: h,
	}, nil
}

func (s *Server) Start(ctx context.Context) error {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.URLFormat)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	s.handler.RegisterRoutes(router)

	addr := fmt.Sprintf(":%d", s.cfg.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
		// Transcription and generation block for the length of the
		// upstream call, so the write window has to cover the longest
		// configured client timeout.
		ReadTimeout:  30 * time.Second,
		WriteTimeout: writeTimeout(s.cfg),
		IdleTimeout:  60 * time.Second,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.log.Info("web gateway started", slog.String("address", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		s.log.Info("start shutdown", slog.String("signal", sig.String()))
		return s.stop(srv)
	case <-ctx.Done():
		s.log.Info("closing server due to context cancellation")
		return s.stop(srv)
	}
}

func (s *Server) stop(srv *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		s.log.Error("graceful shutdown failed", slog.String("error", err.Error()))
		srv.Close()
		return fmt.Errorf("failed to gracefully shutdown server: %w", err)
	}
	s.log.Info("server shutdown completed")
	return nil
}

func writeTimeout(cfg *config.Config) time.Duration {
	longest := cfg.OpenAI.Timeout
	if cfg.Zoom.Timeout > longest {
		longest = cfg.Zoom.Timeout
	}
	if cfg.HF.Timeout > longest {
		longest = cfg.HF.Timeout
	}
	return longest + 30*time.Second
}
