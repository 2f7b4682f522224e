package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/vbonduro/skintell/internal/advisor"
	"github.com/vbonduro/skintell/internal/capture"
	"github.com/vbonduro/skintell/internal/domain"
	"github.com/vbonduro/skintell/internal/photostore"
	"github.com/vbonduro/skintell/internal/service"
	"github.com/vbonduro/skintell/internal/session"
)

// scanHistory is the subset of service.ScanService the history endpoints use.
type scanHistory interface {
	History(ctx context.Context, limit int) ([]*domain.Scan, error)
	Streak(ctx context.Context) (service.Streak, error)
	DeleteScan(ctx context.Context, id int64) error
}

// chatAdvisor answers relay requests.
type chatAdvisor interface {
	Advise(ctx context.Context, p advisor.Prompt) (string, error)
}

type Server struct {
	sessions   *session.Manager
	scans      scanHistory
	advisor    chatAdvisor
	resolver   advisor.ImageResolver
	photoStore photostore.PhotoStore
	router     chi.Router
	logger     *slog.Logger
}

func NewServer(
	sessions *session.Manager,
	scans scanHistory,
	adv chatAdvisor,
	resolver advisor.ImageResolver,
	ps photostore.PhotoStore,
	logger *slog.Logger,
) *Server {
	s := &Server{
		sessions:   sessions,
		scans:      scans,
		advisor:    adv,
		resolver:   resolver,
		photoStore: ps,
		logger:     logger,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(func(next http.Handler) http.Handler { return requestLogger(s.logger, next) })
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders)
	r.Use(cors)

	r.Route("/api", func(api chi.Router) {
		api.Post("/chat-ai", s.handleRelay)

		api.Post("/sessions", s.handleCreateSession)
		api.Route("/sessions/{id}", func(sr chi.Router) {
			sr.Get("/", s.handleGetSession)
			sr.Put("/tab", s.handleSelectTab)
			sr.Put("/menu", s.handleSetMenu)
			sr.Post("/menu/navigate", s.handleMenuNavigate)
			sr.Get("/chat", s.handleChatView)
			sr.Post("/messages", s.handleSendMessage)
			sr.Post("/scans", s.handleScan)
			sr.Post("/camera", s.handleOpenCamera)
			sr.Delete("/camera", s.handleCancelCamera)
			sr.Post("/camera/capture", s.handleCaptureCamera)
		})

		api.Get("/scans", s.handleListScans)
		api.Delete("/scans/{id}", s.handleDeleteScan)
		api.Get("/streak", s.handleStreak)
	})

	r.Get(photostore.RefPrefix+"{key}", s.handleGetPhoto)

	return r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves until ctx is done, then drains in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

// imageLimit bounds request bodies that carry an image, leaving room for
// multipart framing and base64 expansion.
const imageLimit = capture.MaxImageSize*4/3 + 1<<20
