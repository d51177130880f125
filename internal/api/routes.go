package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"playground-mockserver/internal/config"
	"playground-mockserver/internal/logger"
	"playground-mockserver/internal/metrics"
	"playground-mockserver/internal/service"
)

type Server struct {
	router  *mux.Router
	config  *config.Config
	handler *Handlers
	metrics *metrics.Recorder
	logger  *logger.Logger
	srv     *http.Server
}

func NewServer(cfg *config.Config, pg *service.Playground, rec *metrics.Recorder, logger *logger.Logger) *Server {
	handler := NewHandlers(pg, rec, logger, cfg.MaxBodyBytes)
	router := mux.NewRouter()

	// Register routes
	router.HandleFunc("/api/endpoints", handler.HandleListResources).Methods("GET")
	router.HandleFunc("/api/endpoints", handler.HandleCreateResource).Methods("POST")
	router.HandleFunc("/api/endpoints/{resource}", handler.HandleDeleteResource).Methods("DELETE")

	router.HandleFunc("/mock/{resource}", handler.HandleListRecords).Methods("GET")
	router.HandleFunc("/mock/{resource}", handler.HandleCreateRecord).Methods("POST")
	router.HandleFunc("/mock/{resource}/{id}", handler.HandleGetRecord).Methods("GET")
	router.HandleFunc("/mock/{resource}/{id}", handler.HandlePatchRecord).Methods("PATCH")
	router.HandleFunc("/mock/{resource}/{id}", handler.HandleDeleteRecord).Methods("DELETE")

	router.HandleFunc("/ping", handler.HandlePing).Methods("GET")
	router.HandleFunc("/metrics", handler.HandleMetrics).Methods("GET")

	// A known path with the wrong verb is still just "not found".
	router.NotFoundHandler = http.HandlerFunc(handler.HandleNotFound)
	router.MethodNotAllowedHandler = http.HandlerFunc(handler.HandleNotFound)

	router.Use(routeLabelMiddleware)

	s := &Server{
		router:  router,
		config:  cfg,
		handler: handler,
		metrics: rec,
		logger:  logger,
	}
	s.srv = &http.Server{
		Handler:      s.Handler(),
		Addr:         cfg.Addr(),
		WriteTimeout: cfg.WriteTimeout,
		ReadTimeout:  cfg.ReadTimeout,
	}
	return s
}

// Handler returns the full middleware chain around the router.
func (s *Server) Handler() http.Handler {
	corsHandler := cors.New(cors.Options{
		AllowedOrigins: s.config.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "Content-Length", "Authorization"},
	})

	return corsHandler.Handler(s.observe(s.recoverPanics(trimTrailingSlash(s.router))))
}

func (s *Server) Start() error {
	err := s.srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
