// Package web serves the record store over HTTP: the sync endpoints used by
// clients and the stateless revision, game and progress endpoints.
package web

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/conorfennell/flashsync/internal/domain"
	"github.com/conorfennell/flashsync/internal/recordstore"
	"github.com/conorfennell/flashsync/internal/remote"
	"github.com/conorfennell/flashsync/internal/selection"
)

// Options configure a Server.
type Options struct {
	Logger      *slog.Logger
	CORSOrigins []string
	// Selection options, e.g. a fixed shuffle in tests.
	Selection []selection.Option
}

// Server holds the dependencies for the HTTP server.
type Server struct {
	store    *recordstore.Store
	selector *selection.Engine
	router   chi.Router
	logger   *slog.Logger
}

// NewServer creates and configures a new server.
func NewServer(store *recordstore.Store, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		store:    store,
		selector: selection.New(store, opts.Selection...),
		router:   chi.NewRouter(),
		logger:   logger,
	}
	s.routes(opts.CORSOrigins)
	return s
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// routes sets up the routing for the server.
func (s *Server) routes(corsOrigins []string) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	if len(corsOrigins) > 0 {
		s.router.Use(cors.New(cors.Options{
			AllowedOrigins: corsOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
			MaxAge:         300,
		}).Handler)
	}
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(chimiddleware.Timeout(60 * time.Second))

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/sync", func(r chi.Router) {
			r.Get("/pull", s.handlePull())
			r.Post("/push", s.handlePushUpdates())
			r.Post("/push-attempts", s.handlePushAttempts())
		})

		r.Get("/questions", s.handleListQuestions())
		r.Post("/questions", s.handleCreateQuestion())
		r.Delete("/questions/{id}", s.handleDeleteQuestion())
		r.Get("/tags", s.handleTags())

		r.Post("/answer", s.handleAnswer())
		r.Get("/revision", s.handleRevision())
		r.Get("/game", s.handleGame())
		r.Post("/game/complete", s.handleGameComplete())
		r.Get("/progress", s.handleProgress())
	})

	s.router.Get("/health", s.handleHealth())
}

// handlePull returns one page of the question set.
func (s *Server) handlePull() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		offset, err := intParam(r, "offset", 0)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		limit, err := intParam(r, "limit", remote.MaxPageSize)
		if err != nil {
			s.respondError(w, r, err)
			return
		}

		questions, err := s.store.PullQuestions(r.Context(), offset, limit)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, questions)
	}
}

func (s *Server) handlePushUpdates() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req remote.PushUpdatesRequest
		if err := decodeJSON(r, &req); err != nil {
			s.respondError(w, r, err)
			return
		}
		if err := s.store.PushQuestionUpdates(r.Context(), req.Updates); err != nil {
			s.respondError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handlePushAttempts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req remote.PushAttemptsRequest
		if err := decodeJSON(r, &req); err != nil {
			s.respondError(w, r, err)
			return
		}
		if err := s.store.PushNewAttempts(r.Context(), req.Attempts); err != nil {
			s.respondError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleListQuestions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		questions, err := s.store.ListQuestions(r.Context(), tagParam(r))
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, questions)
	}
}

func (s *Server) handleCreateQuestion() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var nq domain.NewQuestion
		if err := decodeJSON(r, &nq); err != nil {
			s.respondError(w, r, err)
			return
		}
		q, err := s.store.CreateQuestion(r.Context(), nq)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		respondJSON(w, http.StatusCreated, q)
	}
}

func (s *Server) handleDeleteQuestion() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.store.DeleteQuestion(r.Context(), chi.URLParam(r, "id")); err != nil {
			s.respondError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleTags() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tags, err := s.store.Tags(r.Context())
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		if tags == nil {
			tags = []string{}
		}
		respondJSON(w, http.StatusOK, tags)
	}
}

// handleAnswer checks and scores an answer entirely on the server.
func (s *Server) handleAnswer() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req remote.AnswerRequest
		if err := decodeJSON(r, &req); err != nil {
			s.respondError(w, r, err)
			return
		}
		if err := domain.Validate(req); err != nil {
			s.respondError(w, r, err)
			return
		}
		res, err := s.store.RecordAnswerAndRescore(r.Context(), req.QuestionID, req.Answer)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, res)
	}
}

func (s *Server) handleRevision() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := s.selector.Next(r.Context(), tagParam(r))
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, remote.RevisionResponse{Question: q})
	}
}

func (s *Server) handleGame() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		batch, err := s.selector.Batch(r.Context(), tagParam(r))
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, remote.GameResponse{Questions: batch})
	}
}

func (s *Server) handleGameComplete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req remote.GameCompleteRequest
		if err := decodeJSON(r, &req); err != nil {
			s.respondError(w, r, err)
			return
		}
		if err := s.store.ApplyGameResults(r.Context(), req.Results); err != nil {
			s.respondError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleProgress() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := s.selector.Progress(r.Context(), tagParam(r))
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, p)
	}
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.store.Ping(r.Context()); err != nil {
			s.logger.ErrorContext(r.Context(), "Health check failed", "error", err)
			http.Error(w, "Health check failed", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, invalidParam(name, raw)
	}
	return n, nil
}

func tagParam(r *http.Request) string {
	tags := domain.ParseTags(r.URL.Query().Get("tag"))
	if len(tags) == 0 {
		return ""
	}
	return tags[0]
}
