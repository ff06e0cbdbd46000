package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/yangwenmai/blockpress/internal/compose"
	"github.com/yangwenmai/blockpress/internal/model"
	"github.com/yangwenmai/blockpress/internal/store"
)

// maxRequestBody is the maximum allowed request body size (1 MB).
const maxRequestBody int64 = 1 << 20

// Feed serves the merged article list and single-article lookups.
type Feed interface {
	List(ctx context.Context) []model.Article
	Get(ctx context.Context, id string) (model.Article, error)
	Invalidate()
}

// Creator builds new draft articles.
type Creator interface {
	Create(ctx context.Context, opts compose.Options) (model.Article, error)
}

// TemplateLister exposes the template catalog.
type TemplateLister interface {
	List() []compose.Template
}

// Deps bundles the collaborators the HTTP surface needs.
type Deps struct {
	Feed       Feed
	Creator    Creator
	Store      store.ArticleRepository
	Templates  TemplateLister
	CORSOrigin string
}

// Server holds the HTTP handlers and dependencies.
type Server struct {
	feed       Feed
	creator    Creator
	store      store.ArticleRepository
	templates  TemplateLister
	corsOrigin string
	now        func() time.Time
	mux        *http.ServeMux
}

// New creates a new API server.
func New(d Deps) *Server {
	origin := d.CORSOrigin
	if origin == "" {
		origin = "*"
	}
	srv := &Server{
		feed:       d.Feed,
		creator:    d.Creator,
		store:      d.Store,
		templates:  d.Templates,
		corsOrigin: origin,
		now:        time.Now,
		mux:        http.NewServeMux(),
	}
	srv.routes()
	return srv
}

// Handler returns the root http.Handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.corsMiddleware(limitBody(jsonContent(s.mux)))
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/articles", s.handleListArticles)
	s.mux.HandleFunc("POST /api/articles", s.handleCreateArticle)
	s.mux.HandleFunc("GET /api/articles/{id}", s.handleGetArticle)
	s.mux.HandleFunc("PUT /api/articles/{id}", s.handleSaveArticle)
	s.mux.HandleFunc("DELETE /api/articles/{id}", s.handleDeleteArticle)
	s.mux.HandleFunc("POST /api/articles/{id}/publish", s.handlePublish)
	s.mux.HandleFunc("POST /api/articles/{id}/unpublish", s.handleUnpublish)
	s.mux.HandleFunc("GET /api/me/articles", s.handleMyArticles)
	s.mux.HandleFunc("GET /api/templates", s.handleListTemplates)
}

// ---------------------------------------------------------------------------
// Middleware
// ---------------------------------------------------------------------------

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.corsOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-User-ID, X-User-Role, X-User-Name")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// limitBody restricts the request body to maxRequestBody bytes.
func limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
		next.ServeHTTP(w, r)
	})
}

func jsonContent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// principalFrom reads the caller identity set by the upstream auth layer.
func principalFrom(r *http.Request) model.Principal {
	return model.Principal{
		ID:   r.Header.Get("X-User-ID"),
		Name: r.Header.Get("X-User-Name"),
		Role: r.Header.Get("X-User-Role"),
	}
}

// ---------------------------------------------------------------------------
// Response helpers
// ---------------------------------------------------------------------------

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps model errors onto HTTP statuses. Anything unexpected
// is logged and reported as a 500 with the given message.
func writeDomainError(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, model.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, model.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, model.ErrInvalidBlock):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, model.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, compose.ErrUnknownMode):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error(msg, "error", err)
		writeError(w, http.StatusInternalServerError, msg)
	}
}
