package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/yangwenmai/blockpress/internal/compose"
	"github.com/yangwenmai/blockpress/internal/model"
	"github.com/yangwenmai/blockpress/internal/store"
)

// ---------------------------------------------------------------------------
// GET /api/articles
// ---------------------------------------------------------------------------

func (s *Server) handleListArticles(w http.ResponseWriter, r *http.Request) {
	articles := s.feed.List(r.Context())
	if articles == nil {
		articles = []model.Article{}
	}
	writeJSON(w, http.StatusOK, articles)
}

// ---------------------------------------------------------------------------
// GET /api/articles/{id}
// ---------------------------------------------------------------------------

func (s *Server) handleGetArticle(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	a, err := s.feed.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "failed to get article")
		return
	}
	// Drafts and private articles are only visible to whoever manages them.
	if !a.IsStatic() && (a.Status != model.StatusPublished || a.Visibility != model.VisibilityPublic) &&
		!model.CanManage(principalFrom(r), &a) {
		writeError(w, http.StatusNotFound, (&model.NotFoundError{Kind: "article", ID: id}).Error())
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// ---------------------------------------------------------------------------
// POST /api/articles
// ---------------------------------------------------------------------------

type createRequest struct {
	Mode        string               `json:"mode"`
	Title       string               `json:"title"`
	Description string               `json:"description"`
	Category    string               `json:"category"`
	TemplateID  string               `json:"templateId"`
	Source      compose.ImportSource `json:"source"`
	DraftID     string               `json:"draftId"`
}

func (s *Server) handleCreateArticle(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r)
	if p.ID == "" {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	a, err := s.creator.Create(r.Context(), compose.Options{
		Mode:        compose.Mode(strings.ToLower(strings.TrimSpace(req.Mode))),
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Author:      p.AsAuthor(),
		TemplateID:  req.TemplateID,
		Import:      req.Source,
		DraftID:     req.DraftID,
	})
	if err != nil {
		writeDomainError(w, err, "failed to create article")
		return
	}

	// Resumed local drafts live on the client until their first save.
	if !model.IsLocalDraftID(a.ID) {
		if err := s.store.SaveArticle(r.Context(), a); err != nil {
			writeDomainError(w, err, "failed to save article")
			return
		}
	}
	writeJSON(w, http.StatusCreated, a)
}

// ---------------------------------------------------------------------------
// PUT /api/articles/{id}
// ---------------------------------------------------------------------------

type saveRequest struct {
	Title       *string          `json:"title"`
	Description *string          `json:"description"`
	Category    *string          `json:"category"`
	Blocks      []model.RawBlock `json:"blocks"`
}

func (s *Server) handleSaveArticle(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	p := principalFrom(r)
	if p.ID == "" {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req saveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	var blocks model.BlockList
	if req.Blocks != nil {
		decoded, err := model.DecodeBlocks(req.Blocks)
		if err != nil {
			writeDomainError(w, err, "failed to decode blocks")
			return
		}
		if bad := model.InvalidBlockIDs(decoded); len(bad) > 0 {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error":    "invalid blocks",
				"blockIds": bad,
			})
			return
		}
		blocks = decoded
	}

	now := s.now()
	var a model.Article
	if model.IsLocalDraftID(id) {
		// First save of a local draft assigns the permanent id.
		a = model.NewDraft(model.NewArticleID(), "Untitled", p.AsAuthor(), nil, now)
	} else {
		existing, err := s.feed.Get(r.Context(), id)
		if err != nil {
			writeDomainError(w, err, "failed to get article")
			return
		}
		// Saving a static article claims it as dynamic; only admins may.
		if existing.IsStatic() {
			if p.Role != model.RoleAdmin {
				writeError(w, http.StatusForbidden, "static articles can only be edited by an admin")
				return
			}
		} else if err := model.Authorize(p, &existing); err != nil {
			writeDomainError(w, err, "failed to authorize")
			return
		}
		a = existing
	}

	if req.Title != nil && strings.TrimSpace(*req.Title) != "" {
		a.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		a.Description = strings.TrimSpace(*req.Description)
	}
	if req.Category != nil {
		a.Category = strings.TrimSpace(*req.Category)
	}
	if req.Blocks != nil {
		a.Blocks = blocks
	}
	if a.Status == model.StatusPublished && len(a.Blocks) == 0 {
		writeError(w, http.StatusUnprocessableEntity, "a published article needs at least one block")
		return
	}
	a.UpdatedAt = now.UTC()

	if err := s.store.SaveArticle(r.Context(), a); err != nil {
		writeDomainError(w, err, "failed to save article")
		return
	}
	s.feed.Invalidate()

	a.Source = model.SourceDynamic
	writeJSON(w, http.StatusOK, a)
}

// ---------------------------------------------------------------------------
// POST /api/articles/{id}/publish, /unpublish
// ---------------------------------------------------------------------------

type publishRequest struct {
	Visibility string `json:"visibility"`
}

func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	var req publishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	a, ok := s.loadManaged(w, r)
	if !ok {
		return
	}
	if err := a.Publish(s.now(), model.Visibility(req.Visibility)); err != nil {
		writeDomainError(w, err, "failed to publish article")
		return
	}
	s.persist(w, r, a)
}

func (s *Server) handleUnpublish(w http.ResponseWriter, r *http.Request) {
	a, ok := s.loadManaged(w, r)
	if !ok {
		return
	}
	if err := a.Unpublish(s.now()); err != nil {
		writeDomainError(w, err, "failed to unpublish article")
		return
	}
	s.persist(w, r, a)
}

// ---------------------------------------------------------------------------
// DELETE /api/articles/{id}
// ---------------------------------------------------------------------------

func (s *Server) handleDeleteArticle(w http.ResponseWriter, r *http.Request) {
	a, ok := s.loadManaged(w, r)
	if !ok {
		return
	}
	if err := s.store.DeleteArticle(r.Context(), a.ID); err != nil {
		writeDomainError(w, err, "failed to delete article")
		return
	}
	s.feed.Invalidate()
	w.WriteHeader(http.StatusNoContent)
}

// ---------------------------------------------------------------------------
// GET /api/me/articles
// ---------------------------------------------------------------------------

func (s *Server) handleMyArticles(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r)
	if p.ID == "" {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	filter := store.ArticleFilter{AuthorID: p.ID}
	for _, st := range splitComma(r.URL.Query().Get("status")) {
		filter.Status = append(filter.Status, model.Status(st))
	}

	articles, err := s.store.ListArticles(r.Context(), filter)
	if err != nil {
		writeDomainError(w, err, "failed to list articles")
		return
	}
	if articles == nil {
		articles = []model.Article{}
	}
	writeJSON(w, http.StatusOK, articles)
}

// ---------------------------------------------------------------------------
// GET /api/templates
// ---------------------------------------------------------------------------

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	templates := s.templates.List()
	if templates == nil {
		templates = []compose.Template{}
	}
	writeJSON(w, http.StatusOK, templates)
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

// loadManaged resolves the path article and checks the caller may manage it.
// On failure the response is already written.
func (s *Server) loadManaged(w http.ResponseWriter, r *http.Request) (model.Article, bool) {
	a, err := s.feed.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err, "failed to get article")
		return model.Article{}, false
	}
	if err := model.Authorize(principalFrom(r), &a); err != nil {
		writeDomainError(w, err, "failed to authorize")
		return model.Article{}, false
	}
	return a, true
}

func (s *Server) persist(w http.ResponseWriter, r *http.Request, a model.Article) {
	if err := s.store.SaveArticle(r.Context(), a); err != nil {
		writeDomainError(w, err, "failed to save article")
		return
	}
	s.feed.Invalidate()
	writeJSON(w, http.StatusOK, a)
}

func splitComma(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
