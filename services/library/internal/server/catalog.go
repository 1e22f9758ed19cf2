package server

import (
	"net/http"

	"booklibrary/pkg/domain"
)

type authorRequest struct {
	Name  string `json:"name"`
	Bio   string `json:"bio"`
	Image string `json:"image"`
}

type categoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// /authors
func (s *Server) handleAuthors(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		authors, err := s.app.ListAuthors(r.Context())
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		if authors == nil {
			authors = []domain.Author{}
		}
		writeJSON(w, http.StatusOK, authors)
	case http.MethodPost:
		var req authorRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		id, err := s.app.CreateAuthor(r.Context(), domain.Author{Name: req.Name, Bio: req.Bio, Image: req.Image})
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"id": id})
	default:
		methodNotAllowed(w)
	}
}

// /authors/{id}
func (s *Server) handleAuthorByID(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/authors/" {
		s.handleAuthors(w, r)
		return
	}
	id, ok := pathID(r.URL.Path, "/authors/")
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodDelete {
		methodNotAllowed(w)
		return
	}
	n, err := s.app.DeleteAuthor(r.Context(), id)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

// /categories
func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		categories, err := s.app.ListCategories(r.Context())
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		if categories == nil {
			categories = []domain.Category{}
		}
		writeJSON(w, http.StatusOK, categories)
	case http.MethodPost:
		var req categoryRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		id, err := s.app.CreateCategory(r.Context(), domain.Category{Name: req.Name, Description: req.Description})
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"id": id})
	default:
		methodNotAllowed(w)
	}
}

// /categories/ only serves the collection.
func (s *Server) handleCategoryByID(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/categories/" {
		s.handleCategories(w, r)
		return
	}
	writeError(w, http.StatusNotFound, "not found")
}
