package server

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"booklibrary/internal/util"
	"booklibrary/pkg/domain"
	"booklibrary/services/library/internal/app"
)

// /books
func (s *Server) handleBooks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		books, err := s.app.ListBooks(r.Context())
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		if books == nil {
			books = []domain.Book{}
		}
		writeJSON(w, http.StatusOK, books)
	case http.MethodPost:
		s.handleCreateBook(w, r)
	default:
		methodNotAllowed(w)
	}
}

// /books/{id}
func (s *Server) handleBookByID(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/books/" {
		s.handleBooks(w, r)
		return
	}
	id, ok := pathID(r.URL.Path, "/books/")
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		s.handleDownloadBook(w, r, id)
	case http.MethodPut:
		s.handleUpdateBook(w, r, id)
	case http.MethodDelete:
		r, user, ok := s.requireUser(w, r)
		if !ok {
			return
		}
		n, err := s.app.DeleteBook(r.Context(), user, id)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleCreateBook(w http.ResponseWriter, r *http.Request) {
	r, user, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	if !s.parseMultipart(w, r) {
		return
	}
	defer r.MultipartForm.RemoveAll()

	up, closeUpload, err := formUpload(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid file field")
		return
	}
	defer closeUpload()

	title, _ := formValue(r, "title")
	categoryID, _ := formValue(r, "categoryId", "category_id")
	authorID, _ := formValue(r, "authorId", "author_id")
	description, _ := formValue(r, "description")
	image, _ := formValue(r, "image")
	id, err := s.app.CreateBook(r.Context(), user, app.BookInput{
		Title:       title,
		CategoryID:  categoryID,
		AuthorID:    authorID,
		Description: description,
		Image:       image,
	}, up)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleUpdateBook(w http.ResponseWriter, r *http.Request, id string) {
	r, user, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	// Ownership is settled before the body is read.
	if _, err := s.app.AuthorizeBook(r.Context(), user, id); err != nil {
		writeAppError(w, r, err)
		return
	}
	if !s.parseMultipart(w, r) {
		return
	}
	defer r.MultipartForm.RemoveAll()

	up, closeUpload, err := formUpload(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid file field")
		return
	}
	defer closeUpload()

	title, _ := formValue(r, "title")
	changes := app.BookChanges{Title: title}
	if description, ok := formValue(r, "description"); ok {
		changes.Description = &description
	}
	if image, ok := formValue(r, "image"); ok {
		changes.Image = &image
	}
	book, err := s.app.UpdateBook(r.Context(), user, id, changes, up)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (s *Server) handleDownloadBook(w http.ResponseWriter, r *http.Request, id string) {
	book, rc, err := s.app.OpenBookFile(r.Context(), id)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	defer rc.Close()
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", contentDisposition(book.Title+".pdf"))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		util.LoggerFromContext(r.Context()).Warn("book_stream_failed", "book_id", book.ID, "err", err)
	}
}

// /uploads/{ref}
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	ref, ok := pathID(r.URL.Path, domain.UploadsPath)
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	rc, err := s.app.OpenUpload(r.Context(), ref)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	defer rc.Close()
	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(ref)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		util.LoggerFromContext(r.Context()).Warn("upload_stream_failed", "ref", ref, "err", err)
	}
}

// parseMultipart reads the form under the upload size limit or writes the error response.
func (s *Server) parseMultipart(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", s.maxUploadBytes))
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid form data")
		return false
	}
	return true
}

// formUpload returns the "file" part, or nil when the form has none.
func formUpload(r *http.Request) (*app.Upload, func(), error) {
	file, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, func() {}, nil
	}
	if err != nil {
		return nil, func() {}, err
	}
	return &app.Upload{
		Filename: header.Filename,
		Content:  file,
		Size:     header.Size,
	}, func() { _ = file.Close() }, nil
}

// formValue returns the first present field among names.
func formValue(r *http.Request, names ...string) (string, bool) {
	if r.MultipartForm == nil {
		return "", false
	}
	for _, name := range names {
		if vals, ok := r.MultipartForm.Value[name]; ok && len(vals) > 0 {
			return vals[0], true
		}
	}
	return "", false
}

// contentDisposition builds an attachment header. Non-ASCII names are also
// sent in RFC 5987 form.
func contentDisposition(filename string) string {
	var fallback strings.Builder
	ascii := true
	for _, c := range filename {
		switch {
		case c == '"' || c == '\\':
			fallback.WriteByte('_')
		case c < 0x20 || c == 0x7f:
			ascii = false
		case c > 0x7e:
			ascii = false
			fallback.WriteByte('_')
		default:
			fallback.WriteRune(c)
		}
	}
	header := fmt.Sprintf("attachment; filename=%q", fallback.String())
	if !ascii {
		header += "; filename*=UTF-8''" + url.PathEscape(filename)
	}
	return header
}
