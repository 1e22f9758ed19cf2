package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"booklibrary/internal/util"
	"booklibrary/pkg/domain"
	"booklibrary/pkg/pdfmeta"
	"booklibrary/pkg/storage"
)

// Upload is a received file. Content must support random access so the PDF
// structure can be validated before the bytes are stored.
type Upload struct {
	Filename string
	Content  io.ReaderAt
	Size     int64
}

// BookInput is the metadata of a new book.
type BookInput struct {
	Title       string
	CategoryID  string
	AuthorID    string
	Description string
	Image       string
}

// BookChanges is the metadata of a book update. Nil optional fields are left untouched.
type BookChanges struct {
	Title       string
	Description *string
	Image       *string
}

type storedFile struct {
	ref   string
	name  string
	pages int
}

// saveUpload validates the upload as a PDF and writes it to file storage.
func (a *App) saveUpload(ctx context.Context, up *Upload) (storedFile, error) {
	if up == nil || up.Content == nil {
		return storedFile{}, validationError("file is required")
	}
	if up.Size <= 0 {
		return storedFile{}, fmt.Errorf("%w: file is empty", ErrInvalidFile)
	}
	info, err := pdfmeta.Inspect(up.Content, up.Size)
	if err != nil {
		if errors.Is(err, pdfmeta.ErrInvalidPDF) {
			return storedFile{}, ErrInvalidFile
		}
		return storedFile{}, fmt.Errorf("inspect upload: %w", err)
	}
	name := filepath.Base(strings.ReplaceAll(strings.TrimSpace(up.Filename), "\\", "/"))
	if name == "." || name == "/" {
		name = ""
	}
	ref, err := a.files.Save(ctx, name, io.NewSectionReader(up.Content, 0, up.Size))
	if err != nil {
		return storedFile{}, fmt.Errorf("save upload: %w", err)
	}
	return storedFile{ref: ref, name: name, pages: info.Pages}, nil
}

// CreateBook stores the uploaded PDF and records a book owned by owner.
func (a *App) CreateBook(ctx context.Context, owner domain.User, in BookInput, up *Upload) (string, error) {
	title := strings.TrimSpace(in.Title)
	categoryID := strings.TrimSpace(in.CategoryID)
	authorID := strings.TrimSpace(in.AuthorID)
	switch {
	case title == "":
		return "", validationError("title is required")
	case categoryID == "":
		return "", validationError("categoryId is required")
	case authorID == "":
		return "", validationError("authorId is required")
	}

	file, err := a.saveUpload(ctx, up)
	if err != nil {
		return "", err
	}
	book := domain.Book{
		Title:            title,
		CategoryID:       categoryID,
		AuthorID:         authorID,
		Description:      in.Description,
		Image:            in.Image,
		FilePath:         file.ref,
		OriginalFilename: file.name,
		PageCount:        file.pages,
		OwnerID:          owner.ID,
	}
	id, err := a.store.InsertBook(ctx, book)
	if err != nil {
		a.removeFile(ctx, file.ref)
		return "", fmt.Errorf("insert book: %w", err)
	}
	util.LoggerFromContext(ctx).Info("book_created", "book_id", id, "owner_id", owner.ID, "pages", file.pages)
	return id, nil
}

// ListBooks returns every book.
func (a *App) ListBooks(ctx context.Context) ([]domain.Book, error) {
	books, err := a.store.ListBooks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	return books, nil
}

// GetBook returns a book by ID.
func (a *App) GetBook(ctx context.Context, id string) (domain.Book, error) {
	book, ok, err := a.store.GetBook(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Book{}, fmt.Errorf("fetch book: %w", err)
	}
	if !ok {
		return domain.Book{}, ErrNotFound
	}
	return book, nil
}

// OpenBookFile returns the book and a reader over its PDF.
// A record whose file has gone missing is reported as not found.
func (a *App) OpenBookFile(ctx context.Context, id string) (domain.Book, io.ReadCloser, error) {
	book, err := a.GetBook(ctx, id)
	if err != nil {
		return domain.Book{}, nil, err
	}
	rc, err := a.files.Open(ctx, book.FilePath)
	if err != nil {
		if errors.Is(err, storage.ErrFileNotFound) {
			util.LoggerFromContext(ctx).Warn("book_file_missing", "book_id", book.ID, "ref", book.FilePath)
			return domain.Book{}, nil, fmt.Errorf("%w: book file missing", ErrNotFound)
		}
		return domain.Book{}, nil, fmt.Errorf("open book file: %w", err)
	}
	return book, rc, nil
}

// AuthorizeBook loads a book and checks that user owns it.
func (a *App) AuthorizeBook(ctx context.Context, user domain.User, id string) (domain.Book, error) {
	book, err := a.GetBook(ctx, id)
	if err != nil {
		return domain.Book{}, err
	}
	if book.OwnerID != user.ID {
		return domain.Book{}, ErrForbidden
	}
	return book, nil
}

// UpdateBook changes a book owned by user. A replacement file is stored first;
// the previous file is removed only after the record points at the new one.
func (a *App) UpdateBook(ctx context.Context, user domain.User, id string, in BookChanges, up *Upload) (domain.Book, error) {
	book, err := a.AuthorizeBook(ctx, user, id)
	if err != nil {
		return domain.Book{}, err
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return domain.Book{}, validationError("title is required")
	}
	patch := domain.BookUpdate{
		Title:       &title,
		Description: in.Description,
		Image:       in.Image,
	}

	var replaced storedFile
	if up != nil {
		replaced, err = a.saveUpload(ctx, up)
		if err != nil {
			return domain.Book{}, err
		}
		patch.FilePath = &replaced.ref
		patch.OriginalFilename = &replaced.name
		patch.PageCount = &replaced.pages
	}

	n, err := a.store.UpdateBook(ctx, book.ID, patch)
	if err != nil || n == 0 {
		a.removeFile(ctx, replaced.ref)
		if err != nil {
			return domain.Book{}, fmt.Errorf("update book: %w", err)
		}
		return domain.Book{}, ErrNotFound
	}
	if replaced.ref != "" && book.FilePath != replaced.ref {
		if exists, err := a.files.Exists(ctx, book.FilePath); err == nil && exists {
			a.removeFile(ctx, book.FilePath)
		}
	}
	return a.GetBook(ctx, book.ID)
}

// DeleteBook removes a book owned by user and then its file.
func (a *App) DeleteBook(ctx context.Context, user domain.User, id string) (int64, error) {
	book, err := a.AuthorizeBook(ctx, user, id)
	if err != nil {
		return 0, err
	}
	n, err := a.store.DeleteBook(ctx, book.ID)
	if err != nil {
		return 0, fmt.Errorf("delete book: %w", err)
	}
	if n == 0 {
		return 0, ErrNotFound
	}
	a.removeFile(ctx, book.FilePath)
	util.LoggerFromContext(ctx).Info("book_deleted", "book_id", book.ID, "owner_id", user.ID)
	return n, nil
}
