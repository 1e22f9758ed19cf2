package store

import (
	"context"
	"errors"

	"booklibrary/pkg/domain"
)

// ErrDuplicate is returned when an insert or update violates a unique field.
var ErrDuplicate = errors.New("duplicate record")

// Store defines persistence operations for users, books, authors, and categories.
// Lookups return found=false for unknown or malformed IDs. Update and Delete
// return the number of affected records, never an error for a missing record.
type Store interface {
	// users
	ListUsers(ctx context.Context) ([]domain.User, error)
	InsertUser(ctx context.Context, u domain.User) (string, error)
	GetUserByID(ctx context.Context, id string) (domain.User, bool, error)
	GetUserByEmail(ctx context.Context, email string) (domain.User, bool, error)
	GetUserByUsername(ctx context.Context, username string) (domain.User, bool, error)
	UpdateUser(ctx context.Context, id string, patch domain.UserUpdate) (int64, error)
	DeleteUser(ctx context.Context, id string) (int64, error)

	// books
	ListBooks(ctx context.Context) ([]domain.Book, error)
	InsertBook(ctx context.Context, b domain.Book) (string, error)
	GetBook(ctx context.Context, id string) (domain.Book, bool, error)
	UpdateBook(ctx context.Context, id string, patch domain.BookUpdate) (int64, error)
	DeleteBook(ctx context.Context, id string) (int64, error)

	// authors
	ListAuthors(ctx context.Context) ([]domain.Author, error)
	InsertAuthor(ctx context.Context, a domain.Author) (string, error)
	GetAuthor(ctx context.Context, id string) (domain.Author, bool, error)
	UpdateAuthor(ctx context.Context, id string, patch domain.AuthorUpdate) (int64, error)
	DeleteAuthor(ctx context.Context, id string) (int64, error)

	// categories
	ListCategories(ctx context.Context) ([]domain.Category, error)
	InsertCategory(ctx context.Context, c domain.Category) (string, error)
	GetCategory(ctx context.Context, id string) (domain.Category, bool, error)
	UpdateCategory(ctx context.Context, id string, patch domain.CategoryUpdate) (int64, error)
	DeleteCategory(ctx context.Context, id string) (int64, error)

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error
}
