package app

import (
	"context"
	"fmt"
	"strings"

	"booklibrary/pkg/domain"
)

// CreateAuthor records a new author.
func (a *App) CreateAuthor(ctx context.Context, in domain.Author) (string, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return "", validationError("name is required")
	}
	id, err := a.store.InsertAuthor(ctx, in)
	if err != nil {
		return "", fmt.Errorf("insert author: %w", err)
	}
	return id, nil
}

// ListAuthors returns every author.
func (a *App) ListAuthors(ctx context.Context) ([]domain.Author, error) {
	authors, err := a.store.ListAuthors(ctx)
	if err != nil {
		return nil, fmt.Errorf("list authors: %w", err)
	}
	return authors, nil
}

// DeleteAuthor removes an author. Books referring to it are left as they are.
func (a *App) DeleteAuthor(ctx context.Context, id string) (int64, error) {
	n, err := a.store.DeleteAuthor(ctx, strings.TrimSpace(id))
	if err != nil {
		return 0, fmt.Errorf("delete author: %w", err)
	}
	if n == 0 {
		return 0, ErrNotFound
	}
	return n, nil
}

// CreateCategory records a new category.
func (a *App) CreateCategory(ctx context.Context, in domain.Category) (string, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return "", validationError("name is required")
	}
	id, err := a.store.InsertCategory(ctx, in)
	if err != nil {
		return "", fmt.Errorf("insert category: %w", err)
	}
	return id, nil
}

// ListCategories returns every category.
func (a *App) ListCategories(ctx context.Context) ([]domain.Category, error) {
	categories, err := a.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}
