package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"booklibrary/internal/util"
	"booklibrary/pkg/auth"
	"booklibrary/pkg/storage"
	"booklibrary/pkg/store"
)

// Config holds the collaborators of the core application.
type Config struct {
	Store  store.Store
	Files  storage.FileStore
	Tokens *auth.TokenService
}

// App is the core application service wiring together persistence, file storage and auth.
type App struct {
	store  store.Store
	files  storage.FileStore
	tokens *auth.TokenService
}

// New constructs the application. All collaborators are required.
func New(cfg Config) (*App, error) {
	if cfg.Store == nil {
		return nil, errors.New("store is required")
	}
	if cfg.Files == nil {
		return nil, errors.New("file store is required")
	}
	if cfg.Tokens == nil {
		return nil, errors.New("token service is required")
	}
	return &App{
		store:  cfg.Store,
		files:  cfg.Files,
		tokens: cfg.Tokens,
	}, nil
}

// Ready reports whether the backing store is reachable.
func (a *App) Ready(ctx context.Context) error {
	return a.store.Ping(ctx)
}

// OpenUpload streams a stored file by its reference.
func (a *App) OpenUpload(ctx context.Context, ref string) (io.ReadCloser, error) {
	rc, err := a.files.Open(ctx, ref)
	if err != nil {
		if errors.Is(err, storage.ErrFileNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("open upload: %w", err)
	}
	return rc, nil
}

// removeFile deletes a stored file, logging instead of failing the caller.
func (a *App) removeFile(ctx context.Context, ref string) {
	if ref == "" {
		return
	}
	if err := a.files.Remove(ctx, ref); err != nil {
		util.LoggerFromContext(ctx).Warn("file_remove_failed", "ref", ref, "err", err)
	}
}
