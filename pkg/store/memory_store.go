package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"booklibrary/pkg/domain"
)

// table keeps records of one entity in insertion order.
type table[T any] struct {
	rows  map[string]T
	order []string
}

func newTable[T any]() *table[T] {
	return &table[T]{rows: make(map[string]T)}
}

func (t *table[T]) list() []T {
	res := make([]T, 0, len(t.order))
	for _, id := range t.order {
		if row, ok := t.rows[id]; ok {
			res = append(res, row)
		}
	}
	return res
}

func (t *table[T]) insert(id string, row T) {
	if _, exists := t.rows[id]; !exists {
		t.order = append(t.order, id)
	}
	t.rows[id] = row
}

func (t *table[T]) get(id string) (T, bool) {
	row, ok := t.rows[id]
	return row, ok
}

func (t *table[T]) delete(id string) int64 {
	if _, ok := t.rows[id]; !ok {
		return 0
	}
	delete(t.rows, id)
	for i, existing := range t.order {
		if existing == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return 1
}

// MemoryStore keeps records in-process. It is safe for concurrent use.
type MemoryStore struct {
	mu         sync.RWMutex
	users      *table[domain.User]
	books      *table[domain.Book]
	authors    *table[domain.Author]
	categories *table[domain.Category]
	email      map[string]string // email -> user ID
	username   map[string]string // username -> user ID
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:      newTable[domain.User](),
		books:      newTable[domain.Book](),
		authors:    newTable[domain.Author](),
		categories: newTable[domain.Category](),
		email:      make(map[string]string),
		username:   make(map[string]string),
	}
}

// Ping always succeeds.
func (m *MemoryStore) Ping(context.Context) error {
	return nil
}

func (m *MemoryStore) ListUsers(context.Context) ([]domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.users.list(), nil
}

// InsertUser stores a new user. Email and username must be unique.
func (m *MemoryStore) InsertUser(_ context.Context, u domain.User) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, taken := m.email[u.Email]; taken {
		return "", fmt.Errorf("%w: email", ErrDuplicate)
	}
	if _, taken := m.username[u.Username]; taken {
		return "", fmt.Errorf("%w: username", ErrDuplicate)
	}
	now := time.Now().UTC()
	u.ID = newID()
	u.CreatedAt, u.UpdatedAt = now, now
	m.users.insert(u.ID, u)
	m.email[u.Email] = u.ID
	m.username[u.Username] = u.ID
	return u.ID, nil
}

func (m *MemoryStore) GetUserByID(_ context.Context, id string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users.get(id)
	return u, ok, nil
}

func (m *MemoryStore) GetUserByEmail(_ context.Context, email string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.email[email]
	if !ok {
		return domain.User{}, false, nil
	}
	u, ok := m.users.get(id)
	return u, ok, nil
}

func (m *MemoryStore) GetUserByUsername(_ context.Context, username string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.username[username]
	if !ok {
		return domain.User{}, false, nil
	}
	u, ok := m.users.get(id)
	return u, ok, nil
}

// UpdateUser merges the provided fields and keeps the unique indexes in sync.
func (m *MemoryStore) UpdateUser(_ context.Context, id string, patch domain.UserUpdate) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users.get(id)
	if !ok {
		return 0, nil
	}
	if patch.Email != nil {
		if owner, taken := m.email[*patch.Email]; taken && owner != id {
			return 0, fmt.Errorf("%w: email", ErrDuplicate)
		}
	}
	if patch.Username != nil {
		if owner, taken := m.username[*patch.Username]; taken && owner != id {
			return 0, fmt.Errorf("%w: username", ErrDuplicate)
		}
	}
	if patch.Email != nil {
		delete(m.email, u.Email)
		u.Email = *patch.Email
		m.email[u.Email] = id
	}
	if patch.Username != nil {
		delete(m.username, u.Username)
		u.Username = *patch.Username
		m.username[u.Username] = id
	}
	if patch.ProfileImage != nil {
		u.ProfileImage = *patch.ProfileImage
	}
	u.UpdatedAt = time.Now().UTC()
	m.users.insert(id, u)
	return 1, nil
}

func (m *MemoryStore) DeleteUser(_ context.Context, id string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users.get(id)
	if !ok {
		return 0, nil
	}
	delete(m.email, u.Email)
	delete(m.username, u.Username)
	return m.users.delete(id), nil
}

// ListBooks returns books in insertion order.
func (m *MemoryStore) ListBooks(context.Context) ([]domain.Book, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.books.list(), nil
}

func (m *MemoryStore) InsertBook(_ context.Context, b domain.Book) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	b.ID = newID()
	b.CreatedAt, b.UpdatedAt = now, now
	m.books.insert(b.ID, b)
	return b.ID, nil
}

func (m *MemoryStore) GetBook(_ context.Context, id string) (domain.Book, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.books.get(id)
	return b, ok, nil
}

func (m *MemoryStore) UpdateBook(_ context.Context, id string, patch domain.BookUpdate) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.books.get(id)
	if !ok {
		return 0, nil
	}
	if patch.Title != nil {
		b.Title = *patch.Title
	}
	if patch.Description != nil {
		b.Description = *patch.Description
	}
	if patch.Image != nil {
		b.Image = *patch.Image
	}
	if patch.FilePath != nil {
		b.FilePath = *patch.FilePath
	}
	if patch.OriginalFilename != nil {
		b.OriginalFilename = *patch.OriginalFilename
	}
	if patch.PageCount != nil {
		b.PageCount = *patch.PageCount
	}
	b.UpdatedAt = time.Now().UTC()
	m.books.insert(id, b)
	return 1, nil
}

func (m *MemoryStore) DeleteBook(_ context.Context, id string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.books.delete(id), nil
}

func (m *MemoryStore) ListAuthors(context.Context) ([]domain.Author, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.authors.list(), nil
}

func (m *MemoryStore) InsertAuthor(_ context.Context, a domain.Author) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = newID()
	m.authors.insert(a.ID, a)
	return a.ID, nil
}

func (m *MemoryStore) GetAuthor(_ context.Context, id string) (domain.Author, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.authors.get(id)
	return a, ok, nil
}

func (m *MemoryStore) UpdateAuthor(_ context.Context, id string, patch domain.AuthorUpdate) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.authors.get(id)
	if !ok {
		return 0, nil
	}
	if patch.Name != nil {
		a.Name = *patch.Name
	}
	if patch.Bio != nil {
		a.Bio = *patch.Bio
	}
	if patch.Image != nil {
		a.Image = *patch.Image
	}
	m.authors.insert(id, a)
	return 1, nil
}

func (m *MemoryStore) DeleteAuthor(_ context.Context, id string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.authors.delete(id), nil
}

func (m *MemoryStore) ListCategories(context.Context) ([]domain.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.categories.list(), nil
}

func (m *MemoryStore) InsertCategory(_ context.Context, c domain.Category) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = newID()
	m.categories.insert(c.ID, c)
	return c.ID, nil
}

func (m *MemoryStore) GetCategory(_ context.Context, id string) (domain.Category, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.categories.get(id)
	return c, ok, nil
}

func (m *MemoryStore) UpdateCategory(_ context.Context, id string, patch domain.CategoryUpdate) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.categories.get(id)
	if !ok {
		return 0, nil
	}
	if patch.Name != nil {
		c.Name = *patch.Name
	}
	if patch.Description != nil {
		c.Description = *patch.Description
	}
	m.categories.insert(id, c)
	return 1, nil
}

func (m *MemoryStore) DeleteCategory(_ context.Context, id string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.categories.delete(id), nil
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*GormStore)(nil)
)
