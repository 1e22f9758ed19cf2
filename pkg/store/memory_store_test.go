package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"booklibrary/pkg/domain"
)

func strPtr(s string) *string { return &s }

func TestMemoryStoreInsertAssignsIDs(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	first, err := s.InsertAuthor(ctx, domain.Author{Name: "Frank Herbert"})
	if err != nil {
		t.Fatalf("insert author: %v", err)
	}
	second, err := s.InsertAuthor(ctx, domain.Author{Name: "Ursula K. Le Guin"})
	if err != nil {
		t.Fatalf("insert author: %v", err)
	}
	if first == second {
		t.Fatalf("expected unique ids, got %q twice", first)
	}
	if !validID(first) || !validID(second) {
		t.Fatalf("expected 24 hex ids, got %q and %q", first, second)
	}

	authors, err := s.ListAuthors(ctx)
	if err != nil {
		t.Fatalf("list authors: %v", err)
	}
	if len(authors) != 2 || authors[0].ID != first || authors[1].ID != second {
		t.Fatalf("expected insertion order, got %+v", authors)
	}
}

func TestMemoryStoreDeleteMissingReturnsZero(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	for name, del := range map[string]func(context.Context, string) (int64, error){
		"book":     s.DeleteBook,
		"author":   s.DeleteAuthor,
		"category": s.DeleteCategory,
		"user":     s.DeleteUser,
	} {
		t.Run(name, func(t *testing.T) {
			n, err := del(ctx, newID())
			if err != nil {
				t.Fatalf("delete: %v", err)
			}
			if n != 0 {
				t.Fatalf("expected 0 deleted, got %d", n)
			}
		})
	}
}

func TestMemoryStoreDeleteRemovesRecord(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	id, err := s.InsertCategory(ctx, domain.Category{Name: "Sci-Fi"})
	if err != nil {
		t.Fatalf("insert category: %v", err)
	}
	n, err := s.DeleteCategory(ctx, id)
	if err != nil || n != 1 {
		t.Fatalf("expected 1 deleted, n=%d err=%v", n, err)
	}
	if _, ok, _ := s.GetCategory(ctx, id); ok {
		t.Fatalf("expected category to be gone")
	}
	list, _ := s.ListCategories(ctx)
	if len(list) != 0 {
		t.Fatalf("expected empty list, got %+v", list)
	}
}

func TestMemoryStoreGetMalformedIDNotFound(t *testing.T) {
	s := NewMemoryStore()
	if _, ok, err := s.GetBook(context.Background(), "not-an-id"); err != nil || ok {
		t.Fatalf("expected not found without error, ok=%v err=%v", ok, err)
	}
}

func TestMemoryStoreUpdateBookMergesProvidedFields(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	id, err := s.InsertBook(ctx, domain.Book{
		Title:       "Dune",
		Description: "desert planet",
		FilePath:    "a_dune.pdf",
		OwnerID:     "owner-1",
	})
	if err != nil {
		t.Fatalf("insert book: %v", err)
	}

	n, err := s.UpdateBook(ctx, id, domain.BookUpdate{Title: strPtr("Dune Messiah")})
	if err != nil || n != 1 {
		t.Fatalf("expected 1 updated, n=%d err=%v", n, err)
	}
	book, ok, _ := s.GetBook(ctx, id)
	if !ok {
		t.Fatalf("expected book")
	}
	if book.Title != "Dune Messiah" {
		t.Fatalf("expected title updated, got %q", book.Title)
	}
	if book.Description != "desert planet" || book.FilePath != "a_dune.pdf" || book.OwnerID != "owner-1" {
		t.Fatalf("expected untouched fields preserved, got %+v", book)
	}

	if n, _ := s.UpdateBook(ctx, newID(), domain.BookUpdate{Title: strPtr("x")}); n != 0 {
		t.Fatalf("expected 0 for missing book, got %d", n)
	}
}

func TestMemoryStoreUserUniqueness(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	aliceID, err := s.InsertUser(ctx, domain.User{Username: "alice", Email: "a@x.io", PasswordHash: "h"})
	if err != nil {
		t.Fatalf("insert alice: %v", err)
	}
	if _, err := s.InsertUser(ctx, domain.User{Username: "bob", Email: "a@x.io"}); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected duplicate email, got %v", err)
	}
	if _, err := s.InsertUser(ctx, domain.User{Username: "alice", Email: "b@x.io"}); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected duplicate username, got %v", err)
	}
	bobID, err := s.InsertUser(ctx, domain.User{Username: "bob", Email: "b@x.io"})
	if err != nil {
		t.Fatalf("insert bob: %v", err)
	}

	if _, err := s.UpdateUser(ctx, bobID, domain.UserUpdate{Username: strPtr("alice")}); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected duplicate username on update, got %v", err)
	}
	if n, err := s.UpdateUser(ctx, aliceID, domain.UserUpdate{Username: strPtr("alice")}); err != nil || n != 1 {
		t.Fatalf("expected self rename allowed, n=%d err=%v", n, err)
	}
	if _, err := s.UpdateUser(ctx, bobID, domain.UserUpdate{Username: strPtr("robert")}); err != nil {
		t.Fatalf("rename bob: %v", err)
	}
	if _, ok, _ := s.GetUserByUsername(ctx, "bob"); ok {
		t.Fatalf("expected old username released")
	}
	user, ok, _ := s.GetUserByUsername(ctx, "robert")
	if !ok || user.ID != bobID || user.Email != "b@x.io" {
		t.Fatalf("expected renamed bob, got %+v ok=%v", user, ok)
	}
	if _, err := s.InsertUser(ctx, domain.User{Username: "bob", Email: "c@x.io"}); err != nil {
		t.Fatalf("expected released username to be reusable: %v", err)
	}
}

func TestMemoryStoreGetUserByEmail(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	id, err := s.InsertUser(ctx, domain.User{Username: "alice", Email: "a@x.io", PasswordHash: "h"})
	if err != nil {
		t.Fatalf("insert user: %v", err)
	}
	user, ok, err := s.GetUserByEmail(ctx, "a@x.io")
	if err != nil || !ok {
		t.Fatalf("expected user, ok=%v err=%v", ok, err)
	}
	if user.ID != id || user.PasswordHash != "h" || user.CreatedAt.IsZero() {
		t.Fatalf("unexpected user: %+v", user)
	}
	if _, ok, _ := s.GetUserByEmail(ctx, "A@x.io"); ok {
		t.Fatalf("expected exact match only")
	}
}

func TestMemoryStoreConcurrentInserts(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.InsertBook(ctx, domain.Book{Title: "t"})
			_, _ = s.ListBooks(ctx)
		}()
	}
	wg.Wait()
	books, _ := s.ListBooks(ctx)
	if len(books) != 50 {
		t.Fatalf("expected 50 books, got %d", len(books))
	}
}
