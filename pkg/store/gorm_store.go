package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"booklibrary/pkg/domain"
)

const migrateLockID int64 = 51730417

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:                 gormLog,
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := withMigrationLock(db, func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(&UserModel{}, &BookModel{}, &AuthorModel{}, &CategoryModel{}); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

// NewGormStoreFromDB wraps an already opened connection without migrating.
func NewGormStoreFromDB(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func withMigrationLock(db *gorm.DB, fn func(*gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()
	if err := execAdvisory(ctx, conn, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	defer func() {
		_ = execAdvisory(ctx, conn, "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db)
}

func execAdvisory(ctx context.Context, conn *sql.Conn, query string, lockID int64) error {
	_, err := conn.ExecContext(ctx, query, lockID)
	return err
}

// translateError maps driver errors to store sentinels.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}

// Ping checks database connectivity.
func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// first loads one record by a condition. Missing rows report found=false.
func first[M any](ctx context.Context, db *gorm.DB, query string, arg any) (M, bool, error) {
	var model M
	if err := db.WithContext(ctx).Where(query, arg).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model, false, nil
		}
		return model, false, err
	}
	return model, true, nil
}

// update applies column assignments to the record with id and returns the affected count.
// An empty change set still reports whether the record exists.
func update[M any](ctx context.Context, db *gorm.DB, id string, updates map[string]any) (int64, error) {
	if !validID(id) {
		return 0, nil
	}
	var model M
	if len(updates) == 0 {
		var count int64
		if err := db.WithContext(ctx).Model(&model).Where("id = ?", id).Count(&count).Error; err != nil {
			return 0, err
		}
		return count, nil
	}
	res := db.WithContext(ctx).Model(&model).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return 0, translateError(res.Error)
	}
	return res.RowsAffected, nil
}

func remove[M any](ctx context.Context, db *gorm.DB, id string) (int64, error) {
	if !validID(id) {
		return 0, nil
	}
	var model M
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&model)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// ListUsers returns all users ordered by created_at.
func (s *GormStore) ListUsers(ctx context.Context) ([]domain.User, error) {
	var models []UserModel
	if err := s.db.WithContext(ctx).Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.User, 0, len(models))
	for _, m := range models {
		res = append(res, userFromModel(m))
	}
	return res, nil
}

// InsertUser stores a new user and returns its ID.
func (s *GormStore) InsertUser(ctx context.Context, u domain.User) (string, error) {
	now := time.Now().UTC()
	u.ID = newID()
	u.CreatedAt, u.UpdatedAt = now, now
	model := userToModel(u)
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		return "", translateError(err)
	}
	return u.ID, nil
}

// GetUserByID returns a user by ID.
func (s *GormStore) GetUserByID(ctx context.Context, id string) (domain.User, bool, error) {
	if !validID(id) {
		return domain.User{}, false, nil
	}
	model, ok, err := first[UserModel](ctx, s.db, "id = ?", id)
	if err != nil || !ok {
		return domain.User{}, ok, err
	}
	return userFromModel(model), true, nil
}

// GetUserByEmail looks up a user by email.
func (s *GormStore) GetUserByEmail(ctx context.Context, email string) (domain.User, bool, error) {
	model, ok, err := first[UserModel](ctx, s.db, "email = ?", email)
	if err != nil || !ok {
		return domain.User{}, ok, err
	}
	return userFromModel(model), true, nil
}

// GetUserByUsername looks up a user by username.
func (s *GormStore) GetUserByUsername(ctx context.Context, username string) (domain.User, bool, error) {
	model, ok, err := first[UserModel](ctx, s.db, "username = ?", username)
	if err != nil || !ok {
		return domain.User{}, ok, err
	}
	return userFromModel(model), true, nil
}

// UpdateUser merges the provided profile fields.
func (s *GormStore) UpdateUser(ctx context.Context, id string, patch domain.UserUpdate) (int64, error) {
	updates := userUpdates(patch)
	if len(updates) > 0 {
		updates["updated_at"] = time.Now().UTC()
	}
	return update[UserModel](ctx, s.db, id, updates)
}

// DeleteUser removes a user.
func (s *GormStore) DeleteUser(ctx context.Context, id string) (int64, error) {
	return remove[UserModel](ctx, s.db, id)
}

// ListBooks returns all books ordered by created_at.
func (s *GormStore) ListBooks(ctx context.Context) ([]domain.Book, error) {
	var models []BookModel
	if err := s.db.WithContext(ctx).Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Book, 0, len(models))
	for _, m := range models {
		res = append(res, bookFromModel(m))
	}
	return res, nil
}

// InsertBook stores a new book and returns its ID.
func (s *GormStore) InsertBook(ctx context.Context, b domain.Book) (string, error) {
	now := time.Now().UTC()
	b.ID = newID()
	b.CreatedAt, b.UpdatedAt = now, now
	model := bookToModel(b)
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		return "", translateError(err)
	}
	return b.ID, nil
}

// GetBook retrieves a book.
func (s *GormStore) GetBook(ctx context.Context, id string) (domain.Book, bool, error) {
	if !validID(id) {
		return domain.Book{}, false, nil
	}
	model, ok, err := first[BookModel](ctx, s.db, "id = ?", id)
	if err != nil || !ok {
		return domain.Book{}, ok, err
	}
	return bookFromModel(model), true, nil
}

// UpdateBook merges the provided book fields.
func (s *GormStore) UpdateBook(ctx context.Context, id string, patch domain.BookUpdate) (int64, error) {
	updates := bookUpdates(patch)
	if len(updates) > 0 {
		updates["updated_at"] = time.Now().UTC()
	}
	return update[BookModel](ctx, s.db, id, updates)
}

// DeleteBook removes a book record. The stored file is handled by the caller.
func (s *GormStore) DeleteBook(ctx context.Context, id string) (int64, error) {
	return remove[BookModel](ctx, s.db, id)
}

// ListAuthors returns all authors in insertion order.
func (s *GormStore) ListAuthors(ctx context.Context) ([]domain.Author, error) {
	var models []AuthorModel
	if err := s.db.WithContext(ctx).Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Author, 0, len(models))
	for _, m := range models {
		res = append(res, authorFromModel(m))
	}
	return res, nil
}

// InsertAuthor stores a new author and returns its ID.
func (s *GormStore) InsertAuthor(ctx context.Context, a domain.Author) (string, error) {
	a.ID = newID()
	model := authorToModel(a)
	model.CreatedAt = time.Now().UTC()
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		return "", translateError(err)
	}
	return a.ID, nil
}

// GetAuthor retrieves an author.
func (s *GormStore) GetAuthor(ctx context.Context, id string) (domain.Author, bool, error) {
	if !validID(id) {
		return domain.Author{}, false, nil
	}
	model, ok, err := first[AuthorModel](ctx, s.db, "id = ?", id)
	if err != nil || !ok {
		return domain.Author{}, ok, err
	}
	return authorFromModel(model), true, nil
}

// UpdateAuthor merges the provided author fields.
func (s *GormStore) UpdateAuthor(ctx context.Context, id string, patch domain.AuthorUpdate) (int64, error) {
	return update[AuthorModel](ctx, s.db, id, authorUpdates(patch))
}

// DeleteAuthor removes an author.
func (s *GormStore) DeleteAuthor(ctx context.Context, id string) (int64, error) {
	return remove[AuthorModel](ctx, s.db, id)
}

// ListCategories returns all categories in insertion order.
func (s *GormStore) ListCategories(ctx context.Context) ([]domain.Category, error) {
	var models []CategoryModel
	if err := s.db.WithContext(ctx).Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Category, 0, len(models))
	for _, m := range models {
		res = append(res, categoryFromModel(m))
	}
	return res, nil
}

// InsertCategory stores a new category and returns its ID.
func (s *GormStore) InsertCategory(ctx context.Context, c domain.Category) (string, error) {
	c.ID = newID()
	model := categoryToModel(c)
	model.CreatedAt = time.Now().UTC()
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		return "", translateError(err)
	}
	return c.ID, nil
}

// GetCategory retrieves a category.
func (s *GormStore) GetCategory(ctx context.Context, id string) (domain.Category, bool, error) {
	if !validID(id) {
		return domain.Category{}, false, nil
	}
	model, ok, err := first[CategoryModel](ctx, s.db, "id = ?", id)
	if err != nil || !ok {
		return domain.Category{}, ok, err
	}
	return categoryFromModel(model), true, nil
}

// UpdateCategory merges the provided category fields.
func (s *GormStore) UpdateCategory(ctx context.Context, id string, patch domain.CategoryUpdate) (int64, error) {
	return update[CategoryModel](ctx, s.db, id, categoryUpdates(patch))
}

// DeleteCategory removes a category.
func (s *GormStore) DeleteCategory(ctx context.Context, id string) (int64, error) {
	return remove[CategoryModel](ctx, s.db, id)
}
