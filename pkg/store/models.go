package store

import (
	"time"

	"booklibrary/pkg/domain"
)

// GORM models used for persistence.
type UserModel struct {
	ID           string `gorm:"primaryKey;size:24"`
	Username     string `gorm:"uniqueIndex;not null"`
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	ProfileImage string
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

type BookModel struct {
	ID               string `gorm:"primaryKey;size:24"`
	OwnerID          string `gorm:"not null;index"`
	Title            string `gorm:"not null"`
	CategoryID       string `gorm:"index"`
	AuthorID         string `gorm:"index"`
	Description      string
	Image            string
	FilePath         string `gorm:"not null"`
	OriginalFilename string
	PageCount        int
	CreatedAt        time.Time `gorm:"not null;index"`
	UpdatedAt        time.Time `gorm:"not null"`
}

type AuthorModel struct {
	ID        string `gorm:"primaryKey;size:24"`
	Name      string `gorm:"not null"`
	Bio       string
	Image     string
	CreatedAt time.Time `gorm:"not null;index"`
}

type CategoryModel struct {
	ID          string `gorm:"primaryKey;size:24"`
	Name        string `gorm:"not null"`
	Description string
	CreatedAt   time.Time `gorm:"not null;index"`
}

func userToModel(u domain.User) UserModel {
	return UserModel{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		ProfileImage: u.ProfileImage,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func userFromModel(m UserModel) domain.User {
	return domain.User{
		ID:           m.ID,
		Username:     m.Username,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		ProfileImage: m.ProfileImage,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func bookToModel(b domain.Book) BookModel {
	return BookModel{
		ID:               b.ID,
		OwnerID:          b.OwnerID,
		Title:            b.Title,
		CategoryID:       b.CategoryID,
		AuthorID:         b.AuthorID,
		Description:      b.Description,
		Image:            b.Image,
		FilePath:         b.FilePath,
		OriginalFilename: b.OriginalFilename,
		PageCount:        b.PageCount,
		CreatedAt:        b.CreatedAt,
		UpdatedAt:        b.UpdatedAt,
	}
}

func bookFromModel(m BookModel) domain.Book {
	return domain.Book{
		ID:               m.ID,
		OwnerID:          m.OwnerID,
		Title:            m.Title,
		CategoryID:       m.CategoryID,
		AuthorID:         m.AuthorID,
		Description:      m.Description,
		Image:            m.Image,
		FilePath:         m.FilePath,
		OriginalFilename: m.OriginalFilename,
		PageCount:        m.PageCount,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

func authorToModel(a domain.Author) AuthorModel {
	return AuthorModel{ID: a.ID, Name: a.Name, Bio: a.Bio, Image: a.Image}
}

func authorFromModel(m AuthorModel) domain.Author {
	return domain.Author{ID: m.ID, Name: m.Name, Bio: m.Bio, Image: m.Image}
}

func categoryToModel(c domain.Category) CategoryModel {
	return CategoryModel{ID: c.ID, Name: c.Name, Description: c.Description}
}

func categoryFromModel(m CategoryModel) domain.Category {
	return domain.Category{ID: m.ID, Name: m.Name, Description: m.Description}
}

// userUpdates converts a partial user change to column assignments.
func userUpdates(patch domain.UserUpdate) map[string]any {
	updates := map[string]any{}
	if patch.Username != nil {
		updates["username"] = *patch.Username
	}
	if patch.Email != nil {
		updates["email"] = *patch.Email
	}
	if patch.ProfileImage != nil {
		updates["profile_image"] = *patch.ProfileImage
	}
	return updates
}

func bookUpdates(patch domain.BookUpdate) map[string]any {
	updates := map[string]any{}
	if patch.Title != nil {
		updates["title"] = *patch.Title
	}
	if patch.Description != nil {
		updates["description"] = *patch.Description
	}
	if patch.Image != nil {
		updates["image"] = *patch.Image
	}
	if patch.FilePath != nil {
		updates["file_path"] = *patch.FilePath
	}
	if patch.OriginalFilename != nil {
		updates["original_filename"] = *patch.OriginalFilename
	}
	if patch.PageCount != nil {
		updates["page_count"] = *patch.PageCount
	}
	return updates
}

func authorUpdates(patch domain.AuthorUpdate) map[string]any {
	updates := map[string]any{}
	if patch.Name != nil {
		updates["name"] = *patch.Name
	}
	if patch.Bio != nil {
		updates["bio"] = *patch.Bio
	}
	if patch.Image != nil {
		updates["image"] = *patch.Image
	}
	return updates
}

func categoryUpdates(patch domain.CategoryUpdate) map[string]any {
	updates := map[string]any{}
	if patch.Name != nil {
		updates["name"] = *patch.Name
	}
	if patch.Description != nil {
		updates["description"] = *patch.Description
	}
	return updates
}
