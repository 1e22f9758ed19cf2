package domain

import (
	"encoding/json"
	"time"
)

// UploadsPath is the route prefix that serves stored files by reference.
const UploadsPath = "/uploads/"

// User is an account holder. PasswordHash never leaves the process; use Public for output.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	ProfileImage string    `json:"profileImage,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// UserPublic is the externally visible projection of a user.
type UserPublic struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	ProfileImage string `json:"profileImage,omitempty"`
}

// Public strips credentials from the user.
func (u User) Public() UserPublic {
	return UserPublic{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		ProfileImage: u.ProfileImage,
	}
}

// UserUpdate carries a partial profile change. Nil fields are left untouched.
type UserUpdate struct {
	Username     *string `json:"username,omitempty"`
	Email        *string `json:"email,omitempty"`
	ProfileImage *string `json:"profileImage,omitempty"`
}

// Book is an uploaded PDF owned by the user who uploaded it.
type Book struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	CategoryID       string    `json:"categoryId"`
	AuthorID         string    `json:"authorId"`
	Description      string    `json:"description,omitempty"`
	Image            string    `json:"image,omitempty"`
	FilePath         string    `json:"filePath"`
	OriginalFilename string    `json:"originalFilename,omitempty"`
	PageCount        int       `json:"pageCount,omitempty"`
	OwnerID          string    `json:"ownerUserId"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// FileURL returns the path that serves the book's stored file.
func (b Book) FileURL() string {
	if b.FilePath == "" {
		return ""
	}
	return UploadsPath + b.FilePath
}

// MarshalJSON adds the derived fileUrl to the stored fields.
func (b Book) MarshalJSON() ([]byte, error) {
	type book Book
	return json.Marshal(struct {
		book
		FileURL string `json:"fileUrl,omitempty"`
	}{book: book(b), FileURL: b.FileURL()})
}

// BookUpdate carries a partial book change. Nil fields are left untouched.
type BookUpdate struct {
	Title            *string
	Description      *string
	Image            *string
	FilePath         *string
	OriginalFilename *string
	PageCount        *int
}

// Author is a book author. Authors carry no ownership.
type Author struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Bio   string `json:"bio,omitempty"`
	Image string `json:"image,omitempty"`
}

// Category groups books.
type Category struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// AuthorUpdate carries a partial author change. Nil fields are left untouched.
type AuthorUpdate struct {
	Name  *string
	Bio   *string
	Image *string
}

// CategoryUpdate carries a partial category change. Nil fields are left untouched.
type CategoryUpdate struct {
	Name        *string
	Description *string
}
