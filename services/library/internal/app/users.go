package app

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"booklibrary/pkg/auth"
	"booklibrary/pkg/domain"
	"booklibrary/pkg/store"
)

const (
	maxUsernameLength = 64
	maxPasswordBytes  = 72
)

// RegisterInput is the payload of a registration request.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// normalizeEmail trims and lower-cases an address. Stored emails are always normalized.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	if email == "" {
		return validationError("email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return validationError("email is not a valid address")
	}
	return nil
}

func validateUsername(username string) error {
	if username == "" {
		return validationError("username is required")
	}
	if len(username) > maxUsernameLength {
		return validationError("username must be at most %d characters", maxUsernameLength)
	}
	return nil
}

// Register creates a new account. Email and username must be unused.
func (a *App) Register(ctx context.Context, in RegisterInput) (domain.User, error) {
	username := strings.TrimSpace(in.Username)
	email := normalizeEmail(in.Email)
	if err := validateUsername(username); err != nil {
		return domain.User{}, err
	}
	if err := validateEmail(email); err != nil {
		return domain.User{}, err
	}
	if in.Password == "" {
		return domain.User{}, validationError("password is required")
	}
	if len(in.Password) > maxPasswordBytes {
		return domain.User{}, validationError("password must be at most %d bytes", maxPasswordBytes)
	}

	if _, exists, err := a.store.GetUserByEmail(ctx, email); err != nil {
		return domain.User{}, fmt.Errorf("check email: %w", err)
	} else if exists {
		return domain.User{}, ErrEmailTaken
	}
	if _, exists, err := a.store.GetUserByUsername(ctx, username); err != nil {
		return domain.User{}, fmt.Errorf("check username: %w", err)
	} else if exists {
		return domain.User{}, ErrUsernameTaken
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return domain.User{}, validationError("password is too long")
		}
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}
	user := domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	}
	id, err := a.store.InsertUser(ctx, user)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return domain.User{}, fmt.Errorf("%w: account already exists", ErrConflict)
		}
		return domain.User{}, fmt.Errorf("insert user: %w", err)
	}
	user.ID = id
	return user, nil
}

// Login validates credentials and issues a session token.
// Unknown emails and wrong passwords fail with distinct errors that share ErrInvalidCredentials.
func (a *App) Login(ctx context.Context, email, password string) (domain.User, string, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return domain.User{}, "", validationError("email and password are required")
	}
	user, ok, err := a.store.GetUserByEmail(ctx, email)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		return domain.User{}, "", ErrUnknownEmail
	}
	if !auth.CheckPassword(password, user.PasswordHash) {
		return domain.User{}, "", ErrWrongPassword
	}
	token, err := a.tokens.Issue(user.ID)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("issue token: %w", err)
	}
	return user, token, nil
}

// Authenticate resolves a bearer token to its user.
// Invalid tokens and tokens for deleted users are both unauthenticated.
func (a *App) Authenticate(ctx context.Context, token string) (domain.User, error) {
	userID, err := a.tokens.Verify(token)
	if err != nil {
		return domain.User{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	user, ok, err := a.store.GetUserByID(ctx, userID)
	if err != nil {
		return domain.User{}, fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		return domain.User{}, fmt.Errorf("%w: user no longer exists", ErrUnauthenticated)
	}
	return user, nil
}

// GetUser returns a user by ID.
func (a *App) GetUser(ctx context.Context, id string) (domain.User, error) {
	user, ok, err := a.store.GetUserByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.User{}, fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		return domain.User{}, ErrNotFound
	}
	return user, nil
}

// UpdateProfile merges the provided fields into the caller's own profile.
func (a *App) UpdateProfile(ctx context.Context, user domain.User, patch domain.UserUpdate) (domain.User, error) {
	clean := domain.UserUpdate{ProfileImage: patch.ProfileImage}
	if patch.Username != nil {
		username := strings.TrimSpace(*patch.Username)
		if err := validateUsername(username); err != nil {
			return domain.User{}, err
		}
		if username != user.Username {
			other, exists, err := a.store.GetUserByUsername(ctx, username)
			if err != nil {
				return domain.User{}, fmt.Errorf("check username: %w", err)
			}
			if exists && other.ID != user.ID {
				return domain.User{}, ErrUsernameTaken
			}
		}
		clean.Username = &username
	}
	if patch.Email != nil {
		email := normalizeEmail(*patch.Email)
		if err := validateEmail(email); err != nil {
			return domain.User{}, err
		}
		if email != user.Email {
			other, exists, err := a.store.GetUserByEmail(ctx, email)
			if err != nil {
				return domain.User{}, fmt.Errorf("check email: %w", err)
			}
			if exists && other.ID != user.ID {
				return domain.User{}, ErrEmailTaken
			}
		}
		clean.Email = &email
	}

	n, err := a.store.UpdateUser(ctx, user.ID, clean)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return domain.User{}, fmt.Errorf("%w: username or email already in use", ErrConflict)
		}
		return domain.User{}, fmt.Errorf("update user: %w", err)
	}
	if n == 0 {
		return domain.User{}, ErrUnauthenticated
	}
	updated, ok, err := a.store.GetUserByID(ctx, user.ID)
	if err != nil {
		return domain.User{}, fmt.Errorf("reload user: %w", err)
	}
	if !ok {
		return domain.User{}, ErrUnauthenticated
	}
	return updated, nil
}
