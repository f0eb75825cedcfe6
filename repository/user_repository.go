package repository

import (
	"errors"
	"fmt"
	"strings"

	"stillfm/model"

	"gorm.io/gorm"
)

// ErrDuplicateUser indicates the username or email is already registered.
var ErrDuplicateUser = errors.New("username or email already exists")

// UserRepository defines the interface for user data operations.
type UserRepository interface {
	Create(user *model.User) (int64, error)
	GetByID(id int64) (*model.User, error)
	GetByUsername(username string) (*model.User, error)
	GetByEmail(email string) (*model.User, error)
}

type gormUserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a GORM-backed user repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &gormUserRepository{db: db}
}

// Create inserts a new user and returns its ID.
func (r *gormUserRepository) Create(user *model.User) (int64, error) {
	if err := r.db.Create(user).Error; err != nil {
		if strings.Contains(err.Error(), "Duplicate entry") {
			return 0, ErrDuplicateUser
		}
		return 0, fmt.Errorf("failed to create user %q: %w", user.Username, err)
	}
	return user.ID, nil
}

// GetByID retrieves a user by ID. Returns (nil, nil) when not found.
func (r *gormUserRepository) GetByID(id int64) (*model.User, error) {
	var user model.User
	err := r.db.First(&user, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query user %d: %w", id, err)
	}
	return &user, nil
}

// GetByUsername retrieves a user by username. Returns (nil, nil) when not found.
func (r *gormUserRepository) GetByUsername(username string) (*model.User, error) {
	var user model.User
	err := r.db.First(&user, "username = ?", username).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query user %q: %w", username, err)
	}
	return &user, nil
}

// GetByEmail retrieves a user by email. Returns (nil, nil) when not found.
func (r *gormUserRepository) GetByEmail(email string) (*model.User, error) {
	var user model.User
	err := r.db.First(&user, "email = ?", email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query user %q: %w", email, err)
	}
	return &user, nil
}
