package repository

import (
	"context"
	"errors"
	"fmt"

	"echofm/model"

	"gorm.io/gorm"
)

// UserRepository persists user accounts.
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a user repository over the given connection.
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// CreateUser adds a new user and fills in its generated id.
func (r *UserRepository) CreateUser(ctx context.Context, user *model.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("create user %s: %w", user.Username, err)
	}
	return nil
}

// GetUserByID returns the user with the given id, or nil when absent.
func (r *UserRepository) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find user %d: %w", id, err)
	}
	return &user, nil
}

// GetUserByUsername returns the user with the given username, or nil.
func (r *UserRepository) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).First(&user, "username = ?", username).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find user %s: %w", username, err)
	}
	return &user, nil
}

// GetUserByEmail returns the user with the given email, or nil.
func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).First(&user, "email = ?", email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &user, nil
}
