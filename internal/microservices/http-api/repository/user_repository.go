package repository

import (
	"context"
	"fmt"
	"time"

	"homelibrary/internal/microservices/http-api/models"

	"gorm.io/gorm"
)

// UserRepository defines the interface for user data operations.
// Lookups return users with Groups.Permissions and Permissions loaded so
// HasPerm works on the result.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	Update(ctx context.Context, user *models.User) error
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
	AddPermission(ctx context.Context, userID string, perm models.Permission) error
	Delete(ctx context.Context, id string) error
}

// userRepository is the GORM implementation of UserRepository.
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new instance of UserRepository in a GORM implementation
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func withAccess(db *gorm.DB) *gorm.DB {
	return db.Preload("Groups.Permissions").Preload("Permissions")
}

// Create: inserts the user with its group links. user.Groups must be persisted groups.
func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.User{}).Where("username = ?", user.Username).Count(&n).Error; err != nil {
			return fmt.Errorf("check username: %w", err)
		}
		if n > 0 {
			return &DuplicateKeyError{Entity: "user", Field: "username", Value: user.Username}
		}
		if err := tx.Create(user).Error; err != nil {
			if isUniqueViolation(err) {
				return &DuplicateKeyError{Entity: "user", Field: "username", Value: user.Username}
			}
			return fmt.Errorf("create user: %w", err)
		}
		return nil
	})
}

func (r *userRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	// return nil on failure, a zero-value user would look like a found one
	if err := withAccess(r.db.WithContext(ctx)).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (r *userRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := withAccess(r.db.WithContext(ctx)).First(&user, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// List: newest accounts first.
func (r *userRepository) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).
		Preload("Groups").
		Order("date_joined desc, id asc").
		Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// Update: writes profile fields and replaces the group set with user.Groups.
func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.User{ID: user.ID}).Updates(map[string]any{
			"email":         user.Email,
			"password_hash": user.Password,
			"is_active":     user.IsActive,
			"is_superuser":  user.IsSuperuser,
		})
		if res.Error != nil {
			return fmt.Errorf("update user: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}

		groups := user.Groups
		if groups == nil {
			groups = []models.Group{}
		}
		if err := tx.Model(&models.User{ID: user.ID}).Association("Groups").Replace(groups); err != nil {
			return fmt.Errorf("replace user groups: %w", err)
		}
		return nil
	})
}

func (r *userRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("last_login", at).Error
}

// AddPermission: grants perm directly to the user. Granting twice is a no-op.
func (r *userRepository) AddPermission(ctx context.Context, userID string, perm models.Permission) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user := models.User{ID: userID}
		if err := tx.Select("id").First(&user, "id = ?", userID).Error; err != nil {
			return notFound(err)
		}
		var n int64
		if err := tx.Table("user_permissions").
			Where("user_id = ? AND permission_id = ?", userID, perm.ID).
			Count(&n).Error; err != nil {
			return fmt.Errorf("check user permission: %w", err)
		}
		if n > 0 {
			return nil
		}
		if err := tx.Model(&user).Association("Permissions").Append(&perm); err != nil {
			return fmt.Errorf("grant permission: %w", err)
		}
		return nil
	})
}

// Delete: copies the user was borrowing keep existing with no borrower.
func (r *userRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user := models.User{ID: id}
		if err := tx.Select("id").First(&user, "id = ?", id).Error; err != nil {
			return notFound(err)
		}
		if err := tx.Model(&models.BookInstance{}).Where("borrower_id = ?", id).Update("borrower_id", nil).Error; err != nil {
			return fmt.Errorf("detach borrowed copies: %w", err)
		}
		if err := tx.Model(&user).Association("Groups").Clear(); err != nil {
			return fmt.Errorf("clear user groups: %w", err)
		}
		if err := tx.Model(&user).Association("Permissions").Clear(); err != nil {
			return fmt.Errorf("clear user permissions: %w", err)
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.RefreshToken{}).Error; err != nil {
			return fmt.Errorf("delete refresh tokens: %w", err)
		}
		if err := tx.Delete(&models.User{}, "id = ?", id).Error; err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		return nil
	})
}
