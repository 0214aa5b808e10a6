package repository

import (
	"context"
	"fmt"

	"homelibrary/internal/microservices/http-api/models"

	"gorm.io/gorm"
)

type AuthorRepository interface {
	List(ctx context.Context, page PageRequest) (Page[models.Author], error)
	GetByID(ctx context.Context, id int64) (*models.Author, error)
	Create(ctx context.Context, a *models.Author) error
	Update(ctx context.Context, a *models.Author) error
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int64, error)
}

type authorRepository struct {
	db *gorm.DB
}

func NewAuthorRepository(db *gorm.DB) AuthorRepository {
	return &authorRepository{db: db}
}

// List orders by last name, then first name. id breaks ties so pages are stable.
func (r *authorRepository) List(ctx context.Context, page PageRequest) (Page[models.Author], error) {
	db := r.db.WithContext(ctx)
	p, err := findPage[models.Author](
		db.Model(&models.Author{}),
		db.Order("last_name asc, first_name asc, id asc"),
		page,
	)
	if err != nil {
		return Page[models.Author]{}, fmt.Errorf("list authors: %w", err)
	}
	return p, nil
}

func (r *authorRepository) GetByID(ctx context.Context, id int64) (*models.Author, error) {
	var a models.Author
	if err := r.db.WithContext(ctx).First(&a, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

func (r *authorRepository) Create(ctx context.Context, a *models.Author) error {
	if err := r.db.WithContext(ctx).Create(a).Error; err != nil {
		return fmt.Errorf("create author: %w", err)
	}
	return nil
}

func (r *authorRepository) Update(ctx context.Context, a *models.Author) error {
	res := r.db.WithContext(ctx).Model(&models.Author{ID: a.ID}).Updates(map[string]any{
		"first_name":    a.FirstName,
		"last_name":     a.LastName,
		"date_of_birth": nullableTime(a.DateOfBirth),
		"date_of_death": nullableTime(a.DateOfDeath),
	})
	if res.Error != nil {
		return fmt.Errorf("update author: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete detaches the author's books (author_id = NULL) and removes the author.
// Books are never deleted with it.
func (r *authorRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&models.Author{}, id).Error; err != nil {
			return notFound(err)
		}
		if err := tx.Model(&models.Book{}).Where("author_id = ?", id).Update("author_id", nil).Error; err != nil {
			return fmt.Errorf("detach books from author: %w", err)
		}
		if err := tx.Delete(&models.Author{}, id).Error; err != nil {
			return fmt.Errorf("delete author: %w", err)
		}
		return nil
	})
}

func (r *authorRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Author{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count authors: %w", err)
	}
	return n, nil
}
