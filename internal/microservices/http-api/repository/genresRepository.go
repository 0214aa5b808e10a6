package repository

import (
	"context"
	"fmt"

	"homelibrary/internal/microservices/http-api/models"

	"gorm.io/gorm"
)

type GenreRepository interface {
	GetAll(ctx context.Context) ([]models.Genre, error)
	Create(ctx context.Context, g *models.Genre) error
	FindByIDs(ctx context.Context, ids []int64) ([]models.Genre, error)
	Count(ctx context.Context) (int64, error)
	Delete(ctx context.Context, id int64) error
}

type genreRepository struct {
	db *gorm.DB
}

func NewGenreRepository(db *gorm.DB) GenreRepository {
	return &genreRepository{db: db}
}

func (r *genreRepository) GetAll(ctx context.Context) ([]models.Genre, error) {
	var list []models.Genre
	if err := r.db.WithContext(ctx).Order("name asc").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("get genres: %w", err)
	}
	return list, nil
}

func (r *genreRepository) Create(ctx context.Context, g *models.Genre) error {
	if err := r.db.WithContext(ctx).Create(g).Error; err != nil {
		return fmt.Errorf("create genre: %w", err)
	}
	return nil
}

// FindByIDs loads the genres with the given ids. Unknown ids are simply
// absent from the result, callers compare lengths to detect them.
func (r *genreRepository) FindByIDs(ctx context.Context, ids []int64) ([]models.Genre, error) {
	if len(ids) == 0 {
		return []models.Genre{}, nil
	}
	var list []models.Genre
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("name asc").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("find genres: %w", err)
	}
	return list, nil
}

func (r *genreRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Genre{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count genres: %w", err)
	}
	return n, nil
}

// Delete removes the genre and its book links. Books themselves are untouched.
func (r *genreRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM book_genres WHERE genre_id = ?", id).Error; err != nil {
			return fmt.Errorf("unlink genre: %w", err)
		}
		res := tx.Delete(&models.Genre{}, id)
		if res.Error != nil {
			return fmt.Errorf("delete genre: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

type LanguageRepository interface {
	GetAll(ctx context.Context) ([]models.Language, error)
	GetByID(ctx context.Context, id int64) (*models.Language, error)
	Create(ctx context.Context, l *models.Language) error
	Delete(ctx context.Context, id int64) error
}

type languageRepository struct {
	db *gorm.DB
}

func NewLanguageRepository(db *gorm.DB) LanguageRepository {
	return &languageRepository{db: db}
}

func (r *languageRepository) GetAll(ctx context.Context) ([]models.Language, error) {
	var list []models.Language
	if err := r.db.WithContext(ctx).Order("name asc").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("get languages: %w", err)
	}
	return list, nil
}

func (r *languageRepository) GetByID(ctx context.Context, id int64) (*models.Language, error) {
	var l models.Language
	if err := r.db.WithContext(ctx).First(&l, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &l, nil
}

func (r *languageRepository) Create(ctx context.Context, l *models.Language) error {
	if err := r.db.WithContext(ctx).Create(l).Error; err != nil {
		return fmt.Errorf("create language: %w", err)
	}
	return nil
}

// Delete nulls books.language_id on every referencing book, then removes the language.
func (r *languageRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&models.Language{}, id).Error; err != nil {
			return notFound(err)
		}
		if err := tx.Model(&models.Book{}).Where("language_id = ?", id).Update("language_id", nil).Error; err != nil {
			return fmt.Errorf("detach books from language: %w", err)
		}
		if err := tx.Delete(&models.Language{}, id).Error; err != nil {
			return fmt.Errorf("delete language: %w", err)
		}
		return nil
	})
}
