package repository

import (
	"context"
	"fmt"
	"strconv"

	"homelibrary/internal/microservices/http-api/models"

	"gorm.io/gorm"
)

type BookRepository interface {
	List(ctx context.Context, page PageRequest) (Page[models.Book], error)
	GetByID(ctx context.Context, id int64) (*models.Book, error)
	Create(ctx context.Context, b *models.Book) error
	Update(ctx context.Context, b *models.Book) error
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int64, error)
	ListByAuthor(ctx context.Context, authorID int64) ([]models.Book, error)
}

type bookRepository struct {
	db *gorm.DB
}

func NewBookRepository(db *gorm.DB) BookRepository {
	return &bookRepository{db: db}
}

// List orders by title, then author name. Books without an author sort after
// those with one for the same title.
func (r *bookRepository) List(ctx context.Context, page PageRequest) (Page[models.Book], error) {
	db := r.db.WithContext(ctx)
	find := db.Model(&models.Book{}).
		Select("books.*").
		Joins("LEFT JOIN authors ON authors.id = books.author_id").
		Preload("Author").
		Preload("Genres").
		Order("books.title asc, authors.last_name asc NULLS LAST, authors.first_name asc NULLS LAST, books.id asc")

	p, err := findPage[models.Book](db.Model(&models.Book{}), find, page)
	if err != nil {
		return Page[models.Book]{}, fmt.Errorf("list books: %w", err)
	}
	return p, nil
}

func (r *bookRepository) GetByID(ctx context.Context, id int64) (*models.Book, error) {
	var b models.Book
	if err := r.db.WithContext(ctx).
		Preload("Author").
		Preload("Language").
		Preload("Genres", func(db *gorm.DB) *gorm.DB { return db.Order("genres.name asc") }).
		First(&b, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &b, nil
}

func (r *bookRepository) ListByAuthor(ctx context.Context, authorID int64) ([]models.Book, error) {
	var list []models.Book
	if err := r.db.WithContext(ctx).
		Where("author_id = ?", authorID).
		Preload("Genres").
		Order("title asc, id asc").
		Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list books by author: %w", err)
	}
	return list, nil
}

// Create inserts the book and its genre links in one transaction.
// b.Genres must hold persisted genres.
func (r *bookRepository) Create(ctx context.Context, b *models.Book) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureUniqueISBN(tx, b.ISBN, 0); err != nil {
			return err
		}
		if err := tx.Omit("Author", "Language").Create(b).Error; err != nil {
			if isUniqueViolation(err) {
				return &DuplicateKeyError{Entity: "book", Field: "isbn", Value: b.ISBN}
			}
			if isForeignKeyViolation(err) {
				return &ReferentialIntegrityError{Entity: "book", ID: "new"}
			}
			return fmt.Errorf("create book: %w", err)
		}
		return nil
	})
}

// Update rewrites the scalar fields and replaces the genre set.
func (r *bookRepository) Update(ctx context.Context, b *models.Book) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Select("id").First(&models.Book{}, b.ID).Error; err != nil {
			return notFound(err)
		}
		if err := ensureUniqueISBN(tx, b.ISBN, b.ID); err != nil {
			return err
		}
		err := tx.Model(&models.Book{ID: b.ID}).Updates(map[string]any{
			"title":       b.Title,
			"author_id":   nullableInt(b.AuthorID),
			"summary":     b.Summary,
			"isbn":        b.ISBN,
			"language_id": nullableInt(b.LanguageID),
		}).Error
		if err != nil {
			if isUniqueViolation(err) {
				return &DuplicateKeyError{Entity: "book", Field: "isbn", Value: b.ISBN}
			}
			return fmt.Errorf("update book: %w", err)
		}

		genres := b.Genres
		if genres == nil {
			genres = []models.Genre{}
		}
		if err := tx.Model(&models.Book{ID: b.ID}).Association("Genres").Replace(genres); err != nil {
			return fmt.Errorf("replace book genres: %w", err)
		}
		return nil
	})
}

// Delete refuses while any BookInstance still references the book.
func (r *bookRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Select("id").First(&models.Book{}, id).Error; err != nil {
			return notFound(err)
		}

		var copies int64
		if err := tx.Model(&models.BookInstance{}).Where("book_id = ?", id).Count(&copies).Error; err != nil {
			return fmt.Errorf("count book copies: %w", err)
		}
		if copies > 0 {
			return &ReferentialIntegrityError{Entity: "book", ID: strconv.FormatInt(id, 10), Dependents: copies}
		}

		if err := tx.Exec("DELETE FROM book_genres WHERE book_id = ?", id).Error; err != nil {
			return fmt.Errorf("unlink book genres: %w", err)
		}
		if err := tx.Delete(&models.Book{}, id).Error; err != nil {
			if isForeignKeyViolation(err) {
				return &ReferentialIntegrityError{Entity: "book", ID: strconv.FormatInt(id, 10)}
			}
			return fmt.Errorf("delete book: %w", err)
		}
		return nil
	})
}

func (r *bookRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Book{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count books: %w", err)
	}
	return n, nil
}

// ensureUniqueISBN must run inside the write transaction. exceptID skips the
// book being updated.
func ensureUniqueISBN(tx *gorm.DB, isbn string, exceptID int64) error {
	var n int64
	q := tx.Model(&models.Book{}).Where("isbn = ?", isbn)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&n).Error; err != nil {
		return fmt.Errorf("check isbn: %w", err)
	}
	if n > 0 {
		return &DuplicateKeyError{Entity: "book", Field: "isbn", Value: isbn}
	}
	return nil
}
