package repository

import (
	"context"
	"fmt"
	"time"

	"homelibrary/internal/microservices/http-api/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InstanceFilter narrows an instance listing. Nil fields do not filter.
type InstanceFilter struct {
	BorrowerID *string
	Status     *models.LoanStatus
	BookID     *int64
}

// InstanceSort names an ordering for instance listings.
type InstanceSort int

// InstanceSortDueBack orders by due date, undated copies last.
const InstanceSortDueBack InstanceSort = iota

func (s InstanceSort) orderClause() string {
	return "due_back asc NULLS LAST, id asc"
}

type BookInstanceRepository interface {
	List(ctx context.Context, filter InstanceFilter, sort InstanceSort, page PageRequest) (Page[models.BookInstance], error)
	ListByBook(ctx context.Context, bookID int64) ([]models.BookInstance, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.BookInstance, error)
	Create(ctx context.Context, inst *models.BookInstance) error
	Update(ctx context.Context, inst *models.BookInstance) error
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context, filter InstanceFilter) (int64, error)
}

type bookInstanceRepository struct {
	db *gorm.DB
}

func NewBookInstanceRepository(db *gorm.DB) BookInstanceRepository {
	return &bookInstanceRepository{db: db}
}

func applyInstanceFilter(q *gorm.DB, f InstanceFilter) *gorm.DB {
	if f.BorrowerID != nil {
		q = q.Where("borrower_id = ?", *f.BorrowerID)
	}
	if f.Status != nil {
		q = q.Where("status = ?", string(*f.Status))
	}
	if f.BookID != nil {
		q = q.Where("book_id = ?", *f.BookID)
	}
	return q
}

func (r *bookInstanceRepository) List(ctx context.Context, filter InstanceFilter, sort InstanceSort, page PageRequest) (Page[models.BookInstance], error) {
	db := r.db.WithContext(ctx)
	count := applyInstanceFilter(db.Model(&models.BookInstance{}), filter)
	find := applyInstanceFilter(db.Model(&models.BookInstance{}), filter).
		Preload("Book").
		Preload("Borrower").
		Order(sort.orderClause())

	p, err := findPage[models.BookInstance](count, find, page)
	if err != nil {
		return Page[models.BookInstance]{}, fmt.Errorf("list book instances: %w", err)
	}
	return p, nil
}

func (r *bookInstanceRepository) ListByBook(ctx context.Context, bookID int64) ([]models.BookInstance, error) {
	var list []models.BookInstance
	if err := r.db.WithContext(ctx).
		Where("book_id = ?", bookID).
		Preload("Borrower").
		Order(InstanceSortDueBack.orderClause()).
		Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list copies of book: %w", err)
	}
	return list, nil
}

func (r *bookInstanceRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.BookInstance, error) {
	var inst models.BookInstance
	if err := r.db.WithContext(ctx).
		Preload("Book.Author").
		Preload("Borrower").
		First(&inst, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &inst, nil
}

func (r *bookInstanceRepository) Create(ctx context.Context, inst *models.BookInstance) error {
	if err := r.db.WithContext(ctx).Omit("Book", "Borrower").Create(inst).Error; err != nil {
		if isForeignKeyViolation(err) {
			return &ReferentialIntegrityError{Entity: "book instance", ID: inst.ID.String()}
		}
		return fmt.Errorf("create book instance: %w", err)
	}
	return nil
}

// Update writes every mutable field when the stored version still equals
// inst.Version, and bumps the version. Otherwise nothing changes and the
// result is StaleObjectError (or ErrNotFound when the row is gone).
func (r *bookInstanceRepository) Update(ctx context.Context, inst *models.BookInstance) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.BookInstance{}).
			Where("id = ? AND version = ?", inst.ID, inst.Version).
			Updates(map[string]any{
				"book_id":     inst.BookID,
				"imprint":     inst.Imprint,
				"due_back":    nullableTime(inst.DueBack),
				"borrower_id": nullableString(inst.BorrowerID),
				"status":      string(inst.Status),
				"version":     gorm.Expr("version + 1"),
			})
		if res.Error != nil {
			if isForeignKeyViolation(res.Error) {
				return &ReferentialIntegrityError{Entity: "book instance", ID: inst.ID.String()}
			}
			return fmt.Errorf("update book instance: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			var n int64
			if err := tx.Model(&models.BookInstance{}).Where("id = ?", inst.ID).Count(&n).Error; err != nil {
				return fmt.Errorf("update book instance: %w", err)
			}
			if n == 0 {
				return ErrNotFound
			}
			return &StaleObjectError{Entity: "book instance", ID: inst.ID.String()}
		}
		inst.Version++
		return nil
	})
}

func (r *bookInstanceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&models.BookInstance{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("delete book instance: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *bookInstanceRepository) Count(ctx context.Context, filter InstanceFilter) (int64, error) {
	var n int64
	if err := applyInstanceFilter(r.db.WithContext(ctx).Model(&models.BookInstance{}), filter).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count book instances: %w", err)
	}
	return n, nil
}

// nullable* unwrap optional fields for map updates so nil writes SQL NULL.

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func nullableString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullableInt(i *int64) any {
	if i == nil {
		return nil
	}
	return *i
}
