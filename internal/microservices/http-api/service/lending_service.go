package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"homelibrary/internal/microservices/http-api/models"
	"homelibrary/internal/microservices/http-api/repository"

	"github.com/google/uuid"
)

const (
	// DefaultRenewalPeriod is what the renewal form proposes.
	DefaultRenewalPeriod = 21 * 24 * time.Hour
	// MaxRenewalPeriod is the furthest a due date may be moved ahead of today.
	MaxRenewalPeriod = 28 * 24 * time.Hour
)

// Clock returns the current instant. Services only ever look at its calendar date.
type Clock func() time.Time

// IsOverdue reports whether inst has a due date strictly before today.
func IsOverdue(inst *models.BookInstance, today time.Time) bool {
	if inst == nil || inst.DueBack == nil {
		return false
	}
	return models.DateOf(today).After(models.DateOf(*inst.DueBack))
}

// ValidateRenewal accepts dates from today up to and including today+28d.
func ValidateRenewal(proposed, today time.Time) error {
	p, t := models.DateOf(proposed), models.DateOf(today)
	if p.Before(t) {
		return &RenewalError{Kind: RenewalPast}
	}
	if p.After(t.Add(MaxRenewalPeriod)) {
		return &RenewalError{Kind: RenewalTooFar}
	}
	return nil
}

func DefaultRenewalDate(today time.Time) time.Time {
	return models.DateOf(today).Add(DefaultRenewalPeriod)
}

// InstanceInput is the editable part of a BookInstance. Version, when set,
// must match the stored copy or the update fails as stale.
type InstanceInput struct {
	BookID     int64
	Imprint    string
	DueBack    *time.Time
	BorrowerID *string
	Status     models.LoanStatus
	Version    int64
}

type LendingService interface {
	Today() time.Time
	GetInstance(ctx context.Context, id uuid.UUID) (*models.BookInstance, error)
	Renew(ctx context.Context, id uuid.UUID, proposed time.Time) (*models.BookInstance, error)
	MarkReturned(ctx context.Context, id uuid.UUID) (*models.BookInstance, error)
	CreateInstance(ctx context.Context, in InstanceInput) (*models.BookInstance, error)
	UpdateInstance(ctx context.Context, id uuid.UUID, in InstanceInput) (*models.BookInstance, error)
	// DeleteInstance returns the id of the book the copy belonged to.
	DeleteInstance(ctx context.Context, id uuid.UUID) (int64, error)
}

type lendingService struct {
	instances repository.BookInstanceRepository
	books     repository.BookRepository
	users     repository.UserRepository
	clock     Clock
}

func NewLendingService(
	instances repository.BookInstanceRepository,
	books repository.BookRepository,
	users repository.UserRepository,
	clock Clock,
) LendingService {
	if clock == nil {
		clock = time.Now
	}
	return &lendingService{instances: instances, books: books, users: users, clock: clock}
}

// Today is the current calendar day in UTC, whatever zone the clock reports in.
func (s *lendingService) Today() time.Time {
	return models.DateOf(s.clock().UTC())
}

func (s *lendingService) GetInstance(ctx context.Context, id uuid.UUID) (*models.BookInstance, error) {
	return s.instances.GetByID(ctx, id)
}

// Renew moves the due date. Status and borrower are left as they are.
func (s *lendingService) Renew(ctx context.Context, id uuid.UUID, proposed time.Time) (*models.BookInstance, error) {
	inst, err := s.instances.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := ValidateRenewal(proposed, s.Today()); err != nil {
		return nil, err
	}

	due := models.DateOf(proposed)
	inst.DueBack = &due
	if err := s.instances.Update(ctx, inst); err != nil {
		return nil, err
	}
	return inst, nil
}

func (s *lendingService) MarkReturned(ctx context.Context, id uuid.UUID) (*models.BookInstance, error) {
	inst, err := s.instances.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	inst.Status = models.StatusAvailable
	inst.BorrowerID = nil
	inst.Borrower = nil
	inst.DueBack = nil
	if err := s.instances.Update(ctx, inst); err != nil {
		return nil, err
	}
	return inst, nil
}

func (s *lendingService) validate(ctx context.Context, in *InstanceInput) error {
	verr := &ValidationError{}

	in.Imprint = strings.TrimSpace(in.Imprint)
	if in.Imprint == "" {
		verr.Add("imprint", "This field is required.")
	} else if len(in.Imprint) > 200 {
		verr.Add("imprint", "Ensure this value has at most 200 characters.")
	}

	if in.Status == "" {
		in.Status = models.StatusMaintenance
	}
	if !in.Status.Valid() {
		verr.Add("status", "Select a valid choice. "+string(in.Status)+" is not one of the available choices.")
	}

	if _, err := s.books.GetByID(ctx, in.BookID); err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		verr.Add("book", "Select a valid choice. That choice is not one of the available choices.")
	}

	if in.BorrowerID != nil && *in.BorrowerID == "" {
		in.BorrowerID = nil
	}
	if in.BorrowerID != nil {
		if _, err := s.users.FindByID(ctx, *in.BorrowerID); err != nil {
			if !errors.Is(err, repository.ErrNotFound) {
				return err
			}
			verr.Add("borrower", "Select a valid choice. That choice is not one of the available choices.")
		}
	}

	if in.DueBack != nil {
		d := models.DateOf(*in.DueBack)
		in.DueBack = &d
	}
	return verr.OrNil()
}

func (s *lendingService) CreateInstance(ctx context.Context, in InstanceInput) (*models.BookInstance, error) {
	if err := s.validate(ctx, &in); err != nil {
		return nil, err
	}
	inst := &models.BookInstance{
		BookID:     in.BookID,
		Imprint:    in.Imprint,
		DueBack:    in.DueBack,
		BorrowerID: in.BorrowerID,
		Status:     in.Status,
	}
	if err := s.instances.Create(ctx, inst); err != nil {
		return nil, err
	}
	return inst, nil
}

func (s *lendingService) UpdateInstance(ctx context.Context, id uuid.UUID, in InstanceInput) (*models.BookInstance, error) {
	inst, err := s.instances.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.validate(ctx, &in); err != nil {
		return nil, err
	}

	if in.BookID != inst.BookID {
		inst.Book = nil
	}
	inst.BookID = in.BookID
	inst.Imprint = in.Imprint
	inst.DueBack = in.DueBack
	inst.BorrowerID = in.BorrowerID
	inst.Borrower = nil
	inst.Status = in.Status
	if in.Version != 0 {
		inst.Version = in.Version
	}
	if err := s.instances.Update(ctx, inst); err != nil {
		return nil, err
	}
	return inst, nil
}

func (s *lendingService) DeleteInstance(ctx context.Context, id uuid.UUID) (int64, error) {
	inst, err := s.instances.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}
	if err := s.instances.Delete(ctx, id); err != nil {
		return 0, err
	}
	return inst.BookID, nil
}
