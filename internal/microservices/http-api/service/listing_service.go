package service

import (
	"context"

	"homelibrary/internal/microservices/http-api/models"
	"homelibrary/internal/microservices/http-api/repository"
)

// PageSize is the page length of every catalog listing.
const PageSize = 10

// ListingService serves the paginated, read-only catalog views.
type ListingService interface {
	Authors(ctx context.Context, page int) (repository.Page[models.Author], error)
	Books(ctx context.Context, page int) (repository.Page[models.Book], error)
	// BorrowedBy lists copies on loan to userID, soonest due first.
	BorrowedBy(ctx context.Context, userID string, page int) (repository.Page[models.BookInstance], error)
	// AllBorrowed lists every copy on loan, soonest due first.
	AllBorrowed(ctx context.Context, page int) (repository.Page[models.BookInstance], error)
}

type listingService struct {
	authors   repository.AuthorRepository
	books     repository.BookRepository
	instances repository.BookInstanceRepository
}

func NewListingService(
	authors repository.AuthorRepository,
	books repository.BookRepository,
	instances repository.BookInstanceRepository,
) ListingService {
	return &listingService{authors: authors, books: books, instances: instances}
}

func pageOf(n int) repository.PageRequest {
	return repository.PageRequest{Number: n, Size: PageSize}
}

func (s *listingService) Authors(ctx context.Context, page int) (repository.Page[models.Author], error) {
	return s.authors.List(ctx, pageOf(page))
}

func (s *listingService) Books(ctx context.Context, page int) (repository.Page[models.Book], error) {
	return s.books.List(ctx, pageOf(page))
}

func (s *listingService) BorrowedBy(ctx context.Context, userID string, page int) (repository.Page[models.BookInstance], error) {
	onLoan := models.StatusOnLoan
	filter := repository.InstanceFilter{BorrowerID: &userID, Status: &onLoan}
	return s.instances.List(ctx, filter, repository.InstanceSortDueBack, pageOf(page))
}

func (s *listingService) AllBorrowed(ctx context.Context, page int) (repository.Page[models.BookInstance], error) {
	onLoan := models.StatusOnLoan
	filter := repository.InstanceFilter{Status: &onLoan}
	return s.instances.List(ctx, filter, repository.InstanceSortDueBack, pageOf(page))
}
