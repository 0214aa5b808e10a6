package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"homelibrary/internal/microservices/http-api/models"
	"homelibrary/internal/microservices/http-api/repository"
)

// Stats are the catalog counters shown on the home page.
type Stats struct {
	NumBooks              int64 `json:"num_books"`
	NumInstances          int64 `json:"num_instances"`
	NumInstancesAvailable int64 `json:"num_instances_available"`
	NumAuthors            int64 `json:"num_authors"`
	NumGenres             int64 `json:"num_genres"`
}

type AuthorInput struct {
	FirstName   string
	LastName    string
	DateOfBirth *time.Time
	DateOfDeath *time.Time
}

type BookInput struct {
	Title      string
	AuthorID   *int64
	Summary    string
	ISBN       string
	GenreIDs   []int64
	LanguageID *int64
}

// BookChoices feed the select boxes of the book form.
type BookChoices struct {
	Authors   []models.Author
	Genres    []models.Genre
	Languages []models.Language
}

type CatalogService interface {
	Stats(ctx context.Context) (*Stats, error)

	GetAuthor(ctx context.Context, id int64) (*models.Author, []models.Book, error)
	CreateAuthor(ctx context.Context, in AuthorInput) (*models.Author, error)
	UpdateAuthor(ctx context.Context, id int64, in AuthorInput) (*models.Author, error)
	DeleteAuthor(ctx context.Context, id int64) error

	GetBook(ctx context.Context, id int64) (*models.Book, []models.BookInstance, error)
	CreateBook(ctx context.Context, in BookInput) (*models.Book, error)
	UpdateBook(ctx context.Context, id int64, in BookInput) (*models.Book, error)
	DeleteBook(ctx context.Context, id int64) error
	BookChoices(ctx context.Context) (*BookChoices, error)
}

type catalogService struct {
	authors   repository.AuthorRepository
	books     repository.BookRepository
	instances repository.BookInstanceRepository
	genres    repository.GenreRepository
	languages repository.LanguageRepository
}

func NewCatalogService(
	authors repository.AuthorRepository,
	books repository.BookRepository,
	instances repository.BookInstanceRepository,
	genres repository.GenreRepository,
	languages repository.LanguageRepository,
) CatalogService {
	return &catalogService{
		authors:   authors,
		books:     books,
		instances: instances,
		genres:    genres,
		languages: languages,
	}
}

func (s *catalogService) Stats(ctx context.Context) (*Stats, error) {
	var (
		st  Stats
		err error
	)
	if st.NumBooks, err = s.books.Count(ctx); err != nil {
		return nil, err
	}
	if st.NumInstances, err = s.instances.Count(ctx, repository.InstanceFilter{}); err != nil {
		return nil, err
	}
	available := models.StatusAvailable
	if st.NumInstancesAvailable, err = s.instances.Count(ctx, repository.InstanceFilter{Status: &available}); err != nil {
		return nil, err
	}
	if st.NumAuthors, err = s.authors.Count(ctx); err != nil {
		return nil, err
	}
	if st.NumGenres, err = s.genres.Count(ctx); err != nil {
		return nil, err
	}
	return &st, nil
}

// requireText trims *v and checks it is present and at most limit runes.
func requireText(verr *ValidationError, field string, v *string, limit int) {
	*v = strings.TrimSpace(*v)
	switch {
	case *v == "":
		verr.Add(field, "This field is required.")
	case utf8.RuneCountInString(*v) > limit:
		verr.Add(field, "Ensure this value has at most "+strconv.Itoa(limit)+" characters.")
	}
}

func validateAuthor(in *AuthorInput) error {
	verr := &ValidationError{}
	requireText(verr, "first_name", &in.FirstName, 100)
	requireText(verr, "last_name", &in.LastName, 100)
	if in.DateOfBirth != nil {
		d := models.DateOf(*in.DateOfBirth)
		in.DateOfBirth = &d
	}
	if in.DateOfDeath != nil {
		d := models.DateOf(*in.DateOfDeath)
		in.DateOfDeath = &d
	}
	if in.DateOfBirth != nil && in.DateOfDeath != nil && in.DateOfDeath.Before(*in.DateOfBirth) {
		verr.Add("date_of_death", "Date of death cannot be before date of birth.")
	}
	return verr.OrNil()
}

func (s *catalogService) GetAuthor(ctx context.Context, id int64) (*models.Author, []models.Book, error) {
	a, err := s.authors.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	books, err := s.books.ListByAuthor(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return a, books, nil
}

func (s *catalogService) CreateAuthor(ctx context.Context, in AuthorInput) (*models.Author, error) {
	if err := validateAuthor(&in); err != nil {
		return nil, err
	}
	a := &models.Author{
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		DateOfBirth: in.DateOfBirth,
		DateOfDeath: in.DateOfDeath,
	}
	if err := s.authors.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *catalogService) UpdateAuthor(ctx context.Context, id int64, in AuthorInput) (*models.Author, error) {
	if err := validateAuthor(&in); err != nil {
		return nil, err
	}
	a := &models.Author{
		ID:          id,
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		DateOfBirth: in.DateOfBirth,
		DateOfDeath: in.DateOfDeath,
	}
	if err := s.authors.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// DeleteAuthor keeps the author's books, they lose their author.
func (s *catalogService) DeleteAuthor(ctx context.Context, id int64) error {
	return s.authors.Delete(ctx, id)
}

func (s *catalogService) GetBook(ctx context.Context, id int64) (*models.Book, []models.BookInstance, error) {
	b, err := s.books.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	copies, err := s.instances.ListByBook(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return b, copies, nil
}

// buildBook validates in and resolves its references. Unknown author,
// language or genre ids are field errors, not silent drops.
func (s *catalogService) buildBook(ctx context.Context, in BookInput) (*models.Book, error) {
	verr := &ValidationError{}
	requireText(verr, "title", &in.Title, 200)
	requireText(verr, "summary", &in.Summary, 1000)
	requireText(verr, "isbn", &in.ISBN, 13)

	const badChoice = "Select a valid choice. That choice is not one of the available choices."
	if in.AuthorID != nil {
		if _, err := s.authors.GetByID(ctx, *in.AuthorID); err != nil {
			if !errors.Is(err, repository.ErrNotFound) {
				return nil, err
			}
			verr.Add("author", badChoice)
		}
	}
	if in.LanguageID != nil {
		if _, err := s.languages.GetByID(ctx, *in.LanguageID); err != nil {
			if !errors.Is(err, repository.ErrNotFound) {
				return nil, err
			}
			verr.Add("language", badChoice)
		}
	}

	ids := dedupe(in.GenreIDs)
	genres, err := s.genres.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(genres) != len(ids) {
		verr.Add("genre", badChoice)
	}

	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	return &models.Book{
		Title:      in.Title,
		AuthorID:   in.AuthorID,
		Summary:    in.Summary,
		ISBN:       in.ISBN,
		LanguageID: in.LanguageID,
		Genres:     genres,
	}, nil
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func (s *catalogService) CreateBook(ctx context.Context, in BookInput) (*models.Book, error) {
	b, err := s.buildBook(ctx, in)
	if err != nil {
		return nil, err
	}
	if err := s.books.Create(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *catalogService) UpdateBook(ctx context.Context, id int64, in BookInput) (*models.Book, error) {
	b, err := s.buildBook(ctx, in)
	if err != nil {
		return nil, err
	}
	b.ID = id
	if err := s.books.Update(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// DeleteBook fails with a ReferentialIntegrityError while copies exist.
func (s *catalogService) DeleteBook(ctx context.Context, id int64) error {
	return s.books.Delete(ctx, id)
}

func (s *catalogService) BookChoices(ctx context.Context) (*BookChoices, error) {
	authors, err := s.authors.List(ctx, repository.PageRequest{})
	if err != nil {
		return nil, err
	}
	genres, err := s.genres.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	languages, err := s.languages.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	return &BookChoices{Authors: authors.Items, Genres: genres, Languages: languages}, nil
}
