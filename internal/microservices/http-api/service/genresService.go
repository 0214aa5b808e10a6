package service

import (
	"context"
	"strings"

	"homelibrary/internal/microservices/http-api/models"
	"homelibrary/internal/microservices/http-api/repository"
)

// GenreService manages the two lookup tables books point at: genres and languages.
type GenreService interface {
	GetAll(ctx context.Context) ([]models.Genre, error)
	Create(ctx context.Context, name string) (*models.Genre, error)
	Delete(ctx context.Context, id int64) error

	GetLanguages(ctx context.Context) ([]models.Language, error)
	CreateLanguage(ctx context.Context, name string) (*models.Language, error)
	DeleteLanguage(ctx context.Context, id int64) error
}

type genreService struct {
	repo      repository.GenreRepository
	languages repository.LanguageRepository
}

func NewGenreService(r repository.GenreRepository, languages repository.LanguageRepository) GenreService {
	return &genreService{repo: r, languages: languages}
}

func validName(name string) (string, error) {
	name = strings.TrimSpace(name)
	verr := &ValidationError{}
	switch {
	case name == "":
		verr.Add("name", "This field is required.")
	case len(name) > 200:
		verr.Add("name", "Ensure this value has at most 200 characters.")
	}
	return name, verr.OrNil()
}

func (s *genreService) GetAll(ctx context.Context) ([]models.Genre, error) {
	return s.repo.GetAll(ctx)
}

func (s *genreService) Create(ctx context.Context, name string) (*models.Genre, error) {
	name, err := validName(name)
	if err != nil {
		return nil, err
	}
	g := &models.Genre{Name: name}
	if err := s.repo.Create(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

func (s *genreService) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

func (s *genreService) GetLanguages(ctx context.Context) ([]models.Language, error) {
	return s.languages.GetAll(ctx)
}

func (s *genreService) CreateLanguage(ctx context.Context, name string) (*models.Language, error) {
	name, err := validName(name)
	if err != nil {
		return nil, err
	}
	l := &models.Language{Name: name}
	if err := s.languages.Create(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

// DeleteLanguage leaves the language's books in place with no language.
func (s *genreService) DeleteLanguage(ctx context.Context, id int64) error {
	return s.languages.Delete(ctx, id)
}
