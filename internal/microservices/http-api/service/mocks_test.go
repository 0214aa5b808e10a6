package service

import (
	"context"
	"time"

	"homelibrary/internal/microservices/http-api/models"
	"homelibrary/internal/microservices/http-api/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockUserRepository mocks the UserRepository interface
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context) ([]models.User, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *MockUserRepository) Update(ctx context.Context, user *models.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *MockUserRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	args := m.Called(id, at)
	return args.Error(0)
}

func (m *MockUserRepository) AddPermission(ctx context.Context, userID string, perm models.Permission) error {
	args := m.Called(userID, perm)
	return args.Error(0)
}

func (m *MockUserRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(id)
	return args.Error(0)
}

// MockRefreshTokenRepository mocks the RefreshTokenRepository interface
type MockRefreshTokenRepository struct {
	mock.Mock
}

func (m *MockRefreshTokenRepository) Create(ctx context.Context, token *models.RefreshToken) error {
	args := m.Called(token)
	return args.Error(0)
}

func (m *MockRefreshTokenRepository) FindByToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	args := m.Called(token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RefreshToken), args.Error(1)
}

func (m *MockRefreshTokenRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockRefreshTokenRepository) Consume(ctx context.Context, id string) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockRefreshTokenRepository) Revoke(ctx context.Context, id string) error {
	args := m.Called(id)
	return args.Error(0)
}

// MockBookInstanceRepository mocks the BookInstanceRepository interface
type MockBookInstanceRepository struct {
	mock.Mock
}

func (m *MockBookInstanceRepository) List(ctx context.Context, filter repository.InstanceFilter, sort repository.InstanceSort, page repository.PageRequest) (repository.Page[models.BookInstance], error) {
	args := m.Called(filter, sort, page)
	return args.Get(0).(repository.Page[models.BookInstance]), args.Error(1)
}

func (m *MockBookInstanceRepository) ListByBook(ctx context.Context, bookID int64) ([]models.BookInstance, error) {
	args := m.Called(bookID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.BookInstance), args.Error(1)
}

func (m *MockBookInstanceRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.BookInstance, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BookInstance), args.Error(1)
}

func (m *MockBookInstanceRepository) Create(ctx context.Context, inst *models.BookInstance) error {
	args := m.Called(inst)
	return args.Error(0)
}

func (m *MockBookInstanceRepository) Update(ctx context.Context, inst *models.BookInstance) error {
	args := m.Called(inst)
	return args.Error(0)
}

func (m *MockBookInstanceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockBookInstanceRepository) Count(ctx context.Context, filter repository.InstanceFilter) (int64, error) {
	args := m.Called(filter)
	return args.Get(0).(int64), args.Error(1)
}

// MockBookRepository mocks the BookRepository interface
type MockBookRepository struct {
	mock.Mock
}

func (m *MockBookRepository) List(ctx context.Context, page repository.PageRequest) (repository.Page[models.Book], error) {
	args := m.Called(page)
	return args.Get(0).(repository.Page[models.Book]), args.Error(1)
}

func (m *MockBookRepository) GetByID(ctx context.Context, id int64) (*models.Book, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Book), args.Error(1)
}

func (m *MockBookRepository) Create(ctx context.Context, b *models.Book) error {
	args := m.Called(b)
	return args.Error(0)
}

func (m *MockBookRepository) Update(ctx context.Context, b *models.Book) error {
	args := m.Called(b)
	return args.Error(0)
}

func (m *MockBookRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockBookRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called()
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockBookRepository) ListByAuthor(ctx context.Context, authorID int64) ([]models.Book, error) {
	args := m.Called(authorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Book), args.Error(1)
}

// MockGenreRepository mocks the GenreRepository interface
type MockGenreRepository struct {
	mock.Mock
}

func (m *MockGenreRepository) GetAll(ctx context.Context) ([]models.Genre, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Genre), args.Error(1)
}

func (m *MockGenreRepository) Create(ctx context.Context, g *models.Genre) error {
	args := m.Called(g)
	return args.Error(0)
}

func (m *MockGenreRepository) FindByIDs(ctx context.Context, ids []int64) ([]models.Genre, error) {
	args := m.Called(ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Genre), args.Error(1)
}

func (m *MockGenreRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called()
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockGenreRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(id)
	return args.Error(0)
}

// MockLanguageRepository mocks the LanguageRepository interface
type MockLanguageRepository struct {
	mock.Mock
}

func (m *MockLanguageRepository) GetAll(ctx context.Context) ([]models.Language, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Language), args.Error(1)
}

func (m *MockLanguageRepository) GetByID(ctx context.Context, id int64) (*models.Language, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Language), args.Error(1)
}

func (m *MockLanguageRepository) Create(ctx context.Context, l *models.Language) error {
	args := m.Called(l)
	return args.Error(0)
}

func (m *MockLanguageRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(id)
	return args.Error(0)
}

// MockAuthorRepository mocks the AuthorRepository interface
type MockAuthorRepository struct {
	mock.Mock
}

func (m *MockAuthorRepository) List(ctx context.Context, page repository.PageRequest) (repository.Page[models.Author], error) {
	args := m.Called(page)
	return args.Get(0).(repository.Page[models.Author]), args.Error(1)
}

func (m *MockAuthorRepository) GetByID(ctx context.Context, id int64) (*models.Author, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Author), args.Error(1)
}

func (m *MockAuthorRepository) Create(ctx context.Context, a *models.Author) error {
	args := m.Called(a)
	return args.Error(0)
}

func (m *MockAuthorRepository) Update(ctx context.Context, a *models.Author) error {
	args := m.Called(a)
	return args.Error(0)
}

func (m *MockAuthorRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockAuthorRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called()
	return args.Get(0).(int64), args.Error(1)
}
