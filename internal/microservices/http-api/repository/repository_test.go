package repository_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"homelibrary/database"
	"homelibrary/internal/microservices/http-api/models"
	"homelibrary/internal/microservices/http-api/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// newTestDB opens a private in-memory sqlite database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", name, uuid.NewString()[:8])

	db, err := database.Open("sqlite", dsn, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func createBook(t *testing.T, repo repository.BookRepository, title, isbn string, authorID *int64) *models.Book {
	t.Helper()
	b := &models.Book{Title: title, Summary: "summary of " + title, ISBN: isbn, AuthorID: authorID}
	require.NoError(t, repo.Create(context.Background(), b))
	return b
}

func createUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	u := &models.User{Username: username, Password: "x", IsActive: true}
	require.NoError(t, repository.NewUserRepository(db).Create(context.Background(), u))
	return u
}

func TestAuthorRepository_ListPaginates(t *testing.T) {
	db := newTestDB(t)
	repo := repository.NewAuthorRepository(db)
	ctx := context.Background()

	for i := 0; i < 13; i++ {
		require.NoError(t, repo.Create(ctx, &models.Author{
			FirstName: "First",
			LastName:  fmt.Sprintf("Author%02d", i),
		}))
	}

	first, err := repo.List(ctx, repository.PageRequest{Number: 1, Size: 10})
	require.NoError(t, err)
	assert.Len(t, first.Items, 10)
	assert.Equal(t, int64(13), first.Total)
	assert.Equal(t, 2, first.NumPages)
	assert.True(t, first.IsPaginated)
	assert.True(t, first.HasNext)
	assert.Equal(t, "Author00", first.Items[0].LastName)

	second, err := repo.List(ctx, repository.PageRequest{Number: 2, Size: 10})
	require.NoError(t, err)
	assert.Len(t, second.Items, 3)
	assert.False(t, second.HasNext)
	assert.True(t, second.HasPrevious)

	// out-of-range page numbers land on the last page
	clamped, err := repo.List(ctx, repository.PageRequest{Number: 99, Size: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, clamped.Number)
	assert.Equal(t, second.Items, clamped.Items)
}

func TestAuthorRepository_DeleteDetachesBooks(t *testing.T) {
	db := newTestDB(t)
	authors := repository.NewAuthorRepository(db)
	books := repository.NewBookRepository(db)
	ctx := context.Background()

	a := &models.Author{FirstName: "Ursula", LastName: "Le Guin", DateOfBirth: date(1929, time.October, 21)}
	require.NoError(t, authors.Create(ctx, a))
	b := createBook(t, books, "The Dispossessed", "9780060512750", &a.ID)

	require.NoError(t, authors.Delete(ctx, a.ID))

	got, err := books.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Nil(t, got.AuthorID)

	_, err = authors.GetByID(ctx, a.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.ErrorIs(t, authors.Delete(ctx, a.ID), repository.ErrNotFound)
}

func TestBookRepository_DuplicateISBN(t *testing.T) {
	db := newTestDB(t)
	books := repository.NewBookRepository(db)
	ctx := context.Background()

	createBook(t, books, "Dune", "9780441172719", nil)

	err := books.Create(ctx, &models.Book{Title: "Dune again", Summary: "s", ISBN: "9780441172719"})
	var dup *repository.DuplicateKeyError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "isbn", dup.Field)

	other := createBook(t, books, "Hyperion", "9780553283686", nil)
	other.ISBN = "9780441172719"
	assert.ErrorAs(t, books.Update(ctx, other), &dup)
}

func TestBookRepository_UpdateReplacesGenres(t *testing.T) {
	db := newTestDB(t)
	books := repository.NewBookRepository(db)
	genres := repository.NewGenreRepository(db)
	ctx := context.Background()

	var gs []models.Genre
	for _, name := range []string{"Fantasy", "Science Fiction", "Horror"} {
		g := models.Genre{Name: name}
		require.NoError(t, genres.Create(ctx, &g))
		gs = append(gs, g)
	}

	b := &models.Book{Title: "Dune", Summary: "s", ISBN: "9780441172719", Genres: gs[:2]}
	require.NoError(t, books.Create(ctx, b))

	b.Genres = gs[2:]
	require.NoError(t, books.Update(ctx, b))

	got, err := books.GetByID(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, got.Genres, 1)
	assert.Equal(t, "Horror", got.Genres[0].Name)
}

func TestBookRepository_DeleteRestrictedByCopies(t *testing.T) {
	db := newTestDB(t)
	books := repository.NewBookRepository(db)
	instances := repository.NewBookInstanceRepository(db)
	ctx := context.Background()

	b := createBook(t, books, "Dune", "9780441172719", nil)
	inst := &models.BookInstance{BookID: b.ID, Imprint: "Ace, 1990"}
	require.NoError(t, instances.Create(ctx, inst))

	err := books.Delete(ctx, b.ID)
	var ref *repository.ReferentialIntegrityError
	require.ErrorAs(t, err, &ref)
	assert.Equal(t, int64(1), ref.Dependents)

	require.NoError(t, instances.Delete(ctx, inst.ID))
	require.NoError(t, books.Delete(ctx, b.ID))
	_, err = books.GetByID(ctx, b.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestBookInstanceRepository_BorrowedOrder(t *testing.T) {
	db := newTestDB(t)
	books := repository.NewBookRepository(db)
	instances := repository.NewBookInstanceRepository(db)
	ctx := context.Background()

	reader := createUser(t, db, "reader")
	other := createUser(t, db, "other")
	b := createBook(t, books, "Dune", "9780441172719", nil)

	mk := func(imprint string, due *time.Time, borrower *models.User, status models.LoanStatus) {
		inst := &models.BookInstance{BookID: b.ID, Imprint: imprint, DueBack: due, Status: status}
		if borrower != nil {
			inst.BorrowerID = &borrower.ID
		}
		require.NoError(t, instances.Create(ctx, inst))
	}
	mk("late", date(2024, time.April, 2), reader, models.StatusOnLoan)
	mk("undated", nil, reader, models.StatusOnLoan)
	mk("early", date(2024, time.March, 1), reader, models.StatusOnLoan)
	mk("not mine", date(2024, time.February, 1), other, models.StatusOnLoan)
	mk("reserved", date(2024, time.January, 1), reader, models.StatusReserved)

	onLoan := models.StatusOnLoan
	page, err := instances.List(ctx,
		repository.InstanceFilter{BorrowerID: &reader.ID, Status: &onLoan},
		repository.InstanceSortDueBack,
		repository.PageRequest{Number: 1, Size: 10},
	)
	require.NoError(t, err)
	require.Len(t, page.Items, 3)
	assert.Equal(t, "early", page.Items[0].Imprint)
	assert.Equal(t, "late", page.Items[1].Imprint)
	assert.Equal(t, "undated", page.Items[2].Imprint)
	require.NotNil(t, page.Items[0].Book)
	assert.Equal(t, "Dune", page.Items[0].Book.Title)

	n, err := instances.Count(ctx, repository.InstanceFilter{Status: &onLoan})
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}

func TestBookInstanceRepository_UpdateVersioned(t *testing.T) {
	db := newTestDB(t)
	books := repository.NewBookRepository(db)
	instances := repository.NewBookInstanceRepository(db)
	ctx := context.Background()

	b := createBook(t, books, "Dune", "9780441172719", nil)
	inst := &models.BookInstance{BookID: b.ID, Imprint: "Ace, 1990"}
	require.NoError(t, instances.Create(ctx, inst))
	assert.Equal(t, models.StatusMaintenance, inst.Status)
	assert.Equal(t, int64(1), inst.Version)

	stale := *inst

	inst.Status = models.StatusAvailable
	require.NoError(t, instances.Update(ctx, inst))
	assert.Equal(t, int64(2), inst.Version)

	stale.Status = models.StatusReserved
	var staleErr *repository.StaleObjectError
	require.ErrorAs(t, instances.Update(ctx, &stale), &staleErr)

	got, err := instances.GetByID(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAvailable, got.Status)
	assert.Equal(t, int64(2), got.Version)

	missing := &models.BookInstance{ID: uuid.New(), BookID: b.ID, Imprint: "x", Status: models.StatusAvailable, Version: 1}
	assert.ErrorIs(t, instances.Update(ctx, missing), repository.ErrNotFound)
}

func TestBookInstanceRepository_DueBackRoundTrip(t *testing.T) {
	db := newTestDB(t)
	books := repository.NewBookRepository(db)
	instances := repository.NewBookInstanceRepository(db)
	ctx := context.Background()

	b := createBook(t, books, "Dune", "9780441172719", nil)
	inst := &models.BookInstance{BookID: b.ID, Imprint: "Ace", DueBack: date(2024, time.March, 31), Status: models.StatusOnLoan}
	require.NoError(t, instances.Create(ctx, inst))

	got, err := instances.GetByID(ctx, inst.ID)
	require.NoError(t, err)
	require.NotNil(t, got.DueBack)
	assert.Equal(t, "2024-03-31", got.DueBack.Format(models.DateLayout))
}

func TestUserRepository_DeleteKeepsCopies(t *testing.T) {
	db := newTestDB(t)
	books := repository.NewBookRepository(db)
	instances := repository.NewBookInstanceRepository(db)
	users := repository.NewUserRepository(db)
	ctx := context.Background()

	reader := createUser(t, db, "reader")
	b := createBook(t, books, "Dune", "9780441172719", nil)
	inst := &models.BookInstance{BookID: b.ID, Imprint: "Ace", BorrowerID: &reader.ID, Status: models.StatusOnLoan}
	require.NoError(t, instances.Create(ctx, inst))

	require.NoError(t, users.Delete(ctx, reader.ID))

	got, err := instances.GetByID(ctx, inst.ID)
	require.NoError(t, err)
	assert.Nil(t, got.BorrowerID)
	assert.Equal(t, models.StatusOnLoan, got.Status)

	_, err = users.FindByID(ctx, reader.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUserRepository_DuplicateUsername(t *testing.T) {
	db := newTestDB(t)
	createUser(t, db, "reader")

	err := repository.NewUserRepository(db).Create(context.Background(), &models.User{Username: "reader", Password: "y"})
	var dup *repository.DuplicateKeyError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "username", dup.Field)
}

func TestUserRepository_PermissionsThroughGroup(t *testing.T) {
	db := newTestDB(t)
	users := repository.NewUserRepository(db)
	groups := repository.NewGroupRepository(db)
	perms := repository.NewPermissionRepository(db)
	ctx := context.Background()

	found, err := perms.FindByCodenames(ctx, []string{models.PermCanMarkReturned})
	require.NoError(t, err)
	require.Len(t, found, 1, "migrations seed the librarian permission")

	librarians := &models.Group{Name: "Librarians", Permissions: found}
	require.NoError(t, groups.Create(ctx, librarians))

	staff := &models.User{Username: "staff", Password: "x", IsActive: true, Groups: []models.Group{*librarians}}
	require.NoError(t, users.Create(ctx, staff))
	reader := createUser(t, db, "reader")

	got, err := users.FindByID(ctx, staff.ID)
	require.NoError(t, err)
	assert.True(t, got.HasPerm(models.PermCanMarkReturned))

	got, err = users.FindByUsername(ctx, reader.Username)
	require.NoError(t, err)
	assert.False(t, got.HasPerm(models.PermCanMarkReturned))

	require.NoError(t, users.AddPermission(ctx, reader.ID, found[0]))
	require.NoError(t, users.AddPermission(ctx, reader.ID, found[0]))
	got, err = users.FindByID(ctx, reader.ID)
	require.NoError(t, err)
	assert.True(t, got.HasPerm(models.PermCanMarkReturned))
	assert.Equal(t, []string{models.PermCanMarkReturned}, got.PermissionSet())
}

func TestGroupRepository_DuplicateName(t *testing.T) {
	db := newTestDB(t)
	groups := repository.NewGroupRepository(db)
	ctx := context.Background()

	require.NoError(t, groups.Create(ctx, &models.Group{Name: "Librarians"}))
	var dup *repository.DuplicateKeyError
	assert.ErrorAs(t, groups.Create(ctx, &models.Group{Name: "Librarians"}), &dup)
}

func TestLanguageRepository_DeleteDetachesBooks(t *testing.T) {
	db := newTestDB(t)
	langs := repository.NewLanguageRepository(db)
	books := repository.NewBookRepository(db)
	ctx := context.Background()

	l := &models.Language{Name: "English"}
	require.NoError(t, langs.Create(ctx, l))
	b := &models.Book{Title: "Dune", Summary: "s", ISBN: "9780441172719", LanguageID: &l.ID}
	require.NoError(t, books.Create(ctx, b))

	require.NoError(t, langs.Delete(ctx, l.ID))

	got, err := books.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Nil(t, got.LanguageID)
}

func TestRefreshTokenRepository_ConsumeOnce(t *testing.T) {
	db := newTestDB(t)
	tokens := repository.NewRefreshTokenRepository(db)
	ctx := context.Background()
	user := createUser(t, db, "reader")

	tok := &models.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, tokens.Create(ctx, tok))

	require.NoError(t, tokens.Consume(ctx, tok.ID))
	assert.ErrorIs(t, tokens.Consume(ctx, tok.ID), repository.ErrTokenConsumed)
	assert.ErrorIs(t, tokens.Consume(ctx, uuid.NewString()), repository.ErrTokenConsumed)

	got, err := tokens.FindByToken(ctx, tok.Token)
	require.NoError(t, err)
	assert.True(t, got.Revoked)
}

func TestPermissionRepository_EnsureDefaultsIdempotent(t *testing.T) {
	db := newTestDB(t)
	perms := repository.NewPermissionRepository(db)
	ctx := context.Background()

	require.NoError(t, perms.EnsureDefaults(ctx))
	require.NoError(t, perms.EnsureDefaults(ctx))

	list, err := perms.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, len(models.DefaultPermissions))
}
