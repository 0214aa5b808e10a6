package database

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"homelibrary/internal/microservices/http-api/models"

	"gorm.io/gorm"
)

// Structures matching the catalog JSON file accepted by `cli seed --file`.

type CatalogData struct {
	Genres    []string       `json:"genres"`
	Languages []string       `json:"languages"`
	Authors   []AuthorRecord `json:"authors"`
	Books     []BookRecord   `json:"books"`
}

type AuthorRecord struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	DateOfBirth string `json:"date_of_birth,omitempty"`
	DateOfDeath string `json:"date_of_death,omitempty"`
}

type BookRecord struct {
	Title    string       `json:"title"`
	Author   string       `json:"author"` // "Last, First", must match an AuthorRecord
	Summary  string       `json:"summary"`
	ISBN     string       `json:"isbn"`
	Language string       `json:"language,omitempty"`
	Genres   []string     `json:"genres"`
	Copies   []CopyRecord `json:"copies"`
}

type CopyRecord struct {
	Imprint string `json:"imprint"`
	Status  string `json:"status"`
	DueBack string `json:"due_back,omitempty"`
}

type SeedSummary struct {
	Genres    int
	Languages int
	Authors   int
	Books     int
	Copies    int
}

func ReadCatalogFile(filename string) (*CatalogData, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	var data CatalogData
	if err := json.NewDecoder(file).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode JSON: %w", err)
	}
	return &data, nil
}

// DemoCatalog is the built-in catalog loaded by `cli seed` without --file.
func DemoCatalog() *CatalogData {
	return &CatalogData{
		Genres:    []string{"Fantasy", "Science Fiction", "Western", "Romance", "Thriller"},
		Languages: []string{"English", "French", "Japanese"},
		Authors: []AuthorRecord{
			{FirstName: "Patrick", LastName: "Rothfuss", DateOfBirth: "1973-06-06"},
			{FirstName: "Isaac", LastName: "Asimov", DateOfBirth: "1920-01-02", DateOfDeath: "1992-04-06"},
			{FirstName: "Bob", LastName: "Billings"},
			{FirstName: "Jim", LastName: "Jones", DateOfBirth: "1971-12-16"},
		},
		Books: []BookRecord{
			{
				Title: "The Name of the Wind", Author: "Rothfuss, Patrick", ISBN: "9781472223814", Language: "English",
				Summary: "The tale of Kvothe, told in his own words.",
				Genres:  []string{"Fantasy"},
				Copies: []CopyRecord{
					{Imprint: "London Gollancz, 2014.", Status: "a"},
					{Imprint: "Gollancz, 2011.", Status: "m"},
				},
			},
			{
				Title: "The Wise Man's Fear", Author: "Rothfuss, Patrick", ISBN: "9788401352836", Language: "English",
				Summary: "Day two of the Kingkiller Chronicle.",
				Genres:  []string{"Fantasy"},
				Copies: []CopyRecord{
					{Imprint: "Gollancz, 2011.", Status: "o", DueBack: "2026-11-01"},
				},
			},
			{
				Title: "Foundation", Author: "Asimov, Isaac", ISBN: "9780553293357", Language: "English",
				Summary: "The Galactic Empire is falling and Hari Seldon has a plan.",
				Genres:  []string{"Science Fiction"},
				Copies: []CopyRecord{
					{Imprint: "Bantam Spectra, 1991.", Status: "a"},
					{Imprint: "Bantam Spectra, 1991.", Status: "r"},
				},
			},
			{
				Title: "Test Book 1", Author: "Billings, Bob", ISBN: "1234567890123", Language: "French",
				Summary: "Summary of test book 1",
				Genres:  []string{"Western", "Thriller"},
				Copies: []CopyRecord{
					{Imprint: "New York Tom, Dick and Harry, 2016.", Status: "a"},
				},
			},
		},
	}
}

// Seed loads data in one transaction. Genres, languages and authors are matched
// by name and reused. Books already present (same isbn) are skipped with their copies.
func Seed(ctx context.Context, db *gorm.DB, data *CatalogData, logger *slog.Logger) (SeedSummary, error) {
	var sum SeedSummary
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		genreIDs := make(map[string]models.Genre)
		for _, name := range data.Genres {
			g := models.Genre{Name: name}
			created, err := firstOrCreate(tx, &g, models.Genre{Name: name})
			if err != nil {
				return fmt.Errorf("seed genre %s: %w", name, err)
			}
			if created {
				sum.Genres++
			}
			genreIDs[name] = g
		}

		languageIDs := make(map[string]int64)
		for _, name := range data.Languages {
			l := models.Language{Name: name}
			created, err := firstOrCreate(tx, &l, models.Language{Name: name})
			if err != nil {
				return fmt.Errorf("seed language %s: %w", name, err)
			}
			if created {
				sum.Languages++
			}
			languageIDs[name] = l.ID
		}

		authorIDs := make(map[string]int64)
		for _, rec := range data.Authors {
			a := models.Author{FirstName: rec.FirstName, LastName: rec.LastName}
			var err error
			if a.DateOfBirth, err = optionalDate(rec.DateOfBirth); err != nil {
				return fmt.Errorf("author %s: %w", a, err)
			}
			if a.DateOfDeath, err = optionalDate(rec.DateOfDeath); err != nil {
				return fmt.Errorf("author %s: %w", a, err)
			}
			created, err := firstOrCreate(tx, &a, models.Author{FirstName: rec.FirstName, LastName: rec.LastName})
			if err != nil {
				return fmt.Errorf("seed author %s: %w", a, err)
			}
			if created {
				sum.Authors++
			}
			authorIDs[a.String()] = a.ID
		}

		for i, rec := range data.Books {
			var existing int64
			if err := tx.Model(&models.Book{}).Where("isbn = ?", rec.ISBN).Count(&existing).Error; err != nil {
				return err
			}
			if existing > 0 {
				logger.Debug("book already present, skipping", "isbn", rec.ISBN)
				continue
			}

			b := models.Book{Title: rec.Title, Summary: rec.Summary, ISBN: rec.ISBN}
			if id, ok := authorIDs[rec.Author]; ok {
				b.AuthorID = &id
			} else if rec.Author != "" {
				return fmt.Errorf("book %q: unknown author %q", rec.Title, rec.Author)
			}
			if id, ok := languageIDs[rec.Language]; ok {
				b.LanguageID = &id
			}
			for _, name := range rec.Genres {
				g, ok := genreIDs[name]
				if !ok {
					return fmt.Errorf("book %q: unknown genre %q", rec.Title, name)
				}
				b.Genres = append(b.Genres, g)
			}
			if err := tx.Omit("Author", "Language").Create(&b).Error; err != nil {
				return fmt.Errorf("seed book %q: %w", rec.Title, err)
			}
			sum.Books++

			for _, c := range rec.Copies {
				status := models.LoanStatus(c.Status)
				if !status.Valid() {
					return fmt.Errorf("book %q: invalid copy status %q", rec.Title, c.Status)
				}
				due, err := optionalDate(c.DueBack)
				if err != nil {
					return fmt.Errorf("book %q: %w", rec.Title, err)
				}
				inst := models.BookInstance{BookID: b.ID, Imprint: c.Imprint, Status: status, DueBack: due}
				if err := tx.Omit("Book", "Borrower").Create(&inst).Error; err != nil {
					return fmt.Errorf("seed copy of %q: %w", rec.Title, err)
				}
				sum.Copies++
			}
			logger.Info("seeded book", "n", i+1, "of", len(data.Books), "title", rec.Title)
		}
		return nil
	})
	return sum, err
}

// firstOrCreate reports whether dest had to be inserted.
func firstOrCreate[T any](tx *gorm.DB, dest *T, where T) (bool, error) {
	res := tx.Where(where).Limit(1).Find(dest)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return false, nil
	}
	return true, tx.Create(dest).Error
}

func optionalDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := models.ParseDate(s)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return &t, nil
}
