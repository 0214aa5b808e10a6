package dto

import (
	"fmt"
	"strconv"
	"strings"

	"homelibrary/internal/microservices/http-api/models"
	"homelibrary/internal/microservices/http-api/service"
)

// IndexResponse is the home page view-model.
type IndexResponse struct {
	service.Stats
	NumVisits int `json:"num_visits"`
}

type AuthorRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

type AuthorResponse struct {
	ID          int64   `json:"id"`
	FirstName   string  `json:"first_name"`
	LastName    string  `json:"last_name"`
	DateOfBirth *string `json:"date_of_birth"`
	DateOfDeath *string `json:"date_of_death"`
	Name        string  `json:"name"`
	URL         string  `json:"url"`
}

func AuthorURL(id int64) string { return fmt.Sprintf("/blog/author/%d/", id) }
func BookURL(id int64) string   { return fmt.Sprintf("/blog/book/%d/", id) }

func AuthorFromModel(a models.Author) AuthorResponse {
	return AuthorResponse{
		ID:          a.ID,
		FirstName:   a.FirstName,
		LastName:    a.LastName,
		DateOfBirth: models.FormatDate(a.DateOfBirth),
		DateOfDeath: models.FormatDate(a.DateOfDeath),
		Name:        a.String(),
		URL:         AuthorURL(a.ID),
	}
}

func authorRef(a *models.Author) *AuthorRef {
	if a == nil {
		return nil
	}
	return &AuthorRef{ID: a.ID, Name: a.String(), URL: AuthorURL(a.ID)}
}

type AuthorListResponse struct {
	Authors []AuthorResponse `json:"author_list"`
	Page    PageInfo         `json:"page_obj"`
}

type AuthorDetailResponse struct {
	Author AuthorResponse `json:"author"`
	Books  []BookSummary  `json:"books"`
}

type BookSummary struct {
	ID           int64      `json:"id"`
	Title        string     `json:"title"`
	Author       *AuthorRef `json:"author"`
	DisplayGenre string     `json:"display_genre"`
	URL          string     `json:"url"`
}

func BookSummaryFromModel(b models.Book) BookSummary {
	return BookSummary{
		ID:           b.ID,
		Title:        b.Title,
		Author:       authorRef(b.Author),
		DisplayGenre: b.DisplayGenre(),
		URL:          BookURL(b.ID),
	}
}

func BookSummaries(list []models.Book) []BookSummary {
	out := make([]BookSummary, 0, len(list))
	for _, b := range list {
		out = append(out, BookSummaryFromModel(b))
	}
	return out
}

type BookListResponse struct {
	Books []BookSummary `json:"book_list"`
	Page  PageInfo      `json:"page_obj"`
}

type BookResponse struct {
	ID           int64             `json:"id"`
	Title        string            `json:"title"`
	Author       *AuthorRef        `json:"author"`
	Summary      string            `json:"summary"`
	ISBN         string            `json:"isbn"`
	Language     *LanguageResponse `json:"language"`
	Genres       []GenreResponse   `json:"genre"`
	DisplayGenre string            `json:"display_genre"`
	URL          string            `json:"url"`
}

func BookFromModel(b models.Book) BookResponse {
	resp := BookResponse{
		ID:           b.ID,
		Title:        b.Title,
		Author:       authorRef(b.Author),
		Summary:      b.Summary,
		ISBN:         b.ISBN,
		Genres:       GenresFromModels(b.Genres),
		DisplayGenre: b.DisplayGenre(),
		URL:          BookURL(b.ID),
	}
	if b.Language != nil {
		l := LanguageFromModel(*b.Language)
		resp.Language = &l
	}
	return resp
}

type BookDetailResponse struct {
	Book      BookResponse       `json:"book"`
	Instances []InstanceResponse `json:"copies"`
}

// AuthorForm is the create/update form for authors. Dates are YYYY-MM-DD or empty.
type AuthorForm struct {
	FirstName   string `form:"first_name" json:"first_name" binding:"notblank,max=100"`
	LastName    string `form:"last_name" json:"last_name" binding:"notblank,max=100"`
	DateOfBirth string `form:"date_of_birth" json:"date_of_birth" binding:"omitempty,datetime=2006-01-02"`
	DateOfDeath string `form:"date_of_death" json:"date_of_death" binding:"omitempty,datetime=2006-01-02"`
}

func (f AuthorForm) ToInput() service.AuthorInput {
	in := service.AuthorInput{FirstName: f.FirstName, LastName: f.LastName}
	if t, err := models.ParseDate(f.DateOfBirth); err == nil {
		in.DateOfBirth = &t
	}
	if t, err := models.ParseDate(f.DateOfDeath); err == nil {
		in.DateOfDeath = &t
	}
	return in
}

func AuthorFormFrom(a models.Author) AuthorForm {
	f := AuthorForm{FirstName: a.FirstName, LastName: a.LastName}
	if s := models.FormatDate(a.DateOfBirth); s != nil {
		f.DateOfBirth = *s
	}
	if s := models.FormatDate(a.DateOfDeath); s != nil {
		f.DateOfDeath = *s
	}
	return f
}

// BookForm is the create/update form for books. Reference fields carry ids as
// strings so an empty select box binds cleanly.
type BookForm struct {
	Title    string   `form:"title" json:"title" binding:"notblank,max=200"`
	Author   string   `form:"author" json:"author" binding:"omitempty,numeric"`
	Summary  string   `form:"summary" json:"summary" binding:"notblank,max=1000"`
	ISBN     string   `form:"isbn" json:"isbn" binding:"notblank,max=13"`
	Genre    []string `form:"genre" json:"genre" binding:"dive,numeric"`
	Language string   `form:"language" json:"language" binding:"omitempty,numeric"`
}

func optionalID(s string) *int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil
	}
	return &id
}

func (f BookForm) ToInput() service.BookInput {
	in := service.BookInput{
		Title:      f.Title,
		AuthorID:   optionalID(f.Author),
		Summary:    f.Summary,
		ISBN:       f.ISBN,
		LanguageID: optionalID(f.Language),
	}
	for _, g := range f.Genre {
		if id := optionalID(g); id != nil {
			in.GenreIDs = append(in.GenreIDs, *id)
		}
	}
	return in
}

func BookFormFrom(b models.Book) BookForm {
	f := BookForm{Title: b.Title, Summary: b.Summary, ISBN: b.ISBN, Genre: []string{}}
	if b.AuthorID != nil {
		f.Author = strconv.FormatInt(*b.AuthorID, 10)
	}
	if b.LanguageID != nil {
		f.Language = strconv.FormatInt(*b.LanguageID, 10)
	}
	for _, g := range b.Genres {
		f.Genre = append(f.Genre, strconv.FormatInt(g.ID, 10))
	}
	return f
}

// BookChoicesResponse lists the options of the book form's select boxes.
type BookChoicesResponse struct {
	Authors   []AuthorRef        `json:"authors"`
	Genres    []GenreResponse    `json:"genres"`
	Languages []LanguageResponse `json:"languages"`
}

func BookChoicesFrom(c *service.BookChoices) BookChoicesResponse {
	resp := BookChoicesResponse{
		Authors:   make([]AuthorRef, 0, len(c.Authors)),
		Genres:    GenresFromModels(c.Genres),
		Languages: LanguagesFromModels(c.Languages),
	}
	for i := range c.Authors {
		resp.Authors = append(resp.Authors, *authorRef(&c.Authors[i]))
	}
	return resp
}

// FormResponse is a form page: current values, field errors, and extra context.
type FormResponse struct {
	Form    any                 `json:"form"`
	Errors  map[string][]string `json:"errors,omitempty"`
	Choices any                 `json:"choices,omitempty"`
	Object  any                 `json:"object,omitempty"`
}
