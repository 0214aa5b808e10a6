package models

import "strings"

// Book is a catalog title. Physical copies are BookInstances.
type Book struct {
	ID         int64  `json:"id" gorm:"primaryKey;autoIncrement"`
	Title      string `json:"title" gorm:"size:200;not null;index"`
	AuthorID   *int64 `json:"author_id,omitempty" gorm:"index"`
	Summary    string `json:"summary" gorm:"size:1000;not null"`
	ISBN       string `json:"isbn" gorm:"column:isbn;size:13;uniqueIndex;not null"`
	LanguageID *int64 `json:"language_id,omitempty" gorm:"index"`

	// associations
	Author   *Author   `json:"author,omitempty" gorm:"foreignKey:AuthorID;constraint:OnDelete:SET NULL;"`
	Language *Language `json:"language,omitempty" gorm:"foreignKey:LanguageID;constraint:OnDelete:SET NULL;"`
	Genres   []Genre   `json:"genres,omitempty" gorm:"many2many:book_genres;constraint:OnDelete:CASCADE;"`
}

func (Book) TableName() string {
	return "books"
}

// DisplayGenre joins the names of the first three genres.
func (b Book) DisplayGenre() string {
	names := make([]string, 0, 3)
	for i, g := range b.Genres {
		if i == 3 {
			break
		}
		names = append(names, g.Name)
	}
	return strings.Join(names, ", ")
}
