package dto

import "homelibrary/internal/microservices/http-api/models"

// CreateGenreDTO for POST /blog/genre/create/ and /blog/language/create/
type CreateGenreDTO struct {
	Name string `form:"name" json:"name" binding:"notblank,max=200"`
}

type GenreResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func GenreFromModel(g models.Genre) GenreResponse {
	return GenreResponse{
		ID:   g.ID,
		Name: g.Name,
	}
}

func GenresFromModels(list []models.Genre) []GenreResponse {
	out := make([]GenreResponse, 0, len(list))
	for _, g := range list {
		out = append(out, GenreFromModel(g))
	}
	return out
}

type LanguageResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func LanguageFromModel(l models.Language) LanguageResponse {
	return LanguageResponse{ID: l.ID, Name: l.Name}
}

func LanguagesFromModels(list []models.Language) []LanguageResponse {
	out := make([]LanguageResponse, 0, len(list))
	for _, l := range list {
		out = append(out, LanguageFromModel(l))
	}
	return out
}
