package handler

import (
	"context"
	"net/http"
	"time"

	"homelibrary/internal/microservices/http-api/dto"
	"homelibrary/internal/microservices/http-api/service"

	"github.com/gin-gonic/gin"
)

// GenreHandler manages the genre and language lookup tables.
type GenreHandler struct {
	svc service.GenreService
}

func NewGenreHandler(svc service.GenreService) *GenreHandler {
	return &GenreHandler{svc: svc}
}

func (h *GenreHandler) RegisterRoutes(rg *gin.RouterGroup, librarian ...gin.HandlerFunc) {
	g := rg.Group("", librarian...)
	g.GET("/genres/", h.List)
	g.POST("/genre/create/", h.Create)
	g.POST("/genre/:id/delete/", h.Delete)

	g.GET("/languages/", h.ListLanguages)
	g.POST("/language/create/", h.CreateLanguage)
	g.POST("/language/:id/delete/", h.DeleteLanguage)
}

func (h *GenreHandler) List(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	list, err := h.svc.GetAll(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"genre_list": dto.GenresFromModels(list)})
}

func (h *GenreHandler) Create(c *gin.Context) {
	var in dto.CreateGenreDTO
	if err := c.ShouldBind(&in); err != nil {
		c.JSON(http.StatusOK, dto.FormResponse{Form: in, Errors: dto.FieldErrors(err)})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	g, err := h.svc.Create(ctx, in.Name)
	if err != nil {
		if fields, ok := formErrors(err); ok {
			c.JSON(http.StatusOK, dto.FormResponse{Form: in, Errors: fields})
			return
		}
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.GenreFromModel(*g))
}

// Delete unlinks the genre from its books before removing it.
func (h *GenreHandler) Delete(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.svc.Delete(ctx, id); err != nil {
		writeError(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/blog/genres/")
}

func (h *GenreHandler) ListLanguages(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	list, err := h.svc.GetLanguages(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"language_list": dto.LanguagesFromModels(list)})
}

func (h *GenreHandler) CreateLanguage(c *gin.Context) {
	var in dto.CreateGenreDTO
	if err := c.ShouldBind(&in); err != nil {
		c.JSON(http.StatusOK, dto.FormResponse{Form: in, Errors: dto.FieldErrors(err)})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	l, err := h.svc.CreateLanguage(ctx, in.Name)
	if err != nil {
		if fields, ok := formErrors(err); ok {
			c.JSON(http.StatusOK, dto.FormResponse{Form: in, Errors: fields})
			return
		}
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.LanguageFromModel(*l))
}

func (h *GenreHandler) DeleteLanguage(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.svc.DeleteLanguage(ctx, id); err != nil {
		writeError(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/blog/languages/")
}
