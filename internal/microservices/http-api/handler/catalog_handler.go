package handler

import (
	"context"
	"net/http"
	"time"

	"homelibrary/internal/microservices/http-api/dto"
	"homelibrary/internal/microservices/http-api/service"
	"homelibrary/internal/session"

	"github.com/gin-gonic/gin"
)

// CatalogHandler serves the public catalog pages and the librarian's
// author and book forms.
type CatalogHandler struct {
	catalog  service.CatalogService
	listing  service.ListingService
	lending  service.LendingService
	sessions *session.Manager
}

func NewCatalogHandler(
	catalog service.CatalogService,
	listing service.ListingService,
	lending service.LendingService,
	sessions *session.Manager,
) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, listing: listing, lending: lending, sessions: sessions}
}

// RegisterRoutes mounts the public pages. librarian guards every mutation.
func (h *CatalogHandler) RegisterRoutes(rg *gin.RouterGroup, librarian ...gin.HandlerFunc) {
	rg.GET("/", h.Index)
	rg.GET("/books/", h.BookList)
	rg.GET("/book/:id/", h.BookDetail)
	rg.GET("/authors/", h.AuthorList)
	rg.GET("/author/:id/", h.AuthorDetail)

	guarded := func(hs ...gin.HandlerFunc) []gin.HandlerFunc {
		return append(append([]gin.HandlerFunc{}, librarian...), hs...)
	}
	rg.GET("/author/create/", guarded(h.AuthorCreateForm)...)
	rg.POST("/author/create/", guarded(h.AuthorCreate)...)
	rg.GET("/author/:id/update/", guarded(h.AuthorUpdateForm)...)
	rg.POST("/author/:id/update/", guarded(h.AuthorUpdate)...)
	rg.GET("/author/:id/delete/", guarded(h.AuthorDeleteConfirm)...)
	rg.POST("/author/:id/delete/", guarded(h.AuthorDelete)...)

	rg.GET("/book/create/", guarded(h.BookCreateForm)...)
	rg.POST("/book/create/", guarded(h.BookCreate)...)
	rg.GET("/book/:id/update/", guarded(h.BookUpdateForm)...)
	rg.POST("/book/:id/update/", guarded(h.BookUpdate)...)
	rg.GET("/book/:id/delete/", guarded(h.BookDeleteConfirm)...)
	rg.POST("/book/:id/delete/", guarded(h.BookDelete)...)
}

// Index: counts plus this session's visit count before the current visit.
func (h *CatalogHandler) Index(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	stats, err := h.catalog.Stats(ctx)
	if err != nil {
		writeError(c, err)
		return
	}

	s := session.Get(c)
	visits := s.Data.NumVisits
	s.Data.NumVisits++
	if err := h.sessions.Save(c, s); err != nil {
		// the page still renders, the counter just does not advance
		_ = c.Error(err)
	}

	c.JSON(http.StatusOK, dto.IndexResponse{Stats: *stats, NumVisits: visits})
}

func (h *CatalogHandler) BookList(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	page, err := h.listing.Books(ctx, pageParam(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.BookListResponse{
		Books: dto.BookSummaries(page.Items),
		Page:  dto.PageInfoFrom(page),
	})
}

func (h *CatalogHandler) BookDetail(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	book, copies, err := h.catalog.GetBook(ctx, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.BookDetailResponse{
		Book:      dto.BookFromModel(*book),
		Instances: dto.InstancesFromModels(copies, h.lending.Today()),
	})
}

func (h *CatalogHandler) AuthorList(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	page, err := h.listing.Authors(ctx, pageParam(c))
	if err != nil {
		writeError(c, err)
		return
	}
	resp := dto.AuthorListResponse{
		Authors: make([]dto.AuthorResponse, 0, len(page.Items)),
		Page:    dto.PageInfoFrom(page),
	}
	for _, a := range page.Items {
		resp.Authors = append(resp.Authors, dto.AuthorFromModel(a))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CatalogHandler) AuthorDetail(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	author, books, err := h.catalog.GetAuthor(ctx, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.AuthorDetailResponse{
		Author: dto.AuthorFromModel(*author),
		Books:  dto.BookSummaries(books),
	})
}

// --- author forms ---

func (h *CatalogHandler) AuthorCreateForm(c *gin.Context) {
	c.JSON(http.StatusOK, dto.FormResponse{Form: dto.AuthorForm{}})
}

func (h *CatalogHandler) AuthorCreate(c *gin.Context) {
	var form dto.AuthorForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusOK, dto.FormResponse{Form: form, Errors: dto.FieldErrors(err)})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	author, err := h.catalog.CreateAuthor(ctx, form.ToInput())
	if err != nil {
		if fields, ok := formErrors(err); ok {
			c.JSON(http.StatusOK, dto.FormResponse{Form: form, Errors: fields})
			return
		}
		writeError(c, err)
		return
	}
	c.Redirect(http.StatusFound, dto.AuthorURL(author.ID))
}

func (h *CatalogHandler) AuthorUpdateForm(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	author, _, err := h.catalog.GetAuthor(ctx, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FormResponse{Form: dto.AuthorFormFrom(*author), Object: dto.AuthorFromModel(*author)})
}

func (h *CatalogHandler) AuthorUpdate(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if _, _, err := h.catalog.GetAuthor(ctx, id); err != nil {
		writeError(c, err)
		return
	}

	var form dto.AuthorForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusOK, dto.FormResponse{Form: form, Errors: dto.FieldErrors(err)})
		return
	}
	if _, err := h.catalog.UpdateAuthor(ctx, id, form.ToInput()); err != nil {
		if fields, ok := formErrors(err); ok {
			c.JSON(http.StatusOK, dto.FormResponse{Form: form, Errors: fields})
			return
		}
		writeError(c, err)
		return
	}
	c.Redirect(http.StatusFound, dto.AuthorURL(id))
}

func (h *CatalogHandler) AuthorDeleteConfirm(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	author, _, err := h.catalog.GetAuthor(ctx, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"object": dto.AuthorFromModel(*author)})
}

func (h *CatalogHandler) AuthorDelete(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.catalog.DeleteAuthor(ctx, id); err != nil {
		writeError(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/blog/authors/")
}

// --- book forms ---

func (h *CatalogHandler) bookForm(c *gin.Context, status int, form dto.BookForm, errs map[string][]string, object any) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	choices, err := h.catalog.BookChoices(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(status, dto.FormResponse{
		Form:    form,
		Errors:  errs,
		Choices: dto.BookChoicesFrom(choices),
		Object:  object,
	})
}

func (h *CatalogHandler) BookCreateForm(c *gin.Context) {
	h.bookForm(c, http.StatusOK, dto.BookForm{Genre: []string{}}, nil, nil)
}

func (h *CatalogHandler) BookCreate(c *gin.Context) {
	var form dto.BookForm
	if err := c.ShouldBind(&form); err != nil {
		h.bookForm(c, http.StatusOK, form, dto.FieldErrors(err), nil)
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	book, err := h.catalog.CreateBook(ctx, form.ToInput())
	if err != nil {
		if fields, ok := formErrors(err); ok {
			h.bookForm(c, http.StatusOK, form, fields, nil)
			return
		}
		writeError(c, err)
		return
	}
	c.Redirect(http.StatusFound, dto.BookURL(book.ID))
}

func (h *CatalogHandler) BookUpdateForm(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	book, _, err := h.catalog.GetBook(ctx, id)
	if err != nil {
		writeError(c, err)
		return
	}
	h.bookForm(c, http.StatusOK, dto.BookFormFrom(*book), nil, dto.BookFromModel(*book))
}

func (h *CatalogHandler) BookUpdate(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if _, _, err := h.catalog.GetBook(ctx, id); err != nil {
		writeError(c, err)
		return
	}

	var form dto.BookForm
	if err := c.ShouldBind(&form); err != nil {
		h.bookForm(c, http.StatusOK, form, dto.FieldErrors(err), nil)
		return
	}
	if _, err := h.catalog.UpdateBook(ctx, id, form.ToInput()); err != nil {
		if fields, ok := formErrors(err); ok {
			h.bookForm(c, http.StatusOK, form, fields, nil)
			return
		}
		writeError(c, err)
		return
	}
	c.Redirect(http.StatusFound, dto.BookURL(id))
}

func (h *CatalogHandler) BookDeleteConfirm(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	book, copies, err := h.catalog.GetBook(ctx, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"object":     dto.BookFromModel(*book),
		"num_copies": len(copies),
	})
}

// BookDelete answers 409 while copies of the book exist.
func (h *CatalogHandler) BookDelete(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.catalog.DeleteBook(ctx, id); err != nil {
		writeError(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/blog/books/")
}
