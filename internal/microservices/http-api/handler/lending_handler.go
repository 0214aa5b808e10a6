package handler

import (
	"context"
	"net/http"
	"time"

	"homelibrary/internal/microservices/http-api/dto"
	"homelibrary/internal/microservices/http-api/middleware"
	"homelibrary/internal/microservices/http-api/models"
	"homelibrary/internal/microservices/http-api/repository"
	"homelibrary/internal/microservices/http-api/service"

	"github.com/gin-gonic/gin"
)

type pageOfInstances = repository.Page[models.BookInstance]

// LendingHandler serves the loan views and the librarian's copy workflow.
type LendingHandler struct {
	lending service.LendingService
	listing service.ListingService
}

func NewLendingHandler(lending service.LendingService, listing service.ListingService) *LendingHandler {
	return &LendingHandler{lending: lending, listing: listing}
}

// RegisterRoutes mounts the loan routes. loggedIn guards /mybooks/, librarian
// guards everything else.
func (h *LendingHandler) RegisterRoutes(rg *gin.RouterGroup, loggedIn, librarian []gin.HandlerFunc) {
	with := func(guards []gin.HandlerFunc, hs ...gin.HandlerFunc) []gin.HandlerFunc {
		return append(append([]gin.HandlerFunc{}, guards...), hs...)
	}

	rg.GET("/mybooks/", with(loggedIn, h.MyBorrowed)...)
	rg.GET("/borrowed/", with(librarian, h.AllBorrowed)...)

	rg.GET("/book/:id/renew/", with(librarian, h.RenewForm)...)
	rg.POST("/book/:id/renew/", with(librarian, h.Renew)...)
	rg.POST("/book/:id/return/", with(librarian, h.Return)...)

	rg.GET("/instance/create/", with(librarian, h.InstanceCreateForm)...)
	rg.POST("/instance/create/", with(librarian, h.InstanceCreate)...)
	rg.GET("/instance/:id/update/", with(librarian, h.InstanceUpdateForm)...)
	rg.POST("/instance/:id/update/", with(librarian, h.InstanceUpdate)...)
	rg.POST("/instance/:id/delete/", with(librarian, h.InstanceDelete)...)
}

func (h *LendingHandler) instanceList(c *gin.Context, page func(ctx context.Context) (pageOfInstances, error)) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	p, err := page(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.InstanceListResponse{
		Instances: dto.InstancesFromModels(p.Items, h.lending.Today()),
		Page:      dto.PageInfoFrom(p),
	})
}

// MyBorrowed lists the caller's loans, soonest due first.
func (h *LendingHandler) MyBorrowed(c *gin.Context) {
	user := middleware.CurrentUser(c)
	n := pageParam(c)
	h.instanceList(c, func(ctx context.Context) (pageOfInstances, error) {
		return h.listing.BorrowedBy(ctx, user.ID, n)
	})
}

// AllBorrowed lists every copy on loan.
func (h *LendingHandler) AllBorrowed(c *gin.Context) {
	n := pageParam(c)
	h.instanceList(c, func(ctx context.Context) (pageOfInstances, error) {
		return h.listing.AllBorrowed(ctx, n)
	})
}

func (h *LendingHandler) RenewForm(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	inst, err := h.lending.GetInstance(ctx, id)
	if err != nil {
		writeError(c, err)
		return
	}
	today := h.lending.Today()
	c.JSON(http.StatusOK, dto.RenewalPage{
		Form:         dto.RenewalForm{RenewalDate: service.DefaultRenewalDate(today).Format(models.DateLayout)},
		BookInstance: dto.InstanceFromModel(*inst, today),
	})
}

// Renew re-renders the form with field errors for any rejected date and
// redirects to the borrowed list once the due date is moved.
func (h *LendingHandler) Renew(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	inst, err := h.lending.GetInstance(ctx, id)
	if err != nil {
		writeError(c, err)
		return
	}
	today := h.lending.Today()
	page := dto.RenewalPage{BookInstance: dto.InstanceFromModel(*inst, today)}

	if err := c.ShouldBind(&page.Form); err != nil {
		page.Errors = dto.FieldErrors(err)
		c.JSON(http.StatusOK, page)
		return
	}
	proposed, err := models.ParseDate(page.Form.RenewalDate)
	if err != nil {
		page.Errors = map[string][]string{"renewal_date": {dto.MsgInvalidDate}}
		c.JSON(http.StatusOK, page)
		return
	}

	if _, err := h.lending.Renew(ctx, id, proposed); err != nil {
		if fields, ok := formErrors(err); ok {
			page.Errors = fields
			c.JSON(http.StatusOK, page)
			return
		}
		writeError(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/blog/borrowed/")
}

func (h *LendingHandler) Return(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if _, err := h.lending.MarkReturned(ctx, id); err != nil {
		writeError(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/blog/borrowed/")
}

func instanceFormPage(form dto.InstanceForm, errs map[string][]string, object any) dto.FormResponse {
	return dto.FormResponse{
		Form:    form,
		Errors:  errs,
		Choices: gin.H{"status": dto.StatusChoices()},
		Object:  object,
	}
}

// InstanceCreateForm prefills the book from ?book= when given.
func (h *LendingHandler) InstanceCreateForm(c *gin.Context) {
	form := dto.InstanceForm{Book: c.Query("book"), Status: string(models.StatusMaintenance)}
	c.JSON(http.StatusOK, instanceFormPage(form, nil, nil))
}

func (h *LendingHandler) InstanceCreate(c *gin.Context) {
	var form dto.InstanceForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusOK, instanceFormPage(form, dto.FieldErrors(err), nil))
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	inst, err := h.lending.CreateInstance(ctx, form.ToInput())
	if err != nil {
		if fields, ok := formErrors(err); ok {
			c.JSON(http.StatusOK, instanceFormPage(form, fields, nil))
			return
		}
		writeError(c, err)
		return
	}
	c.Redirect(http.StatusFound, dto.BookURL(inst.BookID))
}

func (h *LendingHandler) InstanceUpdateForm(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	inst, err := h.lending.GetInstance(ctx, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, instanceFormPage(dto.InstanceFormFrom(*inst), nil, dto.InstanceFromModel(*inst, h.lending.Today())))
}

// InstanceUpdate answers 409 when the posted version is behind the stored copy.
func (h *LendingHandler) InstanceUpdate(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if _, err := h.lending.GetInstance(ctx, id); err != nil {
		writeError(c, err)
		return
	}

	var form dto.InstanceForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusOK, instanceFormPage(form, dto.FieldErrors(err), nil))
		return
	}
	inst, err := h.lending.UpdateInstance(ctx, id, form.ToInput())
	if err != nil {
		if fields, ok := formErrors(err); ok {
			c.JSON(http.StatusOK, instanceFormPage(form, fields, nil))
			return
		}
		writeError(c, err)
		return
	}
	c.Redirect(http.StatusFound, dto.BookURL(inst.BookID))
}

func (h *LendingHandler) InstanceDelete(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	bookID, err := h.lending.DeleteInstance(ctx, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Redirect(http.StatusFound, dto.BookURL(bookID))
}
