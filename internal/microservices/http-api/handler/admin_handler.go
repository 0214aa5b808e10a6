package handler

import (
	"context"
	"net/http"
	"time"

	"homelibrary/internal/microservices/http-api/dto"
	"homelibrary/internal/microservices/http-api/service"

	"github.com/gin-gonic/gin"
)

// AdminHandler is the JSON user and group administration surface.
type AdminHandler struct {
	users service.UserService
}

func NewAdminHandler(users service.UserService) *AdminHandler {
	return &AdminHandler{users: users}
}

func (h *AdminHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/users/", h.ListUsers)
	rg.POST("/users/", h.CreateUser)
	rg.GET("/users/:id/", h.GetUser)
	rg.PUT("/users/:id/", h.UpdateUser)
	rg.DELETE("/users/:id/", h.DeleteUser)

	rg.GET("/groups/", h.ListGroups)
	rg.POST("/groups/", h.CreateGroup)
	rg.GET("/groups/:id/", h.GetGroup)
	rg.PUT("/groups/:id/", h.UpdateGroup)
	rg.DELETE("/groups/:id/", h.DeleteGroup)
}

func (h *AdminHandler) ListUsers(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	list, err := h.users.ListUsers(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	resp := dto.ListResponse[dto.UserResponse]{Count: len(list), Results: make([]dto.UserResponse, 0, len(list))}
	for _, u := range list {
		resp.Results = append(resp.Results, dto.UserFromModel(u))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *AdminHandler) GetUser(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	user, err := h.users.GetUser(ctx, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.UserFromModel(*user))
}

func (h *AdminHandler) CreateUser(c *gin.Context) {
	var req dto.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": dto.FieldErrors(err)})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	user, err := h.users.CreateUser(ctx, req.ToInput())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.UserFromModel(*user))
}

func (h *AdminHandler) UpdateUser(c *gin.Context) {
	var req dto.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": dto.FieldErrors(err)})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	user, err := h.users.UpdateUser(ctx, c.Param("id"), req.ToInput())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.UserFromModel(*user))
}

// DeleteUser keeps the user's loans on record with the borrower cleared.
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.users.DeleteUser(ctx, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AdminHandler) ListGroups(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	list, err := h.users.ListGroups(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	resp := dto.ListResponse[dto.GroupResponse]{Count: len(list), Results: make([]dto.GroupResponse, 0, len(list))}
	for _, g := range list {
		resp.Results = append(resp.Results, dto.GroupFromModel(g))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *AdminHandler) GetGroup(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	g, err := h.users.GetGroup(ctx, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.GroupFromModel(*g))
}

func (h *AdminHandler) CreateGroup(c *gin.Context) {
	var req dto.GroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": dto.FieldErrors(err)})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	g, err := h.users.CreateGroup(ctx, req.ToInput())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.GroupFromModel(*g))
}

func (h *AdminHandler) UpdateGroup(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	var req dto.GroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": dto.FieldErrors(err)})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	g, err := h.users.UpdateGroup(ctx, id, req.ToInput())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.GroupFromModel(*g))
}

func (h *AdminHandler) DeleteGroup(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.users.DeleteGroup(ctx, id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
