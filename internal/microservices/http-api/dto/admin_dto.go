package dto

import (
	"fmt"
	"time"

	"homelibrary/internal/microservices/http-api/models"
	"homelibrary/internal/microservices/http-api/service"
)

type UserResponse struct {
	ID          string     `json:"id"`
	URL         string     `json:"url"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	IsActive    bool       `json:"is_active"`
	IsSuperuser bool       `json:"is_superuser"`
	DateJoined  time.Time  `json:"date_joined"`
	LastLogin   *time.Time `json:"last_login"`
	Groups      []string   `json:"groups"`
	Permissions []string   `json:"permissions"`
}

func UserFromModel(u models.User) UserResponse {
	groups := make([]string, 0, len(u.Groups))
	for _, g := range u.Groups {
		groups = append(groups, g.Name)
	}
	return UserResponse{
		ID:          u.ID,
		URL:         "/api/users/" + u.ID + "/",
		Username:    u.Username,
		Email:       u.Email,
		IsActive:    u.IsActive,
		IsSuperuser: u.IsSuperuser,
		DateJoined:  u.DateJoined,
		LastLogin:   u.LastLogin,
		Groups:      groups,
		Permissions: u.PermissionSet(),
	}
}

type CreateUserRequest struct {
	Username string   `json:"username" binding:"notblank,max=150"`
	Password string   `json:"password" binding:"required,min=8"`
	Email    string   `json:"email" binding:"omitempty,email"`
	Groups   []string `json:"groups"`
}

func (r CreateUserRequest) ToInput() service.CreateUserInput {
	return service.CreateUserInput{
		Username: r.Username,
		Password: r.Password,
		Email:    r.Email,
		Groups:   r.Groups,
	}
}

// UpdateUserRequest: absent fields keep their value
type UpdateUserRequest struct {
	Email    *string  `json:"email" binding:"omitempty,email"`
	IsActive *bool    `json:"is_active"`
	Password *string  `json:"password" binding:"omitempty,min=8"`
	Groups   []string `json:"groups"`
}

func (r UpdateUserRequest) ToInput() service.UpdateUserInput {
	return service.UpdateUserInput{
		Email:    r.Email,
		IsActive: r.IsActive,
		Password: r.Password,
		Groups:   r.Groups,
	}
}

type GroupResponse struct {
	ID          int64    `json:"id"`
	URL         string   `json:"url"`
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
}

func GroupFromModel(g models.Group) GroupResponse {
	perms := make([]string, 0, len(g.Permissions))
	for _, p := range g.Permissions {
		perms = append(perms, p.Codename)
	}
	return GroupResponse{
		ID:          g.ID,
		URL:         fmt.Sprintf("/api/groups/%d/", g.ID),
		Name:        g.Name,
		Permissions: perms,
	}
}

type GroupRequest struct {
	Name        string   `json:"name" binding:"notblank,max=150"`
	Permissions []string `json:"permissions"`
}

func (r GroupRequest) ToInput() service.GroupInput {
	return service.GroupInput{Name: r.Name, Permissions: r.Permissions}
}

// ListResponse mirrors the paginated envelope REST clients expect.
type ListResponse[T any] struct {
	Count   int `json:"count"`
	Results []T `json:"results"`
}
