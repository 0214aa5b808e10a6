package service

import (
	"context"
	"errors"
	"strings"

	"homelibrary/internal/middleware/auth"
	"homelibrary/internal/microservices/http-api/models"
	"homelibrary/internal/microservices/http-api/repository"
)

type CreateUserInput struct {
	Username    string
	Password    string
	Email       string
	Groups      []string // group names
	IsSuperuser bool
}

// UpdateUserInput: nil fields are left unchanged. Groups, when non-nil,
// replaces the whole membership.
type UpdateUserInput struct {
	Email    *string
	IsActive *bool
	Password *string
	Groups   []string
}

type GroupInput struct {
	Name        string
	Permissions []string // codenames
}

type UserService interface {
	ListUsers(ctx context.Context) ([]models.User, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	CreateUser(ctx context.Context, in CreateUserInput) (*models.User, error)
	UpdateUser(ctx context.Context, id string, in UpdateUserInput) (*models.User, error)
	DeleteUser(ctx context.Context, id string) error
	GrantPermission(ctx context.Context, username, codename string) error

	ListGroups(ctx context.Context) ([]models.Group, error)
	GetGroup(ctx context.Context, id int64) (*models.Group, error)
	CreateGroup(ctx context.Context, in GroupInput) (*models.Group, error)
	UpdateGroup(ctx context.Context, id int64, in GroupInput) (*models.Group, error)
	DeleteGroup(ctx context.Context, id int64) error
}

type userService struct {
	users       repository.UserRepository
	groups      repository.GroupRepository
	permissions repository.PermissionRepository
}

func NewUserService(
	users repository.UserRepository,
	groups repository.GroupRepository,
	permissions repository.PermissionRepository,
) UserService {
	return &userService{users: users, groups: groups, permissions: permissions}
}

const minPasswordLength = 8

func (s *userService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.users.List(ctx)
}

func (s *userService) GetUser(ctx context.Context, id string) (*models.User, error) {
	return s.users.FindByID(ctx, id)
}

// resolveGroups maps names to groups, reporting unknown names on field "groups".
func (s *userService) resolveGroups(ctx context.Context, names []string, verr *ValidationError) ([]models.Group, error) {
	names = uniqueStrings(names)
	groups, err := s.groups.FindByNames(ctx, names)
	if err != nil {
		return nil, err
	}
	if len(groups) != len(names) {
		known := make(map[string]bool, len(groups))
		for _, g := range groups {
			known[g.Name] = true
		}
		for _, n := range names {
			if !known[n] {
				verr.Add("groups", `Object with name="`+n+`" does not exist.`)
			}
		}
	}
	return groups, nil
}

func (s *userService) CreateUser(ctx context.Context, in CreateUserInput) (*models.User, error) {
	verr := &ValidationError{}
	requireText(verr, "username", &in.Username, 150)
	if len(in.Password) < minPasswordLength {
		verr.Add("password", "Ensure this field has at least 8 characters.")
	}
	in.Email = strings.TrimSpace(in.Email)
	if in.Email != "" && !strings.Contains(in.Email, "@") {
		verr.Add("email", "Enter a valid email address.")
	}
	groups, err := s.resolveGroups(ctx, in.Groups, verr)
	if err != nil {
		return nil, err
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	hashed, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Username:    in.Username,
		Email:       in.Email,
		Password:    hashed,
		IsActive:    true,
		IsSuperuser: in.IsSuperuser,
		Groups:      groups,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *userService) UpdateUser(ctx context.Context, id string, in UpdateUserInput) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	verr := &ValidationError{}
	if in.Email != nil {
		email := strings.TrimSpace(*in.Email)
		if email != "" && !strings.Contains(email, "@") {
			verr.Add("email", "Enter a valid email address.")
		}
		user.Email = email
	}
	if in.IsActive != nil {
		user.IsActive = *in.IsActive
	}
	if in.Password != nil {
		if len(*in.Password) < minPasswordLength {
			verr.Add("password", "Ensure this field has at least 8 characters.")
		} else {
			hashed, err := auth.HashPassword(*in.Password)
			if err != nil {
				return nil, err
			}
			user.Password = hashed
		}
	}
	if in.Groups != nil {
		groups, err := s.resolveGroups(ctx, in.Groups, verr)
		if err != nil {
			return nil, err
		}
		user.Groups = groups
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return s.users.FindByID(ctx, id)
}

func (s *userService) DeleteUser(ctx context.Context, id string) error {
	return s.users.Delete(ctx, id)
}

func (s *userService) GrantPermission(ctx context.Context, username, codename string) error {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return err
	}
	perms, err := s.permissions.FindByCodenames(ctx, []string{codename})
	if err != nil {
		return err
	}
	if len(perms) == 0 {
		verr := &ValidationError{}
		verr.Add("permission", `Unknown permission "`+codename+`".`)
		return verr
	}
	return s.users.AddPermission(ctx, user.ID, perms[0])
}

func (s *userService) ListGroups(ctx context.Context) ([]models.Group, error) {
	return s.groups.List(ctx)
}

func (s *userService) GetGroup(ctx context.Context, id int64) (*models.Group, error) {
	return s.groups.GetByID(ctx, id)
}

func (s *userService) buildGroup(ctx context.Context, in GroupInput) (*models.Group, error) {
	verr := &ValidationError{}
	requireText(verr, "name", &in.Name, 150)

	codes := uniqueStrings(in.Permissions)
	perms, err := s.permissions.FindByCodenames(ctx, codes)
	if err != nil {
		return nil, err
	}
	if len(perms) != len(codes) {
		known := make(map[string]bool, len(perms))
		for _, p := range perms {
			known[p.Codename] = true
		}
		for _, c := range codes {
			if !known[c] {
				verr.Add("permissions", `Object with codename="`+c+`" does not exist.`)
			}
		}
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	return &models.Group{Name: in.Name, Permissions: perms}, nil
}

func (s *userService) CreateGroup(ctx context.Context, in GroupInput) (*models.Group, error) {
	g, err := s.buildGroup(ctx, in)
	if err != nil {
		return nil, err
	}
	if err := s.groups.Create(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

func (s *userService) UpdateGroup(ctx context.Context, id int64, in GroupInput) (*models.Group, error) {
	if _, err := s.groups.GetByID(ctx, id); err != nil {
		return nil, err
	}
	g, err := s.buildGroup(ctx, in)
	if err != nil {
		return nil, err
	}
	g.ID = id
	if err := s.groups.Update(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

func (s *userService) DeleteGroup(ctx context.Context, id int64) error {
	return s.groups.Delete(ctx, id)
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// IsNotFound reports whether err means the addressed record does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}
