package models

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID          string     `gorm:"primaryKey;type:uuid" json:"id"`
	Username    string     `gorm:"uniqueIndex;size:150;not null" json:"username"`
	Email       string     `gorm:"size:254" json:"email"`
	Password    string     `gorm:"column:password_hash;not null" json:"-"` // Not show in JSON
	IsActive    bool       `gorm:"not null" json:"is_active"`
	IsSuperuser bool       `gorm:"not null" json:"is_superuser"`
	DateJoined  time.Time  `gorm:"autoCreateTime;index" json:"date_joined"`
	LastLogin   *time.Time `json:"last_login,omitempty"`

	// associations
	Groups      []Group      `gorm:"many2many:user_groups;constraint:OnDelete:CASCADE;" json:"groups,omitempty"`
	Permissions []Permission `gorm:"many2many:user_permissions;constraint:OnDelete:CASCADE;" json:"-"`
}

// BeforeCreate hook to set UUID before creating a User
func (user *User) BeforeCreate(tx *gorm.DB) (err error) {
	// If the ID is not already set, generate a new one.
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	return
}

func (User) TableName() string {
	return "users"
}

// HasPerm reports whether the user holds codename directly or through a group.
// Active superusers hold every permission. Groups and Permissions must be loaded.
func (user *User) HasPerm(codename string) bool {
	if user == nil || !user.IsActive {
		return false
	}
	if user.IsSuperuser {
		return true
	}
	for _, p := range user.Permissions {
		if p.Codename == codename {
			return true
		}
	}
	for _, g := range user.Groups {
		for _, p := range g.Permissions {
			if p.Codename == codename {
				return true
			}
		}
	}
	return false
}

// PermissionSet returns the sorted union of direct and group permission codenames.
func (user *User) PermissionSet() []string {
	seen := make(map[string]bool)
	for _, p := range user.Permissions {
		seen[p.Codename] = true
	}
	for _, g := range user.Groups {
		for _, p := range g.Permissions {
			seen[p.Codename] = true
		}
	}
	out := make([]string, 0, len(seen))
	for code := range seen {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}
