package models

// PermCanMarkReturned is the librarian capability. It gates every catalog
// mutation and the renewal/return workflow.
const PermCanMarkReturned = "can_mark_returned"

// DefaultPermissions are created by migrations when missing.
var DefaultPermissions = []Permission{
	{Codename: PermCanMarkReturned, Name: "Set book as returned"},
}

type Permission struct {
	ID       int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Codename string `gorm:"uniqueIndex;size:100;not null" json:"codename"`
	Name     string `gorm:"size:255;not null" json:"name"`
}

func (Permission) TableName() string {
	return "permissions"
}

type Group struct {
	ID          int64        `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string       `gorm:"uniqueIndex;size:150;not null" json:"name"`
	Permissions []Permission `gorm:"many2many:group_permissions;constraint:OnDelete:CASCADE;" json:"permissions,omitempty"`
}

// "groups" is a keyword in newer SQLite versions
func (Group) TableName() string {
	return "auth_groups"
}
