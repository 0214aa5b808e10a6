package models

import (
	"fmt"
	"time"
)

type Author struct {
	ID          int64      `json:"id" gorm:"primaryKey;autoIncrement"`
	FirstName   string     `json:"first_name" gorm:"size:100;not null"`
	LastName    string     `json:"last_name" gorm:"size:100;not null;index:idx_author_name"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty" gorm:"type:date"`
	DateOfDeath *time.Time `json:"date_of_death,omitempty" gorm:"type:date"`
}

func (Author) TableName() string {
	return "authors"
}

// String renders the author the way catalog listings show it: "Last, First".
func (a Author) String() string {
	return fmt.Sprintf("%s, %s", a.LastName, a.FirstName)
}
