package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LoanStatus is the single-letter availability code of a BookInstance.
type LoanStatus string

const (
	StatusMaintenance LoanStatus = "m"
	StatusOnLoan      LoanStatus = "o"
	StatusAvailable   LoanStatus = "a"
	StatusReserved    LoanStatus = "r"
)

var loanStatusLabels = map[LoanStatus]string{
	StatusMaintenance: "Maintenance",
	StatusOnLoan:      "On loan",
	StatusAvailable:   "Available",
	StatusReserved:    "Reserved",
}

// LoanStatuses lists every code in display order.
var LoanStatuses = []LoanStatus{StatusMaintenance, StatusOnLoan, StatusAvailable, StatusReserved}

func (s LoanStatus) Valid() bool {
	_, ok := loanStatusLabels[s]
	return ok
}

func (s LoanStatus) Label() string {
	if l, ok := loanStatusLabels[s]; ok {
		return l
	}
	return string(s)
}

// BookInstance is one physical, lendable copy of a Book.
type BookInstance struct {
	ID         uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	BookID     int64      `json:"book_id" gorm:"not null;index"`
	Imprint    string     `json:"imprint" gorm:"size:200;not null"`
	DueBack    *time.Time `json:"due_back,omitempty" gorm:"type:date;index"`
	BorrowerID *string    `json:"borrower_id,omitempty" gorm:"type:uuid;index"`
	Status     LoanStatus `json:"status" gorm:"size:1;not null;default:'m';index"`
	Version    int64      `json:"version" gorm:"not null;default:1"`

	// associations
	Book     *Book `json:"book,omitempty" gorm:"foreignKey:BookID;constraint:OnDelete:RESTRICT;"`
	Borrower *User `json:"borrower,omitempty" gorm:"foreignKey:BorrowerID;constraint:OnDelete:SET NULL;"`
}

func (BookInstance) TableName() string {
	return "book_instances"
}

// BeforeCreate assigns a random v4 id so loan records cannot be enumerated.
func (bi *BookInstance) BeforeCreate(tx *gorm.DB) error {
	if bi.ID == uuid.Nil {
		bi.ID = uuid.New()
	}
	if bi.Status == "" {
		bi.Status = StatusMaintenance
	}
	if bi.Version == 0 {
		bi.Version = 1
	}
	return nil
}

func (bi BookInstance) String() string {
	if bi.Book != nil {
		return fmt.Sprintf("%s (%s)", bi.ID, bi.Book.Title)
	}
	return bi.ID.String()
}
