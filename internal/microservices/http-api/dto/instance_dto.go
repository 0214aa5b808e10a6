package dto

import (
	"strconv"
	"time"

	"homelibrary/internal/microservices/http-api/models"
	"homelibrary/internal/microservices/http-api/service"
)

type BookRef struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

type InstanceResponse struct {
	ID          string   `json:"id"`
	Book        *BookRef `json:"book,omitempty"`
	Imprint     string   `json:"imprint"`
	DueBack     *string  `json:"due_back"`
	Status      string   `json:"status"`
	StatusLabel string   `json:"status_display"`
	IsOverdue   bool     `json:"is_overdue"`
	Borrower    *string  `json:"borrower"`
	Version     int64    `json:"version"`
}

// InstanceFromModel renders a copy as seen on today.
func InstanceFromModel(inst models.BookInstance, today time.Time) InstanceResponse {
	resp := InstanceResponse{
		ID:          inst.ID.String(),
		Imprint:     inst.Imprint,
		DueBack:     models.FormatDate(inst.DueBack),
		Status:      string(inst.Status),
		StatusLabel: inst.Status.Label(),
		IsOverdue:   service.IsOverdue(&inst, today),
		Version:     inst.Version,
	}
	if inst.Book != nil {
		resp.Book = &BookRef{ID: inst.Book.ID, Title: inst.Book.Title, URL: BookURL(inst.Book.ID)}
	}
	if inst.Borrower != nil {
		name := inst.Borrower.Username
		resp.Borrower = &name
	}
	return resp
}

func InstancesFromModels(list []models.BookInstance, today time.Time) []InstanceResponse {
	out := make([]InstanceResponse, 0, len(list))
	for _, inst := range list {
		out = append(out, InstanceFromModel(inst, today))
	}
	return out
}

type InstanceListResponse struct {
	Instances []InstanceResponse `json:"bookinstance_list"`
	Page      PageInfo           `json:"page_obj"`
}

// RenewalForm carries the librarian's proposed due date.
type RenewalForm struct {
	RenewalDate string `form:"renewal_date" json:"renewal_date" binding:"required,datetime=2006-01-02"`
}

type RenewalPage struct {
	Form         RenewalForm         `json:"form"`
	Errors       map[string][]string `json:"errors,omitempty"`
	BookInstance InstanceResponse    `json:"book_instance"`
}

// InstanceForm creates or edits a copy. Version guards edits against
// concurrent changes and may be omitted.
type InstanceForm struct {
	Book     string `form:"book" json:"book" binding:"required,numeric"`
	Imprint  string `form:"imprint" json:"imprint" binding:"notblank,max=200"`
	DueBack  string `form:"due_back" json:"due_back" binding:"omitempty,datetime=2006-01-02"`
	Borrower string `form:"borrower" json:"borrower" binding:"omitempty,uuid"`
	Status   string `form:"status" json:"status" binding:"omitempty,loancode"`
	Version  string `form:"version" json:"version" binding:"omitempty,numeric"`
}

func (f InstanceForm) ToInput() service.InstanceInput {
	in := service.InstanceInput{
		Imprint: f.Imprint,
		Status:  models.LoanStatus(f.Status),
	}
	if id := optionalID(f.Book); id != nil {
		in.BookID = *id
	}
	if t, err := models.ParseDate(f.DueBack); err == nil {
		in.DueBack = &t
	}
	if f.Borrower != "" {
		b := f.Borrower
		in.BorrowerID = &b
	}
	if v, err := strconv.ParseInt(f.Version, 10, 64); err == nil {
		in.Version = v
	}
	return in
}

func InstanceFormFrom(inst models.BookInstance) InstanceForm {
	f := InstanceForm{
		Book:    strconv.FormatInt(inst.BookID, 10),
		Imprint: inst.Imprint,
		Status:  string(inst.Status),
		Version: strconv.FormatInt(inst.Version, 10),
	}
	if s := models.FormatDate(inst.DueBack); s != nil {
		f.DueBack = *s
	}
	if inst.BorrowerID != nil {
		f.Borrower = *inst.BorrowerID
	}
	return f
}

type StatusChoice struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

func StatusChoices() []StatusChoice {
	out := make([]StatusChoice, 0, len(models.LoanStatuses))
	for _, s := range models.LoanStatuses {
		out = append(out, StatusChoice{Code: string(s), Label: s.Label()})
	}
	return out
}
