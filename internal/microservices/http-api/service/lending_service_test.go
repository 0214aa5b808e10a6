package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"homelibrary/internal/microservices/http-api/models"
	"homelibrary/internal/microservices/http-api/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// a fixed afternoon so date math never depends on the wall clock
var testNow = time.Date(2024, time.March, 10, 15, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func datePtr(t time.Time) *time.Time { return &t }

func TestIsOverdue(t *testing.T) {
	today := day(2024, time.March, 10)

	tests := []struct {
		name string
		due  *time.Time
		want bool
	}{
		{"no due date", nil, false},
		{"due yesterday", datePtr(day(2024, time.March, 9)), true},
		{"due today", datePtr(day(2024, time.March, 10)), false},
		{"due tomorrow", datePtr(day(2024, time.March, 11)), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inst := &models.BookInstance{DueBack: tt.due}
			assert.Equal(t, tt.want, IsOverdue(inst, today))
		})
	}

	assert.False(t, IsOverdue(nil, today))
}

func TestIsOverdue_IgnoresTimeOfDay(t *testing.T) {
	inst := &models.BookInstance{DueBack: datePtr(day(2024, time.March, 10))}
	lateEvening := time.Date(2024, time.March, 10, 23, 59, 0, 0, time.UTC)
	assert.False(t, IsOverdue(inst, lateEvening))
}

func TestValidateRenewal(t *testing.T) {
	today := day(2024, time.March, 10)

	tests := []struct {
		name     string
		proposed time.Time
		kind     RenewalKind
	}{
		{"yesterday", today.AddDate(0, 0, -1), RenewalPast},
		{"today", today, 0},
		{"default three weeks", DefaultRenewalDate(today), 0},
		{"exactly four weeks", today.AddDate(0, 0, 28), 0},
		{"four weeks and a day", today.AddDate(0, 0, 29), RenewalTooFar},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRenewal(tt.proposed, today)
			if tt.kind == 0 {
				assert.NoError(t, err)
				return
			}
			var rerr *RenewalError
			require.True(t, errors.As(err, &rerr))
			assert.Equal(t, tt.kind, rerr.Kind)
		})
	}
}

func TestRenewalError_Messages(t *testing.T) {
	assert.Equal(t, "Invalid date - renewal in past", (&RenewalError{Kind: RenewalPast}).Error())
	assert.Equal(t, "Invalid date - renewal more than 4 weeks ahead", (&RenewalError{Kind: RenewalTooFar}).Error())
}

func TestDefaultRenewalDate(t *testing.T) {
	assert.Equal(t, day(2024, time.March, 31), DefaultRenewalDate(testNow))
}

func TestToday_UsesUTCDate(t *testing.T) {
	// 23:30 on the 10th in New York is already the 11th in UTC
	eastern := time.FixedZone("EST", -5*60*60)
	late := time.Date(2024, time.March, 10, 23, 30, 0, 0, eastern)
	svc := NewLendingService(nil, nil, nil, func() time.Time { return late })

	assert.Equal(t, day(2024, time.March, 11), svc.Today())
}

func newLending(instances *MockBookInstanceRepository, books *MockBookRepository, users *MockUserRepository) LendingService {
	return NewLendingService(instances, books, users, fixedClock)
}

func onLoan(id uuid.UUID) *models.BookInstance {
	borrower := "user-id"
	return &models.BookInstance{
		ID:         id,
		BookID:     1,
		Imprint:    "Penguin, 2001",
		DueBack:    datePtr(day(2024, time.March, 1)),
		BorrowerID: &borrower,
		Status:     models.StatusOnLoan,
		Version:    3,
	}
}

func TestRenew_Success(t *testing.T) {
	instances := new(MockBookInstanceRepository)
	svc := newLending(instances, new(MockBookRepository), new(MockUserRepository))

	id := uuid.New()
	instances.On("GetByID", id).Return(onLoan(id), nil)
	instances.On("Update", mock.MatchedBy(func(inst *models.BookInstance) bool {
		return inst.DueBack != nil && inst.DueBack.Equal(day(2024, time.March, 24))
	})).Return(nil)

	inst, err := svc.Renew(context.Background(), id, time.Date(2024, time.March, 24, 9, 0, 0, 0, time.UTC))

	require.NoError(t, err)
	assert.Equal(t, day(2024, time.March, 24), *inst.DueBack)
	assert.Equal(t, models.StatusOnLoan, inst.Status)
	require.NotNil(t, inst.BorrowerID)
	assert.Equal(t, "user-id", *inst.BorrowerID)
	instances.AssertExpectations(t)
}

func TestRenew_RejectedDateLeavesCopyUntouched(t *testing.T) {
	instances := new(MockBookInstanceRepository)
	svc := newLending(instances, new(MockBookRepository), new(MockUserRepository))

	id := uuid.New()
	instances.On("GetByID", id).Return(onLoan(id), nil)

	_, err := svc.Renew(context.Background(), id, day(2024, time.March, 9))
	var rerr *RenewalError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, RenewalPast, rerr.Kind)

	_, err = svc.Renew(context.Background(), id, day(2024, time.April, 8))
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, RenewalTooFar, rerr.Kind)

	instances.AssertNotCalled(t, "Update", mock.Anything)
}

func TestRenew_UnknownCopy(t *testing.T) {
	instances := new(MockBookInstanceRepository)
	svc := newLending(instances, new(MockBookRepository), new(MockUserRepository))

	id := uuid.New()
	instances.On("GetByID", id).Return(nil, repository.ErrNotFound)

	_, err := svc.Renew(context.Background(), id, day(2024, time.March, 20))
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestRenew_StaleCopy(t *testing.T) {
	instances := new(MockBookInstanceRepository)
	svc := newLending(instances, new(MockBookRepository), new(MockUserRepository))

	id := uuid.New()
	stale := &repository.StaleObjectError{Entity: "book instance", ID: id.String()}
	instances.On("GetByID", id).Return(onLoan(id), nil)
	instances.On("Update", mock.Anything).Return(stale)

	_, err := svc.Renew(context.Background(), id, day(2024, time.March, 20))

	var serr *repository.StaleObjectError
	assert.ErrorAs(t, err, &serr)
}

func TestMarkReturned(t *testing.T) {
	instances := new(MockBookInstanceRepository)
	svc := newLending(instances, new(MockBookRepository), new(MockUserRepository))

	id := uuid.New()
	instances.On("GetByID", id).Return(onLoan(id), nil)
	instances.On("Update", mock.AnythingOfType("*models.BookInstance")).Return(nil)

	inst, err := svc.MarkReturned(context.Background(), id)

	require.NoError(t, err)
	assert.Equal(t, models.StatusAvailable, inst.Status)
	assert.Nil(t, inst.BorrowerID)
	assert.Nil(t, inst.DueBack)
	assert.False(t, IsOverdue(inst, svc.Today()))
	instances.AssertExpectations(t)
}

func TestCreateInstance_Validation(t *testing.T) {
	instances := new(MockBookInstanceRepository)
	books := new(MockBookRepository)
	users := new(MockUserRepository)
	svc := newLending(instances, books, users)

	books.On("GetByID", int64(99)).Return(nil, repository.ErrNotFound)
	users.On("FindByID", "ghost").Return(nil, repository.ErrNotFound)
	ghost := "ghost"

	_, err := svc.CreateInstance(context.Background(), InstanceInput{
		BookID:     99,
		Imprint:    "   ",
		BorrowerID: &ghost,
		Status:     "x",
	})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "book")
	assert.Contains(t, verr.Fields, "imprint")
	assert.Contains(t, verr.Fields, "borrower")
	assert.Contains(t, verr.Fields, "status")
	instances.AssertNotCalled(t, "Create", mock.Anything)
}

func TestCreateInstance_DefaultsToMaintenance(t *testing.T) {
	instances := new(MockBookInstanceRepository)
	books := new(MockBookRepository)
	svc := newLending(instances, books, new(MockUserRepository))

	books.On("GetByID", int64(1)).Return(&models.Book{ID: 1, Title: "Test Book 1"}, nil)
	instances.On("Create", mock.AnythingOfType("*models.BookInstance")).Return(nil)

	inst, err := svc.CreateInstance(context.Background(), InstanceInput{BookID: 1, Imprint: "Unlikely Imprint, 2016"})

	require.NoError(t, err)
	assert.Equal(t, models.StatusMaintenance, inst.Status)
	assert.Equal(t, "Unlikely Imprint, 2016", inst.Imprint)
}

func TestUpdateInstance_CarriesPostedVersion(t *testing.T) {
	instances := new(MockBookInstanceRepository)
	books := new(MockBookRepository)
	svc := newLending(instances, books, new(MockUserRepository))

	id := uuid.New()
	instances.On("GetByID", id).Return(onLoan(id), nil)
	books.On("GetByID", int64(1)).Return(&models.Book{ID: 1}, nil)
	instances.On("Update", mock.MatchedBy(func(inst *models.BookInstance) bool {
		return inst.Version == 2 && inst.Status == models.StatusReserved
	})).Return(nil)

	_, err := svc.UpdateInstance(context.Background(), id, InstanceInput{
		BookID:  1,
		Imprint: "Penguin, 2001",
		Status:  models.StatusReserved,
		Version: 2,
	})

	require.NoError(t, err)
	instances.AssertExpectations(t)
}

func TestDeleteInstance_ReturnsParentBook(t *testing.T) {
	instances := new(MockBookInstanceRepository)
	svc := newLending(instances, new(MockBookRepository), new(MockUserRepository))

	id := uuid.New()
	instances.On("GetByID", id).Return(onLoan(id), nil)
	instances.On("Delete", id).Return(nil)

	bookID, err := svc.DeleteInstance(context.Background(), id)

	require.NoError(t, err)
	assert.Equal(t, int64(1), bookID)
}

func TestAuthorize(t *testing.T) {
	librarians := models.Group{Name: "Librarians", Permissions: []models.Permission{{Codename: models.PermCanMarkReturned}}}

	tests := []struct {
		name string
		user *models.User
		perm string
		want error
	}{
		{"anonymous, login only", nil, "", ErrUnauthenticated},
		{"anonymous beats missing permission", nil, models.PermCanMarkReturned, ErrUnauthenticated},
		{"inactive", &models.User{IsActive: false, IsSuperuser: true}, "", ErrUnauthenticated},
		{"member, login only", &models.User{IsActive: true}, "", nil},
		{"member without permission", &models.User{IsActive: true}, models.PermCanMarkReturned, ErrForbidden},
		{"librarian via group", &models.User{IsActive: true, Groups: []models.Group{librarians}}, models.PermCanMarkReturned, nil},
		{"direct grant", &models.User{IsActive: true, Permissions: librarians.Permissions}, models.PermCanMarkReturned, nil},
		{"superuser", &models.User{IsActive: true, IsSuperuser: true}, models.PermCanMarkReturned, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Authorize(tt.user, tt.perm)
			if tt.want == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}
