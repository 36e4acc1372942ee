package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"

	"labreserve/internal/errors"
	"labreserve/internal/model"
	"labreserve/internal/repository"
)

func newLoanFixture() (*MockLoanRepository, *MockEquipmentRepository, *loanService) {
	equipment := &MockEquipmentRepository{}
	loans := &MockLoanRepository{equipment: equipment}
	svc := NewLoanService(loans, equipment, nil).(*loanService)
	svc.now = func() time.Time { return time.Date(2026, 3, 20, 15, 0, 0, 0, time.UTC) }
	return loans, equipment, svc
}

func availableEquipment(id uint, total, available uint) *model.Equipment {
	return &model.Equipment{
		ID:                id,
		Name:              "Microscope",
		InventoryNumber:   "MIC-001",
		TotalQuantity:     total,
		AvailableQuantity: available,
		Status:            model.EquipmentStatusAvailable,
	}
}

func TestLoanService_Create(t *testing.T) {
	t.Run("creation does not reserve stock", func(t *testing.T) {
		loans, equipment, svc := newLoanFixture()
		equipment.On("FindByIDForUpdate", mock.Anything, uint(2)).Return(availableEquipment(2, 5, 5), nil)
		loans.On("Create", mock.Anything, mock.MatchedBy(func(l *model.Loan) bool {
			return l.Status == model.LoanStatusPending && l.Quantity == 3
		})).Return(nil)

		created, err := svc.Create(context.Background(), studentActor, LoanInput{
			EquipmentID: 2, Quantity: 3, LoanDate: "2026-03-21", DueDate: "2026-03-28",
		})

		assert.NoError(t, err)
		assert.Equal(t, model.LoanStatusPending, created.Status)
		// No UpdateAvailableQuantity expectation: stock is untouched until approval.
		equipment.AssertNotCalled(t, "UpdateAvailableQuantity", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("student always borrows for self", func(t *testing.T) {
		loans, equipment, svc := newLoanFixture()
		equipment.On("FindByIDForUpdate", mock.Anything, uint(2)).Return(availableEquipment(2, 5, 5), nil)
		loans.On("Create", mock.Anything, mock.MatchedBy(func(l *model.Loan) bool {
			return l.UserID == studentActor.UserID
		})).Return(nil)

		created, err := svc.Create(context.Background(), studentActor, LoanInput{
			UserID: 42, EquipmentID: 2, Quantity: 1, LoanDate: "2026-03-21", DueDate: "2026-03-28",
		})

		assert.NoError(t, err)
		assert.Equal(t, studentActor.UserID, created.UserID)
	})

	t.Run("quantity beyond availability rejected", func(t *testing.T) {
		_, equipment, svc := newLoanFixture()
		equipment.On("FindByIDForUpdate", mock.Anything, uint(2)).Return(availableEquipment(2, 5, 2), nil)

		_, err := svc.Create(context.Background(), studentActor, LoanInput{
			EquipmentID: 2, Quantity: 3, LoanDate: "2026-03-21", DueDate: "2026-03-28",
		})

		var verr *errors.ValidationError
		assert.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Fields, "quantity")
	})

	t.Run("equipment in maintenance rejected", func(t *testing.T) {
		_, equipment, svc := newLoanFixture()
		broken := availableEquipment(2, 5, 5)
		broken.Status = model.EquipmentStatusMaintenance
		equipment.On("FindByIDForUpdate", mock.Anything, uint(2)).Return(broken, nil)

		_, err := svc.Create(context.Background(), studentActor, LoanInput{
			EquipmentID: 2, Quantity: 1, LoanDate: "2026-03-21", DueDate: "2026-03-28",
		})

		var verr *errors.ValidationError
		assert.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Fields, "equipment")
	})

	t.Run("due date before loan date rejected", func(t *testing.T) {
		_, _, svc := newLoanFixture()

		_, err := svc.Create(context.Background(), studentActor, LoanInput{
			EquipmentID: 2, Quantity: 1, LoanDate: "2026-03-28", DueDate: "2026-03-21",
		})

		var verr *errors.ValidationError
		assert.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Fields, "due_date")
	})

	t.Run("unknown equipment rejected", func(t *testing.T) {
		_, equipment, svc := newLoanFixture()
		equipment.On("FindByIDForUpdate", mock.Anything, uint(99)).Return(nil, gorm.ErrRecordNotFound)

		_, err := svc.Create(context.Background(), studentActor, LoanInput{
			EquipmentID: 99, Quantity: 1, LoanDate: "2026-03-21", DueDate: "2026-03-28",
		})

		assert.ErrorIs(t, err, errors.ErrNotFound)
	})
}

func TestLoanService_Approve(t *testing.T) {
	t.Run("approval decrements availability", func(t *testing.T) {
		loans, equipment, svc := newLoanFixture()
		loan := &model.Loan{ID: 9, UserID: 7, EquipmentID: 2, Quantity: 3, Status: model.LoanStatusPending}
		loans.On("FindByIDForUpdate", mock.Anything, uint(9)).Return(loan, nil)
		equipment.On("FindByIDForUpdate", mock.Anything, uint(2)).Return(availableEquipment(2, 5, 5), nil)
		equipment.On("UpdateAvailableQuantity", mock.Anything, uint(2), uint(2)).Return(nil)
		loans.On("Update", mock.Anything, loan).Return(nil)

		approved, err := svc.Approve(context.Background(), techActor, 9)

		assert.NoError(t, err)
		assert.Equal(t, model.LoanStatusApproved, approved.Status)
		equipment.AssertExpectations(t)
	})

	t.Run("insufficient stock at approval", func(t *testing.T) {
		loans, equipment, svc := newLoanFixture()
		loan := &model.Loan{ID: 9, EquipmentID: 2, Quantity: 3, Status: model.LoanStatusPending}
		loans.On("FindByIDForUpdate", mock.Anything, uint(9)).Return(loan, nil)
		// A competing approval already took the stock down to 2.
		equipment.On("FindByIDForUpdate", mock.Anything, uint(2)).Return(availableEquipment(2, 5, 2), nil)

		_, err := svc.Approve(context.Background(), techActor, 9)

		assert.ErrorIs(t, err, errors.ErrInsufficientStock)
		equipment.AssertNotCalled(t, "UpdateAvailableQuantity", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("second approval of the same loan does not debit stock again", func(t *testing.T) {
		loans, equipment, svc := newLoanFixture()
		// A competing approval committed first; the locked read observes
		// the APPROVED status and fails the transition check.
		loan := &model.Loan{ID: 9, EquipmentID: 2, Quantity: 3, Status: model.LoanStatusApproved}
		loans.On("FindByIDForUpdate", mock.Anything, uint(9)).Return(loan, nil)

		_, err := svc.Approve(context.Background(), techActor, 9)

		var terr *errors.InvalidTransitionError
		assert.ErrorAs(t, err, &terr)
		assert.Equal(t, "APPROVED", terr.From)
		equipment.AssertNotCalled(t, "UpdateAvailableQuantity", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("approving a returned loan rejected", func(t *testing.T) {
		loans, _, svc := newLoanFixture()
		loan := &model.Loan{ID: 9, EquipmentID: 2, Quantity: 1, Status: model.LoanStatusReturned}
		loans.On("FindByIDForUpdate", mock.Anything, uint(9)).Return(loan, nil)

		_, err := svc.Approve(context.Background(), techActor, 9)

		var terr *errors.InvalidTransitionError
		assert.ErrorAs(t, err, &terr)
		assert.Equal(t, "RETURNED", terr.From)
	})

	t.Run("student cannot approve", func(t *testing.T) {
		_, _, svc := newLoanFixture()

		_, err := svc.Approve(context.Background(), studentActor, 9)

		assert.ErrorIs(t, err, errors.ErrForbidden)
	})
}

func TestLoanService_Reject(t *testing.T) {
	t.Run("rejection leaves stock untouched", func(t *testing.T) {
		loans, equipment, svc := newLoanFixture()
		loan := &model.Loan{ID: 9, EquipmentID: 2, Quantity: 3, Status: model.LoanStatusPending}
		loans.On("FindByIDForUpdate", mock.Anything, uint(9)).Return(loan, nil)
		loans.On("Update", mock.Anything, loan).Return(nil)

		rejected, err := svc.Reject(context.Background(), adminActor, 9)

		assert.NoError(t, err)
		assert.Equal(t, model.LoanStatusRejected, rejected.Status)
		equipment.AssertNotCalled(t, "UpdateAvailableQuantity", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("rejecting an approved loan rejected", func(t *testing.T) {
		loans, _, svc := newLoanFixture()
		loan := &model.Loan{ID: 9, Status: model.LoanStatusApproved}
		loans.On("FindByIDForUpdate", mock.Anything, uint(9)).Return(loan, nil)

		_, err := svc.Reject(context.Background(), adminActor, 9)

		var terr *errors.InvalidTransitionError
		assert.ErrorAs(t, err, &terr)
	})
}

func TestLoanService_Return(t *testing.T) {
	t.Run("undamaged return restores availability", func(t *testing.T) {
		loans, equipment, svc := newLoanFixture()
		loan := &model.Loan{ID: 9, EquipmentID: 2, Quantity: 3, Status: model.LoanStatusApproved}
		loans.On("FindByIDForUpdate", mock.Anything, uint(9)).Return(loan, nil)
		equipment.On("FindByIDForUpdate", mock.Anything, uint(2)).Return(availableEquipment(2, 5, 2), nil)
		equipment.On("UpdateAvailableQuantity", mock.Anything, uint(2), uint(5)).Return(nil)
		loans.On("Update", mock.Anything, loan).Return(nil)

		returned, err := svc.Return(context.Background(), techActor, 9, false)

		assert.NoError(t, err)
		assert.Equal(t, model.LoanStatusReturned, returned.Status)
		assert.False(t, returned.Damaged)
		assert.NotNil(t, returned.ReturnDate)
		assert.Equal(t, "2026-03-20", *returned.ReturnDate)
	})

	t.Run("restore is capped at total quantity", func(t *testing.T) {
		loans, equipment, svc := newLoanFixture()
		loan := &model.Loan{ID: 9, EquipmentID: 2, Quantity: 3, Status: model.LoanStatusApproved}
		loans.On("FindByIDForUpdate", mock.Anything, uint(9)).Return(loan, nil)
		// An inventory resize shrank the total below what was out on loan.
		equipment.On("FindByIDForUpdate", mock.Anything, uint(2)).Return(availableEquipment(2, 4, 2), nil)
		equipment.On("UpdateAvailableQuantity", mock.Anything, uint(2), uint(4)).Return(nil)
		loans.On("Update", mock.Anything, loan).Return(nil)

		_, err := svc.Return(context.Background(), techActor, 9, false)

		assert.NoError(t, err)
		equipment.AssertExpectations(t)
	})

	t.Run("damaged return pulls equipment into maintenance without restore", func(t *testing.T) {
		loans, equipment, svc := newLoanFixture()
		loan := &model.Loan{ID: 9, EquipmentID: 2, Quantity: 3, Status: model.LoanStatusApproved}
		loans.On("FindByIDForUpdate", mock.Anything, uint(9)).Return(loan, nil)
		equipment.On("FindByIDForUpdate", mock.Anything, uint(2)).Return(availableEquipment(2, 5, 2), nil)
		equipment.On("UpdateStatus", mock.Anything, uint(2), model.EquipmentStatusMaintenance).Return(nil)
		loans.On("Update", mock.Anything, loan).Return(nil)

		returned, err := svc.Return(context.Background(), techActor, 9, true)

		assert.NoError(t, err)
		assert.Equal(t, model.LoanStatusDamaged, returned.Status)
		assert.True(t, returned.Damaged)
		equipment.AssertNotCalled(t, "UpdateAvailableQuantity", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("double return rejected", func(t *testing.T) {
		loans, _, svc := newLoanFixture()
		loan := &model.Loan{ID: 9, EquipmentID: 2, Quantity: 3, Status: model.LoanStatusReturned}
		loans.On("FindByIDForUpdate", mock.Anything, uint(9)).Return(loan, nil)

		_, err := svc.Return(context.Background(), techActor, 9, false)

		var terr *errors.InvalidTransitionError
		assert.ErrorAs(t, err, &terr)
	})

	t.Run("returning a pending loan rejected", func(t *testing.T) {
		loans, _, svc := newLoanFixture()
		loan := &model.Loan{ID: 9, EquipmentID: 2, Quantity: 1, Status: model.LoanStatusPending}
		loans.On("FindByIDForUpdate", mock.Anything, uint(9)).Return(loan, nil)

		_, err := svc.Return(context.Background(), techActor, 9, false)

		var terr *errors.InvalidTransitionError
		assert.ErrorAs(t, err, &terr)
	})
}

func TestLoanService_Get_ScopesStudents(t *testing.T) {
	loans, _, svc := newLoanFixture()
	loans.On("FindByID", mock.Anything, uint(9)).Return(&model.Loan{ID: 9, UserID: 42}, nil)

	_, err := svc.Get(context.Background(), studentActor, 9)

	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestLoanService_List_ScopesStudents(t *testing.T) {
	loans, _, svc := newLoanFixture()
	loans.On("List", mock.Anything, mock.MatchedBy(func(f repository.LoanFilter) bool {
		return f.UserID == studentActor.UserID
	})).Return([]model.Loan{}, nil)

	_, err := svc.List(context.Background(), studentActor, repository.LoanFilter{UserID: 42})

	assert.NoError(t, err)
	loans.AssertExpectations(t)
}

func TestLoanService_List_PassesEquipmentSearch(t *testing.T) {
	loans, _, svc := newLoanFixture()
	loans.On("List", mock.Anything, mock.MatchedBy(func(f repository.LoanFilter) bool {
		return f.Search == "oscilloscope"
	})).Return([]model.Loan{}, nil)

	_, err := svc.List(context.Background(), adminActor, repository.LoanFilter{Search: "oscilloscope"})

	assert.NoError(t, err)
	loans.AssertExpectations(t)
}
