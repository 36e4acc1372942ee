package service

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"labreserve/internal/auth"
	"labreserve/internal/cache"
	"labreserve/internal/errors"
	"labreserve/internal/model"
	"labreserve/internal/repository"
)

// LoanInput carries the mutable fields of a loan request. UserID is
// advisory: students are always forced to themselves.
type LoanInput struct {
	UserID      uint
	EquipmentID uint
	Quantity    int
	LoanDate    string
	DueDate     string
}

// LoanService validates and mutates equipment loan requests and keeps the
// equipment availability counters consistent through the loan lifecycle.
type LoanService interface {
	Create(ctx context.Context, actor auth.Actor, input LoanInput) (*model.Loan, error)
	Update(ctx context.Context, actor auth.Actor, id uint, input LoanInput) (*model.Loan, error)
	Delete(ctx context.Context, actor auth.Actor, id uint) error
	Approve(ctx context.Context, actor auth.Actor, id uint) (*model.Loan, error)
	Reject(ctx context.Context, actor auth.Actor, id uint) (*model.Loan, error)
	Return(ctx context.Context, actor auth.Actor, id uint, damaged bool) (*model.Loan, error)
	Get(ctx context.Context, actor auth.Actor, id uint) (*model.Loan, error)
	List(ctx context.Context, actor auth.Actor, filter repository.LoanFilter) ([]model.Loan, error)
}

type loanService struct {
	loanRepo      repository.LoanRepository
	equipmentRepo repository.EquipmentRepository
	cache         *cache.Client
	now           func() time.Time
}

// NewLoanService creates a new loan service.
func NewLoanService(loanRepo repository.LoanRepository, equipmentRepo repository.EquipmentRepository, cache *cache.Client) LoanService {
	return &loanService{
		loanRepo:      loanRepo,
		equipmentRepo: equipmentRepo,
		cache:         cache,
		now:           time.Now,
	}
}

// Create validates and records a new loan with status PENDING. Stock is not
// reserved here; availability is only consumed at approval.
func (s *loanService) Create(ctx context.Context, actor auth.Actor, input LoanInput) (*model.Loan, error) {
	if err := validateLoanInput(input); err != nil {
		return nil, err
	}

	userID := input.UserID
	// Students always borrow for themselves, whatever the payload says.
	if actor.Role == model.RoleStudent || userID == 0 {
		userID = actor.UserID
	}

	loan := &model.Loan{
		UserID:      userID,
		EquipmentID: input.EquipmentID,
		Quantity:    uint(input.Quantity),
		LoanDate:    input.LoanDate,
		DueDate:     input.DueDate,
		Status:      model.LoanStatusPending,
	}

	err := s.loanRepo.WithTransaction(ctx, func(ctx context.Context, loans repository.LoanRepository, equipment repository.EquipmentRepository) error {
		if err := checkEquipmentAvailability(ctx, equipment, input.EquipmentID, uint(input.Quantity)); err != nil {
			return err
		}
		return loans.Create(ctx, loan)
	})
	if err != nil {
		return nil, err
	}
	return loan, nil
}

// Update re-runs creation validation against the new field values. Staff only.
func (s *loanService) Update(ctx context.Context, actor auth.Actor, id uint, input LoanInput) (*model.Loan, error) {
	if !actor.Can(auth.ActionLoanModify) {
		return nil, errors.ErrForbidden
	}
	if err := validateLoanInput(input); err != nil {
		return nil, err
	}

	var updated *model.Loan
	err := s.loanRepo.WithTransaction(ctx, func(ctx context.Context, loans repository.LoanRepository, equipment repository.EquipmentRepository) error {
		loan, err := loans.FindByID(ctx, id)
		if err != nil {
			return translateNotFound(err)
		}

		if err := checkEquipmentAvailability(ctx, equipment, input.EquipmentID, uint(input.Quantity)); err != nil {
			return err
		}

		loan.EquipmentID = input.EquipmentID
		loan.Quantity = uint(input.Quantity)
		loan.LoanDate = input.LoanDate
		loan.DueDate = input.DueDate
		if input.UserID != 0 {
			loan.UserID = input.UserID
		}
		if err := loans.Update(ctx, loan); err != nil {
			return err
		}
		updated = loan
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes a loan. Staff only.
func (s *loanService) Delete(ctx context.Context, actor auth.Actor, id uint) error {
	if !actor.Can(auth.ActionLoanModify) {
		return errors.ErrForbidden
	}
	if _, err := s.loanRepo.FindByID(ctx, id); err != nil {
		return translateNotFound(err)
	}
	return s.loanRepo.Delete(ctx, id)
}

// Approve reserves stock and sets the loan APPROVED. Both the loan and the
// equipment rows are locked: of two concurrent approvals of the same loan,
// the second observes APPROVED and fails the transition check instead of
// decrementing stock twice.
func (s *loanService) Approve(ctx context.Context, actor auth.Actor, id uint) (*model.Loan, error) {
	if !actor.Can(auth.ActionLoanDecide) {
		return nil, errors.ErrForbidden
	}

	var approved *model.Loan
	err := s.loanRepo.WithTransaction(ctx, func(ctx context.Context, loans repository.LoanRepository, equipment repository.EquipmentRepository) error {
		loan, err := loans.FindByIDForUpdate(ctx, id)
		if err != nil {
			return translateNotFound(err)
		}
		if !loan.Status.CanTransition(model.LoanStatusApproved) {
			return &errors.InvalidTransitionError{
				Entity: "loan",
				From:   string(loan.Status),
				To:     string(model.LoanStatusApproved),
			}
		}

		equip, err := equipment.FindByIDForUpdate(ctx, loan.EquipmentID)
		if err != nil {
			return translateNotFound(err)
		}
		if equip.AvailableQuantity < loan.Quantity {
			return errors.ErrInsufficientStock
		}

		if err := equipment.UpdateAvailableQuantity(ctx, equip.ID, equip.AvailableQuantity-loan.Quantity); err != nil {
			return err
		}
		loan.Status = model.LoanStatusApproved
		if err := loans.Update(ctx, loan); err != nil {
			return err
		}
		approved = loan
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateEquipment(ctx, approved.EquipmentID)
	return approved, nil
}

// Reject sets a PENDING loan REJECTED. No stock was reserved, so none is
// released.
func (s *loanService) Reject(ctx context.Context, actor auth.Actor, id uint) (*model.Loan, error) {
	if !actor.Can(auth.ActionLoanDecide) {
		return nil, errors.ErrForbidden
	}

	var rejected *model.Loan
	err := s.loanRepo.WithTransaction(ctx, func(ctx context.Context, loans repository.LoanRepository, _ repository.EquipmentRepository) error {
		loan, err := loans.FindByIDForUpdate(ctx, id)
		if err != nil {
			return translateNotFound(err)
		}
		if !loan.Status.CanTransition(model.LoanStatusRejected) {
			return &errors.InvalidTransitionError{
				Entity: "loan",
				From:   string(loan.Status),
				To:     string(model.LoanStatusRejected),
			}
		}

		loan.Status = model.LoanStatusRejected
		if err := loans.Update(ctx, loan); err != nil {
			return err
		}
		rejected = loan
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rejected, nil
}

// Return processes the return of an APPROVED loan. An undamaged return
// restores availability capped at the total quantity; a damaged return
// leaves the units checked out and pulls the equipment into maintenance.
func (s *loanService) Return(ctx context.Context, actor auth.Actor, id uint, damaged bool) (*model.Loan, error) {
	if !actor.Can(auth.ActionLoanReturn) {
		return nil, errors.ErrForbidden
	}

	target := model.LoanStatusReturned
	if damaged {
		target = model.LoanStatusDamaged
	}

	var returned *model.Loan
	err := s.loanRepo.WithTransaction(ctx, func(ctx context.Context, loans repository.LoanRepository, equipment repository.EquipmentRepository) error {
		loan, err := loans.FindByIDForUpdate(ctx, id)
		if err != nil {
			return translateNotFound(err)
		}
		if !loan.Status.CanTransition(target) {
			return &errors.InvalidTransitionError{
				Entity: "loan",
				From:   string(loan.Status),
				To:     string(target),
			}
		}

		equip, err := equipment.FindByIDForUpdate(ctx, loan.EquipmentID)
		if err != nil {
			return translateNotFound(err)
		}

		if damaged {
			if err := equipment.UpdateStatus(ctx, equip.ID, model.EquipmentStatusMaintenance); err != nil {
				return err
			}
		} else {
			restored := equip.AvailableQuantity + loan.Quantity
			if restored > equip.TotalQuantity {
				restored = equip.TotalQuantity
			}
			if err := equipment.UpdateAvailableQuantity(ctx, equip.ID, restored); err != nil {
				return err
			}
		}

		today := s.now().Format(dateLayout)
		loan.ReturnDate = &today
		loan.Damaged = damaged
		loan.Status = target
		if err := loans.Update(ctx, loan); err != nil {
			return err
		}
		returned = loan
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateEquipment(ctx, returned.EquipmentID)
	return returned, nil
}

// Get fetches a single loan. Students only ever see their own.
func (s *loanService) Get(ctx context.Context, actor auth.Actor, id uint) (*model.Loan, error) {
	loan, err := s.loanRepo.FindByID(ctx, id)
	if err != nil {
		return nil, translateNotFound(err)
	}
	if !actor.Can(auth.ActionListAll) && loan.UserID != actor.UserID {
		return nil, errors.ErrNotFound
	}
	return loan, nil
}

// List lists loans, scoped to the actor for students.
func (s *loanService) List(ctx context.Context, actor auth.Actor, filter repository.LoanFilter) ([]model.Loan, error) {
	if err := validateFilterDates(filter.LoanDate); err != nil {
		return nil, err
	}
	if !actor.Can(auth.ActionListAll) {
		filter.UserID = actor.UserID
	}
	return s.loanRepo.List(ctx, filter)
}

func (s *loanService) invalidateEquipment(ctx context.Context, id uint) {
	_ = s.cache.Delete(ctx, fmt.Sprintf("equipment:%d", id))
}

// validateLoanInput checks field formats, quantity and date ordering.
func validateLoanInput(input LoanInput) error {
	fields := map[string]string{}
	if input.EquipmentID == 0 {
		fields["equipment"] = "equipment is required"
	}
	if input.Quantity <= 0 {
		fields["quantity"] = "must be greater than zero"
	}
	if _, err := time.Parse(dateLayout, input.LoanDate); err != nil {
		fields["loan_date"] = "invalid format, use YYYY-MM-DD"
	}
	if _, err := time.Parse(dateLayout, input.DueDate); err != nil {
		fields["due_date"] = "invalid format, use YYYY-MM-DD"
	}
	if len(fields) > 0 {
		return &errors.ValidationError{Fields: fields}
	}

	if input.LoanDate > input.DueDate {
		return errors.NewValidation("due_date", "due date must not precede the loan date")
	}
	return nil
}

// checkEquipmentAvailability verifies the equipment circulates and has
// enough stock to ever satisfy the request. No stock is consumed here.
func checkEquipmentAvailability(ctx context.Context, equipment repository.EquipmentRepository, equipmentID, quantity uint) error {
	equip, err := equipment.FindByIDForUpdate(ctx, equipmentID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return fmt.Errorf("equipment %d: %w", equipmentID, errors.ErrNotFound)
		}
		return err
	}
	if equip.Status != model.EquipmentStatusAvailable {
		return errors.NewValidation("equipment", "equipment is not available")
	}
	if equip.AvailableQuantity < quantity {
		return errors.NewValidation("quantity", "requested quantity exceeds availability")
	}
	return nil
}
