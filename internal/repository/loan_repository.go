package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"labreserve/internal/model"
)

// LoanFilter narrows loan listings. Zero values mean "any".
type LoanFilter struct {
	Status      model.LoanStatus
	EquipmentID uint
	UserID      uint
	LoanDate    string
	Search      string
}

// EquipmentUsage is a per-equipment loan count for the usage report.
type EquipmentUsage struct {
	EquipmentID   uint   `json:"equipment_id"`
	EquipmentName string `json:"equipment_name"`
	TotalLoans    int64  `json:"total_loans"`
}

// LoanRepository defines loan persistence operations.
type LoanRepository interface {
	Create(ctx context.Context, loan *model.Loan) error
	Update(ctx context.Context, loan *model.Loan) error
	Delete(ctx context.Context, id uint) error
	FindByID(ctx context.Context, id uint) (*model.Loan, error)
	// FindByIDForUpdate locks the loan row so concurrent decisions on the
	// same loan serialize.
	FindByIDForUpdate(ctx context.Context, id uint) (*model.Loan, error)
	List(ctx context.Context, filter LoanFilter) ([]model.Loan, error)
	// CountUsageByEquipment groups loans with the given statuses and a
	// loan_date within [from, to] by equipment.
	CountUsageByEquipment(ctx context.Context, from, to string, statuses []model.LoanStatus) ([]EquipmentUsage, error)
	// ListDamagedBetween lists DAMAGED loans whose return_date falls in
	// [from, to], with equipment preloaded.
	ListDamagedBetween(ctx context.Context, from, to string) ([]model.Loan, error)
	// WithTransaction runs fn inside a transaction, handing it loan and
	// equipment repositories bound to that transaction. Stock mutations and
	// loan status changes commit or roll back together.
	WithTransaction(ctx context.Context, fn func(ctx context.Context, loans LoanRepository, equipment EquipmentRepository) error) error
}

type loanRepository struct {
	db *gorm.DB
}

// NewLoanRepository creates a new loan repository.
func NewLoanRepository(db *gorm.DB) LoanRepository {
	return &loanRepository{db: db}
}

// Create creates a new loan.
func (r *loanRepository) Create(ctx context.Context, loan *model.Loan) error {
	return r.db.WithContext(ctx).Create(loan).Error
}

// Update updates an existing loan.
func (r *loanRepository) Update(ctx context.Context, loan *model.Loan) error {
	return r.db.WithContext(ctx).Save(loan).Error
}

// Delete soft-deletes a loan.
func (r *loanRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&model.Loan{}, id).Error
}

// FindByID finds a loan by ID with its user and equipment.
func (r *loanRepository) FindByID(ctx context.Context, id uint) (*model.Loan, error) {
	var loan model.Loan
	if err := r.db.WithContext(ctx).Preload("User").Preload("Equipment").
		Where("id = ?", id).First(&loan).Error; err != nil {
		return nil, err
	}
	return &loan, nil
}

// FindByIDForUpdate finds a loan by ID with a row-level lock.
func (r *loanRepository) FindByIDForUpdate(ctx context.Context, id uint) (*model.Loan, error) {
	var loan model.Loan
	if err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&loan).Error; err != nil {
		return nil, err
	}
	return &loan, nil
}

// List lists loans matching the filter, newest loan date first.
func (r *loanRepository) List(ctx context.Context, filter LoanFilter) ([]model.Loan, error) {
	query := r.db.WithContext(ctx).Model(&model.Loan{}).Preload("User").Preload("Equipment")
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.EquipmentID != 0 {
		query = query.Where("equipment_id = ?", filter.EquipmentID)
	}
	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.LoanDate != "" {
		query = query.Where("loan_date = ?", filter.LoanDate)
	}
	if filter.Search != "" {
		query = query.Joins("JOIN equipment ON equipment.id = loans.equipment_id").
			Where("equipment.name LIKE ?", "%"+filter.Search+"%")
	}

	var loans []model.Loan
	if err := query.Order("loan_date DESC").Find(&loans).Error; err != nil {
		return nil, err
	}
	return loans, nil
}

// CountUsageByEquipment aggregates loan counts per equipment.
func (r *loanRepository) CountUsageByEquipment(ctx context.Context, from, to string, statuses []model.LoanStatus) ([]EquipmentUsage, error) {
	var usage []EquipmentUsage
	err := r.db.WithContext(ctx).Model(&model.Loan{}).
		Select("loans.equipment_id AS equipment_id, equipment.name AS equipment_name, COUNT(loans.id) AS total_loans").
		Joins("JOIN equipment ON equipment.id = loans.equipment_id").
		Where("loans.status IN ?", statuses).
		Where("loans.loan_date BETWEEN ? AND ?", from, to).
		Group("loans.equipment_id, equipment.name").
		Order("loans.equipment_id").
		Scan(&usage).Error
	if err != nil {
		return nil, err
	}
	return usage, nil
}

// ListDamagedBetween lists damaged loans returned within the range.
func (r *loanRepository) ListDamagedBetween(ctx context.Context, from, to string) ([]model.Loan, error) {
	var loans []model.Loan
	err := r.db.WithContext(ctx).Preload("Equipment").
		Where("status = ?", model.LoanStatusDamaged).
		Where("return_date BETWEEN ? AND ?", from, to).
		Order("return_date DESC").
		Find(&loans).Error
	if err != nil {
		return nil, err
	}
	return loans, nil
}

// WithTransaction executes fn within a database transaction.
func (r *loanRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context, loans LoanRepository, equipment EquipmentRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &loanRepository{db: tx}, &equipmentRepository{db: tx})
	})
}
