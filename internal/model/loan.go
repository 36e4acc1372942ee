package model

import (
	"time"

	"gorm.io/gorm"
)

// LoanStatus represents the lifecycle status of an equipment loan.
type LoanStatus string

const (
	LoanStatusPending  LoanStatus = "PENDING"
	LoanStatusApproved LoanStatus = "APPROVED"
	LoanStatusRejected LoanStatus = "REJECTED"
	LoanStatusReturned LoanStatus = "RETURNED"
	LoanStatusDamaged  LoanStatus = "DAMAGED"
)

// loanTransitions encodes the legal (from, to) status pairs. Stock is
// reserved on the PENDING -> APPROVED edge and released (capped) on
// APPROVED -> RETURNED. REJECTED, RETURNED and DAMAGED are terminal.
var loanTransitions = map[LoanStatus]map[LoanStatus]bool{
	LoanStatusPending: {
		LoanStatusApproved: true,
		LoanStatusRejected: true,
	},
	LoanStatusApproved: {
		LoanStatusReturned: true,
		LoanStatusDamaged:  true,
	},
	LoanStatusRejected: {},
	LoanStatusReturned: {},
	LoanStatusDamaged:  {},
}

// CanTransition reports whether moving from s to the target status is legal.
func (s LoanStatus) CanTransition(to LoanStatus) bool {
	return loanTransitions[s][to]
}

// Loan represents a request to borrow a quantity of an equipment item.
// Invariant: LoanDate <= DueDate. ReturnDate is set only when the loan
// transitions into RETURNED or DAMAGED.
type Loan struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	UserID      uint           `json:"user_id" gorm:"not null;index"`
	EquipmentID uint           `json:"equipment_id" gorm:"not null;index"`
	Quantity    uint           `json:"quantity" gorm:"not null"`
	LoanDate    string         `json:"loan_date" gorm:"type:date;not null;index"`
	DueDate     string         `json:"due_date" gorm:"type:date;not null"`
	ReturnDate  *string        `json:"return_date" gorm:"type:date"`
	Damaged     bool           `json:"damaged" gorm:"not null;default:false"`
	Status      LoanStatus     `json:"status" gorm:"size:16;not null;default:'PENDING';index"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	User      *User      `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Equipment *Equipment `json:"equipment,omitempty" gorm:"foreignKey:EquipmentID"`
}
