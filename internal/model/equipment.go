package model

import (
	"time"

	"gorm.io/gorm"
)

// EquipmentStatus represents the circulation status of an equipment item.
type EquipmentStatus string

const (
	EquipmentStatusAvailable   EquipmentStatus = "AVAILABLE"
	EquipmentStatusMaintenance EquipmentStatus = "MAINTENANCE"
)

// Valid reports whether the status is one of the known equipment statuses.
func (s EquipmentStatus) Valid() bool {
	switch s {
	case EquipmentStatusAvailable, EquipmentStatusMaintenance:
		return true
	}
	return false
}

// Equipment represents a loanable equipment type with a quantity pool.
// Invariant: 0 <= AvailableQuantity <= TotalQuantity at all times.
//
// LabID is a weak back-reference to the owning lab: deleting the lab clears
// the reference, it never deletes the equipment.
type Equipment struct {
	ID                uint            `json:"id" gorm:"primaryKey"`
	Name              string          `json:"name" gorm:"size:255;not null;index"`
	Description       string          `json:"description" gorm:"type:text"`
	InventoryNumber   string          `json:"inventory_number" gorm:"uniqueIndex;size:64;not null"`
	TotalQuantity     uint            `json:"total_quantity" gorm:"not null"`
	AvailableQuantity uint            `json:"available_quantity" gorm:"not null"`
	Status            EquipmentStatus `json:"status" gorm:"size:16;not null;default:'AVAILABLE';index"`
	LabID             *uint           `json:"lab_id" gorm:"index"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	DeletedAt         gorm.DeletedAt  `json:"-" gorm:"index"`

	// Relations
	Lab *Lab `json:"lab,omitempty" gorm:"foreignKey:LabID"`
}
