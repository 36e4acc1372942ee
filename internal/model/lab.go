package model

import (
	"time"

	"gorm.io/gorm"
)

// LabStatus represents the operational status of a lab.
type LabStatus string

const (
	LabStatusActive      LabStatus = "ACTIVE"
	LabStatusInactive    LabStatus = "INACTIVE"
	LabStatusMaintenance LabStatus = "MAINTENANCE"
)

// Valid reports whether the status is one of the known lab statuses.
func (s LabStatus) Valid() bool {
	switch s {
	case LabStatusActive, LabStatusInactive, LabStatusMaintenance:
		return true
	}
	return false
}

// Lab represents a reservable laboratory space.
// A lab that is not ACTIVE cannot accept new reservations.
type Lab struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	Name      string         `json:"name" gorm:"size:255;not null;index"`
	Building  string         `json:"building" gorm:"size:255;not null"`
	Floor     string         `json:"floor" gorm:"size:32;not null"`
	Capacity  uint           `json:"capacity" gorm:"not null"`
	Type      string         `json:"type" gorm:"size:64;not null;index"`
	Status    LabStatus      `json:"status" gorm:"size:16;not null;default:'ACTIVE';index"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}
