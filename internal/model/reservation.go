package model

import (
	"time"

	"gorm.io/gorm"
)

// ReservationStatus represents the lifecycle status of a lab reservation.
type ReservationStatus string

const (
	ReservationStatusPending   ReservationStatus = "PENDING"
	ReservationStatusApproved  ReservationStatus = "APPROVED"
	ReservationStatusRejected  ReservationStatus = "REJECTED"
	ReservationStatusCancelled ReservationStatus = "CANCELLED"
)

// reservationTransitions encodes the legal (from, to) status pairs.
// REJECTED and CANCELLED are terminal.
var reservationTransitions = map[ReservationStatus]map[ReservationStatus]bool{
	ReservationStatusPending: {
		ReservationStatusApproved:  true,
		ReservationStatusRejected:  true,
		ReservationStatusCancelled: true,
	},
	ReservationStatusApproved: {
		ReservationStatusCancelled: true,
	},
	ReservationStatusRejected:  {},
	ReservationStatusCancelled: {},
}

// CanTransition reports whether moving from s to the target status is legal.
func (s ReservationStatus) CanTransition(to ReservationStatus) bool {
	return reservationTransitions[s][to]
}

// Reservation represents a request for a lab time slot on a given date.
// The interval [StartTime, EndTime) is half-open: touching endpoints do
// not conflict. Invariant: StartTime < EndTime.
type Reservation struct {
	ID           uint              `json:"id" gorm:"primaryKey"`
	UserID       uint              `json:"user_id" gorm:"not null;index"`
	LabID        uint              `json:"lab_id" gorm:"not null;index:idx_reservations_lab_date,priority:1"`
	Date         string            `json:"date" gorm:"type:date;not null;index:idx_reservations_lab_date,priority:2"`
	StartTime    string            `json:"start_time" gorm:"size:5;not null"`
	EndTime      string            `json:"end_time" gorm:"size:5;not null"`
	Reason       string            `json:"reason" gorm:"size:512;not null"`
	CancelReason string            `json:"cancel_reason" gorm:"size:512"`
	Status       ReservationStatus `json:"status" gorm:"size:16;not null;default:'PENDING';index"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
	DeletedAt    gorm.DeletedAt    `json:"-" gorm:"index"`

	// Relations
	User *User `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Lab  *Lab  `json:"lab,omitempty" gorm:"foreignKey:LabID"`
}
