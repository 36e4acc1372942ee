package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"labreserve/internal/model"
)

// ReservationFilter narrows reservation listings. Zero values mean "any".
type ReservationFilter struct {
	Status   model.ReservationStatus
	LabID    uint
	UserID   uint
	Date     string
	DateFrom string
	DateTo   string
	Search   string
}

// ReservationRepository defines reservation persistence operations.
type ReservationRepository interface {
	Create(ctx context.Context, reservation *model.Reservation) error
	Update(ctx context.Context, reservation *model.Reservation) error
	Delete(ctx context.Context, id uint) error
	FindByID(ctx context.Context, id uint) (*model.Reservation, error)
	// FindByIDForUpdate locks the reservation row so concurrent decisions
	// on the same reservation serialize.
	FindByIDForUpdate(ctx context.Context, id uint) (*model.Reservation, error)
	List(ctx context.Context, filter ReservationFilter) ([]model.Reservation, error)
	// CountOverlapping counts PENDING or APPROVED reservations on the same
	// lab and date whose half-open interval overlaps [start, end).
	// excludeID, when non-zero, skips the reservation's own row so a no-op
	// edit does not conflict with itself.
	CountOverlapping(ctx context.Context, labID uint, date, start, end string, excludeID uint) (int64, error)
	// WithTransaction runs fn inside a transaction, handing it reservation
	// and lab repositories bound to that transaction.
	WithTransaction(ctx context.Context, fn func(ctx context.Context, reservations ReservationRepository, labs LabRepository) error) error
}

type reservationRepository struct {
	db *gorm.DB
}

// NewReservationRepository creates a new reservation repository.
func NewReservationRepository(db *gorm.DB) ReservationRepository {
	return &reservationRepository{db: db}
}

// Create creates a new reservation.
func (r *reservationRepository) Create(ctx context.Context, reservation *model.Reservation) error {
	return r.db.WithContext(ctx).Create(reservation).Error
}

// Update updates an existing reservation.
func (r *reservationRepository) Update(ctx context.Context, reservation *model.Reservation) error {
	return r.db.WithContext(ctx).Save(reservation).Error
}

// Delete soft-deletes a reservation.
func (r *reservationRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&model.Reservation{}, id).Error
}

// FindByID finds a reservation by ID with its user and lab.
func (r *reservationRepository) FindByID(ctx context.Context, id uint) (*model.Reservation, error) {
	var reservation model.Reservation
	if err := r.db.WithContext(ctx).Preload("User").Preload("Lab").
		Where("id = ?", id).First(&reservation).Error; err != nil {
		return nil, err
	}
	return &reservation, nil
}

// FindByIDForUpdate finds a reservation by ID with a row-level lock.
func (r *reservationRepository) FindByIDForUpdate(ctx context.Context, id uint) (*model.Reservation, error) {
	var reservation model.Reservation
	if err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&reservation).Error; err != nil {
		return nil, err
	}
	return &reservation, nil
}

// List lists reservations matching the filter, newest first.
func (r *reservationRepository) List(ctx context.Context, filter ReservationFilter) ([]model.Reservation, error) {
	query := r.db.WithContext(ctx).Model(&model.Reservation{}).Preload("User").Preload("Lab")
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.LabID != 0 {
		query = query.Where("lab_id = ?", filter.LabID)
	}
	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Date != "" {
		query = query.Where("date = ?", filter.Date)
	}
	if filter.DateFrom != "" {
		query = query.Where("date >= ?", filter.DateFrom)
	}
	if filter.DateTo != "" {
		query = query.Where("date <= ?", filter.DateTo)
	}
	if filter.Search != "" {
		query = query.Where("reason LIKE ?", "%"+filter.Search+"%")
	}

	var reservations []model.Reservation
	if err := query.Order("date DESC, start_time DESC").Find(&reservations).Error; err != nil {
		return nil, err
	}
	return reservations, nil
}

// CountOverlapping counts blocking reservations overlapping the interval.
func (r *reservationRepository) CountOverlapping(ctx context.Context, labID uint, date, start, end string, excludeID uint) (int64, error) {
	query := r.db.WithContext(ctx).Model(&model.Reservation{}).
		Where("lab_id = ? AND date = ?", labID, date).
		Where("status IN ?", []model.ReservationStatus{model.ReservationStatusPending, model.ReservationStatusApproved}).
		Where("start_time < ? AND end_time > ?", end, start)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// WithTransaction executes fn within a database transaction.
func (r *reservationRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context, reservations ReservationRepository, labs LabRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &reservationRepository{db: tx}, &labRepository{db: tx})
	})
}
