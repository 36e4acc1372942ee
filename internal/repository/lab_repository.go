package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"labreserve/internal/model"
)

// LabFilter narrows lab listings. Zero values mean "any".
type LabFilter struct {
	Status model.LabStatus
	Type   string
	Search string
}

// LabRepository defines lab persistence operations.
type LabRepository interface {
	Create(ctx context.Context, lab *model.Lab) error
	Update(ctx context.Context, lab *model.Lab) error
	Delete(ctx context.Context, id uint) error
	FindByID(ctx context.Context, id uint) (*model.Lab, error)
	// FindByIDForUpdate locks the lab row for the rest of the transaction.
	// Reservation writes lock the lab to serialize overlap checks per lab.
	FindByIDForUpdate(ctx context.Context, id uint) (*model.Lab, error)
	List(ctx context.Context, filter LabFilter) ([]model.Lab, error)
	// WithTransaction runs fn inside a transaction, handing it lab and
	// equipment repositories bound to that transaction.
	WithTransaction(ctx context.Context, fn func(ctx context.Context, labs LabRepository, equipment EquipmentRepository) error) error
}

type labRepository struct {
	db *gorm.DB
}

// NewLabRepository creates a new lab repository.
func NewLabRepository(db *gorm.DB) LabRepository {
	return &labRepository{db: db}
}

// Create creates a new lab.
func (r *labRepository) Create(ctx context.Context, lab *model.Lab) error {
	return r.db.WithContext(ctx).Create(lab).Error
}

// Update updates an existing lab.
func (r *labRepository) Update(ctx context.Context, lab *model.Lab) error {
	return r.db.WithContext(ctx).Save(lab).Error
}

// Delete soft-deletes a lab.
func (r *labRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&model.Lab{}, id).Error
}

// FindByID finds a lab by ID.
func (r *labRepository) FindByID(ctx context.Context, id uint) (*model.Lab, error) {
	var lab model.Lab
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&lab).Error; err != nil {
		return nil, err
	}
	return &lab, nil
}

// FindByIDForUpdate finds a lab by ID with a row-level lock.
func (r *labRepository) FindByIDForUpdate(ctx context.Context, id uint) (*model.Lab, error) {
	var lab model.Lab
	if err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&lab).Error; err != nil {
		return nil, err
	}
	return &lab, nil
}

// List lists labs matching the filter, ordered by name.
func (r *labRepository) List(ctx context.Context, filter LabFilter) ([]model.Lab, error) {
	query := r.db.WithContext(ctx).Model(&model.Lab{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("name LIKE ? OR building LIKE ?", like, like)
	}

	var labs []model.Lab
	if err := query.Order("name").Find(&labs).Error; err != nil {
		return nil, err
	}
	return labs, nil
}

// WithTransaction executes fn within a database transaction.
func (r *labRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context, labs LabRepository, equipment EquipmentRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &labRepository{db: tx}, &equipmentRepository{db: tx})
	})
}
