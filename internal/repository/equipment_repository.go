package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"labreserve/internal/model"
)

// EquipmentFilter narrows equipment listings. Zero values mean "any".
type EquipmentFilter struct {
	Status model.EquipmentStatus
	LabID  uint
	Search string
}

// EquipmentRepository defines equipment persistence operations.
type EquipmentRepository interface {
	Create(ctx context.Context, equipment *model.Equipment) error
	Update(ctx context.Context, equipment *model.Equipment) error
	Delete(ctx context.Context, id uint) error
	FindByID(ctx context.Context, id uint) (*model.Equipment, error)
	// FindByIDForUpdate locks the equipment row so concurrent stock
	// mutations against the same equipment serialize.
	FindByIDForUpdate(ctx context.Context, id uint) (*model.Equipment, error)
	List(ctx context.Context, filter EquipmentFilter) ([]model.Equipment, error)
	UpdateAvailableQuantity(ctx context.Context, id uint, quantity uint) error
	UpdateStatus(ctx context.Context, id uint, status model.EquipmentStatus) error
	// ClearLabRef detaches all equipment from a lab. Used when the lab is
	// deleted; equipment survives with a nil lab reference.
	ClearLabRef(ctx context.Context, labID uint) error
	WithTransaction(ctx context.Context, fn func(ctx context.Context, equipment EquipmentRepository) error) error
}

type equipmentRepository struct {
	db *gorm.DB
}

// NewEquipmentRepository creates a new equipment repository.
func NewEquipmentRepository(db *gorm.DB) EquipmentRepository {
	return &equipmentRepository{db: db}
}

// Create creates a new equipment record.
func (r *equipmentRepository) Create(ctx context.Context, equipment *model.Equipment) error {
	return r.db.WithContext(ctx).Create(equipment).Error
}

// Update updates an existing equipment record.
func (r *equipmentRepository) Update(ctx context.Context, equipment *model.Equipment) error {
	return r.db.WithContext(ctx).Save(equipment).Error
}

// Delete soft-deletes an equipment record.
func (r *equipmentRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&model.Equipment{}, id).Error
}

// FindByID finds equipment by ID.
func (r *equipmentRepository) FindByID(ctx context.Context, id uint) (*model.Equipment, error) {
	var equipment model.Equipment
	if err := r.db.WithContext(ctx).Preload("Lab").Where("id = ?", id).First(&equipment).Error; err != nil {
		return nil, err
	}
	return &equipment, nil
}

// FindByIDForUpdate finds equipment by ID with a row-level lock.
func (r *equipmentRepository) FindByIDForUpdate(ctx context.Context, id uint) (*model.Equipment, error) {
	var equipment model.Equipment
	if err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&equipment).Error; err != nil {
		return nil, err
	}
	return &equipment, nil
}

// List lists equipment matching the filter, ordered by name.
func (r *equipmentRepository) List(ctx context.Context, filter EquipmentFilter) ([]model.Equipment, error) {
	query := r.db.WithContext(ctx).Model(&model.Equipment{}).Preload("Lab")
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.LabID != 0 {
		query = query.Where("lab_id = ?", filter.LabID)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("name LIKE ? OR inventory_number LIKE ?", like, like)
	}

	var equipment []model.Equipment
	if err := query.Order("name").Find(&equipment).Error; err != nil {
		return nil, err
	}
	return equipment, nil
}

// UpdateAvailableQuantity updates the available quantity of an equipment row.
func (r *equipmentRepository) UpdateAvailableQuantity(ctx context.Context, id uint, quantity uint) error {
	return r.db.WithContext(ctx).Model(&model.Equipment{}).
		Where("id = ?", id).
		Update("available_quantity", quantity).Error
}

// UpdateStatus updates the status of an equipment row.
func (r *equipmentRepository) UpdateStatus(ctx context.Context, id uint, status model.EquipmentStatus) error {
	return r.db.WithContext(ctx).Model(&model.Equipment{}).
		Where("id = ?", id).
		Update("status", status).Error
}

// ClearLabRef nulls the lab reference on all equipment owned by the lab.
func (r *equipmentRepository) ClearLabRef(ctx context.Context, labID uint) error {
	return r.db.WithContext(ctx).Model(&model.Equipment{}).
		Where("lab_id = ?", labID).
		Update("lab_id", nil).Error
}

// WithTransaction executes fn within a database transaction.
func (r *equipmentRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context, equipment EquipmentRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &equipmentRepository{db: tx})
	})
}
