package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"labreserve/internal/auth"
	"labreserve/internal/cache"
	"labreserve/internal/errors"
	"labreserve/internal/model"
	"labreserve/internal/repository"
)

const equipmentCacheTTL = 5 * time.Minute

// EquipmentInput carries the mutable fields of an equipment record.
type EquipmentInput struct {
	Name              string
	Description       string
	InventoryNumber   string
	TotalQuantity     uint
	AvailableQuantity *uint
	Status            model.EquipmentStatus
	LabID             *uint
}

// EquipmentService handles the equipment registry and its stock counters.
type EquipmentService interface {
	Create(ctx context.Context, actor auth.Actor, input EquipmentInput) (*model.Equipment, error)
	Update(ctx context.Context, actor auth.Actor, id uint, input EquipmentInput) (*model.Equipment, error)
	Delete(ctx context.Context, actor auth.Actor, id uint) error
	Get(ctx context.Context, id uint) (*model.Equipment, error)
	List(ctx context.Context, filter repository.EquipmentFilter) ([]model.Equipment, error)
}

type equipmentService struct {
	equipmentRepo repository.EquipmentRepository
	labRepo       repository.LabRepository
	cache         *cache.Client
}

// NewEquipmentService creates a new equipment service.
func NewEquipmentService(equipmentRepo repository.EquipmentRepository, labRepo repository.LabRepository, cache *cache.Client) EquipmentService {
	return &equipmentService{
		equipmentRepo: equipmentRepo,
		labRepo:       labRepo,
		cache:         cache,
	}
}

func (s *equipmentService) cacheKey(id uint) string {
	return fmt.Sprintf("equipment:%d", id)
}

// Create registers new equipment. Staff only. The available count starts at
// the total unless explicitly set lower.
func (s *equipmentService) Create(ctx context.Context, actor auth.Actor, input EquipmentInput) (*model.Equipment, error) {
	if !actor.Can(auth.ActionEquipmentWrite) {
		return nil, errors.ErrForbidden
	}
	if err := validateEquipmentInput(input); err != nil {
		return nil, err
	}
	if err := s.checkLabRef(ctx, input.LabID); err != nil {
		return nil, err
	}

	available := input.TotalQuantity
	if input.AvailableQuantity != nil && *input.AvailableQuantity < available {
		available = *input.AvailableQuantity
	}
	status := input.Status
	if status == "" {
		status = model.EquipmentStatusAvailable
	}

	equip := &model.Equipment{
		Name:              input.Name,
		Description:       input.Description,
		InventoryNumber:   input.InventoryNumber,
		TotalQuantity:     input.TotalQuantity,
		AvailableQuantity: available,
		Status:            status,
		LabID:             input.LabID,
	}
	if err := s.equipmentRepo.Create(ctx, equip); err != nil {
		return nil, err
	}
	return equip, nil
}

// Update modifies an equipment record. Staff only. The stock counters are
// updated under a row lock so concurrent loan approvals never observe a
// half-applied resize, and the available count is clamped to the new total.
func (s *equipmentService) Update(ctx context.Context, actor auth.Actor, id uint, input EquipmentInput) (*model.Equipment, error) {
	if !actor.Can(auth.ActionEquipmentWrite) {
		return nil, errors.ErrForbidden
	}
	if err := validateEquipmentInput(input); err != nil {
		return nil, err
	}
	if err := s.checkLabRef(ctx, input.LabID); err != nil {
		return nil, err
	}

	var updated *model.Equipment
	err := s.equipmentRepo.WithTransaction(ctx, func(ctx context.Context, equipment repository.EquipmentRepository) error {
		equip, err := equipment.FindByIDForUpdate(ctx, id)
		if err != nil {
			return translateNotFound(err)
		}

		equip.Name = input.Name
		equip.Description = input.Description
		equip.InventoryNumber = input.InventoryNumber
		equip.TotalQuantity = input.TotalQuantity
		if input.AvailableQuantity != nil {
			equip.AvailableQuantity = *input.AvailableQuantity
		}
		if equip.AvailableQuantity > equip.TotalQuantity {
			equip.AvailableQuantity = equip.TotalQuantity
		}
		if input.Status != "" {
			equip.Status = input.Status
		}
		equip.LabID = input.LabID

		if err := equipment.Update(ctx, equip); err != nil {
			return err
		}
		updated = equip
		return nil
	})
	if err != nil {
		return nil, err
	}

	_ = s.cache.Delete(ctx, s.cacheKey(id))
	return updated, nil
}

// Delete removes an equipment record. Staff only.
func (s *equipmentService) Delete(ctx context.Context, actor auth.Actor, id uint) error {
	if !actor.Can(auth.ActionEquipmentWrite) {
		return errors.ErrForbidden
	}
	if _, err := s.equipmentRepo.FindByID(ctx, id); err != nil {
		return translateNotFound(err)
	}
	if err := s.equipmentRepo.Delete(ctx, id); err != nil {
		return err
	}
	_ = s.cache.Delete(ctx, s.cacheKey(id))
	return nil
}

// Get retrieves equipment by ID with caching.
func (s *equipmentService) Get(ctx context.Context, id uint) (*model.Equipment, error) {
	// Try cache first
	if data, _ := s.cache.Get(ctx, s.cacheKey(id)); data != nil {
		var cached model.Equipment
		if err := json.Unmarshal(data, &cached); err == nil {
			return &cached, nil
		}
	}

	equip, err := s.equipmentRepo.FindByID(ctx, id)
	if err != nil {
		return nil, translateNotFound(err)
	}

	// Cache the result
	if payload, err := json.Marshal(equip); err == nil {
		_ = s.cache.Set(ctx, s.cacheKey(id), payload, equipmentCacheTTL)
	}
	return equip, nil
}

// List lists equipment matching the filter. Open to every authenticated user.
func (s *equipmentService) List(ctx context.Context, filter repository.EquipmentFilter) ([]model.Equipment, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, errors.NewValidation("status", "unknown status")
	}
	return s.equipmentRepo.List(ctx, filter)
}

// checkLabRef verifies the referenced lab exists. The reference is
// advisory, so a nil lab is always fine.
func (s *equipmentService) checkLabRef(ctx context.Context, labID *uint) error {
	if labID == nil {
		return nil
	}
	if _, err := s.labRepo.FindByID(ctx, *labID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return errors.NewValidation("lab_id", "lab does not exist")
		}
		return err
	}
	return nil
}

func validateEquipmentInput(input EquipmentInput) error {
	fields := map[string]string{}
	if input.Name == "" {
		fields["name"] = "name is required"
	}
	if input.InventoryNumber == "" {
		fields["inventory_number"] = "inventory number is required"
	}
	if input.TotalQuantity == 0 {
		fields["total_quantity"] = "must be greater than zero"
	}
	if input.Status != "" && !input.Status.Valid() {
		fields["status"] = "unknown status"
	}
	if len(fields) > 0 {
		return &errors.ValidationError{Fields: fields}
	}
	return nil
}
