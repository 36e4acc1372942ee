package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"labreserve/internal/auth"
	"labreserve/internal/cache"
	"labreserve/internal/errors"
	"labreserve/internal/model"
	"labreserve/internal/repository"
)

const labCacheTTL = 5 * time.Minute

// LabInput carries the mutable fields of a lab.
type LabInput struct {
	Name     string
	Building string
	Floor    string
	Capacity uint
	Type     string
	Status   model.LabStatus
}

// LabService handles lab registry operations.
type LabService interface {
	Create(ctx context.Context, actor auth.Actor, input LabInput) (*model.Lab, error)
	Update(ctx context.Context, actor auth.Actor, id uint, input LabInput) (*model.Lab, error)
	Delete(ctx context.Context, actor auth.Actor, id uint) error
	Get(ctx context.Context, id uint) (*model.Lab, error)
	List(ctx context.Context, filter repository.LabFilter) ([]model.Lab, error)
}

type labService struct {
	labRepo repository.LabRepository
	cache   *cache.Client
}

// NewLabService creates a new lab service.
func NewLabService(labRepo repository.LabRepository, cache *cache.Client) LabService {
	return &labService{
		labRepo: labRepo,
		cache:   cache,
	}
}

func (s *labService) cacheKey(id uint) string {
	return fmt.Sprintf("lab:%d", id)
}

// Create registers a new lab. Staff only. The status defaults to ACTIVE.
func (s *labService) Create(ctx context.Context, actor auth.Actor, input LabInput) (*model.Lab, error) {
	if !actor.Can(auth.ActionLabWrite) {
		return nil, errors.ErrForbidden
	}
	if err := validateLabInput(input); err != nil {
		return nil, err
	}

	status := input.Status
	if status == "" {
		status = model.LabStatusActive
	}
	lab := &model.Lab{
		Name:     input.Name,
		Building: input.Building,
		Floor:    input.Floor,
		Capacity: input.Capacity,
		Type:     input.Type,
		Status:   status,
	}
	if err := s.labRepo.Create(ctx, lab); err != nil {
		return nil, err
	}
	return lab, nil
}

// Update modifies a lab. Staff only.
func (s *labService) Update(ctx context.Context, actor auth.Actor, id uint, input LabInput) (*model.Lab, error) {
	if !actor.Can(auth.ActionLabWrite) {
		return nil, errors.ErrForbidden
	}
	if err := validateLabInput(input); err != nil {
		return nil, err
	}

	lab, err := s.labRepo.FindByID(ctx, id)
	if err != nil {
		return nil, translateNotFound(err)
	}

	lab.Name = input.Name
	lab.Building = input.Building
	lab.Floor = input.Floor
	lab.Capacity = input.Capacity
	lab.Type = input.Type
	if input.Status != "" {
		lab.Status = input.Status
	}
	if err := s.labRepo.Update(ctx, lab); err != nil {
		return nil, err
	}

	_ = s.cache.Delete(ctx, s.cacheKey(id))
	return lab, nil
}

// Delete removes a lab and detaches its equipment, which keeps circulating
// without a home lab. Staff only.
func (s *labService) Delete(ctx context.Context, actor auth.Actor, id uint) error {
	if !actor.Can(auth.ActionLabWrite) {
		return errors.ErrForbidden
	}
	if _, err := s.labRepo.FindByID(ctx, id); err != nil {
		return translateNotFound(err)
	}

	err := s.labRepo.WithTransaction(ctx, func(ctx context.Context, labs repository.LabRepository, equipment repository.EquipmentRepository) error {
		if err := equipment.ClearLabRef(ctx, id); err != nil {
			return err
		}
		return labs.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	_ = s.cache.Delete(ctx, s.cacheKey(id))
	return nil
}

// Get retrieves a lab by ID with caching.
func (s *labService) Get(ctx context.Context, id uint) (*model.Lab, error) {
	// Try cache first
	if data, _ := s.cache.Get(ctx, s.cacheKey(id)); data != nil {
		var cached model.Lab
		if err := json.Unmarshal(data, &cached); err == nil {
			return &cached, nil
		}
	}

	lab, err := s.labRepo.FindByID(ctx, id)
	if err != nil {
		return nil, translateNotFound(err)
	}

	// Cache the result
	if payload, err := json.Marshal(lab); err == nil {
		_ = s.cache.Set(ctx, s.cacheKey(id), payload, labCacheTTL)
	}
	return lab, nil
}

// List lists labs matching the filter. Open to every authenticated user.
func (s *labService) List(ctx context.Context, filter repository.LabFilter) ([]model.Lab, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, errors.NewValidation("status", "unknown status")
	}
	return s.labRepo.List(ctx, filter)
}

func validateLabInput(input LabInput) error {
	fields := map[string]string{}
	if input.Name == "" {
		fields["name"] = "name is required"
	}
	if input.Capacity == 0 {
		fields["capacity"] = "must be greater than zero"
	}
	if input.Status != "" && !input.Status.Valid() {
		fields["status"] = "unknown status"
	}
	if len(fields) > 0 {
		return &errors.ValidationError{Fields: fields}
	}
	return nil
}
