package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"labreserve/internal/model"
	"labreserve/internal/repository"
)

// MockUserRepository is a mock implementation of UserRepository.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Update(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByStudentID(ctx context.Context, studentID string) (*model.User, error) {
	args := m.Called(ctx, studentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context) ([]model.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.User), args.Error(1)
}

// MockEquipmentRepository is a mock implementation of EquipmentRepository.
// WithTransaction runs the callback against the mock itself so transactional
// paths are exercised without a database.
type MockEquipmentRepository struct {
	mock.Mock
}

func (m *MockEquipmentRepository) Create(ctx context.Context, equipment *model.Equipment) error {
	args := m.Called(ctx, equipment)
	return args.Error(0)
}

func (m *MockEquipmentRepository) Update(ctx context.Context, equipment *model.Equipment) error {
	args := m.Called(ctx, equipment)
	return args.Error(0)
}

func (m *MockEquipmentRepository) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockEquipmentRepository) FindByID(ctx context.Context, id uint) (*model.Equipment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Equipment), args.Error(1)
}

func (m *MockEquipmentRepository) FindByIDForUpdate(ctx context.Context, id uint) (*model.Equipment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Equipment), args.Error(1)
}

func (m *MockEquipmentRepository) List(ctx context.Context, filter repository.EquipmentFilter) ([]model.Equipment, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Equipment), args.Error(1)
}

func (m *MockEquipmentRepository) UpdateAvailableQuantity(ctx context.Context, id uint, quantity uint) error {
	args := m.Called(ctx, id, quantity)
	return args.Error(0)
}

func (m *MockEquipmentRepository) UpdateStatus(ctx context.Context, id uint, status model.EquipmentStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockEquipmentRepository) ClearLabRef(ctx context.Context, labID uint) error {
	args := m.Called(ctx, labID)
	return args.Error(0)
}

func (m *MockEquipmentRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context, equipment repository.EquipmentRepository) error) error {
	return fn(ctx, m)
}

// MockLabRepository is a mock implementation of LabRepository. The equipment
// field feeds the transactional callback.
type MockLabRepository struct {
	mock.Mock
	equipment *MockEquipmentRepository
}

func (m *MockLabRepository) Create(ctx context.Context, lab *model.Lab) error {
	args := m.Called(ctx, lab)
	return args.Error(0)
}

func (m *MockLabRepository) Update(ctx context.Context, lab *model.Lab) error {
	args := m.Called(ctx, lab)
	return args.Error(0)
}

func (m *MockLabRepository) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockLabRepository) FindByID(ctx context.Context, id uint) (*model.Lab, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Lab), args.Error(1)
}

func (m *MockLabRepository) FindByIDForUpdate(ctx context.Context, id uint) (*model.Lab, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Lab), args.Error(1)
}

func (m *MockLabRepository) List(ctx context.Context, filter repository.LabFilter) ([]model.Lab, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Lab), args.Error(1)
}

func (m *MockLabRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context, labs repository.LabRepository, equipment repository.EquipmentRepository) error) error {
	return fn(ctx, m, m.equipment)
}

// MockReservationRepository is a mock implementation of ReservationRepository.
type MockReservationRepository struct {
	mock.Mock
	labs *MockLabRepository
}

func (m *MockReservationRepository) Create(ctx context.Context, reservation *model.Reservation) error {
	args := m.Called(ctx, reservation)
	return args.Error(0)
}

func (m *MockReservationRepository) Update(ctx context.Context, reservation *model.Reservation) error {
	args := m.Called(ctx, reservation)
	return args.Error(0)
}

func (m *MockReservationRepository) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockReservationRepository) FindByID(ctx context.Context, id uint) (*model.Reservation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Reservation), args.Error(1)
}

func (m *MockReservationRepository) FindByIDForUpdate(ctx context.Context, id uint) (*model.Reservation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Reservation), args.Error(1)
}

func (m *MockReservationRepository) List(ctx context.Context, filter repository.ReservationFilter) ([]model.Reservation, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Reservation), args.Error(1)
}

func (m *MockReservationRepository) CountOverlapping(ctx context.Context, labID uint, date, start, end string, excludeID uint) (int64, error) {
	args := m.Called(ctx, labID, date, start, end, excludeID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockReservationRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context, reservations repository.ReservationRepository, labs repository.LabRepository) error) error {
	return fn(ctx, m, m.labs)
}

// MockLoanRepository is a mock implementation of LoanRepository.
type MockLoanRepository struct {
	mock.Mock
	equipment *MockEquipmentRepository
}

func (m *MockLoanRepository) Create(ctx context.Context, loan *model.Loan) error {
	args := m.Called(ctx, loan)
	return args.Error(0)
}

func (m *MockLoanRepository) Update(ctx context.Context, loan *model.Loan) error {
	args := m.Called(ctx, loan)
	return args.Error(0)
}

func (m *MockLoanRepository) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockLoanRepository) FindByID(ctx context.Context, id uint) (*model.Loan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Loan), args.Error(1)
}

func (m *MockLoanRepository) FindByIDForUpdate(ctx context.Context, id uint) (*model.Loan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Loan), args.Error(1)
}

func (m *MockLoanRepository) List(ctx context.Context, filter repository.LoanFilter) ([]model.Loan, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Loan), args.Error(1)
}

func (m *MockLoanRepository) CountUsageByEquipment(ctx context.Context, from, to string, statuses []model.LoanStatus) ([]repository.EquipmentUsage, error) {
	args := m.Called(ctx, from, to, statuses)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]repository.EquipmentUsage), args.Error(1)
}

func (m *MockLoanRepository) ListDamagedBetween(ctx context.Context, from, to string) ([]model.Loan, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Loan), args.Error(1)
}

func (m *MockLoanRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context, loans repository.LoanRepository, equipment repository.EquipmentRepository) error) error {
	return fn(ctx, m, m.equipment)
}

// MockTokenStore is a mock implementation of TokenStoreInterface.
type MockTokenStore struct {
	mock.Mock
}

func (m *MockTokenStore) StoreRefreshToken(ctx context.Context, tokenID string, userID uint, email string, role model.Role, ttl time.Duration) error {
	args := m.Called(ctx, tokenID, userID, email, role, ttl)
	return args.Error(0)
}

func (m *MockTokenStore) GetRefreshToken(ctx context.Context, tokenID string) (uint, string, model.Role, error) {
	args := m.Called(ctx, tokenID)
	return args.Get(0).(uint), args.String(1), args.Get(2).(model.Role), args.Error(3)
}

func (m *MockTokenStore) DeleteRefreshToken(ctx context.Context, tokenID string) error {
	args := m.Called(ctx, tokenID)
	return args.Error(0)
}
