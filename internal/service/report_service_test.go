package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"labreserve/internal/errors"
	"labreserve/internal/model"
	"labreserve/internal/repository"
)

func newReportFixture() (*MockReservationRepository, *MockLoanRepository, *MockLabRepository, ReportService) {
	labs := &MockLabRepository{equipment: &MockEquipmentRepository{}}
	reservations := &MockReservationRepository{labs: labs}
	loans := &MockLoanRepository{equipment: &MockEquipmentRepository{}}
	svc := NewReportService(reservations, loans, labs).(*reportService)
	svc.now = func() time.Time { return time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC) }
	return reservations, loans, labs, svc
}

func TestReportService_Occupancy(t *testing.T) {
	t.Run("computes rate from approved reservations", func(t *testing.T) {
		reservations, _, labs, svc := newReportFixture()
		labs.On("List", mock.Anything, repository.LabFilter{}).Return([]model.Lab{
			{ID: 1, Name: "Chemistry Lab A"},
			{ID: 2, Name: "Physics Lab B"},
		}, nil)
		reservations.On("List", mock.Anything, mock.MatchedBy(func(f repository.ReservationFilter) bool {
			return f.Status == model.ReservationStatusApproved && f.DateFrom == "2026-03-01" && f.DateTo == "2026-03-31"
		})).Return([]model.Reservation{
			{LabID: 1, Date: "2026-03-10", StartTime: "10:00", EndTime: "12:00"},
			{LabID: 1, Date: "2026-03-11", StartTime: "09:00", EndTime: "10:30"},
		}, nil)

		report, err := svc.Occupancy(context.Background(), adminActor, "2026-03")

		assert.NoError(t, err)
		assert.Len(t, report, 2)

		// 3.5 booked hours against 31 days * 12 bookable hours.
		expected := decimal.NewFromInt(210).DivRound(decimal.NewFromInt(31*12*60), 4)
		assert.True(t, expected.Equal(report[0].OccupancyPct), "got %s", report[0].OccupancyPct)
		assert.True(t, decimal.NewFromFloat(3.5).Equal(report[0].BookedHours))
		assert.Equal(t, 2, report[0].Reservations)

		// The idle lab still appears with a zero rate.
		assert.True(t, report[1].OccupancyPct.IsZero())
		assert.Equal(t, 0, report[1].Reservations)
	})

	t.Run("empty month reports zero for every lab", func(t *testing.T) {
		reservations, _, labs, svc := newReportFixture()
		labs.On("List", mock.Anything, repository.LabFilter{}).Return([]model.Lab{{ID: 1, Name: "Chemistry Lab A"}}, nil)
		reservations.On("List", mock.Anything, mock.Anything).Return([]model.Reservation{}, nil)

		report, err := svc.Occupancy(context.Background(), techActor, "2026-04")

		assert.NoError(t, err)
		assert.Len(t, report, 1)
		assert.True(t, report[0].OccupancyPct.IsZero())
	})

	t.Run("empty period defaults to the current month", func(t *testing.T) {
		reservations, _, labs, svc := newReportFixture()
		labs.On("List", mock.Anything, repository.LabFilter{}).Return([]model.Lab{}, nil)
		reservations.On("List", mock.Anything, mock.MatchedBy(func(f repository.ReservationFilter) bool {
			return f.DateFrom == "2026-03-01" && f.DateTo == "2026-03-31"
		})).Return([]model.Reservation{}, nil)

		_, err := svc.Occupancy(context.Background(), adminActor, "")

		assert.NoError(t, err)
		reservations.AssertExpectations(t)
	})

	t.Run("malformed period rejected", func(t *testing.T) {
		_, _, _, svc := newReportFixture()

		_, err := svc.Occupancy(context.Background(), adminActor, "03-2026")

		var verr *errors.ValidationError
		assert.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Fields, "period")
	})

	t.Run("students forbidden", func(t *testing.T) {
		_, _, _, svc := newReportFixture()

		_, err := svc.Occupancy(context.Background(), studentActor, "2026-03")

		assert.ErrorIs(t, err, errors.ErrForbidden)
	})
}

func TestReportService_EquipmentUsage(t *testing.T) {
	t.Run("counts circulating loans", func(t *testing.T) {
		_, loans, _, svc := newReportFixture()
		loans.On("CountUsageByEquipment", mock.Anything, "2026-03-01", "2026-03-31", []model.LoanStatus{
			model.LoanStatusApproved,
			model.LoanStatusReturned,
			model.LoanStatusDamaged,
		}).Return([]repository.EquipmentUsage{
			{EquipmentID: 2, EquipmentName: "Microscope", TotalLoans: 4},
		}, nil)

		usage, err := svc.EquipmentUsage(context.Background(), adminActor, "2026-03-01", "2026-03-31")

		assert.NoError(t, err)
		assert.Len(t, usage, 1)
		assert.Equal(t, int64(4), usage[0].TotalLoans)
	})

	t.Run("empty range defaults to month to date", func(t *testing.T) {
		_, loans, _, svc := newReportFixture()
		loans.On("CountUsageByEquipment", mock.Anything, "2026-03-01", "2026-03-15", mock.Anything).
			Return([]repository.EquipmentUsage{}, nil)

		_, err := svc.EquipmentUsage(context.Background(), adminActor, "", "")

		assert.NoError(t, err)
		loans.AssertExpectations(t)
	})

	t.Run("each empty bound defaults independently", func(t *testing.T) {
		_, loans, _, svc := newReportFixture()
		loans.On("CountUsageByEquipment", mock.Anything, "2026-03-03", "2026-03-15", mock.Anything).
			Return([]repository.EquipmentUsage{}, nil)

		_, err := svc.EquipmentUsage(context.Background(), adminActor, "2026-03-03", "")

		assert.NoError(t, err)
		loans.AssertExpectations(t)
	})

	t.Run("inverted range rejected", func(t *testing.T) {
		_, _, _, svc := newReportFixture()

		_, err := svc.EquipmentUsage(context.Background(), adminActor, "2026-03-31", "2026-03-01")

		assert.ErrorIs(t, err, errors.ErrInvalidDateRange)
	})

	t.Run("malformed dates rejected", func(t *testing.T) {
		_, _, _, svc := newReportFixture()

		_, err := svc.EquipmentUsage(context.Background(), adminActor, "31/03/2026", "2026-03-01")

		var verr *errors.ValidationError
		assert.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Fields, "from")
	})
}

func TestReportService_Incidents(t *testing.T) {
	t.Run("maps damaged loans into incident rows", func(t *testing.T) {
		_, loans, _, svc := newReportFixture()
		returnDate := "2026-03-15"
		reportedAt := time.Date(2026, 3, 15, 14, 30, 0, 0, time.UTC)
		loans.On("ListDamagedBetween", mock.Anything, "2026-03-01", "2026-03-31").Return([]model.Loan{
			{
				ID:          9,
				EquipmentID: 2,
				Quantity:    1,
				Damaged:     true,
				ReturnDate:  &returnDate,
				UpdatedAt:   reportedAt,
				Equipment:   &model.Equipment{ID: 2, Name: "Microscope"},
			},
		}, nil)

		incidents, err := svc.Incidents(context.Background(), techActor, "2026-03-01", "2026-03-31")

		assert.NoError(t, err)
		assert.Len(t, incidents, 1)
		assert.Equal(t, "Microscope", incidents[0].EquipmentName)
		assert.Equal(t, "2026-03-15", incidents[0].ReturnDate)
		assert.True(t, incidents[0].Damaged)
		assert.Equal(t, reportedAt, incidents[0].ReportedAt)
	})

	t.Run("empty range defaults to month to date", func(t *testing.T) {
		_, loans, _, svc := newReportFixture()
		loans.On("ListDamagedBetween", mock.Anything, "2026-03-01", "2026-03-15").Return([]model.Loan{}, nil)

		incidents, err := svc.Incidents(context.Background(), adminActor, "", "")

		assert.NoError(t, err)
		assert.Empty(t, incidents)
		loans.AssertExpectations(t)
	})
}
