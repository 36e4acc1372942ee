package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"labreserve/internal/auth"
	"labreserve/internal/errors"
	"labreserve/internal/model"
	"labreserve/internal/repository"
)

const periodLayout = "2006-01"

// Labs are considered bookable for twelve hours a day when computing
// occupancy, matching the operating window enforced on reservations.
const bookableHoursPerDay = 12

// LabOccupancy is one row of the monthly occupancy report.
type LabOccupancy struct {
	LabID        uint            `json:"lab_id"`
	LabName      string          `json:"lab_name"`
	BookedHours  decimal.Decimal `json:"booked_hours"`
	OccupancyPct decimal.Decimal `json:"occupancy_rate"`
	Reservations int             `json:"reservations"`
}

// Incident is one row of the damaged-equipment report.
type Incident struct {
	LoanID        uint      `json:"loan_id"`
	EquipmentID   uint      `json:"equipment_id"`
	EquipmentName string    `json:"equipment_name"`
	Quantity      uint      `json:"quantity"`
	Damaged       bool      `json:"damaged"`
	ReturnDate    string    `json:"return_date"`
	ReportedAt    time.Time `json:"reported_at"`
}

// ReportService aggregates reservations and loans into read-only reports.
type ReportService interface {
	Occupancy(ctx context.Context, actor auth.Actor, period string) ([]LabOccupancy, error)
	EquipmentUsage(ctx context.Context, actor auth.Actor, from, to string) ([]repository.EquipmentUsage, error)
	Incidents(ctx context.Context, actor auth.Actor, from, to string) ([]Incident, error)
}

type reportService struct {
	reservationRepo repository.ReservationRepository
	loanRepo        repository.LoanRepository
	labRepo         repository.LabRepository
	now             func() time.Time
}

// NewReportService creates a new report service.
func NewReportService(reservationRepo repository.ReservationRepository, loanRepo repository.LoanRepository, labRepo repository.LabRepository) ReportService {
	return &reportService{
		reservationRepo: reservationRepo,
		loanRepo:        loanRepo,
		labRepo:         labRepo,
		now:             time.Now,
	}
}

// Occupancy reports, per lab, the hours booked by APPROVED reservations in
// the given YYYY-MM period against the lab's bookable hours for that month.
// The rate is rounded to four decimal places and clamped at 1.
func (s *reportService) Occupancy(ctx context.Context, actor auth.Actor, period string) ([]LabOccupancy, error) {
	if !actor.Can(auth.ActionReportView) {
		return nil, errors.ErrForbidden
	}
	if period == "" {
		period = s.now().Format(periodLayout)
	}
	start, err := time.Parse(periodLayout, period)
	if err != nil {
		return nil, errors.NewValidation("period", "invalid format, use YYYY-MM")
	}
	end := start.AddDate(0, 1, -1)
	daysInMonth := end.Day()

	labs, err := s.labRepo.List(ctx, repository.LabFilter{})
	if err != nil {
		return nil, err
	}
	reservations, err := s.reservationRepo.List(ctx, repository.ReservationFilter{
		Status:   model.ReservationStatusApproved,
		DateFrom: start.Format(dateLayout),
		DateTo:   end.Format(dateLayout),
	})
	if err != nil {
		return nil, err
	}

	minutesByLab := map[uint]int{}
	countByLab := map[uint]int{}
	for _, r := range reservations {
		minutesByLab[r.LabID] += slotMinutes(r.StartTime, r.EndTime)
		countByLab[r.LabID]++
	}

	capacityMinutes := decimal.NewFromInt(int64(daysInMonth * bookableHoursPerDay * 60))
	one := decimal.NewFromInt(1)
	sixty := decimal.NewFromInt(60)

	report := make([]LabOccupancy, 0, len(labs))
	for _, lab := range labs {
		booked := decimal.NewFromInt(int64(minutesByLab[lab.ID]))
		rate := booked.DivRound(capacityMinutes, 4)
		if rate.GreaterThan(one) {
			rate = one
		}
		report = append(report, LabOccupancy{
			LabID:        lab.ID,
			LabName:      lab.Name,
			BookedHours:  booked.DivRound(sixty, 2),
			OccupancyPct: rate,
			Reservations: countByLab[lab.ID],
		})
	}
	return report, nil
}

// EquipmentUsage reports loan counts per equipment over [from, to], counting
// loans that reached circulation (approved, returned or damaged). An empty
// from defaults to the first of the current month, an empty to defaults to
// today.
func (s *reportService) EquipmentUsage(ctx context.Context, actor auth.Actor, from, to string) ([]repository.EquipmentUsage, error) {
	if !actor.Can(auth.ActionReportView) {
		return nil, errors.ErrForbidden
	}
	from, to = s.defaultRange(from, to)
	if err := validateReportRange(from, to); err != nil {
		return nil, err
	}
	return s.loanRepo.CountUsageByEquipment(ctx, from, to, []model.LoanStatus{
		model.LoanStatusApproved,
		model.LoanStatusReturned,
		model.LoanStatusDamaged,
	})
}

// Incidents reports loans returned damaged within [from, to]. An empty
// bound defaults like the usage report.
func (s *reportService) Incidents(ctx context.Context, actor auth.Actor, from, to string) ([]Incident, error) {
	if !actor.Can(auth.ActionReportView) {
		return nil, errors.ErrForbidden
	}
	from, to = s.defaultRange(from, to)
	if err := validateReportRange(from, to); err != nil {
		return nil, err
	}
	loans, err := s.loanRepo.ListDamagedBetween(ctx, from, to)
	if err != nil {
		return nil, err
	}

	incidents := make([]Incident, 0, len(loans))
	for _, loan := range loans {
		inc := Incident{
			LoanID:      loan.ID,
			EquipmentID: loan.EquipmentID,
			Quantity:    loan.Quantity,
			Damaged:     loan.Damaged,
			ReportedAt:  loan.UpdatedAt,
		}
		if loan.Equipment != nil {
			inc.EquipmentName = loan.Equipment.Name
		}
		if loan.ReturnDate != nil {
			inc.ReturnDate = *loan.ReturnDate
		}
		incidents = append(incidents, inc)
	}
	return incidents, nil
}

// defaultRange fills each empty bound independently: from falls back to the
// first of the current month, to falls back to today.
func (s *reportService) defaultRange(from, to string) (string, string) {
	today := s.now()
	if from == "" {
		from = time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location()).Format(dateLayout)
	}
	if to == "" {
		to = today.Format(dateLayout)
	}
	return from, to
}

func validateReportRange(from, to string) error {
	fields := map[string]string{}
	if _, err := time.Parse(dateLayout, from); err != nil {
		fields["from"] = "invalid format, use YYYY-MM-DD"
	}
	if _, err := time.Parse(dateLayout, to); err != nil {
		fields["to"] = "invalid format, use YYYY-MM-DD"
	}
	if len(fields) > 0 {
		return &errors.ValidationError{Fields: fields}
	}
	if from > to {
		return errors.ErrInvalidDateRange
	}
	return nil
}

// slotMinutes returns the length of an HH:MM interval in minutes. Inputs
// were validated at reservation time, so parse failures count as zero.
func slotMinutes(start, end string) int {
	st, err := time.Parse(timeLayout, start)
	if err != nil {
		return 0
	}
	et, err := time.Parse(timeLayout, end)
	if err != nil {
		return 0
	}
	m := int(et.Sub(st).Minutes())
	if m < 0 {
		return 0
	}
	return m
}
