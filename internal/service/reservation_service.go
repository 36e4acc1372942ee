package service

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"labreserve/internal/auth"
	"labreserve/internal/errors"
	"labreserve/internal/model"
	"labreserve/internal/repository"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// ReservationInput carries the mutable fields of a reservation request.
// UserID is advisory: students are always forced to themselves.
type ReservationInput struct {
	UserID    uint
	LabID     uint
	Date      string
	StartTime string
	EndTime   string
	Reason    string
}

// ReservationService validates and mutates lab booking requests against
// overlap rules.
type ReservationService interface {
	Create(ctx context.Context, actor auth.Actor, input ReservationInput) (*model.Reservation, error)
	Update(ctx context.Context, actor auth.Actor, id uint, input ReservationInput) (*model.Reservation, error)
	Delete(ctx context.Context, actor auth.Actor, id uint) error
	Approve(ctx context.Context, actor auth.Actor, id uint) (*model.Reservation, error)
	Reject(ctx context.Context, actor auth.Actor, id uint) (*model.Reservation, error)
	Cancel(ctx context.Context, actor auth.Actor, id uint, reason string) (*model.Reservation, error)
	Get(ctx context.Context, actor auth.Actor, id uint) (*model.Reservation, error)
	List(ctx context.Context, actor auth.Actor, filter repository.ReservationFilter) ([]model.Reservation, error)
}

type reservationService struct {
	reservationRepo repository.ReservationRepository
	labRepo         repository.LabRepository
	// strict requires the current status to be PENDING before approve and
	// reject. The lenient default mirrors the historical behavior where
	// staff could re-decide a reservation in any state.
	strict bool
	now    func() time.Time
}

// NewReservationService creates a new reservation service.
func NewReservationService(reservationRepo repository.ReservationRepository, labRepo repository.LabRepository, strict bool) ReservationService {
	return &reservationService{
		reservationRepo: reservationRepo,
		labRepo:         labRepo,
		strict:          strict,
		now:             time.Now,
	}
}

// Create validates and records a new reservation with status PENDING.
func (s *reservationService) Create(ctx context.Context, actor auth.Actor, input ReservationInput) (*model.Reservation, error) {
	if err := s.validateSlot(input); err != nil {
		return nil, err
	}

	userID := input.UserID
	// Students always book for themselves, whatever the payload says.
	if actor.Role == model.RoleStudent || userID == 0 {
		userID = actor.UserID
	}

	reservation := &model.Reservation{
		UserID:    userID,
		LabID:     input.LabID,
		Date:      input.Date,
		StartTime: input.StartTime,
		EndTime:   input.EndTime,
		Reason:    input.Reason,
		Status:    model.ReservationStatusPending,
	}

	err := s.reservationRepo.WithTransaction(ctx, func(ctx context.Context, reservations repository.ReservationRepository, labs repository.LabRepository) error {
		if err := s.checkSlotFree(ctx, reservations, labs, input, 0); err != nil {
			return err
		}
		return reservations.Create(ctx, reservation)
	})
	if err != nil {
		return nil, err
	}
	return reservation, nil
}

// Update re-validates and applies new slot fields to an existing
// reservation. The overlap check excludes the reservation's own row.
func (s *reservationService) Update(ctx context.Context, actor auth.Actor, id uint, input ReservationInput) (*model.Reservation, error) {
	if !actor.Can(auth.ActionReservationModify) {
		return nil, errors.ErrForbidden
	}
	if err := s.validateSlot(input); err != nil {
		return nil, err
	}

	var updated *model.Reservation
	err := s.reservationRepo.WithTransaction(ctx, func(ctx context.Context, reservations repository.ReservationRepository, labs repository.LabRepository) error {
		reservation, err := reservations.FindByID(ctx, id)
		if err != nil {
			return translateNotFound(err)
		}

		if err := s.checkSlotFree(ctx, reservations, labs, input, reservation.ID); err != nil {
			return err
		}

		reservation.LabID = input.LabID
		reservation.Date = input.Date
		reservation.StartTime = input.StartTime
		reservation.EndTime = input.EndTime
		if input.Reason != "" {
			reservation.Reason = input.Reason
		}
		if input.UserID != 0 {
			reservation.UserID = input.UserID
		}
		if err := reservations.Update(ctx, reservation); err != nil {
			return err
		}
		updated = reservation
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes a reservation. Staff only.
func (s *reservationService) Delete(ctx context.Context, actor auth.Actor, id uint) error {
	if !actor.Can(auth.ActionReservationModify) {
		return errors.ErrForbidden
	}
	if _, err := s.reservationRepo.FindByID(ctx, id); err != nil {
		return translateNotFound(err)
	}
	return s.reservationRepo.Delete(ctx, id)
}

// Approve sets a reservation APPROVED.
func (s *reservationService) Approve(ctx context.Context, actor auth.Actor, id uint) (*model.Reservation, error) {
	return s.decide(ctx, actor, id, model.ReservationStatusApproved)
}

// Reject sets a reservation REJECTED.
func (s *reservationService) Reject(ctx context.Context, actor auth.Actor, id uint) (*model.Reservation, error) {
	return s.decide(ctx, actor, id, model.ReservationStatusRejected)
}

// decide runs with the reservation row locked so the transition check and
// the status write cannot interleave with another decision.
func (s *reservationService) decide(ctx context.Context, actor auth.Actor, id uint, status model.ReservationStatus) (*model.Reservation, error) {
	if !actor.Can(auth.ActionReservationDecide) {
		return nil, errors.ErrForbidden
	}

	var decided *model.Reservation
	err := s.reservationRepo.WithTransaction(ctx, func(ctx context.Context, reservations repository.ReservationRepository, _ repository.LabRepository) error {
		reservation, err := reservations.FindByIDForUpdate(ctx, id)
		if err != nil {
			return translateNotFound(err)
		}

		if s.strict && !reservation.Status.CanTransition(status) {
			return &errors.InvalidTransitionError{
				Entity: "reservation",
				From:   string(reservation.Status),
				To:     string(status),
			}
		}

		reservation.Status = status
		if err := reservations.Update(ctx, reservation); err != nil {
			return err
		}
		decided = reservation
		return nil
	})
	if err != nil {
		return nil, err
	}
	return decided, nil
}

// Cancel sets a reservation CANCELLED and records the reason. Students may
// cancel only their own reservations; staff may cancel any.
func (s *reservationService) Cancel(ctx context.Context, actor auth.Actor, id uint, reason string) (*model.Reservation, error) {
	var cancelled *model.Reservation
	err := s.reservationRepo.WithTransaction(ctx, func(ctx context.Context, reservations repository.ReservationRepository, _ repository.LabRepository) error {
		reservation, err := reservations.FindByIDForUpdate(ctx, id)
		if err != nil {
			return translateNotFound(err)
		}

		if !actor.Can(auth.ActionReservationCancelAny) && reservation.UserID != actor.UserID {
			return errors.ErrForbidden
		}

		if s.strict && !reservation.Status.CanTransition(model.ReservationStatusCancelled) {
			return &errors.InvalidTransitionError{
				Entity: "reservation",
				From:   string(reservation.Status),
				To:     string(model.ReservationStatusCancelled),
			}
		}

		reservation.CancelReason = reason
		reservation.Status = model.ReservationStatusCancelled
		if err := reservations.Update(ctx, reservation); err != nil {
			return err
		}
		cancelled = reservation
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}

// Get fetches a single reservation. Students only ever see their own.
func (s *reservationService) Get(ctx context.Context, actor auth.Actor, id uint) (*model.Reservation, error) {
	reservation, err := s.reservationRepo.FindByID(ctx, id)
	if err != nil {
		return nil, translateNotFound(err)
	}
	if !actor.Can(auth.ActionListAll) && reservation.UserID != actor.UserID {
		return nil, errors.ErrNotFound
	}
	return reservation, nil
}

// List lists reservations, scoped to the actor for students.
func (s *reservationService) List(ctx context.Context, actor auth.Actor, filter repository.ReservationFilter) ([]model.Reservation, error) {
	if err := validateFilterDates(filter.Date, filter.DateFrom, filter.DateTo); err != nil {
		return nil, err
	}
	if !actor.Can(auth.ActionListAll) {
		filter.UserID = actor.UserID
	}
	return s.reservationRepo.List(ctx, filter)
}

// validateSlot checks field formats and the start < end invariant.
func (s *reservationService) validateSlot(input ReservationInput) error {
	fields := map[string]string{}
	if input.LabID == 0 {
		fields["lab"] = "lab is required"
	}
	date, err := time.Parse(dateLayout, input.Date)
	if err != nil {
		fields["date"] = "invalid format, use YYYY-MM-DD"
	}
	start, err := time.Parse(timeLayout, input.StartTime)
	if err != nil {
		fields["start_time"] = "invalid format, use HH:MM"
	}
	end, err := time.Parse(timeLayout, input.EndTime)
	if err != nil {
		fields["end_time"] = "invalid format, use HH:MM"
	}
	if len(fields) > 0 {
		return &errors.ValidationError{Fields: fields}
	}

	if !start.Before(end) {
		return errors.NewValidation("start_time", "start time must be before end time")
	}
	today := s.now().Format(dateLayout)
	if date.Format(dateLayout) < today {
		return errors.NewValidation("date", "cannot reserve a past date")
	}
	return nil
}

// checkSlotFree verifies the lab accepts reservations and the interval does
// not overlap a blocking reservation. Runs inside the write transaction with
// the lab row locked so concurrent writes for the same lab serialize.
func (s *reservationService) checkSlotFree(ctx context.Context, reservations repository.ReservationRepository, labs repository.LabRepository, input ReservationInput, excludeID uint) error {
	lab, err := labs.FindByIDForUpdate(ctx, input.LabID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return fmt.Errorf("lab %d: %w", input.LabID, errors.ErrNotFound)
		}
		return err
	}
	if lab.Status != model.LabStatusActive {
		return errors.NewValidation("lab", "lab is not available")
	}

	count, err := reservations.CountOverlapping(ctx, input.LabID, input.Date, input.StartTime, input.EndTime, excludeID)
	if err != nil {
		return err
	}
	if count > 0 {
		return errors.ErrReservationOverlap
	}
	return nil
}

// validateFilterDates rejects malformed date filters before they reach SQL.
func validateFilterDates(dates ...string) error {
	names := []string{"date", "date_from", "date_to"}
	fields := map[string]string{}
	for i, d := range dates {
		if d == "" {
			continue
		}
		if _, err := time.Parse(dateLayout, d); err != nil {
			fields[names[i]] = "invalid format, use YYYY-MM-DD"
		}
	}
	if len(fields) > 0 {
		return &errors.ValidationError{Fields: fields}
	}
	return nil
}

// translateNotFound maps the store's missing-row error into the domain
// taxonomy; anything else passes through as an infrastructure error.
func translateNotFound(err error) error {
	if err == gorm.ErrRecordNotFound {
		return errors.ErrNotFound
	}
	return err
}
