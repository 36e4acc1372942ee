package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"

	"labreserve/internal/auth"
	"labreserve/internal/errors"
	"labreserve/internal/model"
	"labreserve/internal/repository"
)

func newReservationFixture(strict bool) (*MockReservationRepository, *MockLabRepository, *reservationService) {
	labs := &MockLabRepository{equipment: &MockEquipmentRepository{}}
	reservations := &MockReservationRepository{labs: labs}
	svc := NewReservationService(reservations, labs, strict).(*reservationService)
	// Freeze the clock so date validation is deterministic.
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }
	return reservations, labs, svc
}

var (
	adminActor   = auth.Actor{UserID: 1, Role: model.RoleAdmin}
	techActor    = auth.Actor{UserID: 2, Role: model.RoleTech}
	studentActor = auth.Actor{UserID: 7, Role: model.RoleStudent}
)

func activeLab(id uint) *model.Lab {
	return &model.Lab{ID: id, Name: "Chemistry Lab A", Capacity: 24, Status: model.LabStatusActive}
}

func TestReservationService_Create(t *testing.T) {
	tests := []struct {
		name      string
		actor     auth.Actor
		input     ReservationInput
		setupMock func(*MockReservationRepository, *MockLabRepository)
		checkErr  func(*testing.T, error)
	}{
		{
			name:  "successful creation",
			actor: studentActor,
			input: ReservationInput{LabID: 3, Date: "2026-03-10", StartTime: "10:00", EndTime: "12:00", Reason: "practical"},
			setupMock: func(r *MockReservationRepository, l *MockLabRepository) {
				l.On("FindByIDForUpdate", mock.Anything, uint(3)).Return(activeLab(3), nil)
				r.On("CountOverlapping", mock.Anything, uint(3), "2026-03-10", "10:00", "12:00", uint(0)).Return(int64(0), nil)
				r.On("Create", mock.Anything, mock.AnythingOfType("*model.Reservation")).Return(nil)
			},
		},
		{
			name:  "touching slot does not overlap",
			actor: studentActor,
			input: ReservationInput{LabID: 3, Date: "2026-03-10", StartTime: "12:00", EndTime: "14:00"},
			setupMock: func(r *MockReservationRepository, l *MockLabRepository) {
				l.On("FindByIDForUpdate", mock.Anything, uint(3)).Return(activeLab(3), nil)
				// The half open interval check lets a slot start exactly when
				// another ends, so the count query comes back zero.
				r.On("CountOverlapping", mock.Anything, uint(3), "2026-03-10", "12:00", "14:00", uint(0)).Return(int64(0), nil)
				r.On("Create", mock.Anything, mock.AnythingOfType("*model.Reservation")).Return(nil)
			},
		},
		{
			name:  "overlapping slot rejected",
			actor: studentActor,
			input: ReservationInput{LabID: 3, Date: "2026-03-10", StartTime: "11:00", EndTime: "13:00"},
			setupMock: func(r *MockReservationRepository, l *MockLabRepository) {
				l.On("FindByIDForUpdate", mock.Anything, uint(3)).Return(activeLab(3), nil)
				r.On("CountOverlapping", mock.Anything, uint(3), "2026-03-10", "11:00", "13:00", uint(0)).Return(int64(1), nil)
			},
			checkErr: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, errors.ErrReservationOverlap)
			},
		},
		{
			name:      "past date rejected",
			actor:     studentActor,
			input:     ReservationInput{LabID: 3, Date: "2026-02-28", StartTime: "10:00", EndTime: "12:00"},
			setupMock: func(r *MockReservationRepository, l *MockLabRepository) {},
			checkErr: func(t *testing.T, err error) {
				var verr *errors.ValidationError
				assert.ErrorAs(t, err, &verr)
				assert.Contains(t, verr.Fields, "date")
			},
		},
		{
			name:      "end before start rejected",
			actor:     studentActor,
			input:     ReservationInput{LabID: 3, Date: "2026-03-10", StartTime: "14:00", EndTime: "12:00"},
			setupMock: func(r *MockReservationRepository, l *MockLabRepository) {},
			checkErr: func(t *testing.T, err error) {
				var verr *errors.ValidationError
				assert.ErrorAs(t, err, &verr)
				assert.Contains(t, verr.Fields, "start_time")
			},
		},
		{
			name:  "inactive lab rejected",
			actor: studentActor,
			input: ReservationInput{LabID: 4, Date: "2026-03-10", StartTime: "10:00", EndTime: "12:00"},
			setupMock: func(r *MockReservationRepository, l *MockLabRepository) {
				l.On("FindByIDForUpdate", mock.Anything, uint(4)).Return(&model.Lab{ID: 4, Status: model.LabStatusMaintenance}, nil)
			},
			checkErr: func(t *testing.T, err error) {
				var verr *errors.ValidationError
				assert.ErrorAs(t, err, &verr)
				assert.Contains(t, verr.Fields, "lab")
			},
		},
		{
			name:  "unknown lab rejected",
			actor: studentActor,
			input: ReservationInput{LabID: 99, Date: "2026-03-10", StartTime: "10:00", EndTime: "12:00"},
			setupMock: func(r *MockReservationRepository, l *MockLabRepository) {
				l.On("FindByIDForUpdate", mock.Anything, uint(99)).Return(nil, gorm.ErrRecordNotFound)
			},
			checkErr: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, errors.ErrNotFound)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reservations, labs, svc := newReservationFixture(false)
			tt.setupMock(reservations, labs)

			created, err := svc.Create(context.Background(), tt.actor, tt.input)

			if tt.checkErr != nil {
				assert.Error(t, err)
				tt.checkErr(t, err)
				assert.Nil(t, created)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, created)
				assert.Equal(t, model.ReservationStatusPending, created.Status)
			}

			reservations.AssertExpectations(t)
			labs.AssertExpectations(t)
		})
	}
}

func TestReservationService_Create_StudentAlwaysBooksForSelf(t *testing.T) {
	reservations, labs, svc := newReservationFixture(false)
	labs.On("FindByIDForUpdate", mock.Anything, uint(3)).Return(activeLab(3), nil)
	reservations.On("CountOverlapping", mock.Anything, uint(3), "2026-03-10", "10:00", "12:00", uint(0)).Return(int64(0), nil)
	reservations.On("Create", mock.Anything, mock.MatchedBy(func(r *model.Reservation) bool {
		return r.UserID == studentActor.UserID
	})).Return(nil)

	created, err := svc.Create(context.Background(), studentActor, ReservationInput{
		UserID: 42, LabID: 3, Date: "2026-03-10", StartTime: "10:00", EndTime: "12:00",
	})

	assert.NoError(t, err)
	assert.Equal(t, studentActor.UserID, created.UserID)
	reservations.AssertExpectations(t)
}

func TestReservationService_Create_StaffMayBookForOthers(t *testing.T) {
	reservations, labs, svc := newReservationFixture(false)
	labs.On("FindByIDForUpdate", mock.Anything, uint(3)).Return(activeLab(3), nil)
	reservations.On("CountOverlapping", mock.Anything, uint(3), "2026-03-10", "10:00", "12:00", uint(0)).Return(int64(0), nil)
	reservations.On("Create", mock.Anything, mock.MatchedBy(func(r *model.Reservation) bool {
		return r.UserID == 42
	})).Return(nil)

	created, err := svc.Create(context.Background(), techActor, ReservationInput{
		UserID: 42, LabID: 3, Date: "2026-03-10", StartTime: "10:00", EndTime: "12:00",
	})

	assert.NoError(t, err)
	assert.Equal(t, uint(42), created.UserID)
}

func TestReservationService_Update_ExcludesOwnRowFromOverlapCheck(t *testing.T) {
	reservations, labs, svc := newReservationFixture(false)
	existing := &model.Reservation{ID: 10, UserID: 7, LabID: 3, Date: "2026-03-10", StartTime: "10:00", EndTime: "11:00", Status: model.ReservationStatusPending}
	reservations.On("FindByID", mock.Anything, uint(10)).Return(existing, nil)
	labs.On("FindByIDForUpdate", mock.Anything, uint(3)).Return(activeLab(3), nil)
	reservations.On("CountOverlapping", mock.Anything, uint(3), "2026-03-10", "10:00", "12:00", uint(10)).Return(int64(0), nil)
	reservations.On("Update", mock.Anything, existing).Return(nil)

	updated, err := svc.Update(context.Background(), adminActor, 10, ReservationInput{
		LabID: 3, Date: "2026-03-10", StartTime: "10:00", EndTime: "12:00",
	})

	assert.NoError(t, err)
	assert.Equal(t, "12:00", updated.EndTime)
	reservations.AssertExpectations(t)
}

func TestReservationService_Update_StudentForbidden(t *testing.T) {
	_, _, svc := newReservationFixture(false)

	_, err := svc.Update(context.Background(), studentActor, 10, ReservationInput{
		LabID: 3, Date: "2026-03-10", StartTime: "10:00", EndTime: "12:00",
	})

	assert.ErrorIs(t, err, errors.ErrForbidden)
}

func TestReservationService_Decide(t *testing.T) {
	tests := []struct {
		name       string
		strict     bool
		actor      auth.Actor
		current    model.ReservationStatus
		approve    bool
		wantStatus model.ReservationStatus
		checkErr   func(*testing.T, error)
	}{
		{
			name:       "approve pending",
			actor:      techActor,
			current:    model.ReservationStatusPending,
			approve:    true,
			wantStatus: model.ReservationStatusApproved,
		},
		{
			name:       "reject pending",
			actor:      adminActor,
			current:    model.ReservationStatusPending,
			wantStatus: model.ReservationStatusRejected,
		},
		{
			name:       "lenient mode re-decides an approved reservation",
			actor:      techActor,
			current:    model.ReservationStatusApproved,
			wantStatus: model.ReservationStatusRejected,
		},
		{
			name:    "strict mode rejects re-deciding an approved reservation",
			strict:  true,
			actor:   techActor,
			current: model.ReservationStatusApproved,
			checkErr: func(t *testing.T, err error) {
				var terr *errors.InvalidTransitionError
				assert.ErrorAs(t, err, &terr)
				assert.Equal(t, "APPROVED", terr.From)
			},
		},
		{
			name:    "student cannot decide",
			actor:   studentActor,
			current: model.ReservationStatusPending,
			approve: true,
			checkErr: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, errors.ErrForbidden)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reservations, _, svc := newReservationFixture(tt.strict)
			existing := &model.Reservation{ID: 5, UserID: 7, LabID: 3, Status: tt.current}
			if tt.actor.Role != model.RoleStudent {
				reservations.On("FindByIDForUpdate", mock.Anything, uint(5)).Return(existing, nil)
			}
			if tt.checkErr == nil {
				reservations.On("Update", mock.Anything, existing).Return(nil)
			}

			var err error
			var decided *model.Reservation
			if tt.approve {
				decided, err = svc.Approve(context.Background(), tt.actor, 5)
			} else {
				decided, err = svc.Reject(context.Background(), tt.actor, 5)
			}

			if tt.checkErr != nil {
				assert.Error(t, err)
				tt.checkErr(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.wantStatus, decided.Status)
			}
			reservations.AssertExpectations(t)
		})
	}
}

func TestReservationService_Cancel(t *testing.T) {
	t.Run("owner cancels own reservation", func(t *testing.T) {
		reservations, _, svc := newReservationFixture(false)
		existing := &model.Reservation{ID: 5, UserID: studentActor.UserID, Status: model.ReservationStatusApproved}
		reservations.On("FindByIDForUpdate", mock.Anything, uint(5)).Return(existing, nil)
		reservations.On("Update", mock.Anything, existing).Return(nil)

		cancelled, err := svc.Cancel(context.Background(), studentActor, 5, "sick")

		assert.NoError(t, err)
		assert.Equal(t, model.ReservationStatusCancelled, cancelled.Status)
		assert.Equal(t, "sick", cancelled.CancelReason)
	})

	t.Run("student cannot cancel someone else's reservation", func(t *testing.T) {
		reservations, _, svc := newReservationFixture(false)
		existing := &model.Reservation{ID: 5, UserID: 42, Status: model.ReservationStatusPending}
		reservations.On("FindByIDForUpdate", mock.Anything, uint(5)).Return(existing, nil)

		_, err := svc.Cancel(context.Background(), studentActor, 5, "")

		assert.ErrorIs(t, err, errors.ErrForbidden)
	})

	t.Run("staff cancels any reservation", func(t *testing.T) {
		reservations, _, svc := newReservationFixture(false)
		existing := &model.Reservation{ID: 5, UserID: 42, Status: model.ReservationStatusPending}
		reservations.On("FindByIDForUpdate", mock.Anything, uint(5)).Return(existing, nil)
		reservations.On("Update", mock.Anything, existing).Return(nil)

		cancelled, err := svc.Cancel(context.Background(), techActor, 5, "maintenance")

		assert.NoError(t, err)
		assert.Equal(t, model.ReservationStatusCancelled, cancelled.Status)
	})

	t.Run("strict mode blocks cancelling a rejected reservation", func(t *testing.T) {
		reservations, _, svc := newReservationFixture(true)
		existing := &model.Reservation{ID: 5, UserID: 42, Status: model.ReservationStatusRejected}
		reservations.On("FindByIDForUpdate", mock.Anything, uint(5)).Return(existing, nil)

		_, err := svc.Cancel(context.Background(), adminActor, 5, "")

		var terr *errors.InvalidTransitionError
		assert.ErrorAs(t, err, &terr)
	})
}

func TestReservationService_Get_ScopesStudents(t *testing.T) {
	reservations, _, svc := newReservationFixture(false)
	other := &model.Reservation{ID: 5, UserID: 42}
	reservations.On("FindByID", mock.Anything, uint(5)).Return(other, nil)

	_, err := svc.Get(context.Background(), studentActor, 5)

	// Scoping hides other users' reservations rather than admitting they exist.
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestReservationService_List(t *testing.T) {
	t.Run("students only see their own", func(t *testing.T) {
		reservations, _, svc := newReservationFixture(false)
		reservations.On("List", mock.Anything, mock.MatchedBy(func(f repository.ReservationFilter) bool {
			return f.UserID == studentActor.UserID
		})).Return([]model.Reservation{}, nil)

		_, err := svc.List(context.Background(), studentActor, repository.ReservationFilter{UserID: 42})

		assert.NoError(t, err)
		reservations.AssertExpectations(t)
	})

	t.Run("reason search reaches the store", func(t *testing.T) {
		reservations, _, svc := newReservationFixture(false)
		reservations.On("List", mock.Anything, mock.MatchedBy(func(f repository.ReservationFilter) bool {
			return f.Search == "thermo"
		})).Return([]model.Reservation{}, nil)

		_, err := svc.List(context.Background(), adminActor, repository.ReservationFilter{Search: "thermo"})

		assert.NoError(t, err)
		reservations.AssertExpectations(t)
	})

	t.Run("malformed date filter rejected", func(t *testing.T) {
		_, _, svc := newReservationFixture(false)

		_, err := svc.List(context.Background(), adminActor, repository.ReservationFilter{Date: "10-03-2026"})

		var verr *errors.ValidationError
		assert.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Fields, "date")
	})
}
