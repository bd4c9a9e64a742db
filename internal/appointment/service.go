package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/doctor-slot-booking/internal/config"
	redisclient "github.com/hackgods/doctor-slot-booking/internal/redis"
)

var (
	ErrValidation      = errors.New("invalid input")
	ErrInvalidDate     = errors.New("invalid date, expected YYYY-MM-DD")
	ErrSlotUnavailable = errors.New("slot unavailable")
	ErrSlotBeingBooked = errors.New("slot is currently being booked, please retry")
)

// Booking outcomes reported to Metrics.
const (
	OutcomeBooked      = "booked"
	OutcomeInvalid     = "invalid"
	OutcomeUnavailable = "unavailable"
	OutcomeContended   = "contended"
	OutcomeError       = "error"
)

// Metrics receives domain counters. The Prometheus collectors in
// internal/metrics implement it.
type Metrics interface {
	SlotsGenerated(n int)
	BookingAttempt(outcome string)
	SlotToggled(status SlotStatus)
}

type noopMetrics struct{}

func (noopMetrics) SlotsGenerated(int) {}
func (noopMetrics) BookingAttempt(string) {}
func (noopMetrics) SlotToggled(SlotStatus) {}

type Option func(*Service)

func WithMetrics(m Metrics) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

type Service struct {
	repo     Repository
	locker   redisclient.Locker
	schedule config.Schedule
	logger   zerolog.Logger
	metrics  Metrics
}

func NewService(repo Repository, locker redisclient.Locker, schedule config.Schedule, logger zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		locker:   locker,
		schedule: schedule,
		logger:   logger.With().Str("component", "appointment").Logger(),
		metrics:  noopMetrics{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Schedule returns the working day configuration slots are generated from.
func (s *Service) Schedule() config.Schedule {
	return s.schedule
}

// GenerateSlotsForDay creates the day's AVAILABLE slots and returns how
// many were new. Running it again for the same date creates nothing.
func (s *Service) GenerateSlotsForDay(ctx context.Context, date string) (int, error) {
	day, err := ParseDate(date, s.schedule.Location)
	if err != nil {
		return 0, err
	}
	return s.GenerateSlotsForDate(ctx, day)
}

func (s *Service) GenerateSlotsForDate(ctx context.Context, day time.Time) (int, error) {
	starts := CandidateStarts(day.In(s.schedule.Location), s.schedule)
	if len(starts) == 0 {
		return 0, nil
	}

	created, err := s.repo.InsertSlotsIfAbsent(ctx, starts)
	if err != nil {
		return 0, fmt.Errorf("insert slots: %w", err)
	}

	s.metrics.SlotsGenerated(created)
	s.logger.Debug().
		Str("date", day.Format(dateLayout)).
		Int("candidates", len(starts)).
		Int("created", created).
		Msg("slots generated")

	return created, nil
}

// GenerateUpcoming generates slots for `days` consecutive days starting on
// the calendar day of from. A failing day stops the run; the count of
// slots created before it is still returned.
func (s *Service) GenerateUpcoming(ctx context.Context, from time.Time, days int) (int, error) {
	first, _ := DayBounds(from.In(s.schedule.Location))

	total := 0
	for i := 0; i < days; i++ {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		day := first.AddDate(0, 0, i)
		n, err := s.GenerateSlotsForDate(ctx, day)
		if err != nil {
			return total, fmt.Errorf("generate %s: %w", day.Format(dateLayout), err)
		}
		total += n
	}
	return total, nil
}

// GetDoctorSchedule lists every slot of the given day, or of all days when
// date is empty, with the appointment attached to booked slots.
func (s *Service) GetDoctorSchedule(ctx context.Context, date string) ([]ScheduleEntry, error) {
	var from, to time.Time
	if date != "" {
		day, err := ParseDate(date, s.schedule.Location)
		if err != nil {
			return nil, err
		}
		from, to = DayBounds(day)
	}

	entries, err := s.repo.ListSchedule(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("list schedule: %w", err)
	}
	return entries, nil
}

// GetAvailableSlots lists the bookable slots of one day.
func (s *Service) GetAvailableSlots(ctx context.Context, date string) ([]Slot, error) {
	day, err := ParseDate(date, s.schedule.Location)
	if err != nil {
		return nil, err
	}
	from, to := DayBounds(day)

	status := SlotAvailable
	slots, err := s.repo.ListSlots(ctx, from, to, &status)
	if err != nil {
		return nil, fmt.Errorf("list available slots: %w", err)
	}
	return slots, nil
}

// GetPatientAppointments returns a patient's bookings, latest slot first.
func (s *Service) GetPatientAppointments(ctx context.Context, phone string) ([]AppointmentDetail, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return []AppointmentDetail{}, nil
	}

	appts, err := s.repo.ListAppointmentsByPhone(ctx, phone)
	if err != nil {
		return nil, fmt.Errorf("list appointments by phone: %w", err)
	}
	return appts, nil
}

// BookSlot reserves an AVAILABLE slot for a patient. The status check
// happens up front so most conflicts fail without a write; the store
// repeats it as a conditional update inside the booking transaction.
func (s *Service) BookSlot(ctx context.Context, slotID uuid.UUID, name, phone string) (*Appointment, error) {
	name = strings.TrimSpace(name)
	phone = strings.TrimSpace(phone)
	if name == "" || phone == "" {
		s.metrics.BookingAttempt(OutcomeInvalid)
		return nil, fmt.Errorf("%w: patient name and phone are required", ErrValidation)
	}

	slot, err := s.repo.GetSlotByID(ctx, slotID)
	if err != nil {
		if errors.Is(err, ErrSlotNotFound) {
			s.metrics.BookingAttempt(OutcomeUnavailable)
			return nil, ErrSlotUnavailable
		}
		s.metrics.BookingAttempt(OutcomeError)
		return nil, fmt.Errorf("load slot: %w", err)
	}
	if slot.Status != SlotAvailable {
		s.metrics.BookingAttempt(OutcomeUnavailable)
		return nil, ErrSlotUnavailable
	}

	var created *Appointment
	book := func(lockCtx context.Context) error {
		appt, err := s.repo.BookSlot(lockCtx, slotID, name, phone)
		if err != nil {
			if errors.Is(err, ErrSlotTaken) {
				return ErrSlotUnavailable
			}
			return fmt.Errorf("book slot: %w", err)
		}
		created = appt
		return nil
	}

	err = s.locker.WithLock(ctx, redisclient.SlotLockKey(slotID), book)
	if errors.Is(err, redisclient.ErrLockUnavailable) {
		// The conditional update still prevents double booking.
		s.logger.Warn().Err(err).Str("slot_id", slotID.String()).Msg("booking without slot lock")
		err = book(ctx)
	}

	switch {
	case err == nil:
	case errors.Is(err, redisclient.ErrLockNotAcquired):
		s.metrics.BookingAttempt(OutcomeContended)
		return nil, ErrSlotBeingBooked
	case errors.Is(err, ErrSlotUnavailable):
		s.metrics.BookingAttempt(OutcomeUnavailable)
		return nil, err
	default:
		s.metrics.BookingAttempt(OutcomeError)
		return nil, err
	}

	s.metrics.BookingAttempt(OutcomeBooked)
	s.logger.Info().
		Str("slot_id", slotID.String()).
		Str("appointment_id", created.ID.String()).
		Msg("slot booked")

	return created, nil
}

// ToggleSlotStatus flips a slot between AVAILABLE and BLOCKED. Booked
// slots are returned unchanged.
func (s *Service) ToggleSlotStatus(ctx context.Context, slotID uuid.UUID) (*Slot, error) {
	slot, err := s.repo.ToggleSlotStatus(ctx, slotID)
	if err != nil {
		if errors.Is(err, ErrSlotNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("toggle slot status: %w", err)
	}

	s.metrics.SlotToggled(slot.Status)
	return slot, nil
}
