package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrSlotNotFound = errors.New("slot not found")
	// ErrSlotTaken is returned by the store when the slot left AVAILABLE
	// between the service's check and the write.
	ErrSlotTaken = errors.New("slot no longer available")
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	GetSlotByID(ctx context.Context, id uuid.UUID) (*Slot, error)

	// InsertSlotsIfAbsent creates AVAILABLE slots for the given start times,
	// skipping any start time that already has a slot. It returns how many
	// rows were actually created.
	InsertSlotsIfAbsent(ctx context.Context, starts []time.Time) (int, error)

	// ListSlots returns slots with from <= start_time < to, ascending.
	// A zero from/to leaves that side open; a nil status matches all.
	ListSlots(ctx context.Context, from, to time.Time, status *SlotStatus) ([]Slot, error)
	ListSchedule(ctx context.Context, from, to time.Time) ([]ScheduleEntry, error)
	ListAppointmentsByPhone(ctx context.Context, phone string) ([]AppointmentDetail, error)

	// BookSlot moves the slot from AVAILABLE to BOOKED and inserts the
	// appointment in one transaction. ErrSlotTaken if the slot is no
	// longer AVAILABLE or already has an appointment.
	BookSlot(ctx context.Context, slotID uuid.UUID, patientName, patientPhone string) (*Appointment, error)

	// ToggleSlotStatus flips AVAILABLE<->BLOCKED and leaves BOOKED alone,
	// returning the slot as stored afterwards.
	ToggleSlotStatus(ctx context.Context, slotID uuid.UUID) (*Slot, error)
}
