package appointment

import (
	"time"

	"github.com/google/uuid"
)

type SlotStatus string

const (
	SlotAvailable SlotStatus = "AVAILABLE"
	SlotBooked    SlotStatus = "BOOKED"
	SlotBlocked   SlotStatus = "BLOCKED"
)

func (s SlotStatus) Valid() bool {
	switch s {
	case SlotAvailable, SlotBooked, SlotBlocked:
		return true
	}
	return false
}

// Toggled returns the status an admin toggle moves s to.
// BOOKED slots are never toggled so their appointment stays attached.
func (s SlotStatus) Toggled() SlotStatus {
	switch s {
	case SlotAvailable:
		return SlotBlocked
	case SlotBlocked:
		return SlotAvailable
	default:
		return s
	}
}

type Slot struct {
	ID        uuid.UUID
	StartTime time.Time
	Status    SlotStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Appointment struct {
	ID           uuid.UUID
	SlotID       uuid.UUID
	PatientName  string
	PatientPhone string
	CreatedAt    time.Time
}

// ScheduleEntry is a slot as the doctor sees it. Appointment is set only
// when the slot is BOOKED.
type ScheduleEntry struct {
	Slot
	Appointment *Appointment
}

// AppointmentDetail is an appointment joined with the slot it holds.
type AppointmentDetail struct {
	Appointment
	Slot Slot
}
