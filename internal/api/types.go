package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/doctor-slot-booking/internal/appointment"
)

type GenerateSlotsRequest struct {
	Date string `json:"date"`
}

type BookSlotRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type SlotResponse struct {
	ID        uuid.UUID `json:"id"`
	StartTime time.Time `json:"start_time"`
	Status    string    `json:"status"`
}

// ScheduleSlotResponse always carries the appointment key; it is null
// unless the slot is booked.
type ScheduleSlotResponse struct {
	SlotResponse
	Appointment *AppointmentResponse `json:"appointment"`
}

type AppointmentResponse struct {
	ID           uuid.UUID     `json:"id"`
	SlotID       uuid.UUID     `json:"slot_id"`
	PatientName  string        `json:"patient_name"`
	PatientPhone string        `json:"patient_phone"`
	CreatedAt    time.Time     `json:"created_at"`
	Slot         *SlotResponse `json:"slot,omitempty"`
}

type GenerateSlotsResponse struct {
	Success bool `json:"success"`
	Count   int  `json:"count"`
}

type SlotListResponse struct {
	Success bool           `json:"success"`
	Slots   []SlotResponse `json:"slots"`
}

type ScheduleResponse struct {
	Success bool                   `json:"success"`
	Slots   []ScheduleSlotResponse `json:"slots"`
}

type ToggleSlotResponse struct {
	Success bool         `json:"success"`
	Slot    SlotResponse `json:"slot"`
}

type BookSlotResponse struct {
	Success     bool                `json:"success"`
	Message     string              `json:"message,omitempty"`
	Appointment AppointmentResponse `json:"appointment"`
}

type AppointmentListResponse struct {
	Success      bool                  `json:"success"`
	Appointments []AppointmentResponse `json:"appointments"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// presenter renders domain values with times in the clinic's zone.
type presenter struct {
	loc *time.Location
}

func (p presenter) slot(s appointment.Slot) SlotResponse {
	return SlotResponse{
		ID:        s.ID,
		StartTime: s.StartTime.In(p.loc),
		Status:    string(s.Status),
	}
}

func (p presenter) appointment(a appointment.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:           a.ID,
		SlotID:       a.SlotID,
		PatientName:  a.PatientName,
		PatientPhone: a.PatientPhone,
		CreatedAt:    a.CreatedAt.In(p.loc),
	}
}

func (p presenter) slots(in []appointment.Slot) []SlotResponse {
	out := make([]SlotResponse, 0, len(in))
	for _, s := range in {
		out = append(out, p.slot(s))
	}
	return out
}

func (p presenter) schedule(in []appointment.ScheduleEntry) []ScheduleSlotResponse {
	out := make([]ScheduleSlotResponse, 0, len(in))
	for _, e := range in {
		item := ScheduleSlotResponse{SlotResponse: p.slot(e.Slot)}
		if e.Appointment != nil {
			a := p.appointment(*e.Appointment)
			item.Appointment = &a
		}
		out = append(out, item)
	}
	return out
}

func (p presenter) history(in []appointment.AppointmentDetail) []AppointmentResponse {
	out := make([]AppointmentResponse, 0, len(in))
	for _, d := range in {
		a := p.appointment(d.Appointment)
		s := p.slot(d.Slot)
		a.Slot = &s
		out = append(out, a)
	}
	return out
}
