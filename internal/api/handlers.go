package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/doctor-slot-booking/internal/appointment"
	"github.com/hackgods/doctor-slot-booking/internal/auth"
)

// BookingService is the operation surface the handlers call.
type BookingService interface {
	GenerateSlotsForDay(ctx context.Context, date string) (int, error)
	GetDoctorSchedule(ctx context.Context, date string) ([]appointment.ScheduleEntry, error)
	ToggleSlotStatus(ctx context.Context, slotID uuid.UUID) (*appointment.Slot, error)
	GetAvailableSlots(ctx context.Context, date string) ([]appointment.Slot, error)
	BookSlot(ctx context.Context, slotID uuid.UUID, name, phone string) (*appointment.Appointment, error)
	GetPatientAppointments(ctx context.Context, phone string) ([]appointment.AppointmentDetail, error)
}

func generateSlotsHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req GenerateSlotsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		count, err := svc.GenerateSlotsForDay(r.Context(), req.Date)
		if err != nil {
			handleServiceError(w, r, err, "could not generate slots")
			return
		}

		writeJSON(w, http.StatusOK, GenerateSlotsResponse{Success: true, Count: count})
	}
}

func doctorScheduleHandler(svc BookingService, p presenter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := svc.GetDoctorSchedule(r.Context(), r.URL.Query().Get("date"))
		if err != nil {
			handleServiceError(w, r, err, "could not load schedule")
			return
		}

		writeJSON(w, http.StatusOK, ScheduleResponse{Success: true, Slots: p.schedule(entries)})
	}
}

func toggleSlotHandler(svc BookingService, p presenter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slotID, ok := slotIDParam(w, r)
		if !ok {
			return
		}

		slot, err := svc.ToggleSlotStatus(r.Context(), slotID)
		if err != nil {
			handleServiceError(w, r, err, "could not update slot")
			return
		}

		writeJSON(w, http.StatusOK, ToggleSlotResponse{Success: true, Slot: p.slot(*slot)})
	}
}

func availableSlotsHandler(svc BookingService, p presenter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slots, err := svc.GetAvailableSlots(r.Context(), r.URL.Query().Get("date"))
		if err != nil {
			handleServiceError(w, r, err, "could not load slots")
			return
		}

		writeJSON(w, http.StatusOK, SlotListResponse{Success: true, Slots: p.slots(slots)})
	}
}

func bookSlotHandler(svc BookingService, p presenter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slotID, ok := slotIDParam(w, r)
		if !ok {
			return
		}

		var req BookSlotRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		req.Phone = strings.TrimSpace(req.Phone)

		// A patient token pins the booking to the caller's own phone.
		if id, ok := auth.FromContext(r.Context()); ok && id.Phone != "" {
			if req.Phone != "" && req.Phone != strings.TrimSpace(id.Phone) {
				writeError(w, http.StatusForbidden, "phone_mismatch", "phone does not match the signed-in patient")
				return
			}
			req.Phone = id.Phone
			if req.Name == "" {
				req.Name = id.Name
			}
		}

		appt, err := svc.BookSlot(r.Context(), slotID, req.Name, req.Phone)
		if err != nil {
			handleServiceError(w, r, err, "Booking failed")
			return
		}

		writeJSON(w, http.StatusCreated, BookSlotResponse{Success: true, Appointment: p.appointment(*appt)})
	}
}

func patientAppointmentsHandler(svc BookingService, p presenter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		phone := strings.TrimSpace(r.URL.Query().Get("phone"))

		if id, ok := auth.FromContext(r.Context()); ok && id.Phone != "" {
			if phone != "" && phone != strings.TrimSpace(id.Phone) {
				writeError(w, http.StatusForbidden, "phone_mismatch", "patients can only list their own appointments")
				return
			}
			phone = id.Phone
		}

		if phone == "" {
			writeError(w, http.StatusBadRequest, "missing_phone", "phone is required")
			return
		}

		appts, err := svc.GetPatientAppointments(r.Context(), phone)
		if err != nil {
			handleServiceError(w, r, err, "could not load appointments")
			return
		}

		writeJSON(w, http.StatusOK, AppointmentListResponse{Success: true, Appointments: p.history(appts)})
	}
}

func slotIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_slot_id", "id must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

// handleServiceError maps domain errors to responses. Anything unexpected
// is logged and reported with a generic message so driver errors never
// reach the client.
func handleServiceError(w http.ResponseWriter, r *http.Request, err error, failMsg string) {
	switch {
	case errors.Is(err, appointment.ErrValidation):
		writeError(w, http.StatusBadRequest, "validation_error", "Missing details")
	case errors.Is(err, appointment.ErrInvalidDate):
		writeError(w, http.StatusBadRequest, "invalid_date", err.Error())
	case errors.Is(err, appointment.ErrSlotNotFound):
		writeError(w, http.StatusNotFound, "slot_not_found", "Slot not found")
	case errors.Is(err, appointment.ErrSlotUnavailable):
		writeError(w, http.StatusConflict, "slot_unavailable", "Slot unavailable")
	case errors.Is(err, appointment.ErrSlotBeingBooked):
		writeError(w, http.StatusConflict, "slot_being_booked", "slot is currently being booked, please retry shortly")
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal_error", failMsg)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{Success: false, Error: code, Message: msg})
}
