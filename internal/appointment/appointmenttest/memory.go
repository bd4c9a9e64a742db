// Package appointmenttest provides in-memory stand-ins for the appointment
// store and the slot locker, with the same conflict rules as Postgres.
package appointmenttest

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/doctor-slot-booking/internal/appointment"
	redisclient "github.com/hackgods/doctor-slot-booking/internal/redis"
)

type MemoryRepository struct {
	mu           sync.Mutex
	slots        map[uuid.UUID]*appointment.Slot
	byStart      map[int64]uuid.UUID
	appointments map[uuid.UUID]*appointment.Appointment // keyed by slot id

	// Err, when set, is returned by every call.
	Err error
}

var _ appointment.Repository = (*MemoryRepository)(nil)

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		slots:        make(map[uuid.UUID]*appointment.Slot),
		byStart:      make(map[int64]uuid.UUID),
		appointments: make(map[uuid.UUID]*appointment.Appointment),
	}
}

// AddSlot stores a slot directly, bypassing generation.
func (m *MemoryRepository) AddSlot(start time.Time, status appointment.SlotStatus) appointment.Slot {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.insertLocked(start)
	s.Status = status
	return *s
}

func (m *MemoryRepository) insertLocked(start time.Time) *appointment.Slot {
	now := time.Now()
	s := &appointment.Slot{
		ID:        uuid.New(),
		StartTime: start,
		Status:    appointment.SlotAvailable,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.slots[s.ID] = s
	m.byStart[start.UnixNano()] = s.ID
	return s
}

// SlotCount returns how many slots are stored.
func (m *MemoryRepository) SlotCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.slots)
}

// AppointmentCount returns how many appointments are stored.
func (m *MemoryRepository) AppointmentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.appointments)
}

func (m *MemoryRepository) GetSlotByID(_ context.Context, id uuid.UUID) (*appointment.Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}

	s, ok := m.slots[id]
	if !ok {
		return nil, appointment.ErrSlotNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MemoryRepository) InsertSlotsIfAbsent(_ context.Context, starts []time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}

	created := 0
	for _, st := range starts {
		if _, exists := m.byStart[st.UnixNano()]; exists {
			continue
		}
		m.insertLocked(st)
		created++
	}
	return created, nil
}

func (m *MemoryRepository) ListSlots(_ context.Context, from, to time.Time, status *appointment.SlotStatus) ([]appointment.Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}

	result := []appointment.Slot{}
	for _, s := range m.slots {
		if !inRange(s.StartTime, from, to) {
			continue
		}
		if status != nil && s.Status != *status {
			continue
		}
		result = append(result, *s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StartTime.Before(result[j].StartTime) })
	return result, nil
}

func (m *MemoryRepository) ListSchedule(_ context.Context, from, to time.Time) ([]appointment.ScheduleEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}

	result := []appointment.ScheduleEntry{}
	for _, s := range m.slots {
		if !inRange(s.StartTime, from, to) {
			continue
		}
		e := appointment.ScheduleEntry{Slot: *s}
		if a, ok := m.appointments[s.ID]; ok {
			cp := *a
			e.Appointment = &cp
		}
		result = append(result, e)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StartTime.Before(result[j].StartTime) })
	return result, nil
}

func (m *MemoryRepository) ListAppointmentsByPhone(_ context.Context, phone string) ([]appointment.AppointmentDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}

	result := []appointment.AppointmentDetail{}
	for slotID, a := range m.appointments {
		if a.PatientPhone != phone {
			continue
		}
		result = append(result, appointment.AppointmentDetail{Appointment: *a, Slot: *m.slots[slotID]})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Slot.StartTime.After(result[j].Slot.StartTime) })
	return result, nil
}

func (m *MemoryRepository) BookSlot(_ context.Context, slotID uuid.UUID, name, phone string) (*appointment.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}

	s, ok := m.slots[slotID]
	if !ok || s.Status != appointment.SlotAvailable {
		return nil, appointment.ErrSlotTaken
	}
	if _, taken := m.appointments[slotID]; taken {
		return nil, appointment.ErrSlotTaken
	}

	now := time.Now()
	s.Status = appointment.SlotBooked
	s.UpdatedAt = now
	a := &appointment.Appointment{
		ID:           uuid.New(),
		SlotID:       slotID,
		PatientName:  name,
		PatientPhone: phone,
		CreatedAt:    now,
	}
	m.appointments[slotID] = a

	cp := *a
	return &cp, nil
}

func (m *MemoryRepository) ToggleSlotStatus(_ context.Context, slotID uuid.UUID) (*appointment.Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}

	s, ok := m.slots[slotID]
	if !ok {
		return nil, appointment.ErrSlotNotFound
	}
	if next := s.Status.Toggled(); next != s.Status {
		s.Status = next
		s.UpdatedAt = time.Now()
	}
	cp := *s
	return &cp, nil
}

func inRange(t, from, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && !t.Before(to) {
		return false
	}
	return true
}

// Locker is an in-process Locker keyed like the Redis one. Setting Err
// makes every WithLock fail before fn runs.
type Locker struct {
	mu   sync.Mutex
	held map[string]bool

	Err error
}

var _ redisclient.Locker = (*Locker)(nil)

func NewLocker() *Locker {
	return &Locker{held: make(map[string]bool)}
}

func (l *Locker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	if l.Err != nil {
		l.mu.Unlock()
		return l.Err
	}
	if l.held[key] {
		l.mu.Unlock()
		return redisclient.ErrLockNotAcquired
	}
	l.held[key] = true
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		delete(l.held, key)
		l.mu.Unlock()
	}()

	return fn(ctx)
}

// Hold marks key as locked until the returned release func is called.
func (l *Locker) Hold(key string) (release func()) {
	l.mu.Lock()
	l.held[key] = true
	l.mu.Unlock()
	return func() {
		l.mu.Lock()
		delete(l.held, key)
		l.mu.Unlock()
	}
}

// ErrUnavailable is a ready-made Locker.Err that mimics Redis being down.
var ErrUnavailable = errors.Join(redisclient.ErrLockUnavailable, errors.New("connection refused"))
