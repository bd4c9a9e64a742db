package appointment_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/doctor-slot-booking/internal/appointment"
	"github.com/hackgods/doctor-slot-booking/internal/db"
)

// newPgRepository connects to POSTGRES_TEST_DSN and empties both tables.
// The database behind it must be disposable.
func newPgRepository(t *testing.T) *appointment.PgRepository {
	t.Helper()

	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}

	ctx := context.Background()
	pool, err := db.ConnectPostgres(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, db.Migrate(ctx, pool))
	_, err = pool.Exec(ctx, "TRUNCATE appointments, slots")
	require.NoError(t, err)

	return appointment.NewPgRepository(pool)
}

func pgDay() time.Time {
	return time.Date(2031, time.March, 3, 0, 0, 0, 0, time.UTC)
}

func TestPgInsertSlotsIfAbsent(t *testing.T) {
	repo := newPgRepository(t)
	ctx := context.Background()

	starts := appointment.CandidateStarts(pgDay(), utcSchedule())
	n, err := repo.InsertSlotsIfAbsent(ctx, starts)
	require.NoError(t, err)
	assert.Equal(t, 16, n)

	n, err = repo.InsertSlotsIfAbsent(ctx, starts)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = repo.InsertSlotsIfAbsent(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	from, to := appointment.DayBounds(pgDay())
	slots, err := repo.ListSlots(ctx, from, to, nil)
	require.NoError(t, err)
	require.Len(t, slots, 16)
	assert.True(t, slots[0].StartTime.Equal(starts[0]))
	assert.True(t, slots[15].StartTime.Equal(starts[15]))
}

func TestPgListSlotsFiltersStatusAndRange(t *testing.T) {
	repo := newPgRepository(t)
	ctx := context.Background()

	_, err := repo.InsertSlotsIfAbsent(ctx, appointment.CandidateStarts(pgDay(), utcSchedule()))
	require.NoError(t, err)
	_, err = repo.InsertSlotsIfAbsent(ctx, appointment.CandidateStarts(pgDay().AddDate(0, 0, 1), utcSchedule()))
	require.NoError(t, err)

	from, to := appointment.DayBounds(pgDay())
	all, err := repo.ListSlots(ctx, from, to, nil)
	require.NoError(t, err)
	require.Len(t, all, 16)

	_, err = repo.ToggleSlotStatus(ctx, all[0].ID)
	require.NoError(t, err)

	available := appointment.SlotAvailable
	open, err := repo.ListSlots(ctx, from, to, &available)
	require.NoError(t, err)
	assert.Len(t, open, 15)

	everything, err := repo.ListSlots(ctx, time.Time{}, time.Time{}, nil)
	require.NoError(t, err)
	assert.Len(t, everything, 32)
}

func TestPgBookSlotOnlyOnce(t *testing.T) {
	repo := newPgRepository(t)
	ctx := context.Background()

	_, err := repo.InsertSlotsIfAbsent(ctx, []time.Time{pgDay().Add(9 * time.Hour)})
	require.NoError(t, err)
	slots, err := repo.ListSlots(ctx, time.Time{}, time.Time{}, nil)
	require.NoError(t, err)
	slotID := slots[0].ID

	const callers = 10
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
		taken   int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.BookSlot(ctx, slotID, "Jane Doe", "5550123")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners++
			case errors.Is(err, appointment.ErrSlotTaken):
				taken++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
	assert.Equal(t, callers-1, taken)

	slot, err := repo.GetSlotByID(ctx, slotID)
	require.NoError(t, err)
	assert.Equal(t, appointment.SlotBooked, slot.Status)
}

func TestPgBookBlockedSlot(t *testing.T) {
	repo := newPgRepository(t)
	ctx := context.Background()

	_, err := repo.InsertSlotsIfAbsent(ctx, []time.Time{pgDay().Add(10 * time.Hour)})
	require.NoError(t, err)
	slots, err := repo.ListSlots(ctx, time.Time{}, time.Time{}, nil)
	require.NoError(t, err)

	_, err = repo.ToggleSlotStatus(ctx, slots[0].ID)
	require.NoError(t, err)

	_, err = repo.BookSlot(ctx, slots[0].ID, "Jane Doe", "5550123")
	assert.ErrorIs(t, err, appointment.ErrSlotTaken)
}

func TestPgToggleSlotStatus(t *testing.T) {
	repo := newPgRepository(t)
	ctx := context.Background()

	_, err := repo.InsertSlotsIfAbsent(ctx, []time.Time{pgDay().Add(9 * time.Hour), pgDay().Add(11 * time.Hour)})
	require.NoError(t, err)
	slots, err := repo.ListSlots(ctx, time.Time{}, time.Time{}, nil)
	require.NoError(t, err)

	s, err := repo.ToggleSlotStatus(ctx, slots[0].ID)
	require.NoError(t, err)
	assert.Equal(t, appointment.SlotBlocked, s.Status)

	s, err = repo.ToggleSlotStatus(ctx, slots[0].ID)
	require.NoError(t, err)
	assert.Equal(t, appointment.SlotAvailable, s.Status)

	_, err = repo.BookSlot(ctx, slots[1].ID, "Jane Doe", "5550123")
	require.NoError(t, err)
	s, err = repo.ToggleSlotStatus(ctx, slots[1].ID)
	require.NoError(t, err)
	assert.Equal(t, appointment.SlotBooked, s.Status)

	_, err = repo.ToggleSlotStatus(ctx, uuid.New())
	assert.ErrorIs(t, err, appointment.ErrSlotNotFound)
}

func TestPgScheduleAndHistory(t *testing.T) {
	repo := newPgRepository(t)
	ctx := context.Background()

	_, err := repo.InsertSlotsIfAbsent(ctx, appointment.CandidateStarts(pgDay(), utcSchedule()))
	require.NoError(t, err)
	from, to := appointment.DayBounds(pgDay())
	slots, err := repo.ListSlots(ctx, from, to, nil)
	require.NoError(t, err)

	_, err = repo.BookSlot(ctx, slots[0].ID, "Jane Doe", "5550123")
	require.NoError(t, err)
	_, err = repo.BookSlot(ctx, slots[3].ID, "Jane Doe", "5550123")
	require.NoError(t, err)
	_, err = repo.BookSlot(ctx, slots[5].ID, "John Roe", "5550999")
	require.NoError(t, err)

	entries, err := repo.ListSchedule(ctx, from, to)
	require.NoError(t, err)
	require.Len(t, entries, 16)
	require.NotNil(t, entries[0].Appointment)
	assert.Equal(t, "Jane Doe", entries[0].Appointment.PatientName)
	assert.Equal(t, entries[0].ID, entries[0].Appointment.SlotID)
	assert.Nil(t, entries[1].Appointment)
	require.NotNil(t, entries[5].Appointment)
	assert.Equal(t, "5550999", entries[5].Appointment.PatientPhone)

	history, err := repo.ListAppointmentsByPhone(ctx, "5550123")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, slots[3].ID, history[0].Slot.ID)
	assert.Equal(t, slots[0].ID, history[1].Slot.ID)
	assert.Equal(t, appointment.SlotBooked, history[0].Slot.Status)

	none, err := repo.ListAppointmentsByPhone(ctx, "0000000")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestPgGetSlotByIDMissing(t *testing.T) {
	repo := newPgRepository(t)

	_, err := repo.GetSlotByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, appointment.ErrSlotNotFound)
}
