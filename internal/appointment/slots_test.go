package appointment_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/doctor-slot-booking/internal/appointment"
	"github.com/hackgods/doctor-slot-booking/internal/config"
)

func utcSchedule() config.Schedule {
	s := config.DefaultSchedule()
	s.Location = time.UTC
	return s
}

func TestCandidateStartsDefaultDay(t *testing.T) {
	sched := utcSchedule()
	day, err := appointment.ParseDate("2024-06-10", sched.Location)
	require.NoError(t, err)

	starts := appointment.CandidateStarts(day, sched)
	require.Len(t, starts, 16)

	first := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, first, starts[0])
	assert.Equal(t, time.Date(2024, 6, 10, 16, 30, 0, 0, time.UTC), starts[15])

	for i, st := range starts {
		assert.Equal(t, first.Add(time.Duration(i)*30*time.Minute), st)
	}
}

func TestCandidateStartsWithinBoundsForManyDates(t *testing.T) {
	sched := utcSchedule()
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 366; i++ {
		d := day.AddDate(0, 0, i)
		starts := appointment.CandidateStarts(d, sched)
		require.Len(t, starts, 16, d.Format("2006-01-02"))

		for _, st := range starts {
			offset := st.Sub(time.Date(d.Year(), d.Month(), d.Day(), 9, 0, 0, 0, time.UTC))
			assert.GreaterOrEqual(t, offset, time.Duration(0))
			assert.LessOrEqual(t, offset, 7*time.Hour+30*time.Minute)
			assert.Zero(t, offset%(30*time.Minute))
		}
	}
}

func TestCandidateStartsKeepsWallClockAcrossDST(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	sched := config.DefaultSchedule()
	sched.Location = loc

	// 2024-03-10 is the spring-forward day in New York.
	day, err := appointment.ParseDate("2024-03-10", loc)
	require.NoError(t, err)

	starts := appointment.CandidateStarts(day, sched)
	require.Len(t, starts, 16)
	assert.Equal(t, 9, starts[0].Hour())
	assert.Equal(t, 16, starts[15].Hour())
	assert.Equal(t, 30, starts[15].Minute())
}

func TestCandidateStartsCustomSchedule(t *testing.T) {
	sched := utcSchedule()
	sched.DayStart = 8 * time.Hour
	sched.DayEnd = 9*time.Hour + 10*time.Minute
	sched.SlotDuration = 20 * time.Minute

	day := time.Date(2024, 6, 10, 15, 45, 0, 0, time.UTC)
	starts := appointment.CandidateStarts(day, sched)

	// 08:00, 08:20, 08:40, 09:00; 09:20 would start after the end.
	require.Len(t, starts, 4)
	assert.Equal(t, time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC), starts[3])
}

func TestParseDate(t *testing.T) {
	d, err := appointment.ParseDate("2024-06-10", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC), d)

	for _, raw := range []string{"", "10/06/2024", "2024-13-01", "2024-06-10T09:00:00Z", "tomorrow"} {
		_, err := appointment.ParseDate(raw, time.UTC)
		assert.ErrorIs(t, err, appointment.ErrInvalidDate, raw)
	}
}

func TestDayBounds(t *testing.T) {
	from, to := appointment.DayBounds(time.Date(2024, 6, 10, 13, 37, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2024, 6, 11, 0, 0, 0, 0, time.UTC), to)
}

func TestSlotStatusToggled(t *testing.T) {
	assert.Equal(t, appointment.SlotBlocked, appointment.SlotAvailable.Toggled())
	assert.Equal(t, appointment.SlotAvailable, appointment.SlotBlocked.Toggled())
	assert.Equal(t, appointment.SlotBooked, appointment.SlotBooked.Toggled())
	assert.True(t, appointment.SlotBooked.Valid())
	assert.False(t, appointment.SlotStatus("open").Valid())
}
