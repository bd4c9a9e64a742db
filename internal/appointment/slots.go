package appointment

import (
	"fmt"
	"time"

	"github.com/hackgods/doctor-slot-booking/internal/config"
)

const dateLayout = "2006-01-02"

// ParseDate reads a YYYY-MM-DD calendar date as midnight in loc.
func ParseDate(raw string, loc *time.Location) (time.Time, error) {
	d, err := time.ParseInLocation(dateLayout, raw, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
	}
	return d, nil
}

// DayBounds returns [midnight, next midnight) for the day containing d.
// Adding a calendar day instead of 24h keeps DST days correct.
func DayBounds(d time.Time) (time.Time, time.Time) {
	start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, d.Location())
	return start, start.AddDate(0, 0, 1)
}

// CandidateStarts lists every slot start for the day: DayStart,
// DayStart+SlotDuration, ... strictly before DayEnd.
func CandidateStarts(day time.Time, sched config.Schedule) []time.Time {
	midnight, _ := DayBounds(day)
	start := wallClock(midnight, sched.DayStart)
	end := wallClock(midnight, sched.DayEnd)

	var starts []time.Time
	for cur := start; cur.Before(end); cur = cur.Add(sched.SlotDuration) {
		starts = append(starts, cur)
	}
	return starts
}

// wallClock resolves an offset from midnight as a local wall clock time,
// so 09:00 stays 09:00 on days with a DST shift.
func wallClock(midnight time.Time, offset time.Duration) time.Time {
	h := int(offset / time.Hour)
	m := int((offset % time.Hour) / time.Minute)
	return time.Date(midnight.Year(), midnight.Month(), midnight.Day(), h, m, 0, 0, midnight.Location())
}
