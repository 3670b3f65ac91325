package scheduling

import (
	"time"

	"clinic-scheduler/internal/model"
)

// Interval is the half-open range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

func NewInterval(start time.Time, minutes int) Interval {
	return Interval{Start: start, End: start.Add(time.Duration(minutes) * time.Minute)}
}

func IntervalOf(a *model.Appointment) Interval {
	return NewInterval(a.StartTime, a.DurationMinutes)
}

// Overlaps is false for adjacent intervals.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start.Before(o.End) && o.Start.Before(i.End)
}

// FindConflict returns the first active appointment overlapping want.
func FindConflict(existing []model.Appointment, want Interval) *model.Appointment {
	for i := range existing {
		a := &existing[i]
		if !a.Status.Active() {
			continue
		}
		if IntervalOf(a).Overlaps(want) {
			return a
		}
	}
	return nil
}
