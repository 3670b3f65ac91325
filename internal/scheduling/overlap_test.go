package scheduling

import (
	"testing"
	"time"

	"clinic-scheduler/internal/model"
)

func TestIntervalOverlaps(t *testing.T) {
	t0 := time.Date(2030, 1, 1, 9, 0, 0, 0, time.UTC)
	at := func(min int) time.Time { return t0.Add(time.Duration(min) * time.Minute) }

	tests := []struct {
		name string
		a, b Interval
		want bool
	}{
		{"identical", NewInterval(at(0), 30), NewInterval(at(0), 30), true},
		{"partial", NewInterval(at(0), 30), NewInterval(at(15), 30), true},
		{"contained", NewInterval(at(0), 120), NewInterval(at(30), 15), true},
		{"adjacent after", NewInterval(at(0), 30), NewInterval(at(30), 30), false},
		{"adjacent before", NewInterval(at(30), 30), NewInterval(at(0), 30), false},
		{"disjoint", NewInterval(at(0), 30), NewInterval(at(60), 30), false},
		{"one minute in", NewInterval(at(0), 30), NewInterval(at(29), 15), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Overlaps(tt.b); got != tt.want {
				t.Errorf("a.Overlaps(b) = %v, want %v", got, tt.want)
			}
			if got := tt.b.Overlaps(tt.a); got != tt.want {
				t.Errorf("b.Overlaps(a) = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFindConflictSkipsTerminal(t *testing.T) {
	t0 := time.Date(2030, 1, 1, 9, 0, 0, 0, time.UTC)
	existing := []model.Appointment{
		{ID: 1, StartTime: t0, DurationMinutes: 30, Status: model.StatusCancelled},
		{ID: 2, StartTime: t0, DurationMinutes: 30, Status: model.StatusCompleted},
		{ID: 3, StartTime: t0.Add(time.Hour), DurationMinutes: 30, Status: model.StatusConfirmed},
	}
	if c := FindConflict(existing, NewInterval(t0.Add(10*time.Minute), 30)); c != nil {
		t.Errorf("terminal appointment %d blocked the slot", c.ID)
	}
	c := FindConflict(existing, NewInterval(t0.Add(45*time.Minute), 30))
	if c == nil || c.ID != 3 {
		t.Errorf("got %v, want appointment 3", c)
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to model.Status
		want     bool
	}{
		{model.StatusScheduled, model.StatusConfirmed, true},
		{model.StatusScheduled, model.StatusCancelled, true},
		{model.StatusScheduled, model.StatusCompleted, false},
		{model.StatusConfirmed, model.StatusNoShow, true},
		{model.StatusConfirmed, model.StatusScheduled, false},
		{model.StatusCancelled, model.StatusScheduled, false},
		{model.StatusCompleted, model.StatusCompleted, true},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}
