package scheduling

import "clinic-scheduler/internal/model"

var transitions = map[model.Status][]model.Status{
	model.StatusScheduled: {model.StatusConfirmed, model.StatusCancelled},
	model.StatusConfirmed: {model.StatusCompleted, model.StatusCancelled, model.StatusNoShow},
}

// CanTransition reports whether from -> to is allowed in strict mode.
// Staying in the same status is always allowed.
func CanTransition(from, to model.Status) bool {
	if from == to {
		return true
	}
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
