package queue

import "time"

// Status is a queue entry's place in the care pipeline.
type Status string

const (
	StatusWaiting        Status = "WAITING"
	StatusInConsultation Status = "IN_CONSULTATION"
	StatusCompleted      Status = "COMPLETED"
)

// Priority bounds. Enqueue clamps out-of-range values instead of rejecting
// them so a miscalibrated device still lands somewhere sensible.
const (
	MinPriority = 0
	MaxPriority = 5
)

// Entry is a patient's slot in a clinic's live queue. Position is derived
// from the active ordering on every read and never stored, so concurrent
// inserts cannot leave stale position values behind.
type Entry struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	PatientID string    `json:"patient_id"`
	Priority  int       `json:"priority"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Position  int       `json:"position,omitempty"`
}

// validTransitions are the only allowed status edges. There are no reverse
// edges and nothing leaves COMPLETED.
var validTransitions = map[Status]Status{
	StatusWaiting:        StatusInConsultation,
	StatusInConsultation: StatusCompleted,
}

// CanTransition reports whether from -> to is an allowed edge.
func CanTransition(from, to Status) bool {
	return validTransitions[from] == to
}

// ValidStatus reports whether s is a known status value.
func ValidStatus(s Status) bool {
	switch s {
	case StatusWaiting, StatusInConsultation, StatusCompleted:
		return true
	}
	return false
}
