package entity

// Urgency is the triage priority tier
type Urgency string

const (
	UrgencyCritical  Urgency = "critical"
	UrgencyUrgent    Urgency = "urgent"
	UrgencyNonUrgent Urgency = "non-urgent"
)

// Rank orders urgencies: lower sorts first. Unknown values sort last.
func (u Urgency) Rank() int {
	switch u {
	case UrgencyCritical:
		return 0
	case UrgencyUrgent:
		return 1
	case UrgencyNonUrgent:
		return 2
	}
	return 3
}

// Valid reports whether u is one of the three tiers
func (u Urgency) Valid() bool {
	return u.Rank() < 3
}

// Label is the display form used by staff stations
func (u Urgency) Label() string {
	switch u {
	case UrgencyCritical:
		return "CRITICAL"
	case UrgencyUrgent:
		return "URGENT"
	case UrgencyNonUrgent:
		return "NON-URGENT"
	}
	return "UNKNOWN"
}
