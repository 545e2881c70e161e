package triage

import (
	"sort"

	"emergency-triage/internal/domain/entity"
)

// OrderQueue returns the waiting patients ordered by urgency tier, then
// check-in time, then id. Non-waiting records are dropped and the input
// is left untouched.
func OrderQueue(patients []entity.Patient) []entity.Patient {
	queue := make([]entity.Patient, 0, len(patients))
	for _, p := range patients {
		if p.IsWaiting() {
			queue = append(queue, p)
		}
	}

	sort.SliceStable(queue, func(i, j int) bool {
		return precedes(&queue[i], &queue[j])
	})
	return queue
}

func precedes(a, b *entity.Patient) bool {
	if ra, rb := a.Urgency.Rank(), b.Urgency.Rank(); ra != rb {
		return ra < rb
	}
	if !a.CheckInAt.Equal(b.CheckInAt) {
		return a.CheckInAt.Before(b.CheckInAt)
	}
	return a.ID.String() < b.ID.String()
}

// ComputeStatistics counts the waiting set; discharged and assigned
// records are ignored.
func ComputeStatistics(patients []entity.Patient) entity.Statistics {
	var stats entity.Statistics
	for _, p := range patients {
		if !p.IsWaiting() {
			continue
		}
		stats.Total++
		switch p.Urgency {
		case entity.UrgencyCritical:
			stats.Critical++
		case entity.UrgencyUrgent:
			stats.Urgent++
		case entity.UrgencyNonUrgent:
			stats.NonUrgent++
		}
	}
	return stats
}
