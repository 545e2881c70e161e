// Package triage holds the pure decision logic of the intake desk:
// urgency classification, queue ordering and waiting-set statistics.
// Nothing here performs I/O.
package triage

import (
	"fmt"
	"strconv"
	"strings"

	"emergency-triage/internal/domain/entity"
)

// Thresholds are the manual-fallback bands. A vital outside a Critical
// band is a red flag; outside an Urgent band it is a secondary indicator.
// Temperatures are in °F.
type Thresholds struct {
	CriticalPulseMin int
	CriticalPulseMax int
	UrgentPulseMin   int
	UrgentPulseMax   int

	CriticalTempMinF float64
	CriticalTempMaxF float64
	UrgentTempMaxF   float64

	CriticalSystolicMin  int
	CriticalSystolicMax  int
	CriticalDiastolicMax int
	UrgentSystolicMax    int
	UrgentDiastolicMax   int

	CriticalSymptoms []string
	UrgentSymptoms   []string

	// MinAdvisoryConfidence below which an advisory is ignored. Zero keeps
	// the advisory authoritative at any confidence.
	MinAdvisoryConfidence float64
}

// DefaultThresholds returns the bands used when nothing is configured.
func DefaultThresholds() Thresholds {
	return Thresholds{
		CriticalPulseMin:     50,
		CriticalPulseMax:     120,
		UrgentPulseMin:       60,
		UrgentPulseMax:       100,
		CriticalTempMinF:     95,
		CriticalTempMaxF:     103,
		UrgentTempMaxF:       100.4,
		CriticalSystolicMin:  90,
		CriticalSystolicMax:  180,
		CriticalDiastolicMax: 120,
		UrgentSystolicMax:    160,
		UrgentDiastolicMax:   100,
		CriticalSymptoms:     []string{"chest_pain", "breathing", "bleeding", "unconscious", "stroke", "seizure"},
		UrgentSymptoms:       []string{"fever", "pain", "vomiting", "fracture", "burn", "allergic"},
	}
}

// Advisory is the external analyzer's suggestion
type Advisory struct {
	Urgency    entity.Urgency
	Confidence float64
	Reasoning  string
	Detected   []string
}

// Input is everything the classifier looks at
type Input struct {
	Symptoms entity.StringSet
	Vitals   entity.Vitals
	Advisory *Advisory
}

// Result is the decision plus what supported it
type Result struct {
	Urgency    entity.Urgency
	Rationale  string
	Source     entity.UrgencySource
	Confidence *float64
	Indicators []string
}

// Classify decides the urgency class. A valid advisory wins regardless of
// confidence (unless a floor is configured); otherwise the manual bands apply.
func Classify(t Thresholds, in Input) Result {
	if adv := in.Advisory; adv != nil && adv.Urgency.Valid() && adv.Confidence >= t.MinAdvisoryConfidence {
		confidence := adv.Confidence
		rationale := strings.TrimSpace(adv.Reasoning)
		if rationale == "" {
			rationale = "Advisory analysis"
		}
		return Result{
			Urgency:    adv.Urgency,
			Rationale:  fmt.Sprintf("%s (confidence %.0f%%)", rationale, confidence*100),
			Source:     entity.UrgencySourceAdvisory,
			Confidence: &confidence,
			Indicators: entity.NewStringSet(adv.Detected...),
		}
	}

	red, secondary := evaluate(t, in)

	res := Result{Source: entity.UrgencySourceManual}
	switch {
	case len(red) > 0:
		res.Urgency = entity.UrgencyCritical
		res.Indicators = red
		res.Rationale = "Red flag: " + strings.Join(red, ", ")
	case len(secondary) > 0:
		res.Urgency = entity.UrgencyUrgent
		res.Indicators = secondary
		res.Rationale = "Urgent indicators: " + strings.Join(secondary, ", ")
	default:
		res.Urgency = entity.UrgencyNonUrgent
		res.Rationale = "No red-flag or urgent indicators"
	}
	return res
}

func evaluate(t Thresholds, in Input) (red, secondary []string) {
	if p := in.Vitals.Pulse; p != nil && *p > 0 {
		switch {
		case *p < t.CriticalPulseMin || *p > t.CriticalPulseMax:
			red = append(red, fmt.Sprintf("pulse %d bpm", *p))
		case *p < t.UrgentPulseMin || *p > t.UrgentPulseMax:
			secondary = append(secondary, fmt.Sprintf("pulse %d bpm", *p))
		}
	}

	if temp := in.Vitals.Temperature; temp != nil && *temp > 0 {
		switch {
		case *temp < t.CriticalTempMinF || *temp > t.CriticalTempMaxF:
			red = append(red, fmt.Sprintf("temperature %.1f°F", *temp))
		case *temp >= t.UrgentTempMaxF:
			secondary = append(secondary, fmt.Sprintf("temperature %.1f°F", *temp))
		}
	}

	if sys, dia, ok := ParseBloodPressure(in.Vitals.BloodPressure); ok {
		bp := fmt.Sprintf("blood pressure %d/%d", sys, dia)
		switch {
		case sys < t.CriticalSystolicMin || sys >= t.CriticalSystolicMax || dia >= t.CriticalDiastolicMax:
			red = append(red, bp)
		case sys >= t.UrgentSystolicMax || dia >= t.UrgentDiastolicMax:
			secondary = append(secondary, bp)
		}
	}

	// Tags from config or callers may arrive unsorted or mixed-case.
	symptoms := entity.NewStringSet(in.Symptoms...)
	for _, tag := range entity.NewStringSet(t.CriticalSymptoms...) {
		if symptoms.Contains(tag) {
			red = append(red, "symptom "+tag)
		}
	}
	for _, tag := range entity.NewStringSet(t.UrgentSymptoms...) {
		if symptoms.Contains(tag) {
			secondary = append(secondary, "symptom "+tag)
		}
	}
	return red, secondary
}

// ParseBloodPressure reads "systolic/diastolic". Anything else is unknown.
func ParseBloodPressure(s string) (systolic, diastolic int, ok bool) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 2 {
		return 0, 0, false
	}
	sys, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || sys <= 0 {
		return 0, 0, false
	}
	dia, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || dia <= 0 {
		return 0, 0, false
	}
	return sys, dia, true
}

// ParseUrgency accepts the canonical names, display labels and the
// analyzer's colour codes.
func ParseUrgency(s string) (entity.Urgency, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "critical", "red":
		return entity.UrgencyCritical, true
	case "urgent", "yellow":
		return entity.UrgencyUrgent, true
	case "non-urgent", "non_urgent", "nonurgent", "green":
		return entity.UrgencyNonUrgent, true
	}
	return "", false
}
