package entity

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PatientStatus is the lifecycle stage of a patient record
type PatientStatus string

const (
	PatientStatusWaiting    PatientStatus = "waiting"
	PatientStatusAssigned   PatientStatus = "assigned"
	PatientStatusDischarged PatientStatus = "discharged"
)

// UrgencySource records who decided the urgency class
type UrgencySource string

const (
	UrgencySourceAdvisory UrgencySource = "advisory"
	UrgencySourceManual   UrgencySource = "manual"
)

// ErrInvalidTransition is returned for lifecycle moves outside the allowed set.
var ErrInvalidTransition = errors.New("invalid patient status transition")

// Vitals are optional measurements; a nil field means "unknown".
type Vitals struct {
	BloodPressure string   `gorm:"type:varchar(20)" json:"blood_pressure,omitempty"`
	Pulse         *int     `json:"pulse,omitempty"`
	Temperature   *float64 `json:"temperature,omitempty"`
}

// Patient represents one emergency intake record
type Patient struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name    string    `gorm:"type:varchar(150);not null" json:"name"`
	Age     int       `gorm:"not null" json:"age"`
	Contact string    `gorm:"type:varchar(50);not null" json:"contact"`

	Complaint string    `gorm:"type:text;not null" json:"complaint"`
	Symptoms  StringSet `gorm:"type:jsonb" json:"symptoms"`
	Vitals    Vitals    `gorm:"embedded;embeddedPrefix:vital_" json:"vitals"`

	Urgency            Urgency       `gorm:"type:varchar(20);not null;index" json:"urgency"`
	Rationale          string        `gorm:"type:text" json:"rationale"`
	AdvisoryConfidence *float64      `json:"advisory_confidence,omitempty"`
	UrgencySource      UrgencySource `gorm:"type:varchar(20);not null" json:"urgency_source"`
	DetectedSymptoms   StringSet     `gorm:"type:jsonb" json:"detected_symptoms,omitempty"`

	Status            PatientStatus `gorm:"type:varchar(20);not null;default:'waiting';index" json:"status"`
	CheckInAt         time.Time     `gorm:"not null;index" json:"check_in_at"`
	AssignedRoomID    *uuid.UUID    `gorm:"type:uuid" json:"assigned_room_id,omitempty"`
	AssignedRoomLabel string        `gorm:"type:varchar(50)" json:"assigned_room_label,omitempty"`
	TokenNumber       int64         `gorm:"not null;index" json:"token_number"`
	DischargedAt      *time.Time    `json:"discharged_at,omitempty"`

	// IdentityKey is set while the record is active and cleared on
	// discharge; its unique index makes duplicate admission impossible.
	IdentityKey *string `gorm:"type:varchar(250);uniqueIndex" json:"-"`
	Version     int64   `gorm:"not null;default:1" json:"version"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Patient) TableName() string {
	return "patients"
}

func (p *Patient) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// IsActive reports whether the patient still counts for duplicate checks
func (p *Patient) IsActive() bool {
	return p.Status != PatientStatusDischarged
}

// IsWaiting checks if the patient is in the waiting set
func (p *Patient) IsWaiting() bool {
	return p.Status == PatientStatusWaiting
}

// WaitDuration is the time spent since check-in, frozen at discharge.
func (p *Patient) WaitDuration(now time.Time) time.Duration {
	end := now
	if p.DischargedAt != nil {
		end = *p.DischargedAt
	}
	if end.Before(p.CheckInAt) {
		return 0
	}
	return end.Sub(p.CheckInAt)
}

// Valid reports whether s is a known status
func (s PatientStatus) Valid() bool {
	switch s {
	case PatientStatusWaiting, PatientStatusAssigned, PatientStatusDischarged:
		return true
	}
	return false
}

// ValidateTransition enforces the lifecycle:
// waiting→assigned, assigned→discharged, waiting→discharged.
func ValidateTransition(from, to PatientStatus) error {
	switch {
	case from == PatientStatusWaiting && to == PatientStatusAssigned,
		from == PatientStatusAssigned && to == PatientStatusDischarged,
		from == PatientStatusWaiting && to == PatientStatusDischarged:
		return nil
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

// NormalizeName lowercases and collapses inner whitespace.
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// NormalizeContact keeps letters, digits, '@' and '.' so that
// "555-1111" and "(555) 1111" collide.
func NormalizeContact(contact string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(contact) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '@' || r == '.' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IdentityKeyFor builds the duplicate-admission key.
func IdentityKeyFor(name, contact string) string {
	return NormalizeName(name) + "|" + NormalizeContact(contact)
}
