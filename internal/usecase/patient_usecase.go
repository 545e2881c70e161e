package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"emergency-triage/internal/converter"
	"emergency-triage/internal/delivery/dto"
	"emergency-triage/internal/delivery/http/middleware"
	"emergency-triage/internal/domain/entity"
	"emergency-triage/internal/domain/repository"
	"emergency-triage/internal/domain/triage"
	repo "emergency-triage/internal/repository"
	"emergency-triage/internal/service"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrPatientNotFound     = errors.New("patient not found")
	ErrInvalidPatient      = errors.New("invalid patient data")
	ErrRoomRequired        = errors.New("assigning a patient requires a room")
	ErrSearchQueryTooShort = errors.New("search query must be at least 2 characters")
)

const (
	minComplaintLength = 3
	minSearchLength    = 2
	searchLimit        = 50
)

// DuplicatePatientError is returned when the person already has an active
// record. Existing is that record.
type DuplicatePatientError struct {
	Existing *entity.Patient
}

func (e *DuplicatePatientError) Error() string {
	return fmt.Sprintf("patient already active: id=%s status=%s urgency=%s",
		e.Existing.ID, e.Existing.Status, e.Existing.Urgency)
}

// Advisor is the external symptom analyzer
type Advisor interface {
	Healthy(ctx context.Context) bool
	Analyze(ctx context.Context, req service.AdvisoryRequest) (*service.AdvisoryResponse, error)
}

// TokenIssuer hands out display tokens
type TokenIssuer interface {
	Next(ctx context.Context) (int64, error)
}

type PatientUsecase interface {
	Register(ctx context.Context, req *dto.RegisterPatientRequest) (*dto.PatientResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*dto.PatientResponse, error)
	Search(ctx context.Context, query string) (*dto.PatientListResponse, error)
	SetStatus(ctx context.Context, id uuid.UUID, status entity.PatientStatus) (*dto.PatientResponse, error)
	Discharge(ctx context.Context, id uuid.UUID) (*dto.PatientResponse, error)
	Analyze(ctx context.Context, req *dto.AnalyzeRequest) (*dto.AnalyzeResponse, error)
}

type patientUsecase struct {
	db              *gorm.DB
	log             *logrus.Logger
	patientRepo     repository.PatientRepository
	roomRepo        repository.RoomRepository
	roomUsecase     RoomUsecase
	auditService    service.AuditService
	advisor         Advisor
	advisoryTimeout time.Duration
	tokens          TokenIssuer
	thresholds      *triage.ThresholdStore
	publisher       service.Publisher
}

func NewPatientUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	patientRepo repository.PatientRepository,
	roomRepo repository.RoomRepository,
	roomUsecase RoomUsecase,
	auditService service.AuditService,
	advisor Advisor,
	advisoryTimeout time.Duration,
	tokens TokenIssuer,
	thresholds *triage.ThresholdStore,
	publisher service.Publisher,
) PatientUsecase {
	return &patientUsecase{
		db:              db,
		log:             log,
		patientRepo:     patientRepo,
		roomRepo:        roomRepo,
		roomUsecase:     roomUsecase,
		auditService:    auditService,
		advisor:         advisor,
		advisoryTimeout: advisoryTimeout,
		tokens:          tokens,
		thresholds:      thresholds,
		publisher:       publisher,
	}
}

// Register admits a patient.
//
// Flow:
// 1. Validate and classify (station advisory, else analyzer, else manual bands)
// 2. Reject an active duplicate before burning a token
// 3. Issue the display token
// 4. Insert + audit in one transaction; the identity key unique index
//    catches a duplicate that slipped in concurrently
// 5. Announce the change
func (u *patientUsecase) Register(ctx context.Context, req *dto.RegisterPatientRequest) (*dto.PatientResponse, error) {
	name := strings.TrimSpace(req.Name)
	contact := strings.TrimSpace(req.Contact)
	complaint := strings.TrimSpace(req.Complaint)
	vitals := vitalsFromRequest(req.Vitals)
	if err := validateCandidate(name, contact, complaint, req.Age, vitals); err != nil {
		return nil, err
	}

	symptoms := entity.NewStringSet(req.Symptoms...)
	key := entity.IdentityKeyFor(name, contact)

	// Step 2: cheap duplicate check outside the transaction
	existing, err := u.patientRepo.FindActiveByIdentityKey(ctx, u.db, key)
	if err != nil {
		u.log.Warnf("Failed to check active patient: %+v", err)
		return nil, err
	}
	if existing != nil {
		return nil, &DuplicatePatientError{Existing: existing}
	}

	var advisory *triage.Advisory
	if req.Advisory != nil {
		advisory = advisoryFromRequest(req.Advisory)
	} else {
		advisory, _ = u.consultAdvisor(ctx, complaint, req.Age, symptoms, vitals)
	}
	result := triage.Classify(u.thresholds.Load(), triage.Input{
		Symptoms: symptoms,
		Vitals:   vitals,
		Advisory: advisory,
	})

	// Step 3
	token, err := u.tokens.Next(ctx)
	if err != nil {
		u.log.Warnf("Failed to issue token: %+v", err)
		return nil, err
	}

	patient := &entity.Patient{
		Name:               name,
		Age:                req.Age,
		Contact:            contact,
		Complaint:          complaint,
		Symptoms:           symptoms,
		Vitals:             vitals,
		Urgency:            result.Urgency,
		Rationale:          result.Rationale,
		AdvisoryConfidence: result.Confidence,
		UrgencySource:      result.Source,
		Status:             entity.PatientStatusWaiting,
		CheckInAt:          time.Now().UTC(),
		TokenNumber:        token,
		IdentityKey:        &key,
		Version:            1,
	}
	if result.Source == entity.UrgencySourceAdvisory {
		patient.DetectedSymptoms = entity.NewStringSet(result.Indicators...)
	}

	// Step 4
	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	if err := u.patientRepo.Create(ctx, tx, patient); err != nil {
		if repo.IsDuplicateKeyError(err) {
			tx.Rollback()
			return nil, u.duplicateOf(ctx, key, err)
		}
		u.log.Warnf("Failed to create patient: %+v", err)
		return nil, err
	}

	if err := u.auditService.Record(ctx, tx, service.AuditEntry{
		StaffID:  staffFromContext(ctx),
		Action:   entity.AuditActionPatientRegister,
		Entity:   "patient",
		EntityID: patient.ID.String(),
		After:    converter.PatientToResponse(patient, patient.CheckInAt),
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		if repo.IsDuplicateKeyError(err) {
			return nil, u.duplicateOf(ctx, key, err)
		}
		u.log.Warnf("Failed commit transaction: %+v", err)
		return nil, err
	}

	// Step 5
	u.publisher.Publish(ctx, service.ChangeEvent{Kind: service.ChangePatientRegistered, EntityID: patient.ID.String()})

	u.log.Infof("Patient registered: id=%s, token=%d, urgency=%s, source=%s", patient.ID, token, patient.Urgency, patient.UrgencySource)
	return converter.PatientToResponse(patient, time.Now()), nil
}

// duplicateOf re-reads the record that won the identity key
func (u *patientUsecase) duplicateOf(ctx context.Context, key string, cause error) error {
	existing, err := u.patientRepo.FindActiveByIdentityKey(ctx, u.db, key)
	if err != nil || existing == nil {
		u.log.Warnf("Unique violation on patient but no active record found: %+v", cause)
		return cause
	}
	return &DuplicatePatientError{Existing: existing}
}

func (u *patientUsecase) Get(ctx context.Context, id uuid.UUID) (*dto.PatientResponse, error) {
	patient, err := u.patientRepo.FindByID(ctx, u.db, id)
	if err != nil {
		u.log.Warnf("Failed to find patient %s: %+v", id, err)
		return nil, err
	}
	if patient == nil {
		return nil, ErrPatientNotFound
	}
	return converter.PatientToResponse(patient, time.Now()), nil
}

func (u *patientUsecase) Search(ctx context.Context, query string) (*dto.PatientListResponse, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < minSearchLength {
		return nil, ErrSearchQueryTooShort
	}

	patients, err := u.patientRepo.Search(ctx, u.db, query, searchLimit)
	if err != nil {
		u.log.Warnf("Failed to search patients: %+v", err)
		return nil, err
	}

	return &dto.PatientListResponse{
		Patients: converter.PatientsToResponses(patients, time.Now()),
		Total:    len(patients),
	}, nil
}

// SetStatus applies a lifecycle move. Moving into a room goes through the
// room allocation flow, so waiting→assigned is refused here.
func (u *patientUsecase) SetStatus(ctx context.Context, id uuid.UUID, status entity.PatientStatus) (*dto.PatientResponse, error) {
	patient, err := u.patientRepo.FindByID(ctx, u.db, id)
	if err != nil {
		u.log.Warnf("Failed to find patient %s: %+v", id, err)
		return nil, err
	}
	if patient == nil {
		return nil, ErrPatientNotFound
	}

	if err := entity.ValidateTransition(patient.Status, status); err != nil {
		return nil, err
	}

	switch status {
	case entity.PatientStatusAssigned:
		return nil, ErrRoomRequired
	case entity.PatientStatusDischarged:
		return u.discharge(ctx, patient)
	}
	return nil, entity.ErrInvalidTransition
}

// Discharge closes the record. An assigned patient frees their room in the
// same transaction.
func (u *patientUsecase) Discharge(ctx context.Context, id uuid.UUID) (*dto.PatientResponse, error) {
	patient, err := u.patientRepo.FindByID(ctx, u.db, id)
	if err != nil {
		u.log.Warnf("Failed to find patient %s: %+v", id, err)
		return nil, err
	}
	if patient == nil {
		return nil, ErrPatientNotFound
	}
	if err := entity.ValidateTransition(patient.Status, entity.PatientStatusDischarged); err != nil {
		return nil, err
	}
	return u.discharge(ctx, patient)
}

func (u *patientUsecase) discharge(ctx context.Context, patient *entity.Patient) (*dto.PatientResponse, error) {
	if patient.Status == entity.PatientStatusAssigned {
		room, err := u.roomRepo.FindByOccupant(ctx, u.db, patient.ID)
		if err != nil {
			u.log.Warnf("Failed to find room of patient %s: %+v", patient.ID, err)
			return nil, err
		}
		if room != nil {
			allocation, err := u.roomUsecase.Release(ctx, room.ID)
			if err != nil {
				if errors.Is(err, ErrRoomNotOccupied) {
					return nil, fmt.Errorf("%w: room %s changed concurrently", entity.ErrInvalidTransition, room.Label)
				}
				return nil, err
			}
			return &allocation.Patient, nil
		}
		u.log.Warnf("Patient %s is assigned but holds no room, discharging directly", patient.ID)
	}

	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	before := converter.PatientToResponse(patient, time.Now())
	affected, err := u.patientRepo.MarkDischarged(ctx, tx, patient.ID, patient.Status, time.Now().UTC())
	if err != nil {
		u.log.Warnf("Failed to discharge patient %s: %+v", patient.ID, err)
		return nil, err
	}
	if affected == 0 {
		return nil, fmt.Errorf("%w: patient %s changed concurrently", entity.ErrInvalidTransition, patient.ID)
	}

	updated, err := u.patientRepo.FindByID(ctx, tx, patient.ID)
	if err != nil || updated == nil {
		u.log.Warnf("Failed to reload patient %s: %+v", patient.ID, err)
		return nil, fmt.Errorf("reload patient %s: %w", patient.ID, err)
	}
	after := converter.PatientToResponse(updated, time.Now())

	if err := u.auditService.Record(ctx, tx, service.AuditEntry{
		StaffID:  staffFromContext(ctx),
		Action:   entity.AuditActionPatientDischarge,
		Entity:   "patient",
		EntityID: patient.ID.String(),
		Before:   before,
		After:    after,
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		u.log.Warnf("Failed commit transaction: %+v", err)
		return nil, err
	}

	u.publisher.Publish(ctx, service.ChangeEvent{Kind: service.ChangePatientDischarged, EntityID: patient.ID.String()})
	u.log.Infof("Patient discharged: id=%s", patient.ID)
	return after, nil
}

// Analyze previews the classification for the intake form. It never fails
// because of the analyzer; the manual bands answer instead.
func (u *patientUsecase) Analyze(ctx context.Context, req *dto.AnalyzeRequest) (*dto.AnalyzeResponse, error) {
	complaint := strings.TrimSpace(req.Complaint)
	if utf8.RuneCountInString(complaint) < minComplaintLength {
		return nil, fmt.Errorf("%w: complaint must be at least %d characters", ErrInvalidPatient, minComplaintLength)
	}
	vitals := vitalsFromRequest(req.Vitals)
	symptoms := entity.NewStringSet(req.Symptoms...)

	advisory, reply := u.consultAdvisor(ctx, complaint, req.Age, symptoms, vitals)
	result := triage.Classify(u.thresholds.Load(), triage.Input{
		Symptoms: symptoms,
		Vitals:   vitals,
		Advisory: advisory,
	})

	resp := &dto.AnalyzeResponse{
		Urgency:           string(result.Urgency),
		UrgencyLabel:      result.Urgency.Label(),
		Source:            string(result.Source),
		Confidence:        result.Confidence,
		Rationale:         result.Rationale,
		Indicators:        nonNilStrings(result.Indicators),
		AdvisoryAvailable: reply != nil,
	}
	if reply != nil {
		resp.DetectedSymptoms = reply.DetectedSymptoms
		resp.SuggestedSymptoms = reply.SuggestedSymptoms
	}
	return resp, nil
}

// consultAdvisor asks the analyzer within the advisory timeout. A nil
// advisory means "use the manual bands".
func (u *patientUsecase) consultAdvisor(ctx context.Context, complaint string, age int, symptoms entity.StringSet, vitals entity.Vitals) (*triage.Advisory, *service.AdvisoryResponse) {
	if u.advisor == nil {
		return nil, nil
	}

	// The probe and the call share one deadline.
	actx, cancel := context.WithTimeout(ctx, u.advisoryTimeout)
	defer cancel()

	if !u.advisor.Healthy(actx) {
		return nil, nil
	}

	reply, err := u.advisor.Analyze(actx, service.AdvisoryRequest{
		Complaint:        complaint,
		Age:              age,
		Vitals:           &service.AdvisoryVitals{BloodPressure: vitals.BloodPressure, Pulse: vitals.Pulse, Temperature: vitals.Temperature},
		SelectedSymptoms: symptoms,
	})
	if err != nil {
		u.log.Warnf("Advisory unavailable, using manual classification: %+v", err)
		return nil, nil
	}

	advisory, err := reply.ToAdvisory()
	if err != nil {
		u.log.Warnf("Advisory reply unusable, using manual classification: %+v", err)
		return nil, nil
	}
	return advisory, reply
}

func advisoryFromRequest(in *dto.AdvisoryInput) *triage.Advisory {
	urgency, ok := triage.ParseUrgency(in.Priority)
	if !ok {
		return nil
	}
	return &triage.Advisory{
		Urgency:    urgency,
		Confidence: in.Confidence,
		Reasoning:  in.Reasoning,
		Detected:   in.DetectedSymptoms,
	}
}

func vitalsFromRequest(v dto.VitalsRequest) entity.Vitals {
	return entity.Vitals{
		BloodPressure: strings.TrimSpace(v.BloodPressure),
		Pulse:         v.Pulse,
		Temperature:   v.Temperature,
	}
}

func validateCandidate(name, contact, complaint string, age int, vitals entity.Vitals) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidPatient)
	case contact == "":
		return fmt.Errorf("%w: contact is required", ErrInvalidPatient)
	case age <= 0:
		return fmt.Errorf("%w: age must be positive", ErrInvalidPatient)
	case utf8.RuneCountInString(complaint) < minComplaintLength:
		return fmt.Errorf("%w: complaint must be at least %d characters", ErrInvalidPatient, minComplaintLength)
	case vitals.Pulse != nil && *vitals.Pulse < 0:
		return fmt.Errorf("%w: pulse cannot be negative", ErrInvalidPatient)
	case vitals.Temperature != nil && *vitals.Temperature < 0:
		return fmt.Errorf("%w: temperature cannot be negative", ErrInvalidPatient)
	}
	return nil
}

func staffFromContext(ctx context.Context) *uuid.UUID {
	if staffID, ok := middleware.GetStaffIDFromContext(ctx); ok {
		return &staffID
	}
	return nil
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
