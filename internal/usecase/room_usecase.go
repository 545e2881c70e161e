package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"emergency-triage/internal/converter"
	"emergency-triage/internal/delivery/dto"
	"emergency-triage/internal/domain/entity"
	"emergency-triage/internal/domain/repository"
	repo "emergency-triage/internal/repository"
	"emergency-triage/internal/service"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrRoomNotFound         = errors.New("room not found")
	ErrRoomAlreadyOccupied  = errors.New("room is already occupied")
	ErrRoomNotOccupied      = errors.New("room is not occupied")
	ErrInvalidPatientState  = errors.New("patient is not waiting for a room")
	ErrRoomLabelExists      = errors.New("room label already exists")
	ErrInvalidRoomLabel     = errors.New("room label is required")
	ErrInvalidProvisionSize = errors.New("room pool size must be positive")
)

type RoomUsecase interface {
	ListRooms(ctx context.Context) (*dto.RoomListResponse, error)
	ListAvailable(ctx context.Context) (*dto.RoomListResponse, error)
	CreateRoom(ctx context.Context, req *dto.CreateRoomRequest) (*dto.RoomResponse, error)
	ProvisionPool(ctx context.Context, prefix string, size int) (int, error)
	Assign(ctx context.Context, roomID, patientID uuid.UUID) (*dto.AllocationResponse, error)
	Release(ctx context.Context, roomID uuid.UUID) (*dto.AllocationResponse, error)
}

type roomUsecase struct {
	db           *gorm.DB
	log          *logrus.Logger
	roomRepo     repository.RoomRepository
	patientRepo  repository.PatientRepository
	auditService service.AuditService
	publisher    service.Publisher
}

func NewRoomUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	roomRepo repository.RoomRepository,
	patientRepo repository.PatientRepository,
	auditService service.AuditService,
	publisher service.Publisher,
) RoomUsecase {
	return &roomUsecase{
		db:           db,
		log:          log,
		roomRepo:     roomRepo,
		patientRepo:  patientRepo,
		auditService: auditService,
		publisher:    publisher,
	}
}

func (u *roomUsecase) ListRooms(ctx context.Context) (*dto.RoomListResponse, error) {
	rooms, err := u.roomRepo.FindAll(ctx, u.db)
	if err != nil {
		u.log.Warnf("Failed to find rooms: %+v", err)
		return nil, err
	}
	return &dto.RoomListResponse{Rooms: converter.RoomsToResponses(rooms), Total: len(rooms)}, nil
}

func (u *roomUsecase) ListAvailable(ctx context.Context) (*dto.RoomListResponse, error) {
	rooms, err := u.roomRepo.FindAvailable(ctx, u.db)
	if err != nil {
		u.log.Warnf("Failed to find available rooms: %+v", err)
		return nil, err
	}
	return &dto.RoomListResponse{Rooms: converter.RoomsToResponses(rooms), Total: len(rooms)}, nil
}

func (u *roomUsecase) CreateRoom(ctx context.Context, req *dto.CreateRoomRequest) (*dto.RoomResponse, error) {
	label := strings.TrimSpace(req.Label)
	if label == "" {
		return nil, ErrInvalidRoomLabel
	}

	existing, err := u.roomRepo.FindByLabel(ctx, u.db, label)
	if err != nil {
		u.log.Warnf("Failed to check room label: %+v", err)
		return nil, err
	}
	if existing != nil {
		return nil, ErrRoomLabelExists
	}

	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	room := &entity.Room{Label: label, Status: entity.RoomStatusAvailable, Version: 1}
	if err := u.roomRepo.Create(ctx, tx, room); err != nil {
		if repo.IsDuplicateKeyError(err) {
			return nil, ErrRoomLabelExists
		}
		u.log.Warnf("Failed to create room: %+v", err)
		return nil, err
	}

	if err := u.auditService.Record(ctx, tx, service.AuditEntry{
		StaffID:  staffFromContext(ctx),
		Action:   entity.AuditActionRoomCreate,
		Entity:   "room",
		EntityID: room.ID.String(),
		After:    converter.RoomToResponse(room),
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		if repo.IsDuplicateKeyError(err) {
			return nil, ErrRoomLabelExists
		}
		u.log.Warnf("Failed commit transaction: %+v", err)
		return nil, err
	}

	u.publisher.Publish(ctx, service.ChangeEvent{Kind: service.ChangeRoomCreated, EntityID: room.ID.String()})
	u.log.Infof("Room created: id=%s, label=%s", room.ID, room.Label)
	return converter.RoomToResponse(room), nil
}

// ProvisionPool makes sure rooms <prefix>1 .. <prefix>size exist. Labels
// already present are skipped, so it can run on every start.
func (u *roomUsecase) ProvisionPool(ctx context.Context, prefix string, size int) (int, error) {
	if size <= 0 {
		return 0, ErrInvalidProvisionSize
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "R"
	}

	created := 0
	for i := 1; i <= size; i++ {
		label := fmt.Sprintf("%s%d", prefix, i)
		_, err := u.CreateRoom(ctx, &dto.CreateRoomRequest{Label: label})
		switch {
		case err == nil:
			created++
		case errors.Is(err, ErrRoomLabelExists):
		default:
			return created, fmt.Errorf("provision %s: %w", label, err)
		}
	}

	u.log.Infof("Room pool provisioned: prefix=%s, size=%d, created=%d", prefix, size, created)
	return created, nil
}

// Assign puts a waiting patient into an available room.
//
// Both writes are conditional updates inside one transaction: the room must
// still be available and the patient still waiting. Whoever loses a race
// sees zero affected rows and the whole transaction rolls back.
func (u *roomUsecase) Assign(ctx context.Context, roomID, patientID uuid.UUID) (*dto.AllocationResponse, error) {
	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	patient, err := u.patientRepo.FindByID(ctx, tx, patientID)
	if err != nil {
		u.log.Warnf("Failed to find patient %s: %+v", patientID, err)
		return nil, err
	}
	if patient == nil {
		return nil, ErrPatientNotFound
	}
	if !patient.IsWaiting() {
		return nil, ErrInvalidPatientState
	}

	room, err := u.roomRepo.FindByID(ctx, tx, roomID)
	if err != nil {
		u.log.Warnf("Failed to find room %s: %+v", roomID, err)
		return nil, err
	}
	if room == nil {
		return nil, ErrRoomNotFound
	}
	if !room.IsAvailable() {
		return nil, ErrRoomAlreadyOccupied
	}

	affected, err := u.roomRepo.Occupy(ctx, tx, room.ID, patient)
	if err != nil {
		if repo.IsDuplicateKeyError(err) {
			// occupant_id is unique: the patient already holds a room
			return nil, ErrInvalidPatientState
		}
		u.log.Warnf("Failed to occupy room %s: %+v", room.ID, err)
		return nil, err
	}
	if affected == 0 {
		return nil, ErrRoomAlreadyOccupied
	}

	affected, err = u.patientRepo.MarkAssigned(ctx, tx, patient.ID, room)
	if err != nil {
		u.log.Warnf("Failed to assign patient %s: %+v", patient.ID, err)
		return nil, err
	}
	if affected == 0 {
		return nil, ErrInvalidPatientState
	}

	allocation, err := u.reload(ctx, tx, room.ID, patient.ID)
	if err != nil {
		return nil, err
	}

	if err := u.auditService.Record(ctx, tx, service.AuditEntry{
		StaffID:  staffFromContext(ctx),
		Action:   entity.AuditActionRoomAssign,
		Entity:   "room",
		EntityID: room.ID.String(),
		Before:   map[string]interface{}{"room": converter.RoomToResponse(room), "patient_id": patient.ID},
		After:    allocation,
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		if repo.IsDuplicateKeyError(err) {
			return nil, ErrInvalidPatientState
		}
		u.log.Warnf("Failed commit transaction: %+v", err)
		return nil, err
	}

	u.publisher.Publish(ctx, service.ChangeEvent{Kind: service.ChangeRoomAssigned, EntityID: room.ID.String()})
	u.log.Infof("Room assigned: room=%s, patient=%s", room.Label, patient.ID)
	return allocation, nil
}

// Release frees a room and discharges its occupant in one transaction.
func (u *roomUsecase) Release(ctx context.Context, roomID uuid.UUID) (*dto.AllocationResponse, error) {
	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	room, err := u.roomRepo.FindByID(ctx, tx, roomID)
	if err != nil {
		u.log.Warnf("Failed to find room %s: %+v", roomID, err)
		return nil, err
	}
	if room == nil {
		return nil, ErrRoomNotFound
	}
	if !room.IsOccupied() {
		return nil, ErrRoomNotOccupied
	}

	affected, err := u.roomRepo.Vacate(ctx, tx, room.ID, room.OccupantID)
	if err != nil {
		u.log.Warnf("Failed to vacate room %s: %+v", room.ID, err)
		return nil, err
	}
	if affected == 0 {
		return nil, ErrRoomNotOccupied
	}

	var occupantID uuid.UUID
	if room.OccupantID != nil {
		occupantID = *room.OccupantID
		affected, err = u.patientRepo.MarkDischarged(ctx, tx, occupantID, entity.PatientStatusAssigned, time.Now().UTC())
		if err != nil {
			u.log.Warnf("Failed to discharge patient %s: %+v", occupantID, err)
			return nil, err
		}
		if affected == 0 {
			u.log.Warnf("Occupant %s of room %s was not assigned, room freed anyway", occupantID, room.Label)
		}
	}

	allocation, err := u.reload(ctx, tx, room.ID, occupantID)
	if err != nil {
		return nil, err
	}

	if err := u.auditService.Record(ctx, tx, service.AuditEntry{
		StaffID:  staffFromContext(ctx),
		Action:   entity.AuditActionRoomRelease,
		Entity:   "room",
		EntityID: room.ID.String(),
		Before:   converter.RoomToResponse(room),
		After:    allocation,
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		u.log.Warnf("Failed commit transaction: %+v", err)
		return nil, err
	}

	u.publisher.Publish(ctx, service.ChangeEvent{Kind: service.ChangeRoomReleased, EntityID: room.ID.String()})
	u.log.Infof("Room released: room=%s, patient=%s", room.Label, occupantID)
	return allocation, nil
}

func (u *roomUsecase) reload(ctx context.Context, tx *gorm.DB, roomID, patientID uuid.UUID) (*dto.AllocationResponse, error) {
	room, err := u.roomRepo.FindByID(ctx, tx, roomID)
	if err != nil || room == nil {
		u.log.Warnf("Failed to reload room %s: %+v", roomID, err)
		return nil, fmt.Errorf("reload room %s: %w", roomID, err)
	}

	allocation := &dto.AllocationResponse{Room: *converter.RoomToResponse(room)}
	if patientID == uuid.Nil {
		return allocation, nil
	}

	patient, err := u.patientRepo.FindByID(ctx, tx, patientID)
	if err != nil || patient == nil {
		u.log.Warnf("Failed to reload patient %s: %+v", patientID, err)
		return nil, fmt.Errorf("reload patient %s: %w", patientID, err)
	}
	allocation.Patient = *converter.PatientToResponse(patient, time.Now())
	return allocation, nil
}
