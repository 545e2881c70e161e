package usecase

import (
	"context"
	"database/sql"
	"time"

	"emergency-triage/internal/converter"
	"emergency-triage/internal/delivery/dto"
	"emergency-triage/internal/domain/entity"
	"emergency-triage/internal/domain/repository"
	"emergency-triage/internal/domain/triage"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type QueueUsecase interface {
	GetQueue(ctx context.Context) (*dto.QueueResponse, error)
	GetStatistics(ctx context.Context) (*dto.StatisticsResponse, error)
	// Board loads the full snapshot pushed to stations
	Board(ctx context.Context) (*entity.BoardSnapshot, error)
}

type queueUsecase struct {
	db          *gorm.DB
	log         *logrus.Logger
	patientRepo repository.PatientRepository
	roomRepo    repository.RoomRepository
}

func NewQueueUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	patientRepo repository.PatientRepository,
	roomRepo repository.RoomRepository,
) QueueUsecase {
	return &queueUsecase{
		db:          db,
		log:         log,
		patientRepo: patientRepo,
		roomRepo:    roomRepo,
	}
}

func (u *queueUsecase) GetQueue(ctx context.Context) (*dto.QueueResponse, error) {
	waiting, err := u.patientRepo.FindWaiting(ctx, u.db)
	if err != nil {
		u.log.Warnf("Failed to load waiting patients: %+v", err)
		return nil, err
	}

	now := time.Now().UTC()
	return &dto.QueueResponse{
		Queue:       converter.QueueToResponses(triage.OrderQueue(waiting), now),
		Statistics:  converter.StatisticsToResponse(triage.ComputeStatistics(waiting)),
		GeneratedAt: now,
	}, nil
}

func (u *queueUsecase) GetStatistics(ctx context.Context) (*dto.StatisticsResponse, error) {
	waiting, err := u.patientRepo.FindWaiting(ctx, u.db)
	if err != nil {
		u.log.Warnf("Failed to load waiting patients: %+v", err)
		return nil, err
	}
	stats := converter.StatisticsToResponse(triage.ComputeStatistics(waiting))
	return &stats, nil
}

// Board reads the waiting set and the room set in one repeatable-read
// transaction, so an assignment committed mid-load is either fully visible
// or not at all.
func (u *queueUsecase) Board(ctx context.Context) (*entity.BoardSnapshot, error) {
	var (
		waiting []entity.Patient
		rooms   []entity.Room
	)

	err := u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if waiting, err = u.patientRepo.FindWaiting(ctx, tx); err != nil {
			return err
		}
		rooms, err = u.roomRepo.FindAll(ctx, tx)
		return err
	}, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		u.log.Warnf("Failed to load board: %+v", err)
		return nil, err
	}

	if rooms == nil {
		rooms = []entity.Room{}
	}
	return &entity.BoardSnapshot{
		GeneratedAt: time.Now().UTC(),
		Queue:       triage.OrderQueue(waiting),
		Rooms:       rooms,
		Statistics:  triage.ComputeStatistics(waiting),
	}, nil
}
