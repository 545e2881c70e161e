package usecase

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"emergency-triage/internal/delivery/dto"
	"emergency-triage/internal/domain/entity"
	"emergency-triage/internal/domain/repository"
	"emergency-triage/internal/domain/triage"
	repo "emergency-triage/internal/repository"
	"emergency-triage/internal/service"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const defaultTestAdvisoryTimeout = 200 * time.Millisecond

type fakeTokens struct{ n atomic.Int64 }

func (f *fakeTokens) Next(ctx context.Context) (int64, error) {
	return f.n.Add(1), nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []service.ChangeEvent
}

func (f *fakePublisher) Publish(ctx context.Context, event service.ChangeEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func (f *fakePublisher) kinds() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	kinds := make([]string, 0, len(f.events))
	for _, e := range f.events {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

type fakeAdvisor struct {
	healthy bool
	reply   *service.AdvisoryResponse
	err     error
	calls   atomic.Int32

	// probeDelay makes Healthy hang until ctx is done
	probeDelay time.Duration
}

func (f *fakeAdvisor) Healthy(ctx context.Context) bool {
	if f.probeDelay > 0 {
		select {
		case <-time.After(f.probeDelay):
		case <-ctx.Done():
			return false
		}
	}
	return f.healthy
}

func (f *fakeAdvisor) Analyze(ctx context.Context, req service.AdvisoryRequest) (*service.AdvisoryResponse, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.reply, nil
}

type testEnv struct {
	db        *gorm.DB
	log       *logrus.Logger
	deps      usecaseDeps
	patients  PatientUsecase
	rooms     RoomUsecase
	queue     QueueUsecase
	audits    AuditLogUsecase
	publisher *fakePublisher
	advisor   *fakeAdvisor
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&entity.Patient{}, &entity.Room{}, &entity.AuditLog{}))

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	patientRepo := repo.NewPatientRepository()
	roomRepo := repo.NewRoomRepository()
	auditRepo := repo.NewAuditLogRepository()
	auditService := service.NewAuditService(log, auditRepo)
	publisher := &fakePublisher{}
	advisor := &fakeAdvisor{}

	rooms := NewRoomUsecase(db, log, roomRepo, patientRepo, auditService, publisher)
	patients := NewPatientUsecase(db, log, patientRepo, roomRepo, rooms, auditService,
		advisor, defaultTestAdvisoryTimeout, &fakeTokens{},
		triage.NewThresholdStore(triage.DefaultThresholds()), publisher)

	return &testEnv{
		db:        db,
		log:       log,
		deps:      usecaseDeps{patientRepo: patientRepo, roomRepo: roomRepo, auditService: auditService},
		patients:  patients,
		rooms:     rooms,
		queue:     NewQueueUsecase(db, log, patientRepo, roomRepo),
		audits:    NewAuditLogUsecase(db, log, auditRepo),
		publisher: publisher,
		advisor:   advisor,
	}
}

type usecaseDeps struct {
	patientRepo  repository.PatientRepository
	roomRepo     repository.RoomRepository
	auditService service.AuditService
}

// roomsWith builds a RoomUsecase over the env's store with swapped repositories
func (e *testEnv) roomsWith(patientRepo repository.PatientRepository, roomRepo repository.RoomRepository) RoomUsecase {
	return NewRoomUsecase(e.db, e.log, roomRepo, patientRepo, e.deps.auditService, e.publisher)
}

// patientsWith builds a PatientUsecase over the env's store with a swapped patient repository
func (e *testEnv) patientsWith(patientRepo repository.PatientRepository) PatientUsecase {
	return NewPatientUsecase(e.db, e.log, patientRepo, e.deps.roomRepo, e.roomsWith(patientRepo, e.deps.roomRepo),
		e.deps.auditService, e.advisor, defaultTestAdvisoryTimeout, &fakeTokens{},
		triage.NewThresholdStore(triage.DefaultThresholds()), e.publisher)
}

func (e *testEnv) createRoom(t *testing.T, label string) uuid.UUID {
	t.Helper()
	room, err := e.rooms.CreateRoom(context.Background(), &dto.CreateRoomRequest{Label: label})
	require.NoError(t, err)
	return room.ID
}
