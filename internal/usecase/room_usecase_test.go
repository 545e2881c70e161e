package usecase

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"emergency-triage/internal/delivery/dto"
	"emergency-triage/internal/domain/entity"
	"emergency-triage/internal/service"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomUsecase_CreateRoom(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	room, err := env.rooms.CreateRoom(ctx, &dto.CreateRoomRequest{Label: " ER-1 "})
	require.NoError(t, err)
	assert.Equal(t, "ER-1", room.Label)
	assert.Equal(t, string(entity.RoomStatusAvailable), room.Status)

	_, err = env.rooms.CreateRoom(ctx, &dto.CreateRoomRequest{Label: "ER-1"})
	assert.ErrorIs(t, err, ErrRoomLabelExists)

	_, err = env.rooms.CreateRoom(ctx, &dto.CreateRoomRequest{Label: "  "})
	assert.ErrorIs(t, err, ErrInvalidRoomLabel)

	assert.Equal(t, []string{service.ChangeRoomCreated}, env.publisher.kinds())
}

func TestRoomUsecase_ProvisionPoolIsIdempotent(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	env.createRoom(t, "R2")

	created, err := env.rooms.ProvisionPool(ctx, "", 3)
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	created, err = env.rooms.ProvisionPool(ctx, "R", 3)
	require.NoError(t, err)
	assert.Zero(t, created)

	list, err := env.rooms.ListRooms(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, list.Total)

	_, err = env.rooms.ProvisionPool(ctx, "R", 0)
	assert.ErrorIs(t, err, ErrInvalidProvisionSize)
}

func TestRoomUsecase_AssignReleaseReassign(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	roomID := env.createRoom(t, "ER-1")
	first, err := env.patients.Register(ctx, registerReq("Jane Doe", "555-1111"))
	require.NoError(t, err)
	second, err := env.patients.Register(ctx, registerReq("John Roe", "555-2222"))
	require.NoError(t, err)

	alloc, err := env.rooms.Assign(ctx, roomID, first.ID)
	require.NoError(t, err)
	assert.Equal(t, string(entity.RoomStatusOccupied), alloc.Room.Status)
	require.NotNil(t, alloc.Room.OccupantID)
	assert.Equal(t, first.ID, *alloc.Room.OccupantID)
	assert.Equal(t, "Jane Doe", alloc.Room.OccupantName)
	assert.Equal(t, string(entity.PatientStatusAssigned), alloc.Patient.Status)
	assert.Equal(t, "ER-1", alloc.Patient.AssignedRoomLabel)

	_, err = env.rooms.Assign(ctx, roomID, second.ID)
	assert.ErrorIs(t, err, ErrRoomAlreadyOccupied)

	released, err := env.rooms.Release(ctx, roomID)
	require.NoError(t, err)
	assert.Equal(t, string(entity.RoomStatusAvailable), released.Room.Status)
	assert.Nil(t, released.Room.OccupantID)
	assert.Equal(t, first.ID, released.Patient.ID)
	assert.Equal(t, string(entity.PatientStatusDischarged), released.Patient.Status)

	_, err = env.rooms.Release(ctx, roomID)
	assert.ErrorIs(t, err, ErrRoomNotOccupied)

	alloc, err = env.rooms.Assign(ctx, roomID, second.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, *alloc.Room.OccupantID)

	_, err = env.rooms.Assign(ctx, roomID, first.ID)
	assert.ErrorIs(t, err, ErrInvalidPatientState)

	assert.Equal(t, []string{
		service.ChangeRoomCreated,
		service.ChangePatientRegistered,
		service.ChangePatientRegistered,
		service.ChangeRoomAssigned,
		service.ChangeRoomReleased,
		service.ChangeRoomAssigned,
	}, env.publisher.kinds())
}

func TestRoomUsecase_AssignNotFound(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	roomID := env.createRoom(t, "ER-1")
	p, err := env.patients.Register(ctx, registerReq("Jane Doe", "555-1111"))
	require.NoError(t, err)

	_, err = env.rooms.Assign(ctx, uuid.New(), p.ID)
	assert.ErrorIs(t, err, ErrRoomNotFound)
	_, err = env.rooms.Assign(ctx, roomID, uuid.New())
	assert.ErrorIs(t, err, ErrPatientNotFound)
	_, err = env.rooms.Release(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestRoomUsecase_ConcurrentAssignSameRoom(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	roomID := env.createRoom(t, "ER-1")
	var patients []uuid.UUID
	for _, name := range []string{"Ann", "Ben", "Cal", "Dee"} {
		p, err := env.patients.Register(ctx, registerReq(name, name+"@example.com"))
		require.NoError(t, err)
		patients = append(patients, p.ID)
	}

	var won, lost atomic.Int32
	var wg conc.WaitGroup
	for _, id := range patients {
		wg.Go(func() {
			_, err := env.rooms.Assign(ctx, roomID, id)
			switch {
			case err == nil:
				won.Add(1)
			case errors.Is(err, ErrRoomAlreadyOccupied):
				lost.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
	wg.Wait()

	assert.EqualValues(t, 1, won.Load())
	assert.EqualValues(t, 3, lost.Load())

	queue, err := env.queue.GetQueue(ctx)
	require.NoError(t, err)
	assert.Len(t, queue.Queue, 3)
}

func TestRoomUsecase_ConcurrentAssignSamePatient(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	rooms := []uuid.UUID{env.createRoom(t, "ER-1"), env.createRoom(t, "ER-2"), env.createRoom(t, "ER-3")}
	p, err := env.patients.Register(ctx, registerReq("Jane Doe", "555-1111"))
	require.NoError(t, err)

	var won atomic.Int32
	var wg conc.WaitGroup
	for _, roomID := range rooms {
		wg.Go(func() {
			_, err := env.rooms.Assign(ctx, roomID, p.ID)
			if err == nil {
				won.Add(1)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidPatientState)
		})
	}
	wg.Wait()

	assert.EqualValues(t, 1, won.Load())
	available, err := env.rooms.ListAvailable(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, available.Total)
}
