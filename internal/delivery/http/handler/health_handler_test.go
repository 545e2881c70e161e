package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type stubProbe struct{ healthy bool }

func (p stubProbe) Healthy(ctx context.Context) bool { return p.healthy }

func mockDB(t *testing.T, pingErr error) *gorm.DB {
	t.Helper()

	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	mock.ExpectPing().WillReturnError(pingErr)

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:               logger.Default.LogMode(logger.Silent),
		DisableAutomaticPing: true,
	})
	require.NoError(t, err)
	return db
}

func redisClient(t *testing.T, up bool) *redis.Client {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { client.Close() })
	if !up {
		mr.Close()
	}
	return client
}

func TestHealthHandler_StatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		pingErr    error
		redisUp    *bool
		advisory   AdvisoryProbe
		wantCode   int
		wantStatus healthResponse
	}{
		{
			name:       "only database configured",
			wantCode:   http.StatusOK,
			wantStatus: healthResponse{Status: "ok", Database: "up", Redis: "disabled", Advisory: "disabled"},
		},
		{
			name:       "everything up",
			redisUp:    boolPtr(true),
			advisory:   stubProbe{healthy: true},
			wantCode:   http.StatusOK,
			wantStatus: healthResponse{Status: "ok", Database: "up", Redis: "up", Advisory: "up"},
		},
		{
			name:       "redis down degrades",
			redisUp:    boolPtr(false),
			advisory:   stubProbe{healthy: true},
			wantCode:   http.StatusOK,
			wantStatus: healthResponse{Status: "degraded", Database: "up", Redis: "down", Advisory: "up"},
		},
		{
			name:       "advisory down degrades",
			advisory:   stubProbe{healthy: false},
			wantCode:   http.StatusOK,
			wantStatus: healthResponse{Status: "degraded", Database: "up", Redis: "disabled", Advisory: "down"},
		},
		{
			name:       "database down wins over degraded",
			pingErr:    errors.New("connection refused"),
			advisory:   stubProbe{healthy: false},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: healthResponse{Status: "down", Database: "down", Redis: "disabled", Advisory: "down"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var client *redis.Client
			if tt.redisUp != nil {
				client = redisClient(t, *tt.redisUp)
			}
			h := NewHealthHandler(mockDB(t, tt.pingErr), client, tt.advisory)

			rec := httptest.NewRecorder()
			h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			var body struct {
				Success bool           `json:"success"`
				Data    healthResponse `json:"data"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode == http.StatusOK, body.Success)
			assert.Equal(t, tt.wantStatus, body.Data)
		})
	}
}

func boolPtr(v bool) *bool { return &v }
