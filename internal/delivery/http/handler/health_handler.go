package handler

import (
	"context"
	"net/http"
	"time"

	"emergency-triage/pkg/response"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// AdvisoryProbe reports whether the external analyzer answers
type AdvisoryProbe interface {
	Healthy(ctx context.Context) bool
}

type HealthHandler struct {
	db          *gorm.DB
	redisClient *redis.Client
	advisory    AdvisoryProbe
}

func NewHealthHandler(db *gorm.DB, redisClient *redis.Client, advisory AdvisoryProbe) *HealthHandler {
	return &HealthHandler{
		db:          db,
		redisClient: redisClient,
		advisory:    advisory,
	}
}

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Redis    string `json:"redis"`
	Advisory string `json:"advisory"`
}

// Health is degraded, not down, when only redis or the analyzer is missing:
// intake keeps working without them.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{Database: "up", Redis: "disabled", Advisory: "disabled"}

	// Probes are independent; each one writes only its own field.
	var g errgroup.Group
	g.Go(func() error {
		if sqlDB, err := h.db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
			resp.Database = "down"
		}
		return nil
	})
	if h.redisClient != nil {
		g.Go(func() error {
			resp.Redis = "up"
			if err := h.redisClient.Ping(ctx).Err(); err != nil {
				resp.Redis = "down"
			}
			return nil
		})
	}
	if h.advisory != nil {
		g.Go(func() error {
			resp.Advisory = "up"
			if !h.advisory.Healthy(ctx) {
				resp.Advisory = "down"
			}
			return nil
		})
	}
	_ = g.Wait()

	status := http.StatusOK
	switch {
	case resp.Database == "down":
		resp.Status = "down"
		status = http.StatusServiceUnavailable
	case resp.Redis == "down" || resp.Advisory == "down":
		resp.Status = "degraded"
	default:
		resp.Status = "ok"
	}

	response.JSON(w, status, response.Response{Success: status == http.StatusOK, Data: resp})
}
