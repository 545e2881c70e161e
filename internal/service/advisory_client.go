package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"emergency-triage/internal/domain/triage"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// ErrAdvisoryUnavailable covers every way the analyzer can fail us:
// transport errors, timeouts, non-2xx replies and unusable payloads.
var ErrAdvisoryUnavailable = errors.New("advisory service unavailable")

// AdvisoryVitals mirrors the analyzer's vitals object
type AdvisoryVitals struct {
	BloodPressure string   `json:"bloodPressure,omitempty"`
	Pulse         *int     `json:"pulse,omitempty"`
	Temperature   *float64 `json:"temperature,omitempty"`
}

// AdvisoryRequest is the body of POST /analyze
type AdvisoryRequest struct {
	Complaint        string          `json:"complaint"`
	Age              int             `json:"age,omitempty"`
	Vitals           *AdvisoryVitals `json:"vitals,omitempty"`
	SelectedSymptoms []string        `json:"selected_symptoms"`
}

// AdvisoryResponse is the analyzer's reply
type AdvisoryResponse struct {
	Priority          string   `json:"priority"`
	PriorityLabel     string   `json:"priority_label"`
	Confidence        float64  `json:"confidence"`
	DetectedSymptoms  []string `json:"detected_symptoms"`
	Reasoning         string   `json:"reasoning"`
	SuggestedSymptoms []string `json:"suggested_symptoms"`
}

// ToAdvisory converts the reply into classifier input
func (r *AdvisoryResponse) ToAdvisory() (*triage.Advisory, error) {
	urgency, ok := triage.ParseUrgency(r.Priority)
	if !ok {
		if urgency, ok = triage.ParseUrgency(r.PriorityLabel); !ok {
			return nil, fmt.Errorf("%w: unknown priority %q", ErrAdvisoryUnavailable, r.Priority)
		}
	}
	return &triage.Advisory{
		Urgency:    urgency,
		Confidence: r.Confidence,
		Reasoning:  r.Reasoning,
		Detected:   r.DetectedSymptoms,
	}, nil
}

type healthStatus struct {
	Status string `json:"status"`
}

// AdvisoryClient talks to the external symptom analyzer. Calls are never
// retried: registration waits at most one timeout before falling back.
type AdvisoryClient struct {
	httpClient    *resty.Client
	log           *logrus.Logger
	probeInterval time.Duration

	mu        sync.Mutex
	healthy   bool
	checkedAt time.Time
}

// NewAdvisoryClient creates the analyzer client
func NewAdvisoryClient(baseURL string, timeout, probeInterval time.Duration, log *logrus.Logger) *AdvisoryClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &AdvisoryClient{
		httpClient:    client,
		log:           log,
		probeInterval: probeInterval,
	}
}

// Analyze asks the analyzer for an urgency suggestion
func (c *AdvisoryClient) Analyze(ctx context.Context, req AdvisoryRequest) (*AdvisoryResponse, error) {
	if req.SelectedSymptoms == nil {
		req.SelectedSymptoms = []string{}
	}

	var result AdvisoryResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&result).
		Post("/analyze")
	if err != nil {
		c.markHealth(false)
		c.log.Warnf("Advisory call failed: %+v", err)
		return nil, fmt.Errorf("%w: %v", ErrAdvisoryUnavailable, err)
	}
	if resp.IsError() {
		c.log.Warnf("Advisory returned status %d", resp.StatusCode())
		return nil, fmt.Errorf("%w: status %d", ErrAdvisoryUnavailable, resp.StatusCode())
	}
	if _, err := result.ToAdvisory(); err != nil {
		c.log.Warnf("Advisory returned unusable payload: %+v", err)
		return nil, err
	}

	c.markHealth(true)
	return &result, nil
}

// Healthy probes GET /health, caching the answer for the probe interval.
func (c *AdvisoryClient) Healthy(ctx context.Context) bool {
	c.mu.Lock()
	if !c.checkedAt.IsZero() && time.Since(c.checkedAt) < c.probeInterval {
		healthy := c.healthy
		c.mu.Unlock()
		return healthy
	}
	c.mu.Unlock()

	var status healthStatus
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(&status).
		Get("/health")

	healthy := err == nil && resp.IsSuccess() && status.Status == "healthy"
	if !healthy {
		c.log.Debugf("Advisory probe reports down (err=%v)", err)
	}
	c.markHealth(healthy)
	return healthy
}

func (c *AdvisoryClient) markHealth(healthy bool) {
	c.mu.Lock()
	c.healthy = healthy
	c.checkedAt = time.Now()
	c.mu.Unlock()
}
