package triage

import "sync/atomic"

// ThresholdStore holds the active bands and allows swapping them while
// requests are being classified.
type ThresholdStore struct {
	current atomic.Pointer[Thresholds]
}

func NewThresholdStore(t Thresholds) *ThresholdStore {
	s := &ThresholdStore{}
	s.Store(t)
	return s
}

func (s *ThresholdStore) Load() Thresholds {
	return *s.current.Load()
}

func (s *ThresholdStore) Store(t Thresholds) {
	s.current.Store(&t)
}
