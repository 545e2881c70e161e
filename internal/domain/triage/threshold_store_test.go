package triage

import (
	"testing"

	"github.com/sourcegraph/conc"
	"github.com/stretchr/testify/assert"
)

func TestThresholdStore_SwapWhileReading(t *testing.T) {
	store := NewThresholdStore(DefaultThresholds())
	assert.Equal(t, DefaultThresholds(), store.Load())

	tightened := DefaultThresholds()
	tightened.CriticalPulseMax = 110

	var wg conc.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Go(func() {
			for j := 0; j < 100; j++ {
				got := store.Load().CriticalPulseMax
				assert.True(t, got == DefaultThresholds().CriticalPulseMax || got == 110)
			}
		})
	}
	wg.Go(func() { store.Store(tightened) })
	wg.Wait()

	assert.Equal(t, 110, store.Load().CriticalPulseMax)
}

func TestThresholdStore_LoadReturnsCopy(t *testing.T) {
	store := NewThresholdStore(DefaultThresholds())
	loaded := store.Load()
	loaded.CriticalPulseMin = 1
	assert.Equal(t, DefaultThresholds().CriticalPulseMin, store.Load().CriticalPulseMin)
}
