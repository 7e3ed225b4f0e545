package tool

import (
	"sync"
	"time"
)

// ComputeObservation captures one tool recompute.
type ComputeObservation struct {
	ToolType    string
	Title       string
	Outputs     int
	ZeroOutputs int
	HasAnyInput bool
	Started     time.Time
	Duration    time.Duration
}

// Observer receives tool-level observability events.
type Observer interface {
	ObserveCompute(observation ComputeObservation)
}

type noopObserver struct{}

func (noopObserver) ObserveCompute(ComputeObservation) {}

var (
	observerMu     sync.RWMutex
	activeObserver Observer = noopObserver{}
)

// SetObserver sets the process-wide tool observability observer.
func SetObserver(observer Observer) {
	observerMu.Lock()
	defer observerMu.Unlock()
	if observer == nil {
		activeObserver = noopObserver{}
		return
	}
	activeObserver = observer
}

func emitComputeObservation(observation ComputeObservation) {
	observerMu.RLock()
	observer := activeObserver
	observerMu.RUnlock()
	observer.ObserveCompute(observation)
}
