package transferapi

import (
	"context"
	"sync"

	"github.com/stoatbridge/stoatbridge/internal/transfer"
)

// stepState is the observer snapshot of one step, kept for status polling.
type stepState struct {
	Step   transfer.Step      `json:"step"`
	Status transfer.Status    `json:"status"`
	Stats  transfer.StepStats `json:"stats"`
}

// manager tracks the single in-flight run of an installation. Runs hammer
// the target API for minutes, so only one may be active at a time.
type manager struct {
	mu sync.Mutex

	runID  uint64
	cancel context.CancelFunc
	steps  map[transfer.Step]*stepState
	active bool
}

func (m *manager) begin(runID uint64, cancel context.CancelFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active {
		return transfer.ErrAlreadyRunning
	}

	m.active = true
	m.runID = runID
	m.cancel = cancel

	m.steps = make(map[transfer.Step]*stepState, len(transfer.Steps))
	for _, step := range transfer.Steps {
		m.steps[step] = &stepState{Step: step, Status: transfer.StatusPending}
	}

	return nil
}

func (m *manager) observe(step transfer.Step, status transfer.Status, stats transfer.StepStats) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if st, ok := m.steps[step]; ok {
		st.Status = status
		st.Stats = stats
	}
}

func (m *manager) finish() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.active = false
	m.cancel = nil
}

func (m *manager) abort() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.active || m.cancel == nil {
		return false
	}

	m.cancel()

	return true
}

// snapshot returns the current run ID, whether a run is active, and the step
// states in execution order.
func (m *manager) snapshot() (uint64, bool, []stepState) {
	m.mu.Lock()
	defer m.mu.Unlock()

	steps := make([]stepState, 0, len(m.steps))
	for _, step := range transfer.Steps {
		if st, ok := m.steps[step]; ok {
			steps = append(steps, *st)
		}
	}

	return m.runID, m.active, steps
}
