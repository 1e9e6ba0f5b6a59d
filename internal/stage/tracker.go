package stage

import "sync"

// Tracker carries the Status and Output bookkeeping shared by stage
// handlers. The zero value reports "pending". Methods are safe for
// concurrent use; status polling may race the generating goroutine.
type Tracker struct {
	mu     sync.Mutex
	status string
	output string
}

// SetProcessing marks the stage as actively generating.
func (t *Tracker) SetProcessing() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = "processing"
}

// SetCompleted records a successful run and its principal output.
func (t *Tracker) SetCompleted(output string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = "completed"
	t.output = output
}

// SetFailed records a failed run. The reason is kept as given.
func (t *Tracker) SetFailed(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = "failed"
	if err != nil {
		t.status = "failed: " + err.Error()
	}
}

// Status returns the current observable state.
func (t *Tracker) Status() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status == "" {
		return "pending"
	}
	return t.status
}

// Output returns the principal artifact recorded by SetCompleted.
func (t *Tracker) Output() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.output
}
