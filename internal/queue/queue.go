// Package queue provides the pending-task queue used to batch update
// operations between catalog refreshes.
package queue

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ErrAlreadyRunning is returned when Process is called while a previous
// Process call is still draining the queue
var ErrAlreadyRunning = errors.New("queue: execution still in progress")

// Task is one unit of queued work. Tasks are expected to bound their own
// outbound calls through the admission gate.
type Task func(ctx context.Context) error

type queuedTask struct {
	id  string
	run Task
}

// Manager collects pending tasks and runs them all concurrently on demand
type Manager struct {
	mu      sync.Mutex
	running bool
	tasks   []queuedTask
}

// NewManager creates an empty queue manager
func NewManager() *Manager {
	return &Manager{}
}

// Add appends a task to the queue and returns its ID
func (m *Manager) Add(task Task) string {
	id := uuid.NewString()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks = append(m.tasks, queuedTask{id: id, run: task})
	return id
}

// PendingCount returns the number of queued tasks
func (m *Manager) PendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

// HasPending reports whether any tasks are queued
func (m *Manager) HasPending() bool {
	return m.PendingCount() > 0
}

// Running reports whether a Process call is currently draining the queue
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Process runs all currently queued tasks concurrently and waits for them.
// Tasks added while processing runs are left for the next call. Individual
// task failures are logged and counted but do not abort the batch; the
// first error is returned after the batch completes.
func (m *Manager) Process(ctx context.Context) (int, error) {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return 0, ErrAlreadyRunning
	}
	m.running = true
	batch := m.tasks
	m.tasks = nil
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.running = false
		m.mu.Unlock()
	}()

	if len(batch) == 0 {
		slog.Debug("Nothing in the queue")
		return 0, nil
	}

	slog.Debug("Processing queue", "pending", len(batch))

	var (
		errMu    sync.Mutex
		firstErr error
		failed   int
	)

	group, groupCtx := errgroup.WithContext(ctx)
	for _, task := range batch {
		group.Go(func() error {
			if err := task.run(groupCtx); err != nil {
				slog.Warn("Queued task failed", "task_id", task.id, "error", err)
				errMu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				failed++
				errMu.Unlock()
			}
			// Errors are collected, not returned: returning would cancel
			// groupCtx and abort the rest of the batch.
			return nil
		})
	}
	_ = group.Wait()

	slog.Debug("Queue processed", "completed", len(batch)-failed, "failed", failed)
	return len(batch), firstErr
}
