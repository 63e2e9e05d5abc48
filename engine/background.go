package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/agentcore/bus"
	"github.com/hupe1980/agentcore/core"
	"github.com/hupe1980/agentcore/logging"
)

// backgroundTask tracks one fire-and-forget delegation. Guarded by the
// manager's mutex.
type backgroundTask struct {
	taskID      string
	agentRunID  string
	targetRole  string
	description string
	sessionID   string
	cancel      context.CancelFunc
	result      string
	errMsg      string
	complete    bool
}

// BackgroundTaskManagerOptions configures a BackgroundTaskManager.
type BackgroundTaskManagerOptions struct {
	// MaxConcurrent bounds how many background delegations execute at
	// once; excess submissions queue on the internal semaphore.
	MaxConcurrent int
	Logger        logging.Logger
}

// BackgroundTaskManager runs fire-and-forget delegations with a concurrency
// cap. Submit returns immediately; the delegation itself waits for a
// semaphore slot inside its own goroutine.
type BackgroundTaskManager struct {
	bus        *bus.Bus
	store      core.Store
	delegation *DelegationManager
	opts       BackgroundTaskManagerOptions

	sem chan struct{}
	wg  sync.WaitGroup

	mu    sync.Mutex
	tasks map[string]*backgroundTask
}

// NewBackgroundTaskManager creates a manager. MaxConcurrent defaults to 3.
func NewBackgroundTaskManager(b *bus.Bus, store core.Store, delegation *DelegationManager, optFns ...func(o *BackgroundTaskManagerOptions)) *BackgroundTaskManager {
	opts := BackgroundTaskManagerOptions{MaxConcurrent: 3, Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 3
	}
	return &BackgroundTaskManager{
		bus:        b,
		store:      store,
		delegation: delegation,
		opts:       opts,
		sem:        make(chan struct{}, opts.MaxConcurrent),
		tasks:      make(map[string]*backgroundTask),
	}
}

// Submit queues a background delegation and returns its task id without
// waiting for a free slot.
func (m *BackgroundTaskManager) Submit(ctx context.Context, fromRun *core.AgentRun, targetRole, description string) (string, error) {
	taskID := core.NewID()

	task := &backgroundTask{
		taskID:      taskID,
		agentRunID:  fromRun.ID,
		targetRole:  targetRole,
		description: description,
		sessionID:   fromRun.SessionID,
	}

	// The task outlives the submitting agent's call, so it runs under its
	// own cancelable context rather than the caller's.
	taskCtx, cancel := context.WithCancel(context.Background())
	task.cancel = cancel

	m.mu.Lock()
	m.tasks[taskID] = task
	m.mu.Unlock()

	m.bus.Publish(ctx, bus.BackgroundQueued, fromRun.SessionID, targetRole, map[string]any{
		"task_id":     taskID,
		"description": description,
	})

	fromRunCopy := *fromRun
	m.wg.Add(1)
	go m.run(taskCtx, task, &fromRunCopy)

	return taskID, nil
}

// run waits for a semaphore slot, then executes the delegation.
func (m *BackgroundTaskManager) run(ctx context.Context, task *backgroundTask, fromRun *core.AgentRun) {
	defer m.wg.Done()

	select {
	case m.sem <- struct{}{}:
		defer func() { <-m.sem }()
	case <-ctx.Done():
		return
	}

	result, err := m.delegation.Delegate(ctx, fromRun, task.targetRole, task.description)

	m.mu.Lock()
	if task.complete {
		// Cancelled while running; keep the cancellation outcome.
		m.mu.Unlock()
		return
	}
	task.complete = true
	if err != nil {
		task.errMsg = err.Error()
	} else {
		task.result = result
	}
	m.mu.Unlock()

	if err != nil {
		m.opts.Logger.Error("background.task.failed", "task_id", task.taskID, "error", err.Error())
		m.bus.Publish(ctx, bus.BackgroundFailed, task.sessionID, task.targetRole, map[string]any{
			"task_id": task.taskID,
			"error":   err.Error(),
		})
		return
	}

	m.bus.Publish(ctx, bus.BackgroundComplete, task.sessionID, task.targetRole, map[string]any{
		"task_id": task.taskID,
		"result":  truncate(result, 200),
	})
}

// Status returns human-readable status text for a task id.
func (m *BackgroundTaskManager) Status(_ context.Context, taskID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	task, ok := m.tasks[taskID]
	if !ok {
		return fmt.Sprintf("Unknown background task: %s", taskID)
	}
	if !task.complete {
		return fmt.Sprintf("Background task %s (%s): still running", taskID, task.targetRole)
	}
	if task.errMsg != "" {
		return fmt.Sprintf("Background task %s (%s): FAILED - %s", taskID, task.targetRole, task.errMsg)
	}
	return fmt.Sprintf("Background task %s (%s): COMPLETED\nResult: %s", taskID, task.targetRole, task.result)
}

// Cancel stops a still-running task. It reports whether a cancellation
// actually happened.
func (m *BackgroundTaskManager) Cancel(taskID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	task, ok := m.tasks[taskID]
	if !ok || task.complete {
		return false
	}
	task.cancel()
	task.complete = true
	task.errMsg = "Cancelled"
	return true
}

// ActiveCount returns the number of tasks not yet complete.
func (m *BackgroundTaskManager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, task := range m.tasks {
		if !task.complete {
			count++
		}
	}
	return count
}

// Wait blocks until every submitted task goroutine has finished or ctx
// expires.
func (m *BackgroundTaskManager) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
