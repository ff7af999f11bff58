package molsim

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// ProgressEvent is a periodic report of a running simulation.
type ProgressEvent struct {
	SimulationID string      `json:"simulation_id"`
	Step         int64       `json:"step"`
	Temperature  float64     `json:"temperature"`
	Energy       float64     `json:"energy"`
	Timestamp    int64       `json:"timestamp"`
	Moves        []MoveStats `json:"moves"`
}

// JSON returns the event as JSON bytes
func (pe ProgressEvent) JSON() ([]byte, error) {
	return json.Marshal(pe)
}

// Notifier is the interface that all notification channels must implement
type Notifier interface {
	// ID returns a unique identifier for this notifier
	ID() string

	// Type returns the type of notifier (e.g., "webhook", "websocket")
	Type() string

	// Notify sends a progress event. Returns an error if notification fails.
	// The context can be used for cancellation and timeout.
	Notify(ctx context.Context, event ProgressEvent) error

	// Close closes the notifier and releases any resources
	Close() error
}

// notificationJob represents a job to be processed by the notification queue
type notificationJob struct {
	Event       ProgressEvent
	NotifierIDs []string
}

// NotificationManager routes progress events to registered notifiers. Delivery
// happens on worker goroutines and never touches simulation state.
type NotificationManager struct {
	mu        sync.RWMutex
	notifiers map[string]Notifier
	jobs      chan notificationJob
	closed    bool
	wg        sync.WaitGroup
	logger    Logger
}

// NewNotificationManager creates a new notification manager
func NewNotificationManager() *NotificationManager {
	return NewNotificationManagerWithLogger(NewNoOpLogger())
}

// NewNotificationManagerWithLogger creates a notification manager that reports
// delivery failures to logger.
func NewNotificationManagerWithLogger(logger Logger) *NotificationManager {
	if logger == nil {
		logger = NewNoOpLogger()
	}
	mgr := &NotificationManager{
		notifiers: make(map[string]Notifier),
		jobs:      make(chan notificationJob, 1024),
		logger:    logger,
	}
	mgr.startWorkers(1)
	return mgr
}

// RegisterNotifier registers a notifier with the manager
func (nm *NotificationManager) RegisterNotifier(notifier Notifier) error {
	if notifier == nil {
		return fmt.Errorf("notifier cannot be nil")
	}

	id := notifier.ID()
	if id == "" {
		return fmt.Errorf("notifier ID cannot be empty")
	}

	nm.mu.Lock()
	defer nm.mu.Unlock()

	if _, exists := nm.notifiers[id]; exists {
		return fmt.Errorf("notifier with ID %s already exists", id)
	}

	nm.notifiers[id] = notifier
	return nil
}

// UnregisterNotifier closes and removes a notifier
func (nm *NotificationManager) UnregisterNotifier(id string) error {
	nm.mu.Lock()
	notifier, exists := nm.notifiers[id]
	if exists {
		delete(nm.notifiers, id)
	}
	nm.mu.Unlock()

	if !exists {
		return fmt.Errorf("notifier with ID %s not found", id)
	}
	if err := notifier.Close(); err != nil {
		return fmt.Errorf("error closing notifier %s: %w", id, err)
	}
	return nil
}

// GetNotifier retrieves a notifier by ID
func (nm *NotificationManager) GetNotifier(id string) (Notifier, bool) {
	nm.mu.RLock()
	defer nm.mu.RUnlock()
	notifier, exists := nm.notifiers[id]
	return notifier, exists
}

// ListNotifiers returns a list of all registered notifier IDs
func (nm *NotificationManager) ListNotifiers() []string {
	nm.mu.RLock()
	defer nm.mu.RUnlock()
	ids := make([]string, 0, len(nm.notifiers))
	for id := range nm.notifiers {
		ids = append(ids, id)
	}
	return ids
}

// Enqueue queues an event for asynchronous delivery. It never blocks; events
// are dropped when the queue is full.
func (nm *NotificationManager) Enqueue(event ProgressEvent, notifierIDs []string) {
	if len(notifierIDs) == 0 {
		return
	}

	nm.mu.RLock()
	defer nm.mu.RUnlock()
	if nm.closed {
		return
	}

	select {
	case nm.jobs <- notificationJob{Event: event, NotifierIDs: notifierIDs}:
	default:
		nm.logger.Warnf("notification queue full, dropping progress event: simulation_id=%s step=%d", event.SimulationID, event.Step)
	}
}

// startWorkers starts n worker goroutines to process notification jobs
func (nm *NotificationManager) startWorkers(n int) {
	for range n {
		nm.wg.Add(1)
		go nm.worker()
	}
}

func (nm *NotificationManager) worker() {
	defer nm.wg.Done()
	for job := range nm.jobs {
		nm.dispatchJob(job)
	}
}

func (nm *NotificationManager) dispatchJob(job notificationJob) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, id := range job.NotifierIDs {
		nm.notifyWithRetry(ctx, id, job.Event)
	}
}

// notifyWithRetry attempts delivery with exponential backoff
func (nm *NotificationManager) notifyWithRetry(ctx context.Context, notifierID string, event ProgressEvent) {
	notifier, ok := nm.GetNotifier(notifierID)
	if !ok {
		nm.logger.Errorf("notification failed: notifier=%s error=notifier not found", notifierID)
		return
	}

	const maxRetries = 3
	backoff := 100 * time.Millisecond

	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := notifier.Notify(ctx, event)
		if err == nil {
			return
		}

		nm.logger.Warnf("notification failed: notifier=%s attempt=%d error=%v", notifierID, attempt+1, err)

		if attempt == maxRetries {
			nm.logger.Errorf("notification failed after %d attempts: notifier=%s", maxRetries+1, notifierID)
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
			backoff *= 2
		}
	}
}

// Notify delivers an event synchronously to the given notifiers.
func (nm *NotificationManager) Notify(ctx context.Context, event ProgressEvent, notifierIDs []string) error {
	var errs []error
	for _, id := range notifierIDs {
		notifier, exists := nm.GetNotifier(id)
		if !exists {
			errs = append(errs, fmt.Errorf("notifier %s not found", id))
			continue
		}
		if err := notifier.Notify(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("notifier %s failed: %w", id, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("notification errors: %v", errs)
	}
	return nil
}

// Close drains the queue, stops the workers and closes every notifier
func (nm *NotificationManager) Close() error {
	nm.mu.Lock()
	if nm.closed {
		nm.mu.Unlock()
		return nil
	}
	nm.closed = true
	close(nm.jobs)
	nm.mu.Unlock()

	nm.wg.Wait()

	nm.mu.Lock()
	var errs []error
	for id, notifier := range nm.notifiers {
		if err := notifier.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing notifier %s: %w", id, err))
		}
	}
	nm.notifiers = make(map[string]Notifier)
	nm.mu.Unlock()

	if len(errs) > 0 {
		return fmt.Errorf("errors closing notifiers: %v", errs)
	}
	return nil
}
