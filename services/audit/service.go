package audit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/regit-contracts/regit/internal/observability"
	"github.com/regit-contracts/regit/internal/policy"
	"github.com/regit-contracts/regit/models"
	"github.com/regit-contracts/regit/repositories"
	"github.com/regit-contracts/regit/services"
	"go.uber.org/zap"
)

// Resource types recorded in audit entries
const (
	ResourceContract   = "contract"
	ResourceFile       = "contract_file"
	ResourceDepartment = "department"
)

var (
	// ErrNotStarted is returned when events are logged before Start or after Stop
	ErrNotStarted = errors.New("audit service not started")

	// ErrBufferFull is returned when the event buffer cannot take another event
	ErrBufferFull = errors.New("audit event buffer full")
)

// AuditEvent represents an event to be audited
type AuditEvent struct {
	Log *models.AuditLog
}

// AuditService handles asynchronous audit logging
type AuditService struct {
	auditRepo   repositories.AuditRepository
	logger      *zap.Logger
	clock       clockwork.Clock
	metrics     *observability.Metrics
	eventChan   chan *AuditEvent
	workerCount int
	bufferSize  int
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	started     bool
	stopped     bool
	mu          sync.RWMutex
}

// Config holds configuration for the AuditService
type Config struct {
	BufferSize  int // Size of the event buffer channel
	WorkerCount int // Number of concurrent workers

	// Optional
	Clock   clockwork.Clock
	Metrics *observability.Metrics
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		BufferSize:  1000,
		WorkerCount: 2,
	}
}

// NewAuditService creates a new AuditService instance
func NewAuditService(auditRepo repositories.AuditRepository, logger *zap.Logger, config Config) *AuditService {
	ctx, cancel := context.WithCancel(context.Background())

	clock := config.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &AuditService{
		auditRepo:   auditRepo,
		logger:      logger,
		clock:       clock,
		metrics:     config.Metrics,
		eventChan:   make(chan *AuditEvent, config.BufferSize),
		workerCount: config.WorkerCount,
		bufferSize:  config.BufferSize,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start starts the background workers
func (s *AuditService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("audit service already started")
	}
	if s.stopped {
		return fmt.Errorf("audit service already stopped")
	}

	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.started = true
	s.logger.Info("started audit service",
		zap.Int("worker_count", s.workerCount),
		zap.Int("buffer_size", s.bufferSize))

	return nil
}

// Stop gracefully stops the audit service
// Waits for all pending events to be processed
func (s *AuditService) Stop(timeout time.Duration) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return ErrNotStarted
	}
	s.started = false
	s.stopped = true

	s.logger.Info("stopping audit service", zap.Int("pending_events", len(s.eventChan)))

	// No more events will be accepted
	close(s.eventChan)
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("audit service stopped gracefully")
		s.cancel()
		return nil
	case <-time.After(timeout):
		s.cancel()
		return fmt.Errorf("audit service stop timeout after %v", timeout)
	}
}

// LogEvent logs an event asynchronously (non-blocking)
// Returns immediately, event is processed in background
func (s *AuditService) LogEvent(event *AuditEvent) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return ErrNotStarted
	}

	select {
	case s.eventChan <- event:
		return nil
	default:
		s.metrics.RecordAuditDropped()
		s.logger.Warn("audit event channel full, dropping event",
			zap.String("action", string(event.Log.Action)),
			zap.String("actor_id", event.Log.ActorID))
		return ErrBufferFull
	}
}

// LogEventBlocking logs an event synchronously (blocking)
// Waits until event is queued or context is cancelled
func (s *AuditService) LogEventBlocking(ctx context.Context, event *AuditEvent) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return ErrNotStarted
	}

	select {
	case s.eventChan <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ctx.Done():
		return fmt.Errorf("audit service stopped")
	}
}

// worker processes events from the channel
func (s *AuditService) worker(id int) {
	defer s.wg.Done()

	s.logger.Debug("audit worker started", zap.Int("worker_id", id))

	for event := range s.eventChan {
		if err := s.processEvent(event); err != nil {
			s.logger.Error("failed to process audit event",
				zap.Int("worker_id", id),
				zap.Error(err),
				zap.String("action", string(event.Log.Action)),
				zap.String("actor_id", event.Log.ActorID))
		}
	}

	s.logger.Debug("audit worker stopped", zap.Int("worker_id", id))
}

// processEvent processes a single audit event
func (s *AuditService) processEvent(event *AuditEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.auditRepo.Insert(ctx, event.Log); err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}

	return nil
}

// GetStats returns statistics about the audit service
func (s *AuditService) GetStats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Stats{
		BufferSize:    s.bufferSize,
		PendingEvents: len(s.eventChan),
		WorkerCount:   s.workerCount,
		Started:       s.started,
	}
}

// Stats represents audit service statistics
type Stats struct {
	BufferSize    int
	PendingEvents int
	WorkerCount   int
	Started       bool
}

// Convenience methods for logging common events

func (s *AuditService) newLog(ctx context.Context, actor *policy.Principal, action models.AuditAction, resourceType string) *models.AuditLog {
	var actorID string
	if actor != nil {
		actorID = actor.ID
	}
	log := models.NewAuditLog(actorID, action, resourceType, s.clock.Now().UTC())
	info := RequestInfoFrom(ctx)
	return log.WithRequest(info.RequestID, info.IPAddress, info.UserAgent)
}

// LogContractEvent records an authorized change to a contract
func (s *AuditService) LogContractEvent(ctx context.Context, actor *policy.Principal, action models.AuditAction, op policy.Operation, contractID uuid.UUID, details interface{}) error {
	log := s.newLog(ctx, actor, action, ResourceContract).
		WithResource(contractID).
		WithDecision(op.String(), policy.Authorized.String())
	if details != nil {
		log.WithDetails(details)
	}
	return s.LogEvent(&AuditEvent{Log: log})
}

// LogExport records a bulk export of the contract list
func (s *AuditService) LogExport(ctx context.Context, actor *policy.Principal, count int, filter map[string]string) error {
	log := s.newLog(ctx, actor, models.AuditActionContractExported, ResourceContract).
		WithDecision(policy.OpRead.String(), policy.Authorized.String()).
		WithDetails(map[string]interface{}{"count": count, "filter": filter})
	return s.LogEvent(&AuditEvent{Log: log})
}

// LogFileEvent records an upload or removal of a contract attachment
func (s *AuditService) LogFileEvent(ctx context.Context, actor *policy.Principal, action models.AuditAction, file *models.ContractFile) error {
	log := s.newLog(ctx, actor, action, ResourceFile).
		WithResource(file.ID).
		WithDecision(policy.OpUpdate.String(), policy.Authorized.String()).
		WithDetails(map[string]interface{}{
			"contract_id": file.ContractID,
			"file_name":   file.FileName,
			"size":        file.Size,
		})
	return s.LogEvent(&AuditEvent{Log: log})
}

// LogDepartmentCreated records a new department
func (s *AuditService) LogDepartmentCreated(ctx context.Context, actor *policy.Principal, department *models.Department) error {
	log := s.newLog(ctx, actor, models.AuditActionDepartmentAdded, ResourceDepartment).
		WithResource(department.ID).
		WithDetails(map[string]interface{}{"name": department.Name})
	return s.LogEvent(&AuditEvent{Log: log})
}

// LogAccessDenied records a Forbidden decision. The rule that failed is not recorded.
func (s *AuditService) LogAccessDenied(ctx context.Context, actor *policy.Principal, op policy.Operation, resourceType string, resourceID uuid.UUID) error {
	log := s.newLog(ctx, actor, models.AuditActionAccessDenied, resourceType).
		WithResource(resourceID).
		WithDecision(op.String(), policy.Forbidden.String())
	return s.LogEvent(&AuditEvent{Log: log})
}

// Queries

// Get returns a single audit entry
func (s *AuditService) Get(ctx context.Context, id uuid.UUID) (*models.AuditLog, error) {
	log, err := s.auditRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrAuditLogNotFound
		}
		return nil, services.WrapInternal("failed to get audit log", err)
	}
	return log, nil
}

// ListRecent returns the newest audit entries
func (s *AuditService) ListRecent(ctx context.Context, limit, offset int) ([]*models.AuditLog, error) {
	logs, err := s.auditRepo.ListRecent(ctx, clampLimit(limit), max(offset, 0))
	if err != nil {
		return nil, services.WrapInternal("failed to list audit logs", err)
	}
	return logs, nil
}

// ListForResource returns the history of one resource, newest first
func (s *AuditService) ListForResource(ctx context.Context, resourceType string, resourceID uuid.UUID, limit, offset int) ([]*models.AuditLog, error) {
	logs, err := s.auditRepo.ListByResource(ctx, resourceType, resourceID, clampLimit(limit), max(offset, 0))
	if err != nil {
		return nil, services.WrapInternal("failed to list audit logs", err)
	}
	return logs, nil
}

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultPageSize
	case limit > maxPageSize:
		return maxPageSize
	default:
		return limit
	}
}
