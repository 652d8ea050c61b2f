package pipeline

import (
	"log/slog"
	"sync"
	"time"
)

type ExecutionStatus string

const (
	StatusStarted   ExecutionStatus = "started"
	StatusCompleted ExecutionStatus = "completed"
	StatusFailed    ExecutionStatus = "failed"
)

// ExecutionResult tracks one pipeline run.
type ExecutionResult struct {
	PipelineID     string          `json:"pipeline_id"`
	ExecutionID    string          `json:"execution_id"`
	DocumentID     int64           `json:"document_id"`
	Status         ExecutionStatus `json:"status"`
	StartTime      int64           `json:"start_time"`
	EndTime        int64           `json:"end_time,omitempty"`
	CompletedSteps []string        `json:"completed_steps"`
	FailedStep     string          `json:"failed_step,omitempty"`
	ErrorMessage   string          `json:"error_message,omitempty"`
	SubmittedAt    string          `json:"submitted_at"`
	CompletedAt    string          `json:"completed_at,omitempty"`
}

// ExecutionStore keeps recent runs in memory, indexed by execution id and by
// document. Finished runs older than the cleanup threshold are dropped.
type ExecutionStore struct {
	mu         sync.RWMutex
	executions map[string]*ExecutionResult
	byDocument map[int64]string

	timeProvider  TimeProvider
	logger        *slog.Logger
	cleanupTicker *time.Ticker
	stopCleanup   chan struct{}
	stopOnce      sync.Once
}

func NewExecutionStore(logger *slog.Logger) *ExecutionStore {
	return &ExecutionStore{
		executions:   make(map[string]*ExecutionResult),
		byDocument:   make(map[int64]string),
		timeProvider: &realTimeProvider{},
		logger:       logger,
	}
}

// Start records a new run for documentID and returns its snapshot.
func (s *ExecutionStore) Start(pipelineID, execID string, documentID int64) *ExecutionResult {
	now := s.timeProvider.Now()
	result := &ExecutionResult{
		PipelineID:     pipelineID,
		ExecutionID:    execID,
		DocumentID:     documentID,
		Status:         StatusStarted,
		StartTime:      now.Unix(),
		CompletedSteps: []string{},
		SubmittedAt:    now.Format(time.RFC3339),
	}
	s.AddExecution(execID, result)
	return result.clone()
}

func (s *ExecutionStore) AddExecution(execID string, result *ExecutionResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.executions[execID] = result
	if result.DocumentID != 0 {
		s.byDocument[result.DocumentID] = execID
	}
}

// Complete marks a run as finished. A nil failure means success.
func (s *ExecutionStore) Complete(execID string, completedSteps []string, failedStep string, failure error) {
	now := s.timeProvider.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	result, ok := s.executions[execID]
	if !ok {
		return
	}
	result.CompletedSteps = append([]string(nil), completedSteps...)
	result.EndTime = now.Unix()
	result.CompletedAt = now.Format(time.RFC3339)
	if failure != nil {
		result.Status = StatusFailed
		result.FailedStep = failedStep
		result.ErrorMessage = failure.Error()
		return
	}
	result.Status = StatusCompleted
}

func (s *ExecutionStore) GetExecution(execID string) (*ExecutionResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result, exists := s.executions[execID]
	if !exists {
		return nil, false
	}
	return result.clone(), true
}

// LatestForDocument returns the most recently started run for documentID.
func (s *ExecutionStore) LatestForDocument(documentID int64) (*ExecutionResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	execID, ok := s.byDocument[documentID]
	if !ok {
		return nil, false
	}
	result, ok := s.executions[execID]
	if !ok {
		return nil, false
	}
	return result.clone(), true
}

// StartCleanup starts a goroutine that periodically drops finished runs.
// - threshold: Duration after which execution results are considered expired.
// - cleanupInterval: How often the cleanup process runs.
func (s *ExecutionStore) StartCleanup(threshold time.Duration, cleanupInterval time.Duration) {
	s.stopCleanup = make(chan struct{})
	s.cleanupTicker = time.NewTicker(cleanupInterval)

	go func(ticker *time.Ticker, stop chan struct{}) {
		for {
			select {
			case <-ticker.C:
				s.performCleanup(threshold)
			case <-stop:
				ticker.Stop()
				return
			}
		}
	}(s.cleanupTicker, s.stopCleanup)
}

func (s *ExecutionStore) StopCleanup() {
	s.stopOnce.Do(func() {
		if s.stopCleanup != nil {
			close(s.stopCleanup)
		}
	})
}

func (s *ExecutionStore) performCleanup(threshold time.Duration) {
	now := s.timeProvider.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	for execID, execResult := range s.executions {
		if execResult.CompletedAt == "" {
			continue
		}
		completedAt, err := time.Parse(time.RFC3339, execResult.CompletedAt)
		if err == nil && now.Sub(completedAt) > threshold {
			delete(s.executions, execID)
			if s.byDocument[execResult.DocumentID] == execID {
				delete(s.byDocument, execResult.DocumentID)
			}
			s.logger.Debug("Deleted execution result due to expiration",
				slog.String("execution_id", execID))
		}
	}
}

func (r *ExecutionResult) clone() *ExecutionResult {
	c := *r
	c.CompletedSteps = append([]string(nil), r.CompletedSteps...)
	return &c
}
