// Package reconciliation sequences the matching and journal phases and
// carries the review operations on top of them.
package reconciliation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"cash-application-engine/internal/config"
	"cash-application-engine/internal/models"
	"cash-application-engine/internal/repository"
	"cash-application-engine/internal/services/journal"
	"cash-application-engine/internal/services/matching"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrAlreadyApproved = errors.New("match is already approved")
	ErrAlreadyMatched  = errors.New("already matched")
	ErrInvalidInput    = errors.New("invalid input")
	ErrInvalidConfig   = config.ErrInvalidConfig
)

// Phase names reported for a pipeline run while it executes.
const (
	PhaseMatching = "matching"
	PhaseJournal  = "journal"
	PhaseDone     = "done"
)

type ReconciliationService struct {
	db          *gorm.DB
	cfg         config.Config
	payments    *repository.PaymentRepository
	remittances *repository.RemittanceRepository
	matches     *repository.MatchRepository
	postings    *repository.PostingRepository
	runs        *repository.RunRepository
	engine      *matching.Engine
	generator   *journal.Generator
	logger      *slog.Logger

	// mu serializes runs within the process. Two processes sharing a
	// database are not coordinated.
	mu       sync.Mutex
	progress sync.Map // runID -> phase
	now      func() time.Time
}

func NewReconciliationService(db *gorm.DB, cfg config.Config, logger *slog.Logger) *ReconciliationService {
	return &ReconciliationService{
		db:          db,
		cfg:         cfg,
		payments:    repository.NewPaymentRepository(db),
		remittances: repository.NewRemittanceRepository(db),
		matches:     repository.NewMatchRepository(db),
		postings:    repository.NewPostingRepository(db),
		runs:        repository.NewRunRepository(db),
		engine:      matching.NewEngine(db, logger),
		generator:   journal.NewGenerator(db, logger),
		logger:      logger.With("component", "reconciliation"),
		now:         time.Now,
	}
}

func (s *ReconciliationService) Config() config.Config {
	return s.cfg
}

// Ping checks the database connection.
func (s *ReconciliationService) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *ReconciliationService) RunMatching(ctx context.Context) (*matching.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Run(ctx, s.cfg.Matching)
}

func (s *ReconciliationService) GenerateJournal(ctx context.Context, includeUnmatched bool) (*journal.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generator.Generate(ctx, s.cfg.Journal, includeUnmatched)
}

type PipelineSummary struct {
	RunID       uuid.UUID         `json:"run_id"`
	Matching    *matching.Summary `json:"matching"`
	Journal     *journal.Summary  `json:"journal,omitempty"`
	StartedAt   time.Time         `json:"started_at"`
	CompletedAt *time.Time        `json:"completed_at"`
	Errors      []string          `json:"errors"`
}

// RunPipeline runs matching and then, if asked, journal generation. Each
// phase commits on its own, so a failed journal phase keeps the matches.
// The run header is stored in every outcome.
func (s *ReconciliationService) RunPipeline(ctx context.Context, generateJournal, includeUnmatched bool) (*PipelineSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run := &models.ProcessingRun{
		ID:        uuid.New(),
		Status:    models.RunProcessing,
		StartedAt: s.now(),
	}
	if err := s.runs.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("create processing run: %w", err)
	}
	defer s.progress.Delete(run.ID)

	summary := &PipelineSummary{RunID: run.ID, StartedAt: run.StartedAt, Errors: []string{}}
	s.logger.Info("pipeline started", "run_id", run.ID, "journal", generateJournal, "include_unmatched", includeUnmatched)

	s.progress.Store(run.ID, PhaseMatching)
	ms, err := s.engine.Run(ctx, s.cfg.Matching)
	if err != nil {
		s.fail(ctx, run, err)
		return summary, fmt.Errorf("matching phase: %w", err)
	}
	summary.Matching = ms
	summary.Errors = append(summary.Errors, ms.Errors...)
	run.TotalPayments = ms.TotalPayments
	run.TotalRemittances = ms.TotalRemittances
	run.AutoMatchedCount = ms.AutoMatched
	run.ManualReviewCount = ms.ManualReview
	run.UnmatchedCount = ms.Unmatched

	if generateJournal {
		s.progress.Store(run.ID, PhaseJournal)
		js, err := s.generator.Generate(ctx, s.cfg.Journal, includeUnmatched)
		if err != nil {
			s.fail(ctx, run, err)
			return summary, fmt.Errorf("journal phase: %w", err)
		}
		summary.Journal = js
		summary.Errors = append(summary.Errors, js.Errors...)
		run.EntriesCreated = js.EntriesCreated
		run.MatchesProcessed = js.MatchesProcessed
		run.UnmatchedProcessed = js.UnmatchedProcessed
	}
	s.progress.Store(run.ID, PhaseDone)

	completed := s.now()
	summary.CompletedAt = &completed
	run.Status = models.RunCompleted
	run.CompletedAt = &completed
	run.Errors = errorsJSON(summary.Errors)
	if err := s.runs.Save(ctx, run); err != nil {
		return summary, fmt.Errorf("save processing run: %w", err)
	}

	s.logger.Info("pipeline complete",
		"run_id", run.ID,
		"auto_matched", run.AutoMatchedCount,
		"manual_review", run.ManualReviewCount,
		"unmatched", run.UnmatchedCount,
		"entries", run.EntriesCreated,
		"errors", len(summary.Errors),
	)
	return summary, nil
}

func (s *ReconciliationService) fail(ctx context.Context, run *models.ProcessingRun, cause error) {
	completed := s.now()
	run.Status = models.RunFailed
	run.FailureReason = cause.Error()
	run.CompletedAt = &completed
	if err := s.runs.Save(ctx, run); err != nil {
		s.logger.Error("failed to record run failure", "run_id", run.ID, "error", err)
	}
	s.logger.Error("pipeline failed", "run_id", run.ID, "error", cause)
}

func errorsJSON(errs []string) []byte {
	if errs == nil {
		errs = []string{}
	}
	b, _ := json.Marshal(errs)
	return b
}

// Phase reports the phase of a run that is still executing.
func (s *ReconciliationService) Phase(runID uuid.UUID) (string, bool) {
	v, ok := s.progress.Load(runID)
	if !ok {
		return "", false
	}
	return v.(string), true
}

func (s *ReconciliationService) ListRuns(ctx context.Context, limit int) ([]models.ProcessingRun, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.runs.List(ctx, limit)
}

func (s *ReconciliationService) GetRun(ctx context.Context, id uuid.UUID) (*models.ProcessingRun, error) {
	run, err := s.runs.GetByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "processing run", id)
	}
	return run, nil
}

// lookupErr turns a missing row into ErrNotFound and wraps everything else.
func lookupErr(err error, what string, id uuid.UUID) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %s: %w", what, id, ErrNotFound)
	}
	return fmt.Errorf("load %s %s: %w", what, id, err)
}

func roundConfidence(score float64) float64 {
	return math.Round(score*10) / 10
}
