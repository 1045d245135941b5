package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/printfleet/printfleet-api/internal/models"
	appErrors "github.com/printfleet/printfleet-api/pkg/errors"
	"github.com/printfleet/printfleet-api/pkg/jobs"
	"github.com/printfleet/printfleet-api/pkg/storage"
)

type planRenderer interface {
	Export(ctx context.Context, planID, format string) ([]byte, string, string, error)
}

type artifactStore interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// PlanExportConfig tunes the export worker pool and artifact retention.
type PlanExportConfig struct {
	Workers         int
	QueueSize       int
	MaxRetries      int
	RetryDelay      time.Duration
	ArtifactTTL     time.Duration
	CleanupInterval time.Duration
}

// PlanExportService renders stored plans to file artifacts in the background.
// Enqueue returns a job immediately; a worker renders the plan, stores the
// file and signs a download token. Job records live in memory alongside the
// queue: an export is cheap to redo after a restart, the artifact itself is
// what gets retained.
type PlanExportService struct {
	renderer planRenderer
	store    artifactStore
	signer   *storage.TokenSigner
	logger   *zap.Logger
	cfg      PlanExportConfig

	queue *jobs.Queue
	mu    sync.RWMutex
	jobs  map[string]*models.ExportJob
}

type exportTask struct {
	PlanID string
	Format string
}

// NewPlanExportService wires the export pipeline. Start launches the workers.
func NewPlanExportService(
	renderer planRenderer,
	store artifactStore,
	signer *storage.TokenSigner,
	logger *zap.Logger,
	cfg PlanExportConfig,
) *PlanExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &PlanExportService{
		renderer: renderer,
		store:    store,
		signer:   signer,
		logger:   logger,
		cfg:      cfg,
		jobs:     make(map[string]*models.ExportJob),
	}
	s.queue = jobs.NewQueue("plan-exports", s.process, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.QueueSize,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return s
}

// Start launches the workers and the artifact janitor.
func (s *PlanExportService) Start(ctx context.Context) {
	s.queue.Start(ctx)
	if s.cfg.ArtifactTTL > 0 && s.cfg.CleanupInterval > 0 {
		go s.janitor(ctx)
	}
}

// Stop drains the workers.
func (s *PlanExportService) Stop() {
	s.queue.Stop()
}

// Enqueue registers an export job for a stored plan and hands it to the pool.
func (s *PlanExportService) Enqueue(_ context.Context, planID, format string) (*models.ExportJob, error) {
	if planID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "plan id is required")
	}
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "pdf" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	job := &models.ExportJob{
		ID:          uuid.NewString(),
		PlanID:      planID,
		Format:      format,
		Status:      models.ExportJobPending,
		RequestedAt: time.Now().UTC(),
	}
	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()

	err := s.queue.Enqueue(jobs.Job{
		ID:      job.ID,
		Type:    "plan_export",
		Payload: exportTask{PlanID: planID, Format: format},
	})
	if err != nil {
		s.mu.Lock()
		delete(s.jobs, job.ID)
		s.mu.Unlock()
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue export")
	}

	snapshot := *job
	return &snapshot, nil
}

// Job returns the current state of an export job.
func (s *PlanExportService) Job(id string) (*models.ExportJob, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, false
	}
	snapshot := *job
	return &snapshot, true
}

// OpenDownload checks a signed token and opens the artifact it covers.
func (s *PlanExportService) OpenDownload(jobID, token string) (*os.File, string, string, error) {
	tokenJobID, relPath, err := s.signer.Verify(token)
	if err != nil {
		return nil, "", "", appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid download token")
	}
	if tokenJobID != jobID {
		return nil, "", "", appErrors.Clone(appErrors.ErrUnauthorized, "token does not match export job")
	}
	job, ok := s.Job(jobID)
	if !ok || job.Status != models.ExportJobCompleted {
		return nil, "", "", appErrors.Clone(appErrors.ErrNotFound, "export not available")
	}
	file, err := s.store.Open(relPath)
	if err != nil {
		return nil, "", "", appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "export artifact missing")
	}
	return file, contentTypeFor(job.Format), job.FileName, nil
}

// process is the queue handler: render, store, sign. A returned error lets
// the queue retry with the same job ID.
func (s *PlanExportService) process(ctx context.Context, job jobs.Job) error {
	task, ok := job.Payload.(exportTask)
	if !ok {
		s.logger.Error("export job carried unexpected payload", zap.String("job_id", job.ID))
		return nil
	}
	s.update(job.ID, func(j *models.ExportJob) {
		j.Status = models.ExportJobRunning
		j.Error = ""
	})

	data, _, name, err := s.renderer.Export(ctx, task.PlanID, task.Format)
	if err != nil {
		s.fail(job.ID, err)
		return err
	}

	relPath := filepath.Join("plans", fmt.Sprintf("%s-%s", job.ID, name))
	if _, err := s.store.Save(relPath, data); err != nil {
		s.fail(job.ID, err)
		return err
	}
	token, expiresAt, err := s.signer.Sign(job.ID, relPath)
	if err != nil {
		s.fail(job.ID, err)
		return err
	}

	now := time.Now().UTC()
	s.update(job.ID, func(j *models.ExportJob) {
		j.Status = models.ExportJobCompleted
		j.FileName = name
		j.DownloadToken = token
		j.ExpiresAt = &expiresAt
		j.CompletedAt = &now
	})
	s.logger.Info("plan export completed",
		zap.String("job_id", job.ID),
		zap.String("plan_id", task.PlanID),
		zap.String("format", task.Format))
	return nil
}

func (s *PlanExportService) fail(jobID string, err error) {
	s.update(jobID, func(j *models.ExportJob) {
		j.Status = models.ExportJobFailed
		j.Error = err.Error()
	})
}

func (s *PlanExportService) update(jobID string, mutate func(*models.ExportJob)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[jobID]; ok {
		mutate(job)
	}
}

func (s *PlanExportService) janitor(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := s.store.CleanupOlderThan(s.cfg.ArtifactTTL)
			if err != nil {
				s.logger.Warn("export cleanup failed", zap.Error(err))
				continue
			}
			if len(deleted) > 0 {
				s.logger.Info("stale export artifacts removed", zap.Int("count", len(deleted)))
			}
		}
	}
}

func contentTypeFor(format string) string {
	if format == "pdf" {
		return "application/pdf"
	}
	return "text/csv"
}
