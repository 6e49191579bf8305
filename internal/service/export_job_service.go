package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/campusdesk/college-admin-api/internal/models"
	"github.com/campusdesk/college-admin-api/internal/repository"
	appErrors "github.com/campusdesk/college-admin-api/pkg/errors"
	"github.com/campusdesk/college-admin-api/pkg/export"
	"github.com/campusdesk/college-admin-api/pkg/jobs"
	"github.com/campusdesk/college-admin-api/pkg/storage"
)

type exportJobStore interface {
	Create(ctx context.Context, job *models.ExportJob) error
	FindByID(ctx context.Context, id string) (*models.ExportJob, error)
	Update(ctx context.Context, id string, params repository.ExportJobUpdate) error
	ListUnfinished(ctx context.Context, limit int) ([]models.ExportJob, error)
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type exportFileStore interface {
	Save(name string, data []byte) (string, error)
	Open(name string) (*os.File, error)
}

type downloadSigner interface {
	Sign(ownerID, name string) (string, time.Time, error)
	Verify(token string) (*storage.SignedObject, error)
}

// ExportRenderer renders one export kind from the filters saved with the job.
type ExportRenderer func(ctx context.Context, params models.ExportJobParams) (*ExportDocument, error)

// ExportJobConfig shapes the URLs handed back to clients.
type ExportJobConfig struct {
	APIPrefix string
}

func (c ExportJobConfig) url(parts ...string) string {
	prefix := strings.TrimRight(c.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	return prefix + "/" + strings.Join(parts, "/")
}

// ExportDownload is an opened export file ready to stream.
type ExportDownload struct {
	File        *os.File
	Filename    string
	ContentType string
	ExpiresAt   time.Time
}

// ExportJobService queues large exports and serves their results.
type ExportJobService struct {
	repo   exportJobStore
	queue  jobDispatcher
	files  exportFileStore
	signer downloadSigner
	logger *zap.Logger
	cfg    ExportJobConfig
}

// NewExportJobService constructs an ExportJobService.
func NewExportJobService(repo exportJobStore, queue jobDispatcher, files exportFileStore, signer downloadSigner, logger *zap.Logger, cfg ExportJobConfig) *ExportJobService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportJobService{repo: repo, queue: queue, files: files, signer: signer, logger: logger, cfg: cfg}
}

// Submit records a queued job and hands it to the worker pool.
func (s *ExportJobService) Submit(ctx context.Context, kind models.ExportKind, params models.ExportJobParams, actor *models.JWTClaims) (*models.ExportJob, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	job := &models.ExportJob{Kind: kind, Params: params, Status: models.ExportJobQueued, RequestedBy: actor.UserID}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create export job")
	}
	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: string(kind)}); err != nil {
		s.markFailed(ctx, job.ID, "export queue unavailable")
		if errors.Is(err, jobs.ErrFull) {
			return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "export queue is full; retry later")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue export job")
	}
	s.logger.Info("export queued", zap.String("job_id", job.ID), zap.String("kind", string(kind)), zap.String("requested_by", actor.UserID))
	job.StatusURL = s.cfg.url("exports", "jobs", job.ID)
	return job, nil
}

// Status returns a job to its requester or to an administrator.
func (s *ExportJobService) Status(ctx context.Context, id string, actor *models.JWTClaims) (*models.ExportJob, error) {
	job, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor == nil || (job.RequestedBy != actor.UserID && !actor.Role.IsAdministrator()) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "export belongs to another user")
	}
	job.StatusURL = s.cfg.url("exports", "jobs", job.ID)
	return job, nil
}

// ResolveDownload verifies a signed token and opens the finished export.
func (s *ExportJobService) ResolveDownload(ctx context.Context, token string) (*ExportDownload, error) {
	obj, err := s.signer.Verify(token)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "download link expired; request the export again")
		}
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid download link")
	}
	job, err := s.load(ctx, obj.OwnerID)
	if err != nil {
		return nil, err
	}
	if job.Status != models.ExportJobFinished || job.FileName == nil || *job.FileName != obj.Name {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "download link does not match this export")
	}
	file, err := s.files.Open(obj.Name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export file was pruned; request the export again")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export file")
	}
	return &ExportDownload{
		File:        file,
		Filename:    path.Base(obj.Name),
		ContentType: export.Format(job.Params.Format).ContentType(),
		ExpiresAt:   obj.ExpiresAt,
	}, nil
}

// Recover requeues jobs left unfinished by a previous process.
func (s *ExportJobService) Recover(ctx context.Context) int {
	pending, err := s.repo.ListUnfinished(ctx, 50)
	if err != nil {
		s.logger.Warn("failed to list unfinished exports", zap.Error(err))
		return 0
	}
	requeued := 0
	for _, job := range pending {
		if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: string(job.Kind)}); err != nil {
			s.logger.Warn("failed to requeue export", zap.String("job_id", job.ID), zap.Error(err))
			continue
		}
		requeued++
	}
	return requeued
}

func (s *ExportJobService) load(ctx context.Context, id string) (*models.ExportJob, error) {
	job, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load export job")
	}
	return job, nil
}

func (s *ExportJobService) markFailed(ctx context.Context, id, msg string) {
	markExportFailed(ctx, s.repo, s.logger, id, msg)
}

// ExportWorker renders queued exports. Register every kind before the queue starts.
type ExportWorker struct {
	repo      exportJobStore
	files     exportFileStore
	signer    downloadSigner
	renderers map[models.ExportKind]ExportRenderer
	logger    *zap.Logger
	cfg       ExportJobConfig
	now       func() time.Time
}

// NewExportWorker constructs an ExportWorker.
func NewExportWorker(repo exportJobStore, files exportFileStore, signer downloadSigner, logger *zap.Logger, cfg ExportJobConfig) *ExportWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportWorker{
		repo:      repo,
		files:     files,
		signer:    signer,
		renderers: make(map[models.ExportKind]ExportRenderer),
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Register binds a renderer to an export kind.
func (w *ExportWorker) Register(kind models.ExportKind, render ExportRenderer) {
	w.renderers[kind] = render
}

// Handle renders, stores and signs one job. Errors are retried by the queue.
func (w *ExportWorker) Handle(ctx context.Context, job jobs.Job) error {
	record, err := w.repo.FindByID(ctx, job.ID)
	if err != nil {
		return fmt.Errorf("load export job: %w", err)
	}
	if record.Status == models.ExportJobFinished || record.Status == models.ExportJobFailed {
		return nil
	}
	render, ok := w.renderers[record.Kind]
	if !ok {
		markExportFailed(ctx, w.repo, w.logger, record.ID, fmt.Sprintf("unsupported export kind %s", record.Kind))
		return nil
	}

	running := models.ExportJobRunning
	if err := w.repo.Update(ctx, record.ID, repository.ExportJobUpdate{Status: &running}); err != nil {
		return err
	}
	doc, err := render(ctx, record.Params)
	if err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) && appErr.Status < 500 {
			markExportFailed(ctx, w.repo, w.logger, record.ID, appErr.Message)
			return nil
		}
		return err
	}

	name := path.Join(string(record.Kind), record.ID, doc.Filename)
	if _, err := w.files.Save(name, doc.Body); err != nil {
		return err
	}
	token, expiresAt, err := w.signer.Sign(record.ID, name)
	if err != nil {
		return err
	}
	finished := models.ExportJobFinished
	url := w.cfg.url("exports", "download", token)
	rows := doc.Rows
	now := w.now().UTC()
	clear := ""
	if err := w.repo.Update(ctx, record.ID, repository.ExportJobUpdate{
		Status:       &finished,
		RowCount:     &rows,
		FileName:     &name,
		ResultURL:    &url,
		ErrorMessage: &clear,
		FinishedAt:   &now,
	}); err != nil {
		return err
	}
	w.logger.Info("export finished",
		zap.String("job_id", record.ID),
		zap.String("kind", string(record.Kind)),
		zap.Int("rows", rows),
		zap.Time("link_expires_at", expiresAt),
	)
	return nil
}

// GiveUp marks a job failed once the queue stops retrying it.
func (w *ExportWorker) GiveUp(ctx context.Context, job jobs.Job, err error) {
	// The queue context may already be cancelled on shutdown.
	markExportFailed(context.WithoutCancel(ctx), w.repo, w.logger, job.ID, err.Error())
}

func markExportFailed(ctx context.Context, repo exportJobStore, logger *zap.Logger, id, msg string) {
	failed := models.ExportJobFailed
	now := time.Now().UTC()
	if err := repo.Update(ctx, id, repository.ExportJobUpdate{Status: &failed, ErrorMessage: &msg, FinishedAt: &now}); err != nil {
		logger.Warn("failed to mark export failed", zap.String("job_id", id), zap.Error(err))
	}
}
