// Package app wires repositories and services for the API server and the CLI.
package app

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/campusdesk/college-admin-api/internal/handler"
	"github.com/campusdesk/college-admin-api/internal/models"
	"github.com/campusdesk/college-admin-api/internal/repository"
	"github.com/campusdesk/college-admin-api/internal/service"
	"github.com/campusdesk/college-admin-api/internal/substitution"
	"github.com/campusdesk/college-admin-api/pkg/config"
	appErrors "github.com/campusdesk/college-admin-api/pkg/errors"
	"github.com/campusdesk/college-admin-api/pkg/jobs"
	"github.com/campusdesk/college-admin-api/pkg/storage"
)

const (
	cachePrefix      = "college"
	exportRetryDelay = 5 * time.Second
)

type exportSubmitter interface {
	Submit(ctx context.Context, kind models.ExportKind, params models.ExportJobParams, actor *models.JWTClaims) (*models.ExportJob, error)
}

// Container holds every long-lived service.
type Container struct {
	Metrics       *service.MetricsService
	Exporter      *service.ExportService
	Auth          *service.AuthService
	Teachers      *service.TeacherService
	Students      *service.StudentService
	Lectures      *service.LectureService
	Leaves        *service.LeaveService
	Substitutes   *service.SubstituteService
	Announcements *service.AnnouncementService
	Audit         *service.AuditService
	Configuration *service.ConfigurationService
	Dashboard     *service.DashboardService
	// ExportJobs and ExportQueue are nil when the export directory is unusable;
	// exports then always render inline.
	ExportJobs  *service.ExportJobService
	ExportQueue *jobs.Queue

	AuditLog         *repository.AuditRepository
	TeacherDirectory *repository.TeacherRepository
}

// New builds the service graph. rdb may be nil, in which case caching is off.
func New(cfg *config.Config, db *sqlx.DB, rdb *redis.Client, logger *zap.Logger) *Container {
	validate := validator.New()
	metrics := service.NewMetricsService()

	auditRepo := repository.NewAuditRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	lectureRepo := repository.NewLectureRepository(db)
	leaveRepo := repository.NewLeaveRepository(db)

	cache := service.NewCacheService(
		repository.NewCacheRepository(rdb, cachePrefix),
		metrics,
		cfg.Substitution.CoverageCacheTTL,
		logger.Named("cache"),
		rdb != nil,
	)
	var dashboardCache *service.CacheService
	if cfg.Dashboard.CacheEnabled {
		dashboardCache = cache
	}

	exporter := service.NewExportService(service.ExportConfig{
		MaxRows:      cfg.Exports.MaxRows,
		AsyncMaxRows: cfg.Exports.AsyncMaxRows,
	}, logger.Named("export"), nil, nil)

	var (
		exportJobs  *service.ExportJobService
		exportQueue *jobs.Queue
		exportWork  *service.ExportWorker
		submitter   exportSubmitter
	)
	if files, err := storage.NewLocalStorage(cfg.Exports.Dir); err != nil {
		logger.Warn("export directory unavailable; large exports will render inline", zap.String("dir", cfg.Exports.Dir), zap.Error(err))
	} else {
		exportRepo := repository.NewExportJobRepository(db)
		signer := storage.NewURLSigner(cfg.Exports.SigningSecret, cfg.Exports.URLTTL)
		jobCfg := service.ExportJobConfig{APIPrefix: cfg.APIPrefix}
		exportWork = service.NewExportWorker(exportRepo, files, signer, logger.Named("export_worker"), jobCfg)
		exportQueue = jobs.NewQueue("exports", exportWork.Handle, jobs.QueueConfig{
			Workers:    cfg.Exports.Workers,
			MaxRetries: cfg.Exports.MaxRetries,
			RetryDelay: exportRetryDelay,
			OnGiveUp:   exportWork.GiveUp,
			Logger:     logger.Named("jobs"),
		})
		exportJobs = service.NewExportJobService(exportRepo, exportQueue, files, signer, logger.Named("exports"), jobCfg)
		submitter = exportJobs
	}
	configuration := service.NewConfigurationService(
		repository.NewConfigurationRepository(db), auditRepo, validate, logger.Named("configuration"), service.ConfigurationServiceConfig{},
	)

	substitutes := service.NewSubstituteService(service.SubstituteDeps{
		Repo:     repository.NewSubstituteRepository(db),
		Lectures: lectureRepo,
		Teachers: teacherRepo,
		Leaves:   leaveRepo,
		Policy:   configuration,
		Audit:    auditRepo,
		Cache:    cache,
		Metrics:  metrics,
		Exporter: exporter,
		Jobs:     submitter,
	}, validate, logger.Named("substitutes"), service.SubstituteServiceConfig{
		FuzzWindow: cfg.Substitution.FuzzWindow,
		Bands: substitution.Bands{
			Warning: cfg.Substitution.WarningThreshold,
			Caution: cfg.Substitution.CautionThreshold,
		},
		CoverageCacheTTL: cfg.Substitution.CoverageCacheTTL,
	})
	audit := service.NewAuditService(auditRepo, exporter, submitter, logger.Named("audit"))
	if exportWork != nil {
		exportWork.Register(models.ExportKindSubstituteReport, substitutes.RenderQueuedReport)
		exportWork.Register(models.ExportKindAuditLog, audit.RenderQueued)
	}

	return &Container{
		Metrics:  metrics,
		Exporter: exporter,
		Auth: service.NewAuthService(repository.NewUserRepository(db), auditRepo, validate, logger.Named("auth"), service.AuthConfig{
			AccessTokenSecret: cfg.JWT.Secret,
			AccessTokenExpiry: cfg.JWT.Expiration,
			Issuer:            cfg.JWT.Issuer,
		}),
		Teachers: service.NewTeacherService(teacherRepo, auditRepo, validate, logger.Named("teachers")),
		Students: service.NewStudentService(repository.NewStudentRepository(db), auditRepo, validate, logger.Named("students")),
		Lectures: service.NewLectureService(lectureRepo, teacherRepo, auditRepo, cache, validate, logger.Named("lectures"), service.LectureServiceConfig{
			FuzzWindow: cfg.Substitution.FuzzWindow,
		}),
		Leaves:        service.NewLeaveService(leaveRepo, teacherRepo, auditRepo, cache, validate, logger.Named("leaves")),
		Substitutes:   substitutes,
		Announcements: service.NewAnnouncementService(repository.NewAnnouncementRepository(db), auditRepo, validate, logger.Named("announcements")),
		Audit:         audit,
		Configuration: configuration,
		Dashboard: service.NewDashboardService(repository.NewDashboardRepository(db), dashboardCache, logger.Named("dashboard"), service.DashboardServiceConfig{
			CacheTTL: cfg.Dashboard.CacheTTL,
		}),
		ExportJobs:       exportJobs,
		ExportQueue:      exportQueue,
		AuditLog:         auditRepo,
		TeacherDirectory: teacherRepo,
	}
}

// StartBackground starts the export workers and requeues exports left
// unfinished by a previous process. The returned func stops the workers.
func (c *Container) StartBackground(ctx context.Context) (stop func()) {
	if c.ExportQueue == nil {
		return func() {}
	}
	c.ExportQueue.Start(ctx)
	c.ExportJobs.Recover(ctx)
	return c.ExportQueue.Stop
}

// Handlers returns the HTTP handlers backed by this container.
func (c *Container) Handlers() handler.Handlers {
	return handler.Handlers{
		Auth:          handler.NewAuthHandler(c.Auth),
		Teachers:      handler.NewTeacherHandler(c.Teachers),
		Students:      handler.NewStudentHandler(c.Students),
		Lectures:      handler.NewLectureHandler(c.Lectures),
		Leaves:        handler.NewLeaveHandler(c.Leaves),
		Substitutes:   handler.NewSubstituteHandler(c.Substitutes),
		Announcements: handler.NewAnnouncementHandler(c.Announcements),
		Audit:         handler.NewAuditHandler(c.Audit),
		Configuration: handler.NewConfigurationHandler(c.Configuration),
		Dashboard:     handler.NewDashboardHandler(c.Dashboard),
		Exports:       handler.NewExportJobHandler(c.exportJobs()),
	}
}

// RouteDeps returns the non-handler dependencies of the route table.
func (c *Container) RouteDeps(logger *zap.Logger) handler.RouteDeps {
	return handler.RouteDeps{Tokens: c.Auth, AuditLog: c.AuditLog, Logger: logger, Teachers: c.TeacherDirectory}
}

type exportStatusService interface {
	Status(ctx context.Context, id string, actor *models.JWTClaims) (*models.ExportJob, error)
	ResolveDownload(ctx context.Context, token string) (*service.ExportDownload, error)
}

// inlineOnlyExports answers export routes when no job was ever queued.
type inlineOnlyExports struct{}

func (inlineOnlyExports) Status(context.Context, string, *models.JWTClaims) (*models.ExportJob, error) {
	return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
}

func (inlineOnlyExports) ResolveDownload(context.Context, string) (*service.ExportDownload, error) {
	return nil, appErrors.Clone(appErrors.ErrNotFound, "export not found")
}

// exportJobs keeps the handler's interface nil-safe when exports are inline-only.
func (c *Container) exportJobs() exportStatusService {
	if c.ExportJobs == nil {
		return inlineOnlyExports{}
	}
	return c.ExportJobs
}
