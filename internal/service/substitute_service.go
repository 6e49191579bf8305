package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campusdesk/college-admin-api/internal/dto"
	"github.com/campusdesk/college-admin-api/internal/models"
	"github.com/campusdesk/college-admin-api/internal/substitution"
	appErrors "github.com/campusdesk/college-admin-api/pkg/errors"
	"github.com/campusdesk/college-admin-api/pkg/export"
)

type substituteRepository interface {
	ListNeedingCoverage(ctx context.Context, filter models.CoverageFilter) ([]models.CoverageNeed, error)
	CountWorkload(ctx context.Context, from, to string) ([]models.WorkloadCount, error)
	Report(ctx context.Context, filter models.SubstituteReportFilter) ([]models.SubstituteReportRow, error)
	Assign(ctx context.Context, assignment *models.SubstituteAssignment, guard func(locked models.Lecture, substituteDay []models.Lecture) error) (*models.Lecture, error)
	FindPendingRequest(ctx context.Context, lectureID string) (*models.SubstituteRequest, error)
	ListRequests(ctx context.Context, status string) ([]models.SubstituteRequest, error)
	CreateRequest(ctx context.Context, req *models.SubstituteRequest) error
}

type lectureLookup interface {
	FindByID(ctx context.Context, id string) (*models.Lecture, error)
	ListByDate(ctx context.Context, date string) ([]models.Lecture, error)
}

type exportSubmitter interface {
	Submit(ctx context.Context, kind models.ExportKind, params models.ExportJobParams, actor *models.JWTClaims) (*models.ExportJob, error)
}

type teacherLister interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
	ListAll(ctx context.Context) ([]models.Teacher, error)
}

type substitutionPolicy interface {
	IsDepartmentOverrideEnabled(ctx context.Context) (bool, error)
	IsSubstituteRequestsEnabled(ctx context.Context) (bool, error)
	CollegeDisplayName(ctx context.Context) string
}

// SubstituteServiceConfig tunes matching, ranking bands and caching.
type SubstituteServiceConfig struct {
	FuzzWindow       time.Duration
	Bands            substitution.Bands
	CoverageCacheTTL time.Duration
}

// SubstituteService finds, ranks and commits substitute teachers.
type SubstituteService struct {
	repo      substituteRepository
	lectures  lectureLookup
	teachers  teacherLister
	leaves    approvedLeaveReader
	policy    substitutionPolicy
	audit     auditWriter
	cache     *CacheService
	metrics   *MetricsService
	exporter  *ExportService
	jobs      exportSubmitter
	matcher   substitution.Matcher
	cfg       SubstituteServiceConfig
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// SubstituteDeps bundles the collaborators of SubstituteService.
type SubstituteDeps struct {
	Repo     substituteRepository
	Lectures lectureLookup
	Teachers teacherLister
	Leaves   approvedLeaveReader
	Policy   substitutionPolicy
	Audit    auditWriter
	Cache    *CacheService
	Metrics  *MetricsService
	Exporter *ExportService
	// Jobs queues exports too large to render inline. Nil renders everything inline.
	Jobs exportSubmitter
}

// NewSubstituteService constructs a SubstituteService.
func NewSubstituteService(deps SubstituteDeps, validate *validator.Validate, logger *zap.Logger, cfg SubstituteServiceConfig) *SubstituteService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Bands.Warning <= 0 || cfg.Bands.Caution <= 0 {
		cfg.Bands = substitution.DefaultBands()
	}
	if cfg.CoverageCacheTTL <= 0 {
		cfg.CoverageCacheTTL = time.Minute
	}
	if deps.Exporter == nil {
		deps.Exporter = NewExportService(ExportConfig{}, logger, nil, nil)
	}
	return &SubstituteService{
		repo:      deps.Repo,
		lectures:  deps.Lectures,
		teachers:  deps.Teachers,
		leaves:    deps.Leaves,
		policy:    deps.Policy,
		audit:     deps.Audit,
		cache:     deps.Cache,
		metrics:   deps.Metrics,
		exporter:  deps.Exporter,
		jobs:      deps.Jobs,
		matcher:   substitution.NewMatcher(cfg.FuzzWindow),
		cfg:       cfg,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// NeedingCoverage lists upcoming lectures that have no substitute and whose
// teacher is on approved leave or has a pending substitute request. Past dates
// are never included. The boolean reports a cache hit.
func (s *SubstituteService) NeedingCoverage(ctx context.Context, filter models.CoverageFilter) ([]models.CoverageNeed, bool, error) {
	today := s.today()
	if filter.FromDate == "" || filter.FromDate < today {
		filter.FromDate = today
	}
	if filter.ToDate != "" && filter.ToDate < filter.FromDate {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "to_date must not be before today or from_date")
	}

	key := Key(cacheNamespaceCoverage, filter.FromDate, filter.ToDate, filter.Department)
	var cached []models.CoverageNeed
	if s.cache.Get(ctx, key, &cached) {
		return cached, true, nil
	}

	needs, err := s.repo.ListNeedingCoverage(ctx, filter)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list lectures needing coverage")
	}
	if needs == nil {
		needs = []models.CoverageNeed{}
	}
	if filter.ToDate == "" && filter.Department == "" {
		s.metrics.SetCoverageBacklog(len(needs))
	}
	s.cache.Set(ctx, key, needs, s.cfg.CoverageCacheTTL)
	return needs, false, nil
}

// Available returns eligible substitutes for a lecture ranked by this month's
// workload. ignoreDepartment lifts the department filter for this call only.
func (s *SubstituteService) Available(ctx context.Context, lectureID string, ignoreDepartment bool, actor *models.JWTClaims) (*dto.AvailableTeachersResponse, error) {
	if lectureID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "lecture_id is required")
	}
	if ignoreDepartment {
		if err := s.authorizeOverride(ctx, actor); err != nil {
			return nil, err
		}
	}
	lecture, err := s.loadLecture(ctx, lectureID)
	if err != nil {
		return nil, err
	}
	if lecture.Status == models.LectureStatusCancelled || lecture.Status == models.LectureStatusCompleted {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, fmt.Sprintf("lecture is %s", lecture.Status))
	}

	in, err := s.matchInput(ctx, *lecture, ignoreDepartment)
	if err != nil {
		return nil, err
	}
	eligible, err := s.matcher.Eligible(in)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "lecture has an invalid time slot")
	}
	counts, err := s.monthlyCounts(ctx)
	if err != nil {
		return nil, err
	}
	department, _ := substitution.DepartmentOf(in.Teachers, lecture.ScheduledTeacher())

	return &dto.AvailableTeachersResponse{
		Lecture:    *lecture,
		Department: department,
		Override:   ignoreDepartment,
		Candidates: substitution.RankByWorkload(eligible, counts, s.cfg.Bands),
	}, nil
}

// Assign commits a substitute for a lecture in one transaction. Eligibility is
// checked against the current timetable, then re-checked against the locked
// lecture row and the substitute's lectures read under lock, so a concurrent
// cancel, reschedule or competing assignment aborts the commit.
func (s *SubstituteService) Assign(ctx context.Context, req dto.AssignSubstituteRequest, actor *models.JWTClaims) (*dto.AssignSubstituteResponse, error) {
	started := s.now()
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}
	notes := normalizeOptional(req.Notes)
	if req.Override {
		if notes == nil {
			s.metrics.RecordRejectedAssignment("missing_justification")
			return nil, appErrors.Clone(appErrors.ErrValidation, "department override requires a justification in notes")
		}
		if err := s.authorizeOverride(ctx, actor); err != nil {
			s.metrics.RecordRejectedAssignment("override_forbidden")
			return nil, err
		}
	}

	lecture, err := s.loadLecture(ctx, req.LectureID)
	if err != nil {
		return nil, err
	}
	if err := assignableStatus(*lecture); err != nil {
		s.metrics.RecordRejectedAssignment("lecture_" + string(lecture.Status))
		return nil, err
	}
	if req.OriginalTeacherID != nil && *req.OriginalTeacherID != "" && *req.OriginalTeacherID != lecture.ScheduledTeacher() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "original_teacher_id does not match the lecture's scheduled teacher")
	}

	in, err := s.matchInput(ctx, *lecture, req.Override)
	if err != nil {
		return nil, err
	}
	if err := s.matcher.Check(in, req.SubstituteTeacherID); err != nil {
		return nil, s.rejectCandidate(err)
	}

	assignment := &models.SubstituteAssignment{
		LectureID:           lecture.ID,
		OriginalTeacherID:   optionalString(lecture.ScheduledTeacher()),
		SubstituteTeacherID: req.SubstituteTeacherID,
		LeaveRequestID:      normalizeOptional(req.LeaveRequestID),
		Notes:               notes,
		IsOverride:          req.Override,
		AssignedBy:          userIDPtr(actor),
	}
	updated, err := s.repo.Assign(ctx, assignment, func(locked models.Lecture, substituteDay []models.Lecture) error {
		if err := assignableStatus(locked); err != nil {
			return err
		}
		if locked.Date != lecture.Date || locked.StartTime != lecture.StartTime || locked.EndTime != lecture.EndTime ||
			locked.ScheduledTeacher() != lecture.ScheduledTeacher() {
			return appErrors.Clone(appErrors.ErrConflict, "lecture changed while assigning; reload and retry")
		}
		if busy, err := s.matcher.Busy(locked, req.SubstituteTeacherID, substituteDay); err != nil || busy {
			s.metrics.RecordRejectedAssignment("unavailable")
			return appErrors.Clone(appErrors.ErrConflict, "substitute was booked for this slot while assigning; reload and retry")
		}
		return nil
	})
	if err != nil {
		var typed *appErrors.Error
		if errors.As(err, &typed) {
			return nil, typed
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lecture not found")
		}
		s.logger.Error("substitute assignment failed", zap.String("lecture_id", lecture.ID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign substitute")
	}

	s.metrics.RecordSubstitution(req.Override, s.now().Sub(started))
	writeAudit(ctx, s.audit, s.logger, &models.AuditLog{
		UserID:     userIDPtr(actor),
		Action:     models.AuditActionSubstituteAssign,
		Resource:   "lecture",
		ResourceID: &lecture.ID,
		OldValues:  marshalAudit(lecture),
		NewValues:  marshalAudit(assignment),
	})
	s.cache.Invalidate(ctx, cacheNamespaceCoverage, cacheNamespaceDashboard)
	s.logger.Info("substitute assigned",
		zap.String("lecture_id", lecture.ID),
		zap.String("substitute_teacher_id", assignment.SubstituteTeacherID),
		zap.Bool("override", assignment.IsOverride))

	return &dto.AssignSubstituteResponse{Assignment: *assignment, Lecture: *updated}, nil
}

// Request records a pending coverage request for a lecture. Teachers may only
// request cover for their own lectures.
func (s *SubstituteService) Request(ctx context.Context, payload dto.SubstituteRequestPayload, actor *models.JWTClaims) (*models.SubstituteRequest, error) {
	if actor == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "")
	}
	if s.policy != nil {
		enabled, err := s.policy.IsSubstituteRequestsEnabled(ctx)
		if err != nil {
			return nil, err
		}
		if !enabled {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "substitute requests are disabled")
		}
	}
	if err := s.validator.Struct(payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid substitute request payload")
	}
	lecture, err := s.loadLecture(ctx, payload.LectureID)
	if err != nil {
		return nil, err
	}
	if err := assignableStatus(*lecture); err != nil {
		return nil, err
	}
	if actor.Role == models.RoleTeacher && lecture.ScheduledTeacher() != actor.TeacherID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "teachers may only request cover for their own lectures")
	}

	existing, err := s.repo.FindPendingRequest(ctx, lecture.ID)
	switch {
	case err == nil && existing != nil:
		return nil, appErrors.Clone(appErrors.ErrConflict, "a pending request already exists for this lecture")
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check pending requests")
	}

	request := &models.SubstituteRequest{
		LectureID:      lecture.ID,
		RequestedBy:    actor.UserID,
		LeaveRequestID: normalizeOptional(payload.LeaveRequestID),
		Notes:          normalizeOptional(payload.Notes),
		Status:         models.SubstituteRequestPending,
	}
	if err := s.repo.CreateRequest(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create substitute request")
	}
	writeAudit(ctx, s.audit, s.logger, &models.AuditLog{
		UserID:     userIDPtr(actor),
		Action:     models.AuditActionSubstituteRequest,
		Resource:   "substitute_request",
		ResourceID: &request.ID,
		NewValues:  marshalAudit(request),
	})
	s.cache.Invalidate(ctx, cacheNamespaceCoverage, cacheNamespaceDashboard)
	return request, nil
}

// ListRequests returns coverage requests, optionally by status.
func (s *SubstituteService) ListRequests(ctx context.Context, status string) ([]models.SubstituteRequest, error) {
	switch models.SubstituteRequestStatus(status) {
	case "", models.SubstituteRequestPending, models.SubstituteRequestFulfilled, models.SubstituteRequestCancelled:
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid request status")
	}
	requests, err := s.repo.ListRequests(ctx, status)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list substitute requests")
	}
	if requests == nil {
		requests = []models.SubstituteRequest{}
	}
	return requests, nil
}

// Report returns assignment history for lectures dated within the window.
// Empty bounds default to the current month.
func (s *SubstituteService) Report(ctx context.Context, filter models.SubstituteReportFilter) ([]models.SubstituteReportRow, error) {
	filter, err := s.normalizeReportFilter(filter)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.Report(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load substitute report")
	}
	if rows == nil {
		rows = []models.SubstituteReportRow{}
	}
	return rows, nil
}

// ExportReport renders the report as CSV or PDF, capped at the export row limit.
func (s *SubstituteService) ExportReport(ctx context.Context, filter models.SubstituteReportFilter, format export.Format) (*ExportDocument, error) {
	filter.Limit = s.exporter.MaxRows()
	rows, err := s.Report(ctx, filter)
	if err != nil {
		return nil, err
	}
	return s.renderReport(ctx, filter, rows, format)
}

// RequestReportExport renders the report inline when it fits the export row
// limit. Larger reports, or any report when async is set, are queued and the
// job is returned instead of a document.
func (s *SubstituteService) RequestReportExport(ctx context.Context, filter models.SubstituteReportFilter, format export.Format, async bool, actor *models.JWTClaims) (*ExportDocument, *models.ExportJob, error) {
	if s.jobs == nil {
		doc, err := s.ExportReport(ctx, filter, format)
		return doc, nil, err
	}
	normalized, err := s.normalizeReportFilter(filter)
	if err != nil {
		return nil, nil, err
	}
	if !async {
		normalized.Limit = s.exporter.MaxRows() + 1
		rows, err := s.Report(ctx, normalized)
		if err != nil {
			return nil, nil, err
		}
		if len(rows) <= s.exporter.MaxRows() {
			doc, err := s.renderReport(ctx, normalized, rows, format)
			return doc, nil, err
		}
	}
	job, err := s.jobs.Submit(ctx, models.ExportKindSubstituteReport, models.ExportJobParams{
		Format:    string(format),
		StartDate: normalized.StartDate,
		EndDate:   normalized.EndDate,
		TeacherID: normalized.TeacherID,
	}, actor)
	if err != nil {
		return nil, nil, err
	}
	return nil, job, nil
}

// RenderQueuedReport is the export worker's renderer for substitute reports.
func (s *SubstituteService) RenderQueuedReport(ctx context.Context, params models.ExportJobParams) (*ExportDocument, error) {
	format, err := export.ParseFormat(params.Format)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "format must be csv or pdf")
	}
	filter := params.ReportFilter()
	filter.Limit = s.exporter.AsyncMaxRows()
	rows, err := s.Report(ctx, filter)
	if err != nil {
		return nil, err
	}
	return s.renderReport(ctx, filter, rows, format)
}

func (s *SubstituteService) renderReport(ctx context.Context, filter models.SubstituteReportFilter, rows []models.SubstituteReportRow, format export.Format) (*ExportDocument, error) {
	filter, _ = s.normalizeReportFilter(filter)

	headers := []string{"Date", "Start", "End", "Subject", "Class", "Original Teacher", "Substitute", "Override", "Notes", "Assigned At"}
	data := export.Dataset{Headers: headers, Rows: make([]map[string]string, 0, len(rows))}
	for _, row := range rows {
		data.Rows = append(data.Rows, map[string]string{
			"Date":             row.LectureDate,
			"Start":            row.StartTime,
			"End":              row.EndTime,
			"Subject":          row.Subject,
			"Class":            row.ClassYear + " " + row.Division,
			"Original Teacher": deref(row.OriginalTeacherName),
			"Substitute":       row.SubstituteTeacherName,
			"Override":         strconv.FormatBool(row.IsOverride),
			"Notes":            deref(row.Notes),
			"Assigned At":      formatTimestamp(row.CreatedAt),
		})
	}
	title := fmt.Sprintf("Substitute Report %s to %s", filter.StartDate, filter.EndDate)
	if s.policy != nil {
		if college := strings.TrimSpace(s.policy.CollegeDisplayName(ctx)); college != "" {
			title = college + " - " + title
		}
	}
	doc, err := s.exporter.Render(format, "substitute_report", title, data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render substitute report")
	}
	return doc, nil
}

// Workload returns a teacher's substitution count for the current month.
func (s *SubstituteService) Workload(ctx context.Context, teacherID string) (*dto.WorkloadResponse, error) {
	if _, err := s.teachers.FindByID(ctx, teacherID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	from, to := substitution.MonthWindow(s.now().UTC())
	counts, err := s.monthlyCounts(ctx)
	if err != nil {
		return nil, err
	}
	n := counts[teacherID]
	return &dto.WorkloadResponse{TeacherID: teacherID, From: from, To: to, Count: n, Band: s.cfg.Bands.Classify(n)}, nil
}

func (s *SubstituteService) today() string {
	return s.now().UTC().Format(time.DateOnly)
}

func (s *SubstituteService) loadLecture(ctx context.Context, id string) (*models.Lecture, error) {
	lecture, err := s.lectures.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lecture not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lecture")
	}
	return lecture, nil
}

// authorizeOverride allows department override for HOD-capable roles and
// for teachers flagged as HOD or acting HOD, while the
// allow_department_override setting is on.
func (s *SubstituteService) authorizeOverride(ctx context.Context, actor *models.JWTClaims) error {
	lead, err := s.leadsDepartment(ctx, actor)
	if err != nil {
		return err
	}
	if !lead {
		return appErrors.Clone(appErrors.ErrForbidden, "only HOD or admin may override the department restriction")
	}
	if s.policy == nil {
		return nil
	}
	enabled, err := s.policy.IsDepartmentOverrideEnabled(ctx)
	if err != nil {
		return err
	}
	if !enabled {
		return appErrors.Clone(appErrors.ErrForbidden, "department override is disabled")
	}
	return nil
}

func (s *SubstituteService) leadsDepartment(ctx context.Context, actor *models.JWTClaims) (bool, error) {
	switch {
	case actor == nil:
		return false, nil
	case actor.Role.CanOverrideDepartment():
		return true, nil
	case actor.TeacherID == "":
		return false, nil
	}
	teacher, err := s.teachers.FindByID(ctx, actor.TeacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	return teacher.LeadsDepartment(), nil
}

func (s *SubstituteService) matchInput(ctx context.Context, lecture models.Lecture, override bool) (substitution.Input, error) {
	teachers, err := s.teachers.ListAll(ctx)
	if err != nil {
		return substitution.Input{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teachers")
	}
	sameDay, err := s.lectures.ListByDate(ctx, lecture.Date)
	if err != nil {
		return substitution.Input{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lectures")
	}
	onLeave, err := approvedTeachersOn(ctx, s.leaves, lecture.Date)
	if err != nil {
		return substitution.Input{}, err
	}
	return substitution.Input{Target: lecture, Teachers: teachers, Lectures: sameDay, OnLeave: onLeave, Override: override}, nil
}

func (s *SubstituteService) monthlyCounts(ctx context.Context) (map[string]int, error) {
	from, to := substitution.MonthWindow(s.now().UTC())
	rows, err := s.repo.CountWorkload(ctx, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count substitute workload")
	}
	return substitution.CountsFrom(rows), nil
}

func (s *SubstituteService) rejectCandidate(err error) error {
	switch {
	case errors.Is(err, substitution.ErrUnknownTeacher):
		s.metrics.RecordRejectedAssignment("unknown_teacher")
		return appErrors.Clone(appErrors.ErrNotFound, "substitute teacher not found")
	case errors.Is(err, substitution.ErrDifferentDepartment):
		s.metrics.RecordRejectedAssignment("different_department")
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status,
			"substitute belongs to a different department; an HOD override with justification is required")
	case errors.Is(err, substitution.ErrTeacherUnavailable):
		s.metrics.RecordRejectedAssignment("unavailable")
	case errors.Is(err, substitution.ErrTeacherOnLeave):
		s.metrics.RecordRejectedAssignment("on_leave")
	case errors.Is(err, substitution.ErrInactiveTeacher):
		s.metrics.RecordRejectedAssignment("inactive")
	case errors.Is(err, substitution.ErrOriginalTeacher):
		s.metrics.RecordRejectedAssignment("original_teacher")
	default:
		s.metrics.RecordRejectedAssignment("invalid_slot")
	}
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "substitute is not eligible: "+err.Error())
}

func (s *SubstituteService) normalizeReportFilter(filter models.SubstituteReportFilter) (models.SubstituteReportFilter, error) {
	monthStart, today := substitution.MonthWindow(s.now().UTC())
	if filter.StartDate == "" {
		filter.StartDate = monthStart
	}
	if filter.EndDate == "" {
		filter.EndDate = today
	}
	for _, d := range []string{filter.StartDate, filter.EndDate} {
		if _, err := time.Parse(time.DateOnly, d); err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid date %q: expected YYYY-MM-DD", d))
		}
	}
	if filter.EndDate < filter.StartDate {
		return filter, appErrors.Clone(appErrors.ErrValidation, "end_date must not be before start_date")
	}
	return filter, nil
}

func assignableStatus(l models.Lecture) error {
	switch l.Status {
	case models.LectureStatusCancelled, models.LectureStatusCompleted:
		return appErrors.Clone(appErrors.ErrPreconditionFailed, fmt.Sprintf("lecture is %s", l.Status))
	}
	return nil
}
