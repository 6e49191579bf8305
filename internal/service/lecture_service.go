package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/teambition/rrule-go"
	"go.uber.org/zap"

	"github.com/campusdesk/college-admin-api/internal/dto"
	"github.com/campusdesk/college-admin-api/internal/models"
	"github.com/campusdesk/college-admin-api/internal/substitution"
	appErrors "github.com/campusdesk/college-admin-api/pkg/errors"
)

// maxSeriesOccurrences bounds a single recurring batch.
const maxSeriesOccurrences = 200

type lectureRepository interface {
	List(ctx context.Context, filter models.LectureFilter) ([]models.Lecture, int, error)
	FindByID(ctx context.Context, id string) (*models.Lecture, error)
	ListByDate(ctx context.Context, date string) ([]models.Lecture, error)
	ListByDates(ctx context.Context, dates []string) ([]models.Lecture, error)
	ListWeek(ctx context.Context, from, to, teacherID, classYear, division string) ([]models.Lecture, error)
	Create(ctx context.Context, lecture *models.Lecture) error
	BulkCreate(ctx context.Context, lectures []models.Lecture) error
	Update(ctx context.Context, lecture *models.Lecture) error
	UpdateStatus(ctx context.Context, id string, status models.LectureStatus) error
}

type teacherReader interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

var rruleWeekdays = map[string]rrule.Weekday{
	"MONDAY":    rrule.MO,
	"TUESDAY":   rrule.TU,
	"WEDNESDAY": rrule.WE,
	"THURSDAY":  rrule.TH,
	"FRIDAY":    rrule.FR,
	"SATURDAY":  rrule.SA,
	"SUNDAY":    rrule.SU,
}

// LectureServiceConfig tunes conflict detection.
type LectureServiceConfig struct {
	FuzzWindow time.Duration
}

// LectureService manages the dated timetable.
type LectureService struct {
	repo      lectureRepository
	teachers  teacherReader
	audit     auditWriter
	cache     *CacheService
	matcher   substitution.Matcher
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewLectureService constructs a LectureService.
func NewLectureService(repo lectureRepository, teachers teacherReader, audit auditWriter, cache *CacheService, validate *validator.Validate, logger *zap.Logger, cfg LectureServiceConfig) *LectureService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	registerDomainValidators(validate)
	return &LectureService{
		repo:      repo,
		teachers:  teachers,
		audit:     audit,
		cache:     cache,
		matcher:   substitution.NewMatcher(cfg.FuzzWindow),
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// List returns lectures plus pagination data.
func (s *LectureService) List(ctx context.Context, filter models.LectureFilter) ([]models.Lecture, *models.Pagination, error) {
	lectures, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list lectures")
	}
	return lectures, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a lecture by id.
func (s *LectureService) Get(ctx context.Context, id string) (*models.Lecture, error) {
	lecture, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lecture not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lecture")
	}
	return lecture, nil
}

// Create schedules one lecture after checking teacher, room and class collisions.
func (s *LectureService) Create(ctx context.Context, req dto.CreateLectureRequest, actor *models.JWTClaims) (*models.Lecture, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lecture payload")
	}
	lecture := &models.Lecture{
		Subject:            strings.TrimSpace(req.Subject),
		ClassYear:          strings.TrimSpace(req.ClassYear),
		Division:           strings.ToUpper(strings.TrimSpace(req.Division)),
		Room:               strings.TrimSpace(req.Room),
		Date:               req.Date,
		StartTime:          req.StartTime,
		EndTime:            req.EndTime,
		ScheduledTeacherID: normalizeOptional(req.ScheduledTeacherID),
		Status:             models.LectureStatusScheduled,
	}
	if err := s.prepare(ctx, lecture); err != nil {
		return nil, err
	}

	existing, err := s.repo.ListByDate(ctx, lecture.Date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check lecture conflicts")
	}
	if conflict := s.findConflict(*lecture, existing, ""); conflict != nil {
		return nil, wrapLectureConflict(conflict)
	}

	if err := s.repo.Create(ctx, lecture); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create lecture")
	}
	s.afterChange(ctx, actor, lecture.ID, nil, lecture)
	return lecture, nil
}

// CreateRecurring expands a weekly rule into dated lectures sharing a series id.
// Colliding occurrences fail the whole batch unless PartialOnError is set, in
// which case they are skipped and reported.
func (s *LectureService) CreateRecurring(ctx context.Context, req dto.RecurringLectureRequest, actor *models.JWTClaims) (*dto.RecurringLectureResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid recurring lecture payload")
	}
	dates, err := expandOccurrences(req)
	if err != nil {
		return nil, err
	}

	template := models.Lecture{
		Subject:            strings.TrimSpace(req.Subject),
		ClassYear:          strings.TrimSpace(req.ClassYear),
		Division:           strings.ToUpper(strings.TrimSpace(req.Division)),
		Room:               strings.TrimSpace(req.Room),
		StartTime:          req.StartTime,
		EndTime:            req.EndTime,
		ScheduledTeacherID: normalizeOptional(req.ScheduledTeacherID),
		Status:             models.LectureStatusScheduled,
	}
	template.Date = dates[0]
	if err := s.prepare(ctx, &template); err != nil {
		return nil, err
	}

	existing, err := s.repo.ListByDates(ctx, dates)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check lecture conflicts")
	}
	byDate := make(map[string][]models.Lecture, len(dates))
	for _, l := range existing {
		byDate[l.Date] = append(byDate[l.Date], l)
	}

	seriesID := uuid.NewString()
	result := &dto.RecurringLectureResult{SeriesID: seriesID, Created: []models.Lecture{}}
	for _, date := range dates {
		lecture := template
		lecture.Date = date
		lecture.DayOfWeek, _ = dayName(date)
		lecture.SeriesID = &seriesID

		if conflict := s.findConflict(lecture, byDate[date], ""); conflict != nil {
			if !req.PartialOnError {
				return nil, wrapLectureConflict(conflict)
			}
			result.Conflicts = append(result.Conflicts, conflict.Conflict)
			continue
		}
		result.Created = append(result.Created, lecture)
		byDate[date] = append(byDate[date], lecture)
	}

	if len(result.Created) > 0 {
		if err := s.repo.BulkCreate(ctx, result.Created); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create recurring lectures")
		}
	}
	writeAudit(ctx, s.audit, s.logger, &models.AuditLog{
		UserID:     userIDPtr(actor),
		Action:     models.AuditActionLectureChange,
		Resource:   "lecture_series",
		ResourceID: &seriesID,
		NewValues:  []byte(fmt.Sprintf(`{"created":%d,"skipped":%d}`, len(result.Created), len(result.Conflicts))),
	})
	s.cache.Invalidate(ctx, cacheNamespaceCoverage, cacheNamespaceDashboard)
	return result, nil
}

// Update edits or reschedules a lecture, re-checking collisions against
// every other lecture on the target date.
func (s *LectureService) Update(ctx context.Context, id string, req dto.UpdateLectureRequest, actor *models.JWTClaims) (*models.Lecture, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lecture payload")
	}
	lecture, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	switch lecture.Status {
	case models.LectureStatusCancelled, models.LectureStatusCompleted:
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, fmt.Sprintf("%s lectures cannot be edited", lecture.Status))
	}
	before := *lecture

	if req.Subject != nil {
		lecture.Subject = strings.TrimSpace(*req.Subject)
	}
	if req.Room != nil {
		lecture.Room = strings.TrimSpace(*req.Room)
	}
	if req.Date != nil {
		lecture.Date = *req.Date
	}
	if req.StartTime != nil {
		lecture.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		lecture.EndTime = *req.EndTime
	}
	if req.ScheduledTeacherID != nil {
		lecture.ScheduledTeacherID = normalizeOptional(req.ScheduledTeacherID)
	}

	moved := lecture.Date != before.Date || lecture.StartTime != before.StartTime || lecture.EndTime != before.EndTime ||
		lecture.ScheduledTeacher() != before.ScheduledTeacher()
	if moved && lecture.Status == models.LectureStatusSubAssigned {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "lecture has a substitute; cancel it and schedule a new lecture instead")
	}
	if err := s.prepare(ctx, lecture); err != nil {
		return nil, err
	}

	existing, err := s.repo.ListByDate(ctx, lecture.Date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check lecture conflicts")
	}
	if conflict := s.findConflict(*lecture, existing, lecture.ID); conflict != nil {
		return nil, wrapLectureConflict(conflict)
	}

	if err := s.repo.Update(ctx, lecture); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update lecture")
	}
	s.afterChange(ctx, actor, lecture.ID, &before, lecture)
	return lecture, nil
}

// Cancel marks a lecture cancelled. Cancelling twice is a no-op.
func (s *LectureService) Cancel(ctx context.Context, id string, actor *models.JWTClaims) (*models.Lecture, error) {
	return s.transition(ctx, id, models.LectureStatusCancelled, actor)
}

// Complete marks a lecture as held.
func (s *LectureService) Complete(ctx context.Context, id string, actor *models.JWTClaims) (*models.Lecture, error) {
	return s.transition(ctx, id, models.LectureStatusCompleted, actor)
}

func (s *LectureService) transition(ctx context.Context, id string, target models.LectureStatus, actor *models.JWTClaims) (*models.Lecture, error) {
	lecture, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if lecture.Status == target {
		return lecture, nil
	}
	if lecture.Status == models.LectureStatusCancelled || lecture.Status == models.LectureStatusCompleted {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, fmt.Sprintf("lecture is already %s", lecture.Status))
	}

	before := *lecture
	if err := s.repo.UpdateStatus(ctx, id, target); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update lecture status")
	}
	lecture.Status = target
	s.afterChange(ctx, actor, id, &before, lecture)
	return lecture, nil
}

// WeeklyTimetable returns the Monday-to-Sunday week containing WeekOf (default
// today) for a teacher or a class.
func (s *LectureService) WeeklyTimetable(ctx context.Context, query dto.WeeklyTimetableQuery) (*dto.WeeklyTimetable, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timetable query")
	}
	anchor := s.now().UTC()
	if query.WeekOf != "" {
		anchor, _ = time.Parse(time.DateOnly, query.WeekOf)
	}
	offset := (int(anchor.Weekday()) + 6) % 7
	monday := time.Date(anchor.Year(), anchor.Month(), anchor.Day()-offset, 0, 0, 0, 0, time.UTC)
	sunday := monday.AddDate(0, 0, 6)
	from, to := monday.Format(time.DateOnly), sunday.Format(time.DateOnly)

	lectures, err := s.repo.ListWeek(ctx, from, to, query.TeacherID, query.ClassYear, strings.ToUpper(query.Division))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}

	days := make([]models.TimetableDay, 7)
	for i := range days {
		days[i] = models.TimetableDay{
			DayOfWeek: strings.ToUpper(monday.AddDate(0, 0, i).Weekday().String()),
			Lectures:  []models.Lecture{},
		}
	}
	for _, l := range lectures {
		d, err := time.Parse(time.DateOnly, l.Date)
		if err != nil {
			continue
		}
		idx := int(d.Sub(monday).Hours() / 24)
		if idx < 0 || idx > 6 {
			continue
		}
		days[idx].Lectures = append(days[idx].Lectures, l)
	}
	for i := range days {
		sort.SliceStable(days[i].Lectures, func(a, b int) bool {
			return days[i].Lectures[a].StartTime < days[i].Lectures[b].StartTime
		})
	}
	return &dto.WeeklyTimetable{From: from, To: to, Days: days}, nil
}

// prepare validates the slot, derives the weekday and checks the teacher.
func (s *LectureService) prepare(ctx context.Context, lecture *models.Lecture) error {
	if _, err := substitution.SlotOf(*lecture); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	day, err := dayName(lecture.Date)
	if err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "invalid lecture date")
	}
	lecture.DayOfWeek = day

	if lecture.ScheduledTeacherID == nil || s.teachers == nil {
		return nil
	}
	teacher, err := s.teachers.FindByID(ctx, *lecture.ScheduledTeacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "scheduled teacher not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	if !teacher.IsActive {
		return appErrors.Clone(appErrors.ErrValidation, "scheduled teacher is inactive")
	}
	return nil
}

// findConflict reports the first lecture on the same date that collides with
// candidate on class, teacher or room. Cancelled lectures never collide.
func (s *LectureService) findConflict(candidate models.Lecture, existing []models.Lecture, ignoreID string) *models.LectureConflictError {
	slot, err := substitution.SlotOf(candidate)
	if err != nil {
		return nil
	}
	for _, other := range existing {
		if (ignoreID != "" && other.ID == ignoreID) || other.Status == models.LectureStatusCancelled || other.Date != candidate.Date {
			continue
		}
		otherSlot, err := substitution.SlotOf(other)
		if err == nil && !s.matcher.Conflicts(slot, otherSlot) {
			continue
		}

		var dimension, message string
		switch {
		case strings.EqualFold(other.ClassYear, candidate.ClassYear) && strings.EqualFold(other.Division, candidate.Division):
			dimension, message = "CLASS", "class already has a lecture in this slot"
		case sharesTeacher(other, candidate.ScheduledTeacher()):
			dimension, message = "TEACHER", "teacher already has a lecture in this slot"
		case candidate.Room != "" && strings.EqualFold(other.Room, candidate.Room):
			dimension, message = "ROOM", "room already booked for this slot"
		default:
			continue
		}
		return &models.LectureConflictError{
			Message: message,
			Conflict: models.LectureConflict{
				LectureID: other.ID,
				Date:      other.Date,
				StartTime: other.StartTime,
				EndTime:   other.EndTime,
				TeacherID: other.ScheduledTeacher(),
				Room:      other.Room,
				Dimension: dimension,
			},
		}
	}
	return nil
}

func sharesTeacher(l models.Lecture, teacherID string) bool {
	if teacherID == "" {
		return false
	}
	if l.ScheduledTeacher() == teacherID {
		return true
	}
	return l.SubstituteTeacherID != nil && *l.SubstituteTeacherID == teacherID
}

func wrapLectureConflict(conflict *models.LectureConflictError) error {
	return appErrors.Wrap(conflict, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "lecture conflict: "+conflict.Message)
}

func (s *LectureService) afterChange(ctx context.Context, actor *models.JWTClaims, id string, before, after *models.Lecture) {
	writeAudit(ctx, s.audit, s.logger, &models.AuditLog{
		UserID:     userIDPtr(actor),
		Action:     models.AuditActionLectureChange,
		Resource:   "lecture",
		ResourceID: &id,
		OldValues:  marshalAudit(before),
		NewValues:  marshalAudit(after),
	})
	s.cache.Invalidate(ctx, cacheNamespaceCoverage, cacheNamespaceDashboard)
}

// expandOccurrences turns the recurrence fields into sorted YYYY-MM-DD dates.
func expandOccurrences(req dto.RecurringLectureRequest) ([]string, error) {
	start, _ := time.Parse(time.DateOnly, req.StartDate)
	horizon := start.AddDate(1, 0, 0)

	var rule *rrule.RRule
	var err error
	if strings.TrimSpace(req.RRule) != "" {
		rule, err = rrule.StrToRRule(strings.TrimPrefix(strings.TrimSpace(req.RRule), "RRULE:"))
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid rrule")
		}
		if rule.OrigOptions.Freq != rrule.WEEKLY {
			return nil, appErrors.Clone(appErrors.ErrValidation, "rrule must use FREQ=WEEKLY")
		}
		rule.DTStart(start)
	} else {
		until, _ := time.Parse(time.DateOnly, req.Until)
		if until.Before(start) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "until must not be before start_date")
		}
		rule, err = rrule.NewRRule(rrule.ROption{
			Freq:      rrule.WEEKLY,
			Dtstart:   start,
			Until:     until.Add(24*time.Hour - time.Second),
			Byweekday: []rrule.Weekday{rruleWeekdays[strings.ToUpper(req.DayOfWeek)]},
		})
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid recurrence")
		}
	}

	occurrences := rule.Between(start, horizon, true)
	if len(occurrences) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "recurrence produces no lectures")
	}
	if len(occurrences) > maxSeriesOccurrences {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("recurrence produces more than %d lectures", maxSeriesOccurrences))
	}
	dates := make([]string, 0, len(occurrences))
	seen := make(map[string]struct{}, len(occurrences))
	for _, o := range occurrences {
		date := o.UTC().Format(time.DateOnly)
		if _, dup := seen[date]; dup {
			continue
		}
		seen[date] = struct{}{}
		dates = append(dates, date)
	}
	return dates, nil
}
