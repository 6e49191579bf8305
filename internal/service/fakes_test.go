package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/campusdesk/college-admin-api/internal/models"
	appErrors "github.com/campusdesk/college-admin-api/pkg/errors"
)

type auditRecorder struct {
	mu   sync.Mutex
	logs []*models.AuditLog
	err  error
}

func (a *auditRecorder) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.logs = append(a.logs, log)
	return nil
}

func (a *auditRecorder) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.logs))
	for _, l := range a.logs {
		out = append(out, l.Action)
	}
	return out
}

type memoryCache struct {
	mu      sync.Mutex
	entries map[string]interface{}
	deleted []string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string]interface{})}
}

func (c *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	switch d := dest.(type) {
	case *models.DashboardSummary:
		*d = v.(models.DashboardSummary)
	case *[]models.CoverageNeed:
		*d = v.([]models.CoverageNeed)
	}
	return nil
}

func (c *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch v := value.(type) {
	case *models.DashboardSummary:
		c.entries[key] = *v
	default:
		c.entries[key] = v
	}
	return nil
}

func (c *memoryCache) DeleteByPattern(ctx context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleted = append(c.deleted, pattern)
	prefix := strings.TrimSuffix(pattern, "*")
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
	return nil
}

func ptr(s string) *string { return &s }

func adminClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
}

type memoryLectures struct {
	mu        sync.Mutex
	items     map[string]models.Lecture
	seq       int
	createErr error
	bulkCalls int
}

func newMemoryLectures(lectures ...models.Lecture) *memoryLectures {
	m := &memoryLectures{items: make(map[string]models.Lecture)}
	for _, l := range lectures {
		m.items[l.ID] = l
	}
	return m
}

func (m *memoryLectures) sorted(keep func(models.Lecture) bool) []models.Lecture {
	out := []models.Lecture{}
	for _, l := range m.items {
		if keep(l) {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		if out[i].StartTime != out[j].StartTime {
			return out[i].StartTime < out[j].StartTime
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (m *memoryLectures) List(ctx context.Context, filter models.LectureFilter) ([]models.Lecture, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.sorted(func(l models.Lecture) bool {
		return (filter.Status == "" || string(l.Status) == filter.Status) &&
			(filter.DateFrom == "" || l.Date >= filter.DateFrom) &&
			(filter.DateTo == "" || l.Date <= filter.DateTo)
	})
	return out, len(out), nil
}

func (m *memoryLectures) FindByID(ctx context.Context, id string) (*models.Lecture, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &l, nil
}

func (m *memoryLectures) ListByDate(ctx context.Context, date string) ([]models.Lecture, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sorted(func(l models.Lecture) bool { return l.Date == date }), nil
}

func (m *memoryLectures) ListByDates(ctx context.Context, dates []string) ([]models.Lecture, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set := make(map[string]struct{}, len(dates))
	for _, d := range dates {
		set[d] = struct{}{}
	}
	return m.sorted(func(l models.Lecture) bool {
		_, ok := set[l.Date]
		return ok
	}), nil
}

func (m *memoryLectures) ListWeek(ctx context.Context, from, to, teacherID, classYear, division string) ([]models.Lecture, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sorted(func(l models.Lecture) bool {
		if l.Date < from || l.Date > to {
			return false
		}
		if teacherID != "" && l.ScheduledTeacher() != teacherID && (l.SubstituteTeacherID == nil || *l.SubstituteTeacherID != teacherID) {
			return false
		}
		return (classYear == "" || l.ClassYear == classYear) && (division == "" || l.Division == division)
	}), nil
}

func (m *memoryLectures) insertLocked(l *models.Lecture) {
	if l.ID == "" {
		m.seq++
		l.ID = fmt.Sprintf("lec-%03d", m.seq)
	}
	m.items[l.ID] = *l
}

func (m *memoryLectures) Create(ctx context.Context, lecture *models.Lecture) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.insertLocked(lecture)
	return nil
}

func (m *memoryLectures) BulkCreate(ctx context.Context, lectures []models.Lecture) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.bulkCalls++
	for i := range lectures {
		m.insertLocked(&lectures[i])
	}
	return nil
}

func (m *memoryLectures) Update(ctx context.Context, lecture *models.Lecture) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[lecture.ID] = *lecture
	return nil
}

func (m *memoryLectures) UpdateStatus(ctx context.Context, id string, status models.LectureStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l := m.items[id]
	l.Status = status
	m.items[id] = l
	return nil
}

type teacherDirectory map[string]models.Teacher

func (d teacherDirectory) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	t, ok := d[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &t, nil
}

func (d teacherDirectory) ListAll(ctx context.Context) ([]models.Teacher, error) {
	out := make([]models.Teacher, 0, len(d))
	for _, t := range d {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func lectureAt(id, teacherID, date, start, end string) models.Lecture {
	l := models.Lecture{
		ID: id, Subject: "Networks", ClassYear: "TE", Division: "A", Room: "R-" + id,
		Date: date, StartTime: start, EndTime: end, Status: models.LectureStatusScheduled,
	}
	if teacherID != "" {
		l.ScheduledTeacherID = ptr(teacherID)
	}
	l.DayOfWeek, _ = dayName(date)
	return l
}

type memoryLeaves struct {
	mu        sync.Mutex
	items     map[string]models.LeaveRequest
	seq       int
	decideErr error
}

func newMemoryLeaves(leaves ...models.LeaveRequest) *memoryLeaves {
	m := &memoryLeaves{items: make(map[string]models.LeaveRequest)}
	for _, l := range leaves {
		m.items[l.ID] = l
	}
	return m
}

func (m *memoryLeaves) List(ctx context.Context, filter models.LeaveFilter) ([]models.LeaveRequest, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.LeaveRequest{}
	for _, l := range m.items {
		if (filter.TeacherID == "" || l.TeacherID == filter.TeacherID) && (filter.Status == "" || string(l.Status) == filter.Status) {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (m *memoryLeaves) FindByID(ctx context.Context, id string) (*models.LeaveRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &l, nil
}

func (m *memoryLeaves) ListApprovedOn(ctx context.Context, date string) ([]models.LeaveRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.LeaveRequest{}
	for _, l := range m.items {
		if l.Status == models.LeaveStatusApproved && l.Covers(date) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *memoryLeaves) HasOverlap(ctx context.Context, teacherID, start, end, excludeID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.items {
		if l.ID == excludeID || l.TeacherID != teacherID || l.Status == models.LeaveStatusDenied {
			continue
		}
		if l.StartDate <= end && l.EndDate >= start {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryLeaves) Create(ctx context.Context, leave *models.LeaveRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	leave.ID = fmt.Sprintf("leave-%03d", m.seq)
	m.items[leave.ID] = *leave
	return nil
}

func (m *memoryLeaves) UpdateDecision(ctx context.Context, leave *models.LeaveRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.decideErr != nil {
		return m.decideErr
	}
	m.items[leave.ID] = *leave
	return nil
}

func approvedLeave(id, teacherID, start, end string) models.LeaveRequest {
	return models.LeaveRequest{ID: id, TeacherID: teacherID, StartDate: start, EndDate: end, LeaveType: "sick", Reason: "flu", Status: models.LeaveStatusApproved}
}

// memorySubstitutes derives coverage needs from the lecture and leave fakes
// and applies assignments to the lecture fake, mirroring the SQL repository.
type memorySubstitutes struct {
	mu          sync.Mutex
	lectures    *memoryLectures
	leaves      *memoryLeaves
	assignments []models.SubstituteAssignment
	requests    []models.SubstituteRequest
	workload    []models.WorkloadCount
	report      []models.SubstituteReportRow
	assignErr   error
	lastReport  models.SubstituteReportFilter
	coverageHit int
}

func newMemorySubstitutes(lectures *memoryLectures, leaves *memoryLeaves) *memorySubstitutes {
	return &memorySubstitutes{lectures: lectures, leaves: leaves}
}

func (m *memorySubstitutes) ListNeedingCoverage(ctx context.Context, filter models.CoverageFilter) ([]models.CoverageNeed, error) {
	m.mu.Lock()
	m.coverageHit++
	pending := make(map[string]models.SubstituteRequest)
	for _, r := range m.requests {
		if r.Status == models.SubstituteRequestPending {
			pending[r.LectureID] = r
		}
	}
	m.mu.Unlock()

	all, _, _ := m.lectures.List(ctx, models.LectureFilter{Status: string(models.LectureStatusScheduled), DateFrom: filter.FromDate, DateTo: filter.ToDate})
	needs := []models.CoverageNeed{}
	for _, l := range all {
		if l.SubstituteTeacherID != nil {
			continue
		}
		need := models.CoverageNeed{Lecture: l}
		if l.ScheduledTeacherID != nil {
			approved, _ := m.leaves.ListApprovedOn(ctx, l.Date)
			for _, leave := range approved {
				if leave.TeacherID == *l.ScheduledTeacherID {
					id := leave.ID
					need.LeaveRequestID = &id
					break
				}
			}
		}
		if r, ok := pending[l.ID]; ok {
			id := r.ID
			need.SubstituteRequestID = &id
			if need.LeaveRequestID == nil {
				need.LeaveRequestID = r.LeaveRequestID
			}
		}
		if need.LeaveRequestID == nil && need.SubstituteRequestID == nil {
			continue
		}
		needs = append(needs, need)
	}
	return needs, nil
}

func (m *memorySubstitutes) CountWorkload(ctx context.Context, from, to string) ([]models.WorkloadCount, error) {
	return m.workload, nil
}

func (m *memorySubstitutes) Report(ctx context.Context, filter models.SubstituteReportFilter) ([]models.SubstituteReportRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastReport = filter
	return m.report, nil
}

func (m *memorySubstitutes) Assign(ctx context.Context, assignment *models.SubstituteAssignment, guard func(models.Lecture, []models.Lecture) error) (*models.Lecture, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lectures.mu.Lock()
	defer m.lectures.mu.Unlock()

	locked, ok := m.lectures.items[assignment.LectureID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	sub := assignment.SubstituteTeacherID
	day := m.lectures.sorted(func(l models.Lecture) bool {
		return l.Date == locked.Date && l.ID != locked.ID && l.Status != models.LectureStatusCancelled &&
			(l.ScheduledTeacher() == sub || (l.SubstituteTeacherID != nil && *l.SubstituteTeacherID == sub))
	})
	if err := guard(locked, day); err != nil {
		return nil, err
	}
	if m.assignErr != nil {
		return nil, m.assignErr
	}
	for i := range m.assignments {
		if m.assignments[i].LectureID == locked.ID {
			m.assignments[i].Active = false
		}
	}
	assignment.ID = fmt.Sprintf("asg-%03d", len(m.assignments)+1)
	assignment.Active = true
	m.assignments = append(m.assignments, *assignment)

	substitute := assignment.SubstituteTeacherID
	locked.SubstituteTeacherID = &substitute
	locked.Status = models.LectureStatusSubAssigned
	m.lectures.items[locked.ID] = locked

	for i := range m.requests {
		if m.requests[i].LectureID == locked.ID && m.requests[i].Status == models.SubstituteRequestPending {
			m.requests[i].Status = models.SubstituteRequestFulfilled
		}
	}
	return &locked, nil
}

func (m *memorySubstitutes) FindPendingRequest(ctx context.Context, lectureID string) (*models.SubstituteRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.requests {
		if r.LectureID == lectureID && r.Status == models.SubstituteRequestPending {
			found := r
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memorySubstitutes) ListRequests(ctx context.Context, status string) ([]models.SubstituteRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.SubstituteRequest{}
	for _, r := range m.requests {
		if status == "" || string(r.Status) == status {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memorySubstitutes) CreateRequest(ctx context.Context, req *models.SubstituteRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	req.ID = fmt.Sprintf("req-%03d", len(m.requests)+1)
	m.requests = append(m.requests, *req)
	return nil
}

type staticPolicy struct {
	override bool
	requests bool
	college  string
}

func (p staticPolicy) IsDepartmentOverrideEnabled(ctx context.Context) (bool, error) {
	return p.override, nil
}

func (p staticPolicy) IsSubstituteRequestsEnabled(ctx context.Context) (bool, error) {
	return p.requests, nil
}

func (p staticPolicy) CollegeDisplayName(ctx context.Context) string {
	return p.college
}
