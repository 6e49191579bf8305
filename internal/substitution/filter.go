package substitution

import (
	"errors"
	"strings"

	"github.com/campusdesk/college-admin-api/internal/models"
)

// Reasons a teacher is not an eligible substitute for a lecture.
var (
	ErrUnknownTeacher      = errors.New("teacher not in directory")
	ErrInactiveTeacher     = errors.New("teacher is inactive")
	ErrOriginalTeacher     = errors.New("teacher is the lecture's scheduled teacher")
	ErrTeacherOnLeave      = errors.New("teacher is on approved leave")
	ErrTeacherUnavailable  = errors.New("teacher has a conflicting lecture")
	ErrDifferentDepartment = errors.New("teacher belongs to a different department")
)

// Input is everything the eligibility pipeline reads for one target lecture.
type Input struct {
	Target   models.Lecture
	Teachers []models.Teacher
	// Lectures holds every lecture on the target's date; other dates are ignored.
	Lectures []models.Lecture
	// OnLeave holds teacher ids with approved leave covering the target date.
	OnLeave  map[string]struct{}
	Override bool
}

// Eligible runs availability, leave and department filters in order.
func (m Matcher) Eligible(in Input) ([]models.Teacher, error) {
	available, err := m.FilterAvailable(in.Target, in.Teachers, in.Lectures)
	if err != nil {
		return nil, err
	}
	present := FilterOnLeave(available, in.OnLeave)
	dept, _ := DepartmentOf(in.Teachers, in.Target.ScheduledTeacher())
	return FilterDepartment(present, dept, in.Override), nil
}

// FilterAvailable returns active teachers, other than the lecture's owner, who
// have no lecture conflicting with the target. Cancelled lectures occupy
// nobody. A lecture whose times cannot be parsed is treated as conflicting.
func (m Matcher) FilterAvailable(target models.Lecture, teachers []models.Teacher, lectures []models.Lecture) ([]models.Teacher, error) {
	slot, err := SlotOf(target)
	if err != nil {
		return nil, err
	}
	busy := m.busyTeachers(target.ID, slot, lectures)
	owner := target.ScheduledTeacher()

	result := make([]models.Teacher, 0, len(teachers))
	for _, t := range teachers {
		if !t.IsActive || t.ID == owner {
			continue
		}
		if _, ok := busy[t.ID]; ok {
			continue
		}
		result = append(result, t)
	}
	return result, nil
}

func (m Matcher) busyTeachers(targetID string, slot Slot, lectures []models.Lecture) map[string]struct{} {
	busy := make(map[string]struct{})
	for _, l := range lectures {
		if l.ID == targetID || l.Status == models.LectureStatusCancelled || l.Date != slot.Date {
			continue
		}
		other, err := SlotOf(l)
		if err == nil && !m.Conflicts(slot, other) {
			continue
		}
		if l.ScheduledTeacherID != nil {
			busy[*l.ScheduledTeacherID] = struct{}{}
		}
		if l.SubstituteTeacherID != nil {
			busy[*l.SubstituteTeacherID] = struct{}{}
		}
	}
	return busy
}

// Busy reports whether teacherID holds a lecture, as scheduled or substitute
// teacher, that conflicts with target.
func (m Matcher) Busy(target models.Lecture, teacherID string, lectures []models.Lecture) (bool, error) {
	slot, err := SlotOf(target)
	if err != nil {
		return false, err
	}
	_, busy := m.busyTeachers(target.ID, slot, lectures)[teacherID]
	return busy, nil
}

// FilterOnLeave drops teachers present in the onLeave set.
func FilterOnLeave(candidates []models.Teacher, onLeave map[string]struct{}) []models.Teacher {
	result := make([]models.Teacher, 0, len(candidates))
	for _, t := range candidates {
		if _, ok := onLeave[t.ID]; ok {
			continue
		}
		result = append(result, t)
	}
	return result
}

// FilterDepartment keeps candidates from the given department. An empty
// department or override mode keeps everyone.
func FilterDepartment(candidates []models.Teacher, department string, override bool) []models.Teacher {
	result := make([]models.Teacher, 0, len(candidates))
	for _, t := range candidates {
		if override || SameDepartment(department, t.Department) {
			result = append(result, t)
		}
	}
	return result
}

// SameDepartment compares departments case-insensitively. An empty reference
// department matches anything.
func SameDepartment(reference, candidate string) bool {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return true
	}
	return strings.EqualFold(reference, strings.TrimSpace(candidate))
}

// DepartmentOf looks up a teacher's department. It reports false when the id
// is empty or unknown, which callers treat as "no department constraint".
func DepartmentOf(teachers []models.Teacher, id string) (string, bool) {
	if id == "" {
		return "", false
	}
	for _, t := range teachers {
		if t.ID == id {
			return t.Department, true
		}
	}
	return "", false
}

// Check explains why a single teacher is or is not eligible for the target.
// It returns nil when the teacher would appear in Eligible's result.
func (m Matcher) Check(in Input, teacherID string) error {
	var candidate *models.Teacher
	for i := range in.Teachers {
		if in.Teachers[i].ID == teacherID {
			candidate = &in.Teachers[i]
			break
		}
	}
	if candidate == nil {
		return ErrUnknownTeacher
	}
	if !candidate.IsActive {
		return ErrInactiveTeacher
	}
	if candidate.ID == in.Target.ScheduledTeacher() {
		return ErrOriginalTeacher
	}
	slot, err := SlotOf(in.Target)
	if err != nil {
		return err
	}
	if _, ok := m.busyTeachers(in.Target.ID, slot, in.Lectures)[teacherID]; ok {
		return ErrTeacherUnavailable
	}
	if _, ok := in.OnLeave[teacherID]; ok {
		return ErrTeacherOnLeave
	}
	dept, _ := DepartmentOf(in.Teachers, in.Target.ScheduledTeacher())
	if !in.Override && !SameDepartment(dept, candidate.Department) {
		return ErrDifferentDepartment
	}
	return nil
}
