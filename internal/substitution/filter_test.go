package substitution

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusdesk/college-admin-api/internal/models"
)

func strptr(s string) *string { return &s }

func teacher(id, dept string) models.Teacher {
	return models.Teacher{ID: id, Name: "Teacher " + id, Department: dept, IsActive: true}
}

func lecture(id, teacherID, date, start, end string) models.Lecture {
	l := models.Lecture{ID: id, Date: date, StartTime: start, EndTime: end, Status: models.LectureStatusScheduled}
	if teacherID != "" {
		l.ScheduledTeacherID = strptr(teacherID)
	}
	return l
}

func ids(teachers []models.Teacher) []string {
	out := make([]string, 0, len(teachers))
	for _, t := range teachers {
		out = append(out, t.ID)
	}
	return out
}

// Lecture 10:00-11:00 on 2025-03-10 owned by an IT teacher; A (IT) teaches
// 10:10-11:10, B (IT) and C (CS) are free.
func exampleInput() Input {
	return Input{
		Target: lecture("L1", "owner", "2025-03-10", "10:00", "11:00"),
		Teachers: []models.Teacher{
			teacher("owner", "IT"),
			teacher("A", "IT"),
			teacher("B", "IT"),
			teacher("C", "CS"),
		},
		Lectures: []models.Lecture{
			lecture("L1", "owner", "2025-03-10", "10:00", "11:00"),
			lecture("L2", "A", "2025-03-10", "10:10", "11:10"),
		},
	}
}

func TestEligibleDefaultModeExample(t *testing.T) {
	m := NewMatcher(0)
	got, err := m.Eligible(exampleInput())
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, ids(got))
}

func TestEligibleOverrideModeExample(t *testing.T) {
	m := NewMatcher(0)
	in := exampleInput()
	in.Override = true
	got, err := m.Eligible(in)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C"}, ids(got))
}

func TestFilterAvailableFuzzyStartWithoutOverlap(t *testing.T) {
	m := NewMatcher(15 * time.Minute)
	target := lecture("T", "", "2025-03-10", "10:00", "10:10")
	teachers := []models.Teacher{teacher("A", "IT"), teacher("B", "IT")}
	lectures := []models.Lecture{
		// Starts after the target ends, but 12 minutes apart counts as the same slot.
		lecture("X", "A", "2025-03-10", "10:12", "10:40"),
		lecture("Y", "B", "2025-03-10", "10:30", "11:30"),
	}

	got, err := m.FilterAvailable(target, teachers, lectures)
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, ids(got))
}

func TestFilterAvailableSkipsCancelledAndOtherDates(t *testing.T) {
	m := NewMatcher(0)
	target := lecture("T", "", "2025-03-10", "09:00", "10:00")
	cancelled := lecture("X", "A", "2025-03-10", "09:00", "10:00")
	cancelled.Status = models.LectureStatusCancelled
	otherDay := lecture("Y", "B", "2025-03-11", "09:00", "10:00")

	got, err := m.FilterAvailable(target, []models.Teacher{teacher("A", "IT"), teacher("B", "IT")}, []models.Lecture{cancelled, otherDay})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, ids(got))
}

func TestFilterAvailableCountsSubstituteDuty(t *testing.T) {
	m := NewMatcher(0)
	target := lecture("T", "", "2025-03-10", "09:00", "10:00")
	covered := lecture("X", "someone", "2025-03-10", "09:30", "10:30")
	covered.SubstituteTeacherID = strptr("A")

	got, err := m.FilterAvailable(target, []models.Teacher{teacher("A", "IT")}, []models.Lecture{covered})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFilterAvailableExcludesInactiveAndOwner(t *testing.T) {
	m := NewMatcher(0)
	inactive := teacher("A", "IT")
	inactive.IsActive = false
	got, err := m.FilterAvailable(lecture("T", "O", "2025-03-10", "09:00", "10:00"),
		[]models.Teacher{inactive, teacher("O", "IT"), teacher("B", "IT")}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, ids(got))
}

func TestFilterAvailableMalformedOtherLectureIsBusy(t *testing.T) {
	m := NewMatcher(0)
	broken := lecture("X", "A", "2025-03-10", "9am", "10am")
	got, err := m.FilterAvailable(lecture("T", "", "2025-03-10", "14:00", "15:00"),
		[]models.Teacher{teacher("A", "IT")}, []models.Lecture{broken})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestBusyCountsOnlyConflictingDuty(t *testing.T) {
	m := NewMatcher(15 * time.Minute)
	target := lecture("T", "", "2025-03-10", "10:00", "11:00")
	covering := lecture("X", "someone", "2025-03-10", "10:30", "11:30")
	covering.SubstituteTeacherID = strptr("A")
	later := lecture("Y", "B", "2025-03-10", "13:00", "14:00")

	busy, err := m.Busy(target, "A", []models.Lecture{covering, later})
	require.NoError(t, err)
	assert.True(t, busy)

	busy, err = m.Busy(target, "B", []models.Lecture{covering, later})
	require.NoError(t, err)
	assert.False(t, busy)

	_, err = m.Busy(lecture("T", "", "2025-03-10", "11:00", "10:00"), "A", nil)
	assert.Error(t, err)
}

func TestFilterAvailableRejectsInvalidTarget(t *testing.T) {
	m := NewMatcher(0)
	_, err := m.FilterAvailable(lecture("T", "", "2025-03-10", "11:00", "10:00"), nil, nil)
	assert.Error(t, err)
}

func TestEligibleWithoutScheduledTeacherHasNoDepartmentConstraint(t *testing.T) {
	m := NewMatcher(0)
	in := Input{
		Target:   lecture("T", "", "2025-03-10", "09:00", "10:00"),
		Teachers: []models.Teacher{teacher("A", "IT"), teacher("B", "CS")},
	}
	got, err := m.Eligible(in)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, ids(got))
}

func TestEligibleDropsTeachersOnLeave(t *testing.T) {
	m := NewMatcher(0)
	in := exampleInput()
	in.OnLeave = map[string]struct{}{"B": {}}
	got, err := m.Eligible(in)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFilterDepartmentIsCaseInsensitive(t *testing.T) {
	got := FilterDepartment([]models.Teacher{teacher("A", " it "), teacher("B", "CS")}, "IT", false)
	assert.Equal(t, []string{"A"}, ids(got))
}

func TestCheckReasons(t *testing.T) {
	m := NewMatcher(0)
	in := exampleInput()
	inactive := teacher("Z", "IT")
	inactive.IsActive = false
	in.Teachers = append(in.Teachers, inactive, teacher("V", "IT"))
	in.OnLeave = map[string]struct{}{"V": {}}

	assert.NoError(t, m.Check(in, "B"))
	assert.ErrorIs(t, m.Check(in, "A"), ErrTeacherUnavailable)
	assert.ErrorIs(t, m.Check(in, "C"), ErrDifferentDepartment)
	assert.ErrorIs(t, m.Check(in, "owner"), ErrOriginalTeacher)
	assert.ErrorIs(t, m.Check(in, "Z"), ErrInactiveTeacher)
	assert.ErrorIs(t, m.Check(in, "V"), ErrTeacherOnLeave)
	assert.ErrorIs(t, m.Check(in, "missing"), ErrUnknownTeacher)

	in.Override = true
	assert.NoError(t, m.Check(in, "C"))
}

// Exhaustive sweep over start times: no returned teacher may hold a lecture
// that overlaps the target or starts within the fuzz window.
func TestFilterAvailableNeverReturnsConflictingTeacher(t *testing.T) {
	m := NewMatcher(15 * time.Minute)
	target := lecture("T", "", "2025-03-10", "10:00", "11:00")
	targetSlot, err := SlotOf(target)
	require.NoError(t, err)

	var teachers []models.Teacher
	var lectures []models.Lecture
	for start := 7 * 60; start <= 13*60; start += 5 {
		id := fmt.Sprintf("t%03d", start)
		teachers = append(teachers, teacher(id, "IT"))
		s := Clock(start)
		lectures = append(lectures, lecture("l"+id, id, "2025-03-10", s.String(), Clock(start+45).String()))
	}

	got, err := m.FilterAvailable(target, teachers, lectures)
	require.NoError(t, err)
	require.NotEmpty(t, got)

	byTeacher := make(map[string]models.Lecture, len(lectures))
	for _, l := range lectures {
		byTeacher[*l.ScheduledTeacherID] = l
	}
	for _, tch := range got {
		other, err := SlotOf(byTeacher[tch.ID])
		require.NoError(t, err)
		overlaps := other.Start < targetSlot.End && targetSlot.Start < other.End
		assert.False(t, overlaps, "teacher %s overlaps", tch.ID)
		assert.False(t, m.SameSlot(other.Start, targetSlot.Start), "teacher %s within fuzz", tch.ID)
	}
}

func TestDefaultModeIsSubsetOfOverrideMode(t *testing.T) {
	m := NewMatcher(0)
	depts := []string{"IT", "CS", "ME", ""}
	for i, ownerDept := range depts {
		in := Input{Target: lecture("T", "owner", "2025-03-10", "09:00", "10:00")}
		in.Teachers = append(in.Teachers, teacher("owner", ownerDept))
		for j := 0; j < 12; j++ {
			in.Teachers = append(in.Teachers, teacher(fmt.Sprintf("c%02d", j), depts[(i+j)%len(depts)]))
		}
		in.Lectures = []models.Lecture{lecture("busy", "c03", "2025-03-10", "09:05", "09:50")}

		def, err := m.Eligible(in)
		require.NoError(t, err)
		in.Override = true
		over, err := m.Eligible(in)
		require.NoError(t, err)

		overSet := make(map[string]struct{}, len(over))
		for _, c := range over {
			overSet[c.ID] = struct{}{}
		}
		for _, tch := range def {
			_, ok := overSet[tch.ID]
			assert.True(t, ok, "default candidate %s missing from override set", tch.ID)
		}
	}
}
