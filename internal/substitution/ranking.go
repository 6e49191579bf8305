package substitution

import (
	"sort"
	"time"

	"github.com/campusdesk/college-admin-api/internal/models"
)

// Band is a display-only workload classification.
type Band string

const (
	BandNormal  Band = "normal"
	BandCaution Band = "caution"
	BandWarning Band = "warning"
)

// Bands holds the inclusive lower bounds for the caution and warning bands.
type Bands struct {
	Warning int
	Caution int
}

// DefaultBands returns the standard thresholds (>=5 warning, >=3 caution).
func DefaultBands() Bands {
	return Bands{Warning: 5, Caution: 3}
}

// Classify maps a monthly count to its band. Bands never affect eligibility.
func (b Bands) Classify(count int) Band {
	switch {
	case count >= b.Warning:
		return BandWarning
	case count >= b.Caution:
		return BandCaution
	default:
		return BandNormal
	}
}

// RankedCandidate is an eligible teacher annotated with this month's workload.
type RankedCandidate struct {
	Teacher  models.Teacher `json:"teacher"`
	Workload int            `json:"workload"`
	Band     Band           `json:"band"`
}

// RankByWorkload orders candidates by ascending workload, breaking ties by
// teacher id ascending. Teachers missing from counts have a workload of zero.
func RankByWorkload(candidates []models.Teacher, counts map[string]int, bands Bands) []RankedCandidate {
	ranked := make([]RankedCandidate, 0, len(candidates))
	for _, t := range candidates {
		n := counts[t.ID]
		ranked = append(ranked, RankedCandidate{Teacher: t, Workload: n, Band: bands.Classify(n)})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Workload != ranked[j].Workload {
			return ranked[i].Workload < ranked[j].Workload
		}
		return ranked[i].Teacher.ID < ranked[j].Teacher.ID
	})
	return ranked
}

// CountsFrom indexes workload rows by teacher id.
func CountsFrom(rows []models.WorkloadCount) map[string]int {
	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.TeacherID] += row.Count
	}
	return counts
}

// MonthWindow returns the first day of now's month and now's date, both YYYY-MM-DD.
func MonthWindow(now time.Time) (string, string) {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return first.Format(time.DateOnly), now.Format(time.DateOnly)
}
