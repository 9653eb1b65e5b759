package workload

import (
	"math"
	"strconv"
	"strings"

	"github.com/noah-isme/workload-api/internal/models"
)

// TagBoth applies the full hour count to each semester independently.
const TagBoth = "both"

// Distribution is the per-semester split derived from a total and a distribution tag.
type Distribution struct {
	Semester1 float64
	Semester2 float64
	// Recognized is false when a non-empty tag could not be understood and
	// the split fell back to the full total in both semesters.
	Recognized bool
}

// Hours returns the hours assigned to the given semester.
func (d Distribution) Hours(semester models.Semester) float64 {
	if semester == models.SemesterSecond {
		return d.Semester2
	}
	return d.Semester1
}

// SemesterHours is one semester's share of a distribution.
type SemesterHours struct {
	Semester models.Semester
	Hours    float64
}

// ParseDistribution splits total across the two semesters according to tag.
//
//	""/"both" -> (total, total)
//	"1"       -> (total, 0)
//	"2"       -> (0, total)
//	"a-b"     -> (a, b), or (total, total) when a token is not numeric
//	other     -> (total, total)
func ParseDistribution(total float64, tag string) Distribution {
	tag = strings.TrimSpace(tag)
	switch strings.ToLower(tag) {
	case "", TagBoth:
		return Distribution{Semester1: total, Semester2: total, Recognized: true}
	case string(models.SemesterFirst):
		return Distribution{Semester1: total, Recognized: true}
	case string(models.SemesterSecond):
		return Distribution{Semester2: total, Recognized: true}
	}

	if parts := strings.Split(tag, "-"); len(parts) == 2 {
		a, errA := ParseHours(parts[0])
		b, errB := ParseHours(parts[1])
		if errA == nil && errB == nil {
			return Distribution{Semester1: a, Semester2: b, Recognized: true}
		}
	}
	return Distribution{Semester1: total, Semester2: total}
}

// Expand returns the semesters that receive a strictly positive share of
// total. It returns nil when total is not a finite positive number.
func Expand(total float64, tag string) []SemesterHours {
	if !validHours(total) {
		return nil
	}
	dist := ParseDistribution(total, tag)
	out := make([]SemesterHours, 0, len(models.Semesters))
	for _, semester := range models.Semesters {
		if hours := dist.Hours(semester); validHours(hours) {
			out = append(out, SemesterHours{Semester: semester, Hours: hours})
		}
	}
	return out
}

// Distribute synthesizes zero, one or two assignment records from template,
// one per semester whose derived hours are positive.
func Distribute(template models.Assignment, total float64, tag string) []models.Assignment {
	shares := Expand(total, tag)
	if len(shares) == 0 {
		return nil
	}
	out := make([]models.Assignment, 0, len(shares))
	for _, share := range shares {
		record := template
		record.Semester = share.Semester
		record.HoursPerWeek = share.Hours
		out = append(out, record)
	}
	return out
}

// ParseHours parses an hour count, accepting a decimal comma ("1,5").
func ParseHours(raw string) (float64, error) {
	raw = strings.TrimSpace(strings.Replace(raw, ",", ".", 1))
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, strconv.ErrRange
	}
	return v, nil
}

func validHours(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}
