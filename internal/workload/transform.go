package workload

import (
	"fmt"
	"strings"

	"github.com/noah-isme/workload-api/internal/models"
)

type column int

const (
	colTeacher column = iota
	colClass
	colSubject
	colHours
	colDistribution
	colTeam
)

// minRowFields is the number of positional fields a row needs: teacher, class, subject, hours.
const minRowFields = 4

var headerAliases = map[string]column{
	"teacher":       colTeacher,
	"teacher_code":  colTeacher,
	"lehrer":        colTeacher,
	"lehrkraft":     colTeacher,
	"kuerzel":       colTeacher,
	"class":         colClass,
	"class_name":    colClass,
	"klasse":        colClass,
	"subject":       colSubject,
	"subject_code":  colSubject,
	"fach":          colSubject,
	"hours":         colHours,
	"stunden":       colHours,
	"wochenstunden": colHours,
	"semester":      colDistribution,
	"distribution":  colDistribution,
	"verteilung":    colDistribution,
	"halbjahr":      colDistribution,
	"team":          colTeam,
	"team_group":    colTeam,
	"teamgroup":     colTeam,
}

// ProposedAssignment is an assignment-shaped record produced from an import
// row. References are still textual codes; resolving them to ids is up to
// the caller.
type ProposedAssignment struct {
	TeacherCode string          `json:"teacher_code"`
	ClassName   string          `json:"class_name"`
	SubjectCode string          `json:"subject_code"`
	Semester    models.Semester `json:"semester"`
	Hours       float64         `json:"hours"`
	TeamGroupID *string         `json:"team_group_id,omitempty"`
}

// TransformResult is the outcome for one row. Skip is set for malformed
// rows; it is never an error.
type TransformResult struct {
	Proposals []ProposedAssignment
	Skip      bool
	Reason    string
	// Warning is set when the row was accepted with a fallback, such as an
	// unrecognised distribution tag.
	Warning string
}

func skipRow(reason string) TransformResult {
	return TransformResult{Skip: true, Reason: reason}
}

// TransformRow turns one import row into zero, one or two proposed
// assignments. Columns are located through headers when given, otherwise
// positionally as teacher, class, subject, hours[, distribution[, team]].
func TransformRow(fields, headers []string) TransformResult {
	layout := resolveLayout(headers)
	get := func(c column) string {
		idx, ok := layout[c]
		if !ok || idx >= len(fields) {
			return ""
		}
		return strings.TrimSpace(fields[idx])
	}

	required := minRowFields
	if len(headers) > 0 {
		for _, c := range []column{colTeacher, colClass, colSubject, colHours} {
			if _, ok := layout[c]; !ok {
				return skipRow("missing required column")
			}
		}
		required = 0
	}
	if len(fields) < required {
		return skipRow("too few fields")
	}

	teacher, class, subject := get(colTeacher), strings.ToUpper(get(colClass)), get(colSubject)
	if teacher == "" || class == "" || subject == "" {
		return skipRow("missing teacher, class or subject")
	}

	total, err := ParseHours(get(colHours))
	if err != nil {
		return skipRow("unparseable hours")
	}
	if !validHours(total) {
		return skipRow("hours must be positive")
	}

	tag := get(colDistribution)
	team := get(colTeam)

	shares := Expand(total, tag)
	if len(shares) == 0 {
		return skipRow("distribution leaves no hours")
	}

	result := TransformResult{Proposals: make([]ProposedAssignment, 0, len(shares))}
	for _, share := range shares {
		p := ProposedAssignment{
			TeacherCode: teacher,
			ClassName:   class,
			SubjectCode: subject,
			Semester:    share.Semester,
			Hours:       share.Hours,
		}
		if team != "" {
			group := team
			p.TeamGroupID = &group
		}
		result.Proposals = append(result.Proposals, p)
	}
	if !ParseDistribution(total, tag).Recognized {
		result.Warning = fmt.Sprintf("unrecognised distribution %q, applied to both semesters", tag)
	}
	return result
}

func resolveLayout(headers []string) map[column]int {
	layout := make(map[column]int, 6)
	if len(headers) == 0 {
		for c := colTeacher; c <= colTeam; c++ {
			layout[c] = int(c)
		}
		return layout
	}
	for i, h := range headers {
		name := strings.ToLower(strings.TrimSpace(h))
		name = strings.ReplaceAll(name, " ", "_")
		if c, ok := headerAliases[name]; ok {
			if _, taken := layout[c]; !taken {
				layout[c] = i
			}
		}
	}
	return layout
}
