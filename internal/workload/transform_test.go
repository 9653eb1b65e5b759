package workload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/workload-api/internal/models"
)

func TestTransformRowPositional(t *testing.T) {
	result := TransformRow([]string{"MUE", "07a", "M", "4", "3-1"}, nil)
	require.False(t, result.Skip)
	require.Len(t, result.Proposals, 2)
	assert.Equal(t, ProposedAssignment{TeacherCode: "MUE", ClassName: "07A", SubjectCode: "M", Semester: models.SemesterFirst, Hours: 3}, result.Proposals[0])
	assert.Equal(t, 1.0, result.Proposals[1].Hours)
	assert.Empty(t, result.Warning)
}

func TestTransformRowHeaders(t *testing.T) {
	headers := []string{"Fach", "Klasse", "Stunden", "Lehrer", "Halbjahr", "Team"}
	result := TransformRow([]string{"D", "08INF", "2,5", "ABC", "2", "tt-1"}, headers)
	require.False(t, result.Skip)
	require.Len(t, result.Proposals, 1)
	p := result.Proposals[0]
	assert.Equal(t, "ABC", p.TeacherCode)
	assert.Equal(t, "08INF", p.ClassName)
	assert.Equal(t, "D", p.SubjectCode)
	assert.Equal(t, models.SemesterSecond, p.Semester)
	assert.Equal(t, 2.5, p.Hours)
	require.NotNil(t, p.TeamGroupID)
	assert.Equal(t, "tt-1", *p.TeamGroupID)
}

func TestTransformRowTeamGroupPerProposal(t *testing.T) {
	result := TransformRow([]string{"MUE", "07A", "M", "4", "both", "tt-2"}, nil)
	require.Len(t, result.Proposals, 2)
	first, second := result.Proposals[0].TeamGroupID, result.Proposals[1].TeamGroupID
	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.NotSame(t, first, second)

	*first = "changed"
	assert.Equal(t, "tt-2", *second)
}

func TestTransformRowWarnsOnUnknownTag(t *testing.T) {
	result := TransformRow([]string{"MUE", "07A", "M", "4", "garbage"}, nil)
	require.False(t, result.Skip)
	assert.Len(t, result.Proposals, 2)
	assert.Contains(t, result.Warning, "garbage")
}

func TestTransformRowSkips(t *testing.T) {
	cases := map[string][]string{
		"too few fields":    {"MUE", "07A", "M"},
		"unparseable hours": {"MUE", "07A", "M", "four"},
		"zero hours":        {"MUE", "07A", "M", "0"},
		"missing teacher":   {" ", "07A", "M", "4"},
		"empty split":       {"MUE", "07A", "M", "4", "0-0"},
	}
	for name, fields := range cases {
		t.Run(name, func(t *testing.T) {
			result := TransformRow(fields, nil)
			assert.True(t, result.Skip)
			assert.NotEmpty(t, result.Reason)
			assert.Empty(t, result.Proposals)
		})
	}

	assert.True(t, TransformRow([]string{"a", "b", "c", "d"}, []string{"teacher", "class", "subject"}).Skip)
}
