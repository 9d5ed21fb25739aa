package cmd

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"portalctl/internal/portal"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{-time.Second, "expired"},
		{30 * time.Second, "< 1 minute"},
		{time.Minute, "1 minute"},
		{5 * time.Minute, "5 minutes"},
		{time.Hour, "1 hour"},
		{23 * time.Hour, "23 hours"},
		{24 * time.Hour, "1 day"},
		{72 * time.Hour, "3 days"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatDuration(tt.d), tt.d.String())
	}
}

func TestFormatExpiryWithDirection(t *testing.T) {
	assert.Equal(t, "never", formatExpiryWithDirection(time.Time{}))
	assert.Equal(t, "in 4 minutes", formatExpiryWithDirection(time.Now().Add(4*time.Minute+30*time.Second)))
	assert.Contains(t, formatExpiryWithDirection(time.Now().Add(-2*time.Hour-time.Minute)), "expired 2 hours ago")
}

func TestResultTable_FallsBackToRowKeys(t *testing.T) {
	rows := []map[string]any{{"b": 2, "a": "x"}, {"a": "y"}}
	tbl := resultTable(portal.Process{}, rows)

	var sb strings.Builder
	tbl.Render(&sb, false)
	lines := strings.Split(strings.TrimSpace(sb.String()), "\n")
	assert.Equal(t, []string{"A", "B"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"y", "-"}, strings.Fields(lines[2]))
}

func TestResultTable_SkipsHiddenColumns(t *testing.T) {
	proc := portal.Process{OutputColumnsMetadata: []portal.OutputColumnMetadata{
		{Field: "Name", Label: "Student"},
		{Field: "Secret", Label: "Secret", Hidden: true},
	}}
	tbl := resultTable(proc, []map[string]any{{"Name": "Ada", "Secret": "x"}})

	var sb strings.Builder
	tbl.Render(&sb, false)
	assert.Contains(t, sb.String(), "STUDENT")
	assert.NotContains(t, sb.String(), "SECRET")
}

func TestBuildFilters_KeepsStringValues(t *testing.T) {
	proc := portal.Process{ID: 1}
	proc.DefaultPayload.Metadata.AvailableFilters = []portal.AvailableFilter{{Path: "School", FilterType: 2}}

	filters, err := buildFilters(proc, []string{"School=North High"})
	assert.NoError(t, err)
	assert.Equal(t, []portal.ProcessFilter{{Type: 2, Path: "School", Value: "North High"}}, filters)

	filters, err = buildFilters(proc, nil)
	assert.NoError(t, err)
	assert.Empty(t, filters)
}
