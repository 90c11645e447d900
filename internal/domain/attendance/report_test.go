package attendance

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reportRecords() []Record {
	return []Record{
		{ID: "1", PrefectNumber: "42", Role: RoleSenior, Timestamp: at(6, 45, 12), Date: "2025-04-01", Status: StatusPresent},
		{ID: "2", PrefectNumber: "42", Role: RoleSenior, Timestamp: at(7, 12, 0).AddDate(0, 0, 1), Date: "2025-04-02", Status: StatusLate},
		{ID: "3", PrefectNumber: "17", Role: RoleJunior, Timestamp: at(6, 50, 0), Date: "2025-04-01", Status: StatusPresent},
	}
}

func TestPrefectReportFormat(t *testing.T) {
	out := PrefectReport(reportRecords(), "42")
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")

	require.GreaterOrEqual(t, len(lines), 5)
	assert.Equal(t, "# Attendance Report: Prefect 42", lines[0])
	assert.Equal(t, "Total: 2 | On time: 1 | Late: 1 | Rate: 50.0%", lines[1])
	assert.Equal(t, "", lines[2])
	assert.Equal(t, "Date,Role,Time,Status,Notes", lines[3])
	assert.Equal(t, "2025-04-01,Senior,06:45:12,Present,Regular attendance", lines[4])
	assert.Equal(t, "2025-04-02,Senior,07:12:00,Late,Late by 0h 12m", lines[5])
}

func TestDayReportFormat(t *testing.T) {
	out := DayReport(reportRecords(), "2025-04-01")
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")

	assert.Equal(t, "# Daily Report: 2025-04-01", lines[0])
	assert.Equal(t, "Prefect Number,Role,Time,Status,Notes", lines[3])
	// Rows are ordered by check-in time.
	assert.Equal(t, "42,Senior,06:45:12,Present,Regular attendance", lines[4])
	assert.Equal(t, "17,Junior,06:50:00,Present,Regular attendance", lines[5])
}

func TestLatenessNoteSpansHours(t *testing.T) {
	rec := Record{ID: "1", PrefectNumber: "8", Role: RoleHead, Timestamp: at(9, 5, 0), Date: "2025-04-01"}
	out := DayReport([]Record{rec}, "2025-04-01")
	assert.Contains(t, out, "Late by 2h 5m")
}

func TestReportForUnknownPrefectIsEmptyBody(t *testing.T) {
	out := PrefectReport(reportRecords(), "nobody")
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 4) // header block and column line only
	assert.Equal(t, "Total: 0 | On time: 0 | Late: 0 | Rate: 0.0%", lines[1])
}
