package attendance

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

const (
	perPrefectHeader = "Date,Role,Time,Status,Notes"
	perDayHeader     = "Prefect Number,Role,Time,Status,Notes"

	regularNote = "Regular attendance"
)

// PrefectReport renders the check-in history of one prefect: a summary
// header followed by one CSV line per record.
func PrefectReport(records []Record, prefectNumber string) string {
	var own []Record
	for _, rec := range records {
		if rec.PrefectNumber == prefectNumber {
			own = append(own, rec)
		}
	}
	sort.Slice(own, func(i, j int) bool { return own[i].Timestamp.Before(own[j].Timestamp) })

	var b strings.Builder
	fmt.Fprintf(&b, "# Attendance Report: Prefect %s\n", prefectNumber)
	writeSummary(&b, ComputeStats(own))
	b.WriteString(perPrefectHeader + "\n")
	for _, rec := range own {
		b.WriteString(strings.Join([]string{
			rec.Date,
			string(rec.Role),
			rec.Timestamp.Format("15:04:05"),
			statusOf(rec),
			noteFor(rec.Timestamp),
		}, ",") + "\n")
	}
	return b.String()
}

// DayReport renders every check-in of one calendar day: a summary header
// followed by one CSV line per record.
func DayReport(records []Record, date string) string {
	var day []Record
	for _, rec := range records {
		if rec.Date == date {
			day = append(day, rec)
		}
	}
	sort.Slice(day, func(i, j int) bool { return day[i].Timestamp.Before(day[j].Timestamp) })

	var b strings.Builder
	fmt.Fprintf(&b, "# Daily Report: %s\n", date)
	writeSummary(&b, ComputeStats(day))
	b.WriteString(perDayHeader + "\n")
	for _, rec := range day {
		b.WriteString(strings.Join([]string{
			rec.PrefectNumber,
			string(rec.Role),
			rec.Timestamp.Format("15:04:05"),
			statusOf(rec),
			noteFor(rec.Timestamp),
		}, ",") + "\n")
	}
	return b.String()
}

func writeSummary(b *strings.Builder, stats Stats) {
	fmt.Fprintf(b, "Total: %d | On time: %d | Late: %d | Rate: %.1f%%\n\n",
		stats.Total, stats.OnTime, stats.Late, stats.Rate)
}

// statusOf prefers the status recorded at mark time, falling back to
// recomputing it for records written before the field existed.
func statusOf(rec Record) string {
	if rec.Status != "" {
		return rec.Status
	}
	return StatusFor(rec.Timestamp)
}

// noteFor states the exact lateness offset past the 07:00:00 deadline, or
// the regular string when on time.
func noteFor(ts time.Time) string {
	if IsOnTime(ts) {
		return regularNote
	}
	deadline := time.Date(ts.Year(), ts.Month(), ts.Day(),
		OnTimeDeadline.Hour, OnTimeDeadline.Minute, OnTimeDeadline.Second, 0, ts.Location())
	late := ts.Sub(deadline)
	hours := int(late.Hours())
	minutes := int(late.Minutes()) % 60
	return fmt.Sprintf("Late by %dh %dm", hours, minutes)
}
