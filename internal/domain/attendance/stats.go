package attendance

// Stats summarizes a record set. ByRole always carries every fixed role
// category, with zero counts for roles nobody marked.
type Stats struct {
	Total  int          `json:"total"`
	OnTime int          `json:"onTime"`
	Late   int          `json:"late"`
	Rate   float64      `json:"rate"` // onTime / total * 100, 0 when empty
	ByRole map[Role]int `json:"byRole"`
}

// ComputeStats accumulates counts over the given records.
func ComputeStats(records []Record) Stats {
	stats := Stats{ByRole: make(map[Role]int, len(Roles))}
	for _, role := range Roles {
		stats.ByRole[role] = 0
	}
	for _, rec := range records {
		stats.Total++
		if IsOnTime(rec.Timestamp) {
			stats.OnTime++
		} else {
			stats.Late++
		}
		stats.ByRole[rec.Role]++
	}
	if stats.Total > 0 {
		stats.Rate = float64(stats.OnTime) / float64(stats.Total) * 100
	}
	return stats
}

// DailyStats accumulates counts for a single calendar day.
func DailyStats(records []Record, date string) Stats {
	var day []Record
	for _, rec := range records {
		if rec.Date == date {
			day = append(day, rec)
		}
	}
	return ComputeStats(day)
}
