package attendance

import (
	"time"
)

// Role is one of the fixed prefect role categories.
type Role string

const (
	RoleHead         Role = "Head"
	RoleDeputy       Role = "Deputy"
	RoleSenior       Role = "Senior"
	RoleJunior       Role = "Junior"
	RoleProbationary Role = "Probationary"
	RoleSports       Role = "Sports"
	RoleLibrary      Role = "Library"
	RoleDiscipline   Role = "Discipline"
	RoleChapel       Role = "Chapel"
	RoleEvents       Role = "Events"
)

// Roles lists every role category in display order. Statistics report a
// count for each of these even when it is zero.
var Roles = []Role{
	RoleHead,
	RoleDeputy,
	RoleSenior,
	RoleJunior,
	RoleProbationary,
	RoleSports,
	RoleLibrary,
	RoleDiscipline,
	RoleChapel,
	RoleEvents,
}

// IsValidRole reports whether r is one of the fixed role categories.
func IsValidRole(r Role) bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// DateLayout is the calendar-day format used for the dedup partition key.
const DateLayout = "2006-01-02"

// Record is a single attendance check-in event.
//
// Date is derived from Timestamp once, at creation time, and never
// recomputed afterwards. If the host timezone changes between creation and
// query the stored day is authoritative.
type Record struct {
	ID            string    `json:"id"`
	PrefectNumber string    `json:"prefectNumber"`
	Role          Role      `json:"role"`
	Timestamp     time.Time `json:"timestamp"`
	Date          string    `json:"date"`
	Status        string    `json:"status,omitempty"`
	SchemaVersion string    `json:"schemaVersion,omitempty"`
	Migrated      bool      `json:"migrated,omitempty"`
}

// Valid reports whether the record carries every required field. Entries
// failing this check are filtered out of reads and restores instead of
// failing the whole operation.
func (r Record) Valid() bool {
	return r.ID != "" && r.PrefectNumber != "" && r.Role != "" && !r.Timestamp.IsZero()
}

// Update carries a partial field set for merging over an existing record.
// Nil pointers leave the corresponding field untouched.
type Update struct {
	PrefectNumber *string    `json:"prefectNumber,omitempty"`
	Role          *Role      `json:"role,omitempty"`
	Timestamp     *time.Time `json:"timestamp,omitempty"`
	Date          *string    `json:"date,omitempty"`
	Status        *string    `json:"status,omitempty"`
}

// Apply merges the update over rec and returns the result.
func (u Update) Apply(rec Record) Record {
	if u.PrefectNumber != nil {
		rec.PrefectNumber = *u.PrefectNumber
	}
	if u.Role != nil {
		rec.Role = *u.Role
	}
	if u.Timestamp != nil {
		rec.Timestamp = *u.Timestamp
	}
	if u.Date != nil {
		rec.Date = *u.Date
	}
	if u.Status != nil {
		rec.Status = *u.Status
	}
	return rec
}

// Attendance statuses as rendered in reports and stored on the record.
const (
	StatusPresent = "Present"
	StatusLate    = "Late"
)

// OnTimeDeadline is the cut-off for a Present mark: strictly later than
// 07:00:00 local time counts as late.
var OnTimeDeadline = struct{ Hour, Minute, Second int }{7, 0, 0}

// IsOnTime reports whether a check-in at t counts as on time. Exactly
// 07:00:00 is still on time; 07:00:01 is late.
func IsOnTime(t time.Time) bool {
	if t.Hour() < OnTimeDeadline.Hour {
		return true
	}
	return t.Hour() == OnTimeDeadline.Hour && t.Minute() == 0 && t.Second() == 0
}

// StatusFor returns the stored status string for a check-in at t.
func StatusFor(t time.Time) string {
	if IsOnTime(t) {
		return StatusPresent
	}
	return StatusLate
}
