package attendance

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"
)

// Service implements the attendance business rules over a Repository:
// duplicate prevention, bulk marking with partial-failure semantics, and
// retention cleanup.
type Service struct {
	repo      Repository
	log       *slog.Logger
	retention time.Duration // 0 means unbounded
	now       func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithRetention prunes records older than horizon after every save. Zero
// keeps everything.
func WithRetention(horizon time.Duration) ServiceOption {
	return func(s *Service) { s.retention = horizon }
}

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// NewService creates the attendance service.
func NewService(repo Repository, log *slog.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		repo: repo,
		log:  log.With("component", "attendance_service"),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CheckDuplicate reports whether a record with the exact
// (prefectNumber, role, date) triple already exists.
func (s *Service) CheckDuplicate(prefectNumber string, role Role, date string) bool {
	for _, rec := range s.repo.Records() {
		if rec.PrefectNumber == prefectNumber && rec.Role == role && rec.Date == date {
			return true
		}
	}
	return false
}

// Mark records a check-in at the given time (zero means now). The calendar
// day is derived from the timestamp once, here, and stored. Fails with
// ErrDuplicate when the same prefect and role are already marked for that
// day.
func (s *Service) Mark(prefectNumber string, role Role, at time.Time) (Record, error) {
	if prefectNumber == "" {
		return Record{}, ErrEmptyPrefect
	}
	if !IsValidRole(role) {
		return Record{}, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	if at.IsZero() {
		at = s.now()
	}

	date := at.Format(DateLayout)
	if s.CheckDuplicate(prefectNumber, role, date) {
		return Record{}, fmt.Errorf("%w: prefect %s (%s) on %s", ErrDuplicate, prefectNumber, role, date)
	}

	rec := Record{
		ID:            uuid.NewString(),
		PrefectNumber: prefectNumber,
		Role:          role,
		Timestamp:     at,
		Date:          date,
		Status:        StatusFor(at),
	}
	if err := s.repo.Add(rec); err != nil {
		return Record{}, fmt.Errorf("persist attendance: %w", err)
	}
	s.log.Info("attendance marked",
		"prefect", prefectNumber, "role", role, "date", date, "status", rec.Status)

	s.cleanupRetention()
	return rec, nil
}

// BulkEntry is one item of a bulk mark request.
type BulkEntry struct {
	PrefectNumber string `json:"prefectNumber"`
	Role          Role   `json:"role"`
}

// BulkError captures one entry's failure during a bulk mark.
type BulkError struct {
	PrefectNumber string `json:"prefectNumber"`
	Role          Role   `json:"role"`
	Reason        string `json:"reason"`
}

// BulkResult splits a bulk mark into the entries that persisted and those
// that failed.
type BulkResult struct {
	Success []Record    `json:"success"`
	Errors  []BulkError `json:"errors"`
}

// MarkBulk attempts every entry independently: a duplicate or persistence
// failure on one entry never aborts the rest.
func (s *Service) MarkBulk(entries []BulkEntry, at time.Time) BulkResult {
	result := BulkResult{
		Success: []Record{},
		Errors:  []BulkError{},
	}
	for _, entry := range entries {
		rec, err := s.Mark(entry.PrefectNumber, entry.Role, at)
		if err != nil {
			result.Errors = append(result.Errors, BulkError{
				PrefectNumber: entry.PrefectNumber,
				Role:          entry.Role,
				Reason:        err.Error(),
			})
			continue
		}
		result.Success = append(result.Success, rec)
	}
	if len(result.Errors) > 0 {
		s.log.Warn("bulk mark finished with failures",
			"succeeded", len(result.Success), "failed", len(result.Errors))
	}
	return result
}

// Update merges upd over the record with the given id. When the prefect
// number or role changes, the uniqueness of the resulting triple is
// re-validated against every other record first.
func (s *Service) Update(id string, upd Update) (Record, error) {
	if upd.Role != nil && !IsValidRole(*upd.Role) {
		return Record{}, fmt.Errorf("%w: %q", ErrInvalidRole, *upd.Role)
	}

	if upd.PrefectNumber != nil || upd.Role != nil {
		current, ok := s.find(id)
		if !ok {
			return Record{}, ErrNotFound
		}
		next := upd.Apply(current)
		for _, rec := range s.repo.Records() {
			if rec.ID == id {
				continue
			}
			if rec.PrefectNumber == next.PrefectNumber && rec.Role == next.Role && rec.Date == next.Date {
				return Record{}, fmt.Errorf("%w: prefect %s (%s) on %s",
					ErrDuplicate, next.PrefectNumber, next.Role, next.Date)
			}
		}
	}

	rec, err := s.repo.Update(id, upd)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("update attendance: %w", err)
	}
	return rec, nil
}

// Delete removes the record with the given id. Absent ids are a no-op.
func (s *Service) Delete(id string) error {
	return s.repo.Delete(id)
}

// Records exposes the live record set.
func (s *Service) Records() []Record {
	return s.repo.Records()
}

// ByDate returns the records marked on the given calendar day.
func (s *Service) ByDate(date string) []Record {
	var out []Record
	for _, rec := range s.repo.Records() {
		if rec.Date == date {
			out = append(out, rec)
		}
	}
	return out
}

func (s *Service) find(id string) (Record, bool) {
	for _, rec := range s.repo.Records() {
		if rec.ID == id {
			return rec, true
		}
	}
	return Record{}, false
}

// cleanupRetention prunes records older than the configured horizon. Best
// effort: failures are logged, never surfaced to the mark that triggered
// the cleanup.
func (s *Service) cleanupRetention() {
	if s.retention <= 0 {
		return
	}
	cutoff := s.now().Add(-s.retention)
	records := s.repo.Records()
	kept := records[:0]
	for _, rec := range records {
		if !rec.Timestamp.Before(cutoff) {
			kept = append(kept, rec)
		}
	}
	if len(kept) == len(records) {
		return
	}
	if err := s.repo.SaveRecords(kept); err != nil {
		s.log.Warn("retention cleanup failed", "error", err)
		return
	}
	s.log.Info("retention cleanup pruned records", "pruned", len(records)-len(kept))
}
