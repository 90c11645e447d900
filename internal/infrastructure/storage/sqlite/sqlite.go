// Package sqlite backs the server record store with a local SQLite file,
// the same shape the desktop deployment uses.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/exp/slog"

	"prefectlog/internal/domain/attendance"
	"prefectlog/internal/infrastructure/migration"
	"prefectlog/internal/store"
)

// Store implements storage.Store over a SQLite database.
type Store struct {
	db  *sql.DB
	log *slog.Logger
	now func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New opens (or creates) the database at path and migrates the schema.
func New(path string, log *slog.Logger, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	mg := migration.NewMigration("sqlite3://"+path, migration.DefaultEngine)
	if err := mg.Up(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	s := &Store{
		db:  db,
		log: log.With("component", "sqlite_store"),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// MarkAttendance finds or creates the member by prefect number, rejects a
// second mark for the same (prefect, role, day) triple, and inserts the
// check-in.
func (s *Store) MarkAttendance(ctx context.Context, prefectNumber string, role attendance.Role) (attendance.Record, error) {
	if prefectNumber == "" {
		return attendance.Record{}, attendance.ErrEmptyPrefect
	}
	if !attendance.IsValidRole(role) {
		return attendance.Record{}, fmt.Errorf("%w: %q", attendance.ErrInvalidRole, role)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return attendance.Record{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	memberID, err := s.findOrCreateMember(ctx, tx, prefectNumber, role)
	if err != nil {
		return attendance.Record{}, err
	}

	now := s.now()
	date := now.Format(attendance.DateLayout)

	var exists bool
	err = tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM attendance WHERE member_id = ? AND role = ? AND date = ?)`,
		memberID, string(role), date,
	).Scan(&exists)
	if err != nil {
		return attendance.Record{}, fmt.Errorf("check duplicate: %w", err)
	}
	if exists {
		return attendance.Record{}, fmt.Errorf("%w: prefect %s (%s) on %s",
			attendance.ErrDuplicate, prefectNumber, role, date)
	}

	rec := attendance.Record{
		ID:            uuid.NewString(),
		PrefectNumber: prefectNumber,
		Role:          role,
		Timestamp:     now,
		Date:          date,
		Status:        attendance.StatusFor(now),
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO attendance (id, member_id, role, date, timestamp, status) VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, memberID, string(rec.Role), rec.Date, rec.Timestamp.Format(time.RFC3339), rec.Status,
	)
	if err != nil {
		return attendance.Record{}, fmt.Errorf("insert attendance: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return attendance.Record{}, fmt.Errorf("commit attendance: %w", err)
	}

	s.log.Info("attendance marked", "prefect", prefectNumber, "role", role, "date", date)
	return rec, nil
}

func (s *Store) ListByDate(ctx context.Context, date string) ([]attendance.Record, error) {
	return s.list(ctx,
		`SELECT a.id, m.prefect_number, a.role, a.timestamp, a.date, a.status
		   FROM attendance a JOIN members m ON a.member_id = m.id
		  WHERE a.date = ?
		  ORDER BY a.timestamp`, date)
}

func (s *Store) ListAll(ctx context.Context) ([]attendance.Record, error) {
	return s.list(ctx,
		`SELECT a.id, m.prefect_number, a.role, a.timestamp, a.date, a.status
		   FROM attendance a JOIN members m ON a.member_id = m.id
		  ORDER BY a.timestamp`)
}

// ImportBackup replaces the full record set with the snapshot's records.
// Invalid entries are filtered, matching the local transport's restore.
func (s *Store) ImportBackup(ctx context.Context, serialized string) error {
	records, err := store.ParseSnapshot(serialized)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM attendance`); err != nil {
		return fmt.Errorf("clear attendance: %w", err)
	}

	imported, dropped := 0, 0
	for _, rec := range records {
		if !rec.Valid() {
			dropped++
			continue
		}
		memberID, err := s.findOrCreateMember(ctx, tx, rec.PrefectNumber, rec.Role)
		if err != nil {
			return err
		}
		status := rec.Status
		if status == "" {
			status = attendance.StatusFor(rec.Timestamp)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO attendance (id, member_id, role, date, timestamp, status) VALUES (?, ?, ?, ?, ?, ?)`,
			rec.ID, memberID, string(rec.Role), rec.Date, rec.Timestamp.Format(time.RFC3339), status,
		)
		if err != nil {
			return fmt.Errorf("insert restored record: %w", err)
		}
		imported++
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}

	if dropped > 0 {
		s.log.Warn("discarded invalid records during import", "dropped", dropped)
	}
	s.log.Info("backup imported", "records", imported)
	return nil
}

// ExportBackup serializes the full record set in the shared snapshot
// format, pretty-printed for external download.
func (s *Store) ExportBackup(ctx context.Context) (string, error) {
	records, err := s.ListAll(ctx)
	if err != nil {
		return "", err
	}
	now := s.now()
	snap := store.Snapshot{
		Timestamp: now.UnixMilli(),
		Version:   store.SchemaVersion,
		Records:   records,
		Metadata: store.SnapshotMeta{
			RecordCount: len(records),
			CreatedAt:   now.Format(time.RFC3339),
			Type:        store.BackupManual,
		},
	}
	raw, err := snap.MarshalPretty()
	if err != nil {
		return "", fmt.Errorf("encode backup: %w", err)
	}
	return raw, nil
}

// ListMembers returns the full roster.
func (s *Store) ListMembers(ctx context.Context) ([]attendance.Member, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, role, prefect_number FROM members ORDER BY prefect_number`)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	members := []attendance.Member{}
	for rows.Next() {
		var (
			m    attendance.Member
			name sql.NullString
		)
		if err := rows.Scan(&m.ID, &name, &m.Role, &m.PrefectNumber); err != nil {
			return nil, fmt.Errorf("scan member row: %w", err)
		}
		m.Name = name.String
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate member rows: %w", err)
	}
	return members, nil
}

// CreateMember registers a roster entry ahead of any check-in.
func (s *Store) CreateMember(ctx context.Context, prefectNumber string, role attendance.Role, name string) (attendance.Member, error) {
	if prefectNumber == "" {
		return attendance.Member{}, attendance.ErrEmptyPrefect
	}
	if !attendance.IsValidRole(role) {
		return attendance.Member{}, fmt.Errorf("%w: %q", attendance.ErrInvalidRole, role)
	}

	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM members WHERE prefect_number = ?)`, prefectNumber,
	).Scan(&exists)
	if err != nil {
		return attendance.Member{}, fmt.Errorf("check member: %w", err)
	}
	if exists {
		return attendance.Member{}, fmt.Errorf("%w: prefect %s", attendance.ErrMemberExists, prefectNumber)
	}

	m := attendance.Member{
		ID:            uuid.NewString(),
		Name:          name,
		Role:          role,
		PrefectNumber: prefectNumber,
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO members (id, name, role, prefect_number) VALUES (?, ?, ?, ?)`,
		m.ID, m.Name, string(m.Role), m.PrefectNumber,
	)
	if err != nil {
		return attendance.Member{}, fmt.Errorf("insert member: %w", err)
	}

	s.log.Info("member created", "prefect", prefectNumber, "role", role)
	return m, nil
}

// UpdateMember merges upd over the member with the given id.
func (s *Store) UpdateMember(ctx context.Context, id string, upd attendance.MemberUpdate) (attendance.Member, error) {
	if upd.Role != nil && !attendance.IsValidRole(*upd.Role) {
		return attendance.Member{}, fmt.Errorf("%w: %q", attendance.ErrInvalidRole, *upd.Role)
	}

	var (
		m    attendance.Member
		name sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, role, prefect_number FROM members WHERE id = ?`, id,
	).Scan(&m.ID, &name, &m.Role, &m.PrefectNumber)
	if errors.Is(err, sql.ErrNoRows) {
		return attendance.Member{}, attendance.ErrNotFound
	}
	if err != nil {
		return attendance.Member{}, fmt.Errorf("find member: %w", err)
	}
	m.Name = name.String

	merged := upd.Apply(m)
	merged.ID = id
	_, err = s.db.ExecContext(ctx,
		`UPDATE members SET name = ?, role = ?, prefect_number = ? WHERE id = ?`,
		merged.Name, string(merged.Role), merged.PrefectNumber, id,
	)
	if err != nil {
		return attendance.Member{}, fmt.Errorf("update member: %w", err)
	}
	return merged, nil
}

// DeleteMember removes a roster entry; deleting an absent id is a no-op.
func (s *Store) DeleteMember(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM members WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete member: %w", err)
	}
	return nil
}

func (s *Store) WipeAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM attendance`); err != nil {
		return fmt.Errorf("wipe attendance: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM members`); err != nil {
		return fmt.Errorf("wipe members: %w", err)
	}
	s.log.Warn("all data wiped")
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) list(ctx context.Context, query string, args ...any) ([]attendance.Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query attendance: %w", err)
	}
	defer rows.Close()

	records := []attendance.Record{}
	for rows.Next() {
		var (
			rec attendance.Record
			ts  string
		)
		if err := rows.Scan(&rec.ID, &rec.PrefectNumber, &rec.Role, &ts, &rec.Date, &rec.Status); err != nil {
			return nil, fmt.Errorf("scan attendance row: %w", err)
		}
		rec.Timestamp, _ = time.Parse(time.RFC3339, ts)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance rows: %w", err)
	}
	return records, nil
}

// findOrCreateMember resolves the member id for a prefect number, creating
// the roster entry on first contact.
func (s *Store) findOrCreateMember(ctx context.Context, tx *sql.Tx, prefectNumber string, role attendance.Role) (string, error) {
	var id string
	err := tx.QueryRowContext(ctx,
		`SELECT id FROM members WHERE prefect_number = ?`, prefectNumber,
	).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("find member: %w", err)
	}

	id = uuid.NewString()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO members (id, role, prefect_number) VALUES (?, ?, ?)`,
		id, string(role), prefectNumber,
	)
	if err != nil {
		return "", fmt.Errorf("create member: %w", err)
	}
	return id, nil
}
