// Package postgres backs the server record store with PostgreSQL for
// deployments that outgrow the single SQLite file.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/exp/slog"

	"prefectlog/internal/domain/attendance"
	"prefectlog/internal/infrastructure/migration"
	"prefectlog/internal/store"
)

// Store implements storage.Store over a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
	log  *slog.Logger
	now  func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New connects to databaseURI and migrates the schema.
func New(ctx context.Context, databaseURI string, log *slog.Logger, opts ...Option) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURI)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	mg := migration.NewMigration(databaseURI, migration.DefaultEngine)
	if err := mg.Up(); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	s := &Store{
		pool: pool,
		log:  log.With("component", "postgres_store"),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Store) MarkAttendance(ctx context.Context, prefectNumber string, role attendance.Role) (attendance.Record, error) {
	if prefectNumber == "" {
		return attendance.Record{}, attendance.ErrEmptyPrefect
	}
	if !attendance.IsValidRole(role) {
		return attendance.Record{}, fmt.Errorf("%w: %q", attendance.ErrInvalidRole, role)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return attendance.Record{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	memberID, err := s.findOrCreateMember(ctx, tx, prefectNumber, role)
	if err != nil {
		return attendance.Record{}, err
	}

	now := s.now()
	date := now.Format(attendance.DateLayout)

	var exists bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM attendance WHERE member_id = $1 AND role = $2 AND date = $3)`,
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
	_, err = tx.Exec(ctx,
		`INSERT INTO attendance (id, member_id, role, date, timestamp, status) VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.ID, memberID, string(rec.Role), rec.Date, rec.Timestamp, rec.Status,
	)
	if err != nil {
		return attendance.Record{}, fmt.Errorf("insert attendance: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return attendance.Record{}, fmt.Errorf("commit attendance: %w", err)
	}

	s.log.Info("attendance marked", "prefect", prefectNumber, "role", role, "date", date)
	return rec, nil
}

func (s *Store) ListByDate(ctx context.Context, date string) ([]attendance.Record, error) {
	return s.list(ctx,
		`SELECT a.id, m.prefect_number, a.role, a.timestamp, a.date, a.status
		   FROM attendance a JOIN members m ON a.member_id = m.id
		  WHERE a.date = $1
		  ORDER BY a.timestamp`, date)
}

func (s *Store) ListAll(ctx context.Context) ([]attendance.Record, error) {
	return s.list(ctx,
		`SELECT a.id, m.prefect_number, a.role, a.timestamp, a.date, a.status
		   FROM attendance a JOIN members m ON a.member_id = m.id
		  ORDER BY a.timestamp`)
}

func (s *Store) ImportBackup(ctx context.Context, serialized string) error {
	records, err := store.ParseSnapshot(serialized)
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM attendance`); err != nil {
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
		_, err = tx.Exec(ctx,
			`INSERT INTO attendance (id, member_id, role, date, timestamp, status) VALUES ($1, $2, $3, $4, $5, $6)`,
			rec.ID, memberID, string(rec.Role), rec.Date, rec.Timestamp, status,
		)
		if err != nil {
			return fmt.Errorf("insert restored record: %w", err)
		}
		imported++
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}

	if dropped > 0 {
		s.log.Warn("discarded invalid records during import", "dropped", dropped)
	}
	s.log.Info("backup imported", "records", imported)
	return nil
}

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
	return snap.MarshalPretty()
}

// ListMembers returns the full roster.
func (s *Store) ListMembers(ctx context.Context) ([]attendance.Member, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, COALESCE(name, ''), role, prefect_number FROM members ORDER BY prefect_number`)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	members := []attendance.Member{}
	for rows.Next() {
		var m attendance.Member
		if err := rows.Scan(&m.ID, &m.Name, &m.Role, &m.PrefectNumber); err != nil {
			return nil, fmt.Errorf("scan member row: %w", err)
		}
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
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM members WHERE prefect_number = $1)`, prefectNumber,
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
	_, err = s.pool.Exec(ctx,
		`INSERT INTO members (id, name, role, prefect_number) VALUES ($1, $2, $3, $4)`,
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

	var m attendance.Member
	err := s.pool.QueryRow(ctx,
		`SELECT id, COALESCE(name, ''), role, prefect_number FROM members WHERE id = $1`, id,
	).Scan(&m.ID, &m.Name, &m.Role, &m.PrefectNumber)
	if errors.Is(err, pgx.ErrNoRows) {
		return attendance.Member{}, attendance.ErrNotFound
	}
	if err != nil {
		return attendance.Member{}, fmt.Errorf("find member: %w", err)
	}

	merged := upd.Apply(m)
	merged.ID = id
	_, err = s.pool.Exec(ctx,
		`UPDATE members SET name = $1, role = $2, prefect_number = $3 WHERE id = $4`,
		merged.Name, string(merged.Role), merged.PrefectNumber, id,
	)
	if err != nil {
		return attendance.Member{}, fmt.Errorf("update member: %w", err)
	}
	return merged, nil
}

// DeleteMember removes a roster entry; deleting an absent id is a no-op.
func (s *Store) DeleteMember(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM members WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete member: %w", err)
	}
	return nil
}

func (s *Store) WipeAll(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM attendance`); err != nil {
		return fmt.Errorf("wipe attendance: %w", err)
	}
	if _, err := s.pool.Exec(ctx, `DELETE FROM members`); err != nil {
		return fmt.Errorf("wipe members: %w", err)
	}
	s.log.Warn("all data wiped")
	return nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) list(ctx context.Context, query string, args ...any) ([]attendance.Record, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query attendance: %w", err)
	}
	defer rows.Close()

	records := []attendance.Record{}
	for rows.Next() {
		var rec attendance.Record
		if err := rows.Scan(&rec.ID, &rec.PrefectNumber, &rec.Role, &rec.Timestamp, &rec.Date, &rec.Status); err != nil {
			return nil, fmt.Errorf("scan attendance row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance rows: %w", err)
	}
	return records, nil
}

func (s *Store) findOrCreateMember(ctx context.Context, tx pgx.Tx, prefectNumber string, role attendance.Role) (string, error) {
	var id string
	err := tx.QueryRow(ctx,
		`SELECT id FROM members WHERE prefect_number = $1`, prefectNumber,
	).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("find member: %w", err)
	}

	id = uuid.NewString()
	_, err = tx.Exec(ctx,
		`INSERT INTO members (id, role, prefect_number) VALUES ($1, $2, $3)`,
		id, string(role), prefectNumber,
	)
	if err != nil {
		return "", fmt.Errorf("create member: %w", err)
	}
	return id, nil
}
