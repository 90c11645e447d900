package store

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/exp/slog"

	"prefectlog/internal/domain/attendance"
	"prefectlog/internal/kvstore"
)

// Snapshot types as persisted in metadata.
const (
	BackupAutomatic = "automatic"
	BackupManual    = "manual"
	BackupEmergency = "emergency"
)

const (
	backupKeyPrefix  = "attendance_backup_"
	keyLastAutomatic = "prefect_last_auto_backup"
	keyEmergency     = "prefect_emergency_backup"

	// AutomaticInterval is how often the rotating automatic snapshot runs.
	AutomaticInterval = 24 * time.Hour

	// maxRotated snapshots are retained; older ones are pruned.
	maxRotated = 5
)

// Snapshot is an immutable full copy of the record set at a point in time.
type Snapshot struct {
	Timestamp int64               `json:"timestamp"`
	Version   string              `json:"version"`
	Records   []attendance.Record `json:"records"`
	Metadata  SnapshotMeta        `json:"metadata"`
}

// SnapshotMeta describes a snapshot.
type SnapshotMeta struct {
	RecordCount int    `json:"recordCount"`
	CreatedAt   string `json:"createdAt"`
	Type        string `json:"type"`
}

// MarshalPretty renders the snapshot indented, for human-readable export.
func (s Snapshot) MarshalPretty() (string, error) {
	raw, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	return string(raw), nil
}

// Backups is the snapshotting and recovery subsystem of a Store. Rotated
// snapshots live beside the records in the durable KV; emergency snapshots
// go to a session-scoped side channel that recovery never consults.
type Backups struct {
	store   *Store
	session kvstore.KV
	log     *slog.Logger
}

func newBackups(s *Store, session kvstore.KV, log *slog.Logger) *Backups {
	return &Backups{
		store:   s,
		session: session,
		log:     log.With("component", "backup"),
	}
}

// NeedsAutomatic reports whether the last automatic snapshot is older than
// AutomaticInterval (or has never run).
func (b *Backups) NeedsAutomatic() bool {
	raw, ok := b.store.kv.Get(keyLastAutomatic)
	if !ok || raw == "" {
		return true
	}
	last, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return true
	}
	return b.store.now().Sub(time.UnixMilli(last)) >= AutomaticInterval
}

// PerformAutomatic writes a rotated snapshot, records the run time, and
// prunes old snapshots.
func (b *Backups) PerformAutomatic() error {
	now := b.store.now()
	if err := b.writeRotated(BackupAutomatic, now); err != nil {
		return err
	}
	if err := b.store.kv.Set(keyLastAutomatic, strconv.FormatInt(now.UnixMilli(), 10)); err != nil {
		b.log.Warn("could not record automatic backup time", "error", err)
	}
	b.prune()
	b.log.Info("automatic backup complete")
	return nil
}

// CreateManual writes a snapshot tagged manual into the rotation and also
// returns it pretty-printed for external export.
func (b *Backups) CreateManual() (string, error) {
	now := b.store.now()
	snap := b.snapshot(BackupManual, now)

	pretty, err := snap.MarshalPretty()
	if err != nil {
		return "", fmt.Errorf("encode manual backup: %w", err)
	}
	compact, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("encode manual backup: %w", err)
	}
	key := backupKeyPrefix + strconv.FormatInt(now.UnixMilli(), 10)
	if err := b.store.kv.Set(key, string(compact)); err != nil {
		return "", fmt.Errorf("store manual backup: %w", err)
	}
	b.prune()
	return pretty, nil
}

// PerformEmergency writes a single snapshot to the session-scoped channel.
// It runs once on teardown. Recovery does not search this channel; crash
// recovery from it is left as a manual step.
func (b *Backups) PerformEmergency() {
	snap := b.snapshot(BackupEmergency, b.store.now())
	raw, err := json.Marshal(snap)
	if err == nil {
		err = b.session.Set(keyEmergency, string(raw))
	}
	if err != nil {
		b.log.Warn("emergency backup failed", "error", err)
		return
	}
	b.log.Info("emergency backup written", "records", snap.Metadata.RecordCount)
}

// Restore replaces the live record set wholesale with the snapshot's
// records. Entries missing a required field are filtered out (the discard
// count is logged); records absent from the snapshot are lost.
func (b *Backups) Restore(serialized string) error {
	records, err := ParseSnapshot(serialized)
	if err != nil {
		return err
	}
	filtered := make([]attendance.Record, 0, len(records))
	for _, rec := range records {
		if rec.Valid() {
			filtered = append(filtered, rec)
		}
	}
	if dropped := len(records) - len(filtered); dropped > 0 {
		b.log.Warn("discarded invalid records during restore", "dropped", dropped)
	}
	if err := b.store.SaveRecords(filtered); err != nil {
		return fmt.Errorf("persist restored records: %w", err)
	}
	b.log.Info("restore complete", "records", len(filtered))
	return nil
}

// attemptRecovery restores wholesale from the most recent rotated snapshot
// if one exists, otherwise filters the live set down to structurally valid
// entries in place. Callers hold the store lock; writes bypass the normal
// save path so recovery can never recurse into itself.
func (b *Backups) attemptRecovery() error {
	if snap, ok := b.newest(); ok {
		filtered := make([]attendance.Record, 0, len(snap.Records))
		for _, rec := range snap.Records {
			if rec.Valid() {
				filtered = append(filtered, rec)
			}
		}
		if err := b.store.writeRecordsRaw(filtered); err != nil {
			return fmt.Errorf("%w: restore from snapshot: %s", ErrRecoveryFailed, err)
		}
		b.log.Info("recovered from rotated snapshot",
			"snapshot_time", snap.Timestamp, "records", len(filtered))
		return nil
	}

	// No snapshot to fall back on: salvage what is structurally valid.
	valid := b.store.Records()
	if err := b.store.writeRecordsRaw(valid); err != nil {
		return fmt.Errorf("%w: rewrite valid records: %s", ErrRecoveryFailed, err)
	}
	b.log.Info("recovered by filtering live records", "records", len(valid))
	return nil
}

// prune keeps only the maxRotated most recent snapshots by the timestamp
// embedded in their keys. Runs after every automatic backup and under quota
// pressure.
func (b *Backups) prune() {
	type entry struct {
		key string
		ts  int64
	}
	var entries []entry
	for _, key := range b.store.kv.Keys() {
		if !strings.HasPrefix(key, backupKeyPrefix) {
			continue
		}
		ts, err := strconv.ParseInt(strings.TrimPrefix(key, backupKeyPrefix), 10, 64)
		if err != nil {
			// Not one of ours; leave it alone.
			continue
		}
		entries = append(entries, entry{key: key, ts: ts})
	}
	if len(entries) <= maxRotated {
		return
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ts > entries[j].ts })
	for _, e := range entries[maxRotated:] {
		b.store.kv.Remove(e.key)
	}
	b.log.Info("pruned old backups", "removed", len(entries)-maxRotated)
}

// newest returns the most recent rotated snapshot, if any parseable one
// exists.
func (b *Backups) newest() (Snapshot, bool) {
	var (
		best   Snapshot
		bestTS int64 = -1
	)
	for _, key := range b.store.kv.Keys() {
		if !strings.HasPrefix(key, backupKeyPrefix) {
			continue
		}
		ts, err := strconv.ParseInt(strings.TrimPrefix(key, backupKeyPrefix), 10, 64)
		if err != nil || ts <= bestTS {
			continue
		}
		raw, ok := b.store.kv.Get(key)
		if !ok {
			continue
		}
		var snap Snapshot
		if err := json.Unmarshal([]byte(raw), &snap); err != nil {
			b.log.Warn("unreadable snapshot skipped", "key", key, "error", err)
			continue
		}
		best, bestTS = snap, ts
	}
	return best, bestTS >= 0
}

func (b *Backups) writeRotated(typ string, now time.Time) error {
	snap := b.snapshot(typ, now)
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	key := backupKeyPrefix + strconv.FormatInt(now.UnixMilli(), 10)
	if err := b.store.kv.Set(key, string(raw)); err != nil {
		return fmt.Errorf("store snapshot: %w", err)
	}
	return nil
}

func (b *Backups) snapshot(typ string, now time.Time) Snapshot {
	records := b.store.Records()
	return Snapshot{
		Timestamp: now.UnixMilli(),
		Version:   SchemaVersion,
		Records:   records,
		Metadata: SnapshotMeta{
			RecordCount: len(records),
			CreatedAt:   now.Format(time.RFC3339),
			Type:        typ,
		},
	}
}

// ParseSnapshot decodes a serialized snapshot, failing with
// ErrInvalidFormat when the records field is missing or not a list. Both
// transports accept this format, so a backup exported from either side can
// be imported into the other.
func ParseSnapshot(serialized string) ([]attendance.Record, error) {
	var probe struct {
		Records json.RawMessage `json:"records"`
	}
	if err := json.Unmarshal([]byte(serialized), &probe); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidFormat, err)
	}
	if len(probe.Records) == 0 || string(probe.Records) == "null" {
		return nil, fmt.Errorf("%w: records field missing", ErrInvalidFormat)
	}
	var records []attendance.Record
	if err := json.Unmarshal(probe.Records, &records); err != nil {
		return nil, fmt.Errorf("%w: records is not a list", ErrInvalidFormat)
	}
	return records, nil
}
