// Package store implements the durable local record store: versioned
// persistence of the attendance record set with integrity verification,
// quota-bounded eviction, backup rotation and change notification.
package store

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"golang.org/x/exp/slog"

	"prefectlog/internal/checksum"
	"prefectlog/internal/domain/attendance"
	"prefectlog/internal/kvstore"
)

// SchemaVersion tags the persisted record set. Records written by an older
// schema are stamped to this version at startup.
const SchemaVersion = "2.0"

const (
	keyRecords  = "prefect_attendance_records"
	keyVersion  = "prefect_attendance_version"
	keyChecksum = "prefect_attendance_checksum"
	keyMetadata = "prefect_backup_metadata"
)

const (
	// maxPayloadBytes bounds a single serialized record-set write.
	maxPayloadBytes = 4 * 1024 * 1024

	// quotaPressure is the usage ratio past which a save evicts first.
	quotaPressure = 0.9

	// evictTrigger / evictKeep: when quota pressure hits and the live set
	// is larger than evictTrigger, only the evictKeep most recent records
	// by timestamp survive. Irreversible; logged loudly.
	evictTrigger = 1000
	evictKeep    = 800

	// Space probing: bounded filler writes used to approximate headroom.
	probeFillerSize = 64 * 1024
	maxProbes       = 16
	probeKeyPrefix  = "__space_probe_"
)

// Metadata mirrors the persisted bookkeeping blob updated on every save.
type Metadata struct {
	LastUpdated string `json:"lastUpdated"`
	RecordCount int    `json:"recordCount"`
	Version     string `json:"version"`
}

// reloader is implemented by KVs that can refresh their view from durable
// storage after an external write.
type reloader interface {
	Reload() error
}

// Store owns the persisted record set. All writes funnel through it; it is
// the single logical writer in the process.
type Store struct {
	kv  kvstore.KV
	log *slog.Logger
	now func() time.Time

	mu sync.Mutex // guards read-modify-write cycles

	listenerMu   sync.Mutex
	listeners    map[int]Listener
	nextListener int

	backups *Backups
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New builds a Store over kv and runs schema migration before any read is
// served. session receives emergency snapshots and is never consulted by
// recovery.
func New(kv kvstore.KV, session kvstore.KV, log *slog.Logger, opts ...Option) (*Store, error) {
	s := &Store{
		kv:        kv,
		log:       log.With("component", "record_store"),
		now:       time.Now,
		listeners: make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.backups = newBackups(s, session, log)

	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("schema migration: %w", err)
	}
	return s, nil
}

// Backups exposes the backup subsystem bound to this store.
func (s *Store) Backups() *Backups {
	return s.backups
}

// Records returns every structurally valid persisted record. Entries
// missing a required field are filtered out rather than failing the read;
// any read failure yields an empty slice, never an error.
func (s *Store) Records() []attendance.Record {
	raw, ok := s.kv.Get(keyRecords)
	if !ok || raw == "" {
		return []attendance.Record{}
	}
	var records []attendance.Record
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		s.log.Error("stored record set is unreadable", "error", err)
		return []attendance.Record{}
	}
	valid := records[:0]
	for _, rec := range records {
		if rec.Valid() {
			valid = append(valid, rec)
		}
	}
	if dropped := len(records) - len(valid); dropped > 0 {
		s.log.Warn("filtered structurally invalid records on read", "dropped", dropped)
	}
	return valid
}

// SaveRecords replaces the persisted record set wholesale. Oversized
// payloads fail with ErrStorageLimit; under quota pressure old backups and
// then old records are evicted first. Listeners are notified on success.
func (s *Store) SaveRecords(records []attendance.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(records)
}

// Add appends a record and persists.
func (s *Store) Add(record attendance.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(append(s.Records(), record))
}

// Update merges upd over the record with the given id, persists, and
// returns the merged record. Fails with attendance.ErrNotFound when the id
// is absent.
func (s *Store) Update(id string, upd attendance.Update) (attendance.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.Records()
	for i, rec := range records {
		if rec.ID != id {
			continue
		}
		merged := upd.Apply(rec)
		merged.ID = id // the id is immutable
		records[i] = merged
		if err := s.saveLocked(records); err != nil {
			return attendance.Record{}, err
		}
		return merged, nil
	}
	return attendance.Record{}, attendance.ErrNotFound
}

// Delete removes the record with the given id and persists. Deleting an
// absent id is a no-op.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.Records()
	kept := records[:0]
	for _, rec := range records {
		if rec.ID != id {
			kept = append(kept, rec)
		}
	}
	if len(kept) == len(records) {
		return nil
	}
	return s.saveLocked(kept)
}

// VerifyIntegrity recomputes the fingerprint over the current records and
// compares it to the stored one. A mismatch triggers recovery and reports
// its outcome; a match (or a first-seen fingerprint) returns true. The
// whole check runs under the write lock so a save can never land between
// reading the records and reading their fingerprint.
func (s *Store) VerifyIntegrity() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.Records()
	computed := checksum.Fingerprint(records)
	stored, ok := s.kv.Get(keyChecksum)
	if !ok || stored == "" {
		if err := s.kv.Set(keyChecksum, computed); err != nil {
			s.log.Warn("could not persist first-seen fingerprint", "error", err)
		}
		return true
	}
	if stored == computed {
		return true
	}

	s.log.Warn("attempting recovery", "error", ErrIntegrityMismatch,
		"stored", stored, "computed", computed, "records", len(records))
	if err := s.backups.attemptRecovery(); err != nil {
		s.log.Error("integrity recovery failed", "error", err)
		return false
	}
	return true
}

// Wipe removes every record. Explicit destructive operation; the caller is
// responsible for gating it.
func (s *Store) Wipe() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked([]attendance.Record{})
}

// HandleExternalChange refreshes the in-memory view after another process
// rewrote the durable blob, then notifies listeners. Last write wins; there
// is no merge.
func (s *Store) HandleExternalChange() {
	if r, ok := s.kv.(reloader); ok {
		if err := r.Reload(); err != nil {
			s.log.Warn("reload after external change failed", "error", err)
			return
		}
	}
	s.notify(s.Records())
}

// saveLocked is the single write path. Callers hold s.mu.
func (s *Store) saveLocked(records []attendance.Record) error {
	if records == nil {
		records = []attendance.Record{}
	}

	payload, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode records: %w", err)
	}
	if len(payload) > maxPayloadBytes {
		return fmt.Errorf("%w: %d bytes", ErrStorageLimit, len(payload))
	}

	if ratio := s.usageRatio(); ratio > quotaPressure {
		s.log.Warn("storage quota pressure, evicting", "usage_ratio", ratio)
		records = s.evict(records)
		if payload, err = json.Marshal(records); err != nil {
			return fmt.Errorf("encode records after eviction: %w", err)
		}
	}

	if err := s.kv.Set(keyRecords, string(payload)); err != nil {
		s.log.Error("record write failed, attempting recovery", "error", err)
		if rerr := s.backups.attemptRecovery(); rerr != nil {
			s.log.Error("recovery after write failure also failed", "error", rerr)
		}
		return fmt.Errorf("write records: %w", err)
	}

	if err := s.kv.Set(keyChecksum, checksum.Fingerprint(records)); err != nil {
		s.log.Warn("could not persist fingerprint", "error", err)
	}
	s.writeMetadata(len(records))

	s.notify(records)
	return nil
}

// writeRecordsRaw bypasses quota checks and recovery. Only the recovery
// path itself uses it, to avoid recursing into another recovery attempt.
func (s *Store) writeRecordsRaw(records []attendance.Record) error {
	payload, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode records: %w", err)
	}
	if err := s.kv.Set(keyRecords, string(payload)); err != nil {
		return fmt.Errorf("write records: %w", err)
	}
	if err := s.kv.Set(keyChecksum, checksum.Fingerprint(records)); err != nil {
		s.log.Warn("could not persist fingerprint", "error", err)
	}
	s.writeMetadata(len(records))
	s.notify(records)
	return nil
}

func (s *Store) writeMetadata(count int) {
	meta := Metadata{
		LastUpdated: s.now().Format(time.RFC3339),
		RecordCount: count,
		Version:     SchemaVersion,
	}
	raw, err := json.Marshal(meta)
	if err == nil {
		err = s.kv.Set(keyMetadata, string(raw))
	}
	if err != nil {
		s.log.Warn("could not update store metadata", "error", err)
	}
}

// evict frees space under quota pressure: rotated backups are pruned first,
// then, if the live set is still larger than evictTrigger, only the
// evictKeep most recent records by timestamp survive.
func (s *Store) evict(records []attendance.Record) []attendance.Record {
	s.backups.prune()

	if len(records) <= evictTrigger {
		return records
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Timestamp.After(records[j].Timestamp)
	})
	dropped := len(records) - evictKeep
	s.log.Warn("evicting oldest records under quota pressure",
		"dropped", dropped, "kept", evictKeep)
	return records[:evictKeep]
}

// usageBytes approximates used space as the summed lengths of every
// persisted key and value.
func (s *Store) usageBytes() int {
	total := 0
	for _, key := range s.kv.Keys() {
		if v, ok := s.kv.Get(key); ok {
			total += len(key) + len(v)
		}
	}
	return total
}

// availableBytes approximates remaining headroom by a bounded sequence of
// filler probe writes, all removed afterwards regardless of outcome.
func (s *Store) availableBytes() int {
	filler := string(make([]byte, probeFillerSize))
	probes := 0
	defer func() {
		for i := 0; i < maxProbes; i++ {
			s.kv.Remove(probeKeyPrefix + strconv.Itoa(i))
		}
	}()
	for i := 0; i < maxProbes; i++ {
		if err := s.kv.Set(probeKeyPrefix+strconv.Itoa(i), filler); err != nil {
			break
		}
		probes++
	}
	return probes * probeFillerSize
}

func (s *Store) usageRatio() float64 {
	used := s.usageBytes()
	avail := s.availableBytes()
	if used == 0 {
		return 0
	}
	if avail == 0 {
		return 1
	}
	return float64(used) / float64(used+avail)
}

// migrate stamps every record written under an older schema with the
// current version and a migrated marker. Additive only: existing required
// fields are never dropped or reinterpreted. Runs before the first read.
func (s *Store) migrate() error {
	version, _ := s.kv.Get(keyVersion)
	if version == SchemaVersion {
		return nil
	}

	raw, ok := s.kv.Get(keyRecords)
	if ok && raw != "" {
		var records []attendance.Record
		if err := json.Unmarshal([]byte(raw), &records); err != nil {
			s.log.Error("unreadable record set during migration, leaving as is", "error", err)
		} else {
			for i := range records {
				records[i].SchemaVersion = SchemaVersion
				records[i].Migrated = true
			}
			payload, err := json.Marshal(records)
			if err != nil {
				return fmt.Errorf("encode migrated records: %w", err)
			}
			if err := s.kv.Set(keyRecords, string(payload)); err != nil {
				return fmt.Errorf("write migrated records: %w", err)
			}
			if err := s.kv.Set(keyChecksum, checksum.Fingerprint(records)); err != nil {
				s.log.Warn("could not persist fingerprint after migration", "error", err)
			}
			s.log.Info("migrated record set", "from", version, "to", SchemaVersion, "records", len(records))
		}
	}

	if err := s.kv.Set(keyVersion, SchemaVersion); err != nil {
		return fmt.Errorf("write schema version: %w", err)
	}
	return nil
}
