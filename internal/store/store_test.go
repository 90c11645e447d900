package store

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"prefectlog/internal/domain/attendance"
	"prefectlog/internal/kvstore"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, &slog.HandlerOptions{Level: slog.LevelError}))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func newTestStore(t *testing.T) (*Store, *kvstore.Memory) {
	t.Helper()
	kv := kvstore.NewMemory()
	s, err := New(kv, kvstore.NewMemory(), testLogger())
	require.NoError(t, err)
	return s, kv
}

func record(id, prefect string, role attendance.Role, ts time.Time) attendance.Record {
	return attendance.Record{
		ID:            id,
		PrefectNumber: prefect,
		Role:          role,
		Timestamp:     ts,
		Date:          ts.Format(attendance.DateLayout),
	}
}

func TestRecordsEmptyOnFirstRun(t *testing.T) {
	s, _ := newTestStore(t)
	assert.Empty(t, s.Records())
}

func TestSaveAndReadBack(t *testing.T) {
	s, _ := newTestStore(t)
	ts := time.Date(2025, 4, 1, 6, 30, 0, 0, time.Local)

	require.NoError(t, s.SaveRecords([]attendance.Record{
		record("r1", "42", attendance.RoleSenior, ts),
		record("r2", "17", attendance.RoleJunior, ts),
	}))

	got := s.Records()
	require.Len(t, got, 2)
	assert.Equal(t, "42", got[0].PrefectNumber)
}

func TestRecordsFiltersInvalidEntries(t *testing.T) {
	s, kv := newTestStore(t)
	ts := time.Date(2025, 4, 1, 6, 30, 0, 0, time.Local)
	valid := record("r1", "42", attendance.RoleSenior, ts)
	broken := attendance.Record{ID: "r2"} // missing prefect, role, timestamp

	raw, err := json.Marshal([]attendance.Record{valid, broken})
	require.NoError(t, err)
	require.NoError(t, kv.Set(keyRecords, string(raw)))

	got := s.Records()
	require.Len(t, got, 1)
	assert.Equal(t, "r1", got[0].ID)
}

func TestRecordsReturnsEmptyOnCorruptBlob(t *testing.T) {
	s, kv := newTestStore(t)
	require.NoError(t, kv.Set(keyRecords, "{definitely not json"))
	assert.Empty(t, s.Records())
}

func TestUpdateMergesFields(t *testing.T) {
	s, _ := newTestStore(t)
	ts := time.Date(2025, 4, 1, 6, 30, 0, 0, time.Local)
	require.NoError(t, s.Add(record("r1", "42", attendance.RoleSenior, ts)))

	prefect := "43"
	got, err := s.Update("r1", attendance.Update{PrefectNumber: &prefect})
	require.NoError(t, err)
	assert.Equal(t, "43", got.PrefectNumber)
	assert.Equal(t, attendance.RoleSenior, got.Role)

	stored := s.Records()
	require.Len(t, stored, 1)
	assert.Equal(t, "43", stored[0].PrefectNumber)
}

func TestUpdateMissingIDFails(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.Update("ghost", attendance.Update{})
	assert.ErrorIs(t, err, attendance.ErrNotFound)
}

func TestDeleteIsIdempotent(t *testing.T) {
	s, _ := newTestStore(t)
	ts := time.Date(2025, 4, 1, 6, 30, 0, 0, time.Local)
	require.NoError(t, s.Add(record("r1", "42", attendance.RoleSenior, ts)))

	require.NoError(t, s.Delete("r1"))
	assert.Empty(t, s.Records())

	// Deleting the absent id again changes nothing and does not error.
	require.NoError(t, s.Delete("r1"))
	assert.Empty(t, s.Records())
}

func TestSaveRejectsOversizedPayload(t *testing.T) {
	s, _ := newTestStore(t)
	big := make([]attendance.Record, 0, 1)
	huge := record("r1", "42", attendance.RoleSenior, time.Now())
	huge.Status = string(make([]byte, maxPayloadBytes))
	big = append(big, huge)

	err := s.SaveRecords(big)
	assert.ErrorIs(t, err, ErrStorageLimit)
}

func TestVerifyIntegrityStoresFirstSeenFingerprint(t *testing.T) {
	s, kv := newTestStore(t)
	require.NoError(t, s.SaveRecords([]attendance.Record{
		record("r1", "42", attendance.RoleSenior, time.Now()),
	}))
	kv.Remove(keyChecksum)

	assert.True(t, s.VerifyIntegrity())
	_, ok := kv.Get(keyChecksum)
	assert.True(t, ok)
}

func TestVerifyIntegrityRecoversFromTamper(t *testing.T) {
	s, kv := newTestStore(t)
	ts := time.Date(2025, 4, 1, 6, 30, 0, 0, time.Local)
	require.NoError(t, s.SaveRecords([]attendance.Record{
		record("r1", "42", attendance.RoleSenior, ts),
		record("r2", "17", attendance.RoleJunior, ts),
	}))
	require.NoError(t, s.Backups().PerformAutomatic())

	// Corrupt the live blob behind the store's back.
	raw, _ := kv.Get(keyRecords)
	var recs []attendance.Record
	require.NoError(t, json.Unmarshal([]byte(raw), &recs))
	recs = recs[:1]
	tampered, _ := json.Marshal(recs)
	require.NoError(t, kv.Set(keyRecords, string(tampered)))

	assert.True(t, s.VerifyIntegrity())
	// Recovery restored the snapshot's two records.
	assert.Len(t, s.Records(), 2)
}

// checksumHookKV fires once when the stored fingerprint is read, standing
// in for a writer that shows up in the middle of an integrity pass.
type checksumHookKV struct {
	kvstore.KV
	once sync.Once
	hook func()
}

func (k *checksumHookKV) Get(key string) (string, bool) {
	if key == keyChecksum {
		k.once.Do(k.hook)
	}
	return k.KV.Get(key)
}

func TestVerifyIntegrityDoesNotRevertConcurrentSave(t *testing.T) {
	s, kv := newTestStore(t)
	ts := time.Date(2025, 4, 1, 6, 30, 0, 0, time.Local)
	require.NoError(t, s.Add(record("r1", "42", attendance.RoleSenior, ts)))
	// A rotated snapshot of the one-record state; a spurious recovery
	// would restore it over anything saved later.
	require.NoError(t, s.Backups().PerformAutomatic())

	saved := make(chan error, 1)
	hooked := &checksumHookKV{KV: kv}
	hooked.hook = func() {
		go func() {
			saved <- s.Add(record("r2", "17", attendance.RoleJunior, ts))
		}()
		// Give the save every chance to land before the comparison.
		time.Sleep(50 * time.Millisecond)
	}
	s.kv = hooked

	assert.True(t, s.VerifyIntegrity())
	require.NoError(t, <-saved)
	s.kv = kv

	// The record saved during the pass must survive it.
	got := s.Records()
	require.Len(t, got, 2)
	assert.Equal(t, "r2", got[1].ID)
	assert.True(t, s.VerifyIntegrity())
}

func TestMigrationStampsRecords(t *testing.T) {
	kv := kvstore.NewMemory()
	ts := time.Date(2025, 4, 1, 6, 30, 0, 0, time.Local)
	old := []attendance.Record{record("r1", "42", attendance.RoleSenior, ts)}
	raw, err := json.Marshal(old)
	require.NoError(t, err)
	require.NoError(t, kv.Set(keyRecords, string(raw)))
	require.NoError(t, kv.Set(keyVersion, "1.0"))

	s, err := New(kv, kvstore.NewMemory(), testLogger())
	require.NoError(t, err)

	got := s.Records()
	require.Len(t, got, 1)
	assert.Equal(t, SchemaVersion, got[0].SchemaVersion)
	assert.True(t, got[0].Migrated)
	assert.Equal(t, "42", got[0].PrefectNumber) // required fields untouched

	version, _ := kv.Get(keyVersion)
	assert.Equal(t, SchemaVersion, version)
}

func TestQuotaPressureEvictsDownTo800(t *testing.T) {
	// Capacity sized so the 1200-record payload leaves no probe headroom,
	// simulating ~95% quota usage.
	base := time.Date(2025, 4, 1, 6, 0, 0, 0, time.Local)
	records := make([]attendance.Record, 0, 1200)
	for i := 0; i < 1200; i++ {
		records = append(records, record(
			fmt.Sprintf("r%04d", i),
			fmt.Sprintf("%d", i),
			attendance.RoleSenior,
			base.Add(time.Duration(i)*time.Minute),
		))
	}
	payload, err := json.Marshal(records)
	require.NoError(t, err)

	kv := kvstore.NewMemoryWithCapacity(len(payload) + len(keyRecords) + 2048)
	require.NoError(t, kv.Set(keyRecords, string(payload)))
	require.NoError(t, kv.Set(keyVersion, SchemaVersion))

	s, err := New(kv, kvstore.NewMemory(), testLogger())
	require.NoError(t, err)

	require.NoError(t, s.SaveRecords(records))

	got := s.Records()
	require.Len(t, got, evictKeep)

	// The survivors are exactly the 800 most recent by timestamp.
	cutoff := base.Add(time.Duration(1200-evictKeep) * time.Minute)
	for _, rec := range got {
		assert.False(t, rec.Timestamp.Before(cutoff),
			"record %s older than eviction cutoff survived", rec.ID)
	}
}

func TestLastWriteWinsAcrossStores(t *testing.T) {
	// Two processes writing the same blob race without coordination; the
	// later write wins unconditionally. Accepted limitation, not a bug.
	kv := kvstore.NewMemory()
	a, err := New(kv, kvstore.NewMemory(), testLogger())
	require.NoError(t, err)
	b, err := New(kv, kvstore.NewMemory(), testLogger())
	require.NoError(t, err)

	ts := time.Date(2025, 4, 1, 6, 30, 0, 0, time.Local)
	require.NoError(t, a.SaveRecords([]attendance.Record{record("a1", "1", attendance.RoleHead, ts)}))
	require.NoError(t, b.SaveRecords([]attendance.Record{record("b1", "2", attendance.RoleSenior, ts)}))

	got := a.Records()
	require.Len(t, got, 1)
	assert.Equal(t, "b1", got[0].ID)
}
