package store

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prefectlog/internal/domain/attendance"
	"prefectlog/internal/kvstore"
)

func backupKeys(kv kvstore.KV) []string {
	var keys []string
	for _, k := range kv.Keys() {
		if strings.HasPrefix(k, backupKeyPrefix) {
			keys = append(keys, k)
		}
	}
	return keys
}

func TestManualBackupRoundTrip(t *testing.T) {
	s, _ := newTestStore(t)
	ts := time.Date(2025, 4, 1, 6, 30, 0, 0, time.Local)
	original := []attendance.Record{
		record("r1", "42", attendance.RoleSenior, ts),
		record("r2", "17", attendance.RoleJunior, ts.Add(time.Minute)),
	}
	require.NoError(t, s.SaveRecords(original))

	exported, err := s.Backups().CreateManual()
	require.NoError(t, err)
	// Manual export is pretty-printed for human readability.
	assert.True(t, strings.Contains(exported, "\n  "))

	var snap Snapshot
	require.NoError(t, json.Unmarshal([]byte(exported), &snap))
	assert.Equal(t, BackupManual, snap.Metadata.Type)
	assert.Equal(t, 2, snap.Metadata.RecordCount)
	assert.Equal(t, SchemaVersion, snap.Version)

	// Wipe, then restore reproduces an equivalent record set.
	require.NoError(t, s.Wipe())
	require.NoError(t, s.Backups().Restore(exported))

	got := s.Records()
	require.Len(t, got, 2)
	assert.Equal(t, original[0].ID, got[0].ID)
	assert.Equal(t, original[0].PrefectNumber, got[0].PrefectNumber)
	assert.Equal(t, original[1].Role, got[1].Role)
}

func TestRestoreRejectsMissingRecordsField(t *testing.T) {
	s, _ := newTestStore(t)

	err := s.Backups().Restore(`{"timestamp": 1, "version": "2.0"}`)
	assert.ErrorIs(t, err, ErrInvalidFormat)

	err = s.Backups().Restore(`{"records": "not a list"}`)
	assert.ErrorIs(t, err, ErrInvalidFormat)

	err = s.Backups().Restore(`not even json`)
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestRestoreFiltersInvalidRecords(t *testing.T) {
	s, _ := newTestStore(t)
	ts := time.Date(2025, 4, 1, 6, 30, 0, 0, time.Local)
	snap := Snapshot{
		Timestamp: ts.UnixMilli(),
		Version:   SchemaVersion,
		Records: []attendance.Record{
			record("r1", "42", attendance.RoleSenior, ts),
			{ID: "broken"},
		},
		Metadata: SnapshotMeta{RecordCount: 2, CreatedAt: ts.Format(time.RFC3339), Type: BackupManual},
	}
	raw, err := json.Marshal(snap)
	require.NoError(t, err)

	require.NoError(t, s.Backups().Restore(string(raw)))
	got := s.Records()
	require.Len(t, got, 1)
	assert.Equal(t, "r1", got[0].ID)
}

func TestRestoreIsWholesaleReplace(t *testing.T) {
	s, _ := newTestStore(t)
	ts := time.Date(2025, 4, 1, 6, 30, 0, 0, time.Local)
	require.NoError(t, s.SaveRecords([]attendance.Record{
		record("live", "1", attendance.RoleHead, ts),
	}))

	snap := Snapshot{
		Timestamp: ts.UnixMilli(),
		Version:   SchemaVersion,
		Records:   []attendance.Record{record("restored", "2", attendance.RoleSenior, ts)},
		Metadata:  SnapshotMeta{RecordCount: 1, CreatedAt: ts.Format(time.RFC3339), Type: BackupManual},
	}
	raw, err := json.Marshal(snap)
	require.NoError(t, err)
	require.NoError(t, s.Backups().Restore(string(raw)))

	got := s.Records()
	require.Len(t, got, 1)
	assert.Equal(t, "restored", got[0].ID, "records absent from the backup must not survive a restore")
}

func TestRotationKeepsFiveMostRecent(t *testing.T) {
	current := time.Date(2025, 4, 1, 6, 0, 0, 0, time.Local)
	kv := kvstore.NewMemory()
	s, err := New(kv, kvstore.NewMemory(), testLogger(), WithClock(func() time.Time { return current }))
	require.NoError(t, err)
	require.NoError(t, s.SaveRecords([]attendance.Record{
		record("r1", "42", attendance.RoleSenior, current),
	}))

	for i := 0; i < 8; i++ {
		current = current.Add(time.Hour)
		require.NoError(t, s.Backups().PerformAutomatic())
	}

	keys := backupKeys(kv)
	require.Len(t, keys, maxRotated)

	// The survivors carry the 5 largest embedded timestamps.
	var newest int64
	for _, k := range keys {
		ts, err := strconv.ParseInt(strings.TrimPrefix(k, backupKeyPrefix), 10, 64)
		require.NoError(t, err)
		if ts > newest {
			newest = ts
		}
	}
	assert.Equal(t, current.UnixMilli(), newest)
}

func TestNeedsAutomatic(t *testing.T) {
	current := time.Date(2025, 4, 1, 6, 0, 0, 0, time.Local)
	kv := kvstore.NewMemory()
	s, err := New(kv, kvstore.NewMemory(), testLogger(), WithClock(func() time.Time { return current }))
	require.NoError(t, err)

	assert.True(t, s.Backups().NeedsAutomatic(), "never backed up")

	require.NoError(t, s.Backups().PerformAutomatic())
	assert.False(t, s.Backups().NeedsAutomatic())

	current = current.Add(AutomaticInterval + time.Minute)
	assert.True(t, s.Backups().NeedsAutomatic(), "interval elapsed")
}

func TestEmergencyBackupGoesToSessionChannel(t *testing.T) {
	kv := kvstore.NewMemory()
	session := kvstore.NewMemory()
	s, err := New(kv, session, testLogger())
	require.NoError(t, err)
	ts := time.Date(2025, 4, 1, 6, 30, 0, 0, time.Local)
	require.NoError(t, s.SaveRecords([]attendance.Record{
		record("r1", "42", attendance.RoleSenior, ts),
	}))

	s.Backups().PerformEmergency()

	raw, ok := session.Get(keyEmergency)
	require.True(t, ok)
	var snap Snapshot
	require.NoError(t, json.Unmarshal([]byte(raw), &snap))
	assert.Equal(t, BackupEmergency, snap.Metadata.Type)
	assert.Len(t, snap.Records, 1)

	// The rotating set in the durable KV is untouched.
	assert.Empty(t, backupKeys(kv))
}

func TestRecoveryWithoutSnapshotFiltersInPlace(t *testing.T) {
	s, kv := newTestStore(t)
	ts := time.Date(2025, 4, 1, 6, 30, 0, 0, time.Local)
	mixed := []attendance.Record{
		record("r1", "42", attendance.RoleSenior, ts),
		{ID: "broken"},
	}
	raw, err := json.Marshal(mixed)
	require.NoError(t, err)
	require.NoError(t, kv.Set(keyRecords, string(raw)))
	require.NoError(t, kv.Set(keyChecksum, "bogus"))

	assert.True(t, s.VerifyIntegrity())

	var persisted []attendance.Record
	stored, _ := kv.Get(keyRecords)
	require.NoError(t, json.Unmarshal([]byte(stored), &persisted))
	require.Len(t, persisted, 1)
	assert.Equal(t, "r1", persisted[0].ID)
}

func TestPruneIgnoresForeignKeys(t *testing.T) {
	s, kv := newTestStore(t)
	require.NoError(t, kv.Set(backupKeyPrefix+"not-a-timestamp", "{}"))
	for i := 0; i < maxRotated+2; i++ {
		require.NoError(t, kv.Set(backupKeyPrefix+strconv.Itoa(1000+i), fmt.Sprintf(`{"timestamp":%d}`, 1000+i)))
	}

	s.Backups().prune()

	assert.Len(t, backupKeys(kv), maxRotated+1, "unparseable key is left alone")
	_, ok := kv.Get(backupKeyPrefix + "not-a-timestamp")
	assert.True(t, ok)
}
