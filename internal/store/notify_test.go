package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prefectlog/internal/domain/attendance"
)

func TestListenersReceiveEveryWrite(t *testing.T) {
	s, _ := newTestStore(t)

	var calls [][]attendance.Record
	unsubscribe := s.Subscribe(func(records []attendance.Record) {
		calls = append(calls, records)
	})
	defer unsubscribe()

	ts := time.Date(2025, 4, 1, 6, 30, 0, 0, time.Local)
	require.NoError(t, s.Add(record("r1", "42", attendance.RoleSenior, ts)))
	require.NoError(t, s.Delete("r1"))

	require.Len(t, calls, 2)
	assert.Len(t, calls[0], 1)
	assert.Len(t, calls[1], 0)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	s, _ := newTestStore(t)

	count := 0
	unsubscribe := s.Subscribe(func([]attendance.Record) { count++ })

	ts := time.Date(2025, 4, 1, 6, 30, 0, 0, time.Local)
	require.NoError(t, s.Add(record("r1", "42", attendance.RoleSenior, ts)))
	unsubscribe()
	require.NoError(t, s.Delete("r1"))

	assert.Equal(t, 1, count)
}

func TestPanickingListenerDoesNotBlockOthers(t *testing.T) {
	s, _ := newTestStore(t)

	delivered := false
	s.Subscribe(func([]attendance.Record) { panic("listener bug") })
	s.Subscribe(func([]attendance.Record) { delivered = true })

	ts := time.Date(2025, 4, 1, 6, 30, 0, 0, time.Local)
	require.NoError(t, s.Add(record("r1", "42", attendance.RoleSenior, ts)))

	assert.True(t, delivered)
}

func TestFailedWriteDoesNotNotify(t *testing.T) {
	s, _ := newTestStore(t)

	count := 0
	s.Subscribe(func([]attendance.Record) { count++ })

	huge := record("r1", "42", attendance.RoleSenior, time.Now())
	huge.Status = string(make([]byte, maxPayloadBytes))
	require.Error(t, s.SaveRecords([]attendance.Record{huge}))

	assert.Equal(t, 0, count)
}
