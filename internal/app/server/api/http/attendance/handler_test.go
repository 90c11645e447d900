package attendance

import (
	"context"
	"testing"
	"time"

	"prefectlog/internal/domain/attendance"

	"github.com/danielgtaylor/huma/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) MarkAttendance(ctx context.Context, prefectNumber string, role attendance.Role) (attendance.Record, error) {
	args := m.Called(ctx, prefectNumber, role)
	return args.Get(0).(attendance.Record), args.Error(1)
}

func (m *mockStore) ListByDate(ctx context.Context, date string) ([]attendance.Record, error) {
	args := m.Called(ctx, date)
	return args.Get(0).([]attendance.Record), args.Error(1)
}

func (m *mockStore) ListAll(ctx context.Context) ([]attendance.Record, error) {
	args := m.Called(ctx)
	return args.Get(0).([]attendance.Record), args.Error(1)
}

func (m *mockStore) ImportBackup(ctx context.Context, serialized string) error {
	args := m.Called(ctx, serialized)
	return args.Error(0)
}

func (m *mockStore) ExportBackup(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *mockStore) ListMembers(ctx context.Context) ([]attendance.Member, error) {
	args := m.Called(ctx)
	return args.Get(0).([]attendance.Member), args.Error(1)
}

func (m *mockStore) CreateMember(ctx context.Context, prefectNumber string, role attendance.Role, name string) (attendance.Member, error) {
	args := m.Called(ctx, prefectNumber, role, name)
	return args.Get(0).(attendance.Member), args.Error(1)
}

func (m *mockStore) UpdateMember(ctx context.Context, id string, upd attendance.MemberUpdate) (attendance.Member, error) {
	args := m.Called(ctx, id, upd)
	return args.Get(0).(attendance.Member), args.Error(1)
}

func (m *mockStore) DeleteMember(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockStore) WipeAll(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

func newTestHandler(store *mockStore) *Handler {
	return NewHandler(store, slog.Default(), huma.Middlewares{})
}

func TestHandler_mark(t *testing.T) {
	ctx := context.Background()

	t.Run("successful mark returns record", func(t *testing.T) {
		store := &mockStore{}
		rec := attendance.Record{
			ID:            "rec-1",
			PrefectNumber: "P001",
			Role:          attendance.RoleHead,
			Timestamp:     time.Date(2024, 9, 2, 6, 45, 0, 0, time.Local),
			Date:          "2024-09-02",
			Status:        attendance.StatusPresent,
		}
		store.On("MarkAttendance", ctx, "P001", attendance.RoleHead).Return(rec, nil)

		handler := newTestHandler(store)
		output, err := handler.mark(ctx, &markInput{Body: markRequest{
			PrefectNumber: "P001",
			Role:          string(attendance.RoleHead),
		}})

		require.NoError(t, err)
		assert.Equal(t, "Ok", output.Body.Status)
		assert.Equal(t, "rec-1", output.Body.Record.ID)
		store.AssertExpectations(t)
	})

	t.Run("duplicate maps to 409", func(t *testing.T) {
		store := &mockStore{}
		store.On("MarkAttendance", ctx, "P001", attendance.RoleHead).
			Return(attendance.Record{}, attendance.ErrDuplicate)

		handler := newTestHandler(store)
		_, err := handler.mark(ctx, &markInput{Body: markRequest{
			PrefectNumber: "P001",
			Role:          string(attendance.RoleHead),
		}})

		require.Error(t, err)
		var statusErr huma.StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, 409, statusErr.GetStatus())
	})

	t.Run("invalid role maps to 422", func(t *testing.T) {
		store := &mockStore{}
		store.On("MarkAttendance", ctx, "P001", attendance.Role("Janitor")).
			Return(attendance.Record{}, attendance.ErrInvalidRole)

		handler := newTestHandler(store)
		_, err := handler.mark(ctx, &markInput{Body: markRequest{
			PrefectNumber: "P001",
			Role:          "Janitor",
		}})

		require.Error(t, err)
		var statusErr huma.StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, 422, statusErr.GetStatus())
	})
}

func TestHandler_listByDate(t *testing.T) {
	ctx := context.Background()

	t.Run("returns records for the day", func(t *testing.T) {
		store := &mockStore{}
		store.On("ListByDate", ctx, "2024-09-02").Return([]attendance.Record{
			{ID: "a", Date: "2024-09-02"},
			{ID: "b", Date: "2024-09-02"},
		}, nil)

		handler := newTestHandler(store)
		output, err := handler.listByDate(ctx, &listByDateInput{Date: "2024-09-02"})

		require.NoError(t, err)
		assert.Equal(t, 2, output.Body.Count)
		assert.Len(t, output.Body.Records, 2)
	})

	t.Run("malformed date maps to 422 without hitting the store", func(t *testing.T) {
		store := &mockStore{}
		handler := newTestHandler(store)

		_, err := handler.listByDate(ctx, &listByDateInput{Date: "02/09/2024"})

		require.Error(t, err)
		var statusErr huma.StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, 422, statusErr.GetStatus())
		store.AssertNotCalled(t, "ListByDate")
	})
}

func TestHandler_listAll(t *testing.T) {
	ctx := context.Background()
	store := &mockStore{}
	store.On("ListAll", ctx).Return([]attendance.Record{{ID: "a"}}, nil)

	handler := newTestHandler(store)
	output, err := handler.listAll(ctx, &struct{}{})

	require.NoError(t, err)
	assert.Equal(t, "Ok", output.Body.Status)
	assert.Equal(t, 1, output.Body.Count)
}

func TestHandler_wipe(t *testing.T) {
	ctx := context.Background()
	store := &mockStore{}
	store.On("WipeAll", ctx).Return(nil)

	handler := newTestHandler(store)
	output, err := handler.wipe(ctx, &struct{}{})

	require.NoError(t, err)
	assert.Equal(t, "Ok", output.Body.Status)
	store.AssertExpectations(t)
}
