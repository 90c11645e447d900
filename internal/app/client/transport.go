package client

import (
	"context"
	"time"

	"prefectlog/internal/domain/attendance"
	"prefectlog/internal/store"
)

// Transport is the record operation boundary the CLI talks to. The local
// implementation runs against the on-device store; the remote one forwards
// to a shared server. Command code cannot tell them apart.
type Transport interface {
	MarkAttendance(ctx context.Context, prefectNumber string, role attendance.Role) (attendance.Record, error)
	ListByDate(ctx context.Context, date string) ([]attendance.Record, error)
	ListAll(ctx context.Context) ([]attendance.Record, error)
	ImportBackup(ctx context.Context, serialized string) error
	ExportBackup(ctx context.Context) (string, error)
}

// LocalTransport serves every operation from the in-process store.
type LocalTransport struct {
	service *attendance.Service
	backups *store.Backups
}

func NewLocalTransport(service *attendance.Service, backups *store.Backups) *LocalTransport {
	return &LocalTransport{
		service: service,
		backups: backups,
	}
}

func (t *LocalTransport) MarkAttendance(_ context.Context, prefectNumber string, role attendance.Role) (attendance.Record, error) {
	return t.service.Mark(prefectNumber, role, time.Time{})
}

func (t *LocalTransport) ListByDate(_ context.Context, date string) ([]attendance.Record, error) {
	return t.service.ByDate(date), nil
}

func (t *LocalTransport) ListAll(_ context.Context) ([]attendance.Record, error) {
	return t.service.Records(), nil
}

func (t *LocalTransport) ImportBackup(_ context.Context, serialized string) error {
	return t.backups.Restore(serialized)
}

func (t *LocalTransport) ExportBackup(_ context.Context) (string, error) {
	return t.backups.CreateManual()
}
