// Package storage defines the server-side record store boundary: the same
// operations the local store offers, served out of process. Callers must
// not be able to tell the two transports apart by semantics, only by
// latency and error surface.
package storage

import (
	"context"

	"prefectlog/internal/domain/attendance"
)

// Store is implemented by the sqlite and postgres backends.
type Store interface {
	// MarkAttendance finds or creates the member with the given prefect
	// number and records a check-in, enforcing the
	// (prefectNumber, role, date) uniqueness invariant.
	MarkAttendance(ctx context.Context, prefectNumber string, role attendance.Role) (attendance.Record, error)

	// ListByDate returns every record marked on the given calendar day.
	ListByDate(ctx context.Context, date string) ([]attendance.Record, error)

	// ListAll returns every record.
	ListAll(ctx context.Context) ([]attendance.Record, error)

	// ImportBackup replaces the record set wholesale with the snapshot's
	// records, filtering out structurally invalid entries.
	ImportBackup(ctx context.Context, serialized string) error

	// ExportBackup serializes the full record set as a snapshot document.
	ExportBackup(ctx context.Context) (string, error)

	// ListMembers returns the full roster.
	ListMembers(ctx context.Context) ([]attendance.Member, error)

	// CreateMember registers a roster entry. A second member with the same
	// prefect number is rejected.
	CreateMember(ctx context.Context, prefectNumber string, role attendance.Role, name string) (attendance.Member, error)

	// UpdateMember merges upd over the member with the given id.
	UpdateMember(ctx context.Context, id string, upd attendance.MemberUpdate) (attendance.Member, error)

	// DeleteMember removes a roster entry. Deleting an absent id is a no-op.
	DeleteMember(ctx context.Context, id string) error

	// WipeAll removes every record and member.
	WipeAll(ctx context.Context) error

	Close() error
}
