package attendance

// Repository is the persistence surface the service runs on. The durable
// local store implements it; tests supply mocks.
type Repository interface {
	// Records returns every structurally valid persisted record. It never
	// fails; unreadable state yields an empty slice.
	Records() []Record

	// SaveRecords replaces the persisted record set wholesale.
	SaveRecords(records []Record) error

	// Add appends a record and persists.
	Add(record Record) error

	// Update merges upd over the record with the given id and persists,
	// returning the merged record. Fails with ErrNotFound when the id is
	// absent.
	Update(id string, upd Update) (Record, error)

	// Delete removes the record with the given id. Deleting an absent id
	// is a no-op, not an error.
	Delete(id string) error
}
