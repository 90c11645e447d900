// Package checksum computes the corruption-detection fingerprint for the
// attendance record set. The hash is deliberately simple and fast; it is
// not collision resistant and must never be used as a security primitive.
package checksum

import (
	"sort"
	"strconv"
	"strings"

	"prefectlog/internal/domain/attendance"
)

// Fingerprint returns a deterministic digest of the record set. Records are
// sorted by id before serialization so insertion order never changes the
// result.
func Fingerprint(records []attendance.Record) string {
	sorted := make([]attendance.Record, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	var b strings.Builder
	for _, rec := range sorted {
		b.WriteString(rec.ID)
		b.WriteByte('|')
		b.WriteString(rec.PrefectNumber)
		b.WriteByte('|')
		b.WriteString(string(rec.Role))
		b.WriteByte('|')
		b.WriteString(strconv.FormatInt(rec.Timestamp.UnixMilli(), 10))
		b.WriteByte('|')
		b.WriteString(rec.Date)
		b.WriteByte('\n')
	}

	return hash(b.String())
}

// hash is a 32-bit shift-and-subtract rolling accumulation rendered in
// base 36.
func hash(s string) string {
	var h int32
	for i := 0; i < len(s); i++ {
		h = h<<5 - h + int32(s[i])
	}
	v := int64(h)
	if v < 0 {
		v = -v
	}
	return strconv.FormatInt(v, 36)
}
