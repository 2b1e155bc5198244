package codespace

import (
	"fmt"

	"github.com/faucetdb/codespace/internal/model"
)

// Hot field names. Their live values are kept in the cache hash stored
// under the codespace ID.
const (
	FieldName = "name"
	FieldCode = "code"
)

// HotFields lists the fields overlaid by the cache.
var HotFields = []string{FieldName, FieldCode}

// SettableFields lists the hot fields the primary update API may change.
// Code only moves through the live-edit path and Flush.
var SettableFields = []string{FieldName}

// MaxNameLength is the width of the name column.
const MaxNameLength = 255

// keyColumn identifies a codespace and doubles as its cache key.
const keyColumn = "id"

// columns are the columns of the durable codespace row.
var columns = []string{"id", "owner_id", "name", "code", "created_at", "updated_at"}

// textFields maps each text column of the row to its accessors. Only these
// columns can round-trip through a string-valued cache hash.
var textFields = map[string]struct {
	get func(*model.CodeSpace) string
	set func(*model.CodeSpace, string)
}{
	FieldName: {
		get: func(r *model.CodeSpace) string { return r.Name },
		set: func(r *model.CodeSpace, v string) { r.Name = v },
	},
	FieldCode: {
		get: func(r *model.CodeSpace) string { return r.Code },
		set: func(r *model.CodeSpace, v string) { r.Code = v },
	},
}

// ValidateHotFields checks a hot-field list against the codespace row: every
// entry must be a known text column, appear once, and differ from the key
// column.
func ValidateHotFields(fields []string) error {
	known := make(map[string]bool, len(columns))
	for _, c := range columns {
		known[c] = true
	}
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if f == keyColumn {
			return fmt.Errorf("key column %q cannot be a hot field", f)
		}
		if !known[f] {
			return fmt.Errorf("hot field %q is not a codespace column", f)
		}
		if _, ok := textFields[f]; !ok {
			return fmt.Errorf("hot field %q is not a text column", f)
		}
		if seen[f] {
			return fmt.Errorf("hot field %q listed twice", f)
		}
		seen[f] = true
	}
	return nil
}

func isSettable(field string) bool {
	for _, f := range SettableFields {
		if f == field {
			return true
		}
	}
	return false
}

// hotValues returns every hot field of the row, stringified for the cache.
func hotValues(row *model.CodeSpace) map[string]string {
	m := make(map[string]string, len(HotFields))
	for _, f := range HotFields {
		m[f] = textFields[f].get(row)
	}
	return m
}
