package domain

import "fmt"

// MalformedRowError reports an aggregation input row whose grouping-key
// material is missing. The whole batch fails; rows are never silently
// dropped into a partial aggregate.
type MalformedRowError struct {
	Index int    // position of the row in the input batch
	Field string // grouping-key field that was missing or zero
}

func (e *MalformedRowError) Error() string {
	return fmt.Sprintf("malformed row at index %d: missing %s", e.Index, e.Field)
}
