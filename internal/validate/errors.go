package validate

import (
	"fmt"
	"strings"
)

// SchemaError reports required columns absent from a raw table. Fatal.
type SchemaError struct {
	Table   string
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: missing required column(s): %s", e.Table, strings.Join(e.Missing, ", "))
}

// IntegrityError reports a semantic violation in a raw table: null keys,
// out-of-domain values, future timestamps, sign violations, or dangling
// foreign keys. Fatal.
type IntegrityError struct {
	Table   string
	Check   string
	Message string
	// Sample holds up to a handful of offending values or ids.
	Sample []string
}

func (e *IntegrityError) Error() string {
	if len(e.Sample) > 0 {
		return fmt.Sprintf("%s: %s: %s (sample: %s)", e.Table, e.Check, e.Message, strings.Join(e.Sample, ", "))
	}
	return fmt.Sprintf("%s: %s: %s", e.Table, e.Check, e.Message)
}

const sampleLimit = 5

func sampleOf(values []string) []string {
	if len(values) <= sampleLimit {
		return values
	}
	return values[:sampleLimit]
}
