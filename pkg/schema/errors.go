package schema

import "fmt"

// SchemaError reports a raw schema that cannot be normalized.
type SchemaError struct {
	DBID    string
	Message string
}

func (e *SchemaError) Error() string {
	if e.DBID == "" {
		return fmt.Sprintf("schema error: %s", e.Message)
	}
	return fmt.Sprintf("schema error in %s: %s", e.DBID, e.Message)
}
