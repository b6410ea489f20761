package normalizer

import "fmt"

// MissingIdentifierError is returned for a record without its unique key.
type MissingIdentifierError struct {
	Field string
}

func (e *MissingIdentifierError) Error() string {
	return fmt.Sprintf("missing identifier field %q", e.Field)
}

// MalformedTimestampError is returned when last_time can't be parsed.
type MalformedTimestampError struct {
	ID    string
	Value any
	Err   error
}

func (e *MalformedTimestampError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed timestamp %v for %s: %v", e.Value, e.ID, e.Err)
	}
	return fmt.Sprintf("malformed timestamp %v for %s", e.Value, e.ID)
}

func (e *MalformedTimestampError) Unwrap() error {
	return e.Err
}
