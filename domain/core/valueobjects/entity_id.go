package valueobjects

import (
	"errors"
	"strings"
)

// EntityID is a value object identifying a tracked entity (a dashboard
// component or a knowledge card). It is an opaque string key: callers must
// supply it explicitly, it is never derived from the display label.
type EntityID struct {
	value string
}

// NewEntityID creates an EntityID from a caller-supplied string
func NewEntityID(id string) (EntityID, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return EntityID{}, errors.New("entity ID cannot be empty")
	}
	return EntityID{value: id}, nil
}

// String returns the string representation of the EntityID
func (id EntityID) String() string {
	return id.value
}

// Equals checks if two EntityIDs are equal
func (id EntityID) Equals(other EntityID) bool {
	return id.value == other.value
}

// IsZero checks if the EntityID is the zero value
func (id EntityID) IsZero() bool {
	return id.value == ""
}

// MarshalJSON implements json.Marshaler
func (id EntityID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + id.value + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (id *EntityID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return errors.New("EntityID must be a string")
	}
	id.value = string(data[1 : len(data)-1])
	return nil
}

// MarshalText implements encoding.TextMarshaler so EntityID can key JSON maps
func (id EntityID) MarshalText() ([]byte, error) {
	return []byte(id.value), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (id *EntityID) UnmarshalText(data []byte) error {
	id.value = string(data)
	return nil
}
