package actor

import (
	"strings"

	"github.com/google/uuid"
)

// ID is an opaque, non-empty actor identity. Equality and hashing are based
// on the wrapped string; the zero value is never a valid id.
type ID struct {
	s string
}

// NewID wraps an existing identity string. The caller is responsible for
// ensuring s is non-empty; an empty ID never compares equal to anything,
// including another empty ID, matching the "empty other is not equal"
// convention of the original identity type.
func NewID(s string) ID {
	return ID{s: s}
}

// NewRandomID returns a freshly generated, random 16-hex-character actor id
// derived from a cryptographically seeded source.
func NewRandomID() ID {
	raw := uuid.New()
	hex := strings.ReplaceAll(raw.String(), "-", "")

	return ID{s: hex[:16]}
}

// String returns the wrapped identity string.
func (id ID) String() string {
	return id.s
}

// IsZero reports whether id is the empty, invalid identity.
func (id ID) IsZero() bool {
	return id.s == ""
}

// Equal reports whether id and other refer to the same identity. An empty id
// never equals anything, including another empty id.
func (id ID) Equal(other ID) bool {
	if id.s == "" || other.s == "" {
		return false
	}

	return id.s == other.s
}
