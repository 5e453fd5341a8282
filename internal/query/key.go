package query

import "strings"

// Key identifies a cached resource, e.g. ["tasks"] or ["tasks", "3f2a"].
type Key []string

// Well-known keys.
var (
	KeyTasks = Key{"tasks"}
	KeySteps = Key{"steps"}
)

// KeyTask returns the key of one task's detail.
func KeyTask(id string) Key {
	return Key{"tasks", id}
}

// HasPrefix reports whether prefix matches k element-wise. An empty prefix
// matches every key.
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix) > len(k) {
		return false
	}
	for i, part := range prefix {
		if k[i] != part {
			return false
		}
	}
	return true
}

// Equal reports whether k and other have the same elements.
func (k Key) Equal(other Key) bool {
	return len(k) == len(other) && k.HasPrefix(other)
}

// String renders the key for logs and map lookups.
func (k Key) String() string {
	return strings.Join(k, "/")
}
