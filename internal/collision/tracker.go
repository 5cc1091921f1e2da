// Package collision detects plane identifiers whose 64-bit hashes collide, so
// that hash lookups never return the wrong plane.
package collision

import "github.com/arloliu/zisraw/errs"

// Tracker records hash → plane identifier mappings.
type Tracker struct {
	names     map[uint64]string
	collided  map[uint64]struct{}
	namesList []string
}

// NewTracker creates a new collision tracker.
func NewTracker() *Tracker {
	return &Tracker{
		names:    make(map[uint64]string),
		collided: make(map[uint64]struct{}),
	}
}

// Track records name under hash.
//
// Returns errs.ErrDuplicatePlane if the same name was tracked before. A
// different name with the same hash marks the hash as collided; this is not an
// error.
func (t *Tracker) Track(name string, hash uint64) error {
	if existing, ok := t.names[hash]; ok {
		if existing == name {
			return errs.ErrDuplicatePlane
		}
		t.collided[hash] = struct{}{}
	} else {
		t.names[hash] = name
	}

	t.namesList = append(t.namesList, name)

	return nil
}

// Unique reports whether hash maps to exactly one tracked name.
func (t *Tracker) Unique(hash uint64) bool {
	if _, ok := t.names[hash]; !ok {
		return false
	}
	_, collided := t.collided[hash]

	return !collided
}

// HasCollision reports whether any hash collided.
func (t *Tracker) HasCollision() bool {
	return len(t.collided) > 0
}

// Names returns the tracked names in tracking order.
func (t *Tracker) Names() []string {
	return t.namesList
}

// Count returns the number of tracked names.
func (t *Tracker) Count() int {
	return len(t.namesList)
}
