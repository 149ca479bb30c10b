// Package state defines the contract between scriptable entities and the
// scripting engine: a JSON shaped snapshot going out, and one coming back.
package state

import (
	"bytes"
	"fmt"

	json "github.com/goccy/go-json"
)

// ScriptKey is the snapshot field naming the behaviour script that drives an entity.
const ScriptKey = "script"

// Snapshot is the externally visible state of an entity. Values must be JSON
// representable: nil, bool, float64, string, []any, map[string]any.
type Snapshot map[string]any

// Collector is implemented by every entity that can be put under script control.
// CollectState returns nil when the entity has nothing to expose.
type Collector interface {
	CollectState() Snapshot
	ApplyState(Snapshot)
}

// Script returns the behaviour script named by the snapshot, or "".
func (s Snapshot) Script() string {
	name, _ := s[ScriptKey].(string)
	return name
}

// Clone returns a deep copy normalised through JSON, so integers become float64
// and Go structs become maps.
func (s Snapshot) Clone() (Snapshot, error) {
	if s == nil {
		return nil, nil
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotSerializable, err)
	}
	return Parse(data)
}

// MustClone is Clone for snapshots built from literals.
func (s Snapshot) MustClone() Snapshot {
	c, err := s.Clone()
	if err != nil {
		panic(err)
	}
	return c
}

// Encode renders the snapshot as canonical JSON with sorted keys.
func (s Snapshot) Encode() ([]byte, error) {
	data, err := json.Marshal(map[string]any(s))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotSerializable, err)
	}
	return data, nil
}

// Equal compares two snapshots by their canonical encoding.
func (s Snapshot) Equal(other Snapshot) bool {
	a, err := s.Encode()
	if err != nil {
		return false
	}
	b, err := other.Encode()
	if err != nil {
		return false
	}
	return bytes.Equal(a, b)
}

func (s Snapshot) String() string {
	data, err := s.Encode()
	if err != nil {
		return fmt.Sprintf("<%v>", err)
	}
	return string(data)
}

// Parse decodes a JSON object into a Snapshot. Anything but an object is
// rejected with ErrNotObject.
func Parse(data []byte) (Snapshot, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, ErrNotObject
	}
	var s Snapshot
	if err := json.Unmarshal(trimmed, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotObject, err)
	}
	if s == nil {
		return nil, ErrNotObject
	}
	return s, nil
}
