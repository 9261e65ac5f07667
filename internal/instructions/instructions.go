// Package instructions implements the two-layer instruction model consumed by
// the bundle build engine: a lower-precedence manifest-attribute layer and a
// higher-precedence explicit-instruction layer with append accumulation.
package instructions

import (
	"maps"
	"slices"
	"strings"
)

// Set accumulates explicit bundle instructions. Repeated Put calls on the same
// key append fragments in call order; Flatten joins them with ",". Keys
// starting with "-" are engine directives, all other keys are manifest header
// names. The zero value is not usable, use NewSet.
type Set struct {
	keys  []string
	frags map[string][]string
}

func NewSet() *Set {
	return &Set{frags: map[string][]string{}}
}

// Put appends the given values as separate fragments under key, creating the
// key if absent. An empty fragment list still creates the key: an instruction
// with no payload is a legal boolean-like directive.
func (s *Set) Put(key string, values ...string) {
	if _, ok := s.frags[key]; !ok {
		s.keys = append(s.keys, key)
		s.frags[key] = []string{}
	}
	s.frags[key] = append(s.frags[key], values...)
}

// Add performs one Put per entry. Map iteration order does not matter for the
// result: collisions are per key, and a single Add contributes at most one
// fragment per key.
func (s *Set) Add(m map[string]string) {
	for _, key := range slices.Sorted(maps.Keys(m)) { // Sort keys to keep insertion order deterministic.
		s.Put(key, m[key])
	}
}

// Keys returns the instruction keys in insertion order.
func (s *Set) Keys() []string {
	return slices.Clone(s.keys)
}

// Fragments returns the accumulated fragments for key, or nil if absent.
func (s *Set) Fragments(key string) []string {
	fs, ok := s.frags[key]
	if !ok {
		return nil
	}
	return slices.Clone(fs)
}

func (s *Set) Has(key string) bool {
	_, ok := s.frags[key]
	return ok
}

func (s *Set) Len() int {
	return len(s.keys)
}

// Flatten joins each key's fragment sequence with "," in insertion order,
// producing the final string values the build engine consumes.
func (s *Set) Flatten() map[string]string {
	out := make(map[string]string, len(s.keys))
	for _, key := range s.keys {
		out[key] = strings.Join(s.frags[key], ",")
	}
	return out
}

// Attributes is the manifest-attribute layer supplied by the archive task
// configuration. The first write per key wins; attributes are not expected to
// repeat.
type Attributes struct {
	keys   []string
	values map[string]string
}

func NewAttributes() *Attributes {
	return &Attributes{values: map[string]string{}}
}

// AttributesFromMap builds the attribute layer from a conventional
// header-name to value map.
func AttributesFromMap(m map[string]string) *Attributes {
	a := NewAttributes()
	for _, key := range slices.Sorted(maps.Keys(m)) {
		a.Set(key, m[key])
	}
	return a
}

// Set records the value for key unless the key has been written before.
func (a *Attributes) Set(key, value string) {
	if _, ok := a.values[key]; ok {
		return
	}
	a.keys = append(a.keys, key)
	a.values[key] = value
}

func (a *Attributes) Get(key string) (string, bool) {
	v, ok := a.values[key]
	return v, ok
}

func (a *Attributes) Keys() []string {
	return slices.Clone(a.keys)
}

// Merge resolves the two layers into the flattened mapping the build engine
// consumes. Any key present in both layers takes the instruction-layer value
// verbatim; there is no accumulation across layers. Either layer may be nil.
// The result depends only on the contents of the two layers.
func Merge(attrs *Attributes, instr *Set) map[string]string {
	var flat map[string]string
	if instr != nil {
		flat = instr.Flatten()
	} else {
		flat = map[string]string{}
	}

	if attrs != nil {
		for _, key := range attrs.keys {
			if _, ok := flat[key]; ok {
				continue
			}
			flat[key] = attrs.values[key]
		}
	}
	return flat
}
