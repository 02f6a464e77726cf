package symbol

import (
	"fmt"
	"strings"
)

// ============================================================
// Containers
// ============================================================

// List is an ordered sequence of values, usually expressions.
type List []any

// Tuple is a fixed sequence of values, usually expressions.
type Tuple []any

// Set holds distinct values in insertion order.
type Set []any

// NewSet returns the set of vs, dropping values that render like an earlier one.
func NewSet(vs ...any) Set {
	seen := map[string]bool{}
	s := Set{}
	for _, v := range vs {
		k := fmt.Sprint(v)
		if seen[k] {
			continue
		}
		seen[k] = true
		s = append(s, v)
	}
	return s
}

func (l List) String() string  { return "[" + joinValues(l) + "]" }
func (t Tuple) String() string { return "(" + joinValues(t) + ")" }
func (s Set) String() string   { return "{" + joinValues(s) + "}" }

func joinValues(vs []any) string {
	strs := make([]string, len(vs))
	for i, v := range vs {
		strs[i] = fmt.Sprint(v)
	}
	return strings.Join(strs, ", ")
}

// OrderedMap is a map iterated in the order in which keys were first stored.
type OrderedMap[K comparable, V any] struct {
	keys []K
	m    map[K]V
}

// NewOrderedMap returns an empty ordered map.
func NewOrderedMap[K comparable, V any]() *OrderedMap[K, V] {
	return &OrderedMap[K, V]{m: make(map[K]V)}
}

// Store a key,value pair.
func (m *OrderedMap[K, V]) Store(k K, v V) {
	if _, in := m.m[k]; !in {
		m.keys = append(m.keys, k)
	}
	m.m[k] = v
}

// Load returns a value given a key.
func (m *OrderedMap[K, V]) Load(k K) (V, bool) {
	v, ok := m.m[k]
	return v, ok
}

// Iter returns an iterator to range over the elements of the map.
func (m *OrderedMap[K, V]) Iter() func(func(K, V) bool) {
	return func(yield func(K, V) bool) {
		for _, k := range m.keys {
			if !yield(k, m.m[k]) {
				break
			}
		}
	}
}

// Keys returns the keys in insertion order.
func (m *OrderedMap[K, V]) Keys() []K {
	return append([]K(nil), m.keys...)
}

// Size returns the number of elements in the map.
func (m *OrderedMap[K, V]) Size() int { return len(m.keys) }

func (m *OrderedMap[K, V]) String() string {
	parts := make([]string, 0, len(m.keys))
	for k, v := range m.Iter() {
		parts = append(parts, fmt.Sprintf("%v: %v", k, v))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Dict maps arbitrary comparable keys to values, usually expressions.
type Dict = OrderedMap[any, any]

// NewDict returns an empty Dict.
func NewDict() *Dict { return NewOrderedMap[any, any]() }
