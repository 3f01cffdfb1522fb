// Package attr implements the per-CRS attribute store: a string-keyed map of
// bool, int and string values with type-checked retrieval.
package attr

import (
	"sort"
	"strconv"
	"sync"

	"github.com/mohammed-shakir/crs-cache/internal/crs/crserr"
)

type Type uint8

const (
	TypeInvalid Type = iota
	TypeBool
	TypeInt
	TypeString
)

func (t Type) String() string {
	switch t {
	case TypeBool:
		return "bool"
	case TypeInt:
		return "int"
	case TypeString:
		return "string"
	default:
		return "invalid"
	}
}

// Value is a tagged union over the supported attribute types. The zero Value
// is invalid.
type Value struct {
	typ Type
	b   bool
	i   int
	s   string
}

func Bool(v bool) Value     { return Value{typ: TypeBool, b: v} }
func Int(v int) Value       { return Value{typ: TypeInt, i: v} }
func String(v string) Value { return Value{typ: TypeString, s: v} }

func (v Value) Type() Type { return v.typ }

// Any returns the held value as bool, int or string.
func (v Value) Any() any {
	switch v.typ {
	case TypeBool:
		return v.b
	case TypeInt:
		return v.i
	case TypeString:
		return v.s
	default:
		return nil
	}
}

func (v Value) String() string {
	switch v.typ {
	case TypeBool:
		return strconv.FormatBool(v.b)
	case TypeInt:
		return strconv.Itoa(v.i)
	case TypeString:
		return v.s
	default:
		return "<invalid>"
	}
}

// Store is safe for concurrent use.
type Store struct {
	mu sync.RWMutex
	m  map[string]Value
}

func NewStore() *Store {
	return &Store{m: make(map[string]Value)}
}

func (s *Store) Set(name string, v Value) {
	s.mu.Lock()
	s.m[name] = v
	s.mu.Unlock()
}

// Get returns the raw value or an AttributeMissing error.
func (s *Store) Get(name string) (Value, error) {
	s.mu.RLock()
	v, ok := s.m[name]
	s.mu.RUnlock()
	if !ok {
		return Value{}, crserr.AttributeMissing(name)
	}
	return v, nil
}

func (s *Store) Has(name string) bool {
	s.mu.RLock()
	_, ok := s.m[name]
	s.mu.RUnlock()
	return ok
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}

// Names returns the attribute names in sorted order.
func (s *Store) Names() []string {
	s.mu.RLock()
	out := make([]string, 0, len(s.m))
	for k := range s.m {
		out = append(out, k)
	}
	s.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Snapshot copies all attributes into a plain map.
func (s *Store) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any, len(s.m))
	for k, v := range s.m {
		out[k] = v.Any()
	}
	return out
}

// Merge copies every value of other into s.
func (s *Store) Merge(other map[string]Value) {
	s.mu.Lock()
	for k, v := range other {
		s.m[k] = v
	}
	s.mu.Unlock()
}

func (s *Store) Bool(name string) (bool, error)     { return Get[bool](s, name) }
func (s *Store) Int(name string) (int, error)       { return Get[int](s, name) }
func (s *Store) String(name string) (string, error) { return Get[string](s, name) }

// Get returns the named attribute as T, failing with AttributeMissing or
// AttributeTypeMismatch.
func Get[T bool | int | string](s *Store, name string) (T, error) {
	var zero T
	v, err := s.Get(name)
	if err != nil {
		return zero, err
	}
	want := typeOf[T]()
	if v.typ != want {
		return zero, crserr.AttributeTypeMismatch(name, want.String(), v.typ.String())
	}
	out, _ := v.Any().(T)
	return out, nil
}

func typeOf[T bool | int | string]() Type {
	var zero T
	switch any(zero).(type) {
	case bool:
		return TypeBool
	case int:
		return TypeInt
	default:
		return TypeString
	}
}
