package customstate

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrUndeclaredKey is returned when a behavior writes a key it never declared.
	ErrUndeclaredKey = errors.New("custom state key not declared")
	// ErrKeyCollision is returned when a key name is declared twice with a
	// different owner or clearing trigger.
	ErrKeyCollision = errors.New("custom state key collision")
)

// ClearTrigger names the lifecycle boundary at which an entry stops being valid.
type ClearTrigger int

const (
	// ClearOnConsume entries are deleted by the owning behavior, either when it
	// reads them or from its own turnStart/turnEnd handlers.
	ClearOnConsume ClearTrigger = iota
	// ClearOnTurnStart entries are swept when the owning player's turn starts.
	ClearOnTurnStart
	// ClearOnReplace entries are scoped to a card instance and live until that
	// instance is placed on the board again.
	ClearOnReplace
)

func (c ClearTrigger) String() string {
	switch c {
	case ClearOnConsume:
		return "CONSUME"
	case ClearOnTurnStart:
		return "TURN_START"
	case ClearOnReplace:
		return "REPLACE"
	default:
		return "UNKNOWN"
	}
}

// Key addresses one entry. Instance is empty for entries shared by every copy of a card.
type Key struct {
	Owner    string
	Name     string
	Instance string
}

// String renders the key as owner:name[:instance].
func (k Key) String() string {
	if k.Instance == "" {
		return k.Owner + ":" + k.Name
	}
	return k.Owner + ":" + k.Name + ":" + k.Instance
}

// For returns the key scoped to a card instance.
func (k Key) For(instance string) Key {
	k.Instance = instance
	return k
}

// Declaration records who owns a key name and when it is cleared.
type Declaration struct {
	Owner   string
	Name    string
	ClearOn ClearTrigger
}

// Schema maps key names to their owning card id. Names are unique across
// owners. It is shared by both players' stores of a match.
type Schema struct {
	mu    sync.RWMutex
	decls map[string]Declaration
}

// NewSchema creates an empty schema registry.
func NewSchema() *Schema {
	return &Schema{decls: make(map[string]Declaration)}
}

// Declare registers a key owned by owner. Declaring the same name twice for the
// same owner is a no-op when the trigger matches.
func (s *Schema) Declare(owner, name string, clearOn ClearTrigger) (Key, error) {
	owner = strings.TrimSpace(owner)
	name = strings.TrimSpace(name)
	if owner == "" || name == "" {
		return Key{}, fmt.Errorf("declare custom state: owner and name are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.decls[name]; ok {
		if existing.Owner != owner || existing.ClearOn != clearOn {
			return Key{}, fmt.Errorf("%w: %s already declared by %s (%s)", ErrKeyCollision, name, existing.Owner, existing.ClearOn)
		}
		return Key{Owner: owner, Name: name}, nil
	}
	s.decls[name] = Declaration{Owner: owner, Name: name, ClearOn: clearOn}
	return Key{Owner: owner, Name: name}, nil
}

// Lookup returns the declaration behind a key. A key naming the wrong owner is
// not declared.
func (s *Schema) Lookup(key Key) (Declaration, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	decl, ok := s.decls[key.Name]
	if !ok || decl.Owner != key.Owner {
		return Declaration{}, false
	}
	return decl, true
}

// Declarations returns all declarations sorted by owner and name.
func (s *Schema) Declarations() []Declaration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Declaration, 0, len(s.decls))
	for _, decl := range s.decls {
		out = append(out, decl)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Owner != out[j].Owner {
			return out[i].Owner < out[j].Owner
		}
		return out[i].Name < out[j].Name
	})
	return out
}

type entry struct {
	key   Key
	value any
}

// Store is one player's custom state. Values are small JSON-like values; presence
// alone is meaningful for flags. Mutation only happens on the match's processing
// goroutine, so the store is not locked.
type Store struct {
	schema  *Schema
	entries map[string]entry
}

// NewStore creates a store bound to a schema.
func NewStore(schema *Schema) *Store {
	if schema == nil {
		schema = NewSchema()
	}
	return &Store{
		schema:  schema,
		entries: make(map[string]entry),
	}
}

// Schema returns the schema registry the store validates against.
func (s *Store) Schema() *Schema {
	return s.schema
}

// Get returns the value stored under key.
func (s *Store) Get(key Key) (any, bool) {
	e, ok := s.entries[key.String()]
	if !ok {
		return nil, false
	}
	return e.value, true
}

// Has reports whether key is present.
func (s *Store) Has(key Key) bool {
	_, ok := s.entries[key.String()]
	return ok
}

// Set stores value under key. The key's prefix must have been declared.
func (s *Store) Set(key Key, value any) error {
	decl, ok := s.schema.Lookup(key)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUndeclaredKey, key)
	}
	if decl.ClearOn == ClearOnReplace && key.Instance == "" {
		return fmt.Errorf("custom state %s: replace-scoped key needs a card instance", key)
	}
	s.entries[key.String()] = entry{key: key, value: value}
	return nil
}

// Delete removes key. Deleting a missing key is a no-op.
func (s *Store) Delete(key Key) {
	delete(s.entries, key.String())
}

// Take returns the value under key and deletes it.
func (s *Store) Take(key Key) (any, bool) {
	value, ok := s.Get(key)
	if ok {
		s.Delete(key)
	}
	return value, ok
}

// ClearInstance removes every entry scoped to a card instance.
func (s *Store) ClearInstance(instance string) int {
	if instance == "" {
		return 0
	}
	removed := 0
	for id, e := range s.entries {
		if e.key.Instance == instance {
			delete(s.entries, id)
			removed++
		}
	}
	return removed
}

// Sweep removes every entry whose declaration clears on trigger.
func (s *Store) Sweep(trigger ClearTrigger) int {
	removed := 0
	for id, e := range s.entries {
		decl, ok := s.schema.Lookup(e.key)
		if ok && decl.ClearOn == trigger {
			delete(s.entries, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of entries.
func (s *Store) Len() int {
	return len(s.entries)
}

// Keys returns the rendered keys in sorted order.
func (s *Store) Keys() []string {
	keys := make([]string, 0, len(s.entries))
	for id := range s.entries {
		keys = append(keys, id)
	}
	sort.Strings(keys)
	return keys
}

// Entries returns a copy of the stored values keyed by rendered key.
func (s *Store) Entries() map[string]any {
	out := make(map[string]any, len(s.entries))
	for id, e := range s.entries {
		out[id] = e.value
	}
	return out
}

// Get is a typed read helper. A value of the wrong type reads as absent.
func Get[T any](s *Store, key Key) (T, bool) {
	var zero T
	raw, ok := s.Get(key)
	if !ok {
		return zero, false
	}
	value, ok := raw.(T)
	if !ok {
		return zero, false
	}
	return value, true
}
