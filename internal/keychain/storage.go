package keychain

import (
	"log/slog"
	"unicode/utf8"
)

// Scope holds the optional addressing dimensions shared by all operations.
// An absent field leaves that dimension unfiltered.
type Scope struct {
	Group     Opt[string]
	Namespace Opt[string]
	Sync      Opt[bool]
}

// ReadResult is the outcome of Read. Value is absent when the record does
// not exist or its payload is not valid UTF-8.
type ReadResult struct {
	Status Status
	Value  Opt[string]
}

// Err returns the status as an error, or nil on success.
func (r ReadResult) Err() error { return r.Status.Err() }

// Entry is one key/value pair returned by ReadAll.
type Entry struct {
	Key   string
	Value string
}

// ReadAllResult is the outcome of ReadAll. Entries keep the order in which
// the vault returned them.
type ReadAllResult struct {
	Status  Status
	Entries []Entry
}

func (r ReadAllResult) Err() error { return r.Status.Err() }

// Map returns the entries keyed by secret key.
func (r ReadAllResult) Map() map[string]string {
	m := make(map[string]string, len(r.Entries))
	for _, e := range r.Entries {
		m[e.Key] = e.Value
	}
	return m
}

// Keys returns the entry keys in order.
func (r ReadAllResult) Keys() []string {
	keys := make([]string, len(r.Entries))
	for i, e := range r.Entries {
		keys[i] = e.Key
	}
	return keys
}

// Storage runs secret operations against a Vault. It keeps no state between
// calls and adds no locking; concurrency safety is the vault's.
type Storage struct {
	vault  Vault
	logger *slog.Logger
}

// Option configures a Storage.
type Option func(*Storage)

// WithLogger sets the logger used for diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *Storage) { s.logger = l }
}

// NewStorage creates a Storage backed by v.
func NewStorage(v Vault, opts ...Option) *Storage {
	s := &Storage{
		vault:  v,
		logger: slog.With("component", "keychain"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Storage) build(key Opt[string], scope Scope, returnData Opt[bool], strict bool) Descriptor {
	return BuildQuery(Query{
		Key:        key,
		Group:      scope.Group,
		Namespace:  scope.Namespace,
		Sync:       scope.Sync,
		ReturnData: returnData,
		Strict:     Some(strict),
	}, s.vault.SupportsStrictMode())
}

// withFallback runs attempt in strict mode and, unless it reports done,
// exactly once more in relaxed mode. The last attempt's status is returned.
func (s *Storage) withFallback(op string, attempt func(strict bool) (Status, bool)) Status {
	status, done := attempt(true)
	if done {
		return status
	}
	s.logger.Debug("strict attempt failed, retrying in relaxed mode", "op", op, "status", int32(status))
	status, _ = attempt(false)
	return status
}

// ContainsKey reports whether Read finds a value for key.
func (s *Storage) ContainsKey(key string, scope Scope) bool {
	return s.Read(key, scope).Value.IsSome()
}

// Read returns the value stored under key. A failed lookup, or a payload
// that is not valid UTF-8, triggers the relaxed-mode retry.
func (s *Storage) Read(key string, scope Scope) ReadResult {
	var value Opt[string]
	status := s.withFallback("read", func(strict bool) (Status, bool) {
		st, data := s.vault.LookupOne(s.build(Some(key), scope, Some(true), strict))
		value = None[string]()
		if st.OK() {
			value = decode(data)
		}
		return st, value.IsSome()
	})
	return ReadResult{Status: status, Value: value}
}

// ReadAll returns every record in scope. It issues a single strict-mode
// lookup with no relaxed retry.
//
// Payloads that are not valid UTF-8 are returned as empty strings rather than
// omitted, so an unreadable secret is indistinguishable from an empty one.
func (s *Storage) ReadAll(scope Scope) ReadAllResult {
	q := s.build(None[string](), scope, Some(true), true).
		With(AttrMatchLimit, MatchLimitAll).
		With(AttrReturnAttributes, true)

	status, records := s.vault.LookupMany(q)
	if !status.OK() {
		return ReadAllResult{Status: status}
	}

	entries := make([]Entry, 0, len(records))
	index := make(map[string]int, len(records))
	for _, r := range records {
		value, ok := decode(r.Data).Get()
		if !ok {
			s.logger.Warn("undecodable secret returned as empty", "key", r.Key)
		}
		if i, seen := index[r.Key]; seen {
			entries[i].Value = value
			continue
		}
		index[r.Key] = len(entries)
		entries = append(entries, Entry{Key: r.Key, Value: value})
	}
	return ReadAllResult{Status: status, Entries: entries}
}

// Write stores value under key, updating the record if it already exists and
// inserting it otherwise. accessibility names the at-rest policy; see
// ResolveAccessibility.
func (s *Storage) Write(key, value string, scope Scope, accessibility Opt[string]) Status {
	access := ResolveAccessibility(accessibility)
	exists := s.ContainsKey(key, scope)
	data := []byte(value)

	status := s.withFallback("write", func(strict bool) (Status, bool) {
		q := s.build(Some(key), scope, None[bool](), strict)
		if exists {
			changes := Descriptor{
				AttrValueData:  data,
				AttrAccessible: access,
			}
			if sync, ok := scope.Sync.Get(); ok {
				changes[AttrSynchronizable] = sync
			}
			st := s.vault.Update(q, changes)
			return st, st.OK()
		}
		q[AttrValueData] = data
		q[AttrAccessible] = access
		st := s.vault.Insert(q)
		return st, st.OK()
	})

	if status.OK() {
		s.logger.Debug("write status", "key", key, "update", exists, "message", status.String())
	} else {
		s.logger.Warn("write status", "key", key, "update", exists, "status", int32(status), "message", status.String())
	}
	return status
}

// Delete removes the record stored under key.
func (s *Storage) Delete(key string, scope Scope) Status {
	return s.withFallback("delete", func(strict bool) (Status, bool) {
		st := s.vault.DeleteMatching(s.build(Some(key), scope, None[bool](), strict))
		return st, st.OK()
	})
}

// DeleteAll removes every record in scope.
func (s *Storage) DeleteAll(scope Scope) Status {
	return s.withFallback("delete_all", func(strict bool) (Status, bool) {
		st := s.vault.DeleteMatching(s.build(None[string](), scope, None[bool](), strict))
		return st, st.OK()
	})
}

func decode(data []byte) Opt[string] {
	if data == nil || !utf8.Valid(data) {
		return None[string]()
	}
	return Some(string(data))
}
