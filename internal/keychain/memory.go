package keychain

import (
	"slices"
	"sync"
)

// MemoryRecord is a record held by a MemoryVault.
type MemoryRecord struct {
	Record
	Sync       bool
	Accessible Accessibility
	// Strict is true for records living in the data protection keychain.
	Strict bool
}

// MemoryVault is an in-memory Vault for tests and platforms without a
// credential store. Like the real keychain, strict and relaxed descriptors
// address separate partitions.
type MemoryVault struct {
	mu      sync.RWMutex
	records []MemoryRecord
	calls   int

	strictSupported bool
	strictFailure   Status
	relaxedFailure  Status
}

// MemoryOption configures a MemoryVault.
type MemoryOption func(*MemoryVault)

// WithoutStrictMode makes the vault report that strict mode is unsupported.
func WithoutStrictMode() MemoryOption {
	return func(v *MemoryVault) { v.strictSupported = false }
}

// FailStrict makes every strict-mode call return st.
func FailStrict(st Status) MemoryOption {
	return func(v *MemoryVault) { v.strictFailure = st }
}

// FailRelaxed makes every relaxed-mode call return st.
func FailRelaxed(st Status) MemoryOption {
	return func(v *MemoryVault) { v.relaxedFailure = st }
}

// NewMemoryVault creates an empty in-memory vault.
func NewMemoryVault(opts ...MemoryOption) *MemoryVault {
	v := &MemoryVault{strictSupported: true}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *MemoryVault) SupportsStrictMode() bool {
	return v.strictSupported
}

func (v *MemoryVault) LookupOne(q Descriptor) (Status, []byte) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls++
	if st := v.failure(q); !st.OK() {
		return st, nil
	}
	for _, r := range v.records {
		if matches(r, q) {
			if want, _ := q.Flag(AttrReturnData); !want {
				return StatusSuccess, nil
			}
			return StatusSuccess, append([]byte{}, r.Data...)
		}
	}
	return StatusItemNotFound, nil
}

func (v *MemoryVault) LookupMany(q Descriptor) (Status, []Record) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls++
	if st := v.failure(q); !st.OK() {
		return st, nil
	}
	limit, _ := q.Text(AttrMatchLimit)
	var out []Record
	for _, r := range v.records {
		if !matches(r, q) {
			continue
		}
		rec := r.Record
		rec.Data = slices.Clone(r.Data)
		out = append(out, rec)
		if limit == MatchLimitOne {
			break
		}
	}
	if len(out) == 0 {
		return StatusItemNotFound, nil
	}
	return StatusSuccess, out
}

func (v *MemoryVault) Insert(q Descriptor) Status {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls++
	if st := v.failure(q); !st.OK() {
		return st
	}
	key, ok := q.Text(AttrAccount)
	if !ok {
		return StatusParam
	}
	rec := MemoryRecord{Strict: q.Strict(), Accessible: DefaultAccessibility}
	rec.Key = key
	rec.Namespace, _ = q.Text(AttrService)
	rec.Group, _ = q.Text(AttrAccessGroup)
	rec.Sync, _ = q.Flag(AttrSynchronizable)
	if a, ok := q.Accessible(); ok {
		rec.Accessible = a
	}
	if data, ok := q.Bytes(AttrValueData); ok {
		rec.Data = slices.Clone(data)
	}
	for _, r := range v.records {
		if r.Strict == rec.Strict && r.Key == rec.Key && r.Namespace == rec.Namespace && r.Group == rec.Group {
			return StatusDuplicateItem
		}
	}
	v.records = append(v.records, rec)
	return StatusSuccess
}

func (v *MemoryVault) Update(match, changes Descriptor) Status {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls++
	if st := v.failure(match); !st.OK() {
		return st
	}
	found := false
	for i := range v.records {
		r := &v.records[i]
		if !matches(*r, match) {
			continue
		}
		found = true
		if data, ok := changes.Bytes(AttrValueData); ok {
			r.Data = slices.Clone(data)
		}
		if a, ok := changes.Accessible(); ok {
			r.Accessible = a
		}
		if sync, ok := changes.Flag(AttrSynchronizable); ok {
			r.Sync = sync
		}
	}
	if !found {
		return StatusItemNotFound
	}
	return StatusSuccess
}

func (v *MemoryVault) DeleteMatching(q Descriptor) Status {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls++
	if st := v.failure(q); !st.OK() {
		return st
	}
	n := len(v.records)
	v.records = slices.DeleteFunc(v.records, func(r MemoryRecord) bool {
		return matches(r, q)
	})
	if len(v.records) == n {
		return StatusItemNotFound
	}
	return StatusSuccess
}

// Put stores r directly, bypassing descriptors and injected failures.
func (v *MemoryVault) Put(r MemoryRecord) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if r.Accessible == "" {
		r.Accessible = DefaultAccessibility
	}
	r.Data = slices.Clone(r.Data)
	v.records = append(v.records, r)
}

// Records returns a copy of every stored record.
func (v *MemoryVault) Records() []MemoryRecord {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]MemoryRecord, len(v.records))
	for i, r := range v.records {
		r.Data = slices.Clone(r.Data)
		out[i] = r
	}
	return out
}

// Calls returns the number of primitive vault calls served so far.
func (v *MemoryVault) Calls() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.calls
}

func (v *MemoryVault) failure(q Descriptor) Status {
	if q.Strict() {
		return v.strictFailure
	}
	return v.relaxedFailure
}

func matches(r MemoryRecord, q Descriptor) bool {
	if class, ok := q.Text(AttrClass); ok && class != ClassGenericPassword {
		return false
	}
	if r.Strict != q.Strict() {
		return false
	}
	if key, ok := q.Text(AttrAccount); ok && key != r.Key {
		return false
	}
	if ns, ok := q.Text(AttrService); ok && ns != r.Namespace {
		return false
	}
	if group, ok := q.Text(AttrAccessGroup); ok && group != r.Group {
		return false
	}
	// An absent sync attribute matches both; the real keychain only matches
	// non-synchronizable items in that case.
	if sync, ok := q.Flag(AttrSynchronizable); ok && sync != r.Sync {
		return false
	}
	return true
}
