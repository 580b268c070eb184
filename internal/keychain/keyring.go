package keychain

import (
	"encoding/json"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/zalando/go-keyring"
)

const (
	// DefaultKeyringService is the keyring service used for records
	// without a namespace.
	DefaultKeyringService = "securestore"

	// indexAccount holds the JSON list of keys stored under a service, since
	// the OS keyrings cannot enumerate items.
	indexAccount = ".securestore-index"
)

// KeyringVault stores records in the OS keyring via go-keyring. The access
// group and namespace together form the keyring service name, so a scope
// always names exactly one service: an absent namespace means the default
// service and an absent group means no group prefix. Unlike the keychain, an
// absent dimension never widens a lookup or delete across services.
//
// The synchronizable flag and accessibility are not supported by these
// keyrings and are ignored, as is strict mode.
type KeyringVault struct {
	mu             sync.Mutex
	defaultService string
}

// NewKeyringVault creates a keyring-backed vault. Records without a namespace
// are stored under defaultService.
func NewKeyringVault(defaultService string) *KeyringVault {
	return &KeyringVault{defaultService: defaultService}
}

func (v *KeyringVault) SupportsStrictMode() bool {
	return false
}

func (v *KeyringVault) LookupOne(q Descriptor) (Status, []byte) {
	v.mu.Lock()
	defer v.mu.Unlock()

	service := v.service(q)
	keys, st := v.candidates(service, q)
	if !st.OK() {
		return st, nil
	}
	for _, key := range keys {
		value, err := keyring.Get(service, key)
		if errors.Is(err, keyring.ErrNotFound) {
			continue
		}
		if err != nil {
			return keyringStatus(err), nil
		}
		if want, _ := q.Flag(AttrReturnData); !want {
			return StatusSuccess, nil
		}
		return StatusSuccess, []byte(value)
	}
	return StatusItemNotFound, nil
}

func (v *KeyringVault) LookupMany(q Descriptor) (Status, []Record) {
	v.mu.Lock()
	defer v.mu.Unlock()

	service := v.service(q)
	keys, st := v.candidates(service, q)
	if !st.OK() {
		return st, nil
	}
	namespace, _ := q.Text(AttrService)
	group, _ := q.Text(AttrAccessGroup)
	limit, _ := q.Text(AttrMatchLimit)

	var records []Record
	for _, key := range keys {
		value, err := keyring.Get(service, key)
		if errors.Is(err, keyring.ErrNotFound) {
			continue
		}
		if err != nil {
			return keyringStatus(err), nil
		}
		records = append(records, Record{Key: key, Namespace: namespace, Group: group, Data: []byte(value)})
		if limit == MatchLimitOne {
			break
		}
	}
	if len(records) == 0 {
		return StatusItemNotFound, nil
	}
	return StatusSuccess, records
}

func (v *KeyringVault) Insert(q Descriptor) Status {
	v.mu.Lock()
	defer v.mu.Unlock()

	key, ok := q.Text(AttrAccount)
	if !ok || key == indexAccount {
		return StatusParam
	}
	service := v.service(q)
	_, err := keyring.Get(service, key)
	if err == nil {
		return StatusDuplicateItem
	}
	if !errors.Is(err, keyring.ErrNotFound) {
		return keyringStatus(err)
	}

	data, _ := q.Bytes(AttrValueData)
	if err := keyring.Set(service, key, string(data)); err != nil {
		return keyringStatus(err)
	}
	return v.updateIndex(service, func(keys []string) []string {
		if slices.Contains(keys, key) {
			return keys
		}
		return append(keys, key)
	})
}

func (v *KeyringVault) Update(match, changes Descriptor) Status {
	v.mu.Lock()
	defer v.mu.Unlock()

	key, ok := match.Text(AttrAccount)
	if !ok || key == indexAccount {
		return StatusParam
	}
	service := v.service(match)
	if _, err := keyring.Get(service, key); err != nil {
		return keyringStatus(err)
	}
	data, ok := changes.Bytes(AttrValueData)
	if !ok {
		return StatusSuccess
	}
	return keyringStatus(keyring.Set(service, key, string(data)))
}

func (v *KeyringVault) DeleteMatching(q Descriptor) Status {
	v.mu.Lock()
	defer v.mu.Unlock()

	service := v.service(q)
	if key, ok := q.Text(AttrAccount); ok {
		if key == indexAccount {
			return StatusParam
		}
		if err := keyring.Delete(service, key); err != nil {
			return keyringStatus(err)
		}
		return v.updateIndex(service, func(keys []string) []string {
			return slices.DeleteFunc(keys, func(k string) bool { return k == key })
		})
	}

	keys, st := v.readIndex(service)
	if !st.OK() {
		return st
	}
	if len(keys) == 0 {
		return StatusItemNotFound
	}
	return keyringStatus(keyring.DeleteAll(service))
}

func (v *KeyringVault) service(q Descriptor) string {
	service := v.defaultService
	if ns, ok := q.Text(AttrService); ok {
		service = ns
	}
	if group, ok := q.Text(AttrAccessGroup); ok {
		service = group + "/" + service
	}
	return service
}

// candidates returns the keys a query may match, in insertion order.
func (v *KeyringVault) candidates(service string, q Descriptor) ([]string, Status) {
	if key, ok := q.Text(AttrAccount); ok {
		if key == indexAccount {
			return nil, StatusItemNotFound
		}
		return []string{key}, StatusSuccess
	}
	return v.readIndex(service)
}

func (v *KeyringVault) readIndex(service string) ([]string, Status) {
	raw, err := keyring.Get(service, indexAccount)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, StatusSuccess
	}
	if err != nil {
		return nil, keyringStatus(err)
	}
	var keys []string
	if err := json.Unmarshal([]byte(raw), &keys); err != nil {
		slog.Warn("corrupt keyring index, ignoring", "service", service, "error", err)
		return nil, StatusSuccess
	}
	return keys, StatusSuccess
}

func (v *KeyringVault) updateIndex(service string, fn func([]string) []string) Status {
	keys, st := v.readIndex(service)
	if !st.OK() {
		return st
	}
	keys = fn(keys)
	if len(keys) == 0 {
		err := keyring.Delete(service, indexAccount)
		if err != nil && !errors.Is(err, keyring.ErrNotFound) {
			return keyringStatus(err)
		}
		return StatusSuccess
	}
	data, err := json.Marshal(keys)
	if err != nil {
		return StatusParam
	}
	return keyringStatus(keyring.Set(service, indexAccount, string(data)))
}

func keyringStatus(err error) Status {
	switch {
	case err == nil:
		return StatusSuccess
	case errors.Is(err, keyring.ErrNotFound):
		return StatusItemNotFound
	case errors.Is(err, keyring.ErrUnsupportedPlatform):
		return StatusUnimplemented
	case errors.Is(err, keyring.ErrSetDataTooBig):
		return StatusParam
	default:
		slog.Debug("keyring error", "error", err)
		return StatusIO
	}
}
