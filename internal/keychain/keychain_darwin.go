//go:build darwin

package keychain

import (
	"errors"

	gokeychain "github.com/keybase/go-keychain"
)

// SystemVault issues descriptors against the macOS Keychain.
type SystemVault struct{}

// NewSystemVault creates a Keychain-backed vault.
func NewSystemVault() *SystemVault {
	return &SystemVault{}
}

// SupportsStrictMode is false: go-keychain has no setter for
// kSecUseDataProtectionKeychain, so strict and relaxed descriptors are
// identical here and the relaxed retry is a plain second attempt.
func (v *SystemVault) SupportsStrictMode() bool {
	return false
}

func (v *SystemVault) LookupOne(q Descriptor) (Status, []byte) {
	item, ok := toItem(q)
	if !ok {
		return StatusParam, nil
	}
	item.SetMatchLimit(gokeychain.MatchLimitOne)
	results, err := gokeychain.QueryItem(item)
	if err != nil {
		return statusOf(err), nil
	}
	if len(results) == 0 {
		return StatusItemNotFound, nil
	}
	return StatusSuccess, results[0].Data
}

func (v *SystemVault) LookupMany(q Descriptor) (Status, []Record) {
	item, ok := toItem(q)
	if !ok {
		return StatusParam, nil
	}
	results, err := gokeychain.QueryItem(item)
	if err != nil {
		return statusOf(err), nil
	}
	if len(results) == 0 {
		return StatusItemNotFound, nil
	}
	records := make([]Record, 0, len(results))
	for _, r := range results {
		records = append(records, Record{
			Key:       r.Account,
			Namespace: r.Service,
			Group:     r.AccessGroup,
			Data:      r.Data,
		})
	}
	return StatusSuccess, records
}

func (v *SystemVault) Insert(q Descriptor) Status {
	item, ok := toItem(q)
	if !ok {
		return StatusParam
	}
	return statusOf(gokeychain.AddItem(item))
}

func (v *SystemVault) Update(match, changes Descriptor) Status {
	query, ok := toItem(match)
	if !ok {
		return StatusParam
	}
	update := gokeychain.NewItem()
	if data, ok := changes.Bytes(AttrValueData); ok {
		update.SetData(data)
	}
	if a, ok := changes.Accessible(); ok {
		update.SetAccessible(accessibleOf(a))
	}
	if sync, ok := changes.Flag(AttrSynchronizable); ok {
		update.SetSynchronizable(synchronizableOf(sync))
	}
	return statusOf(gokeychain.UpdateItem(query, update))
}

func (v *SystemVault) DeleteMatching(q Descriptor) Status {
	item, ok := toItem(q)
	if !ok {
		return StatusParam
	}
	return statusOf(gokeychain.DeleteItem(item))
}

// scopeAttrs are the string attributes go-keychain drops when set to "".
var scopeAttrs = []Attr{AttrAccount, AttrService, AttrAccessGroup}

// toItem translates q into a go-keychain item. It reports false when a
// present scope attribute is empty, since go-keychain would silently drop it
// and widen the query to every generic password.
func toItem(q Descriptor) (gokeychain.Item, bool) {
	for _, attr := range scopeAttrs {
		if s, ok := q.Text(attr); ok && s == "" {
			return gokeychain.Item{}, false
		}
	}
	item := gokeychain.NewItem()
	item.SetSecClass(gokeychain.SecClassGenericPassword)
	if s, ok := q.Text(AttrAccount); ok {
		item.SetAccount(s)
	}
	if s, ok := q.Text(AttrService); ok {
		item.SetService(s)
	}
	if s, ok := q.Text(AttrAccessGroup); ok {
		item.SetAccessGroup(s)
	}
	if b, ok := q.Flag(AttrSynchronizable); ok {
		item.SetSynchronizable(synchronizableOf(b))
	}
	if b, ok := q.Flag(AttrReturnData); ok {
		item.SetReturnData(b)
	}
	if b, ok := q.Flag(AttrReturnAttributes); ok {
		item.SetReturnAttributes(b)
	}
	if limit, ok := q.Text(AttrMatchLimit); ok {
		switch limit {
		case MatchLimitAll:
			item.SetMatchLimit(gokeychain.MatchLimitAll)
		case MatchLimitOne:
			item.SetMatchLimit(gokeychain.MatchLimitOne)
		}
	}
	if data, ok := q.Bytes(AttrValueData); ok {
		item.SetData(data)
	}
	if a, ok := q.Accessible(); ok {
		item.SetAccessible(accessibleOf(a))
	}
	return item, true
}

func synchronizableOf(b bool) gokeychain.Synchronizable {
	if b {
		return gokeychain.SynchronizableYes
	}
	return gokeychain.SynchronizableNo
}

func accessibleOf(a Accessibility) gokeychain.Accessible {
	switch a {
	case AccessibleWhenPasscodeSetThisDeviceOnly:
		return gokeychain.AccessibleWhenPasscodeSetThisDeviceOnly
	case AccessibleWhenUnlockedThisDeviceOnly:
		return gokeychain.AccessibleWhenUnlockedThisDeviceOnly
	case AccessibleAfterFirstUnlock:
		return gokeychain.AccessibleAfterFirstUnlock
	case AccessibleAfterFirstUnlockThisDeviceOnly:
		return gokeychain.AccessibleAfterFirstUnlockThisDeviceOnly
	default:
		return gokeychain.AccessibleWhenUnlocked
	}
}

func statusOf(err error) Status {
	if err == nil {
		return StatusSuccess
	}
	var kcErr gokeychain.Error
	if errors.As(err, &kcErr) {
		return Status(kcErr)
	}
	return StatusParam
}
