// Package keychain provides scoped secret storage on top of an OS credential
// vault (macOS Keychain, Secret Service, Credential Manager).
//
// Secrets are stored as generic passwords addressed by:
//   - Account: the secret key (e.g. "chat/database-url")
//   - Service: an optional namespace
//   - Access group: an optional sharing group
//
// Every operation except ReadAll is first attempted against the data
// protection keychain (strict mode). If the vault rejects the attempt, the same operation is
// reissued once against the legacy keychain (relaxed mode) and that second
// outcome is final.
package keychain

import (
	"errors"
	"fmt"
)

// ErrNotFound is matched by a VaultError whose status is StatusItemNotFound.
var ErrNotFound = errors.New("secret not found")

// ErrDuplicate is matched by a VaultError whose status is StatusDuplicateItem.
var ErrDuplicate = errors.New("secret already exists")

// Status is the vault's native result code. Codes other than StatusSuccess
// are passed through to callers unchanged.
type Status int32

const (
	StatusSuccess               Status = 0
	StatusUnimplemented         Status = -4
	StatusIO                    Status = -36
	StatusParam                 Status = -50
	StatusAuthFailed            Status = -25293
	StatusDuplicateItem         Status = -25299
	StatusItemNotFound          Status = -25300
	StatusInteractionNotAllowed Status = -25308
	StatusDecode                Status = -26275
	StatusMissingEntitlement    Status = -34018
)

var statusMessages = map[Status]string{
	StatusSuccess:               "No error.",
	StatusUnimplemented:         "Function or operation not implemented.",
	StatusIO:                    "I/O error.",
	StatusParam:                 "One or more parameters passed to a function were not valid.",
	StatusAuthFailed:            "The user name or passphrase you entered is not correct.",
	StatusDuplicateItem:         "The specified item already exists in the keychain.",
	StatusItemNotFound:          "The specified item could not be found in the keychain.",
	StatusInteractionNotAllowed: "User interaction is not allowed.",
	StatusDecode:                "Unable to decode the provided data.",
	StatusMissingEntitlement:    "A required entitlement isn't present.",
}

// OK reports whether s is StatusSuccess.
func (s Status) OK() bool { return s == StatusSuccess }

// String returns the vault's human-readable message for s.
func (s Status) String() string {
	if msg, ok := statusMessages[s]; ok {
		return msg
	}
	return fmt.Sprintf("OSStatus %d", int32(s))
}

// Err returns nil for StatusSuccess and a *VaultError otherwise.
func (s Status) Err() error {
	if s.OK() {
		return nil
	}
	return &VaultError{Status: s}
}

// VaultError wraps a non-success status returned by the vault.
type VaultError struct {
	Status Status
}

func (e *VaultError) Error() string {
	return fmt.Sprintf("keychain status %d: %s", int32(e.Status), e.Status)
}

// Is lets callers match the common statuses with errors.Is.
func (e *VaultError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Status == StatusItemNotFound
	case ErrDuplicate:
		return e.Status == StatusDuplicateItem
	}
	return false
}

// Accessibility is the vault's at-rest protection class for a record.
type Accessibility string

const (
	AccessibleWhenPasscodeSetThisDeviceOnly  Accessibility = "akpu"
	AccessibleWhenUnlocked                   Accessibility = "ak"
	AccessibleWhenUnlockedThisDeviceOnly     Accessibility = "aku"
	AccessibleAfterFirstUnlock               Accessibility = "ck"
	AccessibleAfterFirstUnlockThisDeviceOnly Accessibility = "cku"
)

// DefaultAccessibility is used when no (or an unknown) policy name is given.
const DefaultAccessibility = AccessibleWhenUnlocked

var accessibilityNames = map[string]Accessibility{
	"passcode":                 AccessibleWhenPasscodeSetThisDeviceOnly,
	"unlocked":                 AccessibleWhenUnlocked,
	"unlocked_this_device":     AccessibleWhenUnlockedThisDeviceOnly,
	"first_unlock":             AccessibleAfterFirstUnlock,
	"first_unlock_this_device": AccessibleAfterFirstUnlockThisDeviceOnly,
}

// ResolveAccessibility maps a policy name ("passcode", "unlocked",
// "unlocked_this_device", "first_unlock", "first_unlock_this_device") to its
// vault constant. Absent or unrecognized names resolve to DefaultAccessibility.
func ResolveAccessibility(name Opt[string]) Accessibility {
	n, ok := name.Get()
	if !ok {
		return DefaultAccessibility
	}
	if a, ok := accessibilityNames[n]; ok {
		return a
	}
	return DefaultAccessibility
}

// Record is a single item returned by Vault.LookupMany.
type Record struct {
	Key       string
	Namespace string
	Group     string
	Data      []byte
}

// Vault is the primitive query interface of an OS credential store.
// Implementations must be safe for concurrent use.
type Vault interface {
	// LookupOne returns the payload of the first record matching q.
	LookupOne(q Descriptor) (Status, []byte)
	// LookupMany returns every record matching q, in vault order.
	LookupMany(q Descriptor) (Status, []Record)
	// Insert adds a record described by q (match attributes plus payload).
	Insert(q Descriptor) Status
	// Update applies changes to every record matching match.
	Update(match, changes Descriptor) Status
	// DeleteMatching removes every record matching q.
	DeleteMatching(q Descriptor) Status
	// SupportsStrictMode reports whether the data protection keychain flag
	// can be honored on this platform.
	SupportsStrictMode() bool
}

// Store is the caller-facing set of secret operations.
type Store interface {
	ContainsKey(key string, scope Scope) bool
	Read(key string, scope Scope) ReadResult
	ReadAll(scope Scope) ReadAllResult
	Write(key, value string, scope Scope, accessibility Opt[string]) Status
	Delete(key string, scope Scope) Status
	DeleteAll(scope Scope) Status
}
