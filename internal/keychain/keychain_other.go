//go:build !darwin

package keychain

// NewSystemVault returns a KeyringVault on non-darwin platforms, backed by
// the Secret Service on Linux and the Credential Manager on Windows.
func NewSystemVault() *KeyringVault {
	return NewKeyringVault(DefaultKeyringService)
}
