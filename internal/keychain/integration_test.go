//go:build integration && darwin

package keychain

import (
	"testing"
)

// Integration tests use the real macOS Keychain.
// Run with: go test -tags integration ./internal/keychain/
//
// Requires an unlocked login Keychain and an interactive session
// (first run may prompt for Keychain access approval).

var integrationScope = Scope{Namespace: Some("com.securestore.test")}

func integrationStorage(t *testing.T) *Storage {
	t.Helper()
	s := NewStorage(NewSystemVault())
	t.Cleanup(func() { s.DeleteAll(integrationScope) })
	return s
}

func TestKeychainWriteAndRead(t *testing.T) {
	s := integrationStorage(t)
	key := "test/integration-write-read"

	if st := s.Write(key, "hello-keychain", integrationScope, None[string]()); st != StatusSuccess {
		t.Fatalf("Write: %v", st)
	}

	val, ok := s.Read(key, integrationScope).Value.Get()
	if !ok {
		t.Fatal("expected value")
	}
	if val != "hello-keychain" {
		t.Errorf("expected 'hello-keychain', got %q", val)
	}
}

func TestKeychainOverwrite(t *testing.T) {
	s := integrationStorage(t)
	key := "test/integration-overwrite"

	s.Write(key, "first", integrationScope, None[string]())
	s.Write(key, "second", integrationScope, Some("unlocked_this_device"))

	val, _ := s.Read(key, integrationScope).Value.Get()
	if val != "second" {
		t.Errorf("expected 'second', got %q", val)
	}
}

func TestKeychainDelete(t *testing.T) {
	s := integrationStorage(t)
	key := "test/integration-delete"

	s.Write(key, "to-delete", integrationScope, None[string]())
	s.Delete(key, integrationScope)

	if s.ContainsKey(key, integrationScope) {
		t.Error("expected key to be gone after delete")
	}
}

func TestKeychainReadAll(t *testing.T) {
	s := integrationStorage(t)
	keys := []string{"test/integration-list-a", "test/integration-list-b"}

	for _, k := range keys {
		s.Write(k, "val", integrationScope, None[string]())
	}

	res := s.ReadAll(integrationScope)
	if err := res.Err(); err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	found := res.Map()
	for _, k := range keys {
		if _, ok := found[k]; !ok {
			t.Errorf("expected %q in results, not found", k)
		}
	}
}
