package keychain

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/benaskins/securestore/internal/audit"
)

func setupAuditedStorage(t *testing.T) (*AuditedStorage, string) {
	t.Helper()
	dir := t.TempDir()
	auditPath := filepath.Join(dir, "audit.log")

	auditLog, err := audit.NewLogger(auditPath)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	t.Cleanup(func() { auditLog.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	inner := NewStorage(NewMemoryVault(), WithLogger(logger))
	return NewAuditedStorage(inner, auditLog, "cli"), auditPath
}

func readAuditEntries(t *testing.T, path string) []audit.Entry {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	entries := make([]audit.Entry, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			continue
		}
		var e audit.Entry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			t.Fatalf("Unmarshal: %v", err)
		}
		entries = append(entries, e)
	}
	return entries
}

func TestAuditedWriteLogsWrite(t *testing.T) {
	store, auditPath := setupAuditedStorage(t)

	store.Write("test/key", "value", scopeOf("g", "ns"), None[string]())

	entries := readAuditEntries(t, auditPath)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e.Action != audit.ActionSecretWrite {
		t.Errorf("expected secret_write, got %v", e.Action)
	}
	if e.Key != "test/key" || e.Namespace != "ns" || e.Group != "g" {
		t.Errorf("unexpected scope in entry: %+v", e)
	}
	if e.Actor != "cli" {
		t.Errorf("expected cli, got %q", e.Actor)
	}
	if e.ID == "" {
		t.Error("expected operation id")
	}
}

func TestAuditedEntriesNeverContainValues(t *testing.T) {
	store, auditPath := setupAuditedStorage(t)

	store.Write("test/secret", "hunter2", Scope{}, None[string]())
	store.Read("test/secret", Scope{})
	store.ReadAll(Scope{})

	data, err := os.ReadFile(auditPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if strings.Contains(string(data), "hunter2") {
		t.Error("audit log leaked a secret value")
	}
}

func TestAuditedReadMissingLogsStatus(t *testing.T) {
	store, auditPath := setupAuditedStorage(t)

	store.Read("test/missing", Scope{})

	entries := readAuditEntries(t, auditPath)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Status != int32(StatusItemNotFound) {
		t.Errorf("expected status %d, got %d", StatusItemNotFound, entries[0].Status)
	}
	if entries[0].Error == "" {
		t.Error("expected error message in audit entry")
	}
}

func TestAuditedReadAllLogsCount(t *testing.T) {
	store, auditPath := setupAuditedStorage(t)

	store.Write("a", "1", Scope{}, None[string]())
	store.Write("b", "2", Scope{}, None[string]())
	store.ReadAll(Scope{})

	entries := readAuditEntries(t, auditPath)
	last := entries[len(entries)-1]
	if last.Action != audit.ActionSecretReadAll {
		t.Errorf("expected secret_read_all, got %v", last.Action)
	}
	if last.Count != 2 {
		t.Errorf("expected count 2, got %d", last.Count)
	}
}

func TestAuditedDeleteAndProbe(t *testing.T) {
	store, auditPath := setupAuditedStorage(t)

	store.Write("test/del", "val", Scope{}, None[string]())
	if !store.ContainsKey("test/del", Scope{}) {
		t.Fatal("expected key to exist")
	}
	store.Delete("test/del", Scope{})
	store.DeleteAll(Scope{})

	entries := readAuditEntries(t, auditPath)
	want := []audit.Action{
		audit.ActionSecretWrite,
		audit.ActionSecretProbe,
		audit.ActionSecretDelete,
		audit.ActionSecretDeleteAll,
	}
	if len(entries) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(entries))
	}
	for i, action := range want {
		if entries[i].Action != action {
			t.Errorf("entry %d: expected %v, got %v", i, action, entries[i].Action)
		}
	}
}
