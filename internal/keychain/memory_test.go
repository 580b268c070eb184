package keychain

import (
	"testing"
)

// Unit tests exercise MemoryVault directly with hand-built descriptors.

func insertQuery(key, value string, strict bool) Descriptor {
	q := BuildQuery(Query{Key: Some(key), Namespace: Some("ns"), Strict: Some(strict)}, true)
	q[AttrValueData] = []byte(value)
	return q
}

func TestMemoryInsertAndLookup(t *testing.T) {
	v := NewMemoryVault()

	if st := v.Insert(insertQuery("test/insert", "hello", true)); st != StatusSuccess {
		t.Fatalf("Insert: %v", st)
	}

	q := BuildQuery(Query{Key: Some("test/insert"), ReturnData: Some(true), Strict: Some(true)}, true)
	st, data := v.LookupOne(q)
	if st != StatusSuccess {
		t.Fatalf("LookupOne: %v", st)
	}
	if string(data) != "hello" {
		t.Errorf("expected 'hello', got %q", data)
	}
}

func TestMemoryLookupWithoutReturnData(t *testing.T) {
	v := NewMemoryVault()
	v.Insert(insertQuery("test/no-data", "hello", true))

	st, data := v.LookupOne(BuildQuery(Query{Key: Some("test/no-data"), Strict: Some(true)}, true))
	if st != StatusSuccess {
		t.Fatalf("LookupOne: %v", st)
	}
	if data != nil {
		t.Errorf("expected no payload, got %q", data)
	}
}

func TestMemoryInsertDuplicate(t *testing.T) {
	v := NewMemoryVault()

	v.Insert(insertQuery("test/dup", "first", true))
	if st := v.Insert(insertQuery("test/dup", "second", true)); st != StatusDuplicateItem {
		t.Errorf("expected duplicate status, got %v", st)
	}
}

func TestMemoryInsertRequiresKey(t *testing.T) {
	v := NewMemoryVault()

	if st := v.Insert(BuildQuery(Query{}, true)); st != StatusParam {
		t.Errorf("expected param status, got %v", st)
	}
}

func TestMemoryPartitions(t *testing.T) {
	v := NewMemoryVault()

	v.Insert(insertQuery("test/part", "strict", true))
	if st := v.Insert(insertQuery("test/part", "legacy", false)); st != StatusSuccess {
		t.Fatalf("legacy insert: %v", st)
	}

	relaxed := BuildQuery(Query{Key: Some("test/part"), ReturnData: Some(true), Strict: Some(false)}, true)
	_, data := v.LookupOne(relaxed)
	if string(data) != "legacy" {
		t.Errorf("expected 'legacy', got %q", data)
	}
}

func TestMemoryUpdateMissing(t *testing.T) {
	v := NewMemoryVault()

	match := BuildQuery(Query{Key: Some("test/missing"), Strict: Some(true)}, true)
	if st := v.Update(match, Descriptor{AttrValueData: []byte("x")}); st != StatusItemNotFound {
		t.Errorf("expected not found, got %v", st)
	}
}

func TestMemoryDeleteMatchingNothing(t *testing.T) {
	v := NewMemoryVault()

	if st := v.DeleteMatching(BuildQuery(Query{Strict: Some(true)}, true)); st != StatusItemNotFound {
		t.Errorf("expected not found, got %v", st)
	}
}

func TestMemoryLookupManyMatchLimitOne(t *testing.T) {
	v := NewMemoryVault()
	v.Insert(insertQuery("test/a", "1", true))
	v.Insert(insertQuery("test/b", "2", true))

	q := BuildQuery(Query{Namespace: Some("ns"), Strict: Some(true)}, true)
	q[AttrMatchLimit] = MatchLimitOne
	st, records := v.LookupMany(q)
	if st != StatusSuccess {
		t.Fatalf("LookupMany: %v", st)
	}
	if len(records) != 1 || records[0].Key != "test/a" {
		t.Errorf("expected only test/a, got %+v", records)
	}
}

func TestMemoryInjectedFailures(t *testing.T) {
	v := NewMemoryVault(FailStrict(StatusMissingEntitlement))

	if st := v.Insert(insertQuery("test/fail", "v", true)); st != StatusMissingEntitlement {
		t.Errorf("expected missing entitlement, got %v", st)
	}
	if st := v.Insert(insertQuery("test/fail", "v", false)); st != StatusSuccess {
		t.Errorf("expected relaxed insert to succeed, got %v", st)
	}
	if v.Calls() != 2 {
		t.Errorf("expected 2 calls, got %d", v.Calls())
	}
}
