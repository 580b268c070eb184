package keychain

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/benaskins/securestore/internal/audit"
)

// AuditedStorage wraps a Store and records every operation to an audit log.
type AuditedStorage struct {
	inner Store
	audit *audit.Logger
	actor string // "cli" or "test"
}

// NewAuditedStorage wraps an existing store with audit logging.
func NewAuditedStorage(inner Store, auditLog *audit.Logger, actor string) *AuditedStorage {
	return &AuditedStorage{
		inner: inner,
		audit: auditLog,
		actor: actor,
	}
}

func (s *AuditedStorage) ContainsKey(key string, scope Scope) bool {
	found := s.inner.ContainsKey(key, scope)
	status := StatusSuccess
	if !found {
		status = StatusItemNotFound
	}
	s.log(audit.ActionSecretProbe, key, scope, status, 0)
	return found
}

func (s *AuditedStorage) Read(key string, scope Scope) ReadResult {
	res := s.inner.Read(key, scope)
	s.log(audit.ActionSecretRead, key, scope, res.Status, 0)
	return res
}

func (s *AuditedStorage) ReadAll(scope Scope) ReadAllResult {
	res := s.inner.ReadAll(scope)
	s.log(audit.ActionSecretReadAll, "", scope, res.Status, len(res.Entries))
	return res
}

func (s *AuditedStorage) Write(key, value string, scope Scope, accessibility Opt[string]) Status {
	status := s.inner.Write(key, value, scope, accessibility)
	s.log(audit.ActionSecretWrite, key, scope, status, 0)
	return status
}

func (s *AuditedStorage) Delete(key string, scope Scope) Status {
	status := s.inner.Delete(key, scope)
	s.log(audit.ActionSecretDelete, key, scope, status, 0)
	return status
}

func (s *AuditedStorage) DeleteAll(scope Scope) Status {
	status := s.inner.DeleteAll(scope)
	s.log(audit.ActionSecretDeleteAll, "", scope, status, 0)
	return status
}

func (s *AuditedStorage) log(action audit.Action, key string, scope Scope, status Status, count int) {
	entry := audit.Entry{
		ID:        uuid.NewString(),
		Action:    action,
		Key:       key,
		Namespace: scope.Namespace.OrElse(""),
		Group:     scope.Group.OrElse(""),
		Status:    int32(status),
		Count:     count,
		Actor:     s.actor,
	}
	if !status.OK() {
		entry.Error = status.String()
	}
	// Audit logging is best-effort; a failure to log does not fail the operation.
	if err := s.audit.Log(entry); err != nil {
		slog.Warn("audit log write failed", "action", action, "error", err)
	}
}
