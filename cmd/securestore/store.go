package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/benaskins/securestore/internal/audit"
	"github.com/benaskins/securestore/internal/config"
	"github.com/benaskins/securestore/internal/keychain"
)

var (
	configPath  string
	backendFlag string
	namespace   string
	group       string
	syncFlag    bool
	noAudit     bool
	verbose     bool
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", config.DefaultPath(), "Path to config file")
	pf.StringVar(&backendFlag, "backend", "", "Vault backend: auto, keychain, keyring or memory")
	pf.StringVar(&namespace, "namespace", "", "Service namespace for secrets")
	pf.StringVar(&group, "group", "", "Sharing (access) group for secrets")
	pf.BoolVar(&syncFlag, "sync", false, "Restrict to secrets eligible for cross-device sync")
	pf.BoolVar(&noAudit, "no-audit", false, "Do not record operations in the audit log")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Log vault diagnostics to stderr")
}

// session is an opened store plus the scope the command operates on.
type session struct {
	store  keychain.Store
	scope  keychain.Scope
	cfg    *config.Config
	closer func()
}

func (s *session) Close() {
	if s.closer != nil {
		s.closer()
	}
}

func openSession(cmd *cobra.Command) (*session, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	scope := cfg.Scope()
	flags := cmd.Flags()
	if flags.Changed("namespace") {
		scope.Namespace = keychain.Some(namespace)
	}
	if flags.Changed("group") {
		scope.Group = keychain.Some(group)
	}
	if flags.Changed("sync") {
		scope.Sync = keychain.Some(syncFlag)
	}

	backend := cfg.Backend
	if flags.Changed("backend") {
		backend = backendFlag
	}
	vault, err := openVault(backend)
	if err != nil {
		return nil, err
	}

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	var store keychain.Store = keychain.NewStorage(vault, keychain.WithLogger(logger.With("component", "keychain")))

	s := &session{store: store, scope: scope, cfg: cfg}
	if path := cfg.AuditLogPath(); path != "" && !noAudit {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("creating audit dir: %w", err)
		}
		auditLog, err := audit.NewLogger(path)
		if err != nil {
			return nil, err
		}
		s.store = keychain.NewAuditedStorage(store, auditLog, "cli")
		s.closer = func() { auditLog.Close() }
	}
	return s, nil
}

func openVault(backend string) (keychain.Vault, error) {
	switch backend {
	case "", config.BackendAuto, config.BackendKeychain:
		return keychain.NewSystemVault(), nil
	case config.BackendKeyring:
		return keychain.NewKeyringVault(keychain.DefaultKeyringService), nil
	case config.BackendMemory:
		return keychain.NewMemoryVault(), nil
	}
	return nil, fmt.Errorf("unknown backend %q", backend)
}
