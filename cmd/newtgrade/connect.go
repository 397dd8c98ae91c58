package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"golang.org/x/term"

	"github.com/newtron-network/newtgrade/pkg/audit"
	"github.com/newtron-network/newtgrade/pkg/gnmi"
	"github.com/newtron-network/newtgrade/pkg/inventory"
	"github.com/newtron-network/newtgrade/pkg/store"
	"github.com/newtron-network/newtgrade/pkg/upgrade"
	"github.com/newtron-network/newtgrade/pkg/util"
)

// PasswordEnv names the environment variable (or .env entry) holding the
// device password.
const PasswordEnv = "NEWTGRADE_PASSWORD"

const defaultParallelism = 4

// session is an open device connection plus the stores it records into.
type session struct {
	client  *gnmi.Client
	store   *store.Store
	auditor audit.Logger
	closers []func() error
}

func (s *session) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// deviceConfig merges, in increasing precedence: user settings, the
// inventory entry and command-line flags.
func (a *App) deviceConfig(host string) (gnmi.Config, string, error) {
	var entry inventory.Device
	invPath := a.inventory
	if invPath == "" {
		invPath = a.settings.Inventory
	}
	if invPath != "" {
		inv, err := inventory.Load(invPath)
		if err != nil {
			return gnmi.Config{}, "", err
		}
		if e, err := inv.Lookup(host); err == nil {
			entry = e
		} else {
			util.WithDevice(host).Debugf("Not in inventory %s; using flags", invPath)
		}
	}

	cfg := entry.Config(host)
	if cfg.Target == "" {
		cfg.Target = host
	}
	if cfg.Username == "" {
		cfg.Username = a.settings.Username
	}
	cfg.SkipVerify = cfg.SkipVerify || a.settings.SkipVerify

	if a.target != "" {
		cfg.Target = a.target
	}
	if a.port != 0 {
		cfg.Port = a.port
	}
	if a.username != "" {
		cfg.Username = a.username
	}
	if a.password != "" {
		cfg.Password = a.password
	}
	if a.sshUser != "" {
		cfg.SSHUser = a.sshUser
	}
	if a.sshPass != "" {
		cfg.SSHPass = a.sshPass
	}
	cfg.Insecure = cfg.Insecure || a.insecure
	cfg.SkipVerify = cfg.SkipVerify || a.skipVerify
	if cfg.Insecure && cfg.SkipVerify {
		return gnmi.Config{}, "", fmt.Errorf("--insecure and --skip-verify are mutually exclusive")
	}

	group := a.settings.MaintenanceGroup
	if entry.MaintenanceGroup != "" {
		group = entry.MaintenanceGroup
	}
	if a.group != "" {
		group = a.group
	}
	return cfg, group, nil
}

// resolvePassword fills cfg.Password from the environment (after loading a
// .env file if one exists) or an interactive no-echo prompt.
func resolvePassword(cfg *gnmi.Config, prompt func(string) (string, error)) error {
	if cfg.Password != "" || cfg.Username == "" {
		return nil
	}
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		util.Warnf("Could not read .env: %v", err)
	}
	if pw := os.Getenv(PasswordEnv); pw != "" {
		cfg.Password = pw
		return nil
	}
	if prompt == nil {
		return fmt.Errorf("no password for %s: use -p or set %s", cfg.Username, PasswordEnv)
	}
	pw, err := prompt(fmt.Sprintf("Password for %s@%s: ", cfg.Username, cfg.Hostname))
	if err != nil {
		return fmt.Errorf("reading password: %w", err)
	}
	cfg.Password = pw
	return nil
}

// terminalPrompt reads a password without echo, or returns nil when stdin
// is not a terminal.
func terminalPrompt() func(string) (string, error) {
	fd := os.Stdin.Fd()
	if !isatty.IsTerminal(fd) {
		return nil
	}
	return func(msg string) (string, error) {
		fmt.Fprint(os.Stderr, msg)
		b, err := term.ReadPassword(int(fd))
		fmt.Fprintln(os.Stderr)
		return string(b), err
	}
}

// openStore builds the configured snapshot store.
func (a *App) openStore(ctx context.Context) (*store.Store, func() error, error) {
	kind := a.storeKind
	if kind == "" {
		kind = a.settings.GetStoreBackend()
	}
	switch kind {
	case "file":
		return store.New(store.NewFileBackend(a.storeRoot())), func() error { return nil }, nil
	case "redis":
		addr := a.redisAddr
		if addr == "" {
			addr = a.settings.RedisAddr
		}
		if addr == "" {
			return nil, nil, fmt.Errorf("redis store requires --redis-addr")
		}
		b := store.NewRedisBackend(addr, 0)
		if err := b.Connect(ctx); err != nil {
			b.Close()
			return nil, nil, err
		}
		return store.New(b), b.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown store backend %q (valid: file, redis)", kind)
}

func (a *App) storeRoot() string {
	if a.storeDir != "" {
		return a.storeDir
	}
	return a.settings.GetStoreDir()
}

// openAuditor opens the audit log under the store root. Audit failures
// degrade to a warning; they never block an upgrade.
func (a *App) openAuditor() audit.Logger {
	path := filepath.Join(a.storeRoot(), "audit.log")
	l, err := audit.NewFileLogger(path, audit.DefaultRotation)
	if err != nil {
		util.Warnf("Could not initialize audit logging: %v", err)
		return audit.Discard
	}
	return l
}

// connect opens the device session for the selected host.
func (a *App) connect(ctx context.Context) (*session, *upgrade.Options, error) {
	host, err := a.requireHost()
	if err != nil {
		return nil, nil, err
	}
	cfg, group, err := a.deviceConfig(host)
	if err != nil {
		return nil, nil, err
	}
	if err := resolvePassword(&cfg, terminalPrompt()); err != nil {
		return nil, nil, err
	}

	opts := &upgrade.Options{
		Host:             host,
		User:             cfg.Username,
		Parallelism:      a.parallelism,
		MaintenanceGroup: group,
	}
	if opts.Parallelism == 0 {
		opts.Parallelism = a.settings.Parallelism
	}
	if opts.Parallelism == 0 {
		opts.Parallelism = defaultParallelism
	}
	settle := a.settle
	if settle == "" {
		settle = a.settings.SettleInterval
	}
	if settle != "" {
		d, err := time.ParseDuration(settle)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid settle interval %q: %w", settle, err)
		}
		opts.SettleInterval = d
	}

	s := &session{}
	st, closeStore, err := a.openStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	s.store = st
	s.closers = append(s.closers, closeStore)

	s.auditor = a.openAuditor()
	s.closers = append(s.closers, s.auditor.Close)

	client, err := gnmi.Dial(ctx, cfg)
	if err != nil {
		s.Close()
		return nil, nil, err
	}
	s.client = client
	s.closers = append(s.closers, client.Close)
	return s, opts, nil
}

// orchestrator wires a session into an upgrade orchestrator.
func (s *session) orchestrator(opts *upgrade.Options, confirm upgrade.Confirmer) *upgrade.Orchestrator {
	return upgrade.New(s.client, s.store, confirm, s.auditor, *opts)
}
