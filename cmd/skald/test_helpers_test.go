package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"skald/internal/config"
	"skald/internal/daemon"
	"skald/internal/events"
	"skald/internal/jobs"
	"skald/internal/logging"
	"skald/internal/testsupport"
	"skald/internal/workflow"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	store      *jobs.Store
	daemon     *daemon.Daemon
	address    string
}

// setupCLITestEnv starts a full in-process daemon on a loopback port and
// returns everything a CLI invocation needs to talk to it. Provider test
// mode is on, so pipelines produce deterministic local artifacts.
func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}

	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)

	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()
	hub := events.NewHub(logger)
	manager := workflow.NewManager(cfg, store, logger, workflow.WithPublisher(hub))

	d, err := daemon.New(cfg, store, logger, manager, hub)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := d.Start(ctx); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}
	t.Cleanup(func() {
		cancel()
		d.Stop()
	})

	return &cliTestEnv{
		cfg:        cfg,
		configPath: configPath,
		store:      store,
		daemon:     d,
		address:    d.Addr(),
	}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

// run executes one CLI invocation against the test daemon and returns
// the combined output.
func (env *cliTestEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", env.configPath, "--address", env.address}, args...))
	err := cmd.Execute()
	return out.String(), err
}
