package main

import "testing"

func TestResolveConfigFlagsOverrideDefaults(t *testing.T) {
	flagRoot = t.TempDir()
	flagConfig = ""
	flagLog = "/tmp/erraidd-test.log"
	flagLogFormat = "json"
	flagDebug = true
	defer func() {
		flagRoot, flagConfig, flagLog, flagLogFormat, flagDebug = "", "", "", "", false
	}()

	cfg, err := resolveConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Root != flagRoot {
		t.Fatalf("got root %q, want %q", cfg.Root, flagRoot)
	}
	if cfg.LogPath != flagLog || cfg.LogFormat != "json" || !cfg.Debug {
		t.Fatalf("got %+v", cfg)
	}
}

func TestResolveConfigRejectsEmptyRoot(t *testing.T) {
	flagRoot = ""
	flagConfig = ""
	flagLog = ""
	flagLogFormat = "text"
	flagDebug = false
	t.Setenv("USER", "")
	t.Setenv("LOGNAME", "")
	t.Setenv("ERRAID_ROOT", "")

	if _, err := resolveConfig(); err == nil {
		t.Fatal("expected error when no root can be resolved")
	}
}
