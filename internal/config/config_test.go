package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DataDir != "./data/ledger" {
		t.Fatalf("data dir = %q", cfg.DataDir)
	}
	if cfg.Journal != "./data/operations.jsonl" {
		t.Fatalf("journal = %q", cfg.Journal)
	}
	if cfg.Listen != ":8080" {
		t.Fatalf("listen = %q", cfg.Listen)
	}
	if cfg.CacheSize != 128 {
		t.Fatalf("cache size = %d", cfg.CacheSize)
	}
	if cfg.RetryBackoff != 500*time.Millisecond {
		t.Fatalf("retry backoff = %s", cfg.RetryBackoff)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("log level = %q", cfg.LogLevel)
	}
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	path := filepath.Join(dir, "amm.yaml")
	if err := os.WriteFile(path, []byte("listen: \":9000\"\npool: FromFile\ncache-size: 16\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("AMM_POOL", "FromEnv")
	t.Setenv("AMM_LOG_LEVEL", "debug")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("listen", ":8080", "")
	if err := flags.Parse([]string{"--listen", ":7000"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := Load(path, flags)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Listen != ":7000" {
		t.Fatalf("flag should win, listen = %q", cfg.Listen)
	}
	if cfg.Pool != "FromEnv" {
		t.Fatalf("env should win over file, pool = %q", cfg.Pool)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("log level = %q", cfg.LogLevel)
	}
	if cfg.CacheSize != 16 {
		t.Fatalf("cache size = %d", cfg.CacheSize)
	}
}

func TestLoadRejectsBadCacheSize(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("AMM_CACHE_SIZE", "0")
	if _, err := Load("", nil); err == nil {
		t.Fatalf("expected error for zero cache size")
	}
}

func TestParseTimestamp(t *testing.T) {
	cases := []struct {
		in   string
		want uint64
	}{
		{"", 0},
		{"1700000000", 1700000000},
		{"2023-11-14T22:13:20Z", 1700000000},
	}
	for _, tc := range cases {
		got, err := ParseTimestamp(tc.in)
		if err != nil {
			t.Fatalf("parse %q: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("parse %q = %d, want %d", tc.in, got, tc.want)
		}
	}

	if _, err := ParseTimestamp("yesterday"); err == nil {
		t.Fatalf("expected error for non-timestamp")
	}
}

// chdir mirrors testing.T.Chdir (Go 1.24+): it changes the working
// directory and restores the previous one when the test finishes.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatalf("restore working directory: %v", err)
		}
	})
}
