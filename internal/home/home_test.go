package home

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	t.Run("custom path", func(t *testing.T) {
		d, err := New("/tmp/scribe-test")
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		if d.Path() != "/tmp/scribe-test" {
			t.Errorf("Path() = %s", d.Path())
		}
		if d.ConfigPath() != "/tmp/scribe-test/config.yaml" {
			t.Errorf("ConfigPath() = %s", d.ConfigPath())
		}
	})

	t.Run("default path", func(t *testing.T) {
		d, err := New("")
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		if !strings.HasSuffix(d.Path(), DefaultDirName) {
			t.Errorf("Path() = %s, want suffix %s", d.Path(), DefaultDirName)
		}
	})
}

func TestStorePath(t *testing.T) {
	d, _ := New("/srv/scribe")
	tests := map[string]string{
		"":                 "/srv/scribe/data/llmcalls.db",
		"calls.db":         "/srv/scribe/data/calls.db",
		"/var/db/calls.db": "/var/db/calls.db",
	}
	for in, want := range tests {
		if got := d.StorePath(in); got != want {
			t.Errorf("StorePath(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestEnsureExists(t *testing.T) {
	d, _ := New(filepath.Join(t.TempDir(), "home"))
	if d.ConfigExists() {
		t.Error("config should not exist yet")
	}
	if err := d.EnsureExists(); err != nil {
		t.Fatalf("EnsureExists() error = %v", err)
	}
	if _, err := os.Stat(d.DataPath()); err != nil {
		t.Errorf("data dir missing: %v", err)
	}
	if err := os.WriteFile(d.ConfigPath(), []byte("x: 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if !d.ConfigExists() {
		t.Error("ConfigExists() = false after writing config")
	}
}
