package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	c := Default()
	if c.MaxCallDepth != DefaultMaxCallDepth {
		t.Fatalf("MaxCallDepth = %d", c.MaxCallDepth)
	}
	if c.MaxStackSize != DefaultMaxStackSize {
		t.Fatalf("MaxStackSize = %d", c.MaxStackSize)
	}
	if c.MemoryLimit != DefaultMemoryLimit {
		t.Fatalf("MemoryLimit = %d", c.MemoryLimit)
	}
}

func TestParseFillsOmittedFields(t *testing.T) {
	c, err := Parse([]byte("max_call_depth: 128\n"))
	if err != nil {
		t.Fatal(err)
	}
	if c.MaxCallDepth != 128 {
		t.Fatalf("MaxCallDepth = %d, want 128", c.MaxCallDepth)
	}
	if c.MaxStackSize != DefaultMaxStackSize {
		t.Fatalf("MaxStackSize = %d, want the default", c.MaxStackSize)
	}
	if c.GCThreshold != DefaultGCThreshold {
		t.Fatalf("GCThreshold = %d, want the default", c.GCThreshold)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	if _, err := Parse([]byte("max_call_depth: [not a number\n")); err == nil {
		t.Fatal("malformed yaml accepted")
	}
}

func TestLoadRoundTrip(t *testing.T) {
	c := Config{MaxCallDepth: 64, MaxStackSize: 4096, GCThreshold: 1 << 10, MemoryLimit: 1 << 20}
	data, err := c.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "vm.yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got != c {
		t.Fatalf("loaded %+v, want %+v", got, c)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("missing file accepted")
	}
}
