package cache

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestFingerprint_Deterministic(t *testing.T) {
	a := Fingerprint("system", []string{"ex1", "ex2"}, "payload")
	b := Fingerprint("system", []string{"ex1", "ex2"}, "payload")
	if a != b {
		t.Errorf("Expected identical fingerprints, got %s and %s", a, b)
	}
	if !strings.HasPrefix(a, "tahqiq:v1:") {
		t.Errorf("Expected tahqiq:v1: prefix, got %s", a)
	}
}

func TestFingerprint_SensitiveToEveryBlock(t *testing.T) {
	base := Fingerprint("system", []string{"ex"}, "payload")

	if Fingerprint("system2", []string{"ex"}, "payload") == base {
		t.Error("Expected system change to alter fingerprint")
	}
	if Fingerprint("system", []string{"ex2"}, "payload") == base {
		t.Error("Expected exemplar change to alter fingerprint")
	}
	if Fingerprint("system", []string{"ex"}, "payload2") == base {
		t.Error("Expected payload change to alter fingerprint")
	}
	// Block boundaries matter: moving text between blocks is a new key.
	if Fingerprint("systemex", nil, "payload") == Fingerprint("system", []string{"ex"}, "payload") {
		t.Error("Expected block boundary to alter fingerprint")
	}
}

func TestMemoryCache_RoundTrip(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	if _, found := c.Get("missing"); found {
		t.Error("Expected miss for unknown key")
	}

	if err := c.Set("k", []byte("v"), 0); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	val, found := c.Get("k")
	if !found || !bytes.Equal(val, []byte("v")) {
		t.Errorf("Expected hit with value v, got %q found=%v", val, found)
	}

	if err := c.Delete("k"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if _, found := c.Get("k"); found {
		t.Error("Expected miss after delete")
	}
}

func TestDiskCache_RoundTrip(t *testing.T) {
	c := NewDiskCache(t.TempDir(), time.Hour)

	key := Fingerprint("system", nil, "payload")
	if err := c.Set(key, []byte("response"), 0); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	val, found := c.Get(key)
	if !found || !bytes.Equal(val, []byte("response")) {
		t.Errorf("Expected hit with stored value, got %q found=%v", val, found)
	}
}

func TestDiskCache_Expiry(t *testing.T) {
	c := NewDiskCache(t.TempDir(), time.Hour)

	if err := c.Set("k", []byte("v"), -time.Second); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if _, found := c.Get("k"); found {
		t.Error("Expected expired entry to miss")
	}
}

func TestLayeredCache_PromotesDiskHits(t *testing.T) {
	dir := t.TempDir()

	// Seed the disk layer directly, as a previous process would have.
	disk := NewDiskCache(dir, time.Hour)
	if err := disk.Set("k", []byte("v"), 0); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	layered := NewLayeredCache(time.Minute, dir, time.Hour)
	val, found := layered.Get("k")
	if !found || !bytes.Equal(val, []byte("v")) {
		t.Fatalf("Expected disk hit through layered cache, got %q found=%v", val, found)
	}

	// The hit must now be served from memory even after the disk copy is
	// gone.
	if err := disk.Delete("k"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	val, found = layered.Get("k")
	if !found || !bytes.Equal(val, []byte("v")) {
		t.Errorf("Expected promoted memory hit, got %q found=%v", val, found)
	}
}
