package assets

import (
	"os"
	"path/filepath"
	"testing"
)

func TestBytecodeCacheLoadOnce(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "contract.bin")
	if err := os.WriteFile(path, []byte{0xde, 0xad, 0xbe, 0xef}, 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	cache := NewBytecodeCache()
	first, err := cache.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(first) != 4 {
		t.Fatalf("expected 4 bytes, got %d", len(first))
	}

	// Remove the file; a cached second lookup must not need to reopen it.
	if err := os.Remove(path); err != nil {
		t.Fatalf("remove: %v", err)
	}
	second, err := cache.Load(path)
	if err != nil {
		t.Fatalf("expected cached load to succeed without the file present: %v", err)
	}
	if string(second) != string(first) {
		t.Fatalf("expected identical cached bytes")
	}
}

func TestBytecodeCacheMissingFile(t *testing.T) {
	cache := NewBytecodeCache()
	if _, err := cache.Load("/nonexistent/path/contract.bin"); err == nil {
		t.Fatalf("expected an error for a missing file")
	}
}

func TestABILoaderParsesAndCaches(t *testing.T) {
	// ISwapAdapterABIPath is relative to the compiled artifact (a binary at
	// the repo root); from within this package's own test working
	// directory the same file is at that path without its "assets/" prefix.
	path := filepath.Join("abi", "ISwapAdapter.abi")

	loader := NewABILoader()
	parsed, err := loader.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, ok := parsed.Methods["getCapabilities"]; !ok {
		t.Fatalf("expected getCapabilities method in parsed ABI")
	}

	// Second load must hit the cache, not re-parse. Re-parsing the same JSON
	// would be functionally indistinguishable, so this only checks that the
	// method set stays the same; load-once behaviour with the file removed
	// is exercised by the bytecode cache test above.
	parsed2, err := loader.Load(path)
	if err != nil {
		t.Fatalf("second Load: %v", err)
	}
	if len(parsed2.Methods) != len(parsed.Methods) {
		t.Fatalf("expected stable method set across cached loads")
	}
}

func TestABILoaderMissingFile(t *testing.T) {
	loader := NewABILoader()
	if _, err := loader.Load("/nonexistent/ISwapAdapter.abi"); err == nil {
		t.Fatalf("expected an error for a missing ABI file")
	}
}
