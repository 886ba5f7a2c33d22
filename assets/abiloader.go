package assets

import (
	"os"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"

	"github.com/lamina-labs/evmsim/simerrors"
)

// Known on-disk ABI asset locations, relative to the compiled artifact, per
// spec.md §6. Callers may still pass an arbitrary path to Load — these
// constants are the defaults a fully wired-up binary uses.
const (
	ISwapAdapterABIPath = "assets/abi/ISwapAdapter.abi"
	ERC20ABIPath        = "assets/abi/ERC20.abi"
)

type abiEntry struct {
	once  sync.Once
	value abi.ABI
	err   error
}

// ABILoader parses on-disk ABI JSON blobs once per path per process. Two
// calls for the same path never reopen the file; this is a small, explicit
// service handle rather than ambient package-level state, so callers can
// construct independent loaders in tests.
type ABILoader struct {
	mu      sync.Mutex
	entries map[string]*abiEntry
}

// NewABILoader builds an empty loader.
func NewABILoader() *ABILoader {
	return &ABILoader{entries: make(map[string]*abiEntry)}
}

// Load parses the ABI JSON file at path, caching the result (success or
// failure) for the lifetime of the loader.
func (l *ABILoader) Load(path string) (abi.ABI, error) {
	l.mu.Lock()
	entry, ok := l.entries[path]
	if !ok {
		entry = &abiEntry{}
		l.entries[path] = entry
	}
	l.mu.Unlock()

	entry.once.Do(func() {
		data, err := os.ReadFile(path)
		if err != nil {
			entry.err = &simerrors.FileError{Kind: simerrors.FileIO, Path: path, Err: err}
			return
		}
		parsed, err := abi.JSON(strings.NewReader(string(data)))
		if err != nil {
			entry.err = &simerrors.FileError{Kind: simerrors.FileParse, Path: path, Err: err}
			return
		}
		entry.value = parsed
	})
	return entry.value, entry.err
}
