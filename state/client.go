package state

import (
	"context"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common"
)

// EthClient is the subset of github.com/ethereum/go-ethereum/ethclient's
// Client this package depends on. *ethclient.Client satisfies it directly;
// the interface exists so tests can substitute a stub without a live node.
type EthClient interface {
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	NonceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (uint64, error)
	StorageAt(ctx context.Context, account common.Address, key common.Hash, blockNumber *big.Int) ([]byte, error)
}

// defaultRPCURL returns the RPC_URL environment variable, the fallback
// endpoint named in spec.md §6 when none is passed programmatically.
func defaultRPCURL() string {
	return os.Getenv("RPC_URL")
}
