package state

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ethKeccak is the invariant from spec.md §8: for any account with code
// set, code_hash must equal keccak256(code) on every read.
func ethKeccak(code []byte) common.Hash {
	return crypto.Keccak256Hash(code)
}
