package state

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/lamina-labs/evmsim/internal/account"
)

// fakeClient is a minimal EthClient stub recording call counts so tests can
// assert how many fetches reach the node without a live node.
type fakeClient struct {
	storageCalls int
	storageVal   common.Hash
	code         []byte
	balance      *big.Int
	nonce        uint64
}

func (f *fakeClient) CodeAt(ctx context.Context, addr common.Address, blk *big.Int) ([]byte, error) {
	return f.code, nil
}
func (f *fakeClient) BalanceAt(ctx context.Context, addr common.Address, blk *big.Int) (*big.Int, error) {
	if f.balance == nil {
		return big.NewInt(0), nil
	}
	return f.balance, nil
}
func (f *fakeClient) NonceAt(ctx context.Context, addr common.Address, blk *big.Int) (uint64, error) {
	return f.nonce, nil
}
func (f *fakeClient) StorageAt(ctx context.Context, addr common.Address, key common.Hash, blk *big.Int) ([]byte, error) {
	f.storageCalls++
	return f.storageVal.Bytes(), nil
}

func TestPreCachedInitAndRead(t *testing.T) {
	sdb := NewPreCached()
	addr := common.HexToAddress("0xb4e16d0168e52d35cacd2c6185b44281ec28c9dc")
	slot1 := common.BigToHash(big.NewInt(1))
	sdb.InitAccount(addr, account.Info{Balance: uint256.NewInt(0)}, map[common.Hash]common.Hash{
		slot1: common.BigToHash(big.NewInt(10)),
	}, false)

	v, err := sdb.StorageRef(addr, slot1)
	if err != nil || v != common.BigToHash(big.NewInt(10)) {
		t.Fatalf("expected slot 1 = 10, got %v err=%v", v, err)
	}

	slot2 := common.BigToHash(big.NewInt(2))
	v2, err2 := sdb.StorageRef(addr, slot2)
	if err2 != nil || v2 != (common.Hash{}) {
		t.Fatalf("expected present account untracked slot = 0, got %v err=%v", v2, err2)
	}
}

func TestPreCachedMissingAccount(t *testing.T) {
	sdb := NewPreCached()
	addr := common.HexToAddress("0xdeaddeaddeaddeaddeaddeaddeaddeaddeadbeef")
	_, err := sdb.StorageRef(addr, common.Hash{})
	if err == nil {
		t.Fatalf("expected MissingAccount error")
	}
}

func TestStreamingCreationUpdatesBalanceAndBlock(t *testing.T) {
	sdb := NewPreCached()
	addr := common.HexToAddress("0x7a251bd0168e52d35cacd2c6185b44281ec2888d")
	sdb.Update([]AccountUpdate{{
		Address: addr,
		Balance: uint256.NewInt(500),
		Code:    []byte{},
		Change:  ChangeCreation,
	}}, &Header{Number: 1})

	info, err := sdb.BasicRef(addr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.Balance.Uint64() != 500 {
		t.Fatalf("expected balance 500, got %v", info.Balance)
	}
	num, ok := sdb.BlockNumber()
	if !ok || num != 1 {
		t.Fatalf("expected block number 1, got %d ok=%v", num, ok)
	}
}

func TestUpdateStateAndRevert(t *testing.T) {
	sdb := NewPreCached()
	addr := common.HexToAddress("0x1111111111111111111111111111111111111111")
	sdb.InitAccount(addr, account.Info{Balance: uint256.NewInt(0)}, nil, false)

	slot := common.BigToHash(big.NewInt(123))
	val := common.BigToHash(big.NewInt(123))
	revert := sdb.UpdateState(map[common.Address]Update{
		addr: {Storage: map[common.Hash]common.Hash{slot: val}, Balance: uint256.NewInt(500)},
	}, &Header{Number: 1})

	v, _ := sdb.GetStorage(addr, slot)
	if v != val {
		t.Fatalf("expected slot 123 = 123, got %v", v)
	}
	info, _ := sdb.BasicRef(addr)
	if info.Balance.Uint64() != 500 {
		t.Fatalf("expected balance 500, got %v", info.Balance)
	}

	sdb.UpdateState(revert, &Header{Number: 0})

	v2, _ := sdb.GetStorage(addr, slot)
	if v2 != (common.Hash{}) {
		t.Fatalf("expected slot reverted to zero, got %v", v2)
	}
	info2, _ := sdb.BasicRef(addr)
	if info2.Balance.Sign() != 0 {
		t.Fatalf("expected balance reverted to 0, got %v", info2.Balance)
	}
	num, _ := sdb.BlockNumber()
	if num != 0 {
		t.Fatalf("expected block reverted to 0, got %d", num)
	}
}

func TestLazyRPCFetchCachedUntilTempClear(t *testing.T) {
	client := &fakeClient{storageVal: common.BigToHash(big.NewInt(42))}
	sdb := NewLazyRPCWithClient(client)
	addr := common.HexToAddress("0x2222222222222222222222222222222222222222")
	slot := common.Hash{1}

	v, err := sdb.StorageRef(addr, slot)
	if err != nil || v != common.BigToHash(big.NewInt(42)) {
		t.Fatalf("unexpected fetch result %v err=%v", v, err)
	}
	// Second read should hit the temp-storage cache, not the client again.
	v2, err2 := sdb.StorageRef(addr, slot)
	if err2 != nil || v2 != v {
		t.Fatalf("unexpected cached result %v err=%v", v2, err2)
	}
	if client.storageCalls != 1 {
		t.Fatalf("expected exactly one RPC call, got %d", client.storageCalls)
	}

	sdb.ClearTempStorage()
	if _, err := sdb.StorageRef(addr, slot); err != nil {
		t.Fatalf("unexpected error after clear: %v", err)
	}
	if client.storageCalls != 2 {
		t.Fatalf("expected a second RPC call after temp-storage clear, got %d", client.storageCalls)
	}
}

func TestMockedAccountNeverFetches(t *testing.T) {
	client := &fakeClient{storageVal: common.BigToHash(big.NewInt(999))}
	sdb := NewLazyRPCWithClient(client)
	addr := common.HexToAddress("0x3333333333333333333333333333333333333333")
	sdb.InitAccount(addr, account.Info{Balance: uint256.NewInt(0)}, nil, true)

	v, err := sdb.StorageRef(addr, common.Hash{9})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != (common.Hash{}) {
		t.Fatalf("expected mocked account untracked slot = 0, got %v", v)
	}
	if client.storageCalls != 0 {
		t.Fatalf("mocked account must never trigger an RPC fetch, got %d calls", client.storageCalls)
	}
}

func TestBlockHashRefZeroOnMismatch(t *testing.T) {
	sdb := NewPreCached()
	sdb.Update(nil, &Header{Number: 5, Hash: common.Hash{1}})
	h, err := sdb.BlockHashRef(5)
	if err != nil || h != (common.Hash{1}) {
		t.Fatalf("expected matching header hash, got %v err=%v", h, err)
	}
	h2, err2 := sdb.BlockHashRef(6)
	if err2 != nil || h2 != (common.Hash{}) {
		t.Fatalf("expected zero hash on mismatch (not an error), got %v err=%v", h2, err2)
	}
}
