package state

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/holiman/uint256"
	"golang.org/x/sync/singleflight"

	"github.com/lamina-labs/evmsim/internal/account"
	evmlog "github.com/lamina-labs/evmsim/log"
	"github.com/lamina-labs/evmsim/simerrors"
)

// variant distinguishes the two SDB flavours sharing this struct. They
// differ only in how a storage/basic miss is resolved (§4.2.1 vs §4.2.2);
// everything else — locking, update application, revert bookkeeping — is
// identical, so it lives once in this file rather than being duplicated.
type variant int

const (
	variantLazyRPC variant = iota
	variantPreCached
)

// SDB is the shared-ownership, reference-counted state database. Many
// SDB values may point at the same underlying store via Go's normal
// pointer semantics; callers that need independent stores construct
// separate SDBs.
type SDB struct {
	mu       sync.RWMutex
	store    *account.Store
	header   *Header
	variant  variant
	client   EthClient
	group    singleflight.Group
	deletion DeletionPolicy
	codeHash map[common.Hash][]byte
}

// NewLazyRPC builds an SDB backed by a node's JSON-RPC endpoint. An empty
// endpoint falls back to the RPC_URL environment variable.
func NewLazyRPC(endpoint string) (*SDB, error) {
	if endpoint == "" {
		endpoint = defaultRPCURL()
	}
	client, err := ethclient.Dial(endpoint)
	if err != nil {
		return nil, &simerrors.RPCError{Kind: simerrors.RPCInvalidRequest, Err: err}
	}
	return newSDB(variantLazyRPC, client), nil
}

// NewLazyRPCWithClient builds a LazyRPC SDB against an already-constructed
// client, primarily for tests.
func NewLazyRPCWithClient(client EthClient) *SDB {
	return newSDB(variantLazyRPC, client)
}

// NewPreCached builds an SDB that never fetches; it must be seeded via
// InitAccount/Update before use.
func NewPreCached() *SDB {
	return newSDB(variantPreCached, nil)
}

func newSDB(v variant, client EthClient) *SDB {
	return &SDB{
		store:    account.New(),
		variant:  v,
		client:   client,
		deletion: IgnoreDeletion,
		codeHash: make(map[common.Hash][]byte),
	}
}

// SetDeletionPolicy configures how streaming Deletion events are handled.
func (s *SDB) SetDeletionPolicy(p DeletionPolicy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletion = p
}

// BlockNumber returns the number of the currently attached header, or 0
// with ok=false if none has been set yet.
func (s *SDB) BlockNumber() (number uint64, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.header == nil {
		return 0, false
	}
	return s.header.Number, true
}

// InitAccount mirrors account.Store.InitAccount, lifting the SDB lock.
func (s *SDB) InitAccount(addr common.Address, info account.Info, permanent map[common.Hash]common.Hash, mocked bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.InitAccount(addr, info, permanent, mocked)
	if info.Code != nil {
		s.codeHash[info.CodeHash] = info.Code
	}
}

// GetStorage mirrors account.Store.GetStorage, lifting the SDB lock. It
// never fetches — use StorageRef for the interpreter-facing read path.
func (s *SDB) GetStorage(addr common.Address, slot common.Hash) (common.Hash, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.GetStorage(addr, slot)
}

// ClearTempStorage wipes every account's temporary overlay.
func (s *SDB) ClearTempStorage() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.ClearTempStorage()
}

// Update atomically applies a batch of streaming Account Updates and,
// if supplied, sets the current block header. The whole batch commits
// under one critical section — partial visibility is forbidden.
func (s *SDB) Update(updates []AccountUpdate, header *Header) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range updates {
		switch u.Change {
		case ChangeCreation:
			info := account.Info{Balance: zeroIfNil(u.Balance)}
			if u.Code != nil {
				info.Code = u.Code
				info.CodeHash = ethKeccak(u.Code)
			}
			s.store.InitAccount(u.Address, info, u.Slots, true)
			if u.Code != nil {
				s.codeHash[info.CodeHash] = u.Code
			}
		case ChangeDeletion:
			if s.deletion == PurgeDeletion {
				s.store.Purge(u.Address)
			} else {
				// IgnoreDeletion: log-and-ignore per spec.md §9.
				evmlog.Default().Module("state").Info("ignoring account deletion", "address", u.Address.Hex())
			}
		default: // ChangeUpdate
			s.store.UpdateAccount(u.Address, u.Slots, u.Balance)
			if u.Code != nil {
				s.store.SetCode(u.Address, u.Code, ethKeccak(u.Code))
				s.codeHash[ethKeccak(u.Code)] = u.Code
			}
		}
	}

	if header != nil {
		s.header = header
	}
}

// UpdateState applies a batch of State Updates to permanent storage and
// returns a revert map: for every address and slot about to be
// overwritten, the revert map records the prior value, and for every
// address with a balance change, the prior balance. Calling
// UpdateState(revertMap, priorHeader) undoes this call.
func (s *SDB) UpdateState(updates map[common.Address]Update, header *Header) map[common.Address]Update {
	s.mu.Lock()
	defer s.mu.Unlock()

	revert := make(map[common.Address]Update, len(updates))
	for addr, upd := range updates {
		var r Update
		if upd.Storage != nil {
			priorStorage := make(map[common.Hash]common.Hash, len(upd.Storage))
			for slot := range upd.Storage {
				prior, _ := s.store.GetStorage(addr, slot)
				priorStorage[slot] = prior
			}
			r.Storage = priorStorage
		}
		if upd.Balance != nil {
			if info, ok := s.store.GetAccountInfo(addr); ok && info.Balance != nil {
				r.Balance = new(uint256.Int).Set(info.Balance)
			} else {
				r.Balance = uint256.NewInt(0)
			}
		}
		revert[addr] = r

		s.store.UpdateAccount(addr, upd.Storage, upd.Balance)
	}

	if header != nil {
		s.header = header
	}
	return revert
}

// --- Reader implementation ---

// BasicRef returns an account's Info, fetching it from the node on a miss
// for the LazyRPC variant, or reporting MissingAccount for PreCached.
func (s *SDB) BasicRef(addr common.Address) (*account.Info, error) {
	s.mu.RLock()
	info, present := s.store.GetAccountInfo(addr)
	mocked := s.store.IsMocked(addr)
	s.mu.RUnlock()

	if present {
		return &info, nil
	}
	if s.variant == variantPreCached {
		return nil, &simerrors.MissingAccount{Address: addr}
	}
	if mocked {
		return nil, &simerrors.MissingAccount{Address: addr}
	}
	return s.fetchBasic(addr)
}

// CodeByHash resolves bytecode purely by its digest from the side index
// populated as accounts are created or fetched. For PreCached it always
// returns a StorageError, even for code it was seeded with; the interpreter
// must be configured to resolve code directly from account info instead.
func (s *SDB) CodeByHash(hash common.Hash) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.variant == variantPreCached {
		return nil, &simerrors.StorageError{Reason: "PreCached.CodeByHash is unsupported; resolve code from account info"}
	}
	code, ok := s.codeHash[hash]
	if !ok {
		return nil, &simerrors.RPCError{Kind: simerrors.RPCEmptyResponse, Err: nil}
	}
	return code, nil
}

// StorageRef returns the value at (addr, slot), applying the mocked /
// not-mocked / variant fallback policy of spec.md §4.2.1–§4.2.2.
func (s *SDB) StorageRef(addr common.Address, slot common.Hash) (common.Hash, error) {
	s.mu.RLock()
	val, ok := s.store.GetStorage(addr, slot)
	present := s.store.AccountPresent(addr)
	mocked := s.store.IsMocked(addr)
	s.mu.RUnlock()

	if ok {
		return val, nil
	}
	if present && mocked {
		return common.Hash{}, nil // known account, untracked slot ⇒ zero
	}
	if s.variant == variantPreCached {
		if present {
			return common.Hash{}, nil
		}
		return common.Hash{}, &simerrors.MissingAccount{Address: addr}
	}
	return s.fetchStorage(addr, slot)
}

// BlockHashRef returns the attached header's hash when number matches it;
// otherwise the zero hash, never an error. Callers that care must
// cross-check the block number themselves.
func (s *SDB) BlockHashRef(number uint64) (common.Hash, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.header != nil && s.header.Number == number {
		return s.header.Hash, nil
	}
	return common.Hash{}, nil
}

// --- LazyRPC fetch path ---

func (s *SDB) blockTag() *big.Int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.header == nil {
		return nil // ethclient treats nil as "latest"
	}
	return new(big.Int).SetUint64(s.header.Number)
}

func (s *SDB) fetchBasic(addr common.Address) (*account.Info, error) {
	key := "basic:" + addr.Hex()
	v, err, _ := s.group.Do(key, func() (any, error) {
		blk := s.blockTag()
		ctx := context.Background()

		code, err := s.client.CodeAt(ctx, addr, blk)
		if err != nil {
			return nil, &simerrors.RPCError{Kind: simerrors.RPCInvalidResponse, Err: err}
		}
		bal, err := s.client.BalanceAt(ctx, addr, blk)
		if err != nil {
			return nil, &simerrors.RPCError{Kind: simerrors.RPCInvalidResponse, Err: err}
		}
		nonce, err := s.client.NonceAt(ctx, addr, blk)
		if err != nil {
			return nil, &simerrors.RPCError{Kind: simerrors.RPCInvalidResponse, Err: err}
		}

		info := account.Info{Nonce: nonce}
		info.Balance, _ = uint256.FromBig(bal)
		if len(code) > 0 {
			info.Code = code
			info.CodeHash = ethKeccak(code)
		}

		s.mu.Lock()
		s.store.InitAccount(addr, info, nil, false)
		if len(code) > 0 {
			s.codeHash[info.CodeHash] = code
		}
		s.mu.Unlock()

		return &info, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*account.Info), nil
}

func (s *SDB) fetchStorage(addr common.Address, slot common.Hash) (common.Hash, error) {
	key := "storage:" + addr.Hex() + ":" + slot.Hex()
	v, err, _ := s.group.Do(key, func() (any, error) {
		blk := s.blockTag()
		raw, err := s.client.StorageAt(context.Background(), addr, slot, blk)
		if err != nil {
			return common.Hash{}, &simerrors.RPCError{Kind: simerrors.RPCInvalidResponse, Err: err}
		}
		val := common.BytesToHash(raw)

		s.mu.Lock()
		if !s.store.AccountPresent(addr) {
			s.store.InitAccount(addr, account.Info{Balance: uint256.NewInt(0)}, nil, false)
		}
		s.store.SetTempStorage(addr, slot, val)
		s.mu.Unlock()

		return val, nil
	})
	if err != nil {
		return common.Hash{}, err
	}
	return v.(common.Hash), nil
}

func zeroIfNil(v *uint256.Int) *uint256.Int {
	if v == nil {
		return uint256.NewInt(0)
	}
	return v
}
