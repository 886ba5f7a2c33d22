package state

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/tracing"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/params"
	"github.com/holiman/uint256"
)

// View is the EVM-facing state adapter: it implements the go-ethereum
// core/vm.StateDB contract (CreateAccount, SetState, Snapshot, access
// lists, transient storage, logs, refunds, ...) on top of a read-only
// Reader plus a per-simulation dirty overlay and journal.
//
// A View is built fresh for each Simulate call and discarded afterward —
// package state never writes a View's dirty set back into the underlying
// SDB; only UpdateState/InitAccount/Update do that, and only when the
// caller explicitly asks. The journal/access-list/snapshot machinery
// below mirrors this corpus's own core/state/journal.go and
// core/state/access_list.go design (same revert-by-replaying-entries
// approach, same snapshot-id-to-entry-index map) re-pointed at Reader
// misses instead of an implicit zero default.
type View struct {
	reader Reader

	balances   map[common.Address]*uint256.Int
	nonces     map[common.Address]uint64
	codes      map[common.Address][]byte
	codeHashes map[common.Address]common.Hash
	storage    map[common.Address]map[common.Hash]common.Hash
	created    map[common.Address]bool
	destructed map[common.Address]bool
	transient  map[common.Address]map[common.Hash]common.Hash
	touched    map[common.Address]bool

	refund uint64
	logs   []*gethtypes.Log

	accessAddrs map[common.Address]struct{}
	accessSlots map[common.Address]map[common.Hash]struct{}

	journal   []viewJournalEntry
	snapshots map[int]int
	nextSnap  int
}

// NewView constructs a simulation-scoped state adapter reading through r.
func NewView(r Reader) *View {
	return &View{
		reader:      r,
		balances:    make(map[common.Address]*uint256.Int),
		nonces:      make(map[common.Address]uint64),
		codes:       make(map[common.Address][]byte),
		codeHashes:  make(map[common.Address]common.Hash),
		storage:     make(map[common.Address]map[common.Hash]common.Hash),
		created:     make(map[common.Address]bool),
		destructed:  make(map[common.Address]bool),
		transient:   make(map[common.Address]map[common.Hash]common.Hash),
		touched:     make(map[common.Address]bool),
		accessAddrs: make(map[common.Address]struct{}),
		accessSlots: make(map[common.Address]map[common.Hash]struct{}),
		snapshots:   make(map[int]int),
	}
}

// SetOverride seeds the temporary-storage-equivalent override layer for one
// (address, slot) pair. Overrides are additive to whatever the Reader
// would otherwise return and are not journaled — they represent the
// caller's Simulation Parameters, not an in-flight EVM write.
func (v *View) SetOverride(addr common.Address, slot, value common.Hash) {
	m, ok := v.storage[addr]
	if !ok {
		m = make(map[common.Hash]common.Hash)
		v.storage[addr] = m
	}
	m[slot] = value
}

func (v *View) append(e viewJournalEntry) {
	v.journal = append(v.journal, e)
}

// Snapshot records the current journal length under a fresh id.
func (v *View) Snapshot() int {
	id := v.nextSnap
	v.nextSnap++
	v.snapshots[id] = len(v.journal)
	return id
}

// RevertToSnapshot replays journal entries in reverse back to id.
func (v *View) RevertToSnapshot(id int) {
	idx, ok := v.snapshots[id]
	if !ok {
		return
	}
	for i := len(v.journal) - 1; i >= idx; i-- {
		v.journal[i].revert(v)
	}
	v.journal = v.journal[:idx]
	for sid := range v.snapshots {
		if sid >= id {
			delete(v.snapshots, sid)
		}
	}
}

// --- balance / nonce / code ---

func (v *View) balanceOf(addr common.Address) *uint256.Int {
	if b, ok := v.balances[addr]; ok {
		return b
	}
	info, err := v.reader.BasicRef(addr)
	if err != nil || info == nil || info.Balance == nil {
		b := uint256.NewInt(0)
		v.balances[addr] = b
		return b
	}
	b := new(uint256.Int).Set(info.Balance)
	v.balances[addr] = b
	return b
}

func (v *View) CreateAccount(addr common.Address) {
	v.append(createAccountEntry{addr: addr, wasCreated: v.created[addr]})
	v.created[addr] = true
	v.touched[addr] = true
}

// CreateContract marks addr as a freshly deployed contract. go-ethereum
// distinguishes this from CreateAccount since Shanghai; this view treats
// both identically since it never computes a storage root.
func (v *View) CreateContract(addr common.Address) {
	v.CreateAccount(addr)
}

func (v *View) SubBalance(addr common.Address, amount *uint256.Int, reason tracing.BalanceChangeReason) {
	prev := v.balanceOf(addr)
	v.append(balanceEntry{addr: addr, prev: new(uint256.Int).Set(prev)})
	v.balances[addr] = new(uint256.Int).Sub(prev, amount)
	v.touched[addr] = true
}

func (v *View) AddBalance(addr common.Address, amount *uint256.Int, reason tracing.BalanceChangeReason) {
	prev := v.balanceOf(addr)
	v.append(balanceEntry{addr: addr, prev: new(uint256.Int).Set(prev)})
	v.balances[addr] = new(uint256.Int).Add(prev, amount)
	v.touched[addr] = true
}

func (v *View) GetBalance(addr common.Address) *uint256.Int {
	return new(uint256.Int).Set(v.balanceOf(addr))
}

func (v *View) GetNonce(addr common.Address) uint64 {
	if n, ok := v.nonces[addr]; ok {
		return n
	}
	info, err := v.reader.BasicRef(addr)
	if err != nil || info == nil {
		return 0
	}
	v.nonces[addr] = info.Nonce
	return info.Nonce
}

func (v *View) SetNonce(addr common.Address, nonce uint64, reason tracing.NonceChangeReason) {
	v.append(nonceEntry{addr: addr, prev: v.GetNonce(addr), had: true})
	v.nonces[addr] = nonce
	v.touched[addr] = true
}

func (v *View) codeOf(addr common.Address) ([]byte, common.Hash) {
	if c, ok := v.codes[addr]; ok {
		return c, v.codeHashes[addr]
	}
	info, err := v.reader.BasicRef(addr)
	if err != nil || info == nil {
		return nil, common.Hash{}
	}
	v.codes[addr] = info.Code
	v.codeHashes[addr] = info.CodeHash
	return info.Code, info.CodeHash
}

func (v *View) GetCodeHash(addr common.Address) common.Hash {
	_, h := v.codeOf(addr)
	return h
}

func (v *View) GetCode(addr common.Address) []byte {
	c, _ := v.codeOf(addr)
	return c
}

func (v *View) SetCode(addr common.Address, code []byte, reason tracing.CodeChangeReason) {
	prevCode, prevHash := v.codeOf(addr)
	v.append(codeEntry{addr: addr, prevCode: prevCode, prevHash: prevHash})
	v.codes[addr] = code
	v.codeHashes[addr] = ethKeccak(code)
	v.touched[addr] = true
}

func (v *View) GetCodeSize(addr common.Address) int {
	c, _ := v.codeOf(addr)
	return len(c)
}

// --- refund ---

func (v *View) AddRefund(gas uint64) {
	v.append(refundEntry{prev: v.refund})
	v.refund += gas
}

func (v *View) SubRefund(gas uint64) {
	v.append(refundEntry{prev: v.refund})
	if gas > v.refund {
		v.refund = 0
		return
	}
	v.refund -= gas
}

func (v *View) GetRefund() uint64 { return v.refund }

// --- storage ---

func (v *View) GetCommittedState(addr common.Address, slot common.Hash) common.Hash {
	val, err := v.reader.StorageRef(addr, slot)
	if err != nil {
		return common.Hash{}
	}
	return val
}

func (v *View) GetState(addr common.Address, slot common.Hash) common.Hash {
	if m, ok := v.storage[addr]; ok {
		if val, ok := m[slot]; ok {
			return val
		}
	}
	return v.GetCommittedState(addr, slot)
}

func (v *View) SetState(addr common.Address, slot, value common.Hash) common.Hash {
	prev := v.GetState(addr, slot)
	m, ok := v.storage[addr]
	if !ok {
		m = make(map[common.Hash]common.Hash)
		v.storage[addr] = m
	}
	_, had := m[slot]
	v.append(storageEntry{addr: addr, slot: slot, prev: prev, had: had})
	m[slot] = value
	v.touched[addr] = true
	return prev
}

func (v *View) GetStorageRoot(addr common.Address) common.Hash {
	return common.Hash{} // this view never computes trie roots; see spec.md Non-goals
}

// --- transient storage (EIP-1153) ---

func (v *View) GetTransientState(addr common.Address, slot common.Hash) common.Hash {
	if m, ok := v.transient[addr]; ok {
		return m[slot]
	}
	return common.Hash{}
}

func (v *View) SetTransientState(addr common.Address, slot, value common.Hash) {
	prev := v.GetTransientState(addr, slot)
	v.append(transientEntry{addr: addr, slot: slot, prev: prev})
	m, ok := v.transient[addr]
	if !ok {
		m = make(map[common.Hash]common.Hash)
		v.transient[addr] = m
	}
	m[slot] = value
}

// --- self-destruct ---

func (v *View) SelfDestruct(addr common.Address) {
	v.append(selfDestructEntry{addr: addr, prev: v.destructed[addr], prevBalance: new(uint256.Int).Set(v.balanceOf(addr))})
	v.destructed[addr] = true
	v.balances[addr] = uint256.NewInt(0)
}

func (v *View) HasSelfDestructed(addr common.Address) bool { return v.destructed[addr] }

// Selfdestruct6780 implements EIP-6780: self-destruct only takes effect in
// the same transaction the account was created, i.e. when CreateAccount or
// CreateContract ran for addr within this View; otherwise it is a no-op.
func (v *View) Selfdestruct6780(addr common.Address) {
	if v.created[addr] {
		v.SelfDestruct(addr)
	}
}

// --- existence ---

func (v *View) Exist(addr common.Address) bool {
	if v.created[addr] {
		return true
	}
	if _, err := v.reader.BasicRef(addr); err == nil {
		return true
	}
	_, hasBal := v.balances[addr]
	_, hasNonce := v.nonces[addr]
	_, hasCode := v.codes[addr]
	return hasBal || hasNonce || hasCode
}

func (v *View) Empty(addr common.Address) bool {
	return v.GetNonce(addr) == 0 && v.balanceOf(addr).IsZero() && v.GetCodeSize(addr) == 0
}

// --- access lists (EIP-2929) ---

func (v *View) AddressInAccessList(addr common.Address) bool {
	_, ok := v.accessAddrs[addr]
	return ok
}

func (v *View) SlotInAccessList(addr common.Address, slot common.Hash) (addressOk, slotOk bool) {
	addressOk = v.AddressInAccessList(addr)
	if m, ok := v.accessSlots[addr]; ok {
		_, slotOk = m[slot]
	}
	return
}

func (v *View) AddAddressToAccessList(addr common.Address) {
	if _, ok := v.accessAddrs[addr]; ok {
		return
	}
	v.append(accessListAddrEntry{addr: addr})
	v.accessAddrs[addr] = struct{}{}
}

func (v *View) AddSlotToAccessList(addr common.Address, slot common.Hash) {
	v.AddAddressToAccessList(addr)
	m, ok := v.accessSlots[addr]
	if !ok {
		m = make(map[common.Hash]struct{})
		v.accessSlots[addr] = m
	}
	if _, ok := m[slot]; ok {
		return
	}
	v.append(accessListSlotEntry{addr: addr, slot: slot})
	m[slot] = struct{}{}
}

// Prepare performs the EIP-2929/3651 warm-up go-ethereum's state
// transition expects at the start of a message call.
func (v *View) Prepare(rules params.Rules, sender, coinbase common.Address, dst *common.Address, precompiles []common.Address, txAccesses gethtypes.AccessList) {
	v.AddAddressToAccessList(sender)
	if rules.IsEIP3651 {
		v.AddAddressToAccessList(coinbase)
	}
	if dst != nil {
		v.AddAddressToAccessList(*dst)
	}
	for _, addr := range precompiles {
		v.AddAddressToAccessList(addr)
	}
	for _, el := range txAccesses {
		v.AddAddressToAccessList(el.Address)
		for _, slot := range el.StorageKeys {
			v.AddSlotToAccessList(el.Address, slot)
		}
	}
}

// --- logs ---

func (v *View) AddLog(log *gethtypes.Log) {
	v.append(logEntry{})
	v.logs = append(v.logs, log)
}

func (v *View) GetLogs(txHash common.Hash, blockNumber uint64, blockHash common.Hash) []*gethtypes.Log {
	return v.logs
}

// AddPreimage is a no-op: this view never records SHA3 preimages, which
// only matter for archival/debug tooling outside this core's scope.
func (v *View) AddPreimage(hash common.Hash, preimage []byte) {}

// --- diff extraction ---

// Diff materializes the touched-address set into the state_updates shape
// Simulation Result reports, per spec.md §4.4: each touched address gets
// its full dirty storage and, if it changed, its new balance.
func (v *View) Diff() map[common.Address]Update {
	out := make(map[common.Address]Update, len(v.touched))
	for addr := range v.touched {
		upd := Update{}
		if m, ok := v.storage[addr]; ok && len(m) > 0 {
			cp := make(map[common.Hash]common.Hash, len(m))
			for k, val := range m {
				cp[k] = val
			}
			upd.Storage = cp
		}
		if b, ok := v.balances[addr]; ok {
			orig := uint256.NewInt(0)
			if info, err := v.reader.BasicRef(addr); err == nil && info != nil && info.Balance != nil {
				orig = info.Balance
			}
			if !b.Eq(orig) {
				upd.Balance = new(uint256.Int).Set(b)
			}
		}
		out[addr] = upd
	}
	return out
}
