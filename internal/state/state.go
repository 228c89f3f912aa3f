package state

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/godwokenrises/godwoken-sub002/internal/common"
	"github.com/godwokenrises/godwoken-sub002/internal/gwcrypto"
	"github.com/godwokenrises/godwoken-sub002/internal/kv"
	"github.com/godwokenrises/godwoken-sub002/internal/smt"
)

// State is the narrow interface the generator and producer
// see: a flat authenticated key/value map plus an account counter,
// with journal-backed snapshot/revert. Both RawState and MemStateDB
// (the mempool overlay) satisfy it. Grounded on core/state's StateDB
// interface, generalised from account-centric (balance/nonce/code) to
// this store's flat raw-key model.
type State interface {
	GetRaw(key common.Hash) common.Hash
	UpdateRaw(key, value common.Hash)
	GetAccountCount() uint32
	SetAccountCount(count uint32)
	CodeStore() CodeStore

	Snapshot() int
	RevertToSnapshot(id int)
}

// RawState is the durable, SMT-backed State implementation used during
// block production and L1 ingest. One RawState is opened per write
// transaction against the store; its tree is seeded from the previous
// GlobalState's account Merkle root.
type RawState struct {
	kvTxn        kv.Txn
	tree         *smt.Tree
	journal      *journal
	codeStore    *codeStore
	accountCount uint32
	blockNumber  uint64
	hist         *history
	tracker      *Tracker
	subState     SubState
}

// NewRawState opens a RawState over txn, seeded with the already-loaded
// tree and code store contents (typically produced by Load) and the
// account count recorded alongside the parent GlobalState.
func NewRawState(txn kv.Txn, tree *smt.Tree, accountCount uint32, blockNumber uint64) *RawState {
	j := newJournal()
	return &RawState{
		kvTxn:        txn,
		tree:         tree,
		journal:      j,
		codeStore:    newCodeStore(j),
		accountCount: accountCount,
		blockNumber:  blockNumber,
		hist:         newHistory(nil),
	}
}

// SetTracker installs a witness-collecting Tracker (see tracker.go);
// nil disables tracking (the default, used outside challenge-context
// building).
func (s *RawState) SetTracker(t *Tracker) { s.tracker = t }

func (s *RawState) GetRaw(key common.Hash) common.Hash {
	if s.tracker != nil {
		s.tracker.touch(key)
	}
	return s.tree.Get(key)
}

func (s *RawState) UpdateRaw(key, value common.Hash) {
	prev := s.tree.Get(key)
	if prev == value {
		return
	}
	if s.kvTxn != nil {
		sub := s.currentSubState()
		if err := s.hist.record(s.kvTxn, s.blockNumber, sub, key, prev); err != nil {
			// History is best-effort accounting metadata derived from a
			// write the caller already committed to; a failure here
			// indicates a broken backing store, not a bad mutation.
			panic(fmt.Sprintf("state: failed to record history: %v", err))
		}
	}
	s.journal.append(updateRawEntry{key: key, prevValue: prev})
	s.tree.Update(key, value)
	if s.tracker != nil {
		s.tracker.touch(key)
	}
}

func (s *RawState) GetAccountCount() uint32 { return s.accountCount }

func (s *RawState) SetAccountCount(count uint32) {
	if count == s.accountCount {
		return
	}
	s.journal.append(setAccountCountEntry{prevCount: s.accountCount})
	s.accountCount = count
}

func (s *RawState) CodeStore() CodeStore { return s.codeStore }

func (s *RawState) Snapshot() int { return s.journal.snapshot() }

func (s *RawState) RevertToSnapshot(id int) { s.journal.revertToSnapshot(id, s) }

// BlockNumber is the block currently under construction against this
// RawState, used to key history records.
func (s *RawState) BlockNumber() uint64 { return s.blockNumber }

// subStateCursor tracks which SubState new mutations should be
// attributed to; advanced explicitly by the producer via MarkSubState.
func (s *RawState) currentSubState() SubState {
	if s.subState == (SubState{}) {
		return PreBlockSubState()
	}
	return s.subState
}

// MarkSubState tells RawState which logical checkpoint subsequent
// mutations belong to, for history accounting.
func (s *RawState) MarkSubState(sub SubState) { s.subState = sub }

// FinaliseBlock advances history's high-water mark to the block now
// under construction, once all of its deposits/withdrawals/txs have
// been applied and recorded. Called once per produced block, after the
// final UpdateRaw of that block.
func (s *RawState) FinaliseBlock() error {
	return s.hist.setLastRecordedBlock(s.kvTxn, s.blockNumber)
}

// DetachBlock reverts every raw-key mutation recorded for block n,
// restoring the tree to its pre-block state. n must be the most recently attached block.
func (s *RawState) DetachBlock(n uint64) error {
	view := &smtTreeView{tree: s.tree}
	return s.hist.DetachBlockState(s.kvTxn, view, n)
}

// RootHash returns the account SMT's current root, i.e. the
// AccountMerkleState.Root half of checkpoint.
func (s *RawState) RootHash() common.Hash { return s.tree.Root() }

// Checkpoint returns the combined AccountMerkleState checkpoint for the
// current tree root and account count.
func (s *RawState) Checkpoint() common.Checkpoint {
	acc := common.AccountMerkleState{Root: s.RootHash(), AccountCount: s.accountCount}
	return common.Checkpoint(gwcrypto.CheckpointHash([32]byte(acc.Root), acc.AccountCount))
}

// --- Convenience wrappers over the flat raw-key map ---

// CreateAccount allocates the next account id, records its script, and
// returns the id. The script's hash becomes both the account's
// identity (ScriptHashKey) and its code-store key.
func CreateAccount(s State, script common.Script) (uint32, error) {
	hash := common.Hash(gwcrypto.ScriptHash(script.Serialize()))
	if existing := s.GetRaw(ScriptHashIndexKey(hash)); !existing.IsZero() {
		return 0, fmt.Errorf("%w: script_hash=%s already owns account %d", common.ErrInconsistentState, hash, DecodeAccountID(existing))
	}
	id := s.GetAccountCount()
	s.CodeStore().InsertScript(hash, script)
	s.UpdateRaw(ScriptHashKey(id), hash)
	s.UpdateRaw(ScriptHashIndexKey(hash), EncodeAccountID(id))
	s.SetAccountCount(id + 1)
	return id, nil
}

// ResolveOrCreateAccount returns the account id already bound to
// script's hash, or creates a new account for it if none exists yet —
// the resolution a deposit or SUDT-mint needs without risking a
// duplicate account for the same identity.
func ResolveOrCreateAccount(s State, script common.Script) (uint32, error) {
	hash := common.Hash(gwcrypto.ScriptHash(script.Serialize()))
	if existing := s.GetRaw(ScriptHashIndexKey(hash)); !existing.IsZero() {
		return DecodeAccountID(existing), nil
	}
	return CreateAccount(s, script)
}

// ResolveAccountByScript looks up the account id already bound to
// script's hash without creating one, for callers (withdrawal
// application) that must reject an identity they have never seen
// rather than silently mint it into existence.
func ResolveAccountByScript(s State, script common.Script) (uint32, bool) {
	hash := common.Hash(gwcrypto.ScriptHash(script.Serialize()))
	existing := s.GetRaw(ScriptHashIndexKey(hash))
	if existing.IsZero() {
		return 0, false
	}
	return DecodeAccountID(existing), true
}

// GetCustodianBalance returns the producer's running custodian-pool
// total for sudtScriptHash (ZeroHash for native CKB capacity).
func GetCustodianBalance(s State, sudtScriptHash common.Hash) *uint256.Int {
	return hashToAmount(s.GetRaw(CustodianKey(sudtScriptHash)))
}

// CreditCustodian increases the custodian pool for sudtScriptHash by a
// deposit's value.
func CreditCustodian(s State, sudtScriptHash common.Hash, amountLo, amountHi uint64) error {
	amount := sudtAmount(amountLo, amountHi)
	if amount.IsZero() {
		return nil
	}
	pool := GetCustodianBalance(s, sudtScriptHash)
	newPool, overflow := new(uint256.Int).AddOverflow(pool, amount)
	if overflow {
		return fmt.Errorf("%w: custodian pool for %s", common.ErrAmountOverflow, sudtScriptHash)
	}
	s.UpdateRaw(CustodianKey(sudtScriptHash), amountToHash(newPool))
	return nil
}

// DebitCustodian decreases the custodian pool for sudtScriptHash by a
// withdrawal's value, rejecting the withdrawal if the pool cannot cover
// it.
func DebitCustodian(s State, sudtScriptHash common.Hash, amountLo, amountHi uint64) error {
	amount := sudtAmount(amountLo, amountHi)
	if amount.IsZero() {
		return nil
	}
	pool := GetCustodianBalance(s, sudtScriptHash)
	if pool.Lt(amount) {
		return fmt.Errorf("%w: pool=%s requested=%s", common.ErrInsufficientCustodian, pool, amount)
	}
	s.UpdateRaw(CustodianKey(sudtScriptHash), amountToHash(new(uint256.Int).Sub(pool, amount)))
	return nil
}

// GetScriptHash returns accountID's script hash, or ZeroHash if the
// account does not exist.
func GetScriptHash(s State, accountID uint32) common.Hash {
	return s.GetRaw(ScriptHashKey(accountID))
}

// GetScript dereferences accountID's script hash through the code
// store.
func GetScript(s State, accountID uint32) (common.Script, error) {
	hash := GetScriptHash(s, accountID)
	if hash.IsZero() {
		return common.Script{}, fmt.Errorf("%w: account_id=%d", common.ErrUnknownAccount, accountID)
	}
	script, ok := s.CodeStore().GetScript(hash)
	if !ok {
		return common.Script{}, fmt.Errorf("%w: account_id=%d script_hash=%s", common.ErrMissingScript, accountID, hash)
	}
	return script, nil
}

// GetNonce returns accountID's current nonce.
func GetNonce(s State, accountID uint32) uint32 {
	return DecodeAccountID(s.GetRaw(NonceKey(accountID)))
}

// SetNonce overwrites accountID's nonce. Callers (the generator) are
// responsible for enforcing strictly-increasing nonces; SetNonce itself
// performs no validation.
func SetNonce(s State, accountID uint32, nonce uint32) {
	s.UpdateRaw(NonceKey(accountID), EncodeAccountID(nonce))
}

// GetStorage returns one contract-storage slot of accountID.
func GetStorage(s State, accountID uint32, slot common.Hash) common.Hash {
	return s.GetRaw(StorageKey(accountID, slot))
}

// SetStorage writes one contract-storage slot of accountID.
func SetStorage(s State, accountID uint32, slot, value common.Hash) {
	s.UpdateRaw(StorageKey(accountID, slot), value)
}

// sudtAmount packs a 128-bit (lo, hi) amount into the 32-byte leaf
// value via uint256, so balances share the SMT's fixed leaf width
// while leaving headroom far beyond any realistic SUDT supply.
func sudtAmount(lo, hi uint64) *uint256.Int {
	v := uint256.NewInt(hi)
	v.Lsh(v, 64)
	v.Add(v, uint256.NewInt(lo))
	return v
}

func amountToHash(v *uint256.Int) common.Hash {
	return common.Hash(v.Bytes32())
}

func hashToAmount(h common.Hash) *uint256.Int {
	v := new(uint256.Int)
	v.SetBytes32(h[:])
	return v
}

// GetSudtBalance returns owner's balance of the SUDT hosted at
// sudtAccountID.
func GetSudtBalance(s State, sudtAccountID uint32, owner common.RegistryAddress) *uint256.Int {
	return hashToAmount(s.GetRaw(SudtBalanceKey(sudtAccountID, owner)))
}

// MintSudt credits owner's balance and the SUDT's recorded total
// supply by amountLo/amountHi. Overflow of either the balance or the
// supply is rejected.
func MintSudt(s State, sudtAccountID uint32, owner common.RegistryAddress, amountLo, amountHi uint64) error {
	amount := sudtAmount(amountLo, amountHi)
	if amount.IsZero() {
		return nil
	}
	bal := GetSudtBalance(s, sudtAccountID, owner)
	newBal, overflow := new(uint256.Int).AddOverflow(bal, amount)
	if overflow {
		return fmt.Errorf("%w: minting into %s", common.ErrAmountOverflow, owner.Key())
	}
	supplyKey := SudtSupplyKey(sudtAccountID)
	supply := hashToAmount(s.GetRaw(supplyKey))
	newSupply, overflow := new(uint256.Int).AddOverflow(supply, amount)
	if overflow {
		return fmt.Errorf("%w: sudt_account=%d total supply", common.ErrAmountOverflow, sudtAccountID)
	}
	s.UpdateRaw(SudtBalanceKey(sudtAccountID, owner), amountToHash(newBal))
	s.UpdateRaw(supplyKey, amountToHash(newSupply))
	return nil
}

// BurnSudt debits owner's balance and the SUDT's total supply.
// Insufficient balance is rejected (ErrInsufficientBalance).
func BurnSudt(s State, sudtAccountID uint32, owner common.RegistryAddress, amountLo, amountHi uint64) error {
	amount := sudtAmount(amountLo, amountHi)
	if amount.IsZero() {
		return nil
	}
	bal := GetSudtBalance(s, sudtAccountID, owner)
	if bal.Lt(amount) {
		return fmt.Errorf("%w: owner=%s", common.ErrInsufficientBalance, owner.Key())
	}
	supply := hashToAmount(s.GetRaw(SudtSupplyKey(sudtAccountID)))
	newBal := new(uint256.Int).Sub(bal, amount)
	newSupply := new(uint256.Int).Sub(supply, amount)
	s.UpdateRaw(SudtBalanceKey(sudtAccountID, owner), amountToHash(newBal))
	s.UpdateRaw(SudtSupplyKey(sudtAccountID), amountToHash(newSupply))
	return nil
}

// RegisterAddress binds a RegistryAddress to accountID. A second,
// conflicting registration of the same address is rejected: the
// registry mapping is bijective.
func RegisterAddress(s State, addr common.RegistryAddress, accountID uint32) error {
	key := RegistryAddressKey(addr)
	existing := s.GetRaw(key)
	if !existing.IsZero() && DecodeAccountID(existing) != accountID {
		return fmt.Errorf("%w: address=%s already bound to account %d", common.ErrInconsistentState, addr.Key(), DecodeAccountID(existing))
	}
	reverseKey := RegistryReverseKey(accountID)
	existingReverse := s.GetRaw(reverseKey)
	if !existingReverse.IsZero() && existingReverse != key {
		return fmt.Errorf("%w: account %d already bound to a different address", common.ErrInconsistentState, accountID)
	}
	s.UpdateRaw(key, EncodeAccountID(accountID))
	s.UpdateRaw(reverseKey, key)
	return nil
}

// ResolveRegistryAddress looks up the account id bound to addr, if any.
func ResolveRegistryAddress(s State, addr common.RegistryAddress) (uint32, bool) {
	v := s.GetRaw(RegistryAddressKey(addr))
	if v.IsZero() {
		return 0, false
	}
	return DecodeAccountID(v), true
}
