package state

import "github.com/godwokenrises/godwoken-sub002/internal/common"

// journalEntry is a revertible state mutation. Grounded on
// core/state/journal.go's journalEntry/revert shape, generalised from
// account-level balance/nonce/storage changes to this store's flat
// raw-key changes plus code-store inserts.
type journalEntry interface {
	revert(s *RawState)
}

type updateRawEntry struct {
	key       common.Hash
	prevValue common.Hash
}

func (e updateRawEntry) revert(s *RawState) {
	s.tree.Update(e.key, e.prevValue)
}

type setAccountCountEntry struct {
	prevCount uint32
}

func (e setAccountCountEntry) revert(s *RawState) {
	s.accountCount = e.prevCount
}

type insertScriptEntry struct {
	hash      common.Hash
	prevExist bool
}

func (e insertScriptEntry) revert(s *RawState) {
	if !e.prevExist {
		delete(s.codeStore.scripts, e.hash)
	}
}

type insertDataEntry struct {
	hash      common.Hash
	prevExist bool
}

func (e insertDataEntry) revert(s *RawState) {
	if !e.prevExist {
		delete(s.codeStore.data, e.hash)
	}
}

// journal is a plain slice of entries recorded since the state was
// opened. snapshot() gives an O(1) snapshot id and revertToSnapshot()
// replays entries back to it in reverse; tail() and length() expose the
// entries without truncating them.
type journal struct {
	entries []journalEntry
}

func newJournal() *journal {
	return &journal{}
}

func (j *journal) append(e journalEntry) {
	j.entries = append(j.entries, e)
}

// snapshot returns an id (an index into entries) that revertToSnapshot
// can later roll back to.
func (j *journal) snapshot() int {
	return len(j.entries)
}

// revertToSnapshot undoes every entry recorded since id, in reverse
// order, against s.
func (j *journal) revertToSnapshot(id int, s *RawState) {
	for i := len(j.entries) - 1; i >= id; i-- {
		j.entries[i].revert(s)
	}
	j.entries = j.entries[:id]
}

// tail returns the entries recorded since pos, without truncating.
func (j *journal) tail(pos int) []journalEntry {
	return j.entries[pos:]
}

func (j *journal) length() int { return len(j.entries) }
