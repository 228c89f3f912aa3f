package state

import (
	"fmt"

	"github.com/godwokenrises/godwoken-sub002/internal/common"
)

// CodeStore is the script_hash -> Script and data_hash -> bytes mapping
// sitting alongside the SMT leaves. It participates in the same journal
// as the SMT leaves, so InsertScript/InsertData are reverted by a
// snapshot/revert pair exactly like any other state mutation.
type CodeStore interface {
	GetScript(hash common.Hash) (common.Script, bool)
	InsertScript(hash common.Hash, script common.Script)
	GetData(hash common.Hash) ([]byte, bool)
	InsertData(hash common.Hash, data []byte)
}

// codeStore is the in-memory CodeStore implementation backing RawState.
// Like the SMT leaf tree, it is fully materialised in memory; nothing
// here writes it to or loads it from the internal/kv columns
// ColumnScriptByHash / ColumnDataByHash.
type codeStore struct {
	journal *journal
	scripts map[common.Hash]common.Script
	data    map[common.Hash][]byte
}

func newCodeStore(j *journal) *codeStore {
	return &codeStore{
		journal: j,
		scripts: make(map[common.Hash]common.Script),
		data:    make(map[common.Hash][]byte),
	}
}

func (c *codeStore) GetScript(hash common.Hash) (common.Script, bool) {
	s, ok := c.scripts[hash]
	return s, ok
}

func (c *codeStore) InsertScript(hash common.Hash, script common.Script) {
	_, existed := c.scripts[hash]
	c.journal.append(insertScriptEntry{hash: hash, prevExist: existed})
	c.scripts[hash] = script
}

func (c *codeStore) GetData(hash common.Hash) ([]byte, bool) {
	d, ok := c.data[hash]
	return d, ok
}

func (c *codeStore) InsertData(hash common.Hash, data []byte) {
	_, existed := c.data[hash]
	c.journal.append(insertDataEntry{hash: hash, prevExist: existed})
	cp := make([]byte, len(data))
	copy(cp, data)
	c.data[hash] = cp
}

// mustGetScript is a convenience for callers that have already checked
// I1 (every account below account_count has a script present).
func (c *codeStore) mustGetScript(hash common.Hash) (common.Script, error) {
	s, ok := c.scripts[hash]
	if !ok {
		return common.Script{}, fmt.Errorf("%w: script_hash=%s", common.ErrMissingScript, hash)
	}
	return s, nil
}
