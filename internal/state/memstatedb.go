package state

import "github.com/godwokenrises/godwoken-sub002/internal/common"

// MemStateDB is an in-memory overlay over a backing State, used by the
// mempool to speculatively execute a candidate transaction
// without ever touching the durable store: every write lands in the
// overlay map, every read falls through to the backing State on a
// miss, and nothing is ever flushed back — a rejected or superseded
// candidate is simply discarded.
type MemStateDB struct {
	backing State
	overlay map[common.Hash]common.Hash
	code    *codeStore
	count   uint32

	undo []func()
}

// NewMemStateDB opens a speculative overlay on top of backing, whose
// account count is copied in as the overlay's starting point.
func NewMemStateDB(backing State) *MemStateDB {
	return &MemStateDB{
		backing: backing,
		overlay: make(map[common.Hash]common.Hash),
		code:    newCodeStore(newJournal()),
		count:   backing.GetAccountCount(),
	}
}

func (m *MemStateDB) GetRaw(key common.Hash) common.Hash {
	if v, ok := m.overlay[key]; ok {
		return v
	}
	return m.backing.GetRaw(key)
}

func (m *MemStateDB) UpdateRaw(key, value common.Hash) {
	prev, hadOverlay := m.overlay[key]
	m.overlay[key] = value
	m.undo = append(m.undo, func() {
		if hadOverlay {
			m.overlay[key] = prev
		} else {
			delete(m.overlay, key)
		}
	})
}

func (m *MemStateDB) GetAccountCount() uint32 { return m.count }

func (m *MemStateDB) SetAccountCount(count uint32) {
	prev := m.count
	m.count = count
	m.undo = append(m.undo, func() { m.count = prev })
}

// CodeStore returns the overlay's own code store. Reads that miss fall
// through to the backing State's own CodeStore(), so a speculative transaction can still see scripts created by blocks
// already committed.
func (m *MemStateDB) CodeStore() CodeStore { return memCodeStore{m} }

// memCodeStore composes the overlay's own inserts with a read-through
// to the backing State's code store.
type memCodeStore struct{ m *MemStateDB }

func (c memCodeStore) GetScript(hash common.Hash) (common.Script, bool) {
	if s, ok := c.m.code.GetScript(hash); ok {
		return s, true
	}
	return c.m.backing.CodeStore().GetScript(hash)
}

func (c memCodeStore) InsertScript(hash common.Hash, script common.Script) {
	c.m.code.InsertScript(hash, script)
	c.m.undo = append(c.m.undo, func() { delete(c.m.code.scripts, hash) })
}

func (c memCodeStore) GetData(hash common.Hash) ([]byte, bool) {
	if d, ok := c.m.code.GetData(hash); ok {
		return d, true
	}
	return c.m.backing.CodeStore().GetData(hash)
}

func (c memCodeStore) InsertData(hash common.Hash, data []byte) {
	c.m.code.InsertData(hash, data)
	c.m.undo = append(c.m.undo, func() { delete(c.m.code.data, hash) })
}

func (m *MemStateDB) Snapshot() int { return len(m.undo) }

func (m *MemStateDB) RevertToSnapshot(id int) {
	for i := len(m.undo) - 1; i >= id; i-- {
		m.undo[i]()
	}
	m.undo = m.undo[:id]
}
