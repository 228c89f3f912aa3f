package kv

import (
	"github.com/cockroachdb/pebble"
)

// PebbleStore is the persistent Store backend. Pebble has no native
// column-family primitive, so every column is a byte-prefixed region
// of one physical keyspace, mirroring how core/rawdb/schema.go
// prefixes its single physical LevelDB/Pebble keyspace. Pebble
// serialises writers internally, matching Store's
// single-writer-transaction-at-a-time policy; readers use
// pebble.Snapshot for lock-free consistent reads.
type PebbleStore struct {
	db *pebble.DB
}

// OpenPebbleStore opens (creating if absent) a Pebble database at dir.
func OpenPebbleStore(dir string) (*PebbleStore, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &PebbleStore{db: db}, nil
}

func (p *PebbleStore) Close() error { return p.db.Close() }

func (p *PebbleStore) BeginTransaction() (Txn, error) {
	return &pebbleTxn{db: p.db, batch: p.db.NewIndexedBatch()}, nil
}

func (p *PebbleStore) Snapshot() (Snapshot, error) {
	return &pebbleSnapshot{snap: p.db.NewSnapshot()}, nil
}

type pebbleTxn struct {
	db     *pebble.DB
	batch  *pebble.Batch
	closed bool
}

func (t *pebbleTxn) Get(col Column, key []byte) ([]byte, error) {
	v, closer, err := t.batch.Get(prefixedKey(col, key))
	if err == pebble.ErrNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, nil
}

func (t *pebbleTxn) Has(col Column, key []byte) (bool, error) {
	_, closer, err := t.batch.Get(prefixedKey(col, key))
	if err == pebble.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	closer.Close()
	return true, nil
}

func (t *pebbleTxn) Put(col Column, key, value []byte) error {
	return t.batch.Set(prefixedKey(col, key), value, nil)
}

func (t *pebbleTxn) Delete(col Column, key []byte) error {
	return t.batch.Delete(prefixedKey(col, key), nil)
}

func (t *pebbleTxn) IterPrefix(col Column, prefix []byte) Iterator {
	full := prefixedKey(col, prefix)
	upper := prefixUpperBound(full)
	it, err := t.batch.NewIter(&pebble.IterOptions{LowerBound: full, UpperBound: upper})
	if err != nil {
		return &errIterator{err: err}
	}
	return &pebbleIterator{it: it, colPrefixLen: 1, started: false}
}

func (t *pebbleTxn) Commit() error {
	if t.closed {
		return ErrTxnClosed
	}
	t.closed = true
	return t.batch.Commit(pebble.Sync)
}

func (t *pebbleTxn) Rollback() error {
	if t.closed {
		return nil
	}
	t.closed = true
	return t.batch.Close()
}

type pebbleSnapshot struct {
	snap *pebble.Snapshot
}

func (s *pebbleSnapshot) Get(col Column, key []byte) ([]byte, error) {
	v, closer, err := s.snap.Get(prefixedKey(col, key))
	if err == pebble.ErrNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, nil
}

func (s *pebbleSnapshot) Has(col Column, key []byte) (bool, error) {
	_, closer, err := s.snap.Get(prefixedKey(col, key))
	if err == pebble.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	closer.Close()
	return true, nil
}

func (s *pebbleSnapshot) IterPrefix(col Column, prefix []byte) Iterator {
	full := prefixedKey(col, prefix)
	upper := prefixUpperBound(full)
	it, err := s.snap.NewIter(&pebble.IterOptions{LowerBound: full, UpperBound: upper})
	if err != nil {
		return &errIterator{err: err}
	}
	return &pebbleIterator{it: it, colPrefixLen: 1, started: false}
}

func (s *pebbleSnapshot) Release() { s.snap.Close() }

type pebbleIterator struct {
	it           *pebble.Iterator
	colPrefixLen int
	started      bool
}

func (p *pebbleIterator) Next() bool {
	if !p.started {
		p.started = true
		return p.it.First()
	}
	return p.it.Next()
}

func (p *pebbleIterator) Key() []byte   { return p.it.Key()[p.colPrefixLen:] }
func (p *pebbleIterator) Value() []byte { return p.it.Value() }
func (p *pebbleIterator) Error() error  { return p.it.Error() }
func (p *pebbleIterator) Release()      { p.it.Close() }

type errIterator struct{ err error }

func (e *errIterator) Next() bool    { return false }
func (e *errIterator) Key() []byte   { return nil }
func (e *errIterator) Value() []byte { return nil }
func (e *errIterator) Error() error  { return e.err }
func (e *errIterator) Release()      {}

// prefixUpperBound returns the smallest key that is strictly greater
// than every key with the given prefix, or nil if the prefix is all 0xff.
func prefixUpperBound(prefix []byte) []byte {
	upper := make([]byte, len(prefix))
	copy(upper, prefix)
	for i := len(upper) - 1; i >= 0; i-- {
		if upper[i] < 0xff {
			upper[i]++
			return upper[:i+1]
		}
	}
	return nil
}
