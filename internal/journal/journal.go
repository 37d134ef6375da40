// Package journal is the optional durable solution ledger: when a caller
// opens a Journal, every golden claw reported to it is written once to an
// embedded BadgerDB so the solutions can be audited after the run,
// treating BadgerDB as a second-level store sitting behind the hot path.
// Nothing in the engine reads the journal back.
//
// Concurrent peers can discover the same (k1,k2) pair in the same round
// (two different probe hits both satisfying the golden-claw predicate for
// the same key material); Record de-duplicates those via
// golang.org/x/sync/singleflight before ever touching Badger, so a pair
// reported twice in flight is only ever written once.
//
// © 2025 claw-finder authors. MIT License.
package journal

import (
	"encoding/binary"
	"strconv"

	badger "github.com/dgraph-io/badger/v4"
	"golang.org/x/sync/singleflight"
)

// Journal is a durable, append-only store of discovered key pairs, keyed by
// their packed 128-bit representation so repeated reports of the same pair
// are idempotent.
type Journal struct {
	db *badger.DB
	g  singleflight.Group
}

// Open opens (creating if necessary) a Badger store rooted at dir. The
// caller must call Close when done.
func Open(dir string) (*Journal, error) {
	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	if err != nil {
		return nil, err
	}
	return &Journal{db: db}, nil
}

// Close releases the underlying Badger handles.
func (j *Journal) Close() error { return j.db.Close() }

// Record durably persists the key pair (k1,k2) that together decrypt a
// plaintext/ciphertext pair under double SPECK-64/128, keyed so that the
// same pair reported by more than one peer is written only once. It
// returns true if this call actually wrote the entry (false if another
// in-flight or already-committed call for the same pair short-circuited
// it).
func (j *Journal) Record(k1, k2 uint64) (wrote bool, err error) {
	dedupeKey := strconv.FormatUint(k1, 16) + ":" + strconv.FormatUint(k2, 16)
	_, err, shared := j.g.Do(dedupeKey, func() (any, error) {
		key := packKey(k1, k2)
		already := false
		err := j.db.View(func(txn *badger.Txn) error {
			_, err := txn.Get(key)
			if err == nil {
				already = true
				return nil
			}
			if err == badger.ErrKeyNotFound {
				return nil
			}
			return err
		})
		if err != nil {
			return nil, err
		}
		if already {
			return nil, nil
		}
		return nil, j.db.Update(func(txn *badger.Txn) error {
			return txn.Set(key, nil)
		})
	})
	return !shared, err
}

// Count returns the number of distinct solutions currently recorded.
func (j *Journal) Count() (uint64, error) {
	var n uint64
	err := j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

// packKey lays out (k1,k2) as a fixed 16-byte big-endian key so Badger's
// iterator order matches numeric order, which is convenient for dumps.
func packKey(k1, k2 uint64) []byte {
	buf := make([]byte, 16)
	binary.BigEndian.PutUint64(buf[0:8], k1)
	binary.BigEndian.PutUint64(buf[8:16], k2)
	return buf
}
