// Package kvstore is a thin, typed-key-agnostic facade over the embedded
// ordered key-value engine (go.etcd.io/bbolt) husky is built on. It speaks
// only in raw bytes; husky's Tree type is responsible for codec conversion
// and for broadcasting events, this package is responsible only for
// durable, ordered storage.
package kvstore

import (
	"bytes"
	"fmt"
	"hash/crc32"
	"os"
	"time"

	"go.etcd.io/bbolt"
)

// Engine owns a single bbolt file and the buckets opened within it.
type Engine struct {
	db   *bbolt.DB
	path string
}

// Open opens (creating if necessary) a bbolt database file at path.
func Open(path string) (*Engine, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &Engine{db: db, path: path}, nil
}

// Close flushes and closes the underlying file.
func (e *Engine) Close() error {
	return e.db.Close()
}

// Path returns the file path the engine was opened with.
func (e *Engine) Path() string {
	return e.path
}

// WasRecovered reports whether the file required crash recovery on open.
// bbolt always recovers synchronously within Open, so from a caller's
// perspective the database is never left in a partially-recovered state;
// this always reports false and exists to complete the adapter surface a
// caller coming from a different embedded engine would expect.
func (e *Engine) WasRecovered() bool {
	return false
}

// Checksum returns a checksum of bucketName's contents, computed by hashing
// every key and value in iteration order. Cheap enough for periodic health
// checks, not meant for verifying large buckets on every open.
func (e *Engine) Checksum(bucketName []byte) (uint32, error) {
	var sum uint32
	err := e.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketName)
		if b == nil {
			return nil
		}
		table := crc32.IEEETable
		return b.ForEach(func(k, v []byte) error {
			sum = crc32.Update(sum, table, k)
			sum = crc32.Update(sum, table, v)
			return nil
		})
	})
	return sum, err
}

// SizeOnDisk returns the size in bytes of the backing file.
func (e *Engine) SizeOnDisk() (int64, error) {
	info, err := os.Stat(e.path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// BucketNames lists every top-level bucket currently open in the file.
func (e *Engine) BucketNames() ([][]byte, error) {
	var names [][]byte
	err := e.db.View(func(tx *bbolt.Tx) error {
		return tx.ForEach(func(name []byte, _ *bbolt.Bucket) error {
			names = append(names, append([]byte(nil), name...))
			return nil
		})
	})
	return names, err
}

// Bucket opens (creating if necessary) a named bucket for byte-level
// storage.
func (e *Engine) Bucket(name []byte) (*Bucket, error) {
	err := e.db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(name)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("open bucket %s: %w", name, err)
	}
	return &Bucket{engine: e, name: append([]byte(nil), name...)}, nil
}

// DropBucket deletes a bucket entirely. Returns false if it didn't exist.
func (e *Engine) DropBucket(name []byte) (bool, error) {
	existed := false
	err := e.db.Update(func(tx *bbolt.Tx) error {
		if tx.Bucket(name) == nil {
			return nil
		}
		existed = true
		return tx.DeleteBucket(name)
	})
	return existed, err
}

// Bucket is an ordered byte-keyed namespace within an Engine.
type Bucket struct {
	engine *Engine
	name   []byte
}

// Get returns the value for key, if present.
func (b *Bucket) Get(key []byte) ([]byte, bool, error) {
	var val []byte
	err := b.engine.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(b.name).Get(key)
		if v != nil {
			val = append([]byte(nil), v...)
		}
		return nil
	})
	return val, val != nil, err
}

// Has reports whether key is present.
func (b *Bucket) Has(key []byte) (bool, error) {
	_, ok, err := b.Get(key)
	return ok, err
}

// Put stores value under key and returns the previous value, if any.
func (b *Bucket) Put(key, value []byte) ([]byte, bool, error) {
	var old []byte
	var had bool
	err := b.engine.db.Update(func(tx *bbolt.Tx) error {
		bk := tx.Bucket(b.name)
		if v := bk.Get(key); v != nil {
			old = append([]byte(nil), v...)
			had = true
		}
		return bk.Put(key, value)
	})
	return old, had, err
}

// Delete removes key and returns the value it held, if any.
func (b *Bucket) Delete(key []byte) ([]byte, bool, error) {
	var old []byte
	var had bool
	err := b.engine.db.Update(func(tx *bbolt.Tx) error {
		bk := tx.Bucket(b.name)
		if v := bk.Get(key); v != nil {
			old = append([]byte(nil), v...)
			had = true
		}
		return bk.Delete(key)
	})
	return old, had, err
}

// FetchAndUpdate atomically replaces the value at key: f receives the
// current value (and whether it existed) and returns the new value (and
// whether to write it at all). Returns the value that was there before the
// update.
func (b *Bucket) FetchAndUpdate(key []byte, f func(old []byte, had bool) (newVal []byte, write bool)) ([]byte, bool, error) {
	var old []byte
	var had bool
	err := b.engine.db.Update(func(tx *bbolt.Tx) error {
		bk := tx.Bucket(b.name)
		cur := bk.Get(key)
		if cur != nil {
			old = append([]byte(nil), cur...)
			had = true
		}
		newVal, write := f(old, had)
		if !write {
			return bk.Delete(key)
		}
		return bk.Put(key, newVal)
	})
	return old, had, err
}

// Clear removes every entry in the bucket without deleting the bucket
// itself.
func (b *Bucket) Clear() error {
	return b.engine.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(b.name); err != nil {
			return err
		}
		_, err := tx.CreateBucket(b.name)
		return err
	})
}

// Len returns the number of entries in the bucket.
func (b *Bucket) Len() (int, error) {
	var n int
	err := b.engine.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(b.name).Stats().KeyN
		return nil
	})
	return n, err
}

// IsEmpty reports whether the bucket has no entries.
func (b *Bucket) IsEmpty() (bool, error) {
	n, err := b.Len()
	return n == 0, err
}

// First returns the first entry in key order.
func (b *Bucket) First() (key, value []byte, ok bool, err error) {
	err = b.engine.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(b.name).Cursor()
		k, v := c.First()
		if k != nil {
			key, value, ok = append([]byte(nil), k...), append([]byte(nil), v...), true
		}
		return nil
	})
	return
}

// Last returns the last entry in key order.
func (b *Bucket) Last() (key, value []byte, ok bool, err error) {
	err = b.engine.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(b.name).Cursor()
		k, v := c.Last()
		if k != nil {
			key, value, ok = append([]byte(nil), k...), append([]byte(nil), v...), true
		}
		return nil
	})
	return
}

// GetLT returns the entry immediately before key.
func (b *Bucket) GetLT(key []byte) (k, v []byte, ok bool, err error) {
	err = b.engine.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(b.name).Cursor()
		ck, cv := c.Seek(key)
		if ck == nil {
			ck, cv = c.Last()
		} else if bytes.Equal(ck, key) {
			ck, cv = c.Prev()
		} else {
			ck, cv = c.Prev()
		}
		if ck != nil {
			k, v, ok = append([]byte(nil), ck...), append([]byte(nil), cv...), true
		}
		return nil
	})
	return
}

// GetGT returns the entry immediately after key.
func (b *Bucket) GetGT(key []byte) (k, v []byte, ok bool, err error) {
	err = b.engine.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(b.name).Cursor()
		ck, cv := c.Seek(key)
		if ck != nil && bytes.Equal(ck, key) {
			ck, cv = c.Next()
		}
		if ck != nil {
			k, v, ok = append([]byte(nil), ck...), append([]byte(nil), cv...), true
		}
		return nil
	})
	return
}

// Range visits every entry with key in [lo, hi) (nil lo/hi means
// unbounded on that side) in key order, stopping early if fn returns
// false. The whole range is visited within a single read transaction: fn
// must not perform its own engine calls.
func (b *Bucket) Range(lo, hi []byte, fn func(key, value []byte) bool) error {
	return b.engine.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(b.name).Cursor()
		var k, v []byte
		if lo == nil {
			k, v = c.First()
		} else {
			k, v = c.Seek(lo)
		}
		for ; k != nil; k, v = c.Next() {
			if hi != nil && bytes.Compare(k, hi) >= 0 {
				break
			}
			if !fn(k, v) {
				break
			}
		}
		return nil
	})
}

// All visits every entry in the bucket in key order.
func (b *Bucket) All(fn func(key, value []byte) bool) error {
	return b.Range(nil, nil, fn)
}
