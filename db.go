package husky

import (
	"crypto/sha1"
	"fmt"
	"os"

	"github.com/nugget/husky/internal/kvstore"
)

// Db is an open husky database: a single embedded-engine file that can
// hold any number of named trees and singletons.
type Db struct {
	engine *kvstore.Engine
}

// Open opens (creating if necessary) a database file at path.
func Open(path string) (*Db, error) {
	engine, err := kvstore.Open(path)
	if err != nil {
		return nil, err
	}
	return &Db{engine: engine}, nil
}

// OpenTemp opens a database backed by a fresh temporary file. The caller is
// responsible for removing the file (Db.Close does not do this, since the
// caller may want to keep it).
func OpenTemp() (*Db, error) {
	f, err := os.CreateTemp("", "husky-*.db")
	if err != nil {
		return nil, fmt.Errorf("create temp db file: %w", err)
	}
	path := f.Name()
	f.Close()
	return Open(path)
}

// Close flushes and closes the database file.
func (db *Db) Close() error {
	return db.engine.Close()
}

// Path returns the database's backing file path.
func (db *Db) Path() string {
	return db.engine.Path()
}

// WasRecovered reports whether the file required crash recovery on open.
func (db *Db) WasRecovered() bool {
	return db.engine.WasRecovered()
}

// SizeOnDisk returns the size in bytes of the backing file.
func (db *Db) SizeOnDisk() (int64, error) {
	return db.engine.SizeOnDisk()
}

// TreeNames lists every bucket name in the file: the hashed name of each
// tree opened so far, plus the shared bucket that holds Single cells once
// one has been opened.
func (db *Db) TreeNames() ([]string, error) {
	names, err := db.engine.BucketNames()
	if err != nil {
		return nil, err
	}
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = string(n)
	}
	return out, nil
}

// DropTree deletes a named tree and everything in it. Returns false if it
// didn't exist.
func (db *Db) DropTree(name string) (bool, error) {
	return db.engine.DropBucket(treeBucketName(name))
}

// treeBucketName derives a stable bucket name from a human-readable tree
// name, the way the original hashed names before opening the underlying
// store's tree — this keeps arbitrarily long or odd names from colliding
// with the engine's own namespacing.
func treeBucketName(name string) []byte {
	sum := sha1.Sum([]byte("tree:" + name))
	return sum[:]
}

func singleKeyName(name string) []byte {
	sum := sha1.Sum([]byte("single:" + name))
	return sum[:]
}
