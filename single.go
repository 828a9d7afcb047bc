package husky

import (
	"github.com/nugget/husky/internal/codec"
	"github.com/nugget/husky/internal/kvstore"
)

// Single is a scalar cell in the database: one named value with no key,
// useful for counters, feature flags, or any other singleton piece of
// state that doesn't belong in a tree.
type Single[V any] struct {
	bucket   *kvstore.Bucket
	key      []byte
	valCodec codec.Codec[V]
}

// OpenSingle opens (creating if necessary) a named singleton cell.
func OpenSingle[V any](db *Db, name string, valCodec codec.Codec[V]) (*Single[V], error) {
	bucket, err := db.engine.Bucket([]byte("singletons"))
	if err != nil {
		return nil, err
	}
	return &Single[V]{bucket: bucket, key: singleKeyName(name), valCodec: valCodec}, nil
}

// Get loads the current value, if one has been set.
func (s *Single[V]) Get() (V, bool, error) {
	var zero V
	b, ok, err := s.bucket.Get(s.key)
	if err != nil || !ok {
		return zero, ok, err
	}
	v, err := s.valCodec.Decode(b)
	return v, true, err
}

// Insert stores value, returning the previous value if any.
func (s *Single[V]) Insert(value V) (V, bool, error) {
	var zero V
	b, err := s.valCodec.Encode(value)
	if err != nil {
		return zero, false, err
	}
	oldB, had, err := s.bucket.Put(s.key, b)
	if err != nil || !had {
		return zero, had, err
	}
	old, err := s.valCodec.Decode(oldB)
	return old, true, err
}

// FetchAndUpdate atomically replaces the value, the same way
// Change.FetchAndUpdate does for a keyed store.
func (s *Single[V]) FetchAndUpdate(f func(old V, had bool) (V, bool)) (V, bool, error) {
	var zero V
	var decodeErr error
	oldB, had, err := s.bucket.FetchAndUpdate(s.key, func(oldB []byte, had bool) ([]byte, bool) {
		var old V
		if had {
			old, decodeErr = s.valCodec.Decode(oldB)
			if decodeErr != nil {
				return nil, false
			}
		}
		newV, write := f(old, had)
		if !write {
			return nil, false
		}
		newB, err := s.valCodec.Encode(newV)
		if err != nil {
			decodeErr = err
			return nil, false
		}
		return newB, true
	})
	if err != nil {
		return zero, false, err
	}
	if decodeErr != nil {
		return zero, false, decodeErr
	}
	if !had {
		return zero, false, nil
	}
	old, err := s.valCodec.Decode(oldB)
	return old, true, err
}
