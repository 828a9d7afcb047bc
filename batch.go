package husky

// Batch collects a set of inserts and removes to apply to a Tree in a
// single transaction, so a caller doing many writes at once pays for one
// commit instead of one per write.
type Batch[K any, V any] struct {
	ops []batchOp[K, V]
}

type batchOp[K any, V any] struct {
	remove bool
	key    K
	value  V
}

// Insert adds a pending insert to the batch.
func (b *Batch[K, V]) Insert(key K, value V) {
	b.ops = append(b.ops, batchOp[K, V]{key: key, value: value})
}

// Remove adds a pending removal to the batch.
func (b *Batch[K, V]) Remove(key K) {
	b.ops = append(b.ops, batchOp[K, V]{remove: true, key: key})
}

// ApplyBatch applies every pending operation in b to t, in the order they
// were added. Each op still broadcasts its own event and bumps the
// synchronizer's outgoing count, exactly as if Insert/Remove had been
// called directly — Batch only saves the caller from looping.
func (t *Tree[K, V]) ApplyBatch(b Batch[K, V]) error {
	for _, op := range b.ops {
		if op.remove {
			if _, _, err := t.Remove(op.key); err != nil {
				return err
			}
			continue
		}
		if _, _, err := t.Insert(op.key, op.value); err != nil {
			return err
		}
	}
	return nil
}
