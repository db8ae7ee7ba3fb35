package cache

// Snapshot is an immutable view of a payload returned to a reader,
// independent of subsequent writer mutation. It is obtained under the
// shard lock but remains valid and readable after the lock is released:
// every mutating write builds a brand-new buffer and re-seats the entry's
// pointer to it rather than mutating in place, so the buffer a Snapshot
// points at is never touched again.
type Snapshot struct {
	buf       []byte
	Timestamp Timestamp
	UserFlags uint64
}

// Size returns the payload length.
func (s *Snapshot) Size() uint64 { return uint64(len(s.buf)) }

// Slice returns payload[offset : offset+size]. A size of 0 means
// "to the end of the payload". It returns ErrInvalidArgument if the
// range falls outside the payload.
func (s *Snapshot) Slice(offset, size uint64) ([]byte, error) {
	total := uint64(len(s.buf))
	if offset > total {
		return nil, ErrInvalidArgument
	}
	if size == 0 {
		size = total - offset
	}
	end := offset + size
	if end < offset || end > total {
		return nil, ErrInvalidArgument
	}
	return s.buf[offset:end], nil
}

// Bytes returns the full payload. Callers must not mutate the result.
func (s *Snapshot) Bytes() []byte { return s.buf }

// entry is one cached record. It is exclusively owned by its shard;
// outstanding Snapshots hold a copy of the payload slice header taken at
// read time, which the entry never mutates in place (see Snapshot).
type entry struct {
	id Identifier

	payload []byte

	// lifetime and synctime are absolute Unix seconds; 0 means "unset".
	lifetime int64
	synctime int64

	timestamp      Timestamp
	userFlags      uint64
	removeFromDisk bool

	// Intrusive LRU links. lruNext points toward the tail (most recently
	// used); lruPrev points toward the head (least recently used).
	lruPrev, lruNext *entry
}

// dirty reports whether the entry has unflushed writes, i.e. it belongs to
// the sync index (e ∈ sync_index ⇔ e.synctime ≠ 0).
func (e *entry) dirty() bool { return e.synctime != 0 }

func (e *entry) size() int64 { return int64(len(e.payload)) }
