package cache

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/tidwall/btree"

	"github.com/shardnode/cachekit/backend"
	"github.com/shardnode/cachekit/digest"
	"github.com/shardnode/cachekit/internal/invariant"
	"github.com/shardnode/cachekit/internal/util"
)

// shard is an independent cache partition with its own lock, indices,
// memory counter, and maintenance worker; no state is shared across
// shards at steady state.
type shard struct {
	idx int // for metrics/log labeling only; never used for routing

	mu sync.Mutex

	maxBytes int64
	// usedBytes is padded to its own cache line: shards live side by
	// side in a single slice, and every write touches this counter, so
	// without padding neighboring shards' hot counters would false-share.
	usedBytesPad util.PaddedInt64

	byID map[Identifier]*entry

	// Intrusive LRU list with sentinel head/tail nodes. lruHead.lruNext is
	// the real least-recently-used entry; lruTail.lruPrev is the real
	// most-recently-used entry.
	lruHead, lruTail entry

	lifetimeIdx *btree.BTreeG[*entry]
	syncIdx     *btree.BTreeG[*entry]

	backend     backend.Backend
	digest      digest.Digest
	metrics     Metrics
	clock       Clock
	logger      *slog.Logger
	syncTimeout time.Duration

	maintenanceInterval time.Duration
	stopCh              chan struct{}
	doneCh              chan struct{}
}

func idLess(a, b Identifier) bool { return bytes.Compare(a[:], b[:]) < 0 }

func lifetimeLess(a, b *entry) bool {
	if a.lifetime != b.lifetime {
		return a.lifetime < b.lifetime
	}
	return idLess(a.id, b.id)
}

func syncLess(a, b *entry) bool {
	if a.synctime != b.synctime {
		return a.synctime < b.synctime
	}
	return idLess(a.id, b.id)
}

func newShard(idx int, maxBytes int64, opt Options) *shard {
	s := &shard{
		idx:                 idx,
		maxBytes:            maxBytes,
		byID:                make(map[Identifier]*entry),
		lifetimeIdx:         btree.NewBTreeG(lifetimeLess),
		syncIdx:             btree.NewBTreeG(syncLess),
		backend:             opt.Backend,
		digest:              opt.Digest,
		metrics:             opt.Metrics,
		clock:               opt.Clock,
		logger:              opt.Logger,
		syncTimeout:         opt.SyncTimeout,
		maintenanceInterval: opt.MaintenanceInterval,
		stopCh:              make(chan struct{}),
		doneCh:              make(chan struct{}),
	}
	s.lruHead.lruNext = &s.lruTail
	s.lruTail.lruPrev = &s.lruHead
	go s.maintenanceLoop()
	return s
}

func (s *shard) now() time.Time { return s.clock.Now() }

// ---- LRU list: intrusive, head = least recently used, tail = most ----

func (s *shard) lruRemove(e *entry) {
	if e.lruPrev == nil || e.lruNext == nil {
		// Every entry in byID is always linked into the LRU list;
		// createEntry pushes it to the tail before it's ever exposed,
		// and erasure unlinks it and drops it from byID together. Seeing
		// one without the other here means those two structures have
		// gone out of sync.
		invariant.Raise(s.logger, "shard.lru_membership", "id", e.id.String(), "shard", s.idx)
		return
	}
	e.lruPrev.lruNext = e.lruNext
	e.lruNext.lruPrev = e.lruPrev
	e.lruPrev, e.lruNext = nil, nil
}

func (s *shard) lruPushTail(e *entry) {
	last := s.lruTail.lruPrev
	last.lruNext = e
	e.lruPrev = last
	e.lruNext = &s.lruTail
	s.lruTail.lruPrev = e
}

func (s *shard) lruMoveToTail(e *entry) {
	s.lruRemove(e)
	s.lruPushTail(e)
}

func (s *shard) lruOldest() *entry {
	if s.lruHead.lruNext == &s.lruTail {
		return nil
	}
	return s.lruHead.lruNext
}

// ---- lifetime / sync index bookkeeping ----
//
// Both indices order by (deadline, id); the deadline field that drives
// ordering must be mutated only between a removeX and the matching
// insertX, never while the entry is still a tree member, or the tree's
// internal order goes stale and lookups on it misbehave.

func (s *shard) removeLifetime(e *entry) {
	if e.lifetime == 0 {
		return
	}
	s.lifetimeIdx.Delete(e)
	e.lifetime = 0
}

func (s *shard) insertLifetime(e *entry, deadline int64) {
	e.lifetime = deadline
	if deadline != 0 {
		s.lifetimeIdx.Set(e)
	}
}

func (s *shard) removeSync(e *entry) {
	if e.synctime == 0 {
		return
	}
	s.syncIdx.Delete(e)
	e.synctime = 0
	s.metrics.DirtyEntries(s.idx, -1)
}

func (s *shard) insertSync(e *entry, deadline int64) {
	e.synctime = deadline
	if deadline != 0 {
		s.syncIdx.Set(e)
		s.metrics.DirtyEntries(s.idx, 1)
	}
}

// ---- creation / destruction ----

// createEntry inserts a brand-new empty entry into the primary index and
// the LRU tail. It does not touch the lifetime or sync indices.
func (s *shard) createEntry(id Identifier) *entry {
	e := &entry{id: id}
	s.byID[id] = e
	s.lruPushTail(e)
	return e
}

// removeEntryLocked removes e from every index, flushing it to the backend
// first if it is still dirty, then subtracts its payload size from
// usedBytes. This is the shared "erase" primitive behind both eviction and
// explicit delete: whichever caller removes an entry, a still-dirty entry
// gets one last flush attempt before its payload is gone for good. Caller
// holds the shard lock.
func (s *shard) removeEntryLocked(ctx context.Context, e *entry) {
	if e.dirty() {
		s.flushLocked(ctx, e)
	}
	s.lruRemove(e)
	delete(s.byID, e.id)
	s.removeLifetime(e)
	s.removeSync(e)
	s.usedBytesPad.V -= e.size()
	s.metrics.UsedBytes(s.idx, s.usedBytesPad.V)
}

// eraseElement is removeEntryLocked plus the eviction metric; used by
// capacity eviction and TTL expiry, never by explicit delete (EvictReason
// documents "outside of an explicit Delete").
func (s *shard) eraseElement(ctx context.Context, e *entry, reason EvictReason) {
	s.removeEntryLocked(ctx, e)
	s.metrics.Evict(reason)
}

// flushLocked writes e's current payload to the backend. Caller holds the
// shard lock; per the accepted trade-off, backend I/O runs inside the
// critical section. Errors are logged and dropped: the entry is being
// removed from cache by the caller regardless of flush outcome, so there
// is nothing left in cache to retry from.
func (s *shard) flushLocked(ctx context.Context, e *entry) {
	if s.backend == nil {
		return
	}
	rec := backend.Record{Payload: e.payload, Sec: e.timestamp.Sec, Nsec: e.timestamp.Nsec, UserFlags: e.userFlags}
	if err := s.backend.Write(ctx, e.id[:], rec); err != nil {
		s.logger.Error("cache: eviction-time flush failed", "id", e.id.String(), "shard", s.idx, "error", err)
		s.metrics.FlushFailure()
	}
}

// resize evicts from the LRU head until max_bytes > used_bytes + reserve
// or the shard is empty. A do-while shape: at least one entry is
// considered before the capacity check, matching the original's
// behavior of always giving eviction a chance to run on a write even
// when the shard is already nominally within budget.
func (s *shard) resize(ctx context.Context, reserve int64) {
	for {
		victim := s.lruOldest()
		if victim == nil {
			return
		}
		s.eraseElement(ctx, victim, EvictCapacity)
		if s.maxBytes > s.usedBytesPad.V+reserve {
			return
		}
	}
}

// ---- Write ----

func (s *shard) write(ctx context.Context, id Identifier, attr *IOAttr, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.byID[id]
	if !ok {
		if !attr.Flags.Has(FlagCache) {
			return ErrNotSupported
		}
		if !attr.Flags.Has(FlagCacheOnly) {
			populated, err := s.populateFromDisk(ctx, id)
			if err != nil {
				return err
			}
			e = populated
		}
		if e == nil {
			e = s.createEntry(id)
		}
	}

	if attr.Flags.Has(FlagCompareAndSwap) && len(e.payload) > 0 {
		sum := s.digest.Sum(e.payload)
		if !bytes.Equal(sum, attr.Parent) {
			return ErrStale
		}
	}

	oldSize := e.size()
	var newSize uint64
	if attr.Flags.Has(FlagAppend) {
		newSize = uint64(oldSize) + attr.Size
	} else {
		newSize = attr.Offset + attr.Size
	}

	s.usedBytesPad.V -= oldSize
	s.lruRemove(e)
	if s.usedBytesPad.V+int64(newSize) > s.maxBytes {
		s.resize(ctx, int64(newSize)*2)
	}
	s.lruPushTail(e)
	s.usedBytesPad.V += int64(newSize)

	s.mutatePayload(e, attr, payload, newSize)

	if !e.dirty() && !attr.Flags.Has(FlagCacheOnly) {
		s.insertSync(e, s.now().Unix()+int64(s.syncTimeout/time.Second))
	}

	s.removeLifetime(e)
	if attr.Start != 0 {
		s.insertLifetime(e, s.now().Unix()+int64(attr.Start))
	}

	e.timestamp = attr.Timestamp
	e.userFlags = attr.UserFlags
	if attr.Flags.Has(FlagRemoveFromDisk) {
		e.removeFromDisk = true
	}

	s.metrics.UsedBytes(s.idx, s.usedBytesPad.V)
	return nil
}

func (s *shard) mutatePayload(e *entry, attr *IOAttr, incoming []byte, newSize uint64) {
	buf := make([]byte, newSize)
	if attr.Flags.Has(FlagAppend) {
		copy(buf, e.payload)
		copy(buf[len(e.payload):], incoming)
	} else {
		copy(buf, e.payload)
		copy(buf[attr.Offset:attr.Offset+attr.Size], incoming)
	}
	e.payload = buf
}

// ---- Read ----

func (s *shard) read(ctx context.Context, id Identifier, attr *IOAttr) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.byID[id]
	if !ok {
		if attr.Flags.Has(FlagCache) && !attr.Flags.Has(FlagCacheOnly) {
			populated, err := s.populateFromDisk(ctx, id)
			if err != nil {
				return nil, err
			}
			e = populated
		}
		if e == nil {
			s.metrics.Miss()
			return nil, ErrNotFound
		}
	}

	s.lruMoveToTail(e)
	attr.Timestamp = e.timestamp
	attr.UserFlags = e.userFlags
	s.metrics.Hit()

	return &Snapshot{buf: e.payload, Timestamp: e.timestamp, UserFlags: e.userFlags}, nil
}

// ---- Delete ----

func (s *shard) delete(ctx context.Context, id Identifier, attr *IOAttr) error {
	s.mu.Lock()
	var removeFromDiskEffective bool
	e, ok := s.byID[id]
	if ok {
		removeFromDiskEffective = e.removeFromDisk || !attr.Flags.Has(FlagCacheOnly)
		if e.dirty() && !attr.Flags.Has(FlagCacheOnly) {
			// The delete supersedes the pending write: drop the dirty
			// marker without flushing, since the backend row this would
			// have flushed to is about to be removed anyway.
			s.removeSync(e)
		}
		// A CACHE_ONLY delete leaves the dirty marker in place, so the
		// shared erase path below still flushes it before the entry is
		// gone from cache for good.
		s.removeEntryLocked(ctx, e)
	}
	s.mu.Unlock()

	if !ok {
		return ErrNotFound
	}

	if removeFromDiskEffective && s.backend != nil {
		if err := s.backend.Remove(ctx, id[:]); err != nil && err != backend.ErrNotFound {
			return &BackendError{Op: "remove", Err: err}
		}
	}
	return nil
}

// ---- populate-from-disk ----
//
// Called with the shard lock already held, from a write or read miss.
// Backend I/O is non-reentrant with respect to this lock by contract
// (§4.4): the backend is responsible for its own internal concurrency.
func (s *shard) populateFromDisk(ctx context.Context, id Identifier) (*entry, error) {
	if s.backend == nil {
		return nil, nil
	}
	rec, err := s.backend.Read(ctx, id[:])
	if err != nil {
		if err == backend.ErrNotFound {
			return nil, nil
		}
		return nil, &BackendError{Op: "read", Err: err}
	}
	e := s.createEntry(id)
	e.payload = rec.Payload
	e.timestamp = Timestamp{Sec: rec.Sec, Nsec: rec.Nsec}
	e.userFlags = rec.UserFlags
	s.usedBytesPad.V += e.size()
	s.metrics.UsedBytes(s.idx, s.usedBytesPad.V)
	return e, nil
}

// ---- maintenance worker ----

func (s *shard) maintenanceLoop() {
	defer close(s.doneCh)
	ticker := time.NewTicker(s.maintenanceInterval)
	defer ticker.Stop()
	ctx := context.Background()
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.maintenancePass(ctx)
			select {
			case <-s.stopCh:
				return
			default:
			}
		}
	}
}

// maintenancePass runs the two inner passes described in §4.5: expire by
// lifetime, then flush by sync deadline, then cascade backend deletes
// for entries that were removal-sticky.
func (s *shard) maintenancePass(ctx context.Context) {
	var toRemove []Identifier

	s.mu.Lock()
	now := s.now().Unix()
	for {
		head, ok := s.lifetimeIdx.Min()
		if !ok || head.lifetime > now {
			break
		}
		if head.removeFromDisk {
			toRemove = append(toRemove, head.id)
		}
		s.eraseElement(ctx, head, EvictTTL)
	}

	for {
		head, ok := s.syncIdx.Min()
		if !ok || head.synctime > now {
			break
		}
		if s.backend != nil {
			rec := backend.Record{Payload: head.payload, Sec: head.timestamp.Sec, Nsec: head.timestamp.Nsec, UserFlags: head.userFlags}
			if err := s.backend.Write(ctx, head.id[:], rec); err != nil {
				// Correction over the original: a failed flush must retain
				// the dirty marker for retry on the next pass, not clear it.
				s.logger.Error("cache: maintenance flush failed, retaining dirty marker", "id", head.id.String(), "shard", s.idx, "error", err)
				s.metrics.FlushFailure()
				break
			}
		}
		s.removeSync(head)
	}
	s.mu.Unlock()

	for _, id := range toRemove {
		if s.backend == nil {
			continue
		}
		if err := s.backend.Remove(ctx, id[:]); err != nil && err != backend.ErrNotFound {
			s.logger.Error("cache: maintenance backend remove failed", "id", id.String(), "shard", s.idx, "error", err)
		}
	}
}

// stop signals the worker to exit and waits for it to finish its current
// pass (cooperative: checked between passes, never mid-pass).
func (s *shard) stop() {
	close(s.stopCh)
	<-s.doneCh
}

// drain flushes every remaining dirty entry by forcing the capacity
// budget to zero, used on Manager.Shutdown.
func (s *shard) drain(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maxBytes = 0
	s.resize(ctx, 0)
}
