// Package cache implements the in-memory write-through cache engine of a
// distributed key/value storage node.
//
// The engine owns a fixed number of independent shards (Options.Shards,
// default 16). A key is routed to a shard by reading the first 4 bytes of
// its identifier as a little-endian word, modulo the shard count; at steady
// state no state is
// shared across shards. Within a shard, entries are reachable through four
// cooperating indices: a primary map for point lookups, a doubly linked LRU
// list for recency order, a lifetime index ordered by absolute expiry time,
// and a sync index ordered by scheduled flush time (populated only for
// dirty entries). A background maintenance worker per shard evicts expired
// entries, flushes dirty entries whose sync deadline has passed, and issues
// backend deletes for entries marked "also remove from disk".
//
// Design
//
//   - Concurrency: every shard has one mutex serializing Write, Read,
//     Delete, populate-from-disk, and the maintenance worker's critical
//     sections. Backend I/O runs under the shard lock (accepted trade-off
//     given local-disk-class backends); a slow backend stalls only the
//     shards whose keys happen to hit it.
//
//   - Eviction: pure LRU plus TTL, inlined directly into the shard. There is
//     no pluggable policy layer — exactly one discipline is ever needed.
//
//   - Dirty tracking: a write that is not CACHE_ONLY schedules a flush
//     deadline (Options.SyncTimeout after the first dirtying write) and
//     inserts the entry into the sync index. The maintenance worker flushes
//     entries whose deadline has passed; a flush failure leaves the entry
//     dirty for retry on the next tick rather than dropping the marker.
//
//   - Snapshots: Read returns an immutable Snapshot of the payload at the
//     time of the call. Writes never mutate a payload buffer in place —
//     every mutating write builds a new buffer and re-seats the entry's
//     pointer to it, so outstanding snapshots are never torn.
//
// Basic usage
//
//	mgr, err := cache.NewManager(cache.Options{
//	    TotalBytes: 64 << 20,
//	    Backend:    memory.New(),
//	})
//	var attr cache.IOAttr
//	attr.Size = uint64(len(payload))
//	attr.Flags = cache.FlagCache
//	err = mgr.Write(ctx, id, &attr, payload)
//	snap, err := mgr.Read(ctx, id, &attr)
package cache
