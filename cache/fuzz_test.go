//go:build go1.18

package cache

import (
	"context"
	"testing"
)

// Fuzz the write/read/delete round-trip under arbitrary offsets and
// payload sizes. Guards against panics and checks that a successful
// write is always immediately readable back unchanged, and that a delete
// then turns the read into a miss.
func FuzzWriteReadDelete(f *testing.F) {
	f.Add(uint64(0), uint64(5), []byte("hello"))
	f.Add(uint64(3), uint64(0), []byte(""))
	f.Add(uint64(0), uint64(1024), []byte("x"))

	f.Fuzz(func(t *testing.T, offset, size uint64, payload []byte) {
		const limit = 1 << 12
		if len(payload) > limit {
			payload = payload[:limit]
		}
		if size > limit {
			size = limit
		}
		if offset > limit {
			offset = offset % limit
		}
		if int(size) != len(payload) {
			// Keep size consistent with the supplied payload; the dispatcher
			// contract requires len(payload) == attr.Size.
			size = uint64(len(payload))
		}

		eng, err := NewManager(Options{TotalBytes: 1 << 20, Shards: 1})
		if err != nil {
			t.Fatalf("NewManager: %v", err)
		}
		m := eng.(*Manager)
		t.Cleanup(func() { _ = m.Shutdown(context.Background()) })

		id := mkID('Q')
		attr := &IOAttr{Offset: offset, Size: size, Flags: FlagCache | FlagCacheOnly}
		if err := m.Write(context.Background(), id, attr, payload); err != nil {
			t.Fatalf("write: %v", err)
		}

		snap, err := m.Read(context.Background(), id, &IOAttr{Flags: FlagCache | FlagCacheOnly})
		if err != nil {
			t.Fatalf("read after write: %v", err)
		}
		got, err := snap.Slice(offset, size)
		if err != nil {
			t.Fatalf("slice: %v", err)
		}
		if string(got) != string(payload) {
			t.Fatalf("round-trip mismatch: got %q want %q", got, payload)
		}

		if err := m.Delete(context.Background(), id, &IOAttr{Flags: FlagCacheOnly}); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if _, err := m.Read(context.Background(), id, &IOAttr{Flags: FlagCache | FlagCacheOnly}); err != ErrNotFound {
			t.Fatalf("read after delete: got %v, want ErrNotFound", err)
		}
	})
}
