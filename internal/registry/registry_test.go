package registry

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"alphabot/pkg/logx"
)

func TestOpenDriverSelection(t *testing.T) {
	t.Parallel()

	t.Run("disabled", func(t *testing.T) {
		t.Parallel()
		st, err := Open(Config{}, logx.Nop())
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		if st != nil {
			t.Fatal("empty driver should yield a nil store")
		}
	})

	t.Run("memory", func(t *testing.T) {
		t.Parallel()
		st, err := Open(Config{Driver: "memory"}, logx.Nop())
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		if st == nil {
			t.Fatal("memory driver yielded a nil store")
		}
	})

	t.Run("unknown", func(t *testing.T) {
		t.Parallel()
		if _, err := Open(Config{Driver: "postgres"}, logx.Nop()); err == nil {
			t.Fatal("expected error for unknown driver")
		}
	})

	t.Run("sqlite without path", func(t *testing.T) {
		t.Parallel()
		if _, err := Open(Config{Driver: "sqlite"}, logx.Nop()); err == nil {
			t.Fatal("expected error when sqlite path is missing")
		}
	})
}

func TestMemorySubscribers(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewMemory()

	for _, id := range []int64{30, 10, 20, 10} {
		if err := m.Add(ctx, id); err != nil {
			t.Fatalf("Add(%d): %v", id, err)
		}
	}
	got, err := m.Members(ctx)
	if err != nil {
		t.Fatalf("Members: %v", err)
	}
	want := []int64{10, 20, 30}
	if len(got) != len(want) {
		t.Fatalf("Members = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Members = %v, want %v", got, want)
		}
	}

	if err := m.Remove(ctx, 20); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := m.Remove(ctx, 999); err != nil {
		t.Fatalf("Remove of absent member: %v", err)
	}
	got, _ = m.Members(ctx)
	if len(got) != 2 {
		t.Fatalf("Members after remove = %v", got)
	}
}

func TestMemoryMarkerExpiry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewMemory()

	ok, err := m.MarkerExists(ctx, "k")
	if err != nil || ok {
		t.Fatalf("fresh marker: exists=%v err=%v", ok, err)
	}

	if err := m.SetMarker(ctx, "k", time.Hour); err != nil {
		t.Fatalf("SetMarker: %v", err)
	}
	ok, _ = m.MarkerExists(ctx, "k")
	if !ok {
		t.Fatal("marker should exist inside its ttl")
	}

	if err := m.SetMarker(ctx, "gone", -time.Second); err != nil {
		t.Fatalf("SetMarker: %v", err)
	}
	ok, _ = m.MarkerExists(ctx, "gone")
	if ok {
		t.Fatal("expired marker should not exist")
	}
}

func TestSQLiteRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	st, err := Open(Config{
		Driver:      "sqlite",
		Path:        filepath.Join(t.TempDir(), "registry.db"),
		BusyTimeout: 2 * time.Second,
	}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()

	if err := st.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	if err := st.Add(ctx, 42); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := st.Add(ctx, 42); err != nil {
		t.Fatalf("duplicate Add: %v", err)
	}
	members, err := st.Members(ctx)
	if err != nil {
		t.Fatalf("Members: %v", err)
	}
	if len(members) != 1 || members[0] != 42 {
		t.Fatalf("Members = %v, want [42]", members)
	}

	if err := st.SetMarker(ctx, "event_notified:42:AAA-2025-06-01T10:00:00+07:00", time.Hour); err != nil {
		t.Fatalf("SetMarker: %v", err)
	}
	ok, err := st.MarkerExists(ctx, "event_notified:42:AAA-2025-06-01T10:00:00+07:00")
	if err != nil {
		t.Fatalf("MarkerExists: %v", err)
	}
	if !ok {
		t.Fatal("marker should exist after SetMarker")
	}

	if err := st.SetMarker(ctx, "stale", -time.Minute); err != nil {
		t.Fatalf("SetMarker: %v", err)
	}
	ok, err = st.MarkerExists(ctx, "stale")
	if err != nil {
		t.Fatalf("MarkerExists: %v", err)
	}
	if ok {
		t.Fatal("marker with elapsed ttl should read as absent")
	}

	if err := st.Remove(ctx, 42); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	members, _ = st.Members(ctx)
	if len(members) != 0 {
		t.Fatalf("Members after remove = %v", members)
	}
}
