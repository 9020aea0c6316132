package cache

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/funvibe/refssa/internal/ssa"
	"github.com/funvibe/refssa/internal/typesystem"
)

func sampleModule() *ssa.Module {
	b := ssa.NewFunctionBuilder(1, "main")
	x := b.AddParameter(typesystem.Field)
	cell := b.InsertAllocate(typesystem.Field)
	b.InsertStore(cell, x)
	v := b.InsertLoad(cell, typesystem.Field)
	b.SetReturnTypes(typesystem.Field)
	b.TerminateWithReturn([]ssa.ValueID{v})
	m := &ssa.Module{}
	m.AddFunction(b.Function())
	return m
}

func openTemp(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(context.Background(), filepath.Join(t.TempDir(), "nested", "cache.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestCache_PutGet(t *testing.T) {
	ctx := context.Background()
	c := openTemp(t)
	m := sampleModule()

	id, err := c.Put(ctx, "fp-1", m)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if id != ssa.BuildID(m) {
		t.Errorf("Put returned build id %s, want %s", id, ssa.BuildID(m))
	}

	got, ok, err := c.Get(ctx, "fp-1")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if ssa.Print(got) != ssa.Print(m) {
		t.Errorf("cached module differs:\n%s\nwant:\n%s", ssa.Print(got), ssa.Print(m))
	}

	if _, ok, err := c.Get(ctx, "fp-2"); ok || err != nil {
		t.Errorf("unknown fingerprint: ok=%v err=%v", ok, err)
	}
	if hits, misses := c.Stats(); hits != 1 || misses != 1 {
		t.Errorf("stats: hits=%d misses=%d, want 1 and 1", hits, misses)
	}
}

func TestCache_Replace(t *testing.T) {
	ctx := context.Background()
	c := openTemp(t)

	if _, err := c.Put(ctx, "fp", sampleModule()); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Put(ctx, "fp", &ssa.Module{}); err != nil {
		t.Fatal(err)
	}
	entries, err := c.Entries(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].BuildID != ssa.BuildID(&ssa.Module{}) {
		t.Errorf("expected the second module to replace the first, got %+v", entries)
	}
}

func TestCache_CorruptEntryIsMiss(t *testing.T) {
	ctx := context.Background()
	c := openTemp(t)

	if _, err := c.Put(ctx, "fp", sampleModule()); err != nil {
		t.Fatal(err)
	}
	if _, err := c.db.ExecContext(ctx, `UPDATE artifacts SET module = ? WHERE fingerprint = ?`, []byte("garbage"), "fp"); err != nil {
		t.Fatal(err)
	}

	if _, ok, err := c.Get(ctx, "fp"); ok || err != nil {
		t.Fatalf("corrupt entry: ok=%v err=%v, want a plain miss", ok, err)
	}
	entries, err := c.Entries(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("corrupt entry was kept: %+v", entries)
	}
}

func TestCache_PersistsAcrossOpens(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.db")

	c, err := Open(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Put(ctx, "fp", sampleModule()); err != nil {
		t.Fatal(err)
	}
	c.Close()

	c, err = Open(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	if _, ok, err := c.Get(ctx, "fp"); !ok || err != nil {
		t.Fatalf("entry lost after reopening: ok=%v err=%v", ok, err)
	}
}

func TestCache_Memory(t *testing.T) {
	ctx := context.Background()
	c, err := Open(ctx, MemoryPath)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	if _, err := c.Put(ctx, "fp", sampleModule()); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := c.Get(ctx, "fp"); !ok {
		t.Error("in-memory cache lost its entry")
	}
}
