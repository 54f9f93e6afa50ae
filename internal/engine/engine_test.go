package engine

import (
	"bytes"
	"testing"
)

func TestAllocNeverReturnsNull(t *testing.T) {
	e := New(20)
	ref, err := e.Alloc(0)
	if err != nil {
		t.Fatal(err)
	}
	if ref == nullRef {
		t.Fatal("Alloc returned the null reference")
	}
}

func TestAllocGrowsArena(t *testing.T) {
	e := New(20)
	before := e.ArenaSize()
	ref, err := e.Alloc(before + 1)
	if err != nil {
		t.Fatal(err)
	}
	if e.ArenaSize() <= before {
		t.Fatalf("arena did not grow: %d -> %d", before, e.ArenaSize())
	}
	if err := e.Write(ref, make([]byte, before+1)); err != nil {
		t.Fatal(err)
	}
}

func TestAllocRejectsOverLimit(t *testing.T) {
	e := New(20)
	if _, err := e.Alloc(maxArenaSize + 1); err == nil {
		t.Fatal("Alloc past the arena limit should fail")
	}
	if _, err := e.Alloc(-1); err == nil {
		t.Fatal("negative Alloc should fail")
	}
}

func TestResetInvalidatesAndReuses(t *testing.T) {
	e := New(20)
	first, err := e.Load([]byte("request one"))
	if err != nil {
		t.Fatal(err)
	}
	e.Reset()
	second, err := e.Load([]byte("request two"))
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Fatalf("allocation after Reset at %d, want %d (arena reclaimed)", second, first)
	}
	got, err := e.Bytes(second, uint32(len("request two")))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, []byte("request two")) {
		t.Fatalf("memory after reuse = %q", got)
	}
}

func TestBytesAndWriteBounds(t *testing.T) {
	e := New(20)
	ref, err := e.Load(make([]byte, 16))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.Bytes(ref, 17); err == nil {
		t.Fatal("read past the allocation top should fail")
	}
	if err := e.Write(ref, make([]byte, 17)); err == nil {
		t.Fatal("write past the allocation top should fail")
	}
}

func TestDiagnosticRoundTrip(t *testing.T) {
	e := New(20)
	// %s needs a real in-arena string; write one and point the slot at it.
	strRef, err := e.Load([]byte("kernel\x00"))
	if err != nil {
		t.Fatal(err)
	}
	msg, err := e.emitDiag("matched %u docs for %s at cursor %d",
		[]uint64{12, uint64(strRef), uint64(uint32(0xFFFFFFFF))})
	if err != nil {
		t.Fatal(err)
	}
	want := "matched 12 docs for kernel at cursor -1"
	if msg != want {
		t.Fatalf("diagnostic = %q, want %q", msg, want)
	}
}

func TestDiagnosticArgCountMismatch(t *testing.T) {
	e := New(20)
	if _, err := e.emitDiag("%u %u", []uint64{1}); err == nil {
		t.Fatal("arity mismatch should fail")
	}
}
