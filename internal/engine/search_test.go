package engine

import (
	"encoding/binary"
	"errors"
	"testing"

	errs "github.com/edgequery/edgequery/pkg/errors"

	"github.com/edgequery/edgequery/internal/chunk"
)

func buildTermChunk(t *testing.T, entries map[string]string) ([]byte, uint32) {
	t.Helper()
	b := chunk.NewBuilder(chunk.KeyspaceTerm)
	for k, v := range entries {
		b.Add([]byte(k), []byte(v))
	}
	buf, rootOff, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	return buf, rootOff
}

func TestSearchHitAndMiss(t *testing.T) {
	buf, rootOff := buildTermChunk(t, map[string]string{
		"ant": "A", "bee": "BB", "cat": "CCC", "dog": "", "elk": "E",
	})
	e := New(20)
	ref, err := e.Load(buf)
	if err != nil {
		t.Fatal(err)
	}

	for key, want := range map[string]string{"ant": "A", "bee": "BB", "cat": "CCC", "dog": "", "elk": "E"} {
		payloadRef, payloadLen, ok, err := e.Search(ref, uint32(len(buf)), rootOff, chunk.KeyspaceTerm, []byte(key))
		if err != nil || !ok {
			t.Fatalf("Search(%q) = ok=%v, err=%v", key, ok, err)
		}
		got, err := e.Bytes(payloadRef, payloadLen)
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != want {
			t.Errorf("payload for %q = %q, want %q", key, got, want)
		}
	}

	for _, key := range []string{"aardvark", "bog", "zebra", ""} {
		_, _, ok, err := e.Search(ref, uint32(len(buf)), rootOff, chunk.KeyspaceTerm, []byte(key))
		if err != nil {
			t.Fatalf("Search(%q) error: %v", key, err)
		}
		if ok {
			t.Errorf("Search(%q) reported a hit", key)
		}
	}
}

func TestSearchDocKeyspace(t *testing.T) {
	b := chunk.NewBuilder(chunk.KeyspaceDoc)
	for _, id := range []uint32{1, 2, 256, 300, 70000} {
		b.AddDoc(id, []byte("doc"))
	}
	buf, rootOff, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	e := New(20)
	ref, err := e.Load(buf)
	if err != nil {
		t.Fatal(err)
	}
	// 256 vs 2 is where bytewise and numeric ordering disagree.
	_, _, ok, err := e.Search(ref, uint32(len(buf)), rootOff, chunk.KeyspaceDoc, chunk.EncodeDocKey(256))
	if err != nil || !ok {
		t.Fatalf("Search(doc 256) = ok=%v, err=%v", ok, err)
	}
}

func TestSearchMalformedRootOffset(t *testing.T) {
	buf, _ := buildTermChunk(t, map[string]string{"only": "1"})
	e := New(20)
	ref, err := e.Load(buf)
	if err != nil {
		t.Fatal(err)
	}
	_, _, _, err = e.Search(ref, uint32(len(buf)), uint32(len(buf))+100, chunk.KeyspaceTerm, []byte("only"))
	if !errors.Is(err, errs.ErrMalformedChunk) {
		t.Fatalf("err = %v, want ErrMalformedChunk", err)
	}
}

func TestSearchCyclicChunkRejected(t *testing.T) {
	// A single node whose both children point back at itself. Any key that
	// does not match loops forever without the visit cap.
	key := []byte("self")
	buf := make([]byte, chunk.NodeFixedSize+len(key))
	binary.LittleEndian.PutUint32(buf[0:], 0)  // left -> self
	binary.LittleEndian.PutUint32(buf[4:], 0)  // right -> self
	binary.LittleEndian.PutUint32(buf[8:], 0)  // payloadOff
	binary.LittleEndian.PutUint32(buf[12:], 0) // payloadLen
	binary.LittleEndian.PutUint16(buf[16:], uint16(len(key)))
	copy(buf[chunk.NodeFixedSize:], key)

	e := New(20)
	ref, err := e.Load(buf)
	if err != nil {
		t.Fatal(err)
	}
	_, _, _, err = e.Search(ref, uint32(len(buf)), 0, chunk.KeyspaceTerm, []byte("zzz"))
	if !errors.Is(err, errs.ErrMalformedChunk) {
		t.Fatalf("err = %v, want ErrMalformedChunk", err)
	}
}

func TestSearchPayloadOutsideChunkRejected(t *testing.T) {
	key := []byte("k")
	buf := make([]byte, chunk.NodeFixedSize+len(key))
	binary.LittleEndian.PutUint32(buf[0:], chunk.NoChild)
	binary.LittleEndian.PutUint32(buf[4:], chunk.NoChild)
	binary.LittleEndian.PutUint32(buf[8:], 1000) // payload past the end
	binary.LittleEndian.PutUint32(buf[12:], 10)
	binary.LittleEndian.PutUint16(buf[16:], uint16(len(key)))
	copy(buf[chunk.NodeFixedSize:], key)

	e := New(20)
	ref, err := e.Load(buf)
	if err != nil {
		t.Fatal(err)
	}
	_, _, _, err = e.Search(ref, uint32(len(buf)), 0, chunk.KeyspaceTerm, key)
	if !errors.Is(err, errs.ErrMalformedChunk) {
		t.Fatalf("err = %v, want ErrMalformedChunk", err)
	}
}

func TestSearchTruncatedNodeRejected(t *testing.T) {
	// Node header claims a key longer than the chunk.
	buf := make([]byte, chunk.NodeFixedSize)
	binary.LittleEndian.PutUint32(buf[0:], chunk.NoChild)
	binary.LittleEndian.PutUint32(buf[4:], chunk.NoChild)
	binary.LittleEndian.PutUint16(buf[16:], 500)

	e := New(20)
	ref, err := e.Load(buf)
	if err != nil {
		t.Fatal(err)
	}
	_, _, _, err = e.Search(ref, uint32(len(buf)), 0, chunk.KeyspaceTerm, []byte("x"))
	if !errors.Is(err, errs.ErrMalformedChunk) {
		t.Fatalf("err = %v, want ErrMalformedChunk", err)
	}
}
