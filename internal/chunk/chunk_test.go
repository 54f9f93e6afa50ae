package chunk

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"
)

func TestCompareKeysTermBytewise(t *testing.T) {
	if CompareKeys(KeyspaceTerm, []byte("apple"), []byte("banana")) >= 0 {
		t.Fatal("apple should sort before banana")
	}
	if CompareKeys(KeyspaceTerm, []byte("b"), []byte("abc")) <= 0 {
		t.Fatal("b should sort after abc bytewise")
	}
}

func TestCompareKeysDocNumeric(t *testing.T) {
	// Bytewise, LE-encoded 2 sorts after LE-encoded 256; numerically it
	// must sort before.
	a, b := EncodeDocKey(2), EncodeDocKey(256)
	if CompareKeys(KeyspaceDoc, a, b) >= 0 {
		t.Fatal("doc 2 should sort before doc 256")
	}
	if bytes.Compare(a, b) <= 0 {
		t.Fatal("fixture not exercising the numeric/bytewise divergence")
	}
}

func TestBuildEmpty(t *testing.T) {
	if _, _, err := NewBuilder(KeyspaceTerm).Build(); err == nil {
		t.Fatal("Build() on empty builder should fail")
	}
}

func TestBuildDuplicateKey(t *testing.T) {
	b := NewBuilder(KeyspaceTerm)
	b.Add([]byte("dup"), []byte("a"))
	b.Add([]byte("dup"), []byte("b"))
	if _, _, err := b.Build(); err == nil {
		t.Fatal("Build() with duplicate keys should fail")
	}
}

func TestBuildOversizedKey(t *testing.T) {
	b := NewBuilder(KeyspaceTerm)
	b.Add([]byte(strings.Repeat("k", MaxKeyLen+1)), nil)
	if _, _, err := b.Build(); err == nil {
		t.Fatal("Build() with oversized key should fail")
	}
}

// walk follows the flattened tree structure directly, independent of the
// engine, and returns the payload for key or nil.
func walk(t *testing.T, buf []byte, rootOff uint32, ks Keyspace, key []byte) []byte {
	t.Helper()
	off := rootOff
	for steps := 0; steps < 64; steps++ {
		if off == NoChild {
			return nil
		}
		if int(off)+NodeFixedSize > len(buf) {
			t.Fatalf("node offset %d out of range", off)
		}
		left := binary.LittleEndian.Uint32(buf[off:])
		right := binary.LittleEndian.Uint32(buf[off+4:])
		payloadOff := binary.LittleEndian.Uint32(buf[off+8:])
		payloadLen := binary.LittleEndian.Uint32(buf[off+12:])
		keyLen := binary.LittleEndian.Uint16(buf[off+16:])
		nodeKey := buf[off+NodeFixedSize : off+NodeFixedSize+uint32(keyLen)]
		switch cmp := CompareKeys(ks, key, nodeKey); {
		case cmp < 0:
			off = left
		case cmp > 0:
			off = right
		default:
			return buf[payloadOff : payloadOff+payloadLen]
		}
	}
	t.Fatal("walk did not terminate")
	return nil
}

func TestBuildLookupAllTermKeys(t *testing.T) {
	b := NewBuilder(KeyspaceTerm)
	entries := map[string]string{
		"alpha": "p1", "beta": "p2", "gamma": "p3", "delta": "p4",
		"epsilon": "p5", "zeta": "", "eta": "p7",
	}
	// Insert out of order; Build sorts.
	for k, v := range entries {
		b.Add([]byte(k), []byte(v))
	}
	buf, rootOff, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	if rootOff != 0 {
		t.Fatalf("rootOff = %d, want 0 (root placed first)", rootOff)
	}
	for k, v := range entries {
		got := walk(t, buf, rootOff, KeyspaceTerm, []byte(k))
		if string(got) != v {
			t.Errorf("lookup %q = %q, want %q", k, got, v)
		}
	}
	if got := walk(t, buf, rootOff, KeyspaceTerm, []byte("missing")); got != nil {
		t.Errorf("lookup missing = %q, want nil", got)
	}
}

func TestBuildLookupDocKeys(t *testing.T) {
	b := NewBuilder(KeyspaceDoc)
	ids := []uint32{512, 2, 77, 300, 1, 65536}
	for _, id := range ids {
		b.AddDoc(id, []byte{byte(id)})
	}
	buf, rootOff, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	for _, id := range ids {
		got := walk(t, buf, rootOff, KeyspaceDoc, EncodeDocKey(id))
		if len(got) != 1 || got[0] != byte(id) {
			t.Errorf("lookup doc %d = %v", id, got)
		}
	}
	if got := walk(t, buf, rootOff, KeyspaceDoc, EncodeDocKey(999)); got != nil {
		t.Errorf("lookup doc 999 = %v, want nil", got)
	}
}
