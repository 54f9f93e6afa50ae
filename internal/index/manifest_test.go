package index

import (
	"testing"

	"github.com/RoaringBitmap/roaring/v2"
)

const termManifestJSON = `{
	"ranges": [
		{"first": "aardvark", "last": "fox", "chunk_id": 1, "root_offset": 0},
		{"first": "gazelle", "last": "mongoose", "chunk_id": 2, "root_offset": 64},
		{"first": "newt", "last": "zebra", "chunk_id": 3, "root_offset": 0}
	]
}`

func TestParseTermManifest(t *testing.T) {
	m, err := ParseTermManifest([]byte(termManifestJSON))
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Ranges) != 3 {
		t.Fatalf("len(Ranges) = %d", len(m.Ranges))
	}
}

func TestParseTermManifestRejectsOverlap(t *testing.T) {
	bad := `{"ranges": [
		{"first": "a", "last": "m", "chunk_id": 1},
		{"first": "h", "last": "z", "chunk_id": 2}
	]}`
	if _, err := ParseTermManifest([]byte(bad)); err == nil {
		t.Fatal("overlapping ranges should be rejected")
	}
}

func TestParseTermManifestRejectsInverted(t *testing.T) {
	bad := `{"ranges": [{"first": "z", "last": "a", "chunk_id": 1}]}`
	if _, err := ParseTermManifest([]byte(bad)); err == nil {
		t.Fatal("inverted range should be rejected")
	}
}

func TestTermManifestLocate(t *testing.T) {
	m, err := ParseTermManifest([]byte(termManifestJSON))
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		term  string
		chunk uint32
		found bool
	}{
		{"aardvark", 1, true},
		{"badger", 1, true},
		{"fox", 1, true},
		{"foxtrot", 0, false}, // gap between ranges
		{"gazelle", 2, true},
		{"lemur", 2, true},
		{"zebra", 3, true},
		{"zebrafish", 0, false}, // past the last range
		{"", 0, false},          // before the first range
	}
	for _, tt := range tests {
		ref, ok := m.Locate(tt.term)
		if ok != tt.found {
			t.Errorf("Locate(%q) found = %v, want %v", tt.term, ok, tt.found)
			continue
		}
		if ok && ref.ChunkID != tt.chunk {
			t.Errorf("Locate(%q) chunk = %d, want %d", tt.term, ref.ChunkID, tt.chunk)
		}
	}
}

func TestDocManifestLocate(t *testing.T) {
	m, err := ParseDocManifest([]byte(`{"ranges": [
		{"first": 1, "last": 100, "chunk_id": 10, "root_offset": 0},
		{"first": 200, "last": 300, "chunk_id": 11, "root_offset": 0}
	]}`))
	if err != nil {
		t.Fatal(err)
	}
	if ref, ok := m.Locate(50); !ok || ref.ChunkID != 10 {
		t.Fatalf("Locate(50) = %+v, %v", ref, ok)
	}
	if ref, ok := m.Locate(200); !ok || ref.ChunkID != 11 {
		t.Fatalf("Locate(200) = %+v, %v", ref, ok)
	}
	if _, ok := m.Locate(150); ok {
		t.Fatal("Locate(150) should miss the gap")
	}
	if _, ok := m.Locate(301); ok {
		t.Fatal("Locate(301) should miss")
	}
}

func TestDocManifestUniverse(t *testing.T) {
	m, err := ParseDocManifest([]byte(`{"ranges": [
		{"first": 1, "last": 3, "chunk_id": 1},
		{"first": 10, "last": 10, "chunk_id": 2}
	]}`))
	if err != nil {
		t.Fatal(err)
	}
	data, err := m.Universe()
	if err != nil {
		t.Fatal(err)
	}
	bm := roaring.New()
	if err := bm.UnmarshalBinary(data); err != nil {
		t.Fatal(err)
	}
	want := []uint32{1, 2, 3, 10}
	got := bm.ToArray()
	if len(got) != len(want) {
		t.Fatalf("universe = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("universe = %v, want %v", got, want)
		}
	}

	// Second call returns the same serialization.
	again, err := m.Universe()
	if err != nil {
		t.Fatal(err)
	}
	if &again[0] != &data[0] {
		t.Fatal("Universe not memoized")
	}
}
