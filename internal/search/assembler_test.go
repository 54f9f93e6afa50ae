package search

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestWritePageDocs(t *testing.T) {
	next := uint32(40)
	p := &Page{
		Total: 123,
		Next:  &next,
		Docs: [][]byte{
			[]byte(`{"id":1,"title":"first"}`),
			[]byte(`{"id":2,"title":"second"}`),
		},
		Outcome: OutcomeOK,
	}
	var buf bytes.Buffer
	if err := WritePage(&buf, p); err != nil {
		t.Fatal(err)
	}
	want := `{"results":[{"id":1,"title":"first"},{"id":2,"title":"second"}],"continuation":40,"total":123}`
	if buf.String() != want {
		t.Fatalf("WritePage = %s\nwant        %s", buf.String(), want)
	}
}

func TestWritePageLastPage(t *testing.T) {
	p := &Page{Total: 1, Docs: [][]byte{[]byte(`{"id":9}`)}, Outcome: OutcomeOK}
	var buf bytes.Buffer
	if err := WritePage(&buf, p); err != nil {
		t.Fatal(err)
	}
	want := `{"results":[{"id":9}],"continuation":null,"total":1}`
	if buf.String() != want {
		t.Fatalf("WritePage = %s", buf.String())
	}
}

func TestWritePageEmpty(t *testing.T) {
	p := &Page{Outcome: OutcomeShortCircuit}
	var buf bytes.Buffer
	if err := WritePage(&buf, p); err != nil {
		t.Fatal(err)
	}
	want := `{"results":[],"continuation":null,"total":0}`
	if buf.String() != want {
		t.Fatalf("WritePage = %s", buf.String())
	}
}

func TestWritePageDefaultSnapshot(t *testing.T) {
	p := &Page{
		DefaultRaw: []byte(`[{"id":7},{"id":8}]`),
		Outcome:    OutcomeDefault,
	}
	var buf bytes.Buffer
	if err := WritePage(&buf, p); err != nil {
		t.Fatal(err)
	}
	want := `{"results":[{"id":7},{"id":8}],"continuation":null,"total":0}`
	if buf.String() != want {
		t.Fatalf("WritePage = %s", buf.String())
	}
}

func TestWritePageProducesValidJSON(t *testing.T) {
	next := uint32(20)
	p := &Page{Total: 99, Next: &next, Docs: [][]byte{[]byte(`{"k":"v"}`)}}
	var buf bytes.Buffer
	if err := WritePage(&buf, p); err != nil {
		t.Fatal(err)
	}
	var decoded struct {
		Results      []map[string]any `json:"results"`
		Continuation *uint32          `json:"continuation"`
		Total        uint32           `json:"total"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON %s: %v", buf.String(), err)
	}
	if decoded.Continuation == nil || *decoded.Continuation != 20 || decoded.Total != 99 {
		t.Fatalf("decoded = %+v", decoded)
	}
}
