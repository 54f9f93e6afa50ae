package search

import (
	"io"
	"strconv"
)

// WritePage streams a result page as JSON. Stored documents are well-formed
// serialized JSON objects already; they are written verbatim, never parsed
// or re-serialized.
//
// Shape: {"results":[<doc>,...],"continuation":<int|null>,"total":<int>}
func WritePage(w io.Writer, p *Page) error {
	if _, err := io.WriteString(w, `{"results":`); err != nil {
		return err
	}
	if p.DefaultRaw != nil {
		if _, err := w.Write(p.DefaultRaw); err != nil {
			return err
		}
	} else {
		if _, err := w.Write([]byte{'['}); err != nil {
			return err
		}
		for i, doc := range p.Docs {
			if i > 0 {
				if _, err := w.Write([]byte{','}); err != nil {
					return err
				}
			}
			if _, err := w.Write(doc); err != nil {
				return err
			}
		}
		if _, err := w.Write([]byte{']'}); err != nil {
			return err
		}
	}

	if _, err := io.WriteString(w, `,"continuation":`); err != nil {
		return err
	}
	next := "null"
	if p.Next != nil {
		next = strconv.FormatUint(uint64(*p.Next), 10)
	}
	if _, err := io.WriteString(w, next); err != nil {
		return err
	}

	if _, err := io.WriteString(w, `,"total":`); err != nil {
		return err
	}
	if _, err := io.WriteString(w, strconv.FormatUint(uint64(p.Total), 10)); err != nil {
		return err
	}
	_, err := io.WriteString(w, "}")
	return err
}
