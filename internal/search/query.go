// Package search orchestrates query execution: parsing request parameters,
// resolving terms and documents against the chunked index, invoking the
// computation engine, and assembling the response page.
package search

import (
	"net/url"
	"strconv"

	errs "github.com/edgequery/edgequery/pkg/errors"
)

// Mode is a term's role in the boolean query.
type Mode int

const (
	ModeRequire Mode = iota // AND
	ModeContain             // OR
	ModeExclude             // NOT
)

func (m Mode) String() string {
	switch m {
	case ModeRequire:
		return "require"
	case ModeContain:
		return "contain"
	case ModeExclude:
		return "exclude"
	default:
		return "unknown"
	}
}

// ParsedQuery is the decoded request: three ordered term lists and a
// continuation cursor. Order within a list does not affect correctness.
type ParsedQuery struct {
	Require []string
	Contain []string
	Exclude []string
	Cursor  int32
}

// TermCount returns the number of terms across all three modes.
func (q *ParsedQuery) TermCount() int {
	return len(q.Require) + len(q.Contain) + len(q.Exclude)
}

// Parse decodes query parameters into a ParsedQuery and applies the
// build-time limits. No I/O happens here or may happen before it: a query
// over the term or byte budget is rejected before any chunk is fetched.
//
// Term parameters repeat as t=<mode>_<term> with mode 0 (require),
// 1 (contain), or 2 (exclude); any other shape fails the whole request.
// The cursor parameter c defaults to 0; negative or non-numeric values are
// treated as 0.
func Parse(values url.Values, maxTerms, maxQueryBytes int) (*ParsedQuery, error) {
	if maxQueryBytes > 0 && len(values.Encode()) > maxQueryBytes {
		return nil, errs.Newf(errs.ErrQueryTooLarge, 413,
			"serialized query exceeds %d bytes", maxQueryBytes)
	}

	q := &ParsedQuery{}
	for _, t := range values["t"] {
		if len(t) < 3 || t[1] != '_' {
			return nil, errs.Newf(errs.ErrMalformedQuery, 400, "invalid term parameter %q", t)
		}
		term := t[2:]
		switch t[0] {
		case '0':
			q.Require = append(q.Require, term)
		case '1':
			q.Contain = append(q.Contain, term)
		case '2':
			q.Exclude = append(q.Exclude, term)
		default:
			return nil, errs.Newf(errs.ErrMalformedQuery, 400, "invalid term mode in %q", t)
		}
	}
	if q.TermCount() > maxTerms {
		return nil, errs.Newf(errs.ErrQueryTooLarge, 413,
			"query has %d terms, maximum is %d", q.TermCount(), maxTerms)
	}

	if c := values.Get("c"); c != "" {
		if n, err := strconv.ParseInt(c, 10, 32); err == nil && n > 0 {
			q.Cursor = int32(n)
		}
	}
	return q, nil
}
