package wire

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// The engine reports diagnostics as a C-style format string plus a buffer of
// positional arguments, one 8-byte little-endian slot per argument. Only a
// small conversion set is supported; flags, field widths, and precisions are
// rejected outright since silently ignoring them would hide a build/runtime
// mismatch.

type convKind int

const (
	convI32 convKind = iota
	convU32
	convI64
	convU64
	convF64
	convStr
	convChar
	convPtr
)

type token struct {
	lit  string   // literal text, "" for conversions
	kind convKind // valid when lit == ""
	verb byte     // original verb, for float casing/notation
}

// Format is a compiled format string. Compile once, format many times.
type Format struct {
	tokens []token
	nargs  int
}

// Compile parses a restricted printf format string into a token sequence.
// Supported: %d %i %u (32-bit), %lld %lli %llu %jd %ji %ju (64-bit),
// %f %F %e %E (double), %s (string-by-reference), %c, %p, %%.
func Compile(format string) (*Format, error) {
	f := &Format{}
	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			f.tokens = append(f.tokens, token{lit: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' {
			lit.WriteByte(c)
			continue
		}
		i++
		if i >= len(format) {
			return nil, fmt.Errorf("%w: trailing %%", ErrBadFormat)
		}
		if format[i] == '%' {
			lit.WriteByte('%')
			continue
		}
		if isSpecifierModifier(format[i]) {
			return nil, fmt.Errorf("%w: flag/width/precision %q", ErrBadFormat, format[i])
		}

		wide := false
		switch format[i] {
		case 'l':
			if i+1 >= len(format) || format[i+1] != 'l' {
				return nil, fmt.Errorf("%w: length prefix %%l", ErrBadFormat)
			}
			wide = true
			i += 2
		case 'j':
			wide = true
			i++
		}
		if i >= len(format) {
			return nil, fmt.Errorf("%w: truncated conversion", ErrBadFormat)
		}

		verb := format[i]
		var kind convKind
		switch verb {
		case 'd', 'i':
			kind = convI32
			if wide {
				kind = convI64
			}
		case 'u':
			kind = convU32
			if wide {
				kind = convU64
			}
		case 'f', 'F', 'e', 'E':
			if wide {
				return nil, fmt.Errorf("%w: %%ll%c", ErrBadFormat, verb)
			}
			kind = convF64
		case 's':
			if wide {
				return nil, fmt.Errorf("%w: %%ll%c", ErrBadFormat, verb)
			}
			kind = convStr
		case 'c':
			if wide {
				return nil, fmt.Errorf("%w: %%ll%c", ErrBadFormat, verb)
			}
			kind = convChar
		case 'p':
			if wide {
				return nil, fmt.Errorf("%w: %%ll%c", ErrBadFormat, verb)
			}
			kind = convPtr
		default:
			return nil, fmt.Errorf("%w: %%%c", ErrBadFormat, verb)
		}

		flush()
		f.tokens = append(f.tokens, token{kind: kind, verb: verb})
		f.nargs++
	}
	flush()
	return f, nil
}

func isSpecifierModifier(c byte) bool {
	switch c {
	case '-', '+', ' ', '#', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9', '.', '*', '\'':
		return true
	}
	return false
}

// NumArgs returns the number of argument slots the format consumes.
func (f *Format) NumArgs() int {
	return f.nargs
}

// Interp materializes a compiled format against an argument buffer. String
// conversions resolve their reference against mem, the same memory region the
// argument buffer was read from.
func (f *Format) Interp(mem []byte, argBuf []byte) (string, error) {
	args := NewReader(argBuf)
	var out strings.Builder
	for _, t := range f.tokens {
		if t.lit != "" {
			out.WriteString(t.lit)
			continue
		}
		slot, err := args.U64LE()
		if err != nil {
			return "", fmt.Errorf("reading argument slot: %w", err)
		}
		switch t.kind {
		case convI32:
			out.WriteString(strconv.FormatInt(int64(int32(uint32(slot))), 10))
		case convU32:
			out.WriteString(strconv.FormatUint(uint64(uint32(slot)), 10))
		case convI64:
			out.WriteString(strconv.FormatInt(int64(slot), 10))
		case convU64:
			out.WriteString(strconv.FormatUint(slot, 10))
		case convF64:
			out.WriteString(formatDouble(slot, t.verb))
		case convStr:
			ref := uint32(slot)
			sr := NewReader(mem)
			if err := sr.Seek(ref); err != nil {
				return "", err
			}
			s, err := sr.CString()
			if err != nil {
				return "", err
			}
			out.WriteString(s)
		case convChar:
			out.WriteByte(byte(slot))
		case convPtr:
			out.WriteString("0x" + strconv.FormatUint(slot, 16))
		}
	}
	return out.String(), nil
}

// Sprintf compiles and interprets in one step.
func Sprintf(mem []byte, format string, argBuf []byte) (string, error) {
	f, err := Compile(format)
	if err != nil {
		return "", err
	}
	return f.Interp(mem, argBuf)
}

func formatDouble(bits uint64, verb byte) string {
	v := math.Float64frombits(bits)
	var s string
	switch verb {
	case 'e', 'E':
		s = strconv.FormatFloat(v, 'e', 6, 64)
	default:
		s = strconv.FormatFloat(v, 'f', 6, 64)
	}
	if verb == 'E' || verb == 'F' {
		s = strings.ToUpper(s)
	}
	return s
}
