// Package canonical implements the stable serialization and key
// normalization rules that every hash, signature, and identifier in DERC
// is derived from. Two values that are semantically equal must always
// canonicalize to byte-identical output, on any platform, in any process.
package canonical

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Serialize produces the canonical byte representation of value: object
// keys sorted lexicographically, no insignificant whitespace, strings
// NFKD-normalized, floats with a fractional part rendered with exactly 9
// fractional digits and integers rendered without a decimal point. A
// float with no fractional part (e.g. 1.0) is rendered like an integer
// ("1"), not with 9 fractional digits.
//
// value may be a Go struct (marshaled through encoding/json first), a
// map[string]any, a slice, or any JSON-compatible scalar.
func Serialize(value any) ([]byte, error) {
	generic, err := toGeneric(value)
	if err != nil {
		return nil, fmt.Errorf("canonical: normalize input: %w", err)
	}

	var buf bytes.Buffer
	if err := encode(&buf, generic); err != nil {
		return nil, fmt.Errorf("canonical: encode: %w", err)
	}
	return buf.Bytes(), nil
}

// MustSerialize panics on error; intended for call sites where the input
// is already known-canonicalizable (constructed by this package's own
// constructors), mirroring how deterministic ID derivation treats
// canonicalization failures as programmer errors, not caller errors.
func MustSerialize(value any) []byte {
	out, err := Serialize(value)
	if err != nil {
		panic(err)
	}
	return out
}

// toGeneric round-trips value through encoding/json with UseNumber so
// that integers and floats remain distinguishable (encoding/json's
// default float64 decoding would otherwise erase that distinction before
// we ever get a chance to apply the 9-decimal float rule).
func toGeneric(value any) (any, error) {
	switch v := value.(type) {
	case nil, bool, string, json.Number:
		return v, nil
	case map[string]any, []any:
		return v, nil
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

func encode(buf *bytes.Buffer, value any) error {
	switch v := value.(type) {
	case nil:
		buf.WriteString("null")
		return nil
	case bool:
		if v {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
		return nil
	case string:
		encodeString(buf, v)
		return nil
	case json.Number:
		return encodeNumber(buf, v)
	case float64:
		return encodeNumber(buf, formatFloatAsNumber(v))
	case int, int32, int64, uint, uint32, uint64:
		fmt.Fprintf(buf, "%d", v)
		return nil
	case map[string]any:
		return encodeObject(buf, v)
	case []any:
		return encodeArray(buf, v)
	default:
		return fmt.Errorf("unsupported type %T in canonical value", value)
	}
}

func formatFloatAsNumber(f float64) json.Number {
	return json.Number(strconv.FormatFloat(f, 'f', -1, 64))
}

// encodeNumber applies the canonical float rule: any number literal
// containing a fractional or exponent part is rounded (half-to-even, as
// performed by Go's correctly-rounded decimal formatting) to exactly 9
// fractional digits; anything else (a bare integer literal) passes
// through unchanged with no decimal point.
func encodeNumber(buf *bytes.Buffer, n json.Number) error {
	s := string(n)
	if !strings.ContainsAny(s, ".eE") {
		buf.WriteString(s)
		return nil
	}
	f, err := n.Float64()
	if err != nil {
		return fmt.Errorf("canonical: invalid number %q: %w", s, err)
	}
	buf.WriteString(strconv.FormatFloat(f, 'f', 9, 64))
	return nil
}

func encodeString(buf *bytes.Buffer, s string) {
	normalized := nfkd(s)
	raw, _ := json.Marshal(normalized) // json.Marshal never fails on string
	// json.Marshal leaves non-ASCII runes unescaped; it escapes only <, >,
	// &, U+2028, U+2029 and control characters, so Unicode text is written
	// as-is.
	buf.Write(raw)
}

func encodeObject(buf *bytes.Buffer, m map[string]any) error {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, nfkd(k))
	}
	// Re-key by normalized form so sort order matches normalized comparison.
	normalized := make(map[string]any, len(m))
	for k, v := range m {
		normalized[nfkd(k)] = v
	}
	sort.Strings(keys)

	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		encodeString(buf, k)
		buf.WriteByte(':')
		if err := encode(buf, normalized[k]); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

func encodeArray(buf *bytes.Buffer, a []any) error {
	buf.WriteByte('[')
	for i, v := range a {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := encode(buf, v); err != nil {
			return err
		}
	}
	buf.WriteByte(']')
	return nil
}

// Decode parses canonical (or any valid) JSON bytes back into a generic
// value tree using the same UseNumber discipline as Serialize, so that
// Serialize(Decode(Serialize(x))) == Serialize(x).
func Decode(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("canonical: decode: %w", err)
	}
	return out, nil
}
