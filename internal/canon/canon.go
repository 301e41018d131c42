package canon

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"slices"
	"strconv"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

// Marshal produces canonical JSON for v.
//
// Differences from json.Marshal:
//  1. Object keys sorted by UTF-16 code units (not UTF-8 bytes)
//  2. No HTML escaping (< > & are NOT escaped)
//  3. Strings are NFC normalized
//  4. Any integer kind, any slice/array, maps with string keys and structs
//     (exported fields, keyed by Go field name) are accepted
//  5. Floats use the shortest representation; NaN and Inf are rejected
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := encode(&buf, reflect.ValueOf(v)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Equal reports whether a and b have the same canonical form.
// Values that cannot be marshaled are never equal.
func Equal(a, b any) bool {
	ab, err := Marshal(a)
	if err != nil {
		return false
	}
	bb, err := Marshal(b)
	if err != nil {
		return false
	}
	return bytes.Equal(ab, bb)
}

// String returns the canonical form of v, or a Go-syntax fallback when v
// cannot be marshaled.
func String(v any) string {
	b, err := Marshal(v)
	if err != nil {
		return fmt.Sprintf("%#v", v)
	}
	return string(b)
}

func encode(buf *bytes.Buffer, v reflect.Value) error {
	if !v.IsValid() {
		buf.WriteString("null")
		return nil
	}

	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			buf.WriteString("null")
			return nil
		}
		return encode(buf, v.Elem())

	case reflect.Bool:
		if v.Bool() {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
		return nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		buf.WriteString(strconv.FormatInt(v.Int(), 10))
		return nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		buf.WriteString(strconv.FormatUint(v.Uint(), 10))
		return nil

	case reflect.Float32, reflect.Float64:
		f := v.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("non-finite float %v has no canonical form", f)
		}
		if f == math.Trunc(f) && math.Abs(f) < 1e21 {
			buf.WriteString(strconv.FormatFloat(f, 'f', -1, 64))
			return nil
		}
		buf.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
		return nil

	case reflect.String:
		return encodeString(buf, v.String())

	case reflect.Slice, reflect.Array:
		if v.Kind() == reflect.Slice && v.IsNil() {
			buf.WriteString("null")
			return nil
		}
		buf.WriteByte('[')
		for i := 0; i < v.Len(); i++ {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encode(buf, v.Index(i)); err != nil {
				return fmt.Errorf("array[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
		return nil

	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return fmt.Errorf("unsupported map key type %s", v.Type().Key())
		}
		if v.IsNil() {
			buf.WriteString("null")
			return nil
		}
		fields := make(map[string]reflect.Value, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			fields[iter.Key().String()] = iter.Value()
		}
		return encodeObject(buf, fields)

	case reflect.Struct:
		t := v.Type()
		fields := make(map[string]reflect.Value, t.NumField())
		for i := 0; i < t.NumField(); i++ {
			if t.Field(i).IsExported() {
				fields[t.Field(i).Name] = v.Field(i)
			}
		}
		return encodeObject(buf, fields)
	}

	return fmt.Errorf("unsupported type for canonical JSON: %s", v.Type())
}

func encodeObject(buf *bytes.Buffer, fields map[string]reflect.Value) error {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, CompareKeys)

	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := encodeString(buf, k); err != nil {
			return err
		}
		buf.WriteByte(':')
		if err := encode(buf, fields[k]); err != nil {
			return fmt.Errorf("object[%q]: %w", k, err)
		}
	}
	buf.WriteByte('}')
	return nil
}

// encodeString writes s as an NFC-normalized JSON string without HTML
// escaping. U+2028 and U+2029 are written literally.
func encodeString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(norm.NFC.String(s)); err != nil {
		return err
	}
	out := bytes.TrimSuffix(tmp.Bytes(), []byte("\n"))
	buf.Write(unescapeLineSeparators(out))
	return nil
}

// unescapeLineSeparators turns the \u2028 and \u2029 escapes emitted by
// encoding/json back into literal characters. An escape preceded by an
// odd number of backslashes is literal text and is left alone.
func unescapeLineSeparators(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u202`)) {
		return data
	}

	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if data[i] == '\\' && i+5 < len(data) && string(data[i+1:i+5]) == "u202" &&
			(data[i+5] == '8' || data[i+5] == '9') {
			backslashes := 0
			for j := len(out) - 1; j >= 0 && out[j] == '\\'; j-- {
				backslashes++
			}
			if backslashes%2 == 0 {
				if data[i+5] == '8' {
					out = append(out, "\u2028"...)
				} else {
					out = append(out, "\u2029"...)
				}
				i += 5
				continue
			}
		}
		out = append(out, data[i])
	}
	return out
}

// CompareKeys orders strings by UTF-16 code units as RFC 8785 requires.
// Go's native string comparison uses UTF-8 bytes, which differs for
// characters outside the BMP.
func CompareKeys(a, b string) int {
	return slices.Compare(utf16.Encode([]rune(a)), utf16.Encode([]rune(b)))
}
