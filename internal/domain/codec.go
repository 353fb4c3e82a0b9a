package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Parse decodes a document. It fails only when the input is not well-formed
// JSON or the top-level value is not an object; the shape of the content is
// not validated.
func Parse(data []byte) (Document, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	var root map[string]json.RawMessage
	if err := json.Unmarshal(data, &root); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return Document{}, &ParseError{Err: fmt.Errorf("top-level value is %s, not an object", typeErr.Value)}
		}
		return Document{}, &ParseError{Err: err}
	}
	if root == nil {
		return Document{}, &ParseError{Err: errors.New("top-level value is null, not an object")}
	}

	var doc Document
	for key, value := range root {
		raw, err := compactRaw(value)
		if err != nil {
			return Document{}, &ParseError{Err: err}
		}
		if key != keyPivots {
			if doc.extra == nil {
				doc.extra = make(map[string]json.RawMessage)
			}
			doc.extra[key] = raw
			continue
		}

		var entries map[string]json.RawMessage
		if err := json.Unmarshal(raw, &entries); err != nil || entries == nil {
			// pivots exists but is not an object; carry it untouched.
			if doc.extra == nil {
				doc.extra = make(map[string]json.RawMessage)
			}
			doc.extra[key] = raw
			continue
		}
		doc.hasPivots = true
		doc.pivots = make(map[string]Pivot, len(entries))
		for id, entry := range entries {
			p, err := parsePivot(entry)
			if err != nil {
				return Document{}, &ParseError{Err: fmt.Errorf("pivot %s: %w", id, err)}
			}
			doc.pivots[id] = p
		}
	}
	return doc, nil
}

// Serialize encodes a document with deterministic two-space indentation.
func Serialize(doc Document) ([]byte, error) {
	var compact bytes.Buffer
	if err := doc.writeTo(&compact); err != nil {
		return nil, fmt.Errorf("serialize document: %w", err)
	}
	var out bytes.Buffer
	if err := json.Indent(&out, compact.Bytes(), "", "  "); err != nil {
		return nil, fmt.Errorf("indent document: %w", err)
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

// objectWriter emits a compact JSON object field by field. The first error
// sticks and is returned by close.
type objectWriter struct {
	buf   *bytes.Buffer
	first bool
	err   error
}

func newObjectWriter(buf *bytes.Buffer) *objectWriter {
	buf.WriteByte('{')
	return &objectWriter{buf: buf, first: true}
}

func (w *objectWriter) key(k string) {
	if !w.first {
		w.buf.WriteByte(',')
	}
	w.first = false
	w.write(k)
	w.buf.WriteByte(':')
}

func (w *objectWriter) raw(k string, v json.RawMessage) {
	if w.err != nil {
		return
	}
	w.key(k)
	if len(v) == 0 {
		w.buf.WriteString("null")
		return
	}
	w.buf.Write(v)
}

func (w *objectWriter) str(k, v string) {
	w.value(k, v)
}

func (w *objectWriter) value(k string, v any) {
	if w.err != nil {
		return
	}
	w.key(k)
	w.write(v)
}

func (w *objectWriter) measures(k string, ms []Measure) {
	if w.err != nil {
		return
	}
	w.key(k)
	w.buf.WriteByte('[')
	for i, m := range ms {
		if i > 0 {
			w.buf.WriteByte(',')
		}
		mw := newObjectWriter(w.buf)
		mw.str("field", m.Field)
		for _, ek := range sortedKeys(m.Extra) {
			mw.raw(ek, m.Extra[ek])
		}
		if err := mw.close(); err != nil {
			w.err = err
			return
		}
	}
	w.buf.WriteByte(']')
}

func (w *objectWriter) write(v any) {
	b, err := encodeValue(v)
	if err != nil {
		w.err = err
		return
	}
	w.buf.Write(b)
}

func (w *objectWriter) close() error {
	w.buf.WriteByte('}')
	return w.err
}

// encodeValue marshals v without HTML escaping so names like "a<b" stay readable.
func encodeValue(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
