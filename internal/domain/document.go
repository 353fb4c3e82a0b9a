package domain

import (
	"bytes"
	"cmp"
	"encoding/json"
	"maps"
	"math/big"
	"reflect"
	"slices"
	"strconv"
	"strings"
)

const keyPivots = "pivots"

// Document is the loaded file: a mapping of pivot id to definition plus any
// other top-level keys, kept verbatim.
//
// Document has value semantics. Every mutating method returns a new Document
// and leaves the receiver untouched, so a previous value can be kept around
// as a snapshot. The zero value is an empty document.
type Document struct {
	pivots    map[string]Pivot
	extra     map[string]json.RawMessage
	hasPivots bool
}

// Entry pairs a pivot with its key.
type Entry struct {
	ID    string `json:"id"`
	Pivot Pivot  `json:"pivot"`
}

// NewDocument builds a document holding the given pivots.
func NewDocument(pivots map[string]Pivot) Document {
	return Document{}.ReplaceAll(pivots)
}

// Get returns a copy of the pivot stored under id.
func (d Document) Get(id string) (Pivot, bool) {
	p, ok := d.pivots[id]
	if !ok {
		return Pivot{}, false
	}
	return p.Clone(), true
}

// Has reports whether a pivot is stored under id.
func (d Document) Has(id string) bool {
	_, ok := d.pivots[id]
	return ok
}

// Len returns the number of pivots.
func (d Document) Len() int {
	return len(d.pivots)
}

// IDs returns the pivot keys in iteration order.
func (d Document) IDs() []string {
	ids := slices.Collect(maps.Keys(d.pivots))
	slices.SortFunc(ids, compareIDs)
	return ids
}

// List returns copies of all pivots in iteration order: canonical integer keys
// ascending, then the remaining keys lexicographically.
func (d Document) List() []Entry {
	ids := d.IDs()
	out := make([]Entry, len(ids))
	for i, id := range ids {
		out[i] = Entry{ID: id, Pivot: d.pivots[id].Clone()}
	}
	return out
}

// First returns the first id in iteration order, or "" for an empty document.
func (d Document) First() string {
	ids := d.IDs()
	if len(ids) == 0 {
		return ""
	}
	return ids[0]
}

// Insert stores p under id, replacing any previous entry.
func (d Document) Insert(id string, p Pivot) Document {
	next := d.copy()
	next.pivots[id] = p.Clone()
	return next
}

// Remove deletes the pivot stored under id.
func (d Document) Remove(id string) Document {
	if !d.Has(id) {
		return d
	}
	next := d.copy()
	delete(next.pivots, id)
	return next
}

// Rename moves the pivot under from to the key to, storing p. Both changes
// land in the same returned value.
func (d Document) Rename(from, to string, p Pivot) Document {
	next := d.copy()
	delete(next.pivots, from)
	next.pivots[to] = p.Clone()
	return next
}

// ReplaceAll swaps the whole pivot mapping, keeping other top-level keys.
func (d Document) ReplaceAll(pivots map[string]Pivot) Document {
	next := Document{extra: d.extra, hasPivots: true}
	next.pivots = make(map[string]Pivot, len(pivots))
	for id, p := range pivots {
		next.pivots[id] = p.Clone()
	}
	if _, clash := d.extra[keyPivots]; clash {
		next.extra = cloneRawMap(d.extra)
		delete(next.extra, keyPivots)
	}
	return next
}

// Extra returns the top-level keys other than pivots.
func (d Document) Extra() map[string]json.RawMessage {
	return cloneRawMap(d.extra)
}

// MaxNumericID returns the largest key made only of decimal digits, or 0.
// Keys of any length count, so the result is unbounded.
func (d Document) MaxNumericID() *big.Int {
	maxID := new(big.Int)
	n := new(big.Int)
	for id := range d.pivots {
		if id == "" || strings.TrimLeft(id, "0123456789") != "" {
			continue
		}
		if _, ok := n.SetString(id, 10); ok && n.Cmp(maxID) > 0 {
			maxID.Set(n)
		}
	}
	return maxID
}

// NextID returns the id a newly created pivot should get. It is never a key
// of d.
func (d Document) NextID() string {
	return new(big.Int).Add(d.MaxNumericID(), big.NewInt(1)).String()
}

// Equal reports structural equality.
func (d Document) Equal(o Document) bool {
	if d.hasPivots != o.hasPivots || len(d.pivots) != len(o.pivots) {
		return false
	}
	if !reflect.DeepEqual(normalizeRawMap(d.extra), normalizeRawMap(o.extra)) {
		return false
	}
	for id, p := range d.pivots {
		q, ok := o.pivots[id]
		if !ok || !p.Equal(q) {
			return false
		}
	}
	return true
}

// copy returns a Document whose maps can be modified without touching d.
// Pivot values are shared; they are never mutated in place.
func (d Document) copy() Document {
	next := Document{
		pivots:    make(map[string]Pivot, len(d.pivots)+1),
		extra:     d.extra,
		hasPivots: true,
	}
	maps.Copy(next.pivots, d.pivots)
	if _, clash := d.extra[keyPivots]; clash {
		next.extra = cloneRawMap(d.extra)
		delete(next.extra, keyPivots)
	}
	return next
}

func (d Document) writeTo(buf *bytes.Buffer) error {
	keys := sortedKeys(d.extra)
	if d.hasPivots && !slices.Contains(keys, keyPivots) {
		keys = append(keys, keyPivots)
		slices.Sort(keys)
	}

	w := newObjectWriter(buf)
	for _, key := range keys {
		if key != keyPivots || !d.hasPivots {
			w.raw(key, d.extra[key])
			continue
		}
		w.key(key)
		pw := newObjectWriter(buf)
		for _, id := range d.IDs() {
			pw.key(id)
			if err := d.pivots[id].writeTo(buf); err != nil {
				return err
			}
		}
		if err := pw.close(); err != nil {
			return err
		}
	}
	return w.close()
}

// numericID parses keys made only of ASCII digits.
func numericID(id string) (int64, bool) {
	if id == "" || strings.TrimLeft(id, "0123456789") != "" {
		return 0, false
	}
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// canonicalIndex matches the keys a JavaScript object iterates first.
func canonicalIndex(id string) (int64, bool) {
	n, ok := numericID(id)
	if !ok || strconv.FormatInt(n, 10) != id {
		return 0, false
	}
	return n, true
}

func compareIDs(a, b string) int {
	na, aok := canonicalIndex(a)
	nb, bok := canonicalIndex(b)
	switch {
	case aok && bok:
		return cmp.Compare(na, nb)
	case aok:
		return -1
	case bok:
		return 1
	default:
		return strings.Compare(a, b)
	}
}

// normalizeRawMap maps empty to nil and compacts every value.
func normalizeRawMap(m map[string]json.RawMessage) map[string]json.RawMessage {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]json.RawMessage, len(m))
	for k, v := range m {
		out[k] = normalizeRaw(v)
	}
	return out
}

func normalizeRaw(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	if c, err := compactRaw(raw); err == nil {
		return c
	}
	return raw
}
