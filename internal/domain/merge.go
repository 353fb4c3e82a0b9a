package domain

import "math/big"

// ImportedName replaces the name of every pivot brought in by Merge.
const ImportedName = "imported"

// ImportResult describes what Merge added.
type ImportResult struct {
	Count   int      `json:"count"`
	FirstID string   `json:"firstId,omitempty"`
	IDs     []string `json:"ids,omitempty"`
}

// Merge adds every pivot of incoming to base under fresh ids. New ids
// continue after the largest numeric id of base, so they never collide with
// an existing key. Imported pivots are renamed to ImportedName; everything
// else is copied as-is. An incoming document without pivots returns base
// unchanged and a zero Count.
func Merge(base, incoming Document) (Document, ImportResult) {
	entries := incoming.List()
	if len(entries) == 0 {
		return base, ImportResult{}
	}

	next := base.copy()
	maxID := base.MaxNumericID()
	one := big.NewInt(1)
	result := ImportResult{IDs: make([]string, 0, len(entries))}
	for _, e := range entries {
		maxID.Add(maxID, one)
		id := maxID.String()
		p := e.Pivot
		if !p.Opaque() {
			p.ID = id
			p.Name = ImportedName
			delete(p.Extra, KeyID)
			delete(p.Extra, KeyName)
			if len(p.Extra) == 0 {
				p.Extra = nil
			}
		}
		next.pivots[id] = p
		result.IDs = append(result.IDs, id)
	}
	result.Count = len(result.IDs)
	result.FirstID = result.IDs[0]
	return next, result
}
