package mcpserver

import (
	"encoding/json"
	"fmt"
	"strings"

	"pivoteditor/internal/domain"
)

// patchFields are the arguments edit_pivot understands.
var patchFields = []string{
	domain.KeyID, domain.KeyName, domain.KeyModel, domain.KeyDomain,
	domain.KeyRowGroupBys, domain.KeyMeasures, domain.KeySortedColumn,
}

// patchFromArgs builds a PivotPatch from tool arguments. Free-form fields may
// be given either as JSON values or as JSON text.
func patchFromArgs(args map[string]any) (domain.PivotPatch, error) {
	fields := make(map[string]any, len(patchFields))
	for _, key := range patchFields {
		v, ok := args[key]
		if !ok || v == nil {
			continue
		}
		if text, isText := v.(string); isText && key != domain.KeyID && key != domain.KeyName && key != domain.KeyModel {
			if !json.Valid([]byte(text)) {
				return domain.PivotPatch{}, fmt.Errorf("%s: %w", key, domain.ErrInvalidJSON)
			}
			v = json.RawMessage(text)
		}
		fields[key] = v
	}

	data, err := json.Marshal(fields)
	if err != nil {
		return domain.PivotPatch{}, fmt.Errorf("encode patch: %w", err)
	}
	var patch domain.PivotPatch
	if err := json.Unmarshal(data, &patch); err != nil {
		return domain.PivotPatch{}, fmt.Errorf("decode patch: %w", err)
	}
	return patch, nil
}

// pivotIDFromURI extracts the id of pivots://pivot/{id}.
func pivotIDFromURI(uri string) string {
	const prefix = "pivots://pivot/"
	if !strings.HasPrefix(uri, prefix) {
		return ""
	}
	return strings.TrimPrefix(uri, prefix)
}
