package query

import "encoding/json"

// Select re-expresses v as a JSON object holding only the named fields.
// The id is always kept so clients can address the selected item.
func Select(v any, fields []string) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var all map[string]any
	if err := json.Unmarshal(b, &all); err != nil {
		return nil, err
	}
	out := make(map[string]any, len(fields)+1)
	if id, ok := all["id"]; ok {
		out["id"] = id
	}
	for _, f := range fields {
		if val, ok := all[f]; ok {
			out[f] = val
		}
	}
	return out, nil
}
