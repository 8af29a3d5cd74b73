// Package jsonx converts between typed values and generic JSON trees.
package jsonx

import json "github.com/goccy/go-json"

// ToDynamicJSON round-trips val through JSON into a generic object.
// It fails when val does not encode to a JSON object.
func ToDynamicJSON(val any) (map[string]any, error) {
	b, err := json.Marshal(val)
	if err != nil {
		return nil, err
	}
	result := make(map[string]any)
	if err := json.Unmarshal(b, &result); err != nil {
		return nil, err
	}
	return result, nil
}
