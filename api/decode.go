package api

import (
	"encoding/json"
	"fmt"
)

// arguments is the decoded argument bundle of an Action.
type arguments map[string]json.RawMessage

// decodeArgs decodes the argument object. Missing or null args decode to an
// empty bundle.
func decodeArgs(raw json.RawMessage) (arguments, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return arguments{}, nil
	}
	var args arguments
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("arguments must be an object: %w", err)
	}
	if args == nil {
		args = arguments{}
	}
	return args, nil
}

// String returns the string argument under key. Missing, null or non-string
// values read as "".
func (a arguments) String(key string) string {
	raw, ok := a[key]
	if !ok {
		return ""
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return ""
	}
	return value
}
