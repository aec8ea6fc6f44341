package contract

import (
	"encoding/json"
	"maps"
)

type EventType string

const (
	SuccessEvent      EventType = "success"
	FailureEvent      EventType = "failure"
	LoginSuccessEvent EventType = "login_success"
	LoginFailureEvent EventType = "login_failure"
)

// Event is a payload pushed on the event channel. It is encoded flat:
// {"type": ..., <fields>...}.
type Event struct {
	Type   EventType
	Fields map[string]any
}

// ReservedKeys are set only by the bridge; extras never carry them.
var ReservedKeys = []string{"type", "data", "error", "code", "success"}

// NewEvent builds an Event from fields plus extra, with the reserved keys
// stripped from extra.
func NewEvent(typ EventType, fields map[string]any, extra map[string]any) Event {
	merged := make(map[string]any, len(fields)+len(extra))
	maps.Copy(merged, extra)
	for _, key := range ReservedKeys {
		delete(merged, key)
	}
	maps.Copy(merged, fields)
	delete(merged, "type")
	return Event{Type: typ, Fields: merged}
}

// Payload returns the flat map representation.
func (e Event) Payload() map[string]any {
	out := make(map[string]any, len(e.Fields)+1)
	maps.Copy(out, e.Fields)
	out["type"] = string(e.Type)
	return out
}

func (e Event) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Payload())
}

func (e *Event) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	typ, _ := raw["type"].(string)
	delete(raw, "type")
	e.Type = EventType(typ)
	e.Fields = raw
	return nil
}

// String returns the value under key when it is a string.
func (e Event) String(key string) string {
	s, _ := e.Fields[key].(string)
	return s
}
