package contract

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEventReservedKeysWin(t *testing.T) {
	ev := NewEvent(LoginSuccessEvent,
		map[string]any{"success": true, "data": "tok"},
		map[string]any{"data": "spoofed", "type": "failure", "operator": "CMCC"},
	)

	assert.Equal(t, LoginSuccessEvent, ev.Type)
	assert.Equal(t, "tok", ev.String("data"))
	assert.Equal(t, "CMCC", ev.String("operator"))
	_, hasType := ev.Fields["type"]
	assert.False(t, hasType)
}

func TestNewEventDropsReservedExtrasTheVariantDoesNotSet(t *testing.T) {
	ev := NewEvent(SuccessEvent,
		map[string]any{"data": "tok"},
		map[string]any{"error": "spoofed", "code": "KEY_ERROR", "success": false, "phone": "138****0000"},
	)

	assert.Equal(t, map[string]any{"data": "tok", "phone": "138****0000"}, ev.Fields)
	assert.Equal(t, map[string]any{"type": "success", "data": "tok", "phone": "138****0000"}, ev.Payload())
}

func TestEventJSONIsFlat(t *testing.T) {
	ev := NewEvent(FailureEvent, map[string]any{"error": "boom"}, nil)

	raw, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"failure","error":"boom"}`, string(raw))

	var back Event
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, FailureEvent, back.Type)
	assert.Equal(t, "boom", back.String("error"))
}

func TestCallbackFuncsToleratesNilClosures(t *testing.T) {
	var got string
	cb := CallbackFuncs{Success: func(data string, _ map[string]any) { got = data }}

	cb.OnSuccess("ok", nil)
	cb.OnFailure("ignored", nil)

	assert.Equal(t, "ok", got)
}
