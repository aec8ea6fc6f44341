package api

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oneclick_bridge/bridgetest"
	"oneclick_bridge/contract"
	"oneclick_bridge/logging"
)

func TestOnceResultForwardsFirstReplyOnly(t *testing.T) {
	inner := bridgetest.NewResult()
	once := newOnceResult(inner, contract.SetLogoMethod, logging.Nop())

	once.Error(contract.InvalidArguments, "resName is required", nil)
	once.Success(false)
	once.NotImplemented()

	replies := inner.Replies()
	require.Len(t, replies, 1)
	assert.Equal(t, contract.InvalidArguments, replies[0].Code)
	assert.True(t, once.Replied())
}

func TestResponseResultShapes(t *testing.T) {
	var got []contract.Response
	send := func(resp contract.Response) { got = append(got, resp) }
	action := contract.Action{ID: "42", Method: contract.SetLogoMethod}

	NewResponseResult(action, send).Success(true)
	NewResponseResult(action, send).Error(contract.InvalidResource, "Drawable not found: x", nil)
	NewResponseResult(action, send).NotImplemented()

	require.Len(t, got, 3)
	assert.Equal(t, contract.Response{ID: "42", Method: contract.SetLogoMethod, Code: contract.CodeSuccess, Data: true}, got[0])
	assert.Equal(t, contract.CodeError, got[1].Code)
	assert.Equal(t, contract.InvalidResource, got[1].Error.Code)
	assert.Equal(t, contract.CodeNotImplemented, got[2].Code)
}

func TestEncodeResponse(t *testing.T) {
	raw := EncodeResponse(contract.Response{ID: "1", Method: contract.StartLoginMethod, Data: true}, nil)
	assert.JSONEq(t, `{"id":"1","method":"startLogin","code":0,"data":true}`, string(raw))
}

func TestEncodeResponseFallsBackOnUnencodableData(t *testing.T) {
	raw := EncodeResponse(contract.Response{ID: "1", Method: contract.ShowLoginMethod, Data: make(chan int)}, nil)

	var resp contract.Response
	require.NoError(t, json.Unmarshal(raw, &resp))
	assert.Equal(t, "1", resp.ID)
	assert.Equal(t, contract.CodeError, resp.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, contract.UnexpectedError, resp.Error.Code)
}

func TestDecodeArgs(t *testing.T) {
	args, err := decodeArgs(nil)
	require.NoError(t, err)
	assert.Equal(t, "", args.String("token"))

	args, err = decodeArgs(json.RawMessage(`{"token":"abc","ak":null,"sk":7}`))
	require.NoError(t, err)
	assert.Equal(t, "abc", args.String("token"))
	assert.Equal(t, "", args.String("ak"))
	assert.Equal(t, "", args.String("sk"))

	_, err = decodeArgs(json.RawMessage(`"str"`))
	assert.Error(t, err)
}
