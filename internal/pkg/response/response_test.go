package response

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuccessEnvelope(t *testing.T) {
	raw, err := json.Marshal(Success(200, map[string]int{"id": 42}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":200,"message":"OK","data":{"id":42},"error":null}`, string(raw))
}

func TestErrorEnvelope(t *testing.T) {
	raw, err := json.Marshal(Error(504, "upstream timeout"))
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"status":504,"message":"Gateway Timeout","data":null,"error":{"code":"ERR_504","detail":"upstream timeout"}}`,
		string(raw))
}
