package domain

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestEnvelopeRoundTrip(t *testing.T) {
	original := RequestEnvelope{
		Path:        "/api/recipes/42",
		Method:      "POST",
		Headers:     map[string]string{"Accept": "application/json, text/plain"},
		QueryParams: map[string]string{"lang": "ko"},
		Body:        `{"name":"kimchi"}`,
		Principal: &AuthPrincipal{
			AccountID: "acct-1",
			Email:     "cook@example.com",
			Roles:     []string{"USER"},
		},
	}

	raw, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded RequestEnvelope
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, original, decoded)
}

func TestResponseEnvelopeRoundTrip(t *testing.T) {
	original := ResponseEnvelope{
		CorrelationID: "c1",
		StatusCode:    201,
		Headers:       map[string]string{"Content-Type": "application/json"},
		Body:          `{"id":42}`,
	}

	raw, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded ResponseEnvelope
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, original, decoded)
}

func TestNewRequestEnvelope(t *testing.T) {
	r := httptest.NewRequest("PUT", "/api/account/me?tag=a&tag=b&verbose=1", strings.NewReader(`{"x":1}`))
	r.Header.Add("Accept", "application/json")
	r.Header.Add("Accept", "text/plain")
	r.Header.Set("Authorization", "Bearer abc")

	principal := &AuthPrincipal{AccountID: "acct-1", Roles: []string{}}
	env := NewRequestEnvelope(r, []byte(`{"x":1}`), principal)

	assert.Equal(t, "/api/account/me", env.Path)
	assert.Equal(t, "PUT", env.Method)
	assert.Equal(t, "application/json, text/plain", env.Headers["Accept"], "multi-valued headers join with comma-space")
	assert.Equal(t, "a", env.QueryParams["tag"], "multi-valued query params collapse to first value")
	assert.Equal(t, "1", env.QueryParams["verbose"])
	assert.Equal(t, `{"x":1}`, env.Body)
	assert.Same(t, principal, env.Principal)
}

func TestResponseEnvelopeHeaderLookup(t *testing.T) {
	env := ResponseEnvelope{Headers: map[string]string{"content-type": "text/plain"}}
	assert.Equal(t, "text/plain", env.Header("Content-Type"))
	assert.Equal(t, "", env.Header("X-Missing"))
}

func TestIsHopByHop(t *testing.T) {
	for _, name := range []string{
		"Connection", "keep-alive", "Transfer-Encoding", "Upgrade",
		"TE", "Trailer", "Proxy-Authorization", "proxy-connection",
	} {
		assert.True(t, IsHopByHop(name), name)
	}
	for _, name := range []string{"Content-Type", "X-Request-Id", "Authorization", "Trailer-Count"} {
		assert.False(t, IsHopByHop(name), name)
	}
}

func TestShouldLogBody(t *testing.T) {
	for _, ct := range []string{
		"multipart/form-data; boundary=x",
		"application/octet-stream",
		"application/pdf",
		"image/png",
		"video/mp4",
		"audio/ogg",
	} {
		assert.False(t, ShouldLogBody(ct), ct)
	}
	for _, ct := range []string{"", "application/json", "text/plain; charset=utf-8"} {
		assert.True(t, ShouldLogBody(ct), ct)
	}
}
