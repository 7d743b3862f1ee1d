package schema

import (
	"crypto/rand"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testKey(t *testing.T) string {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(key)
}

func testEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := NewEngine(testKey(t), zap.NewNop())
	require.NoError(t, err)
	return engine
}

func providerSchema() Definition {
	return Definition{
		"endpoint": {Label: "Endpoint", Type: TypeString, Required: true, MinLength: 4},
		"region":   {Label: "Region", Type: TypeString, Enum: []string{"us-east-1", "eu-west-1"}},
		"api_key":  {Label: "API Key", Type: TypeSecret, Required: true},
		"retries":  {Label: "Retries", Type: TypeNumber},
		"verify":   {Label: "Verify TLS", Type: TypeBoolean},
	}
}

func TestProcessInboundRoundTrip(t *testing.T) {
	engine := testEngine(t)
	def := providerSchema()
	values := Values{
		"endpoint": "https://storage.example.com",
		"region":   "us-east-1",
		"api_key":  "super-secret",
		"retries":  3,
		"verify":   true,
	}

	stored, err := engine.ProcessInbound(def, values)
	require.NoError(t, err)

	// Secret is encrypted at rest.
	assert.NotEqual(t, "super-secret", stored["api_key"])

	out := engine.ProcessOutbound(def, stored)
	assert.Equal(t, "super-secret", out["api_key"])
	assert.Equal(t, "https://storage.example.com", out["endpoint"])
	assert.Equal(t, "us-east-1", out["region"])
	assert.Equal(t, 3, out["retries"])
	assert.Equal(t, true, out["verify"])
}

func TestProcessInboundEnumeratesAllViolations(t *testing.T) {
	engine := testEngine(t)
	def := providerSchema()
	values := Values{
		"endpoint": "x",
		"region":   "mars-central-1",
		"retries":  "three",
	}

	_, err := engine.ProcessInbound(def, values)
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	fields := make(map[string]bool)
	for _, v := range verr.Violations {
		fields[v.Field] = true
	}
	// Short endpoint, bad enum, missing secret and non-numeric retries must
	// all be reported together.
	assert.True(t, fields["endpoint"])
	assert.True(t, fields["region"])
	assert.True(t, fields["api_key"])
	assert.True(t, fields["retries"])
	assert.Len(t, verr.Violations, 4)
}

func TestProcessInboundRejectsUndeclaredField(t *testing.T) {
	engine := testEngine(t)
	def := Definition{"name": {Label: "Name", Type: TypeString}}

	_, err := engine.ProcessInbound(def, Values{"name": "ok", "bogus": 1})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Violations, 1)
	assert.Equal(t, "bogus", verr.Violations[0].Field)
}

func TestProcessOutboundDecryptFailureIsNonFatal(t *testing.T) {
	engine := testEngine(t)
	def := Definition{"token": {Label: "Token", Type: TypeSecret}}

	// Simulate a key rotation: stored value was encrypted with another key.
	other, err := NewEngine(testKey(t), zap.NewNop())
	require.NoError(t, err)
	stored, err := other.ProcessInbound(def, Values{"token": "rotated-away"})
	require.NoError(t, err)

	out := engine.ProcessOutbound(def, stored)
	// The raw ciphertext comes back instead of an error.
	assert.Equal(t, stored["token"], out["token"])
}

func TestValidateNestedObjectAndArray(t *testing.T) {
	engine := testEngine(t)
	def := Definition{
		"outputs": {
			Label: "Outputs",
			Type:  TypeArray,
			Items: &FieldSpec{Type: TypeString, Enum: []string{"hls", "mp4"}},
		},
		"limits": {
			Label: "Limits",
			Type:  TypeObject,
			Properties: map[string]FieldSpec{
				"max_size": {Label: "Max size", Type: TypeNumber, Required: true},
			},
		},
	}

	_, err := engine.ProcessInbound(def, Values{
		"outputs": []interface{}{"hls", "avi"},
		"limits":  map[string]interface{}{},
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	fields := make(map[string]bool)
	for _, v := range verr.Violations {
		fields[v.Field] = true
	}
	assert.True(t, fields["outputs[1]"])
	assert.True(t, fields["limits.max_size"])
}

func TestNewEngineRejectsBadKey(t *testing.T) {
	_, err := NewEngine("not-base64!!", zap.NewNop())
	assert.Error(t, err)

	short := base64.StdEncoding.EncodeToString([]byte("short"))
	_, err = NewEngine(short, zap.NewNop())
	assert.Error(t, err)
}
