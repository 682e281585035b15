package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewJSON(&buf, "access-sandbox", false)

	log.Debug().Msg("hidden")
	log.Info().Str("slug", "ton-society").Msg("Chat loaded")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "access-sandbox", entry["service"])
	assert.Equal(t, "ton-society", entry["slug"])
	assert.Equal(t, "Chat loaded", entry["message"])
	assert.Contains(t, entry, "time")
}

func TestNew_DebugLevel(t *testing.T) {
	var buf bytes.Buffer
	quiet := New(&buf, "accesstool", false)
	quiet.Debug().Msg("quiet")
	assert.Empty(t, buf.String())

	verbose := New(&buf, "accesstool", true)
	verbose.Debug().Msg("Session renewed")
	assert.Contains(t, buf.String(), "Session renewed")
	assert.Contains(t, buf.String(), "accesstool")
}

func TestAccess(t *testing.T) {
	var buf bytes.Buffer
	access := Access(&buf, "access-sandbox", false)
	access.Info().Msg("GET /health")
	assert.True(t, json.Valid(bytes.TrimSpace(buf.Bytes())))
}
