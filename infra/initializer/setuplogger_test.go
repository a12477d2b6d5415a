package initializer

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/amirasaad/tripledger/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, &config.Log{Format: "json", Prefix: "[tripledger]"})

	logger.Info("purchase created", "purchaseId", "p-1")

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "purchase created", line["msg"])
	assert.Equal(t, "p-1", line["purchaseId"])
}

func TestNewLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, &config.Log{Format: "text", Level: 4})

	logger.Info("hidden")
	logger.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}
