package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventTimeUnmarshal(t *testing.T) {
	want := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)

	var fromString EventTime
	require.NoError(t, json.Unmarshal([]byte(`"2026-08-31T10:00:00Z"`), &fromString))
	assert.True(t, fromString.Equal(want))

	var fromMillis EventTime
	require.NoError(t, json.Unmarshal([]byte("1788170400000"), &fromMillis))
	assert.True(t, fromMillis.Equal(want))

	var fromNull EventTime
	require.NoError(t, json.Unmarshal([]byte("null"), &fromNull))
	assert.True(t, fromNull.IsZero())

	var fromEmpty EventTime
	require.NoError(t, json.Unmarshal([]byte(`""`), &fromEmpty))
	assert.True(t, fromEmpty.IsZero())

	var bad EventTime
	assert.Error(t, json.Unmarshal([]byte(`"not-a-time"`), &bad))
}
