package ingestion

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadata_JSONMarshaling(t *testing.T) {
	metadata := &Metadata{
		Source:    "api",
		Timestamp: "2026-01-01T00:00:00Z",
		Hash:      "abcd1234",
		CharCount: 42,
		WordCount: 7,
	}

	jsonBytes, err := metadata.ToJSON()
	require.NoError(t, err)
	assert.NotEmpty(t, jsonBytes)

	var unmarshaled Metadata
	err = json.Unmarshal(jsonBytes, &unmarshaled)
	require.NoError(t, err)
	assert.Equal(t, metadata.Source, unmarshaled.Source)
	assert.Equal(t, metadata.Timestamp, unmarshaled.Timestamp)
	assert.Equal(t, metadata.Hash, unmarshaled.Hash)
	assert.Equal(t, metadata.CharCount, unmarshaled.CharCount)
	assert.Equal(t, metadata.WordCount, unmarshaled.WordCount)
}

func TestNewMetadata(t *testing.T) {
	content := "ปวดหลังมาก sitting all day"
	metadata := NewMetadata(content, "api")

	assert.Equal(t, "api", metadata.Source)
	assert.Len(t, metadata.Hash, 64)
	assert.Equal(t, len(content), metadata.CharCount)
	assert.Equal(t, 4, metadata.WordCount)

	parsed, err := time.Parse(time.RFC3339, metadata.Timestamp)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC(), parsed, time.Minute)
}

func TestNewMetadata_SameContentSameHash(t *testing.T) {
	m1 := NewMetadata("identical content", "a")
	m2 := NewMetadata("identical content", "b")
	assert.Equal(t, m1.Hash, m2.Hash)

	m3 := NewMetadata("different content", "a")
	assert.NotEqual(t, m1.Hash, m3.Hash)
}
