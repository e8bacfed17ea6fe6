package schemas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMustSchema_KnownNames(t *testing.T) {
	for _, name := range []string{SchemaIntent, SchemaStrategy, SchemaCluster} {
		assert.NotPanics(t, func() {
			content := MustSchema(name)
			assert.NotEmpty(t, content)
		}, name)
	}
}

func TestMustSchema_UnknownName(t *testing.T) {
	assert.Panics(t, func() {
		MustSchema("nonexistent.json")
	})
}

func TestValidate_Intent(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr bool
	}{
		{
			name: "valid intent",
			doc: `{
				"target_persona": "office workers with chronic back pain",
				"core_pain_points": ["sitting 10 hours a day", "cheap chairs collapse"],
				"underlying_emotions": ["frustration"],
				"raw_input_snippet": "ปวดหลังมาก"
			}`,
		},
		{
			name:    "missing persona",
			doc:     `{"core_pain_points": ["x"], "underlying_emotions": ["y"]}`,
			wantErr: true,
		},
		{
			name: "pain points wrong type",
			doc: `{
				"target_persona": "p",
				"core_pain_points": "not an array",
				"underlying_emotions": []
			}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(SchemaIntent, tt.doc)
			if tt.wantErr {
				require.Error(t, err)
				var validationErr *ValidationError
				require.ErrorAs(t, err, &validationErr)
				assert.NotEmpty(t, validationErr.Errors)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidate_Strategy(t *testing.T) {
	valid := `{
		"cluster_primary_keyword": "ergonomic chair",
		"proposed_topics": [
			{
				"topic_id": "hub-1", "title": "Ergonomic chair guide", "role": "hub",
				"content_type": "article", "seo": {"primary_keyword": "ergonomic chair"}
			},
			{
				"topic_id": "spoke-1", "title": "Lumbar support explained", "role": "spoke",
				"content_type": "video", "seo": {"primary_keyword": "lumbar support"},
				"geo_queries": [{"query_text": "what is lumbar support"}]
			}
		]
	}`
	assert.NoError(t, Validate(SchemaStrategy, valid))

	tooFewTopics := `{
		"cluster_primary_keyword": "ergonomic chair",
		"proposed_topics": [
			{"topic_id": "hub-1", "title": "t", "role": "hub", "content_type": "article",
			 "seo": {"primary_keyword": "k"}}
		]
	}`
	err := Validate(SchemaStrategy, tooFewTopics)
	require.Error(t, err)

	badRole := `{
		"cluster_primary_keyword": "k",
		"proposed_topics": [
			{"topic_id": "a", "title": "t", "role": "pillar", "content_type": "article",
			 "seo": {"primary_keyword": "k"}},
			{"topic_id": "b", "title": "t", "role": "spoke", "content_type": "article",
			 "seo": {"primary_keyword": "k"}}
		]
	}`
	require.Error(t, Validate(SchemaStrategy, badRole))
}

func TestValidate_Cluster(t *testing.T) {
	valid := `{
		"hub": {"topic_id": "hub-1", "title": "Guide", "role": "hub"},
		"spokes": [{"topic_id": "spoke-1", "title": "Detail", "role": "spoke"}],
		"internal_links": [
			{"from_topic_id": "spoke-1", "to_topic_id": "hub-1",
			 "anchor_text": "full guide", "link_type": "contextual"}
		]
	}`
	assert.NoError(t, Validate(SchemaCluster, valid))

	missingAnchor := `{
		"hub": {"topic_id": "hub-1", "title": "Guide", "role": "hub"},
		"spokes": [{"topic_id": "spoke-1", "title": "Detail", "role": "spoke"}],
		"internal_links": [{"from_topic_id": "spoke-1", "to_topic_id": "hub-1"}]
	}`
	require.Error(t, Validate(SchemaCluster, missingAnchor))
}

func TestValidationError_Message(t *testing.T) {
	err := Validate(SchemaIntent, `{}`)
	require.Error(t, err)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Error(), "validation failed")
	for _, fe := range validationErr.Errors {
		assert.NotEmpty(t, fe.Field)
		assert.NotEmpty(t, fe.Message)
	}
}

func TestValidateJSONString_MalformedDocument(t *testing.T) {
	err := ValidateJSONString(MustSchema(SchemaIntent), `{not json`)
	require.Error(t, err)

	var loadErr *SchemaLoadError
	assert.ErrorAs(t, err, &loadErr)
}
