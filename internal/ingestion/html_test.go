package ingestion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLooksLikeHTML(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"full document", "<html><body><p>hi</p></body></html>", true},
		{"fragment with div", `<div class="post">review text</div>`, true},
		{"plain text", "my chair broke after a month", false},
		{"text with angle bracket", "price < 500 baht is too cheap", false},
		{"text mentioning a tag name", "I wrote html for a living", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LooksLikeHTML(tt.input))
		})
	}
}

func TestStripHTML_RemovesNoise(t *testing.T) {
	html := `<html>
	<head><title>Forum thread</title><style>.x{color:red}</style></head>
	<body>
		<nav><a href="/">Home</a></nav>
		<article>
			<p>I have been using a standing desk for a year.</p>
			<p>My wrist pain got much better.</p>
		</article>
		<aside>Sponsored links</aside>
		<script>analytics.track()</script>
		<footer>Terms of service</footer>
	</body>
	</html>`

	text, err := StripHTML(html)
	require.NoError(t, err)

	assert.Contains(t, text, "standing desk for a year")
	assert.Contains(t, text, "wrist pain got much better")
	assert.NotContains(t, text, "Home")
	assert.NotContains(t, text, "Sponsored")
	assert.NotContains(t, text, "analytics")
	assert.NotContains(t, text, "Terms of service")
	assert.NotContains(t, text, "color:red")
}

func TestStripHTML_SeparatesBlocks(t *testing.T) {
	html := `<body><ul><li>first comment</li><li>second comment</li></ul></body>`

	text, err := StripHTML(html)
	require.NoError(t, err)

	assert.Contains(t, text, "first comment\n")
	assert.Contains(t, text, "second comment\n")
}

func TestStripHTML_FallsBackToFullText(t *testing.T) {
	// No block elements at all; the document text is better than nothing.
	html := `<body><span>bare inline content</span></body>`

	text, err := StripHTML(html)
	require.NoError(t, err)
	assert.Contains(t, text, "bare inline content")
}
