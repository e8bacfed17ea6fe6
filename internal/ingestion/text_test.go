package ingestion

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanText_PreserveMarkdownHeadings(t *testing.T) {
	input := "# Research Notes\n## Survey Answers\nContent here"
	result := CleanText(input)

	assert.Contains(t, result, "# Research Notes")
	assert.Contains(t, result, "## Survey Answers")
	assert.Contains(t, result, "Content here")
}

func TestCleanText_PreserveBulletLists(t *testing.T) {
	input := "- Item 1\n- Item 2\n* Item 3"
	result := CleanText(input)

	assert.Contains(t, result, "- Item 1")
	assert.Contains(t, result, "- Item 2")
	assert.Contains(t, result, "* Item 3")
}

func TestCleanText_NormalizeWhitespace(t *testing.T) {
	input := "Line    with    multiple    spaces"
	result := CleanText(input)

	assert.Contains(t, result, "Line with multiple spaces")
	assert.NotContains(t, result, "    ") // Should not have 4 spaces
}

func TestCleanText_RemoveExcessiveBlankLines(t *testing.T) {
	input := "Line 1\n\n\n\n\nLine 2"
	result := CleanText(input)

	// Should have max 2 consecutive newlines
	assert.NotContains(t, result, "\n\n\n\n")
	// But should preserve up to 2
	assert.Contains(t, result, "\n\n")
}

func TestCleanText_NormalizeLineEndings(t *testing.T) {
	input := "Line 1\r\nLine 2\rLine 3\nLine 4"
	result := CleanText(input)

	// All should be normalized to LF
	assert.NotContains(t, result, "\r\n")
	assert.NotContains(t, result, "\r")
	assert.Contains(t, result, "\n")
}

func TestCleanText_DeterministicOutput(t *testing.T) {
	input := "Test content   with   spaces\n\n\nMultiple   blank   lines"
	result1 := CleanText(input)
	result2 := CleanText(input)

	// Same input should produce identical output
	assert.Equal(t, result1, result2)
}

func TestCleanText_EmptyInput(t *testing.T) {
	result := CleanText("")
	assert.Empty(t, result)
}

func TestCleanText_OnlyWhitespace(t *testing.T) {
	result := CleanText("   \n  \n  ")
	assert.Empty(t, result)
}

func TestCleanText_ThaiContent(t *testing.T) {
	input := "ซื้อเก้าอี้มาใช้    ปวดหลังมาก\n\n\n\nอยากได้ตัวใหม่"
	result := CleanText(input)

	assert.Contains(t, result, "ซื้อเก้าอี้มาใช้ ปวดหลังมาก")
	assert.Contains(t, result, "อยากได้ตัวใหม่")
	assert.NotContains(t, result, "\n\n\n")
}

func TestNormalize_PlainText(t *testing.T) {
	cleaned, metadata := Normalize("Some   pasted   comments\r\nwith windows endings", "api")

	assert.Equal(t, "Some pasted comments\nwith windows endings", cleaned)
	require.NotNil(t, metadata)
	assert.Equal(t, "api", metadata.Source)
	assert.Len(t, metadata.Hash, 64)
	assert.Equal(t, len(cleaned), metadata.CharCount)
	assert.Equal(t, 6, metadata.WordCount)
}

func TestNormalize_HTMLInput(t *testing.T) {
	html := `<html><head><script>track()</script></head><body>
		<nav>Menu</nav>
		<div><p>ปวดหลังจากนั่งทำงานนาน อยากได้เก้าอี้ใหม่</p></div>
		<div><p>I bought a cheap chair and it broke in a month</p></div>
		<footer>Copyright</footer>
	</body></html>`

	cleaned, metadata := Normalize(html, "scrape")

	assert.Contains(t, cleaned, "ปวดหลังจากนั่งทำงานนาน")
	assert.Contains(t, cleaned, "bought a cheap chair")
	assert.NotContains(t, cleaned, "track()")
	assert.NotContains(t, cleaned, "Menu")
	assert.NotContains(t, cleaned, "Copyright")
	assert.NotContains(t, cleaned, "<p>")
	require.NotNil(t, metadata)
	assert.Equal(t, "scrape", metadata.Source)
}

func TestIngestFromFile_Success(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "research.txt")
	testContent := "# User Feedback\n\nMy back hurts after sitting all day"
	err := os.WriteFile(testFile, []byte(testContent), 0644)
	require.NoError(t, err)

	cleanedText, metadata, err := IngestFromFile(testFile)
	require.NoError(t, err)

	assert.NotEmpty(t, cleanedText)
	require.NotNil(t, metadata)
	assert.Contains(t, cleanedText, "User Feedback")
	assert.Len(t, metadata.Hash, 64)
	assert.NotEmpty(t, metadata.Timestamp)
	assert.Equal(t, testFile, metadata.Source)
}

func TestIngestFromFile_FileNotFound(t *testing.T) {
	cleanedText, metadata, err := IngestFromFile("/nonexistent/file.txt")

	assert.Error(t, err)
	assert.Empty(t, cleanedText)
	assert.Nil(t, metadata)
	assert.Contains(t, err.Error(), "file not found")
}

func TestIngestFromFile_HashUniqueness(t *testing.T) {
	tmpDir := t.TempDir()

	testFile1 := filepath.Join(tmpDir, "input1.txt")
	testFile2 := filepath.Join(tmpDir, "input2.txt")

	err := os.WriteFile(testFile1, []byte("Content 1"), 0644)
	require.NoError(t, err)
	err = os.WriteFile(testFile2, []byte("Content 2"), 0644)
	require.NoError(t, err)

	_, metadata1, err1 := IngestFromFile(testFile1)
	require.NoError(t, err1)

	_, metadata2, err2 := IngestFromFile(testFile2)
	require.NoError(t, err2)

	// Different files should produce different hashes
	assert.NotEqual(t, metadata1.Hash, metadata2.Hash)
}
