package secrets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLineKinds(t *testing.T) {
	input := "# PageVitals\n" +
		"\n" +
		"PAGEVITALS_API_KEY=secret-key-12345\n" +
		"export PAGEVITALS_WEBSITE_SHOP='abc 123'\n" +
		"this line is garbage\n" +
		"1BAD=value\n" +
		"  PAGEVITALS_WEBSITE_BLOG = \"x\\\"y\"  # quoted\n" +
		"PAGEVITALS_WEBSITE_DOCS=d0c5 # inline comment\n"

	snap := Parse([]byte(input))
	lines := snap.Lines()
	require.Len(t, lines, 8)

	kinds := []LineKind{LineComment, LineBlank, LineEntry, LineEntry, LineRaw, LineRaw, LineEntry, LineEntry}
	for i, k := range kinds {
		assert.Equal(t, k, lines[i].Kind, "line %d: %q", i, lines[i].Text)
	}

	assert.Equal(t, "secret-key-12345", snap.APIKey())

	v, err := snap.Get("PAGEVITALS_WEBSITE_SHOP")
	require.NoError(t, err)
	assert.Equal(t, "abc 123", v)

	v, err = snap.Get("PAGEVITALS_WEBSITE_BLOG")
	require.NoError(t, err)
	assert.Equal(t, `x"y`, v)

	v, err = snap.Get("PAGEVITALS_WEBSITE_DOCS")
	require.NoError(t, err)
	assert.Equal(t, "d0c5", v)

	_, err = snap.Get("MISSING")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestParseRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty", input: ""},
		{name: "only newline", input: "\n"},
		{name: "comments and garbage", input: "# a\n;;;\n=novalue\nKEY=\"unterminated\n"},
		{name: "crlf", input: "A=1\r\n# c\r\n"},
		{name: "entries", input: "PAGEVITALS_API_KEY=k\nPAGEVITALS_WEBSITE_A=1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.input, string(Parse([]byte(tt.input)).Bytes()))
		})
	}
}

func TestHasMalformedValue(t *testing.T) {
	snap := Parse([]byte("PAGEVITALS_WEBSITE_SHOP=\"s1\nnot an entry\n"))

	lines := snap.Lines()
	assert.Equal(t, LineRaw, lines[0].Kind)
	assert.Equal(t, "PAGEVITALS_WEBSITE_SHOP", lines[0].Name)
	assert.Empty(t, lines[1].Name)

	assert.True(t, snap.Has("PAGEVITALS_WEBSITE_SHOP"))
	_, err := snap.Get("PAGEVITALS_WEBSITE_SHOP")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, snap.Websites())
}

func TestSetReplacesInPlace(t *testing.T) {
	snap := Parse([]byte("A=1\nB=2\n"))
	snap.Set("A", "one two")
	snap.Set("C", "3")
	assert.Equal(t, "A=\"one two\"\nB=2\nC=3\n", string(snap.Bytes()))
}

func TestParseAddsMissingTrailingNewline(t *testing.T) {
	snap := Parse([]byte("A=1"))
	assert.Equal(t, "A=1\n", string(snap.Bytes()))
}

func TestGetLastDefinitionWins(t *testing.T) {
	snap := Parse([]byte("A=1\nA=2\n"))
	v, err := snap.Get("A")
	require.NoError(t, err)
	assert.Equal(t, "2", v)
}

func TestWebsites(t *testing.T) {
	snap := Parse([]byte("PAGEVITALS_API_KEY=k\n" +
		"PAGEVITALS_WEBSITE_B=2\n" +
		"OTHER=x\n" +
		"PAGEVITALS_WEBSITE_A=1\n" +
		"PAGEVITALS_WEBSITE_B=3\n"))

	assert.Equal(t, []Entry{
		{Name: "PAGEVITALS_WEBSITE_B", Value: "3"},
		{Name: "PAGEVITALS_WEBSITE_A", Value: "1"},
	}, snap.Websites())
}

func TestAppendQuotesWhenNeeded(t *testing.T) {
	snap := Parse(nil)
	snap.Append("PLAIN", "abc123")
	snap.Append("SPACED", "a b")

	assert.Equal(t, "PLAIN=abc123\nSPACED=\"a b\"\n", string(snap.Bytes()))

	reparsed := Parse(snap.Bytes())
	v, err := reparsed.Get("SPACED")
	require.NoError(t, err)
	assert.Equal(t, "a b", v)
}

func TestDeriveName(t *testing.T) {
	tests := []struct {
		name     string
		display  string
		expected string
	}{
		{name: "punctuation stripped", display: "My Site!", expected: "PAGEVITALS_WEBSITE_MYSITE"},
		{name: "domain", display: "shop.example.com", expected: "PAGEVITALS_WEBSITE_SHOPEXAMPLECOM"},
		{name: "digits kept", display: "site-2", expected: "PAGEVITALS_WEBSITE_SITE2"},
		{name: "non ascii dropped", display: "Café Ünicode", expected: "PAGEVITALS_WEBSITE_CAFNICODE"},
		{name: "nothing usable", display: "!!! ---", expected: ""},
		{name: "empty", display: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, WebsiteName(tt.display))
		})
	}
}
