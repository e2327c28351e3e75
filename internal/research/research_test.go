package research

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDropsPlaceholders(t *testing.T) {
	rec := Record{
		Name:          "  Jordan Reyes  ",
		CurrentRole:   "Unknown",
		Company:       "N/A",
		IndustryFocus: "Not found",
		ProfessionalBackground: []string{
			"10 years in devtools",
			"",
			"Research Incomplete",
			"  Based on research  ",
			"Founded a CI startup",
		},
		RecentAchievements: []string{"Not available"},
		SocialMedia: map[string]string{
			"linkedin": "https://linkedin.com/in/jordanreyes",
			"twitter":  "url or description",
			"github":   "github.com/jordan",
		},
		NotableConnections: "  knows the Example Corp CTO  ",
	}

	got := Normalize(rec)

	assert.Equal(t, "Jordan Reyes", got.Name)
	assert.Empty(t, got.CurrentRole)
	assert.Empty(t, got.Company)
	assert.Empty(t, got.IndustryFocus)
	assert.Equal(t, []string{"10 years in devtools", "Founded a CI startup"}, got.ProfessionalBackground)
	assert.Empty(t, got.RecentAchievements)
	assert.Equal(t, "https://linkedin.com/in/jordanreyes", got.SocialMedia["linkedin"])
	assert.Empty(t, got.SocialMedia["twitter"], "URL placeholder must be dropped")
	assert.Empty(t, got.SocialMedia["github"], "schemeless URL must be dropped")
	assert.Equal(t, "knows the Example Corp CTO", got.NotableConnections)
}

func TestNormalizePlaceholderMatchIsCaseSensitiveForScalars(t *testing.T) {
	got := Normalize(Record{Name: "unknown", Company: "Unknown"})
	assert.Equal(t, "unknown", got.Name, "lowercase variant is kept for scalar fields")
	assert.Empty(t, got.Company)
}

func TestNormalizeSocialURLIsCaseInsensitive(t *testing.T) {
	assert.Empty(t, NormalizeSocialURL("UNKNOWN"))
	assert.Empty(t, NormalizeSocialURL("Description"))
	assert.Empty(t, NormalizeSocialURL("Url Or Description"))
	assert.Equal(t, "http://example.com", NormalizeSocialURL(" http://example.com "))
}

func TestNormalizeIsIdempotent(t *testing.T) {
	rec := Record{
		Name:                   " Jordan ",
		CurrentRole:            "Unknown",
		ProfessionalBackground: []string{" a ", "N/A", "b"},
		SocialMedia:            map[string]string{"linkedin": "linkedin.com/in/x"},
	}
	once := Normalize(rec)
	twice := Normalize(once)
	assert.Equal(t, once, twice)
}

func TestIsValidKeyFieldPresence(t *testing.T) {
	rec := DefaultRecord()
	assert.False(t, IsValid(rec), "fully empty record is invalid")

	rec.Company = "Example Corp"
	assert.True(t, IsValid(rec), "any single key field makes the record valid")
}

func TestIsValidRejectsPlaceholderKeyFields(t *testing.T) {
	rec := DefaultRecord()
	rec.Name = "Jordan Reyes"
	rec.CurrentRole = "Unknown"
	// A surviving placeholder in a key field poisons the whole record even
	// though another key field is populated.
	assert.False(t, IsValid(rec))
}

func TestIsValidNarrativeFallback(t *testing.T) {
	rec := DefaultRecord()
	rec.NotableConnections = strings.Repeat("x", 50)
	assert.False(t, IsValid(rec), "exactly 50 chars is not enough")

	rec.NotableConnections = strings.Repeat("x", 51)
	assert.True(t, IsValid(rec))
}

func TestParseResponseStructuredJSON(t *testing.T) {
	text := `{
		"name": "Jordan Reyes",
		"current_role": "VP Engineering",
		"company": "Example Corp",
		"industry_focus": "developer tools",
		"professional_background": ["ex-BigCo", "Unknown"],
		"recent_achievements": ["shipped v2"],
		"social_media": {"linkedin": "https://linkedin.com/in/jordanreyes", "twitter": "N/A"},
		"notable_connections": "spoke at GopherCon"
	}`

	rec, err := ParseResponse(text)
	require.NoError(t, err)
	assert.Equal(t, "Jordan Reyes", rec.Name)
	assert.Equal(t, "VP Engineering", rec.CurrentRole)
	assert.Equal(t, []string{"ex-BigCo"}, rec.ProfessionalBackground, "normalization runs on parsed records")
	assert.Empty(t, rec.SocialMedia["twitter"])
}

func TestParseResponseResearchDataKey(t *testing.T) {
	rec, err := ParseResponse(`{"research_data": "Jordan leads platform engineering at Example Corp and writes about CI."}`)
	require.NoError(t, err)
	assert.Empty(t, rec.Name)
	assert.Equal(t, "Jordan leads platform engineering at Example Corp and writes about CI.", rec.NotableConnections)
}

func TestParseResponseMarkerExtraction(t *testing.T) {
	text := "Some preamble.\nRESEARCH_DATA: Jordan is VP Engineering at Example Corp with a focus on CI.\nEMAIL_JSON: {\"subject\": \"hi\"}"
	rec, err := ParseResponse(text)
	require.NoError(t, err)
	assert.Equal(t, "Jordan is VP Engineering at Example Corp with a focus on CI.", rec.NotableConnections)
}

func TestParseResponseMarkerStopsAtEarliestSection(t *testing.T) {
	text := "RESEARCH: first part --- EMAIL: later"
	rec, err := ParseResponse(text)
	require.NoError(t, err)
	assert.Equal(t, "first part", rec.NotableConnections)
}

func TestParseResponseMarkerStopsAtBlankLine(t *testing.T) {
	text := "RESEARCH_DATA: the narrative line\n\ntrailing unrelated text"
	rec, err := ParseResponse(text)
	require.NoError(t, err)
	assert.Equal(t, "the narrative line", rec.NotableConnections)
}

func TestParseResponsePlainTextFallback(t *testing.T) {
	text := "Jordan Reyes runs platform engineering at Example Corp and maintains two popular CI plugins."
	rec, err := ParseResponse(text)
	require.NoError(t, err)
	assert.Equal(t, text, rec.NotableConnections)
}

func TestParseResponseRejectsShortText(t *testing.T) {
	_, err := ParseResponse("ok")
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Contains(t, parseErr.Reason, "too short")
}

func TestParseResponseRejectsEventDump(t *testing.T) {
	_, err := ParseResponse("[Event(author=agent, parts=2)] [Event(author=agent, parts=1)] with enough padding to pass length checks")
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Contains(t, parseErr.Reason, "event list dump")
}

func TestNarrativeOnlyReplyParsesAndValidates(t *testing.T) {
	text := "RESEARCH_DATA:\nJane Doe is a VP at Acme Corp and has spoken at three industry conferences this year.\n\nEMAIL: subject line here"
	rec, err := ParseResponse(text)
	require.NoError(t, err)

	assert.Equal(t, "Jane Doe is a VP at Acme Corp and has spoken at three industry conferences this year.", rec.NotableConnections)
	assert.Empty(t, rec.Name)
	assert.Empty(t, rec.Company)
	assert.True(t, IsValid(rec), "long narrative carries an otherwise empty record")
}

func TestParseResponseMalformedJSONFallsThrough(t *testing.T) {
	// Broken JSON that still contains a research marker later in the text.
	text := `{"name": broken RESEARCH_DATA: salvaged narrative about Jordan at Example Corp`
	rec, err := ParseResponse(text)
	require.NoError(t, err)
	assert.Equal(t, "salvaged narrative about Jordan at Example Corp", rec.NotableConnections)
}
