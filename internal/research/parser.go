package research

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidResearch marks a well-formed record that failed validation: the
// agent answered, but produced no usable research. Retriable.
var ErrInvalidResearch = errors.New("research data is empty or placeholder-only")

// ParseError indicates the extracted response text could not be turned into
// a record by any strategy.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse agent response: %s", e.Reason)
}

// primaryMarker precedes the research narrative in the agreed response
// format; legacyMarker is the older prompt format still seen in replies.
const (
	primaryMarker = "RESEARCH_DATA:"
	legacyMarker  = "RESEARCH:"
)

// sectionMarkers terminate the research narrative; whichever appears
// earliest after the research marker wins.
var sectionMarkers = []string{"EMAIL_JSON:", "EMAIL:", "---", "\n\n"}

// eventDumpPrefix is the telltale prefix of a stringified event list, which
// is never usable narrative.
const eventDumpPrefix = "[Event("

// ParseResponse classifies extracted agent text into a normalized Record.
// Strategies, first match wins: strict JSON, marker-based extraction, plain
// text fallback. When only narrative text is obtained, the record carries it
// in notable_connections with all structured fields empty.
func ParseResponse(text string) (Record, error) {
	narrative := ""

	if strings.HasPrefix(strings.TrimSpace(text), "{") {
		var payload map[string]interface{}
		if err := json.Unmarshal([]byte(text), &payload); err == nil {
			// Full record shape is recognizable by either structured key.
			if _, ok := payload["professional_background"]; ok {
				return Normalize(recordFromMap(payload)), nil
			}
			if _, ok := payload["notable_connections"]; ok {
				return Normalize(recordFromMap(payload)), nil
			}
			if v, ok := payload["research_data"].(string); ok {
				narrative = v
			}
		}
		// Decode failure falls through to marker extraction.
	}

	if narrative == "" {
		narrative = narrativeAfterMarker(text)
	}

	if narrative == "" {
		trimmed := strings.TrimSpace(text)
		if strings.HasPrefix(trimmed, eventDumpPrefix) {
			return Record{}, &ParseError{Reason: "response is an event list dump, not research text"}
		}
		if len(trimmed) <= minNarrativeLength {
			return Record{}, &ParseError{Reason: fmt.Sprintf("response text too short to be research: %d chars", len(trimmed))}
		}
		narrative = trimmed
	}

	rec := DefaultRecord()
	rec.NotableConnections = narrative
	return Normalize(rec), nil
}

// narrativeAfterMarker extracts the text between the research marker and the
// earliest following section marker, or the remainder of the string.
func narrativeAfterMarker(text string) string {
	marker := ""
	if strings.Contains(text, primaryMarker) {
		marker = primaryMarker
	} else if strings.Contains(text, legacyMarker) {
		marker = legacyMarker
	}
	if marker == "" {
		return ""
	}

	start := strings.Index(text, marker) + len(marker)
	rest := text[start:]

	end := -1
	for _, sm := range sectionMarkers {
		if pos := strings.Index(rest, sm); pos != -1 && (end == -1 || pos < end) {
			end = pos
		}
	}
	if end != -1 {
		return strings.TrimSpace(rest[:end])
	}
	return strings.TrimSpace(rest)
}

// recordFromMap coerces a decoded JSON object into a Record. Absent or
// ill-typed fields default to zero values rather than erroring.
func recordFromMap(m map[string]interface{}) Record {
	rec := DefaultRecord()
	rec.Name = stringField(m, "name")
	rec.CurrentRole = stringField(m, "current_role")
	rec.Company = stringField(m, "company")
	rec.IndustryFocus = stringField(m, "industry_focus")
	rec.NotableConnections = stringField(m, "notable_connections")
	rec.ProfessionalBackground = sliceField(m, "professional_background")
	rec.RecentAchievements = sliceField(m, "recent_achievements")

	if sm, ok := m["social_media"].(map[string]interface{}); ok {
		for _, platform := range SocialPlatforms {
			if v, ok := sm[platform].(string); ok {
				rec.SocialMedia[platform] = v
			}
		}
	}
	return rec
}

func stringField(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func sliceField(m map[string]interface{}, key string) []string {
	raw, ok := m[key].([]interface{})
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if item == nil {
			continue
		}
		switch v := item.(type) {
		case string:
			out = append(out, v)
		default:
			out = append(out, fmt.Sprintf("%v", v))
		}
	}
	return out
}
