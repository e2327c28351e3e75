package research

// Record is the canonical structured output of one lead research round-trip.
// Empty string means "unknown"; normalization guarantees no placeholder words
// survive in any field.
type Record struct {
	Name                   string            `json:"name"`
	CurrentRole            string            `json:"current_role"`
	Company                string            `json:"company"`
	IndustryFocus          string            `json:"industry_focus"`
	ProfessionalBackground []string          `json:"professional_background"`
	RecentAchievements     []string          `json:"recent_achievements"`
	SocialMedia            map[string]string `json:"social_media"`
	NotableConnections     string            `json:"notable_connections"`
}

// SocialPlatforms is the fixed set of recognized social media keys.
var SocialPlatforms = []string{"linkedin", "twitter", "github"}

// invalidPlaceholders are strings the agent emits when it has no data.
// Matching is case-sensitive for scalar/sequence fields, mirroring the
// agent's observed output.
var invalidPlaceholders = []string{
	"Unknown",
	"N/A",
	"Not found",
	"Not available",
	"Research Incomplete",
	"Based on research",
	"Research available",
	"See research summary",
	"Research Completed",
}

// urlPlaceholders are additionally rejected (case-insensitively) when
// validating social media URLs.
var urlPlaceholders = []string{
	"Unknown",
	"N/A",
	"Not found",
	"Not available",
	"url or description",
	"description",
}

// DefaultRecord returns an empty record with all fields at their zero values
// and the social media map populated with the recognized platforms.
func DefaultRecord() Record {
	return Record{
		ProfessionalBackground: []string{},
		RecentAchievements:     []string{},
		SocialMedia: map[string]string{
			"linkedin": "",
			"twitter":  "",
			"github":   "",
		},
	}
}

func isPlaceholder(s string) bool {
	for _, p := range invalidPlaceholders {
		if s == p {
			return true
		}
	}
	return false
}
