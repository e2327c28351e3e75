package research

import "strings"

// Normalize cleans a raw record: scalar fields are trimmed and placeholder
// values collapse to empty strings, sequence fields drop empty/placeholder
// elements (order preserved), and social media values survive only as
// validated absolute URLs. Normalize never fails and is idempotent:
// Normalize(Normalize(r)) == Normalize(r).
func Normalize(r Record) Record {
	out := DefaultRecord()

	out.Name = normalizeScalar(r.Name)
	out.CurrentRole = normalizeScalar(r.CurrentRole)
	out.Company = normalizeScalar(r.Company)
	out.IndustryFocus = normalizeScalar(r.IndustryFocus)
	out.NotableConnections = strings.TrimSpace(r.NotableConnections)

	out.ProfessionalBackground = normalizeSequence(r.ProfessionalBackground)
	out.RecentAchievements = normalizeSequence(r.RecentAchievements)

	for _, platform := range SocialPlatforms {
		out.SocialMedia[platform] = NormalizeSocialURL(r.SocialMedia[platform])
	}

	return out
}

func normalizeScalar(s string) string {
	trimmed := strings.TrimSpace(s)
	if isPlaceholder(trimmed) {
		return ""
	}
	return trimmed
}

func normalizeSequence(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		trimmed := strings.TrimSpace(item)
		if trimmed == "" || isPlaceholder(trimmed) {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}

// NormalizeSocialURL keeps a social media URL verbatim only when it is not a
// known placeholder (case-insensitive) and carries an http/https scheme.
// Anything else collapses to the empty string.
func NormalizeSocialURL(url string) string {
	url = strings.TrimSpace(url)
	if url == "" {
		return ""
	}
	for _, p := range urlPlaceholders {
		if strings.EqualFold(url, p) {
			return ""
		}
	}
	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		return url
	}
	return ""
}
