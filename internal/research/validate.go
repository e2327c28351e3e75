package research

import "strings"

// minNarrativeLength is the shortest notable_connections text accepted as
// usable narrative-only research.
const minNarrativeLength = 50

// IsValid reports whether a record carries real research. A record with all
// three key fields (name, current role, company) empty or placeholder-valued
// is indistinguishable from an agent that did nothing, unless the narrative
// field holds substantial text, which counts as a degraded-but-useful result.
func IsValid(r Record) bool {
	name := r.Name
	role := r.CurrentRole
	company := r.Company

	if isPlaceholder(name) || isPlaceholder(role) || isPlaceholder(company) {
		return false
	}

	if name != "" || role != "" || company != "" {
		return true
	}

	return len(strings.TrimSpace(r.NotableConnections)) > minNarrativeLength
}
