package units

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/seekerlabs/seekerd/internal/records"
)

// Profile sections and parsed resumes are free-form maps that may have
// crossed a JSON boundary, so every reader below tolerates both native Go
// values and their decoded shapes.

func stringAt(m map[string]interface{}, key string) string {
	if m == nil {
		return ""
	}
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

func intAt(m map[string]interface{}, key string) int {
	if m == nil {
		return 0
	}
	switch v := m[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

func mapAt(m map[string]interface{}, key string) map[string]interface{} {
	if m == nil {
		return nil
	}
	if v, ok := m[key].(map[string]interface{}); ok {
		return v
	}
	return nil
}

func stringsAt(m map[string]interface{}, key string) []string {
	if m == nil {
		return nil
	}
	switch v := m[key].(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func mapsAt(m map[string]interface{}, key string) []map[string]interface{} {
	if m == nil {
		return nil
	}
	switch v := m[key].(type) {
	case []map[string]interface{}:
		return v
	case []interface{}:
		out := make([]map[string]interface{}, 0, len(v))
		for _, item := range v {
			if entry, ok := item.(map[string]interface{}); ok {
				out = append(out, entry)
			}
		}
		return out
	}
	return nil
}

// parsedResume returns the parsed section of a profile's resume, or nil when
// the resume has not been through the parser yet.
func parsedResume(profile *records.Profile) map[string]interface{} {
	return mapAt(profile.Resume, "parsed")
}

// resumeSkills flattens the technical and tools skill groups of a parsed
// resume into one lowercase list.
func resumeSkills(parsed map[string]interface{}) []string {
	skills := mapAt(parsed, "skills")
	var out []string
	for _, group := range []string{"technical", "tools"} {
		for _, skill := range stringsAt(skills, group) {
			out = append(out, strings.ToLower(skill))
		}
	}
	return out
}

// findApplication returns the owner's application for a posting, or nil when
// none exists yet.
func findApplication(ctx context.Context, store records.Store, ownerID, postingID string) (*records.Application, error) {
	apps, err := store.SearchApplications(ctx, records.ApplicationFilter{OwnerID: ownerID})
	if err != nil {
		return nil, fmt.Errorf("failed to search applications: %w", err)
	}
	for _, app := range apps {
		if app.PostingID == postingID {
			return app, nil
		}
	}
	return nil, nil
}

// formatMoney renders 125000 as "$125,000".
func formatMoney(amount int) string {
	if amount < 0 {
		return "-" + formatMoney(-amount)
	}
	digits := fmt.Sprintf("%d", amount)
	var b strings.Builder
	b.WriteByte('$')
	lead := len(digits) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(digits[:lead])
	for i := lead; i < len(digits); i += 3 {
		b.WriteByte(',')
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// salaryRange renders owner preferences as "$90,000 - $120,000", "$90,000+",
// or "" when no expectation is set.
func salaryRange(prefs map[string]interface{}) string {
	min := intAt(prefs, "salary_min")
	max := intAt(prefs, "salary_max")
	switch {
	case min > 0 && max > 0:
		return formatMoney(min) + " - " + formatMoney(max)
	case min > 0:
		return formatMoney(min) + "+"
	default:
		return ""
	}
}

// titleCase uppercases the first letter of each hyphen or space separated
// word: "acme-corp" becomes "Acme Corp".
func titleCase(s string) string {
	words := strings.Fields(strings.ReplaceAll(s, "-", " "))
	for i, word := range words {
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}

// splitName breaks a full name into first and last parts.
func splitName(name string) (first, last string) {
	parts := strings.Fields(name)
	if len(parts) == 0 {
		return "", ""
	}
	first = parts[0]
	if len(parts) > 1 {
		last = strings.Join(parts[1:], " ")
	}
	return first, last
}

// estimatedYears derives years of experience from the number of parsed
// resume positions, two years per position.
func estimatedYears(parsed map[string]interface{}) int {
	return len(mapsAt(parsed, "experience")) * 2
}

func daysSince(t, now time.Time) int {
	if t.IsZero() || now.Before(t) {
		return 0
	}
	return int(now.Sub(t).Hours() / 24)
}
