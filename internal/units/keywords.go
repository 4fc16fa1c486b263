package units

import (
	"sort"
	"strings"
)

// Tech vocabulary used for keyword extraction, grouped the way resumes
// group them. Terms are lowercase; matching is whole-word so "go" does not
// fire inside "django".
var (
	languageKeywords = []string{
		"python", "javascript", "typescript", "java", "c++", "c#", "go",
		"rust", "ruby", "php", "swift", "kotlin", "scala", "sql", "html", "css",
	}
	frameworkKeywords = []string{
		"react", "angular", "vue", "django", "flask", "fastapi", "spring",
		"express", "node.js", "next.js", "rails", "laravel", ".net",
	}
	toolKeywords = []string{
		"git", "docker", "kubernetes", "aws", "azure", "gcp", "jenkins",
		"terraform", "ansible", "jira", "postman",
	}
	databaseKeywords = []string{
		"postgresql", "mysql", "mongodb", "redis", "elasticsearch", "sqlite",
		"dynamodb", "cassandra",
	}
	conceptKeywords = []string{
		"agile", "scrum", "ci/cd", "devops", "rest", "graphql",
		"microservices", "machine learning", "deep learning", "data science",
	}
	softSkillKeywords = []string{
		"leadership", "communication", "teamwork", "problem-solving",
		"analytical", "project management", "collaboration", "mentoring",
	}
)

var keywordGroups = [][]string{
	languageKeywords,
	frameworkKeywords,
	toolKeywords,
	databaseKeywords,
	conceptKeywords,
}

// extractKeywords returns every known tech term present in text, lowercase
// and sorted for stable output.
func extractKeywords(text string) []string {
	lower := strings.ToLower(text)
	seen := make(map[string]bool)
	var found []string
	for _, group := range keywordGroups {
		for _, term := range group {
			if !seen[term] && containsTerm(lower, term) {
				seen[term] = true
				found = append(found, term)
			}
		}
	}
	sort.Strings(found)
	return found
}

// containsTerm reports whether term occurs in lower as a whole word. Terms
// may carry non-word runes (c++, node.js, ci/cd), so boundaries are checked
// against letters and digits rather than with \b.
func containsTerm(lower, term string) bool {
	if term == "" {
		return false
	}
	for start := 0; start+len(term) <= len(lower); {
		idx := strings.Index(lower[start:], term)
		if idx < 0 {
			return false
		}
		idx += start
		end := idx + len(term)
		beforeOK := idx == 0 || !isWordByte(lower[idx-1])
		afterOK := end == len(lower) || !isWordByte(lower[end])
		if beforeOK && afterOK {
			return true
		}
		start = idx + 1
	}
	return false
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}
