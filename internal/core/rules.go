package core

import "strings"

// SuggestCategory returns the category id picked by the first rule whose
// keyword occurs in the description, case-insensitive. The first matching
// rule decides: if its category id does not exist the suggestion is
// rejected, not passed to later rules.
func SuggestCategory(description string, rules []Rule, categories []Category) (string, bool) {
	desc := strings.ToLower(description)
	for _, r := range rules {
		keyword := strings.ToLower(strings.TrimSpace(r.Keyword))
		if keyword == "" || !strings.Contains(desc, keyword) {
			continue
		}
		for _, c := range categories {
			if c.ID == r.CategoryID {
				return c.ID, true
			}
		}
		return "", false
	}
	return "", false
}
