package repomap

import (
	"regexp"
	"strings"
)

var wordSplit = regexp.MustCompile(`\W+`)

// stopWords are filler terms that carry no focus signal in a task
// description.
var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "that": {}, "this": {},
	"from": {}, "are": {}, "was": {}, "were": {}, "has": {}, "have": {},
	"had": {}, "can": {}, "could": {}, "should": {}, "would": {}, "will": {},
	"into": {}, "onto": {}, "not": {}, "all": {}, "any": {}, "but": {},
	"its": {}, "out": {}, "how": {}, "what": {}, "when": {}, "where": {},
	"which": {}, "who": {}, "why": {}, "you": {}, "your": {}, "use": {},
	"using": {}, "via": {}, "per": {}, "about": {}, "need": {}, "want": {},
	"make": {}, "please": {},
}

// ExtractKeywords distills a task description into focus keywords: lowered,
// split on non-word runs, with short words and filler dropped. First
// occurrence order is preserved and duplicates removed.
func ExtractKeywords(task string) []string {
	seen := make(map[string]struct{})
	var keywords []string
	for _, w := range wordSplit.Split(strings.ToLower(task), -1) {
		if len(w) <= 2 {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		keywords = append(keywords, w)
	}
	return keywords
}
