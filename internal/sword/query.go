package sword

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	DefaultLimit = 25
	// MaxLimit lets a client fetch the whole catalogue in one page.
	MaxLimit = 20000
)

// ExactFields may be filtered by exact value.
var ExactFields = []string{"School", "Smith", "Type", "Province"}

// SearchFields are matched by free-text search terms.
var SearchFields = []string{
	"Smith", "Mei", "School", "Type", "Description", "Authentication", "Province", "Period",
}

// EmptyMedia are the stored values meaning "no media attached". A
// missing or null field counts as empty too.
var EmptyMedia = []string{"NA", "[]", ""}

// Term is one unit of a search. Every term must match at least one
// search field: words as a case-insensitive substring, phrases on word
// boundaries. A numeric word also matches the record index.
type Term struct {
	Text   string
	Phrase bool
}

// Query selects and paginates records. Zero values mean "no filter".
type Query struct {
	Search         []string
	Exact          map[string]string
	Authentication string
	HasMedia       *bool
	Page           int
	Limit          int
}

var termPattern = regexp.MustCompile(`"([^"]*)"|(\S+)`)

// Terms parses every search input into quoted phrases and bare words.
func (q Query) Terms() []Term {
	var terms []Term
	for _, input := range q.Search {
		for _, m := range termPattern.FindAllStringSubmatch(input, -1) {
			if m[2] == "" {
				if phrase := strings.TrimSpace(m[1]); phrase != "" {
					terms = append(terms, Term{Text: phrase, Phrase: true})
				}
				continue
			}
			terms = append(terms, Term{Text: m[2]})
		}
	}
	return terms
}

// Pattern is the case-insensitive regular expression body for t,
// with wordBoundary as the dialect's boundary escape.
func (t Term) Pattern(wordBoundary string) string {
	quoted := regexp.QuoteMeta(t.Text)
	if t.Phrase {
		return wordBoundary + quoted + wordBoundary
	}
	return quoted
}

// Numeric reports whether the term can name a record index.
func (t Term) Numeric() bool {
	if t.Phrase || t.Text == "" {
		return false
	}
	for _, r := range t.Text {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Offset is the number of matches skipped before the page.
func (q Query) Offset() int {
	return (q.Page - 1) * q.Limit
}

// Normalize clamps paging to valid bounds.
func (q Query) Normalize() Query {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	return q
}

// window returns the slice bounds of the page within n matches.
func (q Query) window(n int) (int, int) {
	q = q.Normalize()
	start := q.Offset()
	if start > n {
		start = n
	}
	end := start + q.Limit
	if end > n {
		end = n
	}
	return start, end
}

// matcher evaluates the query in process.
func (q Query) matcher() func(Sword) bool {
	type compiled struct {
		re    *regexp.Regexp
		index string
	}
	var terms []compiled
	for _, t := range q.Terms() {
		c := compiled{re: regexp.MustCompile(`(?i)` + t.Pattern(`\b`))}
		if t.Numeric() {
			c.index = t.Text
		}
		terms = append(terms, c)
	}

	var auth *regexp.Regexp
	if q.Authentication != "" {
		auth = regexp.MustCompile(`(?i)` + regexp.QuoteMeta(q.Authentication))
	}

	return func(s Sword) bool {
		for _, t := range terms {
			if !matchesAny(s, t.re) && (t.index == "" || indexOf(s) != t.index) {
				return false
			}
		}
		for field, want := range q.Exact {
			if text(s, field) != want {
				return false
			}
		}
		if auth != nil && !auth.MatchString(text(s, "Authentication")) {
			return false
		}
		if q.HasMedia != nil && *q.HasMedia == mediaEmpty(s) {
			return false
		}
		return true
	}
}

func matchesAny(s Sword, re *regexp.Regexp) bool {
	for _, f := range SearchFields {
		if re.MatchString(text(s, f)) {
			return true
		}
	}
	return false
}

func mediaEmpty(s Sword) bool {
	v := text(s, FieldMedia)
	for _, empty := range EmptyMedia {
		if v == empty {
			return true
		}
	}
	return false
}

func text(s Sword, field string) string {
	v, ok := s[field]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}
