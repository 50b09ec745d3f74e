// Package rank scores free-text matches by lexical quality and recency.
//
// A candidate's score is its best field match (quality times field weight)
// multiplied by an exponential recency decay: 0.5^(age_days/half_life).
package rank

import (
	"math"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/sahilm/fuzzy"
)

// Match quality tiers, highest wins
const (
	QualityExact     = 1.0
	QualityPrefix    = 0.8
	QualitySubstring = 0.6
	QualityAllTokens = 0.5
	QualityTokens    = 0.4 // scaled by the fraction of query tokens found
	QualityFuzzy     = 0.2
)

const minFuzzyLen = 3

// Field is one named, weighted piece of text on a candidate.
// PrefixOnly fields (identifiers such as hashes) match only exactly or by prefix.
type Field struct {
	Name       string
	Text       string
	PrefixOnly bool
}

// Candidate is anything that can be ranked
type Candidate struct {
	ID        int64
	Kind      string
	CreatedAt time.Time
	Fields    []Field
}

// Result is a scored candidate
type Result struct {
	Candidate
	Lexical    float64
	Decay      float64
	Score      float64
	MatchField string
}

// Scorer ranks candidates against a query
type Scorer struct {
	Weights      map[string]float64
	HalfLifeDays float64
	Now          time.Time
}

// MatchQuality grades how well text matches query, in [0, 1]
func MatchQuality(text, query string) float64 {
	t := normalize(text)
	q := normalize(query)
	if t == "" || q == "" {
		return 0
	}

	switch {
	case t == q:
		return QualityExact
	case strings.HasPrefix(t, q):
		return QualityPrefix
	case strings.Contains(t, q):
		return QualitySubstring
	}

	tokens := Tokenize(q)
	if len(tokens) > 0 {
		found := 0
		for _, tok := range tokens {
			if strings.Contains(t, tok) {
				found++
			}
		}
		if found == len(tokens) {
			return QualityAllTokens
		}
		if found > 0 {
			return QualityTokens * float64(found) / float64(len(tokens))
		}
	}

	if fuzzyWords(Tokenize(t), tokens) {
		return QualityFuzzy
	}
	return 0
}

// PrefixQuality grades identifier-like text, which only matches exactly or by prefix
func PrefixQuality(text, query string) float64 {
	t := normalize(text)
	q := normalize(query)
	switch {
	case t == "" || q == "":
		return 0
	case t == q:
		return QualityExact
	case strings.HasPrefix(t, q):
		return QualityPrefix
	}
	return 0
}

// fuzzyWords reports whether every query token is a close subsequence of some
// word, anchored at the word's first rune. Very short tokens fuzzy-match nearly
// anything, so they never qualify.
func fuzzyWords(words, tokens []string) bool {
	if len(words) == 0 || len(tokens) == 0 {
		return false
	}
	for _, tok := range tokens {
		if utf8.RuneCountInString(tok) < minFuzzyLen {
			return false
		}
		found := false
		for _, m := range fuzzy.Find(tok, words) {
			idx := m.MatchedIndexes
			if len(idx) > 0 && idx[0] == 0 && idx[len(idx)-1] < 2*len(tok) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Decay returns the recency factor for an item of the given age.
// Future timestamps are treated as age zero.
func Decay(age time.Duration, halfLifeDays float64) float64 {
	if halfLifeDays <= 0 {
		return 1
	}
	if age < 0 {
		age = 0
	}
	days := age.Hours() / 24
	return math.Pow(0.5, days/halfLifeDays)
}

// weight returns the configured weight for a field, defaulting to 1
func (s Scorer) weight(field string) float64 {
	if w, ok := s.Weights[field]; ok {
		return w
	}
	return 1
}

// Score grades a single candidate
func (s Scorer) Score(c Candidate, query string) Result {
	r := Result{Candidate: c}
	for _, f := range c.Fields {
		match := MatchQuality
		if f.PrefixOnly {
			match = PrefixQuality
		}
		q := match(f.Text, query) * s.weight(f.Name)
		if q > r.Lexical {
			r.Lexical = q
			r.MatchField = f.Name
		}
	}
	r.Decay = Decay(s.Now.Sub(c.CreatedAt), s.HalfLifeDays)
	r.Score = r.Lexical * r.Decay
	return r
}

// Rank scores candidates, drops non-matches and orders best first.
// Ties break on newer CreatedAt, then higher ID.
func (s Scorer) Rank(candidates []Candidate, query string) []Result {
	results := make([]Result, 0, len(candidates))
	for _, c := range candidates {
		r := s.Score(c, query)
		if r.Lexical == 0 {
			continue
		}
		results = append(results, r)
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return newerFirst(results[i].Candidate, results[j].Candidate)
	})
	return results
}

// Chronological orders candidates newest first without scoring
func Chronological(candidates []Candidate) []Result {
	results := make([]Result, len(candidates))
	for i, c := range candidates {
		results[i] = Result{Candidate: c}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return newerFirst(results[i].Candidate, results[j].Candidate)
	})
	return results
}

func newerFirst(a, b Candidate) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	if a.ID != b.ID {
		return a.ID > b.ID
	}
	return a.Kind < b.Kind
}

// Tokenize lowercases s and splits it on anything that is not a letter or digit
func Tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
