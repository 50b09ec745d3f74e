package db

import (
	"fmt"
	"strings"
	"time"

	"github.com/marcus/proj/internal/rank"
)

// Result kinds returned by Search
const (
	KindDecision = "decision"
	KindNote     = "note"
	KindCommit   = "commit"
)

// candidateCap bounds how many of the newest rows of each kind ranked
// search scans for fuzzy matches that SQL cannot find
const candidateCap = 2000

// SearchOptions controls Search
type SearchOptions struct {
	// Ranked orders by relevance times recency instead of newest first
	Ranked bool
	Limit  int
	// Kinds restricts results to the given kinds; empty means all
	Kinds []string
}

// SearchResult is one hit across decisions, notes and commits
type SearchResult struct {
	Kind       string    `json:"kind"`
	ID         int64     `json:"id"`
	Ref        string    `json:"ref"`
	Title      string    `json:"title"`
	Body       string    `json:"body,omitempty"`
	Status     string    `json:"status,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	Score      float64   `json:"score,omitempty"`
	MatchField string    `json:"match_field,omitempty"`
}

// Search finds decisions (superseded ones included), notes and commits
// matching query. Unranked results match the whole query as a substring
// (commit hashes by prefix) and come newest first; ranked results are scored
// per token with recency decay.
func (db *DB) Search(query string, opts SearchOptions) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, invalidInput("search query is required")
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = db.cfg.Search.Limit
	}

	var candidates []rank.Candidate
	hits := map[string]SearchResult{}
	err := db.withReadTx(func(q querier) error {
		for _, kind := range []string{KindDecision, KindNote, KindCommit} {
			if !wantKind(opts.Kinds, kind) {
				continue
			}
			found, err := searchKind(q, kind, query, opts.Ranked, limit)
			if err != nil {
				return err
			}
			for _, r := range found {
				hits[resultKey(r.Kind, r.ID)] = r.result
				candidates = append(candidates, r.Candidate)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var ordered []rank.Result
	if opts.Ranked {
		scorer := rank.Scorer{
			Weights:      db.cfg.Search.Weights,
			HalfLifeDays: db.cfg.Search.HalfLifeDays,
			Now:          db.clock(),
		}
		ordered = scorer.Rank(candidates, query)
	} else {
		ordered = rank.Chronological(candidates)
	}

	results := make([]SearchResult, 0, min(limit, len(ordered)))
	for _, o := range ordered {
		if len(results) >= limit {
			break
		}
		r := hits[resultKey(o.Kind, o.ID)]
		r.Score = o.Score
		r.MatchField = o.MatchField
		results = append(results, r)
	}
	return results, nil
}

type searchHit struct {
	rank.Candidate
	result SearchResult
}

func resultKey(kind string, id int64) string {
	return fmt.Sprintf("%s:%d", kind, id)
}

func wantKind(kinds []string, kind string) bool {
	if len(kinds) == 0 {
		return true
	}
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}

func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

// searchSource describes where one result kind lives. Prefix columns hold
// identifiers, which match from their start only.
type searchSource struct {
	selectSQL string
	cols      []string
	prefix    []string
	orderCol  string
}

var searchSources = map[string]searchSource{
	KindDecision: {
		selectSQL: `SELECT ` + decisionCols + ` FROM decisions`,
		cols:      []string{"topic", "decision", "rationale"},
		orderCol:  "created_at",
	},
	KindNote: {
		selectSQL: `SELECT ` + noteCols + ` FROM context_notes`,
		cols:      []string{"title", "content", "category"},
		orderCol:  "created_at",
	},
	KindCommit: {
		selectSQL: `SELECT ` + commitCols + `, id FROM git_commits`,
		cols:      []string{"message", "author"},
		prefix:    []string{"hash"},
		orderCol:  "committed_at",
	},
}

// where builds an OR of LIKE conditions: every term against every text
// column, and the whole query against the prefix columns.
func (src searchSource) where(query string, terms []string) (string, []any) {
	var conds []string
	var args []any
	for _, c := range src.cols {
		for _, term := range terms {
			conds = append(conds, c+` LIKE ? ESCAPE '\'`)
			args = append(args, likePattern(term))
		}
	}
	for _, c := range src.prefix {
		conds = append(conds, c+` LIKE ? ESCAPE '\'`)
		args = append(args, strings.TrimPrefix(likePattern(query), "%"))
	}
	return ` WHERE ` + strings.Join(conds, " OR "), args
}

// searchKind loads candidate rows of one kind. Plain search keeps the newest
// limit rows containing the whole query. Ranked search loads every row
// containing any query token, plus the newest candidateCap rows as fuzzy-only
// candidates.
func searchKind(q querier, kind, query string, ranked bool, limit int) ([]searchHit, error) {
	src := searchSources[kind]
	if !ranked {
		where, args := src.where(query, []string{query})
		return loadHits(q, kind, src, where, args, limit)
	}

	terms := rank.Tokenize(query)
	if len(terms) == 0 {
		terms = []string{query}
	}
	where, args := src.where(query, terms)
	out, err := loadHits(q, kind, src, where, args, 0)
	if err != nil {
		return nil, err
	}

	recent, err := loadHits(q, kind, src, "", nil, candidateCap)
	if err != nil {
		return nil, err
	}
	seen := make(map[int64]bool, len(out))
	for _, h := range out {
		seen[h.ID] = true
	}
	for _, h := range recent {
		if !seen[h.ID] {
			out = append(out, h)
		}
	}
	return out, nil
}

// loadHits runs one candidate query newest first; limit 0 means unbounded
func loadHits(q querier, kind string, src searchSource, where string, args []any, limit int) ([]searchHit, error) {
	query := src.selectSQL + where + fmt.Sprintf(` ORDER BY %s DESC, id DESC`, src.orderCol)
	if limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, limit)
	}

	rows, err := q.QueryContext(bg, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search %ss: %w", kind, err)
	}
	defer rows.Close()

	var out []searchHit
	for rows.Next() {
		hit, err := scanHit(kind, rows)
		if err != nil {
			return nil, err
		}
		out = append(out, hit)
	}
	return out, rows.Err()
}

func scanHit(kind string, r rowScanner) (searchHit, error) {
	switch kind {
	case KindDecision:
		d, err := scanDecision(r)
		if err != nil {
			return searchHit{}, err
		}
		return searchHit{
			Candidate: rank.Candidate{ID: d.ID, Kind: kind, CreatedAt: d.CreatedAt, Fields: []rank.Field{
				{Name: "topic", Text: d.Topic},
				{Name: "decision", Text: d.Decision},
				{Name: "rationale", Text: d.Rationale},
			}},
			result: SearchResult{Kind: kind, ID: d.ID, Ref: fmt.Sprintf("D%d", d.ID), Title: d.Topic,
				Body: d.Decision, Status: string(d.Status), CreatedAt: d.CreatedAt},
		}, nil
	case KindNote:
		n, err := scanNote(r)
		if err != nil {
			return searchHit{}, err
		}
		return searchHit{
			Candidate: rank.Candidate{ID: n.ID, Kind: kind, CreatedAt: n.CreatedAt, Fields: []rank.Field{
				{Name: "title", Text: n.Title},
				{Name: "content", Text: n.Content},
				{Name: "category", Text: string(n.Category)},
			}},
			result: SearchResult{Kind: kind, ID: n.ID, Ref: fmt.Sprintf("N%d", n.ID), Title: n.Title,
				Body: n.Content, Status: string(n.Category), CreatedAt: n.CreatedAt},
		}, nil
	default:
		var c struct {
			hash, short, author, message, committed string
			files, ins, del                         int
			id                                      int64
		}
		if err := r.Scan(&c.hash, &c.short, &c.author, &c.message, &c.committed, &c.files, &c.ins, &c.del, &c.id); err != nil {
			return searchHit{}, err
		}
		at := parseTime(c.committed)
		return searchHit{
			Candidate: rank.Candidate{ID: c.id, Kind: kind, CreatedAt: at, Fields: []rank.Field{
				{Name: "message", Text: c.message},
				{Name: "author", Text: c.author},
				{Name: "hash", Text: c.hash, PrefixOnly: true},
			}},
			result: SearchResult{Kind: kind, ID: c.id, Ref: c.short, Title: c.message, Body: c.author, CreatedAt: at},
		}, nil
	}
}
