package insight

import (
	"strings"

	"github.com/yungbote/fathom-backend/internal/types"
)

// Title overlap above this fraction marks two differently-keyed insights
// as restatements of each other.
const titleOverlapLimit = 0.7

// Fixed theme clusters. An insight whose title and summary hit at least
// two keywords of a cluster carries that theme; within one category only
// the first insight of a theme survives a pass.
var themeClusters = map[string][]string{
	"sleep":     {"sleep", "rest", "tired", "insomnia", "bed", "nap"},
	"exercise":  {"workout", "exercise", "run", "running", "gym", "training"},
	"social":    {"friend", "friends", "social", "alone", "together", "people"},
	"work":      {"work", "deadline", "meeting", "project", "job", "boss"},
	"substance": {"caffeine", "coffee", "alcohol", "drink", "wine", "beer"},
}

// Stable evaluation order for themeOf.
var themeOrder = []string{"sleep", "exercise", "social", "work", "substance"}

var fillerWords = map[string]bool{
	"the": true, "and": true, "you": true, "your": true, "with": true,
	"when": true, "than": true, "this": true, "that": true, "have": true,
	"has": true, "are": true, "for": true, "was": true, "been": true,
	"about": true, "into": true, "over": true, "last": true, "more": true,
}

func wordSet(s string) map[string]bool {
	out := map[string]bool{}
	var cur strings.Builder
	flush := func() {
		w := cur.String()
		cur.Reset()
		if len(w) >= 3 && !fillerWords[w] {
			out[w] = true
		}
	}
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			cur.WriteRune(r)
			continue
		}
		flush()
	}
	flush()
	return out
}

// overlapRatio is containment overlap: shared words over the smaller set.
// A short title fully contained in a longer one is a restatement even
// when the longer one adds qualifiers.
func overlapRatio(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}
	hits := 0
	for w := range small {
		if large[w] {
			hits++
		}
	}
	return float64(hits) / float64(len(small))
}

func themeOf(in types.Insight) string {
	words := wordSet(in.Title + " " + in.Summary)
	for _, theme := range themeOrder {
		hits := 0
		for _, kw := range themeClusters[theme] {
			if words[kw] {
				hits++
			}
		}
		if hits >= 2 {
			return theme
		}
	}
	return ""
}

type dedupEntry struct {
	id       string
	title    map[string]bool
	combined map[string]bool
	theme    string
}

func profileOf(in types.Insight) dedupEntry {
	return dedupEntry{
		id:       in.ID,
		title:    wordSet(in.Title),
		combined: wordSet(in.Title + " " + in.Summary),
		theme:    themeOf(in),
	}
}

// deduper admits candidates against everything the reader has already
// seen: the previous active set, the history, and candidates admitted
// earlier in the same pass.
type deduper struct {
	threshold float64
	existing  map[string]bool
	admitted  map[string]bool
	entries   []dedupEntry
}

func newDeduper(existing []types.Insight, threshold float64) *deduper {
	d := &deduper{
		threshold: threshold,
		existing:  map[string]bool{},
		admitted:  map[string]bool{},
	}
	for _, in := range existing {
		if in.ID == "" {
			continue
		}
		d.existing[in.ID] = true
		d.entries = append(d.entries, profileOf(in))
	}
	return d
}

// admit reports whether cand survives. A candidate carrying the id of a
// known insight is that insight refreshed and passes the similarity
// checks; a second candidate with the same id in one pass does not.
func (d *deduper) admit(cand types.Insight) bool {
	if cand.ID == "" || d.admitted[cand.ID] {
		return false
	}
	if !d.existing[cand.ID] {
		p := profileOf(cand)
		for _, e := range d.entries {
			if e.id == cand.ID {
				continue
			}
			if overlapRatio(p.title, e.title) > titleOverlapLimit {
				return false
			}
			if overlapRatio(p.combined, e.combined) > d.threshold {
				return false
			}
			if p.theme != "" && p.theme == e.theme {
				return false
			}
		}
		d.entries = append(d.entries, p)
	}
	d.admitted[cand.ID] = true
	return true
}
