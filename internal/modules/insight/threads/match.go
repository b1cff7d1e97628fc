package threads

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/fathom-backend/internal/types"
)

// Matching thresholds. Embedding agreement wins outright; near-exact names
// catch users who journal without embeddings; the middle band only
// nominates evolution candidates and never merges on its own.
const (
	EmbeddingContinuation = 0.75
	NameContinuation      = 0.95
	EvolutionBandLow      = 0.50

	// MaxActiveThreads bounds the working set of storylines per user.
	MaxActiveThreads = 10
)

// Match rules.
const (
	MatchRuleEmbedding = "embedding"
	MatchRuleName      = "name"
	MatchRuleNew       = "new"
)

// Candidate is one storyline observation distilled from an entry.
type Candidate struct {
	Name      string
	Category  string
	Embedding []float32
	Sentiment float64
	EntryID   uuid.UUID
	Note      string
	At        time.Time
}

// EvolutionCandidate is a same-category thread similar enough to suggest
// the storyline may be evolving, but not enough to merge automatically.
type EvolutionCandidate struct {
	Thread     *types.Thread
	Similarity float64
}

// Match is the outcome of testing a candidate against the active set.
type Match struct {
	Thread     *types.Thread
	Rule       string
	Similarity float64
	Evolution  []EvolutionCandidate
}

// MatchCandidate applies the matching precedence: embedding cosine first,
// then normalized-name similarity, then the evolution band. Pure function
// over the active set.
func MatchCandidate(active []*types.Thread, cand Candidate) Match {
	var (
		bestEmbed    *types.Thread
		bestEmbedSim float64
	)
	if len(cand.Embedding) > 0 {
		for _, th := range active {
			if th == nil || len(th.Embedding) == 0 {
				continue
			}
			sim := Cosine(cand.Embedding, th.Embedding)
			if sim > bestEmbedSim {
				bestEmbedSim = sim
				bestEmbed = th
			}
		}
		if bestEmbed != nil && bestEmbedSim >= EmbeddingContinuation {
			return Match{Thread: bestEmbed, Rule: MatchRuleEmbedding, Similarity: bestEmbedSim}
		}
	}

	var (
		bestName    *types.Thread
		bestNameSim float64
	)
	for _, th := range active {
		if th == nil {
			continue
		}
		sim := NameSimilarity(cand.Name, th.NormalizedName)
		if sim > bestNameSim {
			bestNameSim = sim
			bestName = th
		}
	}
	if bestName != nil && bestNameSim >= NameContinuation {
		return Match{Thread: bestName, Rule: MatchRuleName, Similarity: bestNameSim}
	}

	match := Match{Rule: MatchRuleNew}
	if len(cand.Embedding) > 0 && cand.Category != "" {
		for _, th := range active {
			if th == nil || th.Category != cand.Category || len(th.Embedding) == 0 {
				continue
			}
			sim := Cosine(cand.Embedding, th.Embedding)
			if sim >= EvolutionBandLow && sim < EmbeddingContinuation {
				match.Evolution = append(match.Evolution, EvolutionCandidate{Thread: th, Similarity: sim})
			}
		}
		sort.Slice(match.Evolution, func(i, j int) bool {
			return match.Evolution[i].Similarity > match.Evolution[j].Similarity
		})
	}
	return match
}
