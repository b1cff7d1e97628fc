package rules

import (
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/fathom-backend/internal/modules/insight/features"
	"github.com/yungbote/fathom-backend/internal/types"
)

// Consequents. A rule only ever says one of two things about mood.
const (
	ConsequentBoost = "mood_boost"
	ConsequentDrop  = "mood_drop"
)

const (
	DefaultMinSupport   = 0.15
	DefaultMaxItemset   = 4
	DefaultMinSamples   = 5
	DefaultMinMoodDelta = 0.1

	maxRuleEvidence = 8
)

// Transaction is one entry reduced to its items plus the mood the miner
// correlates against.
type Transaction struct {
	EntryID uuid.UUID
	Items   []string
	Mood    float64
	HasMood bool
}

// TransactionFrom adapts an extracted feature set into a miner transaction.
func TransactionFrom(fs features.FeatureSet) Transaction {
	return Transaction{
		EntryID: fs.EntryID,
		Items:   Itemize(fs),
		Mood:    fs.Mood,
		HasMood: fs.HasMood,
	}
}

type Options struct {
	MinSupport     float64
	MaxItemsetSize int
	MinSamples     int
	MinMoodDelta   float64
}

func (o Options) withDefaults() Options {
	if o.MinSupport <= 0 {
		o.MinSupport = DefaultMinSupport
	}
	if o.MaxItemsetSize <= 0 {
		o.MaxItemsetSize = DefaultMaxItemset
	}
	if o.MinSamples <= 0 {
		o.MinSamples = DefaultMinSamples
	}
	if o.MinMoodDelta <= 0 {
		o.MinMoodDelta = DefaultMinMoodDelta
	}
	return o
}

// Itemset is a frequent co-occurrence with the transactions that contain it.
type Itemset struct {
	Items     []string // sorted
	Support   int
	TxIndexes []int
}

// Rule is a surfaced mood correlation. Confidence is |MoodDelta|, not the
// classical antecedent-to-consequent ratio; the consumer contract depends
// on that scale and it must not be "corrected".
type Rule struct {
	Key         string
	Antecedent  []string
	Consequent  string
	Support     float64
	Confidence  float64
	MoodDelta   float64
	SampleCount int
	Validation  string
	EntryIDs    []uuid.UUID
}

// ValidationFor buckets a confidence value. Boundaries are inclusive on
// the left: exactly 0.75 confirms, exactly 0.5 pends.
func ValidationFor(confidence float64) string {
	switch {
	case confidence >= 0.75:
		return types.ValidationConfirmed
	case confidence >= 0.5:
		return types.ValidationPending
	default:
		return types.ValidationHidden
	}
}

// FrequentItemsets runs apriori over the transactions: frequent singles by
// raw count against ceil(N*minSupport), then size-k candidates joined from
// size k-1 sets sharing a (k-2)-prefix, pruned unless every (k-1)-subset
// is itself frequent, re-counted against the same floor.
func FrequentItemsets(txs []Transaction, opts Options) []Itemset {
	opts = opts.withDefaults()
	n := len(txs)
	if n == 0 {
		return nil
	}
	minCount := int(math.Ceil(float64(n) * opts.MinSupport))
	if minCount < 1 {
		minCount = 1
	}

	membership := make([]map[string]bool, n)
	counts := map[string]int{}
	for i, tx := range txs {
		set := make(map[string]bool, len(tx.Items))
		for _, it := range tx.Items {
			set[it] = true
		}
		membership[i] = set
		for it := range set {
			counts[it]++
		}
	}

	var level []Itemset
	for it, c := range counts {
		if c < minCount {
			continue
		}
		idxs := supportOf([]string{it}, membership)
		level = append(level, Itemset{Items: []string{it}, Support: c, TxIndexes: idxs})
	}
	sortLevel(level)

	all := append([]Itemset(nil), level...)
	frequent := map[string]bool{}
	for _, set := range level {
		frequent[itemsetKey(set.Items)] = true
	}

	for k := 2; k <= opts.MaxItemsetSize && len(level) > 1; k++ {
		var next []Itemset
		for i := 0; i < len(level); i++ {
			for j := i + 1; j < len(level); j++ {
				cand, ok := joinOnPrefix(level[i].Items, level[j].Items)
				if !ok {
					// level is sorted, so once the prefix diverges no
					// later j shares it either
					break
				}
				if !allSubsetsFrequent(cand, frequent) {
					continue
				}
				idxs := supportOf(cand, membership)
				if len(idxs) < minCount {
					continue
				}
				next = append(next, Itemset{Items: cand, Support: len(idxs), TxIndexes: idxs})
			}
		}
		sortLevel(next)
		for _, set := range next {
			frequent[itemsetKey(set.Items)] = true
		}
		all = append(all, next...)
		level = next
	}
	return all
}

// Mine turns frequent itemsets into mood rules: supporters' mean mood is
// compared to the corpus baseline, small or thin effects are discarded,
// implausible ambient singles are filtered, and the rest are bucketed.
func Mine(txs []Transaction, opts Options) []Rule {
	opts = opts.withDefaults()
	if len(txs) == 0 {
		return nil
	}

	var moodSum float64
	moodN := 0
	for _, tx := range txs {
		if tx.HasMood {
			moodSum += tx.Mood
			moodN++
		}
	}
	if moodN == 0 {
		return nil
	}
	baseline := moodSum / float64(moodN)

	sets := FrequentItemsets(txs, opts)
	rules := make([]Rule, 0, len(sets))
	for _, set := range sets {
		if !plausible(set.Items) {
			continue
		}
		var sum float64
		samples := 0
		var evidence []uuid.UUID
		for _, idx := range set.TxIndexes {
			tx := txs[idx]
			if !tx.HasMood {
				continue
			}
			sum += tx.Mood
			samples++
			if len(evidence) < maxRuleEvidence && tx.EntryID != uuid.Nil {
				evidence = append(evidence, tx.EntryID)
			}
		}
		if samples < opts.MinSamples {
			continue
		}
		delta := sum/float64(samples) - baseline
		if math.Abs(delta) < opts.MinMoodDelta {
			continue
		}
		consequent := ConsequentBoost
		if delta < 0 {
			consequent = ConsequentDrop
		}
		confidence := math.Abs(delta)
		rules = append(rules, Rule{
			Key:         itemsetKey(set.Items),
			Antecedent:  set.Items,
			Consequent:  consequent,
			Support:     float64(set.Support) / float64(len(txs)),
			Confidence:  confidence,
			MoodDelta:   delta,
			SampleCount: samples,
			Validation:  ValidationFor(confidence),
			EntryIDs:    evidence,
		})
	}

	sort.Slice(rules, func(i, j int) bool {
		if rules[i].Confidence != rules[j].Confidence {
			return rules[i].Confidence > rules[j].Confidence
		}
		return rules[i].Key < rules[j].Key
	})
	return rules
}

func itemsetKey(items []string) string {
	return strings.Join(items, "+")
}

func sortLevel(level []Itemset) {
	sort.Slice(level, func(i, j int) bool {
		return itemsetKey(level[i].Items) < itemsetKey(level[j].Items)
	})
}

// joinOnPrefix merges two sorted (k-1)-itemsets sharing their first k-2
// items into one sorted k-candidate. Each k-set is produced by exactly
// one pair under this convention.
func joinOnPrefix(a, b []string) ([]string, bool) {
	k := len(a)
	if len(b) != k {
		return nil, false
	}
	for i := 0; i < k-1; i++ {
		if a[i] != b[i] {
			return nil, false
		}
	}
	if a[k-1] >= b[k-1] {
		return nil, false
	}
	cand := make([]string, k+1)
	copy(cand, a)
	cand[k] = b[k-1]
	return cand, true
}

func allSubsetsFrequent(cand []string, frequent map[string]bool) bool {
	sub := make([]string, 0, len(cand)-1)
	for drop := range cand {
		sub = sub[:0]
		for i, it := range cand {
			if i != drop {
				sub = append(sub, it)
			}
		}
		if !frequent[itemsetKey(sub)] {
			return false
		}
	}
	return true
}

func supportOf(items []string, membership []map[string]bool) []int {
	var idxs []int
	for i, set := range membership {
		hasAll := true
		for _, it := range items {
			if !set[it] {
				hasAll = false
				break
			}
		}
		if hasAll {
			idxs = append(idxs, i)
		}
	}
	return idxs
}
