package sequences

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/fathom-backend/internal/types"
)

const (
	// A sequence joins a cluster when more than half its topics already
	// appear in the cluster's topic union.
	clusterOverlap = 0.5

	minClusterSize   = 2
	confirmedMembers = 3

	declineConfidenceHigh = 0.8
	declineConfidenceLow  = 0.6
)

// DeclineSequence is the run of entries strictly between a non-low mood
// event and the low event that follows it.
type DeclineSequence struct {
	From     MoodEvent
	To       MoodEvent
	EntryIDs []uuid.UUID
	Topics   []string // sorted topic/activity values mentioned on the way down
	MoodDrop float64
	Days     float64
}

// DeclineCluster groups declines that keep happening about the same
// things.
type DeclineCluster struct {
	Members      []DeclineSequence
	TopicUnion   []string
	CommonTopics []string // present in at least half the members
	AvgMoodDrop  float64
	AvgDays      float64
	Confidence   float64
	Validation   string
}

// MineDeclines pairs each low event with the non-low event before it,
// collects what the user wrote about in between, and greedily clusters
// the sequences by topic overlap. Only clusters with at least two members
// are reported.
func MineDeclines(entries []*types.Entry, events []MoodEvent) []DeclineCluster {
	series := scoredSeries(entries)
	clusters := clusterByTopics(declineSequences(series, events))

	var out []DeclineCluster
	for _, c := range clusters {
		size := len(c.members)
		if size < minClusterSize {
			continue
		}

		dc := DeclineCluster{
			Members:    c.members,
			TopicUnion: sortedKeys(c.union),
		}
		counts := map[string]int{}
		var dropSum, daySum float64
		for _, m := range c.members {
			dropSum += m.MoodDrop
			daySum += m.Days
			for _, topic := range m.Topics {
				counts[topic]++
			}
		}
		for topic, n := range counts {
			if float64(n)/float64(size) >= 0.5 {
				dc.CommonTopics = append(dc.CommonTopics, topic)
			}
		}
		sort.Strings(dc.CommonTopics)
		dc.AvgMoodDrop = dropSum / float64(size)
		dc.AvgDays = daySum / float64(size)
		if size >= confirmedMembers {
			dc.Confidence = declineConfidenceHigh
			dc.Validation = types.ValidationConfirmed
		} else {
			dc.Confidence = declineConfidenceLow
			dc.Validation = types.ValidationPending
		}
		out = append(out, dc)
	}

	sort.Slice(out, func(i, j int) bool {
		if len(out[i].Members) != len(out[j].Members) {
			return len(out[i].Members) > len(out[j].Members)
		}
		return strings.Join(out[i].TopicUnion, ",") < strings.Join(out[j].TopicUnion, ",")
	})
	return out
}

func declineSequences(series []*types.Entry, events []MoodEvent) []DeclineSequence {
	var seqs []DeclineSequence
	for i, ev := range events {
		if ev.Kind != EventLow {
			continue
		}
		// Nearest preceding event; a low directly before means no decline
		// to attribute, the user was already down.
		if i == 0 || events[i-1].Kind == EventLow {
			continue
		}
		from := events[i-1]

		seq := DeclineSequence{
			From:     from,
			To:       ev,
			MoodDrop: from.Mood - ev.Mood,
			Days:     ev.At.Sub(from.At).Hours() / 24,
		}
		topicSet := map[string]bool{}
		for k := from.Index + 1; k < ev.Index; k++ {
			e := series[k]
			seq.EntryIDs = append(seq.EntryIDs, e.ID)
			for _, raw := range e.Tags {
				kind, value, ok := types.SplitTag(raw)
				if !ok {
					continue
				}
				if kind == "topic" || kind == "activity" {
					topicSet[value] = true
				}
			}
		}
		seq.Topics = sortedKeys(topicSet)
		seqs = append(seqs, seq)
	}
	return seqs
}

type topicCluster struct {
	members []DeclineSequence
	union   map[string]bool
}

func clusterByTopics(seqs []DeclineSequence) []topicCluster {
	var clusters []topicCluster
	for _, seq := range seqs {
		placed := false
		for ci := range clusters {
			if overlapFraction(seq.Topics, clusters[ci].union) <= clusterOverlap {
				continue
			}
			clusters[ci].members = append(clusters[ci].members, seq)
			for _, topic := range seq.Topics {
				clusters[ci].union[topic] = true
			}
			placed = true
			break
		}
		if placed {
			continue
		}
		union := make(map[string]bool, len(seq.Topics))
		for _, topic := range seq.Topics {
			union[topic] = true
		}
		clusters = append(clusters, topicCluster{members: []DeclineSequence{seq}, union: union})
	}
	return clusters
}

func overlapFraction(topics []string, union map[string]bool) float64 {
	if len(topics) == 0 {
		return 0
	}
	hits := 0
	for _, topic := range topics {
		if union[topic] {
			hits++
		}
	}
	return float64(hits) / float64(len(topics))
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
