package sequences

import (
	"math"
	"reflect"
	"testing"

	"github.com/yungbote/fathom-backend/internal/types"
)

// Three high-to-low slides over the same topics must land in one cluster
// and confirm at three members.
func TestMineDeclinesClustersRepeatedTheme(t *testing.T) {
	moods := []float64{
		0.6, 0.6, 0.6,
		0.85, 0.55, 0.5, 0.2, // slide 1
		0.55, 0.6, 0.6,
		0.85, 0.55, 0.5, 0.2, // slide 2
		0.55, 0.6, 0.6,
		0.85, 0.55, 0.5, 0.2, // slide 3
		0.55, 0.6, 0.6,
	}
	entries := seriesOf(moods...)
	entries[4].Tags = []string{"topic:work"}
	entries[5].Tags = []string{"topic:sleep"}
	entries[11].Tags = []string{"topic:work", "topic:deadline"}
	entries[12].Tags = []string{"topic:sleep"}
	entries[18].Tags = []string{"topic:work"}
	entries[19].Tags = []string{"topic:sleep"}

	events := DetectMoodEvents(entries)
	if len(events) != 6 {
		t.Fatalf("events = %d (%+v), want 6 alternating high/low", len(events), events)
	}

	clusters := MineDeclines(entries, events)
	if len(clusters) != 1 {
		t.Fatalf("clusters = %d, want 1", len(clusters))
	}
	c := clusters[0]
	if len(c.Members) != 3 {
		t.Fatalf("members = %d, want 3", len(c.Members))
	}
	if c.Confidence != declineConfidenceHigh || c.Validation != types.ValidationConfirmed {
		t.Fatalf("cluster = conf %v %q, want 0.8 confirmed at three members", c.Confidence, c.Validation)
	}
	if want := []string{"sleep", "work"}; !reflect.DeepEqual(c.CommonTopics, want) {
		t.Fatalf("common topics = %v, want %v (deadline only appears once)", c.CommonTopics, want)
	}
	if want := []string{"deadline", "sleep", "work"}; !reflect.DeepEqual(c.TopicUnion, want) {
		t.Fatalf("topic union = %v, want %v", c.TopicUnion, want)
	}
	if math.Abs(c.AvgMoodDrop-0.65) > 1e-9 {
		t.Fatalf("avg mood drop = %v, want 0.65", c.AvgMoodDrop)
	}
	if c.AvgDays != 3 {
		t.Fatalf("avg days to decline = %v, want 3", c.AvgDays)
	}
	for _, m := range c.Members {
		if len(m.EntryIDs) != 2 {
			t.Fatalf("member has %d in-between entries, want 2", len(m.EntryIDs))
		}
		if m.From.Kind != EventHigh || m.To.Kind != EventLow {
			t.Fatalf("member runs %s -> %s, want high -> low", m.From.Kind, m.To.Kind)
		}
	}
}

func TestMineDeclinesTwoMembersStayPending(t *testing.T) {
	moods := []float64{
		0.6, 0.6, 0.6,
		0.85, 0.55, 0.5, 0.2,
		0.55, 0.6, 0.6,
		0.85, 0.55, 0.5, 0.2,
		0.55, 0.6, 0.6,
	}
	entries := seriesOf(moods...)
	entries[4].Tags = []string{"topic:work"}
	entries[11].Tags = []string{"topic:work"}

	clusters := MineDeclines(entries, DetectMoodEvents(entries))
	if len(clusters) != 1 || len(clusters[0].Members) != 2 {
		t.Fatalf("clusters = %+v, want one cluster of two", clusters)
	}
	if clusters[0].Confidence != declineConfidenceLow || clusters[0].Validation != types.ValidationPending {
		t.Fatalf("cluster = conf %v %q, want 0.6 pending at two members",
			clusters[0].Confidence, clusters[0].Validation)
	}
}

func TestMineDeclinesKeepsDisjointThemesApart(t *testing.T) {
	moods := []float64{
		0.6, 0.6, 0.6,
		0.85, 0.55, 0.5, 0.2,
		0.55, 0.6, 0.6,
		0.85, 0.55, 0.5, 0.2,
		0.55, 0.6, 0.6,
	}
	entries := seriesOf(moods...)
	entries[4].Tags = []string{"topic:work"}
	entries[11].Tags = []string{"topic:family"}

	// Two declines about different things: two singleton clusters, neither
	// reportable.
	if clusters := MineDeclines(entries, DetectMoodEvents(entries)); len(clusters) != 0 {
		t.Fatalf("clusters = %+v, want none", clusters)
	}
}
